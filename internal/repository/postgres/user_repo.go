package postgres

import (
	"context"
	"errors"

	"github.com/JesseOrSomething/ZenCode/internal/errs"
	"github.com/JesseOrSomething/ZenCode/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, email, pwd_hash, salt_auth, plan, subscribed_at, billing_customer_id, billing_subscription_id, created_at`

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, name, email, pwd_hash, salt_auth, plan)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Name, u.Email, u.PwdHash, u.SaltAuth, string(u.Plan))
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// UpdatePlan persists the plan switch and billing references.
func (r *UserRepo) UpdatePlan(ctx context.Context, u *model.User) error {
	const q = `
UPDATE users
SET plan=$2, subscribed_at=$3, billing_customer_id=$4, billing_subscription_id=$5
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, u.ID, string(u.Plan), u.SubscribedAt, u.BillingCustomerID, u.BillingSubscriptionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func (r *UserRepo) scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var plan string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PwdHash, &u.SaltAuth, &plan,
		&u.SubscribedAt, &u.BillingCustomerID, &u.BillingSubscriptionID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	u.Plan = model.PlanID(plan)
	return &u, nil
}
