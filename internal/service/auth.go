// Package service contains application services for authentication, chat and
// subscriptions.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/JesseOrSomething/ZenCode/internal/crypto"
	"github.com/JesseOrSomething/ZenCode/internal/errs"
	"github.com/JesseOrSomething/ZenCode/internal/model"
	"github.com/JesseOrSomething/ZenCode/internal/repository"
)

// AuthService defines account and token operations.
type AuthService interface {
	// Register creates a new user with secure password hashing and signs
	// them in.
	Register(ctx context.Context, name, email, password string) (model.Tokens, *model.User, error)
	// Login authenticates by email/password.
	Login(ctx context.Context, email, password string) (model.Tokens, *model.User, error)
	// Verify parses an access token and returns the subject user ID.
	Verify(token string) (uuid.UUID, error)
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL}
}

// Register creates a new free-tier user and returns a fresh access token.
func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string) (model.Tokens, *model.User, error) {
	if name == "" || email == "" || password == "" {
		return model.Tokens{}, nil, fmt.Errorf("%w: all fields are required", errs.ErrValidation)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, nil, err
	}
	salt, err := pkgcrypto.NewSalt()
	if err != nil {
		return model.Tokens{}, nil, err
	}

	u := &model.User{
		ID:        uid,
		Name:      name,
		Email:     email,
		PwdHash:   pkgcrypto.HashPassword([]byte(password), salt),
		SaltAuth:  salt,
		Plan:      model.PlanFree,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Tokens{}, nil, err
	}

	tokens, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	return tokens, u, nil
}

// Login authenticates the user and returns a fresh access token.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (model.Tokens, *model.User, error) {
	if email == "" || password == "" {
		return model.Tokens{}, nil, fmt.Errorf("%w: email and password are required", errs.ErrValidation)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		// hide whether the account exists
		return model.Tokens{}, nil, errs.ErrUnauthorized
	}

	tokens, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	return tokens, u, nil
}

// Verify checks signature and expiry, returning the subject user ID.
func (s *AuthServiceImpl) Verify(token string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, errs.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, errs.ErrUnauthorized
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return id, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (model.Tokens, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}
