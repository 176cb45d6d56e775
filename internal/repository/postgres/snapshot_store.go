package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/JesseOrSomething/ZenCode/internal/model"
)

// SnapshotRepo implements SnapshotStore on PostgreSQL. Usage counters and
// conversations are full-state replaced inside a single transaction, matching
// the snapshot contract (the core owns live state, storage only mirrors it).
type SnapshotRepo struct{ db *DB }

// NewSnapshotRepo constructs a snapshot repository.
func NewSnapshotRepo(db *DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// LoadAll reads all usage records and conversation windows.
func (r *SnapshotRepo) LoadAll(ctx context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		Usage:         make(map[string]model.UsageRecord),
		Conversations: make(map[string][]model.Turn),
	}

	rows, err := r.db.Pool.Query(ctx, `SELECT identity, day, count FROM usage_records`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var identity string
		var rec model.UsageRecord
		if err := rows.Scan(&identity, &rec.Day, &rec.Count); err != nil {
			rows.Close()
			return nil, err
		}
		snap.Usage[identity] = rec
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Pool.Query(ctx, `SELECT id, turns FROM conversations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var turns []model.Turn
		if err := json.Unmarshal(raw, &turns); err != nil {
			return nil, err
		}
		snap.Conversations[id] = turns
	}
	return snap, rows.Err()
}

// SaveAll replaces the persisted snapshot transactionally.
func (r *SnapshotRepo) SaveAll(ctx context.Context, snap *model.Snapshot) error {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM usage_records`); err != nil {
		return err
	}
	for identity, rec := range snap.Usage {
		const q = `INSERT INTO usage_records (identity, day, count) VALUES ($1, $2, $3)`
		if _, err := tx.Exec(ctx, q, identity, rec.Day, rec.Count); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM conversations`); err != nil {
		return err
	}
	for id, turns := range snap.Conversations {
		raw, err := json.Marshal(turns)
		if err != nil {
			return err
		}
		const q = `INSERT INTO conversations (id, turns) VALUES ($1, $2)`
		if _, err := tx.Exec(ctx, q, id, raw); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
