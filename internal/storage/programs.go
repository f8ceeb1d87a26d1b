package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/claude/repcoach/internal/program"
)

// ErrNoProgram is returned when a user has no stored program.
var ErrNoProgram = errors.New("no program found")

// GetProgram retrieves a user's current training program document.
func (db *DB) GetProgram(ctx context.Context, userID int) (*program.Program, error) {
	var doc []byte
	err := db.Pool.QueryRow(ctx,
		`SELECT document FROM programs WHERE user_id = $1`,
		userID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoProgram
	}
	if err != nil {
		return nil, fmt.Errorf("querying program: %w", err)
	}

	p := &program.Program{}
	if err := json.Unmarshal(doc, p); err != nil {
		return nil, fmt.Errorf("decoding program document: %w", err)
	}
	return p, nil
}

// SaveProgram upserts a user's program document. The document is stored
// handle-free; callers strip handles before persisting (the engine does
// this as part of every successful batch).
func (db *DB) SaveProgram(ctx context.Context, userID int, p *program.Program) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding program document: %w", err)
	}

	_, err = db.Pool.Exec(ctx,
		`INSERT INTO programs (user_id, document, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET document = $2, updated_at = now()`,
		userID, doc)
	if err != nil {
		return fmt.Errorf("saving program: %w", err)
	}
	return nil
}

// Revision is one applied batch: the operations as proposed and the
// document state they produced.
type Revision struct {
	ID         int64           `json:"id"`
	UserID     int             `json:"-"`
	AppliedAt  time.Time       `json:"appliedAt"`
	Operations json.RawMessage `json:"operations"`
	Document   json.RawMessage `json:"document,omitempty"`
}

// InsertRevision records a successfully applied batch for history.
func (db *DB) InsertRevision(ctx context.Context, userID int, operations any, p *program.Program) error {
	ops, err := json.Marshal(operations)
	if err != nil {
		return fmt.Errorf("encoding revision operations: %w", err)
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding revision document: %w", err)
	}

	_, err = db.Pool.Exec(ctx,
		`INSERT INTO program_revisions (user_id, applied_at, operations, document)
		 VALUES ($1, now(), $2, $3)`,
		userID, ops, doc)
	if err != nil {
		return fmt.Errorf("inserting revision: %w", err)
	}
	return nil
}

// ListRevisions returns a user's applied batches, newest first, without the
// full document snapshots.
func (db *DB) ListRevisions(ctx context.Context, userID int, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, applied_at, operations
		 FROM program_revisions
		 WHERE user_id = $1
		 ORDER BY applied_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying revisions: %w", err)
	}
	defer rows.Close()

	var result []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.UserID, &r.AppliedAt, &r.Operations); err != nil {
			return nil, fmt.Errorf("scanning revision: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetRevision retrieves one revision including its document snapshot.
func (db *DB) GetRevision(ctx context.Context, userID int, id int64) (*Revision, error) {
	var r Revision
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, applied_at, operations, document
		 FROM program_revisions
		 WHERE id = $1 AND user_id = $2`,
		id, userID).Scan(&r.ID, &r.UserID, &r.AppliedAt, &r.Operations, &r.Document)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("revision %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying revision: %w", err)
	}
	return &r, nil
}
