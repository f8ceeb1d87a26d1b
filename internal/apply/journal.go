package apply

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Journal tracks which operation batches have been applied to avoid
// re-applying them when a directory of batch files is processed again.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (or creates) the SQLite journal at dir/journal.db.
func OpenJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS applied_batches (
		hash       TEXT PRIMARY KEY,
		path       TEXT NOT NULL,
		op_count   INTEGER NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal table: %w", err)
	}

	return &Journal{db: db}, nil
}

// IsApplied checks if a batch with the given content hash was already
// applied.
func (j *Journal) IsApplied(hash string) (bool, error) {
	var count int
	err := j.db.QueryRow(
		`SELECT COUNT(*) FROM applied_batches WHERE hash = ?`, hash,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkApplied records that a batch was successfully applied and persisted.
func (j *Journal) MarkApplied(hash, path string, opCount int) error {
	_, err := j.db.Exec(
		`INSERT OR REPLACE INTO applied_batches (hash, path, op_count) VALUES (?, ?, ?)`,
		hash, path, opCount,
	)
	return err
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// HashBatch computes the SHA-256 hash of a batch file's contents.
func HashBatch(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
