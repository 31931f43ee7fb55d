package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vogtb/go-spreadsheet/packages/logging"

	_ "modernc.org/sqlite"
)

// ErrSnapshotNotFound is returned for an unknown snapshot id
var ErrSnapshotNotFound = errors.New("snapshot not found")

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	version TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_cells (
	snapshot_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	contents TEXT NOT NULL,
	PRIMARY KEY (snapshot_id, position)
);
`

// SnapshotInfo describes a stored snapshot without its cells
type SnapshotInfo struct {
	ID        string
	Label     string
	Version   string
	CreatedAt time.Time
	CellCount int
}

// SnapshotStore keeps named point-in-time copies of documents in a SQLite
// file
type SnapshotStore struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

// Option configures a SnapshotStore
type Option func(*SnapshotStore)

// WithLogger sets the logger used by the store
func WithLogger(logger logging.Logger) Option {
	return func(s *SnapshotStore) {
		s.logger = logger.WithComponent("snapshots")
	}
}

// Open opens (creating if needed) the snapshot database at path
func Open(ctx context.Context, path string, opts ...Option) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot db: %w", err)
	}
	// sqlite has a single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping snapshot db: %w", err)
	}
	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshot tables: %w", err)
	}

	s := &SnapshotStore{
		db:     db,
		logger: logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save stores doc under a new id. the snapshot row and all of its cells are
// written in one transaction.
func (s *SnapshotStore) Save(ctx context.Context, label string, doc *Document) (string, error) {
	id := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO snapshots (id, label, version, created_at) VALUES (?, ?, ?, ?)",
		id, label, doc.Version, s.now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO snapshot_cells (snapshot_id, position, name, contents) VALUES (?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("failed to prepare cell insert: %w", err)
	}
	defer stmt.Close()

	for i, cell := range doc.Cells {
		if _, err := stmt.ExecContext(ctx, id, i, cell.Name, cell.Contents); err != nil {
			return "", fmt.Errorf("failed to insert cell %s: %w", cell.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit snapshot: %w", err)
	}

	s.logger.Info("snapshot saved",
		logging.F("id", id), logging.F("label", label), logging.F("cells", len(doc.Cells)))
	return id, nil
}

// Load returns the document stored under id
func (s *SnapshotStore) Load(ctx context.Context, id string) (*Document, error) {
	doc := &Document{}
	err := s.db.QueryRowContext(ctx, "SELECT version FROM snapshots WHERE id = ?", id).Scan(&doc.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, contents FROM snapshot_cells WHERE snapshot_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot cells: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cell CellRecord
		if err := rows.Scan(&cell.Name, &cell.Contents); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot cell: %w", err)
		}
		doc.Cells = append(doc.Cells, cell)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot cells: %w", err)
	}

	s.logger.Info("snapshot loaded", logging.F("id", id), logging.F("cells", len(doc.Cells)))
	return doc, nil
}

// List returns every snapshot, oldest first
func (s *SnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.label, s.version, s.created_at,
			(SELECT COUNT(*) FROM snapshot_cells c WHERE c.snapshot_id = s.id)
		FROM snapshots s
		ORDER BY s.created_at, s.rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var createdAt int64
		if err := rows.Scan(&info.ID, &info.Label, &info.Version, &createdAt, &info.CellCount); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		info.CreatedAt = time.UnixMilli(createdAt)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}
	return infos, nil
}

// Delete removes a snapshot and its cells
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_cells WHERE snapshot_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete snapshot cells: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	s.logger.Info("snapshot deleted", logging.F("id", id))
	return nil
}
