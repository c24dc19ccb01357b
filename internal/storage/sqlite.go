package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lehigh-university-libraries/alttext/internal/models"
	_ "modernc.org/sqlite"
)

const (
	poolAlt      = "alt"
	poolFilename = "filename"
)

// SQLite persists templates in a local sqlite database
type SQLite struct {
	db *sql.DB
}

var _ Persister = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and ensures the schema exists
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewSQLite(db)
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an existing connection; the caller must create the schema
// with OpenSQLite or Migrate
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Migrate creates the tables if they do not exist
func (s *SQLite) Migrate(ctx context.Context) error {
	return s.createTables(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS templates (
			pool TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			template TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (pool, id)
		)`,
		`CREATE TABLE IF NOT EXISTS template_counters (
			pool TEXT PRIMARY KEY,
			next INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Alt, err = s.loadPool(ctx, poolAlt); err != nil {
		return Snapshot{}, err
	}
	if snap.Filename, err = s.loadPool(ctx, poolFilename); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *SQLite) loadPool(ctx context.Context, pool string) (PoolSnapshot, error) {
	ps := PoolSnapshot{Templates: []models.Template{}}

	err := s.db.QueryRowContext(ctx, `SELECT next FROM template_counters WHERE pool = ?`, pool).Scan(&ps.Next)
	if err != nil && err != sql.ErrNoRows {
		return PoolSnapshot{}, fmt.Errorf("failed to read %s counter: %w", pool, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, template FROM templates WHERE pool = ? ORDER BY position`, pool)
	if err != nil {
		return PoolSnapshot{}, fmt.Errorf("failed to query %s templates: %w", pool, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t models.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Template); err != nil {
			return PoolSnapshot{}, fmt.Errorf("failed to scan template: %w", err)
		}
		ps.Templates = append(ps.Templates, t)
	}
	if err := rows.Err(); err != nil {
		return PoolSnapshot{}, fmt.Errorf("failed to read %s templates: %w", pool, err)
	}
	return ps, nil
}

// Save rewrites both pools in a single transaction
func (s *SQLite) Save(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM templates`); err != nil {
		return fmt.Errorf("failed to clear templates: %w", err)
	}

	pools := []struct {
		name string
		snap PoolSnapshot
	}{
		{poolAlt, snap.Alt},
		{poolFilename, snap.Filename},
	}
	for _, p := range pools {
		for pos, t := range p.snap.Templates {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO templates (pool, id, name, template, position) VALUES (?, ?, ?, ?, ?)`,
				p.name, t.ID, t.Name, t.Template, pos); err != nil {
				return fmt.Errorf("failed to insert template %s: %w", t.ID, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO template_counters (pool, next) VALUES (?, ?)
			 ON CONFLICT(pool) DO UPDATE SET next = excluded.next`,
			p.name, p.snap.Next); err != nil {
			return fmt.Errorf("failed to store %s counter: %w", p.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit templates: %w", err)
	}
	return nil
}
