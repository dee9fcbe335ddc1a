// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package warehouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// SQLiteSink stores rows in <data_dir>/<project>/<dataset>.db, one table
// per target table. The database is opened on first use.
type SQLiteSink struct {
	cfg    types.WarehouseConfig
	logger zerolog.Logger

	mu sync.Mutex
	db *sqlx.DB
}

// NewSQLiteSink returns a sink for cfg.Target under cfg.DataDir.
func NewSQLiteSink(cfg types.WarehouseConfig, logger zerolog.Logger) *SQLiteSink {
	return &SQLiteSink{cfg: cfg, logger: logger}
}

// Path returns the database file for the configured target.
func (s *SQLiteSink) Path() string {
	return filepath.Join(s.cfg.DataDir, s.cfg.Target.Project, s.cfg.Target.Dataset+".db")
}

func (s *SQLiteSink) open(ctx context.Context) (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}
	if err := checkTarget(s.cfg.Target); err != nil {
		return nil, err
	}
	if err := checkIdents(s.cfg.Target); err != nil {
		return nil, err
	}

	path := s.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, types.NewSourceError(component, types.TransportFailure, fmt.Errorf("creating warehouse directory: %w", err))
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, types.NewSourceError(component, types.TransportFailure, fmt.Errorf("opening database: %w", err))
	}

	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		paper_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		snippet TEXT NOT NULL DEFAULT '',
		html_content TEXT NOT NULL DEFAULT ''
	)`, s.cfg.Target.Table)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		db.Close()
		return nil, types.NewSourceError(component, types.TransportFailure, fmt.Errorf("creating table: %w", err))
	}

	s.logger.Debug().Str("path", path).Str("table", s.cfg.Target.Table).Msg("warehouse opened")
	s.db = db
	return db, nil
}

// Store implements Sink.
func (s *SQLiteSink) Store(ctx context.Context, row types.StoredRow) error {
	if err := checkTarget(s.cfg.Target); err != nil {
		return err
	}
	db, err := s.open(ctx)
	if err != nil {
		return err
	}

	q := fmt.Sprintf(`INSERT INTO %q (paper_id, title, link, snippet, html_content)
		VALUES (:paper_id, :title, :link, :snippet, :html_content)`, s.cfg.Target.Table)
	if _, err := db.NamedExecContext(ctx, q, row); err != nil {
		return types.NewSourceError(component, types.TransportFailure, fmt.Errorf("inserting row into %s: %w", s.cfg.Target, err))
	}
	return nil
}

// List implements Lister.
func (s *SQLiteSink) List(ctx context.Context, limit int) ([]types.StoredRow, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	var rows []types.StoredRow
	q := fmt.Sprintf(`SELECT paper_id, title, link, snippet, html_content FROM %q ORDER BY rowid DESC LIMIT ?`, s.cfg.Target.Table)
	if err := db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, types.NewSourceError(component, types.TransportFailure, fmt.Errorf("listing rows: %w", err))
	}
	return rows, nil
}

// Close releases the database connection.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
