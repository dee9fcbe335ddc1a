// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// ErrMissingDSN reports a postgres backend without a connection string.
var ErrMissingDSN = errors.New("missing postgres DSN")

// pgRow is the bun model for a stored row. The table expression is set per
// query from the target.
type pgRow struct {
	bun.BaseModel `bun:"table:stored_rows,alias:r"`

	PaperID     int64  `bun:"paper_id,notnull"`
	Title       string `bun:"title,notnull"`
	Link        string `bun:"link,notnull"`
	Snippet     string `bun:"snippet,notnull"`
	HTMLContent string `bun:"html_content,notnull"`
}

// PostgresSink maps the target onto Postgres: project is the database,
// dataset the schema, table the table.
type PostgresSink struct {
	cfg    types.WarehouseConfig
	logger zerolog.Logger

	mu sync.Mutex
	db *bun.DB
}

// NewPostgresSink returns a sink for cfg.Target using cfg.DSN.
func NewPostgresSink(cfg types.WarehouseConfig, logger zerolog.Logger) *PostgresSink {
	return &PostgresSink{cfg: cfg, logger: logger}
}

func (s *PostgresSink) table() (string, []any) {
	return "?.?", []any{bun.Ident(s.cfg.Target.Dataset), bun.Ident(s.cfg.Target.Table)}
}

func (s *PostgresSink) open(ctx context.Context) (*bun.DB, error) {
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
	if s.cfg.DSN == "" {
		return nil, types.NewSourceError(component, types.NotConfigured, ErrMissingDSN)
	}

	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(s.cfg.DSN),
		pgdriver.WithDatabase(s.cfg.Target.Project),
	)
	db := bun.NewDB(sql.OpenDB(connector), pgdialect.New())
	if s.cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS ?", bun.Ident(s.cfg.Target.Dataset)); err != nil {
		db.Close()
		return nil, types.NewSourceError(component, types.TransportFailure, fmt.Errorf("creating schema: %w", err))
	}

	expr, args := s.table()
	if _, err := db.NewCreateTable().
		Model((*pgRow)(nil)).
		ModelTableExpr(expr, args...).
		IfNotExists().
		Exec(ctx); err != nil {
		db.Close()
		return nil, types.NewSourceError(component, types.TransportFailure, fmt.Errorf("creating table: %w", err))
	}

	s.logger.Debug().Str("target", s.cfg.Target.String()).Msg("warehouse opened")
	s.db = db
	return db, nil
}

// Store implements Sink.
func (s *PostgresSink) Store(ctx context.Context, row types.StoredRow) error {
	if err := checkTarget(s.cfg.Target); err != nil {
		return err
	}
	db, err := s.open(ctx)
	if err != nil {
		return err
	}

	m := &pgRow{
		PaperID:     row.PaperID,
		Title:       row.Title,
		Link:        row.Link,
		Snippet:     row.Snippet,
		HTMLContent: row.HTMLContent,
	}
	expr, args := s.table()
	if _, err := db.NewInsert().Model(m).ModelTableExpr(expr, args...).Exec(ctx); err != nil {
		return types.NewSourceError(component, types.TransportFailure, fmt.Errorf("inserting row into %s: %w", s.cfg.Target, err))
	}
	return nil
}

// List implements Lister.
func (s *PostgresSink) List(ctx context.Context, limit int) ([]types.StoredRow, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	var models []pgRow
	q := db.NewSelect().
		Model(&models).
		ModelTableExpr("?.? AS ?", bun.Ident(s.cfg.Target.Dataset), bun.Ident(s.cfg.Target.Table), bun.Ident("r"))
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, types.NewSourceError(component, types.TransportFailure, fmt.Errorf("listing rows: %w", err))
	}

	rows := make([]types.StoredRow, len(models))
	for i, m := range models {
		rows[i] = types.StoredRow{
			PaperID:     m.PaperID,
			Title:       m.Title,
			Link:        m.Link,
			Snippet:     m.Snippet,
			HTMLContent: m.HTMLContent,
		}
	}
	return rows, nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
