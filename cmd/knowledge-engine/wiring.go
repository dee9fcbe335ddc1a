// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/knowledge-engine/internal/answer"
	"github.com/pdiddy/knowledge-engine/internal/engine"
	"github.com/pdiddy/knowledge-engine/internal/httputil"
	"github.com/pdiddy/knowledge-engine/internal/scrape"
	"github.com/pdiddy/knowledge-engine/internal/search"
	"github.com/pdiddy/knowledge-engine/internal/warehouse"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// buildEngine constructs every component from cfg. A component that cannot
// be built is left nil, with a warning on warn; the engine reports it when
// its step runs. The returned sink, if any, must be closed by the caller.
func buildEngine(ctx context.Context, cfg types.EngineConfig, warn io.Writer) (*engine.Engine, warehouse.Sink, error) {
	client := httputil.NewClient(cfg.HTTP)

	c := engine.Components{
		Encyclopedia: search.NewEncyclopediaAdapter(cfg.Encyclopedia, cfg.HTTP, client),
		Literature:   search.NewLiteratureAdapter(cfg.Literature, cfg.HTTP, client),
		Scraper:      scrape.New(cfg.Scraper, cfg.HTTP, client),
		Target:       cfg.Warehouse.Target.String(),
	}

	if p, err := search.NewPatentAdapter(ctx, cfg.Patents, cfg.HTTP); err != nil {
		fmt.Fprintf(warn, "warning: patent search disabled: %v\n", err)
	} else {
		c.Patents = p
	}

	sink, err := warehouse.New(ctx, cfg.Warehouse, logger)
	if err != nil {
		return nil, nil, err
	}
	c.Sink = sink

	if g, err := answer.New(cfg.Answer); err != nil {
		fmt.Fprintf(warn, "warning: answers disabled: %v\n", err)
	} else {
		c.Generator = g
	}

	return engine.New(c, logger), sink, nil
}

// openLister returns the configured backend as a Lister. Only backends that
// can read rows back qualify.
func openLister(ctx context.Context, cfg types.EngineConfig) (warehouse.Lister, func() error, error) {
	sink, err := warehouse.New(ctx, cfg.Warehouse, logger)
	if err != nil {
		return nil, nil, err
	}
	if sink == nil {
		return nil, nil, fmt.Errorf("no warehouse backend configured")
	}
	l, ok := sink.(warehouse.Lister)
	if !ok {
		sink.Close()
		return nil, nil, fmt.Errorf("warehouse backend %s cannot list rows: use sqlite or postgres", cfg.Warehouse.Backend)
	}
	return l, sink.Close, nil
}
