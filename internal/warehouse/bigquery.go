// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package warehouse

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// rowSchema is the fixed table schema for load jobs.
var rowSchema = bigquery.Schema{
	{Name: "paper_id", Type: bigquery.IntegerFieldType},
	{Name: "title", Type: bigquery.StringFieldType},
	{Name: "link", Type: bigquery.StringFieldType},
	{Name: "snippet", Type: bigquery.StringFieldType},
	{Name: "html_content", Type: bigquery.StringFieldType},
}

// BigQuerySink submits one newline-delimited JSON load job per row and
// waits for it to finish. The client is created on first use.
type BigQuerySink struct {
	cfg    types.WarehouseConfig
	logger zerolog.Logger

	// opts are extra client options; tests point them at a fake endpoint.
	opts []option.ClientOption

	mu     sync.Mutex
	client *bigquery.Client
}

// NewBigQuerySink returns a sink for cfg.Target.
func NewBigQuerySink(cfg types.WarehouseConfig, logger zerolog.Logger, opts ...option.ClientOption) *BigQuerySink {
	return &BigQuerySink{cfg: cfg, logger: logger, opts: opts}
}

// Store implements Sink.
func (s *BigQuerySink) Store(ctx context.Context, row types.StoredRow) error {
	if err := checkTarget(s.cfg.Target); err != nil {
		return err
	}

	client, err := s.connect(ctx)
	if err != nil {
		return err
	}

	data, err := encodeRow(row)
	if err != nil {
		return types.NewSourceError(component, types.MalformedResponse, err)
	}

	src := bigquery.NewReaderSource(bytes.NewReader(data))
	src.SourceFormat = bigquery.JSON
	src.Schema = rowSchema

	t := s.cfg.Target
	loader := client.Dataset(t.Dataset).Table(t.Table).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteAppend
	loader.CreateDisposition = bigquery.CreateIfNeeded

	job, err := loader.Run(ctx)
	if err != nil {
		return types.NewSourceError(component, types.TransportFailure, fmt.Errorf("starting load job into %s: %w", t, err))
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return types.NewSourceError(component, types.TransportFailure, fmt.Errorf("waiting for load job %s: %w", job.ID(), err))
	}
	if err := status.Err(); err != nil {
		return types.NewSourceError(component, types.TransportFailure, fmt.Errorf("load job %s into %s: %w", job.ID(), t, err))
	}

	s.logger.Debug().Str("job", job.ID()).Int64("paper_id", row.PaperID).Msg("row loaded")
	return nil
}

func (s *BigQuerySink) connect(ctx context.Context) (*bigquery.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	opts := append([]option.ClientOption{}, s.opts...)
	if s.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.cfg.CredentialsFile))
	}
	client, err := bigquery.NewClient(ctx, s.cfg.Target.Project, opts...)
	if err != nil {
		return nil, types.NewSourceError(component, types.NotConfigured, fmt.Errorf("creating BigQuery client: %w", err))
	}
	s.client = client
	return client, nil
}

// Close releases the client if one was created.
func (s *BigQuerySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
