// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/knowledge-engine/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search form and chatbot over HTTP",
	Long: `Serve starts an HTTP server with the search form at / and the chatbot at
/chat. Submissions run one at a time. POST /api/submissions accepts the same
submission as JSON and returns the transcript.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := engineCfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, sink, err := buildEngine(ctx, engineCfg, os.Stderr)
		if err != nil {
			return err
		}
		if sink != nil {
			defer sink.Close()
		}

		srv := &http.Server{
			Addr: addr,
			Handler: web.NewServer(eng, logger, web.Options{
				DefaultLimit: engineCfg.DefaultLimit,
				DefaultMode:  engineCfg.DefaultMode,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", addr).Msg("listening")
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logger.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address (default from config)")

	rootCmd.AddCommand(serveCmd)
}
