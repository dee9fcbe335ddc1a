// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/knowledge-engine/internal/engine"
	"github.com/pdiddy/knowledge-engine/internal/render"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run one submission against the selected sources",
	Long: `Query sends the text to the selected sources in fixed order: Google
Patents, Wikipedia, PubMed. Each patent result is scraped and stored in the
configured warehouse table. With --question, the answer is generated from
the query text as context.

Sources: patents, encyclopedia, literature, all (the labels "Google Patents",
"Wikipedia", "PubMed" and "All Combined" are accepted too).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	text, _ := cmd.Flags().GetString("query")
	if len(args) == 1 {
		text = args[0]
	}
	question, _ := cmd.Flags().GetString("question")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	savePath, _ := cmd.Flags().GetString("save")
	noColor, _ := cmd.Flags().GetBool("no-color")

	limit := engineCfg.DefaultLimit
	if cmd.Flags().Changed("limit") {
		limit, _ = cmd.Flags().GetInt("limit")
	}
	mode := engineCfg.DefaultMode
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		m, err := types.ParseMode(v)
		if err != nil {
			return err
		}
		mode = m
	}

	sub := engine.Submission{
		ID:       uuid.NewString(),
		Query:    types.Query{Text: strings.TrimSpace(text), Limit: limit, Mode: mode},
		Question: strings.TrimSpace(question),
	}
	if sub.Query.IsIdle() {
		fmt.Fprintln(os.Stderr, "Nothing to search: pass the query as an argument or with --query.")
		return nil
	}

	ctx := context.Background()
	eng, sink, err := buildEngine(ctx, engineCfg, os.Stderr)
	if err != nil {
		return err
	}
	if sink != nil {
		defer sink.Close()
	}

	tr := render.NewTranscript(sub)
	var r engine.Renderer = tr
	if !jsonOutput {
		r = render.Tee{render.NewText(os.Stdout, !noColor), tr}
	}

	sum, err := eng.Run(ctx, sub, r)
	if err != nil {
		return err
	}
	tr.Finish(sum)

	if jsonOutput {
		if err := tr.WriteJSON(os.Stdout); err != nil {
			return err
		}
	}
	if savePath != "" {
		if err := tr.Save(savePath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved submission to %s\n", savePath)
	}
	return nil
}

func init() {
	queryCmd.Flags().String("query", "", "query text")
	queryCmd.Flags().Int("limit", 5, "number of results per source (1-10)")
	queryCmd.Flags().String("mode", "", "sources to query: patents, encyclopedia, literature, all (default from config)")
	queryCmd.Flags().String("question", "", "question to answer about the query")
	queryCmd.Flags().Bool("json", false, "output the submission transcript as JSON")
	queryCmd.Flags().String("save", "", "save the submission transcript to a YAML file")
	queryCmd.Flags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(queryCmd)
}
