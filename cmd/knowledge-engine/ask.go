// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/knowledge-engine/internal/render"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the chatbot a question without searching",
	Long: `Ask sends the question to the configured language model with a fixed
context and prints the answer. No source is queried and nothing is stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return fmt.Errorf("question required")
		}
		noColor, _ := cmd.Flags().GetBool("no-color")

		ctx := context.Background()
		eng, sink, err := buildEngine(ctx, engineCfg, os.Stderr)
		if err != nil {
			return err
		}
		if sink != nil {
			defer sink.Close()
		}

		_, err = eng.Ask(ctx, question, render.NewText(os.Stdout, !noColor))
		return err
	},
}

func init() {
	askCmd.Flags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(askCmd)
}
