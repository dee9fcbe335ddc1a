// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/knowledge-engine/internal/warehouse"
)

var rowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Read back stored patent rows",
	Long: `Rows reads the warehouse table written by query. Only the sqlite and
postgres backends support reading rows back.`,
}

var rowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rows, most recent first where the backend keeps order",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		ctx := context.Background()
		l, closeFn, err := openLister(ctx, engineCfg)
		if err != nil {
			return err
		}
		defer closeFn()

		rows, err := l.List(ctx, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return warehouse.WriteRows(os.Stdout, rows, warehouse.FormatJSON, false)
		}

		if len(rows) == 0 {
			fmt.Println("No rows found.")
			return nil
		}

		fmt.Fprintf(os.Stdout, "%-8s  %-50s  %s\n", "PaperID", "Title", "Link")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
		for _, r := range rows {
			title := r.Title
			if len([]rune(title)) > 50 {
				title = string([]rune(title)[:47]) + "..."
			}
			fmt.Fprintf(os.Stdout, "%-8d  %-50s  %s\n", r.PaperID, title, r.Link)
		}
		return nil
	},
}

var rowsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored rows as YAML or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		withContent, _ := cmd.Flags().GetBool("with-content")
		output, _ := cmd.Flags().GetString("output")

		ctx := context.Background()
		l, closeFn, err := openLister(ctx, engineCfg)
		if err != nil {
			return err
		}
		defer closeFn()

		w := os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}
		return warehouse.Export(ctx, l, w, format, withContent)
	},
}

func init() {
	rowsListCmd.Flags().Int("limit", 20, "maximum number of rows (0 for all)")
	rowsListCmd.Flags().Bool("json", false, "output rows as JSON")

	rowsExportCmd.Flags().String("format", warehouse.FormatYAML, "export format: yaml or json")
	rowsExportCmd.Flags().Bool("with-content", false, "include scraped page content")
	rowsExportCmd.Flags().String("output", "", "write to this file instead of stdout")

	rowsCmd.AddCommand(rowsListCmd, rowsExportCmd)
	rootCmd.AddCommand(rowsCmd)
}
