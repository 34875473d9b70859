package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ewhitmore/sessionlens/internal/index"
	"github.com/ewhitmore/sessionlens/internal/search"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeTool(tool string) string {
	switch tool {
	case "claude":
		return sColorBlue + tool + sColorReset
	case "opencode":
		return sColorGreen + tool + sColorReset
	default:
		return tool
	}
}

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func searchCmd() *cobra.Command {
	var tool, role, kind, since, mode string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across all conversations",
		Long: `Search conversations using FTS5. Output is TSV for fzf integration:
  sessionKey, msgId, startedAt, tool, project, summary, snippet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, cfg, err := loadScanOptions(since, mode)
			if err != nil {
				return err
			}

			idx := index.New(newLogger()).Build(opts)

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.RebuildFromIndex(idx); err != nil {
				return fmt.Errorf("rebuild search db: %w", err)
			}

			results, err := search.Search(db, search.Options{
				Query: args[0],
				Tool:  tool,
				Role:  role,
				Kind:  kind,
				Since: since,
				Limit: limit,
			})
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			for _, r := range results {
				snippet := strings.ReplaceAll(r.Snippet, "\t", " ")
				snippet = strings.ReplaceAll(snippet, "\n", " ")
				snippet = colorizeSnippet(snippet)
				summary := strings.ReplaceAll(r.Summary, "\t", " ")
				summary = strings.ReplaceAll(summary, "\n", " ")
				project := r.Project
				if project == "" {
					project = "-"
				}
				// first two fields (sessionKey, msgId) stay plain for fzf {1} {2}
				fmt.Printf("%s\t%d\t%s%s%s\t%s\t%s\t%s\t%s\n",
					r.SessionKey,
					r.MsgID,
					sColorDim, r.StartedAt, sColorReset,
					colorizeTool(r.Tool),
					project,
					summary,
					snippet,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tool, "tool", "", "Filter by tool (claude/opencode)")
	cmd.Flags().StringVar(&role, "role", "", "Filter by role (user/assistant)")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by message kind (user/assistant/tool_call/tool_result)")
	cmd.Flags().StringVar(&since, "since", "", "Filter sessions started since date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&mode, "mode", "", "Size mode (chars/bytes/tokens)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max results")

	return cmd
}
