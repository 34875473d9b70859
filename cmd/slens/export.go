package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ewhitmore/sessionlens/internal/export"
	"github.com/ewhitmore/sessionlens/internal/index"
)

func exportCmd() *cobra.Command {
	var format, out, since, mode string

	cmd := &cobra.Command{
		Use:   "export <sessionKey>",
		Short: "Export a session as stream JSONL or a structured file tree",
		Long: `Export a session in either log format. "stream" writes newline-delimited
JSON records to stdout or --out file. "structured" writes the three-tier
session/info, session/message, session/part layout under the --out directory.
Messages that originated in the target format are written verbatim.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := loadScanOptions(since, mode)
			if err != nil {
				return err
			}

			idx := index.New(newLogger()).Build(opts)
			s := idx.Lookup(args[0])
			if s == nil {
				return fmt.Errorf("session not found: %s", args[0])
			}

			switch format {
			case "stream":
				w := os.Stdout
				if out != "" {
					f, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("create %s: %w", out, err)
					}
					defer f.Close()
					w = f
				}
				return export.WriteStreamJSONL(w, s)

			case "structured":
				if out == "" {
					return fmt.Errorf("--out directory is required for structured export")
				}
				if err := export.WriteStructuredTree(out, s); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Exported %d messages to %s\n", len(s.Messages), out)
				return nil

			default:
				return fmt.Errorf("unknown format: %q (want stream or structured)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "stream", "Export format (stream/structured)")
	cmd.Flags().StringVar(&out, "out", "", "Output file (stream) or directory (structured)")
	cmd.Flags().StringVar(&since, "since", "", "Only include messages since date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&mode, "mode", "", "Size mode (chars/bytes/tokens)")

	return cmd
}
