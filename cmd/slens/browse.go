package main

import (
	"github.com/spf13/cobra"

	"github.com/ewhitmore/sessionlens/internal/index"
	"github.com/ewhitmore/sessionlens/internal/tui"
)

func browseCmd() *cobra.Command {
	var since, mode string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactive browser over all sessions, newest first",
		Long:  `Opens a TUI panel listing all sessions with a transcript preview. Type to fuzzy-filter by date, project or summary. Enter copies the resume command for the selected session.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := loadScanOptions(since, mode)
			if err != nil {
				return err
			}
			return tui.Run(index.New(newLogger()), opts)
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Only include messages since date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&mode, "mode", "", "Size mode (chars/bytes/tokens)")

	return cmd
}
