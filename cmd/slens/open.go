package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ewhitmore/sessionlens/internal/index"
	"github.com/ewhitmore/sessionlens/internal/open"
)

func openCmd() *cobra.Command {
	var msgIdx int

	cmd := &cobra.Command{
		Use:   "open <sessionKey>",
		Short: "Open the original log file in $EDITOR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := loadScanOptions("", "")
			if err != nil {
				return err
			}

			idx := index.New(newLogger()).Build(opts)
			s := idx.Lookup(args[0])
			if s == nil {
				return fmt.Errorf("session not found: %s", args[0])
			}
			return open.OpenSession(s, msgIdx)
		},
	}

	cmd.Flags().IntVar(&msgIdx, "msg", -1, "Message index whose source file to open")

	return cmd
}
