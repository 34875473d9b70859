package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ewhitmore/sessionlens/internal/index"
	"github.com/ewhitmore/sessionlens/internal/render"
)

func showCmd() *cobra.Command {
	var hit, context int
	var query, since, mode string

	cmd := &cobra.Command{
		Use:   "show <sessionKey>",
		Short: "Print a session transcript, optionally centered on a message",
		Args:  cobra.ExactArgs(1),
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

			width := 0
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				width = w
			}

			out, _ := render.RenderSession(s, render.Options{
				HitMsgID: hit,
				Context:  context,
				Width:    width,
				Query:    query,
			})
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&hit, "hit", -1, "Message index to highlight")
	cmd.Flags().IntVar(&context, "context", -1, "Messages before/after hit to show (-1 = all)")
	cmd.Flags().StringVar(&query, "query", "", "Search query for keyword highlighting")
	cmd.Flags().StringVar(&since, "since", "", "Only include messages since date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&mode, "mode", "", "Size mode (chars/bytes/tokens)")

	return cmd
}
