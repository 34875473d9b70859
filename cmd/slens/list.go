package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ewhitmore/sessionlens/internal/index"
	"github.com/ewhitmore/sessionlens/internal/model"
	"github.com/ewhitmore/sessionlens/internal/render"
)

const sizeBarWidth = 20

func listCmd() *cobra.Command {
	var since, mode, tool string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print sessions grouped by date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := loadScanOptions(since, mode)
			if err != nil {
				return err
			}

			idx := index.New(newLogger()).Build(opts)
			if idx.SessionCount() == 0 {
				fmt.Fprintln(os.Stderr, "No sessions found.")
				return nil
			}

			width := 100
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 40 {
				width = w
			}

			maxSize := 0
			for _, s := range idx.Sessions() {
				if tool != "" && string(s.Tool) != tool {
					continue
				}
				if s.TotalSize() > maxSize {
					maxSize = s.TotalSize()
				}
			}

			for _, date := range idx.Dates() {
				printed := false
				for _, s := range idx.Days[date] {
					if tool != "" && string(s.Tool) != tool {
						continue
					}
					if !printed {
						fmt.Printf("\n%s\n", date)
						printed = true
					}
					printSessionLine(s, maxSize, width)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Only include messages since date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&mode, "mode", "", "Size mode (chars/bytes/tokens)")
	cmd.Flags().StringVar(&tool, "tool", "", "Filter by tool (claude/opencode)")

	return cmd
}

func printSessionLine(s *model.Session, maxSize, width int) {
	summary := strings.ReplaceAll(s.FirstUserContent(), "\n", " ")
	// fixed columns: time(5) tool(8) bar(20) size(8) msgs(9) paddings
	summaryMax := width - 5 - 8 - sizeBarWidth - 8 - 9 - 8
	if summaryMax < 10 {
		summaryMax = 10
	}
	if len([]rune(summary)) > summaryMax {
		summary = string([]rune(summary)[:summaryMax])
	}

	fmt.Printf("  %s %-8s %s %7s %4d msgs  %s\n",
		s.StartedAt.Format("15:04"),
		s.Tool,
		render.SizeBar(s.TotalSize(), maxSize, sizeBarWidth),
		humanize.Comma(int64(s.TotalSize())),
		len(s.Messages),
		summary,
	)
}
