package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ewhitmore/sessionlens/internal/index"
	"github.com/ewhitmore/sessionlens/internal/model"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify roots, scan both sources, check the search DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, cfg, err := loadScanOptions("", "")
			if err != nil {
				return err
			}

			fmt.Println("=== Roots ===")
			checkDir("Claude", cfg.ClaudeRoot)
			checkDir("OpenCode", cfg.OpenCodeRoot)

			fmt.Println("\n=== Scan ===")
			idx := index.New(newLogger()).Build(opts)
			claudeCount, opencodeCount, msgCount := 0, 0, 0
			for _, s := range idx.Sessions() {
				msgCount += len(s.Messages)
				switch s.Tool {
				case model.ToolClaude:
					claudeCount++
				case model.ToolOpenCode:
					opencodeCount++
				}
			}
			fmt.Printf("  Claude sessions:   %d\n", claudeCount)
			fmt.Printf("  OpenCode sessions: %d\n", opencodeCount)
			fmt.Printf("  Messages:          %d\n", msgCount)
			fmt.Printf("  Days:              %d\n", len(idx.Dates()))
			fmt.Printf("  Fingerprint:       %.12s\n", idx.Fingerprint)

			fmt.Println("\n=== Database ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			if err := db.RebuildFromIndex(idx); err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}

			sessionCount, err := db.SessionCount()
			if err != nil {
				return fmt.Errorf("count sessions: %w", err)
			}
			dbMsgCount, err := db.MessageCount()
			if err != nil {
				return fmt.Errorf("count messages: %w", err)
			}
			fmt.Printf("  Sessions: %d\n", sessionCount)
			fmt.Printf("  Messages: %d\n", dbMsgCount)

			fmt.Println("\n=== FTS5 ===")
			var ftsCount int
			if err := db.Raw().QueryRow("SELECT COUNT(*) FROM messages_fts").Scan(&ftsCount); err != nil {
				fmt.Printf("  FTS5 error: %v\n", err)
			} else {
				fmt.Printf("  FTS5 entries: %d\n", ftsCount)
				if ftsCount == dbMsgCount {
					fmt.Println("  Status: OK (synced)")
				} else {
					fmt.Printf("  Status: MISMATCH (messages=%d, fts=%d)\n", dbMsgCount, ftsCount)
				}
			}

			if info, err := os.Stat(cfg.DBPath); err == nil {
				sizeMB := float64(info.Size()) / 1024 / 1024
				fmt.Printf("\n=== DB Size: %.1f MB ===\n", sizeMB)
			}
			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
