package main

import (
	"fmt"
	"time"

	"github.com/ewhitmore/sessionlens/internal/config"
	"github.com/ewhitmore/sessionlens/internal/measure"
	"github.com/ewhitmore/sessionlens/internal/model"
)

// loadScanOptions resolves config plus per-command flag overrides into the
// options every index build takes.
func loadScanOptions(sinceStr, modeStr string) (model.ScanOptions, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return model.ScanOptions{}, nil, fmt.Errorf("load config: %w", err)
	}

	if modeStr == "" {
		modeStr = cfg.SizeMode
	}
	mode, err := measure.ParseMode(modeStr)
	if err != nil {
		return model.ScanOptions{}, nil, err
	}

	var since time.Time
	if sinceStr != "" {
		since, err = time.Parse("2006-01-02", sinceStr)
		if err != nil {
			return model.ScanOptions{}, nil, fmt.Errorf("parse --since: %w", err)
		}
	}

	return model.ScanOptions{
		ClaudeRoot:   cfg.ClaudeRoot,
		OpenCodeRoot: cfg.OpenCodeRoot,
		SizeMode:     mode,
		Since:        since,
	}, cfg, nil
}
