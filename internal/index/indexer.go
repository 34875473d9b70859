package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/ewhitmore/sessionlens/internal/model"
	"github.com/ewhitmore/sessionlens/internal/parse"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheEntries = 8

	// fingerprintSample bounds the number of messages hashed into the
	// index fingerprint.
	fingerprintSample = 100
)

type scanFunc func(root string, opts model.ScanOptions, logger *slog.Logger) ([]model.Message, error)

// Indexer builds date-bucketed session indexes from both log sources and
// caches the results per scan options. Safe for concurrent use.
type Indexer struct {
	logger *slog.Logger
	cache  *expirable.LRU[string, *model.Index]
	group  singleflight.Group

	// scanner seams, replaced in tests
	scanClaude   scanFunc
	scanOpenCode scanFunc
}

func New(logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		logger:       logger,
		cache:        expirable.NewLRU[string, *model.Index](cacheEntries, nil, cacheTTL),
		scanClaude:   parse.ScanClaude,
		scanOpenCode: parse.ScanOpenCode,
	}
}

// Build returns the index for the given options, rebuilding on cache miss.
// Concurrent callers with the same options share one rebuild. Build never
// fails: a source that cannot be scanned contributes nothing.
func (ix *Indexer) Build(opts model.ScanOptions) *model.Index {
	key := opts.CacheKey()
	if idx, ok := ix.cache.Get(key); ok {
		return idx
	}

	v, _, _ := ix.group.Do(key, func() (any, error) {
		if idx, ok := ix.cache.Get(key); ok {
			return idx, nil
		}
		idx := ix.rebuild(opts)
		ix.cache.Add(key, idx)
		return idx, nil
	})
	return v.(*model.Index)
}

// ClearCache drops all cached indexes so the next Build rescans.
func (ix *Indexer) ClearCache() {
	ix.cache.Purge()
}

func (ix *Indexer) rebuild(opts model.ScanOptions) *model.Index {
	var wg sync.WaitGroup
	var claudeMsgs, opencodeMsgs []model.Message

	wg.Add(2)
	go func() {
		defer wg.Done()
		claudeMsgs = ix.runScanner("claude", ix.scanClaude, opts.ClaudeRoot, opts)
	}()
	go func() {
		defer wg.Done()
		opencodeMsgs = ix.runScanner("opencode", ix.scanOpenCode, opts.OpenCodeRoot, opts)
	}()
	wg.Wait()

	msgs := append(claudeMsgs, opencodeMsgs...)
	return buildIndex(msgs)
}

// runScanner isolates one source: a panic or error in a scanner degrades
// that source to an empty list instead of failing the build.
func (ix *Indexer) runScanner(name string, scan scanFunc, root string, opts model.ScanOptions) (msgs []model.Message) {
	defer func() {
		if r := recover(); r != nil {
			ix.logger.Warn("scanner panicked", "source", name, "panic", r)
			msgs = nil
		}
	}()

	msgs, err := scan(root, opts, ix.logger)
	if err != nil {
		ix.logger.Warn("scanner failed", "source", name, "root", root, "err", err)
		return nil
	}
	return msgs
}

// buildIndex groups messages into sessions, derives session times, and
// buckets sessions by start date.
func buildIndex(msgs []model.Message) *model.Index {
	byKey := make(map[string]*model.Session)
	var order []string
	for _, m := range msgs {
		key := string(m.Tool) + ":" + m.SessionID
		s, ok := byKey[key]
		if !ok {
			s = &model.Session{
				Tool:           m.Tool,
				SessionID:      m.SessionID,
				ProjectDisplay: m.ProjectDisplay,
				ProjectPath:    m.ProjectPath,
			}
			byKey[key] = s
			order = append(order, key)
		}
		if s.ProjectDisplay == "" && m.ProjectDisplay != "" {
			s.ProjectDisplay = m.ProjectDisplay
			s.ProjectPath = m.ProjectPath
		}
		s.Messages = append(s.Messages, m)
	}

	days := make(map[string][]*model.Session)
	for _, key := range order {
		s := byKey[key]
		sort.SliceStable(s.Messages, func(i, j int) bool {
			return s.Messages[i].Timestamp.Before(s.Messages[j].Timestamp)
		})
		s.StartedAt = s.Messages[0].Timestamp
		s.EndedAt = s.Messages[len(s.Messages)-1].Timestamp
		for _, m := range s.Messages {
			if m.FileModifiedAt.After(s.FileLastModified) {
				s.FileLastModified = m.FileModifiedAt
			}
		}
		day := s.StartedAt.Format(model.DateKey)
		days[day] = append(days[day], s)
	}

	for _, bucket := range days {
		sort.SliceStable(bucket, func(i, j int) bool {
			if !bucket[i].StartedAt.Equal(bucket[j].StartedAt) {
				return bucket[i].StartedAt.Before(bucket[j].StartedAt)
			}
			return bucket[i].Key() < bucket[j].Key()
		})
	}

	idx := &model.Index{
		Days:    days,
		BuiltAt: time.Now(),
	}
	idx.Fingerprint = fingerprint(idx)
	return idx
}

// fingerprint hashes a bounded, deterministic sample of the index so two
// builds over unchanged sources compare equal.
func fingerprint(idx *model.Index) string {
	h := sha256.New()
	n := 0
	for _, s := range idx.Sessions() {
		for _, m := range s.Messages {
			if n == fingerprintSample {
				break
			}
			fmt.Fprintf(h, "%s|%s|%d|%d\n", m.Tool, m.SessionID, m.Timestamp.UnixMilli(), m.Size)
			n++
		}
		if n == fingerprintSample {
			break
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
