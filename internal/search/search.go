package search

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/ewhitmore/sessionlens/internal/index"
)

type Result struct {
	SessionKey string
	MsgID      int
	Tool       string
	Project    string
	StartedAt  string
	Summary    string
	Snippet    string
	Role       string
	Kind       string
	Rank       float64
}

type Options struct {
	Query string
	Tool  string // "" = all, "claude", "opencode"
	Role  string // "" = all, "user", "assistant"
	Kind  string // "" = all, else a message kind
	Since string // "" = no filter, e.g. "2024-01-01"
	Limit int
}

// containsCJK returns true if the string contains any CJK Unified Ideograph.
func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	lower := strings.ToLower(text)
	qLower := strings.ToLower(query)
	idx := strings.Index(lower, qLower)
	if idx < 0 {
		if len([]rune(text)) > contextChars*2 {
			return string([]rune(text)[:contextChars*2]) + "..."
		}
		return text
	}
	runes := []rune(text)
	qRunes := []rune(query)
	runePos := len([]rune(text[:idx]))
	start := runePos - contextChars
	if start < 0 {
		start = 0
	}
	end := runePos + len(qRunes) + contextChars
	if end > len(runes) {
		end = len(runes)
	}
	prefix := ""
	suffix := ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	snippet := string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+len(qRunes)]) + "<<<" +
		string(runes[runePos+len(qRunes):end])
	return prefix + snippet + suffix
}

// Search runs a full-text query over the indexed messages. CJK queries go
// through LIKE because the unicode61 tokenizer cannot segment them.
func Search(db *index.DB, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	// Fetch more results before dedup so we still have enough after
	origLimit := opts.Limit
	opts.Limit = origLimit * 3

	var results []Result
	var err error
	if containsCJK(opts.Query) {
		results, err = searchLike(db, opts)
	} else {
		results, err = searchFTS(db, opts)
	}
	if err != nil {
		return nil, err
	}

	// keep only the best-ranked hit per session
	seen := make(map[string]bool)
	var deduped []Result
	for _, r := range results {
		if seen[r.SessionKey] {
			continue
		}
		seen[r.SessionKey] = true
		deduped = append(deduped, r)
		if len(deduped) >= origLimit {
			break
		}
	}
	return deduped, nil
}

func filterConditions(opts Options) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}
	if opts.Tool != "" {
		conditions = append(conditions, "s.tool = ?")
		args = append(args, opts.Tool)
	}
	if opts.Role != "" {
		conditions = append(conditions, "m.role = ?")
		args = append(args, opts.Role)
	}
	if opts.Kind != "" {
		conditions = append(conditions, "m.kind = ?")
		args = append(args, opts.Kind)
	}
	if opts.Since != "" {
		conditions = append(conditions, "s.started_at >= ?")
		args = append(args, opts.Since)
	}
	return conditions, args
}

func searchFTS(db *index.DB, opts Options) ([]Result, error) {
	conditions := []string{"messages_fts MATCH ?"}
	args := []interface{}{opts.Query}

	extra, extraArgs := filterConditions(opts)
	conditions = append(conditions, extra...)
	args = append(args, extraArgs...)

	query := fmt.Sprintf(`
		SELECT
			m.session_key,
			m.msg_id,
			s.tool,
			s.project,
			s.started_at,
			s.summary,
			snippet(messages_fts, 0, '>>>','<<<', '...', 40) as snip,
			m.role,
			m.kind,
			bm25(messages_fts, 1.0) as rank
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.rowid
		JOIN sessions s ON m.session_key = s.session_key
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func searchLike(db *index.DB, opts Options) ([]Result, error) {
	conditions := []string{"m.content LIKE ?"}
	args := []interface{}{"%" + opts.Query + "%"}

	extra, extraArgs := filterConditions(opts)
	conditions = append(conditions, extra...)
	args = append(args, extraArgs...)

	query := fmt.Sprintf(`
		SELECT
			m.session_key,
			m.msg_id,
			s.tool,
			s.project,
			s.started_at,
			s.summary,
			m.content,
			m.role,
			m.kind
		FROM messages m
		JOIN sessions s ON m.session_key = s.session_key
		WHERE %s
		ORDER BY s.started_at DESC
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var fullText string
		if err := rows.Scan(
			&r.SessionKey, &r.MsgID, &r.Tool, &r.Project,
			&r.StartedAt, &r.Summary, &fullText, &r.Role, &r.Kind,
		); err != nil {
			return nil, err
		}
		r.Snippet = makeSnippet(fullText, opts.Query, 30)
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(
			&r.SessionKey, &r.MsgID, &r.Tool, &r.Project,
			&r.StartedAt, &r.Summary, &r.Snippet, &r.Role, &r.Kind, &r.Rank,
		); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
