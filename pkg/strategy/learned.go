package strategy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
)

// learnedRecord is the on-disk shape of one entry in strategies/learned.json.
type learnedRecord struct {
	Pattern   string    `json:"pattern"`
	Strategy  string    `json:"strategy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LearnedTable is the single-writer, atomically-persisted table mapping a
// URL pattern to the strategy that last succeeded for it. Lookups and
// writes share one mutex, so all access is serialized.
type LearnedTable struct {
	mu      sync.Mutex
	records []learnedRecord
	path    string // empty => in-memory only, no persistence
	maxAge  time.Duration
}

// NewLearnedTable creates a table. If path is non-empty, it is loaded
// best-effort at startup (a missing or corrupt file starts empty rather
// than failing construction) and every successful Record persists the
// whole table back via atomic write-then-rename. maxAge of zero disables
// staleness checking.
func NewLearnedTable(path string, maxAge time.Duration) *LearnedTable {
	t := &LearnedTable{path: path, maxAge: maxAge}
	if path != "" {
		t.load()
	}
	return t
}

func (t *LearnedTable) load() {
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return
	}
	var records []learnedRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return
	}
	t.records = records
}

// Lookup returns the strategy recorded for the longest (most specific)
// pattern matching normalizedURL, skipping entries older than maxAge.
func (t *LearnedTable) Lookup(normalizedURL string) (fetch.Tag, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var best *learnedRecord
	bestSpecificity := -1
	for i := range t.records {
		r := &t.records[i]
		if t.maxAge > 0 && time.Since(r.UpdatedAt) > t.maxAge {
			continue
		}
		if !matches(r.Pattern, normalizedURL) {
			continue
		}
		if s := specificity(r.Pattern); s > bestSpecificity {
			best = r
			bestSpecificity = s
		}
	}
	if best == nil {
		return "", false
	}
	return fetch.Tag(best.Strategy), true
}

// Record upserts the winning strategy for normalizedURL's pattern and
// persists the table if a path was configured.
func (t *LearnedTable) Record(normalizedURL string, tag fetch.Tag) error {
	pattern := PatternFor(normalizedURL)
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	replaced := false
	for i := range t.records {
		if t.records[i].Pattern == pattern {
			t.records[i].Strategy = string(tag)
			t.records[i].UpdatedAt = now
			replaced = true
			break
		}
	}
	if !replaced {
		t.records = append(t.records, learnedRecord{Pattern: pattern, Strategy: string(tag), UpdatedAt: now})
	}

	if t.path == "" {
		return nil
	}
	return writeAtomicJSON(t.path, t.records)
}

// writeAtomicJSON marshals v and installs it at path via a temp file in
// the same directory followed by os.Rename, matching the Resource
// Store's filesystem backend's atomic-swap discipline.
func writeAtomicJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
