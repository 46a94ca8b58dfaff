package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Filesystem is the durable Resource Store backend. Each entry is one JSON
// file at <root>/<tier>/<fingerprint>.json. Writes go through a temp file in
// the same directory followed by os.Rename, the same create-then-rename
// idiom used by the pack's layer-cache fetchers, so a reader never observes
// a half-written file.
type Filesystem struct {
	root string

	mu       sync.RWMutex
	index    map[string]ResourceEntry   // URI -> entry, rebuilt from disk at Open
	byFP     map[string]map[Tier]string // fingerprint -> tier -> URI
	byURLExt map[string][]string        // (url, extractQuery) -> fingerprints, oldest first

	keyLocks map[string]*sync.Mutex
	keyLockL sync.Mutex
}

// OpenFilesystem creates the tier directories under root (if absent) and
// rebuilds the in-memory index by walking the existing entries.
func OpenFilesystem(root string) (*Filesystem, error) {
	fs := &Filesystem{
		root:     root,
		index:    make(map[string]ResourceEntry),
		byFP:     make(map[string]map[Tier]string),
		byURLExt: make(map[string][]string),
		keyLocks: make(map[string]*sync.Mutex),
	}
	for _, tier := range []Tier{TierRaw, TierCleaned, TierExtracted} {
		if err := os.MkdirAll(filepath.Join(root, string(tier)), 0o755); err != nil {
			return nil, fmt.Errorf("store: create tier dir: %w", err)
		}
	}
	if err := fs.reindex(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *Filesystem) reindex() error {
	var entries []ResourceEntry
	for _, tier := range []Tier{TierRaw, TierCleaned, TierExtracted} {
		dir := filepath.Join(fs.root, string(tier))
		files, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("store: read tier dir %s: %w", dir, err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(dir, f.Name()))
			if err != nil {
				continue
			}
			var e ResourceEntry
			if err := json.Unmarshal(raw, &e); err != nil {
				continue
			}
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })

	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, e := range entries {
		fs.index[e.URI] = e
		tiers, ok := fs.byFP[e.Fingerprint]
		if !ok {
			tiers = map[Tier]string{}
			fs.byFP[e.Fingerprint] = tiers
		}
		tiers[e.Tier] = e.URI

		key := urlExtractKey(e.SourceURL, extractQueryFromMetadata(e))
		fps := fs.byURLExt[key]
		if len(fps) == 0 || fps[len(fps)-1] != e.Fingerprint {
			fs.byURLExt[key] = append(fps, e.Fingerprint)
		}
	}
	return nil
}

// extractQueryFromMetadata recovers the extract query an entry was written
// under, so a filesystem reload can rebuild byURLExt without a separate
// sidecar index. WriteMulti always stashes it under this key.
func extractQueryFromMetadata(e ResourceEntry) string {
	if e.Metadata == nil {
		return ""
	}
	if q, ok := e.Metadata[metadataExtractQueryKey].(string); ok {
		return q
	}
	return ""
}

const metadataExtractQueryKey = "_extractQuery"

func (fs *Filesystem) lockFor(fingerprint string) *sync.Mutex {
	fs.keyLockL.Lock()
	defer fs.keyLockL.Unlock()
	l, ok := fs.keyLocks[fingerprint]
	if !ok {
		l = &sync.Mutex{}
		fs.keyLocks[fingerprint] = l
	}
	return l
}

func (fs *Filesystem) pathFor(tier Tier, fingerprint string) string {
	return filepath.Join(fs.root, string(tier), fingerprint+".json")
}

// writeAtomic marshals entry to JSON and installs it at path via a temp
// file plus rename so concurrent readers never see a partial write.
func writeAtomic(path string, entry ResourceEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
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

// WriteMulti implements Store.
func (fs *Filesystem) WriteMulti(ctx context.Context, in WriteMultiInput) (WriteMultiResult, error) {
	normalized, err := NormalizeURL(in.URL, false)
	if err != nil {
		return WriteMultiResult{}, err
	}
	fp := Fingerprint(normalized, in.ExtractQuery, in.Actions)

	lock := fs.lockFor(fp)
	lock.Lock()
	defer lock.Unlock()

	result := WriteMultiResult{Errors: map[Tier]error{}}

	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	} else {
		cp := make(map[string]any, len(metadata)+1)
		for k, v := range metadata {
			cp[k] = v
		}
		metadata = cp
	}
	metadata[metadataExtractQueryKey] = in.ExtractQuery

	tierPayloads := map[Tier][]byte{
		TierRaw:       in.Raw,
		TierCleaned:   in.Cleaned,
		TierExtracted: in.Extracted,
	}

	writtenURIs := map[Tier]string{}
	anySucceeded := false
	now := time.Now().UTC()
	for tier, payload := range tierPayloads {
		if payload == nil {
			continue
		}
		entry := ResourceEntry{
			URI:         ScrapedURI(tier, fp),
			Tier:        tier,
			Fingerprint: fp,
			CreatedAt:   now,
			SourceURL:   normalized,
			MimeType:    in.MimeType,
			Payload:     payload,
			Metadata:    metadata,
		}

		if err := writeAtomic(fs.pathFor(tier, fp), entry); err != nil {
			result.Errors[tier] = err
			continue
		}
		writtenURIs[tier] = entry.URI
		anySucceeded = true

		switch tier {
		case TierRaw:
			result.RawURI = entry.URI
		case TierCleaned:
			result.CleanedURI = entry.URI
		case TierExtracted:
			result.ExtractedURI = entry.URI
		}
	}

	if !anySucceeded {
		return result, &StorageError{TierErrors: result.Errors}
	}

	fs.mu.Lock()
	tiers, ok := fs.byFP[fp]
	if !ok {
		tiers = map[Tier]string{}
		fs.byFP[fp] = tiers
	}
	for tier, uri := range writtenURIs {
		tiers[tier] = uri
	}
	links := ResourceLinks{
		RawURI:       tiers[TierRaw],
		CleanedURI:   tiers[TierCleaned],
		ExtractedURI: tiers[TierExtracted],
	}
	// Refresh links on every sibling tier that currently exists for this
	// fingerprint, not just the ones written this call, so the adjacency
	// record stays consistent across writes that touch different tiers.
	toRewrite := map[Tier]ResourceEntry{}
	for tier, uri := range tiers {
		var e ResourceEntry
		var err error
		if wroteURI, justWritten := writtenURIs[tier]; justWritten && wroteURI == uri {
			e, err = readEntryFile(fs.pathFor(tier, fp))
		} else if cached, ok := fs.index[uri]; ok {
			e = cached
		} else {
			e, err = readEntryFile(fs.pathFor(tier, fp))
		}
		if err != nil {
			continue
		}
		e.Links = links
		fs.index[uri] = e
		toRewrite[tier] = e
	}
	key := urlExtractKey(normalized, in.ExtractQuery)
	fps := fs.byURLExt[key]
	if len(fps) == 0 || fps[len(fps)-1] != fp {
		fs.byURLExt[key] = append(fps, fp)
	}
	fs.mu.Unlock()

	// Re-persist every sibling tier with the updated links so a future
	// reindex sees the same cross-links this process already observed.
	for tier, e := range toRewrite {
		_ = writeAtomic(fs.pathFor(tier, fp), e)
	}

	return result, nil
}

func readEntryFile(path string) (ResourceEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ResourceEntry{}, err
	}
	var e ResourceEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return ResourceEntry{}, err
	}
	return e, nil
}

// FindByURLAndExtract implements Store.
func (fs *Filesystem) FindByURLAndExtract(ctx context.Context, url, extractQuery string) ([]ResourceEntry, error) {
	normalized, err := NormalizeURL(url, false)
	if err != nil {
		return nil, err
	}
	key := urlExtractKey(normalized, extractQuery)

	fs.mu.RLock()
	fps := append([]string(nil), fs.byURLExt[key]...)
	var entries []ResourceEntry
	for _, fp := range fps {
		for _, uri := range fs.byFP[fp] {
			if e, ok := fs.index[uri]; ok {
				entries = append(entries, e)
			}
		}
	}
	fs.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

// Read implements Store.
func (fs *Filesystem) Read(ctx context.Context, uri string) (ResourceEntry, error) {
	fs.mu.RLock()
	e, ok := fs.index[uri]
	fs.mu.RUnlock()
	if !ok {
		return ResourceEntry{}, ErrNotFound
	}
	return e, nil
}

// List implements Store.
func (fs *Filesystem) List(ctx context.Context, prefix string, cursor string, limit int) ([]ResourceEntry, string, error) {
	fs.mu.RLock()
	var matches []ResourceEntry
	for uri, e := range fs.index {
		if prefix == "" || strings.HasPrefix(uri, prefix) {
			matches = append(matches, e)
		}
	}
	fs.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].URI < matches[j].URI })

	start := 0
	if cursor != "" {
		for i, e := range matches {
			if e.URI == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = len(matches)
	}
	end := start + limit
	if end > len(matches) {
		end = len(matches)
	}
	if start > len(matches) {
		start = len(matches)
	}

	page := matches[start:end]
	next := ""
	if end < len(matches) {
		next = page[len(page)-1].URI
	}
	return page, next, nil
}
