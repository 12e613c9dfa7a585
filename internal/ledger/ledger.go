package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"clipshift/internal/fileutil"
	"clipshift/internal/logging"
)

// Entry records one published video keyed by its content hash.
type Entry struct {
	ContentHash string    `json:"content_hash"`
	Destination string    `json:"destination"`
	VideoID     string    `json:"video_id"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
}

// Ledger provides thread-safe access to the published-content ledger.
type Ledger struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]Entry // keyed by content hash
}

// New creates a ledger instance. If path is empty, the ledger is
// non-functional (all operations become no-ops). The ledger file is created
// lazily on first Record call.
func New(path string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ledger")

	l := &Ledger{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}

	if path == "" {
		return l
	}

	if err := l.load(); err != nil {
		logger.Warn("failed to load published ledger",
			logging.String(logging.FieldEventType, "ledger_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ledger will start empty; previously published videos may be uploaded again"))
	}

	return l
}

// Lookup returns the ledger entry for the given content hash if found.
func (l *Ledger) Lookup(contentHash string) (Entry, bool) {
	contentHash = strings.TrimSpace(contentHash)
	if contentHash == "" || l.path == "" {
		return Entry{}, false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, found := l.entries[contentHash]
	return entry, found
}

// Record adds or updates an entry and persists to disk.
func (l *Ledger) Record(entry Entry) error {
	entry.ContentHash = strings.TrimSpace(entry.ContentHash)
	if entry.ContentHash == "" {
		return errors.New("content hash cannot be empty")
	}
	if entry.PublishedAt.IsZero() {
		entry.PublishedAt = time.Now().UTC()
	}
	if l.path == "" {
		return nil // no-op when path not configured
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[entry.ContentHash] = entry

	if err := l.save(); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}

	l.logger.Debug("recorded published video",
		logging.String("content_hash", entry.ContentHash),
		logging.String(logging.FieldDestination, entry.Destination),
		logging.String("video_id", entry.VideoID),
		logging.String("title", entry.Title))

	return nil
}

// Remove deletes an entry by content hash and persists the change.
func (l *Ledger) Remove(contentHash string) error {
	contentHash = strings.TrimSpace(contentHash)
	if contentHash == "" {
		return errors.New("content hash cannot be empty")
	}
	if l.path == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.entries[contentHash]; !exists {
		return fmt.Errorf("content hash %q not found in ledger", contentHash)
	}

	delete(l.entries, contentHash)

	if err := l.save(); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}

	l.logger.Debug("removed ledger entry", logging.String("content_hash", contentHash))
	return nil
}

// List returns all entries sorted by PublishedAt descending (newest first).
func (l *Ledger) List() []Entry {
	if l.path == "" {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]Entry, 0, len(l.entries))
	for _, entry := range l.entries {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PublishedAt.After(entries[j].PublishedAt)
	})

	return entries
}

// Count returns the number of ledger entries.
func (l *Ledger) Count() int {
	if l.path == "" {
		return 0
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

func (l *Ledger) load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read ledger file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse ledger file: %w", err)
	}

	l.entries = make(map[string]Entry, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry.ContentHash) != "" {
			l.entries[entry.ContentHash] = entry
		}
	}

	l.logger.Debug("loaded published ledger",
		logging.Int("entry_count", len(l.entries)),
		logging.String("path", l.path))

	return nil
}

func (l *Ledger) save() error {
	entries := make([]Entry, 0, len(l.entries))
	for _, entry := range l.entries {
		entries = append(entries, entry)
	}

	// Sort for deterministic output
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PublishedAt.After(entries[j].PublishedAt)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	if err := fileutil.AtomicWriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}
	return nil
}
