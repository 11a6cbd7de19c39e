package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	journalPrefix = "journal-"
	journalSuffix = ".json"
	tempSuffix    = ".tmp"
)

// journal is the commit record of a multi-collection write. It is renamed
// into place before any collection file changes, so its presence means the
// commit happened and must be (re)applied.
type journal struct {
	ID        string                     `json:"id"`
	CreatedAt time.Time                  `json:"createdAt"`
	Writes    map[string]json.RawMessage `json:"writes"`
}

// ErrNeedsRecovery is returned by every Read and Commit after a journaled
// commit could not be completed. The data directory may hold a partial
// commit until Recover replays the journal.
var ErrNeedsRecovery = errors.New("store: interrupted commit, recovery required")

// Recovery describes what Recover found in the data directory
type Recovery struct {
	Replayed  []string
	Discarded []string
	TempFiles int
}

// FileBackend keeps every collection in <dir>/<name>.json
type FileBackend struct {
	dir string

	mu     sync.RWMutex
	failed error

	// afterJournal runs between the journal write and the collection writes
	afterJournal func() error
}

// OpenFileBackend prepares dir for use. Call Recover before serving traffic.
func OpenFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Dir() string { return b.dir }

func (b *FileBackend) path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

func (b *FileBackend) healthy() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.failed
}

func (b *FileBackend) fail(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failed == nil {
		b.failed = fmt.Errorf("%w: %w", ErrNeedsRecovery, err)
	}
	return b.failed
}

func (b *FileBackend) Read(_ context.Context, name string) ([]byte, error) {
	if err := b.healthy(); err != nil {
		return nil, err
	}
	if !validName(name) {
		return nil, fmt.Errorf("store: invalid collection name %q", name)
	}
	data, err := os.ReadFile(b.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMissing
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *FileBackend) Commit(_ context.Context, writes map[string][]byte) error {
	if err := b.healthy(); err != nil {
		return err
	}
	names := sortedNames(writes)
	for _, name := range names {
		if !validName(name) {
			return fmt.Errorf("store: invalid collection name %q", name)
		}
	}

	switch len(names) {
	case 0:
		return nil
	case 1:
		return writeFileAtomic(b.path(names[0]), writes[names[0]])
	}

	j := journal{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Writes:    make(map[string]json.RawMessage, len(writes)),
	}
	for name, data := range writes {
		j.Writes[name] = json.RawMessage(data)
	}
	body, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}

	journalPath := filepath.Join(b.dir, journalPrefix+j.ID+journalSuffix)
	if err := writeFileAtomic(journalPath, body); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	// The commit is durable from here on. Anything short of applying it and
	// removing the journal leaves the backend failed until Recover.
	if err := b.finish(j, journalPath); err != nil {
		return b.fail(err)
	}
	return nil
}

func (b *FileBackend) finish(j journal, journalPath string) error {
	if b.afterJournal != nil {
		if err := b.afterJournal(); err != nil {
			return err
		}
	}
	if err := b.apply(j); err != nil {
		// roll forward once more before giving up
		if err := b.apply(j); err != nil {
			return err
		}
	}
	if err := os.Remove(journalPath); err != nil {
		return fmt.Errorf("remove journal %s: %w", j.ID, err)
	}
	return syncDir(b.dir)
}

func (b *FileBackend) apply(j journal) error {
	names := make([]string, 0, len(j.Writes))
	for name := range j.Writes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !validName(name) {
			return fmt.Errorf("journal %s: invalid collection name %q", j.ID, name)
		}
		if err := writeFileAtomic(b.path(name), j.Writes[name]); err != nil {
			return fmt.Errorf("apply journal %s to %s: %w", j.ID, name, err)
		}
	}
	return nil
}

// Recover replays complete journals left behind by an interrupted commit and
// removes temporary files from interrupted writes. A successful Recover
// clears ErrNeedsRecovery.
func (b *FileBackend) Recover() (Recovery, error) {
	var report Recovery

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return report, fmt.Errorf("read data dir: %w", err)
	}

	var journals []journal
	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(b.dir, name)
		switch {
		case strings.HasSuffix(name, tempSuffix):
			if err := os.Remove(full); err != nil {
				return report, fmt.Errorf("remove temp file %s: %w", name, err)
			}
			report.TempFiles++
		case strings.HasPrefix(name, journalPrefix) && strings.HasSuffix(name, journalSuffix):
			body, err := os.ReadFile(full)
			if err != nil {
				return report, fmt.Errorf("read journal %s: %w", name, err)
			}
			var j journal
			if err := json.Unmarshal(body, &j); err != nil || j.ID == "" {
				if err := os.Remove(full); err != nil {
					return report, fmt.Errorf("discard journal %s: %w", name, err)
				}
				report.Discarded = append(report.Discarded, name)
				continue
			}
			journals = append(journals, j)
		}
	}

	sort.Slice(journals, func(i, k int) bool {
		return journals[i].CreatedAt.Before(journals[k].CreatedAt)
	})
	for _, j := range journals {
		if err := b.apply(j); err != nil {
			return report, err
		}
		if err := os.Remove(filepath.Join(b.dir, journalPrefix+j.ID+journalSuffix)); err != nil {
			return report, fmt.Errorf("remove journal %s: %w", j.ID, err)
		}
		report.Replayed = append(report.Replayed, j.ID)
	}

	if len(journals) > 0 || report.TempFiles > 0 || len(report.Discarded) > 0 {
		if err := syncDir(b.dir); err != nil {
			return report, err
		}
	}

	b.mu.Lock()
	b.failed = nil
	b.mu.Unlock()
	return report, nil
}

func (b *FileBackend) Close() error { return nil }

// writeFileAtomic writes data next to path, fsyncs it and renames it over
// path, so readers see either the old or the new contents.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*"+tempSuffix)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
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
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
