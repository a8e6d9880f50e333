package segment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/indexer/index"
)

// Save writes idx to path atomically. The data goes to a .tmp file first and
// is renamed over path once synced, under an exclusive lock on path.lock so
// concurrent processes never observe a partial file.
func Save(path string, idx *index.BM25Index) error {
	return save(path, idx, time.Now().UTC())
}

func save(path string, idx *index.BM25Index, builtAt time.Time) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating sidecar directory: %w", err)
	}
	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking sidecar: %w", err)
	}
	defer lock.Unlock()

	data, err := json.Marshal(File{
		Version:  CurrentSchema,
		BuiltAt:  &builtAt,
		Snapshot: idx.Snapshot(),
	})
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp sidecar file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing sidecar: %w", err)
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("syncing sidecar file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming sidecar file: %w", err)
	}
	return nil
}

func lockPath(path string) string {
	return path + ".lock"
}
