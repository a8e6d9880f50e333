package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gofrs/flock"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/indexer/index"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/errors"
)

// Load reads the sidecar at path and restores the index it holds.
func Load(path string) (*index.BM25Index, Header, error) {
	data, err := readLocked(path)
	if err != nil {
		return nil, Header{}, err
	}
	return Decode(data)
}

// Decode parses sidecar bytes of any supported schema version.
func Decode(data []byte) (*index.BM25Index, Header, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, Header{}, fmt.Errorf("%w: parsing sidecar: %v", pkgerrors.ErrCorruptIndex, err)
	}
	header := Header{Version: f.Version}
	switch f.Version {
	case 0:
		header.Version = SchemaV1
	case SchemaV2:
		if f.BuiltAt != nil {
			header.BuiltAt = *f.BuiltAt
		}
	default:
		return nil, Header{}, fmt.Errorf("%w: version %d", pkgerrors.ErrUnsupportedSchema, f.Version)
	}
	idx, err := index.Restore(f.Snapshot)
	if err != nil {
		return nil, Header{}, fmt.Errorf("restoring index: %w", err)
	}
	return idx, header, nil
}

// Exists reports whether a sidecar file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readLocked(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading sidecar: %w", err)
	}
	// A read-only collection cannot hold a lock file; read it unguarded.
	lock := flock.New(lockPath(path))
	locked, err := lock.TryRLock()
	if err != nil && !errors.Is(err, fs.ErrPermission) {
		return nil, fmt.Errorf("locking sidecar: %w", err)
	}
	if locked {
		defer lock.Unlock()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sidecar: %w", err)
	}
	return data, nil
}
