// Package loader reads the chapter files of one collection into documents.
package loader

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/indexer/index"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/errors"
)

// DefaultExtensions are the file extensions treated as plain text.
var DefaultExtensions = []string{".txt"}

// Result is the outcome of loading one collection.
type Result struct {
	Documents []index.Document
	// Skipped counts eligible files that could not be read or are not UTF-8.
	Skipped int
}

type Loader struct {
	root       string
	extensions map[string]struct{}
	logger     *slog.Logger
}

// New creates a Loader for collections under root. Extensions are matched
// exactly, so ".txt" does not admit "CH1.TXT"; an empty list means
// DefaultExtensions.
func New(root string, extensions []string) *Loader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	return &Loader{
		root:       root,
		extensions: exts,
		logger:     slog.Default().With("component", "loader"),
	}
}

// Load walks the collection directory recursively and turns every text file
// into one document. Paths are recorded relative to the root and files are
// visited in lexical order, so repeated loads yield the same document order.
// Unreadable and non-UTF-8 files are logged and skipped. A symlinked
// collection directory is followed.
func (l *Loader) Load(collection string) (*Result, error) {
	dir := filepath.Join(l.root, collection)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrCollectionNotFound, collection)
	}
	walkRoot, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving collection %s: %w", collection, err)
	}
	res := &Result{Documents: make([]index.Document, 0)}
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			l.logger.Warn("skipping unreadable path", "collection", collection, "path", path, "error", walkErr)
			if d != nil && d.IsDir() && path != walkRoot {
				return fs.SkipDir
			}
			if path == walkRoot {
				return walkErr
			}
			return nil
		}
		if d.IsDir() || !l.eligible(d.Name()) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("error reading file", "collection", collection, "file", d.Name(), "error", err)
			res.Skipped++
			return nil
		}
		if !utf8.Valid(content) {
			l.logger.Warn("skipping non-UTF-8 file", "collection", collection, "file", d.Name())
			res.Skipped++
			return nil
		}
		rel, err := filepath.Rel(walkRoot, path)
		if err != nil {
			rel = path
		}
		rel = filepath.Join(collection, rel)
		res.Documents = append(res.Documents, index.Document{
			Content: string(content),
			Meta: index.Metadata{
				Path:     filepath.ToSlash(rel),
				Filename: d.Name(),
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking collection %s: %w", collection, err)
	}
	if len(res.Documents) == 0 {
		return res, fmt.Errorf("%w in %s", pkgerrors.ErrNoDocuments, collection)
	}
	return res, nil
}

// Collections lists the immediate subdirectories of the root in sorted
// order, including symlinks that resolve to directories. A missing root
// yields no collections.
func (l *Loader) Collections() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading collection root: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		switch {
		case entry.IsDir():
			names = append(names, entry.Name())
		case entry.Type()&fs.ModeSymlink != 0:
			if info, err := os.Stat(filepath.Join(l.root, entry.Name())); err == nil && info.IsDir() {
				names = append(names, entry.Name())
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// Dir returns the directory of a collection.
func (l *Loader) Dir(collection string) string {
	return filepath.Join(l.root, collection)
}

// Exists reports whether the collection directory exists.
func (l *Loader) Exists(collection string) bool {
	info, err := os.Stat(l.Dir(collection))
	return err == nil && info.IsDir()
}

func (l *Loader) eligible(name string) bool {
	_, ok := l.extensions[filepath.Ext(name)]
	return ok
}
