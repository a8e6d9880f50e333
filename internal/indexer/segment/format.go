// Package segment persists a fitted index as a sidecar JSON file next to the
// collection it indexes. The file is plain UTF-8 JSON so it can be diffed
// and inspected by hand.
package segment

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/indexer/index"
)

// SchemaVersion tags the layout of a sidecar file.
type SchemaVersion int

const (
	// SchemaV1 is the original layout. It carries no version key.
	SchemaV1 SchemaVersion = 1
	// SchemaV2 is SchemaV1 plus the version key and the build timestamp.
	SchemaV2 SchemaVersion = 2

	CurrentSchema = SchemaV2
)

// DefaultName is the sidecar file name inside each collection directory.
const DefaultName = ".yunshu_memory.json"

// File is the on-disk envelope. Version is omitted from v1 files and decodes
// as zero.
type File struct {
	Version SchemaVersion `json:"version,omitempty"`
	BuiltAt *time.Time    `json:"built_at,omitempty"`
	index.Snapshot
}

// Header is what a sidecar records about itself besides the index state.
type Header struct {
	Version SchemaVersion
	BuiltAt time.Time
}
