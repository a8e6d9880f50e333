package index

// Metadata identifies where a Document came from.
type Metadata struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// Document is one retrievable unit. Documents are identified only by their
// position in the index they were fitted into.
type Document struct {
	Content string   `json:"content"`
	Meta    Metadata `json:"meta"`
}

// ScoredDocument pairs a search score with the matched document.
type ScoredDocument struct {
	Score    float64
	Position int
	Document Document
}

// Snapshot is the complete state of a fitted index. Every value needed to
// score is stored rather than derived, so restoring a snapshot reproduces
// scores exactly.
type Snapshot struct {
	K1            float64            `json:"k1"`
	B             float64            `json:"b"`
	AvgDL         float64            `json:"avgdl"`
	DocCount      int                `json:"doc_count"`
	IDF           map[string]float64 `json:"idf"`
	DocLengths    []int              `json:"doc_lengths"`
	Documents     []Document         `json:"documents"`
	DocTermCounts []map[string]int   `json:"doc_term_counts"`
}
