// Package index holds the BM25 document index. An index is fitted once from
// a fixed document set and is read-only afterwards; any change to the set
// requires fitting a new index.
package index

import (
	"fmt"
	"maps"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/ranker"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/errors"
)

type BM25Index struct {
	params     ranker.Params
	avgdl      float64
	idf        map[string]float64
	docLengths []int
	documents  []Document
	termCounts []map[string]int
}

// New returns an empty index using the given parameters. Searching an empty
// index returns no results.
func New(params ranker.Params) *BM25Index {
	return &BM25Index{
		params: params,
		idf:    make(map[string]float64),
	}
}

// Fit builds an index over documents. The slice is copied; document order
// fixes each document's position for the life of the index.
func Fit(params ranker.Params, documents []Document) *BM25Index {
	idx := New(params)
	idx.documents = append([]Document(nil), documents...)
	idx.docLengths = make([]int, len(documents))
	idx.termCounts = make([]map[string]int, len(documents))

	totalLength := 0
	docFreq := make(map[string]int)
	for i, doc := range idx.documents {
		counts, length := tokenizer.Frequencies(doc.Content)
		idx.docLengths[i] = length
		idx.termCounts[i] = counts
		totalLength += length
		for term := range counts {
			docFreq[term]++
		}
	}
	if n := len(documents); n > 0 {
		idx.avgdl = float64(totalLength) / float64(n)
	}
	for term, df := range docFreq {
		idx.idf[term] = ranker.IDF(len(documents), df)
	}
	return idx
}

// Search scores every document against query and returns at most topK
// documents with a strictly positive score, best first.
func (idx *BM25Index) Search(query string, topK int) []ScoredDocument {
	if topK <= 0 || len(idx.documents) == 0 {
		return []ScoredDocument{}
	}
	terms := tokenizer.Tokenize(query)
	scores := make([]float64, len(idx.documents))
	for _, term := range terms {
		idf, ok := idx.idf[term]
		if !ok {
			continue
		}
		for i, counts := range idx.termCounts {
			freq := counts[term]
			if freq == 0 {
				continue
			}
			scores[i] += idf * ranker.TFNorm(freq, idx.docLengths[i], idx.avgdl, idx.params)
		}
	}
	ranked := ranker.Rank(scores, topK)
	result := make([]ScoredDocument, 0, len(ranked))
	for _, r := range ranked {
		result = append(result, ScoredDocument{
			Score:    r.Score,
			Position: r.Doc,
			Document: idx.documents[r.Doc],
		})
	}
	return result
}

func (idx *BM25Index) Params() ranker.Params { return idx.params }

func (idx *BM25Index) DocCount() int { return len(idx.documents) }

func (idx *BM25Index) AvgDocLength() float64 { return idx.avgdl }

// Terms returns the number of distinct terms in the corpus.
func (idx *BM25Index) Terms() int { return len(idx.idf) }

// IDF returns the inverse document frequency of term and whether the term
// occurs in the corpus.
func (idx *BM25Index) IDF(term string) (float64, bool) {
	v, ok := idx.idf[term]
	return v, ok
}

// Snapshot returns a copy of the full index state for persistence.
func (idx *BM25Index) Snapshot() Snapshot {
	counts := make([]map[string]int, len(idx.termCounts))
	for i, c := range idx.termCounts {
		counts[i] = maps.Clone(c)
	}
	return Snapshot{
		K1:            idx.params.K1,
		B:             idx.params.B,
		AvgDL:         idx.avgdl,
		DocCount:      len(idx.documents),
		IDF:           maps.Clone(idx.idf),
		DocLengths:    append([]int(nil), idx.docLengths...),
		Documents:     append([]Document(nil), idx.documents...),
		DocTermCounts: counts,
	}
}

// Restore rebuilds an index from a snapshot without re-tokenising. The
// snapshot's per-document slices must agree with its document count.
func Restore(s Snapshot) (*BM25Index, error) {
	n := s.DocCount
	if n < 0 || len(s.DocLengths) != n || len(s.Documents) != n || len(s.DocTermCounts) != n {
		return nil, fmt.Errorf("%w: doc_count=%d doc_lengths=%d documents=%d doc_term_counts=%d",
			pkgerrors.ErrCorruptIndex, n, len(s.DocLengths), len(s.Documents), len(s.DocTermCounts))
	}
	params := ranker.Params{K1: s.K1, B: s.B}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrCorruptIndex, err)
	}
	idx := New(params)
	idx.avgdl = s.AvgDL
	if s.IDF != nil {
		idx.idf = maps.Clone(s.IDF)
	}
	idx.docLengths = append([]int(nil), s.DocLengths...)
	idx.documents = append([]Document(nil), s.Documents...)
	idx.termCounts = make([]map[string]int, n)
	for i, c := range s.DocTermCounts {
		if c == nil {
			c = map[string]int{}
		}
		idx.termCounts[i] = maps.Clone(c)
	}
	return idx, nil
}
