// Package ranker implements Okapi BM25 term weighting and positive-score
// ranking of documents.
package ranker

import (
	"fmt"
	"math"
	"sort"
)

const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Params are the BM25 tuning parameters. K1 controls term-frequency
// saturation and B controls document-length normalisation.
type Params struct {
	K1 float64 `json:"k1" yaml:"k1"`
	B  float64 `json:"b" yaml:"b"`
}

// DefaultParams returns the standard Okapi defaults.
func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB}
}

// Validate checks that the parameters are in range.
func (p Params) Validate() error {
	if p.K1 < 0 || math.IsNaN(p.K1) || math.IsInf(p.K1, 0) {
		return fmt.Errorf("k1 must be a non-negative finite number, got %v", p.K1)
	}
	if p.B < 0 || p.B > 1 || math.IsNaN(p.B) {
		return fmt.Errorf("b must be within [0, 1], got %v", p.B)
	}
	return nil
}

// ScoredDoc is the position of a document in its index and its score.
type ScoredDoc struct {
	Doc   int     `json:"doc"`
	Score float64 `json:"score"`
}

// IDF computes ln((N - df + 0.5) / (df + 0.5) + 1). The result is
// non-negative whenever df <= N.
func IDF(totalDocs, docFreq int) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

// TFNorm computes the saturated, length-normalised term frequency
// tf * (k1 + 1) / (tf + k1 * (1 - b + b * dl / avgdl)).
func TFNorm(termFreq, docLength int, avgDocLength float64, p Params) float64 {
	if avgDocLength == 0 || termFreq == 0 {
		return 0
	}
	tf := float64(termFreq)
	lengthRatio := float64(docLength) / avgDocLength
	denominator := tf + p.K1*(1-p.B+p.B*lengthRatio)
	return (tf * (p.K1 + 1)) / denominator
}

// Rank keeps the strictly positive scores, orders them by descending score
// and returns at most limit entries. Equal scores keep document order.
// A limit of zero or less returns nothing.
func Rank(scores []float64, limit int) []ScoredDoc {
	if limit <= 0 {
		return []ScoredDoc{}
	}
	result := make([]ScoredDoc, 0)
	for i, s := range scores {
		if s > 0 {
			result = append(result, ScoredDoc{Doc: i, Score: s})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
