package ranker

import (
	"fmt"
	"testing"
)

// BenchmarkRank measures filtering and stable sorting of raw scores.
func BenchmarkRank(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		scores := make([]float64, n)
		for i := range scores {
			scores[i] = float64((i*7919)%101) / 10
		}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				ranked := Rank(scores, 10)
				_ = ranked
			}
		})
	}
}
