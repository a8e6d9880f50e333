package merger

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/executor"
)

// BenchmarkMerge measures the global top-k merge across many collections.
func BenchmarkMerge(b *testing.B) {
	for _, collections := range []int{2, 16, 128} {
		lists := make([][]executor.Hit, collections)
		for c := range lists {
			hits := make([]executor.Hit, 10)
			for r := range hits {
				hits[r] = executor.Hit{
					Score:      float64(100-r) / float64(c+1),
					Collection: fmt.Sprintf("novel-%03d", c),
					Rank:       r,
				}
			}
			lists[c] = hits
		}
		b.Run(fmt.Sprintf("collections_%d", collections), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				merged := Merge(lists, 10)
				_ = merged
			}
		})
	}
}
