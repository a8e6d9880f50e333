package index

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/ranker"
)

var chapterPhrases = []string{
	"云舒是一个人工智能系统",
	"人工智能正在快速发展",
	"夜色渐深，长街上的灯火一盏盏熄灭",
	"她在旧书店里找到了那本没有署名的日记",
	"雨停之后，城市的喧嚣重新涌了上来",
}

func syntheticChapters(n int) []Document {
	docs := make([]Document, n)
	for i := range docs {
		var sb strings.Builder
		for j := 0; j < 40; j++ {
			sb.WriteString(chapterPhrases[(i+j)%len(chapterPhrases)])
		}
		name := fmt.Sprintf("ch%04d.txt", i)
		docs[i] = Document{
			Content: sb.String(),
			Meta:    Metadata{Path: "Bench/" + name, Filename: name},
		}
	}
	return docs
}

// BenchmarkFit measures full index construction per corpus size.
func BenchmarkFit(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		docs := syntheticChapters(n)
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				idx := Fit(ranker.DefaultParams(), docs)
				_ = idx
			}
		})
	}
}

// BenchmarkSearch measures query latency over 1 000 chapters.
func BenchmarkSearch(b *testing.B) {
	idx := Fit(ranker.DefaultParams(), syntheticChapters(1000))
	queries := []string{"云舒", "人工智能", "没有署名的日记", "不存在的词语"}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		results := idx.Search(queries[i%len(queries)], 10)
		_ = results
	}
}

// BenchmarkSearchParallel measures concurrent read throughput on one index.
func BenchmarkSearchParallel(b *testing.B) {
	idx := Fit(ranker.DefaultParams(), syntheticChapters(1000))

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			results := idx.Search("人工智能", 10)
			_ = results
		}
	})
}

func BenchmarkSnapshotRestore(b *testing.B) {
	idx := Fit(ranker.DefaultParams(), syntheticChapters(200))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		restored, err := Restore(idx.Snapshot())
		if err != nil {
			b.Fatal(err)
		}
		_ = restored
	}
}
