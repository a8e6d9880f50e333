// Package merger combines per-collection hit lists into one globally ranked
// list.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/executor"
)

// Merge returns the limit best hits across all lists ordered by descending
// score. Equal scores are ordered by collection name, then by rank within
// the collection. A limit of zero or less returns nothing.
func Merge(lists [][]executor.Hit, limit int) []executor.Hit {
	if limit <= 0 {
		return []executor.Hit{}
	}
	h := &hitHeap{}
	heap.Init(h)
	for _, hits := range lists {
		for _, hit := range hits {
			heap.Push(h, hit)
			if h.Len() > limit {
				heap.Pop(h)
			}
		}
	}
	result := make([]executor.Hit, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(executor.Hit)
	}
	return result
}

// better reports whether a ranks ahead of b.
func better(a, b executor.Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Collection != b.Collection {
		return a.Collection < b.Collection
	}
	return a.Rank < b.Rank
}

// hitHeap is a min-heap on rank order so the worst kept hit is on top.
type hitHeap []executor.Hit

func (h hitHeap) Len() int { return len(h) }

func (h hitHeap) Less(i, j int) bool { return better(h[j], h[i]) }

func (h hitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x interface{}) {
	*h = append(*h, x.(executor.Hit))
}

func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
