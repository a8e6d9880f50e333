package executor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/ranker"
)

func TestPreview(t *testing.T) {
	assert.Equal(t, "短文...", Preview("短文", 200))
	long := strings.Repeat("云", 250)
	p := Preview(long, 200)
	assert.Equal(t, 203, len([]rune(p)))
	assert.True(t, strings.HasSuffix(p, "..."))
	assert.Equal(t, "...", Preview("", 200))
}

func TestExecute_MapsMatches(t *testing.T) {
	idx := index.Fit(ranker.DefaultParams(), []index.Document{
		{Content: "云舒是一个人工智能系统", Meta: index.Metadata{Path: "TestNovel/ch1.txt", Filename: "ch1.txt"}},
		{Content: "人工智能正在快速发展", Meta: index.Metadata{Path: "TestNovel/ch2.txt", Filename: "ch2.txt"}},
	})

	hits := New(0).Execute(idx, "TestNovel", "人工智能", 3)
	require.Len(t, hits, 2)
	assert.Equal(t, "TestNovel", hits[0].Collection)
	assert.Equal(t, "ch2.txt", hits[0].Filename)
	assert.Equal(t, "TestNovel/ch2.txt", hits[0].Path)
	assert.Equal(t, "人工智能正在快速发展...", hits[0].Preview)
	assert.Equal(t, 0, hits[0].Rank)
	assert.Equal(t, 1, hits[1].Rank)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	assert.Empty(t, New(10).Execute(idx, "TestNovel", "毫无", 3))
}
