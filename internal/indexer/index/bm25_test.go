package index

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/ranker"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/errors"
)

func novelDocs() []Document {
	return []Document{
		{Content: "云舒是一个人工智能系统", Meta: Metadata{Path: "TestNovel/ch1.txt", Filename: "ch1.txt"}},
		{Content: "人工智能正在快速发展", Meta: Metadata{Path: "TestNovel/ch2.txt", Filename: "ch2.txt"}},
	}
}

func TestFit_Statistics(t *testing.T) {
	idx := Fit(ranker.DefaultParams(), novelDocs())

	assert.Equal(t, 2, idx.DocCount())
	assert.InDelta(t, 9.5, idx.AvgDocLength(), 1e-12)

	idf, ok := idx.IDF("云舒")
	require.True(t, ok)
	assert.InDelta(t, math.Log(2), idf, 1e-12)

	idf, ok = idx.IDF("人工")
	require.True(t, ok)
	assert.InDelta(t, math.Log(1.2), idf, 1e-12)

	_, ok = idx.IDF("不在")
	assert.False(t, ok)
}

func TestFit_Empty(t *testing.T) {
	idx := Fit(ranker.DefaultParams(), nil)
	assert.Zero(t, idx.DocCount())
	assert.Zero(t, idx.AvgDocLength())
	assert.Empty(t, idx.Search("云舒", 3))
}

func TestFit_PunctuationOnlyChapter(t *testing.T) {
	docs := append(novelDocs(), Document{
		Content: "……",
		Meta:    Metadata{Path: "TestNovel/ch3.txt", Filename: "ch3.txt"},
	})
	idx := Fit(ranker.DefaultParams(), docs)

	assert.InDelta(t, 20.0/3, idx.AvgDocLength(), 1e-12)
	assert.Equal(t, []int{10, 9, 1}, idx.Snapshot().DocLengths)
	_, ok := idx.IDF("")
	assert.True(t, ok, "an empty chapter contributes the empty term")
}

func TestSearch_SingleMatch(t *testing.T) {
	idx := Fit(ranker.DefaultParams(), novelDocs())

	results := idx.Search("云舒", 3)
	require.Len(t, results, 1)
	assert.Equal(t, "ch1.txt", results[0].Document.Meta.Filename)
	assert.Equal(t, 0, results[0].Position)

	p := ranker.DefaultParams()
	want := math.Log(2) * (p.K1 + 1) / (1 + p.K1*(1-p.B+p.B*10/9.5))
	assert.InDelta(t, want, results[0].Score, 1e-12)
}

func TestSearch_LengthNormalisation(t *testing.T) {
	idx := Fit(ranker.DefaultParams(), novelDocs())

	results := idx.Search("人工智能", 3)
	require.Len(t, results, 2)
	// Both chapters hold each query bigram once; ch2 is shorter.
	assert.Equal(t, "ch2.txt", results[0].Document.Meta.Filename)
	assert.Equal(t, "ch1.txt", results[1].Document.Meta.Filename)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, 0.0)
}

func TestSearch_TermFrequencyMonotonic(t *testing.T) {
	docs := []Document{
		{Content: "猫猫猫狗狗鱼"},
		{Content: "猫猫狗狗狗鱼"},
		{Content: "完全无关内容"},
	}
	idx := Fit(ranker.DefaultParams(), docs)

	results := idx.Search("猫猫", 3)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Position)
	assert.Equal(t, 1, results[1].Position)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearch_TopK(t *testing.T) {
	docs := make([]Document, 0, 10)
	for i := 0; i < 10; i++ {
		docs = append(docs, Document{Content: "云舒第章节"})
	}
	docs = append(docs, Document{Content: "毫无关系"})
	idx := Fit(ranker.DefaultParams(), docs)

	assert.Len(t, idx.Search("云舒", 3), 3)
	assert.Len(t, idx.Search("云舒", 100), 10)
	assert.Empty(t, idx.Search("云舒", 0))
	assert.Empty(t, idx.Search("云舒", -1))
}

func TestSearch_TiesKeepDocumentOrder(t *testing.T) {
	docs := []Document{
		{Content: "甲乙丙", Meta: Metadata{Filename: "a"}},
		{Content: "丁戊己", Meta: Metadata{Filename: "b"}},
		{Content: "甲乙丙", Meta: Metadata{Filename: "c"}},
	}
	idx := Fit(ranker.DefaultParams(), docs)

	results := idx.Search("甲乙", 3)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Document.Meta.Filename)
	assert.Equal(t, "c", results[1].Document.Meta.Filename)
	assert.Equal(t, results[0].Score, results[1].Score)
}

func TestSearch_NoMatchOrMalformedQuery(t *testing.T) {
	idx := Fit(ranker.DefaultParams(), novelDocs())
	assert.Empty(t, idx.Search("完全不同", 3))
	assert.Empty(t, idx.Search("", 3))
	assert.Empty(t, idx.Search("，。！", 3))
}

func TestFit_DoesNotAliasInput(t *testing.T) {
	docs := novelDocs()
	idx := Fit(ranker.DefaultParams(), docs)
	docs[0].Content = "changed"

	results := idx.Search("云舒", 1)
	require.Len(t, results, 1)
	assert.Equal(t, "云舒是一个人工智能系统", results[0].Document.Content)
}

func TestSnapshotRestore_Reproduces(t *testing.T) {
	idx := Fit(ranker.Params{K1: 1.2, B: 0.6}, novelDocs())

	restored, err := Restore(idx.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, idx.Params(), restored.Params())

	for _, q := range []string{"云舒", "人工智能", "发展", "系统", "无"} {
		want := idx.Search(q, 5)
		got := restored.Search(q, 5)
		require.Len(t, got, len(want), q)
		for i := range want {
			assert.InDelta(t, want[i].Score, got[i].Score, 1e-9, q)
			assert.Equal(t, want[i].Document, got[i].Document, q)
		}
	}
}

func TestRestore_RejectsInconsistentSnapshot(t *testing.T) {
	s := Fit(ranker.DefaultParams(), novelDocs()).Snapshot()
	s.DocLengths = s.DocLengths[:1]

	_, err := Restore(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrCorruptIndex))

	s = Fit(ranker.DefaultParams(), novelDocs()).Snapshot()
	s.B = 3
	_, err = Restore(s)
	assert.True(t, errors.Is(err, pkgerrors.ErrCorruptIndex))
}

func TestSnapshot_IsACopy(t *testing.T) {
	idx := Fit(ranker.DefaultParams(), novelDocs())
	s := idx.Snapshot()
	s.IDF["云舒"] = 100
	s.DocTermCounts[0]["云舒"] = 100

	v, _ := idx.IDF("云舒")
	assert.InDelta(t, math.Log(2), v, 1e-12)
}
