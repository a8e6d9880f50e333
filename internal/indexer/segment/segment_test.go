package segment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/ranker"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/errors"
)

func fitted() *index.BM25Index {
	return index.Fit(ranker.DefaultParams(), []index.Document{
		{Content: "云舒是一个人工智能系统", Meta: index.Metadata{Path: "TestNovel/ch1.txt", Filename: "ch1.txt"}},
		{Content: "人工智能正在快速发展", Meta: index.Metadata{Path: "TestNovel/ch2.txt", Filename: "ch2.txt"}},
		{Content: "第三章：云舒醒来，看见窗外的雨。", Meta: index.Metadata{Path: "TestNovel/vol2/ch3.txt", Filename: "ch3.txt"}},
	})
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TestNovel", DefaultName)
	idx := fitted()
	builtAt := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	require.NoError(t, save(path, idx, builtAt))
	assert.True(t, Exists(path))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, header, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SchemaV2, header.Version)
	assert.True(t, builtAt.Equal(header.BuiltAt))
	assert.Equal(t, idx.Snapshot(), loaded.Snapshot())

	for _, q := range []string{"云舒", "人工智能", "窗外的雨", "不存在"} {
		want := idx.Search(q, 10)
		got := loaded.Search(q, 10)
		require.Len(t, got, len(want), q)
		for i := range want {
			assert.InDelta(t, want[i].Score, got[i].Score, 1e-9)
			assert.Equal(t, want[i].Document, got[i].Document)
		}
	}
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultName)
	require.NoError(t, Save(path, fitted()))

	small := index.Fit(ranker.DefaultParams(), []index.Document{{Content: "只有一章"}})
	require.NoError(t, Save(path, small))

	loaded, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.DocCount())
}

func TestSaveLoad_EmptyIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultName)
	require.NoError(t, Save(path, index.Fit(ranker.DefaultParams(), nil)))

	loaded, _, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, loaded.DocCount())
	assert.Empty(t, loaded.Search("云舒", 3))
}

func TestDecode_LegacyV1(t *testing.T) {
	legacy := `{"k1": 1.5, "b": 0.75, "avgdl": 2, "doc_count": 1,
		"idf": {"云舒": 0.2876820724517809, "舒醒": 0.2876820724517809},
		"doc_lengths": [2],
		"documents": [{"content": "云舒醒", "meta": {"path": "N/a.txt", "filename": "a.txt"}}],
		"doc_term_counts": [{"云舒": 1, "舒醒": 1}]}`

	idx, header, err := Decode([]byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, SchemaV1, header.Version)
	assert.True(t, header.BuiltAt.IsZero())

	results := idx.Search("云舒", 3)
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].Document.Meta.Filename)
}

func TestDecode_Errors(t *testing.T) {
	_, _, err := Decode([]byte(`{not json`))
	assert.True(t, errors.Is(err, pkgerrors.ErrCorruptIndex))

	_, _, err = Decode([]byte(`{"version": 9, "doc_count": 0}`))
	assert.True(t, errors.Is(err, pkgerrors.ErrUnsupportedSchema))

	_, _, err = Decode([]byte(`{"version": 2, "k1": 1.5, "b": 0.75, "doc_count": 2, "doc_lengths": [1]}`))
	assert.True(t, errors.Is(err, pkgerrors.ErrCorruptIndex))
}

func TestLoad_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultName)
	_, _, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, Exists(path))
}

func TestLoad_ReadOnlyDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := filepath.Join(t.TempDir(), "TestNovel")
	path := filepath.Join(dir, DefaultName)
	idx := fitted()
	require.NoError(t, Save(path, idx))
	require.NoError(t, os.Remove(lockPath(path)))

	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	loaded, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, idx.Snapshot(), loaded.Snapshot())
	_, err = os.Stat(lockPath(path))
	assert.True(t, os.IsNotExist(err))
}
