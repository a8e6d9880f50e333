package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/config"
)

func novelRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "TestNovel")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ch1.txt"), []byte("云舒是一个人工智能系统"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ch2.txt"), []byte("人工智能正在快速发展"), 0o644))
	return root
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestBuildCommand(t *testing.T) {
	root := novelRoot(t)

	out, _, err := run(t, "build", "TestNovel", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 chapters.")

	_, errOut, err := run(t, "build", "Missing", "--root", root)
	require.Error(t, err)
	assert.Contains(t, errOut, "collection not found")
}

func TestQueryCommand_JSON(t *testing.T) {
	root := novelRoot(t)

	out, _, err := run(t, "query", "TestNovel", "人工智能", "--root", root, "--json")
	require.NoError(t, err)
	var hits []executor.Hit
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 2)
	assert.Equal(t, "ch2.txt", hits[0].Filename)
}

func TestSearchCommand_Text(t *testing.T) {
	root := novelRoot(t)

	out, _, err := run(t, "search", "云舒", "--root", root, "-k", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "TestNovel/ch1.txt")

	out, _, err = run(t, "search", "不存在", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "No results.")
}

func TestListCommand(t *testing.T) {
	root := novelRoot(t)
	_, _, err := run(t, "build", "TestNovel", "--root", root)
	require.NoError(t, err)

	out, _, err := run(t, "list", "--root", root, "--json")
	require.NoError(t, err)
	var infos []collection.CollectionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 1)
	assert.True(t, infos[0].Indexed)
	assert.True(t, infos[0].HasSidecar)
}

func TestOpenCache_OnlyRedisIsShared(t *testing.T) {
	for _, backend := range []string{"none", "memory", ""} {
		cfg := &config.Config{Cache: config.CacheConfig{Backend: backend, Size: 16}}
		qc, closer := openCache(cfg)
		assert.Nil(t, qc, backend)
		assert.Nil(t, closer, backend)
	}

	cfg := &config.Config{
		Cache: config.CacheConfig{Backend: "redis"},
		Redis: config.RedisConfig{Addr: "127.0.0.1:1"},
	}
	qc, closer := openCache(cfg)
	assert.Nil(t, qc)
	assert.Nil(t, closer)
}

func TestBuildCommand_UnreachableRedis(t *testing.T) {
	root := novelRoot(t)
	t.Setenv("NM_CACHE_BACKEND", "redis")
	t.Setenv("NM_REDIS_ADDR", "127.0.0.1:1")

	out, errOut, err := run(t, "build", "TestNovel", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 chapters.")
	assert.Contains(t, errOut, "redis unavailable")
}
