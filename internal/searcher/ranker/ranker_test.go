package ranker

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDF_NonNegativeForValidDocFreq(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		n := rng.Intn(5000) + 1
		df := rng.Intn(n + 1)
		idf := IDF(n, df)
		require.GreaterOrEqual(t, idf, 0.0, "n=%d df=%d", n, df)
		require.False(t, math.IsNaN(idf))
	}
}

func TestIDF_KnownValues(t *testing.T) {
	assert.InDelta(t, math.Log(1.0/1.5+1), IDF(1, 1), 1e-12)
	assert.InDelta(t, math.Log(1.5/1.5+1), IDF(2, 1), 1e-12)
	assert.Greater(t, IDF(100, 1), IDF(100, 50))
}

func TestTFNorm(t *testing.T) {
	p := DefaultParams()
	assert.Zero(t, TFNorm(1, 10, 0, p))
	assert.Zero(t, TFNorm(0, 10, 10, p))
	// At average length the normaliser reduces to tf*(k1+1)/(tf+k1).
	assert.InDelta(t, 2.5/2.5, TFNorm(1, 10, 10, p), 1e-12)
	assert.Greater(t, TFNorm(3, 10, 10, p), TFNorm(2, 10, 10, p))
	assert.Greater(t, TFNorm(2, 5, 10, p), TFNorm(2, 20, 10, p))
}

func TestRank(t *testing.T) {
	scores := []float64{0.5, 0, 2.0, -1, 0.5, 1.0}

	got := Rank(scores, 10)
	assert.Equal(t, []ScoredDoc{
		{Doc: 2, Score: 2.0},
		{Doc: 5, Score: 1.0},
		{Doc: 0, Score: 0.5},
		{Doc: 4, Score: 0.5},
	}, got)

	assert.Len(t, Rank(scores, 2), 2)
	assert.Empty(t, Rank(scores, 0))
	assert.Empty(t, Rank(scores, -3))
	assert.Empty(t, Rank(nil, 3))
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	assert.Error(t, Params{K1: -1, B: 0.5}.Validate())
	assert.Error(t, Params{K1: 1.2, B: 1.5}.Validate())
	assert.Error(t, Params{K1: math.NaN(), B: 0.5}.Validate())
}
