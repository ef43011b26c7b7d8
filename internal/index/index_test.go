package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-service/internal/models"
)

func testChunks(n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{ChunkID: i, Text: fmt.Sprintf("chunk %d", i), TokenCount: 2}
	}
	return chunks
}

func TestBuildAndSearch_RankedByScore(t *testing.T) {
	table := NewTable()
	err := table.Build("doc", testChunks(3), [][]float32{
		{1, 0},   // aligned with the query
		{0, 1},   // orthogonal
		{1, 1},   // in between
	})
	require.NoError(t, err)

	results, err := table.Search([]string{"doc"}, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 0, results[0].Chunk.ChunkID)
	assert.Equal(t, 2, results[1].Chunk.ChunkID)
	assert.Equal(t, 1, results[2].Chunk.ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Greater(t, results[1].Score, results[2].Score)
}

func TestSearch_KCapsResults(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Build("doc", testChunks(5), [][]float32{
		{1, 0}, {0, 1}, {1, 1}, {2, 0}, {0, 2},
	}))

	results, err := table.Search([]string{"doc"}, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// k larger than the index returns every entry.
	results, err = table.Search([]string{"doc"}, []float32{1, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestSearch_TiesBrokenByChunkID(t *testing.T) {
	table := NewTable()
	same := [][]float32{{1, 0}, {1, 0}, {1, 0}}
	require.NoError(t, table.Build("doc", testChunks(3), same))

	results, err := table.Search([]string{"doc"}, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Chunk.ChunkID)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Build("doc", testChunks(4), [][]float32{
		{1, 0}, {0.5, 0.5}, {0.5, 0.5}, {0, 1},
	}))

	first, err := table.Search([]string{"doc"}, []float32{0.7, 0.3}, 4)
	require.NoError(t, err)
	second, err := table.Search([]string{"doc"}, []float32{0.7, 0.3}, 4)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSearch_NotIndexed(t *testing.T) {
	table := NewTable()
	_, err := table.Search([]string{"missing"}, []float32{1, 0}, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch_EmptyIndexIsNotAnError(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Build("doc", nil, nil))

	results, err := table.Search([]string{"doc"}, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBuild_DimensionMismatch(t *testing.T) {
	table := NewTable()
	err := table.Build("doc", testChunks(2), [][]float32{{1, 0}, {1, 0, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.False(t, table.Has("doc"))
}

func TestBuild_LengthMismatch(t *testing.T) {
	table := NewTable()
	err := table.Build("doc", testChunks(2), [][]float32{{1, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Build("doc", testChunks(1), [][]float32{{1, 0}}))

	_, err := table.Search([]string{"doc"}, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDrop_RemovesIndex(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Build("doc", testChunks(2), [][]float32{{1, 0}, {0, 1}}))

	table.Drop("doc")
	_, err := table.Search([]string{"doc"}, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	// Idempotent.
	table.Drop("doc")
}

func TestBuild_ReplacesWholesale(t *testing.T) {
	table := NewTable()
	old := []models.Chunk{
		{ChunkID: 0, Text: "old content a"},
		{ChunkID: 1, Text: "old content b"},
		{ChunkID: 2, Text: "old content c"},
	}
	require.NoError(t, table.Build("doc", old, [][]float32{{1, 0}, {0, 1}, {1, 1}}))

	replacement := []models.Chunk{{ChunkID: 0, Text: "new content"}}
	require.NoError(t, table.Build("doc", replacement, [][]float32{{1, 0}}))

	results, err := table.Search([]string{"doc"}, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new content", results[0].Chunk.Text)
}

func TestSearch_MultiDocumentCrossRanking(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Build("a", testChunks(2), [][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, table.Build("b", testChunks(2), [][]float32{{3, 1}, {0, 2}}))

	results, err := table.Search([]string{"a", "b"}, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	// Best chunk overall first, regardless of source document.
	assert.Equal(t, "a", results[0].DocumentID)
	assert.Equal(t, 0, results[0].Chunk.ChunkID)
	assert.Equal(t, "b", results[1].DocumentID)
	assert.Equal(t, 0, results[1].Chunk.ChunkID)
}

func TestSearch_MultiDocumentSkipsMissing(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Build("a", testChunks(1), [][]float32{{1, 0}}))

	results, err := table.Search([]string{"a", "missing"}, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = table.Search([]string{"missing", "also-missing"}, []float32{1, 0}, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Build("a", testChunks(2), [][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, table.Build("b", testChunks(3), [][]float32{{1, 0}, {0, 1}, {1, 1}}))

	stats := table.Stats()
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 5, stats.TotalChunks)
	require.Len(t, stats.PerDocument, 2)
	assert.Equal(t, "a", stats.PerDocument[0].DocumentID)
	assert.Equal(t, 2, stats.PerDocument[0].Chunks)
	assert.Equal(t, 2, stats.PerDocument[0].Dimension)
}

func TestNormalize(t *testing.T) {
	v := normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	zero := normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}
