package usecase

import (
	"fmt"
	"testing"

	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkItems(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	got := ChunkItems(items, 5)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got[0])
	assert.Equal(t, []int{6, 7, 8, 9, 10}, got[1])
	assert.Equal(t, []int{11, 12}, got[2])

	assert.Empty(t, ChunkItems([]int{}, 5))
	assert.Len(t, ChunkItems(items, 0), 12)
}

func TestChunkPayloads(t *testing.T) {
	t.Parallel()

	items := make([]BatchItem, 0, 12)
	for i := 0; i < 12; i++ {
		ref := record.Ref{Kind: record.KindFixtures, ID: fmt.Sprintf("f%d", i)}
		items = append(items, BatchItem{Ref: &ref, Body: map[string]any{"id": ref.ID}})
	}

	payloads := ChunkPayloads(BatchRequest{
		BaseKey:   "post_fixtures_Club_2025-02",
		Operation: OperationPostFixtures,
		MaxBatch:  5,
		Envelope:  map[string]any{"club": "Club"},
		Items:     items,
	})

	require.Len(t, payloads, 3)
	keys := map[string]struct{}{}
	for i, p := range payloads {
		assert.Equal(t, fmt.Sprintf("post_fixtures_Club_2025-02_part%d", i+1), p.Key)
		assert.Equal(t, p.Key, p.Body["idempotency_key"])
		assert.Equal(t, i+1, p.Body["part"])
		assert.Equal(t, 3, p.Body["total_parts"])
		assert.Equal(t, "Club", p.Body["club"])
		assert.Len(t, p.SourceRefs, p.ItemCount)
		keys[p.Key] = struct{}{}
	}
	assert.Len(t, keys, 3)
	assert.Equal(t, 2, payloads[2].ItemCount)
	assert.Equal(t, "f10", payloads[2].SourceRefs[0].ID)
}

func TestChunkPayloads_ClampsBatchSize(t *testing.T) {
	t.Parallel()

	items := make([]BatchItem, 25)
	payloads := ChunkPayloads(BatchRequest{BaseKey: "b", MaxBatch: 50, Items: items})
	require.Len(t, payloads, 3)
	assert.Equal(t, MaxChunkSize, payloads[0].ItemCount)

	single := ChunkPayloads(BatchRequest{BaseKey: "b", MaxBatch: 10, Items: items[:3]})
	require.Len(t, single, 1)
	assert.Equal(t, "b_part1", single[0].Key)
}
