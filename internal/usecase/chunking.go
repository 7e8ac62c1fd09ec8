package usecase

import (
	"time"

	"github.com/riskibarqy/matchday-relay/internal/domain/record"
)

const MaxChunkSize = 10

// BatchItem is one element of a chunked collection. Ref is optional and, when
// set, is marked posted once the chunk holding it is delivered.
type BatchItem struct {
	Ref  *record.Ref
	Body map[string]any
}

type BatchRequest struct {
	BaseKey   string
	Operation string
	TTL       time.Duration
	MaxBatch  int
	// Envelope fields are copied into every chunk body.
	Envelope map[string]any
	Items    []BatchItem
}

// ChunkItems splits items into ordered runs of at most size; the last run
// carries the remainder.
func ChunkItems[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

// ChunkPayloads turns a collection into payloads keyed BaseKey_part{n}, n
// starting at 1. MaxBatch is clamped to 1..MaxChunkSize.
func ChunkPayloads(req BatchRequest) []Payload {
	size := req.MaxBatch
	if size < 1 {
		size = 1
	}
	if size > MaxChunkSize {
		size = MaxChunkSize
	}

	chunks := ChunkItems(req.Items, size)
	out := make([]Payload, 0, len(chunks))
	for i, chunk := range chunks {
		part := i + 1
		key := ChunkKey(req.BaseKey, part)

		body := make(map[string]any, len(req.Envelope)+5)
		for k, v := range req.Envelope {
			body[k] = v
		}
		items := make([]map[string]any, 0, len(chunk))
		refs := make([]record.Ref, 0, len(chunk))
		for _, item := range chunk {
			items = append(items, item.Body)
			if item.Ref != nil {
				refs = append(refs, *item.Ref)
			}
		}
		body["idempotency_key"] = key
		body["part"] = part
		body["total_parts"] = len(chunks)
		body["item_count"] = len(chunk)
		body["items"] = items

		out = append(out, Payload{
			Key:        key,
			Operation:  req.Operation,
			Body:       body,
			ItemCount:  len(chunk),
			TTL:        req.TTL,
			SourceRefs: refs,
		})
	}
	return out
}
