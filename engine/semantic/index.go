// Package semantic provides the request-scoped in-memory embedding index.
// An index is built fresh for every chat request from that request's corpus
// snapshot and discarded afterwards; nothing here is persisted or shared.
package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/RNS-Forge/Collexa.AI/engine/domain"
)

// DefaultTopK is the number of nearest segments returned by Search when the
// caller does not ask for a specific k.
const DefaultTopK = 5

// Embedder converts a text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is a single retrieval hit.
type Result struct {
	Segment domain.Segment
	Score   float64
}

// Index maps segments to their embedding vectors and answers top-k
// nearest-neighbour queries by cosine similarity.
type Index struct {
	segments []domain.Segment
	vectors  [][]float32
}

// BuildIndex embeds every segment once and indexes it. A failed embedding is
// logged and the segment dropped rather than aborting the build; a nil
// embedder or empty segment list yields an empty index that answers every
// query with no results.
func BuildIndex(ctx context.Context, emb Embedder, segments []domain.Segment, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &Index{}
	if emb == nil {
		return idx
	}
	for i, seg := range segments {
		if ctx.Err() != nil {
			logger.Warn("semantic: build cancelled", "indexed", idx.Len(), "total", len(segments))
			return idx
		}
		vec, err := emb.Embed(ctx, seg.Text)
		if err != nil {
			logger.Warn("semantic: embedding segment failed, dropping",
				"source", seg.Meta.SourceLabel, "segment", i, "err", err)
			continue
		}
		idx.segments = append(idx.segments, seg)
		idx.vectors = append(idx.vectors, vec)
	}
	return idx
}

// Len returns the number of indexed segments.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.segments)
}

// Search embeds the query once and returns the k highest-scoring segments in
// descending score order, ties broken by insertion order. An empty index
// returns no results and no error without calling the embedder.
func (x *Index) Search(ctx context.Context, emb Embedder, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if x.Len() == 0 {
		return nil, nil
	}

	qv, err := emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}

	results := make([]Result, len(x.segments))
	for i := range x.segments {
		results[i] = Result{Segment: x.segments[i], Score: cosine(qv, x.vectors[i])}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// cosine returns the cosine similarity of a and b, 0 when either is zero.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
