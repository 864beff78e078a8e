package rag

import (
	"fmt"
	"strings"

	"github.com/RNS-Forge/Collexa.AI/engine/semantic"
)

// ComposeContext renders ranked retrieval results as a human-readable context
// block, one source-attributed section per segment, in the results' existing
// rank order. An empty result set yields an empty string, which callers must
// treat as "no context available" rather than an error.
func ComposeContext(results []semantic.Result) string {
	if len(results) == 0 {
		return ""
	}
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("From %s:\n%s", r.Segment.Meta.SourceLabel, r.Segment.Text)
	}
	return strings.Join(blocks, "\n\n")
}
