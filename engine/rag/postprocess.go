package rag

import (
	"regexp"

	"github.com/RNS-Forge/Collexa.AI/engine/semantic"
)

// videoLinkPattern matches video-hosting URLs (YouTube watch pages, youtu.be
// short links, Vimeo) and direct media-file URLs, case-insensitively.
var videoLinkPattern = regexp.MustCompile(
	`(?i)https?://(?:www\.)?(?:youtube\.com/watch\?v=[\w-]+|youtu\.be/[\w-]+|vimeo\.com/\d+)` +
		`|https?://[^\s<>"')\]]+\.(?:mp4|webm|mov|avi|mkv)\b`)

// ExtractSources collects the source label of each retrieved segment in rank
// order, dropping duplicates while preserving first occurrence.
func ExtractSources(results []semantic.Result) []string {
	sources := []string{}
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		label := r.Segment.Meta.SourceLabel
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		sources = append(sources, label)
	}
	return sources
}

// ExtractVideoLinks scans the generated answer for video URLs and returns all
// non-overlapping matches in order of first appearance. Duplicates are kept:
// the result mirrors the literal occurrence count in the text.
func ExtractVideoLinks(text string) []string {
	links := videoLinkPattern.FindAllString(text, -1)
	if links == nil {
		return []string{}
	}
	return links
}
