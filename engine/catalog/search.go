package catalog

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/RNS-Forge/Collexa.AI/engine/domain"
)

const (
	// maxHitsPerCourse caps how many matches a single course contributes.
	maxHitsPerCourse = 10
	previewLimit     = 500
	snippetLimit     = 200
)

// SearchHit is one document match. Preview is the head of the document text
// and Snippet the text surrounding the first match, both truncated for
// display.
type SearchHit struct {
	CollectionID   string `json:"collection_id"`
	CollectionName string `json:"collection_name"`
	Subject        string `json:"subject"`
	Filename       string `json:"filename"`
	Preview        string `json:"preview"`
	Snippet        string `json:"snippet"`
}

// Search runs a case-insensitive substring search over every course document,
// matching filenames and content.
func (s *Store) Search(ctx context.Context, query string) ([]SearchHit, error) {
	if err := domain.ValidateQuery(query); err != nil {
		return nil, err
	}
	courses, err := s.Courses(ctx)
	if err != nil {
		return nil, err
	}
	return searchCourses(courses, query), nil
}

func searchCourses(courses []domain.Course, query string) []SearchHit {
	needle := strings.ToLower(query)
	hits := []SearchHit{}
	for _, course := range courses {
		n := 0
		for _, subject := range course.Subjects {
			for _, doc := range subject.Documents {
				if n >= maxHitsPerCourse {
					break
				}
				idx := strings.Index(strings.ToLower(doc.Content), needle)
				inName := strings.Contains(strings.ToLower(doc.Filename), needle)
				if idx < 0 && !inName {
					continue
				}
				hit := SearchHit{
					CollectionID:   course.ID,
					CollectionName: course.Name,
					Subject:        subject.Name,
					Filename:       doc.Filename,
					Preview:        truncate(doc.Content, previewLimit),
				}
				if idx >= 0 {
					hit.Snippet = snippetAround(doc.Content, idx, len(needle))
				}
				hits = append(hits, hit)
				n++
			}
		}
	}
	return hits
}

// snippetAround returns up to snippetLimit bytes of content centered on the
// match.
func snippetAround(content string, idx, matchLen int) string {
	pad := (snippetLimit - matchLen) / 2
	if pad < 0 {
		pad = 0
	}
	start := runeFloor(content, idx-pad)
	end := runeFloor(content, idx+matchLen+pad)
	if end > len(content) {
		end = len(content)
	}
	return content[start:end]
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:runeFloor(s, n)]
}

// runeFloor clamps i into [0, len(s)] and backs it up to a rune boundary.
func runeFloor(s string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
