// Package domain defines core domain types, constants, and validation for the
// Collexa pipeline. It acts as the validation gate at the service entry points.
package domain

import (
	"strings"
	"time"
)

// Document is a single uploaded file inside a subject, stored with its
// extracted text.
type Document struct {
	Filename string `bson:"filename" json:"filename"`
	Content  string `bson:"content" json:"content"`
}

// Subject groups documents inside a course collection.
type Subject struct {
	Name      string     `bson:"name" json:"name"`
	Documents []Document `bson:"documents" json:"documents"`
}

// Course is a named collection of subjects.
type Course struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Subjects []Subject `json:"subjects"`
}

// UploadedFile is an ad-hoc upload, independent of any course.
type UploadedFile struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Content    string    `json:"content"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// SegmentMeta carries the provenance of a text segment.
type SegmentMeta struct {
	Course      string `json:"course"`
	Subject     string `json:"subject"`
	Filename    string `json:"filename"`
	SourceLabel string `json:"source_label"`
}

// Segment is a chunk of document text tagged with provenance. Segments are
// immutable once created and live only for the duration of one chat request.
type Segment struct {
	Text string      `json:"text"`
	Meta SegmentMeta `json:"meta"`
}

// SourceLabel joins the non-empty course, subject, and filename names into the
// stable human-readable identity used for source deduplication. Two segments
// from the same file share a label even though their text differs.
func SourceLabel(course, subject, filename string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{course, subject, filename} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " > ")
}

// Mode selects which prompt template family governs a chat request.
type Mode string

const (
	// ModeDocuments answers strictly from retrieved course documents.
	ModeDocuments Mode = "documents"
	// ModeGeneral answers from general knowledge, weighting uploaded files
	// as the dominant source when any are available.
	ModeGeneral Mode = "general"
)

// Valid reports whether m is a recognised chat mode.
func (m Mode) Valid() bool {
	return m == ModeDocuments || m == ModeGeneral
}

// ScopeKind identifies the subset of the corpus a chat request draws from.
type ScopeKind int

const (
	// ScopeSingleCourse restricts retrieval to one course collection.
	ScopeSingleCourse ScopeKind = iota
	// ScopeAllCourses retrieves across every course collection.
	ScopeAllCourses
	// ScopeUploads retrieves from the ad-hoc uploaded-file set.
	ScopeUploads
)

// String returns the wire name of the scope kind.
func (k ScopeKind) String() string {
	switch k {
	case ScopeSingleCourse:
		return "collection"
	case ScopeAllCourses:
		return "all"
	case ScopeUploads:
		return "uploads"
	default:
		return "unknown"
	}
}

// Scope selects the corpus subset for one chat request.
type Scope struct {
	Kind     ScopeKind
	CourseID string // set only for ScopeSingleCourse
}

// SingleCourse scopes retrieval to the course with the given id.
func SingleCourse(id string) Scope {
	return Scope{Kind: ScopeSingleCourse, CourseID: id}
}

// AllCourses scopes retrieval to every course.
func AllCourses() Scope {
	return Scope{Kind: ScopeAllCourses}
}

// UploadedFileSet scopes retrieval to the ad-hoc upload collection.
func UploadedFileSet() Scope {
	return Scope{Kind: ScopeUploads}
}

// ChatTurn is one chat request. It is request-scoped and never persisted.
type ChatTurn struct {
	Query string
	Scope Scope
	Mode  Mode
}

// AnswerResult is the composite outcome of one chat turn.
// Sources holds source labels in first-seen rank order with duplicates
// removed. VideoLinks holds every video URL occurrence in the answer text,
// in order of first appearance, duplicates kept.
type AnswerResult struct {
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	VideoLinks     []string `json:"video_links"`
	HasFileContext bool     `json:"has_file_context"`
}
