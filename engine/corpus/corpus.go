package corpus

import (
	"context"
	"fmt"

	"github.com/RNS-Forge/Collexa.AI/engine/domain"
)

// CourseSource is the slice of the document store the assembler reads from.
type CourseSource interface {
	Course(ctx context.Context, id string) (domain.Course, error)
	Courses(ctx context.Context) ([]domain.Course, error)
	UploadedFiles(ctx context.Context) ([]domain.UploadedFile, error)
}

// Assembler produces the flat segment list for a chat scope.
type Assembler struct {
	src     CourseSource
	size    int
	overlap int
}

// NewAssembler creates an Assembler with the default chunking parameters.
func NewAssembler(src CourseSource) *Assembler {
	return &Assembler{src: src, size: DefaultChunkSize, overlap: DefaultChunkOverlap}
}

// Assemble walks the requested scope and returns one Segment per chunk of
// every document reached. A scope that resolves to zero documents returns an
// empty slice, not an error; a single-course scope whose id does not exist
// returns domain.ErrNotFound.
func (a *Assembler) Assemble(ctx context.Context, scope domain.Scope) ([]domain.Segment, error) {
	switch scope.Kind {
	case domain.ScopeSingleCourse:
		course, err := a.src.Course(ctx, scope.CourseID)
		if err != nil {
			return nil, fmt.Errorf("corpus: fetch course %s: %w", scope.CourseID, err)
		}
		return a.courseSegments(course), nil

	case domain.ScopeAllCourses:
		courses, err := a.src.Courses(ctx)
		if err != nil {
			return nil, fmt.Errorf("corpus: fetch courses: %w", err)
		}
		var segments []domain.Segment
		for _, course := range courses {
			segments = append(segments, a.courseSegments(course)...)
		}
		return segments, nil

	case domain.ScopeUploads:
		files, err := a.src.UploadedFiles(ctx)
		if err != nil {
			return nil, fmt.Errorf("corpus: fetch uploads: %w", err)
		}
		var segments []domain.Segment
		for _, f := range files {
			meta := domain.SegmentMeta{
				Filename:    f.Filename,
				SourceLabel: domain.SourceLabel("", "", f.Filename),
			}
			segments = append(segments, a.split(f.Content, meta)...)
		}
		return segments, nil

	default:
		return nil, fmt.Errorf("corpus: unknown scope kind %d", scope.Kind)
	}
}

func (a *Assembler) courseSegments(course domain.Course) []domain.Segment {
	var segments []domain.Segment
	for _, subject := range course.Subjects {
		for _, doc := range subject.Documents {
			meta := domain.SegmentMeta{
				Course:      course.Name,
				Subject:     subject.Name,
				Filename:    doc.Filename,
				SourceLabel: domain.SourceLabel(course.Name, subject.Name, doc.Filename),
			}
			segments = append(segments, a.split(doc.Content, meta)...)
		}
	}
	return segments
}

func (a *Assembler) split(content string, meta domain.SegmentMeta) []domain.Segment {
	chunks := Chunk(content, a.size, a.overlap)
	segments := make([]domain.Segment, len(chunks))
	for i, c := range chunks {
		segments[i] = domain.Segment{Text: c, Meta: meta}
	}
	return segments
}
