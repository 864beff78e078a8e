// Package ingest processes uploaded files through validation, text
// extraction, and persistence stages. Extraction quality never blocks
// ingestion: a file that cannot be parsed is stored with the extractor's
// error description as its content.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/RNS-Forge/Collexa.AI/engine/domain"
	"github.com/RNS-Forge/Collexa.AI/engine/extract"
	"github.com/RNS-Forge/Collexa.AI/pkg/fn"
)

// CourseUpload is a file uploaded into a subject of a course collection.
type CourseUpload struct {
	CollectionID string
	SubjectIndex int
	Filename     string
	Data         []byte
}

// extracted is a CourseUpload with its text content resolved.
type extracted struct {
	CourseUpload
	Content string
}

// CatalogWriter is the slice of the document store the pipeline writes to.
type CatalogWriter interface {
	AddDocument(ctx context.Context, collectionID string, subjectIndex int, doc domain.Document) error
	AddUploadedFile(ctx context.Context, filename, content string) (domain.UploadedFile, error)
}

// Pipeline ingests uploads.
type Pipeline struct {
	course fn.Stage[CourseUpload, domain.Document]
	writer CatalogWriter
	logger *slog.Logger
}

// New creates an ingestion Pipeline backed by the given writer.
func New(writer CatalogWriter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{writer: writer, logger: logger}

	validate := fn.Stage[CourseUpload, CourseUpload](func(_ context.Context, up CourseUpload) fn.Result[CourseUpload] {
		if err := validateCourseUpload(up); err != nil {
			return fn.Err[CourseUpload](err)
		}
		return fn.Ok(up)
	})
	extractStage := fn.MapStage(func(up CourseUpload) extracted {
		return extracted{CourseUpload: up, Content: extract.Text(up.Filename, up.Data)}
	})
	persist := fn.Stage[extracted, domain.Document](func(ctx context.Context, e extracted) fn.Result[domain.Document] {
		doc := domain.Document{Filename: e.Filename, Content: e.Content}
		if err := writer.AddDocument(ctx, e.CollectionID, e.SubjectIndex, doc); err != nil {
			return fn.Err[domain.Document](fmt.Errorf("persist document: %w", err))
		}
		return fn.Ok(doc)
	})

	p.course = fn.Then(
		fn.Traced("ingest.validate", validate),
		fn.Then(fn.Traced("ingest.extract", extractStage), fn.Traced("ingest.persist", persist)),
	)
	return p
}

// IngestCourseDocument runs the upload pipeline for a course document.
func (p *Pipeline) IngestCourseDocument(ctx context.Context, up CourseUpload) (domain.Document, error) {
	doc, err := p.course(ctx, up).Unwrap()
	if err != nil {
		return domain.Document{}, err
	}
	p.logger.Info("ingest: course document stored",
		"collection", up.CollectionID, "subject", up.SubjectIndex,
		"filename", doc.Filename, "bytes", len(up.Data))
	return doc, nil
}

// IngestUploadedFile extracts and stores an ad-hoc upload outside any course.
func (p *Pipeline) IngestUploadedFile(ctx context.Context, filename string, data []byte) (domain.UploadedFile, error) {
	if err := domain.ValidateFilename(filename); err != nil {
		return domain.UploadedFile{}, err
	}
	content := extract.Text(filename, data)
	file, err := p.writer.AddUploadedFile(ctx, filename, content)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("persist upload: %w", err)
	}
	p.logger.Info("ingest: ad-hoc upload stored", "filename", filename, "bytes", len(data))
	return file, nil
}

func validateCourseUpload(up CourseUpload) error {
	if err := domain.ValidateObjectID("collection_id", up.CollectionID); err != nil {
		return err
	}
	if up.SubjectIndex < 0 {
		return domain.NewValidationError("subject_index",
			fmt.Sprintf("%d", up.SubjectIndex), "must not be negative")
	}
	return domain.ValidateFilename(up.Filename)
}
