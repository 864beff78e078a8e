package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/RNS-Forge/Collexa.AI/engine/catalog"
	"github.com/RNS-Forge/Collexa.AI/engine/domain"
	"github.com/RNS-Forge/Collexa.AI/engine/ingest"
	"github.com/RNS-Forge/Collexa.AI/pkg/events"
	"github.com/RNS-Forge/Collexa.AI/pkg/metrics"
)

const maxUploadBytes = 32 << 20

// catalogStore is the slice of catalog.Store the handlers need.
type catalogStore interface {
	CreateCourse(ctx context.Context, name string) (domain.Course, error)
	Courses(ctx context.Context) ([]domain.Course, error)
	Course(ctx context.Context, id string) (domain.Course, error)
	DeleteCourse(ctx context.Context, id string) error
	AddSubject(ctx context.Context, courseID, name string) error
	RemoveSubject(ctx context.Context, courseID string, index int) error
	RemoveDocument(ctx context.Context, courseID string, subjectIndex int, filename string) error
	UploadedFiles(ctx context.Context) ([]domain.UploadedFile, error)
	DeleteUploadedFile(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]catalog.SearchHit, error)
}

// chatService answers one chat turn.
type chatService interface {
	Answer(ctx context.Context, turn domain.ChatTurn) (*domain.AnswerResult, error)
}

// ingestor runs uploads through extraction into the catalog.
type ingestor interface {
	IngestCourseDocument(ctx context.Context, up ingest.CourseUpload) (domain.Document, error)
	IngestUploadedFile(ctx context.Context, filename string, data []byte) (domain.UploadedFile, error)
}

type server struct {
	store   catalogStore
	rag     chatService
	ingest  ingestor
	events  *events.Publisher
	metrics *metrics.Registry
	logger  *slog.Logger
}

func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/collections", s.handleListCollections)
	mux.HandleFunc("POST /api/collections", s.handleCreateCollection)
	mux.HandleFunc("GET /api/collections/{id}", s.handleGetCollection)
	mux.HandleFunc("DELETE /api/collections/{id}", s.handleDeleteCollection)
	mux.HandleFunc("POST /api/collections/{id}/subjects", s.handleAddSubject)
	mux.HandleFunc("DELETE /api/collections/{id}/subjects/{index}", s.handleRemoveSubject)
	mux.HandleFunc("POST /api/collections/{id}/subjects/{index}/documents", s.handleUploadDocument)
	mux.HandleFunc("DELETE /api/collections/{id}/subjects/{index}/documents/{filename}", s.handleRemoveDocument)

	mux.HandleFunc("GET /api/uploads", s.handleListUploads)
	mux.HandleFunc("POST /api/uploads", s.handleUploadFile)
	mux.HandleFunc("DELETE /api/uploads/{id}", s.handleDeleteUpload)

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/search", s.handleSearch)
}

// --- Response helpers ---

type errorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrEmbedding), errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) fail(w http.ResponseWriter, err error, op string) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error(op+" failed", "err", err)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

// --- Health ---

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Collections ---

func (s *server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	courses, err := s.store.Courses(r.Context())
	if err != nil {
		s.fail(w, err, "list collections")
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (s *server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	course, err := s.store.CreateCourse(r.Context(), req.Name)
	if err != nil {
		s.fail(w, err, "create collection")
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (s *server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	course, err := s.store.Course(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err, "get collection")
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (s *server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCourse(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, err, "delete collection")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "collection deleted"})
}

func (s *server) handleAddSubject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.AddSubject(r.Context(), r.PathValue("id"), req.Name); err != nil {
		s.fail(w, err, "add subject")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "subject added"})
}

func subjectIndex(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return 0, domain.NewValidationError("subject_index", r.PathValue("index"), "must be a number")
	}
	return idx, nil
}

func (s *server) handleRemoveSubject(w http.ResponseWriter, r *http.Request) {
	idx, err := subjectIndex(r)
	if err != nil {
		s.fail(w, err, "remove subject")
		return
	}
	if err := s.store.RemoveSubject(r.Context(), r.PathValue("id"), idx); err != nil {
		s.fail(w, err, "remove subject")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "subject removed"})
}

func (s *server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	idx, err := subjectIndex(r)
	if err != nil {
		s.fail(w, err, "upload document")
		return
	}
	filename, data, err := readUpload(r)
	if err != nil {
		s.fail(w, err, "upload document")
		return
	}
	up := ingest.CourseUpload{
		CollectionID: r.PathValue("id"),
		SubjectIndex: idx,
		Filename:     filename,
		Data:         data,
	}
	doc, err := s.ingest.IngestCourseDocument(r.Context(), up)
	if err != nil {
		s.fail(w, err, "upload document")
		return
	}
	s.metrics.Counter("documents_ingested_total", "Documents ingested into the catalog.").Inc()
	if err := s.events.DocumentIngested(r.Context(), up.CollectionID, doc.Filename, len(data)); err != nil {
		s.logger.Warn("publish ingest event", "err", err)
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	idx, err := subjectIndex(r)
	if err != nil {
		s.fail(w, err, "remove document")
		return
	}
	if err := s.store.RemoveDocument(r.Context(), r.PathValue("id"), idx, r.PathValue("filename")); err != nil {
		s.fail(w, err, "remove document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "document removed"})
}

// readUpload pulls the "file" form field out of a multipart request.
func readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, domain.NewValidationError("file", "", "invalid multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, domain.NewValidationError("file", "", "file field is required")
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	return header.Filename, data, nil
}

// --- Uploads ---

type uploadSummary struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	ContentPreview string    `json:"content_preview"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

func previewOf(content string) string {
	const limit = 500
	if len(content) <= limit {
		return content
	}
	return content[:limit]
}

func (s *server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.UploadedFiles(r.Context())
	if err != nil {
		s.fail(w, err, "list uploads")
		return
	}
	out := make([]uploadSummary, 0, len(files))
	for _, f := range files {
		out = append(out, uploadSummary{
			ID:             f.ID,
			Filename:       f.Filename,
			ContentPreview: previewOf(f.Content),
			UploadedAt:     f.UploadedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	filename, data, err := readUpload(r)
	if err != nil {
		s.fail(w, err, "upload file")
		return
	}
	file, err := s.ingest.IngestUploadedFile(r.Context(), filename, data)
	if err != nil {
		s.fail(w, err, "upload file")
		return
	}
	s.metrics.Counter("files_uploaded_total", "Ad-hoc file uploads.").Inc()
	if err := s.events.DocumentIngested(r.Context(), "", file.Filename, len(data)); err != nil {
		s.logger.Warn("publish ingest event", "err", err)
	}
	writeJSON(w, http.StatusCreated, uploadSummary{
		ID:             file.ID,
		Filename:       file.Filename,
		ContentPreview: previewOf(file.Content),
		UploadedAt:     file.UploadedAt,
	})
}

func (s *server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteUploadedFile(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, err, "delete upload")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "file deleted"})
}

// --- Chat ---

// ChatRequest is the JSON body for POST /api/chat.
type ChatRequest struct {
	Query        string `json:"query"`
	Mode         string `json:"mode"`
	Scope        string `json:"scope"`
	CollectionID string `json:"collection_id"`
}

func (req ChatRequest) turn() (domain.ChatTurn, error) {
	mode := domain.Mode(req.Mode)
	if req.Mode == "" {
		mode = domain.ModeDocuments
	}

	scopeName := req.Scope
	if scopeName == "" {
		if req.CollectionID != "" {
			scopeName = "collection"
		} else {
			scopeName = "all"
		}
	}
	var scope domain.Scope
	switch scopeName {
	case "collection":
		if req.CollectionID == "" {
			return domain.ChatTurn{}, domain.NewValidationError("collection_id", "", "required for collection scope")
		}
		scope = domain.SingleCourse(req.CollectionID)
	case "all":
		scope = domain.AllCourses()
	case "uploads":
		scope = domain.UploadedFileSet()
	default:
		return domain.ChatTurn{}, domain.NewValidationError("scope", scopeName, "must be collection, all, or uploads")
	}

	return domain.ChatTurn{Query: req.Query, Mode: mode, Scope: scope}, nil
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	turn, err := req.turn()
	if err != nil {
		s.fail(w, err, "chat")
		return
	}

	start := time.Now()
	result, err := s.rag.Answer(r.Context(), turn)
	if err != nil {
		s.fail(w, err, "chat")
		return
	}
	s.metrics.Counter(metrics.Label("chat_requests_total", "mode", string(turn.Mode)), "Chat requests answered.").Inc()
	s.metrics.Histogram("chat_seconds", "Chat turn latency.", nil).Since(start)
	if err := s.events.ChatAnswered(r.Context(), string(turn.Mode), turn.Scope.Kind.String(), len(result.Sources)); err != nil {
		s.logger.Warn("publish chat event", "err", err)
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Search ---

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	hits, err := s.store.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, err, "search")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   r.URL.Query().Get("q"),
		"results": hits,
	})
}
