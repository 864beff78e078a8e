package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RNS-Forge/Collexa.AI/engine/catalog"
	"github.com/RNS-Forge/Collexa.AI/engine/domain"
	"github.com/RNS-Forge/Collexa.AI/engine/ingest"
	"github.com/RNS-Forge/Collexa.AI/pkg/metrics"
)

// --- Fakes ---

type fakeStore struct {
	courses []domain.Course
	uploads []domain.UploadedFile
	err     error
}

func (f *fakeStore) CreateCourse(_ context.Context, name string) (domain.Course, error) {
	if f.err != nil {
		return domain.Course{}, f.err
	}
	if name == "" {
		return domain.Course{}, domain.NewValidationError("name", name, "must not be empty")
	}
	c := domain.Course{ID: "507f1f77bcf86cd799439011", Name: name, Subjects: []domain.Subject{}}
	f.courses = append(f.courses, c)
	return c, nil
}

func (f *fakeStore) Courses(context.Context) ([]domain.Course, error) {
	return f.courses, f.err
}

func (f *fakeStore) Course(_ context.Context, id string) (domain.Course, error) {
	for _, c := range f.courses {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Course{}, fmt.Errorf("course %s: %w", id, domain.ErrNotFound)
}

func (f *fakeStore) DeleteCourse(ctx context.Context, id string) error {
	_, err := f.Course(ctx, id)
	return err
}

func (f *fakeStore) AddSubject(ctx context.Context, id, name string) error {
	_, err := f.Course(ctx, id)
	return err
}

func (f *fakeStore) RemoveSubject(ctx context.Context, id string, _ int) error {
	_, err := f.Course(ctx, id)
	return err
}

func (f *fakeStore) RemoveDocument(ctx context.Context, id string, _ int, _ string) error {
	_, err := f.Course(ctx, id)
	return err
}

func (f *fakeStore) UploadedFiles(context.Context) ([]domain.UploadedFile, error) {
	return f.uploads, f.err
}

func (f *fakeStore) DeleteUploadedFile(_ context.Context, id string) error {
	for _, u := range f.uploads {
		if u.ID == id {
			return nil
		}
	}
	return fmt.Errorf("upload %s: %w", id, domain.ErrNotFound)
}

func (f *fakeStore) Search(_ context.Context, query string) ([]catalog.SearchHit, error) {
	if err := domain.ValidateQuery(query); err != nil {
		return nil, err
	}
	return []catalog.SearchHit{{CollectionName: "ML", Filename: "notes.txt"}}, nil
}

type fakeChat struct {
	result *domain.AnswerResult
	err    error
	turns  []domain.ChatTurn
}

func (f *fakeChat) Answer(_ context.Context, turn domain.ChatTurn) (*domain.AnswerResult, error) {
	f.turns = append(f.turns, turn)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeIngest struct {
	err error
}

func (f *fakeIngest) IngestCourseDocument(_ context.Context, up ingest.CourseUpload) (domain.Document, error) {
	if f.err != nil {
		return domain.Document{}, f.err
	}
	return domain.Document{Filename: up.Filename, Content: string(up.Data)}, nil
}

func (f *fakeIngest) IngestUploadedFile(_ context.Context, filename string, data []byte) (domain.UploadedFile, error) {
	if f.err != nil {
		return domain.UploadedFile{}, f.err
	}
	return domain.UploadedFile{ID: "up1", Filename: filename, Content: string(data)}, nil
}

func newTestServer(store *fakeStore, chat *fakeChat, ing *fakeIngest) http.Handler {
	s := &server{
		store:   store,
		rag:     chat,
		ingest:  ing,
		metrics: metrics.New(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	mux := http.NewServeMux()
	s.routes(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

// --- Tests ---

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{}, &fakeIngest{})
	rec := do(t, h, "GET", "/api/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateCollection(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{}, &fakeIngest{})
	rec := do(t, h, "POST", "/api/collections", strings.NewReader(`{"name":"Biology"}`), "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var course domain.Course
	json.NewDecoder(rec.Body).Decode(&course)
	if course.Name != "Biology" || course.ID == "" {
		t.Errorf("course = %+v", course)
	}
}

func TestCreateCollection_EmptyName(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{}, &fakeIngest{})
	rec := do(t, h, "POST", "/api/collections", strings.NewReader(`{}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp errorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Error == "" || resp.Timestamp == "" {
		t.Errorf("error envelope incomplete: %+v", resp)
	}
}

func TestGetCollection_NotFound(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{}, &fakeIngest{})
	rec := do(t, h, "GET", "/api/collections/507f1f77bcf86cd799439099", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChat(t *testing.T) {
	chat := &fakeChat{result: &domain.AnswerResult{
		Answer:  "Paris.",
		Sources: []string{"Geo > Europe > capitals.txt"},
	}}
	h := newTestServer(&fakeStore{}, chat, &fakeIngest{})

	body := `{"query":"capital of France?","mode":"documents","collection_id":"507f1f77bcf86cd799439011"}`
	rec := do(t, h, "POST", "/api/chat", strings.NewReader(body), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var result domain.AnswerResult
	json.NewDecoder(rec.Body).Decode(&result)
	if result.Answer != "Paris." || len(result.Sources) != 1 {
		t.Errorf("result = %+v", result)
	}

	if len(chat.turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(chat.turns))
	}
	turn := chat.turns[0]
	if turn.Scope.Kind != domain.ScopeSingleCourse || turn.Scope.CourseID != "507f1f77bcf86cd799439011" {
		t.Errorf("scope = %+v", turn.Scope)
	}
}

func TestChat_DefaultScope(t *testing.T) {
	chat := &fakeChat{result: &domain.AnswerResult{Answer: "ok"}}
	h := newTestServer(&fakeStore{}, chat, &fakeIngest{})

	do(t, h, "POST", "/api/chat", strings.NewReader(`{"query":"q"}`), "application/json")
	if len(chat.turns) != 1 {
		t.Fatal("chat not called")
	}
	if chat.turns[0].Scope.Kind != domain.ScopeAllCourses {
		t.Errorf("default scope = %v, want all courses", chat.turns[0].Scope.Kind)
	}
	if chat.turns[0].Mode != domain.ModeDocuments {
		t.Errorf("default mode = %v, want documents", chat.turns[0].Mode)
	}
}

func TestChat_BadScope(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{}, &fakeIngest{})
	rec := do(t, h, "POST", "/api/chat", strings.NewReader(`{"query":"q","scope":"galaxy"}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unavailable", domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"generation", fmt.Errorf("model: %w", domain.ErrGeneration), http.StatusBadGateway},
		{"embedding", fmt.Errorf("model: %w", domain.ErrEmbedding), http.StatusBadGateway},
		{"not found", fmt.Errorf("course: %w", domain.ErrNotFound), http.StatusNotFound},
		{"unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&fakeStore{}, &fakeChat{err: tt.err}, &fakeIngest{})
			rec := do(t, h, "POST", "/api/chat", strings.NewReader(`{"query":"q"}`), "application/json")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestUploadDocument(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{}, &fakeIngest{})
	body, ct := multipartBody(t, "notes.txt", "cell biology basics")
	rec := do(t, h, "POST", "/api/collections/507f1f77bcf86cd799439011/subjects/0/documents", body, ct)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var doc domain.Document
	json.NewDecoder(rec.Body).Decode(&doc)
	if doc.Filename != "notes.txt" || doc.Content != "cell biology basics" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestUploadDocument_MissingFile(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{}, &fakeIngest{})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "x")
	mw.Close()
	rec := do(t, h, "POST", "/api/collections/507f1f77bcf86cd799439011/subjects/0/documents", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUploadDocument_BadIndex(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{}, &fakeIngest{})
	body, ct := multipartBody(t, "notes.txt", "x")
	rec := do(t, h, "POST", "/api/collections/507f1f77bcf86cd799439011/subjects/zero/documents", body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUploadFile(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{}, &fakeIngest{})
	body, ct := multipartBody(t, "paper.txt", strings.Repeat("a", 600))
	rec := do(t, h, "POST", "/api/uploads", body, ct)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp uploadSummary
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.ContentPreview) != 500 {
		t.Errorf("preview length = %d, want 500", len(resp.ContentPreview))
	}
}

func TestDeleteUpload_NotFound(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{}, &fakeIngest{})
	rec := do(t, h, "DELETE", "/api/uploads/507f1f77bcf86cd799439099", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{}, &fakeIngest{})
	rec := do(t, h, "GET", "/api/search?q=mitosis", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Query   string              `json:"query"`
		Results []catalog.SearchHit `json:"results"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Query != "mitosis" || len(resp.Results) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{}, &fakeIngest{})
	rec := do(t, h, "GET", "/api/search", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(&fakeStore{}, &fakeChat{result: &domain.AnswerResult{Answer: "x"}}, &fakeIngest{})
	do(t, h, "POST", "/api/chat", strings.NewReader(`{"query":"q"}`), "application/json")

	rec := do(t, h, "GET", "/metrics", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "chat_requests_total") {
		t.Errorf("metrics missing chat counter:\n%s", rec.Body.String())
	}
}
