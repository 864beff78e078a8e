// Package catalog persists course collections and ad-hoc uploaded files in
// MongoDB. Courses are stored as nested documents (subjects embedded in their
// course, documents embedded in their subject) so a whole course loads in one
// round trip.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/RNS-Forge/Collexa.AI/engine/domain"
)

const (
	coursesCollection = "collections"
	uploadsCollection = "uploaded_files"
)

// Store is the MongoDB-backed course and upload catalog. It implements
// corpus.CourseSource and ingest.CatalogWriter.
type Store struct {
	courses *mongo.Collection
	uploads *mongo.Collection
}

// NewStore wraps the given database.
func NewStore(db *mongo.Database) *Store {
	return &Store{
		courses: db.Collection(coursesCollection),
		uploads: db.Collection(uploadsCollection),
	}
}

type courseRecord struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Subjects []domain.Subject   `bson:"subjects"`
}

type uploadRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Filename   string             `bson:"filename"`
	Content    string             `bson:"content"`
	UploadedAt time.Time          `bson:"uploaded_at"`
}

func toCourse(rec courseRecord) domain.Course {
	subjects := rec.Subjects
	if subjects == nil {
		subjects = []domain.Subject{}
	}
	return domain.Course{ID: rec.ID.Hex(), Name: rec.Name, Subjects: subjects}
}

func toUpload(rec uploadRecord) domain.UploadedFile {
	return domain.UploadedFile{
		ID:         rec.ID.Hex(),
		Filename:   rec.Filename,
		Content:    rec.Content,
		UploadedAt: rec.UploadedAt,
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	if err := domain.ValidateObjectID("id", id); err != nil {
		return primitive.NilObjectID, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.NewValidationError("id", id, "not a valid object id")
	}
	return oid, nil
}

// CreateCourse inserts an empty course collection and returns it with its
// assigned id.
func (s *Store) CreateCourse(ctx context.Context, name string) (domain.Course, error) {
	if name == "" {
		return domain.Course{}, domain.NewValidationError("name", name, "must not be empty")
	}
	rec := courseRecord{Name: name, Subjects: []domain.Subject{}}
	res, err := s.courses.InsertOne(ctx, rec)
	if err != nil {
		return domain.Course{}, fmt.Errorf("insert course: %w", err)
	}
	rec.ID = res.InsertedID.(primitive.ObjectID)
	return toCourse(rec), nil
}

// Courses lists every course collection.
func (s *Store) Courses(ctx context.Context) ([]domain.Course, error) {
	cur, err := s.courses.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	var recs []courseRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode courses: %w", err)
	}
	out := make([]domain.Course, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toCourse(rec))
	}
	return out, nil
}

// Course fetches one course by id.
func (s *Store) Course(ctx context.Context, id string) (domain.Course, error) {
	oid, err := parseID(id)
	if err != nil {
		return domain.Course{}, err
	}
	var rec courseRecord
	err = s.courses.FindOne(ctx, bson.M{"_id": oid}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Course{}, fmt.Errorf("course %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("fetch course: %w", err)
	}
	return toCourse(rec), nil
}

// DeleteCourse removes a course and everything nested in it.
func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.courses.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("course %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// AddSubject appends a new empty subject to a course.
func (s *Store) AddSubject(ctx context.Context, courseID, name string) error {
	if name == "" {
		return domain.NewValidationError("subject", name, "must not be empty")
	}
	oid, err := parseID(courseID)
	if err != nil {
		return err
	}
	subject := domain.Subject{Name: name, Documents: []domain.Document{}}
	res, err := s.courses.UpdateByID(ctx, oid, bson.M{"$push": bson.M{"subjects": subject}})
	if err != nil {
		return fmt.Errorf("add subject: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("course %s: %w", courseID, domain.ErrNotFound)
	}
	return nil
}

// RemoveSubject deletes the subject at the given position. Positional removal
// has no single-operator form in MongoDB, so the element is nulled out first
// and then pulled.
func (s *Store) RemoveSubject(ctx context.Context, courseID string, index int) error {
	oid, err := parseID(courseID)
	if err != nil {
		return err
	}
	if index < 0 {
		return domain.NewValidationError("subject_index", fmt.Sprint(index), "must not be negative")
	}
	field := fmt.Sprintf("subjects.%d", index)
	res, err := s.courses.UpdateByID(ctx, oid, bson.M{"$unset": bson.M{field: 1}})
	if err != nil {
		return fmt.Errorf("unset subject: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("course %s: %w", courseID, domain.ErrNotFound)
	}
	if res.ModifiedCount == 0 {
		return fmt.Errorf("subject %d: %w", index, domain.ErrNotFound)
	}
	if _, err := s.courses.UpdateByID(ctx, oid, bson.M{"$pull": bson.M{"subjects": nil}}); err != nil {
		return fmt.Errorf("pull subject: %w", err)
	}
	return nil
}

// AddDocument appends a document to the subject at the given position.
func (s *Store) AddDocument(ctx context.Context, courseID string, subjectIndex int, doc domain.Document) error {
	oid, err := parseID(courseID)
	if err != nil {
		return err
	}
	if subjectIndex < 0 {
		return domain.NewValidationError("subject_index", fmt.Sprint(subjectIndex), "must not be negative")
	}
	field := fmt.Sprintf("subjects.%d.documents", subjectIndex)
	res, err := s.courses.UpdateByID(ctx, oid, bson.M{"$push": bson.M{field: doc}})
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("course %s: %w", courseID, domain.ErrNotFound)
	}
	if res.ModifiedCount == 0 {
		return fmt.Errorf("subject %d: %w", subjectIndex, domain.ErrNotFound)
	}
	return nil
}

// RemoveDocument deletes every document with the given filename from the
// subject at the given position.
func (s *Store) RemoveDocument(ctx context.Context, courseID string, subjectIndex int, filename string) error {
	oid, err := parseID(courseID)
	if err != nil {
		return err
	}
	if subjectIndex < 0 {
		return domain.NewValidationError("subject_index", fmt.Sprint(subjectIndex), "must not be negative")
	}
	field := fmt.Sprintf("subjects.%d.documents", subjectIndex)
	res, err := s.courses.UpdateByID(ctx, oid, bson.M{"$pull": bson.M{field: bson.M{"filename": filename}}})
	if err != nil {
		return fmt.Errorf("remove document: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("course %s: %w", courseID, domain.ErrNotFound)
	}
	if res.ModifiedCount == 0 {
		return fmt.Errorf("document %s: %w", filename, domain.ErrNotFound)
	}
	return nil
}

// AddUploadedFile stores an ad-hoc upload and returns it with its assigned id.
func (s *Store) AddUploadedFile(ctx context.Context, filename, content string) (domain.UploadedFile, error) {
	rec := uploadRecord{Filename: filename, Content: content, UploadedAt: time.Now().UTC()}
	res, err := s.uploads.InsertOne(ctx, rec)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("insert upload: %w", err)
	}
	rec.ID = res.InsertedID.(primitive.ObjectID)
	return toUpload(rec), nil
}

// UploadedFiles lists every ad-hoc upload.
func (s *Store) UploadedFiles(ctx context.Context) ([]domain.UploadedFile, error) {
	cur, err := s.uploads.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	var recs []uploadRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode uploads: %w", err)
	}
	out := make([]domain.UploadedFile, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toUpload(rec))
	}
	return out, nil
}

// DeleteUploadedFile removes one upload by id.
func (s *Store) DeleteUploadedFile(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.uploads.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("upload %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
