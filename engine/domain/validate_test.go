package domain

import (
	"errors"
	"testing"
)

func TestValidateObjectID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid lowercase", "507f1f77bcf86cd799439011", false},
		{"valid mixed case", "507F1F77BCF86CD799439011", false},
		{"empty", "", true},
		{"undefined literal", "undefined", true},
		{"too short", "507f1f77bcf86cd7994390", true},
		{"too long", "507f1f77bcf86cd79943901122", true},
		{"non-hex", "507f1f77bcf86cd79943901z", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectID("collection_id", tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateObjectID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("expected error to wrap ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	for _, name := range []string{"notes.pdf", "Notes.PDF", "thesis.docx", "readme.txt"} {
		if err := ValidateFilename(name); err != nil {
			t.Errorf("ValidateFilename(%q) = %v, want nil", name, err)
		}
	}
	for _, name := range []string{"image.png", "archive.zip", "noext", ""} {
		if err := ValidateFilename(name); err == nil {
			t.Errorf("ValidateFilename(%q) = nil, want error", name)
		}
	}
}

func TestValidateChatTurn(t *testing.T) {
	good := ChatTurn{
		Query: "How do neural networks learn?",
		Scope: SingleCourse("507f1f77bcf86cd799439011"),
		Mode:  ModeDocuments,
	}
	if err := ValidateChatTurn(good); err != nil {
		t.Fatalf("valid turn rejected: %v", err)
	}

	empty := good
	empty.Query = "   "
	if err := ValidateChatTurn(empty); err == nil {
		t.Error("expected error for blank query")
	}

	badMode := good
	badMode.Mode = "chatty"
	if err := ValidateChatTurn(badMode); err == nil {
		t.Error("expected error for unknown mode")
	}

	badID := good
	badID.Scope = SingleCourse("nope")
	if err := ValidateChatTurn(badID); err == nil {
		t.Error("expected error for malformed collection id")
	}

	uploads := good
	uploads.Scope = UploadedFileSet()
	uploads.Mode = ModeGeneral
	if err := ValidateChatTurn(uploads); err != nil {
		t.Errorf("uploads scope should not require an id: %v", err)
	}
}

func TestSourceLabel(t *testing.T) {
	tests := []struct {
		course, subject, filename string
		want                      string
	}{
		{"Machine Learning", "Week 1", "intro.pdf", "Machine Learning > Week 1 > intro.pdf"},
		{"", "", "upload.docx", "upload.docx"},
		{"Physics", "", "notes.txt", "Physics > notes.txt"},
	}
	for _, tt := range tests {
		if got := SourceLabel(tt.course, tt.subject, tt.filename); got != tt.want {
			t.Errorf("SourceLabel(%q,%q,%q) = %q, want %q", tt.course, tt.subject, tt.filename, got, tt.want)
		}
	}
}
