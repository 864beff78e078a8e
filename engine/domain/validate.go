package domain

import (
	"path/filepath"
	"regexp"
	"strings"
)

// objectIDRegex matches a 24-character hex MongoDB object id.
var objectIDRegex = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// AllowedExtensions lists the file types accepted for upload.
var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
}

// ValidateObjectID rejects missing or malformed object ids. The literal
// string "undefined" shows up when a broken frontend interpolates a missing
// value, so it is rejected explicitly.
func ValidateObjectID(field, id string) error {
	if id == "" || id == "undefined" || !objectIDRegex.MatchString(id) {
		return NewValidationError(field, id, "must be a 24-character hex id")
	}
	return nil
}

// ValidateQuery rejects empty chat queries.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return NewValidationError("query", query, "must not be empty")
	}
	return nil
}

// ValidateFilename rejects uploads with unsupported file extensions.
func ValidateFilename(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !AllowedExtensions[ext] {
		return NewValidationError("filename", filename, "only PDF, DOCX, or TXT files are allowed")
	}
	return nil
}

// ValidateChatTurn checks a chat request before any external call is made.
func ValidateChatTurn(turn ChatTurn) error {
	if err := ValidateQuery(turn.Query); err != nil {
		return err
	}
	if !turn.Mode.Valid() {
		return NewValidationError("mode", string(turn.Mode), "must be documents or general")
	}
	if turn.Scope.Kind == ScopeSingleCourse {
		return ValidateObjectID("collection_id", turn.Scope.CourseID)
	}
	return nil
}
