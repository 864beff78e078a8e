// Package extract converts uploaded files into plain text. The true file
// type is sniffed from magic bytes before the extension is trusted, since
// browsers routinely upload mislabelled files. Extraction never fails hard:
// a file that cannot be parsed degrades to an error-description string so
// ingestion proceeds regardless of extraction quality.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Text extracts the text content of data. On any parse failure the error
// description itself is returned as the content.
func Text(filename string, data []byte) string {
	if len(data) == 0 {
		return fmt.Sprintf("empty file: %s", filename)
	}
	switch {
	case isPDF(data):
		text, err := pdfText(data)
		if err != nil {
			return err.Error()
		}
		return text
	case isZip(data):
		text, err := docxText(data)
		if err != nil {
			return err.Error()
		}
		return text
	case isProbablyText(data):
		return string(data)
	default:
		ext := strings.ToLower(filepath.Ext(filename))
		return fmt.Sprintf("unsupported file content: %s (ext=%s)", filename, ext)
	}
}

// isPDF reports whether data starts with the %PDF- header.
func isPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// isZip reports whether data starts with a ZIP local file header, the
// container format of DOCX files.
func isZip(data []byte) bool {
	return len(data) >= 4 && data[0] == 'P' && data[1] == 'K' && data[2] == 3 && data[3] == 4
}

// isProbablyText reports whether a sample of data looks like plain text:
// mostly printable or whitespace bytes and no NULs.
func isProbablyText(data []byte) bool {
	sample := data
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return good*10 >= len(sample)*9
}
