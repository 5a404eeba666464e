// Package report implements the report execution core: output format
// registry, parameter transformation, execution tracking, and the engine
// that drives synchronous and asynchronous runs against JasperReports.
package report

import (
	"strings"

	"github.com/teranos/jasper-mcp/mcperr"
)

// FormatDescriptor describes one supported output representation.
type FormatDescriptor struct {
	Format    string `json:"format"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
	Binary    bool   `json:"binary"`
}

// formatRegistry lists every export format the engine accepts, in the
// order they are presented to clients. Keys are unique and lowercase.
var formatRegistry = []FormatDescriptor{
	{"pdf", "application/pdf", "pdf", true},
	{"html", "text/html", "html", false},
	{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", true},
	{"csv", "text/csv", "csv", false},
	{"rtf", "application/rtf", "rtf", true},
	{"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx", true},
	{"xls", "application/vnd.ms-excel", "xls", true},
	{"ods", "application/vnd.oasis.opendocument.spreadsheet", "ods", true},
	{"odt", "application/vnd.oasis.opendocument.text", "odt", true},
	{"pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation", "pptx", true},
}

// Formats returns the supported output formats in stable order.
// The slice is a copy; callers may hold or modify it freely.
func Formats() []FormatDescriptor {
	out := make([]FormatDescriptor, len(formatRegistry))
	copy(out, formatRegistry)
	return out
}

// ResolveFormat looks up a format descriptor, case-insensitively.
// Unknown formats fail with a normalized validation error.
func ResolveFormat(format string) (FormatDescriptor, error) {
	key := strings.ToLower(strings.TrimSpace(format))
	for _, fd := range formatRegistry {
		if fd.Format == key {
			return fd, nil
		}
	}
	return FormatDescriptor{}, mcperr.NewValidationError([]mcperr.FieldError{{
		Field:   "outputFormat",
		Message: "unsupported format: " + format,
	}})
}
