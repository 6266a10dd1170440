package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// maxIDLength bounds element and session identifiers.
const maxIDLength = 512

// ValidateElementID validates a node, edge or container id from an uploaded
// document. Ids are opaque to the model but end up in URLs, cache keys and
// file names, so control characters and unbounded lengths are rejected.
func ValidateElementID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "element id cannot be empty")
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidID, "element id too long (max %d characters)", maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidID, "element id contains invalid control characters")
		}
	}

	return nil
}

// sessionIDRegex matches the canonical textual form of a UUID.
var sessionIDRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateSessionID validates a viewer session id.
// Session ids are used as file names by the file store, so anything other
// than a lowercase UUID is rejected.
func ValidateSessionID(id string) error {
	if !sessionIDRegex.MatchString(id) {
		return New(ErrCodeInvalidID, "invalid session id: %q", id)
	}
	return nil
}

// ValidateDocumentPath validates a graph document path given on the command
// line or in the config file.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
//   - Extension must be .json
func ValidateDocumentPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "document path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "document path contains invalid characters")
		}
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return New(ErrCodeInvalidFormat, "document must be a .json file, got %q", ext)
	}

	return nil
}
