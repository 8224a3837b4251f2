package errors

import (
	"strings"
	"unicode"
)

// maxSessionIDLength bounds the identifier injected into the viewer.
const maxSessionIDLength = 256

// ValidateSessionID checks a caller-supplied session identifier.
// The identifier must be non-empty and at most 256 bytes long. Control
// characters and HTML markup characters are rejected because the
// identifier is written verbatim into the viewer markup.
func ValidateSessionID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "session identifier cannot be empty")
	}
	if len(id) > maxSessionIDLength {
		return New(ErrCodeInvalidInput, "session identifier too long (max %d characters)", maxSessionIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "session identifier contains control characters")
		}
		if strings.ContainsRune(`<>&"'`, r) {
			return New(ErrCodeInvalidInput, "session identifier contains %q", r)
		}
	}
	return nil
}

// ValidatePath validates a relative path taken from an archive or request.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No parent directory segments (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(p string) error {
	if p == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(p) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range p {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(p, "/") {
		return New(ErrCodeInvalidInput, "path must be relative (cannot start with /)")
	}

	if strings.Contains(p, "\\") {
		return New(ErrCodeInvalidInput, "path cannot contain backslashes")
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return New(ErrCodeInvalidInput, "path cannot contain parent directory segments (..)")
		}
	}

	return nil
}
