package errors

import (
	"strings"
	"unicode"
)

// ValidateCoordinate validates a single identifier coordinate (type, namespace,
// name or version) for safety and correctness. It rejects values that could be
// used for path traversal or injection when coordinates end up in cache keys
// or file names.
//
// The validation rules are intentionally conservative:
//   - No control characters or null bytes
//   - No path traversal sequences (.., //)
//   - Maximum length of 256 characters
//
// Ecosystem-specific validation (case folding, allowed characters) is done by
// the package-manager plugins before an Identifier is constructed.
func ValidateCoordinate(value string) error {
	if len(value) > 256 {
		return New(ErrCodeInvalidIdentifier, "coordinate too long (max 256 characters)")
	}

	for _, r := range value {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidIdentifier, "coordinate contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(value, pattern) {
			return New(ErrCodeInvalidIdentifier, "coordinate contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateRepositoryPath validates a file path within a repository for safety.
// It prevents path traversal and ensures reasonable path length. Paths are
// expected to be slash-separated and relative to the repository root.
func ValidateRepositoryPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	if len(path) > 500 {
		return New(ErrCodeInvalidPath, "path too long (max 500 characters)")
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid control characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative")
	}

	for _, segment := range strings.Split(path, "/") {
		if segment == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain parent directory references")
		}
	}

	return nil
}
