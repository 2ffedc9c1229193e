package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// mavenIDRegex matches groupId and artifactId segments.
var mavenIDRegex = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// ValidateCoordinatePart validates a single groupId, artifactId, extension or
// classifier segment of an artifact coordinate. what names the segment in the
// returned error.
//
// Rules:
//   - No empty values
//   - Maximum length of 256 characters
//   - Only letters, digits, '.', '-' and '_'
//   - No path traversal sequences
func ValidateCoordinatePart(what, value string) error {
	if value == "" {
		return New(ErrCodeInvalidCoordinate, "%s cannot be empty", what)
	}
	if len(value) > 256 {
		return New(ErrCodeInvalidCoordinate, "%s too long (max 256 characters)", what)
	}
	if strings.Contains(value, "..") {
		return New(ErrCodeInvalidCoordinate, "%s contains path traversal sequence: %q", what, value)
	}
	if !mavenIDRegex.MatchString(value) {
		return New(ErrCodeInvalidCoordinate, "invalid %s: %q", what, value)
	}
	return nil
}

// ValidateVersion validates an artifact version string. Versions may contain
// range syntax characters, so only control characters, path separators and
// whitespace are rejected.
func ValidateVersion(version string) error {
	if version == "" {
		return New(ErrCodeInvalidCoordinate, "version cannot be empty")
	}
	if len(version) > 256 {
		return New(ErrCodeInvalidCoordinate, "version too long (max 256 characters)")
	}
	for _, r := range version {
		if unicode.IsControl(r) || unicode.IsSpace(r) || r == '/' || r == '\\' {
			return New(ErrCodeInvalidCoordinate, "version contains invalid characters: %q", version)
		}
	}
	return nil
}

// ValidatePath validates a path relative to a repository root.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateDir validates a directory given on the command line or in the
// configuration file. Unlike ValidatePath it accepts absolute paths.
func ValidateDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return New(ErrCodeInvalidPath, "directory cannot be empty")
	}
	for _, r := range dir {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "directory contains invalid characters")
		}
	}
	return nil
}

// ValidateURL validates a repository URL string.
// It ensures the URL has a safe scheme (http, https or file).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	for _, scheme := range []string{"http://", "https://", "file://"} {
		if strings.HasPrefix(rawURL, scheme) {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "URL must use http, https or file scheme")
}
