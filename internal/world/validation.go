// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Validation limits for names.
const (
	MaxNameLength         = 100
	MaxPropertyNameLength = 64
	MaxVerbNames          = 16
	MaxVerbNameLength     = 64
)

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateName checks an object display name.
// Names may be empty (fresh objects have no name), but must be valid UTF-8,
// free of control characters, and within the length limit.
func ValidateName(name string) error {
	if !utf8.ValidString(name) {
		return &ValidationError{Field: "name", Message: "must be valid UTF-8"}
	}
	if len(name) > MaxNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("exceeds maximum length of %d", MaxNameLength)}
	}
	if hasControlChars(name) {
		return &ValidationError{Field: "name", Message: "cannot contain control characters"}
	}
	return nil
}

// ValidatePropertyName checks a property name. Property names are identifiers.
func ValidatePropertyName(name string) error {
	if name == "" {
		return &ValidationError{Field: "property", Message: "cannot be empty"}
	}
	if len(name) > MaxPropertyNameLength {
		return &ValidationError{Field: "property", Message: fmt.Sprintf("exceeds maximum length of %d", MaxPropertyNameLength)}
	}
	if !isValidIdentifier(name) {
		return &ValidationError{Field: "property", Message: fmt.Sprintf("%q is not a valid identifier", name)}
	}
	return nil
}

// ValidateVerbNames checks the name list of a verb.
func ValidateVerbNames(names []string) error {
	if len(names) == 0 {
		return &ValidationError{Field: "names", Message: "a verb needs at least one name"}
	}
	if len(names) > MaxVerbNames {
		return &ValidationError{Field: "names", Message: fmt.Sprintf("exceeds maximum count of %d", MaxVerbNames)}
	}
	for i, name := range names {
		if name == "" {
			return &ValidationError{Field: "names", Message: fmt.Sprintf("name %d cannot be empty", i)}
		}
		if !utf8.ValidString(name) {
			return &ValidationError{Field: "names", Message: fmt.Sprintf("name %d must be valid UTF-8", i)}
		}
		if len(name) > MaxVerbNameLength {
			return &ValidationError{Field: "names", Message: fmt.Sprintf("name %d exceeds maximum length of %d", i, MaxVerbNameLength)}
		}
		for _, r := range name {
			if unicode.IsSpace(r) || unicode.IsControl(r) {
				return &ValidationError{Field: "names", Message: fmt.Sprintf("name %d cannot contain whitespace", i)}
			}
		}
	}
	return nil
}

// hasControlChars returns true if s contains any control characters.
func hasControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

// isValidIdentifier checks if s is a valid identifier (letters, digits, underscores, starting with letter or underscore).
func isValidIdentifier(s string) bool {
	for i, r := range s {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

// validationFailed converts a ValidationError into an E_INVARG world error.
func validationFailed(op string, err error) error {
	return errWith(CodeInvalidArgument).With("operation", op).Wrap(err)
}
