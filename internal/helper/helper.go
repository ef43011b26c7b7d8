package helper

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// RequestID creates a random unique id for request tracing.
func RequestID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// FormatFromFilename derives a declared format from a file name extension.
// Returns "" when the name has no extension.
func FormatFromFilename(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}
