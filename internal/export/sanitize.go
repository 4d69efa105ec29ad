package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// SanitizeName strips control characters and filesystem-hostile runes
// from a workbook filename. Letters in any script survive, so Chinese
// titles export under their own name.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsControl(r):
			// drop
		case allowedFilenameRune(r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	cleaned = strings.Trim(cleaned, ".")
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func allowedFilenameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', '(', ')':
		return true
	}
	return false
}

// ValidateOutputDir rejects traversal and non-directories before any
// workbook writing happens.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("output dir is required")
	}

	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return fmt.Errorf("output dir cannot contain path traversal")
		}
	}
	if cleaned := filepath.Clean(dir); cleaned != dir {
		return fmt.Errorf("output dir must be a clean path")
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output dir does not exist")
		}
		return fmt.Errorf("invalid output dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output dir is not a directory")
	}
	return nil
}
