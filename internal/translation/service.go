// Package translation turns columns of text into their translations by fanning
// work out over two shared worker pools: chunks of a column on the outer pool,
// groups of a chunk on the inner pool. Results are always reassembled by
// position, never by completion order.
package translation

import (
	"context"
	"errors"
)

// AutoDetect asks the batch client to detect the source language.
const AutoDetect = "auto"

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrNoTranslationPath   = errors.New("no translation path between languages")
	ErrUndetectedLanguage  = errors.New("language detection returned no candidates")
)

// Detection is one language-detection candidate.
type Detection struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Service is the external translation capability. Implementations must be
// safe for concurrent use by many workers.
type Service interface {
	// TranslateOne translates a single text between two resolved language codes.
	TranslateOne(ctx context.Context, text, source, target string) (string, error)
	// DetectLanguages returns candidates ordered by descending confidence.
	DetectLanguages(ctx context.Context, texts []string) ([]Detection, error)
	// IsPathAvailable reports whether source can be translated directly to target.
	IsPathAvailable(source, target string) bool
}
