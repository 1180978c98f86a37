package classify

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the closed set of triage outcomes: an email either carries an
// actionable request (Produtivo) or is courtesy/social content (Improdutivo).
type Category string

const (
	CategoryProductive   Category = "Produtivo"
	CategoryUnproductive Category = "Improdutivo"
)

// ParseCategory resolves a category from its string form, case-insensitively.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "produtivo":
		return CategoryProductive, nil
	case "improdutivo":
		return CategoryUnproductive, nil
	}
	return "", fmt.Errorf("invalid category: %q", s)
}

func (c Category) String() string { return string(c) }

// Result is a classification outcome.
type Result struct {
	Category   Category
	Confidence float64
}

// NewResult validates the confidence bound at the boundary where a result is
// assembled for external consumption. Internal scorers clamp before calling.
func NewResult(category Category, confidence float64) (Result, error) {
	if confidence < 0 || confidence > 1 {
		return Result{}, fmt.Errorf("confidence must be between 0 and 1, got %v", confidence)
	}
	return Result{Category: category, Confidence: confidence}, nil
}

// ErrAllModelsFailed is returned by the remote tier when every configured
// model call failed. It is always recovered internally by the local fallback.
var ErrAllModelsFailed = errors.New("all remote classification models failed")

// Validation reason codes surfaced to callers.
const (
	ReasonEmptyText = "EMPTY_TEXT"
	ReasonTooShort  = "TEXT_TOO_SHORT"
	ReasonTooLong   = "TEXT_TOO_LONG"
)

// ValidationError reports malformed input. It is the only error class that
// escapes the engine boundary.
type ValidationError struct {
	Code   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
