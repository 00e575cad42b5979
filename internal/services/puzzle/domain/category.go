package domain

import (
	"strings"

	apperrors "github.com/dailystump/stumpd/internal/platform/errors"
)

// Category identifies a puzzle domain evaluated independently each day.
type Category string

const (
	// CategoryMath covers algebra, geometry, and number puzzles.
	CategoryMath Category = "math"
	// CategoryWord covers wordplay, riddles, and language puzzles.
	CategoryWord Category = "word"
	// CategoryArt covers visual arts and cultural-knowledge puzzles.
	CategoryArt Category = "art"
)

// ErrUnknownCategory indicates a category outside the fixed set.
var ErrUnknownCategory = apperrors.New(apperrors.CodeUnknownCategory, "unknown puzzle category")

// Categories returns every category in rotation-offset order.
func Categories() []Category {
	return []Category{CategoryMath, CategoryWord, CategoryArt}
}

// ParseCategory canonicalizes a category label.
func ParseCategory(value string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(value))) {
	case CategoryMath:
		return CategoryMath, nil
	case CategoryWord:
		return CategoryWord, nil
	case CategoryArt:
		return CategoryArt, nil
	default:
		return "", ErrUnknownCategory
	}
}

// RotationOffset returns the fixed per-category offset used by generator
// rotation so that distinct categories land on distinct models for a given
// date whenever the roster is large enough.
func (c Category) RotationOffset() int {
	switch c {
	case CategoryMath:
		return 0
	case CategoryWord:
		return 1
	case CategoryArt:
		return 2
	default:
		return 0
	}
}
