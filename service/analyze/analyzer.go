package analyze

import (
	"context"

	"github.com/pkg/errors"
)

// ItemSuggestion is what the generative-analysis collaborator extracts
// from an item photo: prefilled catalogue metadata the user can edit.
type ItemSuggestion struct {
	Name        string `json:"name"`
	Category    string `json:"category"` // coin | stamp | banknote
	Year        string `json:"year,omitempty"`
	Country     string `json:"country,omitempty"`
	Description string `json:"description,omitempty"`
}

// Analyzer is consumed as an external collaborator; this repo never
// implements it beyond a stub.
type Analyzer interface {
	AnalyzePhoto(ctx context.Context, photoKey string) (*ItemSuggestion, error)
}

// Unavailable is the stub wired when no analysis endpoint is configured.
type Unavailable struct{}

func (Unavailable) AnalyzePhoto(ctx context.Context, photoKey string) (*ItemSuggestion, error) {
	return nil, ErrUnavailable
}

var ErrUnavailable = errors.New("item analysis service not configured")
