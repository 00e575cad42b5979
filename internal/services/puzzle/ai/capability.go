// Package ai defines the narrow contracts the puzzle service consumes from
// generative AI integrations. Concrete provider clients live outside this
// module and are plugged into the runtime.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
)

// Candidate is a generated puzzle proposal awaiting validation.
type Candidate struct {
	Question    string
	Solution    string
	Interaction domain.Interaction
	Explanation string
	MediaURL    string
	Hints       []string
}

// Content converts the candidate into publishable puzzle content.
func (c Candidate) Content() domain.Content {
	return domain.Content{
		Question:    c.Question,
		Solution:    c.Solution,
		Interaction: c.Interaction,
		Explanation: c.Explanation,
		MediaURL:    c.MediaURL,
		Hints:       c.Hints,
	}
}

// Generator produces a candidate puzzle at a target difficulty.
type Generator interface {
	Generate(ctx context.Context, category domain.Category, difficulty float64) (Candidate, error)
}

// Solver attempts to answer a puzzle question. The same capability backs
// self- and cross-validation.
type Solver interface {
	Solve(ctx context.Context, question string, interaction domain.Interaction) (string, error)
}

// Model couples a stable identifier with both capabilities.
type Model interface {
	ID() string
	Generator
	Solver
}

// Roster is the ordered set of registered models. Order is significant: it
// drives rotation and ranking tie-breaks.
type Roster struct {
	models []Model
	byID   map[string]Model
}

// NewRoster builds a roster from ordered models, rejecting blank or
// duplicate identifiers.
func NewRoster(models ...Model) (Roster, error) {
	byID := make(map[string]Model, len(models))
	ordered := make([]Model, 0, len(models))
	for _, model := range models {
		if model == nil {
			return Roster{}, fmt.Errorf("nil model in roster")
		}
		id := strings.TrimSpace(model.ID())
		if id == "" {
			return Roster{}, fmt.Errorf("model id is required")
		}
		if _, exists := byID[id]; exists {
			return Roster{}, fmt.Errorf("duplicate model id %q", id)
		}
		byID[id] = model
		ordered = append(ordered, model)
	}
	return Roster{models: ordered, byID: byID}, nil
}

// Len returns the roster size.
func (r Roster) Len() int {
	return len(r.models)
}

// IDs returns model identifiers in roster order.
func (r Roster) IDs() []string {
	ids := make([]string, 0, len(r.models))
	for _, model := range r.models {
		ids = append(ids, model.ID())
	}
	return ids
}

// Get returns the model with the given identifier.
func (r Roster) Get(id string) (Model, bool) {
	model, ok := r.byID[id]
	return model, ok
}

// Others returns every roster model except the given one, in roster order.
// These are the cross-validation participants for a puzzle.
func (r Roster) Others(id string) []Model {
	others := make([]Model, 0, len(r.models))
	for _, model := range r.models {
		if model.ID() == id {
			continue
		}
		others = append(others, model)
	}
	return others
}
