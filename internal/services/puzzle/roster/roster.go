// Package roster loads the generator-model manifest. The manifest is the
// single source of roster order, which drives rotation and ranking
// tie-breaks.
package roster

import (
	"fmt"
	"os"
	"strings"
	"time"

	apperrors "github.com/dailystump/stumpd/internal/platform/errors"
	"gopkg.in/yaml.v3"
)

// Entry describes one registered generator model.
type Entry struct {
	ID       string `yaml:"id"`
	Provider string `yaml:"provider"`
	// Endpoint is the base URL of the model's bridge service. Entries
	// without one can only be used with an injected model resolver.
	Endpoint string `yaml:"endpoint"`
	// GenerateTimeout bounds this model's generation calls; zero uses the
	// platform default.
	GenerateTimeout time.Duration `yaml:"generate_timeout"`
	// SolveTimeout bounds this model's solve calls; zero uses the platform
	// default.
	SolveTimeout time.Duration `yaml:"solve_timeout"`
}

// Manifest is the parsed roster file.
type Manifest struct {
	Models []Entry `yaml:"models"`
}

var (
	// ErrEmpty indicates a manifest without any models.
	ErrEmpty = apperrors.New(apperrors.CodeRosterEmpty, "roster manifest has no models")
	// ErrInvalidEntry indicates a malformed manifest entry.
	ErrInvalidEntry = apperrors.New(apperrors.CodeRosterInvalidEntry, "roster entry is invalid")
)

// Parse decodes and validates a manifest payload.
func Parse(data []byte) (Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("parse roster manifest: %w", err)
	}
	if len(manifest.Models) == 0 {
		return Manifest{}, ErrEmpty
	}

	seen := make(map[string]struct{}, len(manifest.Models))
	for i := range manifest.Models {
		entry := &manifest.Models[i]
		entry.ID = strings.TrimSpace(entry.ID)
		entry.Provider = strings.TrimSpace(entry.Provider)
		entry.Endpoint = strings.TrimSpace(entry.Endpoint)
		if entry.ID == "" {
			return Manifest{}, apperrors.Wrap(apperrors.CodeRosterInvalidEntry, fmt.Sprintf("roster entry %d has no id", i), ErrInvalidEntry)
		}
		if _, dup := seen[entry.ID]; dup {
			return Manifest{}, apperrors.Wrap(apperrors.CodeRosterInvalidEntry, fmt.Sprintf("duplicate roster id %q", entry.ID), ErrInvalidEntry)
		}
		seen[entry.ID] = struct{}{}
		if entry.GenerateTimeout < 0 || entry.SolveTimeout < 0 {
			return Manifest{}, apperrors.Wrap(apperrors.CodeRosterInvalidEntry, fmt.Sprintf("roster entry %q has a negative timeout", entry.ID), ErrInvalidEntry)
		}
	}
	return manifest, nil
}

// Load reads and parses a manifest file.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read roster manifest: %w", err)
	}
	return Parse(data)
}

// IDs returns model identifiers in manifest order.
func (m Manifest) IDs() []string {
	ids := make([]string, 0, len(m.Models))
	for _, entry := range m.Models {
		ids = append(ids, entry.ID)
	}
	return ids
}

// Entry returns the manifest entry for a model id.
func (m Manifest) Entry(id string) (Entry, bool) {
	for _, entry := range m.Models {
		if entry.ID == id {
			return entry, true
		}
	}
	return Entry{}, false
}
