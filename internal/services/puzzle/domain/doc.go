// Package domain models the daily puzzle lifecycle: categories, difficulty
// state, generator rotation, puzzle lifecycle states, answer equivalence,
// solve-window verdicts, and stump tallies.
//
// The package is persistence-free. Rules here are pure and deterministic;
// the app package drives them against storage and AI capabilities.
package domain
