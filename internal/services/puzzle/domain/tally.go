package domain

import (
	"sort"
	"time"
)

// StumpTally tracks cumulative generated/stumped counts for one
// (model, category) pair. SuccessfulStumps never exceeds TotalGenerated.
type StumpTally struct {
	Model            string
	Category         Category
	TotalGenerated   int
	SuccessfulStumps int
	UpdatedAt        time.Time
}

// StumpRate returns stumps over generated puzzles, or 0 when the model has
// not generated anything yet.
func (t StumpTally) StumpRate() float64 {
	if t.TotalGenerated <= 0 {
		return 0
	}
	return float64(t.SuccessfulStumps) / float64(t.TotalGenerated)
}

// RankedTally is one row of the stump leaderboard.
type RankedTally struct {
	Model            string
	Category         Category
	SuccessfulStumps int
	TotalGenerated   int
	StumpRate        float64
}

// RankTallies orders tallies descending by stump rate, then by stump count,
// then by roster order. Models absent from the roster sort after roster
// members in input order, keeping the ranking stable and deterministic.
func RankTallies(tallies []StumpTally, roster []string) []RankedTally {
	rosterIndex := make(map[string]int, len(roster))
	for i, model := range roster {
		rosterIndex[model] = i
	}
	position := func(model string) int {
		if i, ok := rosterIndex[model]; ok {
			return i
		}
		return len(roster)
	}

	ranked := make([]RankedTally, 0, len(tallies))
	for _, tally := range tallies {
		ranked = append(ranked, RankedTally{
			Model:            tally.Model,
			Category:         tally.Category,
			SuccessfulStumps: tally.SuccessfulStumps,
			TotalGenerated:   tally.TotalGenerated,
			StumpRate:        tally.StumpRate(),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].StumpRate != ranked[j].StumpRate {
			return ranked[i].StumpRate > ranked[j].StumpRate
		}
		if ranked[i].SuccessfulStumps != ranked[j].SuccessfulStumps {
			return ranked[i].SuccessfulStumps > ranked[j].SuccessfulStumps
		}
		return position(ranked[i].Model) < position(ranked[j].Model)
	})
	return ranked
}
