// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package specs

import "time"

// Method version tags recorded in Meta. Bump only with the algorithm.
const (
	MethodAggregated = "mhv/1"  // mode-with-highest-value over votes
	MethodHostEdited = "host/1" // host override, votes not consulted
)

// Meta describes how a final configuration was produced.
type Meta struct {
	MethodVersion  string    `json:"method_version"`
	SelectionCount int       `json:"selection_count"`
	ComputedAt     time.Time `json:"computed_at"`
	ConfigID       string    `json:"config_id"`
}

// ComputeFinalConfig reduces any number of selections to one canonical
// configuration. Categorical fields use majority vote with ties resolved
// by the field's priority list (Models, Goals). Ordinal dials use the
// mode of the clamped votes, frequency ties broken toward the numerically
// highest value, then raised to the highest original vote that clamps to
// the winning value (never above LevelHigh).
//
// The result is deterministic: reordering selections never changes it,
// and only ComputedAt varies between calls. An empty input yields
// Default() with a count of zero. Unknown categorical values are
// rejected, not coerced.
func ComputeFinalConfig(selections []Config, now time.Time) (Config, Meta, error) {
	for i := range selections {
		if err := Validate(selections[i]); err != nil {
			return Config{}, Meta{}, err
		}
	}

	final := Default()
	if len(selections) > 0 {
		models := make([]string, len(selections))
		goals := make([]string, len(selections))
		for i, s := range selections {
			models[i] = s.Model
			goals[i] = s.Goal
		}
		final.Model = majority(models, Models)
		final.Goal = majority(goals, Goals)

		for _, d := range Dials {
			votes := make([]int, len(selections))
			for i := range selections {
				votes[i] = d.Get(&selections[i])
			}
			d.Set(&final, modeHighest(votes))
		}
	}

	meta := Meta{
		MethodVersion:  MethodAggregated,
		SelectionCount: len(selections),
		ComputedAt:     now,
		ConfigID:       HashConfig(final),
	}
	return final, meta, nil
}

// majority returns the most frequent vote; among equally frequent values
// the first one in priority order wins. priority must cover every vote.
func majority(votes []string, priority []string) string {
	counts := make(map[string]int, len(priority))
	for _, v := range votes {
		counts[v]++
	}
	best := 0
	for _, n := range counts {
		if n > best {
			best = n
		}
	}
	for _, p := range priority {
		if counts[p] == best {
			return p
		}
	}
	return priority[0]
}

// modeHighest implements the mode-with-highest-original-value rule for one
// dial. Votes are clamped before tallying; frequency ties go to the
// numerically highest clamped value; the winner is then raised to the
// highest original vote that clamps onto it, re-clamped.
func modeHighest(votes []int) int {
	var counts [LevelHigh + 1]int
	for _, v := range votes {
		counts[clampLevel(v)]++
	}

	winner, best := LevelNone, 0
	for level := LevelNone; level <= LevelHigh; level++ {
		if counts[level] >= best && counts[level] > 0 {
			winner, best = level, counts[level]
		}
	}

	// Prefer the stronger ask among votes that landed on the winner.
	result := winner
	for _, v := range votes {
		if clampLevel(v) == winner && v > result {
			result = v
		}
	}
	return clampLevel(result)
}
