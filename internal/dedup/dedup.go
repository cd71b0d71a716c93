// Package dedup decides which freshly fetched games have not been announced yet.
package dedup

import (
	"errors"
	"fmt"

	"finalscore/bot/internal/models"
)

// ErrInvalidInput is returned when the fetched set cannot be reconciled with the baseline.
// Callers should skip announcing and keep the old baseline.
var ErrInvalidInput = errors.New("invalid dedup input")

// ComputeNewGames returns the games in fetched whose ids are not in baseline,
// oldest-completed first.
//
// fetched is ordered most-recently-completed first, so the result is the new games
// in reverse fetch order. A fetch that is no longer than the baseline yields nothing.
func ComputeNewGames(fetched, baseline []models.GameRecord) ([]models.GameRecord, error) {
	seen := make(map[string]struct{}, len(fetched))
	for _, g := range fetched {
		if _, dup := seen[g.GameID]; dup {
			return nil, fmt.Errorf("%w: game %s fetched twice", ErrInvalidInput, g.GameID)
		}
		seen[g.GameID] = struct{}{}
	}

	if len(fetched) < len(baseline) {
		for _, g := range baseline {
			if _, ok := seen[g.GameID]; !ok {
				return nil, fmt.Errorf("%w: fetched %d games, baseline has %d and game %s is missing",
					ErrInvalidInput, len(fetched), len(baseline), g.GameID)
			}
		}
	}

	if len(fetched) <= len(baseline) {
		return []models.GameRecord{}, nil
	}

	known := models.GameIDs(baseline)
	newGames := make([]models.GameRecord, 0, len(fetched)-len(baseline))
	for i := len(fetched) - 1; i >= 0; i-- {
		if _, ok := known[fetched[i].GameID]; ok {
			continue
		}
		newGames = append(newGames, fetched[i])
	}

	return newGames, nil
}

// Merge returns baseline plus any announced game it does not already hold.
// Used to persist progress when a tick fails part way through announcing.
func Merge(baseline, announced []models.GameRecord) []models.GameRecord {
	merged := make([]models.GameRecord, 0, len(baseline)+len(announced))
	merged = append(merged, baseline...)

	known := models.GameIDs(baseline)
	for _, g := range announced {
		if _, ok := known[g.GameID]; ok {
			continue
		}
		known[g.GameID] = struct{}{}
		merged = append(merged, g)
	}

	return merged
}
