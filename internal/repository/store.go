package repository

import (
	"context"
	"sort"

	"finalscore/bot/internal/models"
)

// BaselineStore persists the set of games already announced today
type BaselineStore interface {
	// Load returns the persisted baseline; empty when nothing was saved yet
	Load(ctx context.Context) ([]models.GameRecord, error)
	// Save replaces the persisted baseline
	Save(ctx context.Context, games []models.GameRecord) error
	// Clear empties the persisted baseline
	Clear(ctx context.Context) error
}

// sortByGameID orders games by game id descending, the order the fetcher returns them in
func sortByGameID(games []models.GameRecord) {
	sort.Slice(games, func(i, j int) bool {
		return games[i].GameID > games[j].GameID
	})
}
