package models

import (
	"fmt"
	"time"
)

// GameRecord represents one completed game, paired winner-first
type GameRecord struct {
	GameID    string `db:"game_id" json:"game_id"` // Keep as string: ids carry leading zeros ("0022300500")
	TeamIDA   string `db:"team_id_a" json:"team_id_a"`
	TeamNameA string `db:"team_name_a" json:"team_name_a"`
	RecordA   string `db:"record_a" json:"record_a"` // "W-L"
	PointsA   int    `db:"points_a" json:"points_a"`
	TeamIDB   string `db:"team_id_b" json:"team_id_b"`
	TeamNameB string `db:"team_name_b" json:"team_name_b"`
	RecordB   string `db:"record_b" json:"record_b"`
	PointsB   int    `db:"points_b" json:"points_b"`
}

// Message formats the announcement text for a game
// Example: "FINAL: The Charlotte Hornets (25-20) defeat the Miami Heat (23-22), 115-104"
func (g GameRecord) Message() string {
	return fmt.Sprintf("FINAL: The %s (%s) defeat the %s (%s), %d-%d",
		g.TeamNameA, g.RecordA, g.TeamNameB, g.RecordB, g.PointsA, g.PointsB)
}

// GameIDs returns the ids of the given games as a set
func GameIDs(games []GameRecord) map[string]struct{} {
	ids := make(map[string]struct{}, len(games))
	for _, g := range games {
		ids[g.GameID] = struct{}{}
	}
	return ids
}

// Outcome values reported in the WL column
const (
	OutcomeWin  = "W"
	OutcomeLoss = "L"
)

// TeamGameRow is one team's line for one game as returned by the stats provider.
// Every game shows up twice, once per team.
type TeamGameRow struct {
	SeasonID         string
	TeamID           string
	TeamAbbreviation string
	TeamName         string
	GameID           string
	GameDate         string // YYYY-MM-DD
	Matchup          string // "CHA vs. MIA" (home) or "MIA @ CHA" (away)
	WL               string // empty while the game is in progress
	Points           int
}

// IsFinal returns true if the row has a recorded win or loss
func (r TeamGameRow) IsFinal() bool {
	return r.WL == OutcomeWin || r.WL == OutcomeLoss
}

// PlayedOn returns true if the row belongs to the given calendar date
func (r TeamGameRow) PlayedOn(date time.Time) bool {
	return r.GameDate == FormatDate(date)
}

// Standing is a team's current season record
type Standing struct {
	TeamID   string
	TeamName string
	Record   string
}

// FormatDate renders a date the way the stats provider reports GAME_DATE
func FormatDate(date time.Time) string {
	return date.Format("2006-01-02")
}
