// Package games turns the stats provider's per-team rows into paired game records.
package games

import (
	"context"
	"fmt"
	"sort"
	"time"

	"finalscore/bot/internal/models"

	"github.com/rs/zerolog/log"
)

// StatsClient is the subset of the stats API the fetcher needs
type StatsClient interface {
	FetchTeamGames(ctx context.Context, date time.Time) ([]models.TeamGameRow, error)
	FetchStandings(ctx context.Context, date time.Time) ([]models.Standing, error)
}

// FetchError reports an unreachable provider or a malformed response
type FetchError struct {
	Op   string
	Date string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for %s: %v", e.Op, e.Date, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher returns the completed games of a day
type Fetcher struct {
	client StatsClient
}

// NewFetcher creates a new game fetcher
func NewFetcher(client StatsClient) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch returns the completed league games played on date, most recently completed first
func (f *Fetcher) Fetch(ctx context.Context, date time.Time) ([]models.GameRecord, error) {
	day := models.FormatDate(date)

	rows, err := f.client.FetchTeamGames(ctx, date)
	if err != nil {
		return nil, &FetchError{Op: "team games", Date: day, Err: err}
	}

	games := PairTeamRows(FilterFinalRows(rows, date))
	if len(games) == 0 {
		log.Debug().Str("date", day).Msg("No completed games yet")
		return games, nil
	}

	standings, err := f.client.FetchStandings(ctx, date)
	if err != nil {
		return nil, &FetchError{Op: "standings", Date: day, Err: err}
	}
	ApplyRecords(games, standings)

	log.Debug().
		Str("date", day).
		Int("rows", len(rows)).
		Int("games", len(games)).
		Msg("Completed games fetched")

	return games, nil
}

// FilterFinalRows keeps rows played on date, with a recorded outcome, for league teams
func FilterFinalRows(rows []models.TeamGameRow, date time.Time) []models.TeamGameRow {
	kept := make([]models.TeamGameRow, 0, len(rows))
	for _, r := range rows {
		if !r.PlayedOn(date) || !r.IsFinal() || !models.IsLeagueTeam(r.TeamID) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// PairTeamRows groups rows by game id and pairs the winner (A) with the loser (B).
// Games are returned by game id descending, which is most recently completed first.
// Groups that are not exactly one win and one loss are dropped.
func PairTeamRows(rows []models.TeamGameRow) []models.GameRecord {
	type pair struct {
		winner, loser *models.TeamGameRow
		count         int
	}

	groups := make(map[string]*pair)
	for i := range rows {
		r := &rows[i]
		p, ok := groups[r.GameID]
		if !ok {
			p = &pair{}
			groups[r.GameID] = p
		}
		p.count++
		switch r.WL {
		case models.OutcomeWin:
			p.winner = r
		case models.OutcomeLoss:
			p.loser = r
		}
	}

	games := make([]models.GameRecord, 0, len(groups))
	for gameID, p := range groups {
		if p.count != 2 || p.winner == nil || p.loser == nil {
			log.Warn().
				Str("game_id", gameID).
				Int("rows", p.count).
				Msg("Skipping game without one winner and one loser row")
			continue
		}
		games = append(games, models.GameRecord{
			GameID:    gameID,
			TeamIDA:   p.winner.TeamID,
			TeamNameA: p.winner.TeamName,
			RecordA:   models.DefaultRecord,
			PointsA:   p.winner.Points,
			TeamIDB:   p.loser.TeamID,
			TeamNameB: p.loser.TeamName,
			RecordB:   models.DefaultRecord,
			PointsB:   p.loser.Points,
		})
	}

	sort.Slice(games, func(i, j int) bool {
		return games[i].GameID > games[j].GameID
	})

	return games
}

// ApplyRecords sets each team's season record from standings
func ApplyRecords(games []models.GameRecord, standings []models.Standing) {
	records := make(map[string]string, len(standings))
	for _, s := range standings {
		records[s.TeamID] = s.Record
	}

	for i := range games {
		if rec, ok := records[games[i].TeamIDA]; ok {
			games[i].RecordA = rec
		}
		if rec, ok := records[games[i].TeamIDB]; ok {
			games[i].RecordB = rec
		}
	}
}
