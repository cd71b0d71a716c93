package repository

import (
	"context"
	"fmt"

	"finalscore/bot/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const announcedGamesTable = "announced_games"

var announcedGamesColumns = []string{
	"game_id",
	"team_id_a", "team_name_a", "record_a", "points_a",
	"team_id_b", "team_name_b", "record_b", "points_b",
}

// PostgresStore keeps the baseline in the announced_games table
type PostgresStore struct {
	db *Database
}

// NewPostgresStore creates the store and its table if missing
func NewPostgresStore(ctx context.Context, db *Database) (*PostgresStore, error) {
	query := `
		CREATE TABLE IF NOT EXISTS announced_games (
			game_id     TEXT PRIMARY KEY,
			team_id_a   TEXT NOT NULL,
			team_name_a TEXT NOT NULL,
			record_a    TEXT NOT NULL,
			points_a    INTEGER NOT NULL,
			team_id_b   TEXT NOT NULL,
			team_name_b TEXT NOT NULL,
			record_b    TEXT NOT NULL,
			points_b    INTEGER NOT NULL,
			saved_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := db.Pool.Exec(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to create announced_games table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Load returns every announced game
func (s *PostgresStore) Load(ctx context.Context) ([]models.GameRecord, error) {
	query := `
		SELECT game_id, team_id_a, team_name_a, record_a, points_a,
		       team_id_b, team_name_b, record_b, points_b
		FROM announced_games
		ORDER BY game_id DESC
	`

	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline: %w", err)
	}
	defer rows.Close()

	games := []models.GameRecord{}
	for rows.Next() {
		var g models.GameRecord
		if err := rows.Scan(
			&g.GameID, &g.TeamIDA, &g.TeamNameA, &g.RecordA, &g.PointsA,
			&g.TeamIDB, &g.TeamNameB, &g.RecordB, &g.PointsB,
		); err != nil {
			return nil, fmt.Errorf("failed to scan announced game: %w", err)
		}
		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating announced games: %w", err)
	}

	return games, nil
}

// Save replaces the baseline in one transaction
func (s *PostgresStore) Save(ctx context.Context, games []models.GameRecord) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM announced_games`); err != nil {
		return fmt.Errorf("failed to clear baseline: %w", err)
	}

	copied, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{announcedGamesTable},
		announcedGamesColumns,
		pgx.CopyFromSlice(len(games), func(i int) ([]any, error) {
			g := games[i]
			return []any{
				g.GameID,
				g.TeamIDA, g.TeamNameA, g.RecordA, g.PointsA,
				g.TeamIDB, g.TeamNameB, g.RecordB, g.PointsB,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy baseline: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit baseline: %w", err)
	}

	log.Debug().Int64("rows", copied).Msg("Baseline saved to database")
	return nil
}

// Clear deletes every announced game
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM announced_games`); err != nil {
		return fmt.Errorf("failed to clear baseline: %w", err)
	}
	return nil
}
