package repository

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"finalscore/bot/internal/models"
)

// csvHeader is the column layout of the baseline table
var csvHeader = []string{
	"GAME_ID",
	"TEAM_ID_A", "TEAM_NAME_A", "RECORD_A", "PTS_A",
	"TEAM_ID_B", "TEAM_NAME_B", "RECORD_B", "PTS_B",
}

// encodeBaseline writes games as a CSV table with a header row
func encodeBaseline(out io.Writer, games []models.GameRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write baseline header: %w", err)
	}
	for _, g := range games {
		if err := w.Write(formatCSVRecord(g)); err != nil {
			return fmt.Errorf("failed to write game %s: %w", g.GameID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush baseline table: %w", err)
	}
	return nil
}

// decodeBaseline reads a table written by encodeBaseline; source names it in errors
func decodeBaseline(in io.Reader, source string) ([]models.GameRecord, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(csvHeader)

	games := []models.GameRecord{}
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read baseline %s: %w", source, err)
		}
		if line == 1 {
			if rec[0] != csvHeader[0] {
				return nil, fmt.Errorf("baseline %s has unexpected header %q", source, rec[0])
			}
			continue
		}

		g, err := parseCSVRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("baseline %s line %d: %w", source, line, err)
		}
		games = append(games, g)
	}

	return games, nil
}

func formatCSVRecord(g models.GameRecord) []string {
	return []string{
		g.GameID,
		g.TeamIDA, g.TeamNameA, g.RecordA, strconv.Itoa(g.PointsA),
		g.TeamIDB, g.TeamNameB, g.RecordB, strconv.Itoa(g.PointsB),
	}
}

func parseCSVRecord(rec []string) (models.GameRecord, error) {
	ptsA, err := strconv.Atoi(rec[4])
	if err != nil {
		return models.GameRecord{}, fmt.Errorf("invalid PTS_A %q: %w", rec[4], err)
	}
	ptsB, err := strconv.Atoi(rec[8])
	if err != nil {
		return models.GameRecord{}, fmt.Errorf("invalid PTS_B %q: %w", rec[8], err)
	}

	return models.GameRecord{
		GameID:    rec[0],
		TeamIDA:   rec[1],
		TeamNameA: rec[2],
		RecordA:   rec[3],
		PointsA:   ptsA,
		TeamIDB:   rec[5],
		TeamNameB: rec[6],
		RecordB:   rec[7],
		PointsB:   ptsB,
	}, nil
}
