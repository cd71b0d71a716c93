package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"finalscore/bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGames() []models.GameRecord {
	return []models.GameRecord{
		{
			GameID:    "0022300501",
			TeamIDA:   "1610612747",
			TeamNameA: "Los Angeles Lakers",
			RecordA:   "24-21",
			PointsA:   120,
			TeamIDB:   "1610612738",
			TeamNameB: "Boston Celtics",
			RecordB:   "33-10",
			PointsB:   118,
		},
		{
			GameID:    "0022300500",
			TeamIDA:   "1610612766",
			TeamNameA: "Charlotte Hornets",
			RecordA:   "25-20",
			PointsA:   115,
			TeamIDB:   "1610612748",
			TeamNameB: "Miami Heat",
			RecordB:   "23-22",
			PointsB:   104,
		},
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "games_today.csv"))

	games, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, games)
	assert.Empty(t, games)
}

func TestFileStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "games_today.csv"))

	require.NoError(t, store.Save(ctx, sampleGames()))

	games, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleGames(), games)
	assert.Equal(t, "0022300500", games[1].GameID, "Leading zeros must survive a round trip")
}

func TestFileStore_FileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games_today.csv")
	store := NewFileStore(path)

	require.NoError(t, store.Save(context.Background(), sampleGames()[1:]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"GAME_ID,TEAM_ID_A,TEAM_NAME_A,RECORD_A,PTS_A,TEAM_ID_B,TEAM_NAME_B,RECORD_B,PTS_B\n"+
			"0022300500,1610612766,Charlotte Hornets,25-20,115,1610612748,Miami Heat,23-22,104\n",
		string(data))
}

func TestFileStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "games_today.csv"))

	require.NoError(t, store.Save(ctx, sampleGames()))
	require.NoError(t, store.Save(ctx, sampleGames()[:1]))

	games, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleGames()[:1], games)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "Temp files should not be left behind")
}

func TestFileStore_SaveEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "games_today.csv"))

	require.NoError(t, store.Save(ctx, sampleGames()))
	require.NoError(t, store.Save(ctx, nil))

	games, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestFileStore_Clear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "games_today.csv")
	store := NewFileStore(path)

	require.NoError(t, store.Save(ctx, sampleGames()))
	require.NoError(t, store.Clear(ctx))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	games, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, games)

	assert.NoError(t, store.Clear(ctx), "Clearing twice should succeed")
}

func TestFileStore_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "wrong header", content: "ID,A,B,C,D,E,F,G,H\n"},
		{name: "short row", content: "GAME_ID,TEAM_ID_A,TEAM_NAME_A,RECORD_A,PTS_A,TEAM_ID_B,TEAM_NAME_B,RECORD_B,PTS_B\n0022300500,1\n"},
		{name: "bad points", content: "GAME_ID,TEAM_ID_A,TEAM_NAME_A,RECORD_A,PTS_A,TEAM_ID_B,TEAM_NAME_B,RECORD_B,PTS_B\n0022300500,1,A,1-0,x,2,B,0-1,90\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "games_today.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := NewFileStore(path).Load(context.Background())
			assert.Error(t, err)
		})
	}
}
