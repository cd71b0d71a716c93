package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://stats.nba.com/stats", cfg.StatsBaseURL)
	assert.Equal(t, "@every 5m", cfg.PollSchedule)
	assert.Equal(t, 5*time.Second, cfg.AnnounceDelay)
	assert.Equal(t, StoreFile, cfg.StoreBackend)
	assert.Equal(t, "games_today.csv", cfg.BaselineFile)
	assert.Equal(t, []string{ChannelLog}, cfg.AnnounceChannels)
	assert.False(t, cfg.UsesRedis())

	minute, err := cfg.ResetMinute()
	require.NoError(t, err)
	assert.Equal(t, 240, minute)
	assert.Equal(t, "America/New_York", cfg.Location().String())
}

func TestLoad_Channels(t *testing.T) {
	t.Setenv("ANNOUNCE_CHANNELS", " Twitter ,stream")
	t.Setenv("CONSUMER_KEY", "ck")
	t.Setenv("CONSUMER_SECRET", "cs")
	t.Setenv("ACCESS_TOKEN", "at")
	t.Setenv("ACCESS_TOKEN_SECRET", "ats")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelTwitter, ChannelStream}, cfg.AnnounceChannels)
	assert.True(t, cfg.UsesRedis())
	assert.False(t, cfg.UsesLiveFeed())
}

func TestLoad_LiveFeed(t *testing.T) {
	t.Setenv("ANNOUNCE_CHANNELS", "log,websocket")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.UsesLiveFeed())
	assert.False(t, cfg.UsesRedis())
}

func TestLoad_S3Store(t *testing.T) {
	t.Setenv("STORE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "finalscore")
	t.Setenv("S3_ACCESS_KEY", "access")
	t.Setenv("S3_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreS3, cfg.StoreBackend)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "baseline/games_today.csv", cfg.S3BaselineKey)
	assert.False(t, cfg.UsesRedis())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "twitter without keys", env: map[string]string{"ANNOUNCE_CHANNELS": "twitter"}},
		{name: "telegram without chat", env: map[string]string{"ANNOUNCE_CHANNELS": "telegram", "TELEGRAM_BOT_TOKEN": "x"}},
		{name: "unknown channel", env: map[string]string{"ANNOUNCE_CHANNELS": "carrier-pigeon"}},
		{name: "unknown store", env: map[string]string{"STORE_BACKEND": "sqlite"}},
		{name: "postgres without password", env: map[string]string{"STORE_BACKEND": "postgres"}},
		{name: "s3 without bucket", env: map[string]string{"STORE_BACKEND": "s3", "S3_ACCESS_KEY": "a", "S3_SECRET_KEY": "s"}},
		{name: "websocket without ops server", env: map[string]string{"ANNOUNCE_CHANNELS": "log,websocket", "ENABLE_METRICS": "false"}},
		{name: "bad reset time", env: map[string]string{"RESET_TIME": "4am"}},
		{name: "bad time zone", env: map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{name: "bad schedule", env: map[string]string{"POLL_SCHEDULE": "every so often"}},
		{name: "negative delay", env: map[string]string{"ANNOUNCE_DELAY": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestConfig_ResetMinute(t *testing.T) {
	cfg := &Config{ResetTime: "04:30"}

	minute, err := cfg.ResetMinute()
	require.NoError(t, err)
	assert.Equal(t, 270, minute)
}

func TestConfig_RedisAddr(t *testing.T) {
	cfg := &Config{RedisHost: "cache", RedisPort: 6380}
	assert.Equal(t, "cache:6380", cfg.RedisAddr())
}

func TestConfig_IsDevelopment(t *testing.T) {
	assert.True(t, (&Config{AppEnv: "development"}).IsDevelopment())
	assert.False(t, (&Config{AppEnv: "production"}).IsDevelopment())
}
