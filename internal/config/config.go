package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // Containers often ship without zoneinfo

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Store backends
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreS3       = "s3"
)

// Announce channels
const (
	ChannelTwitter  = "twitter"
	ChannelTelegram = "telegram"
	ChannelStream   = "stream"
	ChannelLiveFeed = "websocket"
	ChannelLog      = "log"
)

// Config holds all application configuration
type Config struct {
	// NBA stats API
	StatsBaseURL    string        `envconfig:"STATS_BASE_URL" default:"https://stats.nba.com/stats"`
	StatsTimeout    time.Duration `envconfig:"STATS_TIMEOUT" default:"30s"`
	StatsMaxRetries int           `envconfig:"STATS_MAX_RETRIES" default:"3"`
	StatsRetryDelay time.Duration `envconfig:"STATS_RETRY_DELAY" default:"1s"`

	// Polling loop
	PollSchedule  string        `envconfig:"POLL_SCHEDULE" default:"@every 5m"`
	TimeZone      string        `envconfig:"TIMEZONE" default:"America/New_York"`
	ResetTime     string        `envconfig:"RESET_TIME" default:"04:00"` // Daily baseline reset, HH:MM in TIMEZONE
	AnnounceDelay time.Duration `envconfig:"ANNOUNCE_DELAY" default:"5s"`
	TickTimeout   time.Duration `envconfig:"TICK_TIMEOUT" default:"4m"`

	// Baseline store
	StoreBackend string `envconfig:"STORE_BACKEND" default:"file"`
	BaselineFile string `envconfig:"BASELINE_FILE" default:"games_today.csv"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"finalscore"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"finalscore"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:""`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// S3 or S3-compatible object store
	S3Endpoint       string `envconfig:"S3_ENDPOINT"` // Empty for AWS
	S3Region         string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket         string `envconfig:"S3_BUCKET"`
	S3AccessKey      string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey      string `envconfig:"S3_SECRET_KEY"`
	S3ForcePathStyle bool   `envconfig:"S3_FORCE_PATH_STYLE" default:"false"`
	S3BaselineKey    string `envconfig:"S3_BASELINE_KEY" default:"baseline/games_today.csv"`

	// Redis
	RedisHost        string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort        int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword    string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB          int    `envconfig:"REDIS_DB" default:"0"`
	RedisBaselineKey string `envconfig:"REDIS_BASELINE_KEY" default:"finalscore:baseline"`
	RedisStream      string `envconfig:"REDIS_STREAM" default:"games.finals"`

	// Announcers
	AnnounceChannels []string `envconfig:"ANNOUNCE_CHANNELS" default:"log"` // First channel is primary

	TwitterAPIURL            string `envconfig:"TWITTER_API_URL" default:"https://api.twitter.com"`
	TwitterConsumerKey       string `envconfig:"CONSUMER_KEY"`
	TwitterConsumerSecret    string `envconfig:"CONSUMER_SECRET"`
	TwitterAccessToken       string `envconfig:"ACCESS_TOKEN"`
	TwitterAccessTokenSecret string `envconfig:"ACCESS_TOKEN_SECRET"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"` // Serves /metrics, /health, /baseline and /ws

	OpsAllowedOrigins []string `envconfig:"OPS_ALLOWED_ORIGINS"` // CORS and WebSocket origins for the ops API; empty disables CORS
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if present
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	for i, ch := range cfg.AnnounceChannels {
		cfg.AnnounceChannels[i] = strings.ToLower(strings.TrimSpace(ch))
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.TimeZone, err)
	}

	if _, err := c.ResetMinute(); err != nil {
		return err
	}

	if _, err := cron.ParseStandard(c.PollSchedule); err != nil {
		return fmt.Errorf("POLL_SCHEDULE %q: %w", c.PollSchedule, err)
	}

	switch c.StoreBackend {
	case StoreFile:
		if c.BaselineFile == "" {
			return fmt.Errorf("BASELINE_FILE is required for the file store")
		}
	case StoreRedis:
	case StorePostgres:
		if c.DatabasePassword == "" {
			return fmt.Errorf("DATABASE_PASSWORD is required for the postgres store")
		}
	case StoreS3:
		if c.S3Bucket == "" || c.S3AccessKey == "" || c.S3SecretKey == "" {
			return fmt.Errorf("S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY are required for the s3 store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if len(c.AnnounceChannels) == 0 {
		return fmt.Errorf("ANNOUNCE_CHANNELS must name at least one channel")
	}

	for _, ch := range c.AnnounceChannels {
		switch ch {
		case ChannelTwitter:
			if c.TwitterConsumerKey == "" || c.TwitterConsumerSecret == "" ||
				c.TwitterAccessToken == "" || c.TwitterAccessTokenSecret == "" {
				return fmt.Errorf("CONSUMER_KEY, CONSUMER_SECRET, ACCESS_TOKEN and ACCESS_TOKEN_SECRET are required for the twitter channel")
			}
		case ChannelTelegram:
			if c.TelegramBotToken == "" || c.TelegramChatID == 0 {
				return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required for the telegram channel")
			}
		case ChannelLiveFeed:
			if !c.EnableMetrics {
				return fmt.Errorf("the websocket channel is served by the ops server and needs ENABLE_METRICS=true")
			}
		case ChannelStream, ChannelLog:
		default:
			return fmt.Errorf("unknown announce channel %q", ch)
		}
	}

	if c.AnnounceDelay < 0 {
		return fmt.Errorf("ANNOUNCE_DELAY must not be negative")
	}

	return nil
}

// Location returns the time zone the daily boundary is evaluated in
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ResetMinute returns RESET_TIME as minutes past midnight
func (c *Config) ResetMinute() (int, error) {
	t, err := time.Parse("15:04", c.ResetTime)
	if err != nil {
		return 0, fmt.Errorf("RESET_TIME %q must be HH:MM: %w", c.ResetTime, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// UsesRedis returns true if any component needs a Redis connection
func (c *Config) UsesRedis() bool {
	if c.StoreBackend == StoreRedis {
		return true
	}
	for _, ch := range c.AnnounceChannels {
		if ch == ChannelStream {
			return true
		}
	}
	return false
}

// UsesLiveFeed returns true if the websocket channel is configured
func (c *Config) UsesLiveFeed() bool {
	for _, ch := range c.AnnounceChannels {
		if ch == ChannelLiveFeed {
			return true
		}
	}
	return false
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or exits on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
