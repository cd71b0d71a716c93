// Package app builds the configured store and announcers for the binaries.
package app

import (
	"context"
	"fmt"
	"strconv"

	"finalscore/bot/internal/announcer"
	"finalscore/bot/internal/api"
	"finalscore/bot/internal/config"
	"finalscore/bot/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ConnectRedis connects to Redis when a configured component needs it; nil otherwise
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}

	return repository.NewRedisClient(ctx, repository.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// BuildStore opens the configured baseline store. The returned func releases it.
func BuildStore(ctx context.Context, cfg *config.Config, rdb *redis.Client, checks map[string]api.HealthCheck) (repository.BaselineStore, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreFile:
		log.Info().Str("path", cfg.BaselineFile).Msg("Using file baseline store")
		return repository.NewFileStore(cfg.BaselineFile), func() {}, nil

	case config.StoreRedis:
		log.Info().Str("key", cfg.RedisBaselineKey).Msg("Using Redis baseline store")
		return repository.NewRedisStore(rdb, cfg.RedisBaselineKey), func() {}, nil

	case config.StorePostgres:
		db, err := repository.NewDatabase(ctx, repository.Config{
			Host:     cfg.DatabaseHost,
			Port:     strconv.Itoa(cfg.DatabasePort),
			User:     cfg.DatabaseUser,
			Password: cfg.DatabasePassword,
			Database: cfg.DatabaseName,
			SSLMode:  cfg.DatabaseSSLMode,
		})
		if err != nil {
			return nil, nil, err
		}

		store, err := repository.NewPostgresStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}

		if checks != nil {
			checks["database"] = db.Health
		}
		log.Info().Interface("pool", db.PoolStats()).Msg("Using PostgreSQL baseline store")
		return store, db.Close, nil

	case config.StoreS3:
		store, err := repository.NewS3Store(ctx, repository.S3Config{
			Endpoint:       cfg.S3Endpoint,
			Region:         cfg.S3Region,
			Bucket:         cfg.S3Bucket,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			ForcePathStyle: cfg.S3ForcePathStyle,
		}, cfg.S3BaselineKey)
		if err != nil {
			return nil, nil, err
		}

		if checks != nil {
			checks["s3"] = store.Health
		}
		log.Info().Str("bucket", cfg.S3Bucket).Str("key", cfg.S3BaselineKey).Msg("Using S3 baseline store")
		return store, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// BuildAnnouncer creates the configured channels; the first one is primary.
// Credentials are checked up front so a bad key fails at startup, not on the first final.
// feed is the live feed mounted on the ops server; nil means nobody can listen.
func BuildAnnouncer(ctx context.Context, cfg *config.Config, rdb *redis.Client, feed *announcer.LiveFeed) (*announcer.Multi, error) {
	channels := make([]announcer.Channel, 0, len(cfg.AnnounceChannels))

	for _, name := range cfg.AnnounceChannels {
		var a announcer.Announcer

		switch name {
		case config.ChannelTwitter:
			tw := announcer.NewTwitterAnnouncer(cfg.TwitterAPIURL, announcer.TwitterCredentials{
				ConsumerKey:       cfg.TwitterConsumerKey,
				ConsumerSecret:    cfg.TwitterConsumerSecret,
				AccessToken:       cfg.TwitterAccessToken,
				AccessTokenSecret: cfg.TwitterAccessTokenSecret,
			}, cfg.StatsTimeout)

			username, err := tw.VerifyCredentials(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to verify twitter credentials: %w", err)
			}
			log.Info().Str("account", username).Msg("Twitter credentials verified")
			a = tw

		case config.ChannelTelegram:
			tg, err := announcer.NewTelegramAnnouncer(cfg.TelegramBotToken, cfg.TelegramChatID)
			if err != nil {
				return nil, err
			}
			a = tg

		case config.ChannelStream:
			a = announcer.NewStreamAnnouncer(rdb, cfg.RedisStream)

		case config.ChannelLiveFeed:
			if feed == nil {
				feed = announcer.NewLiveFeed(nil)
			}
			a = feed

		case config.ChannelLog:
			a = announcer.NewLogAnnouncer()

		default:
			return nil, fmt.Errorf("unknown announce channel %q", name)
		}

		channels = append(channels, announcer.Channel{Name: name, Announcer: a})
	}

	return announcer.NewMulti(channels...), nil
}
