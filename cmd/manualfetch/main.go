// Command manualfetch fetches the completed games of one day and prints their summaries.
// With --post the summaries are also published, oldest first, through the configured channels.
// The baseline store is never touched.
//
// Usage: manualfetch [--post] [YYYY-MM-DD]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"finalscore/bot/internal/app"
	"finalscore/bot/internal/client"
	"finalscore/bot/internal/config"
	"finalscore/bot/internal/games"
	"finalscore/bot/internal/models"
	"finalscore/bot/internal/scheduler"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	post := flag.Bool("post", false, "publish the summaries through ANNOUNCE_CHANNELS")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [--post] [YYYY-MM-DD]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.MustLoad()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	date, err := parseDate(flag.Arg(0), time.Now().In(cfg.Location()))
	if err != nil {
		flag.Usage()
		log.Fatal().Err(err).Msg("Invalid date argument")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.TickTimeout)
	defer cancel()

	statsClient := client.NewClient(cfg.StatsBaseURL, cfg.StatsTimeout, cfg.StatsMaxRetries, cfg.StatsRetryDelay)
	completed, err := games.NewFetcher(statsClient).Fetch(ctx, date)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch games")
	}

	log.Info().
		Str("date", models.FormatDate(date)).
		Int("count", len(completed)).
		Msg("Completed games fetched")

	// Oldest first, the order the worker announces in
	ordered := make([]models.GameRecord, 0, len(completed))
	for i := len(completed) - 1; i >= 0; i-- {
		ordered = append(ordered, completed[i])
	}

	for _, g := range ordered {
		fmt.Println(g.Message())
	}

	if !*post || len(ordered) == 0 {
		return
	}

	rdb, err := app.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	announcers, err := app.BuildAnnouncer(ctx, cfg, rdb, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize announcers")
	}

	var sleeper scheduler.ContextSleeper
	posted := 0
	for i, g := range ordered {
		if i > 0 {
			if err := sleeper.Sleep(ctx, cfg.AnnounceDelay); err != nil {
				break
			}
		}
		if err := announcers.Publish(ctx, g.Message()); err != nil {
			log.Error().Err(err).Str("game_id", g.GameID).Msg("Failed to publish, stopping")
			break
		}
		posted++
	}

	log.Info().Int("posted", posted).Int("total", len(ordered)).Msg("Manual announcement complete")
}

// parseDate returns midnight of arg in today's location, or of today when arg is empty
func parseDate(arg string, today time.Time) (time.Time, error) {
	if arg == "" {
		return time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location()), nil
	}

	date, err := time.ParseInLocation("2006-01-02", arg, today.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return date, nil
}
