package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finalscore/bot/internal/announcer"
	"finalscore/bot/internal/config"
	"finalscore/bot/internal/dedup"
	"finalscore/bot/internal/metrics"
	"finalscore/bot/internal/models"
	"finalscore/bot/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// partialSaveTimeout bounds the baseline save after a failed announcement,
// which may run after the tick context has expired
const partialSaveTimeout = 10 * time.Second

// Fetcher returns the completed games of a day, most recently completed first
type Fetcher interface {
	Fetch(ctx context.Context, date time.Time) ([]models.GameRecord, error)
}

// Deps are the collaborators the scheduler drives
type Deps struct {
	Fetcher   Fetcher
	Store     repository.BaselineStore
	Announcer announcer.Announcer
	Ticker    Ticker
	Sleeper   Sleeper
	Now       func() time.Time // defaults to time.Now
}

// Scheduler runs the poll loop: detect newly completed games, announce them
// oldest first, persist the baseline, and reset it once a day.
// All state is owned by the goroutine calling Run.
type Scheduler struct {
	fetcher   Fetcher
	store     repository.BaselineStore
	announcer announcer.Announcer
	ticker    Ticker
	sleeper   Sleeper
	now       func() time.Time

	loc           *time.Location
	resetMinute   int
	announceDelay time.Duration
	tickTimeout   time.Duration

	currentDate time.Time // day being announced, midnight in loc
	lastMinute  int       // minute of day of the previous tick
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, deps Deps) (*Scheduler, error) {
	resetMinute, err := cfg.ResetMinute()
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", cfg.TimeZone, err)
	}

	if deps.Fetcher == nil || deps.Store == nil || deps.Announcer == nil || deps.Ticker == nil {
		return nil, errors.New("scheduler requires a fetcher, store, announcer and ticker")
	}

	s := &Scheduler{
		fetcher:       deps.Fetcher,
		store:         deps.Store,
		announcer:     deps.Announcer,
		ticker:        deps.Ticker,
		sleeper:       deps.Sleeper,
		now:           deps.Now,
		loc:           loc,
		resetMinute:   resetMinute,
		announceDelay: cfg.AnnounceDelay,
		tickTimeout:   cfg.TickTimeout,
	}
	if s.sleeper == nil {
		s.sleeper = ContextSleeper{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	now := s.now().In(loc)
	s.currentDate = dateOf(now)
	s.lastMinute = MinuteOfDay(now)

	return s, nil
}

// Run ticks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().
		Str("date", models.FormatDate(s.currentDate)).
		Str("time_zone", s.loc.String()).
		Int("reset_minute", s.resetMinute).
		Dur("announce_delay", s.announceDelay).
		Msg("Scheduler started")

	for {
		if _, err := s.ticker.Next(ctx); err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("Context cancelled, stopping scheduler")
				return nil
			}
			return fmt.Errorf("ticker failed: %w", err)
		}

		// Errors are logged and counted inside Tick; the loop keeps going
		_ = s.Tick(ctx)
	}
}

// Tick runs one poll: daily reset check, fetch, dedup, announce, persist
func (s *Scheduler) Tick(ctx context.Context) error {
	start := time.Now()
	logger := log.With().Str("tick_id", uuid.NewString()).Logger()

	if s.tickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.tickTimeout)
		defer cancel()
	}

	s.checkDailyReset(ctx, &logger)

	err := s.poll(ctx, &logger)

	status := "success"
	if err != nil {
		status = "error"
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Poll tick failed")
	} else {
		logger.Debug().Dur("duration", time.Since(start)).Msg("Poll tick complete")
	}
	metrics.RecordTick(status, time.Since(start).Seconds())

	return err
}

// checkDailyReset clears the baseline when the tick crosses the reset time.
// A failed clear leaves lastMinute untouched so the next tick tries again.
func (s *Scheduler) checkDailyReset(ctx context.Context, logger *zerolog.Logger) {
	now := s.now().In(s.loc)
	minute := MinuteOfDay(now)

	if CrossedBoundary(s.lastMinute, minute, s.resetMinute) {
		if err := s.store.Clear(ctx); err != nil {
			metrics.RecordDailyReset("error")
			metrics.RecordError("store", "clear")
			logger.Error().Err(err).Msg("Failed to reset daily baseline, will retry next tick")
			return
		}

		s.currentDate = dateOf(now)
		metrics.RecordDailyReset("success")
		metrics.SetBaselineSize(0)
		logger.Info().
			Str("date", models.FormatDate(s.currentDate)).
			Msg("Daily baseline reset")
	}

	s.lastMinute = minute
}

func (s *Scheduler) poll(ctx context.Context, logger *zerolog.Logger) error {
	baseline, err := s.store.Load(ctx)
	if err != nil {
		metrics.RecordError("store", "load")
		return fmt.Errorf("failed to load baseline: %w", err)
	}

	fetched, err := s.fetcher.Fetch(ctx, s.currentDate)
	if err != nil {
		metrics.RecordError("fetcher", "fetch")
		return err
	}

	newGames, err := dedup.ComputeNewGames(fetched, baseline)
	if err != nil {
		metrics.RecordError("dedup", "invalid_input")
		logger.Error().
			Int("fetched", len(fetched)).
			Int("baseline", len(baseline)).
			Msg("Fetched games do not extend the baseline, keeping it")
		return fmt.Errorf("dedup: %w", err)
	}

	if len(newGames) == 0 {
		logger.Debug().
			Str("date", models.FormatDate(s.currentDate)).
			Int("completed", len(fetched)).
			Msg("No new completed games")
	} else if err := s.announce(ctx, logger, baseline, newGames); err != nil {
		return err
	}

	// The store always mirrors the latest successful fetch
	if err := s.store.Save(ctx, fetched); err != nil {
		metrics.RecordError("store", "save")
		return fmt.Errorf("failed to save baseline: %w", err)
	}
	metrics.SetBaselineSize(len(fetched))

	return nil
}

// announce publishes newGames in order with the announce delay between posts.
// On failure the games announced so far are merged into the baseline.
func (s *Scheduler) announce(ctx context.Context, logger *zerolog.Logger, baseline, newGames []models.GameRecord) error {
	logger.Info().Int("count", len(newGames)).Msg("New completed games detected")
	metrics.RecordNewGames(len(newGames))

	for i, game := range newGames {
		if i > 0 {
			if err := s.sleeper.Sleep(ctx, s.announceDelay); err != nil {
				s.savePartial(ctx, logger, baseline, newGames[:i])
				return fmt.Errorf("interrupted between announcements: %w", err)
			}
		}

		if err := s.announcer.Publish(ctx, game.Message()); err != nil {
			metrics.RecordError("announcer", "publish")
			logger.Error().
				Err(err).
				Str("game_id", game.GameID).
				Int("announced", i).
				Int("remaining", len(newGames)-i).
				Msg("Failed to announce game, remaining games wait for the next tick")
			s.savePartial(ctx, logger, baseline, newGames[:i])
			return err
		}

		logger.Info().
			Str("game_id", game.GameID).
			Str("winner", game.TeamNameA).
			Str("loser", game.TeamNameB).
			Msg("Game announced")
	}

	return nil
}

// savePartial persists baseline plus the games announced before a failure
func (s *Scheduler) savePartial(ctx context.Context, logger *zerolog.Logger, baseline, announced []models.GameRecord) {
	if len(announced) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), partialSaveTimeout)
	defer cancel()

	merged := dedup.Merge(baseline, announced)
	if err := s.store.Save(ctx, merged); err != nil {
		metrics.RecordError("store", "save")
		logger.Error().
			Err(err).
			Int("announced", len(announced)).
			Msg("Failed to save partially announced baseline, games may be announced twice")
		return
	}
	metrics.SetBaselineSize(len(merged))
}

// MinuteOfDay returns minutes past midnight of t in its own location
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// CrossedBoundary reports whether the clock passed boundary between two ticks
func CrossedBoundary(last, minute, boundary int) bool {
	return last < boundary && boundary <= minute
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
