package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finalscore/bot/internal/announcer"
	"finalscore/bot/internal/config"
	"finalscore/bot/internal/dedup"
	"finalscore/bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fakes

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fakeStore struct {
	games    []models.GameRecord
	saves    int
	clears   int
	loadErr  error
	saveErr  error
	clearErr error
}

func (s *fakeStore) Load(ctx context.Context) ([]models.GameRecord, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]models.GameRecord{}, s.games...), nil
}

func (s *fakeStore) Save(ctx context.Context, games []models.GameRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.games = append([]models.GameRecord{}, games...)
	return nil
}

func (s *fakeStore) Clear(ctx context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	s.clears++
	s.games = nil
	return nil
}

type fakeFetcher struct {
	games []models.GameRecord
	err   error
	dates []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, date time.Time) ([]models.GameRecord, error) {
	f.dates = append(f.dates, models.FormatDate(date))
	if f.err != nil {
		return nil, f.err
	}
	return f.games, nil
}

type fakeAnnouncer struct {
	posts  []string
	failOn int // 1-based attempt to fail on, 0 never
	calls  int
}

func (a *fakeAnnouncer) Publish(ctx context.Context, text string) error {
	a.calls++
	if a.failOn != 0 && a.calls == a.failOn {
		return &announcer.PublishError{Channel: "twitter", Kind: announcer.KindRateLimit, StatusCode: 429, Err: errors.New("too many requests")}
	}
	a.posts = append(a.posts, text)
	return nil
}

type fakeSleeper struct {
	sleeps []time.Duration
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

type fakeTicker struct {
	ticks chan time.Time
}

func (t *fakeTicker) Next(ctx context.Context) (time.Time, error) {
	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case tick := <-t.ticks:
		return tick, nil
	}
}

// Fixtures

var eastern = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 1, day, hour, minute, 0, 0, eastern)
}

func game(id, winner, loser string) models.GameRecord {
	return models.GameRecord{
		GameID:    id,
		TeamNameA: winner,
		RecordA:   "20-20",
		PointsA:   110,
		TeamNameB: loser,
		RecordB:   "19-21",
		PointsB:   100,
	}
}

var (
	g1 = game("0022300500", "Charlotte Hornets", "Miami Heat")
	g2 = game("0022300501", "Los Angeles Lakers", "Boston Celtics")
	g3 = game("0022300502", "Denver Nuggets", "Utah Jazz")
)

type harness struct {
	clock     *fakeClock
	store     *fakeStore
	fetcher   *fakeFetcher
	announcer *fakeAnnouncer
	sleeper   *fakeSleeper
	ticker    *fakeTicker
	sched     *Scheduler
}

func newHarness(t *testing.T, start time.Time) *harness {
	t.Helper()

	h := &harness{
		clock:     &fakeClock{t: start},
		store:     &fakeStore{},
		fetcher:   &fakeFetcher{},
		announcer: &fakeAnnouncer{},
		sleeper:   &fakeSleeper{},
		ticker:    &fakeTicker{ticks: make(chan time.Time)},
	}

	cfg := &config.Config{
		TimeZone:      "America/New_York",
		ResetTime:     "04:00",
		AnnounceDelay: 5 * time.Second,
		TickTimeout:   time.Minute,
	}

	sched, err := NewScheduler(cfg, Deps{
		Fetcher:   h.fetcher,
		Store:     h.store,
		Announcer: h.announcer,
		Ticker:    h.ticker,
		Sleeper:   h.sleeper,
		Now:       h.clock.Now,
	})
	require.NoError(t, err)
	h.sched = sched

	return h
}

// Tests

func TestTick_AnnouncesOldestFirst(t *testing.T) {
	h := newHarness(t, at(15, 22, 0))
	h.fetcher.games = []models.GameRecord{g2, g1}

	require.NoError(t, h.sched.Tick(context.Background()))

	assert.Equal(t, []string{g1.Message(), g2.Message()}, h.announcer.posts)
	assert.Equal(t, []time.Duration{5 * time.Second}, h.sleeper.sleeps, "Delay only between consecutive posts")
	assert.Equal(t, []models.GameRecord{g2, g1}, h.store.games)
	assert.Equal(t, []string{"2024-01-15"}, h.fetcher.dates)
}

func TestTick_OnlyNewGames(t *testing.T) {
	h := newHarness(t, at(15, 22, 0))
	h.store.games = []models.GameRecord{g1}
	h.fetcher.games = []models.GameRecord{g2, g1}

	require.NoError(t, h.sched.Tick(context.Background()))

	assert.Equal(t, []string{g2.Message()}, h.announcer.posts)
	assert.Empty(t, h.sleeper.sleeps)
	assert.Equal(t, []models.GameRecord{g2, g1}, h.store.games)
}

func TestTick_NothingNew(t *testing.T) {
	h := newHarness(t, at(15, 22, 0))
	h.store.games = []models.GameRecord{g2, g1}
	h.fetcher.games = []models.GameRecord{g2, g1}

	require.NoError(t, h.sched.Tick(context.Background()))

	assert.Empty(t, h.announcer.posts)
	assert.Equal(t, 1, h.store.saves, "Every successful fetch is persisted")
	assert.Equal(t, []models.GameRecord{g2, g1}, h.store.games)
}

func TestTick_NoGamesYet(t *testing.T) {
	h := newHarness(t, at(15, 19, 0))

	require.NoError(t, h.sched.Tick(context.Background()))

	assert.Empty(t, h.announcer.posts)
	assert.Equal(t, 1, h.store.saves)
	assert.Empty(t, h.store.games)
}

func TestTick_RepeatedTicksDoNotRepost(t *testing.T) {
	h := newHarness(t, at(15, 22, 0))
	h.fetcher.games = []models.GameRecord{g1}

	require.NoError(t, h.sched.Tick(context.Background()))
	require.NoError(t, h.sched.Tick(context.Background()))
	require.NoError(t, h.sched.Tick(context.Background()))

	assert.Equal(t, []string{g1.Message()}, h.announcer.posts)
}

func TestTick_FetchErrorKeepsBaseline(t *testing.T) {
	h := newHarness(t, at(15, 22, 0))
	h.store.games = []models.GameRecord{g1}
	fetchErr := errors.New("stats.nba.com timed out")
	h.fetcher.err = fetchErr

	err := h.sched.Tick(context.Background())

	assert.ErrorIs(t, err, fetchErr)
	assert.Empty(t, h.announcer.posts)
	assert.Equal(t, 0, h.store.saves)
	assert.Equal(t, []models.GameRecord{g1}, h.store.games)
}

func TestTick_InvalidInputKeepsBaseline(t *testing.T) {
	h := newHarness(t, at(15, 22, 0))
	h.store.games = []models.GameRecord{g2, g1}
	h.fetcher.games = []models.GameRecord{g3}

	err := h.sched.Tick(context.Background())

	assert.ErrorIs(t, err, dedup.ErrInvalidInput)
	assert.Empty(t, h.announcer.posts)
	assert.Equal(t, 0, h.store.saves)
	assert.Equal(t, []models.GameRecord{g2, g1}, h.store.games)
}

func TestTick_LoadErrorAbortsTick(t *testing.T) {
	h := newHarness(t, at(15, 22, 0))
	h.store.loadErr = errors.New("disk unavailable")
	h.fetcher.games = []models.GameRecord{g1}

	assert.Error(t, h.sched.Tick(context.Background()))
	assert.Empty(t, h.announcer.posts)
	assert.Empty(t, h.fetcher.dates)
}

func TestTick_PartialPublishFailure(t *testing.T) {
	h := newHarness(t, at(15, 22, 0))
	h.fetcher.games = []models.GameRecord{g3, g2, g1}
	h.announcer.failOn = 2

	err := h.sched.Tick(context.Background())

	var pubErr *announcer.PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, []string{g1.Message()}, h.announcer.posts)
	assert.Equal(t, []models.GameRecord{g1}, h.store.games, "Only the announced game joins the baseline")

	// Next tick announces the rest exactly once
	h.announcer.failOn = 0
	require.NoError(t, h.sched.Tick(context.Background()))

	assert.Equal(t, []string{g1.Message(), g2.Message(), g3.Message()}, h.announcer.posts)
	assert.Equal(t, []models.GameRecord{g3, g2, g1}, h.store.games)
}

func TestTick_FirstPublishFailureLeavesBaseline(t *testing.T) {
	h := newHarness(t, at(15, 22, 0))
	h.store.games = []models.GameRecord{g1}
	h.fetcher.games = []models.GameRecord{g2, g1}
	h.announcer.failOn = 1

	assert.Error(t, h.sched.Tick(context.Background()))
	assert.Equal(t, 0, h.store.saves)
	assert.Equal(t, []models.GameRecord{g1}, h.store.games)
}

func TestTick_DailyReset(t *testing.T) {
	h := newHarness(t, at(15, 23, 50))
	h.fetcher.games = []models.GameRecord{g1}

	// After midnight the previous day's slate is still being announced
	h.clock.Set(at(16, 0, 10))
	require.NoError(t, h.sched.Tick(context.Background()))
	assert.Equal(t, 0, h.store.clears)

	h.clock.Set(at(16, 3, 59))
	require.NoError(t, h.sched.Tick(context.Background()))
	assert.Equal(t, 0, h.store.clears)

	h.fetcher.games = nil
	h.clock.Set(at(16, 4, 0))
	require.NoError(t, h.sched.Tick(context.Background()))
	assert.Equal(t, 1, h.store.clears)
	assert.Empty(t, h.store.games)

	assert.Equal(t, []string{"2024-01-15", "2024-01-15", "2024-01-16"}, h.fetcher.dates)
}

func TestTick_NoResetAfterBoundary(t *testing.T) {
	h := newHarness(t, at(16, 4, 0))

	h.clock.Set(at(16, 4, 1))
	require.NoError(t, h.sched.Tick(context.Background()))

	assert.Equal(t, 0, h.store.clears)
}

func TestTick_ResetUsesConfiguredZone(t *testing.T) {
	// 08:59 UTC is 03:59 in New York during standard time
	h := newHarness(t, time.Date(2024, 1, 16, 8, 59, 0, 0, time.UTC))

	h.clock.Set(time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, h.sched.Tick(context.Background()))

	assert.Equal(t, 1, h.store.clears)
}

func TestTick_FailedResetIsRetried(t *testing.T) {
	h := newHarness(t, at(15, 23, 0))
	h.clock.Set(at(16, 3, 58))
	require.NoError(t, h.sched.Tick(context.Background()))

	h.store.clearErr = errors.New("read-only file system")
	h.clock.Set(at(16, 4, 2))
	_ = h.sched.Tick(context.Background())
	assert.Equal(t, 0, h.store.clears)
	assert.Equal(t, 3*60+58, h.sched.lastMinute)
	assert.Equal(t, "2024-01-15", models.FormatDate(h.sched.currentDate))

	h.store.clearErr = nil
	h.clock.Set(at(16, 4, 7))
	require.NoError(t, h.sched.Tick(context.Background()))
	assert.Equal(t, 1, h.store.clears)
	assert.Equal(t, "2024-01-16", models.FormatDate(h.sched.currentDate))
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(t, at(15, 22, 0))
	h.fetcher.games = []models.GameRecord{g1}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.sched.Run(ctx)
	}()

	h.ticker.ticks <- time.Now()
	h.ticker.ticks <- time.Now()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Len(t, h.fetcher.dates, 2)
	assert.Equal(t, []string{g1.Message()}, h.announcer.posts)
}

func TestNewScheduler_InvalidConfig(t *testing.T) {
	deps := Deps{Fetcher: &fakeFetcher{}, Store: &fakeStore{}, Announcer: &fakeAnnouncer{}, Ticker: &fakeTicker{}}

	_, err := NewScheduler(&config.Config{TimeZone: "America/New_York", ResetTime: "4am"}, deps)
	assert.Error(t, err)

	_, err = NewScheduler(&config.Config{TimeZone: "Mars/Olympus", ResetTime: "04:00"}, deps)
	assert.Error(t, err)

	_, err = NewScheduler(&config.Config{TimeZone: "America/New_York", ResetTime: "04:00"}, Deps{})
	assert.Error(t, err)
}

func TestCrossedBoundary(t *testing.T) {
	tests := []struct {
		last, minute int
		expected     bool
	}{
		{239, 240, true},
		{235, 245, true},
		{240, 241, false},
		{200, 239, false},
		{1430, 10, false},
		{240, 240, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CrossedBoundary(tt.last, tt.minute, 240), "last=%d minute=%d", tt.last, tt.minute)
	}
}

func TestMinuteOfDay(t *testing.T) {
	assert.Equal(t, 0, MinuteOfDay(at(15, 0, 0)))
	assert.Equal(t, 240, MinuteOfDay(at(15, 4, 0)))
	assert.Equal(t, 1439, MinuteOfDay(at(15, 23, 59)))
}
