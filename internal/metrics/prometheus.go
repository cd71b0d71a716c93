package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the final score bot

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finalscore_api_calls_total",
			Help: "Total number of NBA stats API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finalscore_api_call_duration_seconds",
			Help:    "Duration of API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Announcement metrics
	AnnouncementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finalscore_announcements_total",
			Help: "Total number of announcement attempts",
		},
		[]string{"channel", "status"},
	)

	NewGamesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finalscore_new_games_detected_total",
			Help: "Total number of newly completed games detected",
		},
	)

	// Baseline metrics
	BaselineGames = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "finalscore_baseline_games",
			Help: "Number of games in the persisted baseline",
		},
	)

	DailyResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finalscore_daily_resets_total",
			Help: "Total number of daily baseline resets",
		},
		[]string{"status"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finalscore_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// Tick metrics
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finalscore_ticks_total",
			Help: "Total number of poll ticks",
		},
		[]string{"status"},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finalscore_tick_duration_seconds",
			Help:    "Duration of poll ticks in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	LiveFeedListeners = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "finalscore_live_feed_listeners",
			Help: "Number of connected live feed WebSocket listeners",
		},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "finalscore_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulPoll = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "finalscore_last_successful_poll_timestamp",
			Help: "Timestamp of last successful poll tick",
		},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordAnnouncement records an announcement attempt on a channel
func RecordAnnouncement(channel, status string) {
	AnnouncementsTotal.WithLabelValues(channel, status).Inc()
}

// RecordNewGames records newly detected games
func RecordNewGames(count int) {
	NewGamesDetected.Add(float64(count))
}

// SetBaselineSize updates the baseline size gauge
func SetBaselineSize(size int) {
	BaselineGames.Set(float64(size))
}

// RecordDailyReset records a daily reset
func RecordDailyReset(status string) {
	DailyResetsTotal.WithLabelValues(status).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordTick records a poll tick
func RecordTick(status string, duration float64) {
	TicksTotal.WithLabelValues(status).Inc()
	TickDuration.Observe(duration)

	if status == "success" {
		LastSuccessfulPoll.SetToCurrentTime()
	}
}
