package announcer

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogAnnouncer only logs summaries. Used for dry runs.
type LogAnnouncer struct{}

// NewLogAnnouncer creates a dry-run announcer
func NewLogAnnouncer() *LogAnnouncer {
	return &LogAnnouncer{}
}

// Publish logs text
func (a *LogAnnouncer) Publish(ctx context.Context, text string) error {
	log.Info().Str("channel", "log").Str("text", text).Msg("Announcement")
	return nil
}
