// Package announcer publishes game summaries to the configured channels.
package announcer

import (
	"context"
	"errors"
	"fmt"

	"finalscore/bot/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Announcer publishes one summary
type Announcer interface {
	Publish(ctx context.Context, text string) error
}

// ErrorKind classifies publish failures
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindNetwork   ErrorKind = "network"
	KindRejected  ErrorKind = "rejected"
)

// PublishError reports a failed post
type PublishError struct {
	Channel    string
	Kind       ErrorKind
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *PublishError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("publish to %s failed (%s, status %d): %v", e.Channel, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("publish to %s failed (%s): %v", e.Channel, e.Kind, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Channel is an announcer registered under a channel name
type Channel struct {
	Name      string
	Announcer Announcer
}

// Multi fans a summary out to several channels.
// The first channel is primary: its failure is returned and the rest are skipped.
// Later channels are best effort.
type Multi struct {
	channels []Channel
}

// NewMulti creates a fan-out announcer; channels[0] is primary
func NewMulti(channels ...Channel) *Multi {
	return &Multi{channels: channels}
}

// Publish posts text to every channel
func (m *Multi) Publish(ctx context.Context, text string) error {
	if len(m.channels) == 0 {
		return &PublishError{Channel: "none", Kind: KindRejected, Err: errors.New("no announce channels configured")}
	}

	primary := m.channels[0]
	if err := primary.Announcer.Publish(ctx, text); err != nil {
		metrics.RecordAnnouncement(primary.Name, "error")
		return asPublishError(primary.Name, err)
	}
	metrics.RecordAnnouncement(primary.Name, "success")

	for _, ch := range m.channels[1:] {
		if err := ch.Announcer.Publish(ctx, text); err != nil {
			metrics.RecordAnnouncement(ch.Name, "error")
			metrics.RecordError("announcer", ch.Name)
			log.Warn().
				Err(err).
				Str("channel", ch.Name).
				Msg("Secondary channel failed to publish")
			continue
		}
		metrics.RecordAnnouncement(ch.Name, "success")
	}

	return nil
}

// Names returns the channel names in order
func (m *Multi) Names() []string {
	names := make([]string, len(m.channels))
	for i, ch := range m.channels {
		names[i] = ch.Name
	}
	return names
}

// asPublishError makes sure callers can always errors.As into *PublishError
func asPublishError(channel string, err error) error {
	var pubErr *PublishError
	if errors.As(err, &pubErr) {
		return err
	}
	return &PublishError{Channel: channel, Kind: KindNetwork, Err: err}
}
