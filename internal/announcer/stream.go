package announcer

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// streamMaxLen caps the stream length, enforced via XADD MAXLEN ~
const streamMaxLen int64 = 10000

// streamAdder is the part of the Redis client the stream announcer uses
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamAnnouncer appends summaries to a Redis stream for downstream consumers
type StreamAnnouncer struct {
	rdb    streamAdder
	stream string
}

// NewStreamAnnouncer creates an announcer on the given stream
func NewStreamAnnouncer(rdb *redis.Client, stream string) *StreamAnnouncer {
	return &StreamAnnouncer{rdb: rdb, stream: stream}
}

// Publish appends text to the stream
func (a *StreamAnnouncer) Publish(ctx context.Context, text string) error {
	args := &redis.XAddArgs{
		Stream: a.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"text":         text,
			"published_at": time.Now().UTC().Format(time.RFC3339),
		},
	}

	id, err := a.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return &PublishError{Channel: "stream", Kind: KindNetwork, Err: err}
	}

	log.Debug().Str("stream", a.stream).Str("entry_id", id).Msg("Summary appended to stream")
	return nil
}
