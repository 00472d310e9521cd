package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamAdder is the slice of the redis client the sink needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamSink appends every event it receives to a Redis stream so other
// services can follow issue activity.
type StreamSink struct {
	client StreamAdder
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewStreamSink builds a sink. maxLen <= 0 leaves the stream untrimmed.
func NewStreamSink(client StreamAdder, stream string, maxLen int64, logger *zap.Logger) *StreamSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamSink{client: client, stream: stream, maxLen: maxLen, logger: logger}
}

// Register subscribes the sink to every issue event type.
func (s *StreamSink) Register(dispatcher Dispatcher) {
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, s.Handle)
	}
}

// Handle writes one event as a stream entry.
func (s *StreamSink) Handle(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"event_id":   event.ID,
			"event_type": string(event.Type),
			"issue_id":   event.IssueID,
			"actor_id":   event.Actor.UserID,
			"actor_role": string(event.Actor.Role),
			"timestamp":  event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			"payload":    string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("append event to stream: %w", err)
	}
	s.logger.Debug("event streamed",
		zap.String("stream", s.stream),
		zap.String("event_type", string(event.Type)),
		zap.String("issue_id", event.IssueID))
	return nil
}
