package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/feedx-service/internal/domain"
)

func TestDispatcher_PublishContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var calls []string
	d.Subscribe(EventIssueEscalated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventIssueEscalated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventIssueCreated, func(context.Context, Event) error {
		calls = append(calls, "unrelated")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventIssueEscalated, IssueID: "i-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

type fakeStream struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	return redis.NewStringResult("1-0", f.err)
}

func TestStreamSink_Handle(t *testing.T) {
	stream := &fakeStream{}
	sink := NewStreamSink(stream, "feedx:issue-events", 100, nil)

	err := sink.Handle(context.Background(), Event{
		ID:        "evt-1",
		Type:      EventIssueEscalated,
		IssueID:   "issue-1",
		Actor:     Actor{UserID: "u-1", Role: domain.RoleStudent},
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Payload:   IssueEscalatedPayload{Reason: "no reply", AgeHours: 50},
	})
	require.NoError(t, err)
	require.Len(t, stream.args, 1)

	args := stream.args[0]
	assert.Equal(t, "feedx:issue-events", args.Stream)
	assert.Equal(t, int64(100), args.MaxLen)
	assert.True(t, args.Approx)

	values, ok := args.Values.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "issue_escalated", values["event_type"])
	assert.Equal(t, "issue-1", values["issue_id"])
	assert.Equal(t, "student", values["actor_role"])
	assert.JSONEq(t, `{"reason":"no reply","age_hours":50}`, values["payload"].(string))
}

func TestStreamSink_RegisterAndFailure(t *testing.T) {
	stream := &fakeStream{err: errors.New("connection refused")}
	sink := NewStreamSink(stream, "s", 0, nil)

	d := NewInMemoryDispatcher(nil)
	sink.Register(d)

	for _, eventType := range AllEventTypes {
		require.NoError(t, d.Publish(context.Background(), Event{Type: eventType}))
	}
	assert.Len(t, stream.args, len(AllEventTypes))
	assert.Zero(t, stream.args[0].MaxLen)

	err := sink.Handle(context.Background(), Event{Type: EventIssueCreated})
	assert.ErrorContains(t, err, "connection refused")
}
