package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/feedx-service/internal/events"
	"github.com/spec-kit/feedx-service/internal/observability"
)

func TestStartNotificationWorkerCountsEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	metrics := observability.NewMetrics()

	StartNotificationWorker(dispatcher, Subscribers{Metrics: metrics})

	ctx := context.Background()
	_ = dispatcher.Publish(ctx, events.Event{Type: events.EventIssueCreated, IssueID: "a"})
	_ = dispatcher.Publish(ctx, events.Event{Type: events.EventIssueEscalated, IssueID: "a"})
	_ = dispatcher.Publish(ctx, events.Event{Type: events.EventIssueEscalated, IssueID: "b"})

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Events[string(events.EventIssueCreated)])
	assert.Equal(t, int64(2), snap.Events[string(events.EventIssueEscalated)])
}

func TestStartNotificationWorkerNilDispatcher(t *testing.T) {
	assert.NotPanics(t, func() {
		StartNotificationWorker(nil, Subscribers{Metrics: observability.NewMetrics()})
	})
}
