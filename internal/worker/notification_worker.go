package worker

import (
	"context"

	"github.com/spec-kit/feedx-service/internal/events"
	"github.com/spec-kit/feedx-service/internal/observability"
	"github.com/spec-kit/feedx-service/internal/service"
)

// Subscribers are the event consumers attached at startup. Nil members are skipped.
type Subscribers struct {
	Notifications *service.NotificationService
	Stream        *events.StreamSink
	Metrics       *observability.Metrics
}

// StartNotificationWorker registers every configured consumer on dispatcher.
func StartNotificationWorker(dispatcher events.Dispatcher, subs Subscribers) {
	if dispatcher == nil {
		return
	}
	if subs.Metrics != nil {
		for _, eventType := range events.AllEventTypes {
			dispatcher.Subscribe(eventType, countEvent(subs.Metrics))
		}
	}
	if subs.Notifications != nil {
		subs.Notifications.RegisterHandlers()
	}
	if subs.Stream != nil {
		subs.Stream.Register(dispatcher)
	}
}

func countEvent(metrics *observability.Metrics) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		metrics.RecordEvent(string(event.Type))
		return nil
	}
}
