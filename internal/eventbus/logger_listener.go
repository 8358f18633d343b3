package eventbus

import (
	"context"

	"github.com/annel0/blockverse/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог компонента events.
// Функция неблокирующая: события пишутся при очередном Drain.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	logger := logging.GetEventsLogger()

	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		logger.Debug("%s %s src=%s prio=%d data=%+v", ev.ID, ev.EventType, ev.Source, ev.Priority, ev.Data)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
