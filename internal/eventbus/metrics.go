package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsExporter переносит Stats шины в Prometheus-метрики и считает
// доставленные события по источнику и типу (BlockPlaced, MeshReady, ...).
// Эндпоинт /metrics отдает api.
type MetricsExporter struct {
	bus  EventBus
	prev Stats
	sub  Subscription
	quit chan struct{}
	done chan struct{}

	started  bool // loop запущен, Stop ждет done
	stopped  bool
	stopOnce sync.Once

	published prometheus.Counter
	consumed  prometheus.Counter
	dropped   prometheus.Counter
	inflight  prometheus.Gauge
	delivered *prometheus.CounterVec
}

// NewMetricsExporter создаёт экспортер и регистрирует метрики в reg.
// При reg == nil используется глобальный регистр Prometheus.
func NewMetricsExporter(bus EventBus, reg prometheus.Registerer) *MetricsExporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	me := &MetricsExporter{
		bus:  bus,
		quit: make(chan struct{}),
		done: make(chan struct{}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_published_total",
			Help:      "Общее число опубликованных сообщений.",
		}),
		consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_consumed_total",
			Help:      "Общее число доставленных сообщений подписчикам.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_dropped_total",
			Help:      "Сообщений, отброшенных из-за переполнения очереди.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventbus",
			Name:      "messages_inflight",
			Help:      "Количество сообщений в очереди (не доставленных).",
		}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "events_delivered_total",
			Help:      "Доставленные события по источнику и типу.",
		}, []string{"source", "type"}),
	}

	reg.MustRegister(me.published, me.consumed, me.dropped, me.inflight, me.delivered)
	return me
}

// Start подписывается на все события и запускает периодическое обновление метрик.
// Метод неблокирующий.
func (m *MetricsExporter) Start(interval time.Duration) error {
	if m.started || m.stopped {
		return errors.New("экспортер метрик уже запущен или остановлен")
	}
	if interval <= 0 {
		interval = time.Second
	}
	sub, err := m.bus.Subscribe(context.Background(), Filter{}, m.count)
	if err != nil {
		return fmt.Errorf("подписка экспортера метрик: %w", err)
	}
	m.sub = sub
	m.started = true

	logging.Info("📈 Метрики EventBus обновляются каждые %v", interval)
	go m.loop(interval)
	return nil
}

// Stop отписывается от шины, останавливает обновление метрик и делает
// последний Sync. Безопасен без Start и при повторном вызове.
func (m *MetricsExporter) Stop() {
	m.stopOnce.Do(func() {
		m.stopped = true
		if m.sub != nil {
			m.sub.Unsubscribe()
		}
		if m.started {
			close(m.quit)
			<-m.done
		}
		m.Sync()
	})
}

func (m *MetricsExporter) count(_ context.Context, ev *Envelope) {
	m.delivered.WithLabelValues(ev.Source, ev.EventType).Inc()
}

// Sync переносит текущие Stats шины в метрики.
// Counter растет только вперед, поэтому прибавляется приращение.
func (m *MetricsExporter) Sync() {
	stats := m.bus.Metrics()

	if d := stats.Published - m.prev.Published; d > 0 {
		m.published.Add(float64(d))
	}
	if d := stats.Consumed - m.prev.Consumed; d > 0 {
		m.consumed.Add(float64(d))
	}
	if d := stats.Dropped - m.prev.Dropped; d > 0 {
		m.dropped.Add(float64(d))
	}
	m.inflight.Set(float64(stats.InFlight))

	m.prev = stats
}

func (m *MetricsExporter) loop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(m.done)

	for {
		select {
		case <-ticker.C:
			m.Sync()
		case <-m.quit:
			return
		}
	}
}
