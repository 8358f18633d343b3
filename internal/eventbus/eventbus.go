package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Приоритеты событий
const (
	PriorityLow      = 0
	PriorityNormal   = 3
	PriorityHigh     = 5 // С этого уровня события не отбрасываются при переполнении
	PriorityCritical = 9
)

// DefaultCapacity размер очереди по умолчанию
const DefaultCapacity = 4096

// ErrQueueFull очередь заполнена, событие высокого приоритета не принято
var ErrQueueFull = errors.New("очередь событий заполнена")

// Envelope описывает универсальный контейнер события.
type Envelope struct {
	ID            string            // Глобально уникальный идентификатор (UUID).
	Timestamp     time.Time         // Время создания события (UTC).
	Source        string            // Имя компонента-источника.
	EventType     string            // Тип события (BlockPlaced, MeshReady…).
	CorrelationID string            // Для связывания цепочек.
	Priority      int               // 0=Low … 9=Critical (для backpressure).
	Data          any               // Полезная нагрузка, передается как есть.
	Metadata      map[string]string // Произвольные метаданные.
}

// NewEnvelope создаёт конверт с новым UUID и текущим временем
func NewEnvelope(source, eventType string, priority int, data any) *Envelope {
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Priority:  priority,
		Data:      data,
	}
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types   []string // Пусто = все типы.
	Sources []string // Пусто = все источники.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64 `json:"published"`
	Consumed  uint64 `json:"consumed"`
	Dropped   uint64 `json:"dropped"`
	InFlight  int    `json:"in_flight"`
}

// EventBus определяет абстракцию шины событий.
// События доставляются в порядке публикации при вызове Drain.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Drain(ctx context.Context) int
	Metrics() Stats
}

//================ In-Memory implementation =================//

type memoryBus struct {
	mu          sync.Mutex
	subscribers []*subscriber // В порядке подписки
	nextID      int
	stats       Stats
	queue       []*Envelope
	capacity    int
	draining    sync.Mutex // Один Drain за раз
}

type subscriber struct {
	id      int
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus создаёт in-memory Bus с очередью указанной ёмкости.
func NewMemoryBus(capacity int) EventBus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &memoryBus{capacity: capacity}
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	if len(mb.queue) >= mb.capacity {
		// Очередь заполнена, отбрасываем низкий приоритет
		if ev.Priority < PriorityHigh {
			mb.stats.Dropped++
			return nil
		}
		return ErrQueueFull
	}

	mb.queue = append(mb.queue, ev)
	mb.stats.Published++
	return nil
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	if h == nil {
		return nil, errors.New("handler не задан")
	}

	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	cctx, cancel := context.WithCancel(ctx)
	mb.subscribers = append(mb.subscribers, &subscriber{id: id, filter: f, handler: h, ctx: cctx, cancel: cancel})
	mb.mu.Unlock()

	return &memSub{bus: mb, id: id}, nil
}

// Drain синхронно доставляет все накопленные события в порядке публикации.
// События, опубликованные обработчиками во время доставки, доставляются
// в этом же вызове. Возвращает количество извлеченных из очереди событий.
func (mb *memoryBus) Drain(ctx context.Context) int {
	mb.draining.Lock()
	defer mb.draining.Unlock()

	n := 0
	for ctx.Err() == nil {
		mb.mu.Lock()
		if len(mb.queue) == 0 {
			mb.mu.Unlock()
			break
		}
		ev := mb.queue[0]
		mb.queue[0] = nil
		mb.queue = mb.queue[1:]
		subs := make([]*subscriber, len(mb.subscribers))
		copy(subs, mb.subscribers)
		mb.mu.Unlock()

		n++
		for _, sub := range subs {
			if sub.ctx.Err() != nil || !matchFilter(ev, sub.filter) {
				continue
			}
			sub.handler(sub.ctx, ev)

			mb.mu.Lock()
			mb.stats.Consumed++
			mb.mu.Unlock()
		}
	}

	// Срез очереди сдвигался вперед: после опустошения начинаем заново
	mb.mu.Lock()
	if len(mb.queue) == 0 {
		mb.queue = nil
	}
	mb.mu.Unlock()
	return n
}

func (mb *memoryBus) Metrics() Stats {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	s := mb.stats
	s.InFlight = len(mb.queue)
	return s
}

// PublishOrDrain публикует событие, которое нельзя потерять. Если очередь
// заполнена, накопленные события доставляются и публикация повторяется.
// Возвращает количество событий, доставленных при разгрузке.
// Нельзя вызывать из обработчика: Drain не реентерабелен.
func PublishOrDrain(ctx context.Context, bus EventBus, ev *Envelope) (int, error) {
	if ev.Priority < PriorityHigh {
		ev.Priority = PriorityHigh
	}
	err := bus.Publish(ctx, ev)
	if !errors.Is(err, ErrQueueFull) {
		return 0, err
	}
	n := bus.Drain(ctx)
	return n, bus.Publish(ctx, ev)
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	for i, sub := range s.bus.subscribers {
		if sub.id == s.id {
			sub.cancel()
			s.bus.subscribers = append(s.bus.subscribers[:i], s.bus.subscribers[i+1:]...)
			return
		}
	}
}
