package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/mesh"
	"github.com/annel0/blockverse/internal/world/raycast"
	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// EventSource имя источника событий движка в шине
const EventSource = "engine"

var tracer = otel.Tracer("github.com/annel0/blockverse/internal/engine")

var (
	// ErrUnknownBlock неизвестный тип блока в запросе
	ErrUnknownBlock = errors.New("неизвестный тип блока")
	// ErrOutOfWorld позиция вне мира
	ErrOutOfWorld = errors.New("позиция вне мира")
	// ErrNoTarget луч ни во что не попал
	ErrNoTarget = errors.New("нет блока в пределах досягаемости")
	// ErrNoPlaceFace луч начался внутри блока, грани для установки нет
	ErrNoPlaceFace = errors.New("нет грани для установки блока")
	// ErrOccupied место для установки занято твердым блоком
	ErrOccupied = errors.New("место занято")
	// ErrBodyCollision блок пересекся бы с телом игрока
	ErrBodyCollision = errors.New("блок пересекается с игроком")
)

// MutationRequest запрос на изменение блока. Type == Air означает разрушение.
type MutationRequest struct {
	Pos  vec.Vec3
	Type block.Type
}

// Options параметры движка
type Options struct {
	MaxMutationsPerTick int // 0 = применять всю очередь за тик
}

// TickResult итог одного тика
type TickResult struct {
	Tick      uint64
	Applied   int          // Запросов, изменивших блок
	Skipped   int          // Запросов без изменений (тот же тип, вне мира)
	Meshes    []*mesh.Mesh // Перестроенные меши
	Delivered int          // Событий, доставленных подписчикам
	Duration  time.Duration
}

// Engine единственный писатель мира: применяет запросы по порядку,
// публикует события и запускает перестроение мешей.
type Engine struct {
	world    *world.World
	remesher *mesh.Remesher
	bus      eventbus.EventBus
	opts     Options

	mu    sync.Mutex
	queue []MutationRequest

	tickMu sync.Mutex // Тики не пересекаются
	ticks  atomic.Uint64

	logger *logging.Logger
}

// New создаёт движок поверх построенного мира
func New(w *world.World, r *mesh.Remesher, bus eventbus.EventBus, opts Options) *Engine {
	return &Engine{
		world:    w,
		remesher: r,
		bus:      bus,
		opts:     opts,
		logger:   logging.GetEngineLogger(),
	}
}

// World возвращает мир
func (e *Engine) World() *world.World {
	return e.world
}

// Remesher возвращает конвейер мешей
func (e *Engine) Remesher() *mesh.Remesher {
	return e.remesher
}

// Bus возвращает шину событий
func (e *Engine) Bus() eventbus.EventBus {
	return e.bus
}

// Ticks возвращает количество выполненных тиков
func (e *Engine) Ticks() uint64 {
	return e.ticks.Load()
}

// Submit ставит запрос в очередь. Запросы применяются в порядке поступления.
func (e *Engine) Submit(req MutationRequest) error {
	if !block.IsValid(req.Type) {
		return fmt.Errorf("%w: %d", ErrUnknownBlock, req.Type)
	}
	if !e.world.Chunks.BlockInBounds(req.Pos) {
		return fmt.Errorf("%w: %v", ErrOutOfWorld, req.Pos)
	}

	e.mu.Lock()
	e.queue = append(e.queue, req)
	e.mu.Unlock()
	return nil
}

// Pending возвращает количество запросов в очереди
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) takeBatch() []MutationRequest {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.queue)
	if e.opts.MaxMutationsPerTick > 0 && n > e.opts.MaxMutationsPerTick {
		n = e.opts.MaxMutationsPerTick
	}
	batch := make([]MutationRequest, n)
	copy(batch, e.queue[:n])
	e.queue = append(e.queue[:0], e.queue[n:]...)
	return batch
}

// Tick применяет накопленные запросы, публикует BlockPlaced/BlockRemoved,
// перестраивает меши грязных чанков (MeshReady) и доставляет все события.
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	ctx, span := tracer.Start(ctx, "engine.Tick")
	defer span.End()

	start := time.Now()
	res := TickResult{Tick: e.ticks.Add(1)}
	before := e.busStats()

	var errs []error
	for _, req := range e.takeBatch() {
		old, changed := e.world.SetBlock(req.Pos, req.Type)
		if !changed {
			res.Skipped++
			continue
		}
		res.Applied++

		ev, ok := world.EventForChange(req.Pos, old, req.Type)
		if !ok {
			continue
		}
		if err := e.publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}

	// Изменения этого тика доставляются до MeshReady, очередь освобождается под меши
	if e.bus != nil {
		e.bus.Drain(ctx)
	}

	if e.remesher != nil {
		meshes, err := e.remesher.Run(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		res.Meshes = meshes
	}

	if e.bus != nil {
		e.bus.Drain(ctx)
		res.Delivered = delivered(before, e.busStats())
	}

	res.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int64("engine.tick", int64(res.Tick)),
		attribute.Int("engine.applied", res.Applied),
		attribute.Int("engine.meshes", len(res.Meshes)),
	)

	if res.Applied > 0 || len(res.Meshes) > 0 {
		e.logger.Debug("⏱️ Тик %d: изменений %d, мешей %d, событий %d за %v",
			res.Tick, res.Applied, len(res.Meshes), res.Delivered, res.Duration)
	}
	return res, errors.Join(errs...)
}

// publish отправляет событие изменения мира. Такие события не отбрасываются:
// при переполнении очередь разгружается прямо в тике.
func (e *Engine) publish(ctx context.Context, ev world.Event) error {
	if e.bus == nil {
		return nil
	}
	env := eventbus.NewEnvelope(EventSource, ev.GetType().String(), eventbus.PriorityHigh, ev)
	if _, err := eventbus.PublishOrDrain(ctx, e.bus, env); err != nil {
		return fmt.Errorf("публикация %s: %w", env.EventType, err)
	}
	return nil
}

func (e *Engine) busStats() eventbus.Stats {
	if e.bus == nil {
		return eventbus.Stats{}
	}
	return e.bus.Metrics()
}

// delivered считает события, извлеченные из очереди между двумя снимками
func delivered(before, after eventbus.Stats) int {
	published := int(after.Published - before.Published)
	return before.InFlight + published - after.InFlight
}

// Run выполняет тики с частотой tickRate в секунду до отмены контекста
func (e *Engine) Run(ctx context.Context, tickRate int) error {
	if tickRate <= 0 {
		tickRate = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	e.logger.Info("▶️ Игровой цикл запущен (%d тиков/с)", tickRate)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("⏹️ Игровой цикл остановлен после %d тиков", e.Ticks())
			return nil
		case <-ticker.C:
			if _, err := e.Tick(ctx); err != nil {
				e.logger.Warn("Ошибка тика: %v", err)
			}
		}
	}
}

// Raycast ищет твердый блок вдоль луча
func (e *Engine) Raycast(origin, dir mgl64.Vec3, maxDist float64) (raycast.Hit, bool, error) {
	return raycast.Cast(e.world.Chunks, origin, dir, maxDist)
}

// Break ставит в очередь разрушение блока, на который смотрит игрок
func (e *Engine) Break(origin, dir mgl64.Vec3) (vec.Vec3, error) {
	hit, ok, err := e.Raycast(origin, dir, raycast.MaxReach)
	if err != nil {
		return vec.Vec3{}, err
	}
	if !ok {
		return vec.Vec3{}, ErrNoTarget
	}
	return hit.Block, e.Submit(MutationRequest{Pos: hit.Block, Type: block.Air})
}

// Place ставит в очередь установку блока t к грани, на которую смотрит игрок.
// body может быть nil; иначе блок не ставится внутрь тела.
func (e *Engine) Place(origin, dir mgl64.Vec3, t block.Type, body *physics.Body) (vec.Vec3, error) {
	if t == block.Air || !block.IsValid(t) {
		return vec.Vec3{}, fmt.Errorf("%w: %v", ErrUnknownBlock, t)
	}

	hit, ok, err := e.Raycast(origin, dir, raycast.MaxReach)
	if err != nil {
		return vec.Vec3{}, err
	}
	if !ok {
		return vec.Vec3{}, ErrNoTarget
	}

	target, ok := hit.Place()
	if !ok {
		return vec.Vec3{}, ErrNoPlaceFace
	}
	if e.world.GetBlock(target).IsSolid() {
		return target, ErrOccupied
	}
	if body != nil && t.IsSolid() && body.Collider.IntersectsBlock(body.Position, target) {
		return target, ErrBodyCollision
	}
	return target, e.Submit(MutationRequest{Pos: target, Type: t})
}
