package mesh

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/world"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// EventSource имя источника событий перестроения в шине
const EventSource = "mesh"

var tracer = otel.Tracer("github.com/annel0/blockverse/internal/world/mesh")

// MeshReady публикуется после замены меша чанка
type MeshReady struct {
	Chunk   world.ChunkPos
	Version uint64
	Quads   int
	Mesh    *Mesh
}

// GetType возвращает тип события
func (e MeshReady) GetType() world.EventType {
	return world.EventTypeMeshReady
}

// Remesher перестраивает меши грязных чанков на пуле воркеров
type Remesher struct {
	chunks  *world.ChunkMap
	store   *Store
	bus     eventbus.EventBus // Может быть nil
	metrics *Metrics          // Может быть nil
	pool    pond.Pool
	logger  *logging.Logger
}

// RemesherOption настраивает Remesher
type RemesherOption func(*Remesher)

// WithEventBus публикует MeshReady в шину после каждого перестроения
func WithEventBus(bus eventbus.EventBus) RemesherOption {
	return func(r *Remesher) { r.bus = bus }
}

// WithMetrics включает Prometheus-метрики
func WithMetrics(m *Metrics) RemesherOption {
	return func(r *Remesher) { r.metrics = m }
}

// WithStore задает хранилище мешей
func WithStore(s *Store) RemesherOption {
	return func(r *Remesher) { r.store = s }
}

// NewRemesher создаёт Remesher с пулом из workers воркеров (0 = по числу CPU)
func NewRemesher(chunks *world.ChunkMap, workers int, opts ...RemesherOption) *Remesher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	r := &Remesher{
		chunks: chunks,
		store:  NewStore(),
		pool:   pond.NewPool(workers),
		logger: logging.GetMeshLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store возвращает хранилище мешей
func (r *Remesher) Store() *Store {
	return r.store
}

// Close дожидается завершения задач и останавливает пул
func (r *Remesher) Close() {
	r.pool.StopAndWait()
}

type job struct {
	pos world.ChunkPos
	n   Neighborhood
}

// Run выполняет один проход: снимает флаги грязных чанков, снимает копии блоков,
// строит меши параллельно и заменяет их в хранилище. Возвращает новые меши
// в порядке позиций чанков.
//
// Флаг снимается до снятия копии, поэтому изменение, сделанное во время прохода,
// снова пометит чанк и попадет в следующий проход.
func (r *Remesher) Run(ctx context.Context) ([]*Mesh, error) {
	dirty := r.chunks.Dirty()
	if len(dirty) == 0 {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "mesh.Remesh")
	defer span.End()

	start := time.Now()

	jobs := make([]job, 0, len(dirty))
	for _, pos := range dirty {
		c, ok := r.chunks.ChunkAt(pos)
		if !ok || !c.TakeDirty() {
			continue
		}
		n, ok := Snapshot(r.chunks, pos)
		if !ok {
			continue
		}
		jobs = append(jobs, job{pos: pos, n: n})
	}

	meshes := make([]*Mesh, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		r.pool.Submit(func() {
			defer wg.Done()
			meshes[i] = Build(j.pos, j.n)
		})
	}
	wg.Wait()

	var publishErr error
	for _, m := range meshes {
		r.store.Put(m)
		if r.bus == nil {
			continue
		}
		ev := eventbus.NewEnvelope(EventSource, world.EventTypeMeshReady.String(), eventbus.PriorityHigh,
			MeshReady{Chunk: m.Chunk, Version: m.Version, Quads: m.Quads, Mesh: m})
		if _, err := eventbus.PublishOrDrain(ctx, r.bus, ev); err != nil && publishErr == nil {
			publishErr = fmt.Errorf("публикация MeshReady для %v: %w", m.Chunk, err)
		}
	}

	elapsed := time.Since(start)
	r.metrics.observe(meshes, elapsed.Seconds())
	span.SetAttributes(attribute.Int("mesh.chunks", len(meshes)))

	r.logger.Debug("🧱 Перестроено мешей: %d за %v", len(meshes), elapsed)
	return meshes, publishErr
}

// RemeshAll помечает все чанки грязными и выполняет проход
func (r *Remesher) RemeshAll(ctx context.Context) ([]*Mesh, error) {
	for _, pos := range r.chunks.Positions() {
		if c, ok := r.chunks.ChunkAt(pos); ok {
			c.MarkDirty()
		}
	}
	return r.Run(ctx)
}
