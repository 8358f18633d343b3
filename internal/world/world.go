package world

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/annel0/blockverse/internal/world")

// World объединяет карту чанков и генератор, которым она была заполнена
type World struct {
	Chunks    *ChunkMap
	Generator *TerrainGenerator
}

// GetBlock возвращает блок по мировым координатам
func (w *World) GetBlock(p vec.Vec3) block.Type {
	return w.Chunks.GetBlock(p)
}

// SetBlock изменяет блок по мировым координатам
func (w *World) SetBlock(p vec.Vec3, t block.Type) (block.Type, bool) {
	return w.Chunks.SetBlock(p, t)
}

// SurfaceY возвращает высоту верхнего твердого блока столбца (x, z).
// ok=false, если столбец пуст или лежит вне мира.
func (w *World) SurfaceY(x, z int) (int, bool) {
	for y := ChunkHeight - 1; y >= 0; y-- {
		if w.GetBlock(vec.Vec3{X: x, Y: y, Z: z}).IsSolid() {
			return y, true
		}
	}
	return 0, false
}

// Build генерирует все чанки мира size x size параллельно на пуле воркеров.
// Порядок вставки в карту не зависит от порядка завершения задач.
func Build(ctx context.Context, size int, gen *TerrainGenerator, workers int) (*World, error) {
	if size <= 0 {
		size = DefaultWorldSize
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, span := tracer.Start(ctx, "world.Build")
	defer span.End()
	span.SetAttributes(
		attribute.Int("world.size", size),
		attribute.Int64("world.seed", gen.Seed()),
	)

	logger := logging.GetWorldLogger()
	start := time.Now()

	generated := make([]*Chunk, size*size)

	pool := pond.NewPool(workers)
	defer pool.StopAndWait()

	var wg sync.WaitGroup
	for x := 0; x < size; x++ {
		for z := 0; z < size; z++ {
			if err := ctx.Err(); err != nil {
				wg.Wait()
				return nil, fmt.Errorf("генерация мира прервана: %w", err)
			}

			wg.Add(1)
			slot := x*size + z
			pos := ChunkPos{X: x, Z: z}
			pool.Submit(func() {
				defer wg.Done()
				generated[slot] = gen.Generate(pos)
			})
		}
	}
	wg.Wait()

	chunks := NewChunkMap(size)
	for _, c := range generated {
		if err := chunks.Insert(c); err != nil {
			return nil, fmt.Errorf("не удалось добавить чанк: %w", err)
		}
	}

	logger.Info("🌍 Мир %dx%d сгенерирован за %v (сид %d, воркеров %d)",
		size, size, time.Since(start).Round(time.Millisecond), gen.Seed(), workers)

	return &World{Chunks: chunks, Generator: gen}, nil
}
