package engine

import (
	"context"
	"testing"

	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	types []string
	data  []any
}

func newTestEngine(t *testing.T, opts Options) (*Engine, *recorder) {
	t.Helper()

	cm := world.NewChunkMap(2)
	for x := 0; x < 2; x++ {
		for z := 0; z < 2; z++ {
			require.NoError(t, cm.Insert(world.NewChunk(world.ChunkPos{X: x, Z: z})))
		}
	}
	// Каменный пол на y=9
	for x := 0; x < 32; x++ {
		for z := 0; z < 32; z++ {
			cm.SetBlock(vec.Vec3{X: x, Y: 9, Z: z}, block.Stone)
		}
	}

	bus := eventbus.NewMemoryBus(64)
	r := mesh.NewRemesher(cm, 2, mesh.WithEventBus(bus))
	t.Cleanup(r.Close)

	e := New(&world.World{Chunks: cm}, r, bus, opts)

	// Первый тик строит меши пола
	_, err := e.Tick(context.Background())
	require.NoError(t, err)

	rec := &recorder{}
	_, err = bus.Subscribe(context.Background(), eventbus.Filter{}, func(ctx context.Context, ev *eventbus.Envelope) {
		rec.types = append(rec.types, ev.EventType)
		rec.data = append(rec.data, ev.Data)
	})
	require.NoError(t, err)
	return e, rec
}

func TestTickAppliesRequestsInOrder(t *testing.T) {
	e, rec := newTestEngine(t, Options{})
	p := vec.Vec3{X: 5, Y: 10, Z: 5}

	require.NoError(t, e.Submit(MutationRequest{Pos: p, Type: block.Wood}))
	require.NoError(t, e.Submit(MutationRequest{Pos: p, Type: block.Air}))
	require.NoError(t, e.Submit(MutationRequest{Pos: p, Type: block.Air}))
	assert.Equal(t, 3, e.Pending())

	res, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, e.Pending())
	assert.Equal(t, block.Air, e.World().GetBlock(p))

	require.Len(t, rec.types, 3)
	assert.Equal(t, []string{"BlockPlaced", "BlockRemoved", "MeshReady"}, rec.types)
	assert.Equal(t, world.BlockPlaced{Position: p, Type: block.Wood}, rec.data[0])
	assert.Equal(t, world.BlockRemoved{Position: p, Type: block.Wood}, rec.data[1])

	ready := rec.data[2].(mesh.MeshReady)
	assert.Equal(t, world.ChunkPos{X: 0, Z: 0}, ready.Chunk)
	assert.Equal(t, uint64(2), ready.Version)
	assert.Equal(t, 3, res.Delivered)
}

func TestTickDeliversEveryChangeBeyondQueueCapacity(t *testing.T) {
	e, rec := newTestEngine(t, Options{})

	// Очередь шины на 64 события, изменений больше
	for i := 0; i < 80; i++ {
		p := vec.Vec3{X: i % 32, Y: 10, Z: (i/32)*10 + 1}
		require.NoError(t, e.Submit(MutationRequest{Pos: p, Type: block.Stone}))
	}

	res, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 80, res.Applied)
	require.Len(t, res.Meshes, 4)

	counts := make(map[string]int)
	for _, typ := range rec.types {
		counts[typ]++
	}
	assert.Equal(t, 80, counts["BlockPlaced"])
	assert.Equal(t, 4, counts["MeshReady"])
	assert.Equal(t, 84, res.Delivered)
	assert.Zero(t, e.Bus().Metrics().Dropped)
	assert.Zero(t, e.Bus().Metrics().InFlight)
}

func TestTickWithoutChangesIsQuiet(t *testing.T) {
	e, rec := newTestEngine(t, Options{})

	res, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Meshes)
	assert.Empty(t, rec.types)
	assert.Equal(t, uint64(2), res.Tick)
}

func TestSubmitValidation(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	err := e.Submit(MutationRequest{Pos: vec.Vec3{X: -1, Y: 10, Z: 0}, Type: block.Stone})
	assert.ErrorIs(t, err, ErrOutOfWorld)

	err = e.Submit(MutationRequest{Pos: vec.Vec3{X: 1, Y: 64, Z: 0}, Type: block.Stone})
	assert.ErrorIs(t, err, ErrOutOfWorld)

	err = e.Submit(MutationRequest{Pos: vec.Vec3{X: 1, Y: 10, Z: 0}, Type: block.Count})
	assert.ErrorIs(t, err, ErrUnknownBlock)
	assert.Zero(t, e.Pending())
}

func TestMaxMutationsPerTick(t *testing.T) {
	e, _ := newTestEngine(t, Options{MaxMutationsPerTick: 2})
	for x := 0; x < 5; x++ {
		require.NoError(t, e.Submit(MutationRequest{Pos: vec.Vec3{X: x, Y: 10, Z: 1}, Type: block.Sand}))
	}

	res, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 3, e.Pending())
	assert.Equal(t, block.Sand, e.World().GetBlock(vec.Vec3{X: 1, Y: 10, Z: 1}))
	assert.Equal(t, block.Air, e.World().GetBlock(vec.Vec3{X: 2, Y: 10, Z: 1}))
}

func TestBreakAndPlace(t *testing.T) {
	e, rec := newTestEngine(t, Options{})
	eye := mgl64.Vec3{5.5, 12.5, 5.5}
	down := mgl64.Vec3{0, -1, 0}

	// Ставим блок на пол: попадание в (5,9,5), установка в (5,10,5)
	target, err := e.Place(eye, down, block.Dirt, nil)
	require.NoError(t, err)
	assert.Equal(t, vec.Vec3{X: 5, Y: 10, Z: 5}, target)
	_, err = e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, block.Dirt, e.World().GetBlock(target))

	// Разрушаем его же
	broken, err := e.Break(eye, down)
	require.NoError(t, err)
	assert.Equal(t, target, broken)
	_, err = e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, block.Air, e.World().GetBlock(target))

	assert.Contains(t, rec.data, world.BlockRemoved{Position: target, Type: block.Dirt})
}

func TestPlaceRejections(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	down := mgl64.Vec3{0, -1, 0}

	// Вверх смотреть не во что
	_, err := e.Place(mgl64.Vec3{5.5, 12.5, 5.5}, mgl64.Vec3{0, 1, 0}, block.Stone, nil)
	assert.ErrorIs(t, err, ErrNoTarget)

	// Луч изнутри пола
	_, err = e.Place(mgl64.Vec3{5.5, 9.5, 5.5}, down, block.Stone, nil)
	assert.ErrorIs(t, err, ErrNoPlaceFace)

	// Игрок стоит на полу: блок под ногами пересек бы тело
	body := physics.NewPlayerBody(mgl64.Vec3{5.5, 10, 5.5})
	_, err = e.Place(body.Eye(), down, block.Stone, body)
	assert.ErrorIs(t, err, ErrBodyCollision)

	// Неверный тип
	_, err = e.Place(mgl64.Vec3{5.5, 12.5, 5.5}, down, block.Air, nil)
	assert.ErrorIs(t, err, ErrUnknownBlock)

	assert.Zero(t, e.Pending())
}

func TestRaycastThroughEngine(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	hit, ok, err := e.Raycast(mgl64.Vec3{3.5, 15, 3.5}, mgl64.Vec3{0, -1, 0}, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vec.Vec3{X: 3, Y: 9, Z: 3}, hit.Block)
	assert.Equal(t, vec.Vec3{Y: 1}, hit.Normal)
	assert.InDelta(t, 5.0, hit.Distance, 1e-9)
}
