package world

import (
	"testing"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexLayout(t *testing.T) {
	i := 0
	for y := 0; y < ChunkHeight; y++ {
		for z := 0; z < ChunkSize; z++ {
			for x := 0; x < ChunkSize; x++ {
				require.Equal(t, i, Index(x, y, z))
				i++
			}
		}
	}
	assert.Equal(t, ChunkVolume, i)
	assert.Equal(t, 1, Index(1, 0, 0))
	assert.Equal(t, ChunkSize, Index(0, 0, 1))
	assert.Equal(t, ChunkLayer, Index(0, 1, 0))
}

func TestChunkCreateAndGetBlock(t *testing.T) {
	chunk := NewChunk(ChunkPos{X: 5, Z: 10})
	assert.Equal(t, ChunkPos{X: 5, Z: 10}, chunk.Pos)
	assert.Equal(t, vec.Vec3{X: 80, Y: 0, Z: 160}, chunk.Origin())

	// Новый чанк заполнен воздухом и чист
	assert.Equal(t, block.Air, chunk.GetBlock(3, 4, 5))
	assert.False(t, chunk.IsDirty())

	old, changed := chunk.SetBlock(3, 4, 5, block.Stone)
	assert.True(t, changed)
	assert.Equal(t, block.Air, old)
	assert.Equal(t, block.Stone, chunk.GetBlock(3, 4, 5))
	assert.True(t, chunk.IsDirty())
	assert.Equal(t, uint64(1), chunk.Changes())
}

func TestChunkSetSameTypeIsNoop(t *testing.T) {
	chunk := NewChunk(ChunkPos{})
	chunk.SetBlock(1, 1, 1, block.Dirt)
	chunk.ClearDirty()

	_, changed := chunk.SetBlock(1, 1, 1, block.Dirt)
	assert.False(t, changed)
	assert.False(t, chunk.IsDirty())
	assert.Equal(t, uint64(1), chunk.Changes())
}

func TestChunkOutOfRange(t *testing.T) {
	chunk := NewChunk(ChunkPos{})

	_, changed := chunk.SetBlock(16, 0, 0, block.Stone)
	assert.False(t, changed)
	_, changed = chunk.SetBlock(0, ChunkHeight, 0, block.Stone)
	assert.False(t, changed)
	assert.Equal(t, block.Air, chunk.GetBlock(-1, 0, 0))
	assert.False(t, chunk.IsDirty())
}

func TestChunkTakeDirty(t *testing.T) {
	chunk := NewChunk(ChunkPos{})
	assert.False(t, chunk.TakeDirty())

	chunk.MarkDirty()
	assert.True(t, chunk.TakeDirty())
	assert.False(t, chunk.IsDirty())
	assert.False(t, chunk.TakeDirty())
}

func TestChunkSnapshotIsCopy(t *testing.T) {
	chunk := NewChunk(ChunkPos{})
	chunk.SetBlock(0, 0, 0, block.Sand)

	snap := chunk.Snapshot()
	chunk.SetBlock(0, 0, 0, block.Stone)

	assert.Equal(t, block.Sand, snap.At(0, 0, 0))
	assert.Equal(t, block.Air, snap.At(0, -1, 0))
	assert.Equal(t, block.Stone, chunk.GetBlock(0, 0, 0))
}

func TestChunkCount(t *testing.T) {
	chunk := NewChunk(ChunkPos{})
	assert.Equal(t, ChunkVolume, chunk.Count(block.Air))

	for x := 0; x < ChunkSize; x++ {
		chunk.SetBlock(x, 0, 0, block.Stone)
	}
	assert.Equal(t, ChunkSize, chunk.Count(block.Stone))
	assert.Equal(t, ChunkVolume-ChunkSize, chunk.Count(block.Air))
	assert.Equal(t, uint64(ChunkSize), chunk.Changes())
}

func TestWorldToLocalRoundTrip(t *testing.T) {
	points := []vec.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 15, Y: 63, Z: 15},
		{X: 16, Y: 10, Z: 31},
		{X: 127, Y: 5, Z: 64},
		{X: -1, Y: 3, Z: -1},
		{X: -16, Y: 3, Z: -17},
		{X: -33, Y: 0, Z: 47},
	}

	for _, p := range points {
		pos, local := WorldToLocal(p)
		assert.True(t, InChunk(local.X, local.Y, local.Z), "локальные координаты %v для %v", local, p)
		assert.Equal(t, p, LocalToWorld(pos, local), "точка %v", p)
	}

	pos, local := WorldToLocal(vec.Vec3{X: -1, Y: 0, Z: -17})
	assert.Equal(t, ChunkPos{X: -1, Z: -2}, pos)
	assert.Equal(t, vec.Vec3{X: 15, Y: 0, Z: 15}, local)
}

func TestFloorDivMod(t *testing.T) {
	assert.Equal(t, -1, FloorDiv(-1, 16))
	assert.Equal(t, -1, FloorDiv(-16, 16))
	assert.Equal(t, -2, FloorDiv(-17, 16))
	assert.Equal(t, 1, FloorDiv(16, 16))
	assert.Equal(t, 15, FloorMod(-1, 16))
	assert.Equal(t, 0, FloorMod(-16, 16))
}

func TestFaces(t *testing.T) {
	for _, f := range Faces {
		n := f.Normal()
		back, ok := FaceFromNormal(n)
		require.True(t, ok)
		assert.Equal(t, f, back)
	}
	_, ok := FaceFromNormal(vec.Vec3{X: 1, Y: 1})
	assert.False(t, ok)
	assert.Equal(t, 1, FacePosY.Axis())
	assert.Equal(t, -1, FaceNegZ.Sign())
}
