package mesh

import (
	"math/rand"
	"testing"

	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(t block.Type) *world.Blocks {
	b := new(world.Blocks)
	for i := range b {
		b[i] = t
	}
	return b
}

func single(x, y, z int, t block.Type) Neighborhood {
	center := new(world.Blocks)
	center[world.Index(x, y, z)] = t
	return Neighborhood{Center: center}
}

func requireWellFormed(t *testing.T, m *Mesh) {
	t.Helper()
	require.Len(t, m.Vertices, m.Quads*4)
	require.Len(t, m.Indices, m.Quads*6)

	// Обход против часовой стрелки снаружи: нормаль треугольника совпадает с нормалью вершин
	for q := 0; q < m.Quads; q++ {
		i0, i1, i2 := m.Indices[q*6], m.Indices[q*6+1], m.Indices[q*6+2]
		p0, p1, p2 := m.Vertices[i0].Position, m.Vertices[i1].Position, m.Vertices[i2].Position
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		require.Greater(t, n.Dot(m.Vertices[i0].Normal), float32(0), "квад %d", q)
	}
}

func countByNormal(m *Mesh, n mgl32.Vec3) int {
	count := 0
	for q := 0; q < m.Quads; q++ {
		if m.Vertices[q*4].Normal == n {
			count++
		}
	}
	return count
}

func TestSingleBlockSixQuads(t *testing.T) {
	m := Build(world.ChunkPos{}, single(8, 10, 8, block.Stone))

	assert.Equal(t, 6, m.Quads)
	assert.Len(t, m.Vertices, 24)
	assert.Len(t, m.Indices, 36)
	requireWellFormed(t, m)

	for _, f := range world.Faces {
		n := f.Normal()
		assert.Equal(t, 1, countByNormal(m, mgl32.Vec3{float32(n.X), float32(n.Y), float32(n.Z)}), "грань %v", f)
	}

	for _, v := range m.Vertices {
		assert.Equal(t, uint16(block.Stone.Texture()), v.Texture)
		assert.Equal(t, mgl32.Vec4(block.Get(block.Stone).Color), v.Color)
	}
}

func TestFullChunkInAirSixQuads(t *testing.T) {
	m := Build(world.ChunkPos{X: 1, Z: 2}, Neighborhood{Center: filled(block.Stone)})

	assert.Equal(t, 6, m.Quads)
	requireWellFormed(t, m)
	for q := 0; q < m.Quads; q++ {
		w, h := quadSize(m, q)
		n := m.Vertices[q*4].Normal
		if n.Y() != 0 {
			assert.Equal(t, [2]int{16, 16}, [2]int{w, h})
		} else {
			assert.Equal(t, world.ChunkSize*world.ChunkHeight, w*h)
		}
	}
}

// quadSize возвращает размеры квада в блоках по его UV
func quadSize(m *Mesh, q int) (w, h int) {
	uv := m.Vertices[q*4+2].UV
	return int(uv.X()), int(uv.Y())
}

// naiveFaceArea считает видимые грани по одной на блок, по типу блока
func naiveFaceArea(n Neighborhood) map[uint16]int {
	area := make(map[uint16]int)
	for y := 0; y < world.ChunkHeight; y++ {
		for z := 0; z < world.ChunkSize; z++ {
			for x := 0; x < world.ChunkSize; x++ {
				near := n.Center.At(x, y, z)
				if near == block.Air {
					continue
				}
				for _, f := range world.Faces {
					d := f.Normal()
					fx, fy, fz := x+d.X, y+d.Y, z+d.Z
					if world.InChunk(fx, fy, fz) && n.Center.At(fx, fy, fz).CullsFace(near) {
						continue
					}
					area[uint16(near.Texture())]++
				}
			}
		}
	}
	return area
}

func TestGreedyAreaMatchesNaiveFaces(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	palette := []block.Type{block.Stone, block.Dirt, block.Water, block.Leaves}

	for iter := 0; iter < 20; iter++ {
		center := new(world.Blocks)
		density := 0.1 + 0.8*rng.Float64()
		for i := range center {
			if rng.Float64() < density {
				center[i] = palette[rng.Intn(len(palette))]
			}
		}
		n := Neighborhood{Center: center}

		m := Build(world.ChunkPos{}, n)
		requireWellFormed(t, m)

		greedy := make(map[uint16]int)
		for q := 0; q < m.Quads; q++ {
			w, h := quadSize(m, q)
			greedy[m.Vertices[q*4].Texture] += w * h
		}
		require.Equal(t, naiveFaceArea(n), greedy, "итерация %d, плотность %.2f", iter, density)
	}
}

func TestEnclosedSolidChunkNoQuads(t *testing.T) {
	n := Neighborhood{Center: filled(block.Stone)}
	for _, f := range world.Faces {
		n.Sides[f] = filled(block.Dirt)
	}

	m := Build(world.ChunkPos{X: 3, Z: 3}, n)
	assert.Equal(t, 0, m.Quads)
	assert.True(t, m.IsEmpty())
	assert.Empty(t, m.Vertices)
}

func TestEmptyChunkNoQuads(t *testing.T) {
	m := Build(world.ChunkPos{}, Neighborhood{Center: new(world.Blocks)})
	assert.True(t, m.IsEmpty())

	m = Build(world.ChunkPos{}, Neighborhood{})
	assert.True(t, m.IsEmpty())
}

func TestNoInternalFaces(t *testing.T) {
	// Два камня подряд сливаются в параллелепипед из 6 квадов
	n := single(4, 4, 4, block.Stone)
	n.Center[world.Index(5, 4, 4)] = block.Stone
	m := Build(world.ChunkPos{}, n)
	assert.Equal(t, 6, m.Quads)
	requireWellFormed(t, m)

	for _, v := range m.Vertices {
		// Внутренняя плоскость x=5 не может нести грань с нормалью по X
		if v.Normal.X() != 0 {
			assert.NotEqual(t, float32(5), v.Position.X())
		}
	}

	// Разные непрозрачные типы не сливаются, но общую грань тоже не рисуют
	n.Center[world.Index(5, 4, 4)] = block.Dirt
	m = Build(world.ChunkPos{}, n)
	assert.Equal(t, 10, m.Quads)
}

func TestFlatLayerMergesToSixQuads(t *testing.T) {
	center := new(world.Blocks)
	for z := 0; z < world.ChunkSize; z++ {
		for x := 0; x < world.ChunkSize; x++ {
			center[world.Index(x, 0, z)] = block.Stone
		}
	}

	m := Build(world.ChunkPos{}, Neighborhood{Center: center})
	assert.Equal(t, 6, m.Quads)
	requireWellFormed(t, m)
}

func TestBoundarySeam(t *testing.T) {
	n := single(15, 10, 3, block.Stone)

	// Без соседа грань на границе мира видима
	m := Build(world.ChunkPos{}, n)
	assert.Equal(t, 6, m.Quads)

	// Сплошной сосед по +X скрывает грань
	side := new(world.Blocks)
	side[world.Index(0, 10, 3)] = block.Stone
	n.Sides[world.FacePosX] = side
	m = Build(world.ChunkPos{}, n)
	assert.Equal(t, 5, m.Quads)
	assert.Equal(t, 0, countByNormal(m, mgl32.Vec3{1, 0, 0}))

	// Воздух у соседа на этом месте: грань снова видима
	side[world.Index(0, 10, 3)] = block.Air
	m = Build(world.ChunkPos{}, n)
	assert.Equal(t, 6, m.Quads)
}

func TestWaterCulling(t *testing.T) {
	// Вода рядом с водой: внутренняя грань не рисуется
	n := single(8, 10, 8, block.Water)
	n.Center[world.Index(9, 10, 8)] = block.Water
	m := Build(world.ChunkPos{}, n)
	assert.Equal(t, 6, m.Quads)

	// Вода рядом с камнем: камень виден сквозь воду, грань воды к камню скрыта
	n.Center[world.Index(9, 10, 8)] = block.Stone
	m = Build(world.ChunkPos{}, n)
	assert.Equal(t, 11, m.Quads)
}

func TestUVTilesPerBlock(t *testing.T) {
	n := single(2, 5, 2, block.Grass)
	n.Center[world.Index(3, 5, 2)] = block.Grass
	n.Center[world.Index(4, 5, 2)] = block.Grass

	m := Build(world.ChunkPos{}, n)
	require.Equal(t, 6, m.Quads)

	for q := 0; q < m.Quads; q++ {
		quad := m.Vertices[q*4 : q*4+4]
		if quad[0].Normal != (mgl32.Vec3{0, 1, 0}) {
			continue
		}
		var maxU, maxV float32
		for _, v := range quad {
			maxU = max(maxU, v.UV.X())
			maxV = max(maxV, v.UV.Y())
		}
		// Верхняя грань 3x1 блока: текстура повторяется три раза вдоль X
		assert.Equal(t, float32(3), maxU*maxV)
		assert.Equal(t, float32(6), quad[0].Position.Y())
	}
}

func TestPositionsInWorldSpace(t *testing.T) {
	m := Build(world.ChunkPos{X: 1, Z: 2}, single(0, 0, 0, block.Sand))
	require.Equal(t, 6, m.Quads)

	for _, v := range m.Vertices {
		assert.True(t, v.Position.X() >= 16 && v.Position.X() <= 17, "x=%v", v.Position.X())
		assert.True(t, v.Position.Z() >= 32 && v.Position.Z() <= 33, "z=%v", v.Position.Z())
	}
	assert.Equal(t, world.ChunkPos{X: 1, Z: 2}, m.Chunk)
	assert.Equal(t, 12, m.Triangles())
}
