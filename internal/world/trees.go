package world

import (
	"encoding/binary"

	"github.com/annel0/blockverse/internal/world/block"
	"github.com/cespare/xxhash/v2"
)

// Параметры деревьев
const (
	minTrunkHeight = 4
	maxTrunkHeight = 6
	canopyRadius   = 2
	treeMargin     = canopyRadius // Ствол не ближе к краю чанка, чем радиус кроны
)

// columnHash детерминированный хеш колонки мира, не зависящий от порядка обхода
func columnHash(seed int64, wx, wz int) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(wx)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(wz)))
	return xxhash.Sum64(buf[:])
}

// forestDensity возвращает плотность леса в точке от 0 до 1
func (g *TerrainGenerator) forestDensity(wx, wz int) float64 {
	n := g.forest.Noise2D(float64(wx)*g.cfg.ForestScale, float64(wz)*g.cfg.ForestScale)
	d := (n + 1.0) / 2.0
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// TreeAt сообщает, растет ли дерево в мировой колонке, и высоту его ствола.
// Проверяются только шум и хеш; поверхность проверяет placeTrees.
func (g *TerrainGenerator) TreeAt(wx, wz int) (int, bool) {
	h := columnHash(g.cfg.Seed, wx, wz)

	// Старшие 53 бита дают равномерное число в [0, 1)
	roll := float64(h>>11) / float64(uint64(1)<<53)
	chance := g.cfg.TreeDensity * 2 * g.forestDensity(wx, wz)
	if roll >= chance {
		return 0, false
	}

	trunk := minTrunkHeight + int(h%uint64(maxTrunkHeight-minTrunkHeight+1))
	return trunk, true
}

// placeTrees второй проход генерации: стволы и кроны на траве.
// Все записи остаются внутри чанка, высота дерева обрезается по верху мира.
func (g *TerrainGenerator) placeTrees(c *Chunk, surface *[ChunkSize][ChunkSize]int) {
	origin := c.Pos.Origin()

	for z := treeMargin; z < ChunkSize-treeMargin; z++ {
		for x := treeMargin; x < ChunkSize-treeMargin; x++ {
			h := surface[x][z]
			if c.blocks[Index(x, h, z)] != block.Grass {
				continue
			}

			trunk, ok := g.TreeAt(origin.X+x, origin.Z+z)
			if !ok {
				continue
			}

			base := h + 1
			// Верхний слой кроны на base+trunk+1
			if limit := ChunkHeight - 2 - base; trunk > limit {
				trunk = limit
			}
			if trunk < 2 {
				continue
			}

			g.placeTree(c, x, base, z, trunk, columnHash(g.cfg.Seed+7, origin.X+x, origin.Z+z))
		}
	}
}

func (g *TerrainGenerator) placeTree(c *Chunk, x, base, z, trunk int, shape uint64) {
	for y := base; y < base+trunk; y++ {
		i := Index(x, y, z)
		if t := c.blocks[i]; t == block.Air || t == block.Leaves {
			c.blocks[i] = block.Wood
		}
	}

	leafBase := base + trunk - 2
	bit := 0
	for dy := 0; dy < 4; dy++ {
		y := leafBase + dy
		radius := canopyRadius
		if dy >= 2 {
			radius = 1
		}
		for dx := -radius; dx <= radius; dx++ {
			for dz := -radius; dz <= radius; dz++ {
				// Углы широких слоев срезаются по битам хеша
				if radius == canopyRadius && abs(dx) == radius && abs(dz) == radius {
					cut := shape&(1<<(bit%64)) != 0
					bit++
					if cut {
						continue
					}
				}
				lx, lz := x+dx, z+dz
				if !InChunk(lx, y, lz) {
					continue
				}
				i := Index(lx, y, lz)
				if c.blocks[i] == block.Air {
					c.blocks[i] = block.Leaves
				}
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
