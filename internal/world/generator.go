package world

import (
	"math"

	"github.com/annel0/blockverse/internal/world/block"
	"github.com/aquilax/go-perlin"
)

// Константы генерации по умолчанию
const (
	DefaultSeed       int64 = 42
	DefaultBaseHeight       = 20   // Средняя высота поверхности
	DefaultAmplitude        = 15.0 // Размах высот
	DefaultNoiseScale       = 0.02 // Частота основного шума
	DefaultSeaLevel         = 14   // Ниже этой высоты пустоты заливаются водой
)

// GeneratorConfig параметры генерации ландшафта
type GeneratorConfig struct {
	Seed        int64   `yaml:"seed"`
	BaseHeight  int     `yaml:"base_height"`
	Amplitude   float64 `yaml:"amplitude"`
	NoiseScale  float64 `yaml:"noise_scale"`
	SeaLevel    int     `yaml:"sea_level"`
	Alpha       float64 `yaml:"alpha"`        // Сглаживание шума
	Beta        float64 `yaml:"beta"`         // Частота шума
	Octaves     int32   `yaml:"octaves"`      // Количество октав
	ForestScale float64 `yaml:"forest_scale"` // Частота шума плотности лесов
	TreeDensity float64 `yaml:"tree_density"` // Базовая вероятность дерева на колонку травы
}

// DefaultGeneratorConfig возвращает параметры по умолчанию
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        DefaultSeed,
		BaseHeight:  DefaultBaseHeight,
		Amplitude:   DefaultAmplitude,
		NoiseScale:  DefaultNoiseScale,
		SeaLevel:    DefaultSeaLevel,
		Alpha:       2.0,
		Beta:        2.0,
		Octaves:     3,
		ForestScale: 0.01,
		TreeDensity: 0.02,
	}
}

// TerrainGenerator генерирует чанки по сиду и координатам.
// Генерация детерминирована: одинаковые (сид, позиция) дают одинаковые блоки.
type TerrainGenerator struct {
	cfg    GeneratorConfig
	height *perlin.Perlin // Шум высоты
	forest *perlin.Perlin // Низкочастотный шум плотности лесов
}

// NewTerrainGenerator создаёт генератор с указанными параметрами
func NewTerrainGenerator(cfg GeneratorConfig) *TerrainGenerator {
	def := DefaultGeneratorConfig()
	if cfg.Octaves <= 0 {
		cfg.Octaves = def.Octaves
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = def.Alpha
	}
	if cfg.Beta == 0 {
		cfg.Beta = def.Beta
	}
	if cfg.NoiseScale == 0 {
		cfg.NoiseScale = def.NoiseScale
	}
	if cfg.ForestScale == 0 {
		cfg.ForestScale = def.ForestScale
	}

	return &TerrainGenerator{
		cfg:    cfg,
		height: perlin.NewPerlin(cfg.Alpha, cfg.Beta, cfg.Octaves, cfg.Seed),
		forest: perlin.NewPerlin(cfg.Alpha, cfg.Beta, cfg.Octaves, cfg.Seed+1),
	}
}

// Config возвращает параметры генератора
func (g *TerrainGenerator) Config() GeneratorConfig {
	return g.cfg
}

// Seed возвращает сид генератора
func (g *TerrainGenerator) Seed() int64 {
	return g.cfg.Seed
}

// HeightAt возвращает высоту поверхности для мировой колонки (wx, wz)
func (g *TerrainGenerator) HeightAt(wx, wz int) int {
	n := g.height.Noise2D(float64(wx)*g.cfg.NoiseScale, float64(wz)*g.cfg.NoiseScale)
	h := int(math.Floor(float64(g.cfg.BaseHeight) + n*g.cfg.Amplitude))

	// Поверхность всегда внутри чанка и над нулевым слоем
	if h < 1 {
		h = 1
	}
	if h > ChunkHeight-1 {
		h = ChunkHeight - 1
	}
	return h
}

// ColumnBlock возвращает материал блока на высоте y для колонки с поверхностью surface
func (g *TerrainGenerator) ColumnBlock(y, surface int) block.Type {
	switch {
	case y > surface:
		if y <= g.cfg.SeaLevel {
			return block.Water
		}
		return block.Air
	case y == surface:
		if surface >= g.cfg.SeaLevel {
			return block.Grass
		}
		return block.Sand
	case y > surface-4:
		return block.Dirt
	default:
		return block.Stone
	}
}

// Generate создаёт и заполняет чанк. Результат помечен грязным,
// чтобы первый проход перестроения мешей построил его геометрию.
func (g *TerrainGenerator) Generate(pos ChunkPos) *Chunk {
	c := NewChunk(pos)
	origin := pos.Origin()

	var surface [ChunkSize][ChunkSize]int
	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			h := g.HeightAt(origin.X+x, origin.Z+z)
			surface[x][z] = h
			for y := 0; y < ChunkHeight; y++ {
				c.blocks[Index(x, y, z)] = g.ColumnBlock(y, h)
			}
		}
	}

	g.placeTrees(c, &surface)

	c.MarkDirty()
	return c
}
