package world

import (
	"sync"
	"sync/atomic"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Размеры чанка в блоках
const (
	ChunkSize   = 16                                  // Размер по X и Z
	ChunkHeight = 64                                  // Размер по Y (вся высота мира)
	ChunkLayer  = ChunkSize * ChunkSize               // Блоков в одном горизонтальном слое
	ChunkVolume = ChunkSize * ChunkSize * ChunkHeight // 16384
)

// Blocks плоский массив блоков чанка. Индекс: y*16*16 + z*16 + x,
// слои по Y лежат в памяти подряд.
type Blocks [ChunkVolume]block.Type

// Index преобразует локальные координаты в индекс плоского массива
func Index(x, y, z int) int {
	return y*ChunkLayer + z*ChunkSize + x
}

// InChunk проверяет, лежат ли локальные координаты внутри чанка
func InChunk(x, y, z int) bool {
	return x >= 0 && x < ChunkSize && y >= 0 && y < ChunkHeight && z >= 0 && z < ChunkSize
}

// At возвращает блок по локальным координатам; вне чанка воздух
func (b *Blocks) At(x, y, z int) block.Type {
	if !InChunk(x, y, z) {
		return block.Air
	}
	return b[Index(x, y, z)]
}

// Chunk представляет участок мира 16x64x16 блоков.
// Чанк ничего не знает о соседях: связи между чанками хранит только ChunkMap.
type Chunk struct {
	Pos ChunkPos // Координаты чанка в мире

	mu      sync.RWMutex // Один писатель / много читателей
	blocks  Blocks
	dirty   atomic.Bool   // Меш устарел относительно блоков
	changes atomic.Uint64 // Счетчик изменений блоков
}

// NewChunk создаёт пустой (заполненный воздухом) чанк
func NewChunk(pos ChunkPos) *Chunk {
	return &Chunk{Pos: pos}
}

// GetBlock возвращает блок по локальным координатам
func (c *Chunk) GetBlock(x, y, z int) block.Type {
	if !InChunk(x, y, z) {
		return block.Air
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[Index(x, y, z)]
}

// SetBlock устанавливает блок по локальным координатам и помечает чанк грязным.
// Возвращает предыдущий тип и признак того, что блок действительно изменился.
func (c *Chunk) SetBlock(x, y, z int, t block.Type) (block.Type, bool) {
	if !InChunk(x, y, z) {
		return block.Air, false
	}

	c.mu.Lock()
	i := Index(x, y, z)
	old := c.blocks[i]
	if old == t {
		c.mu.Unlock()
		return old, false
	}
	c.blocks[i] = t
	c.mu.Unlock()

	c.changes.Add(1)
	c.dirty.Store(true)
	return old, true
}

// Snapshot возвращает копию блоков, снятую под блокировкой чтения
func (c *Chunk) Snapshot() *Blocks {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := new(Blocks)
	*snap = c.blocks
	return snap
}

// Count возвращает количество блоков указанного типа
func (c *Chunk) Count(t block.Type) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, b := range c.blocks {
		if b == t {
			n++
		}
	}
	return n
}

// IsDirty возвращает true, если меш чанка устарел
func (c *Chunk) IsDirty() bool {
	return c.dirty.Load()
}

// MarkDirty помечает чанк для перестроения меша
func (c *Chunk) MarkDirty() {
	c.dirty.Store(true)
}

// ClearDirty снимает флаг после перестроения меша
func (c *Chunk) ClearDirty() {
	c.dirty.Store(false)
}

// TakeDirty атомарно снимает флаг и сообщает, был ли он установлен.
// Изменение, сделанное после вызова, снова пометит чанк.
func (c *Chunk) TakeDirty() bool {
	return c.dirty.Swap(false)
}

// Changes возвращает количество изменений блоков за время жизни чанка
func (c *Chunk) Changes() uint64 {
	return c.changes.Load()
}

// Origin возвращает мировые координаты блока (0,0,0) чанка
func (c *Chunk) Origin() vec.Vec3 {
	return c.Pos.Origin()
}
