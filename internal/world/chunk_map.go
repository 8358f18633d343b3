package world

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// DefaultWorldSize размер мира в чанках по каждой горизонтальной оси
const DefaultWorldSize = 8

var (
	// ErrOutOfWorld позиция чанка за пределами мира
	ErrOutOfWorld = errors.New("позиция за пределами мира")
	// ErrChunkExists чанк с такой позицией уже есть в карте
	ErrChunkExists = errors.New("чанк уже существует")
)

// ChunkMap владеет всеми чанками мира. Это единственный путь к данным блоков.
type ChunkMap struct {
	mu     sync.RWMutex
	chunks map[ChunkPos]*Chunk
	size   int // Размер мира в чанках по X и Z
}

// NewChunkMap создаёт пустую карту для мира size x size чанков
func NewChunkMap(size int) *ChunkMap {
	if size <= 0 {
		size = DefaultWorldSize
	}
	return &ChunkMap{
		chunks: make(map[ChunkPos]*Chunk, size*size),
		size:   size,
	}
}

// Size возвращает размер мира в чанках
func (cm *ChunkMap) Size() int {
	return cm.size
}

// InBounds проверяет, принадлежит ли позиция чанка миру
func (cm *ChunkMap) InBounds(pos ChunkPos) bool {
	return pos.X >= 0 && pos.X < cm.size && pos.Z >= 0 && pos.Z < cm.size
}

// BlockInBounds проверяет, принадлежит ли мировой блок миру
func (cm *ChunkMap) BlockInBounds(p vec.Vec3) bool {
	return p.Y >= 0 && p.Y < ChunkHeight && cm.InBounds(ChunkPosOf(p))
}

// Insert добавляет чанк в карту
func (cm *ChunkMap) Insert(c *Chunk) error {
	if !cm.InBounds(c.Pos) {
		return fmt.Errorf("чанк %v: %w", c.Pos, ErrOutOfWorld)
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.chunks[c.Pos]; exists {
		return fmt.Errorf("чанк %v: %w", c.Pos, ErrChunkExists)
	}
	cm.chunks[c.Pos] = c
	return nil
}

// ChunkAt возвращает чанк по позиции
func (cm *ChunkMap) ChunkAt(pos ChunkPos) (*Chunk, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	c, ok := cm.chunks[pos]
	return c, ok
}

// Len возвращает количество чанков
func (cm *ChunkMap) Len() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.chunks)
}

// GetBlock возвращает блок по мировым координатам.
// За пределами мира и в несгенерированных областях возвращается воздух.
func (cm *ChunkMap) GetBlock(p vec.Vec3) block.Type {
	if p.Y < 0 || p.Y >= ChunkHeight {
		return block.Air
	}

	pos, local := WorldToLocal(p)
	c, ok := cm.ChunkAt(pos)
	if !ok {
		return block.Air
	}
	return c.GetBlock(local.X, local.Y, local.Z)
}

// SetBlock изменяет блок по мировым координатам.
// Помечает грязным свой чанк, а для блоков на границе (x или z равны 0 или 15)
// ещё и соседний чанк: его меш отсекает грани по нашим граничным блокам.
// Вне мира ничего не делает. Установка того же типа не меняет геометрию и тоже
// ничего не помечает.
func (cm *ChunkMap) SetBlock(p vec.Vec3, t block.Type) (block.Type, bool) {
	if p.Y < 0 || p.Y >= ChunkHeight {
		return block.Air, false
	}

	pos, local := WorldToLocal(p)
	c, ok := cm.ChunkAt(pos)
	if !ok {
		return block.Air, false
	}

	old, changed := c.SetBlock(local.X, local.Y, local.Z, t)
	if !changed {
		return old, false
	}

	for _, f := range boundaryFaces(local) {
		n := f.Normal()
		if neighbor, ok := cm.ChunkAt(pos.Offset(n.X, n.Z)); ok {
			neighbor.MarkDirty()
		}
	}
	return old, true
}

// boundaryFaces возвращает горизонтальные грани чанка, на которых лежит локальный блок
func boundaryFaces(local vec.Vec3) []Face {
	var faces []Face
	if local.X == 0 {
		faces = append(faces, FaceNegX)
	}
	if local.X == ChunkSize-1 {
		faces = append(faces, FacePosX)
	}
	if local.Z == 0 {
		faces = append(faces, FaceNegZ)
	}
	if local.Z == ChunkSize-1 {
		faces = append(faces, FacePosZ)
	}
	return faces
}

// Neighbor возвращает соседний чанк через горизонтальную грань.
// По вертикали соседей нет: мир занимает один чанк в высоту.
func (cm *ChunkMap) Neighbor(pos ChunkPos, f Face) (*Chunk, bool) {
	if f.Axis() == 1 {
		return nil, false
	}
	n := f.Normal()
	return cm.ChunkAt(pos.Offset(n.X, n.Z))
}

// Neighbors возвращает соседей чанка по шести граням; отсутствующие равны nil
func (cm *ChunkMap) Neighbors(pos ChunkPos) [FaceCount]*Chunk {
	var result [FaceCount]*Chunk
	for _, f := range Faces {
		if c, ok := cm.Neighbor(pos, f); ok {
			result[f] = c
		}
	}
	return result
}

// Positions возвращает позиции всех чанков в порядке X, затем Z
func (cm *ChunkMap) Positions() []ChunkPos {
	cm.mu.RLock()
	positions := make([]ChunkPos, 0, len(cm.chunks))
	for pos := range cm.chunks {
		positions = append(positions, pos)
	}
	cm.mu.RUnlock()

	sortPositions(positions)
	return positions
}

// Dirty возвращает позиции грязных чанков в порядке X, затем Z
func (cm *ChunkMap) Dirty() []ChunkPos {
	cm.mu.RLock()
	var positions []ChunkPos
	for pos, c := range cm.chunks {
		if c.IsDirty() {
			positions = append(positions, pos)
		}
	}
	cm.mu.RUnlock()

	sortPositions(positions)
	return positions
}

// ChunksInRadius возвращает позиции существующих чанков в квадрате радиуса
// radius (в чанках) вокруг мировой позиции center
func (cm *ChunkMap) ChunksInRadius(center vec.Vec3, radius int) []ChunkPos {
	if radius < 0 {
		return nil
	}

	c := ChunkPosOf(center)
	result := make([]ChunkPos, 0, (2*radius+1)*(2*radius+1))
	for x := c.X - radius; x <= c.X+radius; x++ {
		for z := c.Z - radius; z <= c.Z+radius; z++ {
			pos := ChunkPos{X: x, Z: z}
			if _, ok := cm.ChunkAt(pos); ok {
				result = append(result, pos)
			}
		}
	}
	return result
}

func sortPositions(positions []ChunkPos) {
	slices.SortFunc(positions, func(a, b ChunkPos) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
}
