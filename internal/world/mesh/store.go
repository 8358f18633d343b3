package mesh

import (
	"slices"
	"sync"

	"github.com/annel0/blockverse/internal/world"
)

// Store хранит последний построенный меш каждого чанка
type Store struct {
	mu       sync.RWMutex
	meshes   map[world.ChunkPos]*Mesh
	versions map[world.ChunkPos]uint64
}

// NewStore создаёт пустое хранилище мешей
func NewStore() *Store {
	return &Store{
		meshes:   make(map[world.ChunkPos]*Mesh),
		versions: make(map[world.ChunkPos]uint64),
	}
}

// Put заменяет меш чанка и присваивает ему следующую версию
func (s *Store) Put(m *Mesh) *Mesh {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.versions[m.Chunk]++
	m.Version = s.versions[m.Chunk]
	s.meshes[m.Chunk] = m
	return m
}

// Get возвращает текущий меш чанка
func (s *Store) Get(pos world.ChunkPos) (*Mesh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meshes[pos]
	return m, ok
}

// Len возвращает количество чанков с мешами
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meshes)
}

// Totals возвращает суммарное количество квадов и вершин по всем мешам
func (s *Store) Totals() (quads, vertices int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.meshes {
		quads += m.Quads
		vertices += len(m.Vertices)
	}
	return quads, vertices
}

// All возвращает текущие меши в порядке позиций чанков (X, затем Z)
func (s *Store) All() []*Mesh {
	s.mu.RLock()
	out := make([]*Mesh, 0, len(s.meshes))
	for _, m := range s.meshes {
		out = append(out, m)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Mesh) int {
		switch {
		case a.Chunk.Less(b.Chunk):
			return -1
		case b.Chunk.Less(a.Chunk):
			return 1
		}
		return 0
	})
	return out
}
