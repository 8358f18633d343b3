package world

import (
	"fmt"

	"github.com/annel0/blockverse/internal/vec"
)

// ChunkPos координаты чанка в сетке мира (по X и Z; по высоте мир занимает один чанк)
type ChunkPos struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Origin возвращает мировые координаты блока (0,0,0) чанка
func (p ChunkPos) Origin() vec.Vec3 {
	return vec.Vec3{X: p.X * ChunkSize, Y: 0, Z: p.Z * ChunkSize}
}

// Offset возвращает соседнюю позицию со смещением
func (p ChunkPos) Offset(dx, dz int) ChunkPos {
	return ChunkPos{X: p.X + dx, Z: p.Z + dz}
}

// Less задает порядок обхода: сначала по X, затем по Z
func (p ChunkPos) Less(other ChunkPos) bool {
	if p.X != other.X {
		return p.X < other.X
	}
	return p.Z < other.Z
}

// String форматирует позицию как [x, z]
func (p ChunkPos) String() string {
	return fmt.Sprintf("[%d, %d]", p.X, p.Z)
}

// FloorDiv целочисленное деление с округлением вниз
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod неотрицательный остаток от деления (для b > 0)
func FloorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// ChunkPosOf возвращает координаты чанка, содержащего блок
func ChunkPosOf(p vec.Vec3) ChunkPos {
	return ChunkPos{X: FloorDiv(p.X, ChunkSize), Z: FloorDiv(p.Z, ChunkSize)}
}

// WorldToLocal разбивает мировые координаты на чанк и локальные координаты внутри него
func WorldToLocal(p vec.Vec3) (ChunkPos, vec.Vec3) {
	return ChunkPosOf(p), vec.Vec3{
		X: FloorMod(p.X, ChunkSize),
		Y: p.Y,
		Z: FloorMod(p.Z, ChunkSize),
	}
}

// LocalToWorld собирает мировые координаты из чанка и локальных координат
func LocalToWorld(pos ChunkPos, local vec.Vec3) vec.Vec3 {
	return pos.Origin().Add(local)
}
