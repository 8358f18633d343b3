package mesh

import (
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// Neighborhood набор снимков только для чтения: чанк и его соседи по шести граням.
// nil на месте соседа означает край мира, грани к нему видимы.
type Neighborhood struct {
	Center *world.Blocks
	Sides  [world.FaceCount]*world.Blocks
}

// Snapshot снимает копии блоков чанка и его соседей.
// Каждый чанк копируется под своей блокировкой чтения по очереди,
// поэтому одновременно удерживается не больше одной блокировки.
func Snapshot(cm *world.ChunkMap, pos world.ChunkPos) (Neighborhood, bool) {
	c, ok := cm.ChunkAt(pos)
	if !ok {
		return Neighborhood{}, false
	}

	n := Neighborhood{Center: c.Snapshot()}
	for f, neighbor := range cm.Neighbors(pos) {
		if neighbor != nil {
			n.Sides[f] = neighbor.Snapshot()
		}
	}
	return n, true
}

// lookup возвращает блок по локальным координатам центра, допускающим выход
// на один блок за границу. known=false, если соседа нет.
func (n *Neighborhood) lookup(x, y, z int) (t block.Type, known bool) {
	var side world.Face
	switch {
	case x < 0:
		side, x = world.FaceNegX, x+world.ChunkSize
	case x >= world.ChunkSize:
		side, x = world.FacePosX, x-world.ChunkSize
	case y < 0:
		side, y = world.FaceNegY, y+world.ChunkHeight
	case y >= world.ChunkHeight:
		side, y = world.FacePosY, y-world.ChunkHeight
	case z < 0:
		side, z = world.FaceNegZ, z+world.ChunkSize
	case z >= world.ChunkSize:
		side, z = world.FacePosZ, z-world.ChunkSize
	default:
		return n.Center.At(x, y, z), true
	}

	view := n.Sides[side]
	if view == nil {
		return block.Air, false
	}
	return view.At(x, y, z), true
}
