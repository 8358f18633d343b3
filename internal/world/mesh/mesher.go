package mesh

import (
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex вершина меша чанка
type Vertex struct {
	Position mgl32.Vec3 // Мировые координаты
	Normal   mgl32.Vec3
	UV       mgl32.Vec2 // В блоках: текстура повторяется на каждом блоке слитой грани
	Texture  uint16     // Идентификатор текстуры блока
	Color    mgl32.Vec4 // Запасной цвет блока (RGBA)
}

// Mesh геометрия одного чанка, готовая к загрузке в рендерер
type Mesh struct {
	Chunk    world.ChunkPos
	Vertices []Vertex
	Indices  []uint32
	Quads    int
	Version  uint64 // Растет при каждом перестроении чанка
}

// IsEmpty возвращает true, если у чанка нет видимых граней
func (m *Mesh) IsEmpty() bool {
	return m.Quads == 0
}

// Triangles возвращает количество треугольников
func (m *Mesh) Triangles() int {
	return len(m.Indices) / 3
}

var dims = [3]int{world.ChunkSize, world.ChunkHeight, world.ChunkSize}

// Build строит жадный меш чанка по снимкам из окрестности.
// Для каждой из шести граней и каждого среза вдоль ее оси строится маска
// видимых граней, затем маска покрывается максимальными прямоугольниками
// одного типа. Каждый прямоугольник дает один квад: 4 вершины и 6 индексов.
func Build(pos world.ChunkPos, n Neighborhood) *Mesh {
	m := &Mesh{Chunk: pos}
	if n.Center == nil {
		return m
	}

	origin := pos.Origin()
	originF := mgl32.Vec3{float32(origin.X), float32(origin.Y), float32(origin.Z)}

	for _, face := range world.Faces {
		buildFace(m, &n, face, originF)
	}
	return m
}

// buildFace обходит срезы вдоль оси грани.
// Оси среза: u = (d+1)%3, v = (d+2)%3, так что u x v совпадает с +d.
func buildFace(m *Mesh, n *Neighborhood, face world.Face, origin mgl32.Vec3) {
	d := face.Axis()
	u := (d + 1) % 3
	v := (d + 2) % 3
	su, sv := dims[u], dims[v]
	normal := face.Normal()
	step := [3]int{normal.X, normal.Y, normal.Z}

	mask := make([]block.Type, su*sv)

	for slice := 0; slice < dims[d]; slice++ {
		// Маска: тип ближнего блока, если его грань видима, иначе воздух
		var p [3]int
		p[d] = slice
		for j := 0; j < sv; j++ {
			p[v] = j
			for i := 0; i < su; i++ {
				p[u] = i
				mask[j*su+i] = visibleFace(n, p, step)
			}
		}

		// Жадное слияние, построчно: v снаружи, u внутри
		for j := 0; j < sv; j++ {
			for i := 0; i < su; {
				t := mask[j*su+i]
				if t == block.Air {
					i++
					continue
				}

				w := 1
				for i+w < su && mask[j*su+i+w] == t {
					w++
				}

				h := 1
			grow:
				for j+h < sv {
					for k := 0; k < w; k++ {
						if mask[(j+h)*su+i+k] != t {
							break grow
						}
					}
					h++
				}

				for dj := 0; dj < h; dj++ {
					for di := 0; di < w; di++ {
						mask[(j+dj)*su+i+di] = block.Air
					}
				}

				var corner [3]int
				corner[d] = slice
				if face.Sign() > 0 {
					corner[d] = slice + 1
				}
				corner[u] = i
				corner[v] = j
				emitQuad(m, face, t, origin, corner, u, v, w, h)

				i += w
			}
		}
	}
}

// visibleFace возвращает тип блока p, если его грань в направлении step видна
func visibleFace(n *Neighborhood, p, step [3]int) block.Type {
	near := n.Center.At(p[0], p[1], p[2])
	if near == block.Air {
		return block.Air
	}

	far, known := n.lookup(p[0]+step[0], p[1]+step[1], p[2]+step[2])
	if known && far.CullsFace(near) {
		return block.Air
	}
	return near
}

// emitQuad добавляет квад размером w x h (по осям u и v) с углом в corner.
// Обход против часовой стрелки, если смотреть снаружи.
func emitQuad(m *Mesh, face world.Face, t block.Type, origin mgl32.Vec3, corner [3]int, u, v, w, h int) {
	var du, dv mgl32.Vec3
	du[u] = float32(w)
	dv[v] = float32(h)

	base := origin.Add(mgl32.Vec3{float32(corner[0]), float32(corner[1]), float32(corner[2])})
	positions := [4]mgl32.Vec3{base, base.Add(du), base.Add(du).Add(dv), base.Add(dv)}
	uvs := [4]mgl32.Vec2{{0, 0}, {float32(w), 0}, {float32(w), float32(h)}, {0, float32(h)}}

	if face.Sign() < 0 {
		positions[1], positions[3] = positions[3], positions[1]
		uvs[1], uvs[3] = uvs[3], uvs[1]
	}

	nrm := face.Normal()
	normal := mgl32.Vec3{float32(nrm.X), float32(nrm.Y), float32(nrm.Z)}
	props := block.Get(t)
	start := uint32(len(m.Vertices))

	for k := 0; k < 4; k++ {
		m.Vertices = append(m.Vertices, Vertex{
			Position: positions[k],
			Normal:   normal,
			UV:       uvs[k],
			Texture:  uint16(props.Texture),
			Color:    mgl32.Vec4(props.Color),
		})
	}
	m.Indices = append(m.Indices, start, start+1, start+2, start, start+2, start+3)
	m.Quads++
}
