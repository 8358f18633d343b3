// Package export выгружает меши чанков в Wavefront OBJ/MTL для просмотра
// в сторонних редакторах.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/mesh"
	"github.com/klauspost/compress/zstd"
)

// ErrNoMeshes нечего выгружать
var ErrNoMeshes = errors.New("нет мешей для экспорта")

// Stats итог экспорта
type Stats struct {
	Chunks   int
	Faces    int
	Vertices int
}

// MaterialName имя материала для типа блока в MTL/OBJ
func MaterialName(t block.Type) string {
	return "block_" + t.String()
}

// materialForTexture ищет тип блока по текстуре вершины
func materialForTexture(tex uint16) string {
	for _, t := range block.All() {
		if uint16(t.Texture()) == tex && !t.IsAir() {
			return MaterialName(t)
		}
	}
	return fmt.Sprintf("texture_%d", tex)
}

// WriteMTL пишет библиотеку материалов: по одному на каждый непустой тип блока
func WriteMTL(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, t := range block.All() {
		if t.IsAir() {
			continue
		}
		c := block.Get(t).Color
		fmt.Fprintf(bw, "# %s\nnewmtl %s\nKd %.4f %.4f %.4f\nd %.4f\nillum 1\n\n",
			t, MaterialName(t), c[0], c[1], c[2], c[3])
	}
	return bw.Flush()
}

// WriteOBJ пишет меши в OBJ. Каждый чанк становится отдельным объектом,
// каждый квад одной гранью из четырех вершин. mtllib указывается, если mtlName не пуст.
// Вершины, UV и нормали пишутся парами один к одному, поэтому индекс у них общий.
func WriteOBJ(w io.Writer, meshes []*mesh.Mesh, mtlName string) (Stats, error) {
	var st Stats
	if len(meshes) == 0 {
		return st, ErrNoMeshes
	}

	bw := bufio.NewWriterSize(w, 256*1024)
	fmt.Fprintln(bw, "# blockverse")
	if mtlName != "" {
		fmt.Fprintln(bw, "mtllib", mtlName)
	}

	base := 1 // индексы OBJ начинаются с 1
	for _, m := range meshes {
		if m == nil || m.IsEmpty() {
			continue
		}
		st.Chunks++
		fmt.Fprintf(bw, "o chunk_%d_%d\n", m.Chunk.X, m.Chunk.Z)

		for _, v := range m.Vertices {
			fmt.Fprintf(bw, "v %g %g %g\n", v.Position.X(), v.Position.Y(), v.Position.Z())
		}
		for _, v := range m.Vertices {
			fmt.Fprintf(bw, "vt %g %g\n", v.UV.X(), v.UV.Y())
		}
		for _, v := range m.Vertices {
			fmt.Fprintf(bw, "vn %g %g %g\n", v.Normal.X(), v.Normal.Y(), v.Normal.Z())
		}

		current := ""
		for q := 0; q < m.Quads; q++ {
			first := q * 4
			if mtlName != "" {
				if name := materialForTexture(m.Vertices[first].Texture); name != current {
					fmt.Fprintln(bw, "usemtl", name)
					current = name
				}
			}
			bw.WriteString("f")
			for k := 0; k < 4; k++ {
				i := base + first + k
				fmt.Fprintf(bw, " %d/%d/%d", i, i, i)
			}
			bw.WriteByte('\n')
			st.Faces++
		}

		base += len(m.Vertices)
		st.Vertices += len(m.Vertices)
	}

	return st, bw.Flush()
}

// Options параметры выгрузки в файлы
type Options struct {
	Compress bool // Сжать OBJ в zstd (<name>.obj.zst)
}

// WriteFiles пишет <name>.obj (или .obj.zst) и <name>.mtl в каталог dir.
// Возвращает путь к OBJ.
func WriteFiles(dir, name string, meshes []*mesh.Mesh, opts Options) (string, Stats, error) {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	mtlFile := name + ".mtl"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", Stats{}, fmt.Errorf("создание каталога %s: %w", dir, err)
	}

	mtl, err := os.Create(filepath.Join(dir, mtlFile))
	if err != nil {
		return "", Stats{}, err
	}
	if err := WriteMTL(mtl); err != nil {
		mtl.Close()
		return "", Stats{}, fmt.Errorf("запись %s: %w", mtlFile, err)
	}
	if err := mtl.Close(); err != nil {
		return "", Stats{}, err
	}

	objPath := filepath.Join(dir, name+".obj")
	if opts.Compress {
		objPath += ".zst"
	}
	f, err := os.Create(objPath)
	if err != nil {
		return "", Stats{}, err
	}
	defer f.Close()

	var out io.Writer = f
	var enc *zstd.Encoder
	if opts.Compress {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			return "", Stats{}, fmt.Errorf("zstd: %w", err)
		}
		out = enc
	}

	st, err := WriteOBJ(out, meshes, mtlFile)
	if err != nil {
		if enc != nil {
			enc.Close()
		}
		return "", st, fmt.Errorf("запись %s: %w", objPath, err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return "", st, fmt.Errorf("zstd: %w", err)
		}
	}
	return objPath, st, f.Close()
}
