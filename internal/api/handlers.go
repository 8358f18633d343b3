package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/blockverse/internal/engine"
	"github.com/annel0/blockverse/internal/export"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/raycast"
	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl64"
)

// BlockInfo описание блока в ответах API
type BlockInfo struct {
	Position vec.Vec3       `json:"position"`
	Chunk    world.ChunkPos `json:"chunk"`
	Type     block.Type     `json:"type"`
	Solid    bool           `json:"solid"`
	Opaque   bool           `json:"opaque"`
}

// SetBlockRequest тело PUT /api/world/blocks/:x/:y/:z
type SetBlockRequest struct {
	Type string `json:"type" binding:"required"`
}

// RaycastRequest тело POST /api/world/raycast
type RaycastRequest struct {
	Origin      mgl64.Vec3 `json:"origin"`
	Direction   mgl64.Vec3 `json:"direction"`
	MaxDistance float64    `json:"max_distance"` // 0 = raycast.MaxReach
}

// RaycastResponse результат луча
type RaycastResponse struct {
	Hit      bool       `json:"hit"`
	Block    *BlockInfo `json:"block,omitempty"`
	Normal   vec.Vec3   `json:"normal"`
	Distance float64    `json:"distance"`
	Face     string     `json:"face,omitempty"` // Грань попадания, пусто при старте внутри блока
	Inside   bool       `json:"inside"`
	Point    mgl64.Vec3 `json:"point"`
}

// MeshSummary краткое описание меша чанка
type MeshSummary struct {
	Chunk     world.ChunkPos `json:"chunk"`
	Version   uint64         `json:"version"`
	Quads     int            `json:"quads"`
	Vertices  int            `json:"vertices"`
	Triangles int            `json:"triangles"`
	Dirty     bool           `json:"dirty"`
	Changes   uint64         `json:"changes"` // Счетчик изменений блоков чанка
	Blocks    map[string]int `json:"blocks"`  // Количество непустых блоков по типам
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

// parseBlockPos разбирает :x/:y/:z
func parseBlockPos(c *gin.Context) (vec.Vec3, error) {
	var p vec.Vec3
	for _, f := range []struct {
		name string
		dst  *int
	}{{"x", &p.X}, {"y", &p.Y}, {"z", &p.Z}} {
		v, err := strconv.Atoi(c.Param(f.name))
		if err != nil {
			return p, fmt.Errorf("неверная координата %s: %q", f.name, c.Param(f.name))
		}
		*f.dst = v
	}
	return p, nil
}

func (s *Server) blockInfo(p vec.Vec3) BlockInfo {
	t := s.engine.World().GetBlock(p)
	return BlockInfo{
		Position: p,
		Chunk:    world.ChunkPosOf(p),
		Type:     t,
		Solid:    t.IsSolid(),
		Opaque:   t.IsOpaque(),
	}
}

// handleHealth проверка состояния сервера
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
		"ticks":  s.engine.Ticks(),
	})
}

// handleGetBlock возвращает блок по мировым координатам
func (s *Server) handleGetBlock(c *gin.Context) {
	p, err := parseBlockPos(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if !s.engine.World().Chunks.BlockInBounds(p) {
		fail(c, http.StatusNotFound, "Позиция вне мира")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок получен", Data: s.blockInfo(p)})
}

// handleSetBlock ставит в очередь изменение блока. Применяется на ближайшем тике.
func (s *Server) handleSetBlock(c *gin.Context) {
	p, err := parseBlockPos(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	t, err := block.Parse(req.Type)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	err = s.engine.Submit(engine.MutationRequest{Pos: p, Type: t})
	switch {
	case errors.Is(err, engine.ErrOutOfWorld):
		fail(c, http.StatusNotFound, "Позиция вне мира")
		return
	case err != nil:
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, GenericResponse{
		Success: true,
		Message: "Изменение поставлено в очередь",
		Data: gin.H{
			"position": p,
			"type":     t,
			"pending":  s.engine.Pending(),
		},
	})
}

// handleRaycast пускает луч и возвращает первый твердый блок
func (s *Server) handleRaycast(c *gin.Context) {
	var req RaycastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	if req.MaxDistance == 0 {
		req.MaxDistance = raycast.MaxReach
	}

	hit, ok, err := s.engine.Raycast(req.Origin, req.Direction, req.MaxDistance)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	resp := RaycastResponse{Hit: ok}
	if ok {
		info := s.blockInfo(hit.Block)
		resp.Block = &info
		resp.Normal = hit.Normal
		resp.Distance = hit.Distance
		resp.Inside = hit.Inside
		resp.Point = raycast.Point(req.Origin, req.Direction, hit)
		if f, ok := world.FaceFromNormal(hit.Normal); ok {
			resp.Face = f.String()
		}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Луч обработан", Data: resp})
}

// handleChunkMesh возвращает сводку меша чанка, ?vertices=true добавляет геометрию
func (s *Server) handleChunkMesh(c *gin.Context) {
	x, errX := strconv.Atoi(c.Param("x"))
	z, errZ := strconv.Atoi(c.Param("z"))
	if errX != nil || errZ != nil {
		fail(c, http.StatusBadRequest, "Неверные координаты чанка")
		return
	}
	pos := world.ChunkPos{X: x, Z: z}

	ch, ok := s.engine.World().Chunks.ChunkAt(pos)
	if !ok {
		fail(c, http.StatusNotFound, "Чанк вне мира")
		return
	}
	m, ok := s.engine.Remesher().Store().Get(pos)
	if !ok {
		fail(c, http.StatusNotFound, "Меш чанка еще не построен")
		return
	}

	summary := MeshSummary{
		Chunk:     pos,
		Version:   m.Version,
		Quads:     m.Quads,
		Vertices:  len(m.Vertices),
		Triangles: m.Triangles(),
		Dirty:     ch.IsDirty(),
		Changes:   ch.Changes(),
		Blocks:    make(map[string]int),
	}
	for _, t := range block.All() {
		if t == block.Air {
			continue
		}
		if n := ch.Count(t); n > 0 {
			summary.Blocks[t.String()] = n
		}
	}
	if c.Query("vertices") != "true" {
		c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Меш получен", Data: summary})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Меш получен",
		Data: gin.H{
			"summary":  summary,
			"vertices": m.Vertices,
			"indices":  m.Indices,
		},
	})
}

// handleExportOBJ отдает все текущие меши одним OBJ файлом (без материалов)
func (s *Server) handleExportOBJ(c *gin.Context) {
	meshes := s.engine.Remesher().Store().All()
	if len(meshes) == 0 {
		fail(c, http.StatusNotFound, export.ErrNoMeshes.Error())
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if _, err := export.WriteOBJ(c.Writer, meshes, ""); err != nil {
		s.logger.Warn("Ошибка экспорта OBJ: %v", err)
	}
}

// handleStats возвращает статистику мира, шины событий и процесса
func (s *Server) handleStats(c *gin.Context) {
	w := s.engine.World()
	store := s.engine.Remesher().Store()
	quads, vertices := store.Totals()

	worldStats := gin.H{
		"size":   w.Chunks.Size(),
		"chunks": w.Chunks.Len(),
		"dirty":  len(w.Chunks.Dirty()),
	}
	if w.Generator != nil {
		worldStats["seed"] = w.Generator.Seed()
	}

	stats := gin.H{
		"world": worldStats,
		"mesh": gin.H{
			"chunks":   store.Len(),
			"quads":    quads,
			"vertices": vertices,
		},
		"engine": gin.H{
			"ticks":   s.engine.Ticks(),
			"pending": s.engine.Pending(),
		},
		"server": s.metrics.Snapshot(),
	}
	if bus := s.engine.Bus(); bus != nil {
		stats["events"] = bus.Metrics()
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Статистика получена", Data: stats})
}
