package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/annel0/blockverse/internal/engine"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/raycast"
	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl64"
)

// Ограничения шага симуляции игрока
const (
	DefaultStepDT = 1.0 / 20
	MaxMoveSteps  = 600
)

// Действия взаимодействия с миром
const (
	ActionBreak = "break"
	ActionPlace = "place"
)

// PlayerState состояние отладочного игрока
type PlayerState struct {
	Position     mgl64.Vec3       `json:"position"`
	Eye          mgl64.Vec3       `json:"eye"`
	VelocityY    float64          `json:"velocity_y"`
	Grounded     bool             `json:"grounded"`
	Chunk        world.ChunkPos   `json:"chunk"`
	ChunksInView []world.ChunkPos `json:"chunks_in_view"`
}

// MoveRequest тело POST /api/player/move
type MoveRequest struct {
	DX    float64 `json:"dx"`    // Смещение по X за шаг
	DZ    float64 `json:"dz"`    // Смещение по Z за шаг
	Jump  bool    `json:"jump"`  // Прыжок на первом шаге
	Steps int     `json:"steps"` // 0 = 1
	DT    float64 `json:"dt"`    // 0 = DefaultStepDT
}

// InteractRequest тело POST /api/world/interact
type InteractRequest struct {
	Action    string      `json:"action" binding:"required"`
	Type      string      `json:"type"` // Для place
	Direction mgl64.Vec3  `json:"direction"`
	Origin    *mgl64.Vec3 `json:"origin,omitempty"` // nil = глаза игрока
}

// spawnPoint ставит игрока на поверхность в центре мира
func spawnPoint(w *world.World) mgl64.Vec3 {
	c := w.Chunks.Size() * world.ChunkSize / 2
	y, ok := w.SurfaceY(c, c)
	if !ok {
		y = world.ChunkHeight - 1
	}
	return mgl64.Vec3{float64(c) + 0.5, float64(y + 1), float64(c) + 0.5}
}

// playerState снимает состояние игрока; вызывается под playerMu
func (s *Server) playerState() PlayerState {
	p := s.player.Position
	feet := vec.Floor(p.X(), p.Y(), p.Z())
	return PlayerState{
		Position:     p,
		Eye:          s.player.Eye(),
		VelocityY:    s.player.VelocityY,
		Grounded:     s.player.Grounded,
		Chunk:        world.ChunkPosOf(feet),
		ChunksInView: s.engine.World().Chunks.ChunksInRadius(feet, s.viewRadius),
	}
}

// handleGetPlayer возвращает состояние игрока
func (s *Server) handleGetPlayer(c *gin.Context) {
	s.playerMu.Lock()
	state := s.playerState()
	s.playerMu.Unlock()

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Состояние игрока", Data: state})
}

// handleMovePlayer продвигает тело игрока с гравитацией и коллизиями
func (s *Server) handleMovePlayer(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	if req.Steps <= 0 {
		req.Steps = 1
	}
	if req.Steps > MaxMoveSteps {
		fail(c, http.StatusBadRequest, "Слишком много шагов за запрос")
		return
	}
	if req.DT <= 0 {
		req.DT = DefaultStepDT
	}

	w := s.engine.World()
	step := mgl64.Vec2{req.DX, req.DZ}

	s.playerMu.Lock()
	for i := 0; i < req.Steps; i++ {
		s.player.Step(step, req.Jump && i == 0, req.DT, w)
	}
	state := s.playerState()
	s.playerMu.Unlock()

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Игрок перемещен", Data: state})
}

// handleInteract разрушает или ставит блок по лучу взгляда.
// Изменение применяется на ближайшем тике.
func (s *Server) handleInteract(c *gin.Context) {
	var req InteractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}

	s.playerMu.Lock()
	defer s.playerMu.Unlock()

	origin := s.player.Eye()
	if req.Origin != nil {
		origin = *req.Origin
	}

	var (
		target vec.Vec3
		t      = block.Air
		err    error
	)
	switch strings.ToLower(req.Action) {
	case ActionBreak:
		target, err = s.engine.Break(origin, req.Direction)
	case ActionPlace:
		t, err = block.Parse(req.Type)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		target, err = s.engine.Place(origin, req.Direction, t, s.player)
	default:
		fail(c, http.StatusBadRequest, "Неизвестное действие: "+req.Action)
		return
	}

	if err != nil {
		fail(c, interactStatus(err), err.Error())
		return
	}

	s.logger.Debug("🖐️ %s %v -> %s", req.Action, target, t)
	c.JSON(http.StatusAccepted, GenericResponse{
		Success: true,
		Message: "Изменение поставлено в очередь",
		Data: gin.H{
			"action":   strings.ToLower(req.Action),
			"position": target,
			"type":     t,
			"pending":  s.engine.Pending(),
		},
	})
}

func interactStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrNoTarget):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrOccupied),
		errors.Is(err, engine.ErrBodyCollision),
		errors.Is(err, engine.ErrNoPlaceFace):
		return http.StatusConflict
	case errors.Is(err, engine.ErrOutOfWorld):
		return http.StatusNotFound
	case errors.Is(err, raycast.ErrDegenerateDirection),
		errors.Is(err, raycast.ErrInvalidOrigin),
		errors.Is(err, engine.ErrUnknownBlock):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
