package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annel0/blockverse/internal/engine"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/annel0/blockverse/internal/world/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()

	cm := world.NewChunkMap(2)
	for x := 0; x < 2; x++ {
		for z := 0; z < 2; z++ {
			require.NoError(t, cm.Insert(world.NewChunk(world.ChunkPos{X: x, Z: z})))
		}
	}
	for x := 0; x < 32; x++ {
		for z := 0; z < 32; z++ {
			cm.SetBlock(vec.Vec3{X: x, Y: 9, Z: z}, block.Stone)
		}
	}

	bus := eventbus.NewMemoryBus(64)
	r := mesh.NewRemesher(cm, 2, mesh.WithEventBus(bus))
	t.Cleanup(r.Close)
	e := engine.New(&world.World{Chunks: cm}, r, bus, engine.Options{})
	_, err := e.Tick(context.Background())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	s := NewServer(Config{Engine: e, Registerer: reg, Gatherer: reg})
	return s, e
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w, _ := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestGetBlock(t *testing.T) {
	s, _ := newTestServer(t)

	w, env := do(t, s, http.MethodGet, "/api/world/blocks/5/9/20", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info BlockInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, block.Stone, info.Type)
	assert.True(t, info.Solid)
	assert.Equal(t, world.ChunkPos{X: 0, Z: 1}, info.Chunk)
	assert.Contains(t, string(env.Data), `"type":"stone"`)

	w, _ = do(t, s, http.MethodGet, "/api/world/blocks/-1/9/0", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, s, http.MethodGet, "/api/world/blocks/a/9/0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetBlockIsQueuedUntilTick(t *testing.T) {
	s, e := newTestServer(t)

	w, env := do(t, s, http.MethodPut, "/api/world/blocks/5/10/5", `{"type":"Wood"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, 1, e.Pending())
	assert.Equal(t, block.Air, e.World().GetBlock(vec.Vec3{X: 5, Y: 10, Z: 5}))

	_, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, block.Wood, e.World().GetBlock(vec.Vec3{X: 5, Y: 10, Z: 5}))

	w, _ = do(t, s, http.MethodPut, "/api/world/blocks/5/10/5", `{"type":"lava"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, s, http.MethodPut, "/api/world/blocks/5/64/5", `{"type":"stone"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, s, http.MethodPut, "/api/world/blocks/5/10/5", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, e.Pending())
}

func TestRaycastEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w, env := do(t, s, http.MethodPost, "/api/world/raycast",
		`{"origin":[5.5,15,5.5],"direction":[0,-1,0],"max_distance":10}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RaycastResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.True(t, resp.Hit)
	assert.Equal(t, vec.Vec3{X: 5, Y: 9, Z: 5}, resp.Block.Position)
	assert.Equal(t, vec.Vec3{Y: 1}, resp.Normal)
	assert.InDelta(t, 5.0, resp.Distance, 1e-9)
	assert.InDelta(t, 10.0, resp.Point.Y(), 1e-9)
	assert.Equal(t, "+Y", resp.Face)

	// По умолчанию дальность MaxReach: до пола 12 блоков, промах
	w, env = do(t, s, http.MethodPost, "/api/world/raycast", `{"origin":[5.5,22,5.5],"direction":[0,-1,0]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.False(t, resp.Hit)

	w, _ = do(t, s, http.MethodPost, "/api/world/raycast", `{"origin":[5.5,15,5.5],"direction":[0,0,0]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChunkMeshEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w, env := do(t, s, http.MethodGet, "/api/world/chunks/1/0/mesh", "")
	require.Equal(t, http.StatusOK, w.Code)
	var summary MeshSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, uint64(1), summary.Version)
	assert.Positive(t, summary.Quads)
	assert.Equal(t, summary.Quads*4, summary.Vertices)
	assert.False(t, summary.Dirty)
	assert.Equal(t, map[string]int{"stone": 256}, summary.Blocks)
	assert.Equal(t, uint64(256), summary.Changes)

	w, env = do(t, s, http.MethodGet, "/api/world/chunks/1/0/mesh?vertices=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"indices"`)

	w, _ = do(t, s, http.MethodGet, "/api/world/chunks/7/0/mesh", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportAndStats(t *testing.T) {
	s, _ := newTestServer(t)

	w, _ := do(t, s, http.MethodGet, "/api/world/export.obj", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "o chunk_0_0\n")
	assert.Contains(t, w.Body.String(), "o chunk_1_1\n")

	w, env := do(t, s, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Contains(t, stats, "world")
	assert.Contains(t, stats, "server")
	assert.Contains(t, string(stats["events"]), `"published"`)
	assert.Contains(t, string(stats["mesh"]), `"chunks":4`)

	w, _ = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "blockverse_api_http_request_duration_seconds")
}

func TestPlayerSpawnAndMove(t *testing.T) {
	s, _ := newTestServer(t)

	w, env := do(t, s, http.MethodGet, "/api/player", "")
	require.Equal(t, http.StatusOK, w.Code)
	var state PlayerState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Equal(t, mgl64.Vec3{16.5, 10, 16.5}, state.Position)
	assert.Equal(t, world.ChunkPos{X: 1, Z: 1}, state.Chunk)
	// Радиус 2 обрезается границами мира 2x2
	assert.Len(t, state.ChunksInView, 4)

	w, env = do(t, s, http.MethodPost, "/api/player/move", `{"dx":0.1,"steps":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.True(t, state.Grounded)
	assert.InDelta(t, 10.0, state.Position.Y(), 1e-9)
	assert.InDelta(t, 17.0, state.Position.X(), 1e-9)

	w, _ = do(t, s, http.MethodPost, "/api/player/move", `{"steps":100000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInteractPlaceAndBreak(t *testing.T) {
	s, e := newTestServer(t)
	type result struct {
		Action   string   `json:"action"`
		Position vec.Vec3 `json:"position"`
	}

	// Блок под ногами игрока пересек бы его тело
	w, _ := do(t, s, http.MethodPost, "/api/world/interact", `{"action":"place","type":"stone","direction":[0,-1,0]}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env := do(t, s, http.MethodPost, "/api/world/interact",
		`{"action":"place","type":"dirt","origin":[5.5,12.5,5.5],"direction":[0,-1,0]}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var res result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "place", res.Action)
	assert.Equal(t, vec.Vec3{X: 5, Y: 10, Z: 5}, res.Position)
	assert.Equal(t, block.Air, e.World().GetBlock(res.Position))

	_, err := e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, block.Dirt, e.World().GetBlock(res.Position))

	w, env = do(t, s, http.MethodPost, "/api/world/interact",
		`{"action":"break","origin":[5.5,12.5,5.5],"direction":[0,-1,0]}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, vec.Vec3{X: 5, Y: 10, Z: 5}, res.Position)
	_, err = e.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, block.Air, e.World().GetBlock(res.Position))

	// Без origin луч идет из глаз игрока: ломаем пол под ним, и игрок падает
	w, env = do(t, s, http.MethodPost, "/api/world/interact", `{"action":"break","direction":[0,-1,0]}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, vec.Vec3{X: 16, Y: 9, Z: 16}, res.Position)
	_, err = e.Tick(context.Background())
	require.NoError(t, err)

	w, env = do(t, s, http.MethodPost, "/api/player/move", `{"steps":10}`)
	require.Equal(t, http.StatusOK, w.Code)
	var state PlayerState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Less(t, state.Position.Y(), 10.0)
	assert.False(t, state.Grounded)

	w, _ = do(t, s, http.MethodPost, "/api/world/interact",
		`{"action":"place","type":"stone","origin":[5.5,12.5,5.5],"direction":[0,1,0]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/world/interact", `{"action":"place","type":"lava","direction":[0,-1,0]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/world/interact", `{"action":"jump","direction":[0,-1,0]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/world/interact", `{"action":"break","direction":[0,0,0]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, e.Pending())
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5e9))
	assert.Equal(t, "2м 3с", formatUptime(123e9))
	assert.Equal(t, "1д 0ч 0м 1с", formatUptime(86401e9))
}
