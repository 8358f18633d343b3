package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/annel0/blockverse/internal/engine"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/middleware"
	"github.com/annel0/blockverse/internal/physics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Server отладочный HTTP API поверх движка мира
type Server struct {
	router  *gin.Engine
	engine  *engine.Engine
	http    *http.Server
	metrics *ServerMetrics
	logger  *logging.Logger

	playerMu   sync.Mutex
	player     *physics.Body // Отладочный игрок для move/interact
	viewRadius int
}

// Config конфигурация отладочного API
type Config struct {
	Addr        string                // host:port
	ServiceName string                // Имя сервиса для otelgin и префикс метрик
	Engine      *engine.Engine        // Движок мира
	Registerer  prometheus.Registerer // nil = prometheus.DefaultRegisterer
	Gatherer    prometheus.Gatherer   // nil = prometheus.DefaultGatherer
	ViewRadius  int                   // Радиус видимости игрока в чанках, 0 = DefaultViewRadius
}

// DefaultViewRadius радиус видимости игрока по умолчанию
const DefaultViewRadius = 2

// GenericResponse общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewServer создает отладочный API сервер
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8088"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "blockverse"
	}
	if cfg.ViewRadius <= 0 {
		cfg.ViewRadius = DefaultViewRadius
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.NewRequestLogger().Handler())

	promMw := middleware.NewPrometheusMiddleware(cfg.ServiceName+"_api", cfg.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, cfg.Gatherer)

	s := &Server{
		router:     router,
		engine:     cfg.Engine,
		metrics:    NewServerMetrics(),
		logger:     logging.GetAPILogger(),
		player:     physics.NewPlayerBody(spawnPoint(cfg.Engine.World())),
		viewRadius: cfg.ViewRadius,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes настраивает маршруты API
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/stats", s.handleStats)

	w := api.Group("/world")
	{
		w.GET("/blocks/:x/:y/:z", s.handleGetBlock)
		w.PUT("/blocks/:x/:y/:z", s.handleSetBlock)
		w.POST("/raycast", s.handleRaycast)
		w.GET("/chunks/:x/:z/mesh", s.handleChunkMesh)
		w.GET("/export.obj", s.handleExportOBJ)
		w.POST("/interact", s.handleInteract)
	}

	p := api.Group("/player")
	{
		p.GET("", s.handleGetPlayer)
		p.POST("/move", s.handleMovePlayer)
	}
}

// Handler возвращает http.Handler (для тестов и встраивания)
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr адрес, на котором слушает сервер
func (s *Server) Addr() string {
	return s.http.Addr
}

// Start запускает сервер и блокируется до Shutdown
func (s *Server) Start() error {
	s.logger.Info("🌐 Отладочный API слушает %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown плавно останавливает сервер
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("🛑 Остановка отладочного API")
	return s.http.Shutdown(ctx)
}
