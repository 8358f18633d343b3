package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/blockverse/internal/api"
	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/engine"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/observability"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/mesh"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML-конфигу (по умолчанию $BLOCKVERSE_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logOpts, err := cfg.Logging.Options()
	if err != nil {
		log.Fatalf("❌ Ошибка настройки логирования: %v", err)
	}
	logging.Configure(logOpts)
	if err := logging.InitDefaultLogger("blockverse"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🎮 Запуск Blockverse: мир %dx%d чанков, сид %d",
		cfg.World.Size, cfg.World.Size, cfg.World.Generator.Seed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, observability.Options{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
	})
	if err != nil {
		logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
		}
	}()

	// === МИР ===
	start := time.Now()
	gen := world.NewTerrainGenerator(cfg.World.Generator)
	w, err := world.Build(ctx, cfg.World.Size, gen, cfg.World.Workers)
	if err != nil {
		logging.Error("❌ Ошибка генерации мира: %v", err)
		os.Exit(1)
	}
	logging.Info("🌍 Мир сгенерирован за %v", time.Since(start))

	// === ШИНА СОБЫТИЙ ===
	bus := eventbus.NewMemoryBus(cfg.EventBus.Capacity)
	if cfg.EventBus.LogEvents {
		sub, err := eventbus.StartLoggingListener(bus)
		if err != nil {
			logging.Warn("Не удалось подписать логгер событий: %v", err)
		} else {
			defer sub.Unsubscribe()
		}
	}
	busMetrics := eventbus.NewMetricsExporter(bus, prometheus.DefaultRegisterer)
	if err := busMetrics.Start(5 * time.Second); err != nil {
		logging.Warn("Метрики шины событий недоступны: %v", err)
	} else {
		defer busMetrics.Stop()
	}

	// === МЕШИ И ДВИЖОК ===
	remesher := mesh.NewRemesher(w.Chunks, cfg.Mesh.Workers,
		mesh.WithEventBus(bus),
		mesh.WithMetrics(mesh.NewMetrics(prometheus.DefaultRegisterer)),
	)
	defer remesher.Close()

	eng := engine.New(w, remesher, bus, engine.Options{
		MaxMutationsPerTick: cfg.Engine.MaxMutationsPerTick,
	})

	// Первый тик строит меши всего сгенерированного мира
	res, err := eng.Tick(ctx)
	if err != nil {
		logging.Warn("Ошибка первого тика: %v", err)
	}
	logging.Info("🧱 Построено мешей: %d за %v", len(res.Meshes), res.Duration)

	// === ОТЛАДОЧНЫЙ API ===
	var server *api.Server
	if cfg.Server.Enabled {
		server = api.NewServer(api.Config{
			Addr:        cfg.Server.Addr(),
			ServiceName: cfg.Telemetry.ServiceName,
			Engine:      eng,
			ViewRadius:  cfg.Server.ViewRadius,
		})
		go func() {
			if err := server.Start(); err != nil {
				logging.Error("❌ Ошибка отладочного API: %v", err)
				stop()
			}
		}()
		logging.Info("   ❤️  Health check: http://%s/health", server.Addr())
	}

	// Блокируется до сигнала завершения
	if err := eng.Run(ctx, cfg.Engine.TickRate); err != nil {
		logging.Error("❌ Игровой цикл завершился с ошибкой: %v", err)
	}
	logging.Info("📡 Получен сигнал завершения, останавливаемся...")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error("❌ Ошибка остановки API: %v", err)
		}
	}

	logging.Info("👋 Blockverse остановлен после %d тиков", eng.Ticks())
}
