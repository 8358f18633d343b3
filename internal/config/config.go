package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/world"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath переменная окружения с путем к YAML-конфигу
const EnvConfigPath = "BLOCKVERSE_CONFIG"

// ErrInvalidConfig конфигурация не прошла проверку
var ErrInvalidConfig = errors.New("некорректная конфигурация")

// Config корневая структура конфигурации приложения.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Engine    EngineConfig    `yaml:"engine"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type WorldConfig struct {
	Size      int                   `yaml:"size"`    // Размер мира в чанках по X и Z
	Workers   int                   `yaml:"workers"` // 0 = по числу CPU
	Generator world.GeneratorConfig `yaml:"generator"`
}

type MeshConfig struct {
	Workers int `yaml:"workers"` // 0 = по числу CPU
}

type EngineConfig struct {
	TickRate            int `yaml:"tick_rate"`              // Тиков в секунду
	MaxMutationsPerTick int `yaml:"max_mutations_per_tick"` // 0 = без ограничения
}

type EventBusConfig struct {
	Capacity  int  `yaml:"capacity"`
	LogEvents bool `yaml:"log_events"`
}

type ServerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	RESTPort   int    `yaml:"rest_port"`
	ViewRadius int    `yaml:"view_radius"` // Радиус видимости отладочного игрока в чанках
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"` // host:port OTLP HTTP, пусто = localhost:4318
}

// Default возвращает конфигурацию по умолчанию.
// Сид не задан (0): он определяется в Load через GetSeed.
func Default() *Config {
	gen := world.DefaultGeneratorConfig()
	gen.Seed = 0

	return &Config{
		World: WorldConfig{
			Size:      world.DefaultWorldSize,
			Generator: gen,
		},
		Engine: EngineConfig{
			TickRate: 20,
		},
		EventBus: EventBusConfig{
			Capacity: 4096,
		},
		Server: ServerConfig{
			Enabled:    true,
			Host:       "127.0.0.1",
			ViewRadius: 2,
		},
		Logging: LoggingConfig{
			ConsoleLevel: "info",
			FileLevel:    "off",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "blockverse",
		},
	}
}

// GetRESTPort возвращает порт отладочного API с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getIntWithEnvFallback(s.RESTPort, "BLOCKVERSE_REST_PORT", 8088)
}

// GetHost возвращает адрес, на котором слушает API
func (s *ServerConfig) GetHost() string {
	if s.Host != "" {
		return s.Host
	}
	if env := os.Getenv("BLOCKVERSE_HOST"); env != "" {
		return env
	}
	return "127.0.0.1"
}

// Addr возвращает host:port отладочного API
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.GetHost(), s.GetRESTPort())
}

// GetSeed возвращает сид генерации: config -> env BLOCKVERSE_SEED -> значение по умолчанию
func (w *WorldConfig) GetSeed() int64 {
	if w.Generator.Seed != 0 {
		return w.Generator.Seed
	}
	if envVal := os.Getenv("BLOCKVERSE_SEED"); envVal != "" {
		if seed, err := strconv.ParseInt(envVal, 10, 64); err == nil {
			return seed
		}
	}
	return world.DefaultSeed
}

// Options преобразует настройки в параметры пакета logging
func (l *LoggingConfig) Options() (logging.Options, error) {
	console, err := logging.ParseLevel(l.ConsoleLevel)
	if err != nil {
		return logging.Options{}, err
	}
	file, err := logging.ParseLevel(l.FileLevel)
	if err != nil {
		return logging.Options{}, err
	}
	return logging.Options{Dir: l.Dir, ConsoleLevel: console, FileLevel: file}, nil
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	// Если значение задано в конфиге и больше 0, используем его
	if configValue > 0 {
		return configValue
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

// Validate проверяет значения, которые нельзя исправить молча
func (c *Config) Validate() error {
	if c.World.Size <= 0 {
		return fmt.Errorf("%w: world.size должен быть положительным (%d)", ErrInvalidConfig, c.World.Size)
	}
	if c.World.Workers < 0 || c.Mesh.Workers < 0 {
		return fmt.Errorf("%w: число воркеров не может быть отрицательным", ErrInvalidConfig)
	}
	g := c.World.Generator
	if g.BaseHeight <= 0 || g.BaseHeight >= world.ChunkHeight {
		return fmt.Errorf("%w: generator.base_height вне [1, %d)", ErrInvalidConfig, world.ChunkHeight)
	}
	if g.SeaLevel < 0 || g.SeaLevel >= world.ChunkHeight {
		return fmt.Errorf("%w: generator.sea_level вне [0, %d)", ErrInvalidConfig, world.ChunkHeight)
	}
	if g.TreeDensity < 0 {
		return fmt.Errorf("%w: generator.tree_density отрицательна", ErrInvalidConfig)
	}
	if c.Engine.TickRate <= 0 {
		return fmt.Errorf("%w: engine.tick_rate должен быть положительным", ErrInvalidConfig)
	}
	if c.Server.ViewRadius < 0 {
		return fmt.Errorf("%w: server.view_radius не может быть отрицательным", ErrInvalidConfig)
	}
	if c.Engine.MaxMutationsPerTick < 0 {
		return fmt.Errorf("%w: engine.max_mutations_per_tick не может быть отрицательным", ErrInvalidConfig)
	}
	if c.EventBus.Capacity <= 0 {
		return fmt.Errorf("%w: eventbus.capacity должен быть положительным", ErrInvalidConfig)
	}
	for _, lvl := range []string{c.Logging.ConsoleLevel, c.Logging.FileLevel} {
		if _, err := logging.ParseLevel(lvl); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV BLOCKVERSE_CONFIG;
// если и он не задан, возвращает конфигурацию по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
		if path == "" {
			cfg.World.Generator.Seed = cfg.World.GetSeed()
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	cfg.World.Generator.Seed = cfg.World.GetSeed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
