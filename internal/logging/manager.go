package logging

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"
)

// Имена компонентов, под которыми пакеты получают свои логгеры
const (
	ComponentWorld  = "world"
	ComponentMesh   = "mesh"
	ComponentEngine = "engine"
	ComponentAPI    = "api"
	ComponentEvents = "events"
)

// ErrUnknownComponent логгер компонента еще не создавался
var ErrUnknownComponent = errors.New("логгер компонента не найден")

// LoggerManager раздает по одному логгеру на компонент
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

func newLoggerManager() *LoggerManager {
	return &LoggerManager{loggers: make(map[string]*Logger)}
}

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if ok {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер %s: %w", component, err)
	}
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер компонента. Если файл логов открыть не удалось,
// возвращает консольный логгер, чтобы компонент не остался без вывода.
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}

	opts := currentOptions()
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	fallback := &Logger{component: component, consoleLogger: newStdLogger(console)}
	fallback.SetLevels(opts.ConsoleLevel, OFF)
	fallback.Warn("Файловый лог недоступен, пишем только в консоль: %v", err)
	return fallback
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("закрытие логгера %s: %w", component, err))
		}
	}
	clear(lm.loggers)
	return errors.Join(errs...)
}

// ListComponents возвращает имена компонентов в алфавитном порядке
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return slices.Sorted(maps.Keys(lm.loggers))
}

// SetLogLevel меняет уровни одного компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.RLock()
	logger, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, component)
	}
	logger.SetLevels(consoleLevel, fileLevel)
	return nil
}

func (lm *LoggerManager) applyLevels(consoleLevel, fileLevel LogLevel) {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	for _, logger := range lm.loggers {
		logger.SetLevels(consoleLevel, fileLevel)
	}
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetWorldLogger() *Logger  { return GetComponentLogger(ComponentWorld) }
func GetMeshLogger() *Logger   { return GetComponentLogger(ComponentMesh) }
func GetEngineLogger() *Logger { return GetComponentLogger(ComponentEngine) }
func GetAPILogger() *Logger    { return GetComponentLogger(ComponentAPI) }
func GetEventsLogger() *Logger { return GetComponentLogger(ComponentEvents) }
