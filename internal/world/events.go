package world

import (
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// EventType определяет тип события мира
type EventType uint8

const (
	EventTypeBlockPlaced  EventType = iota // Блок установлен
	EventTypeBlockRemoved                  // Блок разрушен
	EventTypeMeshReady                     // Меш чанка перестроен
)

// String возвращает имя события, оно же тип конверта в шине событий
func (t EventType) String() string {
	switch t {
	case EventTypeBlockPlaced:
		return "BlockPlaced"
	case EventTypeBlockRemoved:
		return "BlockRemoved"
	case EventTypeMeshReady:
		return "MeshReady"
	}
	return "Unknown"
}

// Event представляет собой интерфейс для всех событий мира
type Event interface {
	GetType() EventType
}

// BlockPlaced публикуется после установки не-воздушного блока
type BlockPlaced struct {
	Position vec.Vec3   // Мировые координаты блока
	Type     block.Type // Установленный тип
}

// GetType возвращает тип события
func (e BlockPlaced) GetType() EventType {
	return EventTypeBlockPlaced
}

// BlockRemoved публикуется, когда блок заменён воздухом
type BlockRemoved struct {
	Position vec.Vec3   // Мировые координаты блока
	Type     block.Type // Тип блока до разрушения
}

// GetType возвращает тип события
func (e BlockRemoved) GetType() EventType {
	return EventTypeBlockRemoved
}

// EventForChange строит событие по результату изменения блока.
// Для замены воздуха воздухом события нет.
func EventForChange(pos vec.Vec3, old, t block.Type) (Event, bool) {
	switch {
	case t == block.Air && old != block.Air:
		return BlockRemoved{Position: pos, Type: old}, true
	case t != block.Air:
		return BlockPlaced{Position: pos, Type: t}, true
	}
	return nil, false
}
