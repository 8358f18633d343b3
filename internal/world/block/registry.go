package block

import (
	"fmt"
	"strings"
)

// Type представляет тип вокселя. Набор типов закрыт, поэтому свойства
// хранятся в таблице, индексируемой порядковым номером типа.
type Type uint8

// Типы блоков. Air это нулевое значение, "пусто".
const (
	Air Type = iota
	Grass
	Dirt
	Stone
	Sand
	Water
	Wood
	Leaves

	Count // всегда последний: количество типов
)

// TextureID идентификатор текстуры (слой текстурного массива у рендерера)
type TextureID uint16

// Properties описывает статические свойства типа блока
type Properties struct {
	Name    string     // Имя для логов, конфигов и REST API
	Solid   bool       // Участвует в коллизиях и останавливает луч
	Opaque  bool       // Скрывает грани соседних блоков при мешинге
	Texture TextureID  // Текстура, которую использует мешер
	Color   [4]float32 // RGBA в sRGB, запасной цвет для рендерера без текстур
}

var properties = [Count]Properties{
	Air:    {Name: "air", Texture: 0, Color: [4]float32{0, 0, 0, 0}},
	Grass:  {Name: "grass", Solid: true, Opaque: true, Texture: 1, Color: [4]float32{0.33, 0.70, 0.24, 1}},
	Dirt:   {Name: "dirt", Solid: true, Opaque: true, Texture: 2, Color: [4]float32{0.55, 0.36, 0.20, 1}},
	Stone:  {Name: "stone", Solid: true, Opaque: true, Texture: 3, Color: [4]float32{0.50, 0.50, 0.50, 1}},
	Sand:   {Name: "sand", Solid: true, Opaque: true, Texture: 4, Color: [4]float32{0.87, 0.82, 0.57, 1}},
	Water:  {Name: "water", Solid: true, Texture: 5, Color: [4]float32{0.20, 0.40, 0.80, 0.60}},
	Wood:   {Name: "wood", Solid: true, Opaque: true, Texture: 6, Color: [4]float32{0.40, 0.26, 0.13, 1}},
	Leaves: {Name: "leaves", Solid: true, Opaque: true, Texture: 7, Color: [4]float32{0.18, 0.55, 0.18, 1}},
}

// Get возвращает свойства типа. Неизвестные значения считаются воздухом.
func Get(t Type) Properties {
	if t >= Count {
		return properties[Air]
	}
	return properties[t]
}

// IsValid проверяет, является ли значение допустимым типом блока
func IsValid(t Type) bool {
	return t < Count
}

// IsSolid возвращает true, если блок участвует в коллизиях и raycast'е
func (t Type) IsSolid() bool {
	return Get(t).Solid
}

// IsOpaque возвращает true, если блок скрывает грани соседей
func (t Type) IsOpaque() bool {
	return Get(t).Opaque
}

// IsAir возвращает true для пустого блока
func (t Type) IsAir() bool {
	return t == Air || t >= Count
}

// Texture возвращает идентификатор текстуры
func (t Type) Texture() TextureID {
	return Get(t).Texture
}

// CullsFace сообщает, скрывает ли блок t грань соседнего блока near.
// Непрозрачный блок скрывает любую грань; прозрачный блок скрывает только
// грань блока того же типа (вода рядом с водой не рисует внутренних граней).
func (t Type) CullsFace(near Type) bool {
	if t.IsAir() {
		return false
	}
	return t.IsOpaque() || t == near
}

// String возвращает имя блока
func (t Type) String() string {
	if t >= Count {
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
	return properties[t].Name
}

// Parse возвращает тип блока по имени (без учета регистра)
func Parse(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := Type(0); i < Count; i++ {
		if properties[i].Name == name {
			return i, nil
		}
	}
	return Air, fmt.Errorf("неизвестный тип блока %q", name)
}

// All возвращает все типы блоков в порядке объявления
func All() []Type {
	types := make([]Type, 0, Count)
	for i := Type(0); i < Count; i++ {
		types = append(types, i)
	}
	return types
}

// MarshalText кодирует тип как имя (для YAML/JSON)
func (t Type) MarshalText() ([]byte, error) {
	if !IsValid(t) {
		return nil, fmt.Errorf("недопустимый тип блока %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText разбирает тип по имени
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
