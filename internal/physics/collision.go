package physics

import (
	"math"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
)

// Размеры игрока в блоках
const (
	PlayerHalfWidth = 0.3
	PlayerHeight    = 1.8
	EyeHeight       = 1.7
)

// Параметры вертикального движения (блоки/с, блоки/с²)
const (
	Gravity          = 32.0
	JumpVelocity     = 9.0
	TerminalVelocity = 78.4
)

// epsilon отступ от верхних граней, чтобы касание не считалось пересечением
const epsilon = 0.001

// BlockSource источник блоков по мировым координатам
type BlockSource interface {
	GetBlock(p vec.Vec3) block.Type
}

// BoxCollider представляет вертикальный прямоугольный коллайдер.
// Позиция коллайдера это центр нижней грани (ноги).
type BoxCollider struct {
	HalfWidth float64 // Половина ширины по X и Z
	Height    float64 // Высота по Y
}

// NewBoxCollider создаёт новый коллайдер с указанными размерами
func NewBoxCollider(halfWidth, height float64) *BoxCollider {
	return &BoxCollider{
		HalfWidth: halfWidth,
		Height:    height,
	}
}

// PlayerCollider возвращает коллайдер игрока
func PlayerCollider() *BoxCollider {
	return NewBoxCollider(PlayerHalfWidth, PlayerHeight)
}

// BlockRange возвращает диапазон блоков (включительно), которые занимает коллайдер в позиции pos
func (bc *BoxCollider) BlockRange(pos mgl64.Vec3) (lo, hi vec.Vec3) {
	lo = vec.Floor(pos.X()-bc.HalfWidth, pos.Y(), pos.Z()-bc.HalfWidth)
	hi = vec.Floor(pos.X()+bc.HalfWidth-epsilon, pos.Y()+bc.Height-epsilon, pos.Z()+bc.HalfWidth-epsilon)
	return lo, hi
}

// blockCollider единичный куб блока; позиция это центр нижней грани
var blockCollider = NewBoxCollider(0.5, 1)

// IntersectsBlock проверяет, пересекает ли коллайдер в позиции pos единичный куб блока b.
// Касание гранями пересечением не считается.
func (bc *BoxCollider) IntersectsBlock(pos mgl64.Vec3, b vec.Vec3) bool {
	center := mgl64.Vec3{float64(b.X) + 0.5, float64(b.Y), float64(b.Z) + 0.5}
	return CheckBoxCollision(pos, bc, center, blockCollider)
}

// CheckBoxCollision проверяет столкновение двух коллайдеров
func CheckBoxCollision(pos1 mgl64.Vec3, collider1 *BoxCollider, pos2 mgl64.Vec3, collider2 *BoxCollider) bool {
	return pos1.X()+collider1.HalfWidth > pos2.X()-collider2.HalfWidth &&
		pos1.X()-collider1.HalfWidth < pos2.X()+collider2.HalfWidth &&
		pos1.Y()+collider1.Height > pos2.Y() &&
		pos1.Y() < pos2.Y()+collider2.Height &&
		pos1.Z()+collider1.HalfWidth > pos2.Z()-collider2.HalfWidth &&
		pos1.Z()-collider1.HalfWidth < pos2.Z()+collider2.HalfWidth
}

// CollidesWithWorld проверяет, пересекает ли коллайдер твердые блоки мира
func (bc *BoxCollider) CollidesWithWorld(pos mgl64.Vec3, src BlockSource) bool {
	lo, hi := bc.BlockRange(pos)
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				if src.GetBlock(vec.Vec3{X: x, Y: y, Z: z}).IsSolid() {
					return true
				}
			}
		}
	}
	return false
}

// IsOnGround проверяет, стоит ли коллайдер на твердом блоке
func (bc *BoxCollider) IsOnGround(pos mgl64.Vec3, src BlockSource) bool {
	lo, hi := bc.BlockRange(pos)
	y := int(math.Floor(pos.Y() - epsilon))
	for x := lo.X; x <= hi.X; x++ {
		for z := lo.Z; z <= hi.Z; z++ {
			if src.GetBlock(vec.Vec3{X: x, Y: y, Z: z}).IsSolid() {
				return true
			}
		}
	}
	return false
}

// MoveWithCollision сдвигает коллайдер на delta по осям X, Y, Z по очереди.
// При столкновении позиция по оси прижимается к грани блока.
// Возвращает новую позицию и признаки удара о пол и потолок.
func (bc *BoxCollider) MoveWithCollision(current, delta mgl64.Vec3, src BlockSource) (pos mgl64.Vec3, hitFloor, hitCeiling bool) {
	pos = current

	// X
	pos[0] += delta[0]
	if bc.CollidesWithWorld(pos, src) {
		if delta[0] > 0 {
			pos[0] = math.Floor(pos[0]+bc.HalfWidth) - bc.HalfWidth
		} else {
			pos[0] = math.Floor(pos[0]-bc.HalfWidth) + 1 + bc.HalfWidth
		}
	}

	// Y
	pos[1] += delta[1]
	if bc.CollidesWithWorld(pos, src) {
		if delta[1] > 0 {
			pos[1] = math.Floor(pos[1]+bc.Height) - bc.Height
			hitCeiling = true
		} else {
			pos[1] = math.Floor(pos[1]) + 1
			hitFloor = true
		}
	}

	// Z
	pos[2] += delta[2]
	if bc.CollidesWithWorld(pos, src) {
		if delta[2] > 0 {
			pos[2] = math.Floor(pos[2]+bc.HalfWidth) - bc.HalfWidth
		} else {
			pos[2] = math.Floor(pos[2]-bc.HalfWidth) + 1 + bc.HalfWidth
		}
	}

	return pos, hitFloor, hitCeiling
}
