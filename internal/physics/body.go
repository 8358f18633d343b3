package physics

import "github.com/go-gl/mathgl/mgl64"

// Body тело с коллайдером, гравитацией и прыжком
type Body struct {
	Position  mgl64.Vec3 // Ноги
	VelocityY float64
	Grounded  bool
	Collider  *BoxCollider
}

// NewPlayerBody создаёт тело игрока в позиции pos
func NewPlayerBody(pos mgl64.Vec3) *Body {
	return &Body{Position: pos, Collider: PlayerCollider()}
}

// Eye возвращает позицию глаз, из которой пускается луч взгляда
func (b *Body) Eye() mgl64.Vec3 {
	return b.Position.Add(mgl64.Vec3{0, EyeHeight, 0})
}

// Step продвигает тело на dt секунд: horizontal: смещение по X/Z за шаг,
// jump: желание прыгнуть (срабатывает только на земле).
func (b *Body) Step(horizontal mgl64.Vec2, jump bool, dt float64, src BlockSource) {
	b.Grounded = b.Collider.IsOnGround(b.Position, src)
	if jump && b.Grounded {
		b.VelocityY = JumpVelocity
		b.Grounded = false
	}

	b.VelocityY -= Gravity * dt
	if b.VelocityY < -TerminalVelocity {
		b.VelocityY = -TerminalVelocity
	}

	delta := mgl64.Vec3{horizontal.X(), b.VelocityY * dt, horizontal.Y()}
	pos, hitFloor, hitCeiling := b.Collider.MoveWithCollision(b.Position, delta, src)
	b.Position = pos

	if hitFloor {
		b.VelocityY = 0
		b.Grounded = true
	}
	if hitCeiling && b.VelocityY > 0 {
		b.VelocityY = 0
	}
}
