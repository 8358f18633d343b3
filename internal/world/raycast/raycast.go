// Package raycast находит блок, на который смотрит игрок.
//
// Используется пошаговый обход вокселей (DDA): луч переходит из клетки в клетку
// через ближайшую по параметру t границу, поэтому ни одна пересеченная клетка
// не пропускается и результат не зависит от шага дискретизации.
package raycast

import (
	"errors"
	"math"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxReach дальность взаимодействия игрока в блоках
const MaxReach = 8.0

var (
	// ErrDegenerateDirection нулевое или нечисловое направление луча
	ErrDegenerateDirection = errors.New("вырожденное направление луча")
	// ErrInvalidDistance дальность луча не положительна, бесконечна или не число
	ErrInvalidDistance = errors.New("некорректная дальность луча")
	// ErrInvalidOrigin начало луча содержит NaN или бесконечность
	ErrInvalidOrigin = errors.New("некорректное начало луча")
)

// BlockSource источник блоков по мировым координатам
type BlockSource interface {
	GetBlock(p vec.Vec3) block.Type
}

// Hit результат попадания луча
type Hit struct {
	Block    vec.Vec3 // Координаты твердого блока
	Normal   vec.Vec3 // Нормаль грани, через которую луч вошел в блок
	Distance float64  // Расстояние от начала луча до точки входа
	Inside   bool     // Луч начался внутри твердого блока
}

// Place возвращает позицию для установки нового блока: соседнюю клетку за гранью попадания.
// Для луча, начавшегося внутри блока, грани нет.
func (h Hit) Place() (vec.Vec3, bool) {
	if h.Inside || h.Normal.IsZero() {
		return vec.Vec3{}, false
	}
	return h.Block.Add(h.Normal), true
}

// Point возвращает точку входа луча в блок
func Point(origin, dir mgl64.Vec3, h Hit) mgl64.Vec3 {
	return origin.Add(dir.Normalize().Mul(h.Distance))
}

// Cast пускает луч из origin в направлении dir не дальше maxDist.
// Возвращает первый твердый блок. Вода и воздух лучом пропускаются.
//
// Если начало луча внутри твердого блока, возвращается сам блок
// с нулевой дистанцией, нулевой нормалью и Inside=true.
// При равенстве расстояний до границ приоритет у оси X, затем Y, затем Z.
func Cast(src BlockSource, origin, dir mgl64.Vec3, maxDist float64) (Hit, bool, error) {
	if math.IsNaN(maxDist) || math.IsInf(maxDist, 0) || maxDist <= 0 {
		return Hit{}, false, ErrInvalidDistance
	}
	for i := 0; i < 3; i++ {
		if math.IsNaN(origin[i]) || math.IsInf(origin[i], 0) {
			return Hit{}, false, ErrInvalidOrigin
		}
	}

	length := dir.Len()
	if length == 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return Hit{}, false, ErrDegenerateDirection
	}
	d := dir.Mul(1 / length)

	cell := [3]int{
		int(math.Floor(origin[0])),
		int(math.Floor(origin[1])),
		int(math.Floor(origin[2])),
	}
	pos := func() vec.Vec3 { return vec.Vec3{X: cell[0], Y: cell[1], Z: cell[2]} }

	if src.GetBlock(pos()).IsSolid() {
		return Hit{Block: pos(), Inside: true}, true, nil
	}

	var step [3]int
	var tMax, tDelta [3]float64
	for i := 0; i < 3; i++ {
		switch {
		case d[i] > 0:
			step[i] = 1
			tMax[i] = (float64(cell[i]) + 1 - origin[i]) / d[i]
			tDelta[i] = 1 / d[i]
		case d[i] < 0:
			step[i] = -1
			tMax[i] = (origin[i] - float64(cell[i])) / -d[i]
			tDelta[i] = -1 / d[i]
		default:
			// Луч параллелен оси: граница по ней никогда не будет ближайшей
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	for {
		axis := 2
		if tMax[0] <= tMax[1] && tMax[0] <= tMax[2] {
			axis = 0
		} else if tMax[1] <= tMax[2] {
			axis = 1
		}

		t := tMax[axis]
		if t > maxDist {
			return Hit{}, false, nil
		}

		cell[axis] += step[axis]
		tMax[axis] += tDelta[axis]

		if src.GetBlock(pos()).IsSolid() {
			var normal [3]int
			normal[axis] = -step[axis]
			return Hit{
				Block:    pos(),
				Normal:   vec.Vec3{X: normal[0], Y: normal[1], Z: normal[2]},
				Distance: t,
			}, true, nil
		}
	}
}
