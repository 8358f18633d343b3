package world

import "github.com/annel0/blockverse/internal/vec"

// Face определяет одну из шести граней блока (и направление к соседу)
type Face uint8

const (
	FacePosX Face = iota // Восток
	FaceNegX             // Запад
	FacePosY             // Верх
	FaceNegY             // Низ
	FacePosZ             // Север
	FaceNegZ             // Юг

	FaceCount // всегда последний: количество граней
)

// Faces все грани в фиксированном порядке
var Faces = [FaceCount]Face{FacePosX, FaceNegX, FacePosY, FaceNegY, FacePosZ, FaceNegZ}

var faceNormals = [FaceCount]vec.Vec3{
	FacePosX: {X: 1},
	FaceNegX: {X: -1},
	FacePosY: {Y: 1},
	FaceNegY: {Y: -1},
	FacePosZ: {Z: 1},
	FaceNegZ: {Z: -1},
}

// Normal возвращает единичную нормаль грани
func (f Face) Normal() vec.Vec3 {
	return faceNormals[f]
}

// Axis возвращает ось грани: 0 = X, 1 = Y, 2 = Z
func (f Face) Axis() int {
	return int(f) / 2
}

// Sign возвращает +1 для положительных граней и -1 для отрицательных
func (f Face) Sign() int {
	if f%2 == 0 {
		return 1
	}
	return -1
}

// FaceFromNormal находит грань по нормали; ok=false для неединичных векторов
func FaceFromNormal(n vec.Vec3) (Face, bool) {
	for _, f := range Faces {
		if faceNormals[f] == n {
			return f, true
		}
	}
	return 0, false
}

func (f Face) String() string {
	switch f {
	case FacePosX:
		return "+X"
	case FaceNegX:
		return "-X"
	case FacePosY:
		return "+Y"
	case FaceNegY:
		return "-Y"
	case FacePosZ:
		return "+Z"
	case FaceNegZ:
		return "-Z"
	}
	return "?"
}
