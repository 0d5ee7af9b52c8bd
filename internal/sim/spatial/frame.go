package spatial

import "github.com/go-gl/mathgl/mgl64"

// Transform is a parent frame as the scene host describes it: position plus Euler rotation in
// degrees, applied in X, Y, Z order.
type Transform struct {
	Position    Vec3
	RotationDeg Vec3
}

func (t Transform) Matrix() mgl64.Mat4 {
	rx := mgl64.HomogRotate3DX(mgl64.DegToRad(t.RotationDeg[0]))
	ry := mgl64.HomogRotate3DY(mgl64.DegToRad(t.RotationDeg[1]))
	rz := mgl64.HomogRotate3DZ(mgl64.DegToRad(t.RotationDeg[2]))
	tr := mgl64.Translate3D(t.Position[0], t.Position[1], t.Position[2])
	return tr.Mul4(rx.Mul4(ry).Mul4(rz))
}

// ToLocalFrame maps a world point into the frame described by frame (a local-to-world matrix).
func ToLocalFrame(p Vec3, frame mgl64.Mat4) Vec3 {
	return frame.Inv().Mul4x1(p.Vec4(1)).Vec3()
}

func ToWorldFrame(p Vec3, frame mgl64.Mat4) Vec3 {
	return frame.Mul4x1(p.Vec4(1)).Vec3()
}
