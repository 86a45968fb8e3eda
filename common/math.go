package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// clipCorrection remaps OpenGL clip depth [-1, 1] onto the WebGPU range [0, 1].
var clipCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Quantize rounds v to the given number of decimal places.
// Negative zero is folded into zero so both produce the same signature.
//
// Parameters:
//   - v: the value to round
//   - decimals: number of decimal places to keep
//
// Returns:
//   - float64: the rounded value
func Quantize(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(decimals))
	q := math.Round(v*p) / p
	if q == 0 {
		return 0
	}
	return q
}

// QuantizeVec3 applies Quantize to each component of v.
//
// Parameters:
//   - v: the vector to round
//   - decimals: number of decimal places to keep
//
// Returns:
//   - mgl64.Vec3: the rounded vector
func QuantizeVec3(v mgl64.Vec3, decimals int) mgl64.Vec3 {
	return mgl64.Vec3{Quantize(v[0], decimals), Quantize(v[1], decimals), Quantize(v[2], decimals)}
}

// Vec3To32 narrows a double precision vector for GPU upload.
func Vec3To32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// IsFinite reports whether every component of v is neither NaN nor infinite.
func IsFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// BuildModelMatrix constructs a model matrix from position, Euler rotation (radians, applied X then Y then Z) and scale.
//
// Parameters:
//   - position: translation in world space
//   - rotation: rotation angles around each axis
//   - scale: scale factors along each axis
//
// Returns:
//   - mgl32.Mat4: the column-major model matrix
func BuildModelMatrix(position, rotation, scale mgl64.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(float32(position[0]), float32(position[1]), float32(position[2]))
	r := mgl32.HomogRotate3DZ(float32(rotation[2])).
		Mul4(mgl32.HomogRotate3DY(float32(rotation[1]))).
		Mul4(mgl32.HomogRotate3DX(float32(rotation[0])))
	s := mgl32.Scale3D(float32(scale[0]), float32(scale[1]), float32(scale[2]))
	return t.Mul4(r).Mul4(s)
}

// Orthographic builds an orthographic projection sized by the vertical view extent,
// remapped to WebGPU clip space.
//
// Parameters:
//   - viewSize: visible world height
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance
//   - far: far clipping plane distance
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func Orthographic(viewSize, aspect, near, far float32) mgl32.Mat4 {
	halfH := viewSize / 2
	halfW := aspect * halfH
	return clipCorrection.Mul4(mgl32.Ortho(-halfW, halfW, -halfH, halfH, near, far))
}

// OrbitEye places an eye point on a sphere around focal using azimuth and elevation in degrees, Z up.
//
// Parameters:
//   - focal: the point being orbited
//   - azimuthDeg: angle around the Z axis measured from +X
//   - elevationDeg: angle above the XY plane
//   - distance: sphere radius
//
// Returns:
//   - mgl64.Vec3: the eye position
func OrbitEye(focal mgl64.Vec3, azimuthDeg, elevationDeg, distance float64) mgl64.Vec3 {
	az := mgl64.DegToRad(azimuthDeg)
	el := mgl64.DegToRad(elevationDeg)
	return mgl64.Vec3{
		focal[0] + distance*math.Cos(az)*math.Cos(el),
		focal[1] + distance*math.Sin(az)*math.Cos(el),
		focal[2] + distance*math.Sin(el),
	}
}

// HexColor expands a 0xRRGGBB value into linear RGBA components with full alpha.
//
// Parameters:
//   - hex: packed 24-bit color
//
// Returns:
//   - [4]float32: RGBA components in [0, 1]
func HexColor(hex uint32) [4]float32 {
	return [4]float32{
		float32((hex>>16)&0xff) / 255,
		float32((hex>>8)&0xff) / 255,
		float32(hex&0xff) / 255,
		1,
	}
}
