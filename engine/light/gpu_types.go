package light

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// MaxGPULights is the number of point lights the fragment shader evaluates.
// Lights past this count are ignored by the GPU backend.
const MaxGPULights = 8

// GPULightSource is the WGSL definition of the PointLight struct.
// Matches GPULight layout exactly (32 bytes, std430 aligned).
const GPULightSource = `struct PointLight {
    position: vec3<f32>,
    intensity: f32,
    color: vec3<f32>,
    _pad: f32,
};`

// GPULight is the GPU-aligned representation of a single point light.
// Matches the WGSL PointLight struct layout exactly (see GPULightSource).
// Size: 32 bytes (std430 / WGSL aligned).
type GPULight struct {
	Position  [3]float32 // offset  0: world-space position
	Intensity float32    // offset 12: scalar multiplier
	Color     [3]float32 // offset 16: RGB color
	_pad      float32    // offset 28: padding to 32-byte alignment
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Intensity))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Color[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Color[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Color[2]))
	binary.LittleEndian.PutUint32(buf[28:32], 0)
	return buf
}
