package renderer

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/tilescape/engine/light"
)

// GPUInstanceSource is the WGSL definition of the Instance struct.
// Matches GPUInstance layout exactly (112 bytes, std430 aligned).
const GPUInstanceSource = `struct Instance {
    model: mat4x4<f32>,
    color: vec4<f32>,
    emissive: vec4<f32>,
    params: vec4<f32>,
};`

// GPUInstance is the per-object data read by the vertex and fragment stages.
// Size: 112 bytes (std430 / WGSL aligned).
type GPUInstance struct {
	Model    [16]float32 // offset  0: model matrix, column-major
	Color    [4]float32  // offset 64: base color RGBA
	Emissive [4]float32  // offset 80: emissive RGB premultiplied by intensity, w unused
	Params   [4]float32  // offset 96: x metallic, y roughness, zw unused
}

// Size returns the size of the GPUInstance struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (112)
func (g *GPUInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstance struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 112-byte buffer ready for GPU upload
func (g *GPUInstance) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Model[i]))
	}
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Color[i]))
		binary.LittleEndian.PutUint32(buf[80+i*4:], math.Float32bits(g.Emissive[i]))
		binary.LittleEndian.PutUint32(buf[96+i*4:], math.Float32bits(g.Params[i]))
	}
	return buf
}

// lightBlockSize is the byte size of the LightBlock uniform: a count vector and
// an ambient vector followed by the fixed light array.
const lightBlockSize = 32 + 32*light.MaxGPULights

// marshalLightBlock packs the light header and up to eight point lights.
func marshalLightBlock(count uint32, ambient [3]float32, lights [][]byte) []byte {
	buf := make([]byte, lightBlockSize)
	binary.LittleEndian.PutUint32(buf[0:4], count)
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(ambient[i]))
	}
	for i, l := range lights {
		copy(buf[32+i*32:], l)
	}
	return buf
}
