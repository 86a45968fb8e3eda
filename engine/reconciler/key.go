package reconciler

import (
	"fmt"

	"github.com/Carmen-Shannon/tilescape/common"
	"github.com/Carmen-Shannon/tilescape/engine/cache"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// Key identifies one pooled render object across snapshots.
type Key string

// StaticKey builds the key of a static primitive from everything that makes it
// look different: geometry, material, placement and rotation. Placement and
// rotation are quantized so numeric noise maps to the same key.
//
// Parameters:
//   - geometry: the quantized geometry signature
//   - material: the material kind
//   - position: world position
//   - rotation: Euler rotation in radians
//   - precision: decimal places kept
//
// Returns:
//   - Key: the content key
func StaticKey(geometry cache.GeometrySignature, material scene.MaterialKind, position, rotation mgl64.Vec3, precision int) Key {
	p := common.QuantizeVec3(position, precision)
	r := common.QuantizeVec3(rotation, precision)
	return Key(fmt.Sprintf("static:%s:%s@(%g,%g,%g)r(%g,%g,%g)",
		geometry, material, p[0], p[1], p[2], r[0], r[1], r[2]))
}

// SlotKey builds the key of a slotted primitive. Its identity survives any change of position.
//
// Parameters:
//   - role: a slotted role
//   - slot: the slot index
//
// Returns:
//   - Key: the slot key
func SlotKey(role scene.Role, slot int) Key {
	return Key(fmt.Sprintf("%s:%d", role, slot))
}

// KeyOf returns the pool key of a validated primitive.
func KeyOf(p scene.Primitive, geometry cache.GeometrySignature, precision int) Key {
	if p.Role.Slotted() {
		return SlotKey(p.Role, p.Slot)
	}
	return StaticKey(geometry, p.Material, p.Position, p.Rotation, precision)
}
