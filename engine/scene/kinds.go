package scene

import (
	"strings"

	"github.com/pkg/errors"
)

// ShapeKind identifies the geometric primitive a descriptor draws.
// The set is closed: names outside it are rejected where snapshots are decoded.
type ShapeKind int

const (
	// ShapeUnknown is the zero value and never valid on a live descriptor.
	ShapeUnknown ShapeKind = iota

	// ShapeBox is an axis-aligned box sized by Primitive.Size.
	ShapeBox

	// ShapeSphere is a UV sphere sized by Primitive.Radius and Primitive.Segments.
	ShapeSphere
)

var shapeNames = map[ShapeKind]string{
	ShapeBox:    "box",
	ShapeSphere: "sphere",
}

func (k ShapeKind) String() string {
	if name, ok := shapeNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k ShapeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseShapeKind resolves a shape name.
//
// Parameters:
//   - name: the shape name, case-insensitive
//
// Returns:
//   - ShapeKind: the matching kind
//   - error: ErrUnknownShape if the name is not part of the closed set
func ParseShapeKind(name string) (ShapeKind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k, v := range shapeNames {
		if v == n {
			return k, nil
		}
	}
	return ShapeUnknown, errors.Wrapf(ErrUnknownShape, "%q", name)
}

// MaterialKind identifies a surface in the material palette.
type MaterialKind int

const (
	// MaterialNone is the zero value and marks a descriptor with no material.
	MaterialNone MaterialKind = iota
	MaterialBase
	MaterialStairs
	MaterialBridge
	MaterialRailing
	MaterialPlayer
	MaterialGoal
	MaterialFocus
)

var materialNames = map[MaterialKind]string{
	MaterialBase:    "base",
	MaterialStairs:  "stairs",
	MaterialBridge:  "bridge",
	MaterialRailing: "railing",
	MaterialPlayer:  "player",
	MaterialGoal:    "goal",
	MaterialFocus:   "focus",
}

// MaterialKinds returns every named material kind in declaration order.
func MaterialKinds() []MaterialKind {
	return []MaterialKind{
		MaterialBase, MaterialStairs, MaterialBridge, MaterialRailing,
		MaterialPlayer, MaterialGoal, MaterialFocus,
	}
}

func (k MaterialKind) String() string {
	if name, ok := materialNames[k]; ok {
		return name
	}
	if k == MaterialNone {
		return "none"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k MaterialKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseMaterialKind resolves a material name.
//
// Parameters:
//   - name: the material name, case-insensitive; empty means MaterialNone
//
// Returns:
//   - MaterialKind: the matching kind
//   - error: ErrUnknownMaterial if the name is not part of the closed set
func ParseMaterialKind(name string) (MaterialKind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return MaterialNone, nil
	}
	for k, v := range materialNames {
		if v == n {
			return k, nil
		}
	}
	return MaterialNone, errors.Wrapf(ErrUnknownMaterial, "%q", name)
}

// Role says whether a primitive keeps its identity by content or by slot.
type Role int

const (
	// RoleStatic primitives are identified by their full signature; any change makes a new object.
	RoleStatic Role = iota

	// RolePlayer primitives occupy a fixed slot and are driven by the chain animator.
	RolePlayer

	// RoleDynamic primitives occupy a fixed slot and are moved in place by each snapshot.
	RoleDynamic
)

var roleNames = map[Role]string{
	RoleStatic:  "static",
	RolePlayer:  "player",
	RoleDynamic: "dynamic",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseRole resolves a role name; empty means RoleStatic.
func ParseRole(name string) (Role, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return RoleStatic, nil
	}
	for k, v := range roleNames {
		if v == n {
			return k, nil
		}
	}
	return RoleStatic, errors.Wrapf(ErrUnknownRole, "%q", name)
}

// Slotted reports whether the role keys objects by slot rather than by signature.
func (r Role) Slotted() bool {
	return r == RolePlayer || r == RoleDynamic
}
