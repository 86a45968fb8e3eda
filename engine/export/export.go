// Package export writes the live scene as a glTF document.
//
// Geometry and materials come from the shared caches, so every object that
// shares a cached geometry shares one set of accessors in the document, and
// every object that shares a cached material shares one glTF material.
package export

import (
	"io"

	"github.com/Carmen-Shannon/tilescape/engine/cache"
	"github.com/Carmen-Shannon/tilescape/engine/game_object"
	"github.com/Carmen-Shannon/tilescape/engine/reconciler"
	"github.com/Carmen-Shannon/tilescape/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Object is one node to export.
type Object struct {
	Name     string
	Geometry *cache.Geometry
	Material material.Material
	Position mgl64.Vec3
	Rotation mgl64.Vec3 // Euler angles in radians, applied X then Y then Z
	Scale    mgl64.Vec3
}

// FromEntries converts pool entries into export objects at their current transforms.
// Entries without a render object are skipped.
//
// Parameters:
//   - entries: the live pool entries
//
// Returns:
//   - []Object: one object per rendered entry, in entry order
func FromEntries(entries []reconciler.Entry) []Object {
	out := make([]Object, 0, len(entries))
	for _, e := range entries {
		if e.Object == nil {
			continue
		}
		obj := FromGameObject(e.Object)
		obj.Name = string(e.Key)
		out = append(out, obj)
	}
	return out
}

// FromGameObject captures a render object's geometry, material and transform.
func FromGameObject(g game_object.GameObject) Object {
	return Object{
		Geometry: g.Geometry(),
		Material: g.Material(),
		Position: g.Position(),
		Rotation: g.Rotation(),
		Scale:    g.Scale(),
	}
}

type meshKey struct {
	geometry *cache.Geometry
	material material.Material
}

type geometryAccessors struct {
	position uint32
	normal   uint32
	indices  uint32
}

// Document builds a glTF document with one node per object.
//
// Parameters:
//   - objects: the objects to export
//
// Returns:
//   - *gltf.Document: the document
//   - error: error if an object has no geometry
func Document(objects []Object) (*gltf.Document, error) {
	doc := gltf.NewDocument()
	accessors := make(map[*cache.Geometry]geometryAccessors)
	materials := make(map[material.Material]uint32)
	meshes := make(map[meshKey]uint32)

	for i, obj := range objects {
		if obj.Geometry == nil {
			return nil, errors.Errorf("object %d (%s) has no geometry", i, obj.Name)
		}

		acc, ok := accessors[obj.Geometry]
		if !ok {
			mesh := obj.Geometry.Mesh()
			acc = geometryAccessors{
				position: modeler.WritePosition(doc, mesh.Positions()),
				normal:   modeler.WriteNormal(doc, mesh.Normals()),
				indices:  modeler.WriteIndices(doc, mesh.Indices),
			}
			accessors[obj.Geometry] = acc
		}

		var matIndex *uint32
		if obj.Material != nil {
			idx, ok := materials[obj.Material]
			if !ok {
				idx = uint32(len(doc.Materials))
				doc.Materials = append(doc.Materials, gltfMaterial(obj.Material))
				materials[obj.Material] = idx
			}
			matIndex = gltf.Index(idx)
		}

		key := meshKey{geometry: obj.Geometry, material: obj.Material}
		meshIndex, ok := meshes[key]
		if !ok {
			meshIndex = uint32(len(doc.Meshes))
			doc.Meshes = append(doc.Meshes, &gltf.Mesh{
				Name: obj.Geometry.Signature().String(),
				Primitives: []*gltf.Primitive{
					{
						Indices: gltf.Index(acc.indices),
						Attributes: map[string]uint32{
							"POSITION": acc.position,
							"NORMAL":   acc.normal,
						},
						Material: matIndex,
					},
				},
			})
			meshes[key] = meshIndex
		}

		q := rotationQuat(obj.Rotation)
		scale := obj.Scale
		if scale == (mgl64.Vec3{}) {
			scale = mgl64.Vec3{1, 1, 1}
		}
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:        obj.Name,
			Mesh:        gltf.Index(meshIndex),
			Translation: [3]float32{float32(obj.Position[0]), float32(obj.Position[1]), float32(obj.Position[2])},
			Rotation:    [4]float32{float32(q.V[0]), float32(q.V[1]), float32(q.V[2]), float32(q.W)},
			Scale:       [3]float32{float32(scale[0]), float32(scale[1]), float32(scale[2])},
		})
	}
	return doc, nil
}

// WriteBinary encodes the objects as a binary glTF (.glb) stream.
//
// Parameters:
//   - w: the destination
//   - objects: the objects to export
//
// Returns:
//   - error: error if the document cannot be built or encoded
func WriteBinary(w io.Writer, objects []Object) error {
	doc, err := Document(objects)
	if err != nil {
		return err
	}
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return errors.Wrap(encoder.Encode(doc), "encode glb")
}

// rotationQuat matches the Z*Y*X order the renderer builds model matrices with.
func rotationQuat(r mgl64.Vec3) mgl64.Quat {
	return mgl64.QuatRotate(r[2], mgl64.Vec3{0, 0, 1}).
		Mul(mgl64.QuatRotate(r[1], mgl64.Vec3{0, 1, 0})).
		Mul(mgl64.QuatRotate(r[0], mgl64.Vec3{1, 0, 0}))
}

func gltfMaterial(m material.Material) *gltf.Material {
	color := m.BaseColor()
	metallic := m.Metallic()
	roughness := m.Roughness()
	emissive := m.Emissive()
	intensity := m.EmissiveIntensity()
	var factor [3]float32
	for i := range factor {
		factor[i] = clamp01(emissive[i] * intensity)
	}
	return &gltf.Material{
		Name: m.Name(),
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &color,
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
		EmissiveFactor: factor,
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
