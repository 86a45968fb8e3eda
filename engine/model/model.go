// Package model generates the triangle meshes for the primitive shapes the scene is built from.
package model

import "math"

// Mesh is an indexed triangle list in model space.
type Mesh struct {
	// Vertices are the mesh vertices with outward normals.
	Vertices []GPUVertex

	// Indices are the triangle indices, counter-clockwise when viewed from outside.
	Indices []uint32

	// BoundingMin is the minimum corner of the axis-aligned bounding box.
	BoundingMin [3]float32

	// BoundingMax is the maximum corner of the axis-aligned bounding box.
	BoundingMax [3]float32
}

// Positions returns the vertex positions as a flat list.
//
// Returns:
//   - [][3]float32: one position per vertex
func (m *Mesh) Positions() [][3]float32 {
	out := make([][3]float32, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Position
	}
	return out
}

// Normals returns the vertex normals as a flat list.
//
// Returns:
//   - [][3]float32: one normal per vertex
func (m *Mesh) Normals() [][3]float32 {
	out := make([][3]float32, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Normal
	}
	return out
}

// boxFace describes one side of a box: its outward normal and two in-plane axes with u x v = n.
type boxFace struct {
	n, u, v [3]float32
}

var boxFaces = [6]boxFace{
	{n: [3]float32{1, 0, 0}, u: [3]float32{0, 1, 0}, v: [3]float32{0, 0, 1}},
	{n: [3]float32{-1, 0, 0}, u: [3]float32{0, 0, 1}, v: [3]float32{0, 1, 0}},
	{n: [3]float32{0, 1, 0}, u: [3]float32{0, 0, 1}, v: [3]float32{1, 0, 0}},
	{n: [3]float32{0, -1, 0}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 0, 1}},
	{n: [3]float32{0, 0, 1}, u: [3]float32{1, 0, 0}, v: [3]float32{0, 1, 0}},
	{n: [3]float32{0, 0, -1}, u: [3]float32{0, 1, 0}, v: [3]float32{1, 0, 0}},
}

// BuildBox creates a box mesh centered on the origin.
// Each face carries its own four vertices so normals stay flat (24 vertices, 36 indices).
//
// Parameters:
//   - width: extent along X
//   - depth: extent along Y
//   - height: extent along Z
//
// Returns:
//   - Mesh: the generated box
func BuildBox(width, depth, height float32) Mesh {
	half := [3]float32{width / 2, depth / 2, height / 2}
	m := Mesh{
		Vertices:    make([]GPUVertex, 0, 24),
		Indices:     make([]uint32, 0, 36),
		BoundingMin: [3]float32{-half[0], -half[1], -half[2]},
		BoundingMax: half,
	}

	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range boxFaces {
		base := uint32(len(m.Vertices))
		for _, c := range corners {
			var p [3]float32
			for axis := 0; axis < 3; axis++ {
				p[axis] = (f.n[axis] + c[0]*f.u[axis] + c[1]*f.v[axis]) * half[axis]
			}
			m.Vertices = append(m.Vertices, GPUVertex{Position: p, Normal: f.n})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// BuildSphere creates a UV sphere centered on the origin with its poles on the Z axis.
//
// Parameters:
//   - radius: sphere radius
//   - widthSegments: number of segments around the equator (minimum 3)
//   - heightSegments: number of segments pole to pole (minimum 2)
//
// Returns:
//   - Mesh: the generated sphere
func BuildSphere(radius float32, widthSegments, heightSegments int) Mesh {
	widthSegments = max(widthSegments, 3)
	heightSegments = max(heightSegments, 2)

	m := Mesh{
		Vertices:    make([]GPUVertex, 0, (widthSegments+1)*(heightSegments+1)),
		BoundingMin: [3]float32{-radius, -radius, -radius},
		BoundingMax: [3]float32{radius, radius, radius},
	}

	grid := make([][]uint32, heightSegments+1)
	for iy := 0; iy <= heightSegments; iy++ {
		row := make([]uint32, widthSegments+1)
		theta := float64(iy) / float64(heightSegments) * math.Pi
		for ix := 0; ix <= widthSegments; ix++ {
			phi := float64(ix) / float64(widthSegments) * 2 * math.Pi
			n := [3]float32{
				float32(math.Cos(phi) * math.Sin(theta)),
				float32(math.Sin(phi) * math.Sin(theta)),
				float32(math.Cos(theta)),
			}
			row[ix] = uint32(len(m.Vertices))
			m.Vertices = append(m.Vertices, GPUVertex{
				Position: [3]float32{n[0] * radius, n[1] * radius, n[2] * radius},
				Normal:   n,
			})
		}
		grid[iy] = row
	}

	// Rows run from the +Z pole downward; the pole rows collapse to single triangles.
	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := grid[iy][ix]
			b := grid[iy+1][ix]
			c := grid[iy+1][ix+1]
			d := grid[iy][ix+1]
			if iy != 0 {
				m.Indices = append(m.Indices, a, b, d)
			}
			if iy != heightSegments-1 {
				m.Indices = append(m.Indices, b, c, d)
			}
		}
	}
	return m
}
