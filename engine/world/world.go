// Package world expands a puzzle State into the scene snapshot the engine draws.
//
// One grid unit is Scale world units. Blocks become stacks of boxes, the player
// becomes three slotted spheres followed by a tracked light, the goal becomes
// three rotated cubes, and the editing cursor becomes eight small spheres.
package world

import (
	"fmt"
	"log"
	"math"

	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// Scale is the world size of one grid unit.
const Scale = 0.1

// Slots used by the goal and focus markers within the dynamic role.
const (
	goalSlot  = 0
	focusSlot = 3
)

// playerSpheres lists the height offset (in tenths of a tile) and radius (in hundredths) of each marker.
var playerSpheres = [3]struct{ zOff, radius float64 }{
	{2.0, 2.2},
	{5.5, 1.8},
	{8.5, 1.4},
}

var focusOffsets = [8][3]float64{
	{-5, -5, -10}, {5, -5, -10}, {-5, 5, -10}, {5, 5, -10},
	{-5, -5, 0}, {5, -5, 0}, {-5, 5, 0}, {5, 5, 0},
}

// DefaultFillLights returns the three static point lights around the board.
func DefaultFillLights() []scene.Light {
	return []scene.Light{
		{Key: "fill-left", Position: mgl64.Vec3{-2, 0, 3}, Color: 0xffcc99, Intensity: 30},
		{Key: "fill-right", Position: mgl64.Vec3{0, -2, 3}, Color: 0x66bbff, Intensity: 15},
		{Key: "fill-above", Position: mgl64.Vec3{2, 2, 6}, Color: 0xffffff, Intensity: 40},
	}
}

// PlayerLightKey is the key of the light that follows the lead player marker.
const PlayerLightKey = "player-light"

type builder struct {
	railings   bool
	fillLights []scene.Light
	background uint32
	distance   float64
}

// Builder converts puzzle states into scene snapshots.
type Builder interface {
	// Build expands s into a full snapshot. Blocks of unknown type are skipped with a log line.
	//
	// Parameters:
	//   - s: the puzzle state
	//
	// Returns:
	//   - scene.Descriptor: the snapshot
	Build(s State) scene.Descriptor
}

var _ Builder = &builder{}

// NewBuilder creates a Builder. Railings are off unless WithRailings enables them.
//
// Parameters:
//   - options: functional options to configure the builder
//
// Returns:
//   - Builder: the new builder
func NewBuilder(options ...WorldBuilderOption) Builder {
	b := &builder{
		fillLights: DefaultFillLights(),
		background: scene.DefaultBackground,
		distance:   scene.DefaultCamera().Distance,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *builder) Build(s State) scene.Descriptor {
	var prims []scene.Primitive
	for i, blk := range s.Blocks {
		switch blk.Type {
		case BlockBase:
			prims = append(prims, baseBlock(blk)...)
		case BlockBridge:
			prims = append(prims, bridgeBlock(blk)...)
		case BlockStairs:
			prims = append(prims, stairsBlock(blk)...)
		default:
			log.Printf("[World] Skipping block %d at %d,%d,%d: unknown type %q", i, blk.X, blk.Y, blk.Z, blk.Type)
		}
	}
	if b.railings {
		for i, r := range s.Railings {
			prims = append(prims, railingPosts(i, r)...)
		}
	}

	zFix := 0.0
	if onStairs(s.Blocks, s.Player) {
		zFix = -5 * 0.01
	}
	p := s.Player
	for i, sp := range playerSpheres {
		prims = append(prims, scene.Primitive{
			Key:      fmt.Sprintf("player:%d", i),
			Shape:    scene.ShapeSphere,
			Radius:   sp.radius * 0.01,
			Segments: 16,
			Material: scene.MaterialPlayer,
			Position: mgl64.Vec3{float64(p.X) * Scale, float64(p.Y) * Scale, (float64(p.Z)+sp.zOff*0.1)*Scale + zFix},
			Role:     scene.RolePlayer,
			Slot:     i,
		})
	}

	prims = append(prims, goalCubes(s.Goal, s.Player == s.Goal)...)
	if s.Mode == ModeEditing {
		prims = append(prims, focusMarkers(s.Focus)...)
	}

	lights := make([]scene.Light, 0, len(b.fillLights)+1)
	lights = append(lights, b.fillLights...)
	lights = append(lights, scene.Light{
		Key:       PlayerLightKey,
		Position:  mgl64.Vec3{float64(p.X) * Scale, float64(p.Y) * Scale, (float64(p.Z)+0.5)*Scale + zFix},
		Color:     0xffffff,
		Intensity: 0.03,
		Tracked:   true,
	})

	cam := scene.DefaultCamera()
	cam.Azimuth = s.Camera.Azimuth
	cam.Elevation = s.Camera.Elevation
	cam.Distance = b.distance

	return scene.Descriptor{
		Primitives: prims,
		Camera:     cam,
		Lights:     lights,
		Background: b.background,
	}
}

func boxAt(key string, material scene.MaterialKind, w, d, h float64, pos mgl64.Vec3) scene.Primitive {
	return scene.Primitive{
		Key:      key,
		Shape:    scene.ShapeBox,
		Size:     mgl64.Vec3{w, d, h},
		Material: material,
		Position: pos,
	}
}

func blockKey(blk Block, part string) string {
	return fmt.Sprintf("%s:%d,%d,%d:%s", blk.Type, blk.X, blk.Y, blk.Z, part)
}

func baseBlock(blk Block) []scene.Primitive {
	x, y, z := float64(blk.X), float64(blk.Y), float64(blk.Z)
	return []scene.Primitive{
		boxAt(blockKey(blk, "column"), scene.MaterialBase, Scale, Scale, (z+1)*Scale,
			mgl64.Vec3{x * Scale, y * Scale, (z*0.5 - 0.5) * Scale}),
	}
}

// pillar is the column under bridges and stairs. A block at ground level has none.
func pillar(blk Block, material scene.MaterialKind) []scene.Primitive {
	x, y, z := float64(blk.X), float64(blk.Y), float64(blk.Z)
	if z <= 0 {
		return nil
	}
	return []scene.Primitive{
		boxAt(blockKey(blk, "column"), material, Scale, Scale, z*Scale,
			mgl64.Vec3{x * Scale, y * Scale, (z*0.5 - 1.0) * Scale}),
	}
}

func bridgeBlock(blk Block) []scene.Primitive {
	x, y, z := float64(blk.X), float64(blk.Y), float64(blk.Z)
	return append(pillar(blk, scene.MaterialBase),
		boxAt(blockKey(blk, "deck"), scene.MaterialBridge, Scale, Scale, 0.01,
			mgl64.Vec3{x * Scale, y * Scale, z*Scale + 0.005}))
}

func stairsBlock(blk Block) []scene.Primitive {
	prims := pillar(blk, scene.MaterialStairs)
	x, y, z := float64(blk.X), float64(blk.Y), float64(blk.Z)

	for i := 0; i < 10; i++ {
		fi := float64(i)
		var sw, sd, sh, cx, cy, cz float64
		switch blk.Direction {
		case NW:
			sw, sd, sh = 10, 1, 1+fi
			cx, cy, cz = 0, 4.5-fi, -9.5+0.5*fi
		case NE:
			sw, sd, sh = 1, 10, 1+fi
			cx, cy, cz = 4.5-fi, 0, -9.5+0.5*fi
		case SE:
			sw, sd, sh = 10, 1, 10-fi
			cx, cy, cz = 0, 4.5-fi, -5.0-0.5*fi
		case SW:
			sw, sd, sh = 1, 10, 10-fi
			cx, cy, cz = 4.5-fi, 0, -5.0-0.5*fi
		default:
			log.Printf("[World] Stairs at %d,%d,%d have no direction %q, drawing the column only", blk.X, blk.Y, blk.Z, blk.Direction)
			return prims
		}
		prims = append(prims, boxAt(blockKey(blk, fmt.Sprintf("step%d", i)), scene.MaterialStairs,
			sw*0.01, sd*0.01, sh*0.01,
			mgl64.Vec3{(x + cx*0.1) * Scale, (y + cy*0.1) * Scale, (z + cz*0.1) * Scale}))
	}
	return prims
}

// railingHeight is the post height offset, in tenths of a tile, at edge offset (xd, yd).
func railingHeight(r Railing, xd, yd float64) float64 {
	switch r.BlockType {
	case BlockBase:
		return 0.2
	case BlockBridge:
		return 1.2
	case BlockStairs:
		var along float64
		var rising, low, high Direction
		switch r.BlockDirection {
		case NW:
			along, rising, low, high = -yd, NE, NW, SE
		case NE:
			along, rising, low, high = -xd, NW, NE, SW
		case SE:
			along, rising, low, high = yd, NE, SE, NW
		case SW:
			along, rising, low, high = xd, NW, SW, NE
		default:
			return 0
		}
		switch r.Direction {
		case rising, opposite(rising):
			return along - 4.3
		case low:
			return -4 - 4.3
		case high:
			return 4 - 4.3
		}
	}
	return 0
}

func opposite(d Direction) Direction {
	switch d {
	case NW:
		return SE
	case SE:
		return NW
	case NE:
		return SW
	case SW:
		return NE
	}
	return d
}

func railingPosts(index int, r Railing) []scene.Primitive {
	coords := []float64{-4, -2, 0, 2, 4}
	if r.BlockType == BlockStairs {
		coords = []float64{-4.5, -3.5, -2.5, -1.5, -0.5, 0.5, 1.5, 2.5, 3.5, 4.5}
	}

	prims := make([]scene.Primitive, 0, len(coords))
	for i, c := range coords {
		var xd, yd float64
		switch r.Direction {
		case SE:
			xd, yd = c, -4
		case SW:
			xd, yd = -4, c
		case NW:
			xd, yd = c, 4
		case NE:
			xd, yd = 4, c
		default:
			return nil
		}
		zd := railingHeight(r, xd, yd)
		prims = append(prims, boxAt(
			fmt.Sprintf("railing:%d:%d,%d,%d:%s:%d", index, r.X, r.Y, r.Z, r.Direction, i),
			scene.MaterialRailing, 0.3*0.01, 0.3*0.01, 0.5*0.01,
			mgl64.Vec3{
				(float64(r.X) + xd*0.1) * Scale,
				(float64(r.Y) + yd*0.1) * Scale,
				(float64(r.Z) + zd*0.1) * Scale,
			}))
	}
	return prims
}

func onStairs(blocks []Block, p Tile) bool {
	for _, b := range blocks {
		if b.X == p.X && b.Y == p.Y && b.Type == BlockStairs {
			return true
		}
	}
	return false
}

func goalCubes(g Tile, reached bool) []scene.Primitive {
	lift := 1.0
	if reached {
		lift = 10.5
	}
	z := float64(g.Z)*Scale + lift*0.01

	prims := make([]scene.Primitive, 0, 3)
	for i, deg := range []float64{0, 30, 60} {
		prims = append(prims, scene.Primitive{
			Key:      fmt.Sprintf("goal:%d", i),
			Shape:    scene.ShapeBox,
			Size:     mgl64.Vec3{0.016, 0.016, 0.016},
			Material: scene.MaterialGoal,
			Position: mgl64.Vec3{float64(g.X) * Scale, float64(g.Y) * Scale, z},
			Rotation: mgl64.Vec3{0, 0, deg * math.Pi / 180},
			Role:     scene.RoleDynamic,
			Slot:     goalSlot + i,
		})
	}
	return prims
}

func focusMarkers(f Tile) []scene.Primitive {
	prims := make([]scene.Primitive, 0, len(focusOffsets))
	for i, off := range focusOffsets {
		prims = append(prims, scene.Primitive{
			Key:      fmt.Sprintf("focus:%d", i),
			Shape:    scene.ShapeSphere,
			Radius:   0.01,
			Segments: 8,
			Material: scene.MaterialFocus,
			Position: mgl64.Vec3{
				(float64(f.X) + off[0]*0.1) * Scale,
				(float64(f.Y) + off[1]*0.1) * Scale,
				(float64(f.Z) + off[2]*0.1) * Scale,
			},
			Role: scene.RoleDynamic,
			Slot: focusSlot + i,
		})
	}
	return prims
}
