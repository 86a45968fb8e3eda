package scene

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// WirePrimitive is the serialized form of a Primitive, with kinds spelled as names.
type WirePrimitive struct {
	Key      string     `json:"key" yaml:"key"`
	Shape    string     `json:"shape" yaml:"shape"`
	Size     [3]float64 `json:"size,omitempty" yaml:"size,omitempty"`
	Radius   float64    `json:"radius,omitempty" yaml:"radius,omitempty"`
	Segments int        `json:"segments,omitempty" yaml:"segments,omitempty"`
	Material string     `json:"material" yaml:"material"`
	Position [3]float64 `json:"position" yaml:"position"`
	Rotation [3]float64 `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Role     string     `json:"role,omitempty" yaml:"role,omitempty"`
	Slot     int        `json:"slot,omitempty" yaml:"slot,omitempty"`
}

// WireCamera is the serialized form of a Camera. Zero fields fall back to DefaultCamera.
type WireCamera struct {
	Azimuth   float64     `json:"azimuth" yaml:"azimuth"`
	Elevation float64     `json:"elevation" yaml:"elevation"`
	Distance  float64     `json:"distance,omitempty" yaml:"distance,omitempty"`
	Focal     *[3]float64 `json:"focal,omitempty" yaml:"focal,omitempty"`
	ViewSize  float64     `json:"viewSize,omitempty" yaml:"view_size,omitempty"`
}

// WireLight is the serialized form of a Light. Color accepts "#rrggbb", "0xrrggbb" or a decimal.
type WireLight struct {
	Key       string     `json:"key" yaml:"key"`
	Position  [3]float64 `json:"position" yaml:"position"`
	Color     string     `json:"color" yaml:"color"`
	Intensity float64    `json:"intensity" yaml:"intensity"`
	Tracked   bool       `json:"tracked,omitempty" yaml:"tracked,omitempty"`
}

// WireDescriptor is the serialized form of a Descriptor.
type WireDescriptor struct {
	Primitives []WirePrimitive `json:"primitives" yaml:"primitives"`
	Camera     *WireCamera     `json:"camera,omitempty" yaml:"camera,omitempty"`
	Lights     []WireLight     `json:"lights,omitempty" yaml:"lights,omitempty"`
	Background string          `json:"background,omitempty" yaml:"background,omitempty"`
}

// DecodeJSON parses a JSON snapshot.
//
// Parameters:
//   - data: the encoded snapshot
//
// Returns:
//   - Descriptor: every primitive and light that passed the kind checks
//   - []*ValidationError: one entry per dropped primitive
//   - error: non-nil only if the document itself is malformed
func DecodeJSON(data []byte) (Descriptor, []*ValidationError, error) {
	var w WireDescriptor
	if err := json.Unmarshal(data, &w); err != nil {
		return Descriptor{}, nil, errors.Wrap(err, "decode json snapshot")
	}
	d, diags := w.Descriptor()
	return d, diags, nil
}

// DecodeYAML parses a YAML snapshot. See DecodeJSON.
func DecodeYAML(data []byte) (Descriptor, []*ValidationError, error) {
	var w WireDescriptor
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Descriptor{}, nil, errors.Wrap(err, "decode yaml snapshot")
	}
	d, diags := w.Descriptor()
	return d, diags, nil
}

// Descriptor converts the wire form into the typed form, checking every kind name.
//
// Returns:
//   - Descriptor: the converted snapshot without rejected primitives
//   - []*ValidationError: one entry per rejected primitive or light
func (w WireDescriptor) Descriptor() (Descriptor, []*ValidationError) {
	d := Descriptor{
		Primitives: make([]Primitive, 0, len(w.Primitives)),
		Camera:     DefaultCamera(),
		Background: DefaultBackground,
	}
	var diags []*ValidationError

	for i, wp := range w.Primitives {
		p, err := wp.Primitive()
		if err != nil {
			diags = append(diags, &ValidationError{Index: i, Key: wp.Key, Err: err})
			continue
		}
		d.Primitives = append(d.Primitives, p)
	}

	if w.Camera != nil {
		c := w.Camera
		d.Camera.Azimuth = c.Azimuth
		d.Camera.Elevation = c.Elevation
		if c.Distance > 0 {
			d.Camera.Distance = c.Distance
		}
		if c.Focal != nil {
			d.Camera.Focal = mgl64.Vec3(*c.Focal)
		}
		if c.ViewSize > 0 {
			d.Camera.ViewSize = c.ViewSize
		}
	}

	for i, wl := range w.Lights {
		color, err := ParseColor(wl.Color)
		if err != nil {
			diags = append(diags, &ValidationError{Index: i, Key: wl.Key, Err: errors.Wrap(err, "light")})
			continue
		}
		d.Lights = append(d.Lights, Light{
			Key:       wl.Key,
			Position:  mgl64.Vec3(wl.Position),
			Color:     color,
			Intensity: wl.Intensity,
			Tracked:   wl.Tracked,
		})
	}

	if w.Background != "" {
		if bg, err := ParseColor(w.Background); err == nil {
			d.Background = bg
		} else {
			diags = append(diags, &ValidationError{Index: -1, Key: "background", Err: err})
		}
	}
	return d, diags
}

// Primitive converts one wire primitive, rejecting names outside the closed kind sets.
func (wp WirePrimitive) Primitive() (Primitive, error) {
	shape, err := ParseShapeKind(wp.Shape)
	if err != nil {
		return Primitive{}, err
	}
	mat, err := ParseMaterialKind(wp.Material)
	if err != nil {
		return Primitive{}, err
	}
	role, err := ParseRole(wp.Role)
	if err != nil {
		return Primitive{}, err
	}
	return Primitive{
		Key:      wp.Key,
		Shape:    shape,
		Size:     mgl64.Vec3(wp.Size),
		Radius:   wp.Radius,
		Segments: wp.Segments,
		Material: mat,
		Position: mgl64.Vec3(wp.Position),
		Rotation: mgl64.Vec3(wp.Rotation),
		Role:     role,
		Slot:     wp.Slot,
	}, nil
}

// Wire converts a typed descriptor back into its serialized form.
func (d Descriptor) Wire() WireDescriptor {
	w := WireDescriptor{
		Primitives: make([]WirePrimitive, 0, len(d.Primitives)),
		Background: FormatColor(d.Background),
	}
	for _, p := range d.Primitives {
		w.Primitives = append(w.Primitives, WirePrimitive{
			Key:      p.Key,
			Shape:    p.Shape.String(),
			Size:     p.Size,
			Radius:   p.Radius,
			Segments: p.Segments,
			Material: p.Material.String(),
			Position: p.Position,
			Rotation: p.Rotation,
			Role:     p.Role.String(),
			Slot:     p.Slot,
		})
	}
	focal := [3]float64(d.Camera.Focal)
	w.Camera = &WireCamera{
		Azimuth:   d.Camera.Azimuth,
		Elevation: d.Camera.Elevation,
		Distance:  d.Camera.Distance,
		Focal:     &focal,
		ViewSize:  d.Camera.ViewSize,
	}
	for _, l := range d.Lights {
		w.Lights = append(w.Lights, WireLight{
			Key:       l.Key,
			Position:  l.Position,
			Color:     FormatColor(l.Color),
			Intensity: l.Intensity,
			Tracked:   l.Tracked,
		})
	}
	return w
}

// DefaultBackground is the clear color used when a snapshot does not set one.
const DefaultBackground uint32 = 0xaaddee

// ParseColor reads a 24-bit color written as "#rrggbb", "0xrrggbb" or a decimal integer.
func ParseColor(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	switch {
	case strings.HasPrefix(s, "#"):
		s, base = s[1:], 16
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "parse color %q", s)
	}
	if v > 0xffffff {
		return 0, errors.Errorf("color %#x out of range", v)
	}
	return uint32(v), nil
}

// FormatColor writes a 24-bit color as "#rrggbb".
func FormatColor(c uint32) string {
	s := strconv.FormatUint(uint64(c&0xffffff), 16)
	return "#" + strings.Repeat("0", 6-len(s)) + s
}
