package feed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/tilescape/engine/world"
)

const descriptorJSON = `{
	"primitives": [
		{"key": "a", "shape": "box", "size": [1, 1, 1], "material": "base", "position": [0, 0, 0]},
		{"key": "b", "shape": "sphere", "radius": 0.5, "material": "lava", "position": [1, 0, 0]}
	],
	"background": "#101010"
}`

const descriptorYAML = `primitives:
  - {key: a, shape: box, size: [1, 1, 1], material: base, position: [0, 0, 0]}
`

const stateYAML = `blocks:
  - {x: 0, y: 0, z: 0, type: base}
player: {x: 0, y: 0, z: 0}
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadKeepsOrder verifies parallel decoding returns snapshots in input order.
func TestLoadKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 20; i++ {
		body := descriptorYAML
		if i%2 == 1 {
			body = stateYAML
		}
		paths = append(paths, writeFile(t, dir, fmt.Sprintf("%02d.yaml", i), body))
	}

	f := NewFeed(WithWorkers(3), WithQueue(4))
	defer f.Close()
	snaps := f.Load(paths)

	if len(snaps) != len(paths) {
		t.Fatalf("Expected %d snapshots, got %d", len(paths), len(snaps))
	}
	for i, s := range snaps {
		if s.Err != nil {
			t.Fatalf("Expected no error for %s, got %v", s.Path, s.Err)
		}
		if s.Index != i || s.Path != paths[i] {
			t.Errorf("Expected snapshot %d for %s, got %d for %s", i, paths[i], s.Index, s.Path)
		}
		want := KindDescriptor
		if i%2 == 1 {
			want = KindState
		}
		if s.Kind != want {
			t.Errorf("Expected %s at %d, got %s", want, i, s.Kind)
		}
	}
}

// TestLoadDecodesKinds verifies descriptors keep their diagnostics and states are expanded.
func TestLoadDecodesKinds(t *testing.T) {
	dir := t.TempDir()
	desc := writeFile(t, dir, "desc.json", descriptorJSON)
	state := writeFile(t, dir, "state.yml", stateYAML)
	broken := writeFile(t, dir, "broken.json", "{")
	other := writeFile(t, dir, "other.json", `{"hello": 1}`)
	missing := filepath.Join(dir, "missing.json")

	f := NewFeed(WithBuilder(world.NewBuilder(world.WithFillLights(nil))))
	defer f.Close()
	snaps := f.Load([]string{desc, state, broken, other, missing})

	if snaps[0].Err != nil || len(snaps[0].Descriptor.Primitives) != 1 || len(snaps[0].Diagnostics) != 1 {
		t.Errorf("Expected one primitive and one dropped, got %v", snaps[0])
	}
	if snaps[0].Descriptor.Background != 0x101010 {
		t.Errorf("Expected background 0x101010, got %#x", snaps[0].Descriptor.Background)
	}

	if snaps[1].Err != nil || snaps[1].State == nil {
		t.Fatalf("Expected a decoded state, got %v", snaps[1])
	}
	if len(snaps[1].Descriptor.Primitives) == 0 || len(snaps[1].Descriptor.Lights) != 1 {
		t.Errorf("Expected the state expanded with only the player light, got %d primitives %d lights",
			len(snaps[1].Descriptor.Primitives), len(snaps[1].Descriptor.Lights))
	}

	for _, s := range snaps[2:] {
		if s.Err == nil {
			t.Errorf("Expected an error for %s", s.Path)
		}
	}
}

// TestPlay verifies delivery order, skipped failures and the interval.
func TestPlay(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "1.yaml", descriptorYAML),
		writeFile(t, dir, "2.json", "not json"),
		writeFile(t, dir, "3.yaml", stateYAML),
	}

	f := NewFeed(WithInterval(20 * time.Millisecond))
	defer f.Close()

	var got []string
	start := time.Now()
	n, err := f.Play(context.Background(), paths, func(s Snapshot) {
		got = append(got, filepath.Base(s.Path))
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n != 2 || len(got) != 2 || got[0] != "1.yaml" || got[1] != "3.yaml" {
		t.Errorf("Expected 1.yaml then 3.yaml, got %v", got)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Expected at least one interval between deliveries, got %v", elapsed)
	}
}

// TestPlayCancel verifies a cancelled context stops playback between deliveries.
func TestPlayCancel(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "1.yaml", descriptorYAML),
		writeFile(t, dir, "2.yaml", descriptorYAML),
	}

	f := NewFeed(WithInterval(time.Hour))
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	n, err := f.Play(ctx, paths, func(Snapshot) { cancel() })
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 delivery, got %d", n)
	}
}

// TestSniff verifies the kind detection for both encodings.
func TestSniff(t *testing.T) {
	testCases := []struct {
		name   string
		data   string
		format Format
		want   Kind
		err    bool
	}{
		{"json descriptor", `{"primitives": []}`, FormatJSON, KindDescriptor, false},
		{"json state", "{\n\t\"blocks\": []\n}", FormatJSON, KindState, false},
		{"yaml descriptor", "primitives: []\n", FormatYAML, KindDescriptor, false},
		{"yaml state", "blocks: []\n", FormatYAML, KindState, false},
		{"neither", `{"x": 1}`, FormatJSON, KindUnknown, true},
		{"malformed", "[", FormatYAML, KindUnknown, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Sniff([]byte(tc.data), tc.format)
			if (err != nil) != tc.err {
				t.Fatalf("Expected error %v, got %v", tc.err, err)
			}
			if got != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}

// TestExpand verifies directories and globs resolve to sorted snapshot files.
func TestExpand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", descriptorYAML)
	writeFile(t, dir, "a.json", descriptorJSON)
	writeFile(t, dir, "notes.txt", "skip me")

	paths, err := Expand([]string{dir})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "a.json" || filepath.Base(paths[1]) != "b.yaml" {
		t.Errorf("Expected a.json and b.yaml, got %v", paths)
	}

	paths, err = Expand([]string{filepath.Join(dir, "*.yaml")})
	if err != nil || len(paths) != 1 {
		t.Errorf("Expected one glob match, got %v %v", paths, err)
	}

	if _, err := Expand([]string{filepath.Join(dir, "*.gltf")}); err == nil {
		t.Error("Expected an error for an empty match")
	}
}
