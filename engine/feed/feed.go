// Package feed replays recorded snapshot files into the engine.
//
// Files are decoded in parallel on a worker pool and handed to the sink one at a
// time, in the order they were given, with a fixed interval between them. A file
// holds either a scene descriptor or a puzzle state; states are expanded into
// descriptors by a world.Builder before delivery.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/Carmen-Shannon/tilescape/engine/world"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Kind tells what a snapshot file contains.
type Kind int

const (
	KindUnknown Kind = iota
	KindDescriptor
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindDescriptor:
		return "descriptor"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Snapshot is one decoded file.
type Snapshot struct {
	Index       int
	Path        string
	Kind        Kind
	Descriptor  scene.Descriptor
	State       *world.State
	Diagnostics []*scene.ValidationError
	Err         error
}

type feed struct {
	mu       *sync.Mutex
	pool     worker.DynamicWorkerPool
	builder  world.Builder
	workers  int
	queue    int
	interval time.Duration
	stopped  bool
}

// Feed decodes snapshot files and plays them back.
type Feed interface {
	// Load decodes every path in parallel. A file that fails to decode yields a Snapshot with Err set.
	//
	// Parameters:
	//   - paths: the files to decode
	//
	// Returns:
	//   - []Snapshot: one entry per path, in the same order
	Load(paths []string) []Snapshot

	// Play loads paths and delivers each snapshot to sink, waiting the feed interval between them.
	// Snapshots that failed to decode are logged and skipped.
	//
	// Parameters:
	//   - ctx: cancels playback between deliveries
	//   - paths: the files to play
	//   - sink: receives each decoded snapshot
	//
	// Returns:
	//   - int: the number of snapshots delivered
	//   - error: ctx.Err() if playback was cancelled
	Play(ctx context.Context, paths []string, sink func(Snapshot)) (int, error)

	// Interval returns the pause between deliveries.
	Interval() time.Duration

	// Close stops the worker pool. Load and Play must not be called afterwards.
	Close()
}

var _ Feed = &feed{}

// NewFeed creates a Feed with its own worker pool.
//
// Parameters:
//   - options: functional options to configure the feed
//
// Returns:
//   - Feed: the new feed
func NewFeed(options ...FeedBuilderOption) Feed {
	f := &feed{
		mu:       &sync.Mutex{},
		workers:  DefaultWorkers,
		queue:    DefaultQueue,
		interval: DefaultInterval,
	}
	for _, opt := range options {
		opt(f)
	}
	if f.builder == nil {
		f.builder = world.NewBuilder()
	}
	f.pool = worker.NewDynamicWorkerPool(f.workers, f.queue, time.Second)
	return f
}

func (f *feed) Load(paths []string) []Snapshot {
	out := make([]Snapshot, len(paths))
	if len(paths) == 0 {
		return out
	}

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		idx, p := i, path
		f.pool.SubmitTask(worker.Task{
			ID:      idx,
			Payload: p,
			Do: func() (any, error) {
				defer wg.Done()
				out[idx] = f.decodeSafe(idx, p)
				return nil, out[idx].Err
			},
		})
	}
	wg.Wait()
	return out
}

func (f *feed) Play(ctx context.Context, paths []string, sink func(Snapshot)) (int, error) {
	snaps := f.Load(paths)
	delivered := 0
	for _, snap := range snaps {
		if snap.Err != nil {
			log.Printf("[Feed] Skipping %s: %v", snap.Path, snap.Err)
			continue
		}
		if delivered > 0 && f.interval > 0 {
			timer := time.NewTimer(f.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return delivered, ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return delivered, err
		}
		for _, d := range snap.Diagnostics {
			log.Printf("[Feed] %s: dropped %v", snap.Path, d)
		}
		sink(snap)
		delivered++
	}
	log.Printf("[Feed] Delivered %d of %d snapshots", delivered, len(snaps))
	return delivered, nil
}

func (f *feed) Interval() time.Duration {
	return f.interval
}

func (f *feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.stopped = true
	f.pool.Stop()
}

// decodeSafe turns a panic in a decoder into an error so the batch barrier is always released.
func (f *feed) decodeSafe(index int, path string) (snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			snap = Snapshot{Index: index, Path: path, Err: errors.Errorf("decode %s: %v", path, r)}
		}
	}()
	return f.decode(index, path)
}

func (f *feed) decode(index int, path string) Snapshot {
	snap := Snapshot{Index: index, Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		snap.Err = errors.Wrapf(err, "read snapshot %s", path)
		return snap
	}
	d, s, diags, kind, err := Decode(data, formatOf(path))
	if err != nil {
		snap.Err = errors.Wrapf(err, "snapshot %s", path)
		return snap
	}
	snap.Kind = kind
	snap.Diagnostics = diags
	if kind == KindState {
		snap.State = &s
		d = f.builder.Build(s)
	}
	snap.Descriptor = d
	return snap
}

// Format is the encoding of a snapshot file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Sniff reports whether a document is a descriptor or a puzzle state by its top-level keys.
//
// Parameters:
//   - data: the encoded document
//   - format: its encoding
//
// Returns:
//   - Kind: KindDescriptor if it has primitives, KindState if it has blocks
//   - error: error if the document is malformed or neither kind
func Sniff(data []byte, format Format) (Kind, error) {
	has := map[string]bool{}
	if format == FormatYAML {
		var top map[string]yaml.Node
		if err := yaml.Unmarshal(data, &top); err != nil {
			return KindUnknown, errors.Wrap(err, "sniff yaml snapshot")
		}
		for k := range top {
			has[k] = true
		}
	} else {
		var top map[string]json.RawMessage
		if err := json.Unmarshal(data, &top); err != nil {
			return KindUnknown, errors.Wrap(err, "sniff json snapshot")
		}
		for k := range top {
			has[k] = true
		}
	}
	switch {
	case has["primitives"]:
		return KindDescriptor, nil
	case has["blocks"]:
		return KindState, nil
	}
	return KindUnknown, errors.New("document has neither primitives nor blocks")
}

// Decode parses a snapshot document of either kind.
//
// Parameters:
//   - data: the encoded document
//   - format: its encoding
//
// Returns:
//   - scene.Descriptor: the descriptor, for KindDescriptor
//   - world.State: the state, for KindState
//   - []*scene.ValidationError: primitives dropped while decoding a descriptor
//   - Kind: which of the two was decoded
//   - error: error if the document is malformed
func Decode(data []byte, format Format) (scene.Descriptor, world.State, []*scene.ValidationError, Kind, error) {
	kind, err := Sniff(data, format)
	if err != nil {
		return scene.Descriptor{}, world.State{}, nil, KindUnknown, err
	}
	switch kind {
	case KindState:
		var s world.State
		if format == FormatYAML {
			s, err = world.DecodeStateYAML(data)
		} else {
			s, err = world.DecodeStateJSON(data)
		}
		return scene.Descriptor{}, s, nil, kind, err
	default:
		var (
			d     scene.Descriptor
			diags []*scene.ValidationError
		)
		if format == FormatYAML {
			d, diags, err = scene.DecodeYAML(data)
		} else {
			d, diags, err = scene.DecodeJSON(data)
		}
		return d, world.State{}, diags, kind, err
	}
}

// Expand resolves a mix of files and directories into snapshot paths.
// Directories contribute their .json, .yaml and .yml files sorted by name.
//
// Parameters:
//   - inputs: files, directories or glob patterns
//
// Returns:
//   - []string: the snapshot paths in playback order
//   - error: error if an input cannot be read or matches nothing
func Expand(inputs []string) ([]string, error) {
	var paths []string
	for _, in := range inputs {
		matches, err := filepath.Glob(in)
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", in)
		}
		if len(matches) == 0 {
			return nil, errors.Errorf("no snapshots match %q", in)
		}
		sort.Strings(matches)
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, errors.Wrapf(err, "stat %s", m)
			}
			if !info.IsDir() {
				paths = append(paths, m)
				continue
			}
			entries, err := os.ReadDir(m)
			if err != nil {
				return nil, errors.Wrapf(err, "read dir %s", m)
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				switch strings.ToLower(filepath.Ext(e.Name())) {
				case ".json", ".yaml", ".yml":
					paths = append(paths, filepath.Join(m, e.Name()))
				}
			}
		}
	}
	return paths, nil
}

func (s Snapshot) String() string {
	if s.Err != nil {
		return fmt.Sprintf("#%d %s: %v", s.Index, s.Path, s.Err)
	}
	return fmt.Sprintf("#%d %s: %s with %d primitives", s.Index, s.Path, s.Kind, len(s.Descriptor.Primitives))
}
