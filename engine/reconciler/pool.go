package reconciler

import (
	"sort"

	"github.com/Carmen-Shannon/tilescape/engine/cache"
	"github.com/Carmen-Shannon/tilescape/engine/game_object"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// Entry is one live render object and the descriptor fields it was last reconciled from.
type Entry struct {
	Key      Key                     `json:"key"`
	Label    string                  `json:"label"`
	Role     scene.Role              `json:"role"`
	Slot     int                     `json:"slot"`
	Geometry cache.GeometrySignature `json:"-"`
	Material scene.MaterialKind      `json:"material"`
	Position mgl64.Vec3              `json:"position"`
	Rotation mgl64.Vec3              `json:"rotation"`
	Object   game_object.GameObject  `json:"-"`
}

// Pool holds exactly one live entry per key.
type Pool struct {
	entries map[Key]*Entry
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{entries: make(map[Key]*Entry)}
}

// Len returns the number of live entries.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Get returns a copy of the entry stored under key.
//
// Parameters:
//   - key: the pool key
//
// Returns:
//   - Entry: the entry copy
//   - bool: true if the key is live
func (p *Pool) Get(key Key) (Entry, bool) {
	e, ok := p.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Keys returns every live key in sorted order.
func (p *Pool) Keys() []Key {
	keys := make([]Key, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Entries returns copies of every live entry sorted by key.
func (p *Pool) Entries() []Entry {
	out := make([]Entry, 0, len(p.entries))
	for _, k := range p.Keys() {
		out = append(out, *p.entries[k])
	}
	return out
}

func (p *Pool) put(e *Entry) {
	p.entries[e.Key] = e
}

func (p *Pool) take(key Key) *Entry {
	e := p.entries[key]
	delete(p.entries, key)
	return e
}
