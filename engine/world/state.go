package world

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BlockType names the kind of a puzzle block.
type BlockType string

const (
	BlockBase   BlockType = "base"
	BlockBridge BlockType = "bridge"
	BlockStairs BlockType = "stairs"
)

// Direction is a diagonal compass heading used by stairs and railings.
type Direction string

const (
	NW Direction = "NW"
	NE Direction = "NE"
	SE Direction = "SE"
	SW Direction = "SW"
)

// Mode is the puzzle's interaction mode.
type Mode string

const (
	ModePlaying Mode = "playing"
	ModeEditing Mode = "editing"
)

// Tile is a grid position.
type Tile struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// Block is one column of the puzzle board.
type Block struct {
	X         int       `json:"x" yaml:"x"`
	Y         int       `json:"y" yaml:"y"`
	Z         int       `json:"z" yaml:"z"`
	Type      BlockType `json:"type" yaml:"type"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Tile returns the block's grid position.
func (b Block) Tile() Tile {
	return Tile{X: b.X, Y: b.Y, Z: b.Z}
}

// Railing is a guard rail along one edge of a block.
type Railing struct {
	X              int       `json:"x" yaml:"x"`
	Y              int       `json:"y" yaml:"y"`
	Z              int       `json:"z" yaml:"z"`
	Direction      Direction `json:"direction" yaml:"direction"`
	BlockType      BlockType `json:"blockType" yaml:"block_type"`
	BlockDirection Direction `json:"blockDirection,omitempty" yaml:"block_direction,omitempty"`
}

// CameraState is the orbit the producer asks for, in degrees.
type CameraState struct {
	Azimuth   float64 `json:"azimuth" yaml:"azimuth"`
	Elevation float64 `json:"elevation" yaml:"elevation"`
}

// State is the puzzle state published by the game logic on every step.
type State struct {
	Blocks   []Block     `json:"blocks" yaml:"blocks"`
	Railings []Railing   `json:"railings,omitempty" yaml:"railings,omitempty"`
	Player   Tile        `json:"player" yaml:"player"`
	Goal     Tile        `json:"goal" yaml:"goal"`
	Focus    Tile        `json:"focus" yaml:"focus"`
	Mode     Mode        `json:"mode" yaml:"mode"`
	Camera   CameraState `json:"camera" yaml:"camera"`
}

// DecodeStateJSON parses a JSON puzzle state.
//
// Parameters:
//   - data: the encoded state
//
// Returns:
//   - State: the decoded state with normalized names
//   - error: error if the document is malformed
func DecodeStateJSON(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, errors.Wrap(err, "decode json state")
	}
	return s.normalized(), nil
}

// DecodeStateYAML parses a YAML puzzle state. See DecodeStateJSON.
func DecodeStateYAML(data []byte) (State, error) {
	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return State{}, errors.Wrap(err, "decode yaml state")
	}
	return s.normalized(), nil
}

// normalized folds kind names to their canonical case.
func (s State) normalized() State {
	blocks := make([]Block, len(s.Blocks))
	for i, b := range s.Blocks {
		b.Type = BlockType(strings.ToLower(string(b.Type)))
		b.Direction = Direction(strings.ToUpper(string(b.Direction)))
		blocks[i] = b
	}
	railings := make([]Railing, len(s.Railings))
	for i, r := range s.Railings {
		r.BlockType = BlockType(strings.ToLower(string(r.BlockType)))
		r.Direction = Direction(strings.ToUpper(string(r.Direction)))
		r.BlockDirection = Direction(strings.ToUpper(string(r.BlockDirection)))
		railings[i] = r
	}
	s.Blocks = blocks
	s.Railings = railings
	s.Mode = Mode(strings.ToLower(string(s.Mode)))
	return s
}
