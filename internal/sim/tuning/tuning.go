package tuning

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"redstonemusic.ai/internal/sim/catalogs"
)

type Tuning struct {
	Projection Projection `yaml:"projection" json:"projection"`
	Optimize   Optimize   `yaml:"optimize" json:"optimize"`
	Server     Server     `yaml:"server" json:"server"`
}

// Projection controls layout, building and serialization of one artifact.
type Projection struct {
	Height    int `yaml:"height" json:"height"`
	MaxWidth  int `yaml:"max_width" json:"max_width"`
	MaxLength int `yaml:"max_length" json:"max_length"`

	BaseBlock           string `yaml:"base_block" json:"base_block"`
	Decorate            bool   `yaml:"decorate" json:"decorate"`
	IncludeTileEntities bool   `yaml:"include_tile_entities" json:"include_tile_entities"`
	TrackBaseY          int    `yaml:"track_base_y" json:"track_base_y"`

	Author      string `yaml:"author" json:"author"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Format      string `yaml:"format" json:"format"`

	MaxListedBlocks       int `yaml:"max_listed_blocks" json:"max_listed_blocks"`
	MaxListedTileEntities int `yaml:"max_listed_tile_entities" json:"max_listed_tile_entities"`

	AutoScale bool `yaml:"auto_scale" json:"auto_scale"`
}

// Optimize configures the note thinning pre-pass.
type Optimize struct {
	Enabled         bool `yaml:"enabled" json:"enabled"`
	MinNoteInterval int  `yaml:"min_note_interval" json:"min_note_interval"`
	MaxTicks        int  `yaml:"max_ticks" json:"max_ticks"`
}

type Server struct {
	Addr       string `yaml:"addr" json:"addr"`
	OutDir     string `yaml:"out_dir" json:"out_dir"`
	DBPath     string `yaml:"db_path" json:"db_path"`
	JournalDir string `yaml:"journal_dir" json:"journal_dir"`
	MaxNotes   int    `yaml:"max_notes" json:"max_notes"`
}

const (
	longPieceTicks   = 300 * 20
	mediumPieceTicks = 180 * 20
)

func Defaults() Tuning {
	return Tuning{
		Projection: DefaultProjection(),
		Optimize: Optimize{
			Enabled:         false,
			MinNoteInterval: 2,
		},
		Server: Server{
			Addr:       ":8080",
			OutDir:     "data/projections",
			DBPath:     "data/index/generations.sqlite",
			JournalDir: "data/journal",
			MaxNotes:   20000,
		},
	}
}

func DefaultProjection() Projection {
	return Projection{
		Height:                8,
		MaxWidth:              256,
		MaxLength:             256,
		BaseBlock:             "stone",
		Decorate:              true,
		IncludeTileEntities:   true,
		TrackBaseY:            2,
		Author:                "RedstoneMusicGenerator",
		Format:                "litematic",
		MaxListedBlocks:       65536,
		MaxListedTileEntities: 4096,
	}
}

// Load reads a YAML file over Defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadOrDefault is Load for an optional path.
func LoadOrDefault(path string) (Tuning, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), nil
	}
	return Load(path)
}

func (t Tuning) Validate() error {
	if err := t.Projection.Validate(); err != nil {
		return err
	}
	if t.Optimize.MinNoteInterval < 0 || t.Optimize.MaxTicks < 0 {
		return fmt.Errorf("optimize: negative interval or max_ticks")
	}
	if t.Server.MaxNotes < 0 {
		return fmt.Errorf("server.max_notes must be >= 0")
	}
	return nil
}

// MaxDimension bounds every projection axis; Schematic headers store sizes as
// 16-bit shorts.
const MaxDimension = 32767

func (p Projection) Validate() error {
	switch {
	case p.Height <= 0:
		return fmt.Errorf("projection.height must be > 0, got %d", p.Height)
	case p.MaxWidth <= 0 || p.MaxLength <= 0:
		return fmt.Errorf("projection maxima must be > 0, got %dx%d", p.MaxWidth, p.MaxLength)
	case p.Height > MaxDimension || p.MaxWidth > MaxDimension || p.MaxLength > MaxDimension:
		return fmt.Errorf("projection height and maxima must be <= %d, got height %d maxima %dx%d",
			MaxDimension, p.Height, p.MaxWidth, p.MaxLength)
	case p.TrackBaseY < 0:
		return fmt.Errorf("projection.track_base_y must be >= 0, got %d", p.TrackBaseY)
	case p.MaxListedBlocks < 0 || p.MaxListedTileEntities < 0:
		return fmt.Errorf("projection listing caps must be >= 0")
	}
	if _, ok := catalogs.Lookup(p.BaseBlock); !ok {
		return fmt.Errorf("projection.base_block %q is not in the palette", p.BaseBlock)
	}
	return nil
}

// BaseBlockIndex resolves BaseBlock, falling back to stone.
func (p Projection) BaseBlockIndex() uint16 {
	if idx, ok := catalogs.Lookup(p.BaseBlock); ok {
		return idx
	}
	return catalogs.Stone
}

// Overlay decodes a JSON object over p. Absent keys keep p's values.
func (p Projection) Overlay(raw []byte) (Projection, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return p, nil
	}
	out := p
	if err := json.Unmarshal(raw, &out); err != nil {
		return p, fmt.Errorf("projection config: %w", err)
	}
	if err := out.Validate(); err != nil {
		return p, err
	}
	return out, nil
}

// Scaled grows the volume for long pieces. spanTicks is the distance between
// the first and last note. It is a no-op unless AutoScale is set.
func (p Projection) Scaled(spanTicks int) Projection {
	if !p.AutoScale {
		return p
	}
	switch {
	case spanTicks > longPieceTicks:
		p.Height = max(p.Height, 10)
		p.MaxWidth = max(p.MaxWidth, 384)
		p.MaxLength = max(p.MaxLength, 384)
	case spanTicks > mediumPieceTicks:
		p.Height = max(p.Height, 9)
		p.MaxWidth = max(p.MaxWidth, 320)
		p.MaxLength = max(p.MaxLength, 320)
	}
	return p
}
