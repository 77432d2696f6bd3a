package engine

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"redstonemusic.ai/internal/persistence/format"
	"redstonemusic.ai/internal/sim/catalogs"
	"redstonemusic.ai/internal/sim/circuit"
	"redstonemusic.ai/internal/sim/grid"
	"redstonemusic.ai/internal/sim/layout"
	"redstonemusic.ai/internal/sim/notes"
	"redstonemusic.ai/internal/sim/tuning"
)

const TicksPerSecond = 20

type Stage string

const (
	StageLayout    Stage = "layout"
	StageBuild     Stage = "build"
	StageSerialize Stage = "serialize"
	StageVerify    Stage = "verify"
	StageDone      Stage = "done"
)

type Request struct {
	Notes  []notes.PlacedNote
	Format format.Format

	// OutPath defaults to <out dir>/<id><ext>.
	OutPath string

	Projection tuning.Projection
	Optimize   tuning.Optimize

	Progress func(stage Stage, percent int)
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Length int `json:"length"`
}

// Result is the record of one generation call, successful or not.
type Result struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Dimensions Dimensions `json:"dimensions"`

	NoteBlocksCount    int     `json:"note_blocks_count"`
	EstimatedRedstone  int     `json:"estimated_redstone"`
	EstimatedRepeaters int     `json:"estimated_repeaters"`
	TotalTimeSpan      int     `json:"total_time_span"`
	DurationSeconds    float64 `json:"duration_seconds"`
	Rows               int     `json:"rows"`
	NotesPerRow        int     `json:"notes_per_row"`

	Format        string `json:"format"`
	FilePath      string `json:"file_path"`
	Success       bool   `json:"success"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	Strategy      string `json:"strategy,omitempty"`
	PaletteDigest string `json:"palette_digest,omitempty"`
	Reflowed      bool   `json:"reflowed,omitempty"`
	CreatedAt     string `json:"created_at"`
	Error         string `json:"error,omitempty"`
}

// Recorder is told about every Result Generate returns.
type Recorder interface {
	RecordGeneration(Result) error
}

type Engine struct {
	logger     *log.Logger
	serializer *format.Serializer
	recorders  []Recorder
	outDir     string
	now        func() time.Time
	newID      func() string
}

type Option func(*Engine)

func WithSerializer(s *format.Serializer) Option { return func(e *Engine) { e.serializer = s } }
func WithRecorder(r Recorder) Option             { return func(e *Engine) { e.recorders = append(e.recorders, r) } }
func WithOutDir(dir string) Option               { return func(e *Engine) { e.outDir = dir } }
func WithClock(now func() time.Time) Option      { return func(e *Engine) { e.now = now } }
func WithIDs(newID func() string) Option         { return func(e *Engine) { e.newID = newID } }

func New(logger *log.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	e := &Engine{
		logger: logger,
		outDir: ".",
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	if e.serializer == nil {
		e.serializer = format.NewSerializer(logger)
	}
	return e
}

// Generate runs layout, build, serialize and verify for one note sequence.
// It never panics on bad input; failures come back as Success=false with the
// error text.
func (e *Engine) Generate(req Request) Result {
	res := e.generate(req)
	for _, r := range e.recorders {
		if err := r.RecordGeneration(res); err != nil {
			e.logger.Printf("generation %s: recorder: %v", res.ID, err)
		}
	}
	return res
}

func (e *Engine) generate(req Request) Result {
	id := e.newID()
	created := e.now().UTC()
	progress := req.Progress
	if progress == nil {
		progress = func(Stage, int) {}
	}

	ns := req.Notes
	if req.Optimize.Enabled && len(ns) > 0 {
		before := len(ns)
		ns = notes.Optimize(ns, req.Optimize.MinNoteInterval, req.Optimize.MaxTicks)
		e.logger.Printf("generation %s: optimize kept %d/%d notes", id, len(ns), before)
	}
	if len(ns) == 0 {
		return errorResult(id, created, layout.ErrEmptyInput)
	}

	proj := req.Projection
	if first, last, ok := notes.Span(ns); ok {
		proj = proj.Scaled(last - first)
	}

	l, err := layout.Plan(ns, layout.Config{Height: proj.Height, MaxWidth: proj.MaxWidth, MaxLength: proj.MaxLength})
	if err != nil {
		return errorResult(id, created, err)
	}
	if l.Reflowed {
		e.logger.Printf("generation %s: length saturated at %d, reflowed %d rows across width %d", id, l.Length, l.Rows, l.Width)
	}
	progress(StageLayout, 20)

	g, st, err := circuit.Build(ns, l, circuit.Options{
		BaseBlock:  proj.BaseBlockIndex(),
		Decorate:   proj.Decorate,
		TrackBaseY: proj.TrackBaseY,
	})
	if err != nil {
		return errorResult(id, created, err)
	}
	if st.Skipped > 0 {
		e.logger.Printf("generation %s: %d notes skipped (outside the volume or sharing a voxel)", id, st.Skipped)
	}
	progress(StageBuild, 50)

	name := proj.Name
	if name == "" {
		name = "RedstoneMusic_" + id[:min(8, len(id))]
	}
	path := req.OutPath
	if path == "" {
		path = filepath.Join(e.outDir, id+req.Format.Ext())
	}

	res := Result{
		ID:                 id,
		Name:               name,
		Dimensions:         Dimensions{Width: l.Width, Height: l.Height, Length: l.Length},
		NoteBlocksCount:    emitters(g),
		EstimatedRedstone:  l.EstimatedRedstone,
		EstimatedRepeaters: l.EstimatedRepeaters,
		TotalTimeSpan:      l.TotalTicks,
		DurationSeconds:    float64(l.TotalTicks) / TicksPerSecond,
		Rows:               l.Rows,
		NotesPerRow:        l.NotesPerRow,
		Format:             req.Format.String(),
		FilePath:           path,
		PaletteDigest:      catalogs.Digest(),
		Reflowed:           l.Reflowed,
		CreatedAt:          created.Format(time.RFC3339),
	}

	doc := &format.Document{
		Grid:    g,
		Palette: catalogs.Palette(),
		Meta: format.Meta{
			Author:      proj.Author,
			Name:        name,
			Description: proj.Description,
			Timestamp:   created,
		},
		IncludeTileEntities:   proj.IncludeTileEntities,
		MaxListedBlocks:       proj.MaxListedBlocks,
		MaxListedTileEntities: proj.MaxListedTileEntities,
	}
	wr, err := e.serializer.Write(path, req.Format, doc)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Strategy = wr.Strategy
	progress(StageSerialize, 80)

	size, err := format.Verify(path, req.Format)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	progress(StageVerify, 95)

	res.FileSizeBytes = size
	res.Success = true
	e.logger.Printf("generation %s: %s %dx%dx%d notes=%d rows=%d strategy=%s size=%s",
		id, req.Format, l.Width, l.Height, l.Length, res.NoteBlocksCount, l.Rows, wr.Strategy, humanize.Bytes(uint64(size)))
	progress(StageDone, 100)
	return res
}

func emitters(g *grid.Grid) int {
	n := 0
	for _, te := range g.TileEntities() {
		if g.Get(te.X, te.Y, te.Z) == catalogs.NoteBlock {
			n++
		}
	}
	return n
}

func errorResult(id string, created time.Time, err error) Result {
	msg := err.Error()
	if errors.Is(err, layout.ErrEmptyInput) {
		msg = "empty input"
	}
	return Result{
		ID:        id,
		Name:      "Error",
		Format:    "error",
		CreatedAt: created.Format(time.RFC3339),
		Error:     msg,
	}
}

// Validate reports whether a request can be generated at all. Generate does
// not call it; transports use it to reject requests before queuing.
func (r Request) Validate() error {
	if err := notes.Validate(r.Notes); err != nil {
		return err
	}
	if err := r.Projection.Validate(); err != nil {
		return err
	}
	if r.OutPath != "" && filepath.Ext(r.OutPath) != r.Format.Ext() {
		return fmt.Errorf("out path %q does not end in %s", r.OutPath, r.Format.Ext())
	}
	return nil
}
