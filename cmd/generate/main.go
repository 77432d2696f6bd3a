package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"redstonemusic.ai/internal/noteio"
	"redstonemusic.ai/internal/persistence/format"
	persistlog "redstonemusic.ai/internal/persistence/log"
	"redstonemusic.ai/internal/sim/engine"
	"redstonemusic.ai/internal/sim/notes"
	"redstonemusic.ai/internal/sim/tuning"
)

func main() {
	var (
		notesPath  = flag.String("notes", "", "notes JSON document")
		midiPath   = flag.String("midi", "", "standard MIDI file (alternative to -notes)")
		formatName = flag.String("format", "", "output format: litematic|schematic|structure|json (default: projection.format)")
		outPath    = flag.String("out", "", "output file (default: <out dir>/<id><ext>)")
		configPath = flag.String("config", "", "path to generator.yaml (optional)")
		also       = flag.String("also", "", "comma separated extra formats written from the same notes")
		name       = flag.String("name", "", "projection name (overrides config)")
		optimize   = flag.Bool("optimize", false, "thin notes before layout")
		journalDir = flag.String("journal", "", "append results to a generation journal in this dir")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[generate] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *name != "" {
		tune.Projection.Name = *name
	}
	if *optimize {
		tune.Optimize.Enabled = true
	}

	ns, err := readNotes(*notesPath, *midiPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	formats, err := parseFormats(*formatName, *also, tune.Projection.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	opts := []engine.Option{engine.WithOutDir(tune.Server.OutDir)}
	if *journalDir != "" {
		j := persistlog.NewJournal(*journalDir)
		defer j.Close()
		opts = append(opts, engine.WithRecorder(j))
	}
	e := engine.New(logger, opts...)

	var results []engine.Result
	failed := false
	for _, f := range formats {
		req := engine.Request{
			Notes:      ns,
			Format:     f,
			OutPath:    outPathFor(*outPath, f),
			Projection: tune.Projection,
			Optimize:   tune.Optimize,
		}
		if err := req.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		res := e.Generate(req)
		if !res.Success {
			failed = true
		}
		results = append(results, res)
	}

	fmt.Println(renderSummary(results))
	if failed {
		os.Exit(1)
	}
}

func readNotes(notesPath, midiPath string) ([]notes.PlacedNote, error) {
	switch {
	case notesPath != "" && midiPath != "":
		return nil, fmt.Errorf("use only one of -notes and -midi")
	case notesPath != "":
		return noteio.ReadJSONFile(notesPath)
	case midiPath != "":
		return noteio.ReadMIDI(midiPath)
	default:
		return nil, fmt.Errorf("missing -notes or -midi")
	}
}

// parseFormats returns the primary format followed by any extras, without
// duplicates.
func parseFormats(primary, also, fallback string) ([]format.Format, error) {
	if strings.TrimSpace(primary) == "" {
		primary = fallback
	}
	names := []string{primary}
	for _, s := range strings.Split(also, ",") {
		if s = strings.TrimSpace(s); s != "" {
			names = append(names, s)
		}
	}
	seen := map[format.Format]bool{}
	var out []format.Format
	for _, n := range names {
		f, err := format.ParseFormat(n)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// outPathFor swaps the extension of an explicit -out path to match f.
func outPathFor(out string, f format.Format) string {
	if out == "" {
		return ""
	}
	return strings.TrimSuffix(out, filepath.Ext(out)) + f.Ext()
}
