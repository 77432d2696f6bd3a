package main

import (
	"os"
	"path/filepath"
	"testing"

	"redstonemusic.ai/internal/persistence/format"
	"redstonemusic.ai/internal/sim/engine"
	"redstonemusic.ai/internal/sim/notes"
	"redstonemusic.ai/internal/sim/tuning"
)

func generate(t *testing.T, f format.Format) engine.Result {
	t.Helper()
	ns := make([]notes.PlacedNote, 12)
	for i := range ns {
		ns[i] = notes.PlacedNote{TimeTicks: i * 4, Pitch: i, Instrument: "bell", Power: 5}
	}
	res := engine.New(nil, engine.WithOutDir(t.TempDir())).Generate(engine.Request{
		Notes: ns, Format: f, Projection: tuning.DefaultProjection(),
	})
	if !res.Success {
		t.Fatalf("generate %s: %s", f, res.Error)
	}
	return res
}

func TestVerifyEntry(t *testing.T) {
	for _, f := range format.All {
		res := generate(t, f)
		if err := verifyEntry(res); err != nil {
			t.Fatalf("%s: verifyEntry: %v", f, err)
		}
	}
}

func TestVerifyEntry_DetectsDrift(t *testing.T) {
	res := generate(t, format.Litematic)

	wrongSize := res
	wrongSize.FileSizeBytes++
	if err := verifyEntry(wrongSize); err == nil {
		t.Fatalf("expected size mismatch")
	}

	wrongDims := res
	wrongDims.Dimensions.Width++
	if err := verifyEntry(wrongDims); err == nil {
		t.Fatalf("expected dimension mismatch")
	}

	if err := os.Remove(res.FilePath); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := verifyEntry(res); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestArtifactFormat(t *testing.T) {
	f, err := artifactFormat(filepath.Join("x", "song.nbt"), "")
	if err != nil || f != format.Structure {
		t.Fatalf("from extension: %v %v", f, err)
	}
	f, err = artifactFormat("song.bin", "schematic")
	if err != nil || f != format.Schematic {
		t.Fatalf("explicit: %v %v", f, err)
	}
	if _, err := artifactFormat("song.bin", ""); err == nil {
		t.Fatalf("expected unknown extension error")
	}
}
