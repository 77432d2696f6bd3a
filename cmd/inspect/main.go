package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"redstonemusic.ai/internal/persistence/format"
	persistlog "redstonemusic.ai/internal/persistence/log"
	"redstonemusic.ai/internal/sim/engine"
)

func main() {
	var (
		artifact   = flag.String("artifact", "", "path to a generated .litematic/.schematic/.nbt/.json")
		formatName = flag.String("format", "", "artifact format (default: from extension)")
		journalDir = flag.String("journal", "", "journal dir containing generations-*.jsonl.zst (optional)")
		asJSON     = flag.Bool("json", false, "print the artifact summary as JSON")
	)
	flag.Parse()

	if *artifact == "" && *journalDir == "" {
		fmt.Fprintln(os.Stderr, "missing -artifact or -journal")
		os.Exit(2)
	}

	if *artifact != "" {
		f, err := artifactFormat(*artifact, *formatName)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		sum, err := format.Inspect(*artifact, f)
		if err != nil {
			fmt.Fprintln(os.Stderr, "inspect:", err)
			os.Exit(1)
		}
		if *asJSON {
			_ = json.NewEncoder(os.Stdout).Encode(sum)
		} else {
			fmt.Printf("artifact %s format=%s decoded=%s size=%dx%dx%d palette=%d non_air=%d tile_entities=%d\n",
				*artifact, sum.FormatName, sum.Strategy, sum.Width, sum.Height, sum.Length,
				sum.PaletteSize, sum.NonAir, sum.TileEntities)
		}
	}

	if *journalDir == "" {
		return
	}

	files, err := persistlog.JournalFiles(*journalDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files found in", *journalDir)
		os.Exit(1)
	}

	var checked, failed, bad int
	var bytes int64
	for _, path := range files {
		entries, err := persistlog.ReadJournal(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read journal:", err)
			os.Exit(1)
		}
		for _, r := range entries {
			if !r.Success {
				failed++
				continue
			}
			checked++
			if err := verifyEntry(r); err != nil {
				bad++
				fmt.Printf("MISMATCH %s %s: %v\n", r.ID, r.FilePath, err)
				continue
			}
			bytes += r.FileSizeBytes
		}
	}
	fmt.Printf("journal: checked=%d failed_generations=%d mismatches=%d verified=%s\n",
		checked, failed, bad, humanize.Bytes(uint64(bytes)))
	if bad > 0 {
		os.Exit(1)
	}
}

func artifactFormat(path, name string) (format.Format, error) {
	if name != "" {
		return format.ParseFormat(name)
	}
	return format.FormatForPath(path)
}

// verifyEntry re-checks a journaled result against the file on disk.
func verifyEntry(r engine.Result) error {
	f, err := format.ParseFormat(r.Format)
	if err != nil {
		return err
	}
	size, err := format.Verify(r.FilePath, f)
	if err != nil {
		return err
	}
	if size != r.FileSizeBytes {
		return fmt.Errorf("size %d, journal says %d", size, r.FileSizeBytes)
	}
	sum, err := format.Inspect(r.FilePath, f)
	if err != nil {
		return err
	}
	if sum.Width != r.Dimensions.Width || sum.Height != r.Dimensions.Height || sum.Length != r.Dimensions.Length {
		return fmt.Errorf("dimensions %dx%dx%d, journal says %dx%dx%d",
			sum.Width, sum.Height, sum.Length, r.Dimensions.Width, r.Dimensions.Height, r.Dimensions.Length)
	}
	return nil
}
