package format

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"
)

// Strategy is one way of turning a Document into container bytes.
type Strategy interface {
	Name() string
	Supports(f Format) bool
	Encode(w io.Writer, f Format, doc *Document) error
}

// LibraryStrategy encodes NBT with go-mc and FlatJSON with encoding/json.
type LibraryStrategy struct{}

func (LibraryStrategy) Name() string { return "library" }

func (LibraryStrategy) Supports(Format) bool { return true }

func (LibraryStrategy) Encode(w io.Writer, f Format, doc *Document) error {
	if err := doc.validate(); err != nil {
		return err
	}
	if err := doc.fits(f); err != nil {
		return err
	}
	if f == FlatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(buildFlat(doc))
	}

	var v any
	switch f {
	case Litematic:
		v = buildLitematic(doc)
	case Schematic:
		v = buildSchematic(doc)
	case Structure:
		v = buildStructure(doc)
	default:
		return fmt.Errorf("library: unsupported format %s", f)
	}
	return writeGzip(w, func(bw io.Writer) error {
		return nbt.NewEncoder(bw).Encode(v, "")
	})
}

func writeGzip(w io.Writer, body func(io.Writer) error) error {
	zw := gzip.NewWriter(w)
	bw := bufio.NewWriterSize(zw, 128*1024)
	if err := body(bw); err != nil {
		_ = zw.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}
