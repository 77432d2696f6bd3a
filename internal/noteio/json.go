// Package noteio reads placed-note sequences from the formats the generator
// accepts: notes JSON documents and Standard MIDI Files.
package noteio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"redstonemusic.ai/internal/protocol"
	"redstonemusic.ai/internal/sim/notes"
)

// Document is the object form of a notes file. A bare JSON array of notes is
// accepted as well.
type Document struct {
	Name   string             `json:"name,omitempty"`
	Source string             `json:"source,omitempty"`
	Notes  []notes.PlacedNote `json:"notes"`
}

// ReadJSON validates r against the notes schema and decodes it.
func ReadJSON(r io.Reader) ([]notes.PlacedNote, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := protocol.Validate(protocol.SchemaNotes, raw); err != nil {
		return nil, fmt.Errorf("notes document: %w", err)
	}

	var ns []notes.PlacedNote
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &ns)
	} else {
		var doc Document
		err = json.Unmarshal(trimmed, &doc)
		ns = doc.Notes
	}
	if err != nil {
		return nil, err
	}
	if err := notes.Validate(ns); err != nil {
		return nil, err
	}
	return ns, nil
}

func ReadJSONFile(path string) ([]notes.PlacedNote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}

// WriteJSON writes ns as a notes document.
func WriteJSON(w io.Writer, name string, ns []notes.PlacedNote) error {
	if ns == nil {
		ns = []notes.PlacedNote{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{Name: name, Notes: ns})
}
