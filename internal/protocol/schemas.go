package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	SchemaNotes    = "notes.schema.json"
	SchemaGenerate = "generate.schema.json"
	SchemaFlatJSON = "flatjson.schema.json"

	schemaBase = "https://redstonemusic.ai/schemas/"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		schemasErr = err
		return
	}
	for _, e := range entries {
		b, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			schemasErr = err
			return
		}
		if err := c.AddResource(schemaBase+e.Name(), bytes.NewReader(b)); err != nil {
			schemasErr = fmt.Errorf("schema %s: %w", e.Name(), err)
			return
		}
	}
	out := make(map[string]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		s, err := c.Compile(schemaBase + e.Name())
		if err != nil {
			schemasErr = fmt.Errorf("compile %s: %w", e.Name(), err)
			return
		}
		out[e.Name()] = s
	}
	schemas = out
}

// Schema returns one of the embedded schemas by file name.
func Schema(name string) (*jsonschema.Schema, error) {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return s, nil
}

// Validate decodes raw JSON and checks it against the named schema.
func Validate(name string, raw []byte) error {
	return ValidateReader(name, bytes.NewReader(raw))
}

func ValidateReader(name string, r io.Reader) error {
	s, err := Schema(name)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}
