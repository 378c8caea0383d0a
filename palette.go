package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	paletteFile = "colors.json"
	schemaFile  = "colors.schema.json"

	// schemaRef is written into every palette document.
	schemaRef = "./" + schemaFile
)

// PaletteEntry is one named color of a palette.
type PaletteEntry struct {
	HexColor string  `json:"hex_color"`
	Name     *string `json:"name,omitempty"`
}

// DisplayName returns the entry's name or "" when unnamed.
func (e PaletteEntry) DisplayName() string {
	if e.Name == nil {
		return ""
	}
	return *e.Name
}

// PaletteDocument is the on-disk palette.
type PaletteDocument struct {
	Schema *string        `json:"$schema,omitempty"`
	Colors []PaletteEntry `json:"colors"`
}

// NewPaletteEntry builds an entry for c. An empty name is left out.
func NewPaletteEntry(c RGB, name string) PaletteEntry {
	e := PaletteEntry{HexColor: c.Hex()}
	if name != "" {
		e.Name = &name
	}
	return e
}

// PaletteStore reads and writes the palette document in Dir.
type PaletteStore struct {
	Dir string
}

// Path returns the location of the palette document.
func (s PaletteStore) Path() string {
	return filepath.Join(s.Dir, paletteFile)
}

// SchemaPath returns the location of the schema description.
func (s PaletteStore) SchemaPath() string {
	return filepath.Join(s.Dir, schemaFile)
}

// Read loads the palette document. A missing document is an error; use
// errors.Is(err, fs.ErrNotExist) to tell it apart from a broken one.
func (s PaletteStore) Read() (*PaletteDocument, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrDocument, s.Path(), err)
	}
	var doc PaletteDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrDocument, s.Path(), err)
	}
	if doc.Colors == nil {
		doc.Colors = []PaletteEntry{}
	}
	return &doc, nil
}

// Write stores doc, replacing any previous document. The schema reference
// is always set to the co-located schema file. Dir is created with 0755 if
// needed and the file is replaced atomically.
func (s PaletteStore) Write(doc PaletteDocument) error {
	ref := schemaRef
	doc.Schema = &ref
	if doc.Colors == nil {
		doc.Colors = []PaletteEntry{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding: %w", ErrDocument, err)
	}
	if err := writeFileAtomic(s.Path(), data); err != nil {
		return fmt.Errorf("%w: %w", ErrDocument, err)
	}
	logger().Info("palette written", "path", s.Path(), "colors", len(doc.Colors))
	return nil
}

// load reads the document, treating a missing one as empty.
func (s PaletteStore) load() (*PaletteDocument, error) {
	doc, err := s.Read()
	if errors.Is(err, fs.ErrNotExist) {
		return &PaletteDocument{Colors: []PaletteEntry{}}, nil
	}
	return doc, err
}

// Add appends e to the stored palette and returns the updated document.
func (s PaletteStore) Add(e PaletteEntry) (*PaletteDocument, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	doc.Colors = append(doc.Colors, e)
	if err := s.Write(*doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Remove deletes the entry at index i and returns the updated document.
func (s PaletteStore) Remove(i int) (*PaletteDocument, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(doc.Colors) {
		return nil, fmt.Errorf("%w: no entry %d in a palette of %d", ErrDocument, i, len(doc.Colors))
	}
	doc.Colors = append(doc.Colors[:i], doc.Colors[i+1:]...)
	if err := s.Write(*doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// paletteSchema describes PaletteDocument for editors that validate the
// palette file.
var paletteSchema = map[string]any{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"title":    "PaletteDocument",
	"type":     "object",
	"required": []string{"colors"},
	"properties": map[string]any{
		"$schema": map[string]any{"type": "string"},
		"colors": map[string]any{
			"type":  "array",
			"items": map[string]any{"$ref": "#/definitions/PaletteEntry"},
		},
	},
	"definitions": map[string]any{
		"PaletteEntry": map[string]any{
			"type":     "object",
			"required": []string{"hex_color"},
			"properties": map[string]any{
				"hex_color": map[string]any{"type": "string"},
				"name":      map[string]any{"type": "string"},
			},
		},
	},
}

// WriteSchema writes the schema description next to the palette when the
// file is missing or differs. It reports whether the file was written.
func (s PaletteStore) WriteSchema() (bool, error) {
	data, err := json.MarshalIndent(paletteSchema, "", "  ")
	if err != nil {
		return false, fmt.Errorf("%w: encoding schema: %w", ErrDocument, err)
	}
	old, err := os.ReadFile(s.SchemaPath())
	if err == nil && bytes.Equal(old, data) {
		return false, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%w: reading schema: %w", ErrDocument, err)
	}
	if err := writeFileAtomic(s.SchemaPath(), data); err != nil {
		return false, fmt.Errorf("%w: %w", ErrDocument, err)
	}
	return true, nil
}

// writeFileAtomic writes data to a temporary file in the target directory
// and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
