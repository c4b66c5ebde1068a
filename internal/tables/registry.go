package tables

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"sync"
)

//go:embed catalogue/*.csv
var embeddedCatalogue embed.FS

// defaultTableBFiles and defaultTableDFiles list the embedded catalogue
// files in merge order: later files override earlier ones for the same
// (X,Y) key.
var (
	defaultTableBFiles = []string{"catalogue/BUFRCREX_TableB_en_01.csv"}
	defaultTableDFiles = []string{"catalogue/BUFR_TableD_en_01.csv"}
)

// Registry holds Table B and Table D, keyed by (X,Y). It is immutable once
// built; the zero value is not usable, use Load, LoadFromReaders or Default.
type Registry struct {
	elements      map[[2]uint8]ElementDescriptor
	sequenceByKey map[[2]uint8]Sequence
}

// Element looks up a Table B row by (x,y). The second return value reports
// whether the lookup succeeded; a miss is not itself an error, the caller
// (the expander) decides policy.
func (r *Registry) Element(x, y uint8) (ElementDescriptor, bool) {
	e, ok := r.elements[[2]uint8{x, y}]
	return e, ok
}

// Sequence looks up a Table D row's ordered children by (x,y).
func (r *Registry) Sequence(x, y uint8) (Sequence, bool) {
	s, ok := r.sequenceByKey[[2]uint8{x, y}]
	return s, ok
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the process-wide registry built from the embedded
// catalogue files, initializing it on first call with a one-shot guard;
// subsequent calls are lock-free reads of the already-built value.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Load(defaultTableBFiles, defaultTableDFiles)
	})
	return defaultReg, defaultErr
}

// Load builds a Registry from the named embedded catalogue files, merging
// Table B files and Table D files independently, in order given — a later
// file's row overrides an earlier file's row for the same (X,Y) key.
func Load(tableBFiles, tableDFiles []string) (*Registry, error) {
	reg := &Registry{
		elements:      make(map[[2]uint8]ElementDescriptor),
		sequenceByKey: make(map[[2]uint8]Sequence),
	}

	for _, name := range tableBFiles {
		data, err := embeddedCatalogue.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("tables: reading embedded %s: %w", name, err)
		}
		rows, err := loadTableB(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("tables: loading %s: %w", name, err)
		}
		for _, row := range rows {
			reg.elements[[2]uint8{row.X, row.Y}] = row
		}
	}

	for _, name := range tableDFiles {
		data, err := embeddedCatalogue.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("tables: reading embedded %s: %w", name, err)
		}
		rows, err := loadTableD(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("tables: loading %s: %w", name, err)
		}
		for _, row := range rows {
			reg.sequenceByKey[[2]uint8{row.X, row.Y}] = row
		}
	}

	return reg, nil
}

// LoadFromReaders builds a Registry from a single in-memory Table B CSV and
// a single in-memory Table D CSV, for tests and callers loading catalogues
// from sources other than the embedded default files.
func LoadFromReaders(tableB, tableD io.Reader) (*Registry, error) {
	reg := &Registry{
		elements:      make(map[[2]uint8]ElementDescriptor),
		sequenceByKey: make(map[[2]uint8]Sequence),
	}
	rowsB, err := loadTableB(tableB)
	if err != nil {
		return nil, fmt.Errorf("tables: loading table B: %w", err)
	}
	for _, row := range rowsB {
		reg.elements[[2]uint8{row.X, row.Y}] = row
	}
	rowsD, err := loadTableD(tableD)
	if err != nil {
		return nil, fmt.Errorf("tables: loading table D: %w", err)
	}
	for _, row := range rowsD {
		reg.sequenceByKey[[2]uint8{row.X, row.Y}] = row
	}
	return reg, nil
}
