package bufr

import (
	"fmt"
	"io"

	"github.com/castelao/bufr/internal/bitio"
	"github.com/castelao/bufr/internal/descriptor"
	"github.com/castelao/bufr/internal/expand"
	"github.com/castelao/bufr/internal/tables"
	"github.com/castelao/bufr/internal/tree"
)

// Message is a fully parsed BUFR message: the framing metadata from
// sections 0, 1, and 3, plus one ValueTree per data subset decoded from
// section 4.
type Message struct {
	TotalLength int
	Edition     uint8

	Identification Section1
	LocalUse2      []byte // section 2 payload, unparsed, nil if not present
	Description    Section3

	Subsets []tree.ValueTree

	// RawData is section 4's undecoded bit-stream payload, kept for
	// debug tooling (see cmd/bufrdump's --show-data).
	RawData []byte

	// Warnings accumulates non-fatal decode observations (e.g. an unknown
	// unit recognized by name but outside the known enumeration) that do
	// not themselves stop decoding.
	Warnings []string
}

// readAll reads all of r. If r implements Len() int (e.g. *bytes.Reader),
// a single exact-sized allocation is used instead of the repeated
// doublings io.ReadAll performs.
func readAll(r io.Reader) ([]byte, error) {
	if lr, ok := r.(interface{ Len() int }); ok {
		n := lr.Len()
		if n > 0 {
			data := make([]byte, n)
			_, err := io.ReadFull(r, data)
			return data, err
		}
	}
	return io.ReadAll(r)
}

// Decode parses a complete BUFR message from r, decoding every data subset
// into a ValueTree using the default (embedded) Table B/D registry.
func Decode(r io.Reader) (*Message, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, fmt.Errorf("bufr: reading data: %w", err)
	}
	reg, err := tables.Default()
	if err != nil {
		return nil, fmt.Errorf("bufr: loading default tables: %w", err)
	}
	return DecodeWithRegistry(data, reg)
}

// DecodeWithRegistry parses a complete BUFR message from data using reg
// instead of the embedded default catalogue — for callers supplying local
// or updated Table B/D files.
func DecodeWithRegistry(data []byte, reg *tables.Registry) (*Message, error) {
	totalLength, edition, offset, err := parseSection0(data)
	if err != nil {
		return nil, err
	}
	if len(data) < totalLength {
		return nil, ErrMessageTooShort
	}
	if edition != 4 {
		return nil, UnsupportedEditionError{Edition: int(edition)}
	}

	sec1, n, err := parseSection1(data[offset:])
	if err != nil {
		return nil, fmt.Errorf("bufr: decoding section 1: %w", err)
	}
	offset += n

	var localUse2 []byte
	if sec1.OptionalSection {
		payload, n, err := parseSection2(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("bufr: decoding section 2: %w", err)
		}
		localUse2 = payload
		offset += n
	}

	sec3, n, err := parseSection3(data[offset:])
	if err != nil {
		return nil, fmt.Errorf("bufr: decoding section 3: %w", err)
	}
	offset += n

	payload, n, err := parseSection4(data[offset:])
	if err != nil {
		return nil, fmt.Errorf("bufr: decoding section 4: %w", err)
	}
	offset += n

	if _, err := parseSection5(data[offset:]); err != nil {
		return nil, err
	}

	subsets, err := decodeSubsets(reg, sec3, payload)
	if err != nil {
		return nil, fmt.Errorf("bufr: decoding data section: %w", err)
	}

	return &Message{
		TotalLength:    totalLength,
		Edition:        edition,
		Identification: sec1,
		LocalUse2:      localUse2,
		Description:    sec3,
		Subsets:        subsets,
		RawData:        payload,
		Warnings:       collectUnitWarnings(reg, sec3.Descriptors, 0),
	}, nil
}

// collectUnitWarnings walks a descriptor program, resolving sequences
// recursively, and reports one warning per element descriptor whose Table
// B unit string could not be mapped to a known tables.Unit. Replication
// counts are not known without reading section 4, so a replicated block's
// children are only visited once regardless of how many times they repeat.
func collectUnitWarnings(reg *tables.Registry, list []descriptor.Descriptor, depth int) []string {
	if depth > expand.DefaultDepthLimit {
		return nil
	}
	var warnings []string
	for i := 0; i < len(list); i++ {
		d := list[i]
		switch d.Kind() {
		case descriptor.KindElement:
			if ed, ok := reg.Element(d.X, d.Y); ok && ed.Unit == tables.UnitOther {
				warnings = append(warnings, fmt.Sprintf("%s: unrecognized unit %q, treated as numeric", d, ed.UnitText))
			}
		case descriptor.KindSequence:
			if seq, ok := reg.Sequence(d.X, d.Y); ok {
				warnings = append(warnings, collectUnitWarnings(reg, seq.Children, depth+1)...)
			}
		case descriptor.KindReplication:
			count := int(d.X)
			consumed := 1
			if d.Y == 0 {
				consumed = 2 // delayed count element
			}
			if i+consumed+count <= len(list) {
				warnings = append(warnings, collectUnitWarnings(reg, list[i+consumed:i+consumed+count], depth+1)...)
				i += consumed + count - 1
			}
		}
	}
	return warnings
}

// decodeSubsets walks section 3's descriptor program against section 4's
// bit stream, producing one ValueTree per data subset.
//
// Uncompressed messages replay the same descriptor program n_subsets
// times against one continuing bit cursor (the stream is not realigned
// between subsets). Compressed messages walk the program exactly once,
// reading one compressed group per element and fanning its n_subsets
// decoded values out to n_subsets independent tree builders.
func decodeSubsets(reg *tables.Registry, sec3 Section3, payload []byte) ([]tree.ValueTree, error) {
	r := bitio.NewReader(payload)

	if !sec3.Compressed {
		trees := make([]tree.ValueTree, 0, sec3.NSubsets)
		for i := 0; i < sec3.NSubsets; i++ {
			builder := tree.NewBuilder()
			exp := expand.NewExpander(reg, r)
			if err := exp.Expand(sec3.Descriptors, builder.Sink()); err != nil {
				return nil, fmt.Errorf("subset %d: %w", i, err)
			}
			t, err := builder.Tree()
			if err != nil {
				return nil, fmt.Errorf("subset %d: %w", i, err)
			}
			trees = append(trees, t)
		}
		return trees, nil
	}

	builders := make([]*tree.Builder, sec3.NSubsets)
	sinks := make([]expand.Sink, sec3.NSubsets)
	for i := range builders {
		builders[i] = tree.NewBuilder()
		sinks[i] = builders[i].Sink()
	}
	exp := expand.NewCompressedExpander(reg, r, sec3.NSubsets)
	if err := exp.Expand(sec3.Descriptors, sinks); err != nil {
		return nil, err
	}

	trees := make([]tree.ValueTree, sec3.NSubsets)
	for i, b := range builders {
		t, err := b.Tree()
		if err != nil {
			return nil, fmt.Errorf("subset %d: %w", i, err)
		}
		trees[i] = t
	}
	return trees, nil
}
