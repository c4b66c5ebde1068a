package values

import (
	"fmt"
	"math"

	"github.com/castelao/bufr/internal/bitio"
	"github.com/castelao/bufr/internal/tables"
)

// Extract reads one element from r using the given effective width, scale,
// reference, and unit (already adjusted for active operator state by the
// caller), and produces the typed Value.
//
// assocBits, when > 0, is read first as a preceding op-204 associated
// field; the result is attached to the returned Value and is never shifted
// or scaled.
func Extract(r *bitio.Reader, width, scale int, reference int64, unit tables.Unit, assocBits int) (Value, error) {
	var assoc *uint64
	if assocBits > 0 {
		a, err := r.ReadUint(assocBits)
		if err != nil {
			return Value{}, fmt.Errorf("values: reading associated field: %w", err)
		}
		assoc = &a
	}

	if unit == tables.UnitCCITT_IA5 {
		if width%8 != 0 {
			return Value{}, fmt.Errorf("values: CCITT-IA5 width %d is not a multiple of 8", width)
		}
		buf, err := readTextBits(r, width)
		if err != nil {
			return Value{}, err
		}
		v := Text(string(buf))
		v.Associated = assoc
		return v, nil
	}

	if width <= 0 || width > 64 {
		return Value{}, fmt.Errorf("values: invalid element width %d", width)
	}
	raw, err := r.ReadUint(width)
	if err != nil {
		return Value{}, fmt.Errorf("values: reading element: %w", err)
	}

	if bitio.IsMissing(raw, width) {
		v := Missing()
		v.Associated = assoc
		return v, nil
	}

	valueI := int64(raw) + reference

	var v Value
	switch unit {
	case tables.UnitCodeTable:
		v = Code(uint32(valueI))
	case tables.UnitFlagTable:
		v = Flag(uint32(raw)) // flags are not shifted by reference
	case tables.UnitYear, tables.UnitMonth, tables.UnitDay, tables.UnitHour,
		tables.UnitMinute, tables.UnitSecond:
		v = Integer(valueI)
	case tables.UnitDegree:
		if scale == 0 {
			v = Integer(valueI)
		} else {
			v = Numeric(float64(valueI) * math.Pow10(-scale))
		}
	default: // Numeric and UnitOther: treat as a physical/numeric quantity
		if scale == 0 {
			v = Integer(valueI)
		} else {
			v = Numeric(float64(valueI) * math.Pow10(-scale))
		}
	}
	v.Associated = assoc
	return v, nil
}

// readTextBits reads width bits (a multiple of 8) as raw bytes. The field
// may start at any bit offset: an aligned field is copied with ReadBytes,
// an unaligned one is read one 8-bit character at a time.
func readTextBits(r *bitio.Reader, width int) ([]byte, error) {
	if r.BitPos()%8 != 0 {
		if r.RemainingBits() < width {
			return nil, fmt.Errorf("values: reading CCITT-IA5 field: %w", bitio.ErrExhausted)
		}
		buf := make([]byte, width/8)
		for i := range buf {
			c, err := r.ReadUint(8)
			if err != nil {
				return nil, fmt.Errorf("values: reading CCITT-IA5 field: %w", err)
			}
			buf[i] = byte(c)
		}
		return buf, nil
	}
	buf, err := r.ReadBytes(width/8, nil)
	if err != nil {
		return nil, fmt.Errorf("values: reading CCITT-IA5 field: %w", err)
	}
	return buf, nil
}

// CompressedGroup holds one element's resolved per-subset values from a
// compressed message, one Value per subset in subset order. The base and
// local width read from the stream are not retained.
type CompressedGroup struct {
	Values []Value
}

// ExtractCompressed reads one element's compressed group: a base value at
// the element's width, a 6-bit local width, then nSubsets values at that
// local width, each either an increment over the base or all-ones to mean
// "missing for this subset". A local width of 0 means every subset shares
// the base value. Order is exact and observable: base, local-width,
// subset0, subset1, …, subsetN-1.
//
// assocBits, when > 0, is read first as a preceding op-204 associated field,
// itself encoded as a compressed group of assocBits-wide raw integers; the
// per-subset result is attached to the corresponding returned Value.
func ExtractCompressed(r *bitio.Reader, width, scale int, reference int64, unit tables.Unit, assocBits, nSubsets int) (CompressedGroup, error) {
	var assoc []*uint64
	if assocBits > 0 {
		a, err := extractCompressedRaw(r, assocBits, nSubsets)
		if err != nil {
			return CompressedGroup{}, fmt.Errorf("values: reading compressed associated field: %w", err)
		}
		assoc = a
	}

	var group CompressedGroup
	var err error
	if unit == tables.UnitCCITT_IA5 {
		group, err = extractCompressedText(r, width, nSubsets)
	} else {
		group, err = extractCompressedNumeric(r, width, scale, reference, unit, nSubsets)
	}
	if err != nil {
		return CompressedGroup{}, err
	}
	for i := range assoc {
		group.Values[i].Associated = assoc[i]
	}
	return group, nil
}

// extractCompressedRaw reads a compressed group of bits-wide raw integers,
// one per subset, without any scale/reference/unit interpretation: the
// shape used by an op-204 associated field. A nil entry means "missing for
// this subset".
func extractCompressedRaw(r *bitio.Reader, bits, nSubsets int) ([]*uint64, error) {
	if bits <= 0 || bits > 64 {
		return nil, fmt.Errorf("values: invalid associated field width %d", bits)
	}
	base, err := r.ReadUint(bits)
	if err != nil {
		return nil, fmt.Errorf("values: reading compressed base: %w", err)
	}
	localWidth, err := r.ReadUint(6)
	if err != nil {
		return nil, fmt.Errorf("values: reading compressed local width: %w", err)
	}

	out := make([]*uint64, nSubsets)
	baseMissing := bitio.IsMissing(base, bits)
	for i := 0; i < nSubsets; i++ {
		if localWidth > 0 {
			d, err := r.ReadUint(int(localWidth))
			if err != nil {
				return nil, fmt.Errorf("values: reading compressed subset %d: %w", i, err)
			}
			if bitio.IsMissing(d, int(localWidth)) {
				continue
			}
			raw := base + d
			out[i] = &raw
			continue
		}
		if baseMissing {
			continue
		}
		raw := base
		out[i] = &raw
	}
	return out, nil
}

func extractCompressedNumeric(r *bitio.Reader, width, scale int, reference int64, unit tables.Unit, nSubsets int) (CompressedGroup, error) {
	if width <= 0 || width > 64 {
		return CompressedGroup{}, fmt.Errorf("values: invalid element width %d", width)
	}
	base, err := r.ReadUint(width)
	if err != nil {
		return CompressedGroup{}, fmt.Errorf("values: reading compressed base: %w", err)
	}
	localWidth, err := r.ReadUint(6)
	if err != nil {
		return CompressedGroup{}, fmt.Errorf("values: reading compressed local width: %w", err)
	}

	out := make([]Value, nSubsets)
	baseMissing := bitio.IsMissing(base, width)
	for i := 0; i < nSubsets; i++ {
		var raw uint64
		if localWidth > 0 {
			d, err := r.ReadUint(int(localWidth))
			if err != nil {
				return CompressedGroup{}, fmt.Errorf("values: reading compressed subset %d: %w", i, err)
			}
			if bitio.IsMissing(d, int(localWidth)) {
				out[i] = Missing()
				continue
			}
			raw = base + d
		} else {
			if baseMissing {
				out[i] = Missing()
				continue
			}
			raw = base
		}

		valueI := int64(raw) + reference
		switch unit {
		case tables.UnitCodeTable:
			out[i] = Code(uint32(valueI))
		case tables.UnitFlagTable:
			out[i] = Flag(uint32(raw))
		case tables.UnitYear, tables.UnitMonth, tables.UnitDay, tables.UnitHour,
			tables.UnitMinute, tables.UnitSecond:
			out[i] = Integer(valueI)
		default:
			if scale == 0 {
				out[i] = Integer(valueI)
			} else {
				out[i] = Numeric(float64(valueI) * math.Pow10(-scale))
			}
		}
	}
	return CompressedGroup{Values: out}, nil
}

func extractCompressedText(r *bitio.Reader, width, nSubsets int) (CompressedGroup, error) {
	if width%8 != 0 {
		return CompressedGroup{}, fmt.Errorf("values: CCITT-IA5 width %d is not a multiple of 8", width)
	}
	base, err := readTextBits(r, width)
	if err != nil {
		return CompressedGroup{}, err
	}
	localWidth, err := r.ReadUint(6)
	if err != nil {
		return CompressedGroup{}, fmt.Errorf("values: reading compressed text local width: %w", err)
	}
	out := make([]Value, nSubsets)
	for i := 0; i < nSubsets; i++ {
		if localWidth == 0 {
			out[i] = Text(string(base))
			continue
		}
		if localWidth%8 != 0 {
			return CompressedGroup{}, fmt.Errorf("values: compressed text local width %d is not a multiple of 8", localWidth)
		}
		buf, err := readTextBits(r, int(localWidth))
		if err != nil {
			return CompressedGroup{}, fmt.Errorf("values: reading compressed text subset %d: %w", i, err)
		}
		out[i] = Text(string(buf))
	}
	return CompressedGroup{Values: out}, nil
}
