// Package values implements C5, the bit-stream value extractor: turning a
// raw integer read from section 4 into a typed Value using an element's
// (operator-adjusted) width, scale, reference, and unit.
package values

import "strings"

// Kind discriminates the Value sum type.
type Kind uint8

const (
	KindMissing Kind = iota
	KindInteger
	KindNumeric
	KindText
	KindCode
	KindFlag
)

// Value is the decoded reading for one element. Exactly one of the typed
// fields is meaningful, selected by Kind.
type Value struct {
	Kind    Kind
	Integer int64
	Numeric float64
	Text    string
	Code    uint32
	Flag    uint32

	// Associated holds the preceding op-204 associated-field read, if any.
	// Associated fields are never shifted or scaled.
	Associated *uint64
}

func Missing() Value { return Value{Kind: KindMissing} }

func Integer(v int64) Value { return Value{Kind: KindInteger, Integer: v} }

func Numeric(v float64) Value { return Value{Kind: KindNumeric, Numeric: v} }

func Text(s string) Value {
	return Value{Kind: KindText, Text: strings.TrimRight(s, " \x00")}
}

func Code(v uint32) Value { return Value{Kind: KindCode, Code: v} }

func Flag(v uint32) Value { return Value{Kind: KindFlag, Flag: v} }
