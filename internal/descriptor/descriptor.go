// Package descriptor defines the (F,X,Y) descriptor triple that identifies
// every element, replication, operator, and sequence in a BUFR descriptor
// program, along with its two-byte wire encoding.
package descriptor

import "fmt"

// Kind classifies a descriptor by its F value.
type Kind uint8

const (
	KindElement     Kind = 0
	KindReplication Kind = 1
	KindOperator    Kind = 2
	KindSequence    Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindReplication:
		return "replication"
	case KindOperator:
		return "operator"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Descriptor is the (F,X,Y) triple identifying a single program entry.
// F is 2 bits (0..3), X is 6 bits (0..63), Y is 8 bits (0..255).
type Descriptor struct {
	F uint8
	X uint8
	Y uint8
}

// Kind reports which of the four descriptor classes F selects.
func (d Descriptor) Kind() Kind {
	return Kind(d.F)
}

// XY packs X and Y into the (x,y) key used by the Table B/D registry.
func (d Descriptor) XY() (x, y uint8) {
	return d.X, d.Y
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%d-%02d-%03d", d.F, d.X, d.Y)
}

// Parse decodes a two-byte wire descriptor: F occupies the top 2 bits of
// b[0], X the low 6 bits of b[0], Y all of b[1].
func Parse(b [2]byte) Descriptor {
	return Descriptor{
		F: b[0] >> 6,
		X: b[0] & 0x3f,
		Y: b[1],
	}
}

// Encode is the inverse of Parse: encode(parse(b)) == b for every b.
func (d Descriptor) Encode() [2]byte {
	return [2]byte{
		(d.F << 6) | (d.X & 0x3f),
		d.Y,
	}
}
