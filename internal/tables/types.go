package tables

import "github.com/castelao/bufr/internal/descriptor"

// Unit classifies how an element's raw integer is turned into a Value.
type Unit uint8

const (
	UnitNumeric Unit = iota
	UnitCodeTable
	UnitFlagTable
	UnitCCITT_IA5
	UnitYear
	UnitMonth
	UnitDay
	UnitHour
	UnitMinute
	UnitSecond
	UnitDegree
	UnitOther // textual fallback for an unparsable unit string
)

// parseUnit maps a Table B unit cell to the BUFRUnit enumeration. Unknown
// strings fall back to UnitOther rather than failing: an unparsable unit
// is a warning, never a fatal error.
func parseUnit(s string) (u Unit, other string, recognized bool) {
	switch s {
	case "Numeric", "NUMERIC":
		return UnitNumeric, "", true
	case "Code table", "CODE TABLE":
		return UnitCodeTable, "", true
	case "Flag table", "FLAG TABLE":
		return UnitFlagTable, "", true
	case "CCITT IA5", "CCITTIA5":
		return UnitCCITT_IA5, "", true
	case "Year":
		return UnitYear, "", true
	case "Month":
		return UnitMonth, "", true
	case "Day":
		return UnitDay, "", true
	case "Hour":
		return UnitHour, "", true
	case "Minute":
		return UnitMinute, "", true
	case "Second":
		return UnitSecond, "", true
	case "Degree", "Degree true":
		return UnitDegree, "", true
	default:
		return UnitOther, s, false
	}
}

// ElementDescriptor is a Table B row: the decoding contract for one (X,Y)
// element descriptor.
type ElementDescriptor struct {
	X, Y      uint8
	Name      string
	Unit      Unit
	UnitText  string // original unit text; populated when Unit == UnitOther
	Scale     int
	Reference int64
	DataWidth int
	Status    string
}

// Sequence is a Table D row: an ordered list of child descriptors.
type Sequence struct {
	X, Y     uint8
	Title    string
	Children []descriptor.Descriptor
}
