package bufr

import (
	"encoding/binary"

	"github.com/castelao/bufr/internal/descriptor"
)

// magic is the fixed 4-byte tag opening every BUFR message (section 0).
var magic = [4]byte{'B', 'U', 'F', 'R'}

const section0Size = 8

// u24 reads a 3-byte big-endian unsigned integer, the length encoding used
// by every BUFR section header.
func u24(b []byte) int {
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2])
}

// Section1 is the identification section (section 1) of a BUFR/4 message.
type Section1 struct {
	MasterTable         uint8
	Center              uint16
	SubCenter           uint16
	UpdateSequence      uint8
	OptionalSection     bool
	DataCategory        uint8
	DataSubCategory     uint8
	LocalSubCategory    uint8
	MasterTableVersion  uint8
	LocalTableVersion   uint8
	Year                uint16
	Month, Day          uint8
	Hour, Minute, Second uint8
	LocalUse            []byte
}

// section1Size is the fixed portion of section 1 preceding any local-use
// trailer: length(3) + master_table(1) + center(2) + sub_center(2) +
// update(1) + optional_flag(1) + data_category(1) + data_subcategory(1) +
// local_subcategory(1) + master_table_version(1) + local_table_version(1) +
// year(2) + month(1) + day(1) + hour(1) + minute(1) + second(1) = 22.
const section1Size = 22

// parseSection1 decodes section 1 starting at the beginning of its own
// length-prefixed record. Returns the section and the number of bytes
// consumed (its declared length).
func parseSection1(data []byte) (Section1, int, error) {
	if len(data) < section1Size {
		return Section1{}, 0, ErrMessageTooShort
	}
	length := u24(data[0:3])
	if length < section1Size {
		return Section1{}, 0, InvalidSectionLayoutError{Section: 1, Reason: "length shorter than fixed fields"}
	}
	if len(data) < length {
		return Section1{}, 0, ErrMessageTooShort
	}

	var s Section1
	s.MasterTable = data[3]
	s.Center = binary.BigEndian.Uint16(data[4:6])
	s.SubCenter = binary.BigEndian.Uint16(data[6:8])
	s.UpdateSequence = data[8]

	switch data[9] {
	case 0x00:
		s.OptionalSection = false
	case 0x40, 0x80:
		s.OptionalSection = true
	default:
		return Section1{}, 0, InvalidSectionLayoutError{Section: 1, Reason: "optional section flag is neither 0x00, 0x40 nor 0x80"}
	}

	s.DataCategory = data[10]
	s.DataSubCategory = data[11]
	s.LocalSubCategory = data[12]
	s.MasterTableVersion = data[13]
	s.LocalTableVersion = data[14]
	s.Year = binary.BigEndian.Uint16(data[15:17])
	s.Month = data[17]
	s.Day = data[18]
	s.Hour = data[19]
	s.Minute = data[20]
	s.Second = data[21]

	if length > section1Size {
		s.LocalUse = append([]byte(nil), data[section1Size:length]...)
	}

	return s, length, nil
}

const section2HeaderSize = 4

// parseSection2 skips over the optional local-use section, returning its
// raw payload unparsed and the number of bytes consumed.
func parseSection2(data []byte) ([]byte, int, error) {
	if len(data) < section2HeaderSize {
		return nil, 0, ErrMessageTooShort
	}
	length := u24(data[0:3])
	if length < section2HeaderSize {
		return nil, 0, InvalidSectionLayoutError{Section: 2, Reason: "length shorter than header"}
	}
	if len(data) < length {
		return nil, 0, ErrMessageTooShort
	}
	return append([]byte(nil), data[section2HeaderSize:length]...), length, nil
}

const section3HeaderSize = 7

// Section3 is the data description section: the subset/compression flags
// and the top-level descriptor program shared by every subset.
type Section3 struct {
	NSubsets    int
	Observed    bool
	Compressed  bool
	Descriptors []descriptor.Descriptor
}

// parseSection3 decodes section 3, including the (length-7)/2 descriptor
// count derived from the section length — not a fixed 7+2*n_subsets
// relationship, since n_subsets counts data subsets, not descriptors.
func parseSection3(data []byte) (Section3, int, error) {
	if len(data) < section3HeaderSize {
		return Section3{}, 0, ErrMessageTooShort
	}
	length := u24(data[0:3])
	if length < section3HeaderSize {
		return Section3{}, 0, InvalidSectionLayoutError{Section: 3, Reason: "length shorter than header"}
	}
	if len(data) < length {
		return Section3{}, 0, ErrMessageTooShort
	}
	if data[3] != 0 {
		return Section3{}, 0, InvalidSectionLayoutError{Section: 3, Reason: "reserved byte is not zero"}
	}

	nSubsets := int(binary.BigEndian.Uint16(data[4:6]))
	flags := data[6]
	observed := flags&0x80 != 0
	compressed := flags&0x40 != 0

	remaining := length - section3HeaderSize
	if remaining%2 != 0 {
		return Section3{}, 0, InvalidSectionLayoutError{Section: 3, Reason: "descriptor block is not an even number of bytes"}
	}
	descriptors := make([]descriptor.Descriptor, 0, remaining/2)
	for off := section3HeaderSize; off < length; off += 2 {
		descriptors = append(descriptors, descriptor.Parse([2]byte{data[off], data[off+1]}))
	}

	return Section3{
		NSubsets:    nSubsets,
		Observed:    observed,
		Compressed:  compressed,
		Descriptors: descriptors,
	}, length, nil
}

const section4HeaderSize = 4

// parseSection4 returns the raw data payload of section 4 (the bit stream
// the descriptor program is read against) and the number of bytes consumed.
func parseSection4(data []byte) ([]byte, int, error) {
	if len(data) < section4HeaderSize {
		return nil, 0, ErrMessageTooShort
	}
	length := u24(data[0:3])
	if length < section4HeaderSize {
		return nil, 0, InvalidSectionLayoutError{Section: 4, Reason: "length shorter than header"}
	}
	if len(data) < length {
		return nil, 0, ErrMessageTooShort
	}
	if data[3] != 0 {
		return nil, 0, InvalidSectionLayoutError{Section: 4, Reason: "reserved byte is not zero"}
	}
	return data[section4HeaderSize:length], length, nil
}

const section5Size = 4

var endMarker = [4]byte{'7', '7', '7', '7'}

// parseSection5 checks the literal "7777" end marker, returning the number
// of bytes consumed (always 4).
func parseSection5(data []byte) (int, error) {
	if len(data) < section5Size {
		return 0, ErrMessageTooShort
	}
	if data[0] != endMarker[0] || data[1] != endMarker[1] || data[2] != endMarker[2] || data[3] != endMarker[3] {
		return 0, ErrEndMarkerMissing
	}
	return section5Size, nil
}

// parseSection0 decodes the fixed 8-byte indicator section: magic, total
// message length, and edition.
func parseSection0(data []byte) (totalLength int, edition uint8, n int, err error) {
	if len(data) < section0Size {
		return 0, 0, 0, ErrMessageTooShort
	}
	if data[0] != magic[0] || data[1] != magic[1] || data[2] != magic[2] || data[3] != magic[3] {
		return 0, 0, 0, ErrMagicMismatch
	}
	totalLength = u24(data[4:7])
	edition = data[7]
	return totalLength, edition, section0Size, nil
}
