package values

import (
	"testing"

	"github.com/castelao/bufr/internal/bitio"
	"github.com/castelao/bufr/internal/tables"
)

func TestExtractNumeric(t *testing.T) {
	// width 12, scale 1, reference 0, raw = 255 -> 25.5
	r := bitio.NewReader([]byte{0x0F, 0xF0})
	v, err := Extract(r, 12, 1, 0, tables.UnitNumeric, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindNumeric {
		t.Fatalf("Kind = %v, want Numeric", v.Kind)
	}
	if v.Numeric != 25.5 {
		t.Fatalf("Numeric = %v, want 25.5", v.Numeric)
	}
}

func TestExtractMissing(t *testing.T) {
	r := bitio.NewReader([]byte{0xFF})
	v, err := Extract(r, 8, 0, 0, tables.UnitNumeric, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindMissing {
		t.Fatalf("Kind = %v, want Missing", v.Kind)
	}
}

func TestExtractCodeAndFlag(t *testing.T) {
	r := bitio.NewReader([]byte{0b10100000})
	v, err := Extract(r, 3, 0, 0, tables.UnitCodeTable, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindCode || v.Code != 5 {
		t.Fatalf("got %+v, want Code(5)", v)
	}

	r2 := bitio.NewReader([]byte{0b10100000})
	v2, err := Extract(r2, 3, 0, 10, tables.UnitFlagTable, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v2.Kind != KindFlag || v2.Flag != 5 {
		t.Fatalf("got %+v, want Flag(5) unshifted by reference", v2)
	}
}

func TestExtractText(t *testing.T) {
	r := bitio.NewReader([]byte{'O', 'K', ' ', ' '})
	v, err := Extract(r, 32, 0, 0, tables.UnitCCITT_IA5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindText || v.Text != "OK" {
		t.Fatalf("got %+v, want Text(\"OK\")", v)
	}
}

func TestExtractAssociated(t *testing.T) {
	// 4 bits of associated field (0b1010 = 10), then 4 bits of element data (0b0101 = 5).
	r := bitio.NewReader([]byte{0b10100101})
	v, err := Extract(r, 4, 0, 0, tables.UnitNumeric, 4)
	if err != nil {
		t.Fatal(err)
	}
	if v.Associated == nil || *v.Associated != 10 {
		t.Fatalf("Associated = %v, want 10", v.Associated)
	}
	if v.Kind != KindInteger || v.Integer != 5 {
		t.Fatalf("got %+v, want Integer(5)", v)
	}
}

func TestExtractCompressedUniform(t *testing.T) {
	// base=5 at width 8, local width 0 -> all subsets share base.
	r := bitio.NewReader([]byte{0x05, 0x00})
	g, err := ExtractCompressed(r, 8, 0, 0, tables.UnitNumeric, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Values) != 3 {
		t.Fatalf("len = %d, want 3", len(g.Values))
	}
	for i, v := range g.Values {
		if v.Kind != KindInteger || v.Integer != 5 {
			t.Fatalf("subset %d: got %+v, want Integer(5)", i, v)
		}
	}
}

func TestExtractCompressedDeltas(t *testing.T) {
	// base=10 at width 8, local width 4, subset deltas: 0, 1, all-ones(missing)
	// base: 8 bits = 00001010
	// local width: 6 bits = 000100 (4)
	// subset0: 4 bits = 0000
	// subset1: 4 bits = 0001
	// subset2: 4 bits = 1111 (missing)
	bits := "00001010" + "000100" + "0000" + "0001" + "1111"
	raw := bitsToBytes(bits)
	r := bitio.NewReader(raw)
	g, err := ExtractCompressed(r, 8, 0, 0, tables.UnitNumeric, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if g.Values[0].Integer != 10 {
		t.Fatalf("subset0 = %+v, want Integer(10)", g.Values[0])
	}
	if g.Values[1].Integer != 11 {
		t.Fatalf("subset1 = %+v, want Integer(11)", g.Values[1])
	}
	if g.Values[2].Kind != KindMissing {
		t.Fatalf("subset2 = %+v, want Missing", g.Values[2])
	}
}

func bitsToBytes(bits string) []byte {
	for len(bits)%8 != 0 {
		bits += "0"
	}
	out := make([]byte, len(bits)/8)
	for i := range out {
		var b byte
		for j := 0; j < 8; j++ {
			b <<= 1
			if bits[i*8+j] == '1' {
				b |= 1
			}
		}
		out[i] = b
	}
	return out
}
