package descriptor

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		in   [2]byte
		want Descriptor
	}{
		{"sequence-max", [2]byte{0xFF, 0xFF}, Descriptor{F: 3, X: 63, Y: 255}},
		{"element-min", [2]byte{0x00, 0x01}, Descriptor{F: 0, X: 0, Y: 1}},
		{"operator", [2]byte{0xAA, 0x01}, Descriptor{F: 2, X: 42, Y: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.in)
			if got != tc.want {
				t.Fatalf("Parse(%v) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for v := 0; v <= 0xFFFF; v++ {
		b := [2]byte{byte(v >> 8), byte(v)}
		d := Parse(b)
		if got := d.Encode(); got != b {
			t.Fatalf("round trip failed for %#04x: got %v", v, got)
		}
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		f    uint8
		want Kind
	}{
		{0, KindElement},
		{1, KindReplication},
		{2, KindOperator},
		{3, KindSequence},
	}
	for _, tc := range cases {
		d := Descriptor{F: tc.f}
		if d.Kind() != tc.want {
			t.Fatalf("F=%d: Kind() = %v, want %v", tc.f, d.Kind(), tc.want)
		}
	}
}
