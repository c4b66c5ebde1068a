package expand

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/castelao/bufr/internal/bitio"
	"github.com/castelao/bufr/internal/descriptor"
	"github.com/castelao/bufr/internal/values"
)

func collectCompressed(t *testing.T, nSubsets int, r *bitio.Reader, top []descriptor.Descriptor) [][]Event {
	t.Helper()
	reg := newTestRegistry(t)
	events := make([][]Event, nSubsets)
	sinks := make([]Sink, nSubsets)
	for i := range sinks {
		i := i
		sinks[i] = func(ev Event) error {
			events[i] = append(events[i], ev)
			return nil
		}
	}
	exp := NewCompressedExpander(reg, r, nSubsets)
	err := exp.Expand(top, sinks)
	require.NoError(t, err)
	return events
}

func TestCompressedExpandFlatElements(t *testing.T) {
	// base=34 at width 7, local width 0 -> both subsets share the base.
	r := bitio.NewReader(packBits(bf(34, 7), bf(0, 6)))
	top := []descriptor.Descriptor{{F: 0, X: 1, Y: 1}}
	events := collectCompressed(t, 2, r, top)

	for i := 0; i < 2; i++ {
		require.Len(t, events[i], 1)
		require.Equal(t, int64(34), events[i][0].Value().Integer)
	}
}

func TestCompressedExpandAssociatedField(t *testing.T) {
	// op204 add_assoc_bits=4: each element's compressed group is preceded
	// by a compressed associated-field group of its own (base, local
	// width, per-subset values), exactly as in the uncompressed expander.
	r := bitio.NewReader(packBits(
		bf(0b1010, 4), bf(0, 6), // associated field: base=10, uniform
		bf(12, 7), bf(0, 6), // element: base=12, uniform
	))
	top := []descriptor.Descriptor{
		{F: 2, X: 4, Y: 4},
		{F: 0, X: 1, Y: 1},
	}
	events := collectCompressed(t, 2, r, top)

	for i := 0; i < 2; i++ {
		require.Len(t, events[i], 2)
		require.Equal(t, EventOperator, events[i][0].Kind)
		elem := events[i][1]
		require.Equal(t, EventElement, elem.Kind)
		require.NotNil(t, elem.Value().Associated)
		require.Equal(t, uint64(0b1010), *elem.Value().Associated)
		require.Equal(t, int64(12), elem.Value().Integer)
	}
}

func TestCompressedExpandDataNotPresentSkipsNoBits(t *testing.T) {
	// op221 Y=1 marks the next element as not present in every subset: no
	// compressed group is read for it, so the following element's
	// compressed group starts right where the skipped one would have.
	r := bitio.NewReader(packBits(bf(567, 10), bf(0, 6)))
	top := []descriptor.Descriptor{
		{F: 2, X: 21, Y: 1},
		{F: 0, X: 1, Y: 2}, // skipped: no bits read, Missing in every subset
		{F: 0, X: 1, Y: 2}, // reads the compressed group actually in the stream
	}
	events := collectCompressed(t, 2, r, top)

	for i := 0; i < 2; i++ {
		require.Len(t, events[i], 3)
		require.Equal(t, EventOperator, events[i][0].Kind)

		skipped := events[i][1]
		require.True(t, skipped.Skip)
		require.Equal(t, values.KindMissing, skipped.Value().Kind)

		read := events[i][2]
		require.False(t, read.Skip)
		require.Equal(t, int64(567), read.Value().Integer)
	}
}

func TestCompressedExpandLocalDescriptorWidth(t *testing.T) {
	// op206 Y=4 overrides the next element's compressed group to 4-bit
	// values regardless of its Table B width (7 bits here).
	r := bitio.NewReader(packBits(bf(9, 4), bf(0, 6)))
	top := []descriptor.Descriptor{
		{F: 2, X: 6, Y: 4},
		{F: 0, X: 1, Y: 1},
	}
	events := collectCompressed(t, 2, r, top)

	for i := 0; i < 2; i++ {
		elem := events[i][1]
		require.Equal(t, 4, elem.EffectiveWidth)
		require.Equal(t, int64(9), elem.Value().Integer)
	}
}
