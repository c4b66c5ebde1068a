package expand

import (
	"fmt"

	"github.com/castelao/bufr/internal/bitio"
	"github.com/castelao/bufr/internal/descriptor"
	"github.com/castelao/bufr/internal/operator"
	"github.com/castelao/bufr/internal/tables"
	"github.com/castelao/bufr/internal/values"
)

// CompressedExpander walks a descriptor program exactly once against a
// compressed section 4 bit stream, fanning each element's decoded
// per-subset values out to one Sink per subset. Structural events (enter
// and leave sequence/replication/iteration, and operator updates) are
// identical across subsets and are broadcast to every sink; only element
// values differ between subsets, per the compressed-group encoding.
//
// Replication factors in a genuinely compressed message are required by
// the standard to be identical across subsets (the subsets share one
// descriptor tree); this expander resolves a delayed count's compressed
// group and uses subset 0's decoded value as the iteration count for every
// subset, which is the documented reading of that requirement.
type CompressedExpander struct {
	Registry *tables.Registry
	Reader   *bitio.Reader
	Ctx      *operator.Context
	NSubsets int

	DepthLimit   int
	ElementLimit int

	depth        int
	elementCount int
}

// NewCompressedExpander constructs a CompressedExpander with the default
// depth and element ceilings.
func NewCompressedExpander(reg *tables.Registry, r *bitio.Reader, nSubsets int) *CompressedExpander {
	return &CompressedExpander{
		Registry:     reg,
		Reader:       r,
		Ctx:          operator.NewContext(),
		NSubsets:     nSubsets,
		DepthLimit:   DefaultDepthLimit,
		ElementLimit: DefaultElementLimit,
	}
}

func (e *CompressedExpander) expandList(list []descriptor.Descriptor, sinks []Sink) error {
	i := 0
	for i < len(list) {
		d := list[i]
		switch d.Kind() {
		case descriptor.KindElement:
			if err := e.expandElement(d, sinks); err != nil {
				return err
			}
			i++
		case descriptor.KindReplication:
			consumed, err := e.expandReplication(d, list[i+1:], sinks)
			if err != nil {
				return err
			}
			i += 1 + consumed
		case descriptor.KindOperator:
			if err := e.expandOperator(d, sinks); err != nil {
				return err
			}
			i++
		case descriptor.KindSequence:
			if err := e.expandSequence(d, sinks); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

func broadcast(sinks []Sink, ev Event) error {
	for _, s := range sinks {
		if err := s(ev); err != nil {
			return err
		}
	}
	return nil
}

func (e *CompressedExpander) expandElement(d descriptor.Descriptor, sinks []Sink) error {
	if e.elementCount >= e.ElementLimit {
		return ErrElementLimitExceeded
	}
	e.elementCount++

	ed, ok := e.Registry.Element(d.X, d.Y)
	if !ok {
		return UnknownElementError{d.X, d.Y}
	}

	effWidth := e.Ctx.EffectiveWidth(ed.DataWidth)
	if w, ok := e.Ctx.TakeLocalWidthBits(); ok {
		effWidth = w
	}
	effScale := e.Ctx.EffectiveScale(ed.Scale)
	effRef := e.Ctx.EffectiveReference(d.X, d.Y, ed.Reference)
	unit := ed.Unit
	if unit == tables.UnitCCITT_IA5 {
		if w, ok := e.Ctx.TakeCharFieldBits(); ok {
			effWidth = w
		}
	}

	if e.Ctx.ShouldSkip() {
		missing := make([]values.Value, len(sinks))
		for i := range missing {
			missing[i] = values.Missing()
		}
		for i, sink := range sinks {
			ev := Event{
				Kind: EventElement, Descriptor: d,
				EffectiveWidth: effWidth, EffectiveScale: effScale, EffectiveReference: effRef,
				Skip: true,
			}
			if err := sink(ev.WithValue(missing[i])); err != nil {
				return err
			}
		}
		return nil
	}

	assocBits := e.Ctx.AddAssocBits
	group, err := values.ExtractCompressed(e.Reader, effWidth, effScale, effRef, unit, assocBits, e.NSubsets)
	if err != nil {
		return fmt.Errorf("expand: extracting compressed %s: %w", d, err)
	}

	for i, sink := range sinks {
		ev := Event{
			Kind: EventElement, Descriptor: d,
			EffectiveWidth: effWidth, EffectiveScale: effScale, EffectiveReference: effRef,
		}
		if err := sink(ev.WithValue(group.Values[i])); err != nil {
			return err
		}
	}
	return nil
}

func (e *CompressedExpander) expandOperator(d descriptor.Descriptor, sinks []Sink) error {
	if d.X == 5 {
		group, err := values.ExtractCompressed(e.Reader, int(d.Y)*8, 0, 0, tables.UnitCCITT_IA5, 0, e.NSubsets)
		if err != nil {
			return fmt.Errorf("expand: inline compressed character read: %w", err)
		}
		for i, sink := range sinks {
			ev := Event{Kind: EventOperator, Descriptor: d}
			if err := sink(ev.WithValue(group.Values[i])); err != nil {
				return err
			}
		}
		return nil
	}
	if err := e.Ctx.Apply(d.X, d.Y); err != nil {
		return err
	}
	return broadcast(sinks, Event{Kind: EventOperator, Descriptor: d})
}

func (e *CompressedExpander) expandSequence(d descriptor.Descriptor, sinks []Sink) error {
	if e.depth >= e.DepthLimit {
		return ErrRecursionTooDeep
	}
	seq, ok := e.Registry.Sequence(d.X, d.Y)
	if !ok {
		return UnknownSequenceError{d.X, d.Y}
	}
	if err := broadcast(sinks, Event{Kind: EventEnterSequence, Descriptor: d}); err != nil {
		return err
	}
	e.depth++
	err := e.expandList(seq.Children, sinks)
	e.depth--
	if err != nil {
		return err
	}
	return broadcast(sinks, Event{Kind: EventLeaveSequence, Descriptor: d})
}

func (e *CompressedExpander) expandReplication(d descriptor.Descriptor, rest []descriptor.Descriptor, sinks []Sink) (int, error) {
	count := int(d.X)
	consumed := 0
	n := int(d.Y)

	if d.Y == 0 {
		if len(rest) == 0 {
			return 0, fmt.Errorf("expand: delayed replication %s has no following count element", d)
		}
		delayDesc := rest[0]
		ed, ok := e.Registry.Element(delayDesc.X, delayDesc.Y)
		if !ok {
			return 0, UnknownElementError{delayDesc.X, delayDesc.Y}
		}
		group, err := values.ExtractCompressed(e.Reader, ed.DataWidth, ed.Scale, ed.Reference, ed.Unit, 0, e.NSubsets)
		if err != nil {
			return 0, fmt.Errorf("expand: reading compressed delayed count for %s: %w", d, err)
		}
		for _, sink := range sinks {
			ev := Event{Kind: EventElement, Descriptor: delayDesc, EffectiveWidth: ed.DataWidth,
				EffectiveScale: ed.Scale, EffectiveReference: ed.Reference}
			if err := sink(ev.WithValue(group.Values[0])); err != nil {
				return 0, err
			}
		}
		if group.Values[0].Kind != values.KindInteger {
			return 0, fmt.Errorf("expand: delayed count for %s did not decode to an integer", d)
		}
		n = int(group.Values[0].Integer)
		consumed = 1
		rest = rest[1:]
	}

	if len(rest) < count {
		return 0, fmt.Errorf("expand: replication %s needs %d following descriptors, only %d available", d, count, len(rest))
	}
	block := rest[:count]

	if err := broadcast(sinks, Event{Kind: EventEnterReplication, Descriptor: d, ReplicationCount: n}); err != nil {
		return 0, err
	}
	if e.depth >= e.DepthLimit {
		return 0, ErrRecursionTooDeep
	}
	e.depth++
	for k := 1; k <= n; k++ {
		if err := broadcast(sinks, Event{Kind: EventEnterIteration, IterationIndex: k}); err != nil {
			e.depth--
			return 0, err
		}
		if err := e.expandList(block, sinks); err != nil {
			e.depth--
			return 0, err
		}
		if err := broadcast(sinks, Event{Kind: EventLeaveIteration}); err != nil {
			e.depth--
			return 0, err
		}
	}
	e.depth--
	if err := broadcast(sinks, Event{Kind: EventLeaveReplication, Descriptor: d}); err != nil {
		return 0, err
	}

	return consumed + count, nil
}

// Expand walks top once, fanning each element's compressed group out to
// sinks[subset].
func (e *CompressedExpander) Expand(top []descriptor.Descriptor, sinks []Sink) error {
	if len(sinks) != e.NSubsets {
		return fmt.Errorf("expand: %d sinks for %d subsets", len(sinks), e.NSubsets)
	}
	e.depth = 0
	if e.DepthLimit == 0 {
		e.DepthLimit = DefaultDepthLimit
	}
	if e.ElementLimit == 0 {
		e.ElementLimit = DefaultElementLimit
	}
	if err := e.expandList(top, sinks); err != nil {
		return err
	}
	return e.Ctx.Close()
}
