package expand

import (
	"errors"
	"fmt"

	"github.com/castelao/bufr/internal/bitio"
	"github.com/castelao/bufr/internal/descriptor"
	"github.com/castelao/bufr/internal/operator"
	"github.com/castelao/bufr/internal/tables"
	"github.com/castelao/bufr/internal/values"
)

// Error kinds raised during expansion.
var (
	ErrRecursionTooDeep    = errors.New("expand: recursion too deep")
	ErrElementLimitExceeded = errors.New("expand: element limit exceeded")
)

// UnknownElementError reports a Table B lookup miss during expansion.
type UnknownElementError struct{ X, Y uint8 }

func (e UnknownElementError) Error() string {
	return fmt.Sprintf("expand: unknown element (0,%d,%d)", e.X, e.Y)
}

// UnknownSequenceError reports a Table D lookup miss during expansion.
type UnknownSequenceError struct{ X, Y uint8 }

func (e UnknownSequenceError) Error() string {
	return fmt.Sprintf("expand: unknown sequence (3,%d,%d)", e.X, e.Y)
}

const (
	DefaultDepthLimit   = 20
	DefaultElementLimit = 1_000_000
)

// Expander walks a descriptor program once, driven by the registry and an
// OperatorContext, and reports events to a Sink. It owns the bit reader
// because a handful of operators (delayed replication counts, the 203
// new-reference block, the 05 inline character read) require reading bits
// during expansion itself rather than strictly afterward — the expansion
// and value-extraction stages are only cleanly separable for the common
// element case, not for these.
type Expander struct {
	Registry *tables.Registry
	Reader   *bitio.Reader
	Ctx      *operator.Context

	DepthLimit   int
	ElementLimit int

	depth        int
	elementCount int
}

// NewExpander constructs an Expander with the default depth and element
// ceilings.
func NewExpander(reg *tables.Registry, r *bitio.Reader) *Expander {
	return &Expander{
		Registry:     reg,
		Reader:       r,
		Ctx:          operator.NewContext(),
		DepthLimit:   DefaultDepthLimit,
		ElementLimit: DefaultElementLimit,
	}
}

// Expand walks top, a top-level descriptor program, emitting events to
// sink. It is safe to call repeatedly against the same continuing Reader:
// uncompressed messages replay the descriptor program once per subset
// against one unbroken bit cursor.
func (e *Expander) Expand(top []descriptor.Descriptor, sink Sink) error {
	e.depth = 0
	if err := e.expandList(top, sink); err != nil {
		return err
	}
	return e.Ctx.Close()
}

func (e *Expander) expandList(list []descriptor.Descriptor, sink Sink) error {
	i := 0
	for i < len(list) {
		d := list[i]
		switch d.Kind() {
		case descriptor.KindElement:
			if err := e.expandElement(d, sink); err != nil {
				return err
			}
			i++

		case descriptor.KindReplication:
			consumed, err := e.expandReplication(d, list[i+1:], sink)
			if err != nil {
				return err
			}
			i += 1 + consumed

		case descriptor.KindOperator:
			if err := e.expandOperator(d, sink); err != nil {
				return err
			}
			i++

		case descriptor.KindSequence:
			if err := e.expandSequence(d, sink); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

func (e *Expander) expandElement(d descriptor.Descriptor, sink Sink) error {
	if e.elementCount >= e.ElementLimit {
		return ErrElementLimitExceeded
	}
	e.elementCount++

	ed, ok := e.Registry.Element(d.X, d.Y)
	if !ok {
		return UnknownElementError{d.X, d.Y}
	}

	// 203 new-reference block: this read defines rather than consumes a
	// normal element value.
	if w, active := e.Ctx.DefiningReference(); active {
		raw, err := e.Reader.ReadUint(w)
		if err != nil {
			return fmt.Errorf("expand: reading new-reference definition for %s: %w", d, err)
		}
		e.Ctx.SetOverride(d.X, d.Y, int64(raw))
		return nil
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
		ev := Event{
			Kind:               EventElement,
			Descriptor:         d,
			EffectiveWidth:     effWidth,
			EffectiveScale:     effScale,
			EffectiveReference: effRef,
			Skip:               true,
		}
		return sink(ev.WithValue(values.Missing()))
	}

	assocBits := e.Ctx.AddAssocBits
	if assocBits > 0 {
		if err := sink(Event{Kind: EventAssociated, AssociatedBits: assocBits}); err != nil {
			return err
		}
	}

	val, err := values.Extract(e.Reader, effWidth, effScale, effRef, unit, assocBits)
	if err != nil {
		return fmt.Errorf("expand: extracting %s: %w", d, err)
	}

	ev := Event{
		Kind:               EventElement,
		Descriptor:         d,
		EffectiveWidth:     effWidth,
		EffectiveScale:     effScale,
		EffectiveReference: effRef,
	}
	return sink(ev.WithValue(val))
}

func (e *Expander) expandOperator(d descriptor.Descriptor, sink Sink) error {
	if d.X == 5 {
		// Signify character: inline CCITT-IA5 read of Y bytes, no state change.
		val, err := values.Extract(e.Reader, int(d.Y)*8, 0, 0, tables.UnitCCITT_IA5, 0)
		if err != nil {
			return fmt.Errorf("expand: inline character read: %w", err)
		}
		ev := Event{Kind: EventOperator, Descriptor: d}
		return sink(ev.WithValue(val))
	}
	if err := e.Ctx.Apply(d.X, d.Y); err != nil {
		return err
	}
	return sink(Event{Kind: EventOperator, Descriptor: d})
}

func (e *Expander) expandSequence(d descriptor.Descriptor, sink Sink) error {
	if e.depth >= e.DepthLimit {
		return ErrRecursionTooDeep
	}
	seq, ok := e.Registry.Sequence(d.X, d.Y)
	if !ok {
		return UnknownSequenceError{d.X, d.Y}
	}
	if err := sink(Event{Kind: EventEnterSequence, Descriptor: d}); err != nil {
		return err
	}
	e.depth++
	err := e.expandList(seq.Children, sink)
	e.depth--
	if err != nil {
		return err
	}
	return sink(Event{Kind: EventLeaveSequence, Descriptor: d})
}

// expandReplication handles F=1, returning the number of list entries
// (beyond the replication descriptor itself) it consumed: either X (fixed)
// or 1+X when a delayed-count element precedes the block.
func (e *Expander) expandReplication(d descriptor.Descriptor, rest []descriptor.Descriptor, sink Sink) (int, error) {
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
		val, err := values.Extract(e.Reader, ed.DataWidth, ed.Scale, ed.Reference, ed.Unit, 0)
		if err != nil {
			return 0, fmt.Errorf("expand: reading delayed count for %s: %w", d, err)
		}
		delayEv := Event{Kind: EventElement, Descriptor: delayDesc, EffectiveWidth: ed.DataWidth,
			EffectiveScale: ed.Scale, EffectiveReference: ed.Reference}
		if err := sink(delayEv.WithValue(val)); err != nil {
			return 0, err
		}
		if val.Kind != values.KindInteger {
			return 0, fmt.Errorf("expand: delayed count for %s did not decode to an integer", d)
		}
		n = int(val.Integer)
		consumed = 1
		rest = rest[1:]
	}

	if len(rest) < count {
		return 0, fmt.Errorf("expand: replication %s needs %d following descriptors, only %d available", d, count, len(rest))
	}
	block := rest[:count]

	if err := sink(Event{Kind: EventEnterReplication, Descriptor: d, ReplicationCount: n}); err != nil {
		return 0, err
	}
	if e.depth >= e.DepthLimit {
		return 0, ErrRecursionTooDeep
	}
	e.depth++
	for k := 1; k <= n; k++ {
		if err := sink(Event{Kind: EventEnterIteration, IterationIndex: k}); err != nil {
			e.depth--
			return 0, err
		}
		if err := e.expandList(block, sink); err != nil {
			e.depth--
			return 0, err
		}
		if err := sink(Event{Kind: EventLeaveIteration}); err != nil {
			e.depth--
			return 0, err
		}
	}
	e.depth--
	if err := sink(Event{Kind: EventLeaveReplication, Descriptor: d}); err != nil {
		return 0, err
	}

	return consumed + count, nil
}
