// Package expand walks a top-level descriptor program and emits a
// linearized event stream: structural frames for sequences and
// replication, plus one Element event per value to be extracted.
// Operator descriptors update state and emit no value, except the inline
// op-05 character read, whose operator event carries the text read.
package expand

import (
	"github.com/castelao/bufr/internal/descriptor"
	"github.com/castelao/bufr/internal/values"
)

// EventKind discriminates the Event union.
type EventKind uint8

const (
	EventEnterSequence EventKind = iota
	EventLeaveSequence
	EventEnterReplication
	EventEnterIteration
	EventLeaveIteration
	EventLeaveReplication
	EventElement
	EventOperator
	EventAssociated
)

// Event is one entry in the linearized expansion stream.
type Event struct {
	Kind EventKind

	Descriptor descriptor.Descriptor // valid for all kinds except EventAssociated, EventEnterIteration and EventLeaveIteration

	// ReplicationCount is the resolved factor for EventEnterReplication.
	ReplicationCount int
	// IterationIndex is the 1-based iteration number for EventEnterIteration.
	IterationIndex int

	// EffectiveWidth/Scale/Reference are valid for EventElement, after
	// OperatorContext has been applied on top of the Table B row.
	EffectiveWidth     int
	EffectiveScale     int
	EffectiveReference int64
	// Skip marks an element expanded (for program-structure purposes) but
	// not read for value extraction, under an active op-21 block.
	Skip bool

	// AssociatedBits is valid for EventAssociated: read this many bits as
	// an associated field immediately before the following element.
	AssociatedBits int

	// value holds the decoded Value for EventElement (and the inline
	// op-05 character read under EventOperator). Unexported: read it with
	// Value(), which returns the zero Value for events that carry none;
	// HasValue tells the two cases apart.
	value values.Value
	hasValue bool
}

// Value returns the decoded value carried by an EventElement (or an
// EventOperator produced by an inline op-05 character read).
func (e Event) Value() values.Value {
	return e.value
}

// HasValue reports whether Value is meaningful for this event.
func (e Event) HasValue() bool {
	return e.hasValue
}

// WithValue returns a copy of e carrying v, with HasValue reporting true.
// Used by the expander when it has a decoded value to attach, and by tests
// building events directly without an Expander.
func (e Event) WithValue(v values.Value) Event {
	e.value = v
	e.hasValue = true
	return e
}

// Sink receives events as the expander produces them. Returning an error
// aborts expansion.
type Sink func(Event) error
