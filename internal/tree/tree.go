// Package tree implements C6, the value tree assembler: it consumes the
// linear event stream emitted by the descriptor expander and folds it into
// a hierarchical ValueTree via a small explicit stack of node-accumulator
// frames, pushed on Enter* events and popped on Leave*.
package tree

import (
	"fmt"

	"github.com/castelao/bufr/internal/descriptor"
	"github.com/castelao/bufr/internal/expand"
	"github.com/castelao/bufr/internal/values"
)

// Kind discriminates the Node union.
type Kind uint8

const (
	KindLeaf Kind = iota
	KindSequence
	KindReplication
)

// Node is one entry in a ValueTree: a Leaf carries a decoded Value, a
// Sequence carries its expanded children in source order, and a
// Replication carries one child list per iteration.
type Node struct {
	Kind       Kind
	Descriptor descriptor.Descriptor

	Value Value // KindLeaf only
	Skip  bool  // KindLeaf only: true under an active op-21 block

	Children []Node // KindSequence only

	ReplicationCount int      // KindReplication only: the resolved factor
	Iterations       [][]Node // KindReplication only: one inner list per iteration
}

// Value is an alias for the extractor's decoded value type, re-exported so
// callers walking a ValueTree need not import internal/values directly.
type Value = values.Value

// ValueTree is the assembled output for a single subset.
type ValueTree struct {
	Roots []Node
}

type frameKind uint8

const (
	frameRoot frameKind = iota
	frameSequence
	frameReplication
)

type frame struct {
	kind       frameKind
	desc       descriptor.Descriptor
	nodes      []Node   // root/sequence: accumulated children
	iterations [][]Node // replication: completed iterations
	current    []Node   // replication: the iteration under construction
	repCount   int
}

// append adds a completed node to the frame currently accumulating
// children: the replication frame's in-progress iteration if the frame is
// a replication, otherwise its node list directly.
func (f *frame) append(n Node) {
	if f.kind == frameReplication {
		f.current = append(f.current, n)
	} else {
		f.nodes = append(f.nodes, n)
	}
}

// Builder assembles one ValueTree by consuming expand.Event values as an
// expand.Sink. A Builder is single-use: call NewBuilder per subset.
type Builder struct {
	stack []*frame
}

// NewBuilder returns a Builder ready to receive the event stream for one
// subset.
func NewBuilder() *Builder {
	return &Builder{stack: []*frame{{kind: frameRoot}}}
}

// Sink returns the expand.Sink callback to pass to Expander.Expand.
func (b *Builder) Sink() expand.Sink {
	return b.handle
}

func (b *Builder) top() *frame {
	return b.stack[len(b.stack)-1]
}

func (b *Builder) handle(ev expand.Event) error {
	switch ev.Kind {
	case expand.EventEnterSequence:
		b.stack = append(b.stack, &frame{kind: frameSequence, desc: ev.Descriptor})

	case expand.EventLeaveSequence:
		f := b.top()
		if f.kind != frameSequence {
			return fmt.Errorf("tree: LeaveSequence with no matching frame")
		}
		b.stack = b.stack[:len(b.stack)-1]
		b.top().append(Node{Kind: KindSequence, Descriptor: f.desc, Children: f.nodes})

	case expand.EventEnterReplication:
		b.stack = append(b.stack, &frame{
			kind: frameReplication, desc: ev.Descriptor, repCount: ev.ReplicationCount,
		})

	case expand.EventEnterIteration:
		f := b.top()
		if f.kind != frameReplication {
			return fmt.Errorf("tree: EnterIteration with no matching replication frame")
		}
		f.current = nil

	case expand.EventLeaveIteration:
		f := b.top()
		if f.kind != frameReplication {
			return fmt.Errorf("tree: LeaveIteration with no matching replication frame")
		}
		f.iterations = append(f.iterations, f.current)
		f.current = nil

	case expand.EventLeaveReplication:
		f := b.top()
		if f.kind != frameReplication {
			return fmt.Errorf("tree: LeaveReplication with no matching frame")
		}
		b.stack = b.stack[:len(b.stack)-1]
		b.top().append(Node{
			Kind: KindReplication, Descriptor: f.desc,
			ReplicationCount: f.repCount, Iterations: f.iterations,
		})

	case expand.EventElement:
		if !ev.HasValue() {
			return nil
		}
		b.top().append(Node{Kind: KindLeaf, Descriptor: ev.Descriptor, Value: ev.Value(), Skip: ev.Skip})

	case expand.EventOperator:
		// Only the inline op-05 "signify character" read carries a value;
		// every other operator mutates state without contributing a node.
		if ev.HasValue() {
			b.top().append(Node{Kind: KindLeaf, Descriptor: ev.Descriptor, Value: ev.Value()})
		}

	case expand.EventAssociated:
		// Informational only: the associated bits are already attached to
		// the following element's Value.Associated by the extractor.
	}
	return nil
}

// Tree finalizes the builder and returns the assembled ValueTree. The
// Builder must not be reused after calling Tree.
func (b *Builder) Tree() (ValueTree, error) {
	if len(b.stack) != 1 || b.stack[0].kind != frameRoot {
		return ValueTree{}, fmt.Errorf("tree: unbalanced event stream: %d open frame(s)", len(b.stack))
	}
	return ValueTree{Roots: b.stack[0].nodes}, nil
}
