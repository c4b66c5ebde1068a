// Package bufr implements a decoder for the WMO FM 94 BUFR format.
//
// BUFR (Binary Universal Form for the Representation of meteorological
// data) is a self-describing, table-driven, bit-packed binary encoding
// used to transport meteorological and oceanographic observations. A
// message is a sequence of six framed sections (Indicator, Identification,
// optional Local-Use, Data-Description, Data, End) containing a program of
// descriptors that dictate how to interpret a trailing bit stream of
// observation values. This package implements BUFR edition 4 decoding
// without any CGo dependencies.
//
// The package supports:
//   - Section framing and validation (sections 0-5)
//   - The descriptor expansion engine: replication (fixed and delayed),
//     operators, and recursive sequence inlining
//   - Table B/Table D catalogue loading, with an embedded default
//     catalogue and support for loading local or updated tables
//   - Uncompressed and compressed subset decoding
//   - Assembly of each subset into a hierarchical value tree
//
// Basic usage for decoding:
//
//	msg, err := bufr.Decode(reader)
//	for _, subset := range msg.Subsets {
//	    for _, node := range subset.Roots {
//	        // walk node.Kind, node.Value, node.Children, node.Iterations
//	    }
//	}
package bufr
