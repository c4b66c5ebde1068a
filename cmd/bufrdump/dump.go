package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/castelao/bufr"
	"github.com/castelao/bufr/internal/descriptor"
	"github.com/castelao/bufr/internal/tables"
	"github.com/castelao/bufr/internal/tree"
	"github.com/castelao/bufr/internal/values"
)

// dumpTree writes a human-readable rendering of msg's subsets to w. When
// showData is true it also dumps section 4's raw bytes before the trees.
func dumpTree(w io.Writer, msg *bufr.Message, reg *tables.Registry, showData bool) {
	fmt.Fprintf(w, "BUFR edition %d, %d byte message\n", msg.Edition, msg.TotalLength)
	fmt.Fprintf(w, "center %d, sub-center %d, category %d/%d/%d, issued %04d-%02d-%02dT%02d:%02d:%02d\n",
		msg.Identification.Center, msg.Identification.SubCenter,
		msg.Identification.DataCategory, msg.Identification.DataSubCategory, msg.Identification.LocalSubCategory,
		msg.Identification.Year, msg.Identification.Month, msg.Identification.Day,
		msg.Identification.Hour, msg.Identification.Minute, msg.Identification.Second)
	fmt.Fprintf(w, "%d subset(s), observed=%v, compressed=%v\n",
		msg.Description.NSubsets, msg.Description.Observed, msg.Description.Compressed)

	if showData {
		fmt.Fprintf(w, "\nsection 4 raw data (%d bytes):\n%s\n", len(msg.RawData), hexDump(msg.RawData))
	}

	for i, subset := range msg.Subsets {
		fmt.Fprintf(w, "\nsubset %d:\n", i)
		for _, n := range subset.Roots {
			dumpNode(w, reg, n, 1)
		}
	}
}

func dumpNode(w io.Writer, reg *tables.Registry, n tree.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Kind {
	case tree.KindLeaf:
		fmt.Fprintf(w, "%s%s %s = %s", indent, n.Descriptor, elementName(reg, n.Descriptor), formatValue(n.Value))
		if n.Skip {
			fmt.Fprint(w, " (skipped)")
		}
		fmt.Fprintln(w)
	case tree.KindSequence:
		fmt.Fprintf(w, "%s%s sequence\n", indent, n.Descriptor)
		for _, c := range n.Children {
			dumpNode(w, reg, c, depth+1)
		}
	case tree.KindReplication:
		fmt.Fprintf(w, "%s%s replication x%d\n", indent, n.Descriptor, n.ReplicationCount)
		for i, iter := range n.Iterations {
			fmt.Fprintf(w, "%s  [%d]\n", indent, i)
			for _, c := range iter {
				dumpNode(w, reg, c, depth+2)
			}
		}
	}
}

func elementName(reg *tables.Registry, d descriptor.Descriptor) string {
	if d.Kind() != descriptor.KindElement {
		return ""
	}
	ed, ok := reg.Element(d.X, d.Y)
	if !ok {
		return "(unknown)"
	}
	return ed.Name
}

func formatValue(v tree.Value) string {
	switch v.Kind {
	case values.KindMissing:
		return "missing"
	case values.KindText:
		return fmt.Sprintf("%q", v.Text)
	case values.KindNumeric:
		return fmt.Sprintf("%g", v.Numeric)
	case values.KindCode:
		return fmt.Sprintf("code %d", v.Code)
	case values.KindFlag:
		return fmt.Sprintf("flag 0x%x", v.Flag)
	default:
		return fmt.Sprintf("%d", v.Integer)
	}
}

func hexDump(data []byte) string {
	var sb strings.Builder
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&sb, "  %06x  % x\n", i, data[i:end])
	}
	return sb.String()
}
