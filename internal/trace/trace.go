// Package trace implements a tracing-interpreter hook for the IR: every
// op execution can emit a trace Item, formatted with nested-argument
// flattening the way pykit's ir/tracing.py describes (it wraps
// pykit.utils.nestedmap over each op's argument tree before printing).
// A DummyTracer costs nothing when tracing is disabled.
package trace

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/hassan/pykit/internal/ir"
)

// Kind tags which event an Item records.
type Kind int

const (
	Call Kind = iota
	OpExec
	Res
	Ret
	Exc
)

func (k Kind) String() string {
	switch k {
	case Call:
		return "call"
	case OpExec:
		return "op"
	case Res:
		return "res"
	case Ret:
		return "ret"
	case Exc:
		return "exc"
	default:
		return "?"
	}
}

// Item is one recorded trace event.
type Item struct {
	Kind  Kind
	Fn    string
	Op    *ir.Op
	Value interface{}
}

// Tracer records Items as they occur and can format them for inspection.
type Tracer interface {
	Trace(Item)
	Items() []Item
}

// DummyTracer discards every item — the zero-cost default, matching
// pykit's DummyTracer/Tracer split so hot interpretation loops don't pay
// for formatting when nobody asked for a trace.
type DummyTracer struct{}

func (DummyTracer) Trace(Item)     {}
func (DummyTracer) Items() []Item { return nil }

// RecordingTracer accumulates every item it's given, in order.
type RecordingTracer struct {
	items []Item
}

func NewRecordingTracer() *RecordingTracer { return &RecordingTracer{} }

func (t *RecordingTracer) Trace(it Item)   { t.items = append(t.items, it) }
func (t *RecordingTracer) Items() []Item { return t.items }

// Format renders an Item the way a human-readable execution trace would:
// "call foo", "  op t3 = add(t1, t2)", "res <nested args flattened>",
// etc., indented by depth (one call frame = one indent level, per
// §4.G's "indentation tracking call depth") — see FormatAll, which
// tracks depth across a whole Item stream. Nested argument structures
// (e.g. Const literals holding slices/maps) are flattened with spew's
// Sdump-style recursion instead of Go's default %v, matching pykit's
// nestedmap-based formatter.
func Format(it Item, depth int) string {
	indent := strings.Repeat("  ", depth)
	switch it.Kind {
	case Call:
		return fmt.Sprintf("%scall %s", indent, it.Fn)
	case OpExec:
		return fmt.Sprintf("%sop %s", indent, it.Op)
	case Ret:
		return fmt.Sprintf("%sret %s", indent, formatNested(it.Value))
	case Exc:
		return fmt.Sprintf("%sexc %s", indent, formatNested(it.Value))
	default:
		return fmt.Sprintf("%sres %s", indent, formatNested(it.Value))
	}
}

// formatNested recursively flattens a []interface{} value, joining its
// formatted elements with spaces inside brackets; nil prints as "<nil>",
// and any other value (including other slice, map and struct types) is
// rendered with spew.Sdump, trimmed — the Go analogue of pykit's
// nestedmap walk over an op's (possibly nested) argument tree.
func formatNested(value interface{}) string {
	switch v := value.(type) {
	case []interface{}:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = formatNested(x)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case nil:
		return "<nil>"
	default:
		return strings.TrimSpace(spew.Sdump(v))
	}
}

// FormatAll renders every recorded item on its own line, tracking call
// depth across the stream: a Call indents everything until its matching
// Ret or Exc, which itself prints at the depth it's closing rather than
// the nested one.
func FormatAll(items []Item) string {
	lines := make([]string, len(items))
	depth := 0
	for i, it := range items {
		if it.Kind == Ret || it.Kind == Exc {
			if depth > 0 {
				depth--
			}
		}
		lines[i] = Format(it, depth)
		if it.Kind == Call {
			depth++
		}
	}
	return strings.Join(lines, "\n")
}
