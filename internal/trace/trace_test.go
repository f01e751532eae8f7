package trace

import (
	"strings"
	"testing"

	"github.com/hassan/pykit/internal/ir"
)

func TestRecordingTracerPreservesOrder(t *testing.T) {
	tr := NewRecordingTracer()
	tr.Trace(Item{Kind: Call, Fn: "f"})
	tr.Trace(Item{Kind: Ret, Value: int64(42)})

	items := tr.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Kind != Call || items[1].Kind != Ret {
		t.Fatalf("expected [Call, Ret], got %v", items)
	}
}

func TestFormatFlattensNestedValues(t *testing.T) {
	out := Format(Item{Kind: Ret, Value: []interface{}{int64(1), int64(2)}}, 0)
	if !strings.HasPrefix(out, "ret ") {
		t.Fatalf("expected a ret-prefixed line, got %q", out)
	}
	if !strings.Contains(out, "1") || !strings.Contains(out, "2") {
		t.Fatalf("expected flattened nested values in output, got %q", out)
	}
}

func TestDummyTracerDiscardsEverything(t *testing.T) {
	var tr Tracer = DummyTracer{}
	tr.Trace(Item{Kind: Call})
	if len(tr.Items()) != 0 {
		t.Fatal("DummyTracer should never retain items")
	}
}

func TestFormatOpItem(t *testing.T) {
	op := &ir.Op{Opcode: ir.OpRet}
	out := Format(Item{Kind: OpExec, Op: op}, 0)
	if !strings.Contains(out, "ret") {
		t.Fatalf("expected op formatting to include opcode, got %q", out)
	}
}

func TestFormatAllIndentsByCallDepth(t *testing.T) {
	tr := NewRecordingTracer()
	tr.Trace(Item{Kind: Call, Fn: "outer"})
	tr.Trace(Item{Kind: Call, Fn: "inner"})
	tr.Trace(Item{Kind: Ret, Value: int64(1)})
	tr.Trace(Item{Kind: Ret, Value: int64(2)})

	lines := strings.Split(FormatAll(tr.Items()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if strings.HasPrefix(lines[0], " ") {
		t.Fatalf("expected the outer call at depth 0, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  call") {
		t.Fatalf("expected the inner call indented one level, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "  ret") {
		t.Fatalf("expected inner's ret at the inner call's depth, got %q", lines[2])
	}
	if strings.HasPrefix(lines[3], " ") {
		t.Fatalf("expected outer's ret back at depth 0, got %q", lines[3])
	}
}
