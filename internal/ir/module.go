package ir

import (
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/hassan/pykit/internal/irerrors"
)

// Module is an ordered collection of Function definitions, addressable
// by name, plus module-level Globals. ID is a process-unique identifier
// useful for correlating a module across diagnostics or a multi-module
// build (e.g. tagging trace output with which module an op came from).
type Module struct {
	Name      string
	ID        string
	Functions []*Function
	Globals   []*Value

	byName map[string]*Function
}

// NewModule creates an empty module with a fresh ID.
func NewModule(name string) *Module {
	return &Module{Name: name, ID: uuid.NewString(), byName: make(map[string]*Function)}
}

// AddFunction appends fn to the module, addressable by fn.Name.
func (m *Module) AddFunction(fn *Function) {
	if m.byName == nil {
		m.byName = make(map[string]*Function)
	}
	m.Functions = append(m.Functions, fn)
	m.byName[fn.Name] = fn
}

// Lookup returns the function named name, or nil.
func (m *Module) Lookup(name string) *Function { return m.byName[name] }

// AddGlobal declares a module-level global value.
func (m *Module) AddGlobal(v *Value) { m.Globals = append(m.Globals, v) }

// Verify checks every function in the module for the structural
// invariants §4.B requires: each block ends in exactly one terminator,
// phi ops are confined to each block's leader prefix and have arity
// matching the block's predecessor count, and no op references a Value
// that nothing in the function defines. Verify is purely diagnostic: it
// never mutates the module, matching pykit's own verify().
func (m *Module) Verify() error {
	var errs []error
	for _, fn := range m.Functions {
		errs = append(errs, VerifyFunction(fn)...)
	}
	return multierr.Combine(errs...)
}

// VerifyFunction runs Module.Verify's checks against a single function.
func VerifyFunction(fn *Function) []error {
	var errs []error

	defined := make(map[*Value]bool, len(fn.Params))
	for _, p := range fn.Params {
		defined[p] = true
	}
	for _, b := range fn.Blocks {
		for _, op := range b.Ops {
			if op.Result != nil {
				defined[op.Result] = true
			}
		}
	}

	for _, b := range fn.Blocks {
		if !b.IsTerminated() {
			errs = append(errs, irerrors.New(irerrors.MalformedIR, "ir.VerifyFunction", "%s: block %q has no terminator", fn.Name, b.Name))
		}

		sawNonPhi := false
		for _, op := range b.Ops {
			if op.Opcode == OpPhi {
				if sawNonPhi {
					errs = append(errs, irerrors.New(irerrors.MalformedIR, "ir.VerifyFunction", "%s: block %q has phi %s after a non-phi op", fn.Name, b.Name, op.Result))
				}
				if len(op.Phi.Preds) != len(op.Phi.Values) {
					errs = append(errs, irerrors.New(irerrors.MalformedIR, "ir.VerifyFunction", "%s: phi %s has %d preds but %d values", fn.Name, op.Result, len(op.Phi.Preds), len(op.Phi.Values)))
				}
				if len(op.Phi.Preds) != len(b.Preds) {
					errs = append(errs, irerrors.New(irerrors.MalformedIR, "ir.VerifyFunction", "%s: phi %s has arity %d, block %q has %d predecessors", fn.Name, op.Result, len(op.Phi.Preds), b.Name, len(b.Preds)))
				}
			} else {
				sawNonPhi = true
			}

			for i, use := range op.Operands() {
				if use == nil {
					errs = append(errs, irerrors.New(irerrors.MalformedIR, "ir.VerifyFunction", "%s: op %s has a nil operand at index %d", fn.Name, op, i))
					continue
				}
				if use.Kind == ValueOpResult && !defined[use] {
					errs = append(errs, irerrors.New(irerrors.MalformedIR, "ir.VerifyFunction", "%s: op %s references undefined value %s", fn.Name, op, use))
				}
			}

			if op.Block != b {
				errs = append(errs, irerrors.New(irerrors.MalformedIR, "ir.VerifyFunction", "%s: op %s has stale Block pointer", fn.Name, op))
			}
		}
	}

	return errs
}
