// Command pykit is a small demonstration CLI driving the toolkit's
// pipeline end to end: build a sample function with irbuilder, verify
// it, run SCCP to a fixpoint, destroy SSA form with reg2mem, and print
// the result. Modeled on the teacher's cmd/compiler/main.go pipeline
// shape (build -> verify -> optimize -> verify -> print) but with no
// front end to lex or parse — the function is built directly.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/hassan/pykit/internal/ir"
	"github.com/hassan/pykit/internal/irbuilder"
	"github.com/hassan/pykit/internal/reg2mem"
	"github.com/hassan/pykit/internal/sccp"
	"github.com/hassan/pykit/internal/types"
)

var log = logrus.New()

func main() {
	verbose := flag.Bool("v", false, "enable verbose pass logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	mod := buildSample()

	if err := mod.Verify(); err != nil {
		log.WithError(err).Fatal("module failed verification before optimization")
	}

	fn := mod.Lookup("sample")
	runToFixpoint(fn)

	if err := mod.Verify(); err != nil {
		log.WithError(err).Fatal("module failed verification after SCCP")
	}

	if err := reg2mem.Run(fn); err != nil {
		log.WithError(err).Fatal("reg2mem rejected the function")
	}

	if err := mod.Verify(); err != nil {
		log.WithError(err).Fatal("module failed verification after reg2mem")
	}

	fmt.Fprint(os.Stdout, fn.String())
}

func runToFixpoint(fn *ir.Function) {
	for i := 0; ; i++ {
		result := sccp.Analyze(fn)
		n := sccp.Rewrite(fn, result)
		log.WithFields(logrus.Fields{"iteration": i, "changed": n}).Debug("sccp pass")
		if n == 0 {
			return
		}
	}
}

// buildSample constructs:
//
//	func sample():
//	  entry:
//	    t0 = add(Const(2), Const(3))
//	    t1 = mul(t0, Const(4))
//	    ret t1
//
// a minimal straight-line function whose value folds entirely to a
// constant under SCCP, demonstrating the pipeline without needing an
// input program to lex or parse.
func buildSample() *ir.Module {
	mod := ir.NewModule("pykit-demo")

	sig := types.NewFunction(types.Int32, nil, false)
	fn := ir.NewFunction("sample", sig)
	mod.AddFunction(fn)

	entry := fn.NewBlock("entry", nil)
	b := irbuilder.New(fn)
	b.PositionAtEnd(entry)

	two := ir.NewConst(types.Int32, int64(2))
	three := ir.NewConst(types.Int32, int64(3))
	four := ir.NewConst(types.Int32, int64(4))

	t0 := b.Binary(ir.OpAdd, types.Int32, two, three)
	t1 := b.Binary(ir.OpMul, types.Int32, t0, four)
	b.Ret(t1)

	return mod
}
