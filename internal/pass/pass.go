// Package pass defines the unit of pipeline work: a named transformation
// from one representation (or a checked set of them) to another.
//
// Passes are constructed through Exact or Cases, which wrap the actual
// transformation with the representation bookkeeping: unwrapping the
// input tag, rejecting unsupported tags with a descriptive error, and
// tagging the output. A pass never coerces silently; every tag it does
// not declare support for fails with ir.MismatchError.
package pass

import (
	"sort"

	"github.com/futlang/futc/internal/ir"
)

// Config is the read-only per-run configuration shared by every pass in a
// pipeline run. It is assembled once before the run starts.
type Config struct {
	// Verbose enables per-pass progress logging.
	Verbose bool

	// Validate re-checks structural program invariants after each pass.
	Validate bool

	// Token is the compilation run token stamped on log lines.
	Token string

	// Log receives progress lines; nil discards them.
	Log func(format string, args ...any)
}

// Logf logs through cfg.Log if set.
func (c Config) Logf(format string, args ...any) {
	if c.Log != nil {
		c.Log(format, args...)
	}
}

// Transform rewrites one program into another. The representation
// bookkeeping has already happened by the time it runs.
type Transform func(Config, ir.Program) (ir.Program, error)

// Pass is a named transformation between tagged values. Name and Short
// are the long and one-letter selector accepted by the pass flag.
type Pass struct {
	Name        string
	Short       string
	Description string
	Run         func(Config, ir.Value) (ir.Value, error)
}

// Exact builds a pass with one declared input tag and one declared output
// tag. Any other input tag fails with ir.MismatchError naming the pass.
func Exact(name, short, desc string, in, out ir.Rep, fn Transform) Pass {
	return Pass{
		Name:        name,
		Short:       short,
		Description: desc,
		Run: func(cfg Config, v ir.Value) (ir.Value, error) {
			prog, err := v.Unwrap(name, in)
			if err != nil {
				return ir.Value{}, err
			}
			res, err := fn(cfg, prog)
			if err != nil {
				return ir.Value{}, err
			}
			return ir.New(out, res), nil
		},
	}
}

// Case is one (input tag -> output tag) arm of a multi-shape pass.
type Case struct {
	Out ir.Rep
	Fn  Transform
}

// Cases builds a pass from a finite set of per-representation cases.
// Behavior is selected by the live tag; a tag outside the declared set
// fails naming the pass and every supported tag.
func Cases(name, short, desc string, cases map[ir.Rep]Case) Pass {
	return Pass{
		Name:        name,
		Short:       short,
		Description: desc,
		Run: func(cfg Config, v ir.Value) (ir.Value, error) {
			c, ok := cases[v.Rep()]
			if !ok {
				return ir.Value{}, &ir.MismatchError{
					Who:      name,
					Expected: supported(cases),
					Actual:   v.Rep(),
				}
			}
			res, err := c.Fn(cfg, v.Program())
			if err != nil {
				return ir.Value{}, err
			}
			return ir.New(c.Out, res), nil
		},
	}
}

func supported(cases map[ir.Rep]Case) []ir.Rep {
	reps := make([]ir.Rep, 0, len(cases))
	for r := range cases {
		reps = append(reps, r)
	}
	sort.Slice(reps, func(i, j int) bool { return reps[i] < reps[j] })
	return reps
}
