// Package pipeline composes passes into ordered sequences and executes
// them over a tagged program value.
//
// A Pipeline is immutable: Then returns a new pipeline rather than
// mutating the receiver, so presets can be shared and extended freely.
// Order is significant and preserved exactly as assembled.
package pipeline

import (
	"fmt"
	"time"

	"github.com/futlang/futc/internal/ir"
	"github.com/futlang/futc/internal/pass"
)

// Pipeline is an ordered, possibly empty sequence of passes.
type Pipeline struct {
	passes []pass.Pass
}

// New builds a pipeline from the given passes, in order.
func New(passes ...pass.Pass) Pipeline {
	return Pipeline{passes: append([]pass.Pass(nil), passes...)}
}

// Then returns a new pipeline with the given passes appended.
func (p Pipeline) Then(passes ...pass.Pass) Pipeline {
	combined := make([]pass.Pass, 0, len(p.passes)+len(passes))
	combined = append(combined, p.passes...)
	combined = append(combined, passes...)
	return Pipeline{passes: combined}
}

// Passes returns a copy of the pass sequence.
func (p Pipeline) Passes() []pass.Pass {
	return append([]pass.Pass(nil), p.passes...)
}

// Len returns the number of passes.
func (p Pipeline) Len() int { return len(p.passes) }

// Run folds the pipeline over v, left to right. Each pass receives the
// current tagged value and the shared read-only configuration. The first
// failing pass aborts the whole run; there are no partial results. An
// empty pipeline returns v unchanged.
func Run(cfg pass.Config, p Pipeline, v ir.Value) (ir.Value, error) {
	for _, ps := range p.passes {
		cfg.Logf("[%s] running pass %s (%s)", cfg.Token, ps.Name, v.Rep())
		start := time.Now()

		next, err := ps.Run(cfg, v)
		if err != nil {
			return ir.Value{}, err
		}
		cfg.Logf("[%s] pass %s done in %s", cfg.Token, ps.Name, time.Since(start).Round(time.Microsecond))
		if cfg.Validate {
			if err := ir.Check(next.Program()); err != nil {
				return ir.Value{}, fmt.Errorf("after pass %s: %w", ps.Name, err)
			}
		}
		v = next
	}
	return v, nil
}
