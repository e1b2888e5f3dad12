// Package action defines the terminal consumers of a pipelined program
// and the dispatcher that matches them against the final tagged value.
//
// An action either declares exactly which representations it accepts, or
// accepts any representation by operating through the ir.Program
// capability surface only. Exactly one action runs per compiler
// invocation; the default is the polymorphic print action.
package action

import (
	"fmt"
	"io"

	"github.com/futlang/futc/internal/ir"
)

// Config carries what actions need at run time. Like the pass
// configuration it is assembled before the run and read-only after.
type Config struct {
	// Out receives the action's primary output.
	Out io.Writer

	// PrintAST makes the print action emit the serialized tree instead
	// of the pretty-printed form.
	PrintAST bool

	// SafeMode refuses to emit code for statements marked unsafe.
	SafeMode bool

	// EntryPoints are the additional entry point names kept alive by
	// the emitters.
	EntryPoints []string

	// Log receives progress lines; nil discards them.
	Log func(format string, args ...any)
}

// Logf logs through cfg.Log if set.
func (c Config) Logf(format string, args ...any) {
	if c.Log != nil {
		c.Log(format, args...)
	}
}

// Action is a terminal consumer of a tagged program value.
type Action struct {
	// Name identifies the action in flags and diagnostics.
	Name string

	Description string

	// Reps lists the accepted representations. Nil means the action is
	// fully polymorphic and accepts any tag.
	Reps []ir.Rep

	// Run consumes the unwrapped payload. base is the input file's base
	// name without extension, for actions that write output files.
	Run func(cfg Config, prog ir.Program, base string) error
}

// MismatchError reports an action receiving a final value whose
// representation it does not accept.
type MismatchError struct {
	Action   string
	Expected []ir.Rep
	Actual   ir.Rep
}

func (e *MismatchError) Error() string {
	names := make([]string, len(e.Expected))
	for i, r := range e.Expected {
		names[i] = r.String()
	}
	expected := names[0]
	if len(names) > 1 {
		expected = "one of " + joinNames(names)
	}
	return fmt.Sprintf("action %s expects %s representation, but got %s",
		e.Action, expected, e.Actual)
}

func joinNames(names []string) string {
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}

// Dispatch matches the final tagged value against the action and invokes
// it. Representation-specific actions must match the live tag exactly;
// polymorphic actions always run. Dispatch never drops a value silently:
// it either invokes the action or fails with *MismatchError.
func Dispatch(cfg Config, act Action, v ir.Value, base string) error {
	cfg.Logf("running action %s", act.Name)

	if len(act.Reps) > 0 {
		accepted := false
		for _, r := range act.Reps {
			if v.Rep() == r {
				accepted = true
				break
			}
		}
		if !accepted {
			return &MismatchError{Action: act.Name, Expected: act.Reps, Actual: v.Rep()}
		}
	}

	if err := act.Run(cfg, v.Program(), base); err != nil {
		return err
	}
	cfg.Logf("action %s done", act.Name)
	return nil
}
