package ir

import (
	"fmt"
	"strings"
)

// Value is a program tagged with its current representation. There is at
// most one live Value per pipeline step; passes consume one and produce a
// new one, they never share or mutate a predecessor's payload.
type Value struct {
	rep  Rep
	prog Program
}

// New pairs a program with its representation tag.
//
// The pairing invariant is checked: memory-annotated tags require a
// *MemProg payload and unified tags require a plain *Prog. A mismatch is
// a programmer error in a pass definition, not an input error, so New
// panics rather than returning an error.
func New(rep Rep, prog Program) Value {
	switch prog.(type) {
	case *MemProg:
		if !rep.Mem() {
			panic(fmt.Sprintf("ir.New: %s tag cannot carry a memory program", rep))
		}
	case *Prog:
		if rep.Mem() {
			panic(fmt.Sprintf("ir.New: %s tag requires a memory program", rep))
		}
	default:
		panic(fmt.Sprintf("ir.New: unknown program type %T", prog))
	}
	return Value{rep: rep, prog: prog}
}

// Rep returns the live representation tag.
func (v Value) Rep() Rep { return v.rep }

// Program returns the payload without a representation check. Only fully
// polymorphic consumers should use this; everything else goes through
// Unwrap.
func (v Value) Program() Program { return v.prog }

// Unwrap returns the payload if the live tag is among the expected ones,
// and a *MismatchError naming who asked otherwise.
func (v Value) Unwrap(who string, want ...Rep) (Program, error) {
	for _, r := range want {
		if v.rep == r {
			return v.prog, nil
		}
	}
	return nil, &MismatchError{Who: who, Expected: want, Actual: v.rep}
}

// UnwrapMem is Unwrap for passes that operate on memory-annotated
// programs only. All expected tags must be memory representations.
func (v Value) UnwrapMem(who string, want ...Rep) (*MemProg, error) {
	p, err := v.Unwrap(who, want...)
	if err != nil {
		return nil, err
	}
	return p.(*MemProg), nil
}

// MismatchError reports a tagged value arriving at a pass or action that
// does not support its representation.
type MismatchError struct {
	Who      string // pass or action name
	Expected []Rep
	Actual   Rep
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s expects %s representation, but got %s",
		e.Who, repNames(e.Expected), e.Actual)
}

func repNames(reps []Rep) string {
	if len(reps) == 1 {
		return reps[0].String()
	}
	names := make([]string, len(reps))
	for i, r := range reps {
		names[i] = r.String()
	}
	return "one of " + strings.Join(names, ", ")
}
