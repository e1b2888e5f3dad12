package ir

import "fmt"

// Check verifies structural well-formedness of a program: functions are
// uniquely named, every statement has a destination and an operation, and
// no destination is bound twice within one function. The pipeline
// executor runs this between passes when validation is enabled.
func Check(p Program) error {
	var funs []Fun
	switch prog := p.(type) {
	case *Prog:
		funs = prog.Funs
	case *MemProg:
		funs = prog.Funs
		for _, a := range prog.Allocs {
			if a.Name == "" || a.Space == "" {
				return fmt.Errorf("malformed allocation %+v", a)
			}
		}
	default:
		return fmt.Errorf("unknown program type %T", p)
	}

	names := map[string]bool{}
	for _, f := range funs {
		if f.Name == "" {
			return fmt.Errorf("function with empty name")
		}
		if names[f.Name] {
			return fmt.Errorf("function %q defined twice", f.Name)
		}
		names[f.Name] = true

		bound := map[string]bool{}
		for _, s := range f.Body {
			if s.Dest == "" || s.Op == "" {
				return fmt.Errorf("%s: malformed statement %+v", f.Name, s)
			}
			if bound[s.Dest] {
				return fmt.Errorf("%s: %q bound twice", f.Name, s.Dest)
			}
			bound[s.Dest] = true
		}
	}
	return nil
}
