package frontend

import (
	"fmt"
	"strings"
)

// builtins maps the built-in operations to their arities. Calls to these
// bypass function resolution in both the checker and the internaliser.
var builtins = map[string]int{
	"map":       2,
	"reduce":    2,
	"scan":      2,
	"iota":      1,
	"replicate": 2,
	"length":    1,
	"concat":    2,
	"index":     2,
	"update":    3,
	"add":       2,
	"sub":       2,
	"mul":       2,
	"div":       2,
	"id":        1,
}

// CheckError reports an ill-typed surface program. Every collected
// problem is listed, one per line.
type CheckError struct {
	Problems []string
}

func (e *CheckError) Error() string {
	return "type check failure:\n  " + strings.Join(e.Problems, "\n  ")
}

// Check validates a surface program before lowering: every call must
// name a visible function, a builtin or a function-typed binding with a
// matching argument count, every variable must be bound, and type
// argument counts must match the callee's type parameters. Dot-qualified
// references are resolved by module evaluation and only checked for
// module existence there.
//
// The returned warnings flag top-level functions that are neither entry
// points nor referenced anywhere, and parameters shadowing a visible
// function.
func Check(p *Prog) ([]string, error) {
	ck := &checker{referenced: map[string]bool{}}
	ck.checkDecls(p.Decls, nil)

	warnings := ck.warnings
	for _, d := range p.Decls {
		if d.Fun != nil && !d.Fun.Entry && !ck.referenced[d.Fun.Name] {
			warnings = append(warnings, fmt.Sprintf("function %s is never used", d.Fun.Name))
		}
	}
	if len(ck.problems) > 0 {
		return warnings, &CheckError{Problems: ck.problems}
	}
	return warnings, nil
}

// funSig is what the checker knows about a declared function.
type funSig struct {
	typeParams int
	arity      int
}

// sigScope is one lexical level of visible function signatures.
type sigScope struct {
	funs   map[string]funSig
	parent *sigScope
}

func (s *sigScope) lookup(name string) (funSig, bool) {
	for c := s; c != nil; c = c.parent {
		if sig, ok := c.funs[name]; ok {
			return sig, true
		}
	}
	return funSig{}, false
}

type checker struct {
	problems   []string
	warnings   []string
	referenced map[string]bool
}

func (ck *checker) errf(format string, args ...any) {
	ck.problems = append(ck.problems, fmt.Sprintf(format, args...))
}

func (ck *checker) warnf(format string, args ...any) {
	ck.warnings = append(ck.warnings, fmt.Sprintf(format, args...))
}

func (ck *checker) checkDecls(decls []Decl, parent *sigScope) {
	scope := &sigScope{funs: map[string]funSig{}, parent: parent}
	for _, d := range decls {
		if d.Fun != nil {
			scope.funs[d.Fun.Name] = funSig{
				typeParams: len(d.Fun.TypeParams),
				arity:      len(d.Fun.Params),
			}
		}
	}

	for _, d := range decls {
		switch {
		case d.Fun != nil:
			ck.checkFun(d.Fun, scope)
		case d.Mod != nil:
			ck.checkDecls(d.Mod.Decls, scope)
		}
	}
}

func (ck *checker) checkFun(f *FunDecl, scope *sigScope) {
	bound := map[string]bool{}
	for _, prm := range f.Params {
		bound[prm.Name] = true
		ck.checkShadow(f, prm.Name, scope)
	}
	ck.checkExpr(f, f.Body, bound, scope)
}

func (ck *checker) checkShadow(f *FunDecl, name string, scope *sigScope) {
	if _, ok := scope.lookup(name); ok {
		ck.warnf("function %s: parameter %s shadows a function", f.Name, name)
	}
}

func (ck *checker) checkExpr(f *FunDecl, e *Expr, bound map[string]bool, scope *sigScope) {
	if e == nil {
		ck.errf("%s: missing expression", f.Name)
		return
	}
	switch {
	case e.Var != "":
		if !bound[e.Var] && !strings.Contains(e.Var, ".") {
			ck.errf("%s: unbound variable %q", f.Name, e.Var)
		}

	case e.Int != nil:

	case e.FunRef != "":
		ck.referenced[e.FunRef] = true
		if _, ok := scope.lookup(e.FunRef); !ok && !strings.Contains(e.FunRef, ".") {
			ck.errf("%s: reference to unknown function %q", f.Name, e.FunRef)
		}

	case e.Call != nil:
		ck.checkCall(f, e.Call, bound, scope)

	case e.Lambda != nil:
		inner := map[string]bool{}
		for k := range bound {
			inner[k] = true
		}
		for _, prm := range e.Lambda.Params {
			inner[prm.Name] = true
			ck.checkShadow(f, prm.Name, scope)
		}
		ck.checkExpr(f, e.Lambda.Body, inner, scope)

	default:
		// Tuple, Switch and Proj are lowering output, not accepted
		// from source files.
		ck.errf("%s: expression form is not surface syntax", f.Name)
	}
}

func (ck *checker) checkCall(f *FunDecl, call *CallExpr, bound map[string]bool, scope *sigScope) {
	for i := range call.Args {
		ck.checkExpr(f, &call.Args[i], bound, scope)
	}
	if call.Callee != nil {
		ck.checkExpr(f, call.Callee, bound, scope)
		return
	}

	name := call.Fun
	ck.referenced[name] = true
	switch {
	case bound[name]:
		// Call through a function-typed binding; arity is checked
		// after defunctionalisation picks a dispatch table.

	case strings.Contains(name, "."):
		// Module member, resolved by stage 1.

	default:
		if arity, ok := builtins[name]; ok {
			if len(call.Args) != arity {
				ck.errf("%s: %s expects %d arguments, got %d", f.Name, name, arity, len(call.Args))
			}
			if len(call.TypeArgs) > 0 {
				ck.errf("%s: %s takes no type arguments", f.Name, name)
			}
			return
		}
		sig, ok := scope.lookup(name)
		if !ok {
			ck.errf("%s: call to unknown function %q", f.Name, name)
			return
		}
		if len(call.Args) != sig.arity {
			ck.errf("%s: %s expects %d arguments, got %d", f.Name, name, sig.arity, len(call.Args))
		}
		if len(call.TypeArgs) != sig.typeParams {
			ck.errf("%s: %s expects %d type arguments, got %d",
				f.Name, name, sig.typeParams, len(call.TypeArgs))
		}
	}
}
