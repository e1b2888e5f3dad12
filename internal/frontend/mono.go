package frontend

import (
	"fmt"
	"strings"
)

// Monomorphise is lowering stage 2: it eliminates parametric
// polymorphism by specialising every polymorphic function per distinct
// type-argument vector used at a call site. Specialisations are shared
// within the run but carry fresh names, so repeated instantiation never
// collides with user code or other stages.
func Monomorphise(p *Prog, src NameSource) (*Prog, NameSource, error) {
	mo := &monoEval{
		src:   src,
		funs:  map[string]*FunDecl{},
		specs: map[string]string{},
	}
	for _, d := range p.Decls {
		if d.Fun == nil {
			return nil, src, fmt.Errorf("monomorphise: residual module declaration")
		}
		mo.funs[d.Fun.Name] = d.Fun
	}

	var out []Decl
	for _, d := range p.Decls {
		if len(d.Fun.TypeParams) > 0 {
			continue
		}
		clone := cloneFunDecl(d.Fun)
		if err := mo.rewriteBody(clone); err != nil {
			return nil, src, err
		}
		out = append(out, Decl{Fun: clone})
	}

	// Specialisations may themselves demand further specialisations;
	// drain the queue in discovery order.
	for len(mo.queue) > 0 {
		next := mo.queue[0]
		mo.queue = mo.queue[1:]
		if err := mo.rewriteBody(next); err != nil {
			return nil, src, err
		}
		out = append(out, Decl{Fun: next})
	}

	return &Prog{Decls: out}, mo.src, nil
}

type monoEval struct {
	src   NameSource
	funs  map[string]*FunDecl
	specs map[string]string // fun + type args -> specialisation name
	queue []*FunDecl
}

func (mo *monoEval) rewriteBody(f *FunDecl) error {
	var rewriteErr error
	walkCalls(f.Body, func(call *CallExpr) {
		if len(call.TypeArgs) == 0 || rewriteErr != nil {
			return
		}
		name, err := mo.specialise(call.Fun, call.TypeArgs)
		if err != nil {
			rewriteErr = fmt.Errorf("in function %s: %w", f.Name, err)
			return
		}
		call.Fun = name
		call.TypeArgs = nil
	})
	return rewriteErr
}

func (mo *monoEval) specialise(name string, typeArgs []string) (string, error) {
	target, ok := mo.funs[name]
	if !ok {
		return "", fmt.Errorf("call to unknown function %q", name)
	}
	if len(target.TypeParams) != len(typeArgs) {
		return "", fmt.Errorf("%s expects %d type arguments, got %d",
			name, len(target.TypeParams), len(typeArgs))
	}

	key := name + "[" + strings.Join(typeArgs, ",") + "]"
	if mono, ok := mo.specs[key]; ok {
		return mono, nil
	}

	mono, next := mo.src.Fresh(name + "_" + strings.Join(typeArgs, "_"))
	mo.src = next
	mo.specs[key] = mono

	clone := cloneFunDecl(target)
	clone.Name = mono
	clone.TypeParams = nil
	subst := map[string]string{}
	for i, tp := range target.TypeParams {
		subst[tp] = typeArgs[i]
	}
	for i := range clone.Params {
		clone.Params[i].Type = substType(clone.Params[i].Type, subst)
	}
	clone.Ret = substType(clone.Ret, subst)
	walkCalls(clone.Body, func(call *CallExpr) {
		for i, ta := range call.TypeArgs {
			call.TypeArgs[i] = substType(ta, subst)
		}
	})

	mo.queue = append(mo.queue, clone)
	return mono, nil
}

// substType substitutes type parameters in the simple type grammar used
// by the surface language: a scalar name or a []-prefixed element type.
func substType(t string, subst map[string]string) string {
	if to, ok := subst[t]; ok {
		return to
	}
	if elem, ok := strings.CutPrefix(t, "[]"); ok {
		if to, ok := subst[elem]; ok {
			return "[]" + to
		}
	}
	return t
}

// walkCalls visits every call expression in the tree, innermost last.
func walkCalls(e *Expr, visit func(*CallExpr)) {
	if e == nil {
		return
	}
	if e.Call != nil {
		visit(e.Call)
		walkCalls(e.Call.Callee, visit)
		for i := range e.Call.Args {
			walkCalls(&e.Call.Args[i], visit)
		}
	}
	if e.Lambda != nil {
		walkCalls(e.Lambda.Body, visit)
	}
	for i := range e.Tuple {
		walkCalls(&e.Tuple[i], visit)
	}
	if e.Switch != nil {
		walkCalls(e.Switch.On, visit)
		for i := range e.Switch.Cases {
			walkCalls(e.Switch.Cases[i].Body, visit)
		}
	}
}
