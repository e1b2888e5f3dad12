package frontend

import (
	"fmt"
	"sort"
)

// Defunctionalise is lowering stage 4: it eliminates first-class
// function values. Every function reference and partial application
// becomes a tagged tuple (the closure's data representation), and every
// call through a function value becomes a call to a generated dispatch
// function that switches on the tag. After this stage every call names a
// statically known function.
func Defunctionalise(p *Prog, src NameSource) (*Prog, NameSource, error) {
	df := &defuncEval{src: src, funs: map[string]*FunDecl{}}
	clones := make([]*FunDecl, 0, len(p.Decls))
	for _, d := range p.Decls {
		if d.Fun == nil {
			return nil, src, fmt.Errorf("defunctionalise: residual module declaration")
		}
		clone := cloneFunDecl(d.Fun)
		df.funs[clone.Name] = clone
		clones = append(clones, clone)
	}

	// First sweep: turn every function value into a tagged tuple,
	// assigning tags in traversal order.
	for _, f := range clones {
		if err := df.tagClosures(f); err != nil {
			return nil, src, err
		}
	}

	// Second sweep: route calls through function values to the dispatch
	// function for their arity.
	for _, f := range clones {
		params := map[string]bool{}
		for _, prm := range f.Params {
			params[prm.Name] = true
		}
		df.rewriteDynamicCalls(f.Body, params)
	}

	out := make([]Decl, 0, len(clones)+len(df.applyOrder))
	for _, f := range clones {
		out = append(out, Decl{Fun: f})
	}
	for _, arity := range df.applyOrder {
		out = append(out, Decl{Fun: df.makeDispatch(arity)})
	}
	return &Prog{Decls: out}, df.src, nil
}

// closureEntry describes one closure construction site: which function
// the tag stands for and how many arguments the site captured.
type closureEntry struct {
	tag      int64
	target   string
	captured int
}

type defuncEval struct {
	src        NameSource
	funs       map[string]*FunDecl
	entries    []closureEntry
	applyNames map[int]string // dynamic-call arity -> dispatch fun name
	applyOrder []int
}

func (df *defuncEval) tagClosures(f *FunDecl) error {
	var walkErr error
	var walk func(*Expr)
	walk = func(e *Expr) {
		if e == nil || walkErr != nil {
			return
		}
		switch {
		case e.FunRef != "":
			if _, ok := df.funs[e.FunRef]; !ok {
				walkErr = fmt.Errorf("in function %s: reference to unknown function %q", f.Name, e.FunRef)
				return
			}
			tag := df.newTag(e.FunRef, 0)
			*e = Expr{Tuple: []Expr{intExpr(tag)}}

		case e.Call != nil && e.Call.Partial:
			call := e.Call
			if _, ok := df.funs[call.Fun]; !ok {
				walkErr = fmt.Errorf("in function %s: partial application of unknown function %q", f.Name, call.Fun)
				return
			}
			for i := range call.Args {
				walk(&call.Args[i])
			}
			tag := df.newTag(call.Fun, len(call.Args))
			tuple := append([]Expr{intExpr(tag)}, call.Args...)
			*e = Expr{Tuple: tuple}

		case e.Call != nil:
			walk(e.Call.Callee)
			for i := range e.Call.Args {
				walk(&e.Call.Args[i])
			}

		case e.Lambda != nil:
			walkErr = fmt.Errorf("in function %s: lambda survived lifting", f.Name)

		case e.Switch != nil:
			walk(e.Switch.On)
			for i := range e.Switch.Cases {
				walk(e.Switch.Cases[i].Body)
			}

		case e.Tuple != nil:
			for i := range e.Tuple {
				walk(&e.Tuple[i])
			}
		}
	}
	walk(f.Body)
	return walkErr
}

func (df *defuncEval) newTag(target string, captured int) int64 {
	tag := int64(len(df.entries))
	df.entries = append(df.entries, closureEntry{tag: tag, target: target, captured: captured})
	return tag
}

// rewriteDynamicCalls rewrites calls whose callee is a function value: an
// explicit callee expression, or a call naming a function-typed binding
// rather than a declared function.
func (df *defuncEval) rewriteDynamicCalls(e *Expr, params map[string]bool) {
	if e == nil {
		return
	}
	if e.Call != nil {
		call := e.Call
		df.rewriteDynamicCalls(call.Callee, params)
		for i := range call.Args {
			df.rewriteDynamicCalls(&call.Args[i], params)
		}

		switch {
		case call.Callee != nil:
			args := append([]Expr{*call.Callee}, call.Args...)
			e.Call = &CallExpr{Fun: df.dispatchFor(len(call.Args)), Args: args}
		case params[call.Fun]:
			args := append([]Expr{{Var: call.Fun}}, call.Args...)
			e.Call = &CallExpr{Fun: df.dispatchFor(len(call.Args)), Args: args}
		}
	}
	for i := range e.Tuple {
		df.rewriteDynamicCalls(&e.Tuple[i], params)
	}
	if e.Switch != nil {
		df.rewriteDynamicCalls(e.Switch.On, params)
		for i := range e.Switch.Cases {
			df.rewriteDynamicCalls(e.Switch.Cases[i].Body, params)
		}
	}
}

func (df *defuncEval) dispatchFor(arity int) string {
	if df.applyNames == nil {
		df.applyNames = map[int]string{}
	}
	if name, ok := df.applyNames[arity]; ok {
		return name
	}
	name, next := df.src.Fresh("apply")
	df.src = next
	df.applyNames[arity] = name
	df.applyOrder = append(df.applyOrder, arity)
	return name
}

// makeDispatch generates the dispatch function for one dynamic-call
// arity: switch on the closure tag, unpack the captured environment, and
// call the target.
func (df *defuncEval) makeDispatch(arity int) *FunDecl {
	params := []ParamDecl{{Name: "clo", Type: "clo"}}
	for i := 0; i < arity; i++ {
		params = append(params, ParamDecl{Name: fmt.Sprintf("x%d", i), Type: "i64"})
	}

	sw := &SwitchExpr{On: &Expr{Proj: &ProjExpr{Var: "clo", Index: 0}}}
	for _, entry := range df.entries {
		target := df.funs[entry.target]
		if len(target.Params)-entry.captured != arity {
			continue
		}
		var args []Expr
		for i := 0; i < entry.captured; i++ {
			args = append(args, Expr{Proj: &ProjExpr{Var: "clo", Index: i + 1}})
		}
		for i := 0; i < arity; i++ {
			args = append(args, Expr{Var: fmt.Sprintf("x%d", i)})
		}
		sw.Cases = append(sw.Cases, SwitchCase{
			Tag:  entry.tag,
			Body: &Expr{Call: &CallExpr{Fun: entry.target, Args: args}},
		})
	}
	sort.Slice(sw.Cases, func(i, j int) bool { return sw.Cases[i].Tag < sw.Cases[j].Tag })

	return &FunDecl{
		Name:   df.applyNames[arity],
		Params: params,
		Ret:    "i64",
		Body:   &Expr{Switch: sw},
	}
}

func intExpr(v int64) Expr {
	n := v
	return Expr{Int: &n}
}
