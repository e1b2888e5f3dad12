package frontend

import (
	"fmt"
	"strings"
)

// EvalModules is lowering stage 1: partial evaluation of the module
// language. Modules are flattened to top level, functor applications are
// instantiated copy by copy, and ascription-hidden members disappear
// from scope. The residual program contains only function declarations;
// every flattened member gets a fresh name so instances never collide.
func EvalModules(p *Prog, src NameSource) (*Prog, NameSource, error) {
	ev := &modEval{src: src}
	root := newModScope()
	if err := ev.evalDecls(p.Decls, "", &scopeChain{cur: root}, true); err != nil {
		return nil, src, err
	}
	return &Prog{Decls: ev.out}, ev.src, nil
}

type modEval struct {
	src NameSource
	out []Decl
}

func (ev *modEval) fresh(base string) string {
	name, next := ev.src.Fresh(base)
	ev.src = next
	return name
}

// modScope is the value of an evaluated module: its visible function
// members, nested module values, and unapplied functors.
type modScope struct {
	funs     map[string]string
	mods     map[string]*modScope
	functors map[string]*functorVal
}

func newModScope() *modScope {
	return &modScope{
		funs:     map[string]string{},
		mods:     map[string]*modScope{},
		functors: map[string]*functorVal{},
	}
}

// functorVal is a suspended functor body together with the scope chain
// it closed over.
type functorVal struct {
	decl  *ModDecl
	chain *scopeChain
}

// scopeChain is the lexical nesting of module scopes, innermost first.
type scopeChain struct {
	cur    *modScope
	parent *scopeChain
}

func (c *scopeChain) push(s *modScope) *scopeChain {
	return &scopeChain{cur: s, parent: c}
}

// evalDecls evaluates one declaration sequence. Function members are
// pre-declared so bodies may reference later siblings.
func (ev *modEval) evalDecls(decls []Decl, qual string, chain *scopeChain, top bool) error {
	for _, d := range decls {
		if d.Fun == nil {
			continue
		}
		flat := d.Fun.Name
		if !top {
			flat = ev.fresh(joinQual(qual, d.Fun.Name))
		}
		chain.cur.funs[d.Fun.Name] = flat
	}

	for _, d := range decls {
		switch {
		case d.Fun != nil:
			if err := ev.evalFun(d.Fun, chain); err != nil {
				return err
			}

		case d.Mod != nil && d.Mod.Param != "":
			chain.cur.functors[d.Mod.Name] = &functorVal{decl: d.Mod, chain: chain}

		case d.Mod != nil:
			sub := newModScope()
			if err := ev.evalDecls(d.Mod.Decls, joinQual(qual, d.Mod.Name), chain.push(sub), false); err != nil {
				return err
			}
			hideMembers(sub, d.Mod.Hide)
			chain.cur.mods[d.Mod.Name] = sub

		case d.Apply != nil:
			if err := ev.evalApply(d.Apply, qual, chain); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ev *modEval) evalApply(app *ApplyDecl, qual string, chain *scopeChain) error {
	fv, err := lookupFunctor(chain, app.Functor)
	if err != nil {
		return err
	}
	arg, err := lookupModule(chain, app.Arg)
	if err != nil {
		return err
	}

	// The functor body evaluates in its own defining chain, with the
	// parameter bound to the argument module. Every application yields a
	// fresh copy.
	param := newModScope()
	param.mods[fv.decl.Param] = arg
	inst := newModScope()
	err = ev.evalDecls(fv.decl.Decls, joinQual(qual, app.Name), fv.chain.push(param).push(inst), false)
	if err != nil {
		return err
	}
	hideMembers(inst, fv.decl.Hide)
	chain.cur.mods[app.Name] = inst
	return nil
}

func (ev *modEval) evalFun(f *FunDecl, chain *scopeChain) error {
	flat := chain.cur.funs[f.Name]
	clone := cloneFunDecl(f)
	clone.Name = flat

	var resolveErr error
	rewriteNames(clone.Body, func(name string) string {
		resolved, err := resolveName(chain, name)
		if err != nil && resolveErr == nil {
			resolveErr = fmt.Errorf("in function %s: %w", f.Name, err)
		}
		return resolved
	})
	if resolveErr != nil {
		return resolveErr
	}
	ev.out = append(ev.out, Decl{Fun: clone})
	return nil
}

// resolveName maps a possibly dot-qualified reference to its flattened
// name. Unqualified names not bound to any module member are left alone:
// they are parameters, locals or builtins.
func resolveName(chain *scopeChain, name string) (string, error) {
	if name == "" {
		return name, nil
	}
	if !strings.Contains(name, ".") {
		for c := chain; c != nil; c = c.parent {
			if flat, ok := c.cur.funs[name]; ok {
				return flat, nil
			}
		}
		return name, nil
	}

	parts := strings.Split(name, ".")
	mod, err := lookupModule(chain, strings.Join(parts[:len(parts)-1], "."))
	if err != nil {
		return name, err
	}
	member := parts[len(parts)-1]
	flat, ok := mod.funs[member]
	if !ok {
		return name, fmt.Errorf("module has no visible member %q (in %q)", member, name)
	}
	return flat, nil
}

func lookupModule(chain *scopeChain, path string) (*modScope, error) {
	parts := strings.Split(path, ".")
	var cur *modScope
	for c := chain; c != nil; c = c.parent {
		if m, ok := c.cur.mods[parts[0]]; ok {
			cur = m
			break
		}
	}
	if cur == nil {
		return nil, fmt.Errorf("unknown module %q", parts[0])
	}
	for _, p := range parts[1:] {
		next, ok := cur.mods[p]
		if !ok {
			return nil, fmt.Errorf("unknown module %q (in %q)", p, path)
		}
		cur = next
	}
	return cur, nil
}

func lookupFunctor(chain *scopeChain, name string) (*functorVal, error) {
	for c := chain; c != nil; c = c.parent {
		if fv, ok := c.cur.functors[name]; ok {
			return fv, nil
		}
	}
	return nil, fmt.Errorf("unknown functor %q", name)
}

func hideMembers(s *modScope, hide []string) {
	for _, h := range hide {
		delete(s.funs, h)
		delete(s.mods, h)
	}
}

func joinQual(qual, name string) string {
	if qual == "" {
		return name
	}
	return qual + "_" + name
}

// rewriteNames applies f to every function-position and value-position
// name in the expression tree.
func rewriteNames(e *Expr, f func(string) string) {
	if e == nil {
		return
	}
	if e.Var != "" {
		e.Var = f(e.Var)
	}
	if e.FunRef != "" {
		e.FunRef = f(e.FunRef)
	}
	if e.Call != nil {
		if e.Call.Fun != "" {
			e.Call.Fun = f(e.Call.Fun)
		}
		rewriteNames(e.Call.Callee, f)
		for i := range e.Call.Args {
			rewriteNames(&e.Call.Args[i], f)
		}
	}
	if e.Lambda != nil {
		rewriteNames(e.Lambda.Body, f)
	}
	for i := range e.Tuple {
		rewriteNames(&e.Tuple[i], f)
	}
	if e.Switch != nil {
		rewriteNames(e.Switch.On, f)
		for i := range e.Switch.Cases {
			rewriteNames(e.Switch.Cases[i].Body, f)
		}
	}
}

func cloneFunDecl(f *FunDecl) *FunDecl {
	clone := *f
	clone.TypeParams = append([]string(nil), f.TypeParams...)
	clone.Params = append([]ParamDecl(nil), f.Params...)
	clone.Body = cloneExpr(f.Body)
	return &clone
}

func cloneExpr(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Call != nil {
		call := *e.Call
		call.Callee = cloneExpr(e.Call.Callee)
		call.TypeArgs = append([]string(nil), e.Call.TypeArgs...)
		call.Args = make([]Expr, len(e.Call.Args))
		for i := range e.Call.Args {
			call.Args[i] = *cloneExpr(&e.Call.Args[i])
		}
		clone.Call = &call
	}
	if e.Lambda != nil {
		lam := *e.Lambda
		lam.Params = append([]ParamDecl(nil), e.Lambda.Params...)
		lam.Body = cloneExpr(e.Lambda.Body)
		clone.Lambda = &lam
	}
	if e.Tuple != nil {
		clone.Tuple = make([]Expr, len(e.Tuple))
		for i := range e.Tuple {
			clone.Tuple[i] = *cloneExpr(&e.Tuple[i])
		}
	}
	if e.Switch != nil {
		sw := SwitchExpr{On: cloneExpr(e.Switch.On)}
		for _, c := range e.Switch.Cases {
			sw.Cases = append(sw.Cases, SwitchCase{Tag: c.Tag, Body: cloneExpr(c.Body)})
		}
		clone.Switch = &sw
	}
	if e.Proj != nil {
		proj := *e.Proj
		clone.Proj = &proj
	}
	return &clone
}
