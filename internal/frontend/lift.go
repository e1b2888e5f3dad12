package frontend

import "fmt"

// LiftLambdas is lowering stage 3: it eliminates nested anonymous
// functions by hoisting each lambda to a fresh top-level function,
// passing its free variables explicitly as leading parameters. A lambda
// with free variables becomes a partial application of the lifted
// function; one without becomes a plain function reference. Both forms
// are function values, eliminated next by defunctionalisation.
func LiftLambdas(p *Prog, src NameSource) (*Prog, NameSource, error) {
	lf := &liftEval{src: src}
	var out []Decl
	for _, d := range p.Decls {
		if d.Fun == nil {
			return nil, src, fmt.Errorf("lift-lambdas: residual module declaration")
		}
		clone := cloneFunDecl(d.Fun)
		env := map[string]string{}
		for _, prm := range clone.Params {
			env[prm.Name] = prm.Type
		}
		lf.lifted = nil
		lf.host = clone.Name
		lf.liftExpr(clone.Body, env)
		out = append(out, Decl{Fun: clone})
		out = append(out, lf.lifted...)
	}
	return &Prog{Decls: out}, lf.src, nil
}

type liftEval struct {
	src    NameSource
	host   string
	lifted []Decl
}

// liftExpr hoists lambdas bottom-up: inner lambdas are lifted before the
// enclosing one computes its free variables.
func (lf *liftEval) liftExpr(e *Expr, env map[string]string) {
	if e == nil {
		return
	}
	if e.Call != nil {
		lf.liftExpr(e.Call.Callee, env)
		for i := range e.Call.Args {
			lf.liftExpr(&e.Call.Args[i], env)
		}
	}
	for i := range e.Tuple {
		lf.liftExpr(&e.Tuple[i], env)
	}
	if e.Switch != nil {
		lf.liftExpr(e.Switch.On, env)
		for i := range e.Switch.Cases {
			lf.liftExpr(e.Switch.Cases[i].Body, env)
		}
	}
	if e.Lambda == nil {
		return
	}

	lam := e.Lambda
	inner := map[string]string{}
	for k, v := range env {
		inner[k] = v
	}
	for _, prm := range lam.Params {
		inner[prm.Name] = prm.Type
	}
	lf.liftExpr(lam.Body, inner)

	free := freeVars(lam.Body, lam.Params, env)
	name, next := lf.src.Fresh(lf.host + "_lam")
	lf.src = next

	params := make([]ParamDecl, 0, len(free)+len(lam.Params))
	for _, v := range free {
		params = append(params, ParamDecl{Name: v, Type: env[v]})
	}
	params = append(params, lam.Params...)
	ret := lam.Ret
	if ret == "" {
		ret = "i64"
	}
	lf.lifted = append(lf.lifted, Decl{Fun: &FunDecl{
		Name:   name,
		Params: params,
		Ret:    ret,
		Body:   lam.Body,
	}})

	*e = Expr{FunRef: name}
	if len(free) > 0 {
		args := make([]Expr, len(free))
		for i, v := range free {
			args[i] = Expr{Var: v}
		}
		*e = Expr{Call: &CallExpr{Fun: name, Args: args, Partial: true}}
	}
}

// freeVars returns the variables of body that are bound in the enclosing
// function rather than by the lambda itself, in first-occurrence order.
// Names in call position count too: calling a function-typed binding
// captures it.
func freeVars(body *Expr, bound []ParamDecl, env map[string]string) []string {
	boundSet := map[string]bool{}
	for _, prm := range bound {
		boundSet[prm.Name] = true
	}
	var free []string
	seen := map[string]bool{}
	add := func(name string) {
		if name == "" || boundSet[name] || seen[name] {
			return
		}
		if _, ok := env[name]; !ok {
			return
		}
		seen[name] = true
		free = append(free, name)
	}

	var walk func(*Expr)
	walk = func(e *Expr) {
		if e == nil {
			return
		}
		add(e.Var)
		if e.Call != nil {
			add(e.Call.Fun)
			walk(e.Call.Callee)
			for i := range e.Call.Args {
				walk(&e.Call.Args[i])
			}
		}
		if e.Lambda != nil {
			// Inner lambdas are already lifted by the time free
			// variables are computed, but stay safe.
			walk(e.Lambda.Body)
		}
		for i := range e.Tuple {
			walk(&e.Tuple[i])
		}
		if e.Switch != nil {
			walk(e.Switch.On)
			for i := range e.Switch.Cases {
				walk(e.Switch.Cases[i].Body)
			}
		}
	}
	walk(body)
	return free
}
