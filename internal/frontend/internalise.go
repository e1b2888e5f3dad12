package frontend

import (
	"fmt"
	"strconv"

	"github.com/futlang/futc/internal/ir"
)

// arrayOps are the builtins whose results are array-valued. They drive
// the alias analysis: a binding aliases every array it consumes.
var arrayOps = map[string]bool{
	"map": true, "scan": true, "iota": true,
	"replicate": true, "concat": true, "update": true, "id": true,
}

// Internalise converts a fully lowered surface program into the Core
// program tree, flattening expressions into statement form and running
// alias analysis. extraEntries names functions kept as entry points in
// addition to those marked entry in source.
func Internalise(p *Prog, extraEntries []string) (*ir.Prog, error) {
	extra := map[string]bool{}
	for _, name := range extraEntries {
		extra[name] = true
	}

	var out ir.Prog
	for _, d := range p.Decls {
		if d.Fun == nil {
			return nil, fmt.Errorf("internalise: residual module declaration")
		}
		f, err := internaliseFun(d.Fun, extra[d.Fun.Name])
		if err != nil {
			return nil, err
		}
		out.Funs = append(out.Funs, f)
	}
	return &out, nil
}

func internaliseFun(f *FunDecl, forceEntry bool) (ir.Fun, error) {
	fl := &flattener{arrays: map[string]bool{}}
	for _, prm := range f.Params {
		if isArrayType(prm.Type) {
			fl.arrays[prm.Name] = true
		}
	}

	result, err := fl.flatten(f.Name, f.Body)
	if err != nil {
		return ir.Fun{}, err
	}
	// A body that is a bare variable still needs a statement so the
	// function has a result binding.
	if len(fl.body) == 0 || fl.body[len(fl.body)-1].Dest != result {
		result = fl.emit("id", []string{result}, false)
	}

	params := make([]ir.Param, len(f.Params))
	for i, prm := range f.Params {
		params[i] = ir.Param{Name: prm.Name, Type: prm.Type}
	}
	return ir.Fun{
		Name:   f.Name,
		Params: params,
		Ret:    f.Ret,
		Body:   fl.body,
		Entry:  f.Entry || forceEntry,
	}, nil
}

// flattener turns an expression tree into statement form, one binding
// per operation, tracking which bindings are array-valued for aliasing.
type flattener struct {
	body   []ir.Stmt
	arrays map[string]bool
	next   int
}

func (fl *flattener) flatten(host string, e *Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("internalise: %s: missing expression", host)
	}
	switch {
	case e.Var != "":
		return e.Var, nil

	case e.Int != nil:
		return fl.emit("const", []string{strconv.FormatInt(*e.Int, 10)}, false), nil

	case e.Call != nil:
		if e.Call.Callee != nil || e.Call.Partial || len(e.Call.TypeArgs) > 0 {
			return "", fmt.Errorf("internalise: %s: residual function value", host)
		}
		args := make([]string, len(e.Call.Args))
		for i := range e.Call.Args {
			name, err := fl.flatten(host, &e.Call.Args[i])
			if err != nil {
				return "", err
			}
			args[i] = name
		}
		return fl.emit(e.Call.Fun, args, e.Call.Unsafe), nil

	case e.Lambda != nil || e.FunRef != "":
		return "", fmt.Errorf("internalise: %s: residual function value", host)

	case e.Tuple != nil:
		args := make([]string, len(e.Tuple))
		for i := range e.Tuple {
			name, err := fl.flatten(host, &e.Tuple[i])
			if err != nil {
				return "", err
			}
			args[i] = name
		}
		return fl.emit("tuple", args, false), nil

	case e.Switch != nil:
		on, err := fl.flatten(host, e.Switch.On)
		if err != nil {
			return "", err
		}
		args := []string{on}
		for _, c := range e.Switch.Cases {
			name, err := fl.flatten(host, c.Body)
			if err != nil {
				return "", err
			}
			args = append(args, name)
		}
		return fl.emit("switch", args, false), nil

	case e.Proj != nil:
		return fl.emit("proj", []string{e.Proj.Var, strconv.Itoa(e.Proj.Index)}, false), nil
	}
	return "", fmt.Errorf("internalise: %s: empty expression", host)
}

// emit appends one statement, computing its alias set: the array-valued
// arguments it consumes, provided the operation can alias its input.
func (fl *flattener) emit(op string, args []string, unsafe bool) string {
	dest := fmt.Sprintf("t%d", fl.next)
	fl.next++

	var aliases []string
	if arrayOps[op] {
		for _, a := range args {
			if fl.arrays[a] {
				aliases = append(aliases, a)
			}
		}
		fl.arrays[dest] = true
	}
	fl.body = append(fl.body, ir.Stmt{
		Dest:    dest,
		Op:      op,
		Args:    args,
		Unsafe:  unsafe,
		Aliases: aliases,
	})
	return dest
}

func isArrayType(t string) bool {
	return len(t) > 2 && t[:2] == "[]"
}
