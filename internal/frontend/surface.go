// Package frontend lowers surface-language source into the Core
// representation. The surface language has a module system (modules,
// functors, ascription), parametric polymorphism, nested anonymous
// functions and first-class function values; four strictly ordered
// stages eliminate these in turn, after which the residual first-order
// program is internalised into the compiler's IR.
package frontend

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/text/unicode/norm"
)

// Prog is a surface-language program: an ordered sequence of top-level
// declarations.
type Prog struct {
	Decls []Decl `json:"decls"`
}

// Decl is a top-level or module-level declaration. Exactly one field is
// set.
type Decl struct {
	Mod   *ModDecl   `json:"mod,omitempty"`
	Apply *ApplyDecl `json:"apply,omitempty"`
	Fun   *FunDecl   `json:"fun,omitempty"`
}

// ModDecl declares a module. A non-empty Param makes it a functor over
// one module argument; Hide lists members made abstract by ascription,
// invisible outside the module.
type ModDecl struct {
	Name  string   `json:"name"`
	Param string   `json:"param,omitempty"`
	Hide  []string `json:"hide,omitempty"`
	Decls []Decl   `json:"decls"`
}

// ApplyDecl binds the result of applying a functor to a module argument.
type ApplyDecl struct {
	Name    string `json:"name"`
	Functor string `json:"functor"`
	Arg     string `json:"arg"`
}

// FunDecl declares a function, possibly polymorphic over TypeParams.
type FunDecl struct {
	Name       string      `json:"name"`
	TypeParams []string    `json:"tparams,omitempty"`
	Params     []ParamDecl `json:"params,omitempty"`
	Ret        string      `json:"ret"`
	Body       *Expr       `json:"body"`
	Entry      bool        `json:"entry,omitempty"`
}

// ParamDecl is a named, typed parameter.
type ParamDecl struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Expr is a surface expression. Exactly one field is set. Tuple, Switch
// and Proj only appear in defunctionalisation output; Lambda, first-class
// callees and partial calls only before it.
type Expr struct {
	Var    string      `json:"var,omitempty"`
	Int    *int64      `json:"int,omitempty"`
	Call   *CallExpr   `json:"call,omitempty"`
	Lambda *LambdaExpr `json:"lambda,omitempty"`
	FunRef string      `json:"funref,omitempty"`
	Tuple  []Expr      `json:"tuple,omitempty"`
	Switch *SwitchExpr `json:"switch,omitempty"`
	Proj   *ProjExpr   `json:"proj,omitempty"`
}

// CallExpr applies a function. Fun names a statically known callee;
// Callee is a first-class function expression (eliminated by stage 4).
// Partial marks an under-application producing a function value
// (introduced by stage 3, eliminated by stage 4).
type CallExpr struct {
	Fun      string   `json:"fun,omitempty"`
	Callee   *Expr    `json:"callee,omitempty"`
	TypeArgs []string `json:"targs,omitempty"`
	Args     []Expr   `json:"args,omitempty"`
	Partial  bool     `json:"partial,omitempty"`
	Unsafe   bool     `json:"unsafe,omitempty"`
}

// LambdaExpr is an anonymous function (eliminated by stage 3). Ret
// defaults to i64 when omitted.
type LambdaExpr struct {
	Params []ParamDecl `json:"params"`
	Ret    string      `json:"ret,omitempty"`
	Body   *Expr       `json:"body"`
}

// SwitchExpr dispatches on a closure tag (introduced by stage 4).
type SwitchExpr struct {
	On    *Expr        `json:"on"`
	Cases []SwitchCase `json:"cases"`
}

// SwitchCase is one arm of a SwitchExpr.
type SwitchCase struct {
	Tag  int64 `json:"tag"`
	Body *Expr `json:"body"`
}

// ProjExpr projects a field out of a closure tuple (introduced by
// stage 4).
type ProjExpr struct {
	Var   string `json:"var"`
	Index int    `json:"index"`
}

// ParseError reports an undecodable surface or dump file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse failure: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DecodeSurface decodes a surface program and NFC-normalises every
// identifier in it, so Unicode names that differ only in encoding
// compare equal everywhere downstream.
func DecodeSurface(path string, data []byte) (*Prog, error) {
	var p Prog
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	normDecls(p.Decls)
	return &p, nil
}

func normDecls(decls []Decl) {
	for i := range decls {
		switch d := decls[i]; {
		case d.Mod != nil:
			d.Mod.Name = nfc(d.Mod.Name)
			d.Mod.Param = nfc(d.Mod.Param)
			for j := range d.Mod.Hide {
				d.Mod.Hide[j] = nfc(d.Mod.Hide[j])
			}
			normDecls(d.Mod.Decls)
		case d.Apply != nil:
			d.Apply.Name = nfc(d.Apply.Name)
			d.Apply.Functor = nfc(d.Apply.Functor)
			d.Apply.Arg = nfc(d.Apply.Arg)
		case d.Fun != nil:
			d.Fun.Name = nfc(d.Fun.Name)
			for j := range d.Fun.Params {
				d.Fun.Params[j].Name = nfc(d.Fun.Params[j].Name)
			}
			normExpr(d.Fun.Body)
		}
	}
}

func normExpr(e *Expr) {
	if e == nil {
		return
	}
	e.Var = nfc(e.Var)
	e.FunRef = nfc(e.FunRef)
	if e.Call != nil {
		e.Call.Fun = nfc(e.Call.Fun)
		normExpr(e.Call.Callee)
		for i := range e.Call.Args {
			normExpr(&e.Call.Args[i])
		}
	}
	if e.Lambda != nil {
		for i := range e.Lambda.Params {
			e.Lambda.Params[i].Name = nfc(e.Lambda.Params[i].Name)
		}
		normExpr(e.Lambda.Body)
	}
	for i := range e.Tuple {
		normExpr(&e.Tuple[i])
	}
	if e.Switch != nil {
		normExpr(e.Switch.On)
		for i := range e.Switch.Cases {
			normExpr(e.Switch.Cases[i].Body)
		}
	}
	if e.Proj != nil {
		e.Proj.Var = nfc(e.Proj.Var)
	}
}

func nfc(s string) string {
	if s == "" || norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// Render pretty-prints a surface program, for stage inspection and
// golden tests.
func Render(p *Prog) string {
	var b strings.Builder
	renderDecls(&b, p.Decls, "")
	return b.String()
}

func renderDecls(b *strings.Builder, decls []Decl, indent string) {
	for _, d := range decls {
		switch {
		case d.Mod != nil:
			head := "module " + d.Mod.Name
			if d.Mod.Param != "" {
				head += "(" + d.Mod.Param + ")"
			}
			if len(d.Mod.Hide) > 0 {
				head += " hiding (" + strings.Join(d.Mod.Hide, ", ") + ")"
			}
			fmt.Fprintf(b, "%s%s {\n", indent, head)
			renderDecls(b, d.Mod.Decls, indent+"  ")
			fmt.Fprintf(b, "%s}\n", indent)
		case d.Apply != nil:
			fmt.Fprintf(b, "%smodule %s = %s(%s)\n",
				indent, d.Apply.Name, d.Apply.Functor, d.Apply.Arg)
		case d.Fun != nil:
			f := d.Fun
			kw := "fun"
			if f.Entry {
				kw = "entry"
			}
			tps := ""
			if len(f.TypeParams) > 0 {
				tps = "[" + strings.Join(f.TypeParams, ", ") + "]"
			}
			params := make([]string, len(f.Params))
			for i, p := range f.Params {
				params[i] = p.Name + ": " + p.Type
			}
			fmt.Fprintf(b, "%s%s %s%s(%s): %s = %s\n",
				indent, kw, f.Name, tps, strings.Join(params, ", "), f.Ret, renderExpr(f.Body))
		}
	}
}

func renderExpr(e *Expr) string {
	if e == nil {
		return "?"
	}
	switch {
	case e.Var != "":
		return e.Var
	case e.Int != nil:
		return fmt.Sprintf("%d", *e.Int)
	case e.FunRef != "":
		return "#" + e.FunRef
	case e.Call != nil:
		args := make([]string, len(e.Call.Args))
		for i := range e.Call.Args {
			args[i] = renderExpr(&e.Call.Args[i])
		}
		head := e.Call.Fun
		if e.Call.Callee != nil {
			head = "(" + renderExpr(e.Call.Callee) + ")"
		}
		if len(e.Call.TypeArgs) > 0 {
			head += "[" + strings.Join(e.Call.TypeArgs, ", ") + "]"
		}
		call := head + "(" + strings.Join(args, ", ") + ")"
		if e.Call.Partial {
			call = "~" + call
		}
		return call
	case e.Lambda != nil:
		params := make([]string, len(e.Lambda.Params))
		for i, p := range e.Lambda.Params {
			params[i] = p.Name + ": " + p.Type
		}
		return "\\(" + strings.Join(params, ", ") + ") -> " + renderExpr(e.Lambda.Body)
	case e.Tuple != nil:
		parts := make([]string, len(e.Tuple))
		for i := range e.Tuple {
			parts[i] = renderExpr(&e.Tuple[i])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case e.Switch != nil:
		var b strings.Builder
		b.WriteString("switch " + renderExpr(e.Switch.On) + " ")
		for _, c := range e.Switch.Cases {
			fmt.Fprintf(&b, "[%d => %s] ", c.Tag, renderExpr(c.Body))
		}
		return strings.TrimSpace(b.String())
	case e.Proj != nil:
		return fmt.Sprintf("%s.%d", e.Proj.Var, e.Proj.Index)
	}
	return "?"
}
