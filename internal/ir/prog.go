package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Program is the capability surface shared by every representation's
// program type. Fully polymorphic actions (print, metrics) operate on
// programs through this interface only; everything else unwraps to the
// concrete type first.
type Program interface {
	// RenderText produces the human-readable form of the program.
	RenderText() string

	// Metrics counts the structural constructs of the program.
	Metrics() Metrics

	// AliasText produces the human-readable form with alias
	// annotations on every binding.
	AliasText() string
}

// Param is a named, typed function parameter.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Stmt is a single binding in a function body. Op is the operation name
// ("map", "reduce", "loop", "kernel", ...) and Args the names it consumes.
type Stmt struct {
	Dest    string   `json:"dest"`
	Op      string   `json:"op"`
	Args    []string `json:"args,omitempty"`
	Unsafe  bool     `json:"unsafe,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// Fun is a top-level function. The last statement's Dest is the result.
type Fun struct {
	Name   string  `json:"name"`
	Params []Param `json:"params,omitempty"`
	Ret    string  `json:"ret"`
	Body   []Stmt  `json:"body,omitempty"`
	Entry  bool    `json:"entry,omitempty"`
}

// Prog is the program tree for the unified representations (Core,
// GpuParallel, MultiCore, Sequential). Which operations may appear in
// statement position depends on the representation tag the program is
// wrapped with; the tree shape is shared.
type Prog struct {
	Funs []Fun `json:"funs"`
}

// Alloc is an explicit memory allocation introduced by the allocation
// passes. Space names the memory space the block lives in.
type Alloc struct {
	Name  string `json:"name"`
	Space string `json:"space"`
	Bytes string `json:"bytes"`
}

// MemProg is the program tree for the memory-annotated representations.
type MemProg struct {
	Prog
	Allocs []Alloc `json:"allocs,omitempty"`
}

// Metrics maps construct names to occurrence counts.
type Metrics map[string]int

// Render produces the metrics as stable "name count" lines, sorted by name.
func (m Metrics) Render() string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s %d\n", name, m[name])
	}
	return b.String()
}

// RenderText implements Program.
func (p *Prog) RenderText() string {
	return p.render(false)
}

// AliasText implements Program.
func (p *Prog) AliasText() string {
	return p.render(true)
}

// Metrics implements Program.
func (p *Prog) Metrics() Metrics {
	m := Metrics{"funs": len(p.Funs)}
	for _, f := range p.Funs {
		for _, s := range f.Body {
			m[s.Op]++
		}
	}
	return m
}

func (p *Prog) render(aliases bool) string {
	var b strings.Builder
	for i, f := range p.Funs {
		if i > 0 {
			b.WriteString("\n")
		}
		renderFun(&b, f, aliases)
	}
	return b.String()
}

func renderFun(b *strings.Builder, f Fun, aliases bool) {
	kw := "fun"
	if f.Entry {
		kw = "entry"
	}
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name + ": " + p.Type
	}
	fmt.Fprintf(b, "%s %s(%s): %s =\n", kw, f.Name, strings.Join(params, ", "), f.Ret)
	for _, s := range f.Body {
		fmt.Fprintf(b, "  let %s = %s", s.Dest, s.Op)
		if len(s.Args) > 0 {
			fmt.Fprintf(b, " %s", strings.Join(s.Args, " "))
		}
		if s.Unsafe {
			b.WriteString(" #[unsafe]")
		}
		if aliases {
			fmt.Fprintf(b, " @{%s}", strings.Join(s.Aliases, ","))
		}
		b.WriteString("\n")
	}
}

// RenderText implements Program, prefixing the allocation table.
func (p *MemProg) RenderText() string {
	return p.renderAllocs() + p.Prog.RenderText()
}

// AliasText implements Program.
func (p *MemProg) AliasText() string {
	return p.renderAllocs() + p.Prog.AliasText()
}

// Metrics implements Program, counting allocations alongside operations.
func (p *MemProg) Metrics() Metrics {
	m := p.Prog.Metrics()
	m["allocs"] = len(p.Allocs)
	return m
}

func (p *MemProg) renderAllocs() string {
	var b strings.Builder
	for _, a := range p.Allocs {
		fmt.Fprintf(&b, "alloc %s: %s@%s\n", a.Name, a.Bytes, a.Space)
	}
	if len(p.Allocs) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}
