package pass

import (
	"fmt"
	"strings"

	"github.com/futlang/futc/internal/ir"
)

// Simplify removes no-op statements and dead bindings. It runs in every
// representation and preserves the tag.
func Simplify() Pass {
	return Cases("simplify", "s",
		"Remove no-op statements and dead bindings.",
		sameRepCases(simplifyProg))
}

// CSE eliminates common subexpressions within each function body. Runs in
// every representation and preserves the tag.
func CSE() Pass {
	return Cases("cse", "e",
		"Eliminate common subexpressions.",
		sameRepCases(cseProg))
}

// Inline expands calls to non-entry functions into their callers and
// drops functions left without callers.
func Inline() Pass {
	return Exact("inline", "a",
		"Inline non-entry functions into their callers.",
		ir.Core, ir.Core, inlineProg)
}

// Fuse merges producer/consumer map pairs into single composed maps.
func Fuse() Pass {
	return Exact("fuse", "f",
		"Fuse producer/consumer map operations.",
		ir.Core, ir.Core, fuseProg)
}

// Sequentialise lowers all parallel operations to sequential loops.
func Sequentialise() Pass {
	return Exact("sequentialise", "q",
		"Lower parallel operations to sequential loops.",
		ir.Core, ir.Sequential, rewriter(map[string]string{
			"map": "loop", "reduce": "loop", "scan": "loop",
		}))
}

// ExtractGPU turns parallel operations into GPU kernels.
func ExtractGPU() Pass {
	return Exact("extract-gpu", "g",
		"Extract GPU kernels from parallel operations.",
		ir.Core, ir.GpuParallel, rewriter(map[string]string{
			"map": "kernel_map", "reduce": "kernel_reduce", "scan": "kernel_scan",
		}))
}

// ExtractMulticore turns parallel operations into multicore parallel loops.
func ExtractMulticore() Pass {
	return Exact("extract-multicore", "m",
		"Extract multicore parallel loops from parallel operations.",
		ir.Core, ir.MultiCore, rewriter(map[string]string{
			"map": "par_map", "reduce": "par_reduce", "scan": "par_scan",
		}))
}

// Allocate inserts explicit memory allocations. It supports the GPU and
// sequential representations; the multicore variant is a separate pass.
func Allocate() Pass {
	return Cases("allocate", "A",
		"Insert explicit memory allocations.",
		map[ir.Rep]Case{
			ir.GpuParallel: {Out: ir.GpuParallelMem, Fn: allocateIn("device")},
			ir.Sequential:  {Out: ir.SequentialMem, Fn: allocateIn("default")},
		})
}

// AllocateMulticore inserts explicit memory allocations in the multicore
// representation.
func AllocateMulticore() Pass {
	return Cases("allocate-multicore", "M",
		"Insert explicit memory allocations (multicore).",
		map[ir.Rep]Case{
			ir.MultiCore: {Out: ir.MultiCoreMem, Fn: allocateIn("default")},
		})
}

// DoubleBuffer duplicates loop-carried allocations so loop iterations can
// alternate between two buffers. Memory representations only.
func DoubleBuffer() Pass {
	return Cases("double-buffer", "b",
		"Double-buffer loop-carried allocations.",
		memRepCases(doubleBufferProg))
}

// LowerInPlace rewrites updates into in-place updates where the target
// allocation permits it. Memory representations only.
func LowerInPlace() Pass {
	return Cases("lower-in-place", "i",
		"Lower updates to in-place updates.",
		memRepCases(lowerInPlaceProg))
}

// sameRepCases declares one tag-preserving case per representation.
func sameRepCases(fn Transform) map[ir.Rep]Case {
	cases := make(map[ir.Rep]Case, len(ir.Reps()))
	for _, r := range ir.Reps() {
		cases[r] = Case{Out: r, Fn: fn}
	}
	return cases
}

// memRepCases declares one tag-preserving case per memory representation.
func memRepCases(fn func(Config, *ir.MemProg) (ir.Program, error)) map[ir.Rep]Case {
	cases := make(map[ir.Rep]Case, 3)
	for _, r := range ir.Reps() {
		if !r.Mem() {
			continue
		}
		cases[r] = Case{Out: r, Fn: func(cfg Config, p ir.Program) (ir.Program, error) {
			return fn(cfg, p.(*ir.MemProg))
		}}
	}
	return cases
}

// rewriter builds a transform that renames operations according to table,
// leaving everything else untouched.
func rewriter(table map[string]string) Transform {
	return func(cfg Config, p ir.Program) (ir.Program, error) {
		return mapStmts(p, func(s ir.Stmt) []ir.Stmt {
			if op, ok := table[s.Op]; ok {
				s.Op = op
			}
			return []ir.Stmt{s}
		}), nil
	}
}

func simplifyProg(cfg Config, p ir.Program) (ir.Program, error) {
	res := mapFuns(p, func(f ir.Fun) ir.Fun {
		used := map[string]bool{}
		for _, s := range f.Body {
			for _, a := range s.Args {
				used[a] = true
			}
		}
		var body []ir.Stmt
		for i, s := range f.Body {
			last := i == len(f.Body)-1
			if s.Op == "noop" && !last {
				continue
			}
			if !last && !used[s.Dest] {
				continue
			}
			body = append(body, s)
		}
		f.Body = body
		return f
	})
	return res, nil
}

func cseProg(cfg Config, p ir.Program) (ir.Program, error) {
	res := mapFuns(p, func(f ir.Fun) ir.Fun {
		seen := map[string]string{} // op+args -> first dest
		renames := map[string]string{}
		var body []ir.Stmt
		for _, s := range f.Body {
			for i, a := range s.Args {
				if to, ok := renames[a]; ok {
					s.Args[i] = to
				}
			}
			key := s.Op + "\x00" + strings.Join(s.Args, "\x00")
			if s.Unsafe {
				// Unsafe statements are never deduplicated.
				body = append(body, s)
				continue
			}
			if first, ok := seen[key]; ok {
				renames[s.Dest] = first
				continue
			}
			seen[key] = s.Dest
			body = append(body, s)
		}
		f.Body = body
		return f
	})
	return res, nil
}

func inlineProg(cfg Config, p ir.Program) (ir.Program, error) {
	prog := p.(*ir.Prog)
	funs := map[string]ir.Fun{}
	for _, f := range prog.Funs {
		funs[f.Name] = f
	}

	called := map[string]bool{}
	res := mapFuns(p, func(f ir.Fun) ir.Fun {
		var body []ir.Stmt
		for _, s := range f.Body {
			callee, ok := funs[s.Op]
			if !ok || callee.Entry || len(callee.Body) == 0 {
				if ok {
					called[s.Op] = true
				}
				body = append(body, s)
				continue
			}
			body = append(body, spliceCall(s, callee)...)
		}
		f.Body = body
		return f
	}).(*ir.Prog)

	// Drop non-entry functions that no remaining call references.
	var kept []ir.Fun
	for _, f := range res.Funs {
		if f.Entry || called[f.Name] {
			kept = append(kept, f)
		}
	}
	res.Funs = kept
	return res, nil
}

// spliceCall expands one call statement into the callee's body, prefixing
// every local binding with the call destination to keep names unique.
func spliceCall(call ir.Stmt, callee ir.Fun) []ir.Stmt {
	rename := map[string]string{}
	for i, p := range callee.Params {
		if i < len(call.Args) {
			rename[p.Name] = call.Args[i]
		}
	}
	var out []ir.Stmt
	for i, s := range callee.Body {
		local := s
		local.Args = append([]string(nil), s.Args...)
		for j, a := range local.Args {
			if to, ok := rename[a]; ok {
				local.Args[j] = to
			}
		}
		if i == len(callee.Body)-1 {
			local.Dest = call.Dest
		} else {
			fresh := call.Dest + "_" + s.Dest
			rename[s.Dest] = fresh
			local.Dest = fresh
		}
		out = append(out, local)
	}
	return out
}

func fuseProg(cfg Config, p ir.Program) (ir.Program, error) {
	res := mapFuns(p, func(f ir.Fun) ir.Fun {
		var body []ir.Stmt
		for _, s := range f.Body {
			n := len(body)
			if n > 0 && canFuse(body[n-1], s) {
				prev := body[n-1]
				body[n-1] = ir.Stmt{
					Dest:    s.Dest,
					Op:      "map",
					Args:    []string{compose(s.Args[0], prev.Args[0]), prev.Args[1]},
					Aliases: prev.Aliases,
				}
				continue
			}
			body = append(body, s)
		}
		f.Body = body
		return f
	})
	return res, nil
}

// canFuse reports whether b is a map consuming exactly the array a maps.
func canFuse(a, b ir.Stmt) bool {
	return a.Op == "map" && b.Op == "map" &&
		len(a.Args) == 2 && len(b.Args) == 2 &&
		b.Args[1] == a.Dest && !a.Unsafe && !b.Unsafe
}

func compose(outer, inner string) string {
	return fmt.Sprintf("(%s . %s)", outer, inner)
}

// allocateIn wraps a unified program into a memory program, giving every
// binding an allocation in the given memory space.
func allocateIn(space string) Transform {
	return func(cfg Config, p ir.Program) (ir.Program, error) {
		prog := p.(*ir.Prog)
		res := &ir.MemProg{Prog: *mapFuns(prog, cloneFun).(*ir.Prog)}
		for _, f := range res.Funs {
			for _, s := range f.Body {
				res.Allocs = append(res.Allocs, ir.Alloc{
					Name:  "mem_" + s.Dest,
					Space: space,
					Bytes: "size_" + s.Dest,
				})
			}
		}
		return res, nil
	}
}

func doubleBufferProg(cfg Config, p *ir.MemProg) (ir.Program, error) {
	res := copyMemProg(p)
	carried := map[string]bool{}
	for _, f := range res.Funs {
		for _, s := range f.Body {
			if strings.Contains(s.Op, "loop") {
				carried["mem_"+s.Dest] = true
			}
		}
	}
	var allocs []ir.Alloc
	for _, a := range res.Allocs {
		allocs = append(allocs, a)
		if carried[a.Name] {
			db := a
			db.Name = a.Name + "_db"
			allocs = append(allocs, db)
		}
	}
	res.Allocs = allocs
	return res, nil
}

func lowerInPlaceProg(cfg Config, p *ir.MemProg) (ir.Program, error) {
	res := copyMemProg(p)
	for fi := range res.Funs {
		for si, s := range res.Funs[fi].Body {
			if s.Op == "update" && !s.Unsafe {
				res.Funs[fi].Body[si].Op = "update_in_place"
			}
		}
	}
	return res, nil
}

// mapFuns rebuilds the program with fn applied to every function,
// preserving the concrete program type. The input is never mutated.
func mapFuns(p ir.Program, fn func(ir.Fun) ir.Fun) ir.Program {
	apply := func(funs []ir.Fun) []ir.Fun {
		out := make([]ir.Fun, len(funs))
		for i, f := range funs {
			out[i] = fn(cloneFun(f))
		}
		return out
	}
	switch prog := p.(type) {
	case *ir.Prog:
		return &ir.Prog{Funs: apply(prog.Funs)}
	case *ir.MemProg:
		return &ir.MemProg{
			Prog:   ir.Prog{Funs: apply(prog.Funs)},
			Allocs: append([]ir.Alloc(nil), prog.Allocs...),
		}
	}
	panic(fmt.Sprintf("mapFuns: unknown program type %T", p))
}

func mapStmts(p ir.Program, fn func(ir.Stmt) []ir.Stmt) ir.Program {
	return mapFuns(p, func(f ir.Fun) ir.Fun {
		var body []ir.Stmt
		for _, s := range f.Body {
			body = append(body, fn(s)...)
		}
		f.Body = body
		return f
	})
}

func cloneFun(f ir.Fun) ir.Fun {
	f.Params = append([]ir.Param(nil), f.Params...)
	body := make([]ir.Stmt, len(f.Body))
	for i, s := range f.Body {
		s.Args = append([]string(nil), s.Args...)
		s.Aliases = append([]string(nil), s.Aliases...)
		body[i] = s
	}
	f.Body = body
	return f
}

func copyMemProg(p *ir.MemProg) *ir.MemProg {
	return mapFuns(p, cloneFun).(*ir.MemProg)
}
