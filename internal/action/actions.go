package action

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/futlang/futc/internal/ir"
)

// Print is the default action: pretty-print the program in whatever
// representation it arrived in. With cfg.PrintAST it emits the
// serialized tree instead.
func Print() Action {
	return Action{
		Name:        "print",
		Description: "Print the program (default).",
		Run: func(cfg Config, prog ir.Program, base string) error {
			if cfg.PrintAST {
				enc := json.NewEncoder(cfg.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(prog)
			}
			_, err := fmt.Fprint(cfg.Out, prog.RenderText())
			return err
		},
	}
}

// PrintAliases prints the program with alias annotations on every
// binding.
func PrintAliases() Action {
	return Action{
		Name:        "print-aliases",
		Description: "Print the program with alias annotations.",
		Run: func(cfg Config, prog ir.Program, base string) error {
			_, err := fmt.Fprint(cfg.Out, prog.AliasText())
			return err
		},
	}
}

// Metrics prints structural metrics of the program, one construct per
// line.
func Metrics() Action {
	return Action{
		Name:        "metrics",
		Description: "Print structural metrics of the program.",
		Run: func(cfg Config, prog ir.Program, base string) error {
			_, err := fmt.Fprint(cfg.Out, prog.Metrics().Render())
			return err
		},
	}
}

// EmitGPU writes GPU code for a fully lowered GPU program to base.gpu.c.
func EmitGPU() Action {
	return emitAction("emit-gpu", "Emit GPU code.", ir.GpuParallelMem, ".gpu.c")
}

// EmitSeq writes sequential CPU code to base.c.
func EmitSeq() Action {
	return emitAction("emit-seq", "Emit sequential CPU code.", ir.SequentialMem, ".c")
}

// EmitMulticore writes multicore CPU code to base.mc.c.
func EmitMulticore() Action {
	return emitAction("emit-multicore", "Emit multicore CPU code.", ir.MultiCoreMem, ".mc.c")
}

// CompileGPU emits GPU code plus the program manifest used by the native
// toolchain to produce an executable.
func CompileGPU() Action {
	return compileAction("compile-gpu", "Compile to a GPU executable.", ir.GpuParallelMem, ".gpu.c")
}

// CompileCPU emits sequential code plus the program manifest.
func CompileCPU() Action {
	return compileAction("compile-cpu", "Compile to a sequential CPU executable.", ir.SequentialMem, ".c")
}

// CompileMulticore emits multicore code plus the program manifest.
func CompileMulticore() Action {
	return compileAction("compile-multicore", "Compile to a multicore executable.", ir.MultiCoreMem, ".mc.c")
}

func emitAction(name, desc string, rep ir.Rep, suffix string) Action {
	return Action{
		Name:        name,
		Description: desc,
		Reps:        []ir.Rep{rep},
		Run: func(cfg Config, prog ir.Program, base string) error {
			return emitFile(cfg, prog.(*ir.MemProg), base+suffix)
		},
	}
}

func compileAction(name, desc string, rep ir.Rep, suffix string) Action {
	return Action{
		Name:        name,
		Description: desc,
		Reps:        []ir.Rep{rep},
		Run: func(cfg Config, prog ir.Program, base string) error {
			mem := prog.(*ir.MemProg)
			if err := emitFile(cfg, mem, base+suffix); err != nil {
				return err
			}
			return writeManifest(cfg, mem, base+".json")
		},
	}
}

// emitFile renders a memory program as C-like code. Code emission proper
// is a backend concern; what matters here is that unsafe statements are
// refused in safe mode and that only entry points are emitted.
func emitFile(cfg Config, mem *ir.MemProg, path string) error {
	entries := map[string]bool{}
	for _, name := range cfg.EntryPoints {
		entries[name] = true
	}

	var b strings.Builder
	b.WriteString("/* generated by futc */\n")
	for _, a := range mem.Allocs {
		fmt.Fprintf(&b, "static mem_block %s; /* %s bytes in %s */\n", a.Name, a.Bytes, a.Space)
	}
	for _, f := range mem.Funs {
		if !f.Entry && !entries[f.Name] {
			continue
		}
		fmt.Fprintf(&b, "\nvoid %s(void) {\n", f.Name)
		for _, s := range f.Body {
			if s.Unsafe && cfg.SafeMode {
				return fmt.Errorf("%s: statement %q is marked unsafe", f.Name, s.Dest)
			}
			fmt.Fprintf(&b, "  %s = %s(%s);\n", s.Dest, s.Op, strings.Join(s.Args, ", "))
		}
		b.WriteString("}\n")
	}

	cfg.Logf("writing %s", path)
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// manifest describes the emitted program to the native toolchain.
type manifest struct {
	Entries []string   `json:"entries"`
	Allocs  []ir.Alloc `json:"allocs,omitempty"`
}

func writeManifest(cfg Config, mem *ir.MemProg, path string) error {
	m := manifest{Allocs: mem.Allocs}
	extra := map[string]bool{}
	for _, name := range cfg.EntryPoints {
		extra[name] = true
	}
	for _, f := range mem.Funs {
		if f.Entry || extra[f.Name] {
			m.Entries = append(m.Entries, f.Name)
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	cfg.Logf("writing %s", path)
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// All returns every selectable action, in a stable display order.
func All() []Action {
	return []Action{
		Print(),
		PrintAliases(),
		Metrics(),
		EmitGPU(),
		EmitSeq(),
		EmitMulticore(),
		CompileGPU(),
		CompileCPU(),
		CompileMulticore(),
	}
}

// Lookup resolves an action name.
func Lookup(name string) (Action, error) {
	for _, a := range All() {
		if a.Name == name {
			return a, nil
		}
	}
	return Action{}, fmt.Errorf("unknown action %q", name)
}
