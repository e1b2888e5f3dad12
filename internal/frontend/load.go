package frontend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/futlang/futc/internal/ir"
)

// SourceExt is the surface-language file extension. Everything else in
// the extension table is a serialized IR dump that starts the pipeline
// in its representation directly.
const SourceExt = ".fut"

var dumpReps = map[string]ir.Rep{
	".core":           ir.Core,
	".sequential":     ir.Sequential,
	".sequential-mem": ir.SequentialMem,
	".gpu":            ir.GpuParallel,
	".gpu-mem":        ir.GpuParallelMem,
	".multicore":      ir.MultiCore,
	".multicore-mem":  ir.MultiCoreMem,
}

// SupportedExtensions lists every recognized extension, surface first.
func SupportedExtensions() []string {
	return []string{
		SourceExt,
		".core",
		".sequential", ".sequential-mem",
		".gpu", ".gpu-mem",
		".multicore", ".multicore-mem",
	}
}

// RepForExt resolves a dump extension to its starting representation.
func RepForExt(ext string) (ir.Rep, bool) {
	rep, ok := dumpReps[ext]
	return rep, ok
}

// UnsupportedExtensionError reports an input file the driver cannot
// internalize. The message lists the full extension table.
type UnsupportedExtensionError struct {
	Path string
	Ext  string
}

func (e *UnsupportedExtensionError) Error() string {
	return fmt.Sprintf("%s: unsupported file extension %q (supported: %s)",
		e.Path, e.Ext, strings.Join(SupportedExtensions(), ", "))
}

// LoadDump reads a serialized IR dump and returns it tagged with the
// representation its extension declares.
func LoadDump(path string) (ir.Value, error) {
	ext := filepath.Ext(path)
	rep, ok := dumpReps[ext]
	if !ok {
		return ir.Value{}, &UnsupportedExtensionError{Path: path, Ext: ext}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ir.Value{}, err
	}

	var prog ir.Program
	if rep.Mem() {
		var mem ir.MemProg
		if err := json.Unmarshal(data, &mem); err != nil {
			return ir.Value{}, &ParseError{Path: path, Err: err}
		}
		prog = &mem
	} else {
		var p ir.Prog
		if err := json.Unmarshal(data, &p); err != nil {
			return ir.Value{}, &ParseError{Path: path, Err: err}
		}
		prog = &p
	}

	if err := ir.Check(prog); err != nil {
		return ir.Value{}, &ParseError{Path: path, Err: err}
	}
	return ir.New(rep, prog), nil
}

// LoadSurface reads and decodes a surface source file.
func LoadSurface(path string) (*Prog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeSurface(path, data)
}

// Base returns the input file's base name without extension, handed to
// actions that write output files next to the input.
func Base(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
