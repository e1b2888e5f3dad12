package ir

import "fmt"

// Rep identifies the shape an intermediate program currently has.
//
// The enumeration is closed: these seven values are the only representations
// the pipeline can produce, and a tag fully determines the structural type
// of the payload it accompanies (Prog for the unified representations,
// MemProg for the memory-annotated ones).
type Rep int

const (
	// Core is the unified representation produced by the front end and
	// consumed by the hardware-independent optimisation passes.
	Core Rep = iota

	// GpuParallel is the flat-parallel GPU representation.
	GpuParallel

	// GpuParallelMem is GpuParallel with explicit memory allocations.
	GpuParallelMem

	// MultiCore is the shared-memory multicore representation.
	MultiCore

	// MultiCoreMem is MultiCore with explicit memory allocations.
	MultiCoreMem

	// Sequential is the fully sequentialised representation.
	Sequential

	// SequentialMem is Sequential with explicit memory allocations.
	SequentialMem
)

// String returns the name used in diagnostics.
func (r Rep) String() string {
	switch r {
	case Core:
		return "Core"
	case GpuParallel:
		return "GpuParallel"
	case GpuParallelMem:
		return "GpuParallelMem"
	case MultiCore:
		return "MultiCore"
	case MultiCoreMem:
		return "MultiCoreMem"
	case Sequential:
		return "Sequential"
	case SequentialMem:
		return "SequentialMem"
	}
	return fmt.Sprintf("Rep(%d)", int(r))
}

// Mem reports whether r carries explicit memory information.
func (r Rep) Mem() bool {
	switch r {
	case GpuParallelMem, MultiCoreMem, SequentialMem:
		return true
	}
	return false
}

// Reps lists every representation, in declaration order.
func Reps() []Rep {
	return []Rep{
		Core,
		GpuParallel, GpuParallelMem,
		MultiCore, MultiCoreMem,
		Sequential, SequentialMem,
	}
}
