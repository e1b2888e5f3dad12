package pipeline

import (
	"fmt"

	"github.com/futlang/futc/internal/pass"
)

// Presets are the canonical pipelines behind the compile commands. They
// are ordinary pipelines; selecting one and then appending further passes
// composes the same way hand-assembled pipelines do.

// Standard is the hardware-independent optimisation pipeline. It starts
// and ends in the Core representation.
func Standard() Pipeline {
	return New(
		pass.Simplify(),
		pass.Inline(),
		pass.Simplify(),
		pass.Fuse(),
		pass.CSE(),
		pass.Simplify(),
	)
}

// GPU lowers to the GPU representation, ending in GpuParallel.
func GPU() Pipeline {
	return Standard().Then(
		pass.ExtractGPU(),
		pass.Simplify(),
		pass.CSE(),
	)
}

// GPUMem is the full GPU compilation pipeline, ending in GpuParallelMem.
func GPUMem() Pipeline {
	return GPU().Then(
		pass.Allocate(),
		pass.Simplify(),
		pass.DoubleBuffer(),
		pass.LowerInPlace(),
	)
}

// SeqMem is the sequential CPU compilation pipeline, ending in
// SequentialMem.
func SeqMem() Pipeline {
	return Standard().Then(
		pass.Sequentialise(),
		pass.Simplify(),
		pass.Allocate(),
		pass.LowerInPlace(),
	)
}

// MCMem is the multicore compilation pipeline, ending in MultiCoreMem.
func MCMem() Pipeline {
	return Standard().Then(
		pass.ExtractMulticore(),
		pass.Simplify(),
		pass.AllocateMulticore(),
		pass.LowerInPlace(),
	)
}

// PresetNames lists the selectable preset names, in display order.
func PresetNames() []string {
	return []string{"standard", "gpu", "gpu-mem", "seq-mem", "mc-mem"}
}

// Preset resolves a preset name to its pipeline.
func Preset(name string) (Pipeline, error) {
	switch name {
	case "standard":
		return Standard(), nil
	case "gpu":
		return GPU(), nil
	case "gpu-mem":
		return GPUMem(), nil
	case "seq-mem":
		return SeqMem(), nil
	case "mc-mem":
		return MCMem(), nil
	}
	return Pipeline{}, fmt.Errorf("unknown pipeline %q (have %v)", name, PresetNames())
}
