package cli

import (
	"github.com/spf13/cobra"

	"github.com/futlang/futc/internal/action"
	"github.com/futlang/futc/internal/frontend"
	"github.com/futlang/futc/internal/pipeline"
)

// The compile commands pair a preset pipeline with its code-generating
// action. They accept the same inputs as dev: surface source or any IR
// dump whose representation the preset can consume.

// NewGPUCommand creates the gpu compile command.
func NewGPUCommand(rootOpts *RootOptions) *cobra.Command {
	return newCompileCommand(rootOpts, "gpu",
		"Compile to a GPU executable", pipeline.GPUMem, action.CompileGPU)
}

// NewCPUCommand creates the cpu compile command.
func NewCPUCommand(rootOpts *RootOptions) *cobra.Command {
	return newCompileCommand(rootOpts, "cpu",
		"Compile to a sequential CPU executable", pipeline.SeqMem, action.CompileCPU)
}

// NewMulticoreCommand creates the multicore compile command.
func NewMulticoreCommand(rootOpts *RootOptions) *cobra.Command {
	return newCompileCommand(rootOpts, "multicore",
		"Compile to a multicore executable", pipeline.MCMem, action.CompileMulticore)
}

func newCompileCommand(rootOpts *RootOptions, name, short string,
	preset func() pipeline.Pipeline, act func() action.Action) *cobra.Command {

	return &cobra.Command{
		Use:           name + " <program>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return drive(cmd, driveOptions{
				root:      rootOpts,
				pipeline:  preset(),
				action:    act(),
				lowerStop: frontend.NumStages,
			}, args[0])
		},
	}
}
