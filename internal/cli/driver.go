package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/futlang/futc/internal/action"
	"github.com/futlang/futc/internal/frontend"
	"github.com/futlang/futc/internal/ir"
	"github.com/futlang/futc/internal/pass"
	"github.com/futlang/futc/internal/pipeline"
)

// driveOptions is the fully assembled configuration of one compiler
// invocation: the chosen pipeline, the chosen action, the global
// options, and how far the front end should lower surface input.
type driveOptions struct {
	root      *RootOptions
	pipeline  pipeline.Pipeline
	action    action.Action
	lowerStop frontend.Stage
}

// drive is the whole control flow of a run: internalize the input file
// according to its extension, fold the pipeline over the tagged value,
// and dispatch the final value to the action. Every failure aborts the
// run; there are no partial results.
func drive(cmd *cobra.Command, opts driveOptions, path string) error {
	out := &Output{
		W:         cmd.OutOrStdout(),
		Err:       cmd.ErrOrStderr(),
		Verbosity: opts.root.Verbosity,
	}
	if opts.root.LogFile != "" {
		if err := out.Redirect(opts.root.LogFile); err != nil {
			return WrapExitError(ExitFailure, err)
		}
	}
	defer out.Close()

	if err := run(out, opts, path); err != nil {
		return WrapExitError(ExitFailure, err)
	}
	return nil
}

func run(out *Output, opts driveOptions, path string) error {
	token := uuid.Must(uuid.NewV7()).String()
	out.Logf(1, "[%s] compiling %s", token, path)

	value, done, err := internalize(out, opts, path)
	if err != nil || done {
		return err
	}

	passCfg := pass.Config{
		Verbose:  opts.root.Verbosity > 0,
		Validate: !opts.root.NoTypeCheck,
		Token:    token,
		Log: func(format string, args ...any) {
			out.Logf(1, format, args...)
		},
	}
	final, err := pipeline.Run(passCfg, opts.pipeline, value)
	if err != nil {
		return err
	}

	actCfg := action.Config{
		Out:         out.W,
		PrintAST:    opts.root.PrintAST,
		SafeMode:    opts.root.Safe,
		EntryPoints: opts.root.Entries,
		Log: func(format string, args ...any) {
			out.Logf(1, format, args...)
		},
	}
	return action.Dispatch(actCfg, opts.action, final, frontend.Base(path))
}

// internalize produces the initial tagged value for the input file. For
// surface source it runs the front end: decode, type check, the lowering
// stages, then internalisation with alias analysis. Dumps are decoded
// into their extension's representation directly. done reports that the
// run is complete without a pipeline (front-end inspection stop).
func internalize(out *Output, opts driveOptions, path string) (ir.Value, bool, error) {
	ext := filepath.Ext(path)
	if ext != frontend.SourceExt {
		if _, ok := frontend.RepForExt(ext); !ok {
			return ir.Value{}, false, &frontend.UnsupportedExtensionError{Path: path, Ext: ext}
		}
		v, err := frontend.LoadDump(path)
		return v, false, err
	}

	surface, err := frontend.LoadSurface(path)
	if err != nil {
		return ir.Value{}, false, err
	}

	if !opts.root.NoTypeCheck {
		warnings, err := frontend.Check(surface)
		if !opts.root.NoWarnings {
			if opts.root.WError && len(warnings) > 0 {
				return ir.Value{}, false, fmt.Errorf("warnings treated as errors:\n  %s",
					strings.Join(warnings, "\n  "))
			}
			for _, w := range warnings {
				out.Warnf("%s", w)
			}
		}
		if err != nil {
			return ir.Value{}, false, err
		}
	}

	lowered, names, err := frontend.Lower(surface, opts.lowerStop, frontend.Names(0))
	if err != nil {
		return ir.Value{}, false, err
	}
	out.Logf(2, "front end allocated %d names", names.Count())

	if opts.lowerStop < frontend.NumStages {
		// Inspection stop: print the partially lowered surface program
		// instead of running the pipeline.
		fmt.Fprint(out.W, frontend.Render(lowered))
		return ir.Value{}, true, nil
	}

	prog, err := frontend.Internalise(lowered, opts.root.Entries)
	if err != nil {
		return ir.Value{}, false, err
	}
	if err := ir.Check(prog); err != nil {
		return ir.Value{}, false, err
	}
	return ir.New(ir.Core, prog), false, nil
}
