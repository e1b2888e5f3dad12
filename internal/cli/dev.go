package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/futlang/futc/internal/action"
	"github.com/futlang/futc/internal/frontend"
	"github.com/futlang/futc/internal/pass"
	"github.com/futlang/futc/internal/pipeline"
)

// DevOptions holds the flags of the dev command: the hand-assembled
// pipeline, the terminal action, and the front-end inspection stop.
type DevOptions struct {
	*RootOptions
	Passes      []string
	Preset      string
	ActionName  string
	Lower       int
	ListPasses  bool
	ListActions bool
}

// NewDevCommand creates the dev command, the playground surface of the
// driver: any pass sequence, any preset, any action.
func NewDevCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DevOptions{RootOptions: rootOpts, Lower: frontend.NumStages}

	cmd := &cobra.Command{
		Use:   "dev <program>",
		Short: "Run a hand-assembled pass pipeline",
		Long: `Run the compiler with a hand-assembled pipeline. Passes given with
--pass run in the order the flags appear, after the preset selected with
--pipeline (if any). The final program goes to the action selected with
--action; the default action prints it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.ListPasses || opts.ListActions {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ListPasses {
				return listPasses(cmd)
			}
			if opts.ListActions {
				return listActions(cmd)
			}
			return runDev(cmd, opts, args[0])
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVarP(&opts.Passes, "pass", "p", nil, "append a pass to the pipeline (repeatable, in order)")
	fl.StringVar(&opts.Preset, "pipeline", "", "start from a preset pipeline (standard|gpu|gpu-mem|seq-mem|mc-mem)")
	fl.StringVarP(&opts.ActionName, "action", "a", "print", "terminal action")
	fl.IntVar(&opts.Lower, "lower", frontend.NumStages, "stop after N front-end lowering stages (0-4) and print")
	fl.BoolVar(&opts.ListPasses, "list-passes", false, "list selectable passes and exit")
	fl.BoolVar(&opts.ListActions, "list-actions", false, "list selectable actions and exit")

	return cmd
}

func runDev(cmd *cobra.Command, opts *DevOptions, path string) error {
	if opts.Lower < 0 || opts.Lower > frontend.NumStages {
		return WrapExitError(ExitFailure,
			fmt.Errorf("--lower must be between 0 and %d", frontend.NumStages))
	}

	p := pipeline.New()
	if opts.Preset != "" {
		preset, err := pipeline.Preset(opts.Preset)
		if err != nil {
			return WrapExitError(ExitFailure, err)
		}
		p = preset
	}
	for _, sel := range opts.Passes {
		ps, err := pass.Lookup(sel)
		if err != nil {
			return WrapExitError(ExitFailure, err)
		}
		p = p.Then(ps)
	}

	act, err := action.Lookup(opts.ActionName)
	if err != nil {
		return WrapExitError(ExitFailure, err)
	}

	return drive(cmd, driveOptions{
		root:      opts.RootOptions,
		pipeline:  p,
		action:    act,
		lowerStop: frontend.Stage(opts.Lower),
	}, path)
}

func listPasses(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Passes:")
	for _, p := range pass.All() {
		fmt.Fprintf(w, "  %-22s %-3s %s\n", p.Name, p.Short, p.Description)
	}
	return nil
}

func listActions(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Actions:")
	for _, a := range action.All() {
		reps := "any"
		if len(a.Reps) > 0 {
			reps = a.Reps[0].String()
			for _, r := range a.Reps[1:] {
				reps += ", " + r.String()
			}
		}
		fmt.Fprintf(w, "  %-20s [%s] %s\n", a.Name, reps, a.Description)
	}
	return nil
}
