package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds the global compiler options shared by every command.
// They are assembled once, before any pipeline runs, and read-only
// afterwards.
type RootOptions struct {
	Verbosity   int
	LogFile     string
	WError      bool
	NoWarnings  bool
	NoTypeCheck bool
	PrintAST    bool
	Safe        bool
	Entries     []string
}

// NewRootCommand creates the root command for the futc driver.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "futc",
		Short: "futc - data-parallel array language compiler",
		Long: `futc compiles array programs through a sequence of representation-
indexed passes and hands the result to a terminal action.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyConfigFile(opts, cmd.Flags())
		},
	}

	pf := cmd.PersistentFlags()
	pf.CountVarP(&opts.Verbosity, "verbose", "v", "increase verbosity (repeatable)")
	pf.StringVar(&opts.LogFile, "log", "", "redirect diagnostics to a file")
	pf.BoolVar(&opts.WError, "werror", false, "treat warnings as errors")
	pf.BoolVar(&opts.NoWarnings, "no-warnings", false, "disable warnings")
	pf.BoolVar(&opts.NoTypeCheck, "no-type-check", false, "disable type checking and inter-pass validation")
	pf.BoolVar(&opts.PrintAST, "print-ast", false, "print the serialized tree instead of the pretty form")
	pf.BoolVar(&opts.Safe, "safe", false, "refuse statements marked unsafe")
	pf.StringArrayVar(&opts.Entries, "entry", nil, "additional entry point (repeatable)")

	cmd.AddCommand(NewDevCommand(opts))
	cmd.AddCommand(NewGPUCommand(opts))
	cmd.AddCommand(NewCPUCommand(opts))
	cmd.AddCommand(NewMulticoreCommand(opts))

	return cmd
}
