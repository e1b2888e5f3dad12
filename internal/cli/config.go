package cli

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// ConfigFile is the optional per-project defaults file, read from the
// working directory. Flags given on the command line always win.
const ConfigFile = ".futc.yaml"

type fileConfig struct {
	Verbosity   *int     `yaml:"verbosity"`
	Log         *string  `yaml:"log"`
	WError      *bool    `yaml:"werror"`
	NoWarnings  *bool    `yaml:"no-warnings"`
	NoTypeCheck *bool    `yaml:"no-type-check"`
	PrintAST    *bool    `yaml:"print-ast"`
	Safe        *bool    `yaml:"safe"`
	Entries     []string `yaml:"entries"`
}

// applyConfigFile fills in options from ConfigFile for every flag the
// command line did not set. A missing file is not an error.
func applyConfigFile(opts *RootOptions, flags *pflag.FlagSet) error {
	data, err := os.ReadFile(ConfigFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%s: %w", ConfigFile, err)
	}

	if fc.Verbosity != nil && !flags.Changed("verbose") {
		opts.Verbosity = *fc.Verbosity
	}
	if fc.Log != nil && !flags.Changed("log") {
		opts.LogFile = *fc.Log
	}
	if fc.WError != nil && !flags.Changed("werror") {
		opts.WError = *fc.WError
	}
	if fc.NoWarnings != nil && !flags.Changed("no-warnings") {
		opts.NoWarnings = *fc.NoWarnings
	}
	if fc.NoTypeCheck != nil && !flags.Changed("no-type-check") {
		opts.NoTypeCheck = *fc.NoTypeCheck
	}
	if fc.PrintAST != nil && !flags.Changed("print-ast") {
		opts.PrintAST = *fc.PrintAST
	}
	if fc.Safe != nil && !flags.Changed("safe") {
		opts.Safe = *fc.Safe
	}
	if len(fc.Entries) > 0 && !flags.Changed("entry") {
		opts.Entries = fc.Entries
	}
	return nil
}
