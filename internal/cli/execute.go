package cli

import (
	"fmt"
	"os"
)

// Execute runs the root command and returns the process exit code: 0 on
// success, 2 on any reported failure.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "futc: %v\n", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
