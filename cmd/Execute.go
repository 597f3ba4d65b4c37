package cmd

import (
	"fmt"
	"os"
)

// exitFunc allows tests to stub process exit behavior.
var exitFunc = os.Exit

// Execute runs the CLI and exits with status 1 on any error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		exitFunc(1)
	}
}
