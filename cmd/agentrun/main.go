package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var containerFlag string

var rootCmd = &cobra.Command{
	Use:   "agentrun",
	Short: "AgentRun - sandboxed Python code execution",
	Long: `AgentRun executes untrusted Python snippets inside an already-running
Docker container and returns the program's output or a faithful error trace.

Snippets are screened before anything touches the container, third-party
dependencies are installed for the run and removed afterwards, and every
execution is bounded by CPU, memory, and wall-clock limits.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&containerFlag, "container", "", "Target container name (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
