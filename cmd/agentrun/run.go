package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Execute a snippet once and print its outcome",
	Long: `Execute a Python snippet from a file (or stdin with "-") inside the
configured container.

Examples:
  agentrun run script.py
  echo "print(1 + 1)" | agentrun run -`,
	Args: cobra.ExactArgs(1),
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	var (
		source []byte
		err    error
	)
	if args[0] == "-" {
		source, err = io.ReadAll(os.Stdin)
	} else {
		source, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading snippet: %w", err)
	}

	ctx := cmd.Context()
	_, r, err := buildRunner(ctx)
	if err != nil {
		return err
	}

	out, err := r.Execute(ctx, string(source))
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
