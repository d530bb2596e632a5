package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactively submit snippets to the container",
	Long: `Open an interactive loop that submits each entered snippet to the
container and prints its outcome. End a multi-line snippet with an empty
line; a line by itself is executed immediately.

Examples:
  agentrun repl --container python-runner`,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, r, err := buildRunner(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("AgentRun - sandboxed Python REPL\n")
	fmt.Printf("Container: %s | Timeout: %s\n", cfg.Runner.ContainerName, cfg.Runner.Timeout())
	fmt.Printf("End multi-line input with an empty line. Ctrl+D to exit.\n\n")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36mpy>\033[0m ",
		HistoryFile:     "/tmp/agentrun_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	for {
		snippet, err := readSnippet(rl)
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}
		if snippet == "" {
			continue
		}

		out, err := r.Execute(ctx, snippet)
		if err != nil {
			return err
		}
		fmt.Print(out)
		if !strings.HasSuffix(out, "\n") && out != "" {
			fmt.Println()
		}
	}
}

// readSnippet reads one snippet: a single line, or multiple lines ended by
// an empty line when the first line opens a block.
func readSnippet(rl *readline.Instance) (string, error) {
	first, err := rl.Readline()
	if err != nil {
		return "", err
	}
	first = strings.TrimRight(first, " \t")
	if first == "" {
		return "", nil
	}
	if !strings.HasSuffix(first, ":") {
		return first, nil
	}

	lines := []string{first}
	rl.SetPrompt("\033[36m...\033[0m ")
	defer rl.SetPrompt("\033[36mpy>\033[0m ")
	for {
		line, err := rl.Readline()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
