// Command code-runner exposes the AgentRun pipeline as an MCP tool server
// over stdio, so agent frameworks can call execute_python directly.
//
// The target container is named by the AGENTRUN_CONTAINER_NAME environment
// variable or the standard agentrun.yaml config.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/michaelbrown/agentrun/internal/config"
	"github.com/michaelbrown/agentrun/internal/container"
	"github.com/michaelbrown/agentrun/internal/runner"
)

func main() {
	ctx := context.Background()

	r, err := buildRunner(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "code-runner: %v\n", err)
		os.Exit(1)
	}

	s := mcpserver.NewMCPServer("agentrun-code-runner", "0.1.0")

	s.AddTool(mcp.Tool{
		Name: "execute_python",
		Description: "Execute a Python snippet in a sandboxed container. " +
			"Returns the program's stdout, or the error traceback on failure. " +
			"Third-party imports are installed for the run and removed afterwards.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Python source code to execute",
				},
			},
			Required: []string{"code"},
		},
	}, handleExecute(r))

	if err := mcpserver.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
	}
}

func buildRunner(ctx context.Context) (*runner.Runner, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Runner.Validate(); err != nil {
		return nil, err
	}

	adapter, err := container.NewDockerAdapter(ctx, cfg.Runner.ContainerName)
	if err != nil {
		return nil, fmt.Errorf("connecting to container %q: %w", cfg.Runner.ContainerName, err)
	}
	return runner.New(ctx, cfg.Runner, adapter)
}

func handleExecute(r *runner.Runner) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		if args == nil {
			return errResult("error: invalid arguments"), nil
		}

		code, _ := args["code"].(string)
		if code == "" {
			return errResult("error: 'code' is required"), nil
		}

		report, err := r.Run(ctx, code)
		if err != nil {
			return errResult(fmt.Sprintf("error: %v", err)), nil
		}

		text := report.Outcome
		if len(text) > 4000 {
			text = text[:4000] + "\n... (output truncated)"
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
			IsError: report.Status != runner.StatusOK,
		}, nil
	}
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
