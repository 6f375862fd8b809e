// Package agent invokes the external OpenClaw scaffolding agent as a
// subprocess. The decision logic that consumes it stays testable because
// everything goes through the Runner interface.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Result is the captured outcome of one agent invocation. ExitCode is only
// meaningful when the process actually ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Instruction carries everything the agent needs for one provisioning run.
type Instruction struct {
	ProjectID   int64
	ProjectPath string
	ProjectName string
	Description string
	RulesetPath string
}

// Runner executes one agent invocation inside the given context deadline.
// A nonzero exit is reported through Result, not through the error; the
// error covers launch failures and deadline expiry.
type Runner interface {
	Run(ctx context.Context, in Instruction) (Result, error)
}

// SessionKey derives the dedicated agent session for a project so its runs
// are traceable: project-{id}-{name with spaces collapsed to hyphens}.
func SessionKey(projectID int64, projectName string) string {
	return fmt.Sprintf("project-%d-%s", projectID, strings.ReplaceAll(projectName, " ", "-"))
}

// BuildPrompt renders the fixed provisioning instruction. The ruleset
// reference keeps the agent inside the operational rules checked into the
// project workspace.
func BuildPrompt(in Instruction) string {
	var b strings.Builder
	b.WriteString("Initialize website project. Project name: ")
	b.WriteString(in.ProjectName)
	if in.Description != "" {
		b.WriteString(" Description: ")
		b.WriteString(in.Description)
	}
	b.WriteString(" Follow the rules from ")
	b.WriteString(in.RulesetPath)
	b.WriteString(" strictly.")
	b.WriteString(" Select best frontend template. Clone template repository.")
	b.WriteString(" Setup FastAPI backend. Setup PostgreSQL database.")
	b.WriteString(" Configure environment variables. Verify deployment.")
	return b.String()
}

// CLIRunner shells out to the openclaw binary.
type CLIRunner struct {
	Bin string
}

func NewCLIRunner(bin string) *CLIRunner {
	if bin == "" {
		bin = "openclaw"
	}
	return &CLIRunner{Bin: bin}
}

func (r *CLIRunner) Run(ctx context.Context, in Instruction) (Result, error) {
	prompt := BuildPrompt(in)
	sessionKey := SessionKey(in.ProjectID, in.ProjectName)

	cmd := exec.CommandContext(ctx, r.Bin, "agent", "--to", sessionKey, "--message", prompt, "--local")
	// The agent reads rule.md, README.md etc. relative to the project.
	cmd.Dir = in.ProjectPath
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctx.Err() == context.DeadlineExceeded {
		return res, fmt.Errorf("agent run exceeded deadline: %w", context.DeadlineExceeded)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The agent ran and reported failure; that is a result, not a
			// transport error.
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("launch agent: %w", err)
	}

	res.ExitCode = 0
	return res, nil
}
