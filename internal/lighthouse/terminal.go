package lighthouse

import (
	"context"
	"fmt"
	"os/exec"
)

// ExecFunc runs a command and captures its stdout.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandOutput is the ExecFunc backed by os/exec.
func CommandOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// TerminalAuditor runs the lighthouse CLI in a child process and reads the
// JSON report from its stdout.
type TerminalAuditor struct {
	exec   ExecFunc
	binary string
}

// NewTerminalAuditor returns an auditor invoking binary through execFn.
func NewTerminalAuditor(execFn ExecFunc, binary string) *TerminalAuditor {
	if binary == "" {
		binary = "lighthouse"
	}
	return &TerminalAuditor{exec: execFn, binary: binary}
}

// Audit launches a headless run against targetURL.
func (t *TerminalAuditor) Audit(ctx context.Context, targetURL string) (*Result, error) {
	out, err := t.exec(ctx, t.binary,
		targetURL,
		"--output=json",
		"--output-path=stdout",
		"--quiet",
		"--chrome-flags=--headless --no-sandbox",
	)
	if err != nil {
		return nil, fmt.Errorf("lighthouse: run %s: %w", t.binary, err)
	}
	return Decode(out)
}
