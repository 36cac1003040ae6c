package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// CommandProber runs the platform ping binary with a single echo request.
type CommandProber struct {
	Command string    // binary to run, "ping" unless overridden
	GOOS    string    // selects the count flag; runtime.GOOS when empty
	Output  io.Writer // receives the command's stdout/stderr; nil discards
	Logger  *zap.Logger
}

func NewCommandProber(output io.Writer, logger *zap.Logger) *CommandProber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandProber{
		Command: "ping",
		GOOS:    runtime.GOOS,
		Output:  output,
		Logger:  logger,
	}
}

// Args returns the argument list for one echo request to address.
func (p *CommandProber) Args(address string) []string {
	goos := p.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	count := "-c"
	if goos == "windows" {
		count = "-n"
	}
	return []string{count, "1", address}
}

func (p *CommandProber) Probe(ctx context.Context, address string) Result {
	name := p.Command
	if name == "" {
		name = "ping"
	}
	cmd := exec.CommandContext(ctx, name, p.Args(address)...)
	out := p.Output
	if out == nil {
		out = io.Discard
	}
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	err := cmd.Run()
	res := Result{Latency: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Reachable = true
		res.Message = "exit status 0"
	case errors.As(err, &exitErr):
		res.Message = fmt.Sprintf("exit status %d", exitErr.ExitCode())
	default:
		// the command never produced an exit status; count it as a failure
		res.Message = "launch_error: " + err.Error()
		if p.Logger != nil {
			p.Logger.Warn("probe_launch_error",
				zap.String("command", name),
				zap.String("address", address),
				zap.Error(err),
			)
		}
	}
	return res
}
