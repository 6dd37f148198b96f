package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/leekd123/nutify/internal/logging"
)

// RunCommand runs a control command to completion with a bounded timeout,
// streaming its output like a child service. On timeout the command itself
// is killed; processes that already daemonized out of its group, like the
// NUT drivers under upsdrvctl, are unaffected.
func RunCommand(ctx context.Context, name, command string, timeout time.Duration, logger logging.Logger, opts *ChildOptions) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args, err := parseCommand(command)
	if err != nil {
		return fmt.Errorf("failed to parse command for %s: %w", name, err)
	}
	if len(args) == 0 {
		return fmt.Errorf("empty command for %s", name)
	}

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe for %s: %w", name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe for %s: %w", name, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	logger.Debug("Command started", "name", name, "pid", cmd.Process.Pid, "command", command)

	outputLogger := logger
	var parser LogParser
	if opts != nil {
		if opts.OutputLogger != nil {
			outputLogger = opts.OutputLogger
		}
		parser = opts.LogParser
	}
	done := make(chan struct{}, 2)
	go func() {
		streamOutput(stdout, outputLogger, parser, logger, name, "stdout")
		done <- struct{}{}
	}()
	go func() {
		streamOutput(stderr, outputLogger, parser, logger, name, "stderr")
		done <- struct{}{}
	}()

	waitErr := cmd.Wait()
	<-done
	<-done

	if waitErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s timed out after %s", name, timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return fmt.Errorf("%s exited with code %d", name, exitErr.ExitCode())
		}
		return fmt.Errorf("%s failed: %w", name, waitErr)
	}
	return nil
}
