package process

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/leekd123/nutify/internal/logging"
)

// waitDelay bounds Wait after the child exits, so pipes inherited by
// daemonized grandchildren cannot keep the reaper blocked.
const waitDelay = 3 * time.Second

// Child is a foreground service running as a direct child in its own
// process group. The group keeps the service alive when the supervisor
// exits; a later supervisor re-adopts it from its PID file.
type Child struct {
	name   string
	cmd    *exec.Cmd
	logger logging.Logger

	mu       sync.Mutex
	exited   bool
	exitErr  error
	exitedCh chan struct{}
}

// ChildOptions tune output handling for a started child.
type ChildOptions struct {
	// OutputLogger receives the service's own output lines; the child's
	// lifecycle logger is used when nil.
	OutputLogger logging.Logger
	// LogParser classifies output lines; everything is info when nil.
	LogParser LogParser
}

// StartChild parses and starts command as a process-group leader and begins
// streaming its output. It does not wait for readiness; callers probe that
// separately.
func StartChild(name, command string, logger logging.Logger, opts *ChildOptions) (*Child, error) {
	args, err := parseCommand(command)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command for %s: %w", name, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command for %s", name)
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe for %s: %w", name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe for %s: %w", name, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	c := &Child{
		name:     name,
		cmd:      cmd,
		logger:   logger,
		exitedCh: make(chan struct{}),
	}
	logger.Info("Process started", "service", name, "pid", cmd.Process.Pid, "command", command)

	outputLogger := logger
	var parser LogParser
	if opts != nil {
		if opts.OutputLogger != nil {
			outputLogger = opts.OutputLogger
		}
		parser = opts.LogParser
	}
	var outputWG sync.WaitGroup
	outputWG.Add(2)
	go func() {
		defer outputWG.Done()
		streamOutput(stdout, outputLogger, parser, logger, name, "stdout")
	}()
	go func() {
		defer outputWG.Done()
		streamOutput(stderr, outputLogger, parser, logger, name, "stderr")
	}()

	go func() {
		err := cmd.Wait()
		outputWG.Wait()
		c.mu.Lock()
		c.exited = true
		c.exitErr = err
		c.mu.Unlock()
		close(c.exitedCh)
	}()

	return c, nil
}

// PID returns the child's process ID.
func (c *Child) PID() int {
	return c.cmd.Process.Pid
}

// Alive reports whether the child has not yet been reaped.
func (c *Child) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.exited
}

// Done is closed once the child has exited and its output is drained.
func (c *Child) Done() <-chan struct{} {
	return c.exitedCh
}

// ExitErr returns the Wait error after Done is closed.
func (c *Child) ExitErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitErr
}

// Signal sends sig to the child process.
func (c *Child) Signal(sig syscall.Signal) error {
	return Signal(c.PID(), sig)
}

// Signal sends sig to a single process.
func Signal(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(pid, sig); err != nil {
		return fmt.Errorf("failed to signal pid %d with %s: %w", pid, sig, err)
	}
	return nil
}

// SignalGroup sends sig to the whole process group led by pid. Used in the
// forced-kill phase so stray descendants go down with the leader.
func SignalGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil {
		return fmt.Errorf("failed to signal group %d with %s: %w", pid, sig, err)
	}
	return nil
}

// streamOutput routes each output line through the parser into the logger.
func streamOutput(reader io.Reader, logger logging.Logger, parser LogParser, errLogger logging.Logger, name, source string) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()
		level, msg := "info", line
		if parser != nil {
			level, msg = parser(line)
		}
		switch level {
		case "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "debug", "trace":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}
	if err := scanner.Err(); err != nil {
		errLogger.Warn("Error reading process output", "service", name, "source", source, "error", err)
	}
}

// parseCommand splits a command string into arguments, handling quoted
// strings and backslash escapes.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	runes := []rune(strings.TrimSpace(command))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	if inQuote {
		return nil, fmt.Errorf("unclosed quote in command")
	}
	return args, nil
}
