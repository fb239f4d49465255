// Package actuator binds engine failures to the host: a terminal bell, an
// external command that tells the simulator to fail the engine, or both.
package actuator

import (
	"fmt"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/verte-zerg/schneider/internal/engine"
)

// Bell rings the terminal bell on w.
type Bell struct {
	w io.Writer
}

// NewBell returns a Bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// FailEngine rings three times.
func (b *Bell) FailEngine() {
	_, _ = io.WriteString(b.w, "\a\a\a")
}

// Command runs a shell command when the engine fails. The command is started
// and not waited for.
type Command struct {
	command string
	log     *zap.Logger
	start   func(*exec.Cmd) error
}

// NewCommand returns a Command running command with sh -c.
func NewCommand(command string, log *zap.Logger) (*Command, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, fmt.Errorf("failure command is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Command{
		command: command,
		log:     log,
		start:   startDetached,
	}, nil
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the child in the background.
	go func() { _ = cmd.Wait() }()
	return nil
}

// FailEngine starts the command. Start errors are logged.
func (c *Command) FailEngine() {
	cmd := exec.Command("sh", "-c", c.command)
	if err := c.start(cmd); err != nil {
		c.log.Error("failed to start engine failure command",
			zap.String("command", c.command),
			zap.Error(err),
		)
		return
	}
	c.log.Info("engine failure command started", zap.String("command", c.command))
}

// Multi fans a failure out to several actuators in order.
type Multi []engine.Actuator

// FailEngine calls every actuator.
func (m Multi) FailEngine() {
	for _, a := range m {
		if a != nil {
			a.FailEngine()
		}
	}
}
