package repl

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rhuss/webconsole/pkg/debug"
)

// IsShellCommand reports whether code is a shell command rather than script.
func IsShellCommand(code string) bool {
	return strings.HasPrefix(strings.TrimSpace(code), ".")
}

// runShell executes a console shell command (an input starting with ".")
// and captures its combined stdout and stderr.
func (s *Session) runShell(ctx context.Context, command string) error {
	command = strings.TrimSpace(command)
	if !s.config.ShellCommands {
		s.writeError(ErrShellDisabled)
		return ErrShellDisabled
	}
	if command == "" {
		return nil
	}

	if s.config.ShellTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShellTimeout)
		defer cancel()
	}

	debug.Log("repl", "shell command", "session_id", s.id, "command", debug.Truncate(command, 120))

	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, s.config.Shell, "-c", command)
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	s.out.Write(buf.Bytes())

	if err != nil {
		if ctx.Err() != nil {
			err = ErrTimeout
		} else {
			err = fmt.Errorf("shell command failed: %w", err)
		}
		s.writeError(err)
		return err
	}
	return nil
}
