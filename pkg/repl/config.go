package repl

import (
	"errors"
	"time"
)

// Sentinel errors reported in Result.Err. They never change the HTTP outcome.
var (
	ErrTimeout       = errors.New("evaluation timed out")
	ErrInterrupted   = errors.New("evaluation interrupted")
	ErrShellDisabled = errors.New("shell commands are disabled")
)

// Config holds the session settings.
type Config struct {
	// Timeout bounds a single evaluation including timer draining.
	// Zero means the evaluation runs until it completes or the caller's
	// context is cancelled.
	Timeout time.Duration

	// TimerWait is the longest the session waits for pending setTimeout or
	// setInterval callbacks after the code itself returned. Callbacks due
	// later stay queued and run on a following evaluation.
	TimerWait time.Duration

	// MaxOutputChars caps the captured text returned per evaluation.
	// Zero disables truncation.
	MaxOutputChars int

	// MaxHistory caps the number of remembered inputs. Zero keeps everything.
	MaxHistory int

	// ShellCommands enables lines starting with "." to run through sh -c.
	ShellCommands bool

	// ShellTimeout bounds a single shell command.
	ShellTimeout time.Duration

	// Shell is the interpreter used for shell commands.
	Shell string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		TimerWait:      2 * time.Second,
		MaxOutputChars: 64 * 1024,
		MaxHistory:     1000,
		ShellCommands:  false,
		ShellTimeout:   10 * time.Second,
		Shell:          "/bin/sh",
	}
}
