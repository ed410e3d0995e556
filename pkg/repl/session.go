package repl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/rhuss/webconsole/pkg/debug"
)

// errorPrefix marks failed evaluations in the captured output.
const errorPrefix = "Error: "

// TruncatedMarker is the line appended to output cut at MaxOutputChars.
const TruncatedMarker = "... (output truncated)"

// RequestInfo is a snapshot of the host request that triggered the current
// evaluation. It is published to evaluated code as the global "request".
type RequestInfo struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Query      string            `json:"query"`
	RemoteAddr string            `json:"remoteAddr"`
	Host       string            `json:"host"`
	Headers    map[string]string `json:"headers"`
	Params     map[string]string `json:"params"`
	RequestID  string            `json:"requestId"`
	ReceivedAt time.Time         `json:"receivedAt"`
}

// Result is the outcome of a single evaluation.
type Result struct {
	// Prompt is the prompt that was active when the input was submitted,
	// followed by the input itself.
	Prompt string

	// Output is everything the evaluation wrote, followed by the formatted
	// result or the exception text.
	Output string

	// Line is the input number this evaluation consumed.
	Line int

	// Failed is true when the code threw, timed out, or a shell command
	// exited unsuccessfully.
	Failed bool

	// Truncated is true when Output was cut to Config.MaxOutputChars and
	// ends with TruncatedMarker.
	Truncated bool

	// Duration is the wall time spent evaluating, timers included.
	Duration time.Duration

	// Err is the underlying failure, for logging and metrics only.
	Err error
}

// Session is a persistent evaluation context.
type Session struct {
	id     string
	config Config
	vm     *goja.Runtime

	out     strings.Builder
	ctx     context.Context // context of the evaluation in progress
	timers  *timerQueue
	history []string
	line    int
	request *RequestInfo

	createdAt time.Time
}

// NewSession creates a session with a fresh runtime and the console builtins
// installed.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Shell == "" {
		cfg.Shell = DefaultConfig().Shell
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	s := &Session{
		id:        uuid.NewString(),
		config:    cfg,
		vm:        vm,
		ctx:       context.Background(),
		timers:    newTimerQueue(),
		line:      1,
		createdAt: time.Now(),
	}

	if err := s.installBuiltins(); err != nil {
		return nil, fmt.Errorf("installing builtins: %w", err)
	}

	debug.Log("repl", "session created", "session_id", s.id)
	return s, nil
}

// ID returns the unique identifier of this session.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Line returns the number the next input will get.
func (s *Session) Line() int { return s.line }

// Prompt returns the prompt for the next input.
func (s *Session) Prompt() string {
	return fmt.Sprintf("[%d] js> ", s.line)
}

// History returns a copy of the inputs evaluated so far, oldest first.
func (s *Session) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// SetRequest publishes the host request to evaluated code.
func (s *Session) SetRequest(info RequestInfo) {
	s.request = &info
	if err := s.vm.Set("request", info); err != nil {
		debug.Log("repl", "publishing request failed", "error", err)
	}
}

// Request returns the last published host request, or nil.
func (s *Session) Request() *RequestInfo {
	return s.request
}

// Eval evaluates code and returns the captured output. The context bounds the
// evaluation together with Config.Timeout; when either expires the runtime is
// interrupted and the session stays usable.
func (s *Session) Eval(ctx context.Context, code string) Result {
	start := time.Now()
	s.out.Reset()

	res := Result{
		Prompt: s.Prompt() + code,
		Line:   s.line,
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	s.ctx = ctx
	defer func() { s.ctx = context.Background() }()

	if IsShellCommand(code) {
		res.Err = s.runShell(ctx, strings.TrimPrefix(strings.TrimSpace(code), "."))
	} else {
		res.Err = s.runScript(ctx, code)
	}

	s.remember(code)

	res.Failed = res.Err != nil
	res.Output = s.out.String()
	if max := s.config.MaxOutputChars; max > 0 && utf8.RuneCountInString(res.Output) > max {
		res.Output = truncateOutput(res.Output, max)
		res.Truncated = true
	}
	res.Duration = time.Since(start)

	debug.Log("repl", "evaluated",
		"session_id", s.id,
		"line", res.Line,
		"failed", res.Failed,
		"duration", res.Duration,
	)
	debug.Trace("repl", "evaluation output", "code", code, "output", res.Output)

	return res
}

// runScript evaluates JavaScript source, drains due timers and writes the
// result or exception to the output buffer.
func (s *Session) runScript(ctx context.Context, code string) error {
	stop := s.watchInterrupt(ctx)
	val, err := s.vm.RunString(code)
	if err == nil {
		err = s.drainTimers(ctx)
	}
	stop()

	// The watcher's interrupt can land after the last instruction ran.
	if err == nil && ctx.Err() != nil {
		err = interruptReason(ctx)
	}

	if err != nil {
		s.writeError(err)
		if ex, ok := err.(*goja.Exception); ok {
			_ = s.vm.Set("_ex_", ex.Value())
		}
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return interruptCause(interrupted)
		}
		return err
	}

	if formatted := s.formatValue(val); formatted != "" {
		s.ensureNewline()
		s.out.WriteString("=> ")
		s.out.WriteString(formatted)
		s.out.WriteString("\n")
	}
	_ = s.vm.Set("_", val)
	return nil
}

// watchInterrupt interrupts the runtime once ctx is done. The returned
// function stops watching and clears any interrupt that raced with
// completion, so the next evaluation starts clean.
func (s *Session) watchInterrupt(ctx context.Context) func() {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			s.vm.Interrupt(interruptReason(ctx))
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
		s.vm.ClearInterrupt()
	}
}

// writeError appends the failure text, making sure it carries "Error:".
func (s *Session) writeError(err error) {
	var msg string
	var ex *goja.Exception
	var interrupted *goja.InterruptedError
	switch {
	case errors.As(err, &ex) && ex.Value() != nil:
		msg = ex.Value().String()
	case errors.As(err, &interrupted):
		msg = interruptCause(interrupted).Error()
	default:
		msg = err.Error()
	}
	if !strings.Contains(msg, "Error:") {
		msg = errorPrefix + msg
	}
	s.ensureNewline()
	s.out.WriteString(msg)
	s.out.WriteString("\n")
}

// interruptReason tells an expired deadline apart from an explicit cancel.
func interruptReason(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ErrInterrupted
	}
	return ErrTimeout
}

func interruptCause(ie *goja.InterruptedError) error {
	if err, ok := ie.Value().(error); ok {
		return err
	}
	return ErrTimeout
}

// truncateOutput keeps the first max characters of out, never splitting a
// multi-byte character, and appends TruncatedMarker on its own line.
func truncateOutput(out string, max int) string {
	n := 0
	for i := range out {
		if n == max {
			out = out[:i]
			break
		}
		n++
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + TruncatedMarker + "\n"
}

func (s *Session) ensureNewline() {
	if s.out.Len() == 0 {
		return
	}
	if !strings.HasSuffix(s.out.String(), "\n") {
		s.out.WriteString("\n")
	}
}

func (s *Session) remember(code string) {
	s.line++
	if strings.TrimSpace(code) == "" {
		return
	}
	s.history = append(s.history, code)
	if max := s.config.MaxHistory; max > 0 && len(s.history) > max {
		s.history = s.history[len(s.history)-max:]
	}
}

// Store is a process-wide holder for a lazily created session. The zero
// value is ready to use.
type Store struct {
	// OnCreate, when set, is called with every newly created session while
	// the store lock is held.
	OnCreate func(*Session)

	mu      sync.Mutex
	session *Session
}

// Get returns the stored session, creating it with cfg when absent.
func (st *Store) Get(cfg Config) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session != nil {
		return st.session, nil
	}
	s, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}
	st.session = s
	if st.OnCreate != nil {
		st.OnCreate(s)
	}
	return s, nil
}

// Current returns the stored session without creating one.
func (st *Store) Current() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session
}

// Reset drops the stored session. The next Get creates a fresh one.
func (st *Store) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.session = nil
}
