package repl

import (
	"strings"
	"time"

	"github.com/dop251/goja"
)

func (s *Session) installBuiltins() error {
	// stdout and stderr share one buffer so output keeps its write order.
	write := s.printer()

	if err := s.vm.Set("print", write); err != nil {
		return err
	}

	console := s.vm.NewObject()
	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"log":   write,
		"info":  write,
		"debug": write,
		"error": write,
		"warn":  write,
	} {
		if err := console.Set(name, fn); err != nil {
			return err
		}
	}
	if err := s.vm.Set("console", console); err != nil {
		return err
	}

	builtins := map[string]func(goja.FunctionCall) goja.Value{
		"sleep":         s.sleep,
		"setTimeout":    func(call goja.FunctionCall) goja.Value { return s.schedule(call, false) },
		"setInterval":   func(call goja.FunctionCall) goja.Value { return s.schedule(call, true) },
		"clearTimeout":  s.cancelTimer,
		"clearInterval": s.cancelTimer,
		"history":       s.historyBuiltin,
	}
	for name, fn := range builtins {
		if err := s.vm.Set(name, fn); err != nil {
			return err
		}
	}

	return s.vm.Set("request", goja.Null())
}

// printer returns a function that writes its arguments, space separated and
// newline terminated, to the captured output.
func (s *Session) printer() func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = s.printValue(arg)
		}
		s.out.WriteString(strings.Join(parts, " "))
		s.out.WriteString("\n")
		return goja.Undefined()
	}
}

// sleep blocks for the given number of milliseconds or until the evaluation
// is cancelled. A cancelled sleep interrupts the runtime itself so no further
// statement runs once control returns to the script.
func (s *Session) sleep(call goja.FunctionCall) goja.Value {
	d := time.Duration(call.Argument(0).ToFloat() * float64(time.Millisecond))
	if d <= 0 {
		return goja.Undefined()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.ctx.Done():
		s.vm.Interrupt(interruptReason(s.ctx))
	}
	return goja.Undefined()
}

func (s *Session) historyBuiltin(goja.FunctionCall) goja.Value {
	return s.vm.ToValue(s.History())
}
