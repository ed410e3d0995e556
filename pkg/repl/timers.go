package repl

import (
	"context"
	"sort"
	"time"

	"github.com/dop251/goja"
)

// timer is a pending setTimeout or setInterval callback.
type timer struct {
	id       int64
	due      time.Time
	interval time.Duration // zero for one-shot timers
	fn       goja.Callable
	args     []goja.Value
}

// timerQueue holds pending callbacks in due order. Only the goroutine that
// owns the session touches it.
type timerQueue struct {
	nextID  int64
	pending []*timer
}

func newTimerQueue() *timerQueue {
	return &timerQueue{nextID: 1}
}

func (q *timerQueue) add(t *timer) int64 {
	t.id = q.nextID
	q.nextID++
	q.insert(t)
	return t.id
}

func (q *timerQueue) insert(t *timer) {
	q.pending = append(q.pending, t)
	sort.SliceStable(q.pending, func(i, j int) bool {
		return q.pending[i].due.Before(q.pending[j].due)
	})
}

func (q *timerQueue) remove(id int64) {
	for i, t := range q.pending {
		if t.id == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

func (q *timerQueue) next() *timer {
	if len(q.pending) == 0 {
		return nil
	}
	return q.pending[0]
}

func (q *timerQueue) len() int { return len(q.pending) }

// drainTimers runs pending callbacks in due order. It waits for a callback
// only while it falls inside the TimerWait window; anything due later stays
// queued for a following evaluation. A context that ends while waiting fails
// the evaluation with ErrTimeout or ErrInterrupted.
func (s *Session) drainTimers(ctx context.Context) error {
	limit := time.Now().Add(s.config.TimerWait)
	for {
		t := s.timers.next()
		if t == nil || t.due.After(limit) {
			return nil
		}

		if wait := time.Until(t.due); wait > 0 {
			clock := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				clock.Stop()
				return interruptReason(ctx)
			case <-clock.C:
			}
		}

		s.timers.remove(t.id)
		if t.interval > 0 {
			t.due = t.due.Add(t.interval)
			s.timers.insert(t)
		}

		if _, err := t.fn(goja.Undefined(), t.args...); err != nil {
			return err
		}
	}
}

func (s *Session) schedule(call goja.FunctionCall, repeat bool) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(s.vm.NewTypeError("callback must be a function"))
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}

	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	t := &timer{
		due:  time.Now().Add(delay),
		fn:   fn,
		args: args,
	}
	if repeat {
		// Zero-delay intervals would never yield.
		if delay < time.Millisecond {
			delay = time.Millisecond
		}
		t.interval = delay
	}
	return s.vm.ToValue(s.timers.add(t))
}

func (s *Session) cancelTimer(call goja.FunctionCall) goja.Value {
	s.timers.remove(call.Argument(0).ToInteger())
	return goja.Undefined()
}
