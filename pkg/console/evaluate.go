package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/webconsole/pkg/debug"
	"github.com/rhuss/webconsole/pkg/observability"
	"github.com/rhuss/webconsole/pkg/repl"
	"github.com/rhuss/webconsole/pkg/storage"
)

// historyTimeout bounds a history write after the evaluation finished.
const historyTimeout = 5 * time.Second

// Evaluation is one piece of code submitted to the shared session.
type Evaluation struct {
	// ID identifies the evaluation for Interrupt. Generated when empty and
	// suffixed when another running evaluation already uses it.
	ID string

	Code string

	// Subject is the authenticated caller, recorded in the history.
	Subject string

	// Request, when set, is published to the session as "request".
	Request *repl.RequestInfo
}

// Evaluate runs ev in the shared session, waiting for any evaluation in
// progress. Evaluation failures are reported in the Result; the error is
// only set when the evaluation never started.
func (e *Endpoint) Evaluate(ctx context.Context, ev Evaluation) (repl.Result, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	id, release := e.inflight.Register(ev.ID, cancel)
	defer release()
	ev.ID = id

	waitStart := time.Now()
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return repl.Result{}, fmt.Errorf("waiting for session: %w", err)
	}
	defer e.sem.Release(1)
	observability.SessionWait.Observe(time.Since(waitStart).Seconds())

	sess, err := e.Session()
	if err != nil {
		return repl.Result{}, fmt.Errorf("creating session: %w", err)
	}

	if ev.Request != nil {
		sess.SetRequest(*ev.Request)
		e.setLastRequest(*ev.Request)
	}

	debug.Log("console", "evaluating", "id", ev.ID, "line", sess.Line(), "code", debug.Truncate(ev.Code, 200))
	res := sess.Eval(ctx, ev.Code)
	e.record(ctx, sess, ev, res)
	return res, nil
}

func (e *Endpoint) record(ctx context.Context, sess *repl.Session, ev Evaluation, res repl.Result) {
	kind := "script"
	if repl.IsShellCommand(ev.Code) {
		kind = "shell"
	}
	outcome := observability.OutcomeOK
	switch {
	case errors.Is(res.Err, repl.ErrTimeout):
		outcome = observability.OutcomeTimeout
	case res.Failed:
		outcome = observability.OutcomeError
	}
	observability.EvaluationsTotal.WithLabelValues(kind, outcome).Inc()
	observability.EvaluationDuration.WithLabelValues(kind).Observe(res.Duration.Seconds())

	if e.history == nil {
		return
	}

	entry := storage.NewEntry()
	entry.SessionID = sess.ID()
	entry.Line = res.Line
	entry.Query = ev.Code
	entry.Result = res.Output
	entry.Failed = res.Failed
	entry.Subject = ev.Subject
	entry.DurationMS = res.Duration.Milliseconds()

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := e.history.Append(hctx, entry); err != nil {
		observability.HistoryErrorsTotal.WithLabelValues("append").Inc()
		e.logger.Warn("console: recording history", "session_id", entry.SessionID, "line", entry.Line, "error", err)
	}
}
