package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaurya/grail/logging"
	"go.uber.org/zap"
)

// Result is the uniform shape every statement execution produces: rows
// for selects, an affected-row count for writes.
type Result struct {
	Rows     []map[string]any
	RowCount int64
}

// Executor runs a single parameterized statement. *Session implements it;
// the orm package depends only on this surface.
type Executor interface {
	Query(ctx context.Context, query string, args ...any) (*Result, error)
	Exec(ctx context.Context, query string, args ...any) (*Result, error)
}

// ExecutorError wraps any failure surfaced by the underlying driver,
// including context cancellation and timeouts. The cause stays reachable
// through errors.Is/As so callers can still distinguish cancellation.
type ExecutorError struct {
	Query string
	Err   error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("executor: %v", e.Err)
}

func (e *ExecutorError) Unwrap() error { return e.Err }

// IsCancellation reports whether err stems from context cancellation or
// a deadline, however deeply wrapped.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Event describes one executed statement. Listeners receive every
// statement the engine emits, with timing, for external monitoring.
type Event struct {
	SQL      string
	Args     []any
	Duration time.Duration
	Err      error
}

// Listener consumes statement events. Registration is optional; the
// engine works identically with zero listeners.
type Listener func(Event)

var listeners []Listener

// Subscribe registers a statement listener. Call during startup, before
// traffic begins; the listener slice is read without locking afterwards.
func Subscribe(l Listener) {
	listeners = append(listeners, l)
}

func notify(ev Event) {
	for _, l := range listeners {
		l(ev)
	}
	if slowThreshold > 0 && ev.Duration >= slowThreshold {
		logging.Log.Warn("slow query",
			zap.String("sql", ev.SQL),
			zap.Duration("duration", ev.Duration))
	}
}

var slowThreshold = 200 * time.Millisecond

// SetSlowQueryThreshold tunes the slow-query warning cutoff. Zero
// disables the warning entirely.
func SetSlowQueryThreshold(d time.Duration) {
	slowThreshold = d
}
