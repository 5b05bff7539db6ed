package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Op tags a statement as a read or a write for pool routing. Reads may be
// served by the replica; writes and transactions always hit the primary.
type Op int

const (
	OpRead Op = iota
	OpWrite
)

// ErrNotConnected is returned when no pools have been installed.
var ErrNotConnected = errors.New("db: not connected (call Connect or SetPools first)")

// Session is a logical unit of work against one connection pool or one
// open transaction. Statements issued through a single session execute in
// issue order.
type Session struct {
	db *sql.DB
	tx *sql.Tx
}

// InTx reports whether the session rides an open transaction.
func (s *Session) InTx() bool { return s.tx != nil }

func (s *Session) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.tx != nil {
		return s.tx.QueryContext(ctx, query, args...)
	}
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Session) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.tx != nil {
		return s.tx.ExecContext(ctx, query, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

// Query runs a row-returning statement and materializes every row as a
// column-name map.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	start := time.Now()
	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		notify(Event{SQL: query, Args: args, Duration: time.Since(start), Err: err})
		return nil, &ExecutorError{Query: query, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &ExecutorError{Query: query, Err: err}
	}

	res := &Result{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ExecutorError{Query: query, Err: err}
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		notify(Event{SQL: query, Args: args, Duration: time.Since(start), Err: err})
		return nil, &ExecutorError{Query: query, Err: err}
	}
	res.RowCount = int64(len(res.Rows))

	notify(Event{SQL: query, Args: args, Duration: time.Since(start)})
	return res, nil
}

// Exec runs a non-row-returning statement and reports affected rows.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (*Result, error) {
	start := time.Now()
	r, err := s.execContext(ctx, query, args...)
	notify(Event{SQL: query, Args: args, Duration: time.Since(start), Err: err})
	if err != nil {
		return nil, &ExecutorError{Query: query, Err: err}
	}
	n, err := r.RowsAffected()
	if err != nil {
		return nil, &ExecutorError{Query: query, Err: err}
	}
	return &Result{RowCount: n}, nil
}

type ctxKey int

const (
	sessionKey ctxKey = iota
	forceWriteKey
)

// Bind attaches a session to the context so nested calls share it.
func Bind(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// Current returns the ambient session bound to the context, if any.
func Current(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok
}

// ForceWrite pins read-tagged statements under this context to the
// primary pool, so a caller can read its own latest write.
func ForceWrite(ctx context.Context) context.Context {
	return context.WithValue(ctx, forceWriteKey, true)
}

func forceWrite(ctx context.Context) bool {
	v, _ := ctx.Value(forceWriteKey).(bool)
	return v
}

// With resolves the ambient session and runs fn with it. A session
// already bound to the context is reused — so multiple builder calls in
// one unit of work share one transactional view. Otherwise a session is
// acquired from the pool matching op for the duration of the call; the
// ambient slot only outlives fn when the caller bound it.
func With(ctx context.Context, op Op, fn func(ctx context.Context, s *Session) error) error {
	if s, ok := Current(ctx); ok {
		return fn(ctx, s)
	}
	if DB == nil {
		return ErrNotConnected
	}
	s := &Session{db: DB.route(op, forceWrite(ctx))}
	return fn(Bind(ctx, s), s)
}

// Transaction runs fn inside a transaction on the primary pool, bound as
// the ambient session so every statement fn issues joins it. When a
// transaction is already open on the context, fn simply joins it and the
// outermost caller stays in charge of commit — no nested transactions.
func Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s, ok := Current(ctx); ok && s.InTx() {
		return fn(ctx)
	}
	if DB == nil {
		return ErrNotConnected
	}

	tx, err := DB.Primary.BeginTx(ctx, nil)
	if err != nil {
		return &ExecutorError{Err: err}
	}

	s := &Session{tx: tx}
	if err := fn(Bind(ctx, s)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &ExecutorError{Err: err}
	}
	return nil
}
