// Package workload is the concurrent execution engine: per-thread workers
// pick operations, synthesize SQL through sqlgen, submit it, interpret the
// outcome and keep the in-memory schema model in sync with the server.
package workload

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
)

// Server error numbers the engine reacts to.
const (
	errWsrepNotPrepared  = 1047
	errServerGone        = 2006
	errServerLost        = 2013
	errSecondaryNotReady = 6000
)

// Cell is one result cell; Valid is false for SQL NULL so that NULL and the
// empty string stay distinguishable.
type Cell struct {
	Valid bool
	Value string
}

// Result is a captured result set.
type Result struct {
	Columns int
	Rows    [][]Cell
}

// RowCount is the number of captured rows.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// SQLRunner submits one statement and returns its result set, if any. The
// workload owns exactly one runner per thread; implementations do not need
// to be concurrency safe.
type SQLRunner interface {
	Run(ctx context.Context, sqlText string) (*Result, error)
	Reconnect(ctx context.Context) error
	Close() error
}

// ConnRunner pins a dedicated connection from a pool so session state
// (transactions, savepoints, session variables) stays on one server session.
type ConnRunner struct {
	db   *sql.DB
	conn *sql.Conn
}

// NewConnRunner acquires a dedicated connection from db.
func NewConnRunner(ctx context.Context, db *sql.DB) (*ConnRunner, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &ConnRunner{db: db, conn: conn}, nil
}

// Run executes one statement and captures its result set when one exists.
func (r *ConnRunner) Run(ctx context.Context, sqlText string) (*Result, error) {
	rows, err := r.conn.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: len(cols)}
	if len(cols) == 0 {
		return res, rows.Err()
	}

	raw := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]Cell, len(cols))
		for i, v := range raw {
			row[i] = Cell{Valid: v.Valid, Value: v.String}
		}
		res.Rows = append(res.Rows, row)
	}
	return res, rows.Err()
}

// Reconnect drops the pinned connection and acquires a fresh one, backing
// off between attempts.
func (r *ConnRunner) Reconnect(ctx context.Context) error {
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
	op := func() error {
		conn, err := r.db.Conn(ctx)
		if err != nil {
			return err
		}
		if err := conn.PingContext(ctx); err != nil {
			_ = conn.Close()
			return err
		}
		r.conn = conn
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}
	return nil
}

// Close releases the pinned connection.
func (r *ConnRunner) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// errorNumber maps an execution error to a server error number. Client-side
// connection loss maps to the server-lost number so classification stays
// uniform.
func errorNumber(err error) int {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return int(myErr.Number)
	}
	if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, driver.ErrBadConn) {
		return errServerLost
	}
	return 0
}

func isTransportLoss(num int) bool {
	return num == errServerGone || num == errServerLost || num == errWsrepNotPrepared
}

func isFatalNumber(num int) bool {
	return isTransportLoss(num) || num == errSecondaryNotReady
}

// reconnectSleep is how long a worker waits before re-dialing a lost
// connection.
var reconnectSleep = 5 * time.Second
