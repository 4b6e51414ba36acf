package workload

import (
	"context"
	"fmt"
	"io"
	"time"

	"rstress/internal/options"
	"rstress/internal/random"
	"rstress/internal/sqlgen"
)

// Worker is one workload thread: its PRNG, generator, pinned connection and
// log streams.
type Worker struct {
	ID     int
	Shared *Shared

	runner SQLRunner
	rng    *random.Source
	Gen    *sqlgen.Generator

	threadLog io.Writer
	clientLog io.Writer

	// ddlQuery tags the statement class for the shared DDL log.
	ddlQuery bool
	// success is set by ExecuteSQL and consumed by the loop's counters.
	success bool

	consecFails int
	queryNumber int
	lastResult  *Result

	// uniqueKeys carries the parent table's generated primary keys to its FK
	// children during bulk load.
	uniqueKeys []int

	trxLeft   int
	savePoint int
}

// NewWorker derives the thread's seed from the step generator by advancing
// it once per preceding thread id, then builds the thread-local PRNG and
// generator around it.
func NewWorker(id int, sh *Shared, runner SQLRunner, threadLog, clientLog io.Writer) *Worker {
	positive := sh.Opts.Int(options.PositiveIntProb)
	step := random.New(sh.StepSeed(), sh.Pool, positive)
	for i := 0; i < id; i++ {
		step.Seed()
	}
	seed := step.Seed()
	if threadLog != nil {
		_, _ = fmt.Fprintf(threadLog, "thread %d seed %d\n", id, seed)
	}

	rng := random.New(seed, sh.Pool, positive)
	return &Worker{
		ID:        id,
		Shared:    sh,
		runner:    runner,
		rng:       rng,
		Gen:       sqlgen.New(sh.Opts, rng, sh.Env),
		threadLog: threadLog,
		clientLog: clientLog,
	}
}

// Rand exposes the worker PRNG to setup code.
func (w *Worker) Rand() *random.Source { return w.rng }

// Runner exposes the underlying runner for lifecycle management.
func (w *Worker) Runner() SQLRunner { return w.runner }

// ExecuteSQL submits one statement, classifies failures, updates counters
// and writes the configured log streams. It reports success.
func (w *Worker) ExecuteSQL(ctx context.Context, sqlText string) bool {
	opts := w.Shared.Opts
	logAll := opts.Bool(options.LogAllQueries)
	logFailed := opts.Bool(options.LogFailedQueries)
	logSuccess := opts.Bool(options.LogSuccededQueries)
	logDuration := opts.Bool(options.LogQueryDuration)

	var begin time.Time
	if logDuration {
		begin = time.Now()
	}

	res, err := w.runner.Run(ctx, sqlText)
	w.Shared.PerformedTotal.Add(1)

	if logDuration && w.threadLog != nil {
		sinceStart := begin.Sub(w.Shared.StartTime).Microseconds()
		took := time.Since(begin).Microseconds()
		_, _ = fmt.Fprintf(w.threadLog, "%s %d=>%dus ",
			begin.Format("2006-01-02T15:04:05"), sinceStart, took)
	}

	errText := ""
	if err != nil {
		errText = err.Error()
	}
	if w.ddlQuery {
		w.Shared.LogDDL(w.ID, sqlText, errText)
	}

	if err != nil {
		w.Shared.FailedTotal.Add(1)
		w.consecFails++
		if (logAll || logFailed) && w.threadLog != nil {
			_, _ = fmt.Fprintf(w.threadLog, " F %s\n", sqlText)
			_, _ = fmt.Fprintf(w.threadLog, "Error %s\n", errText)
		}

		num := errorNumber(err)
		switch {
		case w.errorIgnored(num):
			if w.threadLog != nil {
				_, _ = fmt.Fprintf(w.threadLog, "Ignoring error %s\n", errText)
			}
			if isTransportLoss(num) {
				w.sleepAndReconnect(ctx)
			}
		case isFatalNumber(num):
			w.Shared.PrintAndLog(w.threadLog, "Fatal: "+errText+" "+sqlText)
			w.Shared.Failed.Store(true)
		}
		w.lastResult = nil
		return false
	}

	w.consecFails = 0
	w.success = true
	w.lastResult = res

	if opts.Bool(options.LogClientOutput) && w.clientLog != nil && res != nil {
		w.dumpClientOutput(res)
	}
	if (logAll || logSuccess) && w.threadLog != nil {
		_, _ = fmt.Fprintf(w.threadLog, " S %s rows:%d\n", sqlText, res.RowCount())
	}
	return true
}

// dumpClientOutput writes result rows cell by cell, with EMPTY marking the
// empty string and #NO DATA marking NULL.
func (w *Worker) dumpClientOutput(res *Result) {
	logNumbers := w.Shared.Opts.Bool(options.LogQueryNumbers)
	for _, row := range res.Rows {
		for _, cell := range row {
			switch {
			case !cell.Valid:
				_, _ = fmt.Fprint(w.clientLog, "#NO DATA", "#")
			case cell.Value == "":
				_, _ = fmt.Fprint(w.clientLog, "EMPTY", "#")
			default:
				_, _ = fmt.Fprint(w.clientLog, cell.Value, "#")
			}
		}
		if logNumbers {
			w.queryNumber++
			_, _ = fmt.Fprint(w.clientLog, w.queryNumber)
		}
		_, _ = fmt.Fprintln(w.clientLog)
	}
}

func (w *Worker) errorIgnored(num int) bool {
	ignore := w.Shared.Opts.Str(options.IgnoreErrors)
	if ignore == "" {
		return false
	}
	if ignore == "all" {
		return true
	}
	_, ok := options.SplitIntSet(ignore)[num]
	return ok
}

func (w *Worker) sleepAndReconnect(ctx context.Context) {
	select {
	case <-time.After(reconnectSleep):
	case <-ctx.Done():
		return
	}
	if err := w.runner.Reconnect(ctx); err != nil {
		w.Shared.PrintAndLog(w.threadLog, fmt.Sprintf("Fatal: reconnect failed: %v", err))
		w.Shared.Failed.Store(true)
	}
}

// ReadSingleValue runs sql and returns the first cell of the first row.
func (w *Worker) ReadSingleValue(ctx context.Context, sqlText string) string {
	if !w.ExecuteSQL(ctx, sqlText) {
		return ""
	}
	if w.lastResult == nil || len(w.lastResult.Rows) == 0 || len(w.lastResult.Rows[0]) == 0 {
		return ""
	}
	return w.lastResult.Rows[0][0].Value
}

// checkResult runs a CHECK-style statement and inspects the Msg_text
// column; anything but OK is logged and counted as a failure.
func (w *Worker) checkResult(ctx context.Context, sqlText string) bool {
	if !w.ExecuteSQL(ctx, sqlText) {
		return false
	}
	res := w.lastResult
	if res == nil || len(res.Rows) == 0 || res.Columns < 4 {
		return true
	}
	row := res.Rows[0]
	if row[3].Value != "OK" {
		if w.threadLog != nil {
			_, _ = fmt.Fprintf(w.threadLog, "Error: %s %s %s %s\n",
				row[0].Value, row[1].Value, row[2].Value, row[3].Value)
		}
		return false
	}
	return true
}
