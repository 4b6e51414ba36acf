package workload

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rstress/internal/core"
	"rstress/internal/options"
	"rstress/internal/random"
	"rstress/internal/sqlgen"
)

// fakeRunner scripts responses per statement and records everything the
// worker submits.
type fakeRunner struct {
	calls      []string
	reconnects int
	onRun      func(sqlText string) (*Result, error)
}

func (f *fakeRunner) Run(_ context.Context, sqlText string) (*Result, error) {
	f.calls = append(f.calls, sqlText)
	if f.onRun != nil {
		return f.onRun(sqlText)
	}
	return &Result{}, nil
}

func (f *fakeRunner) Reconnect(context.Context) error {
	f.reconnects++
	return nil
}

func (f *fakeRunner) Close() error { return nil }

func testServer() options.ServerInfo {
	return options.ServerInfo{Version: 80033, InnodbPageSizeKB: 16, Fork: "Percona-Server"}
}

func newTestShared(t *testing.T, mutate func(*options.Registry)) *Shared {
	t.Helper()
	opts := options.New()
	opts.SetBool(options.NoEncryption, true)
	opts.SetBool(options.NoColumnCompression, true)
	opts.SetBool(options.NoTablespace, true)
	if mutate != nil {
		mutate(opts)
	}
	require.NoError(t, opts.Normalize(testServer()))
	sh := &Shared{
		Opts:     opts,
		Env:      sqlgen.BuildEnv(opts, testServer()),
		Catalog:  core.NewCatalog(),
		Database: "test",
		LogDir:   t.TempDir(),
	}
	sh.Pool = random.NewPool(sh.StepSeed())
	return sh
}

func newTestWorker(t *testing.T, sh *Shared, runner SQLRunner) (*Worker, *bytes.Buffer) {
	t.Helper()
	log := &bytes.Buffer{}
	return NewWorker(0, sh, runner, log, nil), log
}

func simpleTable() *core.Table {
	tbl := core.NewTable("tt_1", core.TableNormal)
	pk := &core.Column{Name: "pkey", Type: core.TypeInt, PrimaryKey: true, AutoIncrement: true}
	i2 := &core.Column{Name: "i2", Type: core.TypeInt, Nullable: true}
	v3 := &core.Column{Name: "v3", Type: core.TypeVarchar, Length: 12, Nullable: true}
	tbl.AddColumn(pk)
	tbl.AddColumn(i2)
	tbl.AddColumn(v3)
	tbl.AddIndex(&core.Index{Name: "tt_1i0", Columns: []*core.IndexColumn{{Column: pk}}})
	tbl.AddIndex(&core.Index{Name: "tt_1i1", Columns: []*core.IndexColumn{{Column: i2}}})
	return tbl
}

func TestExecuteSQLSuccessLogging(t *testing.T) {
	sh := newTestShared(t, func(o *options.Registry) {
		o.SetBool(options.LogAllQueries, true)
	})
	runner := &fakeRunner{}
	w, log := newTestWorker(t, sh, runner)

	require.True(t, w.ExecuteSQL(context.Background(), "SELECT 1"))
	assert.Contains(t, log.String(), " S SELECT 1")
	assert.Equal(t, uint64(1), sh.PerformedTotal.Load())
	assert.Equal(t, uint64(0), sh.FailedTotal.Load())
}

func TestExecuteSQLFailureLogging(t *testing.T) {
	sh := newTestShared(t, func(o *options.Registry) {
		o.SetBool(options.LogFailedQueries, true)
	})
	runner := &fakeRunner{onRun: func(string) (*Result, error) {
		return nil, &mysql.MySQLError{Number: 1062, Message: "duplicate"}
	}}
	w, log := newTestWorker(t, sh, runner)

	require.False(t, w.ExecuteSQL(context.Background(), "INSERT INTO x"))
	assert.Contains(t, log.String(), " F INSERT INTO x")
	assert.Contains(t, log.String(), "duplicate")
	assert.Equal(t, uint64(1), sh.FailedTotal.Load())
	assert.False(t, sh.Failed.Load(), "an expected SQL failure is not fatal")
}

func TestExecuteSQLFatalError(t *testing.T) {
	sh := newTestShared(t, nil)
	runner := &fakeRunner{onRun: func(string) (*Result, error) {
		return nil, &mysql.MySQLError{Number: errSecondaryNotReady, Message: "secondary not ready"}
	}}
	w, _ := newTestWorker(t, sh, runner)

	w.ExecuteSQL(context.Background(), "SELECT 1")
	assert.True(t, sh.Failed.Load())
}

func TestExecuteSQLIgnoredErrors(t *testing.T) {
	sh := newTestShared(t, func(o *options.Registry) {
		o.SetStr(options.IgnoreErrors, "1062,1213")
	})
	runner := &fakeRunner{onRun: func(string) (*Result, error) {
		return nil, &mysql.MySQLError{Number: 1213, Message: "deadlock"}
	}}
	w, log := newTestWorker(t, sh, runner)

	require.False(t, w.ExecuteSQL(context.Background(), "UPDATE x"))
	assert.Contains(t, log.String(), "Ignoring error")
	assert.False(t, sh.Failed.Load())
}

func TestExecuteSQLTransportLossReconnects(t *testing.T) {
	old := reconnectSleep
	reconnectSleep = 0
	defer func() { reconnectSleep = old }()

	sh := newTestShared(t, func(o *options.Registry) {
		o.SetStr(options.IgnoreErrors, "all")
	})
	runner := &fakeRunner{onRun: func(string) (*Result, error) {
		return nil, mysql.ErrInvalidConn
	}}
	w, _ := newTestWorker(t, sh, runner)

	w.ExecuteSQL(context.Background(), "SELECT 1")
	assert.Equal(t, 1, runner.reconnects)
	assert.False(t, sh.Failed.Load())
}

func TestExecuteSQLTransportLossFatalWhenNotIgnored(t *testing.T) {
	sh := newTestShared(t, nil)
	runner := &fakeRunner{onRun: func(string) (*Result, error) {
		return nil, errors.Join(mysql.ErrInvalidConn)
	}}
	w, _ := newTestWorker(t, sh, runner)

	w.ExecuteSQL(context.Background(), "SELECT 1")
	assert.True(t, sh.Failed.Load())
	assert.Equal(t, 0, runner.reconnects)
}

func TestErrorNumberMapping(t *testing.T) {
	assert.Equal(t, 1062, errorNumber(&mysql.MySQLError{Number: 1062}))
	assert.Equal(t, errServerLost, errorNumber(mysql.ErrInvalidConn))
	assert.Equal(t, 0, errorNumber(errors.New("weird")))
	assert.True(t, isFatalNumber(errServerGone))
	assert.True(t, isFatalNumber(errSecondaryNotReady))
	assert.False(t, isFatalNumber(1062))
}

func TestTransactionSavepointSequence(t *testing.T) {
	sh := newTestShared(t, func(o *options.Registry) {
		o.SetInt(options.TransactionProbK, 1000)
		o.SetInt(options.TransactionsSize, 5)
		o.SetInt(options.SavepointProbK, 1000)
		o.SetInt(options.CommitProb, 100)
	})
	runner := &fakeRunner{}
	w, _ := newTestWorker(t, sh, runner)

	ctx := context.Background()
	for i := 0; i < 400; i++ {
		w.transactionStep(ctx)
	}

	open := false
	savepoints := 0
	for _, sqlText := range runner.calls {
		switch {
		case sqlText == "START TRANSACTION":
			require.False(t, open, "no nested transactions")
			open = true
			savepoints = 0
		case sqlText == "COMMIT" || sqlText == "ROLLBACK":
			open = false
			savepoints = 0
		case strings.HasPrefix(sqlText, "SAVEPOINT SAVE"):
			require.True(t, open)
			savepoints++
			assert.Equal(t, "SAVEPOINT SAVE"+itoa(savepoints), sqlText,
				"savepoints are numbered consecutively")
		case strings.HasPrefix(sqlText, "ROLLBACK TO SAVEPOINT SAVE"):
			require.True(t, open)
			n := atoi(strings.TrimPrefix(sqlText, "ROLLBACK TO SAVEPOINT SAVE"))
			require.GreaterOrEqual(t, n, 1)
			require.LessOrEqual(t, n, savepoints, "rollback names an earlier savepoint")
			savepoints = n - 1
		}
	}
	assert.Contains(t, runner.calls, "START TRANSACTION")
}

func TestTransactionEndsBeforeDDL(t *testing.T) {
	sh := newTestShared(t, func(o *options.Registry) {
		o.SetInt(options.TransactionProbK, 1000)
		o.SetInt(options.TransactionsSize, 50)
		o.SetInt(options.SavepointProbK, 0)
		o.SetInt(options.CommitProb, 100)
	})
	runner := &fakeRunner{}
	w, _ := newTestWorker(t, sh, runner)
	ctx := context.Background()

	w.transactionStep(ctx) // opens the transaction
	require.Equal(t, []string{"START TRANSACTION"}, runner.calls)

	w.ddlQuery = true
	w.transactionStep(ctx)
	require.GreaterOrEqual(t, len(runner.calls), 2)
	assert.Equal(t, "COMMIT", runner.calls[1], "DDL ends the open transaction")
	assert.Equal(t, 0, w.savePoint)
}

func itoa(n int) string { return strconv.Itoa(n) }

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
