package workload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rstress/internal/core"
	"rstress/internal/grammar"
	"rstress/internal/options"
)

// selectingRunner answers SELECTs from the scripted list, in order, and
// everything else with an empty result.
type selectingRunner struct {
	fakeRunner
	selects []*Result
	served  int
}

func newSelectingRunner(results ...*Result) *selectingRunner {
	r := &selectingRunner{selects: results}
	r.onRun = func(sqlText string) (*Result, error) {
		if strings.HasPrefix(sqlText, "SELECT") && r.served < len(r.selects) {
			res := r.selects[r.served]
			r.served++
			return res, nil
		}
		return &Result{}, nil
	}
	return r
}

func rows(vals ...string) *Result {
	res := &Result{Columns: 1}
	for _, v := range vals {
		res.Rows = append(res.Rows, []Cell{{Valid: true, Value: v}})
	}
	return res
}

func compareShared(t *testing.T) *Shared {
	// compare-result needs a secondary engine to survive normalization
	return newTestShared(t, func(o *options.Registry) {
		o.SetStr(options.SecondaryEngine, "RAPID")
		o.SetBool(options.CompareResult, true)
		o.SetBool(options.WaitForSync, false)
	})
}

func TestCompareBetweenEnginesMatch(t *testing.T) {
	sh := compareShared(t)
	runner := newSelectingRunner(rows("1", "2"), rows("1", "2"))
	w, _ := newTestWorker(t, sh, runner)
	tbl := simpleTable()

	w.CompareBetweenEngines(context.Background(), tbl, "SELECT i2 FROM tt_1")
	assert.False(t, sh.Failed.Load())
	assert.Equal(t, 2, runner.served, "the statement runs once per engine")

	joined := strings.Join(runner.calls, "\n")
	assert.Contains(t, joined, "USE_SECONDARY_ENGINE=OFF")
	assert.Contains(t, joined, "USE_SECONDARY_ENGINE=FORCED")
}

func TestCompareBetweenEnginesMismatch(t *testing.T) {
	sh := compareShared(t)
	runner := newSelectingRunner(rows("1", "2"), rows("1", "3"))
	w, _ := newTestWorker(t, sh, runner)
	tbl := simpleTable()

	w.CompareBetweenEngines(context.Background(), tbl, "SELECT i2 FROM tt_1")
	assert.True(t, sh.Failed.Load(), "a mismatch fails the whole run")

	for _, name := range []string{"secondary_result.csv", "mysql_result.csv"} {
		_, err := os.Stat(filepath.Join(sh.LogDir, name))
		assert.NoErrorf(t, err, "%s must be dumped on mismatch", name)
	}
}

func TestCompareDistinguishesNullAndEmpty(t *testing.T) {
	withNull := &Result{Columns: 1, Rows: [][]Cell{{{Valid: false}}}}
	withEmpty := &Result{Columns: 1, Rows: [][]Cell{{{Valid: true, Value: ""}}}}
	assert.NotEmpty(t, resultsDiffer(withNull, withEmpty))
	assert.Empty(t, resultsDiffer(withNull, withNull))

	shortRows := rows("1")
	assert.NotEmpty(t, resultsDiffer(shortRows, rows("1", "2")))
}

func TestSelectRandomRowComparatorOrders(t *testing.T) {
	sh := compareShared(t)
	runner := newSelectingRunner(rows("1"), rows("1"))
	w, _ := newTestWorker(t, sh, runner)
	tbl := simpleTable()
	sh.Catalog.Append(tbl)

	w.SelectRandomRow(context.Background(), tbl, false)
	var selectSQL string
	for _, call := range runner.calls {
		if strings.HasPrefix(call, "SELECT") {
			selectSQL = call
			break
		}
	}
	require.NotEmpty(t, selectSQL)
	assert.Contains(t, selectSQL, " order by ", "compared SELECTs are deterministically ordered")
	assert.Contains(t, selectSQL, "pkey")
	assert.Contains(t, selectSQL, "v3")
}

func TestGrammarSQLBindsTablesAndColumns(t *testing.T) {
	sh := newTestShared(t, nil)
	templates, err := grammar.Parse(strings.NewReader(
		"SELECT T1_INT_1 FROM T1 WHERE T1_INT_1=RAND"))
	require.NoError(t, err)
	sh.Templates = templates

	tbl := core.NewTable("tt_1", core.TableNormal)
	tbl.AddColumn(&core.Column{Name: "i7", Type: core.TypeInt, Nullable: true})
	sh.Catalog.Append(tbl)

	runner := &fakeRunner{}
	w, _ := newTestWorker(t, sh, runner)
	w.GrammarSQL(context.Background(), tbl)

	require.NotEmpty(t, runner.calls)
	sqlText := runner.calls[len(runner.calls)-1]
	assert.Contains(t, sqlText, "FROM tt_1 T1", "the real name precedes the alias")
	assert.Contains(t, sqlText, "T1.i7")
	assert.NotContains(t, sqlText, "RAND")
	assert.NotContains(t, sqlText, "T1_INT_1")
}

func TestGrammarSQLGivesUpWithoutMatchingColumns(t *testing.T) {
	sh := newTestShared(t, nil)
	templates, err := grammar.Parse(strings.NewReader(
		"SELECT T1_TIMESTAMP_1 FROM T1"))
	require.NoError(t, err)
	sh.Templates = templates

	tbl := core.NewTable("tt_1", core.TableNormal)
	tbl.AddColumn(&core.Column{Name: "i7", Type: core.TypeInt, Nullable: true})
	sh.Catalog.Append(tbl)

	runner := &fakeRunner{}
	w, log := newTestWorker(t, sh, runner)
	w.GrammarSQL(context.Background(), tbl)

	assert.Empty(t, runner.calls, "no SQL is submitted without a full binding")
	assert.Contains(t, log.String(), "Could not find table")
}

func TestGrammarSQLRandIntSubstitution(t *testing.T) {
	sh := newTestShared(t, nil)
	templates, err := grammar.Parse(strings.NewReader("SELECT RAND_INT FROM T1"))
	require.NoError(t, err)
	sh.Templates = templates

	tbl := core.NewTable("tt_9", core.TableNormal)
	tbl.AddColumn(&core.Column{Name: "i1", Type: core.TypeInt, Nullable: true})
	sh.Catalog.Append(tbl)

	runner := &fakeRunner{}
	w, _ := newTestWorker(t, sh, runner)
	w.GrammarSQL(context.Background(), tbl)

	require.NotEmpty(t, runner.calls)
	assert.Regexp(t, `SELECT \d+ FROM tt_9 T1`, runner.calls[len(runner.calls)-1])
}
