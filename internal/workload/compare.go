package workload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rstress/internal/core"
	"rstress/internal/options"
)

// syncPollInterval and syncPollLimit shape the secondary sync wait.
var (
	syncPollInterval = 5 * time.Second
	syncPollLimit    = 120
)

// WaitTillSync polls the secondary engine's sync-status view until the
// table reports it is syncing with the change stream.
func (w *Worker) WaitTillSync(ctx context.Context, name string) {
	opts := w.Shared.Opts
	if opts.Bool(options.SelectInSecondary) {
		w.execPlain(ctx, "SET @@SESSION.USE_SECONDARY_ENGINE=OFF")
	}

	sqlText := "select count(1) from performance_schema." + w.secondaryLower() +
		`_table_sync_status where table_schema="` + w.Shared.Database + `"` +
		` and table_name ="` + name + `" and SYNC_STATUS="SYNCING WITH CHANGE-STREAM"`

	for counter := 0; ; counter++ {
		if w.ReadSingleValue(ctx, sqlText) == "1" {
			break
		}
		select {
		case <-time.After(syncPollInterval):
		case <-ctx.Done():
			return
		}
		if counter == syncPollLimit {
			w.Shared.PrintAndLog(w.threadLog,
				"Table "+name+" not synced to secondary in 600 seconds")
		}
	}

	if opts.Bool(options.SelectInSecondary) {
		w.execPlain(ctx, "SET @@SESSION.USE_SECONDARY_ENGINE=FORCED")
	}
}

// CompareBetweenEngines runs sqlText on the primary with the secondary
// engine off, then again with the secondary forced, and compares the result
// sets row by row. The table's DML lock is held exclusively so writers stay
// out of the window between the two captures; the forced run happens after
// the lock drops. A mismatch dumps both result sets as CSV and fails the
// whole run.
func (w *Worker) CompareBetweenEngines(ctx context.Context, t *core.Table, sqlText string) {
	opts := w.Shared.Opts
	secondary := opts.Str(options.SecondaryEngine)
	onlySelect := opts.Bool(options.OnlySelect)

	lock := func() {
		if !onlySelect {
			t.LockDML()
		}
	}
	unlock := func() {
		if !onlySelect {
			t.UnlockDML()
		}
	}
	setDefault := func() {
		if secondary == "" {
			return
		}
		if opts.Bool(options.SelectInSecondary) {
			w.execPlain(ctx, "SET @@SESSION.USE_SECONDARY_ENGINE=FORCED")
		} else {
			w.execPlain(ctx, "SET @@SESSION.USE_SECONDARY_ENGINE=DEFAULT ")
		}
		if opts.Int(options.DelayInSecondary) > 0 {
			w.execPlain(ctx, "SET @@SESSION."+w.secondaryLower()+
				"_sleep_after_gtid_lookup_ms=DEFAULT")
		}
	}

	lock()

	if secondary != "" {
		w.execPlain(ctx, "COMMIT")
		w.execPlain(ctx, "SET @@SESSION.USE_SECONDARY_ENGINE=OFF")
	}
	if !w.ExecuteSQL(ctx, sqlText) {
		w.Shared.PrintAndLog(w.threadLog, "Failed in primary: "+sqlText)
		unlock()
		setDefault()
		return
	}
	primary := w.lastResult

	if secondary != "" {
		w.execPlain(ctx, "SET @@SESSION.USE_SECONDARY_ENGINE=FORCED ")
	}
	if d := opts.Int(options.DelayInSecondary); d > 0 {
		delay := w.rng.Int(d)
		w.execPlain(ctx, "SET @@SESSION."+w.secondaryLower()+
			"_sleep_after_gtid_lookup_ms="+strconv.Itoa(delay))
	}
	unlock()

	if !w.ExecuteSQL(ctx, sqlText) {
		w.Shared.PrintAndLog(w.threadLog, "Failed in secondary: "+sqlText)
		setDefault()
		return
	}
	forced := w.lastResult

	if reason := resultsDiffer(forced, primary); reason != "" {
		w.Shared.PrintAndLog(w.threadLog, reason)
		w.Shared.PrintAndLog(w.threadLog, "result set mismatch for "+sqlText)
		w.dumpResult(forced, "secondary_result.csv")
		w.dumpResult(primary, "mysql_result.csv")
		w.Shared.Failed.Store(true)
	}
	setDefault()
}

// resultsDiffer compares two result sets cell by cell; NULL and the empty
// string stay distinct. It returns an empty string when they match.
func resultsDiffer(a, b *Result) string {
	if a.RowCount() != b.RowCount() {
		return "Number of rows in result set do not match"
	}
	for i := range a.Rows {
		if len(a.Rows[i]) != len(b.Rows[i]) {
			return "Number of columns in result set do not match"
		}
		for j := range a.Rows[i] {
			if a.Rows[i][j] != b.Rows[i][j] {
				return "Result set do not match"
			}
		}
	}
	return ""
}

func (w *Worker) dumpResult(res *Result, fileName string) {
	path := filepath.Join(w.Shared.LogDir, fileName)
	f, err := os.Create(path)
	if err != nil {
		w.Shared.PrintAndLog(w.threadLog, fmt.Sprintf("Failed to open file %s: %v", fileName, err))
		return
	}
	defer func() {
		_ = f.Close()
	}()
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			if c.Valid {
				cells[i] = c.Value
			}
		}
		_, _ = fmt.Fprintln(f, strings.Join(cells, ",")+",")
	}
}
