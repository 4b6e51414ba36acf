package workload

import (
	"context"
	"strings"

	"rstress/internal/core"
	"rstress/internal/options"
)

// SelectRandomRow runs a point SELECT; with compare-result the statement
// goes through the dual-engine comparator, ordered over every column so the
// row order is stable.
func (w *Worker) SelectRandomRow(ctx context.Context, t *core.Table, forUpdate bool) {
	opts := w.Shared.Opts
	t.LockDDL()
	sqlText := "SELECT " + w.Gen.SelectColumnList(t) + " FROM " + t.Name + w.Gen.WherePrecise(t)
	if opts.Bool(options.CompareResult) {
		sqlText += w.Gen.OrderByAll(t)
	}
	if forUpdate && opts.Str(options.SecondaryEngine) == "" {
		sqlText += " FOR UPDATE SKIP LOCKED"
	}
	t.UnlockDDL()

	if opts.Bool(options.CompareResult) {
		w.CompareBetweenEngines(ctx, t, sqlText)
		return
	}
	if opts.Bool(options.SelectInSecondary) {
		w.execPlain(ctx, "COMMIT")
	}
	w.ExecuteSQL(ctx, sqlText)
}

// SelectAllRows runs a bulk SELECT.
func (w *Worker) SelectAllRows(ctx context.Context, t *core.Table, forUpdate bool) {
	opts := w.Shared.Opts
	t.LockDDL()
	sqlText := "SELECT " + w.Gen.SelectColumnList(t) + " FROM " + t.Name + w.Gen.WhereBulk(t)
	if forUpdate && opts.Str(options.SecondaryEngine) == "" {
		sqlText += " FOR UPDATE SKIP LOCKED"
	}
	t.UnlockDDL()

	if opts.Bool(options.SelectInSecondary) {
		w.execPlain(ctx, "COMMIT")
	}
	w.ExecuteSQL(ctx, sqlText)
}

// InsertRandomRow inserts one random row under the shared DML lock.
func (w *Worker) InsertRandomRow(ctx context.Context, t *core.Table) {
	t.LockDDL()
	sqlText := "INSERT " + w.Gen.IgnoreClause() + " INTO " + t.Name + w.Gen.ColumnValues(t)
	t.UnlockDDL()

	t.RLockDML()
	defer t.RUnlockDML()
	w.ExecuteSQL(ctx, sqlText)
}

// UpdateRandomRow updates via the point predicate; 30% of the time it
// replaces a whole row instead.
func (w *Worker) UpdateRandomRow(ctx context.Context, t *core.Table) {
	t.LockDDL()
	var sqlText string
	if w.rng.Int(100) >= 30 || w.Shared.Opts.Int(options.DeleteRowUsingPKey) == 0 {
		sqlText = "UPDATE " + w.Gen.IgnoreClause() + t.Name + " SET " +
			w.Gen.SetClause(t) + w.Gen.WherePrecise(t)
	} else {
		sqlText = "REPLACE INTO " + t.Name + w.Gen.ColumnValues(t)
	}
	t.UnlockDDL()

	t.RLockDML()
	defer t.RUnlockDML()
	w.ExecuteSQL(ctx, sqlText)
}

// UpdateAllRows updates via the bulk predicate.
func (w *Worker) UpdateAllRows(ctx context.Context, t *core.Table) {
	t.LockDDL()
	sqlText := "UPDATE " + w.Gen.IgnoreClause() + t.Name + " SET " +
		w.Gen.SetClause(t) + w.Gen.WhereBulk(t)
	t.UnlockDDL()

	t.RLockDML()
	defer t.RUnlockDML()
	w.ExecuteSQL(ctx, sqlText)
}

// DeleteRandomRow deletes via the point predicate.
func (w *Worker) DeleteRandomRow(ctx context.Context, t *core.Table) {
	t.LockDDL()
	sqlText := "DELETE " + w.Gen.IgnoreClause() + " FROM " + t.Name + w.Gen.WherePrecise(t)
	t.UnlockDDL()

	t.RLockDML()
	defer t.RUnlockDML()
	w.ExecuteSQL(ctx, sqlText)
}

// DeleteAllRows deletes via the bulk predicate.
func (w *Worker) DeleteAllRows(ctx context.Context, t *core.Table) {
	t.LockDDL()
	sqlText := "DELETE " + w.Gen.IgnoreClause() + " FROM " + t.Name + w.Gen.WhereBulk(t)
	t.UnlockDDL()

	t.RLockDML()
	defer t.RUnlockDML()
	w.ExecuteSQL(ctx, sqlText)
}

// CreateFunction wraps a random mix of DML into a deterministic stored
// function, then calls it.
func (w *Worker) CreateFunction(ctx context.Context, t *core.Table) {
	opts := w.Shared.Opts
	var kinds []string
	for _, kind := range options.SplitList(opts.Str(options.FunctionContainsDML)) {
		switch kind {
		case "UPDATE":
			if !opts.Bool(options.NoUpdate) {
				kinds = append(kinds, kind)
			}
		case "INSERT":
			if !opts.Bool(options.NoInsert) {
				kinds = append(kinds, kind)
			}
		case "DELETE":
			if !opts.Bool(options.NoDelete) {
				kinds = append(kinds, kind)
			}
		}
	}
	if len(kinds) == 0 {
		return
	}

	w.ExecuteSQL(ctx, "DROP FUNCTION IF EXISTS f"+t.Name)

	var sb strings.Builder
	sb.WriteString("CREATE FUNCTION f" + t.Name + "() RETURNS INT DETERMINISTIC BEGIN ")
	t.LockDDL()
	for j := 0; j < w.rng.Between(1, 4); j++ {
		for _, kind := range kinds {
			switch kind {
			case "INSERT":
				for i := 0; i < w.rng.Between(1, 3); i++ {
					sb.WriteString("INSERT INTO " + t.Name + w.Gen.ColumnValues(t) + "; ")
				}
			case "UPDATE":
				for i := 0; i < w.rng.Between(1, 4); i++ {
					sb.WriteString("UPDATE " + w.Gen.IgnoreClause() + t.Name + " SET " +
						w.Gen.SetClause(t) + w.Gen.WherePrecise(t) + "; ")
				}
			case "DELETE":
				for i := 0; i < w.rng.Between(1, 4); i++ {
					sb.WriteString("DELETE " + w.Gen.IgnoreClause() + " FROM " + t.Name +
						w.Gen.WherePrecise(t) + "; ")
				}
			}
		}
	}
	t.UnlockDDL()
	sb.WriteString("RETURN 1; END")

	w.ExecuteSQL(ctx, sb.String())
	w.ExecuteSQL(ctx, "SELECT f"+t.Name+"()")
}
