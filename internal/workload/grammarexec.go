package workload

import (
	"context"
	"fmt"
	"strconv"

	"rstress/internal/core"
	"rstress/internal/grammar"
	"rstress/internal/options"
)

// binding holds the per-execution resolution of one virtual table: the real
// table and, per type, the chosen (column, value) pairs.
type binding struct {
	foundName string
	columns   [grammar.NumTypes][][2]string
}

func (b *binding) written() int {
	total := 0
	for _, cols := range b.columns {
		total += len(cols)
	}
	return total
}

func (b *binding) reset() {
	for i := range b.columns {
		b.columns[i] = nil
	}
	b.foundName = ""
}

// GrammarSQL executes one random grammar template: bind each virtual table
// to a real table, each typed placeholder to a real column, substitute and
// run. Under compare-result, the binding is pinned to the enforced table
// and the substituted SQL goes through the comparator.
func (w *Worker) GrammarSQL(ctx context.Context, enforce *core.Table) {
	templates := w.Shared.Templates
	if len(templates) == 0 {
		return
	}
	tpl := templates[w.rng.Int(len(templates)-1)]
	compare := w.Shared.Opts.Bool(options.CompareResult)
	if compare {
		w.execPlain(ctx, "COMMIT")
	}

	bindings := make([]binding, len(tpl.Tables))
	for i := range tpl.Tables {
		ref := &tpl.Tables[i]
		b := &bindings[i]

		for tableCheck := 100; ; tableCheck-- {
			var working *core.Table
			if compare {
				working = enforce
				tableCheck = 0
			} else {
				working = w.Shared.Catalog.At(w.rng.Int(w.Shared.Catalog.Len() - 1))
			}

			working.LockDDL()
			b.foundName = working.Name
			for columnCheck := 20; columnCheck > 0 &&
				b.written() != ref.TotalColumns(); columnCheck-- {
				col := working.Columns[w.rng.Int(len(working.Columns)-1)]
				if col.NotSecondary {
					continue
				}
				ct, ok := grammar.ParseColType(string(col.Type))
				if !ok {
					continue
				}
				if ref.ColumnCount[ct] > 0 && len(b.columns[ct]) != ref.ColumnCount[ct] {
					b.columns[ct] = append(b.columns[ct], [2]string{col.Name, w.Gen.RandValue(col)})
				}
			}
			working.UnlockDDL()

			if b.written() == ref.TotalColumns() {
				break
			}
			b.reset()
			if tableCheck <= 0 {
				break
			}
		}

		if b.written() != ref.TotalColumns() {
			if w.threadLog != nil {
				_, _ = fmt.Fprintf(w.threadLog, "Could not find table to execute SQL %s\n", tpl.SQL)
			}
			return
		}
	}

	sqlText := tpl.SQL
	for i := range tpl.Tables {
		ref := &tpl.Tables[i]
		b := &bindings[i]
		for ct := grammar.ColType(0); ct < grammar.NumTypes; ct++ {
			for j, pair := range b.columns[ct] {
				ph := ref.Placeholders[ct][j]
				qualified := ref.Name + "." + pair[0]
				sqlText = ph.CmpRand.ReplaceAllString(sqlText, qualified+" $1 "+pair[1])
				sqlText = ph.Plain.ReplaceAllString(sqlText, qualified)
			}
		}
		// the real name precedes the alias in FROM clauses
		sqlText = ref.NamePattern.ReplaceAllString(sqlText, b.foundName+" "+ref.Name+"$1")
	}
	sqlText = grammar.RandIntPattern().ReplaceAllString(sqlText, strconv.Itoa(w.rng.Int(100)))

	if compare {
		w.CompareBetweenEngines(ctx, enforce, sqlText)
		return
	}
	if !w.ExecuteSQL(ctx, sqlText) {
		w.Shared.PrintAndLog(w.threadLog, "Grammar SQL failed "+sqlText)
	}
}
