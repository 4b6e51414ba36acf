package workload

import (
	"context"
	"strconv"
	"strings"

	"rstress/internal/core"
	"rstress/internal/options"
)

// bulkFlushBytes flushes the pending INSERT once its payload crosses 1 MiB.
const bulkFlushBytes = 1024 * 1024

// LoadTable creates the table, bulk-loads it, adds the secondary indexes
// and, for FK children, the constraint. setFailed controls whether a failed
// CREATE TABLE or FK constraint pulls the whole run down; a failed bulk
// insert or secondary index always does.
func (w *Worker) LoadTable(ctx context.Context, t *core.Table, bulkInsert, setFailed bool) bool {
	opts := w.Shared.Opts

	w.ddlQuery = true
	if !w.ExecuteSQL(ctx, w.Gen.CreateTableSQL(t, false, false)) {
		if setFailed {
			w.Shared.Failed.Store(true)
		}
		return false
	}

	if !opts.Bool(options.JustLoadDDL) && bulkInsert {
		if opts.Bool(options.WaitForSync) && !opts.Bool(options.SecondaryAfterCreate) {
			w.WaitTillSync(ctx, t.Name)
		}
		w.ddlQuery = false
		if !w.InsertBulkRecords(ctx, t) {
			return false
		}
	}

	if opts.Bool(options.SecondaryAfterCreate) {
		if !w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+" SECONDARY_ENGINE="+
			opts.Str(options.SecondaryEngine)) {
			w.Shared.PrintAndLog(w.threadLog, "Failed to set secondary engine for table "+t.Name)
			return false
		}
		if opts.Bool(options.WaitForSync) {
			w.WaitTillSync(ctx, t.Name)
		}
	}

	w.ddlQuery = true
	if !w.loadSecondaryIndexes(ctx, t) {
		return false
	}

	if t.Type == core.TableFK {
		if !w.loadFKConstraint(ctx, t, setFailed) {
			return false
		}
	}

	if w.Shared.Failed.Load() {
		return false
	}
	return true
}

func (w *Worker) loadSecondaryIndexes(ctx context.Context, t *core.Table) bool {
	for i, idx := range t.Indexes {
		if i == t.AutoIncIndex {
			continue
		}
		if !w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+" ADD "+w.Gen.IndexDef(idx)) {
			w.Shared.PrintAndLog(w.threadLog, "Failed to add index "+idx.Name+" on "+t.Name)
			w.Shared.Failed.Store(true)
			return false
		}
	}
	return true
}

func (w *Worker) loadFKConstraint(ctx context.Context, t *core.Table, setFailed bool) bool {
	constraint := t.Name + "_" + strconv.Itoa(w.rng.Int(100))
	sqlText := "ALTER TABLE " + t.Name + " ADD CONSTRAINT " + constraint + w.Gen.FKConstraint(t)
	if !w.ExecuteSQL(ctx, sqlText) {
		w.Shared.PrintAndLog(w.threadLog, "Failed to add fk constraint on "+t.Name)
		if setFailed {
			w.Shared.Failed.Store(true)
		}
		return false
	}
	return true
}

// InsertBulkRecords loads the table's initial rows in batches. Primary keys
// draw from a fresh unique vector kept on the worker for the table's FK
// children; unique INT index columns get their own vectors; LIST partition
// tables insert with IGNORE because generated values may fall outside the
// defined membership.
func (w *Worker) InsertBulkRecords(ctx context.Context, t *core.Table) bool {
	opts := w.Shared.Opts

	// a child can't have rows if its parent loaded none
	if t.Type == core.TableFK {
		if parent := w.Shared.Catalog.Find(t.ParentName()); parent != nil &&
			parent.InitialRecords == 0 {
			t.InitialRecords = 0
		}
	}
	if t.InitialRecords == 0 {
		return true
	}

	var fkKeys []int
	if t.Type == core.TableFK {
		fkKeys = w.uniqueKeys
		w.uniqueKeys = nil
		if len(fkKeys) > 0 && t.InitialRecords > len(fkKeys) {
			t.InitialRecords = len(fkKeys)
		}
	}

	maxKey := opts.Int(options.UniqueRange) * opts.Int(options.InitialRecords)
	alwaysDense := opts.Int(options.UniqueRange) == 1 && opts.Int(options.PositiveIntProb) == 1000

	if t.HasPK() {
		w.uniqueKeys = w.rng.UniqueInts(t.InitialRecords, maxKey, alwaysDense)
	}

	hasUniqueIntKey := func(col *core.Column) bool {
		for _, idx := range t.Indexes {
			if !idx.Unique {
				continue
			}
			for _, ic := range idx.Columns {
				if ic.Column.Type == core.TypeInt && ic.Column.Name == col.Name {
					return true
				}
			}
		}
		return false
	}

	uniqueByColumn := map[string][]int{}
	for _, col := range t.Columns {
		if col.PrimaryKey || !hasUniqueIntKey(col) {
			continue
		}
		if col.Name == "fk_col" && len(fkKeys) > 0 {
			uniqueByColumn[col.Name] = fkKeys[:t.InitialRecords]
		} else {
			uniqueByColumn[col.Name] = w.rng.UniqueInts(t.InitialRecords, maxKey, alwaysDense)
		}
	}

	isListPartition := t.Type == core.TablePartition && t.Part.Type == core.PartList

	prefix := "INSERT "
	if isListPartition {
		prefix += "IGNORE "
	}
	prefix += "INTO " + t.Name + " ("
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	prefix += strings.Join(names, ", ") + ")"

	var values strings.Builder
	values.WriteString(" VALUES")
	listDomain := ListPartitionDomain(opts)

	for records := 0; records < t.InitialRecords; {
		var row []string
		for _, col := range t.Columns {
			switch {
			case uniqueByColumn[col.Name] != nil:
				row = append(row, strconv.Itoa(uniqueByColumn[col.Name][records]))
			case strings.Contains(col.Name, "fk_col") && len(fkKeys) > 0:
				row = append(row, strconv.Itoa(fkKeys[w.rng.Int(len(fkKeys)-1)]))
			case col.Type == core.TypeGenerated:
				row = append(row, "DEFAULT")
			case col.PrimaryKey:
				row = append(row, strconv.Itoa(w.uniqueKeys[records]))
			case col.AutoIncrement:
				row = append(row, "NULL")
			case isListPartition && col.Name == "ip_col":
				row = append(row, strconv.Itoa(w.rng.Int(listDomain)))
			default:
				row = append(row, w.Gen.RandValue(col))
			}
		}
		values.WriteString("(" + strings.Join(row, ", ") + ")")
		records++

		if values.Len() > bulkFlushBytes || records == t.InitialRecords {
			if !w.ExecuteSQL(ctx, prefix+values.String()) {
				w.Shared.PrintAndLog(w.threadLog, "Bulk insert failed for table "+t.Name)
				w.Shared.Failed.Store(true)
				return false
			}
			values.Reset()
			values.WriteString(" VALUES")
		} else {
			values.WriteString(", ")
		}
		if w.Shared.Failed.Load() {
			return false
		}
	}
	return true
}

// ListPartitionDomain is the value space LIST partition keys draw from.
func ListPartitionDomain(opts *options.Registry) int {
	return 100 * opts.Int(options.MaxPartitions)
}
