package workload

import (
	"context"
	"strconv"
	"strings"

	"rstress/internal/core"
	"rstress/internal/options"
)

// Power-of-two exponents used by the secondary-engine rewrite PRAGMA.
var (
	rowGroupSizes = []int{2, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21,
		22, 23, 24, 25, 26, 27, 28, 29, 30, 31}
	htableSizes = []int{3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17,
		18, 19, 20, 21, 22}
)

func (w *Worker) secondaryLower() string {
	return strings.ToLower(w.Shared.Opts.Str(options.SecondaryEngine))
}

// SetServerVariable fuzzes one server variable from the configured list.
func (w *Worker) SetServerVariable(ctx context.Context) {
	total := 0
	for _, opt := range w.Shared.ServerOpt {
		total += opt.Prob
	}
	if total == 0 {
		return
	}
	draw := w.rng.Int(total)
	for _, opt := range w.Shared.ServerOpt {
		if draw > opt.Prob {
			continue
		}
		scope := " GLOBAL "
		if w.rng.Int(3) == 0 {
			scope = " SESSION "
		}
		w.ExecuteSQL(ctx, " SET "+scope+opt.Name+"="+
			opt.Values[w.rng.Int(len(opt.Values)-1)])
		return
	}
}

// AlterTablespaceEncryption toggles encryption of a random tablespace, now
// and then of the mysql system tablespace.
func (w *Worker) AlterTablespaceEncryption(ctx context.Context) {
	var tablespace string
	if (w.rng.Int(10) < 2 && w.Shared.Env.ServerVersion >= 80000) ||
		len(w.Shared.Env.Tablespaces) == 0 {
		tablespace = "mysql"
	} else if len(w.Shared.Env.Tablespaces) > 0 {
		tablespace = w.Shared.Env.Tablespaces[w.rng.Int(len(w.Shared.Env.Tablespaces)-1)]
	}
	if tablespace == "" {
		return
	}
	value := "'N'"
	if w.rng.Int(1) == 0 {
		value = "'Y'"
	}
	w.ExecuteSQL(ctx, "ALTER TABLESPACE "+tablespace+" ENCRYPTION "+value)
}

// AlterTablespaceRename round-trips the _rename suffix on a random general
// tablespace.
func (w *Worker) AlterTablespaceRename(ctx context.Context) {
	spaces := w.Shared.Env.Tablespaces
	if len(spaces) == 0 {
		return
	}
	tablespace := spaces[w.rng.Int(len(spaces)-1)]
	if tablespace == "innodb_system" {
		return
	}
	var sqlText string
	if w.rng.Int(1) == 0 {
		sqlText = "ALTER TABLESPACE " + tablespace + "_rename RENAME TO " + tablespace
	} else {
		sqlText = "ALTER TABLESPACE " + tablespace + " RENAME TO " + tablespace + "_rename"
	}
	w.ExecuteSQL(ctx, sqlText)
}

// AlterDatabaseEncryption toggles the default database encryption.
func (w *Worker) AlterDatabaseEncryption(ctx context.Context) {
	value := "'N'"
	if w.rng.Int(1) == 0 {
		value = "'Y'"
	}
	w.ExecuteSQL(ctx, "ALTER DATABASE "+w.Shared.Database+" ENCRYPTION "+value)
}

// AlterDatabaseCollation flips the default collation between two utf8mb4
// collations.
func (w *Worker) AlterDatabaseCollation(ctx context.Context) {
	collation := "utf8mb4_general_ci"
	if w.rng.Int(1) == 0 {
		collation = "utf8mb4_0900_ai_ci"
	}
	w.ExecuteSQL(ctx, "ALTER DATABASE "+w.Shared.Database+
		" DEFAULT CHARACTER SET utf8mb4 DEFAULT COLLATE "+collation)
}

// AlterRedoLogging flips InnoDB redo logging.
func (w *Worker) AlterRedoLogging(ctx context.Context) {
	action := "ENABLE"
	if w.rng.Int(1) == 0 {
		action = "DISABLE"
	}
	w.ExecuteSQL(ctx, "ALTER INSTANCE "+action+" INNODB REDO_LOG")
}

// UndoTablespaceSQL creates, drops or toggles an undo tablespace.
func (w *Worker) UndoTablespaceSQL(ctx context.Context) {
	undo := w.Shared.Env.UndoTablespaces
	if len(undo) == 0 {
		return
	}
	x := w.rng.Int(100)
	if x < 20 {
		name := undo[w.rng.Int(len(undo)-1)]
		w.ExecuteSQL(ctx, "CREATE UNDO TABLESPACE "+name+" ADD DATAFILE '"+name+".ibu'")
	} else if x < 40 {
		w.ExecuteSQL(ctx, "DROP UNDO TABLESPACE "+undo[w.rng.Int(len(undo)-1)])
	} else {
		state := "INACTIVE"
		if w.rng.Int(1) == 0 {
			state = "ACTIVE"
		}
		w.ExecuteSQL(ctx, "ALTER UNDO TABLESPACE "+undo[w.rng.Int(len(undo)-1)]+
			" SET "+state)
	}
}

// SetSecondaryEngine attaches the table to the configured secondary engine,
// or half of the time detaches it with SECONDARY_ENGINE=NULL.
func (w *Worker) SetSecondaryEngine(ctx context.Context, t *core.Table) {
	engine := w.Shared.Opts.Str(options.SecondaryEngine)
	if engine == "" {
		return
	}
	if w.rng.Int(1) == 0 {
		engine = "NULL"
	}
	w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+" SECONDARY_ENGINE="+engine)
}

// SecondaryGarbageCollect triggers the secondary engine's GC PRAGMA.
func (w *Worker) SecondaryGarbageCollect(ctx context.Context) {
	w.ExecuteSQL(ctx, "SET GLOBAL "+w.Shared.Opts.Str(options.SecondaryEngine)+
		` PRAGMA = "`+w.secondaryLower()+`_garbage_collect"`)
}

type rewriteOption struct {
	id    options.ID
	key   string
	sizes []int // nil means boolean value
}

// EnforceRebuildInSecondary asks the secondary engine to rewrite the table,
// attaching a shuffled random subset of row-group options.
func (w *Worker) EnforceRebuildInSecondary(ctx context.Context, t *core.Table) {
	w.enforceRebuild(ctx, t.Name)
}

func (w *Worker) enforceRebuild(ctx context.Context, tableName string) {
	opts := w.Shared.Opts
	var sb strings.Builder
	sb.WriteString(" SET GLOBAL " + opts.Str(options.SecondaryEngine) +
		` PRAGMA = "rewrite_table(` + w.Shared.Database + "." + tableName)

	if !opts.Bool(options.PlainRewrite) {
		rewrites := []rewriteOption{
			{options.RewriteRowGroupMinRows, "row_group_min_rows", htableSizes},
			{options.RewriteRowGroupMaxBytes, "row_group_max_bytes", rowGroupSizes},
			{options.RewriteRowGroupMaxRows, "row_group_max_rows", htableSizes},
			{options.RewriteDeltaNumRows, "delta_num_rows", htableSizes},
			{options.RewriteDeltaNumUndo, "delta_num_undo", htableSizes},
			{options.RewriteGC, "gc", nil},
			{options.RewriteBlocking, "blocking", nil},
			{options.RewriteMaxRowIDHashMap, "max_row_id_hash_map", htableSizes},
			{options.RewriteForce, "force", nil},
			{options.RewriteNoResidual, "no_residual", nil},
			{options.RewriteMaxInternalBlobSize, "max_internal_blob_size", htableSizes},
			{options.RewriteBlockCookerRowGroupMaxRows, "block_cooker_row_group_max_rows", htableSizes},
			{options.RewritePartial, "partial", nil},
		}
		w.rng.Shuffle(len(rewrites), func(i, j int) {
			rewrites[i], rewrites[j] = rewrites[j], rewrites[i]
		})
		for _, rw := range rewrites {
			if w.rng.Int(100) >= opts.Int(rw.id) {
				continue
			}
			if rw.sizes == nil {
				value := "false"
				if w.rng.Int(1) == 0 {
					value = "true"
				}
				sb.WriteString("," + rw.key + "='" + value + "'")
			} else {
				shift := rw.sizes[w.rng.Int(len(rw.sizes)-1)]
				sb.WriteString("," + rw.key + "=" + strconv.Itoa(1<<uint(shift)))
			}
		}
	}
	sb.WriteString(`)"`)
	w.ExecuteSQL(ctx, sb.String())
}
