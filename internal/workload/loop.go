package workload

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"rstress/internal/core"
	"rstress/internal/options"
)

// Run is the per-thread workload loop: pick an operation, manage the
// transaction state, pick a table, dispatch, count, and stop on the shared
// deadline or failure flag.
func (w *Worker) Run(ctx context.Context) error {
	opts := w.Shared.Opts
	if w.Shared.Catalog.Len() == 0 {
		return nil
	}
	sel, err := options.NewSelector(opts)
	if err != nil {
		return err
	}

	if opts.Bool(options.SelectInSecondary) {
		w.execPlain(ctx, "SET @@SESSION.USE_SECONDARY_ENGINE=FORCED")
	}

	deadline := w.Shared.StartTime.Add(time.Duration(opts.Int(options.Seconds)) * time.Second)
	freq := make(map[options.ID][2]int)

	for time.Now().Before(deadline) && ctx.Err() == nil {
		id := sel.Pick(w.rng)
		opt := opts.At(id)
		w.ddlQuery = opt.DDL

		// only the leader thread runs DDL when single-thread-ddl is set
		if w.ID != 0 && opts.Bool(options.SingleThreadDDL) && w.ddlQuery {
			continue
		}

		w.transactionStep(ctx)

		var pickID int
		if opts.Bool(options.ThreadPerTable) {
			pickID = w.ID % w.Shared.Catalog.Len()
		} else {
			pickID = w.rng.Int(w.Shared.Catalog.Len() - 1)
		}
		table := w.Shared.Catalog.At(pickID)

		w.dispatch(ctx, id, table)

		opt.Total.Add(1)
		counts := freq[id]
		counts[0]++
		if w.success {
			opt.Success.Add(1)
			counts[1]++
			w.success = false
		}
		freq[id] = counts

		if w.Shared.Failed.Load() {
			if w.threadLog != nil {
				_, _ = fmt.Fprintln(w.threadLog, "some other thread failed, exiting; please check logs")
			}
			break
		}
	}

	for id, counts := range freq {
		if counts[0] > 0 && w.threadLog != nil {
			_, _ = fmt.Fprintf(w.threadLog, "%s, total=>%d, success=> %d\n",
				opts.At(id).Help, counts[0], counts[1])
		}
	}
	return nil
}

// transactionStep handles COMMIT/ROLLBACK, savepoints and START TRANSACTION
// around the upcoming operation. DDL always ends the open transaction.
func (w *Worker) transactionStep(ctx context.Context) {
	opts := w.Shared.Opts
	if w.trxLeft > 0 {
		w.trxLeft--
		if w.trxLeft == 0 || w.ddlQuery {
			if w.rng.Between(1, 100) > opts.Int(options.CommitProb) {
				w.execPlain(ctx, "ROLLBACK")
			} else {
				w.execPlain(ctx, "COMMIT")
			}
			w.savePoint = 0
		} else {
			if w.rng.Int(1000) < opts.Int(options.SavepointProbK) {
				w.savePoint++
				w.execPlain(ctx, "SAVEPOINT SAVE"+strconv.Itoa(w.savePoint))
			}
			if w.savePoint > 0 && w.rng.Int(10) == 1 {
				sv := w.rng.Between(1, w.savePoint)
				w.execPlain(ctx, "ROLLBACK TO SAVEPOINT SAVE"+strconv.Itoa(sv))
				w.savePoint = sv - 1
			}
		}
	}
	if w.trxLeft == 0 && w.rng.Int(1000) < opts.Int(options.TransactionProbK) {
		w.execPlain(ctx, "START TRANSACTION")
		w.trxLeft = w.rng.Between(1, opts.Int(options.TransactionsSize))
	}
}

// execPlain runs bookkeeping SQL without flipping the DDL tag.
func (w *Worker) execPlain(ctx context.Context, sqlText string) {
	saved := w.ddlQuery
	w.ddlQuery = false
	w.ExecuteSQL(ctx, sqlText)
	w.ddlQuery = saved
}

func (w *Worker) dispatch(ctx context.Context, id options.ID, table *core.Table) {
	switch id {
	case options.DropIndex:
		w.DropIndex(ctx, table)
	case options.AddIndex:
		w.AddIndex(ctx, table)
	case options.DropColumn:
		w.DropColumn(ctx, table)
	case options.AddColumn:
		w.AddColumn(ctx, table)
	case options.RenameColumn:
		w.ColumnRename(ctx, table)
	case options.RenameIndex:
		w.IndexRename(ctx, table)
	case options.AlterColumnModify:
		w.ModifyColumn(ctx, table)
	case options.ModifyColumnSecondaryEngine:
		w.ModifyColumnSecondaryEngine(ctx, table)
	case options.Truncate:
		w.Truncate(ctx, table)
	case options.Optimize:
		w.Optimize(ctx, table)
	case options.Analyze:
		w.Analyze(ctx, table)
	case options.CheckTable:
		w.Check(ctx, table)
	case options.DropCreate:
		w.DropCreate(ctx, table)
	case options.AddNewTable:
		w.AddTable(ctx)
	case options.AddDropPartition:
		if table.Type == core.TablePartition {
			w.AddDropPartition(ctx, table)
		}
	case options.AlterTableEncryption:
		w.SetEncryption(ctx, table)
	case options.AlterTableCompression:
		w.SetTableCompression(ctx, table)
	case options.AlterDiscardTablespace:
		w.DiscardTablespace(ctx, table)
	case options.AlterSecondaryEngine:
		w.SetSecondaryEngine(ctx, table)
	case options.EnforceMerge:
		w.EnforceRebuildInSecondary(ctx, table)
	case options.SecondaryGC:
		w.SecondaryGarbageCollect(ctx)
	case options.AlterTablespaceEncryption:
		w.AlterTablespaceEncryption(ctx)
	case options.AlterTablespaceRename:
		w.AlterTablespaceRename(ctx)
	case options.AlterDatabaseEncryption:
		w.AlterDatabaseEncryption(ctx)
	case options.AlterDatabaseCollation:
		w.AlterDatabaseCollation(ctx)
	case options.AlterMasterKey:
		w.ExecuteSQL(ctx, "ALTER INSTANCE ROTATE INNODB MASTER KEY")
	case options.AlterEncryptionKey:
		w.ExecuteSQL(ctx, "ALTER INSTANCE ROTATE INNODB SYSTEM KEY "+strconv.Itoa(w.rng.Int(9)))
	case options.AlterGCacheMasterKey:
		w.ExecuteSQL(ctx, "ALTER INSTANCE ROTATE GCACHE MASTER KEY")
	case options.AlterInstanceReloadKeyring:
		if w.Shared.Env.KeyringActive {
			w.ExecuteSQL(ctx, "ALTER INSTANCE RELOAD KEYRING")
		}
	case options.RotateRedoLogKey:
		w.ExecuteSQL(ctx, `SELECT rotate_system_key("percona_redo")`)
	case options.AlterRedoLogging:
		w.AlterRedoLogging(ctx)
	case options.UndoSQL:
		w.UndoTablespaceSQL(ctx)
	case options.SetGlobalVariable:
		w.SetServerVariable(ctx)
	case options.SelectAllRow:
		w.SelectAllRows(ctx, table, false)
	case options.SelectRowUsingPKey:
		w.SelectRandomRow(ctx, table, false)
	case options.SelectForUpdate:
		w.SelectRandomRow(ctx, table, true)
	case options.SelectForUpdateBulk:
		w.SelectAllRows(ctx, table, true)
	case options.InsertRandomRow:
		w.InsertRandomRow(ctx, table)
	case options.UpdateRowUsingPKey:
		w.UpdateRandomRow(ctx, table)
	case options.UpdateAllRows:
		w.UpdateAllRows(ctx, table)
	case options.DeleteRowUsingPKey:
		w.DeleteRandomRow(ctx, table)
	case options.DeleteAllRow:
		w.DeleteAllRows(ctx, table)
	case options.CallFunction:
		w.CreateFunction(ctx, table)
	case options.GrammarSQL:
		w.GrammarSQL(ctx, table)
	}
}
