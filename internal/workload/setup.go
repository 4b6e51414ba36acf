package workload

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rstress/internal/core"
	"rstress/internal/options"
)

// GenerateMetadata creates the random catalog for a fresh step: for every
// table id a normal table, a foreign-key child when the parent has a
// primary key, and a partitioned sibling with the configured probability.
func GenerateMetadata(sh *Shared, w *Worker) {
	opts := sh.Opts
	if opts.Bool(options.OnlyTemporary) {
		return
	}
	tables := opts.Int(options.Tables)
	for i := 1; i <= tables; i++ {
		if !opts.Bool(options.OnlyPartition) {
			parent := w.Gen.NewRandomTable(core.TableNormal, i, false)
			sh.Catalog.Append(parent)
			if !opts.Bool(options.NoFK) &&
				opts.Int(options.FKProb) > w.rng.Int(100) && parent.HasPK() {
				sh.Catalog.Append(w.Gen.NewRandomTable(core.TableFK, i, false))
			}
		}
		if !opts.Bool(options.NoPartition) &&
			opts.Int(options.PartitionProb) > w.rng.Int(100) {
			sh.Catalog.Append(w.Gen.NewRandomTable(core.TablePartition, i, false))
		}
	}
}

// CreateDatabaseTablespaces drops and recreates the working database and
// every general and undo tablespace of the run universe.
func (w *Worker) CreateDatabaseTablespaces(ctx context.Context) error {
	opts := w.Shared.Opts
	env := w.Shared.Env

	if !w.ExecuteSQL(ctx, "DROP DATABASE IF EXISTS "+w.Shared.Database) {
		w.Shared.PrintAndLog(w.threadLog, "Failed to drop database")
		return fmt.Errorf("failed to drop database %s", w.Shared.Database)
	}
	if opts.Str(options.SecondaryEngine) != "" {
		w.ensureNoTableInSecondary(ctx)
	}
	w.ExecuteSQL(ctx, "CREATE DATABASE IF NOT EXISTS "+w.Shared.Database)

	for _, tab := range env.Tablespaces {
		if tab == "innodb_system" {
			continue
		}
		sqlText := "CREATE TABLESPACE " + tab + " ADD DATAFILE '" + tab + ".ibd' "
		if env.PageSizeKB <= 16 && len(tab) >= 6 {
			sqlText += " FILE_BLOCK_SIZE " + tab[3:6]
		}
		if !opts.Bool(options.NoEncryption) {
			if strings.HasSuffix(tab, "_e") {
				sqlText += " ENCRYPTION='Y'"
			} else if env.ServerVersion >= 80000 {
				sqlText += " ENCRYPTION='N'"
			}
		}
		// a previous step may have left the tablespace renamed
		if env.ServerVersion >= 80000 {
			w.ExecuteSQL(ctx, "ALTER TABLESPACE "+tab+"_rename rename to "+tab)
		}
		w.ExecuteSQL(ctx, "DROP TABLESPACE "+tab)
		if !w.ExecuteSQL(ctx, sqlText) {
			return fmt.Errorf("error in %s", sqlText)
		}
	}

	if env.ServerVersion >= 80000 {
		for _, name := range env.UndoTablespaces {
			w.ExecuteSQL(ctx, "CREATE UNDO TABLESPACE "+name+" ADD DATAFILE '"+name+".ibu'")
		}
	}
	return nil
}

func (w *Worker) ensureNoTableInSecondary(ctx context.Context) {
	if w.Shared.Opts.Bool(options.SelectInSecondary) {
		w.execPlain(ctx, "SET @@SESSION.USE_SECONDARY_ENGINE=OFF")
	}
	sqlText := "select count(1) from performance_schema." + w.secondaryLower() +
		`_table_sync_status where table_schema="` + w.Shared.Database + `"`
	for {
		if w.ReadSingleValue(ctx, sqlText) == "0" {
			break
		}
		select {
		case <-time.After(syncPollInterval):
		case <-ctx.Done():
			return
		}
	}
	if w.Shared.Opts.Bool(options.SelectInSecondary) {
		w.execPlain(ctx, "SET @@SESSION.USE_SECONDARY_ENGINE=FORCED")
	}
}

// Setup is the per-thread startup path: session settings, session temporary
// tables, then either the initial load (step 1 or prepare) or the optional
// check-table sweep. It returns the session's temporary tables.
func (w *Worker) Setup(ctx context.Context) ([]*core.Table, error) {
	opts := w.Shared.Opts

	w.execPlain(ctx, "SET collation_connection = utf8mb4_0900_bin")
	if opts.Str(options.SecondaryEngine) != "" {
		w.execPlain(ctx, "SET SESSION sql_generate_invisible_primary_key = TRUE")
	}
	w.execPlain(ctx, "USE "+w.Shared.Database)

	var tempTables int
	switch {
	case opts.Bool(options.OnlyTemporary):
		tempTables = opts.Int(options.Tables)
	case opts.Bool(options.NoTemporary):
		tempTables = 0
	default:
		tempTables = opts.Int(options.Tables) / opts.Int(options.TemporaryProb)
	}

	var session []*core.Table
	for i := 0; i < tempTables; i++ {
		table := w.Gen.NewRandomTable(core.TableTemporary, i, false)
		if !w.LoadTable(ctx, table, true, true) {
			return session, fmt.Errorf("failed to load temporary table %s", table.Name)
		}
		session = append(session, table)
	}

	if opts.Bool(options.Prepare) || opts.Int(options.Step) == 1 {
		if err := w.initialLoad(ctx); err != nil {
			return session, err
		}
	} else if opts.Bool(options.CheckTablePreload) {
		w.checkPreload(ctx)
	}

	return session, nil
}

// initialLoad claims table ids off the shared counter and loads the normal
// table, then the FK child (which consumes the parent's fresh unique keys),
// then the partitioned sibling; it returns once every table in the catalog
// finished loading somewhere.
func (w *Worker) initialLoad(ctx context.Context) error {
	order := []core.TableType{core.TableNormal, core.TableFK, core.TablePartition}
	tables := w.Shared.Opts.Int(options.Tables)

	for current := w.Shared.NextTableID(); current <= tables; current = w.Shared.NextTableID() {
		for _, typ := range order {
			name := core.TablePrefix + strconv.Itoa(current)
			switch typ {
			case core.TableFK:
				name += core.FKSuffix
			case core.TablePartition:
				name += core.PartitionSuffix
			}
			table := w.Shared.Catalog.Find(name)
			if table == nil {
				continue
			}
			if !w.LoadTable(ctx, table, true, true) {
				return fmt.Errorf("initial load failed for %s", name)
			}
			w.Shared.TableDone()
		}
	}

	for w.Shared.TablesCompleted() < w.Shared.InitialTables {
		if w.Shared.Failed.Load() {
			return fmt.Errorf("some other thread failed during initial load")
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	w.uniqueKeys = nil
	return nil
}

// checkPreload runs CHECK TABLE over every table, covering each partition
// by name.
func (w *Worker) checkPreload(ctx context.Context) {
	for current := int(w.Shared.tableStarted.Add(1)) - 1; current < w.Shared.Catalog.Len(); current = int(w.Shared.tableStarted.Add(1)) - 1 {
		table := w.Shared.Catalog.At(current)
		failures := 0
		if table.Type == core.TablePartition {
			switch table.Part.Type {
			case core.PartList:
				for _, l := range table.Part.Lists {
					if !w.checkResult(ctx, "ALTER TABLE "+table.Name+" CHECK PARTITION "+l.Name) {
						failures++
					}
				}
			case core.PartRange:
				for _, r := range table.Part.Ranges {
					if !w.checkResult(ctx, "ALTER TABLE "+table.Name+" CHECK PARTITION "+r.Name) {
						failures++
					}
				}
			default:
				for i := 0; i < table.Part.Count; i++ {
					if !w.checkResult(ctx, "ALTER TABLE "+table.Name+" CHECK PARTITION p"+strconv.Itoa(i)) {
						failures++
					}
				}
			}
		} else if !w.checkResult(ctx, "CHECK TABLE "+table.Name) {
			failures++
		}
		if failures != 0 {
			w.Shared.CheckFailures.Add(1)
		}
		w.Shared.TableDone()
	}
}
