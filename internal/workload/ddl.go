package workload

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"rstress/internal/core"
	"rstress/internal/options"
)

// DropIndex drops a random index and removes it from the model on success.
func (w *Worker) DropIndex(ctx context.Context, t *core.Table) {
	t.LockDDL()
	if len(t.Indexes) == 0 {
		t.UnlockDDL()
		if w.threadLog != nil {
			_, _ = fmt.Fprintf(w.threadLog, "no index to drop %s\n", t.Name)
		}
		return
	}
	name := t.Indexes[w.rng.Int(len(t.Indexes)-1)].Name
	sqlText := "ALTER TABLE " + t.Name + " DROP INDEX " + name + "," + w.Gen.AlgorithmLock()
	t.UnlockDDL()

	if w.ExecuteSQL(ctx, sqlText) {
		t.LockDDL()
		t.RemoveIndex(name)
		t.UnlockDDL()
	}
}

// AddIndex builds a random index over existing columns and registers it on
// success, unless a same-named index appeared concurrently.
func (w *Worker) AddIndex(ctx context.Context, t *core.Table) {
	idx := &core.Index{Name: t.Name + strconv.Itoa(w.rng.Int(1000))}

	t.LockDDL()
	maxColumns := w.Shared.Opts.Int(options.IndexColumns)
	if len(t.Columns) < maxColumns {
		maxColumns = len(t.Columns)
	}
	count := w.rng.Between(1, maxColumns)

	var positions []int
	for len(positions) < count {
		current := w.rng.Int(len(t.Columns) - 1)
		already := false
		for _, p := range positions {
			if p == current {
				already = true
			}
		}
		if !already {
			positions = append(positions, current)
		}
	}
	for _, pos := range positions {
		col := t.Columns[pos]
		ic := &core.IndexColumn{Column: col}
		if !w.Shared.Opts.Bool(options.NoDescIndex) {
			ic.Desc = w.rng.Int(100) < 34
		}
		if col.IsBlobOrText() {
			ic.Length = w.rng.Between(1, 30)
		}
		idx.AddColumn(ic)
	}
	if w.rng.Int(1000) <= w.Shared.Opts.Int(options.UniqueIndexProbK) {
		idx.Unique = true
	}
	sqlText := "ALTER TABLE " + t.Name + " ADD " + w.Gen.IndexDef(idx) + "," + w.Gen.AlgorithmLock()
	t.UnlockDDL()

	if w.ExecuteSQL(ctx, sqlText) {
		t.LockDDL()
		if t.FindIndex(idx.Name) == nil {
			t.AddIndex(idx)
		}
		t.UnlockDDL()
	}
}

// DropColumn drops a random column; the last column is never dropped and
// the primary key survives with the configured probability. On success the
// model cascades: dependent generated columns and emptied indexes go too.
func (w *Worker) DropColumn(ctx context.Context, t *core.Table) {
	t.LockDDL()
	if len(t.Columns) == 1 {
		t.UnlockDDL()
		return
	}
	name := t.Columns[w.rng.Int(len(t.Columns)-1)].Name
	if w.rng.Between(1, 100) <= w.Shared.Opts.Int(options.PrimaryKeyProb) &&
		strings.Contains(name, "pkey") {
		t.UnlockDDL()
		return
	}
	sqlText := "ALTER TABLE " + t.Name + " DROP COLUMN " + name + "," + w.Gen.AlgorithmLock()
	t.UnlockDDL()

	if w.ExecuteSQL(ctx, sqlText) {
		t.LockDDL()
		if col := t.FindColumn(name); col != nil {
			col.Lock()
			t.RemoveColumn(name)
			col.Unlock()
		}
		t.UnlockDDL()
	}
}

// AddColumn adds a random column, with AFTER positioning when the chosen
// algorithm and the table's virtual columns allow it.
func (w *Worker) AddColumn(ctx context.Context, t *core.Table) {
	t.LockDDL()

	useVirtual := !w.Shared.Opts.Bool(options.NoVirtualColumns) &&
		!(len(t.Columns) == 1 && t.Columns[0].AutoIncrement)
	allowGenerated := useVirtual && w.rng.Int(23) == 1 && hasGenBase(t)

	name := "N" + strconv.Itoa(w.rng.Int(300))
	col := w.Gen.RandomColumnSpec(t, name, allowGenerated)

	sqlText := "ALTER TABLE " + t.Name + " ADD COLUMN " + w.Gen.ColumnDef(col)

	clause, algo, _ := w.Gen.AlgorithmLockWith()

	hasVirtual := col.Type == core.TypeGenerated
	for _, c := range t.Columns {
		if c.Type == core.TypeGenerated {
			hasVirtual = true
		}
	}
	instantLike := algo == "INSTANT" || algo == "INPLACE"
	if ((instantLike && !hasVirtual && t.KeyBlockSize == 1) || !instantLike) &&
		w.rng.Between(1, 10) <= 7 {
		sqlText += " AFTER " + t.Columns[w.rng.Int(len(t.Columns)-1)].Name
	}
	sqlText += "," + clause
	t.UnlockDDL()

	if w.ExecuteSQL(ctx, sqlText) {
		t.LockDDL()
		if t.FindColumn(col.Name) == nil {
			t.AddColumn(col)
		}
		t.UnlockDDL()
	}
}

func hasGenBase(t *core.Table) bool {
	for _, c := range t.Columns {
		if !c.AutoIncrement && c.Type != core.TypeGenerated {
			return true
		}
	}
	return false
}

// ModifyColumn re-emits a column definition with mutated length,
// auto-increment, compression or not-secondary attributes. The column lock
// makes the field writes atomic; on failure the captured values are
// restored so the model stays observationally unchanged.
func (w *Worker) ModifyColumn(ctx context.Context, t *core.Table) {
	var col *core.Column
	for i := 0; i < 50 && col == nil; i++ {
		candidate := t.Columns[w.rng.Int(len(t.Columns)-1)]
		if candidate.Type == core.TypeBool {
			continue
		}
		col = candidate
	}
	if col == nil {
		return
	}

	col.Lock()
	defer col.Unlock()

	oldLength := col.Length
	oldAutoInc := col.AutoIncrement
	oldCompressed := col.Compressed
	oldNotSecondary := col.NotSecondary

	if col.Length != 0 {
		col.Length = w.rng.Between(5, 30)
	}
	switch {
	case col.AutoIncrement && w.rng.Int(5) == 0:
		col.AutoIncrement = false
	case col.Compressed && w.rng.Int(4) == 0:
		col.Compressed = false
	case !w.Shared.Opts.Bool(options.NoColumnCompression) &&
		(col.Type == core.TypeBlob || col.Type == core.TypeGenerated ||
			col.Type == core.TypeVarchar || col.Type == core.TypeText):
		col.Compressed = true
	case col.NotSecondary && w.rng.Int(3) == 0:
		col.NotSecondary = false
	}

	sqlText := "ALTER TABLE " + t.Name + " MODIFY COLUMN " + w.Gen.ColumnDef(col) +
		"," + w.Gen.AlgorithmLock()

	if !w.ExecuteSQL(ctx, sqlText) {
		col.Length = oldLength
		col.AutoIncrement = oldAutoInc
		col.Compressed = oldCompressed
		col.NotSecondary = oldNotSecondary
	}
}

// ModifyColumnSecondaryEngine flips NOT SECONDARY on a slice of columns.
func (w *Worker) ModifyColumnSecondaryEngine(ctx context.Context, t *core.Table) {
	percent := w.Shared.Opts.Int(options.ModifyColumnSecondaryEngine)
	budget := len(t.Columns) * percent / 100
	for _, col := range t.Columns {
		if budget < 1 {
			break
		}
		col.Lock()
		old := col.NotSecondary
		col.NotSecondary = !col.NotSecondary
		sqlText := "ALTER TABLE " + t.Name + " MODIFY COLUMN " + w.Gen.ColumnDef(col) +
			"," + w.Gen.AlgorithmLock()
		if !w.ExecuteSQL(ctx, sqlText) {
			col.NotSecondary = old
		}
		col.Unlock()
		budget--
	}
}

// ColumnRename toggles the _rename suffix on a random column; applying it
// twice restores the original name.
func (w *Worker) ColumnRename(ctx context.Context, t *core.Table) {
	t.LockDDL()
	name := t.Columns[w.rng.Int(len(t.Columns)-1)].Name
	newName := toggleRenameSuffix(name)
	sqlText := "ALTER TABLE " + t.Name + " RENAME COLUMN " + name + " To " + newName +
		"," + w.Gen.AlgorithmLock()
	t.UnlockDDL()

	if w.ExecuteSQL(ctx, sqlText) {
		t.LockDDL()
		if col := t.FindColumn(name); col != nil {
			col.Name = newName
		}
		t.UnlockDDL()
	}
}

// IndexRename toggles the _rename suffix on a random index.
func (w *Worker) IndexRename(ctx context.Context, t *core.Table) {
	t.LockDDL()
	if len(t.Indexes) == 0 {
		t.UnlockDDL()
		return
	}
	name := t.Indexes[w.rng.Int(len(t.Indexes)-1)].Name
	newName := toggleRenameSuffix(name)
	sqlText := "ALTER TABLE " + t.Name + " RENAME INDEX " + name + " To " + newName +
		"," + w.Gen.AlgorithmLock()
	t.UnlockDDL()

	if w.ExecuteSQL(ctx, sqlText) {
		t.LockDDL()
		if idx := t.FindIndex(name); idx != nil {
			idx.Name = newName
		}
		t.UnlockDDL()
	}
}

func toggleRenameSuffix(name string) string {
	const suffix = "_rename"
	if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
		return strings.TrimSuffix(name, suffix)
	}
	return name + suffix
}

// randomPartitionName names an existing partition for the current strategy,
// or "" when every partition is gone.
func (w *Worker) randomPartitionName(t *core.Table) string {
	p := t.Part
	switch p.Type {
	case core.PartRange:
		if len(p.Ranges) == 0 {
			return ""
		}
		return p.Ranges[w.rng.Int(len(p.Ranges)-1)].Name
	case core.PartList:
		if len(p.Lists) == 0 {
			return ""
		}
		return p.Lists[w.rng.Int(len(p.Lists)-1)].Name
	default:
		if p.Count < 1 {
			return ""
		}
		return "p" + strconv.Itoa(w.rng.Int(p.Count-1))
	}
}

// Truncate clears the table, or almost always a single partition for
// partitioned tables.
func (w *Worker) Truncate(ctx context.Context, t *core.Table) {
	if t.Type == core.TablePartition && w.rng.Int(100) > 1 {
		t.LockDDL()
		name := w.randomPartitionName(t)
		t.UnlockDDL()
		if name != "" {
			w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+w.Gen.AlgorithmLock()+
				", TRUNCATE PARTITION "+name)
			return
		}
	}
	w.ExecuteSQL(ctx, "TRUNCATE TABLE "+t.Name)
}

// Optimize rewrites the table, or one partition a quarter of the time.
func (w *Worker) Optimize(ctx context.Context, t *core.Table) {
	if t.Type == core.TablePartition && w.rng.Int(3) == 1 {
		t.LockDDL()
		name := w.randomPartitionName(t)
		t.UnlockDDL()
		if name != "" {
			w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+" OPTIMIZE PARTITION "+name)
			return
		}
	}
	w.ExecuteSQL(ctx, "OPTIMIZE TABLE "+t.Name)
}

// Analyze refreshes statistics, or one partition a quarter of the time.
func (w *Worker) Analyze(ctx context.Context, t *core.Table) {
	if t.Type == core.TablePartition && w.rng.Int(3) == 1 {
		t.LockDDL()
		name := w.randomPartitionName(t)
		t.UnlockDDL()
		if name != "" {
			w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+" ANALYZE PARTITION "+name)
			return
		}
	}
	w.ExecuteSQL(ctx, "ANALYZE TABLE "+t.Name)
}

// Check verifies the table, or one partition a quarter of the time.
func (w *Worker) Check(ctx context.Context, t *core.Table) {
	if t.Type == core.TablePartition && w.rng.Int(3) == 1 {
		t.LockDDL()
		name := w.randomPartitionName(t)
		t.UnlockDDL()
		if name != "" {
			w.checkResult(ctx, "ALTER TABLE "+t.Name+" CHECK PARTITION "+name)
			return
		}
	}
	w.checkResult(ctx, "CHECK TABLE "+t.Name)
}

// DropCreate drops the table and creates it again; when the plain create
// fails against a renamed or re-encrypted tablespace it retries the known
// variants and records the encryption flip that succeeded.
func (w *Worker) DropCreate(ctx context.Context, t *core.Table) {
	nboProb := w.Shared.Opts.Int(options.DropWithNBO)
	setNBO := false
	if w.rng.Int(100) < nboProb {
		w.ExecuteSQL(ctx, "SET SESSION wsrep_osu_method=NBO ")
		setNBO = true
	}
	if !w.ExecuteSQL(ctx, "DROP TABLE "+t.Name) {
		return
	}
	if setNBO {
		w.ExecuteSQL(ctx, "SET SESSION wsrep_osu_method=DEFAULT ")
	}

	t.LockDDL()
	def := w.Gen.CreateTableSQL(t, true, true)
	tablespace := t.Tablespace
	encryption := t.Encryption
	t.UnlockDDL()

	if w.ExecuteSQL(ctx, def) || tablespace == "" {
		return
	}

	tbs := " TABLESPACE=" + tablespace + "_rename"
	encryptSQL := " ENCRYPTION = " + encryption
	if w.ExecuteSQL(ctx, def+tbs) {
		return
	}
	if !w.Shared.Opts.Bool(options.NoEncryption) &&
		(w.ExecuteSQL(ctx, def+encryptSQL) || w.ExecuteSQL(ctx, def+encryptSQL+tbs)) {
		t.LockDDL()
		switch t.Encryption {
		case "Y":
			t.Encryption = "N"
		case "N":
			t.Encryption = "Y"
		}
		t.UnlockDDL()
	}
}

// SetEncryption flips the table's encryption to a random allowed value.
func (w *Worker) SetEncryption(ctx context.Context, t *core.Table) {
	if len(w.Shared.Env.Encryption) == 0 {
		return
	}
	enc := w.Shared.Env.Encryption[w.rng.Int(len(w.Shared.Env.Encryption)-1)]
	if w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+" ENCRYPTION = '"+enc+"'") {
		t.LockDDL()
		t.Encryption = enc
		t.UnlockDDL()
	}
}

// SetTableCompression flips the table's compression codec.
func (w *Worker) SetTableCompression(ctx context.Context, t *core.Table) {
	if len(w.Shared.Env.Compression) == 0 {
		return
	}
	comp := w.Shared.Env.Compression[w.rng.Int(len(w.Shared.Env.Compression)-1)]
	if w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+" COMPRESSION= '"+comp+"'") {
		t.LockDDL()
		t.Compression = comp
		t.UnlockDDL()
	}
}

// DiscardTablespace discards the table's tablespace, which leaves the table
// unusable, so it is recreated right away.
func (w *Worker) DiscardTablespace(ctx context.Context, t *core.Table) {
	w.ExecuteSQL(ctx, "ALTER TABLE "+t.Name+" DISCARD TABLESPACE")
	w.DropCreate(ctx, t)
}

// AddTable creates an additional table mid-run and appends it to the
// catalog on success.
func (w *Worker) AddTable(ctx context.Context) {
	opts := w.Shared.Opts
	id := w.rng.Between(1, opts.Int(options.Tables))

	typ := core.TableNormal
	if !opts.Bool(options.NoFK) && opts.Int(options.FKProb) > w.rng.Int(100) {
		typ = core.TableFK
	}
	table := w.Gen.NewRandomTable(typ, id, true)

	if !w.ExecuteSQL(ctx, w.Gen.CreateTableSQL(table, true, true)) {
		return
	}
	w.Shared.Catalog.Append(table)
	w.Shared.PrintAndLog(w.threadLog, "Created new table "+table.Name)
}
