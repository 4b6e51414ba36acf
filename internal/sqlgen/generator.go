package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"rstress/internal/core"
	"rstress/internal/options"
	"rstress/internal/random"
)

// Generator synthesizes random schema objects and SQL for one worker thread.
type Generator struct {
	Opts *options.Registry
	Rand *random.Source
	Env  *Env
}

// New returns a generator bound to a worker's PRNG.
func New(opts *options.Registry, rng *random.Source, env *Env) *Generator {
	return &Generator{Opts: opts, Rand: rng, Env: env}
}

func (g *Generator) pick(values []string) string {
	return values[g.Rand.Int(len(values)-1)]
}

// NewRandomTable builds a table of the given variant the way the options ask
// for it: name, storage attributes, columns, indexes and the variant payload.
// suffix appends a random numeric tail for tables created mid-run.
func (g *Generator) NewRandomTable(typ core.TableType, id int, suffix bool) *core.Table {
	name := core.TablePrefix + strconv.Itoa(id)
	if suffix {
		name += "_" + strconv.Itoa(g.Rand.Int(1000000))
	}
	switch typ {
	case core.TablePartition:
		name += core.PartitionSuffix
	case core.TableFK:
		name += core.FKSuffix
	case core.TableTemporary:
		name += core.TempSuffix
	}

	t := core.NewTable(name, typ)
	if typ == core.TablePartition {
		g.fillPartition(t)
	}

	if g.Opts.Bool(options.ExactInitialRecords) {
		t.InitialRecords = g.Opts.Int(options.InitialRecords)
	} else {
		t.InitialRecords = g.Rand.Int(g.Opts.Int(options.InitialRecords))
	}

	// temporary tables on 8.0 can't carry a key block size
	if !(g.Env.ServerVersion >= 80000 && typ == core.TableTemporary) {
		if len(g.Env.KeyBlockSizes) > 0 {
			t.KeyBlockSize = g.Env.KeyBlockSizes[g.Rand.Int(len(g.Env.KeyBlockSizes)-1)]
		}
		if t.KeyBlockSize > 0 && g.Rand.Int(2) == 0 {
			t.RowFormat = "COMPRESSED"
		}
		if t.KeyBlockSize == 0 && len(g.Env.RowFormats) > 0 {
			t.RowFormat = g.pick(g.Env.RowFormats)
		}
	}

	noEncryption := g.Opts.Bool(options.NoEncryption)
	tbsCount := g.Opts.Int(options.GeneralTablespaces)

	if typ == core.TablePartition && !noEncryption {
		t.Encryption = g.pick(g.Env.Encryption)
	} else if typ != core.TableTemporary && !noEncryption {
		enc := g.pick(g.Env.Encryption)
		if enc == "Y" || enc == "N" {
			if len(g.Env.Tablespaces) > 0 && g.Rand.Int(tbsCount) != 0 {
				t.Tablespace = g.pick(g.Env.Tablespaces)
				if strings.HasSuffix(t.Tablespace, "_e") {
					t.Encryption = "Y"
				}
				t.RowFormat = ""
				if kbs, ok := tablespaceBlockSize(t.Tablespace, g.Env.PageSizeKB); ok {
					t.KeyBlockSize = kbs
				} else {
					t.KeyBlockSize = 0
				}
			}
		} else {
			t.Encryption = enc
		}
	}

	if g.Env.EncryptedTempTables && typ == core.TableTemporary {
		t.Encryption = "Y"
	}
	if g.Env.EncryptedSysTablespaces && t.Tablespace == "innodb_system" {
		t.Encryption = "Y"
	}

	// a quarter of plain-tablespace tables are compressed
	if typ != core.TableTemporary && t.Tablespace == "" &&
		g.Rand.Int(3) == 1 && len(g.Env.Compression) > 0 {
		t.Compression = g.pick(g.Env.Compression)
		t.RowFormat = ""
		t.KeyBlockSize = 0
	}

	t.Engine = g.Opts.Str(options.Engine)

	g.defaultColumns(t)
	g.defaultIndexes(t)
	if typ == core.TableFK {
		g.pickFKActions(t, t)
	}
	return t
}

// tablespaceBlockSize maps tab02k-style names to a key block size; sizes at
// or above the page size (and innodb_system) use none.
func tablespaceBlockSize(name string, pageSizeKB int) (int, bool) {
	if pageSizeKB > Page16K || name == "innodb_system" || len(name) < 5 {
		return 0, false
	}
	kbs, err := strconv.Atoi(name[3:5])
	if err != nil || kbs == pageSizeKB {
		return 0, false
	}
	return kbs, true
}

func (g *Generator) fillPartition(t *core.Table) {
	supported := partitionTypes(g.Opts.Str(options.PartitionSupported))
	p := t.Part
	p.Type = supported[g.Rand.Int(len(supported)-1)]
	if max := g.Opts.Int(options.MaxPartitions); max >= 2 {
		p.Count = g.Rand.Between(2, max)
	} else {
		p.Count = 1
	}

	switch p.Type {
	case core.PartRange:
		records := g.Opts.Int(options.InitialRecords)
		bounds := make([]int, p.Count)
		for i := range bounds {
			bounds[i] = g.Rand.Int(g.Opts.Int(options.UniqueRange) * records)
		}
		sortInts(bounds)
		// bump duplicates so bounds stay strictly increasing
		for i := 1; i < len(bounds); i++ {
			if bounds[i] <= bounds[i-1] {
				bounds[i] = bounds[i-1] + 1
			}
		}
		for i, b := range bounds {
			p.Ranges = append(p.Ranges, core.RangePart{Name: "p" + strconv.Itoa(i), Bound: b})
		}
	case core.PartList:
		domain := g.Rand.Between(p.Count, ListPartitionMaxValues*p.Count)
		pool := make([]int, domain)
		for i := range pool {
			pool[i] = i
		}
		for i := 0; i < p.Count; i++ {
			take := g.Rand.Int(domain) / p.Count
			if take == 0 {
				take = 1
			}
			if take > len(pool) {
				take = len(pool)
			}
			list := core.ListPart{Name: "p" + strconv.Itoa(i)}
			for j := 0; j < take && len(pool) > 0; j++ {
				at := g.Rand.Int(len(pool) - 1)
				list.Values = append(list.Values, pool[at])
				pool = append(pool[:at], pool[at+1:]...)
			}
			p.Lists = append(p.Lists, list)
		}
		p.Remaining = pool
	}
}

func partitionTypes(value string) []core.PartitionType {
	if strings.EqualFold(value, "all") {
		return []core.PartitionType{core.PartKey, core.PartList, core.PartHash, core.PartRange}
	}
	upper := strings.ToUpper(value)
	var out []core.PartitionType
	for _, p := range []core.PartitionType{core.PartHash, core.PartKey, core.PartList, core.PartRange} {
		if strings.Contains(upper, string(p)) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []core.PartitionType{core.PartHash}
	}
	return out
}

func sortInts(v []int) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j] < v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
}

// defaultColumns populates a fresh table. The first column may be an INT
// primary key; FK children get their reference column and partitioned
// tables their partition key before the regular columns.
func (g *Generator) defaultColumns(t *core.Table) {
	hasAutoInc := false

	if t.Type == core.TableFK {
		t.AddColumn(&core.Column{Name: "fk_col", Type: core.TypeInteger, Nullable: true})
	}
	if t.Type == core.TablePartition {
		typ := core.TypeInt
		if t.Part.Type == core.PartList {
			typ = core.TypeInteger
		}
		t.AddColumn(&core.Column{Name: "ip_col", Type: typ, Nullable: false})
	}

	maxCols := g.Opts.Int(options.Columns)
	if !g.Opts.Bool(options.ExactColumns) {
		maxCols = g.Rand.Between(1, maxCols)
	}
	notSecondaryLeft := g.Opts.Int(options.NotSecondary) * maxCols / 100

	for i := 0; i < maxCols; i++ {
		if i == 0 && g.Rand.Between(1, 100) <= g.Opts.Int(options.PrimaryKeyProb) {
			col := &core.Column{Name: "pkey", Type: core.TypeInt, PrimaryKey: true}
			if g.Rand.Int(100) < g.Opts.Int(options.PKColumnAutoinc) &&
				!g.Opts.Bool(options.NoAutoInc) {
				col.AutoIncrement = true
				hasAutoInc = true
			}
			t.AddColumn(col)
			continue
		}

		name := strconv.Itoa(i)
		allowGenerated := !g.Opts.Bool(options.NoVirtualColumns) &&
			float64(i) >= 0.8*float64(maxCols) && g.Rand.Int(1) == 1 &&
			hasGeneratedBase(t)
		col := g.randomColumn(t, name, allowGenerated)

		// until one column has it, each INT column picks up auto-increment
		// about three times in four
		if col.Type == core.TypeInt && !g.Opts.Bool(options.NoAutoInc) &&
			!hasAutoInc && g.Rand.Int(100) > 25 {
			col.AutoIncrement = true
			hasAutoInc = true
		}
		if notSecondaryLeft > 0 {
			col.NotSecondary = true
			notSecondaryLeft--
		}
		if g.Rand.Between(1, 100) < 30 && col.Type != core.TypeGenerated &&
			t.Type != core.TableFK {
			col.Nullable = false
		}
		t.AddColumn(col)
	}
}

// hasGeneratedBase reports whether the table already has a column a
// generated expression could reference.
func hasGeneratedBase(t *core.Table) bool {
	for _, c := range t.Columns {
		if !c.AutoIncrement && c.Type != core.TypeGenerated {
			return true
		}
	}
	return false
}

// RandomColumnSpec builds a random column for ALTER TABLE ADD COLUMN.
// Callers hold the table's DDL lock when allowGenerated is set.
func (g *Generator) RandomColumnSpec(t *core.Table, name string, allowGenerated bool) *core.Column {
	return g.randomColumn(t, name, allowGenerated)
}

// randomColumn draws a column type from the weighted pool, skipping types
// the options disabled, and builds the column with its name prefix.
func (g *Generator) randomColumn(t *core.Table, name string, allowGenerated bool) *core.Column {
	if allowGenerated {
		return g.newGeneratedColumn(name, t)
	}
	opts := g.Opts
	for {
		prob := g.Rand.Int(23)
		switch {
		case !opts.Bool(options.NoInt) && prob < 5:
			return g.newColumn(name, core.TypeInt)
		case !opts.Bool(options.NoInteger) && prob < 6:
			return g.newColumn(name, core.TypeInteger)
		case !opts.Bool(options.NoFloat) && prob < 8:
			return g.newColumn(name, core.TypeFloat)
		case !opts.Bool(options.NoDouble) && prob < 10:
			return g.newColumn(name, core.TypeDouble)
		case !opts.Bool(options.NoVarchar) && prob < 14:
			return g.newColumn(name, core.TypeVarchar)
		case !opts.Bool(options.NoChar) && prob < 16:
			return g.newColumn(name, core.TypeChar)
		case !opts.Bool(options.NoText) && prob == 17:
			return g.newTextColumn(name)
		case !opts.Bool(options.NoBlob) && prob == 18:
			return g.newBlobColumn(name)
		case !opts.Bool(options.NoBool) && prob == 19:
			return g.newColumn(name, core.TypeBool)
		case !opts.Bool(options.NoDate) && prob == 20:
			return g.newColumn(name, core.TypeDate)
		case !opts.Bool(options.NoDatetime) && prob == 21:
			return g.newColumn(name, core.TypeDatetime)
		case !opts.Bool(options.NoTimestamp) && prob == 22:
			return g.newColumn(name, core.TypeTimestamp)
		case !opts.Bool(options.NoBit) && prob == 23:
			return g.newColumn(name, core.TypeBit)
		}
	}
}

func (g *Generator) newColumn(name string, typ core.ColumnType) *core.Column {
	c := &core.Column{Type: typ, Nullable: true}
	switch typ {
	case core.TypeChar:
		c.Name = "c" + name
		c.Length = g.Rand.Between(5, MaxColumnLength)
	case core.TypeVarchar:
		c.Name = "v" + name
		c.Length = g.Rand.Between(5, MaxColumnLength)
	case core.TypeInt, core.TypeInteger:
		c.Name = "i" + name
		if g.Rand.Int(10) == 1 {
			c.Length = g.Rand.Between(20, 100)
		}
	case core.TypeFloat:
		c.Name = "f" + name
	case core.TypeDouble:
		c.Name = "d" + name
	case core.TypeBool:
		c.Name = "t" + name
	case core.TypeDate:
		c.Name = "dt" + name
	case core.TypeDatetime:
		c.Name = "dtm" + name
	case core.TypeTimestamp:
		c.Name = "ts" + name
	case core.TypeBit:
		c.Name = "bt" + name
		c.Length = g.Rand.Between(5, 64)
	default:
		panic(fmt.Sprintf("sqlgen: unhandled column type %s", typ))
	}
	return c
}

func (g *Generator) newBlobColumn(name string) *core.Column {
	c := &core.Column{Type: core.TypeBlob, Nullable: true}
	if !g.Opts.Bool(options.NoColumnCompression) && g.Rand.Int(1) == 1 {
		c.Compressed = true
	}
	switch g.Rand.Between(1, 4) {
	case 1:
		c.SubType = "TINYBLOB"
		c.Name = "tb" + name
		c.Length = g.Rand.Between(100, 255)
	case 2:
		c.SubType = "BLOB"
		c.Name = "b" + name
		c.Length = g.Rand.Between(100, 1000)
	case 3:
		c.SubType = "MEDIUMBLOB"
		c.Name = "mb" + name
		c.Length = g.Rand.Between(1000, 3000)
	case 4:
		c.SubType = "LONGBLOB"
		c.Name = "lb" + name
		c.Length = g.Rand.Between(100, 4000)
	}
	return c
}

func (g *Generator) newTextColumn(name string) *core.Column {
	c := &core.Column{Type: core.TypeText, Nullable: true}
	if !g.Opts.Bool(options.NoColumnCompression) && g.Rand.Int(1) == 1 {
		c.Compressed = true
	}
	switch g.Rand.Between(1, 4) {
	case 1:
		c.SubType = "TINYTEXT"
		c.Name = "t" + name
		c.Length = g.Rand.Between(100, 255)
	case 2:
		c.SubType = "TEXT"
		c.Name = "t" + name
		c.Length = g.Rand.Between(500, 1000)
	case 3:
		c.SubType = "MEDIUMTEXT"
		c.Name = "mt" + name
		c.Length = g.Rand.Between(1000, 3000)
	case 4:
		c.SubType = "LONGTEXT"
		c.Name = "lt" + name
		c.Length = g.Rand.Between(2000, 4000)
	}
	return c
}

// pickFKActions chooses referential actions for an FK child. A STORED
// generated column over fk_col pins both actions to SET DEFAULT.
func (g *Generator) pickFKActions(child, inspect *core.Table) {
	child.FK.OnUpdate = g.randomRefAction(inspect)
	child.FK.OnDelete = g.randomRefAction(inspect)
}

func (g *Generator) randomRefAction(t *core.Table) core.RefAction {
	for _, c := range t.Columns {
		if c.Type == core.TypeGenerated &&
			strings.Contains(c.GenClause, "fk_col") &&
			strings.Contains(c.GenClause, "STORED") {
			return core.ActionSetDefault
		}
	}
	upper := len(core.RefActions) - 1
	if g.Opts.Bool(options.NoFKCascade) {
		upper-- // everything up to SET DEFAULT
	}
	return core.RefActions[g.Rand.Int(upper)]
}

// defaultIndexes builds the table's initial indexes. One index is chosen to
// lead with the auto-increment column; compressed columns never join an
// index; blob and text keys get a random prefix length.
func (g *Generator) defaultIndexes(t *core.Table) {
	maxIndexes := g.Opts.Int(options.Indexes)
	if maxIndexes == 0 {
		return
	}

	indexes := maxIndexes
	if len(t.Columns) < indexes {
		indexes = len(t.Columns)
	}
	if !g.Opts.Bool(options.ExactIndexes) {
		indexes = g.Rand.Between(1, indexes)
	}

	autoIncPos := -1
	for i, c := range t.Columns {
		if c.AutoIncrement {
			autoIncPos = i
		}
	}
	t.AutoIncIndex = g.Rand.Int(indexes - 1)

	maxIndexColumns := g.Opts.Int(options.IndexColumns)

	for i := 0; i < indexes; i++ {
		idx := &core.Index{Name: t.Name + "i" + strconv.Itoa(i)}

		indexable := 0
		for _, c := range t.Columns {
			if !c.Compressed {
				indexable++
			}
		}
		if indexable == 0 {
			return
		}
		columns := maxIndexColumns
		if indexable < columns {
			columns = indexable
		}
		columns = g.Rand.Between(1, columns)

		var positions []int
		for len(positions) < columns {
			if autoIncPos != -1 && i == t.AutoIncIndex && len(positions) == 0 {
				positions = append(positions, autoIncPos)
				continue
			}
			current := g.Rand.Int(len(t.Columns) - 1)
			if t.Columns[current].Compressed || containsInt(positions, current) {
				continue
			}
			positions = append(positions, current)
		}

		hasInt := false
		for _, pos := range positions {
			if t.Columns[pos].Type == core.TypeInt {
				hasInt = true
			}
		}
		if hasInt && g.Rand.Int(1000) < g.Opts.Int(options.UniqueIndexProbK) {
			idx.Unique = true
		}

		for _, pos := range positions {
			idx.AddColumn(g.newIndexColumn(t.Columns[pos]))
		}
		t.AddIndex(idx)
	}
}

func (g *Generator) newIndexColumn(col *core.Column) *core.IndexColumn {
	ic := &core.IndexColumn{Column: col}
	if !g.Opts.Bool(options.NoDescIndex) {
		ic.Desc = g.Rand.Int(100) < DescIndexPercent
	}
	if col.IsBlobOrText() {
		ic.Length = g.Rand.Between(1, MaxColumnLength)
	}
	return ic
}

func containsInt(v []int, x int) bool {
	for _, e := range v {
		if e == x {
			return true
		}
	}
	return false
}
