package sqlgen

import (
	"strings"
	"testing"

	"github.com/pingcap/tidb/pkg/parser"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rstress/internal/core"
	"rstress/internal/options"
	"rstress/internal/random"
)

func testServer() options.ServerInfo {
	return options.ServerInfo{Version: 80033, InnodbPageSizeKB: 16, Fork: "Percona-Server"}
}

// plainRegistry keeps emitted SQL inside the dialect the TiDB parser accepts.
func plainRegistry(t *testing.T) *options.Registry {
	t.Helper()
	r := options.New()
	r.SetBool(options.NoEncryption, true)
	r.SetBool(options.NoColumnCompression, true)
	r.SetBool(options.NoTablespace, true)
	require.NoError(t, r.Normalize(testServer()))
	return r
}

func newGen(t *testing.T, r *options.Registry, seed int64) *Generator {
	t.Helper()
	pool := random.NewPool(seed)
	rng := random.New(seed, pool, r.Int(options.PositiveIntProb))
	return New(r, rng, BuildEnv(r, testServer()))
}

func mustParse(t *testing.T, sql string) {
	t.Helper()
	p := parser.New()
	_, _, err := p.Parse(sql, "", "")
	require.NoErrorf(t, err, "emitted SQL does not parse: %s", sql)
}

func TestBuildEnvTablespaces(t *testing.T) {
	r := options.New()
	require.NoError(t, r.Normalize(testServer()))
	e := BuildEnv(r, testServer())

	assert.Contains(t, e.Tablespaces, "innodb_system")
	joined := strings.Join(e.Tablespaces, " ")
	assert.Contains(t, joined, "tab02k")
	assert.Contains(t, joined, "tab16k")
	assert.NotContains(t, joined, "tab32k", "page size caps the universe")
	assert.Contains(t, joined, "_e", "alternate tablespaces are encrypted")
	assert.Equal(t, []string{"undo_001", "undo_002"}, e.UndoTablespaces)
	assert.ElementsMatch(t, []string{"INPLACE", "COPY", "INSTANT", "DEFAULT"}, e.Algorithms)
}

func TestBuildEnvRestricted(t *testing.T) {
	r := options.New()
	r.SetBool(options.NoTablespace, true)
	r.SetBool(options.NoTableCompression, true)
	r.SetStr(options.Algorithm, "inplace,copy")
	r.SetStr(options.Lock, "none")
	require.NoError(t, r.Normalize(testServer()))
	e := BuildEnv(r, testServer())

	assert.Empty(t, e.Tablespaces)
	assert.Empty(t, e.Compression)
	assert.ElementsMatch(t, []string{"DYNAMIC", "REDUNDANT"}, e.RowFormats)
	assert.ElementsMatch(t, []string{"INPLACE", "COPY"}, e.Algorithms)
	assert.Equal(t, []string{"NONE"}, e.Locks)
}

func TestNewRandomTableInvariants(t *testing.T) {
	r := plainRegistry(t)
	g := newGen(t, r, 7)

	for i := 1; i <= 30; i++ {
		tbl := g.NewRandomTable(core.TableNormal, i, false)
		assert.True(t, strings.HasPrefix(tbl.Name, "tt_"))

		autoInc, pk := 0, 0
		for _, c := range tbl.Columns {
			if c.AutoIncrement {
				autoInc++
			}
			if c.PrimaryKey {
				pk++
			}
		}
		assert.LessOrEqual(t, autoInc, 1, "at most one auto-increment column")
		assert.LessOrEqual(t, pk, 1, "at most one primary key column")

		for _, idx := range tbl.Indexes {
			require.NotEmpty(t, idx.Columns)
			for _, ic := range idx.Columns {
				assert.Same(t, tbl.FindColumn(ic.Column.Name), ic.Column)
				if ic.Column.IsBlobOrText() {
					assert.GreaterOrEqual(t, ic.Length, 1)
					assert.LessOrEqual(t, ic.Length, MaxColumnLength)
				}
				assert.False(t, ic.Column.Compressed, "compressed columns never join an index")
			}
		}
		if ai := tbl.AutoIncColumn(); ai != nil && len(tbl.Indexes) > 0 {
			lead := tbl.Indexes[tbl.AutoIncIndex]
			assert.Equal(t, ai.Name, lead.Columns[0].Column.Name,
				"the chosen index leads with the auto-increment column")
		}
	}
}

func TestNewRandomTableSuffix(t *testing.T) {
	g := newGen(t, plainRegistry(t), 11)
	tbl := g.NewRandomTable(core.TableFK, 3, true)
	assert.True(t, strings.HasPrefix(tbl.Name, "tt_3_"))
	assert.True(t, strings.HasSuffix(tbl.Name, "_fk"))
	assert.Equal(t, "tt_3", tbl.ParentName())
	require.NotNil(t, tbl.FindColumn("fk_col"))
	assert.NotEmpty(t, tbl.FK.OnUpdate)
	assert.NotEmpty(t, tbl.FK.OnDelete)
}

func TestNoFKCascade(t *testing.T) {
	r := plainRegistry(t)
	r.SetBool(options.NoFKCascade, true)
	g := newGen(t, r, 13)
	for i := 0; i < 50; i++ {
		tbl := g.NewRandomTable(core.TableFK, 1, false)
		assert.NotEqual(t, core.ActionCascade, tbl.FK.OnUpdate)
		assert.NotEqual(t, core.ActionCascade, tbl.FK.OnDelete)
	}
}

func TestPartitionTableInvariants(t *testing.T) {
	r := plainRegistry(t)
	g := newGen(t, r, 17)

	seenRange, seenList := false, false
	for i := 0; i < 60 && !(seenRange && seenList); i++ {
		tbl := g.NewRandomTable(core.TablePartition, i+1, false)
		p := tbl.Part
		require.NotNil(t, p)
		require.NotNil(t, tbl.FindColumn("ip_col"))

		switch p.Type {
		case core.PartRange:
			seenRange = true
			assert.Len(t, p.Ranges, p.Count)
			for j := 1; j < len(p.Ranges); j++ {
				assert.Greater(t, p.Ranges[j].Bound, p.Ranges[j-1].Bound,
					"range bounds strictly increasing")
			}
		case core.PartList:
			seenList = true
			total := len(p.Remaining)
			domain := map[int]bool{}
			for _, v := range p.Remaining {
				domain[v] = true
			}
			for _, l := range p.Lists {
				total += len(l.Values)
				for _, v := range l.Values {
					require.False(t, domain[v], "value %d appears twice", v)
					domain[v] = true
				}
			}
			assert.Len(t, domain, total, "lists plus pool partition the domain")
		}
	}
	assert.True(t, seenRange)
	assert.True(t, seenList)
}

func TestCreateTableSQLParses(t *testing.T) {
	r := plainRegistry(t)
	g := newGen(t, r, 19)
	for i := 1; i <= 20; i++ {
		tbl := g.NewRandomTable(core.TableNormal, i, false)
		mustParse(t, g.CreateTableSQL(tbl, true, true))
	}
	for i := 1; i <= 10; i++ {
		tbl := g.NewRandomTable(core.TablePartition, i, false)
		mustParse(t, g.CreateTableSQL(tbl, true, true))
	}
}

func TestCreateTableOptionOrder(t *testing.T) {
	r := options.New()
	require.NoError(t, r.Normalize(testServer()))
	g := newGen(t, r, 23)

	tbl := core.NewTable("tt_9", core.TableNormal)
	tbl.Encryption = "Y"
	tbl.Compression = "lz4"
	tbl.Tablespace = "tab04k"
	tbl.KeyBlockSize = 4
	tbl.RowFormat = "COMPRESSED"
	tbl.Engine = "INNODB"
	tbl.AddColumn(&core.Column{Name: "i1", Type: core.TypeInt, Nullable: true})

	sql := g.CreateTableSQL(tbl, true, true)
	order := []string{"ENCRYPTION", "COMPRESSION", "TABLESPACE", "KEY_BLOCK_SIZE", "ROW_FORMAT", "ENGINE"}
	last := -1
	for _, tok := range order {
		at := strings.Index(sql, tok)
		require.NotEqualf(t, -1, at, "missing %s in %s", tok, sql)
		assert.Greaterf(t, at, last, "%s out of order in %s", tok, sql)
		last = at
	}
}

func TestCreateTableRangeEndsWithMaxvalue(t *testing.T) {
	g := newGen(t, plainRegistry(t), 29)
	tbl := core.NewTable("tt_2_p", core.TablePartition)
	tbl.Part.Type = core.PartRange
	tbl.Part.Count = 3
	tbl.Part.Ranges = []core.RangePart{{Name: "p0", Bound: 10}, {Name: "p1", Bound: 20}, {Name: "p2", Bound: 30}}
	tbl.AddColumn(&core.Column{Name: "ip_col", Type: core.TypeInt})

	sql := g.CreateTableSQL(tbl, true, false)
	assert.Contains(t, sql, "PARTITION p0 VALUES LESS THAN (10)")
	assert.Contains(t, sql, "PARTITION p1 VALUES LESS THAN (20)")
	assert.Contains(t, sql, "PARTITION p2 VALUES LESS THAN (MAXVALUE)")
	assert.NotContains(t, sql, "(30)")
	mustParse(t, sql)
}

func TestCreateTableWithoutIndexKeepsAutoInc(t *testing.T) {
	g := newGen(t, plainRegistry(t), 31)
	tbl := core.NewTable("tt_5", core.TableNormal)
	a := &core.Column{Name: "ia", Type: core.TypeInt, AutoIncrement: true, Nullable: true}
	b := &core.Column{Name: "vb", Type: core.TypeVarchar, Length: 10, Nullable: true}
	tbl.AddColumn(a)
	tbl.AddColumn(b)
	tbl.AddIndex(&core.Index{Name: "tt_5i0", Columns: []*core.IndexColumn{{Column: b}}})
	tbl.AddIndex(&core.Index{Name: "tt_5i1", Columns: []*core.IndexColumn{{Column: a}}})
	tbl.AutoIncIndex = 1

	sql := g.CreateTableSQL(tbl, false, false)
	assert.Contains(t, sql, "tt_5i1")
	assert.NotContains(t, sql, "tt_5i0")
}

func TestGeneratedColumnReferencesBaseColumns(t *testing.T) {
	r := plainRegistry(t)
	g := newGen(t, r, 37)
	tbl := core.NewTable("tt_7", core.TableNormal)
	tbl.AddColumn(&core.Column{Name: "i0", Type: core.TypeInt, Nullable: true})
	tbl.AddColumn(&core.Column{Name: "v1", Type: core.TypeVarchar, Length: 12, Nullable: true})
	tbl.AddColumn(&core.Column{Name: "ia", Type: core.TypeInt, AutoIncrement: true, Nullable: true})

	for i := 0; i < 30; i++ {
		gc := g.newGeneratedColumn("9", tbl)
		require.NotEmpty(t, gc.GenClause)
		assert.NotContains(t, gc.GenClause, "ia", "auto-inc columns never feed expressions")
		assert.True(t, strings.Contains(gc.GenClause, "i0") || strings.Contains(gc.GenClause, "v1"))
		assert.Contains(t, gc.GenClause, "GENERATED ALWAYS AS")
	}
}

func TestAlgorithmLockMatrix(t *testing.T) {
	r := options.New()
	require.NoError(t, r.Normalize(testServer()))
	g := newGen(t, r, 41)

	for i := 0; i < 300; i++ {
		_, algo, lock := g.AlgorithmLockWith()
		if algo == "INSTANT" {
			assert.Equal(t, "DEFAULT", lock)
		}
		if algo == "COPY" {
			assert.NotEqual(t, "NONE", lock)
		}
	}
	clause := g.AlgorithmLock()
	assert.True(t, strings.HasPrefix(clause, " LOCK="))
	assert.Contains(t, clause, ", ALGORITHM=")
}

func TestRandValueShapes(t *testing.T) {
	r := plainRegistry(t)
	r.SetInt(options.NullProb, -1) // never NULL
	g := newGen(t, r, 43)

	assert.Regexp(t, `^-?\d+$`, g.RandValue(&core.Column{Type: core.TypeInt, Nullable: true}))
	assert.Regexp(t, `^'.*'$`, g.RandValue(&core.Column{Type: core.TypeVarchar, Length: 8, Nullable: true}))
	assert.Regexp(t, `^_binary'.*'$`, g.RandValue(&core.Column{Type: core.TypeBlob, Length: 8, Nullable: true}))
	assert.Regexp(t, `^b'[01]+'$`, g.RandValue(&core.Column{Type: core.TypeBit, Length: 6, Nullable: true}))
	assert.Regexp(t, `^'\d{4}-\d{2}-\d{2}'$`, g.RandValue(&core.Column{Type: core.TypeDate, Nullable: true}))
	v := g.RandValue(&core.Column{Type: core.TypeBool, Nullable: true})
	assert.Contains(t, []string{"true", "false"}, v)

	gen := &core.Column{Type: core.TypeGenerated, GenType: core.TypeInt, Nullable: true}
	assert.Regexp(t, `^-?\d+$`, g.RandValue(gen), "generated columns dispatch on the inner type")
}

func TestRandValueNull(t *testing.T) {
	r := plainRegistry(t)
	r.SetInt(options.NullProb, 1000) // always NULL
	g := newGen(t, r, 47)

	assert.Equal(t, "NULL", g.RandValue(&core.Column{Type: core.TypeInt, Nullable: true}))
	assert.NotEqual(t, "NULL", g.RandValue(&core.Column{Type: core.TypeInt, Nullable: true, PrimaryKey: true}),
		"plain primary keys never generate NULL")
	assert.Equal(t, "NULL",
		g.RandValue(&core.Column{Type: core.TypeInt, Nullable: true, PrimaryKey: true, AutoIncrement: true}))
	assert.NotEqual(t, "NULL", g.RandValue(&core.Column{Type: core.TypeInt, Nullable: false}))
}

func TestWhereBuildersParse(t *testing.T) {
	r := plainRegistry(t)
	g := newGen(t, r, 53)

	for i := 1; i <= 15; i++ {
		tbl := g.NewRandomTable(core.TableNormal, i, false)
		for j := 0; j < 10; j++ {
			mustParse(t, "SELECT "+g.SelectColumnList(tbl)+" FROM "+tbl.Name+g.WherePrecise(tbl))
			mustParse(t, "SELECT "+g.SelectColumnList(tbl)+" FROM "+tbl.Name+g.WhereBulk(tbl))
			mustParse(t, "UPDATE "+tbl.Name+" SET "+g.SetClause(tbl)+g.WherePrecise(tbl))
			mustParse(t, "INSERT INTO "+tbl.Name+g.ColumnValues(tbl))
			mustParse(t, "DELETE FROM "+tbl.Name+g.WhereBulk(tbl))
		}
	}
}

func TestSetClauseSkipsGenerated(t *testing.T) {
	g := newGen(t, plainRegistry(t), 59)
	tbl := core.NewTable("tt_8", core.TableNormal)
	tbl.AddColumn(&core.Column{Name: "i0", Type: core.TypeInt, Nullable: true})
	tbl.AddColumn(&core.Column{
		Name: "g1", Type: core.TypeGenerated, GenType: core.TypeInt,
		GenClause: " INT GENERATED ALWAYS AS (i0+1)", Nullable: true,
	})
	for i := 0; i < 50; i++ {
		set := g.SetClause(tbl)
		assert.NotContains(t, set, "g1 =")
	}
}

func TestIgnoreClause(t *testing.T) {
	r := plainRegistry(t)
	r.SetInt(options.IgnoreDMLClause, 101)
	g := newGen(t, r, 61)
	assert.Equal(t, " IGNORE ", g.IgnoreClause())

	r.SetInt(options.IgnoreDMLClause, 0)
	assert.Equal(t, "", g.IgnoreClause())
}

func TestCompressedFlagDroppedAtEmit(t *testing.T) {
	r := options.New()
	r.SetBool(options.NoColumnCompression, true)
	require.NoError(t, r.Normalize(testServer()))
	g := newGen(t, r, 67)

	col := &core.Column{Name: "b0", Type: core.TypeBlob, SubType: "BLOB", Compressed: true, Nullable: true}
	assert.NotContains(t, g.ColumnDef(col), "COMPRESSED")

	r2 := options.New()
	require.NoError(t, r2.Normalize(testServer()))
	g2 := newGen(t, r2, 67)
	assert.Contains(t, g2.ColumnDef(col), "COLUMN_FORMAT COMPRESSED")
}
