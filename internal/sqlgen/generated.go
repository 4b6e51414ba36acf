package sqlgen

import (
	"strconv"
	"strings"

	"rstress/internal/core"
	"rstress/internal/options"
)

// newGeneratedColumn synthesizes a generated column over existing base
// columns. Inner types are drawn 4:2:2:1:1 across INT, VARCHAR, CHAR, BLOB
// and TEXT; INT expressions sum per-column terms, string expressions
// concatenate substrings within a length budget. Callers hold the table's
// DDL lock.
func (g *Generator) newGeneratedColumn(name string, t *core.Table) *core.Column {
	c := &core.Column{Type: core.TypeGenerated, Nullable: true, Name: "g" + name}

	for c.GenType == "" {
		x := g.Rand.Between(1, 10)
		switch {
		case x <= 4 && !g.Opts.Bool(options.NoInt):
			c.GenType = core.TypeInt
		case x <= 6 && !g.Opts.Bool(options.NoVarchar):
			c.GenType = core.TypeVarchar
		case x <= 8 && !g.Opts.Bool(options.NoChar):
			c.GenType = core.TypeChar
		case x == 9 && !g.Opts.Bool(options.NoBlob):
			c.GenType = core.TypeBlob
		case x == 10 && !g.Opts.Bool(options.NoText):
			c.GenType = core.TypeText
		}
	}

	if !g.Opts.Bool(options.NoColumnCompression) && g.Rand.Int(1) == 1 &&
		(c.GenType == core.TypeBlob || c.GenType == core.TypeText) {
		c.Compressed = true
	}

	base := g.pickBaseColumns(t)

	if c.GenType == core.TypeInt || c.GenType == core.TypeInteger {
		c.GenClause = g.intGeneratedClause(c.GenType, base)
	} else {
		c.GenClause = g.stringGeneratedClause(c, base)
	}

	if g.Rand.Int(2) == 1 || c.Compressed || g.Opts.Str(options.SecondaryEngine) != "" {
		c.GenClause += " STORED"
	}
	return c
}

// pickBaseColumns chooses the non-auto-increment, non-generated columns the
// expression will reference.
func (g *Generator) pickBaseColumns(t *core.Table) []*core.Column {
	count := g.Rand.Int(int(0.6*float64(len(t.Columns)))) + 1
	if count > 4 {
		count = 2
	}
	var base []*core.Column
	for len(base) < count {
		col := t.Columns[g.Rand.Int(len(t.Columns)-1)]
		if col.AutoIncrement || col.Type == core.TypeGenerated {
			continue
		}
		base = append(base, col)
	}
	return base
}

func (g *Generator) intGeneratedClause(typ core.ColumnType, base []*core.Column) string {
	var terms []string
	for _, col := range base {
		switch col.Type {
		case core.TypeVarchar, core.TypeChar, core.TypeBlob, core.TypeText, core.TypeBit:
			terms = append(terms, " LENGTH("+col.Name+")")
		case core.TypeInt, core.TypeInteger, core.TypeBool, core.TypeFloat, core.TypeDouble:
			if g.Rand.Int(2) == 1 {
				terms = append(terms, " ("+col.Name+"-100)")
			} else {
				terms = append(terms, " "+col.Name)
			}
		case core.TypeDate, core.TypeDatetime, core.TypeTimestamp:
			terms = append(terms, " DATEDIFF('"+g.Rand.Date()+"',"+col.Name+")")
		}
	}
	return " " + string(typ) + " GENERATED ALWAYS AS (" + strings.Join(terms, "+") + ")"
}

func (g *Generator) stringGeneratedClause(c *core.Column, base []*core.Column) string {
	var targetLength int
	if c.GenType == core.TypeBlob || c.GenType == core.TypeText {
		targetLength = g.Rand.Between(5, 5000)
	} else {
		targetLength = g.Rand.Between(10, MaxColumnLength)
	}

	maxSize := targetLength / len(base) * 2
	if maxSize < 2 {
		maxSize = 2
	}

	actualSize := 0
	var parts []string
	for _, col := range base {
		columnSize := 0
		switch col.Type {
		case core.TypeInt, core.TypeInteger, core.TypeFloat, core.TypeDouble:
			columnSize = 10
		case core.TypeDate, core.TypeDatetime, core.TypeTimestamp:
			columnSize = 19
		case core.TypeBool:
			columnSize = 2
		default:
			columnSize = col.Length
		}

		currentSize := g.Rand.Between(2, maxSize)
		if columnSize > currentSize {
			actualSize += currentSize
			if col.Type == core.TypeBit {
				parts = append(parts, "lpad(bin("+col.Name+" >> ("+
					strconv.Itoa(columnSize)+" - "+strconv.Itoa(currentSize)+")),"+
					strconv.Itoa(currentSize)+",'0')")
			} else {
				parts = append(parts, "SUBSTRING("+col.Name+",1,"+strconv.Itoa(currentSize)+")")
			}
		} else {
			actualSize += columnSize
			if col.Type == core.TypeBit {
				parts = append(parts, "lpad(bin("+col.Name+"),"+strconv.Itoa(columnSize)+",'0')")
			} else {
				parts = append(parts, col.Name)
			}
		}
	}
	if actualSize < 2 {
		actualSize = 2
	}
	c.Length = actualSize

	clause := " " + string(c.GenType)
	if c.GenType == core.TypeVarchar || c.GenType == core.TypeChar {
		clause += "(" + strconv.Itoa(actualSize) + ")"
	}
	return clause + " GENERATED ALWAYS AS (CONCAT(" + strings.Join(parts, ",") + "))"
}
