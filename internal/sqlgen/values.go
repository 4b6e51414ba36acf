package sqlgen

import (
	"strconv"
	"strings"

	"rstress/internal/core"
	"rstress/internal/options"
)

// RandValue returns a literal for the column. The NULL probability is
// consulted first; a non-auto-increment primary key never goes NULL.
func (g *Generator) RandValue(c *core.Column) string {
	if g.Rand.Int(1000) <= g.Opts.Int(options.NullProb) && c.Nullable {
		if !(c.PrimaryKey && !c.AutoIncrement) {
			return "NULL"
		}
	}

	records := g.Opts.Int(options.InitialRecords)
	switch c.ValueType() {
	case core.TypeInteger:
		return strconv.Itoa(g.Rand.TryNegative(g.Rand.Int(records)))
	case core.TypeInt:
		return strconv.Itoa(g.Rand.TryNegative(
			g.Rand.Int(g.Opts.Int(options.UniqueRange) * records)))
	case core.TypeFloat:
		return g.Rand.Float(float64(records))
	case core.TypeDouble:
		return g.Rand.Double(1.0 / float64(g.Opts.Int(options.UniqueRange)) * float64(records))
	case core.TypeChar, core.TypeVarchar, core.TypeText:
		return "'" + g.Rand.String(c.Length) + "'"
	case core.TypeBlob:
		return "_binary'" + g.Rand.String(c.Length) + "'"
	case core.TypeBit:
		return g.Rand.Bit(c.Length)
	case core.TypeBool:
		if g.Rand.Bool() {
			return "true"
		}
		return "false"
	case core.TypeDate:
		return "'" + g.Rand.Date() + "'"
	case core.TypeDatetime:
		return "'" + g.Rand.Datetime() + "'"
	case core.TypeTimestamp:
		return "'" + g.Rand.Timestamp() + "'"
	}
	return "NULL"
}

func onlyBool(columns []*core.Column) bool {
	for _, c := range columns {
		if c.Type != core.TypeBool {
			return false
		}
	}
	return true
}

// RandomColumn picks a column for a predicate: the primary key with the
// configured probability, then the first key part of a random index, then a
// uniform draw that strongly avoids BOOL, FLOAT and DOUBLE.
func (g *Generator) RandomColumn(t *core.Table) *core.Column {
	usingPK := g.Opts.Int(options.UsingPKProb)
	if g.Rand.Int(100) < usingPK {
		if pk := t.PKColumn(); pk != nil {
			return pk
		}
	}

	if len(t.Indexes) > 0 {
		idx := t.Indexes[g.Rand.Int(len(t.Indexes)-1)]
		if g.Rand.Int(100) > usingPK && len(idx.Columns) > 0 {
			first := idx.Columns[0].Column
			if first.Type != core.TypeBool && first.Type != core.TypeFloat {
				return first
			}
		}
	}

	tries := 0
	for {
		col := t.Columns[g.Rand.Int(len(t.Columns)-1)]
		switch col.Type {
		case core.TypeBool:
			if g.Rand.Int(10000) == 1 || onlyBool(t.Columns) {
				return col
			}
		case core.TypeInteger:
			if g.Rand.Int(1000) < 10 {
				return col
			}
		case core.TypeFloat, core.TypeDouble:
			if tries == 50 {
				return col
			}
			tries++
		default:
			return col
		}
	}
}

// PartitionClause sometimes pins a statement to one or more named
// partitions.
func (g *Generator) PartitionClause(t *core.Table) string {
	if t.Type != core.TablePartition || g.Rand.Int(10) >= 2 {
		return ""
	}
	p := t.Part
	var names []string
	switch p.Type {
	case core.PartRange:
		if len(p.Ranges) == 0 {
			return ""
		}
		names = append(names, p.Ranges[g.Rand.Int(len(p.Ranges)-1)].Name)
		for i := 0; i < g.Rand.Int(len(p.Ranges)); i++ {
			if g.Rand.Int(5) == 1 {
				names = append(names, p.Ranges[g.Rand.Int(len(p.Ranges)-1)].Name)
			}
		}
	case core.PartKey, core.PartHash:
		if p.Count < 1 {
			return ""
		}
		names = append(names, "p"+strconv.Itoa(g.Rand.Int(p.Count-1)))
		for i := 0; i < g.Rand.Int(p.Count); i++ {
			if g.Rand.Int(2) == 1 {
				names = append(names, "p"+strconv.Itoa(g.Rand.Int(p.Count-1)))
			}
		}
	case core.PartList:
		if len(p.Lists) == 0 {
			return ""
		}
		names = append(names, p.Lists[g.Rand.Int(len(p.Lists)-1)].Name)
		for i := 0; i < g.Rand.Int(len(p.Lists)); i++ {
			if g.Rand.Int(5) == 1 {
				names = append(names, p.Lists[g.Rand.Int(len(p.Lists)-1)].Name)
			}
		}
	}
	return " PARTITION (" + strings.Join(names, ",") + ")"
}

// WherePrecise builds the point predicate: equality most of the time, with
// IN, instr and IS [NOT] NULL sprinkled in.
func (g *Generator) WherePrecise(t *core.Table) string {
	col := g.RandomColumn(t)
	partition := g.PartitionClause(t)
	where := partition + " WHERE " + col.Name

	value := g.RandValue(col)
	if value == "NULL" {
		if g.Rand.Int(1000) == 1 {
			return where + " IS NOT NULL"
		}
		return where + " IS NULL"
	}
	if g.Rand.Int(100) > 3 {
		return where + " = " + value
	}
	if col.Type == core.TypeBlob && g.Rand.Int(100) == 1 {
		return partition + " WHERE instr( " + col.Name + ",_binary'" +
			g.Rand.StringBetween(3, 10) + "%')"
	}

	second := g.RandValue(col)
	if second == "NULL" {
		if g.Rand.Int(100) > 3 {
			return where + " = " + value + " AND " + col.Name + " IS NOT NULL"
		}
		return where + " = " + value + " OR " + col.Name + " IS NULL"
	}
	if g.Rand.Int(100) > 50 {
		return where + " IN (" + value + ", " + second + ")"
	}
	return where + " = " + value
}

// WhereBulk builds the wide predicate: BETWEEN and range comparisons for
// comparable columns, LIKE for strings, equality as a fallback. An empty
// string (no WHERE at all) comes up about one time in a hundred.
func (g *Generator) WhereBulk(t *core.Table) string {
	col := g.RandomColumn(t)
	partition := g.PartitionClause(t)
	where := partition + " WHERE " + col.Name

	value := g.RandValue(col)
	if value == "NULL" {
		if g.Rand.Int(1000) == 1 {
			return where + " IS NOT NULL"
		}
		return where + " IS NULL"
	}

	if col.IsNumber() && g.Rand.Int(100) < 40 {
		n, _ := strconv.Atoi(value)
		lower := strconv.Itoa(n - g.Rand.Between(3, 100))
		return where + " BETWEEN " + lower + " AND " + value
	}

	if col.Comparable() {
		if g.Rand.Int(100) == 1 {
			return where + " >= " + value
		}
		if g.Rand.Int(100) == 1 {
			return where + " <= " + value
		}
		second := g.RandValue(col)
		if second == "NULL" {
			return where + " >= " + value + " AND " + col.Name + " IS NOT NULL"
		}
		if g.Rand.Int(100) < 20 {
			return where + " >= " + value + " AND " + col.Name + " <= " + second
		}
		if g.Rand.Int(100) < 10 {
			return where + " <= " + value + " AND " + col.Name + " >= " + second
		}
	}

	if col.IsString() && g.Rand.Int(100) < 20 {
		return where + " LIKE '" + g.Rand.StringBetween(3, 10) + "%'"
	}
	if col.IsString() && g.Rand.Int(100) < 90 {
		second := g.RandValue(col)
		if second == "NULL" {
			return where + " = " + value + " OR " + col.Name + " IS NULL"
		}
		if g.Rand.Int(100) < 80 {
			return where + " BETWEEN " + value + " AND " + second
		}
		return where + " NOT BETWEEN " + g.RandValue(col) + " and " + g.RandValue(col)
	}

	if g.Rand.Int(100) == 1 {
		return ""
	}
	return where + " = " + g.RandValue(col)
}

// SelectColumnList returns one column, and with 20% probability a random
// subset of the others; not-secondary columns never join the subset.
func (g *Generator) SelectColumnList(t *core.Table) string {
	list := t.Columns[g.Rand.Int(len(t.Columns)-1)].Name
	if g.Rand.Int(100) < 20 {
		for _, c := range t.Columns {
			if c.NotSecondary {
				continue
			}
			if g.Rand.Int(100) < 50 {
				list += ", " + c.Name
			}
		}
	}
	return list
}

// OrderByAll appends a deterministic ORDER BY over every column so two
// engines return rows in a comparable order.
func (g *Generator) OrderByAll(t *core.Table) string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return " order by " + strings.Join(names, ", ")
}

// SetClause assigns one non-generated column, then with a 10% top-level
// coin appends further columns with 50% chance each.
func (g *Generator) SetClause(t *core.Table) string {
	var col *core.Column
	for col == nil {
		c := t.Columns[g.Rand.Int(len(t.Columns)-1)]
		if c.Type != core.TypeGenerated {
			col = c
		}
	}
	set := col.Name + " = " + g.RandValue(col)
	if g.Rand.Int(100) < 10 {
		for _, c := range t.Columns {
			if c.Type != core.TypeGenerated && c.Name != col.Name && g.Rand.Int(100) > 50 {
				set += ", " + c.Name + " = " + g.RandValue(c)
			}
		}
	}
	return set + " "
}

// ColumnValues builds the (cols) VALUES(vals) tail of a single-row INSERT.
// Generated columns insert DEFAULT; auto-increment columns occasionally
// insert NULL to exercise the counter.
func (g *Generator) ColumnValues(t *core.Table) string {
	var cols, vals []string
	for _, c := range t.Columns {
		cols = append(cols, c.Name)
		var v string
		switch {
		case c.Type == core.TypeGenerated:
			v = "default"
		default:
			v = g.RandValue(c)
		}
		if c.AutoIncrement && g.Rand.Int(100) < 10 {
			v = "NULL"
		}
		vals = append(vals, v)
	}
	return "  ( " + strings.Join(cols, " ,") + ") VALUES( " + strings.Join(vals, ",") + ")"
}

// IgnoreClause returns " IGNORE " with the configured probability.
func (g *Generator) IgnoreClause() string {
	if g.Rand.Between(1, 100) < g.Opts.Int(options.IgnoreDMLClause) {
		return " IGNORE "
	}
	return ""
}
