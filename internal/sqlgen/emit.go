package sqlgen

import (
	"strconv"
	"strings"

	"rstress/internal/core"
	"rstress/internal/options"
)

// ColumnDef emits one column definition.
func (g *Generator) ColumnDef(c *core.Column) string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteString(" ")
	sb.WriteString(g.columnClause(c))
	if !c.Nullable {
		sb.WriteString(" NOT NULL")
	}
	if c.AutoIncrement {
		sb.WriteString(" AUTO_INCREMENT")
	}
	if c.Compressed && g.columnCompressionAllowed(c) {
		sb.WriteString(" COLUMN_FORMAT COMPRESSED")
	}
	if c.NotSecondary {
		sb.WriteString(" NOT SECONDARY")
	}
	return sb.String()
}

// columnCompressionAllowed drops the compressed flag at emit time when
// column compression is globally off, or when the column is not a blob, text
// or varchar flavor.
func (g *Generator) columnCompressionAllowed(c *core.Column) bool {
	if g.Opts.Bool(options.NoColumnCompression) {
		return false
	}
	return c.IsBlobOrText() || c.ValueType() == core.TypeVarchar
}

func (g *Generator) columnClause(c *core.Column) string {
	switch c.Type {
	case core.TypeBlob, core.TypeText:
		return c.SubType
	case core.TypeGenerated:
		return strings.TrimSpace(c.GenClause)
	default:
		s := string(c.Type)
		if c.Length > 0 {
			s += "(" + strconv.Itoa(c.Length) + ")"
		}
		return s
	}
}

// IndexDef emits one index definition for CREATE TABLE or ALTER TABLE ADD.
func (g *Generator) IndexDef(idx *core.Index) string {
	var sb strings.Builder
	if idx.Unique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	sb.WriteString(idx.Name)
	sb.WriteString("(")
	for i, ic := range idx.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(ic.Column.Name)
		if ic.Length > 0 {
			sb.WriteString("(" + strconv.Itoa(ic.Length) + ")")
		}
		if ic.Desc {
			sb.WriteString(" DESC")
		}
	}
	sb.WriteString(")")
	return sb.String()
}

// FKConstraint emits the foreign key body referencing the parent's primary
// key.
func (g *Generator) FKConstraint(t *core.Table) string {
	return " FOREIGN KEY (fk_col) REFERENCES " + t.ParentName() + " (pkey)" +
		" ON UPDATE " + string(t.FK.OnUpdate) +
		" ON DELETE " + string(t.FK.OnDelete)
}

// CreateTableSQL emits the full CREATE TABLE statement. withIndex=false
// keeps only the auto-inc index so secondary indexes can be added after the
// bulk load; withFK=false leaves the constraint for a later ALTER.
// The trailing options always come in the fixed order encryption,
// compression, tablespace, key block size, row format, engine, secondary
// engine, partitioning.
func (g *Generator) CreateTableSQL(t *core.Table, withIndex, withFK bool) string {
	var sb strings.Builder
	sb.WriteString("CREATE")
	if t.Type == core.TableTemporary {
		sb.WriteString(" TEMPORARY")
	}
	sb.WriteString(" TABLE ")
	sb.WriteString(t.Name)
	sb.WriteString(" (")

	var defs []string
	for _, c := range t.Columns {
		defs = append(defs, g.ColumnDef(c))
	}
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pk := " PRIMARY KEY(" + c.Name
			if t.Type == core.TablePartition {
				if g.Rand.Int(1) == 0 {
					pk = " PRIMARY KEY(" + c.Name + ", ip_col"
				} else {
					pk = " PRIMARY KEY(ip_col, " + c.Name
				}
			}
			defs = append(defs, pk+")")
		}
	}
	if withIndex {
		for _, idx := range t.Indexes {
			defs = append(defs, g.IndexDef(idx))
		}
	} else if len(t.Indexes) > 0 {
		defs = append(defs, g.IndexDef(t.Indexes[t.AutoIncIndex]))
	}
	if withFK && t.Type == core.TableFK {
		defs = append(defs, g.FKConstraint(t))
	}
	sb.WriteString(strings.Join(defs, ", "))
	sb.WriteString(" )")

	keyringEncrypt := false
	if !g.Opts.Bool(options.NoEncryption) && t.Type != core.TableTemporary {
		switch t.Encryption {
		case "Y", "N":
			sb.WriteString(" ENCRYPTION='" + t.Encryption + "'")
		case "KEYRING":
			keyringEncrypt = true
			switch g.Rand.Int(2) {
			case 0:
				sb.WriteString(" ENCRYPTION='KEYRING'")
			case 1:
				sb.WriteString(" ENCRYPTION_KEY_ID=" + strconv.Itoa(g.Rand.Int(9)))
			case 2:
				sb.WriteString(" ENCRYPTION='KEYRING' ENCRYPTION_KEY_ID=" +
					strconv.Itoa(g.Rand.Int(9)))
			}
		}
	}
	if t.Compression != "" {
		sb.WriteString(" COMPRESSION='" + t.Compression + "'")
	}
	if t.Tablespace != "" && !keyringEncrypt {
		sb.WriteString(" TABLESPACE=" + t.Tablespace)
	}
	if t.KeyBlockSize > 1 {
		sb.WriteString(" KEY_BLOCK_SIZE=" + strconv.Itoa(t.KeyBlockSize))
	}
	if t.RowFormat != "" {
		sb.WriteString(" ROW_FORMAT=" + t.RowFormat)
	}
	if t.Engine != "" {
		sb.WriteString(" ENGINE=" + t.Engine)
	}
	if se := g.Opts.Str(options.SecondaryEngine); se != "" &&
		!g.Opts.Bool(options.SecondaryAfterCreate) {
		sb.WriteString(", SECONDARY_ENGINE=" + se)
	}

	if t.Type == core.TablePartition {
		sb.WriteString(g.partitionClause(t.Part))
	}
	return sb.String()
}

func (g *Generator) partitionClause(p *core.Partition) string {
	var sb strings.Builder
	sb.WriteString(" PARTITION BY " + string(p.Type) + " (ip_col)")
	switch p.Type {
	case core.PartHash, core.PartKey:
		sb.WriteString(" PARTITIONS " + strconv.Itoa(p.Count))
	case core.PartRange:
		sb.WriteString("(")
		for i, r := range p.Ranges {
			bound := strconv.Itoa(r.Bound)
			if i == len(p.Ranges)-1 {
				bound = "MAXVALUE"
			}
			sb.WriteString(" PARTITION " + r.Name + " VALUES LESS THAN (" + bound + ")")
			if i == len(p.Ranges)-1 {
				sb.WriteString(")")
			} else {
				sb.WriteString(",")
			}
		}
	case core.PartList:
		sb.WriteString("(")
		for i, l := range p.Lists {
			sb.WriteString(" PARTITION " + l.Name + " VALUES IN (")
			for j, v := range l.Values {
				sb.WriteString(strconv.Itoa(v))
				if j == len(l.Values)-1 {
					sb.WriteString(")")
				} else {
					sb.WriteString(",")
				}
			}
			if i == len(p.Lists)-1 {
				sb.WriteString(")")
			} else {
				sb.WriteString(",")
			}
		}
	}
	return sb.String()
}

// AlgorithmLock picks an ALGORITHM and LOCK pair from the allowed pools,
// honoring the server's support matrix: INSTANT only runs with
// LOCK=DEFAULT, and COPY cannot take LOCK=NONE.
func (g *Generator) AlgorithmLock() string {
	s, _, _ := g.AlgorithmLockWith()
	return s
}

// AlgorithmLockWith also returns the chosen pair.
func (g *Generator) AlgorithmLockWith() (clause, algorithm, lock string) {
	algorithm = g.pick(g.Env.Algorithms)
	if algorithm == "INSTANT" {
		lock = "DEFAULT"
	} else {
		lock = g.pick(g.Env.Locks)
	}
	if algorithm == "COPY" && lock == "NONE" {
		lock = "DEFAULT"
	}
	return " LOCK=" + lock + ", ALGORITHM=" + algorithm, algorithm, lock
}
