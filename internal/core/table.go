package core

import (
	"strings"
	"sync"
)

// TableType tags the table variant. The tag doubles as the serialized form.
type TableType string

const (
	TableNormal    TableType = "NORMAL"
	TablePartition TableType = "PARTITION"
	TableTemporary TableType = "TEMPORARY"
	TableFK        TableType = "FK"
)

// Naming pieces shared with the checkpoint and the FK parent lookup.
const (
	TablePrefix     = "tt_"
	PartitionSuffix = "_p"
	FKSuffix        = "_fk"
	TempSuffix      = "_t"
)

// PartitionType tags the partitioning strategy.
type PartitionType string

const (
	PartHash  PartitionType = "HASH"
	PartKey   PartitionType = "KEY"
	PartList  PartitionType = "LIST"
	PartRange PartitionType = "RANGE"
)

// RangePart is one RANGE partition: its name and exclusive upper bound.
// The last partition emits MAXVALUE regardless of its recorded bound.
type RangePart struct {
	Name  string
	Bound int
}

// ListPart is one LIST partition and its value members.
type ListPart struct {
	Name   string
	Values []int
}

// Partition is the variant payload of a partitioned table.
type Partition struct {
	Type  PartitionType
	Count int

	// Ranges is kept sorted by bound with no duplicates.
	Ranges []RangePart

	// Lists plus Remaining always partition the initial integer domain.
	Lists     []ListPart
	Remaining []int
}

// RefAction is a referential action of an FK constraint.
type RefAction string

const (
	ActionRestrict   RefAction = "RESTRICT"
	ActionSetNull    RefAction = "SET NULL"
	ActionNoAction   RefAction = "NO ACTION"
	ActionSetDefault RefAction = "SET DEFAULT"
	ActionCascade    RefAction = "CASCADE"
)

// RefActions lists every action; the order matters to the random picker,
// which draws an index up to CASCADE (or SET DEFAULT when cascading is
// disabled).
var RefActions = []RefAction{
	ActionRestrict, ActionSetNull, ActionNoAction, ActionSetDefault, ActionCascade,
}

// ValidRefAction reports whether s names a referential action.
func ValidRefAction(s string) bool {
	for _, a := range RefActions {
		if string(a) == s {
			return true
		}
	}
	return false
}

// ForeignKey is the variant payload of an FK child table.
type ForeignKey struct {
	OnUpdate RefAction
	OnDelete RefAction
}

// Table is one table of any variant. Part is set for PARTITION tables, FK
// for foreign-key children. The ddl mutex gives schema mutations exclusivity
// over the in-memory definition; the dml lock is held shared by DML
// producers and exclusively by whoever must drain them (the comparator).
type Table struct {
	Name string
	Type TableType

	Engine       string
	RowFormat    string
	Tablespace   string
	Compression  string
	Encryption   string
	KeyBlockSize int

	InitialRecords int
	AutoIncIndex   int

	Columns []*Column
	Indexes []*Index

	Part *Partition
	FK   *ForeignKey

	ddlMu sync.Mutex
	dmlMu sync.RWMutex
}

// NewTable returns an empty table shell of the given variant.
func NewTable(name string, typ TableType) *Table {
	t := &Table{Name: name, Type: typ, Encryption: "N"}
	if typ == TablePartition {
		t.Part = &Partition{}
	}
	if typ == TableFK {
		t.FK = &ForeignKey{}
	}
	return t
}

// LockDDL serializes schema mutations of this table.
func (t *Table) LockDDL() { t.ddlMu.Lock() }

// UnlockDDL releases the DDL lock.
func (t *Table) UnlockDDL() { t.ddlMu.Unlock() }

// RLockDML marks a DML producer; many may run concurrently.
func (t *Table) RLockDML() { t.dmlMu.RLock() }

// RUnlockDML releases the shared DML hold.
func (t *Table) RUnlockDML() { t.dmlMu.RUnlock() }

// LockDML excludes every DML producer.
func (t *Table) LockDML() { t.dmlMu.Lock() }

// UnlockDML releases the exclusive DML hold.
func (t *Table) UnlockDML() { t.dmlMu.Unlock() }

// AddColumn appends a column.
func (t *Table) AddColumn(c *Column) { t.Columns = append(t.Columns, c) }

// AddIndex appends an index.
func (t *Table) AddIndex(i *Index) { t.Indexes = append(t.Indexes, i) }

// FindColumn returns the column with the given name, or nil.
func (t *Table) FindColumn(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// FindIndex returns the index with the given name, or nil.
func (t *Table) FindIndex(name string) *Index {
	for _, i := range t.Indexes {
		if i.Name == name {
			return i
		}
	}
	return nil
}

// HasPK reports whether any column is the primary key.
func (t *Table) HasPK() bool {
	return t.PKColumn() != nil
}

// PKColumn returns the primary key column, or nil.
func (t *Table) PKColumn() *Column {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c
		}
	}
	return nil
}

// AutoIncColumn returns the auto-increment column, or nil.
func (t *Table) AutoIncColumn() *Column {
	for _, c := range t.Columns {
		if c.AutoIncrement {
			return c
		}
	}
	return nil
}

// ParentName derives the FK parent's table name: the prefix and the table id,
// dropping any random tail and the variant suffix.
func (t *Table) ParentName() string {
	parts := strings.SplitN(t.Name, "_", 3)
	if len(parts) < 2 {
		return t.Name
	}
	return parts[0] + "_" + parts[1]
}

// generatedDependsOn reports whether a generated column's expression
// references the named base column.
func generatedDependsOn(c *Column, name string) bool {
	if c.Type != TypeGenerated {
		return false
	}
	return strings.Contains(c.GenClause, name)
}

// RemoveColumn drops the named column from the model and repairs the rest of
// the table: indexes keyed only on the dropped column disappear, wider
// indexes lose that key part, and generated columns whose expression used
// the base column are removed the same way. Only direct dependents of the
// named column are removed; generated columns are not followed further.
func (t *Table) RemoveColumn(name string) {
	removed := map[string]struct{}{name: {}}
	for _, c := range t.Columns {
		if generatedDependsOn(c, name) {
			removed[c.Name] = struct{}{}
		}
	}

	cols := t.Columns[:0]
	for _, c := range t.Columns {
		if _, gone := removed[c.Name]; !gone {
			cols = append(cols, c)
		}
	}
	t.Columns = cols

	idxs := t.Indexes[:0]
	for _, idx := range t.Indexes {
		parts := idx.Columns[:0]
		for _, ic := range idx.Columns {
			if _, gone := removed[ic.Column.Name]; !gone {
				parts = append(parts, ic)
			}
		}
		idx.Columns = parts
		if len(idx.Columns) > 0 {
			idxs = append(idxs, idx)
		}
	}
	t.Indexes = idxs
}

// RemoveIndex drops the named index from the model.
func (t *Table) RemoveIndex(name string) {
	for i, idx := range t.Indexes {
		if idx.Name == name {
			t.Indexes = append(t.Indexes[:i], t.Indexes[i+1:]...)
			return
		}
	}
}
