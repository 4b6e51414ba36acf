package core

// IndexColumn is one key part: the referenced column, its direction, and an
// optional prefix length. Blob and text keys always carry a prefix length.
type IndexColumn struct {
	Column *Column
	Desc   bool
	Length int
}

// Index is a named secondary index.
type Index struct {
	Name    string
	Unique  bool
	Columns []*IndexColumn
}

// AddColumn appends a key part.
func (i *Index) AddColumn(ic *IndexColumn) {
	i.Columns = append(i.Columns, ic)
}

// References reports whether the index uses the named column.
func (i *Index) References(name string) bool {
	for _, ic := range i.Columns {
		if ic.Column.Name == name {
			return true
		}
	}
	return false
}

// ColumnNames lists the key parts in order.
func (i *Index) ColumnNames() []string {
	names := make([]string, len(i.Columns))
	for n, ic := range i.Columns {
		names[n] = ic.Column.Name
	}
	return names
}
