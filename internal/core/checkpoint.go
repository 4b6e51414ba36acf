package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Version is the checkpoint format version. A file with any other version is
// rejected outright.
const Version = 2

// StepFile names the checkpoint of a step inside dir.
func StepFile(dir string, step int) string {
	return filepath.Join(dir, "step_"+strconv.Itoa(step)+".dll")
}

type checkpointDoc struct {
	Version int         `json:"version"`
	Tables  []tableJSON `json:"tables"`
}

// rangeJSON serializes as ["name", bound].
type rangeJSON RangePart

func (r rangeJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Name, r.Bound})
}

func (r *rangeJSON) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("range partition entry must have two elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &r.Name); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &r.Bound)
}

// listJSON serializes as ["name", [v1, v2, ...]].
type listJSON ListPart

func (l listJSON) MarshalJSON() ([]byte, error) {
	vals := l.Values
	if vals == nil {
		vals = []int{}
	}
	return json.Marshal([]any{l.Name, vals})
}

func (l *listJSON) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("list partition entry must have two elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &l.Name); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &l.Values)
}

type tableJSON struct {
	Name           string      `json:"name"`
	Type           string      `json:"type"`
	PartType       string      `json:"part_type,omitempty"`
	NumberOfPart   int         `json:"number_of_part,omitempty"`
	PartRange      []rangeJSON `json:"part_range,omitempty"`
	PartList       []listJSON  `json:"part_list,omitempty"`
	StillAvailable []int       `json:"still_available,omitempty"`
	OnUpdate       string      `json:"on_update,omitempty"`
	OnDelete       string      `json:"on_delete,omitempty"`
	Engine         string      `json:"engine"`
	RowFormat      string      `json:"row_format"`
	Tablespace     string      `json:"tablespace"`
	Encryption     string      `json:"encryption"`
	Compression    string      `json:"compression"`
	KeyBlockSize   int         `json:"key_block_size"`
	InitialRecords int         `json:"number_of_initial_records"`
	AutoIncIndex   int         `json:"auto_inc_index"`
	Columns        []colJSON   `json:"columns"`
	Indexes        []indexJSON `json:"indexes"`
}

type colJSON struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	NullVal       bool   `json:"null_val"`
	PrimaryKey    bool   `json:"primary_key"`
	Compressed    bool   `json:"compressed"`
	AutoIncrement bool   `json:"auto_increment"`
	NotSecondary  bool   `json:"not secondary"`
	Length        int    `json:"length"`
	SubType       string `json:"sub_type,omitempty"`
	Clause        string `json:"clause,omitempty"`
}

type indexJSON struct {
	Name    string       `json:"name"`
	Unique  bool         `json:"unique"`
	Columns []indColJSON `json:"index_columns"`
}

type indColJSON struct {
	Name   string `json:"name"`
	Desc   bool   `json:"desc"`
	Length int    `json:"length"`
}

func orDefault(v, sentinel string) string {
	if v == "" {
		return sentinel
	}
	return v
}

func fromDefault(v, sentinel string) string {
	if v == sentinel {
		return ""
	}
	return v
}

func tableToJSON(t *Table) tableJSON {
	tj := tableJSON{
		Name:           t.Name,
		Type:           string(t.Type),
		Engine:         orDefault(t.Engine, "default"),
		RowFormat:      orDefault(t.RowFormat, "default"),
		Tablespace:     orDefault(t.Tablespace, "file_per_table"),
		Encryption:     t.Encryption,
		Compression:    t.Compression,
		KeyBlockSize:   t.KeyBlockSize,
		InitialRecords: t.InitialRecords,
		AutoIncIndex:   t.AutoIncIndex,
	}
	if t.Type == TablePartition {
		tj.PartType = string(t.Part.Type)
		tj.NumberOfPart = t.Part.Count
		if t.Part.Type == PartRange {
			for _, p := range t.Part.Ranges {
				tj.PartRange = append(tj.PartRange, rangeJSON(p))
			}
		}
		if t.Part.Type == PartList {
			for _, p := range t.Part.Lists {
				tj.PartList = append(tj.PartList, listJSON(p))
			}
			tj.StillAvailable = t.Part.Remaining
		}
	}
	if t.Type == TableFK {
		tj.OnUpdate = string(t.FK.OnUpdate)
		tj.OnDelete = string(t.FK.OnDelete)
	}
	for _, c := range t.Columns {
		cj := colJSON{
			Name:          c.Name,
			Type:          string(c.Type),
			NullVal:       c.Nullable,
			PrimaryKey:    c.PrimaryKey,
			Compressed:    c.Compressed,
			AutoIncrement: c.AutoIncrement,
			NotSecondary:  c.NotSecondary,
			Length:        c.Length,
		}
		switch c.Type {
		case TypeBlob, TypeText:
			cj.SubType = c.SubType
		case TypeGenerated:
			cj.SubType = string(c.GenType)
			cj.Clause = c.GenClause
		}
		tj.Columns = append(tj.Columns, cj)
	}
	for _, idx := range t.Indexes {
		ij := indexJSON{Name: idx.Name, Unique: idx.Unique}
		for _, ic := range idx.Columns {
			ij.Columns = append(ij.Columns, indColJSON{
				Name: ic.Column.Name, Desc: ic.Desc, Length: ic.Length,
			})
		}
		tj.Indexes = append(tj.Indexes, ij)
	}
	return tj
}

func tableFromJSON(tj tableJSON) (*Table, error) {
	t := NewTable(tj.Name, TableType(tj.Type))
	switch t.Type {
	case TableNormal, TableFK, TablePartition, TableTemporary:
	default:
		return nil, fmt.Errorf("unhandled table type %q", tj.Type)
	}

	t.Engine = fromDefault(tj.Engine, "default")
	t.RowFormat = fromDefault(tj.RowFormat, "default")
	t.Tablespace = fromDefault(tj.Tablespace, "file_per_table")
	t.Encryption = tj.Encryption
	t.Compression = tj.Compression
	t.KeyBlockSize = tj.KeyBlockSize
	t.InitialRecords = tj.InitialRecords
	t.AutoIncIndex = tj.AutoIncIndex

	if t.Type == TablePartition {
		t.Part.Type = PartitionType(tj.PartType)
		t.Part.Count = tj.NumberOfPart
		for _, p := range tj.PartRange {
			t.Part.Ranges = append(t.Part.Ranges, RangePart(p))
		}
		for _, p := range tj.PartList {
			t.Part.Lists = append(t.Part.Lists, ListPart(p))
		}
		t.Part.Remaining = tj.StillAvailable
	}
	if t.Type == TableFK {
		if !ValidRefAction(tj.OnUpdate) || !ValidRefAction(tj.OnDelete) {
			return nil, fmt.Errorf("table %s: invalid referential action %q/%q",
				tj.Name, tj.OnUpdate, tj.OnDelete)
		}
		t.FK.OnUpdate = RefAction(tj.OnUpdate)
		t.FK.OnDelete = RefAction(tj.OnDelete)
	}

	for _, cj := range tj.Columns {
		if !ValidColumnType(cj.Type) {
			return nil, fmt.Errorf("table %s: unhandled column type %q", tj.Name, cj.Type)
		}
		c := &Column{
			Name:          cj.Name,
			Type:          ColumnType(cj.Type),
			Nullable:      cj.NullVal,
			PrimaryKey:    cj.PrimaryKey,
			Compressed:    cj.Compressed,
			AutoIncrement: cj.AutoIncrement,
			NotSecondary:  cj.NotSecondary,
			Length:        cj.Length,
		}
		switch c.Type {
		case TypeBlob, TypeText:
			c.SubType = cj.SubType
		case TypeGenerated:
			c.GenType = ColumnType(cj.SubType)
			c.GenClause = cj.Clause
		}
		t.AddColumn(c)
	}

	for _, ij := range tj.Indexes {
		idx := &Index{Name: ij.Name, Unique: ij.Unique}
		for _, icj := range ij.Columns {
			col := t.FindColumn(icj.Name)
			if col == nil {
				return nil, fmt.Errorf("table %s: index %s references unknown column %s",
					tj.Name, ij.Name, icj.Name)
			}
			idx.AddColumn(&IndexColumn{Column: col, Desc: icj.Desc, Length: icj.Length})
		}
		t.AddIndex(idx)
	}
	return t, nil
}

// Marshal renders the catalog as the pretty-printed checkpoint document.
// Temporary tables are session-scoped and never persisted.
func Marshal(c *Catalog) ([]byte, error) {
	doc := checkpointDoc{Version: Version}
	for _, t := range c.Tables() {
		if t.Type == TableTemporary {
			continue
		}
		doc.Tables = append(doc.Tables, tableToJSON(t))
	}
	return json.MarshalIndent(doc, "", "    ")
}

// Unmarshal reconstructs a catalog from checkpoint bytes, rejecting any
// version other than the code's.
func Unmarshal(data []byte) (*Catalog, error) {
	var doc checkpointDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("version mismatch: file version is %d, code version is %d",
			doc.Version, Version)
	}
	cat := NewCatalog()
	for _, tj := range doc.Tables {
		t, err := tableFromJSON(tj)
		if err != nil {
			return nil, err
		}
		cat.Append(t)
	}
	return cat, nil
}

// Save writes the checkpoint for a step.
func Save(c *Catalog, path string) error {
	data, err := Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint %s: %w", path, err)
	}
	return nil
}

// Load reads the checkpoint written by a previous step.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open checkpoint %s: %w", path, err)
	}
	cat, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}
