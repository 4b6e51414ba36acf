// Package grammar loads user-supplied SQL templates. A template names
// virtual tables T1, T2, ... and virtual columns T1_INT_2, T2_VARCHAR_1, ...
// plus the RAND_INT token. Templates are parsed once into descriptors with
// precompiled substitution patterns; binding to real tables happens per
// execution in the workload.
package grammar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ColType enumerates the column types a placeholder may ask for.
type ColType int

const (
	Int ColType = iota
	Char
	Varchar
	Datetime
	Date
	Timestamp
	Float
	Text
	NumTypes
)

var colTypeNames = [NumTypes]string{
	"INT", "CHAR", "VARCHAR", "DATETIME", "DATE", "TIMESTAMP", "FLOAT", "TEXT",
}

func (c ColType) String() string {
	if c < 0 || c >= NumTypes {
		return ""
	}
	return colTypeNames[c]
}

// ParseColType maps a type tag to its ColType; ok is false for tags the
// grammar does not cover (BLOB, BIT, BOOL, ...).
func ParseColType(s string) (ColType, bool) {
	for i, name := range colTypeNames {
		if name == s {
			return ColType(i), true
		}
	}
	return NumTypes, false
}

// Placeholder is one virtual column slot: its substitution patterns are
// compiled once at load time.
type Placeholder struct {
	// CmpRand replaces "T1_INT_2<op>RAND" forms, keeping the operator.
	CmpRand *regexp.Regexp
	// Plain replaces the bare "T1_INT_2" token.
	Plain *regexp.Regexp
}

// TableRef is one virtual table of a template and its column demand.
type TableRef struct {
	Name string
	// ColumnCount is how many columns of each type the template references.
	ColumnCount [NumTypes]int
	// Placeholders indexes [type][column-1].
	Placeholders [NumTypes][]Placeholder
	// NamePattern matches the table token followed by space, closing
	// parenthesis or end of line.
	NamePattern *regexp.Regexp
}

// TotalColumns is the template's total column demand for this table.
func (t *TableRef) TotalColumns() int {
	total := 0
	for _, n := range t.ColumnCount {
		total += n
	}
	return total
}

// Template is one grammar line, parsed.
type Template struct {
	SQL    string
	Tables []TableRef
}

var randIntPattern = regexp.MustCompile(`RAND_INT`)

// RandIntPattern matches the RAND_INT token.
func RandIntPattern() *regexp.Regexp { return randIntPattern }

// Load reads a grammar file: one SQL per line, blank lines and # comments
// ignored.
func Load(path string) ([]Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to find grammar file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Parse(f)
}

// Parse reads templates from r.
func Parse(r io.Reader) ([]Template, error) {
	var templates []Template
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		templates = append(templates, parseTemplate(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read grammar file: %w", err)
	}
	return templates, nil
}

func parseTemplate(sql string) Template {
	tpl := Template{SQL: sql}
	for tab := 1; ; tab++ {
		name := "T" + strconv.Itoa(tab)
		if !regexp.MustCompile(regexp.QuoteMeta(name)).MatchString(sql) {
			break
		}
		ref := TableRef{Name: name}
		for ct := ColType(0); ct < NumTypes; ct++ {
			for col := 1; ; col++ {
				token := name + "_" + ct.String() + "_" + strconv.Itoa(col)
				if !strings.Contains(sql, token) {
					break
				}
				ref.ColumnCount[ct]++
				ref.Placeholders[ct] = append(ref.Placeholders[ct], Placeholder{
					CmpRand: regexp.MustCompile(
						regexp.QuoteMeta(token) + `(=|!=|<>|>=|<=|>|<)RAND`),
					Plain: regexp.MustCompile(regexp.QuoteMeta(token)),
				})
			}
		}
		ref.NamePattern = regexp.MustCompile(regexp.QuoteMeta(name) + `(\s|\)|$)`)
		tpl.Tables = append(tpl.Tables, ref)
	}
	return tpl
}
