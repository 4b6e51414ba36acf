package grammar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColType(t *testing.T) {
	ct, ok := ParseColType("VARCHAR")
	require.True(t, ok)
	assert.Equal(t, Varchar, ct)
	assert.Equal(t, "VARCHAR", ct.String())

	_, ok = ParseColType("BLOB")
	assert.False(t, ok)
	_, ok = ParseColType("GENERATED")
	assert.False(t, ok)
}

func TestParseTemplates(t *testing.T) {
	input := `
# leading comment
SELECT T1_INT_1 FROM T1 WHERE T1_INT_1=RAND

SELECT T1_INT_1, T2_VARCHAR_1 FROM T1, T2 WHERE T1_INT_1 = T2_INT_1
`
	templates, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, templates, 2)

	first := templates[0]
	require.Len(t, first.Tables, 1)
	assert.Equal(t, "T1", first.Tables[0].Name)
	assert.Equal(t, 1, first.Tables[0].ColumnCount[Int])
	assert.Equal(t, 0, first.Tables[0].ColumnCount[Varchar])
	assert.Equal(t, 1, first.Tables[0].TotalColumns())

	second := templates[1]
	require.Len(t, second.Tables, 2)
	assert.Equal(t, 1, second.Tables[0].ColumnCount[Int])
	assert.Equal(t, 1, second.Tables[1].ColumnCount[Int])
	assert.Equal(t, 1, second.Tables[1].ColumnCount[Varchar])
	assert.Equal(t, 2, second.Tables[1].TotalColumns())
}

func TestParseCountsMultipleColumnsOfOneType(t *testing.T) {
	templates, err := Parse(strings.NewReader(
		"SELECT T1_INT_1, T1_INT_2 FROM T1 WHERE T1_INT_1 > T1_INT_2"))
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, 2, templates[0].Tables[0].ColumnCount[Int])
	assert.Len(t, templates[0].Tables[0].Placeholders[Int], 2)
}

func TestPlaceholderPatterns(t *testing.T) {
	templates, err := Parse(strings.NewReader(
		"SELECT T1_INT_1 FROM T1 WHERE T1_INT_1>=RAND"))
	require.NoError(t, err)
	ref := templates[0].Tables[0]
	ph := ref.Placeholders[Int][0]

	sql := templates[0].SQL
	sql = ph.CmpRand.ReplaceAllString(sql, "T1.i3 $1 42")
	sql = ph.Plain.ReplaceAllString(sql, "T1.i3")
	sql = ref.NamePattern.ReplaceAllString(sql, "tt_7 T1$1")
	assert.Equal(t, "SELECT T1.i3 FROM tt_7 T1 WHERE T1.i3 >= 42", sql)
}

func TestRandIntPattern(t *testing.T) {
	out := RandIntPattern().ReplaceAllString("SELECT RAND_INT, RAND_INT", "33")
	assert.Equal(t, "SELECT 33, 33", out)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/grammar.sql")
	assert.Error(t, err)
}
