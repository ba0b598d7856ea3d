package flatten

import (
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/agentic-research/shape/internal/analyzer"
	"github.com/agentic-research/shape/internal/structure"
)

var docs = []string{
	`{"id":1,"addr":{"city":"A","zip":"1"},"tags":["x","y"],"ok":true}`,
	`{"id":2.5,"tags":"z","ok":null}`,
}

func flatten(t *testing.T, docs ...string) *Flattener {
	t.Helper()
	a := analyzer.New(structure.New(), analyzer.DefaultConfig())
	for _, d := range docs {
		require.NoError(t, a.AnalyzeJSON([]byte(d)))
	}
	f, err := New(a.Tree(), "root")
	require.NoError(t, err)
	for _, d := range docs {
		require.NoError(t, f.AddJSON([]byte(d)))
	}
	return f
}

func TestFlatten(t *testing.T) {
	f := flatten(t, docs...)
	tables := f.Tables()
	require.Len(t, tables, 2)

	root := tables[0]
	assert.Equal(t, "root", root.Name)
	assert.Equal(t, []string{"id", "addr_city", "addr_zip", "tags", "ok"}, root.Columns)
	assert.Equal(t, [][]string{
		{"1", "A", "1", "root_tags_1", "true"},
		{"2.5", "", "", "root_tags_2", ""},
	}, root.Rows)

	tags, ok := f.Table(structure.NewNodePath("root", "[]", "tags", "[]"))
	require.True(t, ok)
	assert.Same(t, tables[1], tags)
	assert.Equal(t, "root_tags", tags.Name)
	assert.Equal(t, []string{"data", ParentIDColumn}, tags.Columns)
	assert.Equal(t, [][]string{
		{"x", "root_tags_1"},
		{"y", "root_tags_1"},
		{"z", "root_tags_2"},
	}, tags.Rows)
}

func TestFlattenNested(t *testing.T) {
	f := flatten(t,
		`{"orders":[{"sku":"a","lines":[{"q":1},{"q":2}]},{"sku":"b","lines":[]}]}`,
		`{"orders":null,"matrix":[[1,2],[3]]}`,
	)

	names := make([]string, 0, len(f.Tables()))
	for _, tbl := range f.Tables() {
		names = append(names, tbl.Name)
	}
	assert.Equal(t, []string{"root", "root_orders", "root_orders_lines", "root_matrix", "root_matrix_data"}, names)

	root := f.Tables()[0]
	assert.Equal(t, []string{"orders", "matrix"}, root.Columns)
	assert.Equal(t, [][]string{
		{"root_orders_1", ""},
		{"", "root_matrix_1"},
	}, root.Rows)

	orders := f.Tables()[1]
	assert.Equal(t, []string{"sku", "lines", ParentIDColumn}, orders.Columns)
	assert.Equal(t, [][]string{
		{"a", "root_orders_lines_1", "root_orders_1"},
		{"b", "root_orders_lines_2", "root_orders_1"},
	}, orders.Rows)

	lines := f.Tables()[2]
	assert.Equal(t, [][]string{
		{"1", "root_orders_lines_1"},
		{"2", "root_orders_lines_1"},
	}, lines.Rows)

	matrix := f.Tables()[3]
	assert.Equal(t, [][]string{
		{"root_matrix_data_1", "root_matrix_1"},
		{"root_matrix_data_2", "root_matrix_1"},
	}, matrix.Rows)

	inner := f.Tables()[4]
	assert.Equal(t, [][]string{
		{"1", "root_matrix_data_1"},
		{"2", "root_matrix_data_1"},
		{"3", "root_matrix_data_2"},
	}, inner.Rows)
}

func TestFlattenDottedKeys(t *testing.T) {
	f := flatten(t, `{"a.b":[1,2],"a":{"b":"x"}}`)
	require.Len(t, f.Tables(), 2)

	root := f.Tables()[0]
	assert.Equal(t, []string{"a_b", "a_b_u0"}, root.Columns)
	assert.Equal(t, [][]string{{"root_a.b_1", "x"}}, root.Rows)

	dotted, ok := f.Table(structure.NewNodePath("root", "[]", "a.b", "[]"))
	require.True(t, ok)
	assert.Equal(t, "root_a.b", dotted.Name)
	assert.Equal(t, []string{"data", ParentIDColumn}, dotted.Columns)
	assert.Equal(t, [][]string{
		{"1", "root_a.b_1"},
		{"2", "root_a.b_1"},
	}, dotted.Rows)

	_, ok = f.Table(structure.NewNodePath("root", "[]", "a", "b", "[]"))
	assert.False(t, ok)
}

func TestFlattenParentIDColumnName(t *testing.T) {
	f := flatten(t, `{"items":[{"JSON_parentId":"p"}]}`)
	items := f.Tables()[1]
	assert.Equal(t, []string{"JSON_parentId_u0", ParentIDColumn}, items.Columns)
	assert.Equal(t, [][]string{{"p", "root_items_1"}}, items.Rows)
}

func TestNewWithoutRoot(t *testing.T) {
	_, err := New(structure.New(), "root")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	f := flatten(t, docs...)
	fs := memfs.New()
	require.NoError(t, WriteCSV(fs, "out", f.Tables()))

	b, err := util.ReadFile(fs, "out/root.csv")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"id,addr_city,addr_zip,tags,ok",
		"1,A,1,root_tags_1,true",
		"2.5,,,root_tags_2,",
		"",
	}, "\n"), string(b))

	b, err = util.ReadFile(fs, "out/root_tags.csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "data,JSON_parentId\n"))
}

func TestWriteXLSX(t *testing.T) {
	f := flatten(t, docs...)
	fs := memfs.New()
	require.NoError(t, WriteXLSX(fs, "out/book.xlsx", f.Tables()))

	b, err := util.ReadFile(fs, "out/book.xlsx")
	require.NoError(t, err)
	book, err := xlsx.OpenBinary(b)
	require.NoError(t, err)
	require.Len(t, book.Sheets, 2)
	assert.Equal(t, "root", book.Sheets[0].Name)
	assert.Equal(t, "root_tags", book.Sheets[1].Name)
	assert.Equal(t, "addr_city", book.Sheets[0].Rows[0].Cells[1].Value)
	assert.Equal(t, "A", book.Sheets[0].Rows[1].Cells[1].Value)
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	long := strings.Repeat("a", 40)
	first := sheetName(long, used)
	second := sheetName(long, used)
	assert.Len(t, first, maxSheetName)
	assert.Len(t, second, maxSheetName)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "short", sheetName("short", used))
}
