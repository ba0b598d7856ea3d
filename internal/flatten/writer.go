package flatten

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/tealeg/xlsx"
)

// maxSheetName is the longest sheet name spreadsheet applications accept.
const maxSheetName = 31

// WriteCSV writes every table to <dir>/<table>.csv on fs, header first.
func WriteCSV(fs billy.Filesystem, dir string, tables []*Table) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, t := range tables {
		if err := writeCSV(fs, filepath.Join(dir, t.Name+".csv"), t); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(fs billy.Filesystem, path string, t *Table) (err error) {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)
	if err := w.Write(t.Columns); err != nil {
		return err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return bw.Flush()
}

// WriteXLSX writes every table as one sheet of a workbook at path on fs.
func WriteXLSX(fs billy.Filesystem, path string, tables []*Table) (err error) {
	book := xlsx.NewFile()
	used := make(map[string]bool)
	for _, t := range tables {
		sheet, err := book.AddSheet(sheetName(t.Name, used))
		if err != nil {
			return fmt.Errorf("add sheet %s: %w", t.Name, err)
		}
		addRow(sheet, t.Columns)
		for _, r := range t.Rows {
			addRow(sheet, r)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return book.Write(f)
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// sheetName shortens a table name to the sheet name limit, keeping it
// unique within the workbook.
func sheetName(name string, used map[string]bool) string {
	candidate := name
	if len(candidate) > maxSheetName {
		candidate = candidate[:maxSheetName]
	}
	for i := 1; used[candidate]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		base := name
		if len(base) > maxSheetName-len(suffix) {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = base + suffix
	}
	used[candidate] = true
	return candidate
}
