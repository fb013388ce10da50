package flatten

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// Table is the flattened form of one document
type Table struct {
	Headers []string
	Rows    [][]string
}

// Misaligned counts rows whose width differs from the header width
func (t Table) Misaligned() int {
	n := 0
	for _, row := range t.Rows {
		if len(row) != len(t.Headers) {
			n++
		}
	}
	return n
}

// Flatten builds the table of doc: the inferred headers and one row per
// individual in document order. A document without individuals still has
// headers.
func Flatten(doc *Document) Table {
	schema := InferSchema(doc)
	table := Table{Headers: schema.Headers()}
	if doc == nil {
		return table
	}

	table.Rows = make([][]string, 0, len(doc.Individuals))
	for _, ind := range doc.Individuals {
		table.Rows = append(table.Rows, schema.Row(ind))
	}
	return table
}

// FlattenReader parses and flattens one document
func FlattenReader(r io.Reader) (Table, error) {
	doc, err := Parse(r)
	if err != nil {
		return Table{}, err
	}
	return Flatten(doc), nil
}

// FlattenFile parses and flattens the document stored at path on fs
func FlattenFile(fs afero.Fs, path string) (Table, error) {
	f, err := fs.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return FlattenReader(f)
}
