package flatten

import (
	"strings"

	"github.com/samber/lo"
)

// Delimiter joins the values of one repeating group
const Delimiter = "|"

// Group describes one repeating group of an individual
type Group struct {
	// Column is the output header and also the container element name
	Column string
	// Child is the element name of one member
	Child string
	// Attribute is the member attribute written to the column
	Attribute string
}

// Groups lists the repeating groups in output column order
var Groups = []Group{
	{Column: "CrntEmps", Child: "CrntEmp", Attribute: "orgNm"},
	{Column: "Exms", Child: "Exm", Attribute: "exmCd"},
	{Column: "Dsgntns", Child: "Dsgntn", Attribute: "dsgntnNm"},
	{Column: "PrevRgstns", Child: "PrevRgstn", Attribute: "orgNm"},
	{Column: "EmpHists", Child: "EmpHist", Attribute: "orgNm"},
	{Column: "OthrBuss", Child: "OthrBus", Attribute: "desc"},
	{Column: "DRPs", Child: "DRP", Attribute: "hasRegAction"},
}

// GroupColumns returns the fixed group column names in order
func GroupColumns() []string {
	return lo.Map(Groups, func(g Group, _ int) string { return g.Column })
}

// Value collapses the group of one individual into a single field
func (g Group) Value(ind Individual) string {
	values := lo.Map(ind.Children(g.Column, g.Child), func(e Element, _ int) string {
		return e.Attr(g.Attribute)
	})
	return strings.Join(values, Delimiter)
}

// Schema is the column layout inferred from the first individual
type Schema struct {
	// InfoFields are the Info attribute names of the first individual
	InfoFields []string
}

// InferSchema derives the schema from the first individual of doc. A document
// without individuals, or whose first individual has no Info element, yields
// a schema with no Info fields.
func InferSchema(doc *Document) Schema {
	if doc == nil || len(doc.Individuals) == 0 {
		return Schema{}
	}
	info, ok := doc.Individuals[0].InfoElement()
	if !ok {
		return Schema{}
	}
	return Schema{InfoFields: info.Keys()}
}

// Headers returns the Info fields followed by the group columns
func (s Schema) Headers() []string {
	headers := make([]string, 0, len(s.InfoFields)+len(Groups))
	headers = append(headers, s.InfoFields...)
	return append(headers, GroupColumns()...)
}

// Width is the number of columns a row aligned to the schema has
func (s Schema) Width() int {
	return len(s.InfoFields) + len(Groups)
}

// Row flattens one individual. Info values are taken positionally from the
// individual's own Info element; they are not looked up by schema key.
func (s Schema) Row(ind Individual) []string {
	row := make([]string, 0, s.Width())
	if info, ok := ind.InfoElement(); ok {
		row = append(row, info.Values()...)
	} else {
		row = append(row, make([]string, len(s.InfoFields))...)
	}
	for _, g := range Groups {
		row = append(row, g.Value(ind))
	}
	return row
}
