// Package flatten turns one IAPD individual XML document into a flat table.
//
// A document holds Indvls/Indvl elements. Every Indvl carries an Info element,
// whose attributes become scalar columns, and seven repeating groups
// (CrntEmps, Exms, Dsgntns, PrevRgstns, EmpHists, OthrBuss, DRPs) that are
// collapsed into one "|"-joined column each.
//
// # Schema inference
//
// The Info columns are not configured. They are inferred from the first
// individual of the document by InferSchema, keeping the attribute order of
// the document. Every later individual is written positionally under that
// schema: an individual whose Info attribute set differs produces a row that
// does not line up with the headers. Table.Misaligned counts such rows so the
// caller can report the degradation, but it is never an error.
//
// An individual without an Info element is padded with as many empty strings
// as the schema has Info columns.
//
// # Errors
//
// Parse reports malformed XML as a *ParseError, which matches ErrParse with
// errors.Is. Any other error (for example a failed read) is returned as is.
// Nothing in this package recovers from errors; callers decide how to isolate
// failures.
//
// Example usage:
//
//	doc, err := flatten.Parse(r)
//	if errors.Is(err, flatten.ErrParse) {
//	    // malformed input
//	}
//	table := flatten.Flatten(doc)
//	fmt.Println(table.Headers, len(table.Rows))
package flatten
