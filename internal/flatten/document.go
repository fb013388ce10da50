package flatten

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// ErrParse is matched by every error caused by malformed XML input
var ErrParse = errors.New("malformed XML")

// ParseError describes why a document could not be parsed
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed XML at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed XML: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParse) true for every ParseError
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Document is one parsed record file. The root element name is not checked.
type Document struct {
	XMLName     xml.Name
	Individuals []Individual `xml:"Indvls>Indvl"`
}

// Individual is one Indvl element
type Individual struct {
	Info       []Element   `xml:"Info"`
	Containers []Container `xml:",any"`
}

// Container is any child element of an Indvl other than Info, such as Exms
type Container struct {
	XMLName  xml.Name
	Children []Element `xml:",any"`
}

// Element keeps the attributes of an element in document order
type Element struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
}

// InfoElement returns the first Info element of the individual
func (ind Individual) InfoElement() (Element, bool) {
	if len(ind.Info) == 0 {
		return Element{}, false
	}
	return ind.Info[0], true
}

// Children returns every child element named child of every container named
// container, in document order.
func (ind Individual) Children(container, child string) []Element {
	var out []Element
	for _, c := range ind.Containers {
		if c.XMLName.Local != container {
			continue
		}
		for _, e := range c.Children {
			if e.XMLName.Local == child {
				out = append(out, e)
			}
		}
	}
	return out
}

// Keys returns the attribute names in document order. Namespace declarations
// are skipped and namespaced names are written as {uri}local.
func (e Element) Keys() []string {
	keys := make([]string, 0, len(e.Attrs))
	for _, a := range e.Attrs {
		if isNamespaceDecl(a) {
			continue
		}
		keys = append(keys, attrKey(a.Name))
	}
	return keys
}

// Values returns the attribute values in the same order as Keys
func (e Element) Values() []string {
	values := make([]string, 0, len(e.Attrs))
	for _, a := range e.Attrs {
		if isNamespaceDecl(a) {
			continue
		}
		values = append(values, a.Value)
	}
	return values
}

// Attr returns the value of the named attribute, or "" when it is absent
func (e Element) Attr(name string) string {
	for _, a := range e.Attrs {
		if !isNamespaceDecl(a) && attrKey(a.Name) == name {
			return a.Value
		}
	}
	return ""
}

func isNamespaceDecl(a xml.Attr) bool {
	return a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns")
}

func attrKey(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}

// Parse decodes one document from r. Syntax errors, an empty input and any
// element or text after the root element are returned as *ParseError. Declared encodings other than UTF-8 are decoded
// through x/net/html/charset; an unknown one is a plain error.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		var syntaxErr *xml.SyntaxError
		switch {
		case errors.As(err, &syntaxErr):
			return nil, &ParseError{Line: syntaxErr.Line, Err: err}
		case errors.Is(err, io.EOF):
			return nil, &ParseError{Err: errors.New("no element found")}
		}
		var unmarshalErr xml.UnmarshalError
		if errors.As(err, &unmarshalErr) {
			return nil, &ParseError{Err: err}
		}
		return nil, err
	}

	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return &doc, nil
}

// expectEOF consumes the rest of the input after the root element. Only
// whitespace, comments and processing instructions may follow it.
func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var syntaxErr *xml.SyntaxError
			if errors.As(err, &syntaxErr) {
				return &ParseError{Line: syntaxErr.Line, Err: err}
			}
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			return junkAfterRoot(dec)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return junkAfterRoot(dec)
			}
		}
	}
}

func junkAfterRoot(dec *xml.Decoder) error {
	line, _ := dec.InputPos()
	return &ParseError{Line: line, Err: errors.New("junk after document element")}
}
