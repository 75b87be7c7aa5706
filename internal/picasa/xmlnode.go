package picasa

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// XML namespaces used by the Picasa feeds and entry documents.
const (
	NamespaceAtom   = "http://www.w3.org/2005/Atom"
	NamespaceMedia  = "http://search.yahoo.com/mrss/"
	NamespaceGPhoto = "http://schemas.google.com/photos/2007"
)

// Node is one element of a parsed response document. Element and attribute
// names carry resolved namespace URIs, never document prefixes.
// All accessors are nil-safe so feed translation can walk optional
// elements without checking each step.
type Node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*Node

	text strings.Builder
}

// ParseDocument reads a complete XML document and returns its root element.
func ParseDocument(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)

	var (
		root  *Node
		stack []*Node
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("decoding xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name, Attrs: t.Copy().Attr}

			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("decoding xml: multiple root elements")
				}

				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}

			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("decoding xml: no root element")
	}

	return root, nil
}

// SelectInNamespace returns the first direct child of n whose namespace URI
// and local name match, or nil. An empty namespaceURI matches elements that
// are in no namespace (plain RSS).
func SelectInNamespace(n *Node, namespaceURI, localName string) *Node {
	if n == nil {
		return nil
	}

	for _, c := range n.Children {
		if c.Name.Space == namespaceURI && c.Name.Local == localName {
			return c
		}
	}

	return nil
}

// SelectAllInNamespace returns every direct child of n matching the
// namespace URI and local name, in document order.
func SelectAllInNamespace(n *Node, namespaceURI, localName string) []*Node {
	if n == nil {
		return nil
	}

	var out []*Node

	for _, c := range n.Children {
		if c.Name.Space == namespaceURI && c.Name.Local == localName {
			out = append(out, c)
		}
	}

	return out
}

// Attr returns the value of the un-namespaced attribute name, or "".
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}

	for _, a := range n.Attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value
		}
	}

	return ""
}

// Text returns the trimmed character data directly inside n.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}

	return strings.TrimSpace(n.text.String())
}
