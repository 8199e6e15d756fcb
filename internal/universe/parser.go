package universe

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SymbolHeader is the header of the membership table column holding the symbols
const SymbolHeader = "Symbol"

// ErrNoSymbols is returned when a membership page has no usable symbol column
var ErrNoSymbols = errors.New("no symbols found")

// ParseSymbols reads the symbols listed under the Symbol column of the first table
// in an HTML document, in table order. Duplicates and blank cells are skipped.
func ParseSymbols(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse membership page: %w", err)
	}

	table := find(doc, atom.Table)
	if table == nil {
		return nil, fmt.Errorf("%w: page has no table", ErrNoSymbols)
	}

	column := -1
	seen := make(map[string]bool)
	var symbols []string
	for _, row := range findAll(table, atom.Tr) {
		cells := cellsOf(row)
		if column < 0 {
			for i, c := range cells {
				if c.DataAtom == atom.Th && strings.EqualFold(text(c), SymbolHeader) {
					column = i
					break
				}
			}
			continue
		}
		if column >= len(cells) || cells[column].DataAtom != atom.Td {
			continue
		}
		symbol := strings.ToUpper(text(cells[column]))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	}

	if column < 0 {
		return nil, fmt.Errorf("%w: first table has no %s column", ErrNoSymbols, SymbolHeader)
	}
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	return symbols, nil
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
			continue
		}
		// nested tables belong to their own cell, not to this table
		if c.Type == html.ElementNode && c.DataAtom == atom.Table {
			continue
		}
		out = append(out, findAll(c, a)...)
	}
	return out
}

func cellsOf(row *html.Node) []*html.Node {
	var cells []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, c)
		}
	}
	return cells
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
