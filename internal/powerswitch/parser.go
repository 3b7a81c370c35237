package powerswitch

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// outletColumns is the number of cells in an outlet data row. Rows with any
// other cell count are headers or separators.
const outletColumns = 5

// ParseStatus extracts the outlet table from the switch's index page.
//
// The administrator page is located by the first <td> whose text is exactly "1" (the
// first outlet number); the table is three ancestors up from that cell. When
// that fails the user-account layout is tried: a <th> with the text "#",
// again three ancestors up, and the snapshot is marked non-admin.
//
// The snapshot must contain exactly outletCount outlets numbered 1..outletCount,
// otherwise a parse error is returned.
func ParseStatus(page []byte, outletCount int) (*Snapshot, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, NewParseError("failed to parse status page", err)
	}

	admin := true
	root := ancestor(findElement(doc, atom.Td, "1"), 3)
	if root == nil {
		admin = false
		root = ancestor(findElement(doc, atom.Th, "#"), 3)
	}
	if root == nil {
		return nil, NewParseError("outlet table not found in status page", nil)
	}

	snapshot := &Snapshot{
		Admin: admin,
		Taken: time.Now(),
	}

	for _, row := range findAll(root, atom.Tr) {
		cells := childElements(row, atom.Td)
		if len(cells) != outletColumns {
			continue
		}

		index, err := strconv.Atoi(strings.TrimSpace(textContent(cells[0])))
		if err != nil {
			return nil, NewParseError(fmt.Sprintf("invalid outlet number %q", textContent(cells[0])), err)
		}

		snapshot.Outlets = append(snapshot.Outlets, Outlet{
			Index: index,
			Name:  strings.TrimSpace(textContent(cells[1])),
			State: ParseState(stateText(cells[2])),
		})
	}

	if err := validateOutlets(snapshot.Outlets, outletCount); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// validateOutlets enforces the contiguous 1..N numbering invariant
func validateOutlets(outlets []Outlet, outletCount int) error {
	if len(outlets) != outletCount {
		return NewParseError(fmt.Sprintf("expected %d outlets, found %d", outletCount, len(outlets)), nil)
	}
	for i, o := range outlets {
		if o.Index != i+1 {
			return NewParseError(fmt.Sprintf("outlet %d found at row %d", o.Index, i+1), nil)
		}
	}
	return nil
}

// ParseLoginForm returns the name/value pairs of every named <input> on the
// login page.
func ParseLoginForm(r io.Reader) (map[string]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, NewParseError("failed to parse login page", err)
	}

	fields := make(map[string]string)
	for _, input := range findAll(doc, atom.Input) {
		name := attr(input, "name")
		if name == "" {
			continue
		}
		fields[name] = attr(input, "value")
	}
	return fields, nil
}

// stateText reads the state label from the nested <font> the firmware uses to
// color it, falling back to <span>/<b> and finally the cell's own text.
func stateText(cell *html.Node) string {
	for _, a := range []atom.Atom{atom.Font, atom.Span, atom.B} {
		if nodes := findAll(cell, a); len(nodes) > 0 {
			return textContent(nodes[0])
		}
	}
	return textContent(cell)
}

// findElement returns the first element of type a whose text is exactly text.
// Surrounding whitespace is significant: the user-account page pads its
// outlet numbers, which is what tells the two layouts apart.
func findElement(n *html.Node, a atom.Atom, text string) *html.Node {
	for _, el := range findAll(n, a) {
		if textContent(el) == text {
			return el
		}
	}
	return nil
}

// findAll returns every descendant element of type a in document order
func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// childElements returns the direct children of n of type a
func childElements(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
	}
	return out
}

func ancestor(n *html.Node, levels int) *html.Node {
	for i := 0; i < levels && n != nil; i++ {
		n = n.Parent
	}
	return n
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
