// Package htmldoc hosts patchbay players in an HTML document parsed with
// golang.org/x/net/html.
package htmldoc

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/himanshub16/patchbay/patchbay"
)

// Document is a parsed page. Like a browser DOM it is not safe for
// concurrent use; run it on the patchbay loop.
type Document struct {
	root   *html.Node
	clicks map[*html.Node][]func()
}

// Parse reads a whole HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{
		root:   root,
		clicks: make(map[*html.Node][]func()),
	}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Render writes the document, including every class and text change the
// players made.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// ByID returns the element with the given id attribute.
func (d *Document) ByID(id string) (patchbay.Node, bool) {
	n := d.byID(id)
	if n == nil {
		return nil, false
	}
	return d.wrap(n), true
}

func (d *Document) byID(id string) *html.Node {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if v, ok := attr(n, "id"); ok && v == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// scopeRoot resolves a sweep scope: empty or "document" is the whole page,
// anything else is an element id with an optional leading '#'.
func (d *Document) scopeRoot(scope string) *html.Node {
	scope = strings.TrimPrefix(strings.TrimSpace(scope), "#")
	if scope == "" || scope == "document" {
		return d.root
	}
	return d.byID(scope)
}

// Append parses fragment as children of the scope element and appends them.
func (d *Document) Append(scope, fragment string) error {
	parent := d.scopeRoot(scope)
	if parent == nil {
		return fmt.Errorf("htmldoc: no element %q", scope)
	}
	if parent == d.root {
		parent = d.body()
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

func (d *Document) body() *html.Node {
	body := d.root
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})
	return body
}

// Sweep implements patchbay.Document.
func (d *Document) Sweep(scope string) (masters []patchbay.Node, tracks []patchbay.Node) {
	walk(d.root, func(n *html.Node) bool {
		if _, ok := attr(n, patchbay.AttrMaster); ok && !claimed(n) {
			masters = append(masters, d.wrap(n))
		}
		return true
	})

	root := d.scopeRoot(scope)
	if root == nil {
		return masters, nil
	}
	walk(root, func(n *html.Node) bool {
		if _, ok := attr(n, patchbay.AttrTrack); ok && !claimed(n) {
			tracks = append(tracks, d.wrap(n))
		}
		return true
	})
	return masters, tracks
}

func claimed(n *html.Node) bool {
	return hasClass(n, patchbay.ClassBound) || hasClass(n, patchbay.ClassInitialized)
}

func (d *Document) wrap(n *html.Node) *Element {
	return &Element{doc: d, n: n}
}

// walk visits n and its descendants in document order until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) (string, bool) {
	if n.Type != html.ElementNode {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, _ := attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}
