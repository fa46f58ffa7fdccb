package htmldoc

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/himanshub16/patchbay/patchbay"
)

// Element is a patchbay.Node backed by an html.Node.
type Element struct {
	doc *Document
	n   *html.Node
}

var _ patchbay.Node = (*Element)(nil)

func (e *Element) Attr(name string) (string, bool) {
	return attr(e.n, name)
}

func (e *Element) SetAttr(name, value string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
}

// Text returns the trimmed text content of the element.
func (e *Element) Text() string {
	var b strings.Builder
	walk(e.n, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return strings.TrimSpace(b.String())
}

// SetText replaces every child with a single text node.
func (e *Element) SetText(text string) {
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
	}
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func (e *Element) HasClass(name string) bool {
	return hasClass(e.n, name)
}

func (e *Element) AddClass(name string) {
	if e.HasClass(name) {
		return
	}
	v, _ := e.Attr("class")
	e.SetAttr("class", strings.TrimSpace(v+" "+name))
}

func (e *Element) RemoveClass(name string) {
	v, ok := e.Attr("class")
	if !ok {
		return
	}
	var kept []string
	for _, c := range strings.Fields(v) {
		if c != name {
			kept = append(kept, c)
		}
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

// Find returns the descendants of e carrying attr, in document order.
func (e *Element) Find(name string) []patchbay.Node {
	var found []patchbay.Node
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(n *html.Node) bool {
			if _, ok := attr(n, name); ok {
				found = append(found, e.doc.wrap(n))
			}
			return true
		})
	}
	return found
}

func (e *Element) OnClick(fn func()) {
	e.doc.clicks[e.n] = append(e.doc.clicks[e.n], fn)
}

// Click runs the click handlers of the element in registration order.
func (e *Element) Click() {
	for _, fn := range e.doc.clicks[e.n] {
		fn()
	}
}
