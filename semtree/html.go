package semtree

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// BuildFromHTML parses an HTML document and registers its body content as
// a semantic tree: one node per element, one "#text" node per non-empty
// text run, ids assigned in document order.
func BuildFromHTML(r io.Reader) (*Tree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	t := NewTree()
	b := &htmlBuilder{tree: t}
	if body := findBody(doc); body != nil {
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			if err := b.walk(c, ""); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

type htmlBuilder struct {
	tree   *Tree
	nextID int
}

func (b *htmlBuilder) walk(n *html.Node, parentID string) error {
	switch n.Type {
	case html.TextNode:
		text := n.Data
		if strings.TrimSpace(text) == "" {
			return nil
		}
		_, err := b.tree.AddNode(b.alloc(), "#text", nil, text, parentID)
		return err
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style || n.DataAtom == atom.Head {
			return nil
		}
		attrs := make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			attrs[a.Key] = a.Val
		}
		id := b.alloc()
		if _, err := b.tree.AddNode(id, n.Data, attrs, "", parentID); err != nil {
			return err
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := b.walk(c, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *htmlBuilder) alloc() string {
	b.nextID++
	return strconv.Itoa(b.nextID)
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}
