// Package semtree holds the semantic node tree built by the layout engine.
// The tree is built once, in parent-before-child order, and is immutable
// afterward; all tagging decisions are derived from it.
package semtree

import (
	"fmt"
	"strings"
)

// Node is one semantic element. Text runs are nodes with tag "#text" and
// their text in Display.
type Node struct {
	ID      string
	Tag     string // lowercase element name, or "#text"
	Attrs   map[string]string
	Display string
	Parent  *Node
	Kids    []*Node

	seq   int
	depth int
}

// Seq is the node's registration order, monotonic in rendering order.
func (n *Node) Seq() int { return n.seq }

// Depth is the distance from the node to its root (root depth is 0).
func (n *Node) Depth() int { return n.depth }

func (n *Node) IsText() bool { return n.Tag == "#text" }

func (n *Node) IsLineBreak() bool { return n.Tag == "br" }

// IsDecorative reports whether the node carries an explicit hidden or
// presentation marker and must never contribute tagged content.
func (n *Node) IsDecorative() bool {
	if n.Attrs == nil {
		return false
	}
	if v, ok := n.Attrs["aria-hidden"]; ok && v == "true" {
		return true
	}
	if v, ok := n.Attrs["role"]; ok && (v == "presentation" || v == "none") {
		return true
	}
	_, hidden := n.Attrs["hidden"]
	return hidden
}

// decorationTags are elements whose rendered line primitives (underline,
// strike) belong to the text they wrap.
var decorationTags = map[string]bool{
	"u": true, "s": true, "strike": true, "del": true, "ins": true,
}

// HasTextDecoration reports whether the node itself requests a text
// decoration, via its tag or an inline text-decoration style.
func (n *Node) HasTextDecoration() bool {
	if decorationTags[n.Tag] {
		return true
	}
	style := n.Attrs["style"]
	if style == "" {
		return false
	}
	if !strings.Contains(style, "text-decoration") {
		return false
	}
	return strings.Contains(style, "underline") ||
		strings.Contains(style, "line-through") ||
		strings.Contains(style, "overline")
}

var tableTags = map[string]bool{
	"table": true, "thead": true, "tbody": true, "tfoot": true,
	"tr": true, "td": true, "th": true, "caption": true, "colgroup": true,
}

// IsTableRelated reports whether the node is part of table structure.
func (n *Node) IsTableRelated() bool { return tableTags[n.Tag] }

// Tree is an arena of nodes with O(1) id lookup. Nodes are registered in
// topological (parent first) order and never mutated after registration.
type Tree struct {
	nodes map[string]*Node
	order []*Node
}

func NewTree() *Tree {
	return &Tree{nodes: make(map[string]*Node)}
}

// AddNode registers a node. The parent, when given, must already be
// registered; a duplicate id or unknown parent is a caller error.
func (t *Tree) AddNode(id, tag string, attrs map[string]string, display, parentID string) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("semtree: empty node id")
	}
	if _, dup := t.nodes[id]; dup {
		return nil, fmt.Errorf("semtree: duplicate node id %q", id)
	}
	n := &Node{
		ID:      id,
		Tag:     strings.ToLower(tag),
		Attrs:   attrs,
		Display: display,
		seq:     len(t.order),
	}
	if parentID != "" {
		parent, ok := t.nodes[parentID]
		if !ok {
			return nil, fmt.Errorf("semtree: node %q references unregistered parent %q", id, parentID)
		}
		n.Parent = parent
		n.depth = parent.depth + 1
		parent.Kids = append(parent.Kids, n)
	}
	t.nodes[id] = n
	t.order = append(t.order, n)
	return n, nil
}

// Lookup returns the node with the given id. A nil tree has no nodes.
func (t *Tree) Lookup(id string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.nodes[id]
	return n, ok
}

func (t *Tree) Len() int { return len(t.order) }

// InOrder returns all nodes in registration order.
func (t *Tree) InOrder() []*Node { return t.order }

// Recent returns up to n nodes, most recently registered first.
func (t *Tree) Recent(n int) []*Node {
	if t == nil {
		return nil
	}
	if n > len(t.order) {
		n = len(t.order)
	}
	out := make([]*Node, 0, n)
	for i := len(t.order) - 1; i >= len(t.order)-n; i-- {
		out = append(out, t.order[i])
	}
	return out
}

// Ancestors returns the parent chain of the node, nearest first.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}
