package tagging

import (
	"strconv"

	"github.com/wudi/pdftag/observability"
	"github.com/wudi/pdftag/semtree"
)

// adjacencyWindow bounds the last-resort search for a content container
// near an unregistered frame id.
const adjacencyWindow = 32

// Resolver turns frame ids into tagging decisions. It is stateless; the
// logger only records decisions for diagnostics.
type Resolver struct {
	log observability.Logger
}

type ResolverOption func(*Resolver)

func WithLogger(log observability.Logger) ResolverOption {
	return func(r *Resolver) { r.log = log }
}

func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve classifies the fragment identified by frameID. An empty frameID
// means the caller rendered outside any semantic scope. Rules are checked
// in order; the first match wins.
func (r *Resolver) Resolve(frameID string, tree *semtree.Tree) Decision {
	d := r.resolve(frameID, tree)
	r.log.Debug("tagging decision",
		observability.String("frame", frameID),
		observability.String("kind", d.Kind.String()),
		observability.String("tag", d.StructTag),
		observability.String("reason", d.Reason))
	return d
}

func (r *Resolver) resolve(frameID string, tree *semtree.Tree) Decision {
	if frameID == "" {
		return Artifact("no frame id")
	}

	node, ok := tree.Lookup(frameID)
	if !ok {
		if anc := nearestRegisteredContainer(frameID, tree); anc != nil {
			return Inherit(anc, "no semantic node, adjacent container "+anc.ID)
		}
		return Artifact("no semantic node")
	}

	if node.IsDecorative() {
		return Artifact("decorative node " + node.ID)
	}

	if IsTransparentTag(node.Tag) {
		return Transparent("inline tag " + node.Tag)
	}

	if node.IsText() {
		if anc := contentAncestor(node); anc != nil {
			return Tagged(anc)
		}
		return Artifact("text node without content ancestor")
	}

	return Tagged(node)
}

// contentAncestor walks up from a text node to the nearest element that
// contributes a structure element of its own.
func contentAncestor(n *semtree.Node) *semtree.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.IsDecorative() {
			return nil
		}
		if p.IsText() || IsTransparentTag(p.Tag) {
			continue
		}
		return p
	}
	return nil
}

// nearestRegisteredContainer is the last-resort recovery path for frame
// ids that never made it into the tree: probe numerically adjacent ids
// below the missing one, then fall back to the most recently registered
// nodes, taking the first content container found.
func nearestRegisteredContainer(frameID string, tree *semtree.Tree) *semtree.Node {
	if num, err := strconv.Atoi(frameID); err == nil {
		for i := num - 1; i > 0 && i >= num-adjacencyWindow; i-- {
			n, ok := tree.Lookup(strconv.Itoa(i))
			if !ok {
				continue
			}
			if isContentContainer(n) {
				return n
			}
		}
		return nil
	}
	for _, n := range tree.Recent(adjacencyWindow) {
		if isContentContainer(n) {
			return n
		}
	}
	return nil
}

func isContentContainer(n *semtree.Node) bool {
	return !n.IsText() && !n.IsLineBreak() && !IsTransparentTag(n.Tag) && !n.IsDecorative()
}
