// Package tagging decides, per rendered fragment, whether the fragment is
// semantic content, decorative artifact content, or a styling-only
// pass-through.
package tagging

import "github.com/wudi/pdftag/semtree"

// Kind discriminates the Decision union. Exactly one variant is active.
type Kind int

const (
	// KindArtifact marks the fragment as decorative, excluded from the
	// logical structure.
	KindArtifact Kind = iota
	// KindTagged attaches the fragment to Node under StructTag.
	KindTagged
	// KindTransparent renders the fragment inside whatever region is
	// currently open.
	KindTransparent
	// KindInherit is KindTagged via a recovered ancestor: the fragment had
	// no semantic node of its own but a content container was found.
	KindInherit
)

func (k Kind) String() string {
	switch k {
	case KindArtifact:
		return "artifact"
	case KindTagged:
		return "tagged"
	case KindTransparent:
		return "transparent"
	case KindInherit:
		return "inherit"
	default:
		return "unknown"
	}
}

// Decision is the outcome of resolving one fragment. Node and StructTag
// are set only for KindTagged and KindInherit.
type Decision struct {
	Kind      Kind
	Node      *semtree.Node
	StructTag string
	Reason    string
}

func Artifact(reason string) Decision {
	return Decision{Kind: KindArtifact, Reason: reason}
}

func Tagged(node *semtree.Node) Decision {
	return Decision{Kind: KindTagged, Node: node, StructTag: StructTagFor(node.Tag)}
}

func Transparent(reason string) Decision {
	return Decision{Kind: KindTransparent, Reason: reason}
}

func Inherit(ancestor *semtree.Node, reason string) Decision {
	return Decision{Kind: KindInherit, Node: ancestor, StructTag: StructTagFor(ancestor.Tag), Reason: reason}
}

// Content reports whether the decision attaches the fragment to a
// structure element.
func (d Decision) Content() bool {
	return d.Kind == KindTagged || d.Kind == KindInherit
}
