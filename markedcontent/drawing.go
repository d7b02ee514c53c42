package markedcontent

import "github.com/wudi/pdftag/semtree"

// DrawClass classifies a non-text drawing operation against the open
// region.
type DrawClass int

const (
	// DrawArtifact: no region is open, the primitive is decoration.
	DrawArtifact DrawClass = iota
	// DrawContent: the primitive belongs to the tagged text (for example
	// an underline) and is drawn inside the region unmodified.
	DrawContent
	// DrawDecorativeInsideTag: decoration that interrupts an open region
	// and must be wrapped as an artifact without losing the region.
	DrawDecorativeInsideTag
)

// DrawDecision carries the classification and the exact wrap operators.
// When ReopensRegion is set, After re-opens the interrupted region with
// its original structure tag and MCID; the logical region is preserved
// across the interruption and no new event is logged.
type DrawDecision struct {
	Class         DrawClass
	Before, After string
	ReopensRegion bool
}

// ClassifyDrawing decides how a line/rect/curve primitive relates to the
// open region. It is pure: the state machine's region is read, never
// modified.
func ClassifyDrawing(region *Region, frameID string, tree *semtree.Tree) DrawDecision {
	if region == nil {
		return DrawDecision{
			Class:  DrawArtifact,
			Before: OpenArtifactOp,
			After:  CloseOp,
		}
	}

	regionNode, _ := tree.Lookup(region.NodeID)
	node, _ := tree.Lookup(frameID)

	if node != nil && node.ID == region.NodeID {
		return DrawDecision{Class: DrawContent}
	}

	// A decoration anywhere on the chain between the primitive and the
	// region's node belongs semantically to the tagged text, e.g. an
	// inline <u> wrapping part of a paragraph.
	if node != nil && chainHasDecoration(node, regionNode) {
		return DrawDecision{Class: DrawContent}
	}

	// Table borders drawn mid-cell must not truncate the cell's tagged
	// content: wrap as artifact, keep the region open.
	if regionNode != nil && regionNode.IsTableRelated() {
		return DrawDecision{
			Class:  DrawDecorativeInsideTag,
			Before: OpenArtifactOp,
			After:  CloseOp,
		}
	}

	// Generic decoration: close, draw as artifact, reopen the identical
	// region with the same MCID.
	return DrawDecision{
		Class:         DrawDecorativeInsideTag,
		Before:        CloseOp + OpenArtifactOp,
		After:         CloseOp + OpenRegionOp(region.StructTag, region.MCID),
		ReopensRegion: true,
	}
}

func chainHasDecoration(from, upTo *semtree.Node) bool {
	for n := from; n != nil; n = n.Parent {
		if n.HasTextDecoration() {
			return true
		}
		if upTo != nil && n == upTo {
			return false
		}
	}
	return false
}
