// Package structtree builds the cross-referenced structure-element object
// graph after all pages are rendered: structure elements, the parent
// tree, the synthetic Document root and the struct-tree root.
package structtree

import (
	"errors"
	"fmt"
	"sort"

	"github.com/wudi/pdftag/markedcontent"
	"github.com/wudi/pdftag/observability"
	"github.com/wudi/pdftag/raw"
	"github.com/wudi/pdftag/semtree"
	"github.com/wudi/pdftag/tagging"
	"github.com/wudi/pdftag/writer"
)

// ErrPlanMismatch means an object id allocated during emission diverged
// from the pre-computed plan. The document graph now contains dangling
// references; the build must stop rather than emit a corrupt file.
var ErrPlanMismatch = errors.New("structtree: allocated object id diverged from plan")

// Annotation is one link annotation to expose as a Link structure
// element. StructParent indices count from 1; index 0 is the page
// content's marked-content array.
type Annotation struct {
	ObjectID     int
	Kind         string
	URL          string
	Page         int
	StructParent int
}

// Element is one structure element scheduled for emission.
type Element struct {
	Node      *semtree.Node
	StructTag string
	ObjectID  int
	ParentID  int
	MCIDs     []int
	Page      int // first page the node rendered on; 0 for containers
	KidIDs    []int
	Alt       string
}

// Rendered reports whether the element owns marked content directly.
func (e *Element) Rendered() bool { return len(e.MCIDs) > 0 }

// Builder runs once at document close. After Build it answers the
// catalog writer's queries.
type Builder struct {
	log observability.Logger

	built    bool
	empty    bool
	rootID   int
	elements []*Element
}

type Option func(*Builder)

func WithLogger(log observability.Logger) Option {
	return func(b *Builder) { b.log = log }
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IsEmpty reports whether no structure tree was emitted.
func (b *Builder) IsEmpty() bool { return b.empty || !b.built }

// StructTreeRootID returns the struct-tree-root object id once built.
func (b *Builder) StructTreeRootID() (int, bool) {
	if !b.built || b.empty {
		return 0, false
	}
	return b.rootID, true
}

// Elements returns the emitted structure elements in emission order.
func (b *Builder) Elements() []*Element { return b.elements }

// Build consumes the ordered event log and emits the structure object
// graph through the sink. An empty log is a silent no-op: an untagged
// document is valid, merely non-compliant.
func (b *Builder) Build(events []markedcontent.FragmentEvent, tree *semtree.Tree, annots []Annotation, sink writer.DocumentSink) error {
	if b.built {
		return errors.New("structtree: Build called twice")
	}
	b.built = true
	if len(events) == 0 {
		b.empty = true
		b.log.Info("no tagged content, skipping structure tree")
		return nil
	}

	elements := collect(events)

	// Parents must receive object ids before children: depth ascending,
	// registration order as the tie-break.
	sort.Slice(elements, func(i, j int) bool {
		di, dj := elements[i].Node.Depth(), elements[j].Node.Depth()
		if di != dj {
			return di < dj
		}
		return elements[i].Node.Seq() < elements[j].Node.Seq()
	})

	// Pre-compute the id plan. Every body contains forward references,
	// so ids are fixed before anything is allocated from the sink.
	plan := newIDPlan(sink.NextObjectID(), elements, annots)

	byNode := make(map[*semtree.Node]*Element, len(elements))
	for _, e := range elements {
		byNode[e.Node] = e
	}
	for _, e := range elements {
		if p := nearestTracked(e.Node, byNode); p != nil {
			e.ParentID = p.ObjectID
			p.KidIDs = append(p.KidIDs, e.ObjectID)
		} else {
			e.ParentID = plan.docRootID
		}
	}
	// Kid lists follow document order, not emission order.
	seqByID := make(map[int]int, len(elements))
	for _, e := range elements {
		seqByID[e.ObjectID] = e.Node.Seq()
	}
	for _, e := range elements {
		sort.Slice(e.KidIDs, func(i, j int) bool {
			return seqByID[e.KidIDs[i]] < seqByID[e.KidIDs[j]]
		})
	}

	if err := b.emit(elements, events, annots, plan, byNode, sink); err != nil {
		return err
	}

	b.elements = elements
	b.rootID = plan.rootID
	b.log.Info("structure tree built",
		observability.Int("elements", len(elements)),
		observability.Int("links", len(annots)),
		observability.Int("root", b.rootID))
	return nil
}

// collect gathers every node referenced by an event plus all its
// ancestors; containers like table rows or the body are included even
// when never directly rendered.
func collect(events []markedcontent.FragmentEvent) []*Element {
	byNode := make(map[*semtree.Node]*Element)
	ensure := func(n *semtree.Node, tag string) *Element {
		if e, ok := byNode[n]; ok {
			return e
		}
		e := &Element{Node: n, StructTag: tag, Alt: n.Attrs["alt"]}
		byNode[n] = e
		return e
	}

	var out []*Element
	for _, ev := range events {
		e := ensure(ev.Node, ev.StructTag)
		e.MCIDs = append(e.MCIDs, ev.MCID)
		if e.Page == 0 {
			e.Page = ev.Page
		}
		for p := ev.Node.Parent; p != nil; p = p.Parent {
			ensure(p, tagging.StructTagFor(p.Tag))
		}
	}
	for _, e := range byNode {
		out = append(out, e)
	}
	return out
}

func nearestTracked(n *semtree.Node, byNode map[*semtree.Node]*Element) *Element {
	for p := n.Parent; p != nil; p = p.Parent {
		if e, ok := byNode[p]; ok {
			return e
		}
	}
	return nil
}

type idPlan struct {
	linkIDs      []int
	parentTreeID int
	docRootID    int
	rootID       int
}

func newIDPlan(next int, elements []*Element, annots []Annotation) idPlan {
	for _, e := range elements {
		e.ObjectID = next
		next++
	}
	var plan idPlan
	for range annots {
		plan.linkIDs = append(plan.linkIDs, next)
		next++
	}
	plan.parentTreeID = next
	plan.docRootID = next + 1
	plan.rootID = next + 2
	return plan
}

// emit writes every planned object, verifying each id the sink hands out
// against the plan.
func (b *Builder) emit(elements []*Element, events []markedcontent.FragmentEvent, annots []Annotation, plan idPlan, byNode map[*semtree.Node]*Element, sink writer.DocumentSink) error {
	alloc := func(want int) error {
		got := sink.AllocateObjectID()
		if got != want {
			b.log.Error("id plan mismatch",
				observability.Int("want", want),
				observability.Int("got", got))
			return fmt.Errorf("%w: want %d, sink allocated %d", ErrPlanMismatch, want, got)
		}
		return nil
	}

	for _, e := range elements {
		if err := alloc(e.ObjectID); err != nil {
			return err
		}
		if err := sink.WriteObject(e.ObjectID, b.elementBody(e, sink)); err != nil {
			return err
		}
	}

	for i, a := range annots {
		id := plan.linkIDs[i]
		if err := alloc(id); err != nil {
			return err
		}
		if err := sink.WriteObject(id, linkBody(a, plan.docRootID, sink)); err != nil {
			return err
		}
	}

	if err := alloc(plan.parentTreeID); err != nil {
		return err
	}
	if err := sink.WriteObject(plan.parentTreeID, parentTreeBody(events, annots, plan, byNode)); err != nil {
		return err
	}

	if err := alloc(plan.docRootID); err != nil {
		return err
	}
	if err := sink.WriteObject(plan.docRootID, docRootBody(elements, plan)); err != nil {
		return err
	}

	if err := alloc(plan.rootID); err != nil {
		return err
	}
	return sink.WriteObject(plan.rootID, rootBody(annots, plan))
}

func (b *Builder) elementBody(e *Element, sink writer.DocumentSink) raw.Object {
	dict := raw.Dict()
	dict.Set("Type", raw.Name("StructElem"))
	dict.Set("S", raw.Name(e.StructTag))
	dict.Set("P", raw.Ref(e.ParentID))

	var kids []raw.Object
	for _, mcid := range e.MCIDs {
		kids = append(kids, raw.Int(int64(mcid)))
	}
	for _, id := range e.KidIDs {
		kids = append(kids, raw.Ref(id))
	}
	switch len(kids) {
	case 0:
		// A container that ended up with no kids still needs a /K key
		// present; an empty array keeps readers from treating it as a
		// leaf with content.
		dict.Set("K", raw.NewArray())
	case 1:
		dict.Set("K", kids[0])
	default:
		dict.Set("K", raw.NewArray(kids...))
	}

	if e.Rendered() {
		if pageID, ok := sink.PageObjectID(e.Page); ok {
			dict.Set("Pg", raw.Ref(pageID))
		} else {
			b.log.Warn("rendered element without page object",
				observability.String("node", e.Node.ID),
				observability.Int("page", e.Page))
		}
	}
	if e.Alt != "" && e.StructTag == "Figure" {
		dict.Set("Alt", raw.Str([]byte(e.Alt)))
	}
	return dict
}

func linkBody(a Annotation, parentID int, sink writer.DocumentSink) raw.Object {
	dict := raw.Dict()
	dict.Set("Type", raw.Name("StructElem"))
	dict.Set("S", raw.Name("Link"))
	dict.Set("P", raw.Ref(parentID))
	objr := raw.Dict()
	objr.Set("Type", raw.Name("OBJR"))
	objr.Set("Obj", raw.Ref(a.ObjectID))
	dict.Set("K", objr)
	if pageID, ok := sink.PageObjectID(a.Page); ok {
		dict.Set("Pg", raw.Ref(pageID))
	}
	return dict
}

// parentTreeBody maps key 0 to the per-MCID element array and each link
// annotation's struct-parent index to its Link element.
func parentTreeBody(events []markedcontent.FragmentEvent, annots []Annotation, plan idPlan, byNode map[*semtree.Node]*Element) raw.Object {
	ordered := make([]markedcontent.FragmentEvent, len(events))
	copy(ordered, events)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].MCID < ordered[j].MCID })

	mcidArr := raw.NewArray()
	for _, ev := range ordered {
		mcidArr.Append(raw.Ref(byNode[ev.Node].ObjectID))
	}

	nums := raw.NewArray(raw.Int(0), mcidArr)
	for i, a := range annots {
		nums.Append(raw.Int(int64(a.StructParent)))
		nums.Append(raw.Ref(plan.linkIDs[i]))
	}
	dict := raw.Dict()
	dict.Set("Nums", nums)
	return dict
}

func docRootBody(elements []*Element, plan idPlan) raw.Object {
	dict := raw.Dict()
	dict.Set("Type", raw.Name("StructElem"))
	dict.Set("S", raw.Name("Document"))
	dict.Set("P", raw.Ref(plan.rootID))
	kids := raw.NewArray()
	for _, e := range elements {
		if e.ParentID == plan.docRootID {
			kids.Append(raw.Ref(e.ObjectID))
		}
	}
	for _, id := range plan.linkIDs {
		kids.Append(raw.Ref(id))
	}
	dict.Set("K", kids)
	return dict
}

func rootBody(annots []Annotation, plan idPlan) raw.Object {
	dict := raw.Dict()
	dict.Set("Type", raw.Name("StructTreeRoot"))
	dict.Set("K", raw.Ref(plan.docRootID))
	dict.Set("ParentTree", raw.Ref(plan.parentTreeID))
	next := 1
	for _, a := range annots {
		if a.StructParent >= next {
			next = a.StructParent + 1
		}
	}
	dict.Set("ParentTreeNextKey", raw.Int(int64(next)))
	return dict
}
