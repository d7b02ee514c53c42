// Package markedcontent maintains the single open marked-content region
// across fragment render calls and emits the BDC/BMC/EMC operator
// sequences that delimit tagged and artifact content.
package markedcontent

import (
	"fmt"

	"github.com/wudi/pdftag/observability"
	"github.com/wudi/pdftag/semtree"
	"github.com/wudi/pdftag/tagging"
)

// Region is the currently open marked-content block. At most one region
// is open at any time; MCIDs are strictly increasing and never reused.
type Region struct {
	NodeID    string
	StructTag string
	MCID      int
}

// FragmentEvent records one opened region. Continuations of an already
// open region do not add events. The log order is significant: the
// structure-tree builder replays it as an ordered sequence.
type FragmentEvent struct {
	StructTag string
	MCID      int
	Page      int
	Node      *semtree.Node
}

// Fragment tells the caller how to wrap one rendered fragment: Before is
// emitted ahead of the fragment's content operators, After behind them.
// Tracked reports whether the fragment renders inside a tagged region;
// artifact-wrapped and untagged fragments are not tracked.
type Fragment struct {
	Before  string
	After   string
	Tracked bool
}

// Operator constructors. The token forms are fixed; structure tags and
// MCIDs are the only variable parts.
func OpenRegionOp(structTag string, mcid int) string {
	return fmt.Sprintf("/%s <</MCID %d>> BDC\n", structTag, mcid)
}

const (
	CloseOp        = "EMC\n"
	OpenArtifactOp = "/Artifact BMC\n"
)

// StateMachine owns the open region, the MCID counter and the event log.
// It is driven synchronously by the layout traversal; calls must not be
// reentrant.
type StateMachine struct {
	region   *Region
	nextMCID int
	depth    int
	events   []FragmentEvent
	log      observability.Logger
}

type Option func(*StateMachine)

func WithLogger(log observability.Logger) Option {
	return func(m *StateMachine) { m.log = log }
}

func NewStateMachine(opts ...Option) *StateMachine {
	m := &StateMachine{log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Region returns a copy of the open region, or nil.
func (m *StateMachine) Region() *Region {
	if m.region == nil {
		return nil
	}
	r := *m.region
	return &r
}

// Depth is 0 with no region open and 1 inside a text region. Drawing
// overrides consult it to suppress graphics-state operators that would
// otherwise land inside a tagged region.
func (m *StateMachine) Depth() int { return m.depth }

// Events returns the append-only log of opened regions.
func (m *StateMachine) Events() []FragmentEvent { return m.events }

// ProcessFragment applies one tagging decision and returns the operators
// wrapping the fragment's content.
func (m *StateMachine) ProcessFragment(d tagging.Decision, page int) Fragment {
	switch d.Kind {
	case tagging.KindArtifact:
		// A genuine artifact always force-closes: continuation across an
		// artifact gap is not preserved.
		before := m.close() + OpenArtifactOp
		return Fragment{Before: before, After: CloseOp}

	case tagging.KindTransparent:
		return Fragment{}

	case tagging.KindTagged, tagging.KindInherit:
		if m.region != nil && m.region.NodeID == d.Node.ID {
			// Continuation: one semantic paragraph arrives as many
			// fragments, one per line or styling run.
			return Fragment{Tracked: true}
		}
		before := m.close() + m.open(d, page)
		return Fragment{Before: before, Tracked: true}

	default:
		m.log.Warn("unknown decision kind", observability.Int("kind", int(d.Kind)))
		return Fragment{}
	}
}

// ForceClose closes any open region and returns the operator to emit.
// Called at end of page and end of document; an unterminated region is an
// invalid document.
func (m *StateMachine) ForceClose() string { return m.close() }

func (m *StateMachine) close() string {
	if m.region == nil {
		return ""
	}
	m.log.Debug("close region",
		observability.String("node", m.region.NodeID),
		observability.Int("mcid", m.region.MCID))
	m.region = nil
	m.depth--
	return CloseOp
}

func (m *StateMachine) open(d tagging.Decision, page int) string {
	mcid := m.nextMCID
	m.nextMCID++
	m.region = &Region{NodeID: d.Node.ID, StructTag: d.StructTag, MCID: mcid}
	m.depth++
	m.events = append(m.events, FragmentEvent{
		StructTag: d.StructTag,
		MCID:      mcid,
		Page:      page,
		Node:      d.Node,
	})
	m.log.Debug("open region",
		observability.String("node", d.Node.ID),
		observability.String("tag", d.StructTag),
		observability.Int("mcid", mcid),
		observability.Int("page", page))
	return OpenRegionOp(d.StructTag, mcid)
}
