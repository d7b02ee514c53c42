// Package engine drives the tagging core the way a layout traversal
// does: it announces the current frame before each render dispatch,
// issues one render call per text run or drawing primitive, and closes
// regions at page and document boundaries. Layout itself is deliberately
// naive; visual fidelity is out of scope.
package engine

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wudi/pdftag/markedcontent"
	"github.com/wudi/pdftag/observability"
	"github.com/wudi/pdftag/raw"
	"github.com/wudi/pdftag/semtree"
	"github.com/wudi/pdftag/structtree"
	"github.com/wudi/pdftag/tagging"
	"github.com/wudi/pdftag/writer"
)

// Margins defines page margins in points.
type Margins struct {
	Top, Bottom, Left, Right float64
}

type Engine struct {
	doc      *writer.Document
	tree     *semtree.Tree
	resolver *tagging.Resolver
	sm       *markedcontent.StateMachine
	builder  *structtree.Builder
	log      observability.Logger

	DefaultFontSize float64
	LineHeight      float64
	Margins         Margins

	currentFrame string
	cursorX      float64
	cursorY      float64
	closed       bool
}

type Option func(*Engine)

func WithLogger(log observability.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func WithFontSize(size float64) Option {
	return func(e *Engine) { e.DefaultFontSize = size }
}

func WithMargins(m Margins) Option {
	return func(e *Engine) { e.Margins = m }
}

func New(doc *writer.Document, opts ...Option) *Engine {
	e := &Engine{
		doc:             doc,
		log:             observability.NopLogger{},
		DefaultFontSize: 12,
		LineHeight:      1.2,
		Margins:         Margins{Top: 50, Bottom: 50, Left: 50, Right: 50},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = tagging.NewResolver(tagging.WithLogger(e.log))
	e.sm = markedcontent.NewStateMachine(markedcontent.WithLogger(e.log))
	e.builder = structtree.NewBuilder(structtree.WithLogger(e.log))
	return e
}

// NotifyCurrentFrame records the semantic node the next render calls
// belong to. An empty id clears the frame when leaving scope.
func (e *Engine) NotifyCurrentFrame(id string) { e.currentFrame = id }

func (e *Engine) CurrentFrame() string { return e.currentFrame }

// StateMachine exposes the region state for tests and callers that embed
// the engine in a larger pipeline.
func (e *Engine) StateMachine() *markedcontent.StateMachine { return e.sm }

// Builder exposes the structure-tree builder; its element list and root
// id are valid after Close.
func (e *Engine) Builder() *structtree.Builder { return e.builder }

// DrawText renders one text run at the cursor position.
func (e *Engine) DrawText(text string, x, y, size float64) {
	d := e.resolver.Resolve(e.currentFrame, e.tree)
	frag := e.sm.ProcessFragment(d, e.page())
	var b strings.Builder
	b.WriteString(frag.Before)
	fmt.Fprintf(&b, "BT /F1 %s Tf %s %s Td %s Tj ET\n",
		num(size), num(x), num(y), raw.Serialize(raw.Str([]byte(text))))
	b.WriteString(frag.After)
	e.doc.AppendPageContent([]byte(b.String()))
}

// DrawRect strokes a rectangle, classified against the open region.
func (e *Engine) DrawRect(x, y, w, h float64) {
	op := fmt.Sprintf("%s %s %s %s re S\n", num(x), num(y), num(w), num(h))
	e.drawPrimitive(op)
}

// DrawLine strokes a line, classified against the open region.
func (e *Engine) DrawLine(x1, y1, x2, y2 float64) {
	op := fmt.Sprintf("%s %s m %s %s l S\n", num(x1), num(y1), num(x2), num(y2))
	e.drawPrimitive(op)
}

func (e *Engine) drawPrimitive(op string) {
	d := markedcontent.ClassifyDrawing(e.sm.Region(), e.currentFrame, e.tree)
	e.doc.AppendPageContent([]byte(d.Before + op + d.After))
}

// NewPage force-closes any open region before the page content is
// finalized; an unterminated region is an invalid document.
func (e *Engine) NewPage() {
	if emc := e.sm.ForceClose(); emc != "" {
		e.doc.AppendPageContent([]byte(emc))
	}
	e.doc.StartPage()
	e.cursorX = e.Margins.Left
	_, h := e.doc.PageSize()
	e.cursorY = h - e.Margins.Top
}

func (e *Engine) page() int {
	if e.doc.CurrentPage() == 0 {
		e.NewPage()
	}
	return e.doc.CurrentPage()
}

// Render lays out a semantic tree. It may be called once per document.
func (e *Engine) Render(tree *semtree.Tree) error {
	if e.closed {
		return fmt.Errorf("engine: render after close")
	}
	e.tree = tree
	e.page()
	for _, n := range tree.InOrder() {
		if n.Parent == nil {
			e.renderNode(n, e.DefaultFontSize)
		}
	}
	e.NotifyCurrentFrame("")
	return nil
}

// Close terminates the document: closes the last region, builds the
// structure tree from the event log, and serializes the file.
func (e *Engine) Close(out io.Writer) error {
	if e.closed {
		return fmt.Errorf("engine: closed twice")
	}
	e.closed = true
	if emc := e.sm.ForceClose(); emc != "" {
		e.doc.AppendPageContent([]byte(emc))
	}

	var annots []structtree.Annotation
	for _, l := range e.doc.Links() {
		annots = append(annots, structtree.Annotation{
			ObjectID:     l.ObjectID,
			Kind:         "Link",
			URL:          l.URL,
			Page:         l.Page,
			StructParent: l.StructParent,
		})
	}
	tree := e.tree
	if tree == nil {
		tree = semtree.NewTree()
	}
	if err := e.builder.Build(e.sm.Events(), tree, annots, e.doc); err != nil {
		return err
	}
	rootID, _ := e.builder.StructTreeRootID()
	_, err := e.doc.WriteTo(out, rootID)
	return err
}

// IsEmpty reports whether no tagged content was produced. Valid after
// Close.
func (e *Engine) IsEmpty() bool { return e.builder.IsEmpty() }

// StructTreeRootID returns the struct-tree-root object id. Valid after
// Close.
func (e *Engine) StructTreeRootID() (int, bool) { return e.builder.StructTreeRootID() }

func (e *Engine) renderNode(n *semtree.Node, size float64) {
	switch {
	case n.IsText():
		e.renderText(n, size)
	case n.IsLineBreak():
		e.advance(size * e.LineHeight)
	case n.Tag == "img":
		e.renderImage(n)
	case n.Tag == "table":
		e.renderTable(n, size)
	case n.Tag == "h1" || n.Tag == "h2" || n.Tag == "h3" ||
		n.Tag == "h4" || n.Tag == "h5" || n.Tag == "h6":
		e.renderKids(n, headingSize(n.Tag, e.DefaultFontSize))
		e.blockGap()
	case n.Tag == "li":
		e.renderBullet(size)
		e.renderKids(n, size)
		e.advance(size * e.LineHeight)
	case n.Tag == "a":
		e.renderLink(n, size)
	case n.HasTextDecoration():
		e.renderDecorated(n, size)
	default:
		e.renderKids(n, size)
		if isBlock(n.Tag) {
			e.blockGap()
		}
	}
}

func (e *Engine) renderKids(n *semtree.Node, size float64) {
	for _, kid := range n.Kids {
		e.renderNode(kid, size)
	}
}

// renderText issues one DrawText call per wrapped line: a single
// semantic paragraph arrives at the state machine as many fragments.
func (e *Engine) renderText(n *semtree.Node, size float64) {
	e.NotifyCurrentFrame(n.ID)
	defer e.NotifyCurrentFrame("")

	rightEdge := e.Margins.Left + e.contentWidth()
	for _, word := range strings.Fields(n.Display) {
		w := textWidth(word+" ", size)
		if e.cursorX > e.Margins.Left && e.cursorX+w > rightEdge {
			e.advance(size * e.LineHeight)
		}
		e.checkPageBreak(size * e.LineHeight)
		e.DrawText(word, e.cursorX, e.cursorY-size, size)
		e.cursorX += w
	}
}

func (e *Engine) renderImage(n *semtree.Node) {
	e.NotifyCurrentFrame(n.ID)
	defer e.NotifyCurrentFrame("")

	const w, h = 120, 80
	e.checkPageBreak(h)
	// The placeholder box is the figure's content, emitted inside its
	// tagged region rather than classified as an interrupting primitive.
	d := e.resolver.Resolve(e.currentFrame, e.tree)
	frag := e.sm.ProcessFragment(d, e.page())
	op := fmt.Sprintf("%s %s %s %s re S\n",
		num(e.cursorX), num(e.cursorY-h), num(float64(w)), num(float64(h)))
	e.doc.AppendPageContent([]byte(frag.Before + op + frag.After))
	e.advance(h + e.DefaultFontSize)
}

func (e *Engine) renderLink(n *semtree.Node, size float64) {
	startX, startY := e.cursorX, e.cursorY
	e.renderKids(n, size)
	href := n.Attrs["href"]
	if href == "" {
		return
	}
	endX := e.cursorX
	if endX <= startX {
		endX = startX + textWidth(displayText(n), size)
	}
	e.doc.AddLink(href, [4]float64{startX, startY - size, endX, startY})
}

// renderDecorated draws the wrapped text, then the decoration line with
// the decorating node's own frame id; the open region belongs to the
// enclosing block, so classification must keep the line as content.
func (e *Engine) renderDecorated(n *semtree.Node, size float64) {
	startX := e.cursorX
	e.renderKids(n, size)
	endX := e.cursorX
	if endX <= startX {
		return
	}
	e.NotifyCurrentFrame(n.ID)
	defer e.NotifyCurrentFrame("")
	y := e.cursorY - size - 2
	if n.Tag == "s" || n.Tag == "strike" || n.Tag == "del" {
		y = e.cursorY - size/2
	}
	e.DrawLine(startX, y, endX, y)
}

func (e *Engine) renderBullet(size float64) {
	e.NotifyCurrentFrame("")
	e.DrawText("-", e.cursorX, e.cursorY-size, size)
	e.cursorX += textWidth("- ", size)
}

// renderTable lays each row on its own line and strokes the row border
// after the cells, while the last cell's region is still open: the
// border must be wrapped as an artifact without truncating the cell.
func (e *Engine) renderTable(n *semtree.Node, size float64) {
	rows := collectRows(n)
	for _, row := range rows {
		rowTop := e.cursorY
		cells := row.Kids
		cellW := e.contentWidth() / float64(max(len(cells), 1))
		for i, cell := range cells {
			e.cursorX = e.Margins.Left + float64(i)*cellW
			e.renderKids(cell, size)
		}
		e.NotifyCurrentFrame(row.ID)
		e.DrawRect(e.Margins.Left, rowTop-size*e.LineHeight, e.contentWidth(), size*e.LineHeight)
		e.NotifyCurrentFrame("")
		e.advance(size * e.LineHeight)
	}
	e.blockGap()
}

func collectRows(table *semtree.Node) []*semtree.Node {
	var rows []*semtree.Node
	var walk func(*semtree.Node)
	walk = func(n *semtree.Node) {
		for _, kid := range n.Kids {
			if kid.Tag == "tr" {
				rows = append(rows, kid)
				continue
			}
			if kid.IsTableRelated() {
				walk(kid)
			}
		}
	}
	walk(table)
	return rows
}

func (e *Engine) contentWidth() float64 {
	w, _ := e.doc.PageSize()
	return w - e.Margins.Left - e.Margins.Right
}

func (e *Engine) advance(dy float64) {
	e.cursorY -= dy
	e.cursorX = e.Margins.Left
}

func (e *Engine) blockGap() {
	e.advance(e.DefaultFontSize * e.LineHeight)
}

func (e *Engine) checkPageBreak(height float64) {
	if e.doc.CurrentPage() == 0 {
		e.NewPage()
		return
	}
	if e.cursorY-height < e.Margins.Bottom {
		e.NewPage()
	}
}

func headingSize(tag string, base float64) float64 {
	switch tag {
	case "h1":
		return base * 2.0
	case "h2":
		return base * 1.5
	default:
		return base * 1.25
	}
}

var blockTags = map[string]bool{
	"p": true, "div": true, "blockquote": true, "pre": true,
	"ul": true, "ol": true, "section": true, "article": true,
	"figure": true, "form": true,
}

func isBlock(tag string) bool { return blockTags[tag] }

func displayText(n *semtree.Node) string {
	if n.IsText() {
		return n.Display
	}
	var b strings.Builder
	for _, kid := range n.Kids {
		b.WriteString(displayText(kid))
	}
	return b.String()
}

// textWidth approximates Helvetica advance widths; exact metrics are a
// non-goal.
func textWidth(s string, size float64) float64 {
	return float64(len(s)) * size * 0.5
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }
