// Package writer is the document sink: it allocates object ids, collects
// object bodies and page content, and serializes the final PDF file.
package writer

import (
	"fmt"
	"io"
	"sort"

	"github.com/wudi/pdftag/observability"
	"github.com/wudi/pdftag/raw"
)

// DocumentSink is the object-writer interface the structure-tree builder
// works against. Ids are monotonic and never reused.
type DocumentSink interface {
	// AllocateObjectID reserves and returns the next object id.
	AllocateObjectID() int
	// NextObjectID returns the id the next allocation will yield, without
	// allocating it.
	NextObjectID() int
	// WriteObject stores the body for an allocated id.
	WriteObject(id int, obj raw.Object) error
	// AppendPageContent appends operators to the current page's content
	// stream.
	AppendPageContent(b []byte)
	// PageObjectID returns the object id of a 1-based page number. Valid
	// only after the page has been finalized.
	PageObjectID(page int) (int, bool)
	// CurrentPage returns the 1-based current page number, 0 before the
	// first page starts.
	CurrentPage() int
}

// Reserved object ids; the catalog and page tree are written last but
// referenced throughout.
const (
	catalogID  = 1
	pageTreeID = 2
	fontID     = 3
)

// LinkAnnotation is one /Link annotation. StructParent indices are
// assigned sequentially from 1; index 0 belongs to the page content's
// marked-content array.
type LinkAnnotation struct {
	ObjectID     int
	URL          string
	Page         int
	Rect         [4]float64
	StructParent int
}

type page struct {
	objectID  int
	contentID int
	width     float64
	height    float64
	content   []byte
	annots    []int
	finished  bool
}

// Document is the concrete sink. It holds everything in memory and
// serializes once in WriteTo.
type Document struct {
	nextID     int
	objects    map[int]raw.Object
	pages      []*page
	links      []LinkAnnotation
	nextStruct int

	defaultWidth  float64
	defaultHeight float64
	log           observability.Logger
}

type Option func(*Document)

func WithPageSize(w, h float64) Option {
	return func(d *Document) {
		d.defaultWidth = w
		d.defaultHeight = h
	}
}

func WithLogger(log observability.Logger) Option {
	return func(d *Document) { d.log = log }
}

func NewDocument(opts ...Option) *Document {
	d := &Document{
		nextID:        1,
		objects:       make(map[int]raw.Object),
		nextStruct:    1,
		defaultWidth:  595, // A4 portrait in points
		defaultHeight: 842,
		log:           observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	// Reserve catalog, page tree and the base font.
	for i := 0; i < 3; i++ {
		d.AllocateObjectID()
	}
	font := raw.Dict()
	font.Set("Type", raw.Name("Font"))
	font.Set("Subtype", raw.Name("Type1"))
	font.Set("BaseFont", raw.Name("Helvetica"))
	d.objects[fontID] = font
	return d
}

func (d *Document) AllocateObjectID() int {
	id := d.nextID
	d.nextID++
	return id
}

func (d *Document) NextObjectID() int { return d.nextID }

func (d *Document) WriteObject(id int, obj raw.Object) error {
	if id <= 0 || id >= d.nextID {
		return fmt.Errorf("writer: object id %d was never allocated", id)
	}
	if _, dup := d.objects[id]; dup {
		return fmt.Errorf("writer: object %d written twice", id)
	}
	d.objects[id] = obj
	return nil
}

// StartPage finishes the current page and begins a new one.
func (d *Document) StartPage() {
	d.finishCurrent()
	p := &page{
		objectID:  d.AllocateObjectID(),
		contentID: d.AllocateObjectID(),
		width:     d.defaultWidth,
		height:    d.defaultHeight,
	}
	d.pages = append(d.pages, p)
	d.log.Debug("start page", observability.Int("page", len(d.pages)))
}

func (d *Document) CurrentPage() int { return len(d.pages) }

func (d *Document) AppendPageContent(b []byte) {
	if len(d.pages) == 0 {
		d.StartPage()
	}
	p := d.pages[len(d.pages)-1]
	p.content = append(p.content, b...)
}

// PageSize returns the current page's dimensions in points.
func (d *Document) PageSize() (w, h float64) {
	if len(d.pages) == 0 {
		return d.defaultWidth, d.defaultHeight
	}
	p := d.pages[len(d.pages)-1]
	return p.width, p.height
}

func (d *Document) PageObjectID(pageNum int) (int, bool) {
	if pageNum < 1 || pageNum > len(d.pages) {
		return 0, false
	}
	return d.pages[pageNum-1].objectID, true
}

// AddLink records a /Link annotation on the current page and writes its
// object. The returned record carries the struct-parent index the
// structure tree must reference.
func (d *Document) AddLink(url string, rect [4]float64) LinkAnnotation {
	if len(d.pages) == 0 {
		d.StartPage()
	}
	link := LinkAnnotation{
		ObjectID:     d.AllocateObjectID(),
		URL:          url,
		Page:         len(d.pages),
		Rect:         rect,
		StructParent: d.nextStruct,
	}
	d.nextStruct++

	action := raw.Dict()
	action.Set("S", raw.Name("URI"))
	action.Set("URI", raw.Str([]byte(url)))
	dict := raw.Dict()
	dict.Set("Type", raw.Name("Annot"))
	dict.Set("Subtype", raw.Name("Link"))
	dict.Set("Rect", raw.NewArray(
		raw.Float(link.Rect[0]), raw.Float(link.Rect[1]), raw.Float(link.Rect[2]), raw.Float(link.Rect[3])))
	dict.Set("Border", raw.NewArray(raw.Int(0), raw.Int(0), raw.Int(0)))
	dict.Set("A", action)
	dict.Set("StructParent", raw.Int(int64(link.StructParent)))
	d.objects[link.ObjectID] = dict

	p := d.pages[len(d.pages)-1]
	p.annots = append(p.annots, link.ObjectID)
	d.links = append(d.links, link)
	return link
}

// Links returns all recorded link annotations in discovery order.
func (d *Document) Links() []LinkAnnotation { return d.links }

func (d *Document) finishCurrent() {
	if len(d.pages) == 0 {
		return
	}
	p := d.pages[len(d.pages)-1]
	if p.finished {
		return
	}
	p.finished = true

	d.objects[p.contentID] = raw.NewStream(raw.Dict(), p.content)

	dict := raw.Dict()
	dict.Set("Type", raw.Name("Page"))
	dict.Set("Parent", raw.Ref(pageTreeID))
	dict.Set("MediaBox", raw.NewArray(
		raw.Int(0), raw.Int(0), raw.Float(p.width), raw.Float(p.height)))
	dict.Set("Contents", raw.Ref(p.contentID))
	res := raw.Dict()
	fonts := raw.Dict()
	fonts.Set("F1", raw.Ref(fontID))
	res.Set("Font", fonts)
	dict.Set("Resources", res)
	dict.Set("StructParents", raw.Int(0))
	if len(p.annots) > 0 {
		annots := raw.NewArray()
		for _, id := range p.annots {
			annots.Append(raw.Ref(id))
		}
		dict.Set("Annots", annots)
	}
	d.objects[p.objectID] = dict
}

// WriteTo finalizes remaining pages, writes the catalog and page tree,
// and serializes the whole file. structTreeRootID is 0 for an untagged
// document.
func (d *Document) WriteTo(w io.Writer, structTreeRootID int) (int64, error) {
	d.finishCurrent()

	kids := raw.NewArray()
	for _, p := range d.pages {
		kids.Append(raw.Ref(p.objectID))
	}
	pageTree := raw.Dict()
	pageTree.Set("Type", raw.Name("Pages"))
	pageTree.Set("Kids", kids)
	pageTree.Set("Count", raw.Int(int64(len(d.pages))))
	d.objects[pageTreeID] = pageTree

	catalog := raw.Dict()
	catalog.Set("Type", raw.Name("Catalog"))
	catalog.Set("Pages", raw.Ref(pageTreeID))
	if structTreeRootID > 0 {
		catalog.Set("StructTreeRoot", raw.Ref(structTreeRootID))
		markInfo := raw.Dict()
		markInfo.Set("Marked", raw.Bool(true))
		catalog.Set("MarkInfo", markInfo)
	}
	d.objects[catalogID] = catalog

	ids := make([]int, 0, len(d.objects))
	for id := range d.objects {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for want := 1; want < d.nextID; want++ {
		if _, ok := d.objects[want]; !ok {
			return 0, fmt.Errorf("writer: object %d allocated but never written", want)
		}
	}

	var written int64
	count := func(n int, err error) error {
		written += int64(n)
		return err
	}

	if err := count(fmt.Fprintf(w, "%%PDF-1.7\n%%\xe2\xe3\xcf\xd3\n")); err != nil {
		return written, err
	}
	offsets := make(map[int]int64, len(ids))
	for _, id := range ids {
		offsets[id] = written
		body := raw.SerializeIndirect(raw.ObjectRef{Num: id}, d.objects[id])
		if err := count(w.Write(body)); err != nil {
			return written, err
		}
	}

	xrefOffset := written
	if err := count(fmt.Fprintf(w, "xref\n0 %d\n0000000000 65535 f \n", d.nextID)); err != nil {
		return written, err
	}
	for _, id := range ids {
		if err := count(fmt.Fprintf(w, "%010d 00000 n \n", offsets[id])); err != nil {
			return written, err
		}
	}
	trailer := raw.Dict()
	trailer.Set("Size", raw.Int(int64(d.nextID)))
	trailer.Set("Root", raw.Ref(catalogID))
	if err := count(fmt.Fprintf(w, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n",
		raw.Serialize(trailer), xrefOffset)); err != nil {
		return written, err
	}
	return written, nil
}
