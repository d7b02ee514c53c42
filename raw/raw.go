// Package raw provides the minimal PDF object model the tagging core
// serializes its output through: dictionaries, arrays, names, numbers,
// strings and indirect references.
package raw

import "fmt"

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
}

type NameObj struct{ Val string }

func (n NameObj) Type() string { return "name" }

type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string { return "number" }
func (n NumberObj) Int() int64   { return n.I }
func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}

type BoolObj struct{ V bool }

func (b BoolObj) Type() string { return "boolean" }

type NullObj struct{}

func (n NullObj) Type() string { return "null" }

// StringObj is a literal PDF string.
type StringObj struct{ Bytes []byte }

func (s StringObj) Type() string { return "string" }

type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string    { return "array" }
func (a *ArrayObj) Len() int        { return len(a.Items) }
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }

type DictObj struct{ KV map[string]Object }

func (d *DictObj) Type() string { return "dict" }
func (d *DictObj) Len() int     { return len(d.KV) }
func (d *DictObj) Get(key string) (Object, bool) {
	o, ok := d.KV[key]
	return o, ok
}
func (d *DictObj) Set(key string, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
}

// StreamObj is a raw content stream. The tagging core writes page content
// streams uncompressed; filters are out of scope here.
type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (s *StreamObj) Type() string { return "stream" }

type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string   { return "ref" }
func (r RefObj) Ref() ObjectRef { return r.R }

// Constructor helpers.
func Name(v string) NameObj        { return NameObj{Val: v} }
func Int(i int64) NumberObj        { return NumberObj{I: i, IsInt: true} }
func Float(f float64) NumberObj    { return NumberObj{F: f} }
func Bool(v bool) BoolObj          { return BoolObj{V: v} }
func Str(b []byte) StringObj       { return StringObj{Bytes: b} }
func NewArray(items ...Object) *ArrayObj { return &ArrayObj{Items: items} }
func Dict() *DictObj               { return &DictObj{KV: make(map[string]Object)} }
func NewStream(dict *DictObj, data []byte) *StreamObj {
	return &StreamObj{Dict: dict, Data: data}
}
func Ref(num int) RefObj { return RefObj{R: ObjectRef{Num: num, Gen: 0}} }
