package raw

import (
	"strings"
	"testing"
)

func TestSerializeDictSortedKeys(t *testing.T) {
	d := Dict()
	d.Set("S", Name("P"))
	d.Set("K", Int(0))
	d.Set("Type", Name("StructElem"))
	got := string(Serialize(d))
	want := "<</K 0/S /P/Type /StructElem>>"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestSerializeArrayAndRef(t *testing.T) {
	a := NewArray(Int(0), Ref(12), Name("Link"))
	got := string(Serialize(a))
	if got != "[0 12 0 R /Link]" {
		t.Fatalf("got %q", got)
	}
}

func TestSerializeStringEscapes(t *testing.T) {
	got := string(Serialize(Str([]byte("a(b)\\c\nd"))))
	if got != `(a\(b\)\\c\nd)` {
		t.Fatalf("got %q", got)
	}
}

func TestSerializeIndirectStream(t *testing.T) {
	s := NewStream(Dict(), []byte("BT ET"))
	got := string(SerializeIndirect(ObjectRef{Num: 4}, s))
	if !strings.HasPrefix(got, "4 0 obj\n") || !strings.HasSuffix(got, "endobj\n") {
		t.Fatalf("bad framing: %q", got)
	}
	if !strings.Contains(got, "/Length 5") {
		t.Fatalf("missing stream length: %q", got)
	}
	if !strings.Contains(got, "stream\nBT ET\nendstream") {
		t.Fatalf("missing stream body: %q", got)
	}
}

func TestSerializeFloatTrimsTrailingZeros(t *testing.T) {
	if got := string(Serialize(Float(595.5))); got != "595.5" {
		t.Fatalf("got %q", got)
	}
	if got := string(Serialize(Float(0))); got != "0" {
		t.Fatalf("got %q", got)
	}
}
