package raw

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// Serialize renders an object to its byte form. Dictionary keys are
// emitted in sorted order so output is deterministic.
func Serialize(o Object) []byte {
	var b bytes.Buffer
	serializeTo(&b, o)
	return b.Bytes()
}

// SerializeIndirect renders "<num> <gen> obj ... endobj" for an object.
func SerializeIndirect(ref ObjectRef, o Object) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d %d obj\n", ref.Num, ref.Gen)
	serializeTo(&b, o)
	b.WriteString("\nendobj\n")
	return b.Bytes()
}

func serializeTo(b *bytes.Buffer, o Object) {
	switch v := o.(type) {
	case NameObj:
		b.WriteString("/" + v.Val)
	case NumberObj:
		if v.IsInt {
			b.WriteString(strconv.FormatInt(v.I, 10))
		} else {
			b.WriteString(strconv.FormatFloat(v.F, 'f', -1, 64))
		}
	case BoolObj:
		if v.V {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case NullObj:
		b.WriteString("null")
	case StringObj:
		b.Write(escapeLiteralString(v.Bytes))
	case *ArrayObj:
		b.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			serializeTo(b, it)
		}
		b.WriteByte(']')
	case *DictObj:
		b.WriteString("<<")
		keys := make([]string, 0, len(v.KV))
		for k := range v.KV {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString("/" + k + " ")
			serializeTo(b, v.KV[k])
		}
		b.WriteString(">>")
	case *StreamObj:
		dict := v.Dict
		if dict == nil {
			dict = Dict()
		}
		dict.Set("Length", Int(int64(len(v.Data))))
		serializeTo(b, dict)
		b.WriteString("\nstream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
	case RefObj:
		fmt.Fprintf(b, "%d %d R", v.R.Num, v.R.Gen)
	default:
		b.WriteString("null")
	}
}

func escapeLiteralString(data []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, c := range data {
		switch c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}
