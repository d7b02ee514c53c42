package tagging

// structTags maps HTML element names to PDF structure types. Unmapped
// elements fall back to Div.
var structTags = map[string]string{
	"p":          "P",
	"h1":         "H1",
	"h2":         "H2",
	"h3":         "H3",
	"h4":         "H4",
	"h5":         "H5",
	"h6":         "H6",
	"img":        "Figure",
	"figure":     "Figure",
	"figcaption": "Caption",
	"a":          "Link",
	"table":      "Table",
	"thead":      "THead",
	"tbody":      "TBody",
	"tfoot":      "TFoot",
	"tr":         "TR",
	"td":         "TD",
	"th":         "TH",
	"caption":    "Caption",
	"ul":         "L",
	"ol":         "L",
	"li":         "LI",
	"blockquote": "BlockQuote",
	"pre":        "Code",
	"code":       "Code",
	"span":       "Span",
	"section":    "Sect",
	"article":    "Sect",
	"main":       "Sect",
	"nav":        "Sect",
	"aside":      "Sect",
	"form":       "Form",
	"div":        "Div",
}

// StructTagFor returns the PDF structure type for an HTML element name.
func StructTagFor(htmlTag string) string {
	if s, ok := structTags[htmlTag]; ok {
		return s
	}
	return "Div"
}

// transparentTags are inline styling elements that never open a structure
// element of their own; their content belongs to the enclosing block.
var transparentTags = map[string]bool{
	"b": true, "strong": true, "i": true, "em": true,
	"u": true, "s": true, "strike": true, "del": true, "ins": true,
	"small": true, "sub": true, "sup": true, "mark": true,
	"abbr": true, "font": true, "tt": true, "big": true,
	"span": true, "br": true, "wbr": true,
}

// IsTransparentTag reports whether the element is styling-only.
func IsTransparentTag(htmlTag string) bool { return transparentTags[htmlTag] }
