package semtree

import (
	"bytes"

	"github.com/yuin/goldmark"
)

// BuildFromMarkdown converts markdown to HTML with goldmark and builds
// the semantic tree from the result.
func BuildFromMarkdown(source []byte) (*Tree, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert(source, &buf); err != nil {
		return nil, err
	}
	return BuildFromHTML(&buf)
}
