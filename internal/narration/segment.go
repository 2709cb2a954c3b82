package narration

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultMinLength is the shortest fragment, in runes, kept as a step.
// Shorter pieces are split artifacts such as list numerals.
const DefaultMinLength = 4

// Step is one spoken unit of narration.
type Step struct {
	Index        int
	Text         string
	SpokenPrefix string
}

// Segmenter splits a block of text into ordered steps.
type Segmenter struct {
	minLength int
	markdown  bool
}

// SegmentOption configures a Segmenter.
type SegmentOption func(*Segmenter)

// WithMinLength overrides DefaultMinLength.
func WithMinLength(n int) SegmentOption {
	return func(s *Segmenter) {
		if n > 0 {
			s.minLength = n
		}
	}
}

// WithMarkdown strips markdown syntax before splitting. Every block and
// every soft line break becomes its own line.
func WithMarkdown() SegmentOption {
	return func(s *Segmenter) {
		s.markdown = true
	}
}

// NewSegmenter returns a Segmenter with the given options applied.
func NewSegmenter(opts ...SegmentOption) *Segmenter {
	s := &Segmenter{minLength: DefaultMinLength}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment splits content with the default Segmenter.
func Segment(content string) []Step {
	return NewSegmenter().Segment(content)
}

// Segment splits content on newlines and full stops ('.', '।', '॥'),
// trims every fragment and drops those shorter than the minimum length.
// Order is preserved; the result is empty for blank content.
func (s *Segmenter) Segment(content string) []Step {
	if s.markdown {
		content = plainText(content)
	}

	var steps []Step
	for _, frag := range split(content) {
		frag = strings.TrimSpace(frag)
		if utf8.RuneCountInString(frag) < s.minLength {
			continue
		}
		steps = append(steps, Step{Index: len(steps), Text: frag})
	}
	return steps
}

func split(content string) []string {
	runes := []rune(content)
	var (
		out   []string
		start int
	)
	for i, r := range runes {
		if !isBoundary(runes, i, r) {
			continue
		}
		out = append(out, string(runes[start:i]))
		start = i + 1
	}
	return append(out, string(runes[start:]))
}

func isBoundary(runes []rune, i int, r rune) bool {
	switch r {
	case '\n', '।', '॥':
		return true
	case '.':
		// 1.5 cups
		if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			return false
		}
		return true
	}
	return false
}

func plainText(markdown string) string {
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)

	var buf strings.Builder
	walkNode(doc, reader.Source(), &buf)
	return buf.String()
}

func walkNode(node ast.Node, source []byte, buf *strings.Builder) {
	switch n := node.(type) {
	case *ast.HTMLBlock, *ast.ThematicBreak:
		return

	case *ast.CodeBlock, *ast.FencedCodeBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}
		buf.WriteByte('\n')
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteByte('\n')
		}
		return

	case *ast.Image:
		// alt text only
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walkNode(c, source, buf)
		}
		return

	case *ast.Heading, *ast.Paragraph, *ast.TextBlock, *ast.ListItem:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walkNode(c, source, buf)
		}
		buf.WriteByte('\n')
		return
	}

	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walkNode(c, source, buf)
	}
}
