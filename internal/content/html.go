package content

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Heading is one table-of-contents entry.
type Heading struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// Slugify lower-cases text and collapses every run of characters outside
// [a-z0-9] into a single "-", trimming dashes at both ends.
func Slugify(text string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// ExtractHeadings lists the h2 and h3 elements of an HTML fragment whose
// content is plain text, in document order.
func ExtractHeadings(fragment string) []Heading {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return []Heading{}
	}
	out := []Heading{}
	for _, n := range nodes {
		walk(n, func(n *html.Node) {
			if level, text, ok := heading(n); ok {
				out = append(out, Heading{ID: Slugify(text), Text: text, Level: level})
			}
		})
	}
	return out
}

// AddHeadingIDs sets an id on every heading ExtractHeadings would report,
// so table-of-contents links resolve. The fragment is re-serialized.
func AddHeadingIDs(fragment string) string {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return fragment
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		walk(n, func(n *html.Node) {
			if _, text, ok := heading(n); ok {
				setAttr(n, "id", Slugify(text))
			}
		})
		if err := html.Render(&buf, n); err != nil {
			return fragment
		}
	}
	return buf.String()
}

// StripTags returns the text content of an HTML fragment with entities
// decoded and surrounding whitespace trimmed.
func StripTags(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

func parseFragment(fragment string) ([]*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(fragment), body)
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// heading reports whether n is an h2/h3 with a single non-blank text child.
func heading(n *html.Node) (int, string, bool) {
	if n.Type != html.ElementNode {
		return 0, "", false
	}
	var level int
	switch n.DataAtom {
	case atom.H2:
		level = 2
	case atom.H3:
		level = 3
	default:
		return 0, "", false
	}
	c := n.FirstChild
	if c == nil || c.NextSibling != nil || c.Type != html.TextNode {
		return 0, "", false
	}
	text := strings.TrimSpace(c.Data)
	if text == "" {
		return 0, "", false
	}
	return level, text, true
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
