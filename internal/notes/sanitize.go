// Package notes sanitizes user-authored rich text before persistence.
package notes

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	richPolicy   = newRichPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// newRichPolicy builds the allow-list for note content: the UGC baseline
// plus inline images and figures. rel and loading are rewritten after
// sanitization, not merely allowed through.
func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("img", "figure", "figcaption")
	p.AllowAttrs("src", "alt", "title", "loading").OnElements("img")
	p.AllowAttrs("href", "title", "target", "rel").OnElements("a")
	return p
}

// SanitizeContent strips everything outside the allow-list from submitted
// rich text, then forces rel="noopener noreferrer" onto every link and
// loading="lazy" onto every image so stored notes cannot leak referrers or
// eagerly fetch embeds.
func SanitizeContent(content string) string {
	return strings.TrimSpace(enforceEmbedAttrs(richPolicy.Sanitize(content)))
}

// enforceEmbedAttrs rewrites the sanitized fragment's anchor and image
// attributes. A fragment the parser cannot handle is returned unchanged;
// it has already been through the allow-list.
func enforceEmbedAttrs(fragment string) string {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return fragment
	}
	var buf bytes.Buffer
	for _, node := range nodes {
		rewriteEmbeds(node)
		if err := html.Render(&buf, node); err != nil {
			return fragment
		}
	}
	return buf.String()
}

func rewriteEmbeds(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.A:
			setAttr(n, "rel", "noopener noreferrer")
		case atom.Img:
			setAttr(n, "loading", "lazy")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteEmbeds(c)
	}
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// ExtractPlainText projects sanitized HTML down to bare text for previews
// and search.
func ExtractPlainText(content string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(content))
}

// HasContent reports whether sanitized content still carries something
// worth saving: visible text or at least one image.
func HasContent(sanitized, plainText string) bool {
	if plainText != "" {
		return true
	}
	return strings.Contains(strings.ToLower(sanitized), "<img")
}
