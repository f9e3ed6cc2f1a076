package web

import (
	"strings"

	"golang.org/x/net/html"
)

// contentAdapter narrows a parsed page to its main content for a known site layout
type contentAdapter interface {
	// Name returns the adapter name
	Name() string

	// Root returns the node holding the page's main content, or nil if the layout does not match
	Root(doc *html.Node) *html.Node

	// Skip reports whether an element is page chrome rather than content
	Skip(n *html.Node) bool
}

// contentAdapters are tried in order; the first matching root wins
var contentAdapters = []contentAdapter{
	wikipediaAdapter{},
	articleAdapter{},
}

// selectContent picks the content root and skip rule for a document
func selectContent(doc *html.Node) (*html.Node, func(*html.Node) bool) {
	for _, adapter := range contentAdapters {
		if root := adapter.Root(doc); root != nil {
			return root, adapter.Skip
		}
	}
	return doc, func(*html.Node) bool { return false }
}

// wikipediaAdapter handles MediaWiki article pages
type wikipediaAdapter struct{}

func (wikipediaAdapter) Name() string { return "wikipedia" }

func (wikipediaAdapter) Root(doc *html.Node) *html.Node {
	return findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == "mw-content-text"
	})
}

// Citation markers, edit links and navigation boxes interleave with article prose
var wikipediaChrome = []string{
	"reference", "reflist", "mw-references-wrap", "mw-editsection",
	"navbox", "metadata", "noprint", "hatnote", "sistersitebox",
}

func (wikipediaAdapter) Skip(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, class := range wikipediaChrome {
		if hasClass(n, class) {
			return true
		}
	}
	return false
}

// articleAdapter handles pages that mark their content with <main> or <article>
type articleAdapter struct{}

func (articleAdapter) Name() string { return "article" }

func (articleAdapter) Root(doc *html.Node) *html.Node {
	if m := findFirst(doc, isElement("main")); m != nil {
		return m
	}
	return findFirst(doc, isElement("article"))
}

func (articleAdapter) Skip(n *html.Node) bool {
	return n.Type == html.ElementNode && strings.EqualFold(n.Data, "aside")
}

func isElement(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && strings.EqualFold(n.Data, name)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
