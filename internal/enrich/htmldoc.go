package enrich

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// codeTags never hold readable text.
var codeTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// chromeTags are codeTags plus site navigation, dropped from page text.
var chromeTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"nav": true, "header": true, "footer": true,
}

// parseHTML parses a page. html.Parse only fails on reader errors, so the
// fallback is an empty document.
func parseHTML(s string) *html.Node {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return &html.Node{Type: html.DocumentNode}
	}
	return doc
}

// findLinks returns the href of every <a> element in document order.
func findLinks(doc *html.Node) []string {
	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attr(n, "href"); href != "" {
				hrefs = append(hrefs, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hrefs
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// textContent joins the text nodes of doc, skipping elements in skip.
func textContent(doc *html.Node, skip map[string]bool) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skip[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}

// pruneTags removes elements in skip from the tree rooted at n.
func pruneTags(n *html.Node, skip map[string]bool) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && skip[c.Data] {
			n.RemoveChild(c)
		} else {
			pruneTags(c, skip)
		}
		c = next
	}
}

// render serializes doc back to HTML.
func render(doc *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return ""
	}
	return buf.String()
}
