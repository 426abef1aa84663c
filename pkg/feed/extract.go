package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"html"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ExtractTitles returns up to count headline titles found in an RSS or Atom
// document.
//
// The lookup tries, in order and stopping at the first pass that finds a
// title element with any character data: RSS 2.0 channel/item/title, Atom
// entry/title in any namespace, and finally any title element in the
// document. The last pass can pick up the feed's own title when it has no
// items. Titles are then unescaped, whitespace-normalized, stripped of blanks
// and deduplicated in document order. When nothing survives the result is
// the single placeholder.
func ExtractTitles(data []byte, count int, placeholder string) ([]string, error) {
	root, err := parseTree(data)
	if err != nil {
		return nil, err
	}

	var titles []string
	for _, pass := range []func(*node) []*node{rssTitles, atomTitles, anyTitles} {
		titles = rawTexts(pass(root))
		if len(titles) > 0 {
			break
		}
	}

	out := dedupe(titles, count)
	if len(out) == 0 {
		return []string{placeholder}, nil
	}
	return out, nil
}

type node struct {
	name     xml.Name
	text     strings.Builder
	children []*node
}

func parseTree(data []byte) (*node, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = true
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel

	var root *node
	var stack []*node
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("xml: multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			} else if len(bytes.TrimSpace(t)) > 0 {
				return nil, errors.New("xml: character data outside the root element")
			}
		}
	}
	if root == nil {
		return nil, errors.New("xml: no root element")
	}
	return root, nil
}

func (n *node) is(local string) bool {
	return n.name.Local == local
}

// isPlain matches elements without a namespace.
func (n *node) isPlain(local string) bool {
	return n.name.Space == "" && n.name.Local == local
}

func (n *node) childrenNamed(match func(*node) bool) []*node {
	var out []*node
	for _, c := range n.children {
		if match(c) {
			out = append(out, c)
		}
	}
	return out
}

// descendants returns all elements below n in document order, n excluded.
func (n *node) descendants(match func(*node) bool) []*node {
	var out []*node
	var walk func(*node)
	walk = func(cur *node) {
		for _, c := range cur.children {
			if match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func rssTitles(root *node) []*node {
	var out []*node
	for _, channel := range root.descendants(func(n *node) bool { return n.isPlain("channel") }) {
		for _, item := range channel.childrenNamed(func(n *node) bool { return n.isPlain("item") }) {
			out = append(out, item.childrenNamed(func(n *node) bool { return n.isPlain("title") })...)
		}
	}
	return out
}

func atomTitles(root *node) []*node {
	var out []*node
	for _, entry := range root.descendants(func(n *node) bool { return n.is("entry") }) {
		out = append(out, entry.childrenNamed(func(n *node) bool { return n.is("title") })...)
	}
	return out
}

func anyTitles(root *node) []*node {
	return root.descendants(func(n *node) bool { return n.is("title") })
}

// rawTexts returns the non-empty character data of nodes as found.
func rawTexts(nodes []*node) []string {
	var out []string
	for _, n := range nodes {
		if t := n.text.String(); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// CleanText unescapes HTML entities, trims and collapses whitespace runs.
func CleanText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

func dedupe(titles []string, count int) []string {
	var out []string
	seen := make(map[string]struct{}, len(titles))
	for _, raw := range titles {
		t := CleanText(raw)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) >= count {
			break
		}
	}
	return out
}
