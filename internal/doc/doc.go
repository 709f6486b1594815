// Package doc implements the rich-text document model the editor persists:
// a ProseMirror-style node tree with inline comment marks, position-addressed
// ranges, and the range-editing operations the comment and patch layers need.
package doc

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MarkComment is the inline mark type that anchors a comment thread to a span
// of text. Its CommentIDAttr attribute carries the thread id.
const (
	MarkComment   = "comment"
	CommentIDAttr = "commentId"
)

// Node is one node in the document tree. Text nodes carry Text and Marks;
// block nodes carry Content.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is an inline formatting or annotation tag on a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Range is a half-open [From, To) span in document position addressing:
// entering or leaving a block node costs one position, text costs one per rune.
type Range struct {
	From int
	To   int
}

// Document wraps a parsed node tree and exposes the editor collaborator
// surface consumed by the comment and patch subsystems.
type Document struct {
	root *Node
}

// Parse decodes ProseMirror JSON into a Document. The root node must be of
// type "doc".
func Parse(raw json.RawMessage) (*Document, error) {
	if len(raw) == 0 {
		return &Document{root: &Node{Type: "doc"}}, nil
	}
	var root Node
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if root.Type != "doc" {
		return nil, fmt.Errorf("unexpected root node type %q", root.Type)
	}
	return &Document{root: &root}, nil
}

// New builds a single-paragraph document around the given text. Used for
// seeding and in tests.
func New(text string) *Document {
	paragraph := &Node{Type: "paragraph"}
	if text != "" {
		paragraph.Content = []*Node{{Type: "text", Text: text}}
	}
	return &Document{root: &Node{Type: "doc", Content: []*Node{paragraph}}}
}

// Bytes serializes the document back to ProseMirror JSON.
func (d *Document) Bytes() (json.RawMessage, error) {
	payload, err := json.Marshal(d.root)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return payload, nil
}

// Root exposes the underlying tree for rendering.
func (d *Document) Root() *Node {
	return d.root
}

func (n *Node) isText() bool {
	return n.Type == "text"
}

func (n *Node) isInlineLeaf() bool {
	switch n.Type {
	case "hardBreak", "image":
		return true
	}
	return false
}

// isTextblock reports whether a node directly contains inline content.
func (n *Node) isTextblock() bool {
	switch n.Type {
	case "paragraph", "heading", "codeBlock":
		return true
	}
	for _, child := range n.Content {
		if child.isText() || child.isInlineLeaf() {
			return true
		}
	}
	return false
}

func (n *Node) size() int {
	if n.isText() {
		return utf8.RuneCountInString(n.Text)
	}
	if n.isInlineLeaf() {
		return 1
	}
	total := 2
	for _, child := range n.Content {
		total += child.size()
	}
	return total
}

// HasMarkID reports whether the node carries a comment mark for the given id.
func (n *Node) HasMarkID(id string) bool {
	for _, mark := range n.Marks {
		if mark.Type != MarkComment {
			continue
		}
		if markID, _ := mark.Attrs[CommentIDAttr].(string); markID == id {
			return true
		}
	}
	return false
}

// walkText visits every text node in document order with its position bounds.
// Returning false from the callback stops the walk.
func (d *Document) walkText(fn func(n *Node, from, to int) bool) {
	var walk func(n *Node, pos int) (int, bool)
	walk = func(n *Node, pos int) (int, bool) {
		cur := pos
		for _, child := range n.Content {
			if child.isText() {
				end := cur + child.size()
				if !fn(child, cur, end) {
					return cur, false
				}
				cur = end
				continue
			}
			if child.isInlineLeaf() {
				cur++
				continue
			}
			next, ok := walk(child, cur+1)
			if !ok {
				return next, false
			}
			cur = next + 1
		}
		return cur, true
	}
	// Children of the root start at position 0; the root itself adds no tokens.
	walk(d.root, 0)
}

// textSegment maps a run of plain text back to document positions.
type textSegment struct {
	byteStart int
	text      string
	posStart  int
}

// segments builds the plain-text rendering alongside the offset mapping used
// by OffsetRange. Textblocks after the first contribute a newline separator
// that has no document position of its own.
func (d *Document) segments() (string, []textSegment) {
	var builder strings.Builder
	var segs []textSegment
	emittedBlock := false

	var walk func(n *Node, pos int) int
	walk = func(n *Node, pos int) int {
		if n.isTextblock() {
			if emittedBlock {
				builder.WriteByte('\n')
			}
			emittedBlock = true
		}
		cur := pos
		for _, child := range n.Content {
			switch {
			case child.isText():
				segs = append(segs, textSegment{
					byteStart: builder.Len(),
					text:      child.Text,
					posStart:  cur,
				})
				builder.WriteString(child.Text)
				cur += child.size()
			case child.isInlineLeaf():
				cur++
			default:
				cur = walk(child, cur+1) + 1
			}
		}
		return cur
	}

	walk(d.root, 0)
	return builder.String(), segs
}

// PlainText renders the document as plain text with newline separators
// between textblocks.
func (d *Document) PlainText() string {
	text, _ := d.segments()
	return text
}

// OffsetRange translates a half-open byte-offset range in the PlainText
// rendering into document positions. It fails when either offset falls on a
// block separator rather than on document text.
func (d *Document) OffsetRange(start, end int) (Range, bool) {
	if start < 0 || end < start {
		return Range{}, false
	}
	_, segs := d.segments()

	from, ok := mapOffset(segs, start, false)
	if !ok {
		return Range{}, false
	}
	to, ok := mapOffset(segs, end, true)
	if !ok {
		return Range{}, false
	}
	return Range{From: from, To: to}, true
}

func mapOffset(segs []textSegment, offset int, allowEnd bool) (int, bool) {
	for _, seg := range segs {
		segEnd := seg.byteStart + len(seg.text)
		if offset < seg.byteStart {
			return 0, false
		}
		if offset < segEnd || (allowEnd && offset == segEnd) {
			prefix := seg.text[:offset-seg.byteStart]
			return seg.posStart + utf8.RuneCountInString(prefix), true
		}
	}
	return 0, false
}
