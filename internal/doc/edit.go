package doc

import (
	"fmt"
	"reflect"
)

// ReplaceRange substitutes the document content in [r.From, r.To) with the
// given text as a single tree rebuild. The replacement carries no marks, so
// any comment mark confined to the range disappears with the old text.
func (d *Document) ReplaceRange(r Range, text string) error {
	if r.From < 0 || r.To < r.From {
		return fmt.Errorf("invalid range [%d,%d)", r.From, r.To)
	}
	inserted := false
	d.rebuildInline(func(n *Node, from, to int) []*Node {
		if to <= r.From || from >= r.To {
			return []*Node{n}
		}
		if !n.isText() {
			// Inline leaf inside the range is consumed by the replacement.
			return nil
		}
		runes := []rune(n.Text)
		var out []*Node
		if from < r.From {
			out = append(out, &Node{Type: "text", Text: string(runes[:r.From-from]), Marks: n.Marks})
		}
		if !inserted {
			inserted = true
			if text != "" {
				out = append(out, &Node{Type: "text", Text: text})
			}
		}
		if to > r.To {
			out = append(out, &Node{Type: "text", Text: string(runes[r.To-from:]), Marks: n.Marks})
		}
		return out
	})
	if !inserted {
		return fmt.Errorf("range [%d,%d) covers no text", r.From, r.To)
	}
	d.normalize()
	return nil
}

// ApplyMarkForID attaches a comment mark with the given id to every text
// covered by the range, splitting partially covered text nodes.
func (d *Document) ApplyMarkForID(r Range, id string) error {
	if r.From < 0 || r.To <= r.From {
		return fmt.Errorf("invalid range [%d,%d)", r.From, r.To)
	}
	applied := false
	mark := Mark{Type: MarkComment, Attrs: map[string]any{CommentIDAttr: id}}
	d.rebuildInline(func(n *Node, from, to int) []*Node {
		if to <= r.From || from >= r.To || !n.isText() {
			return []*Node{n}
		}
		applied = true
		if n.HasMarkID(id) {
			return []*Node{n}
		}
		runes := []rune(n.Text)
		coverFrom := max(from, r.From)
		coverTo := min(to, r.To)
		var out []*Node
		if from < coverFrom {
			out = append(out, &Node{Type: "text", Text: string(runes[:coverFrom-from]), Marks: n.Marks})
		}
		marked := &Node{
			Type:  "text",
			Text:  string(runes[coverFrom-from : coverTo-from]),
			Marks: append(append([]Mark{}, n.Marks...), mark),
		}
		out = append(out, marked)
		if to > coverTo {
			out = append(out, &Node{Type: "text", Text: string(runes[coverTo-from:]), Marks: n.Marks})
		}
		return out
	})
	if !applied {
		return fmt.Errorf("range [%d,%d) covers no text", r.From, r.To)
	}
	d.normalize()
	return nil
}

// RemoveMarkForID strips the comment mark with the given id from the whole
// document.
func (d *Document) RemoveMarkForID(id string) {
	d.rebuildInline(func(n *Node, from, to int) []*Node {
		if !n.isText() || !n.HasMarkID(id) {
			return []*Node{n}
		}
		kept := make([]Mark, 0, len(n.Marks))
		for _, mark := range n.Marks {
			if mark.Type == MarkComment {
				if markID, _ := mark.Attrs[CommentIDAttr].(string); markID == id {
					continue
				}
			}
			kept = append(kept, mark)
		}
		if len(kept) == 0 {
			kept = nil
		}
		return []*Node{{Type: "text", Text: n.Text, Marks: kept}}
	})
	d.normalize()
}

// rebuildInline rewrites the tree, replacing each inline node (text or leaf)
// by whatever the callback returns for its position span.
func (d *Document) rebuildInline(fn func(n *Node, from, to int) []*Node) {
	var walk func(n *Node, pos int) int
	walk = func(n *Node, pos int) int {
		cur := pos
		rebuilt := make([]*Node, 0, len(n.Content))
		for _, child := range n.Content {
			switch {
			case child.isText():
				end := cur + child.size()
				rebuilt = append(rebuilt, fn(child, cur, end)...)
				cur = end
			case child.isInlineLeaf():
				rebuilt = append(rebuilt, fn(child, cur, cur+1)...)
				cur++
			default:
				cur = walk(child, cur+1) + 1
				rebuilt = append(rebuilt, child)
			}
		}
		n.Content = rebuilt
		return cur
	}
	walk(d.root, 0)
}

// normalize drops empty text nodes and merges adjacent text nodes that carry
// identical mark sets.
func (d *Document) normalize() {
	var walk func(n *Node)
	walk = func(n *Node) {
		merged := make([]*Node, 0, len(n.Content))
		for _, child := range n.Content {
			if !child.isText() {
				walk(child)
				merged = append(merged, child)
				continue
			}
			if child.Text == "" {
				continue
			}
			if len(merged) > 0 {
				last := merged[len(merged)-1]
				if last.isText() && marksEqual(last.Marks, child.Marks) {
					last.Text += child.Text
					continue
				}
			}
			merged = append(merged, child)
		}
		n.Content = merged
	}
	walk(d.root)
}

func marksEqual(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || !reflect.DeepEqual(a[i].Attrs, b[i].Attrs) {
			return false
		}
	}
	return true
}
