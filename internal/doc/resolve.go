package doc

// AnnotatedRange describes where a comment mark currently lives in the
// document, together with the live text it covers.
type AnnotatedRange struct {
	Text string
	From int
	To   int
}

// FindRangeForID resolves the current position range of the comment mark
// carrying the given id. The scan walks every text node in document order and
// returns the first contiguous run of marked nodes; disjoint matches later in
// the document are ignored rather than merged across unrelated text.
//
// Returns false when no text node carries the mark. Cost is linear in the
// document size; lookups are user-triggered, so no index is kept.
func (d *Document) FindRangeForID(id string) (Range, bool) {
	found := false
	var r Range
	d.walkText(func(n *Node, from, to int) bool {
		if !n.HasMarkID(id) {
			// A gap after the first match ends the contiguous run.
			return !found
		}
		if !found {
			r = Range{From: from, To: to}
			found = true
			return true
		}
		if from != r.To {
			return false
		}
		r.To = to
		return true
	})
	return r, found
}

// AnnotatedRanges maps every comment id present in the document to its first
// contiguous run and the live text inside it. Used for orphan detection and
// for sorting threads by document position.
func (d *Document) AnnotatedRanges() map[string]AnnotatedRange {
	ranges := make(map[string]AnnotatedRange)
	closed := make(map[string]bool)
	d.walkText(func(n *Node, from, to int) bool {
		for _, mark := range n.Marks {
			if mark.Type != MarkComment {
				continue
			}
			id, _ := mark.Attrs[CommentIDAttr].(string)
			if id == "" || closed[id] {
				continue
			}
			entry, ok := ranges[id]
			if !ok {
				ranges[id] = AnnotatedRange{Text: n.Text, From: from, To: to}
				continue
			}
			if from != entry.To {
				closed[id] = true
				continue
			}
			entry.Text += n.Text
			entry.To = to
			ranges[id] = entry
		}
		return true
	})
	return ranges
}
