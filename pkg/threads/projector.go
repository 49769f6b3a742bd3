package threads

import (
	"sort"

	"hangartalk/pkg/models"
)

// MaxNestingDepth bounds the visual nesting of replies. Renderers flatten
// deeper replies to this level; the underlying parent-child edges in the
// child index are unaffected.
const MaxNestingDepth = 3

// Thread is a root message with its direct replies in send order. Deeper
// levels are expanded on demand through the forest's child index rather
// than eagerly materialized.
type Thread struct {
	Message models.Message   `json:"message"`
	Replies []models.Message `json:"replies,omitempty"`
}

// Forest is the derived projection of a flat channel message list.
type Forest struct {
	Roots    []Thread
	children map[string][]models.Message
}

// Project builds a forest from a flat message list. A message is a root
// when it has no reply target or its target does not resolve within the
// list (unresolved replies are kept as roots, never dropped). Every message
// with a resolving target appears in exactly that parent's child list.
func Project(msgs []models.Message) Forest {
	byID := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		byID[m.ID] = struct{}{}
	}
	children := make(map[string][]models.Message)
	var roots []models.Message
	for _, m := range msgs {
		if m.ReplyTo != "" {
			if _, ok := byID[m.ReplyTo]; ok {
				children[m.ReplyTo] = append(children[m.ReplyTo], m)
				continue
			}
		}
		roots = append(roots, m)
	}
	sort.SliceStable(roots, func(i, j int) bool { return roots[i].TS < roots[j].TS })
	for id := range children {
		list := children[id]
		sort.SliceStable(list, func(i, j int) bool { return list[i].TS < list[j].TS })
		children[id] = list
	}
	out := Forest{children: children}
	for _, r := range roots {
		out.Roots = append(out.Roots, Thread{Message: r, Replies: children[r.ID]})
	}
	return out
}

// Children returns the direct replies of a message in send order.
func (f Forest) Children(id string) []models.Message {
	return f.children[id]
}

// ReplyCount returns the number of direct replies to a message.
func (f Forest) ReplyCount(id string) int {
	return len(f.children[id])
}

// HasReplies reports whether a message has any direct replies.
func (f Forest) HasReplies(id string) bool {
	return len(f.children[id]) > 0
}

// ClampDepth caps a reply depth at MaxNestingDepth for rendering. Depth 0
// is a root.
func ClampDepth(depth int) int {
	if depth > MaxNestingDepth {
		return MaxNestingDepth
	}
	if depth < 0 {
		return 0
	}
	return depth
}

// Depth returns the clamped render depth of a message id within the
// forest: the number of resolving reply hops to its root, capped at
// MaxNestingDepth. Messages whose parent chain leaves the forest count
// from the last resolvable ancestor.
func (f Forest) Depth(id string) int {
	parent := make(map[string]string)
	for pid, list := range f.children {
		for _, m := range list {
			parent[m.ID] = pid
		}
	}
	d := 0
	cur := id
	for {
		p, ok := parent[cur]
		if !ok {
			break
		}
		d++
		cur = p
		if d > len(parent) {
			// cycle guard; malformed data should not hang the renderer
			break
		}
	}
	return ClampDepth(d)
}
