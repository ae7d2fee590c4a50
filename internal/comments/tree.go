// Package comments implements the per-post store of threaded replies.
//
// The tree is kept as an arena of nodes indexed by comment id with explicit
// child-id lists, so cascade deletes and depth-first walks never chase
// pointer cycles. Ordering is insertion order: new replies append, and no
// mutation ever reorders siblings.
package comments

import (
	"ripple/internal/models"
)

type node struct {
	data     models.Comment // Children left empty; structure lives in childIDs
	liked    bool
	childIDs []uint
}

// Tree is an ordered, recursively nested collection of comments for one post.
type Tree struct {
	nodes map[uint]*node
	roots []uint
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{nodes: make(map[uint]*node)}
}

// NewTreeFrom builds a tree from a nested authoritative payload.
func NewTreeFrom(fresh []models.Comment) *Tree {
	t := NewTree()
	t.ReplaceAll(fresh, nil)
	return t
}

// Len returns the number of comments in the tree, replies included.
func (t *Tree) Len() int { return len(t.nodes) }

// Contains reports whether a comment id is present.
func (t *Tree) Contains(id uint) bool {
	_, ok := t.nodes[id]
	return ok
}

// Insert adds c as a child of parentID, or as a new top-level comment when
// parentID is nil. Returns NotFound when the parent is not in the tree. A
// comment id that is already present has its content refreshed in place
// instead of being duplicated (push deltas may redeliver).
func (t *Tree) Insert(parentID *uint, c models.Comment) error {
	if existing, ok := t.nodes[c.ID]; ok {
		liked := existing.liked
		if c.Liked != nil {
			liked = *c.Liked
		}
		data := flatten(c)
		// Position is fixed at first insertion; only content refreshes
		data.ParentID = existing.data.ParentID
		t.nodes[c.ID] = &node{data: data, liked: liked, childIDs: existing.childIDs}
		return nil
	}

	if parentID != nil {
		if *parentID == c.ID {
			return models.NewValidationError("comment cannot be its own parent")
		}
		parent, ok := t.nodes[*parentID]
		if !ok {
			return models.NewNotFoundError("comment", *parentID)
		}
		parent.childIDs = append(parent.childIDs, c.ID)
	} else {
		t.roots = append(t.roots, c.ID)
	}

	liked := false
	if c.Liked != nil {
		liked = *c.Liked
	}
	data := flatten(c)
	if parentID != nil {
		id := *parentID
		data.ParentID = &id
	} else {
		data.ParentID = nil
	}
	t.nodes[c.ID] = &node{data: data, liked: liked}
	return nil
}

// Remove deletes the comment and its entire subtree. Absent ids are a no-op
// (a delete may race with a reconciliation fetch that already dropped the
// node); the return value reports whether anything was removed.
func (t *Tree) Remove(id uint) bool {
	target, ok := t.nodes[id]
	if !ok {
		return false
	}

	// Cascade: depth-first over the subtree
	stack := []uint{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n, ok := t.nodes[cur]; ok {
			stack = append(stack, n.childIDs...)
			delete(t.nodes, cur)
		}
	}

	if target.data.ParentID != nil {
		if parent, ok := t.nodes[*target.data.ParentID]; ok {
			parent.childIDs = removeID(parent.childIDs, id)
		}
	} else {
		t.roots = removeID(t.roots, id)
	}
	return true
}

// SetLikeState sets the viewer's liked flag and adjusts the like count by
// delta for the given comment. Returns NotFound when the id is absent.
func (t *Tree) SetLikeState(id uint, liked bool, delta int) error {
	n, ok := t.nodes[id]
	if !ok {
		return models.NewNotFoundError("comment", id)
	}
	n.liked = liked
	n.data.LikeCount += delta
	if n.data.LikeCount < 0 {
		n.data.LikeCount = 0
	}
	return nil
}

// SetLikeCount overwrites the like count with an authoritative absolute
// value, optionally updating the viewer's liked flag when the payload says.
func (t *Tree) SetLikeCount(id uint, count int, liked *bool) error {
	n, ok := t.nodes[id]
	if !ok {
		return models.NewNotFoundError("comment", id)
	}
	n.data.LikeCount = count
	if liked != nil {
		n.liked = *liked
	}
	return nil
}

// LikeState reports the viewer's liked flag for a comment.
func (t *Tree) LikeState(id uint) (bool, error) {
	n, ok := t.nodes[id]
	if !ok {
		return false, models.NewNotFoundError("comment", id)
	}
	return n.liked, nil
}

// ReplaceAll rebuilds the tree from an authoritative payload. Like flags the
// payload carries explicitly always win; where the payload is silent, sticky
// entries (transiently unconfirmed local toggles) are re-applied for ids
// still present. Children whose parent reference cannot be resolved within
// the payload, duplicates, and self-referencing entries are dropped.
func (t *Tree) ReplaceAll(fresh []models.Comment, sticky map[uint]bool) {
	t.nodes = make(map[uint]*node)
	t.roots = nil
	t.addAll(nil, fresh, sticky)
}

func (t *Tree) addAll(parentID *uint, cs []models.Comment, sticky map[uint]bool) {
	for _, c := range cs {
		if _, dup := t.nodes[c.ID]; dup {
			continue
		}
		liked := false
		switch {
		case c.Liked != nil:
			liked = *c.Liked
		case sticky != nil:
			liked = sticky[c.ID]
		}
		data := flatten(c)
		if parentID != nil {
			id := *parentID
			data.ParentID = &id
		} else {
			data.ParentID = nil
		}
		t.nodes[c.ID] = &node{data: data, liked: liked}
		if parentID != nil {
			t.nodes[*parentID].childIDs = append(t.nodes[*parentID].childIDs, c.ID)
		} else {
			t.roots = append(t.roots, c.ID)
		}
		id := c.ID
		t.addAll(&id, c.Children, sticky)
	}
}

// Roots returns a deep nested copy of the tree with liked flags materialized.
func (t *Tree) Roots() []models.Comment {
	return t.materialize(t.roots)
}

// Get returns a deep copy of one comment and its subtree.
func (t *Tree) Get(id uint) (models.Comment, error) {
	if _, ok := t.nodes[id]; !ok {
		return models.Comment{}, models.NewNotFoundError("comment", id)
	}
	out := t.materialize([]uint{id})
	return out[0], nil
}

// Clone returns an independent copy of the tree.
func (t *Tree) Clone() *Tree {
	out := NewTree()
	out.roots = append([]uint(nil), t.roots...)
	for id, n := range t.nodes {
		out.nodes[id] = &node{
			data:     n.data.Clone(),
			liked:    n.liked,
			childIDs: append([]uint(nil), n.childIDs...),
		}
	}
	return out
}

// LikedIDs returns the set of comment ids the viewer has liked.
func (t *Tree) LikedIDs() map[uint]bool {
	out := make(map[uint]bool)
	for id, n := range t.nodes {
		if n.liked {
			out[id] = true
		}
	}
	return out
}

func (t *Tree) materialize(ids []uint) []models.Comment {
	out := make([]models.Comment, 0, len(ids))
	for _, id := range ids {
		n := t.nodes[id]
		c := n.data.Clone()
		liked := n.liked
		c.Liked = &liked
		c.Children = t.materialize(n.childIDs)
		out = append(out, c)
	}
	return out
}

func flatten(c models.Comment) models.Comment {
	out := c.Clone()
	out.Children = nil
	out.Liked = nil
	return out
}

func removeID(ids []uint, id uint) []uint {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
