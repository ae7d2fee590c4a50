package models

import "time"

// Comment represents a single comment in a post's reply tree. Replies are
// nested under Children in insertion order; ParentID is nil for top-level
// comments.
type Comment struct {
	ID       uint   `json:"id"`
	Author   string `json:"author"`
	AuthorID uint   `json:"author_id"`
	PostID   uint   `json:"post_id"`
	ParentID *uint  `json:"parent_id"`
	Content  string `json:"content"`
	// LikeCount is server-computed at query time
	LikeCount int `json:"like_count"`
	// Liked indicates whether the current viewer liked this comment (may be omitted)
	Liked     *bool     `json:"liked,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Children  []Comment `json:"children,omitempty"`
}

// Clone returns a deep copy of the comment and its subtree.
func (c Comment) Clone() Comment {
	out := c
	if c.ParentID != nil {
		id := *c.ParentID
		out.ParentID = &id
	}
	if c.Liked != nil {
		liked := *c.Liked
		out.Liked = &liked
	}
	out.Children = CloneComments(c.Children)
	return out
}

// CloneComments deep-copies a comment slice.
func CloneComments(in []Comment) []Comment {
	if in == nil {
		return nil
	}
	out := make([]Comment, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
