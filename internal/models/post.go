// Package models contains data structures for the feed client's domain.
package models

import "time"

// Post represents a post as delivered by the feed endpoint.
type Post struct {
	ID       uint   `json:"id"`
	Author   string `json:"author"`
	AuthorID uint   `json:"author_id"`
	Content  string `json:"content"`
	// LikeCount is server-computed at query time
	LikeCount int `json:"like_count"`
	// Liked indicates whether the current viewer liked this post.
	// The server may omit it, in which case the client's own record wins.
	Liked     *bool     `json:"liked,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Comments  []Comment `json:"comments"`
}

// Clone returns a deep copy of the post, comments included.
func (p Post) Clone() Post {
	out := p
	if p.Liked != nil {
		liked := *p.Liked
		out.Liked = &liked
	}
	out.Comments = CloneComments(p.Comments)
	return out
}
