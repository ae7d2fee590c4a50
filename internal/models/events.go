package models

// Push event payloads. Each mirrors the shape of the corresponding REST
// resource, delivered outside the request/response cycle.

// FeedUpdate is a full or partial post-list payload.
type FeedUpdate struct {
	Posts []Post `json:"posts"`
}

// CommentUpdate carries a fresh copy of the post whose comment tree changed.
type CommentUpdate struct {
	PostID uint `json:"post_id"`
	Post   Post `json:"post"`
}

// LikeUpdate carries an absolute like count for a post or, when CommentID is
// set, for a comment within that post.
type LikeUpdate struct {
	PostID    uint  `json:"post_id"`
	CommentID *uint `json:"comment_id,omitempty"`
	LikeCount int   `json:"like_count"`
	// Liked is the server's view of the current viewer's like, when it has one
	Liked *bool `json:"liked,omitempty"`
}
