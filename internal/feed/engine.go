// Package feed owns the client's authoritative local view of the post list
// and reconciles it against server truth.
//
// Local user actions are applied optimistically before the REST call
// resolves; a confirmed mutation triggers a full authoritative re-fetch,
// while a failed one rolls the optimistic change back exactly. Push deltas
// merge into the same list at any time, including while a mutation is
// pending; the re-fetch that follows the mutation wins conflicting counts.
package feed

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"ripple/internal/comments"
	"ripple/internal/leaderboard"
	"ripple/internal/models"
	"ripple/internal/observability"
	"ripple/internal/session"
)

// API is the REST boundary the engine mutates and re-fetches through.
type API interface {
	GetFeed(ctx context.Context, viewer session.Viewer) ([]models.Post, error)
	GetLeaderboard(ctx context.Context, viewer session.Viewer) ([]models.LeaderboardEntry, error)
	CreatePost(ctx context.Context, viewer session.Viewer, content string) (uint, error)
	DeletePost(ctx context.Context, viewer session.Viewer, postID uint) error
	CreateComment(ctx context.Context, viewer session.Viewer, postID uint, content string, parentID *uint) error
	DeleteComment(ctx context.Context, viewer session.Viewer, commentID uint) error
	LikePost(ctx context.Context, viewer session.Viewer, postID uint) error
	UnlikePost(ctx context.Context, viewer session.Viewer, postID uint) error
	LikeComment(ctx context.Context, viewer session.Viewer, commentID uint) error
	UnlikeComment(ctx context.Context, viewer session.Viewer, commentID uint) error
}

// State of the post-list snapshot.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateMutationPending
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateMutationPending:
		return "mutation_pending"
	default:
		return "idle"
	}
}

type targetKind int

const (
	targetPost targetKind = iota
	targetComment
)

type targetKey struct {
	kind targetKind
	id   uint
}

// post pairs the content fields with the per-viewer like flag and the
// comment tree; the Comments slice inside data stays empty.
type post struct {
	data  models.Post
	liked bool
	tree  *comments.Tree
}

// Engine reconciles the local post list with server state.
type Engine struct {
	api    API
	board  *leaderboard.Store
	logger *observability.Logger

	mu       sync.Mutex
	viewer   session.Viewer
	posts    []*post
	pending  map[targetKey]uuid.UUID
	fetching int

	onChange func()
}

// NewEngine builds an engine acting as viewer. The leaderboard store is
// refreshed in lockstep with every feed refresh.
func NewEngine(apiClient API, board *leaderboard.Store, viewer session.Viewer, logger *observability.Logger) *Engine {
	if logger == nil {
		logger = observability.GlobalLogger
	}
	return &Engine{
		api:     apiClient,
		board:   board,
		logger:  logger.WithComponent("feed"),
		viewer:  viewer,
		pending: make(map[targetKey]uuid.UUID),
	}
}

// SetOnChange registers a callback fired after the snapshot changes.
func (e *Engine) SetOnChange(fn func()) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

// Viewer returns the current acting identity.
func (e *Engine) Viewer() session.Viewer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewer
}

// State reports the snapshot's reconciliation state. Pending mutations take
// precedence over an in-flight fetch.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) > 0 {
		return StateMutationPending
	}
	if e.fetching > 0 {
		return StateFetching
	}
	return StateIdle
}

// PendingActions returns the ids of in-flight mutations.
func (e *Engine) PendingActions() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]uuid.UUID, 0, len(e.pending))
	for _, id := range e.pending {
		out = append(out, id)
	}
	return out
}

// Posts returns a deep copy of the reconciled post list, comment trees and
// viewer like flags included.
func (e *Engine) Posts() []models.Post {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Post, 0, len(e.posts))
	for _, p := range e.posts {
		out = append(out, e.materialize(p))
	}
	return out
}

// Leaderboard exposes the store refreshed alongside the feed.
func (e *Engine) Leaderboard() *leaderboard.Store {
	return e.board
}

// Refresh fetches authoritative feed state and replaces the local view,
// preserving per-viewer like flags the payload does not contradict. The
// leaderboard fetch is issued together with the feed fetch; the two complete
// independently and each store applies its own replacement. On feed failure
// the previous snapshot is retained unchanged.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	viewer := e.viewer
	e.fetching++
	e.mu.Unlock()

	var (
		wg      sync.WaitGroup
		fresh   []models.Post
		entries []models.LeaderboardEntry
		feedErr error
		lbErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		fresh, feedErr = e.api.GetFeed(ctx, viewer)
	}()
	go func() {
		defer wg.Done()
		entries, lbErr = e.api.GetLeaderboard(ctx, viewer)
	}()
	wg.Wait()

	if lbErr != nil {
		// Last-known-good entries stay in place
		e.logger.Warn("leaderboard refresh failed", "error", lbErr.Error())
	} else if e.board != nil {
		e.board.ReplaceAll(entries)
	}

	e.mu.Lock()
	e.fetching--
	if feedErr != nil {
		e.mu.Unlock()
		return feedErr
	}
	if e.viewer != viewer {
		// A viewer switch happened mid-flight; this payload is stale
		e.mu.Unlock()
		return nil
	}
	e.applyAuthoritative(fresh)
	onChange := e.onChange
	e.mu.Unlock()

	notify(onChange)
	return nil
}

// applyAuthoritative rebuilds the post list from a full fetch. Explicit
// per-viewer like fields in the payload always win; where the payload is
// silent, locally accumulated like flags carry over for surviving targets.
// Posts absent from the payload are dropped. Callers hold e.mu.
func (e *Engine) applyAuthoritative(fresh []models.Post) {
	old := make(map[uint]*post, len(e.posts))
	for _, p := range e.posts {
		old[p.data.ID] = p
	}

	next := make([]*post, 0, len(fresh))
	for _, fp := range fresh {
		np := &post{data: fp.Clone()}
		np.data.Comments = nil
		np.data.Liked = nil

		var sticky map[uint]bool
		if prev, ok := old[fp.ID]; ok {
			np.liked = prev.liked
			sticky = prev.tree.LikedIDs()
		}
		if fp.Liked != nil {
			np.liked = *fp.Liked
		}

		np.tree = comments.NewTree()
		np.tree.ReplaceAll(fp.Comments, sticky)
		next = append(next, np)
	}
	e.posts = next
}

// CreatePost submits a new post. Nothing is materialized optimistically —
// the server owns id assignment, so the content only appears through the
// re-fetch that follows a confirmed create.
func (e *Engine) CreatePost(ctx context.Context, content string) (uint, error) {
	if content == "" {
		return 0, models.NewValidationError("Content is required")
	}
	e.mu.Lock()
	viewer := e.viewer
	e.mu.Unlock()

	id, err := e.api.CreatePost(ctx, viewer, content)
	e.logger.LogMutation("create_post", "post", err)
	if err != nil {
		return 0, err
	}
	return id, e.Refresh(ctx)
}

// CreateComment submits a comment on a post, optionally replying to
// parentID. Like creates of posts, the content appears via re-fetch only.
func (e *Engine) CreateComment(ctx context.Context, postID uint, content string, parentID *uint) error {
	if content == "" {
		return models.NewValidationError("Content is required")
	}
	e.mu.Lock()
	viewer := e.viewer
	e.mu.Unlock()

	err := e.api.CreateComment(ctx, viewer, postID, content, parentID)
	e.logger.LogMutation("create_comment", "comment", err)
	if err != nil {
		return err
	}
	return e.Refresh(ctx)
}

// DeletePost optimistically removes the post, then confirms with the
// server. A failed call restores the removed post from the pre-mutation
// snapshot without re-fetching, since the server never committed anything.
func (e *Engine) DeletePost(ctx context.Context, postID uint) error {
	key := targetKey{targetPost, postID}

	e.mu.Lock()
	if _, busy := e.pending[key]; busy {
		e.mu.Unlock()
		return models.NewConflictError("a mutation is already pending for this post")
	}
	idx := e.findPostIndex(postID)
	if idx < 0 {
		e.mu.Unlock()
		return models.NewNotFoundError("post", postID)
	}
	snapshot := e.posts[idx]
	e.posts = append(e.posts[:idx], e.posts[idx+1:]...)
	actionID := uuid.New()
	e.pending[key] = actionID
	viewer := e.viewer
	onChange := e.onChange
	e.mu.Unlock()
	notify(onChange)

	err := e.api.DeletePost(ctx, viewer, postID)
	e.logger.LogMutation("delete_post", "post", err)

	e.mu.Lock()
	delete(e.pending, key)
	if err != nil {
		if e.viewer == viewer && e.findPostIndex(postID) < 0 {
			if idx > len(e.posts) {
				idx = len(e.posts)
			}
			e.posts = append(e.posts[:idx], append([]*post{snapshot}, e.posts[idx:]...)...)
		}
		onChange = e.onChange
		e.mu.Unlock()
		notify(onChange)
		return err
	}
	e.mu.Unlock()
	return e.Refresh(ctx)
}

// DeleteComment optimistically removes the comment and its subtree, then
// confirms with the server; a failed call restores the pre-mutation tree.
func (e *Engine) DeleteComment(ctx context.Context, commentID uint) error {
	key := targetKey{targetComment, commentID}

	e.mu.Lock()
	if _, busy := e.pending[key]; busy {
		e.mu.Unlock()
		return models.NewConflictError("a mutation is already pending for this comment")
	}
	p := e.findPostByComment(commentID)
	if p == nil {
		e.mu.Unlock()
		return models.NewNotFoundError("comment", commentID)
	}
	postID := p.data.ID
	snapshot := p.tree.Clone()
	p.tree.Remove(commentID)
	actionID := uuid.New()
	e.pending[key] = actionID
	viewer := e.viewer
	onChange := e.onChange
	e.mu.Unlock()
	notify(onChange)

	err := e.api.DeleteComment(ctx, viewer, commentID)
	e.logger.LogMutation("delete_comment", "comment", err)

	e.mu.Lock()
	delete(e.pending, key)
	if err != nil {
		if e.viewer == viewer {
			if cur := e.findPost(postID); cur != nil {
				cur.tree = snapshot
			}
		}
		onChange = e.onChange
		e.mu.Unlock()
		notify(onChange)
		return err
	}
	e.mu.Unlock()
	return e.Refresh(ctx)
}

// ToggleLikePost flips the viewer's like on a post. The flag and count
// change immediately; a failed call rolls both back exactly, a confirmed
// one re-fetches authoritative state.
func (e *Engine) ToggleLikePost(ctx context.Context, postID uint) error {
	key := targetKey{targetPost, postID}

	e.mu.Lock()
	if _, busy := e.pending[key]; busy {
		e.mu.Unlock()
		return models.NewConflictError("a mutation is already pending for this post")
	}
	p := e.findPost(postID)
	if p == nil {
		e.mu.Unlock()
		return models.NewNotFoundError("post", postID)
	}
	liking := !p.liked
	p.liked = liking
	p.data.LikeCount = adjust(p.data.LikeCount, liking)
	actionID := uuid.New()
	e.pending[key] = actionID
	viewer := e.viewer
	onChange := e.onChange
	e.mu.Unlock()
	notify(onChange)

	var err error
	if liking {
		err = e.api.LikePost(ctx, viewer, postID)
	} else {
		err = e.api.UnlikePost(ctx, viewer, postID)
	}
	e.logger.LogMutation("toggle_like_post", "post", err)

	e.mu.Lock()
	delete(e.pending, key)
	if err != nil {
		if e.viewer == viewer {
			if cur := e.findPost(postID); cur != nil {
				cur.liked = !liking
				cur.data.LikeCount = adjust(cur.data.LikeCount, !liking)
			}
		}
		onChange = e.onChange
		e.mu.Unlock()
		notify(onChange)
		return err
	}
	e.mu.Unlock()
	return e.Refresh(ctx)
}

// ToggleLikeComment flips the viewer's like on a comment within a post.
func (e *Engine) ToggleLikeComment(ctx context.Context, postID, commentID uint) error {
	key := targetKey{targetComment, commentID}

	e.mu.Lock()
	if _, busy := e.pending[key]; busy {
		e.mu.Unlock()
		return models.NewConflictError("a mutation is already pending for this comment")
	}
	p := e.findPost(postID)
	if p == nil {
		e.mu.Unlock()
		return models.NewNotFoundError("post", postID)
	}
	liked, lerr := p.tree.LikeState(commentID)
	if lerr != nil {
		e.mu.Unlock()
		return lerr
	}
	liking := !liked
	_ = p.tree.SetLikeState(commentID, liking, delta(liking))
	actionID := uuid.New()
	e.pending[key] = actionID
	viewer := e.viewer
	onChange := e.onChange
	e.mu.Unlock()
	notify(onChange)

	var err error
	if liking {
		err = e.api.LikeComment(ctx, viewer, commentID)
	} else {
		err = e.api.UnlikeComment(ctx, viewer, commentID)
	}
	e.logger.LogMutation("toggle_like_comment", "comment", err)

	e.mu.Lock()
	delete(e.pending, key)
	if err != nil {
		if e.viewer == viewer {
			if cur := e.findPost(postID); cur != nil && cur.tree.Contains(commentID) {
				_ = cur.tree.SetLikeState(commentID, !liking, delta(!liking))
			}
		}
		onChange = e.onChange
		e.mu.Unlock()
		notify(onChange)
		return err
	}
	e.mu.Unlock()
	return e.Refresh(ctx)
}

// SwitchViewer changes the acting identity, invalidating every post,
// comment and like flag before re-fetching under the new viewer.
func (e *Engine) SwitchViewer(ctx context.Context, v session.Viewer) error {
	e.mu.Lock()
	if v == e.viewer {
		e.mu.Unlock()
		return nil
	}
	e.viewer = v
	e.posts = nil
	e.pending = make(map[targetKey]uuid.UUID)
	onChange := e.onChange
	e.mu.Unlock()

	if e.board != nil {
		e.board.Clear()
	}
	notify(onChange)
	return e.Refresh(ctx)
}

// ApplyFeedUpdate merges a push-delivered post-list delta by set-union on
// post id. Content fields of known posts are replaced; unknown posts are
// added; posts missing from the delta stay (only an authoritative fetch
// removes them). Locally-held like flags survive unless the delta's own
// per-viewer data contradicts them.
func (e *Engine) ApplyFeedUpdate(update models.FeedUpdate) {
	e.mu.Lock()
	for _, fp := range update.Posts {
		if p := e.findPost(fp.ID); p != nil {
			p.data.Author = fp.Author
			p.data.AuthorID = fp.AuthorID
			p.data.Content = fp.Content
			p.data.CreatedAt = fp.CreatedAt
			p.data.LikeCount = fp.LikeCount
			if fp.Liked != nil {
				p.liked = *fp.Liked
			}
			if fp.Comments != nil {
				p.tree.ReplaceAll(fp.Comments, p.tree.LikedIDs())
			}
			continue
		}
		np := &post{data: fp.Clone()}
		np.data.Comments = nil
		np.data.Liked = nil
		if fp.Liked != nil {
			np.liked = *fp.Liked
		}
		np.tree = comments.NewTreeFrom(fp.Comments)
		e.posts = append(e.posts, np)
	}
	// The feed reads newest-first; restore that order after the union
	sort.SliceStable(e.posts, func(i, j int) bool {
		return e.posts[i].data.CreatedAt.After(e.posts[j].data.CreatedAt)
	})
	onChange := e.onChange
	e.mu.Unlock()

	e.logger.LogPushEvent("feed_update", 0)
	notify(onChange)
}

// ApplyCommentUpdate merges a fresh copy of one post's comment tree. Deltas
// for posts not present locally are dropped so deleted content is never
// resurrected.
func (e *Engine) ApplyCommentUpdate(update models.CommentUpdate) {
	e.mu.Lock()
	p := e.findPost(update.PostID)
	if p == nil {
		e.mu.Unlock()
		e.logger.Debug("comment_update for unknown post dropped", "post_id", update.PostID)
		return
	}
	p.data.Author = update.Post.Author
	p.data.AuthorID = update.Post.AuthorID
	p.data.Content = update.Post.Content
	p.data.CreatedAt = update.Post.CreatedAt
	p.data.LikeCount = update.Post.LikeCount
	if update.Post.Liked != nil {
		p.liked = *update.Post.Liked
	}
	p.tree.ReplaceAll(update.Post.Comments, p.tree.LikedIDs())
	onChange := e.onChange
	e.mu.Unlock()

	e.logger.LogPushEvent("comment_update", update.PostID)
	notify(onChange)
}

// ApplyLikeUpdate sets an authoritative like count for a post or comment.
// Updates for targets not present locally are dropped.
func (e *Engine) ApplyLikeUpdate(update models.LikeUpdate) {
	e.mu.Lock()
	p := e.findPost(update.PostID)
	if p == nil {
		e.mu.Unlock()
		e.logger.Debug("like_update for unknown post dropped", "post_id", update.PostID)
		return
	}
	if update.CommentID != nil {
		if err := p.tree.SetLikeCount(*update.CommentID, update.LikeCount, update.Liked); err != nil {
			e.mu.Unlock()
			e.logger.Debug("like_update for unknown comment dropped", "comment_id", *update.CommentID)
			return
		}
	} else {
		p.data.LikeCount = update.LikeCount
		if update.Liked != nil {
			p.liked = *update.Liked
		}
	}
	onChange := e.onChange
	e.mu.Unlock()

	e.logger.LogPushEvent("like_update", update.PostID)
	notify(onChange)
}

func (e *Engine) materialize(p *post) models.Post {
	out := p.data.Clone()
	liked := p.liked
	out.Liked = &liked
	out.Comments = p.tree.Roots()
	return out
}

func (e *Engine) findPost(id uint) *post {
	if idx := e.findPostIndex(id); idx >= 0 {
		return e.posts[idx]
	}
	return nil
}

func (e *Engine) findPostIndex(id uint) int {
	for i, p := range e.posts {
		if p.data.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) findPostByComment(commentID uint) *post {
	for _, p := range e.posts {
		if p.tree.Contains(commentID) {
			return p
		}
	}
	return nil
}

func adjust(count int, liking bool) int {
	count += delta(liking)
	if count < 0 {
		return 0
	}
	return count
}

func delta(liking bool) int {
	if liking {
		return 1
	}
	return -1
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}
