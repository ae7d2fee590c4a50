// Package api is the REST boundary of the feed service.
//
// Each method maps to one request/response call; the client holds no feed
// state of its own. Failures are translated into the models.AppError
// taxonomy so the reconciliation engine can roll back and surface them.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ripple/internal/feed"
	"ripple/internal/models"
	"ripple/internal/session"
)

const DefaultBaseURL = "http://127.0.0.1:8000/api"

// Client talks to the feed service's REST API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a client for baseURL with a caller-visible timeout. A
// call that outlives the timeout is reported as TIMEOUT, never left pending.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Ensure Client satisfies the engine's REST boundary
var _ feed.API = (*Client)(nil)

// GetFeed returns the full ordered post list with nested comments.
func (c *Client) GetFeed(ctx context.Context, viewer session.Viewer) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/feed/", viewer, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetLeaderboard returns the ranked score entries.
func (c *Client) GetLeaderboard(ctx context.Context, viewer session.Viewer) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, "/leaderboard/", viewer, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

type createPostRequest struct {
	Content string `json:"content"`
}

type createPostResponse struct {
	OK     bool `json:"ok"`
	PostID uint `json:"post_id"`
}

// CreatePost submits a new post; the server assigns the id.
func (c *Client) CreatePost(ctx context.Context, viewer session.Viewer, content string) (uint, error) {
	var res createPostResponse
	err := c.do(ctx, http.MethodPost, "/post/", viewer, createPostRequest{Content: content}, &res)
	if err != nil {
		return 0, err
	}
	return res.PostID, nil
}

// DeletePost removes a post owned by the viewer.
func (c *Client) DeletePost(ctx context.Context, viewer session.Viewer, postID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/post/%d/", postID), viewer, nil, nil)
}

type createCommentRequest struct {
	Content string `json:"content"`
	Parent  *uint  `json:"parent"`
}

// CreateComment adds a comment to a post, optionally as a reply to parentID.
func (c *Client) CreateComment(ctx context.Context, viewer session.Viewer, postID uint, content string, parentID *uint) error {
	body := createCommentRequest{Content: content, Parent: parentID}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/comment/%d/", postID), viewer, body, nil)
}

// DeleteComment removes a comment owned by the viewer; the server cascades
// the subtree.
func (c *Client) DeleteComment(ctx context.Context, viewer session.Viewer, commentID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/comment/delete/%d/", commentID), viewer, nil, nil)
}

// LikePost records the viewer's like on a post.
func (c *Client) LikePost(ctx context.Context, viewer session.Viewer, postID uint) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/like/post/%d/", postID), viewer, nil, nil)
}

// UnlikePost withdraws the viewer's like on a post.
func (c *Client) UnlikePost(ctx context.Context, viewer session.Viewer, postID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/unlike/post/%d/", postID), viewer, nil, nil)
}

// LikeComment records the viewer's like on a comment.
func (c *Client) LikeComment(ctx context.Context, viewer session.Viewer, commentID uint) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/like/comment/%d/", commentID), viewer, nil, nil)
}

// UnlikeComment withdraws the viewer's like on a comment.
func (c *Client) UnlikeComment(ctx context.Context, viewer session.Viewer, commentID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/unlike/comment/%d/", commentID), viewer, nil, nil)
}

// do issues one request and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, viewer session.Viewer, body, out interface{}) error {
	endpoint := c.BaseURL + path
	if !viewer.Anonymous() {
		endpoint += "?user_id=" + url.QueryEscape(viewer.QueryValue())
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return models.NewValidationError(err.Error())
		}
		reqBody = bytes.NewBuffer(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return models.NewValidationError(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mapStatusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return models.NewNetworkError(err)
		}
	}
	return nil
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.NewTimeoutError(err)
	}
	return models.NewNetworkError(err)
}

type errorResponse struct {
	Error string `json:"error"`
}

func mapStatusError(resp *http.Response) error {
	var payload errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return &models.AppError{Code: models.CodeNotFound, Message: messageOr(payload, "not found")}
	case http.StatusForbidden, http.StatusUnauthorized:
		return &models.AppError{Code: models.CodeForbidden, Message: messageOr(payload, "not authorized")}
	case http.StatusConflict:
		return models.NewConflictError(messageOr(payload, "conflict"))
	case http.StatusBadRequest:
		// The like endpoints report a duplicate like as a 400
		if strings.Contains(payload.Error, "already liked") {
			return models.NewConflictError(payload.Error)
		}
		return models.NewValidationError(messageOr(payload, "bad request"))
	default:
		return models.NewNetworkError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

func messageOr(payload errorResponse, fallback string) string {
	if payload.Error != "" {
		return payload.Error
	}
	return fallback
}
