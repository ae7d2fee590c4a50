package api

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripple/internal/models"
	"ripple/internal/session"
)

// startServer runs a fiber app on an ephemeral port and returns its base URL.
func startServer(t *testing.T, setup func(app *fiber.App)) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	setup(app)

	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "http://" + ln.Addr().String() + "/api"
}

func TestClient_GetFeed(t *testing.T) {
	t.Parallel()

	var gotUser string
	base := startServer(t, func(app *fiber.App) {
		app.Get("/api/feed", func(c *fiber.Ctx) error {
			gotUser = c.Query("user_id")
			return c.JSON([]models.Post{
				{ID: 7, Author: "ada", AuthorID: 1, Content: "hello", LikeCount: 2,
					Comments: []models.Comment{{ID: 70, Author: "grace", Content: "hi"}}},
			})
		})
	})

	client := NewClient(base, time.Second)
	posts, err := client.GetFeed(context.Background(), session.Viewer{UserID: 3})
	require.NoError(t, err)

	assert.Equal(t, "3", gotUser)
	require.Len(t, posts, 1)
	assert.Equal(t, uint(7), posts[0].ID)
	require.Len(t, posts[0].Comments, 1)
	assert.Equal(t, "hi", posts[0].Comments[0].Content)
}

func TestClient_AnonymousViewerOmitsUserID(t *testing.T) {
	t.Parallel()

	var hadParam bool
	base := startServer(t, func(app *fiber.App) {
		app.Get("/api/feed", func(c *fiber.Ctx) error {
			hadParam = c.Query("user_id") != ""
			return c.JSON([]models.Post{})
		})
	})

	client := NewClient(base, time.Second)
	_, err := client.GetFeed(context.Background(), session.Viewer{})
	require.NoError(t, err)
	assert.False(t, hadParam)
}

func TestClient_GetLeaderboard(t *testing.T) {
	t.Parallel()

	base := startServer(t, func(app *fiber.App) {
		app.Get("/api/leaderboard", func(c *fiber.Ctx) error {
			return c.JSON([]models.LeaderboardEntry{
				{Username: "ada", Total: 15},
				{Username: "grace", Total: 7},
			})
		})
	})

	client := NewClient(base, time.Second)
	entries, err := client.GetLeaderboard(context.Background(), session.Viewer{UserID: 1})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ada", entries[0].Username)
}

func TestClient_CreatePostReturnsAssignedID(t *testing.T) {
	t.Parallel()

	var gotContent string
	base := startServer(t, func(app *fiber.App) {
		app.Post("/api/post", func(c *fiber.Ctx) error {
			var body struct {
				Content string `json:"content"`
			}
			require.NoError(t, c.BodyParser(&body))
			gotContent = body.Content
			return c.JSON(fiber.Map{"ok": true, "post_id": 42})
		})
	})

	client := NewClient(base, time.Second)
	id, err := client.CreatePost(context.Background(), session.Viewer{UserID: 1}, "first post")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, "first post", gotContent)
}

func TestClient_CreateCommentSendsParent(t *testing.T) {
	t.Parallel()

	var gotParent *uint
	base := startServer(t, func(app *fiber.App) {
		app.Post("/api/comment/:postID", func(c *fiber.Ctx) error {
			var body struct {
				Content string `json:"content"`
				Parent  *uint  `json:"parent"`
			}
			require.NoError(t, c.BodyParser(&body))
			gotParent = body.Parent
			return c.JSON(fiber.Map{"status": "comment added"})
		})
	})

	client := NewClient(base, time.Second)
	parent := uint(70)
	err := client.CreateComment(context.Background(), session.Viewer{UserID: 1}, 7, "a reply", &parent)
	require.NoError(t, err)
	require.NotNil(t, gotParent)
	assert.Equal(t, uint(70), *gotParent)
}

func TestClient_ErrorMapping(t *testing.T) {
	t.Parallel()

	base := startServer(t, func(app *fiber.App) {
		app.Delete("/api/post/:id", func(c *fiber.Ctx) error {
			switch c.Params("id") {
			case "404":
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "post not found"})
			case "403":
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not authorized"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "boom"})
			}
		})
		app.Post("/api/like/post/:id", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "already liked"})
		})
		app.Post("/api/post", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Content cannot be empty"})
		})
	})

	client := NewClient(base, time.Second)
	ctx := context.Background()
	viewer := session.Viewer{UserID: 1}

	t.Run("not found", func(t *testing.T) {
		err := client.DeletePost(ctx, viewer, 404)
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("forbidden", func(t *testing.T) {
		err := client.DeletePost(ctx, viewer, 403)
		assert.True(t, models.IsForbidden(err))
	})

	t.Run("already liked maps to conflict", func(t *testing.T) {
		err := client.LikePost(ctx, viewer, 7)
		assert.True(t, models.IsConflict(err))
	})

	t.Run("validation", func(t *testing.T) {
		_, err := client.CreatePost(ctx, viewer, "")
		assert.True(t, models.HasCode(err, models.CodeValidation))
	})

	t.Run("server error is a network failure", func(t *testing.T) {
		err := client.DeletePost(ctx, viewer, 500)
		assert.True(t, models.HasCode(err, models.CodeNetworkFailure))
	})
}

func TestClient_TimeoutMapsToTimeout(t *testing.T) {
	t.Parallel()

	base := startServer(t, func(app *fiber.App) {
		app.Get("/api/feed", func(c *fiber.Ctx) error {
			time.Sleep(300 * time.Millisecond)
			return c.JSON([]models.Post{})
		})
	})

	client := NewClient(base, 50*time.Millisecond)
	_, err := client.GetFeed(context.Background(), session.Viewer{UserID: 1})
	assert.True(t, models.IsTimeout(err))
}

func TestClient_UnreachableHostIsNetworkFailure(t *testing.T) {
	t.Parallel()

	// A listener that is immediately closed leaves a port nothing accepts on
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := NewClient("http://"+addr+"/api", time.Second)
	_, gerr := client.GetFeed(context.Background(), session.Viewer{UserID: 1})
	assert.True(t, models.HasCode(gerr, models.CodeNetworkFailure))
}

func TestClient_LikeRoutes(t *testing.T) {
	t.Parallel()

	var calls []string
	base := startServer(t, func(app *fiber.App) {
		record := func(name string) fiber.Handler {
			return func(c *fiber.Ctx) error {
				calls = append(calls, name+":"+c.Params("id"))
				return c.JSON(fiber.Map{"status": "ok"})
			}
		}
		app.Post("/api/like/post/:id", record("like_post"))
		app.Delete("/api/unlike/post/:id", record("unlike_post"))
		app.Post("/api/like/comment/:id", record("like_comment"))
		app.Delete("/api/unlike/comment/:id", record("unlike_comment"))
	})

	client := NewClient(base, time.Second)
	ctx := context.Background()
	viewer := session.Viewer{UserID: 1}

	require.NoError(t, client.LikePost(ctx, viewer, 7))
	require.NoError(t, client.UnlikePost(ctx, viewer, 7))
	require.NoError(t, client.LikeComment(ctx, viewer, 70))
	require.NoError(t, client.UnlikeComment(ctx, viewer, 70))

	assert.Equal(t, []string{
		"like_post:7", "unlike_post:7", "like_comment:70", "unlike_comment:70",
	}, calls)
}
