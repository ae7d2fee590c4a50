// Command client is a terminal viewer for the ripple feed: it keeps a
// reconciled local copy of the post list and prints it whenever it changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ripple/internal/api"
	"ripple/internal/config"
	"ripple/internal/feed"
	"ripple/internal/leaderboard"
	"ripple/internal/models"
	"ripple/internal/observability"
	"ripple/internal/push"
	"ripple/internal/session"
	"ripple/internal/timefmt"
)

func main() {
	userFlag := flag.Uint("user", 0, "acting user id (overrides DEFAULT_USER_ID)")
	flag.Parse()

	// .env is optional; config falls back to defaults
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.GlobalLogger

	viewer := session.DefaultViewer()
	if cfg.DefaultUserID != 0 {
		viewer = session.Viewer{UserID: cfg.DefaultUserID}
	}
	if *userFlag != 0 {
		viewer = session.Viewer{UserID: uint(*userFlag)}
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout())
	board := leaderboard.NewStore()
	engine := feed.NewEngine(client, board, viewer, logger)

	adapter := push.NewAdapter(push.Options{
		URL:               cfg.SocketURL,
		ReconnectDelay:    cfg.ReconnectDelay(),
		ReconnectDelayMax: cfg.ReconnectDelayMax(),
		ReconnectAttempts: cfg.ReconnectAttempts,
		Logger:            logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter.OnFeedUpdate(engine.ApplyFeedUpdate)
	adapter.OnCommentUpdate(engine.ApplyCommentUpdate)
	adapter.OnLikeUpdate(engine.ApplyLikeUpdate)
	adapter.OnConnect(func() {
		// Deltas missed while disconnected are lost; re-fetch everything
		if err := engine.Refresh(ctx); err != nil {
			logger.Warn("refresh on connect failed", "error", err.Error())
		}
	})

	engine.SetOnChange(func() { render(engine) })

	if err := engine.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", "error", err.Error())
	}

	adapter.Start(ctx)

	logger.Info("client running", "viewer", viewer.UserID, "api", cfg.APIBaseURL, "socket", cfg.SocketURL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	adapter.Close()
}

func render(engine *feed.Engine) {
	now := time.Now()
	posts := engine.Posts()
	fmt.Printf("\n=== feed (%d posts, %s) ===\n", len(posts), engine.State())
	for _, p := range posts {
		liked := " "
		if p.Liked != nil && *p.Liked {
			liked = "*"
		}
		fmt.Printf("[%s] #%d %s: %s (%d likes, %s)\n",
			liked, p.ID, p.Author, p.Content, p.LikeCount, timefmt.Ago(p.CreatedAt, now))
		renderComments(p.Comments, "  ", now)
	}
	if entries := engine.Leaderboard().Entries(); len(entries) > 0 {
		fmt.Println("--- leaderboard ---")
		for i, entry := range entries {
			fmt.Printf("%d. %s %d\n", i+1, entry.Username, entry.Total)
		}
	}
}

func renderComments(cs []models.Comment, indent string, now time.Time) {
	for _, c := range cs {
		liked := " "
		if c.Liked != nil && *c.Liked {
			liked = "*"
		}
		fmt.Printf("%s[%s] %s: %s (%d likes, %s)\n",
			indent, liked, c.Author, c.Content, c.LikeCount, timefmt.Ago(c.CreatedAt, now))
		renderComments(c.Children, indent+"  ", now)
	}
}
