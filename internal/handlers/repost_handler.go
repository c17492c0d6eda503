package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/corvusant/skylark/backend/internal/notifications"
	"github.com/corvusant/skylark/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// RepostHandler handles HTTP requests related to reposts
type RepostHandler struct {
	repostRepository    repositories.RepostRepository
	postRepository      repositories.PostRepository
	notificationService *notifications.Service
}

// NewRepostHandler creates a new RepostHandler
func NewRepostHandler(repostRepo repositories.RepostRepository, postRepo repositories.PostRepository, notificationService *notifications.Service) *RepostHandler {
	return &RepostHandler{
		repostRepository:    repostRepo,
		postRepository:      postRepo,
		notificationService: notificationService,
	}
}

// RegisterRepostRoutes registers repost-related routes
func (h *RepostHandler) RegisterRepostRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/reposts", h.RepostPost)
	g.DELETE("/posts/:post_id/reposts", h.UndoRepost)
}

// RepostPost handles reposting a post
func (h *RepostHandler) RepostPost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	postID := c.Param("post_id")

	// Verify post exists
	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if err == repositories.ErrPostNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	repost := &models.Repost{
		PostID: postID,
		UserID: currentUserID,
	}

	inserted, err := h.repostRepository.CreateRepost(repost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !inserted {
		return echo.NewHTTPError(http.StatusConflict, "Post already reposted by this user")
	}

	// Increment reposts count in the post
	go h.postRepository.IncrementRepostsCount(context.Background(), postID)

	ev := notifications.NewRepostEvent(post.AuthorID, currentUserID, postID, repost.ID)
	if err := h.notificationService.CreateIfNeeded(ev); err != nil {
		log.Printf("[reposts] notification create failed: %v", err)
	}

	return c.JSON(http.StatusCreated, repost)
}

// UndoRepost removes a repost and withdraws the repost notification
func (h *RepostHandler) UndoRepost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	postID := c.Param("post_id")

	repost, err := h.repostRepository.GetRepost(postID, currentUserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Repost not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.repostRepository.DeleteRepost(postID, currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Decrement reposts count in the post
	go h.postRepository.DecrementRepostsCount(context.Background(), postID)

	repostID := strconv.FormatUint(uint64(repost.ID), 10)
	if err := h.notificationService.RemoveBySource(notifications.SourcePostRepost, []string{repostID}); err != nil {
		log.Printf("[reposts] notification cleanup failed: %v", err)
	}

	return c.NoContent(http.StatusNoContent)
}
