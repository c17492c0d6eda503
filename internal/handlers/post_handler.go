package handlers

import (
	"context"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/corvusant/skylark/backend/internal/notifications"
	"github.com/corvusant/skylark/backend/internal/repositories"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// mentionPattern matches @handles inside post content.
var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository      repositories.PostRepository
	userRepository      repositories.UserRepository
	likeRepository      repositories.LikeRepository
	repostRepository    repositories.RepostRepository
	notificationService *notifications.Service
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	likeRepo repositories.LikeRepository,
	repostRepo repositories.RepostRepository,
	notificationService *notifications.Service,
) *PostHandler {
	return &PostHandler{
		postRepository:      postRepo,
		userRepository:      userRepo,
		likeRepository:      likeRepo,
		repostRepository:    repostRepo,
		notificationService: notificationService,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/search", h.SearchPosts)
	g.GET("/posts/:id", h.GetPost)
	g.GET("/posts/:id/replies", h.GetPostReplies)
	g.DELETE("/posts/:id", h.DeletePost)
}

// CreatePost creates a new post. A post may be a reply (ReplyToID) or a quote
// (QuotedPostID) but not both; mentions are parsed out of the content. Each
// resulting notification is keyed to this post, so deleting the post later
// removes them again.
func (h *PostHandler) CreatePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if req.ReplyToID != "" && req.QuotedPostID != "" {
		return echo.NewHTTPError(http.StatusBadRequest, "A post cannot be both a reply and a quote")
	}

	ctx := c.Request().Context()

	var parent *models.Post
	if req.ReplyToID != "" {
		var err error
		parent, err = h.postRepository.GetPostByID(ctx, req.ReplyToID)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "Post being replied to not found")
		}
	}

	var quoted *models.Post
	if req.QuotedPostID != "" {
		var err error
		quoted, err = h.postRepository.GetPostByID(ctx, req.QuotedPostID)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "Post being quoted not found")
		}
	}

	mentioned := h.resolveMentions(req.Content)
	mentionIDs := make([]uint, len(mentioned))
	for i, u := range mentioned {
		mentionIDs[i] = u.ID
	}

	post := &models.Post{
		AuthorID:     currentUserID,
		Content:      req.Content,
		ReplyToID:    req.ReplyToID,
		QuotedPostID: req.QuotedPostID,
		Mentions:     mentionIDs,
	}

	if err := h.postRepository.CreatePost(ctx, post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	postID := post.ID.Hex()

	if parent != nil {
		go h.postRepository.IncrementRepliesCount(context.Background(), parent.ID.Hex())
		h.notify(notifications.NewReplyEvent(parent.AuthorID, currentUserID, postID))
	}
	if quoted != nil {
		h.notify(notifications.NewQuoteEvent(quoted.AuthorID, currentUserID, quoted.ID.Hex(), postID))
	}
	for _, u := range mentioned {
		// The parent's or quoted post's author is already being told
		// about this post; a mention on top would be noise.
		if parent != nil && u.ID == parent.AuthorID {
			continue
		}
		if quoted != nil && u.ID == quoted.AuthorID {
			continue
		}
		h.notify(notifications.NewMentionEvent(u.ID, currentUserID, postID))
	}

	return c.JSON(http.StatusCreated, post)
}

// resolveMentions maps @handles in the content to existing users, keeping
// first-mention order and dropping duplicates and unknown handles.
func (h *PostHandler) resolveMentions(content string) []models.User {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	var users []models.User
	seen := make(map[string]bool)
	for _, m := range matches {
		username := strings.ToLower(m[1])
		if seen[username] {
			continue
		}
		seen[username] = true
		user, err := h.userRepository.GetUserByUsername(username)
		if err != nil {
			continue
		}
		users = append(users, *user)
	}
	return users
}

func (h *PostHandler) notify(ev notifications.Event) {
	if err := h.notificationService.CreateIfNeeded(ev); err != nil {
		log.Printf("[posts] notification create failed: %v", err)
	}
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	postID := c.Param("id")

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if err == repositories.ErrPostNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, post)
}

// GetPosts retrieves recent posts, optionally restricted to one author
func (h *PostHandler) GetPosts(c echo.Context) error {
	skip, _ := strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit < 1 || limit > 50 {
		limit = 20
	}

	var posts []models.Post
	var err error

	if authorParam := c.QueryParam("author_id"); authorParam != "" {
		authorID, parseErr := strconv.ParseUint(authorParam, 10, 32)
		if parseErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid author ID")
		}
		posts, err = h.postRepository.GetPostsByAuthorID(c.Request().Context(), uint(authorID), skip, limit)
	} else {
		posts, err = h.postRepository.GetAllPosts(c.Request().Context(), skip, limit)
	}

	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, posts)
}

// GetPostReplies retrieves replies to a post
func (h *PostHandler) GetPostReplies(c echo.Context) error {
	postID := c.Param("id")
	skip, _ := strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit < 1 || limit > 50 {
		limit = 20
	}

	replies, err := h.postRepository.GetRepliesByPostID(c.Request().Context(), postID, skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, replies)
}

// SearchPosts searches post content
func (h *PostHandler) SearchPosts(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}

	posts, err := h.postRepository.SearchPosts(c.Request().Context(), query, 50)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, posts)
}

// DeletePost deletes a post along with the likes, reposts and notifications
// that hang off it. Notifications are matched through the source identities
// the post produced, so other posts' rows are untouched.
func (h *PostHandler) DeletePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	postID := c.Param("id")
	ctx := c.Request().Context()

	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		if err == repositories.ErrPostNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if post.AuthorID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this post")
	}

	likes, err := h.likeRepository.GetLikesByPostID(postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	reposts, err := h.repostRepository.GetRepostsByPostID(postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.postRepository.DeletePost(ctx, postID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.likeRepository.DeleteLikesByPostID(postID); err != nil {
		log.Printf("[posts] like cleanup failed for post %s: %v", postID, err)
	}
	if err := h.repostRepository.DeleteRepostsByPostID(postID); err != nil {
		log.Printf("[posts] repost cleanup failed for post %s: %v", postID, err)
	}

	likeIDs := make([]string, len(likes))
	for i, l := range likes {
		likeIDs[i] = strconv.FormatUint(uint64(l.ID), 10)
	}
	repostIDs := make([]string, len(reposts))
	for i, r := range reposts {
		repostIDs[i] = strconv.FormatUint(uint64(r.ID), 10)
	}
	mentionIDs := make([]string, len(post.Mentions))
	for i, userID := range post.Mentions {
		mentionIDs[i] = postID + ":" + strconv.FormatUint(uint64(userID), 10)
	}

	h.removeNotifications(notifications.SourcePostLike, likeIDs)
	h.removeNotifications(notifications.SourcePostRepost, repostIDs)
	h.removeNotifications(notifications.SourcePostReply, []string{postID})
	h.removeNotifications(notifications.SourcePostQuote, []string{postID})
	h.removeNotifications(notifications.SourcePostMention, mentionIDs)

	if post.ReplyToID != "" {
		go h.postRepository.DecrementRepliesCount(context.Background(), post.ReplyToID)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *PostHandler) removeNotifications(sourceType string, sourceIDs []string) {
	if err := h.notificationService.RemoveBySource(sourceType, sourceIDs); err != nil {
		log.Printf("[posts] notification cleanup failed for %s: %v", sourceType, err)
	}
}
