package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/corvusant/skylark/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	postRepository   repositories.PostRepository
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
	likeRepository   repositories.LikeRepository
	repostRepository repositories.RepostRepository
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	followRepo repositories.FollowRepository,
	likeRepo repositories.LikeRepository,
	repostRepo repositories.RepostRepository,
) *FeedHandler {
	return &FeedHandler{
		postRepository:   postRepo,
		userRepository:   userRepo,
		followRepository: followRepo,
		likeRepository:   likeRepo,
		repostRepository: repostRepo,
	}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// EnrichedPost is a post with author info and user-specific flags
type EnrichedPost struct {
	models.Post
	Author     models.UserCompact `json:"author"`
	IsLiked    bool               `json:"is_liked"`
	IsReposted bool               `json:"is_reposted"`
}

// GetFeed returns enriched feed posts for the current user: posts by the
// people they follow plus their own.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	skip := int64((page - 1) * limit)

	followingIDs, err := h.followRepository.GetFollowingIDs(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	authorIDs := append(followingIDs, currentUserID)

	posts, err := h.postRepository.GetFeedPosts(c.Request().Context(), authorIDs, skip, int64(limit))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Get total count for pagination
	allPosts, err := h.postRepository.GetFeedPosts(c.Request().Context(), authorIDs, 0, 10000)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	totalItems := len(allPosts)

	// Collect unique author IDs and post IDs
	authorSet := make(map[uint]bool)
	postIDs := make([]string, len(posts))
	for i, p := range posts {
		authorSet[p.AuthorID] = true
		postIDs[i] = p.ID.Hex()
	}
	uniqueAuthorIDs := make([]uint, 0, len(authorSet))
	for id := range authorSet {
		uniqueAuthorIDs = append(uniqueAuthorIDs, id)
	}

	users, err := h.userRepository.GetUsersByIDs(uniqueAuthorIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	userMap := make(map[uint]models.UserCompact, len(users))
	for _, u := range users {
		userMap[u.ID] = u.ToCompact()
	}

	likedMap, _ := h.likeRepository.GetLikedPostIDs(currentUserID, postIDs)
	repostedMap, _ := h.repostRepository.GetRepostedPostIDs(currentUserID, postIDs)

	// Build enriched posts
	enrichedPosts := make([]EnrichedPost, len(posts))
	for i, p := range posts {
		pid := p.ID.Hex()
		enrichedPosts[i] = EnrichedPost{
			Post:       p,
			Author:     userMap[p.AuthorID],
			IsLiked:    likedMap[pid],
			IsReposted: repostedMap[pid],
		}
	}

	totalPages := int(math.Ceil(float64(totalItems) / float64(limit)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"posts": enrichedPosts,
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      totalItems,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}
