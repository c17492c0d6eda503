package handlers

import (
	"log"
	"net/http"

	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/corvusant/skylark/backend/internal/notifications"
	"github.com/corvusant/skylark/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// ModerationHandler handles admin-issued notices
type ModerationHandler struct {
	userRepository      repositories.UserRepository
	notificationService *notifications.Service
}

// NewModerationHandler creates a new ModerationHandler
func NewModerationHandler(userRepo repositories.UserRepository, notificationService *notifications.Service) *ModerationHandler {
	return &ModerationHandler{
		userRepository:      userRepo,
		notificationService: notificationService,
	}
}

// RegisterModerationRoutes registers moderation routes; the group is expected
// to carry the admin gate.
func (h *ModerationHandler) RegisterModerationRoutes(g *echo.Group) {
	g.POST("/notices", h.CreateNotice)
}

// CreateNotice issues a system notice. An info notice without a recipient goes
// to every user; a violation notice always targets one user.
func (h *ModerationHandler) CreateNotice(c echo.Context) error {
	var req models.CreateNoticeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if req.Type == string(models.NotificationViolation) && req.RecipientID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "A violation notice requires a recipient")
	}

	if req.RecipientID != 0 {
		if _, err := h.userRepository.GetUserByID(req.RecipientID); err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "Recipient not found")
		}

		var ev notifications.Event
		if req.Type == string(models.NotificationViolation) {
			ev = notifications.NewViolationEvent(req.RecipientID, req.Title, req.Body, req.ActionURL)
		} else {
			ev = notifications.NewInfoEvent(req.RecipientID, req.Title, req.Body, req.ActionURL)
		}
		if err := h.notificationService.CreateIfNeeded(ev); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"recipients": 1}})
	}

	// Broadcast: one notice row per user, each with its own source identity.
	users, err := h.userRepository.GetUsers()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	delivered := 0
	for _, u := range users {
		ev := notifications.NewInfoEvent(u.ID, req.Title, req.Body, req.ActionURL)
		if err := h.notificationService.CreateIfNeeded(ev); err != nil {
			log.Printf("[moderation] notice create failed for user %d: %v", u.ID, err)
			continue
		}
		delivered++
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"recipients": delivered}})
}
