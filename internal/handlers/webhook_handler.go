package handlers

import (
	"net/http"
	"strconv"

	"github.com/corvusant/skylark/backend/internal/models"
	"github.com/corvusant/skylark/backend/internal/notifications"
	"github.com/corvusant/skylark/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// WebhookHandler handles webhook endpoint management and manual deliveries
type WebhookHandler struct {
	webhookRepository   repositories.WebhookEndpointRepository
	notificationService *notifications.Service
	dispatcher          *notifications.Dispatcher
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookRepo repositories.WebhookEndpointRepository, notificationService *notifications.Service, dispatcher *notifications.Dispatcher) *WebhookHandler {
	return &WebhookHandler{
		webhookRepository:   webhookRepo,
		notificationService: notificationService,
		dispatcher:          dispatcher,
	}
}

// RegisterWebhookRoutes registers webhook-related routes
func (h *WebhookHandler) RegisterWebhookRoutes(g *echo.Group) {
	g.POST("/webhooks", h.CreateWebhook)
	g.GET("/webhooks", h.GetWebhooks)
	g.POST("/webhooks/test", h.TestWebhook)
	g.PUT("/webhooks/:id", h.UpdateWebhook)
	g.DELETE("/webhooks/:id", h.DeleteWebhook)
	g.POST("/webhooks/:id/deliver", h.DeliverToWebhook)
}

// CreateWebhook registers a new webhook endpoint for the current user. The
// signing secret is generated here and returned exactly once; afterwards it
// can only be rotated by recreating the endpoint.
func (h *WebhookHandler) CreateWebhook(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateWebhookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := notifications.ValidateEndpointURL(req.Endpoint); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	secret := uuid.NewString()
	endpoint := &models.WebhookEndpoint{
		UserID:   currentUserID,
		Endpoint: req.Endpoint,
		Secret:   secret,
		IsActive: true,
	}

	if err := h.webhookRepository.Create(endpoint); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data": echo.Map{
			"webhook": endpoint,
			"secret":  secret,
		},
	})
}

// GetWebhooks lists the current user's webhook endpoints
func (h *WebhookHandler) GetWebhooks(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	endpoints, err := h.webhookRepository.GetByUserID(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"webhooks": endpoints}})
}

// UpdateWebhook changes a webhook endpoint's URL or active flag
func (h *WebhookHandler) UpdateWebhook(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	webhookID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid webhook ID")
	}

	var req models.UpdateWebhookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	endpoint, err := h.webhookRepository.GetByIDAndUserID(uint(webhookID), currentUserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Webhook not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if req.Endpoint != "" {
		if err := notifications.ValidateEndpointURL(req.Endpoint); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		endpoint.Endpoint = req.Endpoint
	}
	if req.IsActive != nil {
		endpoint.IsActive = *req.IsActive
	}

	if err := h.webhookRepository.Update(endpoint); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"webhook": endpoint}})
}

// DeleteWebhook removes a webhook endpoint
func (h *WebhookHandler) DeleteWebhook(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	webhookID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid webhook ID")
	}

	if err := h.webhookRepository.Delete(uint(webhookID), currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Webhook not found")
	}

	return c.NoContent(http.StatusNoContent)
}

// TestWebhook sends the caller's current notification snapshot to an arbitrary
// endpoint with a caller-supplied secret, without registering anything and
// without touching delivery bookkeeping.
func (h *WebhookHandler) TestWebhook(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.TestWebhookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := notifications.ValidateEndpointURL(req.Endpoint); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	snapshot, err := h.notificationService.BuildSnapshot(c.Request().Context(), currentUserID, models.FilterAll, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	result := h.dispatcher.DeliverAdHoc(c.Request().Context(), req.Endpoint, req.Secret, snapshot)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"delivery": result}})
}

// DeliverToWebhook pushes the caller's current notification snapshot to one of
// their registered endpoints on demand
func (h *WebhookHandler) DeliverToWebhook(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	webhookID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid webhook ID")
	}

	endpoint, err := h.webhookRepository.GetByIDAndUserID(uint(webhookID), currentUserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Webhook not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	snapshot, err := h.notificationService.BuildSnapshot(c.Request().Context(), currentUserID, models.FilterAll, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	results := h.dispatcher.Deliver(c.Request().Context(), []models.WebhookEndpoint{*endpoint}, snapshot)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"delivery": results[0]}})
}
