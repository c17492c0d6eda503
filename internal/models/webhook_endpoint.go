package models

import "time"

// WebhookEndpoint is a developer-registered callback URL. Every snapshot
// delivered to it is signed with the per-endpoint Secret. The Last* fields
// are delivery bookkeeping written back after each attempt; LastSentAt only
// ever records successful sends.
type WebhookEndpoint struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	UserID         uint       `json:"user_id" gorm:"index;not null"`
	Endpoint       string     `json:"endpoint"`
	Secret         string     `json:"-"` // Shown once at creation, never serialized afterwards
	IsActive       bool       `json:"is_active" gorm:"default:true"`
	LastSentAt     *time.Time `json:"last_sent_at"`
	LastStatusCode *int       `json:"last_status_code"`
	LastError      string     `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CreateWebhookRequest defines the request body for registering an endpoint
type CreateWebhookRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}

// UpdateWebhookRequest defines the request body for updating an endpoint
type UpdateWebhookRequest struct {
	Endpoint string `json:"endpoint,omitempty" validate:"omitempty,url"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// TestWebhookRequest defines the request body for an ad hoc test delivery to
// an endpoint/secret pair that is not persisted.
type TestWebhookRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Secret   string `json:"secret" validate:"required"`
}
