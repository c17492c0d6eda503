package repositories

import (
	"fmt"
	"time"

	"github.com/corvusant/skylark/backend/internal/models"
	"gorm.io/gorm"
)

// WebhookEndpointRepository defines the interface for webhook endpoint
// records and their delivery bookkeeping. Bookkeeping writes are single-row
// updates so concurrent deliveries never read-modify-write in application code.
type WebhookEndpointRepository interface {
	Create(endpoint *models.WebhookEndpoint) error
	GetByIDAndUserID(id, userID uint) (*models.WebhookEndpoint, error)
	GetByUserID(userID uint) ([]models.WebhookEndpoint, error)
	GetActiveByUserID(userID uint) ([]models.WebhookEndpoint, error)
	Update(endpoint *models.WebhookEndpoint) error
	Delete(id, userID uint) error
	// RecordDeliverySuccess stores the outcome of a successful delivery and
	// clears any previously recorded error.
	RecordDeliverySuccess(id uint, sentAt time.Time, statusCode int) error
	// RecordDeliveryFailure stores the failure outcome. It never touches
	// last_sent_at: that column only ever reflects successful sends.
	RecordDeliveryFailure(id uint, statusCode *int, message string) error
}

// PostgresWebhookEndpointRepository implements WebhookEndpointRepository
type PostgresWebhookEndpointRepository struct {
	db *gorm.DB
}

func NewPostgresWebhookEndpointRepository(db *gorm.DB) *PostgresWebhookEndpointRepository {
	return &PostgresWebhookEndpointRepository{db: db}
}

func (r *PostgresWebhookEndpointRepository) Create(endpoint *models.WebhookEndpoint) error {
	return r.db.Create(endpoint).Error
}

func (r *PostgresWebhookEndpointRepository) GetByIDAndUserID(id, userID uint) (*models.WebhookEndpoint, error) {
	var endpoint models.WebhookEndpoint
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&endpoint).Error; err != nil {
		return nil, err
	}
	return &endpoint, nil
}

func (r *PostgresWebhookEndpointRepository) GetByUserID(userID uint) ([]models.WebhookEndpoint, error) {
	var endpoints []models.WebhookEndpoint
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&endpoints).Error
	return endpoints, err
}

func (r *PostgresWebhookEndpointRepository) GetActiveByUserID(userID uint) ([]models.WebhookEndpoint, error) {
	var endpoints []models.WebhookEndpoint
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).Find(&endpoints).Error
	return endpoints, err
}

func (r *PostgresWebhookEndpointRepository) Update(endpoint *models.WebhookEndpoint) error {
	return r.db.Save(endpoint).Error
}

func (r *PostgresWebhookEndpointRepository) Delete(id, userID uint) error {
	res := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.WebhookEndpoint{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("webhook endpoint not found")
	}
	return nil
}

func (r *PostgresWebhookEndpointRepository) RecordDeliverySuccess(id uint, sentAt time.Time, statusCode int) error {
	return r.db.Model(&models.WebhookEndpoint{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_sent_at":     sentAt,
			"last_status_code": statusCode,
			"last_error":       "",
		}).Error
}

func (r *PostgresWebhookEndpointRepository) RecordDeliveryFailure(id uint, statusCode *int, message string) error {
	return r.db.Model(&models.WebhookEndpoint{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_status_code": statusCode,
			"last_error":       message,
		}).Error
}
