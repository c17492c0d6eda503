package repositories

import (
	"time"

	"github.com/corvusant/skylark/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepository defines the interface for notification row
// operations. Rows are only ever inserted, deleted, or marked read; there is
// no general update.
type NotificationRepository interface {
	// InsertIfAbsent inserts the row unless its (source_type, source_id)
	// pair already exists. It reports whether this call inserted the row;
	// losing a race is not an error.
	InsertIfAbsent(notification *models.Notification) (bool, error)
	// DeleteBySource removes every row matching the source type and any of
	// the given source IDs. An empty ID set is a no-op.
	DeleteBySource(sourceType string, sourceIDs []string) error
	// GetRecentByRecipient returns the newest rows for a recipient,
	// optionally restricted to one type (empty type means all).
	GetRecentByRecipient(recipientID uint, notifType models.NotificationType, limit int) ([]models.Notification, error)
	CountUnread(recipientID uint) (int64, error)
	MarkAllAsRead(recipientID uint) error
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) InsertIfAbsent(notification *models.Notification) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_type"}, {Name: "source_id"}},
		DoNothing: true,
	}).Create(notification)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *postgresNotificationRepository) DeleteBySource(sourceType string, sourceIDs []string) error {
	if len(sourceIDs) == 0 {
		return nil
	}
	return r.db.Where("source_type = ? AND source_id IN ?", sourceType, sourceIDs).
		Delete(&models.Notification{}).Error
}

func (r *postgresNotificationRepository) GetRecentByRecipient(recipientID uint, notifType models.NotificationType, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	q := r.db.Where("recipient_id = ?", recipientID)
	if notifType != "" {
		q = q.Where("type = ?", string(notifType))
	}
	// Secondary sort on id keeps ordering deterministic for rows created in
	// the same instant.
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}

func (r *postgresNotificationRepository) CountUnread(recipientID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) MarkAllAsRead(recipientID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Update("read_at", time.Now()).Error
}
