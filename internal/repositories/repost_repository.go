package repositories

import (
	"fmt"

	"github.com/corvusant/skylark/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RepostRepository defines the interface for repost data operations
type RepostRepository interface {
	// CreateRepost inserts the repost row unless this user already reposted
	// the post, and reports whether this call inserted it.
	CreateRepost(repost *models.Repost) (bool, error)
	DeleteRepost(postID string, userID uint) error
	GetRepost(postID string, userID uint) (*models.Repost, error)
	GetRepostsByPostID(postID string) ([]models.Repost, error)
	DeleteRepostsByPostID(postID string) error
	// GetRepostedPostIDs reports which of the given posts the user has reposted.
	GetRepostedPostIDs(userID uint, postIDs []string) (map[string]bool, error)
}

// PostgresRepostRepository implements RepostRepository
type PostgresRepostRepository struct {
	db *gorm.DB
}

func NewPostgresRepostRepository(db *gorm.DB) *PostgresRepostRepository {
	return &PostgresRepostRepository{db: db}
}

func (r *PostgresRepostRepository) CreateRepost(repost *models.Repost) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(repost)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresRepostRepository) DeleteRepost(postID string, userID uint) error {
	res := r.db.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Repost{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("repost not found")
	}
	return nil
}

func (r *PostgresRepostRepository) GetRepost(postID string, userID uint) (*models.Repost, error) {
	var repost models.Repost
	if err := r.db.Where("post_id = ? AND user_id = ?", postID, userID).First(&repost).Error; err != nil {
		return nil, err
	}
	return &repost, nil
}

func (r *PostgresRepostRepository) GetRepostsByPostID(postID string) ([]models.Repost, error) {
	var reposts []models.Repost
	if err := r.db.Where("post_id = ?", postID).Find(&reposts).Error; err != nil {
		return nil, err
	}
	return reposts, nil
}

func (r *PostgresRepostRepository) DeleteRepostsByPostID(postID string) error {
	return r.db.Where("post_id = ?", postID).Delete(&models.Repost{}).Error
}

func (r *PostgresRepostRepository) GetRepostedPostIDs(userID uint, postIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(postIDs) == 0 {
		return result, nil
	}
	var reposts []models.Repost
	err := r.db.Where("user_id = ? AND post_id IN ?", userID, postIDs).Find(&reposts).Error
	if err != nil {
		return nil, err
	}
	for _, rp := range reposts {
		result[rp.PostID] = true
	}
	return result, nil
}
