package services

import (
	"context"

	"github.com/Ash-333/nepse-data/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTokenStore persists push tokens in Postgres
type GormTokenStore struct {
	db *gorm.DB
}

// NewGormTokenStore creates a token store on the given database
func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

// SaveToken registers a token, re-associating it when it already exists.
// userID is nil for anonymous registrations.
func (s *GormTokenStore) SaveToken(ctx context.Context, token string, userID *uint, platform string) error {
	record := models.PushToken{
		Token:    token,
		UserID:   userID,
		Platform: platform,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
		}).
		Create(&record).Error
}

// RemoveToken deletes a token regardless of owner
func (s *GormTokenStore) RemoveToken(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&models.PushToken{}).Error
}

// ListTokens returns every registered token, authenticated and legacy alike
func (s *GormTokenStore) ListTokens(ctx context.Context) ([]string, error) {
	var tokens []string
	err := s.db.WithContext(ctx).
		Model(&models.PushToken{}).
		Distinct().
		Pluck("token", &tokens).Error
	return tokens, err
}

// ListTokensForUser returns the tokens registered by one user
func (s *GormTokenStore) ListTokensForUser(ctx context.Context, userID uint) ([]string, error) {
	var tokens []string
	err := s.db.WithContext(ctx).
		Model(&models.PushToken{}).
		Where("user_id = ?", userID).
		Pluck("token", &tokens).Error
	return tokens, err
}
