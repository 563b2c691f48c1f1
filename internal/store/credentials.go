package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/perfpulse/meetsched/internal/domain"
)

// GetCredential returns the stored credential for a user and provider.
func (s *Store) GetCredential(ctx context.Context, userID string, provider domain.Provider) (*domain.OAuthCredential, error) {
	var cred domain.OAuthCredential
	err := s.db.WithContext(ctx).
		First(&cred, "user_id = ? AND provider = ?", userID, provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Resource: "credential", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return &cred, nil
}

// UpsertCredential stores a full token set, replacing any existing credential
// for the same user and provider.
func (s *Store) UpsertCredential(ctx context.Context, cred *domain.OAuthCredential) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token", "refresh_token", "expires_at", "updated_at",
			}),
		}).
		Create(cred).Error
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}

// UpdateTokens replaces the access token and expiry. The refresh token is
// only replaced when the provider issued a new one.
func (s *Store) UpdateTokens(ctx context.Context, userID string, provider domain.Provider, accessToken, refreshToken string, expiresAt time.Time) error {
	updates := map[string]any{
		"access_token": accessToken,
		"expires_at":   expiresAt,
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	result := s.db.WithContext(ctx).
		Model(&domain.OAuthCredential{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update tokens: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &domain.NotFoundError{Resource: "credential", ID: userID}
	}
	return nil
}

// ClearCredential blanks all token fields for a user and provider after a
// permanent refresh rejection.
func (s *Store) ClearCredential(ctx context.Context, userID string, provider domain.Provider) error {
	err := s.db.WithContext(ctx).
		Model(&domain.OAuthCredential{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Updates(map[string]any{
			"access_token":  "",
			"refresh_token": "",
			"expires_at":    time.Time{},
		}).Error
	if err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}
