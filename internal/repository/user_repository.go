package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"daily-todo/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert finds or creates the user behind an external identity and refreshes
// its display name.
func (r *UserRepository) Upsert(ctx context.Context, provider, externalID, displayName string) (model.User, error) {
	var rec userRecord
	db := r.db.WithContext(ctx)
	err := db.Where("provider = ? AND external_id = ?", provider, externalID).First(&rec).Error
	switch {
	case err == nil:
		if rec.DisplayName != displayName {
			if err := db.Model(&rec).Update("display_name", displayName).Error; err != nil {
				return model.User{}, fmt.Errorf("%w: update user: %w", model.ErrStore, err)
			}
			rec.DisplayName = displayName
		}
		return rec.toModel(), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = userRecord{
			ID:          uuid.NewString(),
			Provider:    provider,
			ExternalID:  externalID,
			DisplayName: displayName,
		}
		if err := db.Create(&rec).Error; err != nil {
			return model.User{}, fmt.Errorf("%w: create user: %w", model.ErrStore, err)
		}
		return rec.toModel(), nil
	default:
		return model.User{}, fmt.Errorf("%w: find user: %w", model.ErrStore, err)
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, fmt.Errorf("%w: user %s", model.ErrNotFound, id)
		}
		return model.User{}, fmt.Errorf("%w: find user: %w", model.ErrStore, err)
	}
	return rec.toModel(), nil
}

func (r *UserRepository) ListByProvider(ctx context.Context, provider string) ([]model.User, error) {
	var recs []userRecord
	if err := r.db.WithContext(ctx).Where("provider = ?", provider).Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: list users: %w", model.ErrStore, err)
	}
	users := make([]model.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, rec.toModel())
	}
	return users, nil
}
