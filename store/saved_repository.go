package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SavedGenerationRepository interface {
	Get(ctx context.Context, id string) (*SavedGeneration, error)
	GetAll(ctx context.Context) ([]*SavedGeneration, error)
	Create(ctx context.Context, saved *SavedGeneration) error
	Delete(ctx context.Context, id string) error
}

type savedGenerationRepository struct {
	db *gorm.DB
}

func NewSavedGenerationRepository(db *gorm.DB) SavedGenerationRepository {
	return &savedGenerationRepository{db: db}
}

func (r *savedGenerationRepository) Get(ctx context.Context, id string) (*SavedGeneration, error) {
	var saved SavedGeneration
	if err := r.db.WithContext(ctx).Preload("App").First(&saved, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("saved generation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting saved generation %s: %w", id, err)
	}
	return &saved, nil
}

// GetAll lists saved generations, newest first.
func (r *savedGenerationRepository) GetAll(ctx context.Context) ([]*SavedGeneration, error) {
	var list []*SavedGeneration
	if err := r.db.WithContext(ctx).Preload("App").Order("created_at desc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("listing saved generations: %w", err)
	}
	return list, nil
}

// Create requires the referenced app to exist.
func (r *savedGenerationRepository) Create(ctx context.Context, saved *SavedGeneration) error {
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app App
		if err := tx.First(&app, "id = ?", saved.AppID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("app %s: %w", saved.AppID, ErrNotFound)
			}
			return fmt.Errorf("getting app %s: %w", saved.AppID, err)
		}
		if err := tx.Omit("App").Create(saved).Error; err != nil {
			return fmt.Errorf("creating saved generation: %w", err)
		}
		saved.App = app
		return nil
	})
}

func (r *savedGenerationRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&SavedGeneration{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting saved generation %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("saved generation %s: %w", id, ErrNotFound)
	}
	return nil
}
