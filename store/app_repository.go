package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/santiagomed/conjure/schema"
)

type AppRepository interface {
	Get(ctx context.Context, id string) (*App, error)
	Create(ctx context.Context, app *App) error
	UpdateAnalytics(ctx context.Context, id string, analytics *schema.TokenAnalytics) error
}

type appRepository struct {
	db *gorm.DB
}

func NewAppRepository(db *gorm.DB) AppRepository {
	return &appRepository{db: db}
}

func (r *appRepository) Get(ctx context.Context, id string) (*App, error) {
	var app App
	if err := r.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("app %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting app %s: %w", id, err)
	}
	return &app, nil
}

// Create assigns a new id when the app has none.
func (r *appRepository) Create(ctx context.Context, app *App) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		return fmt.Errorf("creating app: %w", err)
	}
	return nil
}

func (r *appRepository) UpdateAnalytics(ctx context.Context, id string, analytics *schema.TokenAnalytics) error {
	res := r.db.WithContext(ctx).Model(&App{ID: id}).Select("Analytics").Updates(&App{Analytics: analytics})
	if res.Error != nil {
		return fmt.Errorf("updating analytics for app %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("app %s: %w", id, ErrNotFound)
	}
	return nil
}
