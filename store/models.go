package store

import (
	"time"

	"github.com/santiagomed/conjure/schema"
)

// App is a persisted generation.
type App struct {
	ID        string                 `gorm:"primaryKey;size:36"`
	Code      string                 `gorm:"type:text;not null"`
	Model     string                 `gorm:"size:100;not null"`
	Prompt    string                 `gorm:"type:text"`
	Analytics *schema.TokenAnalytics `gorm:"serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *App) ToSchema() schema.GeneratedApp {
	return schema.GeneratedApp{
		ID:        a.ID,
		Code:      a.Code,
		Model:     a.Model,
		Prompt:    a.Prompt,
		Analytics: a.Analytics,
		CreatedAt: a.CreatedAt,
	}
}

// SavedGeneration is an app the user kept under a title.
type SavedGeneration struct {
	ID          string `gorm:"primaryKey;size:36"`
	Title       string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	AppID       string `gorm:"size:36;not null;index"`
	App         App    `gorm:"foreignKey:AppID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
}

func (s *SavedGeneration) ToSchema() schema.SavedGeneration {
	return schema.SavedGeneration{
		ID:           s.ID,
		Title:        s.Title,
		Description:  s.Description,
		CreatedAt:    s.CreatedAt,
		GeneratedApp: s.App.ToSchema(),
	}
}
