package store

import (
	"context"

	"AmberWatch/internal/models"

	"gorm.io/gorm"
)

type SightingStore struct {
	db *gorm.DB
}

func NewSightingStore(db *gorm.DB) *SightingStore {
	return &SightingStore{db: db}
}

func (s *SightingStore) Create(ctx context.Context, sighting *models.Sighting) error {
	return translate(s.db.WithContext(ctx).Create(sighting).Error)
}

func (s *SightingStore) ListByAlert(ctx context.Context, alertID string) ([]models.Sighting, error) {
	var sightings []models.Sighting
	err := s.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		Order("created_at DESC").
		Find(&sightings).Error
	return sightings, translate(err)
}

// ListRecent 跨警报的最新目击报告
func (s *SightingStore) ListRecent(ctx context.Context, limit int) ([]models.Sighting, error) {
	var sightings []models.Sighting
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&sightings).Error
	return sightings, translate(err)
}
