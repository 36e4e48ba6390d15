package services

import (
	"context"
	"strings"
	"time"

	"AmberWatch/internal/models"
	"AmberWatch/pkg/metrics"
)

const RecentSightingsLimit = 100

type SightingRepository interface {
	Create(ctx context.Context, sighting *models.Sighting) error
	ListByAlert(ctx context.Context, alertID string) ([]models.Sighting, error)
	ListRecent(ctx context.Context, limit int) ([]models.Sighting, error)
}

// SightingInput 市民目击表单
type SightingInput struct {
	Location        string   `json:"location"`
	Lat             *float64 `json:"lat"`
	Lng             *float64 `json:"lng"`
	Description     string   `json:"description"`
	ReporterContact string   `json:"reporter_contact"`
	PhotoURL        string   `json:"photo_url"`
}

type SightingService struct {
	repo    SightingRepository
	alerts  *AlertService
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewSightingService(repo SightingRepository, alerts *AlertService, m *metrics.Metrics) *SightingService {
	return &SightingService{repo: repo, alerts: alerts, metrics: m, now: time.Now}
}

// Submit 任何人都可以提交；reporter 为 nil 表示匿名。不做去重
func (s *SightingService) Submit(ctx context.Context, reporter *models.Profile, alertID string, in SightingInput) (*models.Sighting, error) {
	photo := strings.TrimSpace(in.PhotoURL)
	if photo == "" {
		return nil, ErrPhotoRequired
	}
	location := strings.TrimSpace(in.Location)
	if location == "" {
		return nil, invalid("location is required")
	}
	if (in.Lat == nil) != (in.Lng == nil) {
		return nil, invalid("coordinates need both lat and lng")
	}
	if _, err := s.alerts.Get(ctx, alertID); err != nil {
		return nil, err
	}

	sighting := &models.Sighting{
		AlertID:         alertID,
		Location:        location,
		Lat:             in.Lat,
		Lng:             in.Lng,
		Description:     optional(in.Description),
		ReporterContact: optional(in.ReporterContact),
		PhotoURL:        photo,
		CreatedAt:       s.now().UTC(),
	}
	if reporter != nil {
		id := reporter.ID
		sighting.ReporterID = &id
	}
	if err := s.repo.Create(ctx, sighting); err != nil {
		return nil, backend(err, "save sighting failed")
	}
	s.metrics.SightingSubmitted()
	return sighting, nil
}

// ListByAlert 按提交时间倒序
func (s *SightingService) ListByAlert(ctx context.Context, alertID string) ([]models.Sighting, error) {
	sightings, err := s.repo.ListByAlert(ctx, alertID)
	if err != nil {
		return nil, backend(err, "list sightings failed")
	}
	return sightings, nil
}

// ListRecent 警方查看全部警报下最近 100 条目击
func (s *SightingService) ListRecent(ctx context.Context, actor *models.Profile) ([]models.Sighting, error) {
	if err := requireAuthority(actor); err != nil {
		return nil, err
	}
	sightings, err := s.repo.ListRecent(ctx, RecentSightingsLimit)
	if err != nil {
		return nil, backend(err, "list recent sightings failed")
	}
	return sightings, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
