package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"AmberWatch/internal/models"
	"AmberWatch/internal/store"
	"AmberWatch/pkg/logger"
	"AmberWatch/pkg/metrics"
	"AmberWatch/pkg/search"

	"go.uber.org/zap"
)

const (
	ResolvedListLimit = 20
	searchLimit       = 50
	maxChildAge       = 18
)

type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	Get(ctx context.Context, id string) (*models.Alert, error)
	ListActive(ctx context.Context) ([]models.Alert, error)
	ListResolved(ctx context.Context, limit int) ([]models.Alert, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Alert, error)
	UpdateStatus(ctx context.Context, id string, status models.AlertStatus, at time.Time) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, status models.AlertStatus) (int64, error)
}

type AlertIndex interface {
	Upsert(ctx context.Context, doc search.AlertDoc) error
	Rebuild(ctx context.Context, docs []search.AlertDoc) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, text, status string, limit int) ([]search.Hit, error)
}

// AlertInput 创建警报的表单
type AlertInput struct {
	ChildName        string           `json:"child_name"`
	Age              *int             `json:"age"`
	PhotoURL         string           `json:"photo_url"`
	LastSeenLocation string           `json:"last_seen_location"`
	LastSeenLat      *float64         `json:"last_seen_lat"`
	LastSeenLng      *float64         `json:"last_seen_lng"`
	TimeMissing      *time.Time       `json:"time_missing"`
	Description      string           `json:"description"`
	RiskLevel        models.RiskLevel `json:"risk_level"`
}

// Validate 在任何存储调用之前完成全部校验
func (in *AlertInput) Validate() error {
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
	in.ChildName = strings.TrimSpace(in.ChildName)
	in.LastSeenLocation = strings.TrimSpace(in.LastSeenLocation)
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case in.PhotoURL == "":
		return ErrPhotoRequired
	case in.ChildName == "":
		return invalid("child name is required")
	case in.Age == nil:
		return invalid("age is required")
	case *in.Age < 0 || *in.Age > maxChildAge:
		return invalid("age must be between 0 and 18")
	case in.LastSeenLocation == "":
		return invalid("last seen location is required")
	case in.TimeMissing == nil || in.TimeMissing.IsZero():
		return invalid("time missing is required")
	case in.Description == "":
		return invalid("description is required")
	case !in.RiskLevel.Valid():
		return invalid("risk level must be low, medium or high")
	}
	if (in.LastSeenLat == nil) != (in.LastSeenLng == nil) {
		return invalid("last seen coordinates need both lat and lng")
	}
	return nil
}

type AlertService struct {
	repo    AlertRepository
	feed    *AlertFeed
	index   AlertIndex
	metrics *metrics.Metrics
	now     func() time.Time
}

type AlertOption func(*AlertService)

func WithAlertIndex(idx AlertIndex) AlertOption       { return func(s *AlertService) { s.index = idx } }
func WithAlertMetrics(m *metrics.Metrics) AlertOption { return func(s *AlertService) { s.metrics = m } }
func WithAlertClock(now func() time.Time) AlertOption { return func(s *AlertService) { s.now = now } }

func NewAlertService(repo AlertRepository, feed *AlertFeed, opts ...AlertOption) *AlertService {
	s := &AlertService{repo: repo, feed: feed, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 发布新警报；推送与索引失败只记录日志，警报已经落库
func (s *AlertService) Create(ctx context.Context, actor *models.Profile, in AlertInput) (*models.Alert, error) {
	if err := requireAuthority(actor); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	createdBy := actor.ID
	alert := &models.Alert{
		ChildName:        in.ChildName,
		Age:              *in.Age,
		PhotoURL:         in.PhotoURL,
		LastSeenLocation: in.LastSeenLocation,
		LastSeenLat:      in.LastSeenLat,
		LastSeenLng:      in.LastSeenLng,
		TimeMissing:      in.TimeMissing.UTC(),
		Description:      in.Description,
		RiskLevel:        in.RiskLevel,
		Status:           models.AlertActive,
		CreatedBy:        &createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, backend(err, "create alert failed")
	}

	s.metrics.AlertCreated()
	if err := s.feed.PublishCreated(ctx, alert); err != nil {
		logger.Warn("publish alert created failed", zap.String("alert", alert.ID), zap.Error(err))
	}
	s.reindex(ctx, alert)
	return alert, nil
}

func (s *AlertService) ListActive(ctx context.Context) ([]models.Alert, error) {
	alerts, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, backend(err, "list active alerts failed")
	}
	return alerts, nil
}

// ListResolved 最近解决的 20 条，按更新时间倒序
func (s *AlertService) ListResolved(ctx context.Context) ([]models.Alert, error) {
	alerts, err := s.repo.ListResolved(ctx, ResolvedListLimit)
	if err != nil {
		return nil, backend(err, "list resolved alerts failed")
	}
	return alerts, nil
}

func (s *AlertService) Get(ctx context.Context, id string) (*models.Alert, error) {
	alert, err := s.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, backend(err, "load alert failed")
	}
	return alert, nil
}

// SetStatus active 只能转为 resolved 或 inactive，相同状态视为成功且不修改记录
func (s *AlertService) SetStatus(ctx context.Context, actor *models.Profile, id string, status models.AlertStatus) error {
	if err := requireAuthority(actor); err != nil {
		return err
	}
	if !status.Valid() {
		return invalid("unknown alert status")
	}
	alert, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if alert.Status == status {
		return nil
	}
	if alert.Status != models.AlertActive {
		return ErrInvalidTransition.WithContext("from", string(alert.Status)).WithContext("to", string(status))
	}

	now := s.now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, status, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAlertNotFound
		}
		return backend(err, "update alert status failed")
	}
	s.metrics.AlertStatusChanged(string(status))

	alert.Status = status
	alert.UpdatedAt = now
	s.reindex(ctx, alert)
	return nil
}

// Delete 硬删除，目击记录保留
func (s *AlertService) Delete(ctx context.Context, actor *models.Profile, id string) error {
	if err := requireAuthority(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAlertNotFound
		}
		return backend(err, "delete alert failed")
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, id); err != nil {
			logger.Warn("remove alert from index failed", zap.String("alert", id), zap.Error(err))
		}
	}
	return nil
}

// Search 在进行中的警报里全文检索，按相关度排序
func (s *AlertService) Search(ctx context.Context, q string) ([]models.Alert, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalid("search query is required")
	}
	hits, err := s.index.Search(ctx, q, string(models.AlertActive), searchLimit)
	if err != nil {
		return nil, backend(err, "search alerts failed")
	}
	if len(hits) == 0 {
		return []models.Alert{}, nil
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, backend(err, "load search results failed")
	}
	byID := make(map[string]models.Alert, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	out := make([]models.Alert, 0, len(found))
	for _, id := range ids {
		if a, ok := byID[id]; ok && a.Status == models.AlertActive {
			out = append(out, a)
		}
	}
	return out, nil
}

// RebuildIndex 启动时用进行中的警报重建索引
func (s *AlertService) RebuildIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	alerts, err := s.repo.ListActive(ctx)
	if err != nil {
		return err
	}
	docs := make([]search.AlertDoc, 0, len(alerts))
	for i := range alerts {
		docs = append(docs, alertDoc(&alerts[i]))
	}
	return s.index.Rebuild(ctx, docs)
}

// RefreshActiveGauge 由调度器周期调用
func (s *AlertService) RefreshActiveGauge(ctx context.Context) {
	n, err := s.repo.CountByStatus(ctx, models.AlertActive)
	if err != nil {
		logger.Warn("count active alerts failed", zap.Error(err))
		return
	}
	s.metrics.SetActiveAlerts(n)
}

func (s *AlertService) reindex(ctx context.Context, alert *models.Alert) {
	if s.index == nil {
		return
	}
	if err := s.index.Upsert(ctx, alertDoc(alert)); err != nil {
		logger.Warn("index alert failed", zap.String("alert", alert.ID), zap.Error(err))
	}
}

func alertDoc(a *models.Alert) search.AlertDoc {
	return search.AlertDoc{
		ID:               a.ID,
		ChildName:        a.ChildName,
		LastSeenLocation: a.LastSeenLocation,
		Description:      a.Description,
		RiskLevel:        string(a.RiskLevel),
		Status:           string(a.Status),
		CreatedAt:        a.CreatedAt,
	}
}
