package store

import (
	"context"
	"time"

	"AmberWatch/internal/models"

	"gorm.io/gorm"
)

type AlertStore struct {
	db *gorm.DB
}

func NewAlertStore(db *gorm.DB) *AlertStore {
	return &AlertStore{db: db}
}

func (s *AlertStore) Create(ctx context.Context, alert *models.Alert) error {
	return translate(s.db.WithContext(ctx).Create(alert).Error)
}

func (s *AlertStore) Get(ctx context.Context, id string) (*models.Alert, error) {
	var alert models.Alert
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error; err != nil {
		return nil, translate(err)
	}
	return &alert, nil
}

// ListActive 进行中的警报，按创建时间倒序，不分页
func (s *AlertStore) ListActive(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	err := s.db.WithContext(ctx).
		Where("status = ?", models.AlertActive).
		Order("created_at DESC").
		Find(&alerts).Error
	return alerts, translate(err)
}

// ListResolved 已解决的警报，按更新时间倒序取最近 limit 条
func (s *AlertStore) ListResolved(ctx context.Context, limit int) ([]models.Alert, error) {
	var alerts []models.Alert
	err := s.db.WithContext(ctx).
		Where("status = ?", models.AlertResolved).
		Order("updated_at DESC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, translate(err)
}

// FindByIDs 按给定 ID 批量读取，结果顺序不保证
func (s *AlertStore) FindByIDs(ctx context.Context, ids []string) ([]models.Alert, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var alerts []models.Alert
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&alerts).Error
	return alerts, translate(err)
}

func (s *AlertStore) UpdateStatus(ctx context.Context, id string, status models.AlertStatus, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Alert{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": at})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AlertStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Alert{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AlertStore) CountByStatus(ctx context.Context, status models.AlertStatus) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Alert{}).Where("status = ?", status).Count(&n).Error
	return n, translate(err)
}
