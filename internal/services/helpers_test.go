package services

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"AmberWatch/internal/models"
	"AmberWatch/internal/store"
	"AmberWatch/pkg/metrics"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, store.Migrate(db))
	return db
}

// stepClock 每次调用前进一秒
func stepClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func officer() *models.Profile {
	station := "Central"
	return &models.Profile{ID: "officer-1", Username: "officer", Role: models.RolePolice, Verified: true, PoliceStation: &station}
}

func citizen() *models.Profile {
	return &models.Profile{ID: "citizen-1", Username: "citizen", Role: models.RoleCitizen}
}

func validInput(name string) AlertInput {
	age := 7
	missing := t0.Add(-2 * time.Hour)
	return AlertInput{
		ChildName:        name,
		Age:              &age,
		PhotoURL:         "/media/" + name + ".jpg",
		LastSeenLocation: "Central Park",
		TimeMissing:      &missing,
		Description:      "red jacket, blue shoes",
		RiskLevel:        models.RiskHigh,
	}
}

// countingAlertRepo 记录调用次数，用于断言校验失败时没有触达存储
type countingAlertRepo struct {
	AlertRepository
	calls int
}

func (r *countingAlertRepo) Create(ctx context.Context, a *models.Alert) error {
	r.calls++
	return r.AlertRepository.Create(ctx, a)
}

func (r *countingAlertRepo) Get(ctx context.Context, id string) (*models.Alert, error) {
	r.calls++
	return r.AlertRepository.Get(ctx, id)
}

func (r *countingAlertRepo) UpdateStatus(ctx context.Context, id string, s models.AlertStatus, at time.Time) error {
	r.calls++
	return r.AlertRepository.UpdateStatus(ctx, id, s, at)
}

type countingSightingRepo struct {
	SightingRepository
	calls int
}

func (r *countingSightingRepo) Create(ctx context.Context, s *models.Sighting) error {
	r.calls++
	return r.SightingRepository.Create(ctx, s)
}

// metricValue 汇总同名指标的所有样本
func metricValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	mfs, err := m.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, mt := range mf.GetMetric() {
			if c := mt.GetCounter(); c != nil {
				sum += c.GetValue()
			}
			if g := mt.GetGauge(); g != nil {
				sum += g.GetValue()
			}
		}
		return sum
	}
	return 0
}

func encodeB64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }
