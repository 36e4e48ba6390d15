package services

import (
	"context"
	"testing"

	"AmberWatch/internal/models"
	"AmberWatch/internal/store"
	apperrors "AmberWatch/pkg/errors"
	"AmberWatch/pkg/metrics"
	"AmberWatch/pkg/realtime"
	"AmberWatch/pkg/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertFixture struct {
	svc    *AlertService
	repo   *countingAlertRepo
	broker *realtime.LocalBroker
	feed   *AlertFeed
	index  *search.Index
}

func newAlertFixture(t *testing.T, opts ...AlertOption) *alertFixture {
	t.Helper()
	db := setupDB(t)
	repo := &countingAlertRepo{AlertRepository: store.NewAlertStore(db)}
	broker := realtime.NewLocalBroker()
	t.Cleanup(func() { _ = broker.Close() })
	idx, err := search.Open(search.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	feed := NewAlertFeed(broker)
	all := append([]AlertOption{WithAlertIndex(idx), WithAlertClock(stepClock(t0))}, opts...)
	return &alertFixture{svc: NewAlertService(repo, feed, all...), repo: repo, broker: broker, feed: feed, index: idx}
}

func TestCreateRequiresVerifiedAuthority(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	unverified := officer()
	unverified.Verified = false

	_, err := f.svc.Create(ctx, nil, validInput("Asha"))
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Create(ctx, citizen(), validInput("Asha"))
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Create(ctx, unverified, validInput("Asha"))
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 0, f.repo.calls)
}

func TestCreateValidatesBeforeStore(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(in *AlertInput)
		code   int
	}{
		{"missing photo", func(in *AlertInput) { in.PhotoURL = "   " }, apperrors.CodePhotoRequired},
		{"missing name", func(in *AlertInput) { in.ChildName = "" }, apperrors.CodeValidation},
		{"age above 18", func(in *AlertInput) { age := 19; in.Age = &age }, apperrors.CodeValidation},
		{"negative age", func(in *AlertInput) { age := -1; in.Age = &age }, apperrors.CodeValidation},
		{"missing location", func(in *AlertInput) { in.LastSeenLocation = "" }, apperrors.CodeValidation},
		{"missing time", func(in *AlertInput) { in.TimeMissing = nil }, apperrors.CodeValidation},
		{"missing description", func(in *AlertInput) { in.Description = "" }, apperrors.CodeValidation},
		{"bad risk", func(in *AlertInput) { in.RiskLevel = "extreme" }, apperrors.CodeValidation},
		{"half coordinates", func(in *AlertInput) { lat := 1.0; in.LastSeenLat = &lat }, apperrors.CodeValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput("Asha")
			tc.mutate(&in)
			_, err := f.svc.Create(ctx, officer(), in)
			require.Error(t, err)
			assert.Equal(t, tc.code, apperrors.GetCode(err))
		})
	}
	assert.Equal(t, 0, f.repo.calls)
}

func TestCreateBoundaryAges(t *testing.T) {
	f := newAlertFixture(t)
	for _, age := range []int{0, 18} {
		in := validInput("Asha")
		a := age
		in.Age = &a
		alert, err := f.svc.Create(context.Background(), officer(), in)
		require.NoError(t, err)
		assert.Equal(t, age, alert.Age)
	}
}

func TestCreateRoundTripAndFeed(t *testing.T) {
	m := metrics.NewMetrics()
	f := newAlertFixture(t, WithAlertMetrics(m))
	ctx := context.Background()

	early, err := f.svc.Create(ctx, officer(), validInput("Early"))
	require.NoError(t, err)

	var received []models.Alert
	sub, err := f.feed.SubscribeCreated(func(ctx context.Context, a models.Alert) { received = append(received, a) })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	created, err := f.svc.Create(ctx, officer(), validInput("Asha"))
	require.NoError(t, err)
	assert.Equal(t, models.AlertActive, created.Status)
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, "officer-1", *created.CreatedBy)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ChildName, got.ChildName)
	assert.Equal(t, created.PhotoURL, got.PhotoURL)
	assert.Equal(t, created.Age, got.Age)
	assert.True(t, created.TimeMissing.Equal(got.TimeMissing))

	// 订阅之前创建的警报不会补发
	require.Len(t, received, 1)
	assert.Equal(t, created.ID, received[0].ID)
	assert.NotEqual(t, early.ID, received[0].ID)
	assert.Equal(t, 2.0, metricValue(t, m, "alerts_created_total"))
}

func TestListActiveNewestFirst(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, officer(), validInput("A"))
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, officer(), validInput("B"))
	require.NoError(t, err)

	list, err := f.svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}

func TestSetStatusTransitions(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()
	alert, err := f.svc.Create(ctx, officer(), validInput("Asha"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.SetStatus(ctx, citizen(), alert.ID, models.AlertResolved), ErrForbidden)
	assert.Equal(t, apperrors.CodeValidation, apperrors.GetCode(f.svc.SetStatus(ctx, officer(), alert.ID, "closed")))

	require.NoError(t, f.svc.SetStatus(ctx, officer(), alert.ID, models.AlertResolved))
	first, err := f.svc.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, first.Status)
	assert.True(t, first.UpdatedAt.After(alert.UpdatedAt))

	// 重复设置为 resolved 成功且不修改记录
	require.NoError(t, f.svc.SetStatus(ctx, officer(), alert.ID, models.AlertResolved))
	second, err := f.svc.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.True(t, first.UpdatedAt.Equal(second.UpdatedAt))

	err = f.svc.SetStatus(ctx, officer(), alert.ID, models.AlertActive)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.ErrorIs(t, f.svc.SetStatus(ctx, officer(), "missing", models.AlertResolved), ErrAlertNotFound)

	resolved, err := f.svc.ListResolved(ctx)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	active, err := f.svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestDeleteAlert(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()
	alert, err := f.svc.Create(ctx, officer(), validInput("Asha"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, citizen(), alert.ID), ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, officer(), alert.ID))
	_, err = f.svc.Get(ctx, alert.ID)
	assert.ErrorIs(t, err, ErrAlertNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, officer(), alert.ID), ErrAlertNotFound)

	n, err := f.index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestSearchActiveAlerts(t *testing.T) {
	f := newAlertFixture(t)
	ctx := context.Background()

	asha, err := f.svc.Create(ctx, officer(), validInput("Asha"))
	require.NoError(t, err)
	ravi := validInput("Ravi")
	ravi.LastSeenLocation = "Harbour Road"
	_, err = f.svc.Create(ctx, officer(), ravi)
	require.NoError(t, err)

	got, err := f.svc.Search(ctx, "asha")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, asha.ID, got[0].ID)

	require.NoError(t, f.svc.SetStatus(ctx, officer(), asha.ID, models.AlertResolved))
	got, err = f.svc.Search(ctx, "asha")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.svc.Search(ctx, "  ")
	assert.Equal(t, apperrors.CodeValidation, apperrors.GetCode(err))

	disabled := NewAlertService(f.repo, f.feed)
	_, err = disabled.Search(ctx, "asha")
	assert.ErrorIs(t, err, ErrSearchDisabled)
}

func TestRebuildIndexAndGauge(t *testing.T) {
	m := metrics.NewMetrics()
	f := newAlertFixture(t, WithAlertMetrics(m))
	ctx := context.Background()
	_, err := f.svc.Create(ctx, officer(), validInput("Asha"))
	require.NoError(t, err)

	require.NoError(t, f.svc.RebuildIndex(ctx))
	n, err := f.index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	f.svc.RefreshActiveGauge(ctx)
	assert.Equal(t, 1.0, metricValue(t, m, "active_alerts"))
}
