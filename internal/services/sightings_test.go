package services

import (
	"context"
	"testing"
	"time"

	"AmberWatch/internal/store"
	apperrors "AmberWatch/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSightingFixture(t *testing.T) (*SightingService, *countingSightingRepo, *AlertService) {
	t.Helper()
	db := setupDB(t)
	alerts := NewAlertService(store.NewAlertStore(db), nil, WithAlertClock(stepClock(t0)))
	repo := &countingSightingRepo{SightingRepository: store.NewSightingStore(db)}
	svc := NewSightingService(repo, alerts, nil)
	svc.now = stepClock(t0.Add(time.Hour))
	return svc, repo, alerts
}

func TestSubmitWithoutPhotoNeverTouchesStore(t *testing.T) {
	svc, repo, _ := newSightingFixture(t)
	_, err := svc.Submit(context.Background(), nil, "any", SightingInput{Location: "Market", PhotoURL: " "})
	assert.ErrorIs(t, err, ErrPhotoRequired)
	assert.Equal(t, apperrors.CodePhotoRequired, apperrors.GetCode(err))
	assert.Equal(t, 0, repo.calls)
}

func TestSubmitValidation(t *testing.T) {
	svc, repo, _ := newSightingFixture(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, nil, "any", SightingInput{PhotoURL: "/media/p.jpg"})
	assert.Equal(t, apperrors.CodeValidation, apperrors.GetCode(err))

	_, err = svc.Submit(ctx, nil, "missing", SightingInput{Location: "Market", PhotoURL: "/media/p.jpg"})
	assert.ErrorIs(t, err, ErrAlertNotFound)
	assert.Equal(t, 0, repo.calls)
}

func TestSubmitAnonymousAndAuthenticated(t *testing.T) {
	svc, _, alerts := newSightingFixture(t)
	ctx := context.Background()
	alert, err := alerts.Create(ctx, officer(), validInput("Asha"))
	require.NoError(t, err)

	anon, err := svc.Submit(ctx, nil, alert.ID, SightingInput{Location: " Market ", Description: "  ", PhotoURL: "/media/s1.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "Market", anon.Location)
	assert.Nil(t, anon.Description)
	assert.Nil(t, anon.ReporterContact)
	assert.Nil(t, anon.ReporterID)

	known, err := svc.Submit(ctx, citizen(), alert.ID, SightingInput{
		Location: "Bus stop", Description: "holding a red balloon", ReporterContact: "555-0100", PhotoURL: "/media/s2.jpg",
	})
	require.NoError(t, err)
	require.NotNil(t, known.ReporterID)
	assert.Equal(t, "citizen-1", *known.ReporterID)
	assert.Equal(t, "holding a red balloon", *known.Description)

	// 相同内容再次提交会生成新记录
	_, err = svc.Submit(ctx, nil, alert.ID, SightingInput{Location: "Market", PhotoURL: "/media/s1.jpg"})
	require.NoError(t, err)

	list, err := svc.ListByAlert(ctx, alert.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, known.ID, list[1].ID)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))
}

func TestListRecentRequiresAuthority(t *testing.T) {
	svc, _, alerts := newSightingFixture(t)
	ctx := context.Background()
	alert, err := alerts.Create(ctx, officer(), validInput("Asha"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, nil, alert.ID, SightingInput{Location: "Market", PhotoURL: "/media/s1.jpg"})
	require.NoError(t, err)

	_, err = svc.ListRecent(ctx, citizen())
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ListRecent(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	recent, err := svc.ListRecent(ctx, officer())
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
