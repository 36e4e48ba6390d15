package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"AmberWatch/internal/models"
	"AmberWatch/internal/store"
	"AmberWatch/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	creds map[string]models.PoliceCredential
	err   error
	calls int
}

func (r *fakeRegistry) Lookup(ctx context.Context, id string) (*models.PoliceCredential, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.creds[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func newRegistry() *fakeRegistry {
	return &fakeRegistry{creds: map[string]models.PoliceCredential{
		"MH-1001": {PoliceID: "MH-1001", IsValid: true, StationName: "Colaba"},
		"MH-0000": {PoliceID: "MH-0000", IsValid: false, StationName: "Retired"},
	}}
}

func TestVerifyOutcomes(t *testing.T) {
	reg := newRegistry()
	v := NewVerificationService(reg, cache.NewGoCache(cache.LocalConfig{}), time.Minute, nil)
	ctx := context.Background()

	ok := v.Verify(ctx, " MH-1001 ")
	assert.True(t, ok.Valid)
	require.NotNil(t, ok.Station)
	assert.Equal(t, "Colaba", *ok.Station)

	revoked := v.Verify(ctx, "MH-0000")
	assert.False(t, revoked.Valid)
	assert.Nil(t, revoked.Station)

	absent := v.Verify(ctx, "XX-1")
	assert.Equal(t, Verification{}, absent)

	assert.Equal(t, Verification{}, v.Verify(ctx, "  "))
	assert.Equal(t, 3, reg.calls)

	// 正反结果都命中缓存
	v.Verify(ctx, "MH-1001")
	v.Verify(ctx, "XX-1")
	assert.Equal(t, 3, reg.calls)
}

func TestVerifyRegistryErrorIsNotCachedAndDenies(t *testing.T) {
	reg := newRegistry()
	reg.err = errors.New("registry down")
	v := NewVerificationService(reg, cache.NewGoCache(cache.LocalConfig{}), time.Minute, nil)
	ctx := context.Background()

	assert.Equal(t, Verification{}, v.Verify(ctx, "MH-1001"))
	reg.err = nil
	assert.True(t, v.Verify(ctx, "MH-1001").Valid)
	assert.Equal(t, 2, reg.calls)
}
