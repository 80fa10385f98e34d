package hospital

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/pkg/errors"
)

type fakeRepo struct {
	hospitals map[uuid.UUID]*model.Hospital
	gets      int
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{hospitals: make(map[uuid.UUID]*model.Hospital)}
}

func (r *fakeRepo) Create(ctx context.Context, hospital *model.Hospital) error {
	h := *hospital
	r.hospitals[hospital.ID] = &h
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id uuid.UUID) (*model.Hospital, error) {
	r.gets++
	hospital, ok := r.hospitals[id]
	if !ok {
		return nil, nil
	}
	h := *hospital
	return &h, nil
}

func (r *fakeRepo) GetBySubdomain(ctx context.Context, subdomain string) (*model.Hospital, error) {
	for _, hospital := range r.hospitals {
		if hospital.Subdomain == subdomain {
			h := *hospital
			return &h, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) Update(ctx context.Context, hospital *model.Hospital) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	h := *hospital
	r.hospitals[hospital.ID] = &h
	return nil
}

func (r *fakeRepo) List(ctx context.Context) ([]*model.Hospital, error) {
	out := make([]*model.Hospital, 0, len(r.hospitals))
	for _, hospital := range r.hospitals {
		h := *hospital
		out = append(out, &h)
	}
	return out, nil
}

func TestCreateSlugifiesSubdomain(t *testing.T) {
	svc := NewService(newFakeRepo())

	hospital, err := svc.Create(context.Background(), &model.CreateHospitalRequest{
		Name:       "St. Mary's General Hospital",
		AdminEmail: "admin@stmarys.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "st-marys-general-hospital", hospital.Subdomain)
	assert.True(t, hospital.IsActive)
}

func TestCreateRejectsDuplicateSubdomain(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.CreateHospitalRequest{Name: "General Hospital"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, &model.CreateHospitalRequest{Name: "General", Subdomain: "general-hospital"})
	assert.True(t, errors.IsConflict(err))
}

func TestGetCachesLookups(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	hospital, err := svc.Create(ctx, &model.CreateHospitalRequest{Name: "General Hospital"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, hospital.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, hospital.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.gets)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	hospital, err := svc.Create(ctx, &model.CreateHospitalRequest{Name: "General Hospital"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, hospital.ID)
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, hospital.ID, &model.UpdateHospitalRequest{IsActive: &inactive})
	require.NoError(t, err)

	refreshed, err := svc.Get(ctx, hospital.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.IsActive)
}

func TestFailedUpdateLeavesCacheIntact(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	hospital, err := svc.Create(ctx, &model.CreateHospitalRequest{Name: "General Hospital"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, hospital.ID)
	require.NoError(t, err)

	repo.updateErr = fmt.Errorf("connection reset")
	inactive := false
	_, err = svc.Update(ctx, hospital.ID, &model.UpdateHospitalRequest{IsActive: &inactive})
	require.Error(t, err)

	// The cache still serves the persisted state, not the rejected
	// mutation.
	cached, err := svc.Get(ctx, hospital.ID)
	require.NoError(t, err)
	assert.True(t, cached.IsActive)
}

func TestCachedRecordIsNotAliased(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	hospital, err := svc.Create(ctx, &model.CreateHospitalRequest{Name: "General Hospital"})
	require.NoError(t, err)

	first, err := svc.Get(ctx, hospital.ID)
	require.NoError(t, err)
	first.IsActive = false

	second, err := svc.Get(ctx, hospital.ID)
	require.NoError(t, err)
	assert.True(t, second.IsActive)
}

func TestGetNotFound(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.GetBySubdomain(context.Background(), "nowhere")
	assert.True(t, errors.IsNotFound(err))
}
