package patient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/internal/repository/memory"
	"github.com/medrefer/referral-api/pkg/errors"
	"github.com/medrefer/referral-api/pkg/medicalid"
)

func registerRequest() *model.RegisterPatientRequest {
	return &model.RegisterPatientRequest{
		FirstName:   "Jane",
		LastName:    "Doe",
		DateOfBirth: time.Date(1985, 6, 12, 0, 0, 0, 0, time.UTC),
		Gender:      "female",
		BloodGroup:  "O+",
		Email:       "jane.doe@example.com",
	}
}

func TestRegisterMintsMedicalID(t *testing.T) {
	svc := NewService(memory.NewPatientRepository(), nil)

	patient, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	assert.True(t, medicalid.IsValid(patient.MedicalID))
	assert.Equal(t, string(model.PatientStatusActive), patient.Status)

	found, err := svc.GetByMedicalID(context.Background(), patient.MedicalID)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, found.ID)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(memory.NewPatientRepository(), nil)

	req := registerRequest()
	req.FirstName = ""
	_, err := svc.Register(context.Background(), req)
	assert.True(t, errors.IsValidation(err))

	req = registerRequest()
	req.DateOfBirth = time.Time{}
	_, err = svc.Register(context.Background(), req)
	assert.True(t, errors.IsValidation(err))
}

// saturatedRepo reports every medical ID as taken, forcing the
// uniqueness loop to exhaust its attempts.
type saturatedRepo struct {
	*memory.PatientRepository
	checks int
}

func (r *saturatedRepo) MedicalIDExists(ctx context.Context, medicalID string) (bool, error) {
	r.checks++
	return true, nil
}

func TestRegisterFailsHardOnExhaustion(t *testing.T) {
	repo := &saturatedRepo{PatientRepository: memory.NewPatientRepository()}
	svc := NewService(repo, nil)

	_, err := svc.Register(context.Background(), registerRequest())
	assert.True(t, errors.IsConflict(err))
	assert.Equal(t, medicalid.MaxAttempts, repo.checks)

	// Nothing was persisted.
	patients, err := svc.List(context.Background(), model.Pagination{})
	require.NoError(t, err)
	assert.Empty(t, patients)
}

func TestUpdateCannotChangeMedicalID(t *testing.T) {
	repo := memory.NewPatientRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	patient, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	original := patient.MedicalID

	phone := "+1-555-0100"
	updated, err := svc.Update(ctx, patient.ID, &model.UpdatePatientRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "+1-555-0100", updated.Phone)
	assert.Equal(t, original, updated.MedicalID)

	stored, err := svc.Get(ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, original, stored.MedicalID)
}

func TestGetByMedicalIDRejectsMalformed(t *testing.T) {
	svc := NewService(memory.NewPatientRepository(), nil)

	_, err := svc.GetByMedicalID(context.Background(), "bad")
	assert.True(t, errors.IsValidation(err))

	_, err = svc.GetByMedicalID(context.Background(), "9XF3A")
	assert.True(t, errors.IsNotFound(err))
}
