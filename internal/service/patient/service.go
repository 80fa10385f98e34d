// Package patient handles registration and maintenance of patient
// records, including minting the permanent medical ID.
package patient

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/internal/repository"
	"github.com/medrefer/referral-api/pkg/errors"
	"github.com/medrefer/referral-api/pkg/medicalid"
	"github.com/medrefer/referral-api/pkg/metrics"
)

type Service struct {
	repo    repository.PatientRepository
	metrics *metrics.Metrics
}

func NewService(repo repository.PatientRepository, m *metrics.Metrics) *Service {
	return &Service{repo: repo, metrics: m}
}

// Register creates a patient with a freshly minted medical ID. When the
// uniqueness-seeking loop is exhausted, registration fails hard; the
// service never proceeds with a possibly-duplicate ID. The unique index
// on patients.medical_id remains the guarantee of record under
// concurrent registration.
func (s *Service) Register(ctx context.Context, req *model.RegisterPatientRequest) (*model.Patient, error) {
	if req.FirstName == "" || req.LastName == "" {
		return nil, errors.Validation("first and last name are required", nil)
	}
	if req.DateOfBirth.IsZero() {
		return nil, errors.Validation("date of birth is required", nil)
	}

	attempts := 0
	mrn, err := medicalid.GenerateUnique(ctx, func(ctx context.Context, id string) (bool, error) {
		attempts++
		return s.repo.MedicalIDExists(ctx, id)
	})
	if s.metrics != nil && attempts > 0 {
		s.metrics.MedicalIDAttempts.Observe(float64(attempts))
	}
	if err != nil {
		if stderrors.Is(err, medicalid.ErrExhausted) {
			if s.metrics != nil {
				s.metrics.MedicalIDExhausted.Inc()
			}
			return nil, errors.Conflict("could not allocate a unique medical ID", err)
		}
		return nil, errors.Persistence(err)
	}

	patient := &model.Patient{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		MedicalID:   mrn,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		BloodGroup:  req.BloodGroup,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		Status:      string(model.PatientStatusActive),
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, errors.Persistence(fmt.Errorf("failed to create patient: %w", err))
	}
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	if patient == nil {
		return nil, errors.NotFound("patient", nil)
	}
	return patient, nil
}

func (s *Service) GetByMedicalID(ctx context.Context, mrn string) (*model.Patient, error) {
	if !medicalid.IsValid(mrn) {
		return nil, errors.Validation(fmt.Sprintf("malformed medical ID %q", mrn), nil)
	}
	patient, err := s.repo.GetByMedicalID(ctx, mrn)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	if patient == nil {
		return nil, errors.NotFound("patient", nil)
	}
	return patient, nil
}

// Update applies partial changes. The medical ID is not among the
// updatable fields; it is immutable for the lifetime of the record.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		patient.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		patient.LastName = *req.LastName
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.Email != nil {
		patient.Email = *req.Email
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.BloodGroup != nil {
		patient.BloodGroup = *req.BloodGroup
	}
	if req.Status != nil {
		patient.Status = *req.Status
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, errors.Persistence(err)
	}
	return patient, nil
}

func (s *Service) List(ctx context.Context, p model.Pagination) ([]*model.Patient, error) {
	patients, err := s.repo.List(ctx, p)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return patients, nil
}
