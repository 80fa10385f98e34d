package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medrefer/referral-api/internal/model"
)

// All repository interfaces in one file
type (
	// ReferralRepository is the persistence port for referrals. The
	// service layer depends only on this interface; tests inject an
	// in-memory implementation.
	ReferralRepository interface {
		Insert(ctx context.Context, referral *model.Referral) error
		Get(ctx context.Context, id uuid.UUID) (*model.Referral, error)
		GetByCode(ctx context.Context, code string) (*model.Referral, error)
		Update(ctx context.Context, referral *model.Referral) error
		Delete(ctx context.Context, id uuid.UUID) (bool, error)
		ListByMedicalID(ctx context.Context, medicalID string) ([]*model.Referral, error)
		ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.Referral, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByMedicalID(ctx context.Context, medicalID string) (*model.Patient, error)
		MedicalIDExists(ctx context.Context, medicalID string) (bool, error)
		Update(ctx context.Context, patient *model.Patient) error
		List(ctx context.Context, p model.Pagination) ([]*model.Patient, error)
	}

	HospitalRepository interface {
		Create(ctx context.Context, hospital *model.Hospital) error
		Get(ctx context.Context, id uuid.UUID) (*model.Hospital, error)
		GetBySubdomain(ctx context.Context, subdomain string) (*model.Hospital, error)
		Update(ctx context.Context, hospital *model.Hospital) error
		List(ctx context.Context) ([]*model.Hospital, error)
	}

	// OutboxRepository persists events written alongside referral
	// mutations. ProcessPending claims a batch of pending events,
	// invokes publish on each, and records the outcomes, all within a
	// single claiming transaction so concurrent workers never double
	// publish a row they both selected.
	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		ProcessPending(ctx context.Context, limit int, publish func(*model.OutboxEvent) error) (processed, failed int, err error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error)
	}
)
