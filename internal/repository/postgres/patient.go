package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/internal/repository"
)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			id, medical_id, first_name, last_name, date_of_birth, gender,
			blood_group, phone, email, address, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.MedicalID,
		patient.FirstName,
		patient.LastName,
		patient.DateOfBirth,
		patient.Gender,
		patient.BloodGroup,
		patient.Phone,
		patient.Email,
		patient.Address,
		patient.Status,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByMedicalID(ctx context.Context, medicalID string) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE medical_id = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, medicalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient by medical ID: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) MedicalIDExists(ctx context.Context, medicalID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM patients WHERE medical_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, medicalID); err != nil {
		return false, fmt.Errorf("failed to check medical ID: %w", err)
	}
	return exists, nil
}

// Update deliberately omits medical_id: the identifier is immutable.
func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	patient.UpdatedAt = time.Now()
	query := `
		UPDATE patients SET
			first_name = $1, last_name = $2, phone = $3, email = $4,
			address = $5, blood_group = $6, status = $7, updated_at = $8
		WHERE id = $9
	`
	_, err := r.db.ExecContext(ctx, query,
		patient.FirstName,
		patient.LastName,
		patient.Phone,
		patient.Email,
		patient.Address,
		patient.BloodGroup,
		patient.Status,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return nil
}

func (r *patientRepository) List(ctx context.Context, p model.Pagination) ([]*model.Patient, error) {
	query := `SELECT * FROM patients ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	var patients []*model.Patient
	err := r.db.SelectContext(ctx, &patients, query, p.Limit(), p.Offset())
	return patients, err
}
