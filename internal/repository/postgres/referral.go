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
	"github.com/medrefer/referral-api/pkg/metrics"
)

type referralRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewReferralRepository(db *sqlx.DB, m *metrics.Metrics) repository.ReferralRepository {
	return &referralRepository{db: db, metrics: m}
}

// track records operation latency and outcome. Call with the operation
// name, defer the result with a pointer to the method's error.
func (r *referralRepository) track(operation string, err *error) func() {
	if r.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		status := "ok"
		if *err != nil {
			status = "error"
		}
		r.metrics.DatabaseOperations.WithLabelValues(operation, status).Inc()
		r.metrics.DatabaseLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func (r *referralRepository) Insert(ctx context.Context, referral *model.Referral) (err error) {
	defer r.track("referral_insert", &err)()

	if err := referral.MarshalHistory(); err != nil {
		return fmt.Errorf("failed to marshal status history: %w", err)
	}

	query := `
		INSERT INTO referrals (
			id, referral_code, patient_id, medical_id, patient_name,
			referring_hospital_id, referring_hospital_name,
			receiving_hospital_id, receiving_hospital_name,
			priority, status, reason, notes, ambulance_required,
			status_history, completed_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`
	_, err = r.db.ExecContext(ctx, query,
		referral.ID,
		referral.ReferralCode,
		referral.PatientID,
		referral.MedicalID,
		referral.PatientName,
		referral.ReferringID,
		referral.ReferringName,
		referral.ReceivingID,
		referral.ReceivingName,
		referral.Priority,
		referral.Status,
		referral.Reason,
		referral.Notes,
		referral.AmbulanceRequired,
		referral.StatusHistoryJSON,
		referral.CompletedAt,
		referral.CreatedAt,
		referral.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert referral: %w", err)
	}
	return nil
}

func (r *referralRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.Referral, err error) {
	defer r.track("referral_get", &err)()

	query := `SELECT * FROM referrals WHERE id = $1`
	var referral model.Referral
	err = r.db.GetContext(ctx, &referral, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral: %w", err)
	}
	if err := referral.UnmarshalHistory(); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status history: %w", err)
	}
	return &referral, nil
}

func (r *referralRepository) GetByCode(ctx context.Context, code string) (_ *model.Referral, err error) {
	defer r.track("referral_get_by_code", &err)()

	query := `SELECT * FROM referrals WHERE referral_code = $1`
	var referral model.Referral
	err = r.db.GetContext(ctx, &referral, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral by code: %w", err)
	}
	if err := referral.UnmarshalHistory(); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status history: %w", err)
	}
	return &referral, nil
}

func (r *referralRepository) Update(ctx context.Context, referral *model.Referral) (err error) {
	defer r.track("referral_update", &err)()

	if err := referral.MarshalHistory(); err != nil {
		return fmt.Errorf("failed to marshal status history: %w", err)
	}

	query := `
		UPDATE referrals SET
			patient_name = $1, priority = $2, status = $3, reason = $4,
			notes = $5, ambulance_required = $6, status_history = $7,
			completed_at = $8, updated_at = $9
		WHERE id = $10
	`
	_, err = r.db.ExecContext(ctx, query,
		referral.PatientName,
		referral.Priority,
		referral.Status,
		referral.Reason,
		referral.Notes,
		referral.AmbulanceRequired,
		referral.StatusHistoryJSON,
		referral.CompletedAt,
		referral.UpdatedAt,
		referral.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update referral: %w", err)
	}
	return nil
}

func (r *referralRepository) Delete(ctx context.Context, id uuid.UUID) (_ bool, err error) {
	defer r.track("referral_delete", &err)()

	query := `DELETE FROM referrals WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete referral: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *referralRepository) ListByMedicalID(ctx context.Context, medicalID string) (_ []*model.Referral, err error) {
	defer r.track("referral_list_by_medical_id", &err)()

	query := `SELECT * FROM referrals WHERE medical_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, medicalID)
}

func (r *referralRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) (_ []*model.Referral, err error) {
	defer r.track("referral_list_by_hospital", &err)()

	query := `
		SELECT * FROM referrals
		WHERE referring_hospital_id = $1 OR receiving_hospital_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, hospitalID)
}

func (r *referralRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.Referral, error) {
	var referrals []*model.Referral
	if err := r.db.SelectContext(ctx, &referrals, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	for _, referral := range referrals {
		if err := referral.UnmarshalHistory(); err != nil {
			return nil, fmt.Errorf("failed to unmarshal referral %s: %w", referral.ID, err)
		}
	}
	return referrals, nil
}
