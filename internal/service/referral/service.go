// Package referral implements the referral lifecycle: creation, status
// transitions with an append-only audit trail, read-side projections and
// change notification.
package referral

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/internal/repository"
	"github.com/medrefer/referral-api/internal/service/audit"
	"github.com/medrefer/referral-api/pkg/errors"
	"github.com/medrefer/referral-api/pkg/event"
	"github.com/medrefer/referral-api/pkg/medicalid"
	"github.com/medrefer/referral-api/pkg/metrics"
)

// Emitter stores change events for cross-process consumers.
type Emitter interface {
	EmitAsync(ctx context.Context, eventType string, payload interface{})
}

// transitions holds the allowed status moves. Terminal states have no
// outgoing edges; CANCELLED is reachable from every non-terminal state.
var transitions = map[model.ReferralStatus][]model.ReferralStatus{
	model.ReferralStatusPending:  {model.ReferralStatusAccepted, model.ReferralStatusRejected, model.ReferralStatusCancelled},
	model.ReferralStatusAccepted: {model.ReferralStatusCompleted, model.ReferralStatusCancelled},
}

func canTransition(from, to model.ReferralStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Service struct {
	repo     repository.ReferralRepository
	auditor  *audit.Service
	emitter  Emitter
	notifier *event.Notifier
	metrics  *metrics.Metrics
}

func NewService(repo repository.ReferralRepository, auditor *audit.Service, emitter Emitter, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		auditor:  auditor,
		emitter:  emitter,
		notifier: event.NewNotifier(),
		metrics:  m,
	}
}

// OnChange registers a listener for referral changes. The returned
// function unregisters it.
func (s *Service) OnChange(l event.Listener) func() {
	return s.notifier.OnChange(l)
}

// Create persists a referral. It is idempotent on ID: calling with an
// existing identifier updates the stored record instead of inserting a
// duplicate. ID and referral code are assigned when absent; the status
// history is seeded with a creation entry when the caller supplied none.
func (s *Service) Create(ctx context.Context, referral *model.Referral) (*model.Referral, error) {
	if err := s.validate(referral); err != nil {
		return nil, err
	}

	if referral.Status == "" {
		referral.Status = model.ReferralStatusPending
	}
	if !referral.Status.IsValid() {
		return nil, errors.Validation(fmt.Sprintf("unknown status %q", referral.Status), nil)
	}

	now := time.Now()

	if referral.ID != uuid.Nil {
		existing, err := s.repo.Get(ctx, referral.ID)
		if err != nil {
			return nil, errors.Persistence(err)
		}
		if existing != nil {
			// Upsert path updates descriptive fields only. Identity
			// fields never change, and the lifecycle fields are owned
			// by UpdateStatus: status, completion and history carry
			// over from the stored record untouched.
			referral.ReferralCode = existing.ReferralCode
			referral.CreatedAt = existing.CreatedAt
			referral.Status = existing.Status
			referral.CompletedAt = existing.CompletedAt
			referral.StatusHistory = existing.StatusHistory
			referral.UpdatedAt = now
			if err := s.repo.Update(ctx, referral); err != nil {
				return nil, errors.Persistence(err)
			}
			s.notify(event.ActionUpdate, referral.ID)
			return referral, nil
		}
	}

	if referral.ID == uuid.Nil {
		referral.ID = uuid.New()
	}
	if referral.ReferralCode == "" {
		referral.ReferralCode = medicalid.NewReferralCode()
	}
	if len(referral.StatusHistory) == 0 {
		referral.StatusHistory = []model.StatusChange{{
			From:      "",
			To:        referral.Status,
			Timestamp: now,
		}}
	}
	referral.CreatedAt = now
	referral.UpdatedAt = now
	if referral.Status.IsTerminal() && referral.CompletedAt == nil {
		referral.CompletedAt = &now
	}

	if err := s.repo.Insert(ctx, referral); err != nil {
		return nil, errors.Persistence(err)
	}

	if s.metrics != nil {
		s.metrics.ReferralsCreated.Inc()
	}
	if s.emitter != nil {
		s.emitter.EmitAsync(ctx, "REFERRAL_CREATE", referral)
	}
	s.notify(event.ActionCreate, referral.ID)

	return referral, nil
}

// Get returns a referral or a typed not-found error.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Referral, error) {
	referral, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	if referral == nil {
		return nil, errors.NotFound("referral", nil)
	}
	return referral, nil
}

// GetByCode looks a referral up by its REF-XXXXX code.
func (s *Service) GetByCode(ctx context.Context, code string) (*model.Referral, error) {
	referral, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	if referral == nil {
		return nil, errors.NotFound("referral", nil)
	}
	return referral, nil
}

// UpdateStatus transitions a referral. Same-status calls are no-ops that
// return the record unchanged; the history is untouched. Otherwise one
// history entry is appended, UpdatedAt is bumped and CompletedAt is set
// the first time a terminal status is reached. A missing referral is a
// typed not-found error, distinct from the no-op.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus model.ReferralStatus, updatedBy string) (*model.Referral, error) {
	if !newStatus.IsValid() {
		return nil, errors.Validation(fmt.Sprintf("unknown status %q", newStatus), nil)
	}

	referral, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	if referral == nil {
		return nil, errors.NotFound("referral", nil)
	}

	if referral.Status == newStatus {
		return referral, nil
	}

	if !canTransition(referral.Status, newStatus) {
		return nil, errors.Validation(
			fmt.Sprintf("cannot transition referral from %s to %s", referral.Status, newStatus), nil)
	}

	if updatedBy == "" {
		updatedBy = model.UpdatedBySystem
	}

	now := time.Now()
	prev := referral.Status
	referral.StatusHistory = append(referral.StatusHistory, model.StatusChange{
		From:      prev,
		To:        newStatus,
		Timestamp: now,
		UpdatedBy: updatedBy,
	})
	referral.Status = newStatus
	referral.UpdatedAt = now
	if newStatus.IsTerminal() && referral.CompletedAt == nil {
		referral.CompletedAt = &now
	}

	if err := s.repo.Update(ctx, referral); err != nil {
		return nil, errors.Persistence(err)
	}

	if s.metrics != nil {
		s.metrics.ReferralTransitions.WithLabelValues(string(prev), string(newStatus)).Inc()
	}
	if s.auditor != nil {
		_ = s.auditor.Log(ctx, updatedBy, referral.ReferringID, "status_change", "referral", referral.ID, &audit.LogOptions{
			Changes: map[string]string{"from": string(prev), "to": string(newStatus)},
		})
	}
	if s.emitter != nil {
		s.emitter.EmitAsync(ctx, "REFERRAL_STATUS_CHANGE", referral)
	}
	s.notify(event.ActionUpdate, referral.ID)

	return referral, nil
}

// Delete hard-deletes a referral. It is a deliberately separate, audited
// path; cancellation is the preferred way to retire a referral. Returns
// false when the referral does not exist.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, errors.Persistence(err)
	}
	if !deleted {
		return false, nil
	}

	if s.metrics != nil {
		s.metrics.ReferralsDeleted.Inc()
	}
	if s.auditor != nil {
		_ = s.auditor.Log(ctx, actor, uuid.Nil, "delete", "referral", id, nil)
	}
	if s.emitter != nil {
		s.emitter.EmitAsync(ctx, "REFERRAL_DELETE", map[string]string{"id": id.String()})
	}
	s.notify(event.ActionDelete, id)

	return true, nil
}

// ListByMedicalID returns every referral for the given medical ID, most
// recent first. An unknown ID yields an empty list, not an error.
func (s *Service) ListByMedicalID(ctx context.Context, mrn string) ([]*model.Referral, error) {
	if !medicalid.IsValid(mrn) {
		return nil, errors.Validation(fmt.Sprintf("malformed medical ID %q", mrn), nil)
	}
	referrals, err := s.repo.ListByMedicalID(ctx, mrn)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return referrals, nil
}

// ListByHospital returns every referral where the hospital is either the
// referring or the receiving party.
func (s *Service) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.Referral, error) {
	referrals, err := s.repo.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, errors.Persistence(err)
	}
	return referrals, nil
}

// PatientStats derives per-status counts for one patient. Pure read-side
// projection.
func (s *Service) PatientStats(ctx context.Context, mrn string) (*model.ReferralStats, error) {
	referrals, err := s.ListByMedicalID(ctx, mrn)
	if err != nil {
		return nil, err
	}
	stats := &model.ReferralStats{}
	for _, referral := range referrals {
		stats.Count(referral.Status)
	}
	return stats, nil
}

// HospitalStats derives per-status and per-priority counts for one
// hospital, split by the side it is on. A referral where the hospital is
// both parties counts once in each of the referred and received
// breakdowns.
func (s *Service) HospitalStats(ctx context.Context, hospitalID uuid.UUID) (*model.HospitalReferralStats, error) {
	referrals, err := s.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	stats := &model.HospitalReferralStats{}
	for _, referral := range referrals {
		if referral.ReferringID == hospitalID {
			stats.Referred.Count(referral.Status)
		}
		if referral.ReceivingID == hospitalID {
			stats.Received.Count(referral.Status)
		}
		stats.ByPriority.Count(referral.Priority)
	}
	return stats, nil
}

func (s *Service) validate(referral *model.Referral) error {
	if referral.PatientID == uuid.Nil {
		return errors.Validation("patient ID is required", nil)
	}
	if !medicalid.IsValid(referral.MedicalID) {
		return errors.Validation(fmt.Sprintf("malformed medical ID %q", referral.MedicalID), nil)
	}
	if referral.PatientName == "" {
		return errors.Validation("patient name is required", nil)
	}
	if referral.ReferringID == uuid.Nil {
		return errors.Validation("referring hospital is required", nil)
	}
	if referral.ReceivingID == uuid.Nil {
		return errors.Validation("receiving hospital is required", nil)
	}
	if !referral.Priority.IsValid() {
		return errors.Validation(fmt.Sprintf("unknown priority %q", referral.Priority), nil)
	}
	if referral.Reason == "" {
		return errors.Validation("reason is required", nil)
	}
	return nil
}

func (s *Service) notify(action event.Action, id uuid.UUID) {
	s.notifier.Notify(event.Change{
		Action:   action,
		Resource: "referral",
		ID:       id.String(),
	})
}
