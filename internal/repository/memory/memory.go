// Package memory provides in-memory implementations of the repository
// interfaces. They back the service tests and any deployment that does
// not need durable storage. Concurrent writers are last-write-wins, the
// same contract the Postgres adapters offer without row locking.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/internal/repository"
)

type ReferralRepository struct {
	mu        sync.RWMutex
	referrals map[uuid.UUID]*model.Referral
}

func NewReferralRepository() *ReferralRepository {
	return &ReferralRepository{referrals: make(map[uuid.UUID]*model.Referral)}
}

var _ repository.ReferralRepository = (*ReferralRepository)(nil)

func (r *ReferralRepository) Insert(ctx context.Context, referral *model.Referral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.referrals[referral.ID] = clone(referral)
	return nil
}

func (r *ReferralRepository) Get(ctx context.Context, id uuid.UUID) (*model.Referral, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	referral, ok := r.referrals[id]
	if !ok {
		return nil, nil
	}
	return clone(referral), nil
}

func (r *ReferralRepository) GetByCode(ctx context.Context, code string) (*model.Referral, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, referral := range r.referrals {
		if referral.ReferralCode == code {
			return clone(referral), nil
		}
	}
	return nil, nil
}

func (r *ReferralRepository) Update(ctx context.Context, referral *model.Referral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.referrals[referral.ID] = clone(referral)
	return nil
}

func (r *ReferralRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.referrals[id]; !ok {
		return false, nil
	}
	delete(r.referrals, id)
	return true, nil
}

func (r *ReferralRepository) ListByMedicalID(ctx context.Context, medicalID string) ([]*model.Referral, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Referral
	for _, referral := range r.referrals {
		if referral.MedicalID == medicalID {
			out = append(out, clone(referral))
		}
	}
	return out, nil
}

func (r *ReferralRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.Referral, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Referral
	for _, referral := range r.referrals {
		if referral.ReferringID == hospitalID || referral.ReceivingID == hospitalID {
			out = append(out, clone(referral))
		}
	}
	return out, nil
}

func clone(r *model.Referral) *model.Referral {
	c := *r
	c.StatusHistory = append([]model.StatusChange(nil), r.StatusHistory...)
	return &c
}

type PatientRepository struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*model.Patient
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{patients: make(map[uuid.UUID]*model.Patient)}
}

var _ repository.PatientRepository = (*PatientRepository)(nil)

func (r *PatientRepository) Create(ctx context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()
	p := *patient
	r.patients[patient.ID] = &p
	return nil
}

func (r *PatientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	patient, ok := r.patients[id]
	if !ok {
		return nil, nil
	}
	p := *patient
	return &p, nil
}

func (r *PatientRepository) GetByMedicalID(ctx context.Context, medicalID string) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, patient := range r.patients {
		if patient.MedicalID == medicalID {
			p := *patient
			return &p, nil
		}
	}
	return nil, nil
}

func (r *PatientRepository) MedicalIDExists(ctx context.Context, medicalID string) (bool, error) {
	p, err := r.GetByMedicalID(ctx, medicalID)
	return p != nil, err
}

func (r *PatientRepository) Update(ctx context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.patients[patient.ID]
	if ok {
		// The identifier is immutable regardless of what the caller set.
		patient.MedicalID = existing.MedicalID
	}
	patient.UpdatedAt = time.Now()
	p := *patient
	r.patients[patient.ID] = &p
	return nil
}

func (r *PatientRepository) List(ctx context.Context, page model.Pagination) ([]*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*model.Patient, 0, len(r.patients))
	for _, patient := range r.patients {
		p := *patient
		all = append(all, &p)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	offset := page.Offset()
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + page.Limit()
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

type OutboxRepository struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)

func (r *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = string(model.OutboxStatusPending)
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	e := *event
	r.events = append(r.events, &e)
	return nil
}

func (r *OutboxRepository) ProcessPending(ctx context.Context, limit int, publish func(*model.OutboxEvent) error) (processed, failed int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, evt := range r.events {
		if processed+failed == limit {
			break
		}
		if evt.Status != string(model.OutboxStatusPending) {
			continue
		}
		now := time.Now()
		if pubErr := publish(evt); pubErr != nil {
			msg := pubErr.Error()
			evt.Status = string(model.OutboxStatusFailed)
			evt.ErrorMessage = &msg
			evt.UpdatedAt = now
			failed++
			continue
		}
		evt.Status = string(model.OutboxStatusProcessed)
		evt.ProcessedAt = &now
		evt.UpdatedAt = now
		processed++
	}
	return processed, failed, nil
}

func (r *OutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	var removed int64
	for _, evt := range r.events {
		if evt.Status == string(model.OutboxStatusProcessed) && evt.ProcessedAt != nil && evt.ProcessedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, evt)
	}
	r.events = kept
	return removed, nil
}

// Events returns a snapshot of every stored event, oldest first.
func (r *OutboxRepository) Events() []*model.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.OutboxEvent, 0, len(r.events))
	for _, evt := range r.events {
		e := *evt
		out = append(out, &e)
	}
	return out
}
