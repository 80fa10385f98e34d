package referral

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrefer/referral-api/internal/model"
	"github.com/medrefer/referral-api/internal/repository/memory"
	"github.com/medrefer/referral-api/pkg/errors"
	"github.com/medrefer/referral-api/pkg/event"
)

func newTestService() *Service {
	return NewService(memory.NewReferralRepository(), nil, nil, nil)
}

func newReferral() *model.Referral {
	return &model.Referral{
		PatientID:     uuid.New(),
		MedicalID:     "9XF3A",
		PatientName:   "Jane Doe",
		ReferringID:   uuid.New(),
		ReferringName: "General Hospital",
		ReceivingID:   uuid.New(),
		ReceivingName: "St. Mary's",
		Priority:      model.ReferralPriorityUrgent,
		Reason:        "Cardiology consult",
	}
}

func TestCreateAssignsIdentity(t *testing.T) {
	svc := newTestService()

	created, err := svc.Create(context.Background(), newReferral())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.True(t, strings.HasPrefix(created.ReferralCode, "REF-"))
	assert.Equal(t, model.ReferralStatusPending, created.Status)

	// Creation seeds the history with a single entry.
	require.Len(t, created.StatusHistory, 1)
	assert.Equal(t, model.ReferralStatus(""), created.StatusHistory[0].From)
	assert.Equal(t, model.ReferralStatusPending, created.StatusHistory[0].To)
	assert.False(t, created.StatusHistory[0].Timestamp.IsZero())
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()

	cases := []struct {
		name   string
		mutate func(*model.Referral)
	}{
		{"missing patient ID", func(r *model.Referral) { r.PatientID = uuid.Nil }},
		{"malformed medical ID", func(r *model.Referral) { r.MedicalID = "abc" }},
		{"missing patient name", func(r *model.Referral) { r.PatientName = "" }},
		{"missing referring hospital", func(r *model.Referral) { r.ReferringID = uuid.Nil }},
		{"missing receiving hospital", func(r *model.Referral) { r.ReceivingID = uuid.Nil }},
		{"unknown priority", func(r *model.Referral) { r.Priority = "WHENEVER" }},
		{"missing reason", func(r *model.Referral) { r.Reason = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			referral := newReferral()
			tc.mutate(referral)
			_, err := svc.Create(context.Background(), referral)
			assert.True(t, errors.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestCreateIsIdempotentOnID(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, newReferral())
	require.NoError(t, err)

	// Re-submitting the same ID updates in place.
	again := newReferral()
	again.ID = created.ID
	again.Notes = "updated notes"

	updated, err := svc.Create(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.ReferralCode, updated.ReferralCode)
	assert.Equal(t, "updated notes", updated.Notes)
	require.Len(t, updated.StatusHistory, 1)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated notes", stored.Notes)
	assert.Len(t, stored.StatusHistory, 1)
}

func TestCreateUpsertPreservesLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, newReferral())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, created.ID, model.ReferralStatusAccepted, "dr-lopez")
	require.NoError(t, err)

	// Re-submitting the referral must not reset the lifecycle: status
	// changes go through UpdateStatus only.
	again := newReferral()
	again.ID = created.ID
	again.Notes = "bed confirmed"

	updated, err := svc.Create(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, model.ReferralStatusAccepted, updated.Status)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReferralStatusAccepted, stored.Status)
	assert.Equal(t, "bed confirmed", stored.Notes)
	require.Len(t, stored.StatusHistory, 2)
	assert.Equal(t, model.ReferralStatusAccepted, stored.StatusHistory[1].To)

	// Same for completion: a terminal referral stays terminal with its
	// completion time intact.
	_, err = svc.UpdateStatus(ctx, created.ID, model.ReferralStatusCompleted, "dr-lopez")
	require.NoError(t, err)
	completed, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)

	again = newReferral()
	again.ID = created.ID
	_, err = svc.Create(ctx, again)
	require.NoError(t, err)

	stored, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReferralStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, *completed.CompletedAt, *stored.CompletedAt)
	assert.Len(t, stored.StatusHistory, 3)
}

func TestUpdateStatusTimestampsAgree(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, newReferral())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, created.ID, model.ReferralStatusAccepted, "dr-lopez")
	require.NoError(t, err)

	// The stored record carries the exact timestamp recorded in the
	// history entry, not one minted by the repository.
	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.UpdatedAt, stored.UpdatedAt)
	require.Len(t, stored.StatusHistory, 2)
	assert.Equal(t, stored.StatusHistory[1].Timestamp, stored.UpdatedAt)
}

func TestGetNotFound(t *testing.T) {
	svc := newTestService()

	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.GetByCode(context.Background(), "REF-ZZZZZ")
	assert.True(t, errors.IsNotFound(err))
}

func TestGetByCode(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, newReferral())
	require.NoError(t, err)

	found, err := svc.GetByCode(ctx, created.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, newReferral())
	require.NoError(t, err)

	accepted, err := svc.UpdateStatus(ctx, created.ID, model.ReferralStatusAccepted, "dr.smith")
	require.NoError(t, err)
	assert.Equal(t, model.ReferralStatusAccepted, accepted.Status)
	require.Len(t, accepted.StatusHistory, 2)
	assert.Equal(t, model.ReferralStatusPending, accepted.StatusHistory[1].From)
	assert.Equal(t, model.ReferralStatusAccepted, accepted.StatusHistory[1].To)
	assert.Equal(t, "dr.smith", accepted.StatusHistory[1].UpdatedBy)
	assert.Nil(t, accepted.CompletedAt)

	completed, err := svc.UpdateStatus(ctx, created.ID, model.ReferralStatusCompleted, "dr.smith")
	require.NoError(t, err)
	assert.Equal(t, model.ReferralStatusCompleted, completed.Status)
	require.Len(t, completed.StatusHistory, 3)
	require.NotNil(t, completed.CompletedAt)

	// The full sequence is reconstructable from the history.
	var sequence []model.ReferralStatus
	for _, change := range completed.StatusHistory {
		sequence = append(sequence, change.To)
	}
	assert.Equal(t, []model.ReferralStatus{
		model.ReferralStatusPending,
		model.ReferralStatusAccepted,
		model.ReferralStatusCompleted,
	}, sequence)
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, newReferral())
	require.NoError(t, err)

	unchanged, err := svc.UpdateStatus(ctx, created.ID, model.ReferralStatusPending, "dr.smith")
	require.NoError(t, err)
	assert.Equal(t, model.ReferralStatusPending, unchanged.Status)
	assert.Len(t, unchanged.StatusHistory, 1)
	assert.Equal(t, created.UpdatedAt, unchanged.UpdatedAt)
}

func TestUpdateStatusIllegalTransitions(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		from model.ReferralStatus
		to   model.ReferralStatus
	}{
		{"pending to completed", model.ReferralStatusPending, model.ReferralStatusCompleted},
		{"completed to accepted", model.ReferralStatusCompleted, model.ReferralStatusAccepted},
		{"rejected to accepted", model.ReferralStatusRejected, model.ReferralStatusAccepted},
		{"cancelled to pending", model.ReferralStatusCancelled, model.ReferralStatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			referral := newReferral()
			referral.Status = tc.from
			created, err := svc.Create(ctx, referral)
			require.NoError(t, err)

			_, err = svc.UpdateStatus(ctx, created.ID, tc.to, "")
			assert.True(t, errors.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	svc := newTestService()

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), "ARCHIVED", "")
	assert.True(t, errors.IsValidation(err))
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc := newTestService()

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), model.ReferralStatusAccepted, "")
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateStatusDefaultsActor(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, newReferral())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, created.ID, model.ReferralStatusAccepted, "")
	require.NoError(t, err)
	assert.Equal(t, model.UpdatedBySystem, updated.StatusHistory[1].UpdatedBy)
}

func TestCompletedAtSetOnceOnFirstTerminal(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, newReferral())
	require.NoError(t, err)

	cancelled, err := svc.UpdateStatus(ctx, created.ID, model.ReferralStatusCancelled, "")
	require.NoError(t, err)
	require.NotNil(t, cancelled.CompletedAt)
	assert.Equal(t, cancelled.StatusHistory[1].Timestamp, *cancelled.CompletedAt)
}

func TestDelete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, newReferral())
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, created.ID, "admin")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.Get(ctx, created.ID)
	assert.True(t, errors.IsNotFound(err))

	deleted, err = svc.Delete(ctx, created.ID, "admin")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListByMedicalID(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first := newReferral()
	_, err := svc.Create(ctx, first)
	require.NoError(t, err)

	second := newReferral()
	second.MedicalID = "K2M4N"
	_, err = svc.Create(ctx, second)
	require.NoError(t, err)

	referrals, err := svc.ListByMedicalID(ctx, "9XF3A")
	require.NoError(t, err)
	assert.Len(t, referrals, 1)

	// Unknown but well-formed IDs yield an empty list.
	referrals, err = svc.ListByMedicalID(ctx, "77777")
	require.NoError(t, err)
	assert.Empty(t, referrals)

	// Malformed IDs are rejected outright.
	_, err = svc.ListByMedicalID(ctx, "O0IL")
	assert.True(t, errors.IsValidation(err))
}

func TestPatientStats(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, newReferral())
	require.NoError(t, err)

	stats, err := svc.PatientStats(ctx, "9XF3A")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Pending)

	_, err = svc.UpdateStatus(ctx, created.ID, model.ReferralStatusAccepted, "")
	require.NoError(t, err)

	stats, err = svc.PatientStats(ctx, "9XF3A")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, 1, stats.Accepted)
}

func TestHospitalStats(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	hospital := uuid.New()

	outbound := newReferral()
	outbound.ReferringID = hospital
	outbound.Priority = model.ReferralPriorityEmergency
	_, err := svc.Create(ctx, outbound)
	require.NoError(t, err)

	inbound := newReferral()
	inbound.ReceivingID = hospital
	inbound.Priority = model.ReferralPriorityRoutine
	_, err = svc.Create(ctx, inbound)
	require.NoError(t, err)

	// Hospital on both sides: counted once per breakdown, priority once.
	internal := newReferral()
	internal.ReferringID = hospital
	internal.ReceivingID = hospital
	internal.Priority = model.ReferralPriorityUrgent
	_, err = svc.Create(ctx, internal)
	require.NoError(t, err)

	stats, err := svc.HospitalStats(ctx, hospital)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Referred.Total)
	assert.Equal(t, 2, stats.Received.Total)
	assert.Equal(t, 1, stats.ByPriority.Emergency)
	assert.Equal(t, 1, stats.ByPriority.Routine)
	assert.Equal(t, 1, stats.ByPriority.Urgent)
}

func TestOnChangeNotifications(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	var changes []event.Change
	unregister := svc.OnChange(func(c event.Change) {
		changes = append(changes, c)
	})

	created, err := svc.Create(ctx, newReferral())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, created.ID, model.ReferralStatusAccepted, "")
	require.NoError(t, err)
	_, err = svc.Delete(ctx, created.ID, "admin")
	require.NoError(t, err)

	require.Len(t, changes, 3)
	assert.Equal(t, event.ActionCreate, changes[0].Action)
	assert.Equal(t, event.ActionUpdate, changes[1].Action)
	assert.Equal(t, event.ActionDelete, changes[2].Action)
	assert.Equal(t, created.ID.String(), changes[0].ID)

	unregister()
	_, err = svc.Create(ctx, newReferral())
	require.NoError(t, err)
	assert.Len(t, changes, 3)
}
