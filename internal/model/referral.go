package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReferralStatus is the lifecycle state of a referral.
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "PENDING"
	ReferralStatusAccepted  ReferralStatus = "ACCEPTED"
	ReferralStatusCompleted ReferralStatus = "COMPLETED"
	ReferralStatusRejected  ReferralStatus = "REJECTED"
	ReferralStatusCancelled ReferralStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is expected from s.
func (s ReferralStatus) IsTerminal() bool {
	switch s {
	case ReferralStatusCompleted, ReferralStatusRejected, ReferralStatusCancelled:
		return true
	}
	return false
}

// IsValid reports whether s is a known status.
func (s ReferralStatus) IsValid() bool {
	switch s {
	case ReferralStatusPending, ReferralStatusAccepted, ReferralStatusCompleted,
		ReferralStatusRejected, ReferralStatusCancelled:
		return true
	}
	return false
}

// ReferralPriority is the clinical urgency of a referral.
type ReferralPriority string

const (
	ReferralPriorityRoutine   ReferralPriority = "ROUTINE"
	ReferralPriorityUrgent    ReferralPriority = "URGENT"
	ReferralPriorityEmergency ReferralPriority = "EMERGENCY"
)

func (p ReferralPriority) IsValid() bool {
	switch p {
	case ReferralPriorityRoutine, ReferralPriorityUrgent, ReferralPriorityEmergency:
		return true
	}
	return false
}

// UpdatedBySystem is recorded on transitions not attributed to a user.
const UpdatedBySystem = "system"

// StatusChange is one append-only audit entry on a referral. Entries are
// never mutated or removed once written.
type StatusChange struct {
	From      ReferralStatus `json:"from"`
	To        ReferralStatus `json:"to"`
	Timestamp time.Time      `json:"timestamp"`
	UpdatedBy string         `json:"updated_by,omitempty"`
}

// Referral is a request to transfer clinical responsibility for one
// patient from the referring hospital to the receiving hospital.
//
// ID and ReferralCode are assigned once at creation and never change.
// StatusHistory grows by exactly one entry per transition. CompletedAt is
// set the moment the referral first enters a terminal status and remains
// set thereafter.
type Referral struct {
	Base
	ReferralCode      string           `json:"referral_code" db:"referral_code"`
	PatientID         uuid.UUID        `json:"patient_id" db:"patient_id"`
	MedicalID         string           `json:"medical_id" db:"medical_id"`
	PatientName       string           `json:"patient_name" db:"patient_name"`
	ReferringID       uuid.UUID        `json:"referring_hospital_id" db:"referring_hospital_id"`
	ReferringName     string           `json:"referring_hospital_name" db:"referring_hospital_name"`
	ReceivingID       uuid.UUID        `json:"receiving_hospital_id" db:"receiving_hospital_id"`
	ReceivingName     string           `json:"receiving_hospital_name" db:"receiving_hospital_name"`
	Priority          ReferralPriority `json:"priority" db:"priority"`
	Status            ReferralStatus   `json:"status" db:"status"`
	Reason            string           `json:"reason" db:"reason"`
	Notes             string           `json:"notes" db:"notes"`
	AmbulanceRequired bool             `json:"ambulance_required" db:"ambulance_required"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty" db:"completed_at"`

	StatusHistory     []StatusChange `json:"status_history" db:"-"`
	StatusHistoryJSON string         `json:"-" db:"status_history"`
}

// MarshalHistory serializes StatusHistory into the column backing it.
func (r *Referral) MarshalHistory() error {
	data, err := json.Marshal(r.StatusHistory)
	if err != nil {
		return err
	}
	r.StatusHistoryJSON = string(data)
	return nil
}

// UnmarshalHistory restores StatusHistory from its column.
func (r *Referral) UnmarshalHistory() error {
	if r.StatusHistoryJSON == "" {
		r.StatusHistory = nil
		return nil
	}
	return json.Unmarshal([]byte(r.StatusHistoryJSON), &r.StatusHistory)
}

// ReferralStats aggregates referral counts for a patient or hospital.
type ReferralStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Accepted  int `json:"accepted"`
	Completed int `json:"completed"`
	Rejected  int `json:"rejected"`
	Cancelled int `json:"cancelled"`
}

// Count adds one referral's status to the totals.
func (s *ReferralStats) Count(status ReferralStatus) {
	s.Total++
	switch status {
	case ReferralStatusPending:
		s.Pending++
	case ReferralStatusAccepted:
		s.Accepted++
	case ReferralStatusCompleted:
		s.Completed++
	case ReferralStatusRejected:
		s.Rejected++
	case ReferralStatusCancelled:
		s.Cancelled++
	}
}

// PriorityStats aggregates referral counts per priority.
type PriorityStats struct {
	Routine   int `json:"routine"`
	Urgent    int `json:"urgent"`
	Emergency int `json:"emergency"`
}

func (s *PriorityStats) Count(priority ReferralPriority) {
	switch priority {
	case ReferralPriorityRoutine:
		s.Routine++
	case ReferralPriorityUrgent:
		s.Urgent++
	case ReferralPriorityEmergency:
		s.Emergency++
	}
}

// HospitalReferralStats breaks a hospital's referrals down by the side it
// is on. A referral where the hospital is both referring and receiving
// counts once in each breakdown.
type HospitalReferralStats struct {
	Referred   ReferralStats `json:"referred"`
	Received   ReferralStats `json:"received"`
	ByPriority PriorityStats `json:"by_priority"`
}

// CreateReferralRequest is the payload for creating a referral.
type CreateReferralRequest struct {
	PatientID         string `json:"patient_id" binding:"required"`
	MedicalID         string `json:"medical_id" binding:"required"`
	PatientName       string `json:"patient_name" binding:"required"`
	ReferringID       string `json:"referring_hospital_id" binding:"required"`
	ReferringName     string `json:"referring_hospital_name"`
	ReceivingID       string `json:"receiving_hospital_id" binding:"required"`
	ReceivingName     string `json:"receiving_hospital_name"`
	Priority          string `json:"priority" binding:"required"`
	Reason            string `json:"reason" binding:"required"`
	Notes             string `json:"notes"`
	AmbulanceRequired bool   `json:"ambulance_required"`
}

// UpdateReferralStatusRequest is the payload for a status transition.
type UpdateReferralStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	UpdatedBy string `json:"updated_by"`
}
