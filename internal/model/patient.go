package model

import (
	"time"
)

type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "active"
	PatientStatusInactive PatientStatus = "inactive"
)

// Patient holds a registered patient. MedicalID is assigned once at
// registration and is immutable for the lifetime of the record; the
// update path never writes it and the patients table carries a unique
// index on the column.
type Patient struct {
	Base
	MedicalID   string    `db:"medical_id" json:"medical_id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender      string    `db:"gender" json:"gender"`
	BloodGroup  string    `db:"blood_group" json:"blood_group"`
	Phone       string    `db:"phone" json:"phone"`
	Email       string    `db:"email" json:"email"`
	Address     string    `db:"address" json:"address"`
	Status      string    `db:"status" json:"status"`
}

type RegisterPatientRequest struct {
	FirstName   string    `json:"first_name" binding:"required"`
	LastName    string    `json:"last_name" binding:"required"`
	DateOfBirth time.Time `json:"date_of_birth" binding:"required"`
	Gender      string    `json:"gender"`
	BloodGroup  string    `json:"blood_group"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email" binding:"omitempty,email"`
	Address     string    `json:"address"`
}

type UpdatePatientRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Address    *string `json:"address"`
	BloodGroup *string `json:"blood_group"`
	Status     *string `json:"status"`
}
