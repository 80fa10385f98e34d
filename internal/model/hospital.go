package model

// Hospital is one tenant of the referral network.
type Hospital struct {
	Base
	Name       string `db:"name" json:"name"`
	Subdomain  string `db:"subdomain" json:"subdomain"`
	AdminEmail string `db:"admin_email" json:"admin_email"`
	Phone      string `db:"phone" json:"phone"`
	Address    string `db:"address" json:"address"`
	IsActive   bool   `db:"is_active" json:"is_active"`
}

type CreateHospitalRequest struct {
	Name       string `json:"name" binding:"required"`
	Subdomain  string `json:"subdomain"`
	AdminEmail string `json:"admin_email" binding:"required,email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

type UpdateHospitalRequest struct {
	Name       *string `json:"name"`
	AdminEmail *string `json:"admin_email" binding:"omitempty,email"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	IsActive   *bool   `json:"is_active"`
}
