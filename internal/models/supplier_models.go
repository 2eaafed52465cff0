package models

import "time"

// Supplier represents a biomass supplier. Deactivation is soft: inactive
// suppliers are hidden from pickers but their purchase history stays intact.
type Supplier struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name" binding:"required"`
	ContactName  *string   `json:"contact_name,omitempty" db:"contact_name"`
	ContactPhone *string   `json:"contact_phone,omitempty" db:"contact_phone"`
	ContactEmail *string   `json:"contact_email,omitempty" db:"contact_email"`
	Location     *string   `json:"location,omitempty" db:"location"`
	Notes        *string   `json:"notes,omitempty" db:"notes"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
