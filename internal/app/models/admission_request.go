package models

import (
	"time"
)

// AdmissionRequest defines an application to the academy based on the 'admission_requests' table
type AdmissionRequest struct {
	ID             int64               `json:"id" db:"id" example:"1"`
	FirstName      string              `json:"firstName" db:"first_name" example:"Arioto"`
	LastName       string              `json:"lastName" db:"last_name" example:"Ramos"`
	Identification string              `json:"identification" db:"identification" example:"ABC123"`
	Age            int                 `json:"age" db:"age" example:"18"`
	MagicAffinity  Affinity            `json:"magicAffinity" db:"magic_affinity" example:"Darkness"`
	Status         Status              `json:"status" db:"status" example:"pending"`
	Grimoire       *GrimoireAssignment `json:"grimoire"` // Relation, null until assigned
	CreatedAt      time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time           `json:"updatedAt" db:"updated_at"`
}

// AdmissionDraft carries the applicant supplied fields of a new request.
type AdmissionDraft struct {
	FirstName      string   `json:"firstName" validate:"required,alpha,max=20"`
	LastName       string   `json:"lastName" validate:"required,alpha,max=20"`
	Identification string   `json:"identification" validate:"required,alphanum,max=10"`
	Age            int      `json:"age" validate:"min=10,max=99"`
	MagicAffinity  Affinity `json:"magicAffinity" validate:"oneof=Darkness Light Fire Water Wind Earth"`
}

// AdmissionPatch is a partial update; nil fields are left untouched.
type AdmissionPatch struct {
	FirstName      *string   `json:"firstName,omitempty" validate:"omitnil,alpha,max=20"`
	LastName       *string   `json:"lastName,omitempty" validate:"omitnil,alpha,max=20"`
	Identification *string   `json:"identification,omitempty" validate:"omitnil,alphanum,max=10"`
	Age            *int      `json:"age,omitempty" validate:"omitnil,min=10,max=99"`
	MagicAffinity  *Affinity `json:"magicAffinity,omitempty" validate:"omitnil,oneof=Darkness Light Fire Water Wind Earth"`
}

// IsEmpty reports whether the patch changes nothing.
func (p AdmissionPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Identification == nil &&
		p.Age == nil && p.MagicAffinity == nil
}

// Apply copies the set fields of p onto r.
func (p AdmissionPatch) Apply(r *AdmissionRequest) {
	if p.FirstName != nil {
		r.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		r.LastName = *p.LastName
	}
	if p.Identification != nil {
		r.Identification = *p.Identification
	}
	if p.Age != nil {
		r.Age = *p.Age
	}
	if p.MagicAffinity != nil {
		r.MagicAffinity = *p.MagicAffinity
	}
}

// GrimoireAssignment is the grimoire awarded to an accepted request
type GrimoireAssignment struct {
	RequestID  int64     `json:"requestId" db:"request_id" example:"1"`
	Type       string    `json:"type" db:"type" example:"Five-Leaf Clover"`
	Rarity     int       `json:"rarity" db:"rarity" example:"5"`
	AssignedAt time.Time `json:"assignedAt" db:"assigned_at"`
}
