package dto

import (
	"github.com/cloverkingdom/academy/internal/app/models"
)

// CreateAdmissionRequest is the body of POST /requests
type CreateAdmissionRequest struct {
	FirstName      string `json:"firstName" example:"Arioto"`
	LastName       string `json:"lastName" example:"Ramos"`
	Identification string `json:"identification" example:"ABC123"`
	Age            int    `json:"age" example:"18"`
	MagicAffinity  string `json:"magicAffinity" example:"Darkness" enums:"Darkness,Light,Fire,Water,Wind,Earth"`
}

// ToDraft converts the body to the service input
func (r CreateAdmissionRequest) ToDraft() models.AdmissionDraft {
	return models.AdmissionDraft{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Identification: r.Identification,
		Age:            r.Age,
		MagicAffinity:  models.Affinity(r.MagicAffinity),
	}
}

// UpdateAdmissionRequest is the body of PUT /requests/:id; omitted fields are kept
type UpdateAdmissionRequest struct {
	FirstName      *string `json:"firstName,omitempty" example:"Arioto"`
	LastName       *string `json:"lastName,omitempty" example:"Ramos"`
	Identification *string `json:"identification,omitempty" example:"ABC123"`
	Age            *int    `json:"age,omitempty" example:"19"`
	MagicAffinity  *string `json:"magicAffinity,omitempty" example:"Light"`
}

// ToPatch converts the body to the service input
func (r UpdateAdmissionRequest) ToPatch() models.AdmissionPatch {
	patch := models.AdmissionPatch{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Identification: r.Identification,
		Age:            r.Age,
	}
	if r.MagicAffinity != nil {
		affinity := models.Affinity(*r.MagicAffinity)
		patch.MagicAffinity = &affinity
	}
	return patch
}

// UpdateStatusRequest is the body of PATCH /requests/:id/status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required" example:"accepted" enums:"pending,accepted,rejected"`
}
