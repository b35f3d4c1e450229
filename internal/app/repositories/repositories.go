package repositories

import (
	"context"

	"github.com/cloverkingdom/academy/internal/app/grimoire"
	"github.com/cloverkingdom/academy/internal/app/models"
	"github.com/cloverkingdom/academy/internal/pkg/apperrors"
)

// Shared repository errors
var (
	// ErrNotFound is returned when the admission request does not exist.
	ErrNotFound = apperrors.ErrRequestNotFound
	// ErrDuplicateIdentification is returned when another request already uses the identification.
	ErrDuplicateIdentification = apperrors.ErrIdentificationExists
	// ErrAssignmentExists is returned when the request already holds a grimoire.
	ErrAssignmentExists = apperrors.ErrAssignmentExists
)

const (
	requestsTable    = "admission_requests"
	assignmentsTable = "grimoire_assignments"

	identificationConstraint = "admission_requests_identification_key"
)

// requestColumns is the select list shared by both SQL stores; the
// assignment columns come from a LEFT JOIN and are NULL when unassigned.
var requestColumns = []string{
	"r.id", "r.first_name", "r.last_name", "r.identification", "r.age",
	"r.magic_affinity", "r.status", "r.created_at", "r.updated_at",
	"g.type", "g.rarity", "g.assigned_at",
}

// RequestRepository is the persistence port for admission requests and
// their grimoire assignments.
type RequestRepository interface {
	CreateRequest(ctx context.Context, draft models.AdmissionDraft) (*models.AdmissionRequest, error)
	GetRequest(ctx context.Context, id int64) (*models.AdmissionRequest, error)
	ListRequests(ctx context.Context) ([]*models.AdmissionRequest, error)
	UpdateRequest(ctx context.Context, id int64, patch models.AdmissionPatch) (*models.AdmissionRequest, error)
	UpdateStatus(ctx context.Context, id int64, status models.Status) (*models.AdmissionRequest, error)
	// RecordAssignment stores the request's only grimoire. A second call for
	// the same request fails with ErrAssignmentExists.
	RecordAssignment(ctx context.Context, requestID int64, entry grimoire.Entry) (*models.GrimoireAssignment, error)
	DeleteRequest(ctx context.Context, id int64) (bool, error)
	// WithinTransaction runs fn against a repository bound to one
	// transaction. Every write made through it is discarded if fn fails.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo RequestRepository) error) error
}
