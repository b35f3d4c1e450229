package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloverkingdom/academy/internal/app/grimoire"
	"github.com/cloverkingdom/academy/internal/app/models"
	"github.com/cloverkingdom/academy/internal/app/repositories"
	"github.com/cloverkingdom/academy/internal/pkg/apperrors"
	"github.com/cloverkingdom/academy/internal/pkg/validation"
)

var tracer = otel.Tracer("github.com/cloverkingdom/academy/internal/app/services")

// AdmissionService defines the interface for admission request operations
type AdmissionService interface {
	Create(ctx context.Context, draft models.AdmissionDraft) (*models.AdmissionRequest, error)
	Get(ctx context.Context, id int64) (*models.AdmissionRequest, error)
	List(ctx context.Context) ([]*models.AdmissionRequest, error)
	UpdateFields(ctx context.Context, id int64, patch models.AdmissionPatch) (*models.AdmissionRequest, error)
	// SetStatus moves the request to status. Accepting a request that holds
	// no grimoire draws and records one in the same transaction.
	SetStatus(ctx context.Context, id int64, status models.Status) (*models.AdmissionRequest, error)
	// AssignGrimoire returns the request's grimoire, drawing one first if it
	// has none. It does not look at the status.
	AssignGrimoire(ctx context.Context, id int64) (*models.GrimoireAssignment, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// admissionServiceImpl implements the AdmissionService interface
type admissionServiceImpl struct {
	repo    repositories.RequestRepository
	drawer  grimoire.Drawer
	catalog grimoire.Catalog
	logger  zerolog.Logger
}

// NewAdmissionService creates a new admission service instance
func NewAdmissionService(repo repositories.RequestRepository, drawer grimoire.Drawer, catalog grimoire.Catalog, logger zerolog.Logger) AdmissionService {
	return &admissionServiceImpl{
		repo:    repo,
		drawer:  drawer,
		catalog: catalog,
		logger:  logger.With().Str("component", "admission_service").Logger(),
	}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "AdmissionService."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func validateID(id int64) error {
	if id <= 0 {
		return apperrors.NewValidationError("id", "id must be a positive integer")
	}
	return nil
}

// Create validates draft and stores it as a pending request
func (s *admissionServiceImpl) Create(ctx context.Context, draft models.AdmissionDraft) (req *models.AdmissionRequest, err error) {
	ctx, span := startSpan(ctx, "Create")
	defer func() { endSpan(span, err) }()

	if err := validation.Struct(draft); err != nil {
		return nil, err
	}

	req, err = s.repo.CreateRequest(ctx, draft)
	if err != nil {
		if errors.Is(err, apperrors.ErrIdentificationExists) {
			return nil, apperrors.ErrIdentificationExists
		}
		return nil, fmt.Errorf("error creating admission request: %w", err)
	}

	span.SetAttributes(attribute.Int64("request.id", req.ID))
	s.logger.Info().Int64("requestID", req.ID).Msg("Admission request created")
	return req, nil
}

// Get retrieves a request with its grimoire
func (s *admissionServiceImpl) Get(ctx context.Context, id int64) (req *models.AdmissionRequest, err error) {
	ctx, span := startSpan(ctx, "Get", attribute.Int64("request.id", id))
	defer func() { endSpan(span, err) }()

	if err := validateID(id); err != nil {
		return nil, err
	}

	req, err = s.repo.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error retrieving admission request: %w", err)
	}
	return req, nil
}

// List retrieves every request in id order
func (s *admissionServiceImpl) List(ctx context.Context) (reqs []*models.AdmissionRequest, err error) {
	ctx, span := startSpan(ctx, "List")
	defer func() { endSpan(span, err) }()

	reqs, err = s.repo.ListRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("error retrieving admission requests: %w", err)
	}
	return reqs, nil
}

// UpdateFields applies a partial update; status and grimoire are untouched
func (s *admissionServiceImpl) UpdateFields(ctx context.Context, id int64, patch models.AdmissionPatch) (req *models.AdmissionRequest, err error) {
	ctx, span := startSpan(ctx, "UpdateFields", attribute.Int64("request.id", id))
	defer func() { endSpan(span, err) }()

	if err := validateID(id); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, apperrors.NewValidationError("", "at least one field must be provided")
	}
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	req, err = s.repo.UpdateRequest(ctx, id, patch)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrResourceNotFound, apperrors.ErrIdentificationExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating admission request: %w", err)
	}

	s.logger.Info().Int64("requestID", id).Msg("Admission request updated")
	return req, nil
}

// SetStatus changes the status of a request
func (s *admissionServiceImpl) SetStatus(ctx context.Context, id int64, status models.Status) (req *models.AdmissionRequest, err error) {
	ctx, span := startSpan(ctx, "SetStatus",
		attribute.Int64("request.id", id),
		attribute.String("request.status", string(status)))
	defer func() { endSpan(span, err) }()

	if err := validateID(id); err != nil {
		return nil, err
	}
	if parsed, ok := models.ParseStatus(string(status)); !ok || parsed != status {
		return nil, apperrors.NewInvalidStatusError(fmt.Sprintf("status must be one of: %s %s %s",
			models.StatusPending, models.StatusAccepted, models.StatusRejected))
	}

	var previous models.Status
	err = s.repo.WithinTransaction(ctx, func(ctx context.Context, repo repositories.RequestRepository) error {
		current, err := repo.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		previous = current.Status
		if !current.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s to %s", apperrors.ErrInvalidStatusTransition, current.Status, status)
		}

		updated, err := repo.UpdateStatus(ctx, id, status)
		if err != nil {
			return err
		}
		if status == models.StatusAccepted && updated.Grimoire == nil {
			assignment, err := s.assign(ctx, repo, id)
			if err != nil {
				return err
			}
			updated.Grimoire = assignment
		}
		req = updated
		return nil
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrResourceNotFound,
			apperrors.ErrInvalidStatusTransition, apperrors.ErrAssignmentRecording, apperrors.ErrInvalidCatalog) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating admission request status: %w", err)
	}

	s.logger.Info().
		Int64("requestID", id).
		Str("from", string(previous)).
		Str("to", string(status)).
		Msg("Admission request status changed")
	return req, nil
}

// AssignGrimoire returns the existing grimoire or draws a new one
func (s *admissionServiceImpl) AssignGrimoire(ctx context.Context, id int64) (assignment *models.GrimoireAssignment, err error) {
	ctx, span := startSpan(ctx, "AssignGrimoire", attribute.Int64("request.id", id))
	defer func() { endSpan(span, err) }()

	if err := validateID(id); err != nil {
		return nil, err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context, repo repositories.RequestRepository) error {
		current, err := repo.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if current.Grimoire != nil {
			assignment = current.Grimoire
			return nil
		}
		assignment, err = s.assign(ctx, repo, id)
		return err
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrResourceNotFound, apperrors.ErrAssignmentRecording, apperrors.ErrInvalidCatalog) {
			return nil, err
		}
		return nil, fmt.Errorf("error assigning grimoire: %w", err)
	}
	return assignment, nil
}

// assign draws a grimoire and records it through repo. Losing the insert to
// a concurrent writer yields the stored assignment instead.
func (s *admissionServiceImpl) assign(ctx context.Context, repo repositories.RequestRepository, id int64) (*models.GrimoireAssignment, error) {
	entry, err := s.drawer.Draw(s.catalog)
	if err != nil {
		s.logger.Error().Err(err).Int64("requestID", id).Msg("Grimoire draw failed")
		return nil, err
	}
	s.logger.Debug().Int64("requestID", id).Str("type", entry.Type).Int("rarity", entry.Rarity).Msg("Grimoire drawn")

	assignment, err := repo.RecordAssignment(ctx, id, entry)
	switch {
	case err == nil:
		s.logger.Info().Int64("requestID", id).Str("grimoire", entry.Type).Msg("Grimoire assigned")
		return assignment, nil
	case errors.Is(err, apperrors.ErrAssignmentExists):
		stored, getErr := repo.GetRequest(ctx, id)
		if getErr != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrAssignmentRecording, getErr)
		}
		if stored.Grimoire == nil {
			return nil, fmt.Errorf("%w: assignment reported but not found", apperrors.ErrAssignmentRecording)
		}
		return stored.Grimoire, nil
	case errors.Is(err, apperrors.ErrResourceNotFound):
		return nil, err
	default:
		s.logger.Error().Err(err).Int64("requestID", id).Msg("Failed to record grimoire assignment")
		return nil, fmt.Errorf("%w: %w", apperrors.ErrAssignmentRecording, err)
	}
}

// Delete removes a request and its grimoire
func (s *admissionServiceImpl) Delete(ctx context.Context, id int64) (deleted bool, err error) {
	ctx, span := startSpan(ctx, "Delete", attribute.Int64("request.id", id))
	defer func() { endSpan(span, err) }()

	if err := validateID(id); err != nil {
		return false, err
	}

	deleted, err = s.repo.DeleteRequest(ctx, id)
	if err != nil {
		return false, fmt.Errorf("error deleting admission request: %w", err)
	}
	if deleted {
		s.logger.Info().Int64("requestID", id).Msg("Admission request deleted")
	}
	return deleted, nil
}
