package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/cloverkingdom/academy/internal/app/models"
	"github.com/cloverkingdom/academy/internal/app/services"
	"github.com/cloverkingdom/academy/internal/pkg/apperrors"
)

// DemoDrafts are the applicants created when demo seeding is enabled.
var DemoDrafts = []models.AdmissionDraft{
	{FirstName: "Arioto", LastName: "Ramos", Identification: "ABC123", Age: 18, MagicAffinity: models.AffinityDarkness},
	{FirstName: "Noelle", LastName: "Silva", Identification: "NS0042", Age: 15, MagicAffinity: models.AffinityWater},
}

// CreateDemoData registers the demo applicants through the admission service.
// Applicants already present are skipped, so the step can run on every start.
func CreateDemoData(ctx context.Context, svc services.AdmissionService, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating demo admission requests...")
	var finalErr error

	for _, draft := range DemoDrafts {
		req, err := svc.Create(ctx, draft)
		switch {
		case errors.Is(err, apperrors.ErrIdentificationExists):
			lgr.Debug().Str("identification", draft.Identification).Msg("Demo request already exists")
		case err != nil:
			lgr.Error().Err(err).Str("identification", draft.Identification).Msg("Error creating demo request")
			finalErr = errors.Join(finalErr, err)
		default:
			lgr.Info().Int64("requestID", req.ID).Str("identification", draft.Identification).Msg("Demo request created")
		}
	}

	return finalErr
}
