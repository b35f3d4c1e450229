package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cloverkingdom/academy/internal/app/grimoire"
	"github.com/cloverkingdom/academy/internal/app/repositories"
	"github.com/cloverkingdom/academy/internal/app/services"
)

func TestCreateDemoDataIsRepeatable(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryRequestRepository()
	svc := services.NewAdmissionService(repo, grimoire.NewWeightedAssigner(nil), grimoire.DefaultCatalog(), zerolog.Nop())

	require.NoError(t, CreateDemoData(ctx, svc, zerolog.Nop()))
	require.NoError(t, CreateDemoData(ctx, svc, zerolog.Nop()))

	list, err := repo.ListRequests(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(DemoDrafts))
	for i, req := range list {
		require.Equal(t, DemoDrafts[i].Identification, req.Identification)
	}
}
