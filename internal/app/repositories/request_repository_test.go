package repositories_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cloverkingdom/academy/internal/app/grimoire"
	"github.com/cloverkingdom/academy/internal/app/migrations"
	"github.com/cloverkingdom/academy/internal/app/models"
	"github.com/cloverkingdom/academy/internal/app/repositories"
	"github.com/cloverkingdom/academy/internal/db"
)

func draft(identification string) models.AdmissionDraft {
	return models.AdmissionDraft{
		FirstName:      "Asta",
		LastName:       "Staria",
		Identification: identification,
		Age:            15,
		MagicAffinity:  models.AffinityDarkness,
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestMemoryRequestRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) repositories.RequestRepository {
		return repositories.NewMemoryRequestRepository()
	})
}

func TestSQLiteRequestRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) repositories.RequestRepository {
		ctx := context.Background()
		sdb, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "academy.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = sdb.Close() })

		require.NoError(t, migrations.MigrateSQLite(ctx, sdb.DB, migrations.FS, migrations.SQLiteDir))
		// Second run is a no-op.
		require.NoError(t, migrations.MigrateSQLite(ctx, sdb.DB, migrations.FS, migrations.SQLiteDir))
		return repositories.NewSQLiteRequestRepository(sdb.DB)
	})
}

func TestPostgresRequestRepository(t *testing.T) {
	dsn := os.Getenv("ACADEMY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ACADEMY_TEST_POSTGRES_DSN not set")
	}

	runRepositoryContract(t, func(t *testing.T) repositories.RequestRepository {
		ctx := context.Background()
		pool, err := pgxpool.New(ctx, dsn)
		require.NoError(t, err)
		t.Cleanup(pool.Close)

		require.NoError(t, migrations.NewMigrator(pool, zerolog.Nop()).MigrateFS(ctx, migrations.FS, migrations.PostgresDir))
		_, err = pool.Exec(ctx, "TRUNCATE grimoire_assignments, admission_requests RESTART IDENTITY CASCADE")
		require.NoError(t, err)
		return repositories.NewPostgresRequestRepository(pool)
	})
}

func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) repositories.RequestRepository) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)

		created, err := repo.CreateRequest(ctx, draft("ABC123"))
		require.NoError(t, err)
		require.Positive(t, created.ID)
		require.Equal(t, models.StatusPending, created.Status)
		require.Nil(t, created.Grimoire)

		got, err := repo.GetRequest(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, created.ID, got.ID)
		require.Equal(t, "Asta", got.FirstName)
		require.Equal(t, "Staria", got.LastName)
		require.Equal(t, "ABC123", got.Identification)
		require.Equal(t, 15, got.Age)
		require.Equal(t, models.AffinityDarkness, got.MagicAffinity)
		require.Equal(t, models.StatusPending, got.Status)
		require.Nil(t, got.Grimoire)
		require.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("missing request", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.GetRequest(ctx, 999)
		require.ErrorIs(t, err, repositories.ErrNotFound)

		_, err = repo.UpdateRequest(ctx, 999, models.AdmissionPatch{FirstName: strPtr("Yuno")})
		require.ErrorIs(t, err, repositories.ErrNotFound)

		_, err = repo.UpdateStatus(ctx, 999, models.StatusAccepted)
		require.ErrorIs(t, err, repositories.ErrNotFound)

		_, err = repo.RecordAssignment(ctx, 999, grimoire.Entry{Type: "Four-Leaf Clover", Rarity: 3})
		require.ErrorIs(t, err, repositories.ErrNotFound)

		deleted, err := repo.DeleteRequest(ctx, 999)
		require.NoError(t, err)
		require.False(t, deleted)
	})

	t.Run("identification is unique", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.CreateRequest(ctx, draft("ABC123"))
		require.NoError(t, err)
		_, err = repo.CreateRequest(ctx, draft("ABC123"))
		require.ErrorIs(t, err, repositories.ErrDuplicateIdentification)

		other, err := repo.CreateRequest(ctx, draft("XYZ789"))
		require.NoError(t, err)
		_, err = repo.UpdateRequest(ctx, other.ID, models.AdmissionPatch{Identification: strPtr("ABC123")})
		require.ErrorIs(t, err, repositories.ErrDuplicateIdentification)

		// Keeping its own identification is not a conflict.
		_, err = repo.UpdateRequest(ctx, other.ID, models.AdmissionPatch{Identification: strPtr("XYZ789")})
		require.NoError(t, err)
	})

	t.Run("list in id order", func(t *testing.T) {
		repo := newRepo(t)

		empty, err := repo.ListRequests(ctx)
		require.NoError(t, err)
		require.Empty(t, empty)

		var ids []int64
		for _, ident := range []string{"A1", "B2", "C3"} {
			req, err := repo.CreateRequest(ctx, draft(ident))
			require.NoError(t, err)
			ids = append(ids, req.ID)
		}

		list, err := repo.ListRequests(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, req := range list {
			require.Equal(t, ids[i], req.ID)
		}
	})

	t.Run("partial update", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.CreateRequest(ctx, draft("ABC123"))
		require.NoError(t, err)

		updated, err := repo.UpdateRequest(ctx, created.ID, models.AdmissionPatch{
			LastName: strPtr("Silva"),
			Age:      intPtr(16),
		})
		require.NoError(t, err)
		require.Equal(t, "Asta", updated.FirstName)
		require.Equal(t, "Silva", updated.LastName)
		require.Equal(t, 16, updated.Age)
		require.Equal(t, "ABC123", updated.Identification)
		require.Equal(t, models.StatusPending, updated.Status)

		same, err := repo.UpdateRequest(ctx, created.ID, models.AdmissionPatch{})
		require.NoError(t, err)
		require.Equal(t, "Silva", same.LastName)
	})

	t.Run("status and assignment", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.CreateRequest(ctx, draft("ABC123"))
		require.NoError(t, err)

		accepted, err := repo.UpdateStatus(ctx, created.ID, models.StatusAccepted)
		require.NoError(t, err)
		require.Equal(t, models.StatusAccepted, accepted.Status)

		entry := grimoire.Entry{Type: "Five-Leaf Clover", Rarity: 5}
		assignment, err := repo.RecordAssignment(ctx, created.ID, entry)
		require.NoError(t, err)
		require.Equal(t, created.ID, assignment.RequestID)
		require.Equal(t, "Five-Leaf Clover", assignment.Type)
		require.Equal(t, 5, assignment.Rarity)

		_, err = repo.RecordAssignment(ctx, created.ID, grimoire.Entry{Type: "One-Leaf Clover", Rarity: 1})
		require.ErrorIs(t, err, repositories.ErrAssignmentExists)

		got, err := repo.GetRequest(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Grimoire)
		require.Equal(t, "Five-Leaf Clover", got.Grimoire.Type)
		require.Equal(t, 5, got.Grimoire.Rarity)

		list, err := repo.ListRequests(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.NotNil(t, list[0].Grimoire)
	})

	t.Run("delete removes assignment", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.CreateRequest(ctx, draft("ABC123"))
		require.NoError(t, err)
		_, err = repo.RecordAssignment(ctx, created.ID, grimoire.Entry{Type: "Three-Leaf Clover", Rarity: 2})
		require.NoError(t, err)

		deleted, err := repo.DeleteRequest(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, deleted)

		_, err = repo.GetRequest(ctx, created.ID)
		require.ErrorIs(t, err, repositories.ErrNotFound)

		deleted, err = repo.DeleteRequest(ctx, created.ID)
		require.NoError(t, err)
		require.False(t, deleted)

		// The identification is free again.
		_, err = repo.CreateRequest(ctx, draft("ABC123"))
		require.NoError(t, err)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.CreateRequest(ctx, draft("ABC123"))
		require.NoError(t, err)

		boom := errors.New("boom")
		err = repo.WithinTransaction(ctx, func(ctx context.Context, tx repositories.RequestRepository) error {
			if _, err := tx.UpdateStatus(ctx, created.ID, models.StatusAccepted); err != nil {
				return err
			}
			if _, err := tx.RecordAssignment(ctx, created.ID, grimoire.Entry{Type: "Two-Leaf Clover", Rarity: 1}); err != nil {
				return err
			}
			if _, err := tx.CreateRequest(ctx, draft("XYZ789")); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := repo.GetRequest(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusPending, got.Status)
		require.Nil(t, got.Grimoire)

		list, err := repo.ListRequests(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("transaction commits", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.CreateRequest(ctx, draft("ABC123"))
		require.NoError(t, err)

		err = repo.WithinTransaction(ctx, func(ctx context.Context, tx repositories.RequestRepository) error {
			if _, err := tx.UpdateStatus(ctx, created.ID, models.StatusAccepted); err != nil {
				return err
			}
			// Nested calls join the open transaction.
			return tx.WithinTransaction(ctx, func(ctx context.Context, inner repositories.RequestRepository) error {
				_, err := inner.RecordAssignment(ctx, created.ID, grimoire.Entry{Type: "Four-Leaf Clover", Rarity: 3})
				return err
			})
		})
		require.NoError(t, err)

		got, err := repo.GetRequest(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusAccepted, got.Status)
		require.NotNil(t, got.Grimoire)
		require.Equal(t, "Four-Leaf Clover", got.Grimoire.Type)
	})
}
