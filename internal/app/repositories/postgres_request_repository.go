package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloverkingdom/academy/internal/app/grimoire"
	"github.com/cloverkingdom/academy/internal/app/models"
	"github.com/cloverkingdom/academy/internal/db"
	"github.com/cloverkingdom/academy/internal/pkg/dberrors"
	"github.com/cloverkingdom/academy/internal/pkg/helpers"
	"github.com/cloverkingdom/academy/internal/pkg/logger"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRequestRepository handles admission request database operations on PostgreSQL
type PostgresRequestRepository struct {
	pool *pgxpool.Pool
	q    pgxQuerier
	inTx bool
	sb   squirrel.StatementBuilderType
}

// NewPostgresRequestRepository creates a new PostgresRequestRepository
func NewPostgresRequestRepository(pool *pgxpool.Pool) *PostgresRequestRepository {
	return &PostgresRequestRepository{
		pool: pool,
		q:    pool,
		sb:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateRequest inserts a new pending request
func (r *PostgresRequestRepository) CreateRequest(ctx context.Context, draft models.AdmissionDraft) (*models.AdmissionRequest, error) {
	now := helpers.NowUTC()
	sql, args, err := r.sb.Insert(requestsTable).
		Columns("first_name", "last_name", "identification", "age", "magic_affinity", "status", "created_at", "updated_at").
		Values(draft.FirstName, draft.LastName, draft.Identification, draft.Age, string(draft.MagicAffinity), string(models.StatusPending), now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create request SQL")
		return nil, fmt.Errorf("failed to build create request query: %w", err)
	}

	var id int64
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if dberrors.IsDuplicateConstraintError(err, identificationConstraint) {
			return nil, ErrDuplicateIdentification
		}
		logger.Error().Err(err).Msg("Error executing create request query")
		return nil, fmt.Errorf("error creating admission request: %w", err)
	}

	return &models.AdmissionRequest{
		ID:             id,
		FirstName:      draft.FirstName,
		LastName:       draft.LastName,
		Identification: draft.Identification,
		Age:            draft.Age,
		MagicAffinity:  draft.MagicAffinity,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (r *PostgresRequestRepository) selectRequests() squirrel.SelectBuilder {
	return r.sb.Select(requestColumns...).
		From(requestsTable + " r").
		LeftJoin(assignmentsTable + " g ON g.request_id = r.id")
}

func scanPostgresRequest(row pgx.Row) (*models.AdmissionRequest, error) {
	var (
		req        models.AdmissionRequest
		affinity   string
		status     string
		gType      *string
		gRarity    *int
		assignedAt *time.Time
	)
	err := row.Scan(&req.ID, &req.FirstName, &req.LastName, &req.Identification, &req.Age,
		&affinity, &status, &req.CreatedAt, &req.UpdatedAt,
		&gType, &gRarity, &assignedAt)
	if err != nil {
		return nil, err
	}
	req.MagicAffinity = models.Affinity(affinity)
	req.Status = models.Status(status)
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()
	if gType != nil && gRarity != nil {
		req.Grimoire = &models.GrimoireAssignment{RequestID: req.ID, Type: *gType, Rarity: *gRarity}
		if assignedAt != nil {
			req.Grimoire.AssignedAt = assignedAt.UTC()
		}
	}
	return &req, nil
}

// GetRequest retrieves a request with its assignment by ID
func (r *PostgresRequestRepository) GetRequest(ctx context.Context, id int64) (*models.AdmissionRequest, error) {
	sql, args, err := r.selectRequests().
		Where(squirrel.Eq{"r.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get request SQL")
		return nil, fmt.Errorf("failed to build get request query: %w", err)
	}

	req, err := scanPostgresRequest(r.q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Error().Err(err).Int64("requestID", id).Msg("Error scanning request row")
		return nil, fmt.Errorf("error getting admission request: %w", err)
	}
	return req, nil
}

// ListRequests retrieves all requests in id order
func (r *PostgresRequestRepository) ListRequests(ctx context.Context) ([]*models.AdmissionRequest, error) {
	sql, args, err := r.selectRequests().OrderBy("r.id ASC").ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list requests SQL")
		return nil, fmt.Errorf("failed to build list requests query: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list requests query")
		return nil, fmt.Errorf("error querying admission requests: %w", err)
	}
	defer rows.Close()

	requests := []*models.AdmissionRequest{}
	for rows.Next() {
		req, err := scanPostgresRequest(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning request row during list")
			return nil, fmt.Errorf("error scanning admission request row: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating request rows")
		return nil, fmt.Errorf("error iterating admission request rows: %w", err)
	}

	return requests, nil
}

// UpdateRequest applies the set fields of patch
func (r *PostgresRequestRepository) UpdateRequest(ctx context.Context, id int64, patch models.AdmissionPatch) (*models.AdmissionRequest, error) {
	if patch.IsEmpty() {
		return r.GetRequest(ctx, id)
	}

	sql, args, err := r.sb.Update(requestsTable).
		SetMap(patchColumns(patch)).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update request SQL")
		return nil, fmt.Errorf("failed to build update request query: %w", err)
	}

	cmdTag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, identificationConstraint) {
			return nil, ErrDuplicateIdentification
		}
		logger.Error().Err(err).Int64("requestID", id).Msg("Error executing update request query")
		return nil, fmt.Errorf("error updating admission request: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return r.GetRequest(ctx, id)
}

// patchColumns maps the set fields of patch to column values.
func patchColumns(patch models.AdmissionPatch) map[string]interface{} {
	cols := map[string]interface{}{"updated_at": helpers.NowUTC()}
	if patch.FirstName != nil {
		cols["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		cols["last_name"] = *patch.LastName
	}
	if patch.Identification != nil {
		cols["identification"] = *patch.Identification
	}
	if patch.Age != nil {
		cols["age"] = *patch.Age
	}
	if patch.MagicAffinity != nil {
		cols["magic_affinity"] = string(*patch.MagicAffinity)
	}
	return cols
}

// UpdateStatus sets the status of a request
func (r *PostgresRequestRepository) UpdateStatus(ctx context.Context, id int64, status models.Status) (*models.AdmissionRequest, error) {
	sql, args, err := r.sb.Update(requestsTable).
		Set("status", string(status)).
		Set("updated_at", helpers.NowUTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update status SQL")
		return nil, fmt.Errorf("failed to build update status query: %w", err)
	}

	cmdTag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("requestID", id).Msg("Error executing update status query")
		return nil, fmt.Errorf("error updating admission request status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return r.GetRequest(ctx, id)
}

// RecordAssignment inserts the request's grimoire unless one already exists
func (r *PostgresRequestRepository) RecordAssignment(ctx context.Context, requestID int64, entry grimoire.Entry) (*models.GrimoireAssignment, error) {
	now := helpers.NowUTC()
	sql, args, err := r.sb.Insert(assignmentsTable).
		Columns("request_id", "type", "rarity", "assigned_at").
		Values(requestID, entry.Type, entry.Rarity, now).
		Suffix("ON CONFLICT (request_id) DO NOTHING RETURNING request_id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building record assignment SQL")
		return nil, fmt.Errorf("failed to build record assignment query: %w", err)
	}

	var storedID int64
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&storedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssignmentExists
		}
		if dberrors.IsForeignKeyError(err) {
			return nil, ErrNotFound
		}
		logger.Error().Err(err).Int64("requestID", requestID).Msg("Error executing record assignment query")
		return nil, fmt.Errorf("error recording grimoire assignment: %w", err)
	}

	return &models.GrimoireAssignment{
		RequestID:  storedID,
		Type:       entry.Type,
		Rarity:     entry.Rarity,
		AssignedAt: now,
	}, nil
}

// DeleteRequest removes a request; its assignment goes with it (ON DELETE CASCADE)
func (r *PostgresRequestRepository) DeleteRequest(ctx context.Context, id int64) (bool, error) {
	sql, args, err := r.sb.Delete(requestsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete request SQL")
		return false, fmt.Errorf("failed to build delete request query: %w", err)
	}

	cmdTag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("requestID", id).Msg("Error executing delete request query")
		return false, fmt.Errorf("error deleting admission request: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// WithinTransaction runs fn with a repository bound to a single transaction
func (r *PostgresRequestRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo RequestRepository) error) error {
	if r.inTx {
		return fn(ctx, r)
	}
	return db.WithPgxTransaction(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &PostgresRequestRepository{
			pool: r.pool,
			q:    tx,
			inTx: true,
			sb:   r.sb,
		})
	})
}
