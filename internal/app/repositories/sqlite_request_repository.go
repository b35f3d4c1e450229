package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/cloverkingdom/academy/internal/app/grimoire"
	"github.com/cloverkingdom/academy/internal/app/models"
	"github.com/cloverkingdom/academy/internal/db"
	"github.com/cloverkingdom/academy/internal/pkg/dberrors"
	"github.com/cloverkingdom/academy/internal/pkg/helpers"
	"github.com/cloverkingdom/academy/internal/pkg/logger"
)

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlScanner interface {
	Scan(dest ...any) error
}

// SQLiteRequestRepository stores admission requests in an embedded SQLite
// database. Timestamps are kept as Unix microseconds.
type SQLiteRequestRepository struct {
	sqlDB *sql.DB
	q     sqlQuerier
	inTx  bool
	sb    squirrel.StatementBuilderType
}

// NewSQLiteRequestRepository creates a new SQLiteRequestRepository
func NewSQLiteRequestRepository(sqlDB *sql.DB) *SQLiteRequestRepository {
	return &SQLiteRequestRepository{
		sqlDB: sqlDB,
		q:     sqlDB,
		sb:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

// CreateRequest inserts a new pending request
func (r *SQLiteRequestRepository) CreateRequest(ctx context.Context, draft models.AdmissionDraft) (*models.AdmissionRequest, error) {
	now := helpers.NowUTC()
	query, args, err := r.sb.Insert(requestsTable).
		Columns("first_name", "last_name", "identification", "age", "magic_affinity", "status", "created_at", "updated_at").
		Values(draft.FirstName, draft.LastName, draft.Identification, draft.Age, string(draft.MagicAffinity), string(models.StatusPending), toMicros(now), toMicros(now)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build create request query: %w", err)
	}

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, identificationConstraint, "identification") {
			return nil, ErrDuplicateIdentification
		}
		logger.Error().Err(err).Msg("Error executing create request query")
		return nil, fmt.Errorf("error creating admission request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("error reading admission request id: %w", err)
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

func (r *SQLiteRequestRepository) selectRequests() squirrel.SelectBuilder {
	return r.sb.Select(requestColumns...).
		From(requestsTable + " r").
		LeftJoin(assignmentsTable + " g ON g.request_id = r.id")
}

func scanSQLiteRequest(row sqlScanner) (*models.AdmissionRequest, error) {
	var (
		req        models.AdmissionRequest
		affinity   string
		status     string
		createdAt  int64
		updatedAt  int64
		gType      sql.NullString
		gRarity    sql.NullInt64
		assignedAt sql.NullInt64
	)
	err := row.Scan(&req.ID, &req.FirstName, &req.LastName, &req.Identification, &req.Age,
		&affinity, &status, &createdAt, &updatedAt,
		&gType, &gRarity, &assignedAt)
	if err != nil {
		return nil, err
	}
	req.MagicAffinity = models.Affinity(affinity)
	req.Status = models.Status(status)
	req.CreatedAt = fromMicros(createdAt)
	req.UpdatedAt = fromMicros(updatedAt)
	if gType.Valid && gRarity.Valid {
		req.Grimoire = &models.GrimoireAssignment{
			RequestID:  req.ID,
			Type:       gType.String,
			Rarity:     int(gRarity.Int64),
			AssignedAt: fromMicros(assignedAt.Int64),
		}
	}
	return &req, nil
}

// GetRequest retrieves a request with its assignment by ID
func (r *SQLiteRequestRepository) GetRequest(ctx context.Context, id int64) (*models.AdmissionRequest, error) {
	query, args, err := r.selectRequests().
		Where(squirrel.Eq{"r.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get request query: %w", err)
	}

	req, err := scanSQLiteRequest(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Error().Err(err).Int64("requestID", id).Msg("Error scanning request row")
		return nil, fmt.Errorf("error getting admission request: %w", err)
	}
	return req, nil
}

// ListRequests retrieves all requests in id order
func (r *SQLiteRequestRepository) ListRequests(ctx context.Context) ([]*models.AdmissionRequest, error) {
	query, args, err := r.selectRequests().OrderBy("r.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list requests query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list requests query")
		return nil, fmt.Errorf("error querying admission requests: %w", err)
	}
	defer rows.Close()

	requests := []*models.AdmissionRequest{}
	for rows.Next() {
		req, err := scanSQLiteRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning admission request row: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admission request rows: %w", err)
	}
	return requests, nil
}

// UpdateRequest applies the set fields of patch
func (r *SQLiteRequestRepository) UpdateRequest(ctx context.Context, id int64, patch models.AdmissionPatch) (*models.AdmissionRequest, error) {
	if patch.IsEmpty() {
		return r.GetRequest(ctx, id)
	}

	cols := patchColumns(patch)
	cols["updated_at"] = toMicros(helpers.NowUTC())
	query, args, err := r.sb.Update(requestsTable).
		SetMap(cols).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update request query: %w", err)
	}

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, identificationConstraint, "identification") {
			return nil, ErrDuplicateIdentification
		}
		logger.Error().Err(err).Int64("requestID", id).Msg("Error executing update request query")
		return nil, fmt.Errorf("error updating admission request: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("error reading affected rows: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}

	return r.GetRequest(ctx, id)
}

// UpdateStatus sets the status of a request
func (r *SQLiteRequestRepository) UpdateStatus(ctx context.Context, id int64, status models.Status) (*models.AdmissionRequest, error) {
	query, args, err := r.sb.Update(requestsTable).
		Set("status", string(status)).
		Set("updated_at", toMicros(helpers.NowUTC())).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update status query: %w", err)
	}

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Int64("requestID", id).Msg("Error executing update status query")
		return nil, fmt.Errorf("error updating admission request status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("error reading affected rows: %w", err)
	} else if n == 0 {
		return nil, ErrNotFound
	}

	return r.GetRequest(ctx, id)
}

// RecordAssignment inserts the request's grimoire unless one already exists
func (r *SQLiteRequestRepository) RecordAssignment(ctx context.Context, requestID int64, entry grimoire.Entry) (*models.GrimoireAssignment, error) {
	now := helpers.NowUTC()
	query, args, err := r.sb.Insert(assignmentsTable).
		Columns("request_id", "type", "rarity", "assigned_at").
		Values(requestID, entry.Type, entry.Rarity, toMicros(now)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build record assignment query: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "", "request_id") {
			return nil, ErrAssignmentExists
		}
		if dberrors.IsForeignKeyError(err) {
			return nil, ErrNotFound
		}
		logger.Error().Err(err).Int64("requestID", requestID).Msg("Error executing record assignment query")
		return nil, fmt.Errorf("error recording grimoire assignment: %w", err)
	}

	return &models.GrimoireAssignment{
		RequestID:  requestID,
		Type:       entry.Type,
		Rarity:     entry.Rarity,
		AssignedAt: now,
	}, nil
}

// DeleteRequest removes a request together with its assignment
func (r *SQLiteRequestRepository) DeleteRequest(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.WithinTransaction(ctx, func(ctx context.Context, repo RequestRepository) error {
		tx := repo.(*SQLiteRequestRepository)

		// Explicit so the row goes even if foreign keys are off for this handle.
		query, args, err := tx.sb.Delete(assignmentsTable).Where(squirrel.Eq{"request_id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete assignment query: %w", err)
		}
		if _, err := tx.q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("error deleting grimoire assignment: %w", err)
		}

		query, args, err = tx.sb.Delete(requestsTable).Where(squirrel.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete request query: %w", err)
		}
		res, err := tx.q.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("error deleting admission request: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error reading affected rows: %w", err)
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Int64("requestID", id).Msg("Error deleting admission request")
		return false, err
	}
	return deleted, nil
}

// WithinTransaction runs fn with a repository bound to a single transaction
func (r *SQLiteRequestRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo RequestRepository) error) error {
	if r.inTx {
		return fn(ctx, r)
	}
	return db.WithSQLTransaction(ctx, r.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &SQLiteRequestRepository{
			sqlDB: r.sqlDB,
			q:     tx,
			inTx:  true,
			sb:    r.sb,
		})
	})
}
