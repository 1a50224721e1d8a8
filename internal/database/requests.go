package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/models"
)

const requestColumns = `id, custom_id, user_id, service_id, location_id, assigned_to_id,
	status, execution_date_time, completed_at, cancellation_requested,
	cancellation_requested_at, template_responses, note,
	created_by, updated_by, created_at, updated_at, deleted_at`

// CreateRequest inserts a new request and stamps its human-readable custom
// id from the row id inside the same transaction.
func (db *DB) CreateRequest(ctx context.Context, req *models.Request) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	templateJSON, err := marshalJSONMap(req.TemplateResponses)
	if err != nil {
		return fmt.Errorf("failed to encode template responses: %w", err)
	}
	noteJSON, err := marshalJSONMap(req.Note)
	if err != nil {
		return fmt.Errorf("failed to encode note: %w", err)
	}

	now := time.Now()
	query := `INSERT INTO requests (
				user_id, service_id, location_id, assigned_to_id, status,
				execution_date_time, cancellation_requested, template_responses,
				note, created_by, updated_by, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, query,
		req.UserID,
		req.ServiceID,
		req.LocationID,
		req.AssignedToID,
		req.Status,
		req.ExecutionDateTime,
		req.CancellationRequested,
		templateJSON,
		noteJSON,
		req.CreatedBy,
		req.UpdatedBy,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	customID := fmt.Sprintf(models.CustomIDFormat, id)
	if _, err := tx.ExecContext(ctx, `UPDATE requests SET custom_id = ? WHERE id = ?`, customID, id); err != nil {
		return fmt.Errorf("failed to set custom id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit request: %w", err)
	}

	req.ID = id
	req.CustomID = customID
	req.CreatedAt = now
	req.UpdatedAt = now
	return nil
}

// GetRequest returns a request by id. Soft-deleted rows are treated as
// absent.
func (db *DB) GetRequest(ctx context.Context, id int64) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = ? AND deleted_at IS NULL`
	row := db.QueryRowContext(ctx, query, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// ListRequests returns requests visible to the scope, newest first.
func (db *DB) ListRequests(ctx context.Context, filter models.RequestFilter, scope models.Principal) ([]*models.Request, error) {
	where, args := requestPredicates(filter, scope)

	query := `SELECT ` + requestColumns + ` FROM requests WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultPageSize
	}
	if limit > models.MaxPageSize {
		limit = models.MaxPageSize
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// CountRequests returns the number of requests visible to the scope.
func (db *DB) CountRequests(ctx context.Context, filter models.RequestFilter, scope models.Principal) (int64, error) {
	where, args := requestPredicates(filter, scope)
	query := `SELECT COUNT(*) FROM requests WHERE ` + strings.Join(where, " AND ")

	var count int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return count, nil
}

// UpdateRequest persists every mutable field of the request in one write.
func (db *DB) UpdateRequest(ctx context.Context, req *models.Request) error {
	templateJSON, err := marshalJSONMap(req.TemplateResponses)
	if err != nil {
		return fmt.Errorf("failed to encode template responses: %w", err)
	}
	noteJSON, err := marshalJSONMap(req.Note)
	if err != nil {
		return fmt.Errorf("failed to encode note: %w", err)
	}

	now := time.Now()
	query := `UPDATE requests SET
				location_id = ?, assigned_to_id = ?, status = ?,
				execution_date_time = ?, completed_at = ?,
				cancellation_requested = ?, cancellation_requested_at = ?,
				template_responses = ?, note = ?, updated_by = ?, updated_at = ?
			WHERE id = ? AND deleted_at IS NULL`
	result, err := db.ExecContext(ctx, query,
		req.LocationID,
		req.AssignedToID,
		req.Status,
		req.ExecutionDateTime,
		req.CompletedAt,
		req.CancellationRequested,
		req.CancellationRequestedAt,
		templateJSON,
		noteJSON,
		req.UpdatedBy,
		now,
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	req.UpdatedAt = now
	return nil
}

// SoftDeleteRequest marks the request deleted; the row is kept.
func (db *DB) SoftDeleteRequest(ctx context.Context, id int64, deletedBy int64) error {
	now := time.Now()
	query := `UPDATE requests SET deleted_at = ?, updated_by = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	result, err := db.ExecContext(ctx, query, now, deletedBy, now, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete request: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// requestPredicates assembles WHERE clauses for the filter and scope. The
// soft-delete predicate is applied here by default so call sites cannot
// forget it; IncludeDeleted is the explicit escape hatch for admin tooling.
func requestPredicates(filter models.RequestFilter, scope models.Principal) ([]string, []interface{}) {
	where := []string{"1=1"}
	var args []interface{}

	if !filter.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}

	switch scope.Role {
	case models.RoleClient:
		where = append(where, "user_id = ?")
		args = append(args, scope.UserID)
	case models.RoleEmployee:
		where = append(where, "(assigned_to_id = ? OR assigned_to_id IS NULL)")
		args = append(args, scope.UserID)
	}

	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.ServiceID != nil {
		where = append(where, "service_id = ?")
		args = append(args, *filter.ServiceID)
	}
	if filter.AssignedToID != nil {
		where = append(where, "assigned_to_id = ?")
		args = append(args, *filter.AssignedToID)
	}
	if filter.ExecutionFrom != nil {
		where = append(where, "execution_date_time >= ?")
		args = append(args, *filter.ExecutionFrom)
	}
	if filter.ExecutionTo != nil {
		where = append(where, "execution_date_time <= ?")
		args = append(args, *filter.ExecutionTo)
	}

	return where, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		req          models.Request
		customID     sql.NullString
		assignedTo   sql.NullInt64
		completedAt  sql.NullTime
		cancelReqAt  sql.NullTime
		templateJSON sql.NullString
		noteJSON     sql.NullString
		deletedAt    sql.NullTime
	)

	err := row.Scan(
		&req.ID, &customID, &req.UserID, &req.ServiceID, &req.LocationID, &assignedTo,
		&req.Status, &req.ExecutionDateTime, &completedAt, &req.CancellationRequested,
		&cancelReqAt, &templateJSON, &noteJSON,
		&req.CreatedBy, &req.UpdatedBy, &req.CreatedAt, &req.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	req.CustomID = customID.String
	if assignedTo.Valid {
		v := assignedTo.Int64
		req.AssignedToID = &v
	}
	if completedAt.Valid {
		v := completedAt.Time
		req.CompletedAt = &v
	}
	if cancelReqAt.Valid {
		v := cancelReqAt.Time
		req.CancellationRequestedAt = &v
	}
	if deletedAt.Valid {
		v := deletedAt.Time
		req.DeletedAt = &v
	}

	if req.TemplateResponses, err = unmarshalJSONMap(templateJSON); err != nil {
		return nil, fmt.Errorf("failed to decode template responses: %w", err)
	}
	if req.Note, err = unmarshalJSONMap(noteJSON); err != nil {
		return nil, fmt.Errorf("failed to decode note: %w", err)
	}
	return &req, nil
}

func marshalJSONMap(m models.JSONMap) (interface{}, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalJSONMap(s sql.NullString) (models.JSONMap, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m models.JSONMap
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}
