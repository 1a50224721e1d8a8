package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/models"
)

func (db *DB) CreateService(ctx context.Context, svc *models.Service) error {
	templateJSON, err := marshalJSONMap(svc.Template)
	if err != nil {
		return fmt.Errorf("failed to encode service template: %w", err)
	}

	now := time.Now()
	query := `INSERT INTO services (name, description, template, active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, svc.Name, svc.Description, templateJSON, svc.Active, now, now)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	svc.ID = id
	svc.CreatedAt = now
	svc.UpdatedAt = now
	return nil
}

func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	query := `SELECT id, name, description, template, active, created_at, updated_at, deleted_at
              FROM services WHERE id = ? AND deleted_at IS NULL`
	svc, err := scanService(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return svc, nil
}

func (db *DB) ListServices(ctx context.Context) ([]*models.Service, error) {
	query := `SELECT id, name, description, template, active, created_at, updated_at, deleted_at
              FROM services WHERE deleted_at IS NULL ORDER BY name ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

func (db *DB) CreateLocation(ctx context.Context, loc *models.Location) error {
	now := time.Now()
	query := `INSERT INTO locations (user_id, name, address, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, loc.UserID, loc.Name, loc.Address, now, now)
	if err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	loc.ID = id
	loc.CreatedAt = now
	loc.UpdatedAt = now
	return nil
}

func (db *DB) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	query := `SELECT id, user_id, name, address, created_at, updated_at, deleted_at
              FROM locations WHERE id = ? AND deleted_at IS NULL`

	var (
		loc       models.Location
		address   sql.NullString
		deletedAt sql.NullTime
	)
	err := db.QueryRowContext(ctx, query, id).Scan(
		&loc.ID, &loc.UserID, &loc.Name, &address, &loc.CreatedAt, &loc.UpdatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	loc.Address = address.String
	if deletedAt.Valid {
		v := deletedAt.Time
		loc.DeletedAt = &v
	}
	return &loc, nil
}

func scanService(row rowScanner) (*models.Service, error) {
	var (
		svc          models.Service
		description  sql.NullString
		templateJSON sql.NullString
		deletedAt    sql.NullTime
	)
	err := row.Scan(
		&svc.ID, &svc.Name, &description, &templateJSON, &svc.Active,
		&svc.CreatedAt, &svc.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	svc.Description = description.String
	if deletedAt.Valid {
		v := deletedAt.Time
		svc.DeletedAt = &v
	}
	if svc.Template, err = unmarshalJSONMap(templateJSON); err != nil {
		return nil, fmt.Errorf("failed to decode service template: %w", err)
	}
	return &svc, nil
}
