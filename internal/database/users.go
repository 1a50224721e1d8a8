package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/models"
)

const userColumns = `id, email, name, role, token, telegram_chat_id, created_at, updated_at, deleted_at`

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	query := `INSERT INTO users (email, name, role, token, telegram_chat_id, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		user.Email, user.Name, user.Role, user.Token, user.TelegramChatID, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? AND deleted_at IS NULL`
	return db.queryUser(ctx, query, id)
}

func (db *DB) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE token = ? AND deleted_at IS NULL`
	return db.queryUser(ctx, query, token)
}

func (db *DB) ListUsersByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = ? AND deleted_at IS NULL ORDER BY created_at ASC`
	rows, err := db.QueryContext(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (db *DB) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user      models.User
		token     sql.NullString
		deletedAt sql.NullTime
	)
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &token,
		&user.TelegramChatID, &user.CreatedAt, &user.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Token = token.String
	if deletedAt.Valid {
		v := deletedAt.Time
		user.DeletedAt = &v
	}
	return &user, nil
}
