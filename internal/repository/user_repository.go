package repository

import (
	"context"
	"database/sql"
	"fmt"

	"campusbank/internal/logger"
	"campusbank/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUsername(ctx context.Context, id uuid.UUID, username string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type userRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{
		db:     db,
		logger: logger.NewFromEnv(),
	}
}

// isUniqueViolation reports whether the error is a postgres unique-constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	entry := r.logger.WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	})

	query := `
		INSERT INTO users (id, username, password_hash, role, name, email, phone_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.Role, user.Name, user.Email, user.PhoneNumber,
	).Scan(&user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			entry.Warn("Username or email already taken")
			return fmt.Errorf("username or email taken: %w", models.ErrDuplicate)
		}
		entry.Error("Failed to insert user: %v", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	entry.Debug("User created")
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "username = $1", username)
}

func (r *userRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, role, name, email, phone_number, created_at
		FROM users
		WHERE ` + where

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role,
		&user.Name, &user.Email, &user.PhoneNumber, &user.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (r *userRepository) UpdateUsername(ctx context.Context, id uuid.UUID, username string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET username = $1 WHERE id = $2", username, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username taken: %w", models.ErrDuplicate)
		}
		return fmt.Errorf("failed to update username: %w", err)
	}
	return requireOneRow(result)
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireOneRow(result)
}

func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
