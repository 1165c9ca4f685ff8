package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	models "github.com/Mr-Leon909/tsutsuji-app/model"
)

type UserRepository interface {
	FindByCredentials(ctx context.Context, username, birthDate string) (*models.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Create(ctx context.Context, user *models.User, birthDate string) error
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByCredentials matches username and a canonical YYYY-MM-DD birthdate exactly.
func (r *userRepository) FindByCredentials(ctx context.Context, username, birthDate string) (*models.User, error) {
	query := r.db.Rebind(`
		SELECT id, username, avatar_url, created_at
		FROM users
		WHERE username = ? AND birth_date = ?
	`)

	var user models.User
	err := r.db.GetContext(ctx, &user, query, username, birthDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	query := r.db.Rebind(`
		SELECT id, username, avatar_url, created_at
		FROM users
		WHERE id = ?
	`)

	var user models.User
	err := r.db.GetContext(ctx, &user, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Create is used by the seed command; the client never creates users.
func (r *userRepository) Create(ctx context.Context, user *models.User, birthDate string) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
		INSERT INTO users (id, username, birth_date, avatar_url, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (username) DO NOTHING
	`)

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, birthDate, user.AvatarURL, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
