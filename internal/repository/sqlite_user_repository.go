package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/feedx-service/internal/domain"
)

type sqliteUserRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteUserRepository returns an implementation over the embedded store.
func NewSQLiteUserRepository(db *sql.DB) UserRepository {
	return &sqliteUserRepository{db: db, now: time.Now}
}

func (r *sqliteUserRepository) Create(ctx context.Context, user *domain.User) error {
	id := uuid.NewString()
	now := r.now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, department, pin, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, user.Name, user.Email, user.PasswordHash, string(user.Role), user.Department, user.Pin,
		string(user.Status), now.UnixNano(), now.UnixNano())
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("creating user: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *sqliteUserRepository) Update(ctx context.Context, user *domain.User) error {
	now := r.now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ?, role = ?, department = ?, pin = ?,
             status = ?, updated_at = ?
         WHERE id = ?`,
		user.Name, user.Email, user.PasswordHash, string(user.Role), user.Department, user.Pin,
		string(user.Status), now.UnixNano(), user.ID)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("updating user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	user.UpdatedAt = now
	return nil
}

func (r *sqliteUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT id, name, email, password_hash, role, department, pin, status, created_at, updated_at
        FROM users WHERE id = ?`, id)
}

func (r *sqliteUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT id, name, email, password_hash, role, department, pin, status, created_at, updated_at
        FROM users WHERE email = ?`, email)
}

func (r *sqliteUserRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		user                 domain.User
		role, status         string
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.Department,
		&user.Pin,
		&status,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	user.Role = domain.Role(role)
	user.Status = domain.UserStatus(status)
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	user.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &user, nil
}

// modernc reports constraint failures only through the message text.
func isSQLiteUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
