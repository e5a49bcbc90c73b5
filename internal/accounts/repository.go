package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripora/tripora/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns a page of accounts with their role name.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Account, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.email, a.phone, a.role_id, r.name, a.must_change_password,
			a.profile_completed, a.is_verified, a.is_active, a.created_at, a.updated_at
		FROM accounts a
		JOIN roles r ON r.id = a.role_id
		ORDER BY a.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Phone, &a.RoleID, &a.RoleName,
			&a.MustChangePassword, &a.ProfileCompleted, &a.IsVerified, &a.IsActive,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// SetActive flips the is_active flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", shared.ErrNotFound, id)
	}
	return nil
}

// Get returns one account with its role name.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, `
		SELECT a.id, a.email, a.phone, a.role_id, r.name, a.must_change_password,
			a.profile_completed, a.is_verified, a.is_active, a.created_at, a.updated_at
		FROM accounts a
		JOIN roles r ON r.id = a.role_id
		WHERE a.id = $1
	`, id).Scan(&a.ID, &a.Email, &a.Phone, &a.RoleID, &a.RoleName,
		&a.MustChangePassword, &a.ProfileCompleted, &a.IsVerified, &a.IsActive,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("%w: account %s", shared.ErrNotFound, id)
		}
		return Account{}, err
	}
	return a, nil
}
