package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripora/tripora/internal/platform/db"
	"github.com/tripora/tripora/internal/shared"
)

// Repository provides PostgreSQL backed persistence for roles and their
// role-level grants.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id uuid.UUID) (Role, error)
	List(ctx context.Context) ([]Role, error)
	Create(ctx context.Context, role Role) error
	UpdateMeta(ctx context.Context, id uuid.UUID, name, description string) (Role, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Grants(ctx context.Context, roleID uuid.UUID) ([]string, error)
	SetGrants(ctx context.Context, roleID uuid.UUID, permissions []string) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const roleColumns = `id, name, description, kind, is_custom, is_immutable, based_on_role_id, business_id, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	row := r.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("%w: role %s", shared.ErrNotFound, id)
		}
		return Role{}, err
	}
	return role, nil
}

func (r *repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.db.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY kind, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repository) Create(ctx context.Context, role Role) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO roles (id, name, description, kind, is_custom, is_immutable, based_on_role_id, business_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, role.ID, role.Name, role.Description, role.Kind, role.IsCustom, role.IsImmutable, role.BasedOnRoleID, role.BusinessID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: role name %s", shared.ErrConflict, role.Name)
	}
	return err
}

func (r *repository) UpdateMeta(ctx context.Context, id uuid.UUID, name, description string) (Role, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+roleColumns, id, name, description)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("%w: role %s", shared.ErrNotFound, id)
		}
		return Role{}, err
	}
	return role, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: role %s", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) Grants(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.name
		FROM role_grants rg
		JOIN permissions p ON p.id = rg.permission_id
		WHERE rg.role_id = $1
		ORDER BY p.name
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SetGrants replaces the role's grants with the named permissions. Every
// name must resolve to a catalog row.
func (r *repository) SetGrants(ctx context.Context, roleID uuid.UUID, permissions []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM role_grants WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	for _, name := range permissions {
		tag, err := r.db.Exec(ctx, `
			INSERT INTO role_grants (role_id, permission_id)
			SELECT $1, id FROM permissions WHERE name = $2
		`, roleID, name)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: permission %s", shared.ErrNotFound, name)
		}
	}
	return nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.Kind, &role.IsCustom,
		&role.IsImmutable, &role.BasedOnRoleID, &role.BusinessID, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
