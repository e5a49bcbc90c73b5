package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripora/tripora/internal/shared"
)

// Repository defines the reads and grant mutations the authorization core
// needs. Role and account lifecycle lives elsewhere; this interface is the
// resolution surface only.
type Repository interface {
	AccountRef(ctx context.Context, accountID uuid.UUID) (AccountRef, error)
	RolePermissions(ctx context.Context, roleID uuid.UUID) ([]string, error)
	AccountPermissions(ctx context.Context, accountID uuid.UUID) ([]string, error)
	GrantToAccount(ctx context.Context, accountID uuid.UUID, permission string) error
	RevokeFromAccount(ctx context.Context, accountID uuid.UUID, permission string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// AccountRef fetches the account joined with its role.
func (r *PGRepository) AccountRef(ctx context.Context, accountID uuid.UUID) (AccountRef, error) {
	var ref AccountRef
	err := r.pool.QueryRow(ctx, `
		SELECT a.id, a.role_id, a.is_active, r.name, r.kind
		FROM accounts a
		JOIN roles r ON r.id = a.role_id
		WHERE a.id = $1
	`, accountID).Scan(&ref.ID, &ref.RoleID, &ref.IsActive, &ref.RoleName, &ref.RoleKind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountRef{}, fmt.Errorf("%w: account %s", shared.ErrNotFound, accountID)
		}
		return AccountRef{}, err
	}
	return ref, nil
}

// RolePermissions returns permission names granted to a role.
func (r *PGRepository) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.name
		FROM role_grants rg
		JOIN permissions p ON p.id = rg.permission_id
		WHERE rg.role_id = $1
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNames(rows)
}

// AccountPermissions returns permission names granted directly to an account.
func (r *PGRepository) AccountPermissions(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.name
		FROM user_grants ug
		JOIN permissions p ON p.id = ug.permission_id
		WHERE ug.account_id = $1
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNames(rows)
}

// GrantToAccount adds a user-level grant. Granting an already-held
// permission is a no-op.
func (r *PGRepository) GrantToAccount(ctx context.Context, accountID uuid.UUID, permission string) error {
	permissionID, err := r.permissionID(ctx, permission)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO user_grants (account_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, accountID, permissionID)
	return err
}

// RevokeFromAccount removes a user-level grant if present.
func (r *PGRepository) RevokeFromAccount(ctx context.Context, accountID uuid.UUID, permission string) error {
	permissionID, err := r.permissionID(ctx, permission)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		DELETE FROM user_grants WHERE account_id = $1 AND permission_id = $2
	`, accountID, permissionID)
	return err
}

func (r *PGRepository) permissionID(ctx context.Context, permission string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM permissions WHERE name = $1`, NormalizePermission(permission)).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: permission %s", shared.ErrNotFound, permission)
		}
		return 0, err
	}
	return id, nil
}

func collectNames(rows pgx.Rows) ([]string, error) {
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
