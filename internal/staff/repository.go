package staff

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

// Repository persists staff accounts and profiles. InsertAccount and
// InsertProfile are meant to run inside WithTx so both rows commit or
// neither does.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	InsertAccount(ctx context.Context, account Account) error
	InsertProfile(ctx context.Context, profile Profile) error
	View(ctx context.Context, accountID uuid.UUID) (View, error)
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

func (r *repository) InsertAccount(ctx context.Context, account Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (id, email, phone, password_hash, role_id, must_change_password,
			profile_completed, is_verified, is_active, invitation_token, invitation_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, account.ID, account.Email, account.Phone, account.PasswordHash, account.RoleID,
		account.MustChangePassword, account.ProfileCompleted, account.IsVerified,
		account.IsActive, account.InvitationToken, account.InvitationExpiry)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: email or phone", shared.ErrConflict)
	}
	return err
}

func (r *repository) InsertProfile(ctx context.Context, profile Profile) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO staff_profiles (id, account_id, business_id, title, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, profile.ID, profile.AccountID, profile.BusinessID, profile.Title, profile.FirstName, profile.LastName)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: staff profile", shared.ErrConflict)
	}
	return err
}

func (r *repository) View(ctx context.Context, accountID uuid.UUID) (View, error) {
	var v View
	err := r.db.QueryRow(ctx, `
		SELECT a.id, a.email, a.phone, a.role_id, a.must_change_password, a.profile_completed,
			a.is_verified, a.is_active, a.created_at, a.updated_at,
			sp.id, sp.business_id, sp.title, sp.first_name, sp.last_name, sp.created_at, sp.updated_at,
			r.name
		FROM accounts a
		JOIN staff_profiles sp ON sp.account_id = a.id
		JOIN roles r ON r.id = a.role_id
		WHERE a.id = $1
	`, accountID).Scan(
		&v.Account.ID, &v.Account.Email, &v.Account.Phone, &v.Account.RoleID,
		&v.Account.MustChangePassword, &v.Account.ProfileCompleted, &v.Account.IsVerified,
		&v.Account.IsActive, &v.Account.CreatedAt, &v.Account.UpdatedAt,
		&v.Profile.ID, &v.Profile.BusinessID, &v.Profile.Title, &v.Profile.FirstName,
		&v.Profile.LastName, &v.Profile.CreatedAt, &v.Profile.UpdatedAt,
		&v.RoleName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, fmt.Errorf("%w: staff account %s", shared.ErrNotFound, accountID)
		}
		return View{}, err
	}
	v.Profile.AccountID = v.Account.ID
	return v, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
