package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/justxchange/go-backend/internal/model"
)

// clearCodesSQL verifies the identifier and clears the signup code, the
// step-up code, and the shared expiry in one statement so no stale code
// survives a status flip.
var clearCodesSQL = `UPDATE "users" AS "usr"
SET
	"mobile_verified" = TRUE,
	"otp" = NULL,
	"last_login_otp" = NULL,
	"otp_expiry" = NULL
WHERE
	"usr"."user_id" = ?;`

// Users is the credential store contract the auth service depends on.
type Users interface {
	GetByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, user *model.User) (*model.User, error)
	SetSignupCode(ctx context.Context, id int64, code string, expiry time.Time) error
	SetStepUpCode(ctx context.Context, id int64, code string, expiry time.Time) error
	MarkVerified(ctx context.Context, id int64) error
	SaveRegistration(ctx context.Context, user *model.User) error
	SaveProfile(ctx context.Context, user *model.User) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns a bun backed Users store.
func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (r *users) GetByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	record := &model.User{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.mobile_number = ? OR ?TableAlias.email = ?", identifier, identifier).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	return record, nil
}

func (r *users) GetByID(ctx context.Context, id int64) (*model.User, error) {
	record := &model.User{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	return record, nil
}

func (r *users) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	if _, err := r.db.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
	}

	return user, nil
}

// SetSignupCode overwrites any unconsumed signup code and voids a pending
// step-up code in the same statement: the expiry column is shared, so at most
// one code may be live per identity or a stale code would inherit the fresh
// window.
func (r *users) SetSignupCode(ctx context.Context, id int64, code string, expiry time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*model.User)(nil)).
		Set("otp = ?", code).
		Set("last_login_otp = NULL").
		Set("otp_expiry = ?", expiry).
		Where("user_id = ?", id).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store signup code")
	}
	return nil
}

// SetStepUpCode stores the second-factor challenge code and voids any pending
// signup code in the same statement, so a leftover signup code can never ride
// the refreshed expiry window.
func (r *users) SetStepUpCode(ctx context.Context, id int64, code string, expiry time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*model.User)(nil)).
		Set("last_login_otp = ?", code).
		Set("otp = NULL").
		Set("otp_expiry = ?", expiry).
		Where("user_id = ?", id).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store step-up code")
	}
	return nil
}

func (r *users) MarkVerified(ctx context.Context, id int64) error {
	// NOTE: raw SQL keeps the dual clear atomic; the ORM update path skips
	// NULL assignments on zero-valued pointer fields.
	if _, err := r.db.NewRaw(clearCodesSQL, id).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark user verified")
	}
	return nil
}

func (r *users) SaveRegistration(ctx context.Context, user *model.User) error {
	_, err := r.db.NewUpdate().
		Model(user).
		Column("first_name", "last_name", "email", "college", "password_hash", "updated_at").
		WherePK().
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save registration")
	}
	return nil
}

func (r *users) SaveProfile(ctx context.Context, user *model.User) error {
	_, err := r.db.NewUpdate().
		Model(user).
		Column(
			"first_name", "email", "college", "address", "contact_number",
			"is_2fa_enabled", "profile_url", "is_contact_view", "updated_at",
		).
		WherePK().
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save profile")
	}
	return nil
}

func (r *users) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	_, err := r.db.NewUpdate().
		Model((*model.User)(nil)).
		Set("password_hash = ?", hash).
		Where("user_id = ?", id).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password hash")
	}
	return nil
}
