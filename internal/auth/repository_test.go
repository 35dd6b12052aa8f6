package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"

	"github.com/justxchange/go-backend/internal/auth"
	"github.com/justxchange/go-backend/internal/model"
	"github.com/justxchange/go-backend/internal/store"
)

var testDBSeq int

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:authtest%d?mode=memory&cache=shared", testDBSeq)

	db, err := store.Open(dsn)
	assert.NoError(t, err)
	assert.NoError(t, store.Init(context.Background(), db))

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUsersRepositoryMarkVerified(t *testing.T) {
	db := openTestDB(t)
	repo := auth.NewUsersRepository(db)
	ctx := context.Background()

	signup := "111111"
	stepUp := "222222"
	expiry := time.Now().Add(5 * time.Minute).UTC()

	created, err := repo.Create(ctx, &model.User{
		MobileNumber: "+14155552671",
		OTP:          &signup,
		LastLoginOTP: &stepUp,
		OTPExpiry:    &expiry,
	})
	assert.NoError(t, err)
	assert.NotZero(t, created.ID)

	assert.NoError(t, repo.MarkVerified(ctx, created.ID))

	// both codes and the expiry vanish in the same statement
	reloaded, err := repo.GetByID(ctx, created.ID)
	assert.NoError(t, err)
	assert.True(t, reloaded.MobileVerified)
	assert.Nil(t, reloaded.OTP)
	assert.Nil(t, reloaded.LastLoginOTP)
	assert.Nil(t, reloaded.OTPExpiry)
}

func TestUsersRepositoryGetByIdentifier(t *testing.T) {
	db := openTestDB(t)
	repo := auth.NewUsersRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.User{
		MobileNumber: "+14155552671",
		Email:        "ada@campus.edu",
	})
	assert.NoError(t, err)

	t.Run("finds by mobile number", func(t *testing.T) {
		found, err := repo.GetByIdentifier(ctx, "+14155552671")
		assert.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("finds by email", func(t *testing.T) {
		found, err := repo.GetByIdentifier(ctx, "ada@campus.edu")
		assert.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("unknown identifier maps to not found", func(t *testing.T) {
		_, err := repo.GetByIdentifier(ctx, "ghost@campus.edu")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("defaults the role on create", func(t *testing.T) {
		assert.Equal(t, model.RoleUser, created.Role)
	})
}

func TestUsersRepositoryCodes(t *testing.T) {
	db := openTestDB(t)
	repo := auth.NewUsersRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.User{MobileNumber: "+14155552671"})
	assert.NoError(t, err)

	expiry := time.Now().Add(5 * time.Minute).UTC()

	t.Run("signup code overwrite keeps a single active code", func(t *testing.T) {
		assert.NoError(t, repo.SetSignupCode(ctx, created.ID, "111111", expiry))
		assert.NoError(t, repo.SetSignupCode(ctx, created.ID, "333333", expiry))

		reloaded, err := repo.GetByID(ctx, created.ID)
		assert.NoError(t, err)
		assert.Equal(t, "333333", *reloaded.OTP)
	})

	t.Run("storing a step-up code voids the pending signup code", func(t *testing.T) {
		// the expiry column is shared: a surviving signup code would
		// inherit the step-up window
		shortExpiry := time.Now().Add(10 * time.Second).UTC()
		assert.NoError(t, repo.SetSignupCode(ctx, created.ID, "111111", shortExpiry))
		assert.NoError(t, repo.SetStepUpCode(ctx, created.ID, "444444", expiry))

		reloaded, err := repo.GetByID(ctx, created.ID)
		assert.NoError(t, err)
		assert.Equal(t, "444444", *reloaded.LastLoginOTP)
		assert.Nil(t, reloaded.OTP, "at most one code is live at a time")
	})

	t.Run("storing a signup code voids the pending step-up code", func(t *testing.T) {
		assert.NoError(t, repo.SetStepUpCode(ctx, created.ID, "555555", expiry))
		assert.NoError(t, repo.SetSignupCode(ctx, created.ID, "666666", expiry))

		reloaded, err := repo.GetByID(ctx, created.ID)
		assert.NoError(t, err)
		assert.Equal(t, "666666", *reloaded.OTP)
		assert.Nil(t, reloaded.LastLoginOTP, "at most one code is live at a time")
	})
}
