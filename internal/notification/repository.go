package notification

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/justxchange/go-backend/internal/model"
)

// Repository is the persistence contract for the notification ledger.
type Repository interface {
	UnreadByUser(ctx context.Context, userID int64) ([]*model.Notification, error)
	MarkRead(ctx context.Context, userID int64, ids []int64) error
	Create(ctx context.Context, n *model.Notification) error
	UserIDsExcept(ctx context.Context, exceptID int64) ([]int64, error)
}

type repository struct {
	db *bun.DB
}

var _ Repository = (*repository)(nil)

// NewRepository returns a bun backed notification store.
func NewRepository(db *bun.DB) Repository {
	return &repository{db: db}
}

func (r *repository) UnreadByUser(ctx context.Context, userID int64) ([]*model.Notification, error) {
	var records []*model.Notification

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ? AND ?TableAlias.is_read = FALSE", userID).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list unread notifications")
	}

	return records, nil
}

// MarkRead scopes the update to the owning user so an ack cannot flip
// someone else's rows.
func (r *repository) MarkRead(ctx context.Context, userID int64, ids []int64) error {
	_, err := r.db.NewUpdate().
		Model((*model.Notification)(nil)).
		Set("is_read = TRUE").
		Where("user_id = ?", userID).
		Where("notification_id IN (?)", bun.In(ids)).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark notifications read")
	}
	return nil
}

func (r *repository) Create(ctx context.Context, n *model.Notification) error {
	if _, err := r.db.NewInsert().Model(n).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create notification")
	}
	return nil
}

func (r *repository) UserIDsExcept(ctx context.Context, exceptID int64) ([]int64, error) {
	var ids []int64

	err := r.db.NewSelect().
		Model((*model.User)(nil)).
		Column("user_id").
		Where("user_id != ?", exceptID).
		Scan(ctx, &ids)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list notification recipients")
	}

	return ids, nil
}
