package chat

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/justxchange/go-backend/internal/model"
)

// Repository is the persistence contract for chats and messages.
type Repository interface {
	ProductByUUID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ChatByID(ctx context.Context, id int64) (*model.Chat, error)
	ChatByUUID(ctx context.Context, id uuid.UUID) (*model.Chat, error)
	FindByProductAndBuyer(ctx context.Context, productID, buyerID int64) (*model.Chat, error)
	CreateChat(ctx context.Context, chat *model.Chat) (*model.Chat, error)
	ChatsByProduct(ctx context.Context, productID int64) ([]*model.Chat, error)
	ChatsByBuyer(ctx context.Context, buyerID int64) ([]*model.Chat, error)
	InsertMessage(ctx context.Context, msg *model.Message) (*model.Message, error)
	MessagesByChat(ctx context.Context, chatID int64) ([]*model.Message, error)
	TouchLastSeen(ctx context.Context, chatUUID uuid.UUID, owner bool, at time.Time) error
}

type repository struct {
	db *bun.DB
}

var _ Repository = (*repository)(nil)

// NewRepository returns a bun backed chat store.
func NewRepository(db *bun.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ProductByUUID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	record := &model.Product{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load listing")
	}

	return record, nil
}

func (r *repository) ChatByID(ctx context.Context, id int64) (*model.Chat, error) {
	record := &model.Chat{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.chat_id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load chat")
	}

	return record, nil
}

func (r *repository) ChatByUUID(ctx context.Context, id uuid.UUID) (*model.Chat, error) {
	record := &model.Chat{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load chat")
	}

	return record, nil
}

func (r *repository) FindByProductAndBuyer(ctx context.Context, productID, buyerID int64) (*model.Chat, error) {
	record := &model.Chat{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.product_id = ? AND ?TableAlias.buyer_id = ?", productID, buyerID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load chat")
	}

	return record, nil
}

func (r *repository) CreateChat(ctx context.Context, chat *model.Chat) (*model.Chat, error) {
	if chat.UUID == uuid.Nil {
		chat.UUID = uuid.New()
	}

	if _, err := r.db.NewInsert().Model(chat).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			// Lost the race: the pair now exists, read back the winner.
			return r.FindByProductAndBuyer(ctx, chat.ProductID, chat.BuyerID)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create chat")
	}

	return chat, nil
}

func (r *repository) ChatsByProduct(ctx context.Context, productID int64) ([]*model.Chat, error) {
	var records []*model.Chat

	err := r.db.NewSelect().
		Model(&records).
		Relation("Buyer").
		Relation("Messages").
		Where("?TableAlias.product_id = ?", productID).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list listing chats")
	}

	return records, nil
}

func (r *repository) ChatsByBuyer(ctx context.Context, buyerID int64) ([]*model.Chat, error) {
	var records []*model.Chat

	err := r.db.NewSelect().
		Model(&records).
		Relation("Product").
		Relation("Messages").
		Where("?TableAlias.buyer_id = ?", buyerID).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list user chats")
	}

	return records, nil
}

func (r *repository) InsertMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	if _, err := r.db.NewInsert().Model(msg).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist message")
	}

	return msg, nil
}

func (r *repository) MessagesByChat(ctx context.Context, chatID int64) ([]*model.Message, error) {
	var records []*model.Message

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.chat_id = ?", chatID).
		Order("created_date ASC").
		Scan(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list messages")
	}

	return records, nil
}

// TouchLastSeen stamps one of the two per-participant timestamps, selected
// by which party the event names.
func (r *repository) TouchLastSeen(ctx context.Context, chatUUID uuid.UUID, owner bool, at time.Time) error {
	column := "buyer_last_seen_at"
	if owner {
		column = "owner_last_seen_at"
	}

	_, err := r.db.NewUpdate().
		Model((*model.Chat)(nil)).
		Set(column+" = ?", at).
		Where("id = ?", chatUUID).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update last seen")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
