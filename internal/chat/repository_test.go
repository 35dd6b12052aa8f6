package chat_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"

	"github.com/justxchange/go-backend/internal/chat"
	"github.com/justxchange/go-backend/internal/model"
	"github.com/justxchange/go-backend/internal/store"
)

var testDBSeq int

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:chattest%d?mode=memory&cache=shared", testDBSeq)

	db, err := store.Open(dsn)
	assert.NoError(t, err)
	assert.NoError(t, store.Init(context.Background(), db))

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedProduct(t *testing.T, db *bun.DB, ownerID int64) *model.Product {
	t.Helper()

	product := &model.Product{UUID: uuid.New(), UserID: ownerID, Name: "Calculus Textbook"}
	_, err := db.NewInsert().Model(product).Exec(context.Background())
	assert.NoError(t, err)
	return product
}

func TestRepositoryCreateChat(t *testing.T) {
	db := openTestDB(t)
	repo := chat.NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, 1)

	t.Run("assigns an external id on create", func(t *testing.T) {
		created, err := repo.CreateChat(ctx, &model.Chat{ProductID: product.ID, BuyerID: 2})
		assert.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.NotEqual(t, uuid.Nil, created.UUID)
	})

	t.Run("duplicate pair returns the winner instead of failing", func(t *testing.T) {
		winner, err := repo.FindByProductAndBuyer(ctx, product.ID, 2)
		assert.NoError(t, err)

		loser, err := repo.CreateChat(ctx, &model.Chat{ProductID: product.ID, BuyerID: 2})
		assert.NoError(t, err)
		assert.Equal(t, winner.ID, loser.ID, "unique index makes the pair converge on one chat")
	})

	t.Run("same buyer on another listing is a fresh chat", func(t *testing.T) {
		other := seedProduct(t, db, 1)

		created, err := repo.CreateChat(ctx, &model.Chat{ProductID: other.ID, BuyerID: 2})
		assert.NoError(t, err)

		winner, err := repo.FindByProductAndBuyer(ctx, product.ID, 2)
		assert.NoError(t, err)
		assert.NotEqual(t, winner.ID, created.ID)
	})

	t.Run("unknown pair maps to not found", func(t *testing.T) {
		_, err := repo.FindByProductAndBuyer(ctx, product.ID, 999)
		assert.ErrorIs(t, err, chat.ErrChatNotFound)
	})
}

func TestRepositoryMessageOrdering(t *testing.T) {
	db := openTestDB(t)
	repo := chat.NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, 1)
	record, err := repo.CreateChat(ctx, &model.Chat{ProductID: product.ID, BuyerID: 2})
	assert.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// inserted out of chronological order on purpose
	for _, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
		_, err := repo.InsertMessage(ctx, &model.Message{
			ChatID:    record.ID,
			UserID:    2,
			Message:   fmt.Sprintf("offset %s", offset),
			CreatedAt: base.Add(offset),
		})
		assert.NoError(t, err)
	}

	messages, err := repo.MessagesByChat(ctx, record.ID)
	assert.NoError(t, err)
	assert.Len(t, messages, 3)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt),
			"messages must come back in created_date order")
	}
}

func TestRepositoryTouchLastSeen(t *testing.T) {
	db := openTestDB(t)
	repo := chat.NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, 1)
	record, err := repo.CreateChat(ctx, &model.Chat{ProductID: product.ID, BuyerID: 2})
	assert.NoError(t, err)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("owner disconnect stamps only the owner column", func(t *testing.T) {
		assert.NoError(t, repo.TouchLastSeen(ctx, record.UUID, true, at))

		reloaded, err := repo.ChatByUUID(ctx, record.UUID)
		assert.NoError(t, err)
		assert.NotNil(t, reloaded.OwnerLastSeenAt)
		assert.Nil(t, reloaded.BuyerLastSeenAt)
	})

	t.Run("buyer disconnect stamps the buyer column", func(t *testing.T) {
		assert.NoError(t, repo.TouchLastSeen(ctx, record.UUID, false, at.Add(time.Minute)))

		reloaded, err := repo.ChatByUUID(ctx, record.UUID)
		assert.NoError(t, err)
		assert.NotNil(t, reloaded.BuyerLastSeenAt)
	})
}
