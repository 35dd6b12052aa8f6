package listing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/justxchange/go-backend/internal/listing"
	"github.com/justxchange/go-backend/internal/model"
)

// MockRepository implements listing.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	args := m.Called(ctx, product)
	if p, ok := args.Get(0).(*model.Product); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) ByUUID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*model.Product); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// channelNotifier signals when the background fan-out fires.
type channelNotifier struct {
	got chan *model.Product
}

func (n *channelNotifier) FanOutListingCreated(ctx context.Context, product *model.Product) error {
	n.got <- product
	return nil
}

func TestCreateListing(t *testing.T) {
	t.Run("persists the listing and triggers the fan-out", func(t *testing.T) {
		repo := &MockRepository{}
		notifier := &channelNotifier{got: make(chan *model.Product, 1)}
		svc := listing.NewService(repo, notifier, zerolog.Nop())

		repo.On("Create", mock.Anything, mock.AnythingOfType("*model.Product")).
			Run(func(args mock.Arguments) {
				record := args.Get(1).(*model.Product)
				assert.NotEqual(t, uuid.Nil, record.UUID)
				assert.Equal(t, int64(1), record.UserID)
				record.ID = 10
			}).
			Return(&model.Product{ID: 10, UserID: 1, Name: "Calculus Textbook"}, nil)

		product, err := svc.Create(context.Background(), 1, "Calculus Textbook")

		assert.NoError(t, err)
		assert.Equal(t, int64(10), product.ID)

		select {
		case notified := <-notifier.got:
			assert.Equal(t, int64(10), notified.ID)
		case <-time.After(time.Second):
			t.Fatal("fan-out never fired")
		}
	})

	t.Run("rejects an empty name before touching storage", func(t *testing.T) {
		repo := &MockRepository{}
		svc := listing.NewService(repo, nil, zerolog.Nop())

		_, err := svc.Create(context.Background(), 1, "")

		assert.Error(t, err)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("storage failure skips the fan-out", func(t *testing.T) {
		repo := &MockRepository{}
		notifier := &channelNotifier{got: make(chan *model.Product, 1)}
		svc := listing.NewService(repo, notifier, zerolog.Nop())

		repo.On("Create", mock.Anything, mock.Anything).
			Return(nil, listing.ErrListingNotFound)

		_, err := svc.Create(context.Background(), 1, "Calculus Textbook")

		assert.Error(t, err)
		select {
		case <-notifier.got:
			t.Fatal("fan-out must not fire for a failed insert")
		case <-time.After(50 * time.Millisecond):
		}
	})
}
