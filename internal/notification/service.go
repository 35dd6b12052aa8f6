package notification

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/justxchange/go-backend/internal/model"
)

const fanOutWorkers = 8

// EventNotification is the broadcast event for a freshly created ledger entry.
const EventNotification = "notification"

// RoomForUser names a user's private notification room.
func RoomForUser(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Publisher fans an event out to a room's connections; satisfied by the
// realtime hub. Nil disables live pushes, the ledger still persists.
type Publisher interface {
	Publish(room, event string, payload any)
}

// Service is the notification ledger: unread queries on (re)connect,
// synchronous read acknowledgment, and the listing-created fan-out.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    zerolog.Logger
}

// NewService returns a notification ledger service.
func NewService(repo Repository, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// Unread returns the user's notifications with isRead=false, oldest first.
func (s *Service) Unread(ctx context.Context, userID int64) ([]*model.Notification, error) {
	return s.repo.UnreadByUser(ctx, userID)
}

// MarkRead flips the read flag for the given ids, persists synchronously,
// and returns the refreshed unread set for the push-back to the acking
// connection. Ids belonging to other users are ignored.
func (s *Service) MarkRead(ctx context.Context, userID int64, ids []int64) ([]*model.Notification, error) {
	if len(ids) > 0 {
		if err := s.repo.MarkRead(ctx, userID, ids); err != nil {
			return nil, err
		}
	}
	return s.repo.UnreadByUser(ctx, userID)
}

// FanOutListingCreated creates one notification per other user when a
// listing appears. The fan-out is bounded and failures are isolated per
// recipient: one failing insert never aborts the rest.
func (s *Service) FanOutListingCreated(ctx context.Context, listing *model.Product) error {
	recipients, err := s.repo.UserIDsExcept(ctx, listing.UserID)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("New listing available: %s", listing.Name)

	jobs := make(chan int64)
	var wg sync.WaitGroup

	workers := fanOutWorkers
	if len(recipients) < workers {
		workers = len(recipients)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range jobs {
				n := &model.Notification{
					UserID:    userID,
					Message:   message,
					ProductID: listing.ID,
				}
				if err := s.repo.Create(ctx, n); err != nil {
					s.logger.Error().Err(err).
						Int64("user_id", userID).
						Int64("product_id", listing.ID).
						Msg("notification create failed")
					continue
				}
				if s.publisher != nil {
					s.publisher.Publish(RoomForUser(userID), EventNotification, n)
				}
			}
		}()
	}

	for _, id := range recipients {
		jobs <- id
	}
	close(jobs)
	wg.Wait()

	return nil
}
