package chat

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/justxchange/go-backend/internal/model"
)

// swapped by tests that pin the clock
var timeNow = time.Now

// ErrChatNotFound is returned when a chat id resolves to nothing.
var ErrChatNotFound = goerrors.New("chat not found", goerrors.CategoryNotFound).
	WithTextCode("CHAT_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrListingNotFound is returned when a listing id resolves to nothing.
var ErrListingNotFound = goerrors.New("listing not found", goerrors.CategoryNotFound).
	WithTextCode("LISTING_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// Publisher fans an event out to every connection joined to a room. The
// realtime hub satisfies this; delivery is best effort and never blocks
// persistence.
type Publisher interface {
	Publish(room, event string, payload any)
}

// EventReceiveMessage is the broadcast event carrying a persisted message.
const EventReceiveMessage = "receiveMessage"

// RoomForChat names the broadcast room for a chat.
func RoomForChat(id uuid.UUID) string {
	return "chat:" + id.String()
}

// GetOrCreateResult is the outcome of a chat resolution. When the requester
// owns the listing no chat is created and Chats carries the listing's
// existing threads instead.
type GetOrCreateResult struct {
	Chat      *model.Chat   `json:"chat,omitempty"`
	Chats     []*model.Chat `json:"chats,omitempty"`
	OwnerView bool          `json:"owner_view,omitempty"`
}

// Service owns chat creation policy, message persistence, and the publish
// step that follows it.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    zerolog.Logger
}

// NewService returns a chat service. The publisher may be nil in contexts
// with no realtime layer (tests, CLI tools); publishing is then skipped.
func NewService(repo Repository, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// GetOrCreateChat resolves the listing, then either returns the listing's
// chats (owner request) or finds-or-creates the single chat for the
// (listing, requester) pair. The unique index on the pair is the final race
// guard; a losing insert reads back the winner's row.
func (s *Service) GetOrCreateChat(ctx context.Context, listingID uuid.UUID, requesterID int64) (*GetOrCreateResult, error) {
	product, err := s.repo.ProductByUUID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if product.UserID == requesterID {
		// Sellers do not open chats with themselves.
		chats, err := s.repo.ChatsByProduct(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		return &GetOrCreateResult{Chats: chats, OwnerView: true}, nil
	}

	existing, err := s.repo.FindByProductAndBuyer(ctx, product.ID, requesterID)
	if err == nil {
		return &GetOrCreateResult{Chat: existing}, nil
	}
	if !goerrors.Is(err, ErrChatNotFound) {
		return nil, err
	}

	created, err := s.repo.CreateChat(ctx, &model.Chat{
		ProductID: product.ID,
		BuyerID:   requesterID,
	})
	if err != nil {
		return nil, err
	}

	return &GetOrCreateResult{Chat: created}, nil
}

// SendMessage validates the chat, persists the message, then publishes it to
// the chat's room. Broadcast order between racing senders may differ from
// persisted order; created_date is the authority.
func (s *Service) SendMessage(ctx context.Context, chatID, authorID int64, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, goerrors.New("message text is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	chat, err := s.repo.ChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	msg, err := s.repo.InsertMessage(ctx, &model.Message{
		ChatID:  chat.ID,
		UserID:  authorID,
		Message: text,
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.Publish(RoomForChat(chat.UUID), EventReceiveMessage, msg)
	}

	return msg, nil
}

// Messages lists a chat's messages in persisted creation order.
func (s *Service) Messages(ctx context.Context, chatID int64) ([]*model.Message, error) {
	if _, err := s.repo.ChatByID(ctx, chatID); err != nil {
		return nil, err
	}
	return s.repo.MessagesByChat(ctx, chatID)
}

// UserChats lists the chats a user opened as buyer.
func (s *Service) UserChats(ctx context.Context, userID int64) ([]*model.Chat, error) {
	return s.repo.ChatsByBuyer(ctx, userID)
}

// ListingChats lists every chat attached to a listing.
func (s *Service) ListingChats(ctx context.Context, listingID uuid.UUID) ([]*model.Chat, error) {
	product, err := s.repo.ProductByUUID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return s.repo.ChatsByProduct(ctx, product.ID)
}

// TouchLastSeen records a participant leaving a chat. Exactly one of the two
// timestamps moves per disconnect event.
func (s *Service) TouchLastSeen(ctx context.Context, chatUUID uuid.UUID, owner bool) error {
	return s.repo.TouchLastSeen(ctx, chatUUID, owner, timeNow())
}
