package httpapi

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/justxchange/go-backend/internal/chat"
)

// ChatController exposes chat resolution, history, and the HTTP send path.
type ChatController struct {
	chats *chat.Service
}

// NewChatController wires the chat endpoints.
func NewChatController(service *chat.Service) *ChatController {
	return &ChatController{chats: service}
}

type createChatRequest struct {
	ProductID string `json:"productId"`
}

func (r createChatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProductID, validation.Required, is.UUID),
	)
}

// Create resolves the chat for a listing. Owners get the listing's existing
// threads back; buyers get their single thread, created on first contact.
func (h *ChatController) Create(c *fiber.Ctx) error {
	claims, err := sessionClaims(c)
	if err != nil {
		return err
	}

	var req createChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	listingID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "productId must be a uuid")
	}

	result, err := h.chats.GetOrCreateChat(c.Context(), listingID, claims.UserID())
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// List returns the chats the authenticated user opened as buyer.
func (h *ChatController) List(c *fiber.Ctx) error {
	claims, err := sessionClaims(c)
	if err != nil {
		return err
	}

	chats, err := h.chats.UserChats(c.Context(), claims.UserID())
	if err != nil {
		return err
	}

	return c.JSON(chats)
}

// Messages returns a chat's messages in persisted creation order.
func (h *ChatController) Messages(c *fiber.Ctx) error {
	chatID, err := c.ParamsInt("chatId")
	if err != nil || chatID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "chatId must be a positive integer")
	}

	messages, err := h.chats.Messages(c.Context(), int64(chatID))
	if err != nil {
		return err
	}

	return c.JSON(messages)
}

// ListingChats returns every chat attached to a listing.
func (h *ChatController) ListingChats(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("productUuid"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "productUuid must be a uuid")
	}

	chats, err := h.chats.ListingChats(c.Context(), listingID)
	if err != nil {
		return err
	}

	return c.JSON(chats)
}

type sendMessageRequest struct {
	ChatID  int64  `json:"chatId"`
	Message string `json:"message"`
}

func (r sendMessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ChatID, validation.Required),
		validation.Field(&r.Message, validation.Required, validation.Length(1, 4000)),
	)
}

// SendMessage persists a message and fans it out to the chat room. This is
// the HTTP twin of the websocket sendMessage event.
func (h *ChatController) SendMessage(c *fiber.Ctx) error {
	claims, err := sessionClaims(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	msg, err := h.chats.SendMessage(c.Context(), req.ChatID, claims.UserID(), req.Message)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}
