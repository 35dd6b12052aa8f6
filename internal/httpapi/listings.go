package httpapi

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"

	"github.com/justxchange/go-backend/internal/listing"
)

// ListingController exposes the minimal listing write path that feeds the
// notification fan-out. Full product CRUD lives outside this service.
type ListingController struct {
	listings *listing.Service
}

// NewListingController wires the listing endpoints.
func NewListingController(service *listing.Service) *ListingController {
	return &ListingController{listings: service}
}

type createListingRequest struct {
	ProductName string `json:"productName"`
}

func (r createListingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProductName, validation.Required, validation.Length(1, 300)),
	)
}

// Create persists a listing owned by the authenticated user and triggers the
// listing-created notification fan-out.
func (h *ListingController) Create(c *fiber.Ctx) error {
	claims, err := sessionClaims(c)
	if err != nil {
		return err
	}

	var req createListingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	product, err := h.listings.Create(c.Context(), claims.UserID(), req.ProductName)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}
