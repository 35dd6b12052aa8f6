package listing

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/justxchange/go-backend/internal/model"
)

// Notifier receives the fan-out trigger after a listing is persisted. The
// notification service satisfies this.
type Notifier interface {
	FanOutListingCreated(ctx context.Context, listing *model.Product) error
}

// Repository persists listings.
type Repository interface {
	Create(ctx context.Context, product *model.Product) (*model.Product, error)
	ByUUID(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

// ErrListingNotFound is returned when a listing id resolves to nothing.
var ErrListingNotFound = goerrors.New("listing not found", goerrors.CategoryNotFound).
	WithTextCode("LISTING_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

type bunRepository struct {
	db *bun.DB
}

// NewRepository returns a bun-backed listing repository.
func NewRepository(db *bun.DB) Repository {
	return &bunRepository{db: db}
}

func (r *bunRepository) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	if _, err := r.db.NewInsert().Model(product).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create listing")
	}
	return product, nil
}

func (r *bunRepository) ByUUID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product := &model.Product{}
	err := r.db.NewSelect().Model(product).Where("?TableAlias.id = ?", id).Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load listing")
	}
	return product, nil
}

// fanOutTimeout bounds the background notification fan-out for one listing.
const fanOutTimeout = 30 * time.Second

// Service owns the minimal listing write path: persist the row, then hand it
// to the notification fan-out. The fan-out runs detached so a slow ledger
// never delays the creating request.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   zerolog.Logger
}

// NewService returns a listing service. A nil notifier disables the fan-out.
func NewService(repo Repository, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

// Create persists a listing owned by ownerID and triggers the
// listing-created notification fan-out in the background.
func (s *Service) Create(ctx context.Context, ownerID int64, name string) (*model.Product, error) {
	if name == "" {
		return nil, goerrors.New("listing name is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	product, err := s.repo.Create(ctx, &model.Product{
		UUID:   uuid.New(),
		UserID: ownerID,
		Name:   name,
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), fanOutTimeout)
			defer cancel()
			if err := s.notifier.FanOutListingCreated(ctx, product); err != nil {
				s.logger.Error().Err(err).Int64("product_id", product.ID).Msg("listing fan-out failed")
			}
		}()
	}

	return product, nil
}

// ByUUID loads a listing by its external id.
func (s *Service) ByUUID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return s.repo.ByUUID(ctx, id)
}
