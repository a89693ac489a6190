package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"carbon-platform/internal/models"
	"carbon-platform/internal/repository"
	"carbon-platform/pkg/logging"
	"carbon-platform/pkg/metrics"
)

// MarketplaceService handles circular-economy material listings and
// purchases. Grades are always derived from the stored quality score at read
// time; the service never writes a grade anywhere.
type MarketplaceService struct {
	repo    repository.CarbonRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewMarketplaceService creates a new marketplace service
func NewMarketplaceService(repo repository.CarbonRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *MarketplaceService {
	return &MarketplaceService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CreateListing validates and persists a new material listing
func (s *MarketplaceService) CreateListing(ctx context.Context, listing *models.MaterialListing) (*models.ListingView, error) {
	if listing.Status == "" {
		listing.Status = "available"
	}

	if err := listing.Validate(); err != nil {
		return nil, err
	}

	listing.CreatedAt = time.Now().UTC()

	if err := s.repo.CreateMaterialListing(ctx, listing); err != nil {
		return nil, err
	}

	view := listing.View()
	s.metrics.RecordListingGraded(string(view.DerivedGrade))

	s.logger.Info(ctx, "[LISTING_CREATED] Material listing created", logging.Fields{
		"listing_id":    listing.ID,
		"company_id":    listing.CompanyID,
		"material_type": listing.MaterialType,
		"quality_score": listing.QualityScore,
		"grade":         string(view.DerivedGrade),
	})

	return &view, nil
}

// GetListing retrieves a listing with its derived grade
func (s *MarketplaceService) GetListing(ctx context.Context, id int64) (*models.ListingView, error) {
	listing, err := s.repo.GetMaterialListing(ctx, id)
	if err != nil {
		return nil, err
	}

	view := listing.View()
	return &view, nil
}

// ListListings retrieves listings with filtering, each with its derived grade
func (s *MarketplaceService) ListListings(ctx context.Context, filter repository.ListingFilter) ([]models.ListingView, int, error) {
	listings, total, err := s.repo.ListMaterialListings(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	views := make([]models.ListingView, 0, len(listings))
	for _, l := range listings {
		views = append(views, l.View())
	}

	return views, total, nil
}

// Purchase buys quantity units of a listing for buyerCompanyID. The listing
// must be available and hold enough quantity; a full buy-out marks it sold.
func (s *MarketplaceService) Purchase(ctx context.Context, buyerCompanyID, materialID int64, quantity float64) (*models.Transaction, error) {
	if quantity <= 0 {
		return nil, &models.ValidationError{
			Field:   "quantity",
			Message: "quantity must be positive",
		}
	}

	listing, err := s.repo.GetMaterialListing(ctx, materialID)
	if err != nil {
		return nil, err
	}

	if listing.Status != "available" {
		return nil, &models.ValidationError{
			Field:   "material_id",
			Value:   listing.Status,
			Message: "listing is not available",
		}
	}

	if quantity > listing.Quantity {
		return nil, &models.ValidationError{
			Field:   "quantity",
			Message: "quantity exceeds available amount",
		}
	}

	tx := &models.Transaction{
		ID:             uuid.NewString(),
		BuyerCompanyID: buyerCompanyID,
		MaterialID:     materialID,
		Quantity:       quantity,
		TotalAmount:    quantity * listing.PricePerUnit,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	if quantity == listing.Quantity {
		if err := s.repo.UpdateMaterialStatus(ctx, materialID, "sold"); err != nil {
			// The transaction is already recorded; report the stale status
			// rather than failing the purchase.
			s.logger.Error(ctx, "[LISTING_STATUS_ERROR] Failed to mark listing sold", logging.Fields{
				"listing_id":     materialID,
				"transaction_id": tx.ID,
			}, err)
		}
	}

	s.metrics.PurchasesTotal.Inc()

	s.logger.Info(ctx, "[PURCHASE_COMPLETE] Marketplace purchase recorded", logging.Fields{
		"transaction_id": tx.ID,
		"buyer_id":       buyerCompanyID,
		"listing_id":     materialID,
		"quantity":       quantity,
		"total_amount":   tx.TotalAmount,
	})

	return tx, nil
}
