package cart

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/catalog"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/purchase"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
)

// Service is the buyer-facing cart surface.
type Service interface {
	AddItem(ctx context.Context, input AddItemInput) (*models.CartItem, error)
	Get(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
	RemoveItem(ctx context.Context, buyerID, lineID uuid.UUID) error
	Clear(ctx context.Context, buyerID uuid.UUID) error
}

// AddItemInput adds a product variant to the buyer's cart, optionally under
// a quote or design approval context.
type AddItemInput struct {
	BuyerID          uuid.UUID
	VariantID        uuid.UUID
	Quantity         int
	QuoteID          *uuid.UUID
	DesignApprovalID *uuid.UUID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// QuoteLoader resolves a quote attached to an add. Implemented by
// internal/quotes.
type QuoteLoader interface {
	FindQuote(ctx context.Context, tx *gorm.DB, quoteID uuid.UUID) (*models.Quote, error)
}

// DesignLoader resolves a design approval attached to an add. Satisfied by
// the designapprovals repository.
type DesignLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.DesignApproval, error)
}

type service struct {
	repo      Repository
	merger    *Merger
	catalog   catalog.Repository
	validator purchase.Service
	quotes    QuoteLoader
	designs   DesignLoader
	tx        txRunner
	logg      *logger.Logger
}

// NewService wires the cart.
func NewService(
	repo Repository,
	merger *Merger,
	cat catalog.Repository,
	validator purchase.Service,
	quotes QuoteLoader,
	designs DesignLoader,
	tx txRunner,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, stdErrors.New("cart repository is required")
	}
	if merger == nil {
		return nil, stdErrors.New("cart merger is required")
	}
	if cat == nil {
		return nil, stdErrors.New("catalog repository is required")
	}
	if validator == nil {
		return nil, stdErrors.New("purchase validator is required")
	}
	if tx == nil {
		return nil, stdErrors.New("transaction runner is required")
	}
	if logg == nil {
		return nil, stdErrors.New("logger is required")
	}
	return &service{
		repo:      repo,
		merger:    merger,
		catalog:   cat,
		validator: validator,
		quotes:    quotes,
		designs:   designs,
		tx:        tx,
		logg:      logg,
	}, nil
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.CartItem, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	variant, err := s.catalog.FindVariant(ctx, input.VariantID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}

	unitPrice := variant.Price
	if input.QuoteID != nil {
		quote, err := s.loadAcceptedQuote(ctx, input, variant)
		if err != nil {
			return nil, err
		}
		unitPrice = *quote.QuotedPrice
	} else {
		// Standard catalog adds go through the purchase gate; quote-driven
		// adds were already gated when the quote was accepted.
		result, err := s.validator.Validate(ctx, purchase.Query{
			BuyerID: input.BuyerID,
			Ref: catalog.ItemRef{
				Kind:      enums.ItemKindProduct,
				ItemID:    variant.ProductID,
				VariantID: &input.VariantID,
			},
		})
		if err != nil {
			return nil, err
		}
		if !result.CanPurchase {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "purchase requirements not met").
				WithDetails(map[string]any{
					"blocking_reasons":     result.BlockingReasons,
					"missing_requirements": result.MissingRequirements,
				})
		}
	}

	if input.DesignApprovalID != nil {
		if err := s.checkDesignApproval(ctx, input); err != nil {
			return nil, err
		}
	}

	var line *models.CartItem
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		merged, txErr := s.merger.MergeLine(ctx, tx, input.BuyerID, models.CartItem{
			ProductVariantID: input.VariantID,
			QuoteID:          input.QuoteID,
			DesignApprovalID: input.DesignApprovalID,
			Quantity:         input.Quantity,
			UnitPrice:        unitPrice,
		})
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "merge cart line")
		}
		line = merged
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"buyer_id":   input.BuyerID.String(),
		"variant_id": input.VariantID.String(),
		"quantity":   line.Quantity,
	}), "cart line merged")
	return line, nil
}

func (s *service) loadAcceptedQuote(ctx context.Context, input AddItemInput, variant *models.ProductVariant) (*models.Quote, error) {
	if s.quotes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quote loader not configured")
	}
	quote, err := s.quotes.FindQuote(ctx, nil, *input.QuoteID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	if quote.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quote belongs to another buyer")
	}
	if quote.Status != enums.QuoteStatusAccepted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only accepted quotes can price a cart line").
			WithDetails(map[string]string{"status": quote.Status.String()})
	}
	if quote.ProductVariantID == nil || *quote.ProductVariantID != variant.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote covers a different variant")
	}
	if quote.QuotedPrice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "quote has no price")
	}
	return quote, nil
}

func (s *service) checkDesignApproval(ctx context.Context, input AddItemInput) error {
	if s.designs == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "design loader not configured")
	}
	approval, err := s.designs.FindByID(ctx, *input.DesignApprovalID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "design approval not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load design approval")
	}
	if approval.BuyerID != input.BuyerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "design approval belongs to another buyer")
	}
	if approval.Status != enums.DesignApprovalStatusApproved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "design approval is not approved").
			WithDetails(map[string]string{"status": approval.Status.String()})
	}
	if input.QuoteID == nil && approval.VariantID != nil && *approval.VariantID != input.VariantID {
		return pkgerrors.New(pkgerrors.CodeValidation, "design approval covers a different variant")
	}
	return nil
}

func (s *service) Get(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	record, err := s.repo.FindActiveCart(ctx, buyerID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return &models.CartRecord{BuyerID: buyerID, Status: enums.CartStatusActive}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return record, nil
}

func (s *service) RemoveItem(ctx context.Context, buyerID, lineID uuid.UUID) error {
	record, err := s.repo.FindActiveCart(ctx, buyerID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	line, err := s.repo.FindLine(ctx, lineID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	if line.CartID != record.ID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cart line belongs to another cart")
	}
	if err := s.repo.DeleteLine(ctx, lineID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, buyerID uuid.UUID) error {
	record, err := s.repo.FindActiveCart(ctx, buyerID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := s.repo.ClearLines(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}
