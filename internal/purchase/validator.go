package purchase

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/catalog"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
)

// Reason is a machine-readable blocking code. The UI routes the buyer to a
// different remediation per code, so codes are never collapsed.
type Reason string

const (
	ReasonItemNotFound           Reason = "item_not_found"
	ReasonQuoteRequired          Reason = "quote_required"
	ReasonQuotePending           Reason = "quote_pending"
	ReasonQuoteRejected          Reason = "quote_rejected"
	ReasonQuoteExpired           Reason = "quote_expired"
	ReasonDesignRequired         Reason = "design_required"
	ReasonDesignPending          Reason = "design_pending"
	ReasonDesignRejected         Reason = "design_rejected"
	ReasonDesignChangesRequested Reason = "design_changes_requested"
)

var reasonMessages = map[Reason]string{
	ReasonItemNotFound:           "this item is not available for purchase",
	ReasonQuoteRequired:          "this item requires a custom quote before purchase",
	ReasonQuotePending:           "your quote is awaiting a response",
	ReasonQuoteRejected:          "your quote was rejected; request a new one",
	ReasonQuoteExpired:           "your quote has expired; request a new one",
	ReasonDesignRequired:         "this item requires an approved design before purchase",
	ReasonDesignPending:          "your design is awaiting seller review",
	ReasonDesignRejected:         "your design was rejected; upload a new one",
	ReasonDesignChangesRequested: "the seller requested changes to your design",
}

// Message returns the human-readable explanation for the code.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return string(r)
}

// Query asks whether a buyer may purchase an item right now.
type Query struct {
	BuyerID uuid.UUID
	Ref     catalog.ItemRef
}

// Result reports the gate decision plus everything the UI needs to explain
// a denial.
type Result struct {
	CanPurchase            bool
	RequiresQuote          bool
	RequiresDesignApproval bool
	QuoteStatus            *enums.QuoteStatus
	DesignStatus           *enums.DesignApprovalStatus
	BlockingReasons        []Reason
	MissingRequirements    []string
}

func (r *Result) block(reason Reason) {
	r.BlockingReasons = append(r.BlockingReasons, reason)
	r.MissingRequirements = append(r.MissingRequirements, reason.Message())
}

// QuoteFinder is the quote surface the validator reads. Implemented by
// internal/quotes.
type QuoteFinder interface {
	LatestForItem(ctx context.Context, buyerID uuid.UUID, ref catalog.ItemRef) (*models.Quote, error)
}

// DesignFinder is the design approval surface the validator reads.
// Implemented by internal/designapprovals; both lookups are strictly
// product-context.
type DesignFinder interface {
	ApprovedForItem(ctx context.Context, buyerID uuid.UUID, ref catalog.ItemRef) (*models.DesignApproval, error)
	LatestForItem(ctx context.Context, buyerID uuid.UUID, ref catalog.ItemRef) (*models.DesignApproval, error)
}

// Service decides whether an item may be added to a cart.
type Service interface {
	Validate(ctx context.Context, query Query) (*Result, error)
}

type service struct {
	catalog catalog.Repository
	quotes  QuoteFinder
	designs DesignFinder
	now     func() time.Time
}

// NewService wires the purchase requirement validator.
func NewService(cat catalog.Repository, quotes QuoteFinder, designs DesignFinder) (Service, error) {
	if cat == nil {
		return nil, stdErrors.New("catalog repository is required")
	}
	if quotes == nil {
		return nil, stdErrors.New("quote finder is required")
	}
	if designs == nil {
		return nil, stdErrors.New("design finder is required")
	}
	return &service{catalog: cat, quotes: quotes, designs: designs, now: time.Now}, nil
}

// Validate runs the dual-path gate. The quote path can be bypassed by an
// approved product-context design for the exact variant/package (the
// design-first escape hatch); the design path is checked independently so
// an item may require both and open through either side.
func (s *service) Validate(ctx context.Context, query Query) (*Result, error) {
	if query.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if err := query.Ref.Validate(); err != nil {
		return nil, err
	}

	result := &Result{}

	item, err := catalog.ResolveGatedItem(ctx, s.catalog, query.Ref)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			result.block(ReasonItemNotFound)
			return result, nil
		}
		return nil, err
	}
	if !item.IsActive {
		result.block(ReasonItemNotFound)
		return result, nil
	}

	result.RequiresQuote = item.RequiresQuote
	result.RequiresDesignApproval = item.RequiresDesignApproval

	var approvedDesign *models.DesignApproval
	if item.RequiresQuote || item.RequiresDesignApproval {
		approvedDesign, err = s.designs.ApprovedForItem(ctx, query.BuyerID, query.Ref)
		if err != nil {
			return nil, err
		}
	}

	if item.RequiresQuote && approvedDesign == nil {
		if err := s.checkQuote(ctx, query, result); err != nil {
			return nil, err
		}
	}

	if item.RequiresDesignApproval {
		if err := s.checkDesign(ctx, query, result, approvedDesign); err != nil {
			return nil, err
		}
	}

	result.CanPurchase = len(result.BlockingReasons) == 0
	return result, nil
}

func (s *service) checkQuote(ctx context.Context, query Query, result *Result) error {
	quote, err := s.quotes.LatestForItem(ctx, query.BuyerID, query.Ref)
	if err != nil {
		return err
	}
	if quote == nil {
		result.block(ReasonQuoteRequired)
		return nil
	}
	status := quote.Status
	if status.IsAcceptable() && quote.IsExpiredAt(s.now()) {
		status = enums.QuoteStatusExpired
	}
	result.QuoteStatus = &status

	switch status {
	case enums.QuoteStatusAccepted:
		// Satisfied.
	case enums.QuoteStatusRequested, enums.QuoteStatusSent, enums.QuoteStatusPending:
		result.block(ReasonQuotePending)
	case enums.QuoteStatusRejected:
		result.block(ReasonQuoteRejected)
	case enums.QuoteStatusExpired:
		result.block(ReasonQuoteExpired)
	default:
		result.block(ReasonQuoteRequired)
	}
	return nil
}

func (s *service) checkDesign(ctx context.Context, query Query, result *Result, approved *models.DesignApproval) error {
	if approved != nil {
		status := approved.Status
		result.DesignStatus = &status
		return nil
	}
	latest, err := s.designs.LatestForItem(ctx, query.BuyerID, query.Ref)
	if err != nil {
		return err
	}
	if latest == nil {
		result.block(ReasonDesignRequired)
		return nil
	}
	status := latest.Status
	result.DesignStatus = &status

	switch status {
	case enums.DesignApprovalStatusApproved:
		// Satisfied.
	case enums.DesignApprovalStatusPending, enums.DesignApprovalStatusResubmitted:
		result.block(ReasonDesignPending)
	case enums.DesignApprovalStatusRejected:
		result.block(ReasonDesignRejected)
	case enums.DesignApprovalStatusChangesRequested:
		result.block(ReasonDesignChangesRequested)
	default:
		result.block(ReasonDesignRequired)
	}
	return nil
}
