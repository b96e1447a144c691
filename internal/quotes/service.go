package quotes

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/catalog"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/conversations"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/outbox"
)

// Service is the quote state machine: request, send, accept, reject,
// supersede, expire. Every transition that other subsystems depend on
// runs inside a single transaction.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Quote, error)
	Update(ctx context.Context, input UpdateInput) (*models.Quote, error)
	Accept(ctx context.Context, quoteID, buyerID uuid.UUID) (*models.Quote, error)
	Reject(ctx context.Context, quoteID, buyerID uuid.UUID, reason string) (*models.Quote, error)
	ExpireOld(ctx context.Context) (int64, error)
	Get(ctx context.Context, quoteID, actorID uuid.UUID) (*models.Quote, error)
	ActiveForConversation(ctx context.Context, conversationID uuid.UUID) (*models.Quote, error)
	ActiveForItem(ctx context.Context, buyerID uuid.UUID, ref catalog.ItemRef) (*models.Quote, error)
	LatestForItem(ctx context.Context, buyerID uuid.UUID, ref catalog.ItemRef) (*models.Quote, error)
}

// CreateInput opens a quote inside an existing conversation. Buyers open
// requested quotes; sellers may open directly in sent with a price.
type CreateInput struct {
	ConversationID   uuid.UUID
	ActorID          uuid.UUID
	Status           enums.QuoteStatus
	ProductID        *uuid.UUID
	ServiceID        *uuid.UUID
	ProductVariantID *uuid.UUID
	ServicePackageID *uuid.UUID
	Quantity         int
	Specifications   string
	QuotedPrice      *decimal.Decimal
	ExpiresAt        *time.Time
}

// UpdateInput is the seller's response to a requested quote.
type UpdateInput struct {
	QuoteID     uuid.UUID
	SellerID    uuid.UUID
	QuotedPrice decimal.Decimal
	SellerNotes *string
	ExpiresAt   *time.Time
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DesignStatusReader looks up the latest design approval attached to a
// quote. Implemented by internal/designapprovals; methods take the
// transaction explicitly so the accept path stays atomic.
type DesignStatusReader interface {
	LatestForQuote(ctx context.Context, tx *gorm.DB, quoteID uuid.UUID) (*models.DesignApproval, error)
}

// CartLineMerger folds an accepted quote into the buyer's cart inside
// the accept transaction. Implemented by internal/cart.
type CartLineMerger interface {
	MergeLine(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID, line models.CartItem) (*models.CartItem, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo          Repository
	conversations conversations.Repository
	designs       DesignStatusReader
	cart          CartLineMerger
	tx            txRunner
	events        eventEmitter
	logg          *logger.Logger
	defaultTTL    time.Duration
	now           func() time.Time
}

// NewService wires the quote engine. The design reader and cart merger
// may be nil only in tests that never accept a quote.
func NewService(
	repo Repository,
	convs conversations.Repository,
	designs DesignStatusReader,
	cart CartLineMerger,
	tx txRunner,
	events eventEmitter,
	logg *logger.Logger,
	defaultTTL time.Duration,
) (Service, error) {
	if repo == nil {
		return nil, stdErrors.New("quote repository is required")
	}
	if convs == nil {
		return nil, stdErrors.New("conversation repository is required")
	}
	if tx == nil {
		return nil, stdErrors.New("transaction runner is required")
	}
	if logg == nil {
		return nil, stdErrors.New("logger is required")
	}
	if defaultTTL <= 0 {
		defaultTTL = 7 * 24 * time.Hour
	}
	return &service{
		repo:          repo,
		conversations: convs,
		designs:       designs,
		cart:          cart,
		tx:            tx,
		events:        events,
		logg:          logg,
		defaultTTL:    defaultTTL,
		now:           time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Quote, error) {
	if input.Status == "" {
		input.Status = enums.QuoteStatusRequested
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	conversation, err := s.conversations.FindByID(ctx, input.ConversationID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}
	if !conversation.HasParticipant(input.ActorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a participant of the conversation")
	}
	if input.Status == enums.QuoteStatusRequested && input.ActorID != conversation.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may request a quote")
	}
	if input.Status != enums.QuoteStatusRequested && input.ActorID != conversation.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller may send a quote")
	}

	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	quote := &models.Quote{
		ConversationID:   conversation.ID,
		BuyerID:          conversation.BuyerID,
		SellerID:         conversation.SellerID,
		ProductID:        input.ProductID,
		ServiceID:        input.ServiceID,
		ProductVariantID: input.ProductVariantID,
		ServicePackageID: input.ServicePackageID,
		Quantity:         quantity,
		Specifications:   input.Specifications,
		QuotedPrice:      input.QuotedPrice,
		Status:           input.Status,
		ExpiresAt:        input.ExpiresAt,
	}
	if quote.Status != enums.QuoteStatusRequested {
		now := s.now()
		quote.SentAt = &now
		if quote.ExpiresAt == nil {
			deadline := now.Add(s.defaultTTL)
			quote.ExpiresAt = &deadline
		}
	}

	eventType := enums.EventQuoteRequested
	if quote.Status != enums.QuoteStatusRequested {
		eventType = enums.EventQuoteSent
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, txErr := s.repo.WithTx(tx).Create(ctx, quote)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "create quote")
		}
		quote = created
		// A sent quote takes over the conversation slot immediately.
		if quote.Status.IsActive() {
			if _, txErr = s.repo.WithTx(tx).SupersedeActive(ctx, quote.ConversationID, quote.ID); txErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "supersede active quotes")
			}
		}
		return s.emit(ctx, tx, eventType, quote, input.ActorID)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"quote_id":        quote.ID.String(),
		"conversation_id": quote.ConversationID.String(),
		"status":          quote.Status.String(),
	}), "quote created")
	return quote, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Quote, error) {
	if input.QuotedPrice.IsNegative() || input.QuotedPrice.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quoted price must be positive")
	}

	var quote *models.Quote
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, txErr := repo.FindByIDForUpdate(ctx, input.QuoteID)
		if txErr != nil {
			if stdErrors.Is(txErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "load quote")
		}
		if found.SellerID != input.SellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the quote's seller may respond")
		}
		if found.Status != enums.QuoteStatusRequested && !found.Status.IsAcceptable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "quote can no longer be updated").
				WithDetails(map[string]string{"status": found.Status.String()})
		}

		now := s.now()
		expiresAt := input.ExpiresAt
		if expiresAt == nil {
			deadline := now.Add(s.defaultTTL)
			expiresAt = &deadline
		}
		updates := map[string]any{
			"quoted_price": input.QuotedPrice,
			"status":       enums.QuoteStatusSent,
			"sent_at":      now,
			"expires_at":   *expiresAt,
		}
		if input.SellerNotes != nil {
			updates["seller_notes"] = *input.SellerNotes
		}
		if txErr = repo.UpdateFields(ctx, found.ID, updates); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "update quote")
		}
		if _, txErr = repo.SupersedeActive(ctx, found.ConversationID, found.ID); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "supersede active quotes")
		}

		found.QuotedPrice = &input.QuotedPrice
		found.Status = enums.QuoteStatusSent
		found.SentAt = &now
		found.ExpiresAt = expiresAt
		if input.SellerNotes != nil {
			found.SellerNotes = input.SellerNotes
		}
		quote = found
		return s.emit(ctx, tx, enums.EventQuoteSent, quote, input.SellerID)
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// Accept runs the full gate: lock, ownership, status, expiry, attached
// design approval, then the transition plus cart merge in one commit.
func (s *service) Accept(ctx context.Context, quoteID, buyerID uuid.UUID) (*models.Quote, error) {
	var quote *models.Quote
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, txErr := repo.FindByIDForUpdate(ctx, quoteID)
		if txErr != nil {
			if stdErrors.Is(txErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "load quote")
		}
		if found.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the quote's buyer may accept")
		}
		if !found.Status.IsAcceptable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "quote is not open for acceptance").
				WithDetails(map[string]string{"status": found.Status.String()})
		}
		now := s.now()
		if found.IsExpiredAt(now) {
			if txErr = repo.UpdateFields(ctx, found.ID, map[string]any{"status": enums.QuoteStatusExpired}); txErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "expire quote")
			}
			return pkgerrors.New(pkgerrors.CodeExpired, "quote has expired")
		}

		var design *models.DesignApproval
		if s.designs != nil {
			design, txErr = s.designs.LatestForQuote(ctx, tx, found.ID)
			if txErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "load attached design approval")
			}
		}
		if design != nil &&
			design.Status != enums.DesignApprovalStatusApproved &&
			design.Status != enums.DesignApprovalStatusResubmitted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "attached design approval is not approved").
				WithDetails(map[string]string{"design_status": design.Status.String()})
		}

		if txErr = repo.UpdateFields(ctx, found.ID, map[string]any{
			"status":      enums.QuoteStatusAccepted,
			"accepted_at": now,
		}); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "accept quote")
		}
		found.Status = enums.QuoteStatusAccepted
		found.AcceptedAt = &now

		if found.ProductVariantID != nil {
			if found.QuotedPrice == nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "quote has no price to carry into the cart")
			}
			if s.cart == nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "cart merger not configured")
			}
			line := models.CartItem{
				ProductVariantID: *found.ProductVariantID,
				QuoteID:          &found.ID,
				Quantity:         found.Quantity,
				UnitPrice:        *found.QuotedPrice,
			}
			if design != nil && design.Status == enums.DesignApprovalStatusApproved {
				line.DesignApprovalID = &design.ID
			}
			if _, txErr = s.cart.MergeLine(ctx, tx, found.BuyerID, line); txErr != nil {
				return txErr
			}
		}

		quote = found
		return s.emit(ctx, tx, enums.EventQuoteAccepted, quote, buyerID)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"quote_id": quote.ID.String(),
		"buyer_id": buyerID.String(),
	}), "quote accepted")
	return quote, nil
}

// Reject takes no status precondition: a buyer backing out of an
// already-expired or superseded quote is harmless, rejecting twice is a
// no-op worth of an error only when the quote was already accepted.
func (s *service) Reject(ctx context.Context, quoteID, buyerID uuid.UUID, reason string) (*models.Quote, error) {
	var quote *models.Quote
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, txErr := repo.FindByIDForUpdate(ctx, quoteID)
		if txErr != nil {
			if stdErrors.Is(txErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "load quote")
		}
		if found.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the quote's buyer may reject")
		}
		if found.Status == enums.QuoteStatusAccepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "accepted quotes cannot be rejected")
		}
		if txErr = repo.UpdateFields(ctx, found.ID, map[string]any{"status": enums.QuoteStatusRejected}); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "reject quote")
		}
		found.Status = enums.QuoteStatusRejected
		quote = found
		if s.events == nil {
			return nil
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuoteRejected,
			AggregateType: enums.AggregateQuote,
			AggregateID:   found.ID,
			Actor:         &outbox.ActorRef{UserID: buyerID, Role: enums.UserRoleBuyer.String()},
			Data: map[string]any{
				"conversation_id": found.ConversationID.String(),
				"seller_id":       found.SellerID.String(),
				"reason":          reason,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *service) ExpireOld(ctx context.Context) (int64, error) {
	count, err := s.repo.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire quotes")
	}
	if count > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"expired": count}), "quotes expired")
	}
	return count, nil
}

func (s *service) Get(ctx context.Context, quoteID, actorID uuid.UUID) (*models.Quote, error) {
	quote, err := s.repo.FindByID(ctx, quoteID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	if quote.BuyerID != actorID && quote.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quote belongs to another conversation")
	}
	return quote, nil
}

func (s *service) ActiveForConversation(ctx context.Context, conversationID uuid.UUID) (*models.Quote, error) {
	quote, err := s.repo.FindActiveForConversation(ctx, conversationID, s.now())
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active quote")
	}
	return quote, nil
}

func (s *service) ActiveForItem(ctx context.Context, buyerID uuid.UUID, ref catalog.ItemRef) (*models.Quote, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	quote, err := s.repo.FindActiveForItem(ctx, buyerID, itemQueryForRef(ref), s.now())
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active quote")
	}
	return quote, nil
}

// LatestForItem returns the newest non-superseded quote for the item
// regardless of status, or nil when the buyer never had one.
func (s *service) LatestForItem(ctx context.Context, buyerID uuid.UUID, ref catalog.ItemRef) (*models.Quote, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	quote, err := s.repo.FindLatestForItem(ctx, buyerID, itemQueryForRef(ref))
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest quote")
	}
	return quote, nil
}

func itemQueryForRef(ref catalog.ItemRef) ItemQuery {
	query := ItemQuery{VariantID: ref.VariantID, PackageID: ref.PackageID}
	switch ref.Kind {
	case enums.ItemKindProduct:
		itemID := ref.ItemID
		query.ProductID = &itemID
	case enums.ItemKindService:
		itemID := ref.ItemID
		query.ServiceID = &itemID
	}
	return query
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, quote *models.Quote, actorID uuid.UUID) error {
	if s.events == nil {
		return nil
	}
	role := enums.UserRoleBuyer
	if actorID == quote.SellerID {
		role = enums.UserRoleSeller
	}
	data := map[string]any{
		"conversation_id": quote.ConversationID.String(),
		"buyer_id":        quote.BuyerID.String(),
		"seller_id":       quote.SellerID.String(),
		"status":          quote.Status.String(),
	}
	if quote.QuotedPrice != nil {
		data["quoted_price"] = quote.QuotedPrice.String()
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateQuote,
		AggregateID:   quote.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: role.String()},
		Data:          data,
		Version:       1,
	})
}

func validateCreate(input CreateInput) error {
	if input.ConversationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "conversation id is required")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if input.Status != enums.QuoteStatusRequested && input.Status != enums.QuoteStatusSent {
		return pkgerrors.New(pkgerrors.CodeValidation, "quotes open as requested or sent")
	}
	if (input.ProductID == nil) == (input.ServiceID == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of product id or service id is required")
	}
	if input.ProductID == nil && input.ProductVariantID != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant scoping requires a product")
	}
	if input.ServiceID == nil && input.ServicePackageID != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "package scoping requires a service")
	}
	if input.Status == enums.QuoteStatusSent && input.QuotedPrice == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sent quotes require a price")
	}
	if input.QuotedPrice != nil && !input.QuotedPrice.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quoted price must be positive")
	}
	return nil
}
