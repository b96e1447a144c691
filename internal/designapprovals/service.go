package designapprovals

import (
	"context"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/catalog"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/conversations"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/outbox"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/types"
)

// Service is the design approval review machine: submit, approve, reject,
// request changes, resubmit, and copy an approved design to a new target.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.DesignApproval, error)
	Approve(ctx context.Context, id, sellerID uuid.UUID, notes *string) (*models.DesignApproval, error)
	Reject(ctx context.Context, id, sellerID uuid.UUID, notes string) (*models.DesignApproval, error)
	RequestChanges(ctx context.Context, id, sellerID uuid.UUID, notes string) (*models.DesignApproval, error)
	Resubmit(ctx context.Context, id, buyerID uuid.UUID, files types.DesignFiles) (*models.DesignApproval, error)
	CopyToTarget(ctx context.Context, input CopyInput) (*models.DesignApproval, error)
	ApprovedForItem(ctx context.Context, buyerID uuid.UUID, ref catalog.ItemRef) (*models.DesignApproval, error)
	LatestForItem(ctx context.Context, buyerID uuid.UUID, ref catalog.ItemRef) (*models.DesignApproval, error)
	Get(ctx context.Context, id, actorID uuid.UUID) (*models.DesignApproval, error)
}

// CreateInput submits design files for review inside a conversation.
type CreateInput struct {
	ConversationID uuid.UUID
	BuyerID        uuid.UUID
	Context        enums.DesignContext
	QuoteID        *uuid.UUID
	ProductID      *uuid.UUID
	ServiceID      *uuid.UUID
	VariantID      *uuid.UUID
	PackageID      *uuid.UUID
	DesignFiles    types.DesignFiles
}

// CopyInput reuses an approved design for a different variant or package.
type CopyInput struct {
	SourceID        uuid.UUID
	BuyerID         uuid.UUID
	TargetVariantID *uuid.UUID
	TargetPackageID *uuid.UUID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// QuoteReader loads the quote a quote-context approval is linked to.
// Implemented by internal/quotes; takes the transaction explicitly so the
// approve path stays atomic.
type QuoteReader interface {
	FindQuote(ctx context.Context, tx *gorm.DB, quoteID uuid.UUID) (*models.Quote, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo          Repository
	conversations conversations.Repository
	catalog       catalog.Repository
	quotes        QuoteReader
	tx            txRunner
	events        eventEmitter
	logg          *logger.Logger
	now           func() time.Time
}

// NewService wires the design approval engine.
func NewService(
	repo Repository,
	convs conversations.Repository,
	cat catalog.Repository,
	quotes QuoteReader,
	tx txRunner,
	events eventEmitter,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, stdErrors.New("design approval repository is required")
	}
	if convs == nil {
		return nil, stdErrors.New("conversation repository is required")
	}
	if cat == nil {
		return nil, stdErrors.New("catalog repository is required")
	}
	if tx == nil {
		return nil, stdErrors.New("transaction runner is required")
	}
	if logg == nil {
		return nil, stdErrors.New("logger is required")
	}
	return &service{
		repo:          repo,
		conversations: convs,
		catalog:       cat,
		quotes:        quotes,
		tx:            tx,
		events:        events,
		logg:          logg,
		now:           time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.DesignApproval, error) {
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
	if conversation.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the conversation's buyer may submit designs")
	}

	approval := &models.DesignApproval{
		ConversationID: conversation.ID,
		BuyerID:        conversation.BuyerID,
		SellerID:       conversation.SellerID,
		Context:        input.Context,
		QuoteID:        input.QuoteID,
		ProductID:      input.ProductID,
		ServiceID:      input.ServiceID,
		VariantID:      input.VariantID,
		PackageID:      input.PackageID,
		DesignFiles:    input.DesignFiles,
		Status:         enums.DesignApprovalStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if input.Context == enums.DesignContextQuote {
			quote, txErr := s.findQuote(ctx, tx, *input.QuoteID)
			if txErr != nil {
				return txErr
			}
			if quote.ConversationID != conversation.ID {
				return pkgerrors.New(pkgerrors.CodeValidation, "quote belongs to a different conversation")
			}
		}
		repo := s.repo.WithTx(tx)
		// A replacement upload retires the stalled changes_requested one.
		if _, txErr := repo.SupersedeChangesRequested(ctx, conversation.ID); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "supersede stalled approvals")
		}
		created, txErr := repo.Create(ctx, approval)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "create design approval")
		}
		approval = created
		return s.emit(ctx, tx, enums.EventDesignSubmitted, approval, approval.BuyerID, enums.UserRoleBuyer, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"design_approval_id": approval.ID.String(),
		"conversation_id":    approval.ConversationID.String(),
		"context":            approval.Context.String(),
	}), "design approval submitted")
	return approval, nil
}

func (s *service) Approve(ctx context.Context, id, sellerID uuid.UUID, notes *string) (*models.DesignApproval, error) {
	var approval *models.DesignApproval
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		found, txErr := s.lockOwned(ctx, tx, id, sellerID, roleSeller)
		if txErr != nil {
			return txErr
		}
		if found.Status == enums.DesignApprovalStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "design is already approved")
		}
		if !found.Status.AwaitingReview() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "design is not awaiting review").
				WithDetails(map[string]string{"status": found.Status.String()})
		}
		if found.QuoteID != nil {
			quote, qErr := s.findQuote(ctx, tx, *found.QuoteID)
			if qErr != nil {
				return qErr
			}
			if quote.Status != enums.QuoteStatusAccepted {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "linked quote is not accepted").
					WithDetails(map[string]string{"quote_status": quote.Status.String()})
			}
		}

		now := s.now()
		updates := map[string]any{
			"status":      enums.DesignApprovalStatusApproved,
			"approved_at": now,
		}
		if notes != nil {
			updates["seller_notes"] = *notes
		}
		if txErr = s.repo.WithTx(tx).UpdateFields(ctx, found.ID, updates); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "approve design")
		}
		found.Status = enums.DesignApprovalStatusApproved
		found.ApprovedAt = &now
		if notes != nil {
			found.SellerNotes = notes
		}
		approval = found
		return s.emit(ctx, tx, enums.EventDesignApproved, approval, sellerID, enums.UserRoleSeller, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"design_approval_id": approval.ID.String(),
	}), "design approved")
	return approval, nil
}

func (s *service) Reject(ctx context.Context, id, sellerID uuid.UUID, notes string) (*models.DesignApproval, error) {
	return s.sellerDecision(ctx, id, sellerID, notes, enums.DesignApprovalStatusRejected, enums.EventDesignRejected)
}

func (s *service) RequestChanges(ctx context.Context, id, sellerID uuid.UUID, notes string) (*models.DesignApproval, error) {
	return s.sellerDecision(ctx, id, sellerID, notes, enums.DesignApprovalStatusChangesRequested, enums.EventDesignChangesAsked)
}

func (s *service) sellerDecision(
	ctx context.Context,
	id, sellerID uuid.UUID,
	notes string,
	target enums.DesignApprovalStatus,
	eventType enums.OutboxEventType,
) (*models.DesignApproval, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller notes are required")
	}

	var approval *models.DesignApproval
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		found, txErr := s.lockOwned(ctx, tx, id, sellerID, roleSeller)
		if txErr != nil {
			return txErr
		}
		if !found.Status.AwaitingReview() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "design is not awaiting review").
				WithDetails(map[string]string{"status": found.Status.String()})
		}
		if txErr = s.repo.WithTx(tx).UpdateFields(ctx, found.ID, map[string]any{
			"status":       target,
			"seller_notes": notes,
		}); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "record seller decision")
		}
		found.Status = target
		found.SellerNotes = &notes
		approval = found
		return s.emit(ctx, tx, eventType, approval, sellerID, enums.UserRoleSeller, nil)
	})
	if err != nil {
		return nil, err
	}
	return approval, nil
}

func (s *service) Resubmit(ctx context.Context, id, buyerID uuid.UUID, files types.DesignFiles) (*models.DesignApproval, error) {
	if err := files.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid design files")
	}

	var approval *models.DesignApproval
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		found, txErr := s.lockOwned(ctx, tx, id, buyerID, roleBuyer)
		if txErr != nil {
			return txErr
		}
		if found.Status != enums.DesignApprovalStatusChangesRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only changes_requested designs can be resubmitted").
				WithDetails(map[string]string{"status": found.Status.String()})
		}
		if txErr = s.repo.WithTx(tx).UpdateFields(ctx, found.ID, map[string]any{
			"status":       enums.DesignApprovalStatusResubmitted,
			"design_files": files,
		}); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "resubmit design")
		}
		found.Status = enums.DesignApprovalStatusResubmitted
		found.DesignFiles = files
		approval = found
		return s.emit(ctx, tx, enums.EventDesignResubmitted, approval, buyerID, enums.UserRoleBuyer, nil)
	})
	if err != nil {
		return nil, err
	}
	return approval, nil
}

// CopyToTarget reuses an approved design for another variant or package of
// the same seller. Approved designs are never mutated in place: the copy
// gets a brand-new conversation and approval record, and repeating the call
// returns the existing copy instead of a duplicate.
func (s *service) CopyToTarget(ctx context.Context, input CopyInput) (*models.DesignApproval, error) {
	if (input.TargetVariantID == nil) == (input.TargetPackageID == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of target variant or target package is required")
	}

	source, err := s.repo.FindByID(ctx, input.SourceID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "design approval not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load design approval")
	}
	if source.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the design's buyer may copy it")
	}
	if source.Status != enums.DesignApprovalStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only approved designs can be copied").
			WithDetails(map[string]string{"status": source.Status.String()})
	}

	target, err := s.resolveCopyTarget(ctx, source, input)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindApprovedProductContext(ctx, input.BuyerID, target.query)
	if err == nil {
		return existing, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing approval")
	}

	now := s.now()
	var approval *models.DesignApproval
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		conversation, txErr := s.conversations.WithTx(tx).Create(ctx, &models.Conversation{
			BuyerID:   source.BuyerID,
			SellerID:  source.SellerID,
			ProductID: target.query.ProductID,
			ServiceID: target.query.ServiceID,
		})
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "create conversation")
		}
		created, txErr := s.repo.WithTx(tx).Create(ctx, &models.DesignApproval{
			ConversationID: conversation.ID,
			BuyerID:        source.BuyerID,
			SellerID:       source.SellerID,
			Context:        enums.DesignContextProduct,
			ProductID:      target.query.ProductID,
			ServiceID:      target.query.ServiceID,
			VariantID:      target.query.VariantID,
			PackageID:      target.query.PackageID,
			DesignFiles:    source.DesignFiles,
			Status:         enums.DesignApprovalStatusApproved,
			SellerNotes:    source.SellerNotes,
			ApprovedAt:     &now,
		})
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "create design approval copy")
		}
		approval = created
		return s.emit(ctx, tx, enums.EventDesignApproved, approval, input.BuyerID, enums.UserRoleBuyer, map[string]any{
			"copied_from": source.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"design_approval_id": approval.ID.String(),
		"copied_from":        source.ID.String(),
	}), "design approval copied")
	return approval, nil
}

type copyTarget struct {
	query TargetQuery
}

func (s *service) resolveCopyTarget(ctx context.Context, source *models.DesignApproval, input CopyInput) (*copyTarget, error) {
	if input.TargetVariantID != nil {
		variant, err := s.catalog.FindVariant(ctx, *input.TargetVariantID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "target variant not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target variant")
		}
		product, err := s.catalog.FindProduct(ctx, variant.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target product")
		}
		if product.SellerID != source.SellerID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "target variant belongs to a different seller")
		}
		if source.ProductID != nil && *source.ProductID != product.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "target variant belongs to a different product")
		}
		return &copyTarget{query: TargetQuery{ProductID: &product.ID, VariantID: &variant.ID}}, nil
	}

	pkg, err := s.catalog.FindPackage(ctx, *input.TargetPackageID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "target package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target package")
	}
	listing, err := s.catalog.FindService(ctx, pkg.ServiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target service")
	}
	if listing.SellerID != source.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target package belongs to a different seller")
	}
	if source.ServiceID != nil && *source.ServiceID != listing.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target package belongs to a different service")
	}
	return &copyTarget{query: TargetQuery{ServiceID: &listing.ID, PackageID: &pkg.ID}}, nil
}

// ApprovedForItem is the catalog unlock check: quote-context approvals are
// excluded on purpose so they never authorize a direct add-to-cart.
func (s *service) ApprovedForItem(ctx context.Context, buyerID uuid.UUID, ref catalog.ItemRef) (*models.DesignApproval, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	approval, err := s.repo.FindApprovedProductContext(ctx, buyerID, targetQueryForRef(ref))
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load approved design")
	}
	return approval, nil
}

// LatestForItem returns the newest non-superseded product-context approval
// for the item regardless of status, or nil when none exists.
func (s *service) LatestForItem(ctx context.Context, buyerID uuid.UUID, ref catalog.ItemRef) (*models.DesignApproval, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	approval, err := s.repo.FindLatestProductContext(ctx, buyerID, targetQueryForRef(ref))
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest design")
	}
	return approval, nil
}

func (s *service) Get(ctx context.Context, id, actorID uuid.UUID) (*models.DesignApproval, error) {
	approval, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "design approval not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load design approval")
	}
	if approval.BuyerID != actorID && approval.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "design approval belongs to another conversation")
	}
	return approval, nil
}

type ownerRole int

const (
	roleBuyer ownerRole = iota
	roleSeller
)

func (s *service) lockOwned(ctx context.Context, tx *gorm.DB, id, actorID uuid.UUID, role ownerRole) (*models.DesignApproval, error) {
	found, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "design approval not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load design approval")
	}
	switch role {
	case roleSeller:
		if found.SellerID != actorID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned seller may review this design")
		}
	case roleBuyer:
		if found.BuyerID != actorID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the design's buyer may modify it")
		}
	}
	return found, nil
}

func (s *service) findQuote(ctx context.Context, tx *gorm.DB, quoteID uuid.UUID) (*models.Quote, error) {
	if s.quotes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "quote reader not configured")
	}
	quote, err := s.quotes.FindQuote(ctx, tx, quoteID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	return quote, nil
}

func (s *service) emit(
	ctx context.Context,
	tx *gorm.DB,
	eventType enums.OutboxEventType,
	approval *models.DesignApproval,
	actorID uuid.UUID,
	role enums.UserRole,
	extra map[string]any,
) error {
	if s.events == nil {
		return nil
	}
	data := map[string]any{
		"conversation_id": approval.ConversationID.String(),
		"buyer_id":        approval.BuyerID.String(),
		"seller_id":       approval.SellerID.String(),
		"context":         approval.Context.String(),
		"status":          approval.Status.String(),
	}
	for key, value := range extra {
		data[key] = value
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateDesignApproval,
		AggregateID:   approval.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: role.String()},
		Data:          data,
		Version:       1,
	})
}

func targetQueryForRef(ref catalog.ItemRef) TargetQuery {
	query := TargetQuery{VariantID: ref.VariantID, PackageID: ref.PackageID}
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

func validateCreate(input CreateInput) error {
	if input.ConversationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "conversation id is required")
	}
	if input.BuyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if !input.Context.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "context must be product or quote")
	}
	if err := input.DesignFiles.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid design files")
	}
	if input.Context == enums.DesignContextQuote && input.QuoteID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "quote-context approvals require a quote id")
	}
	if input.Context == enums.DesignContextProduct {
		if (input.ProductID == nil) == (input.ServiceID == nil) {
			return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of product id or service id is required")
		}
		if input.ProductID == nil && input.VariantID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant scoping requires a product")
		}
		if input.ServiceID == nil && input.PackageID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "package scoping requires a service")
		}
	}
	return nil
}
