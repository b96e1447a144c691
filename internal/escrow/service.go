package escrow

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/money"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/outbox"
)

// Service holds seller funds in escrow, runs the return/refund workflow
// and keeps the ledger append-only: every refund and commission reversal
// is a new negative entry, never an edit of a prior one.
type Service interface {
	CreateOrderTransaction(ctx context.Context, orderID uuid.UUID) (*models.Transaction, error)
	CreateBookingTransaction(ctx context.Context, bookingID uuid.UUID) (*models.Transaction, error)
	Release(ctx context.Context, transactionID, actorID uuid.UUID) (*models.Transaction, error)
	Get(ctx context.Context, transactionID, actorID uuid.UUID) (*models.Transaction, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error)
	ListForBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Transaction, error)

	OpenReturnRequest(ctx context.Context, input OpenReturnInput) (*models.ReturnRequest, error)
	SellerDecision(ctx context.Context, input SellerDecisionInput) (*models.ReturnRequest, error)
	AdminResolve(ctx context.Context, input AdminResolveInput) (*models.ReturnRequest, error)
	ProcessRefund(ctx context.Context, returnRequestID, actorID uuid.UUID) (*models.ReturnRequest, error)
	Complete(ctx context.Context, returnRequestID, actorID uuid.UUID) (*models.ReturnRequest, error)
	GetReturnRequest(ctx context.Context, returnRequestID, actorID uuid.UUID) (*models.ReturnRequest, error)
	ListStaleReturns(ctx context.Context, olderThan time.Time) ([]models.ReturnRequest, error)
}

// OpenReturnInput opens a refund claim against exactly one order or booking.
type OpenReturnInput struct {
	BuyerID         uuid.UUID
	OrderID         *uuid.UUID
	BookingID       *uuid.UUID
	Reason          string
	RequestedAmount decimal.Decimal
}

// SellerDecisionInput records the seller's answer to an open return.
type SellerDecisionInput struct {
	ReturnRequestID uuid.UUID
	SellerID        uuid.UUID
	Approve         bool
	// ProposedAmount overrides the buyer's requested amount on approval.
	ProposedAmount *decimal.Decimal
	Notes          string
}

// AdminResolveInput is the platform's final word on a return; it may
// reverse a seller's decision either way.
type AdminResolveInput struct {
	ReturnRequestID uuid.UUID
	AdminID         uuid.UUID
	Approve         bool
	ApprovedAmount  *decimal.Decimal
	Notes           string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   Repository
	tx     txRunner
	events eventEmitter
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the escrow ledger and return workflow.
func NewService(repo Repository, tx txRunner, events eventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, stdErrors.New("escrow repository is required")
	}
	if tx == nil {
		return nil, stdErrors.New("transaction runner is required")
	}
	if logg == nil {
		return nil, stdErrors.New("logger is required")
	}
	return &service{repo: repo, tx: tx, events: events, logg: logg, now: time.Now}, nil
}

// CreateOrderTransaction holds the full charge (product amount plus
// shipping) in escrow. Commission applies to the product amount only.
func (s *service) CreateOrderTransaction(ctx context.Context, orderID uuid.UUID) (*models.Transaction, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	seller, err := s.repo.FindUser(ctx, order.SellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}

	amount := order.TotalAmount.Add(order.ShippingCost)
	commission := money.Commission(order.TotalAmount, seller.CommissionRate)
	txn := &models.Transaction{
		Type:             enums.TransactionTypeOrder,
		Status:           enums.TransactionStatusEscrow,
		OrderID:          &order.ID,
		BuyerID:          order.BuyerID,
		SellerID:         order.SellerID,
		Amount:           amount,
		CommissionRate:   seller.CommissionRate,
		CommissionAmount: commission,
		SellerPayout:     amount.Sub(commission).Round(2),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, txErr := s.repo.WithTx(tx).CreateTransaction(ctx, txn)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "create transaction")
		}
		txn = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id": txn.ID.String(),
		"order_id":       order.ID.String(),
		"amount":         txn.Amount.String(),
	}), "order funds held in escrow")
	return txn, nil
}

// CreateBookingTransaction holds the booking amount in escrow. Bookings
// carry no shipping so commission applies to the full amount.
func (s *service) CreateBookingTransaction(ctx context.Context, bookingID uuid.UUID) (*models.Transaction, error) {
	booking, err := s.repo.FindBooking(ctx, bookingID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	seller, err := s.repo.FindUser(ctx, booking.SellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}

	commission := money.Commission(booking.TotalAmount, seller.CommissionRate)
	txn := &models.Transaction{
		Type:             enums.TransactionTypeBooking,
		Status:           enums.TransactionStatusEscrow,
		BookingID:        &booking.ID,
		BuyerID:          booking.BuyerID,
		SellerID:         booking.SellerID,
		Amount:           booking.TotalAmount,
		CommissionRate:   seller.CommissionRate,
		CommissionAmount: commission,
		SellerPayout:     booking.TotalAmount.Sub(commission).Round(2),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, txErr := s.repo.WithTx(tx).CreateTransaction(ctx, txn)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "create transaction")
		}
		txn = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Release moves held funds to the seller. Only entries still in escrow
// can be released, and only while no open return exists for the sale.
func (s *service) Release(ctx context.Context, transactionID, actorID uuid.UUID) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, txErr := repo.FindTransactionForUpdate(ctx, transactionID)
		if txErr != nil {
			if stdErrors.Is(txErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "load transaction")
		}
		if found.Status != enums.TransactionStatusEscrow {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is not held in escrow").
				WithDetails(map[string]string{"status": found.Status.String()})
		}
		if txErr = s.checkNoOpenReturn(ctx, repo, found); txErr != nil {
			return txErr
		}
		if txErr = repo.UpdateTransactionFields(ctx, found.ID, map[string]any{
			"status": enums.TransactionStatusReleased,
		}); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "release transaction")
		}
		found.Status = enums.TransactionStatusReleased
		txn = found
		if s.events == nil {
			return nil
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionReleased,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   found.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: enums.UserRoleAdmin.String()},
			Data: map[string]any{
				"seller_id":     found.SellerID.String(),
				"buyer_id":      found.BuyerID.String(),
				"amount":        found.Amount.String(),
				"seller_payout": found.SellerPayout.String(),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id": txn.ID.String(),
		"seller_payout":  txn.SellerPayout.String(),
	}), "escrow released")
	return txn, nil
}

func (s *service) checkNoOpenReturn(ctx context.Context, repo Repository, txn *models.Transaction) error {
	var (
		open *models.ReturnRequest
		err  error
	)
	switch {
	case txn.OrderID != nil:
		open, err = repo.FindOpenReturnForOrder(ctx, *txn.OrderID)
	case txn.BookingID != nil:
		open, err = repo.FindOpenReturnForBooking(ctx, *txn.BookingID)
	default:
		return nil
	}
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open returns")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "an open return request blocks release").
		WithDetails(map[string]string{"return_request_id": open.ID.String()})
}

func (s *service) Get(ctx context.Context, transactionID, actorID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.repo.FindTransaction(ctx, transactionID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if txn.BuyerID != actorID && txn.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to another party")
	}
	return txn, nil
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	rows, err := s.repo.ListTransactionsForOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return rows, nil
}

func (s *service) ListForBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Transaction, error) {
	rows, err := s.repo.ListTransactionsForBooking(ctx, bookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return rows, nil
}

// OpenReturnRequest starts the refund workflow. One open return per
// order or booking; the requested amount may not exceed what was paid.
func (s *service) OpenReturnRequest(ctx context.Context, input OpenReturnInput) (*models.ReturnRequest, error) {
	if (input.OrderID == nil) == (input.BookingID == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of order id or booking id is required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a reason is required")
	}
	if !input.RequestedAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested refund amount must be positive")
	}

	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sellerID, paid, txErr := s.resolveSale(ctx, repo, input)
		if txErr != nil {
			return txErr
		}
		if input.RequestedAmount.GreaterThan(paid) {
			return pkgerrors.New(pkgerrors.CodeValidation, "requested refund exceeds the amount paid").
				WithDetails(map[string]string{"paid": paid.String()})
		}
		request = &models.ReturnRequest{
			OrderID:               input.OrderID,
			BookingID:             input.BookingID,
			BuyerID:               input.BuyerID,
			SellerID:              sellerID,
			Status:                enums.ReturnRequestStatusUnderReview,
			Reason:                input.Reason,
			RequestedRefundAmount: input.RequestedAmount.Round(2),
		}
		if request, txErr = repo.CreateReturnRequest(ctx, request); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "create return request")
		}
		return s.emitReturn(ctx, tx, enums.EventReturnOpened, request, input.BuyerID, enums.UserRoleBuyer)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"return_request_id": request.ID.String(),
		"requested_amount":  request.RequestedRefundAmount.String(),
	}), "return request opened")
	return request, nil
}

// resolveSale verifies ownership, locates the counterparty, checks for a
// duplicate open return and returns the amount originally paid.
func (s *service) resolveSale(ctx context.Context, repo Repository, input OpenReturnInput) (uuid.UUID, decimal.Decimal, error) {
	if input.OrderID != nil {
		order, err := repo.FindOrder(ctx, *input.OrderID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return uuid.Nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.BuyerID != input.BuyerID {
			return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}
		if order.Status == enums.OrderStatusCancelled {
			return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already cancelled")
		}
		if _, err = repo.FindOpenReturnForOrder(ctx, order.ID); err == nil {
			return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeStateConflict, "a return request is already open for this order")
		} else if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open returns")
		}
		return order.SellerID, order.TotalAmount.Add(order.ShippingCost), nil
	}

	booking, err := repo.FindBooking(ctx, *input.BookingID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return uuid.Nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking.BuyerID != input.BuyerID {
		return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeForbidden, "booking belongs to another buyer")
	}
	if booking.Status == enums.BookingStatusCancelled {
		return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeStateConflict, "booking is already cancelled")
	}
	if _, err = repo.FindOpenReturnForBooking(ctx, booking.ID); err == nil {
		return uuid.Nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeStateConflict, "a return request is already open for this booking")
	} else if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open returns")
	}
	return booking.SellerID, booking.TotalAmount, nil
}

// SellerDecision answers an under-review return. Approval fixes the
// approved amount; rejection requires notes so the buyer sees why.
func (s *service) SellerDecision(ctx context.Context, input SellerDecisionInput) (*models.ReturnRequest, error) {
	if !input.Approve && input.Notes == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection notes are required")
	}
	if input.ProposedAmount != nil && !input.ProposedAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proposed refund amount must be positive")
	}

	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, txErr := repo.FindReturnRequestForUpdate(ctx, input.ReturnRequestID)
		if txErr != nil {
			if stdErrors.Is(txErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "load return request")
		}
		if found.SellerID != input.SellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the sale's seller may decide")
		}
		if found.Status != enums.ReturnRequestStatusUnderReview {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return request is no longer under review").
				WithDetails(map[string]string{"status": found.Status.String()})
		}

		status := enums.ReturnRequestStatusSellerRejected
		updates := map[string]any{}
		if input.Approve {
			status = enums.ReturnRequestStatusSellerApproved
			proposed := found.RequestedRefundAmount
			if input.ProposedAmount != nil {
				if input.ProposedAmount.GreaterThan(found.RequestedRefundAmount) {
					return pkgerrors.New(pkgerrors.CodeValidation, "proposed refund exceeds the requested amount")
				}
				proposed = input.ProposedAmount.Round(2)
			}
			updates["seller_proposed_refund_amount"] = proposed
			updates["approved_refund_amount"] = proposed
			found.SellerProposedRefundAmount = &proposed
			found.ApprovedRefundAmount = &proposed
		}
		updates["status"] = status
		if input.Notes != "" {
			updates["seller_notes"] = input.Notes
			found.SellerNotes = &input.Notes
		}
		if txErr = repo.UpdateReturnRequestFields(ctx, found.ID, updates); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "record seller decision")
		}
		found.Status = status
		request = found
		return s.emitReturn(ctx, tx, enums.EventReturnSellerDecided, request, input.SellerID, enums.UserRoleSeller)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// AdminResolve is the platform's final decision. It may confirm or
// reverse the seller; a reversal is flagged for audit.
func (s *service) AdminResolve(ctx context.Context, input AdminResolveInput) (*models.ReturnRequest, error) {
	if input.ApprovedAmount != nil && !input.ApprovedAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approved refund amount must be positive")
	}

	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, txErr := repo.FindReturnRequestForUpdate(ctx, input.ReturnRequestID)
		if txErr != nil {
			if stdErrors.Is(txErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "load return request")
		}
		switch found.Status {
		case enums.ReturnRequestStatusUnderReview,
			enums.ReturnRequestStatusSellerApproved,
			enums.ReturnRequestStatusSellerRejected:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return request is already resolved").
				WithDetails(map[string]string{"status": found.Status.String()})
		}

		override := found.Status == enums.ReturnRequestStatusSellerApproved && !input.Approve ||
			found.Status == enums.ReturnRequestStatusSellerRejected && input.Approve

		status := enums.ReturnRequestStatusAdminRejected
		updates := map[string]any{}
		if input.Approve {
			status = enums.ReturnRequestStatusAdminApproved
			approved := found.RequestedRefundAmount
			if input.ApprovedAmount != nil {
				if input.ApprovedAmount.GreaterThan(found.RequestedRefundAmount) {
					return pkgerrors.New(pkgerrors.CodeValidation, "approved refund exceeds the requested amount")
				}
				approved = input.ApprovedAmount.Round(2)
			} else if found.ApprovedRefundAmount != nil {
				approved = *found.ApprovedRefundAmount
			}
			updates["approved_refund_amount"] = approved
			found.ApprovedRefundAmount = &approved
		}
		updates["status"] = status
		updates["admin_override"] = override
		if input.Notes != "" {
			updates["admin_notes"] = input.Notes
			found.AdminNotes = &input.Notes
		}
		if txErr = repo.UpdateReturnRequestFields(ctx, found.ID, updates); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "record admin decision")
		}
		found.Status = status
		found.AdminOverride = override
		request = found
		return s.emitReturn(ctx, tx, enums.EventReturnAdminResolved, request, input.AdminID, enums.UserRoleAdmin)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// ProcessRefund executes an approved return in one transaction: cancel
// the sale, flip held ledger entries to refunded, then append the
// negative refund entry and, when commission was charged, the negative
// commission reversal. For orders the reversal covers the product
// portion only; shipping refunds carry no commission to give back.
func (s *service) ProcessRefund(ctx context.Context, returnRequestID, actorID uuid.UUID) (*models.ReturnRequest, error) {
	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, txErr := repo.FindReturnRequestForUpdate(ctx, returnRequestID)
		if txErr != nil {
			if stdErrors.Is(txErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "load return request")
		}
		if !found.Status.Refundable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return request is not approved for refund").
				WithDetails(map[string]string{"status": found.Status.String()})
		}
		if found.ApprovedRefundAmount == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return request has no approved refund amount")
		}
		approved := *found.ApprovedRefundAmount

		var reversed decimal.Decimal
		if found.OrderID != nil {
			if reversed, txErr = s.refundOrder(ctx, repo, found, approved); txErr != nil {
				return txErr
			}
		} else {
			if reversed, txErr = s.refundBooking(ctx, repo, found, approved); txErr != nil {
				return txErr
			}
		}

		now := s.now()
		updates := map[string]any{
			"status":      enums.ReturnRequestStatusRefunded,
			"refunded_at": now,
		}
		if reversed.IsPositive() {
			updates["commission_reversed_amount"] = reversed
			found.CommissionReversedAmount = &reversed
		}
		if txErr = repo.UpdateReturnRequestFields(ctx, found.ID, updates); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "mark return refunded")
		}
		found.Status = enums.ReturnRequestStatusRefunded
		found.RefundedAt = &now
		request = found
		return s.emitReturn(ctx, tx, enums.EventReturnRefunded, request, actorID, enums.UserRoleAdmin)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"return_request_id": request.ID.String(),
		"approved_amount":   request.ApprovedRefundAmount.String(),
	}), "refund processed")
	return request, nil
}

// refundOrder splits the approved amount into a shipping portion and a
// product portion; only the product portion had commission withheld.
func (s *service) refundOrder(ctx context.Context, repo Repository, request *models.ReturnRequest, approved decimal.Decimal) (decimal.Decimal, error) {
	order, err := repo.FindOrder(ctx, *request.OrderID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	seller, err := repo.FindUser(ctx, order.SellerID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}

	if err = repo.UpdateOrderFields(ctx, order.ID, map[string]any{
		"status": enums.OrderStatusCancelled,
	}); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	if _, err = repo.MarkOrderTransactionsRefunded(ctx, order.ID); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark transactions refunded")
	}

	shippingPortion := decimal.Min(order.ShippingCost, approved)
	productPortion := approved.Sub(shippingPortion)

	note := "refund for return request " + request.ID.String()
	if _, err = repo.CreateTransaction(ctx, &models.Transaction{
		Type:           enums.TransactionTypeOrder,
		Status:         enums.TransactionStatusRefunded,
		OrderID:        &order.ID,
		BuyerID:        request.BuyerID,
		SellerID:       request.SellerID,
		Amount:         approved.Neg(),
		CommissionRate: seller.CommissionRate,
		Note:           &note,
	}); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund entry")
	}

	reversed := money.CommissionReversal(productPortion, seller.CommissionRate)
	if reversed.IsPositive() {
		reversalNote := "commission reversal for return request " + request.ID.String()
		if _, err = repo.CreateTransaction(ctx, &models.Transaction{
			Type:             enums.TransactionTypeOrder,
			Status:           enums.TransactionStatusRefunded,
			OrderID:          &order.ID,
			BuyerID:          request.BuyerID,
			SellerID:         request.SellerID,
			Amount:           reversed.Neg(),
			CommissionRate:   seller.CommissionRate,
			CommissionAmount: reversed.Neg(),
			Note:             &reversalNote,
		}); err != nil {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record commission reversal")
		}
	}
	return reversed, nil
}

// refundBooking reverses commission on the full approved amount since
// bookings have no shipping line.
func (s *service) refundBooking(ctx context.Context, repo Repository, request *models.ReturnRequest, approved decimal.Decimal) (decimal.Decimal, error) {
	booking, err := repo.FindBooking(ctx, *request.BookingID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	seller, err := repo.FindUser(ctx, booking.SellerID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}

	if err = repo.UpdateBookingFields(ctx, booking.ID, map[string]any{
		"status": enums.BookingStatusCancelled,
	}); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel booking")
	}
	if _, err = repo.MarkBookingTransactionsRefunded(ctx, booking.ID); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark transactions refunded")
	}

	note := "refund for return request " + request.ID.String()
	if _, err = repo.CreateTransaction(ctx, &models.Transaction{
		Type:           enums.TransactionTypeBooking,
		Status:         enums.TransactionStatusRefunded,
		BookingID:      &booking.ID,
		BuyerID:        request.BuyerID,
		SellerID:       request.SellerID,
		Amount:         approved.Neg(),
		CommissionRate: seller.CommissionRate,
		Note:           &note,
	}); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund entry")
	}

	reversed := money.CommissionReversal(approved, seller.CommissionRate)
	if reversed.IsPositive() {
		reversalNote := "commission reversal for return request " + request.ID.String()
		if _, err = repo.CreateTransaction(ctx, &models.Transaction{
			Type:             enums.TransactionTypeBooking,
			Status:           enums.TransactionStatusRefunded,
			BookingID:        &booking.ID,
			BuyerID:          request.BuyerID,
			SellerID:         request.SellerID,
			Amount:           reversed.Neg(),
			CommissionRate:   seller.CommissionRate,
			CommissionAmount: reversed.Neg(),
			Note:             &reversalNote,
		}); err != nil {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record commission reversal")
		}
	}
	return reversed, nil
}

// Complete closes out a refunded return once the money has moved.
func (s *service) Complete(ctx context.Context, returnRequestID, actorID uuid.UUID) (*models.ReturnRequest, error) {
	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, txErr := repo.FindReturnRequestForUpdate(ctx, returnRequestID)
		if txErr != nil {
			if stdErrors.Is(txErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "load return request")
		}
		if found.Status != enums.ReturnRequestStatusRefunded {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only refunded returns can be completed").
				WithDetails(map[string]string{"status": found.Status.String()})
		}
		if txErr = repo.UpdateReturnRequestFields(ctx, found.ID, map[string]any{
			"status": enums.ReturnRequestStatusCompleted,
		}); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "complete return request")
		}
		found.Status = enums.ReturnRequestStatusCompleted
		request = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) GetReturnRequest(ctx context.Context, returnRequestID, actorID uuid.UUID) (*models.ReturnRequest, error) {
	request, err := s.repo.FindReturnRequest(ctx, returnRequestID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
	}
	if request.BuyerID != actorID && request.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "return request belongs to another party")
	}
	return request, nil
}

func (s *service) ListStaleReturns(ctx context.Context, olderThan time.Time) ([]models.ReturnRequest, error) {
	rows, err := s.repo.ListStaleUnderReview(ctx, olderThan)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale returns")
	}
	return rows, nil
}

func (s *service) emitReturn(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, request *models.ReturnRequest, actorID uuid.UUID, role enums.UserRole) error {
	if s.events == nil {
		return nil
	}
	data := map[string]any{
		"buyer_id":         request.BuyerID.String(),
		"seller_id":        request.SellerID.String(),
		"status":           request.Status.String(),
		"requested_amount": request.RequestedRefundAmount.String(),
	}
	if request.OrderID != nil {
		data["order_id"] = request.OrderID.String()
	}
	if request.BookingID != nil {
		data["booking_id"] = request.BookingID.String()
	}
	if request.ApprovedRefundAmount != nil {
		data["approved_amount"] = request.ApprovedRefundAmount.String()
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateReturnRequest,
		AggregateID:   request.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: role.String()},
		Data:          data,
		Version:       1,
	})
}
