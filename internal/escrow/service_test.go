package escrow

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/outbox"
)

func setupEscrowTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  display_name TEXT NOT NULL,
  role TEXT NOT NULL,
  commission_rate NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  total_amount NUMERIC NOT NULL,
  shipping_cost NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS bookings (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  service_id TEXT NOT NULL,
  package_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  total_amount NUMERIC NOT NULL,
  scheduled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS transactions (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'escrow',
  order_id TEXT,
  booking_id TEXT,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  commission_rate NUMERIC NOT NULL DEFAULT 0,
  commission_amount NUMERIC NOT NULL DEFAULT 0,
  seller_payout NUMERIC NOT NULL DEFAULT 0,
  note TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS return_requests (
  id TEXT PRIMARY KEY,
  order_id TEXT,
  booking_id TEXT,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'under_review',
  reason TEXT NOT NULL,
  requested_refund_amount NUMERIC NOT NULL,
  seller_proposed_refund_amount NUMERIC,
  approved_refund_amount NUMERIC,
  commission_reversed_amount NUMERIC,
  admin_override INTEGER NOT NULL DEFAULT 0,
  seller_notes TEXT,
  admin_notes TEXT,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	}
	for _, ddl := range statements {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	return conn
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "escrow-test", Output: io.Discard})
}

type escrowFixture struct {
	conn    *gorm.DB
	service Service
	buyerID uuid.UUID
	seller  uuid.UUID
	adminID uuid.UUID
}

func newEscrowFixture(t *testing.T, commissionRate string) *escrowFixture {
	t.Helper()

	conn := setupEscrowTestDB(t)
	svc, err := NewService(
		NewRepository(conn),
		db.FromGorm(conn),
		outbox.NewService(outbox.NewRepository(conn), nil),
		testLogger(),
	)
	require.NoError(t, err)

	buyerID := uuid.New()
	sellerID := uuid.New()
	require.NoError(t, conn.Create(&models.User{
		ID:          buyerID,
		Email:       "buyer@example.com",
		DisplayName: "Buyer",
		Role:        enums.UserRoleBuyer,
	}).Error)
	require.NoError(t, conn.Create(&models.User{
		ID:             sellerID,
		Email:          "seller@example.com",
		DisplayName:    "Seller",
		Role:           enums.UserRoleSeller,
		CommissionRate: decimal.RequireFromString(commissionRate),
	}).Error)

	return &escrowFixture{
		conn:    conn,
		service: svc,
		buyerID: buyerID,
		seller:  sellerID,
		adminID: uuid.New(),
	}
}

func (f *escrowFixture) insertOrder(t *testing.T, total, shipping string) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:           uuid.New(),
		BuyerID:      f.buyerID,
		SellerID:     f.seller,
		Status:       enums.OrderStatusPaid,
		TotalAmount:  decimal.RequireFromString(total),
		ShippingCost: decimal.RequireFromString(shipping),
	}
	require.NoError(t, f.conn.Create(order).Error)
	return order
}

func (f *escrowFixture) insertBooking(t *testing.T, total string) *models.Booking {
	t.Helper()

	booking := &models.Booking{
		ID:          uuid.New(),
		BuyerID:     f.buyerID,
		SellerID:    f.seller,
		ServiceID:   uuid.New(),
		Status:      enums.BookingStatusConfirmed,
		TotalAmount: decimal.RequireFromString(total),
	}
	require.NoError(t, f.conn.Create(booking).Error)
	return booking
}

func (f *escrowFixture) orderLedger(t *testing.T, orderID uuid.UUID) []models.Transaction {
	t.Helper()

	var rows []models.Transaction
	require.NoError(t, f.conn.Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&rows).Error)
	return rows
}

func (f *escrowFixture) outboxCount(t *testing.T) int64 {
	t.Helper()

	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	return count
}

func TestCreateOrderTransactionCommissionExcludesShipping(t *testing.T) {
	f := newEscrowFixture(t, "15")
	order := f.insertOrder(t, "100.00", "20.00")

	txn, err := f.service.CreateOrderTransaction(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.TransactionStatusEscrow, txn.Status)
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("120.00")), "amount %s", txn.Amount)
	assert.True(t, txn.CommissionAmount.Equal(decimal.RequireFromString("15.00")), "commission %s", txn.CommissionAmount)
	assert.True(t, txn.SellerPayout.Equal(decimal.RequireFromString("105.00")), "payout %s", txn.SellerPayout)
}

func TestCreateBookingTransactionCommissionOnFullAmount(t *testing.T) {
	f := newEscrowFixture(t, "10")
	booking := f.insertBooking(t, "80.00")

	txn, err := f.service.CreateBookingTransaction(context.Background(), booking.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.TransactionTypeBooking, txn.Type)
	assert.True(t, txn.CommissionAmount.Equal(decimal.RequireFromString("8.00")))
	assert.True(t, txn.SellerPayout.Equal(decimal.RequireFromString("72.00")))
}

func TestReleaseMovesEscrowToReleased(t *testing.T) {
	f := newEscrowFixture(t, "15")
	order := f.insertOrder(t, "100.00", "0.00")
	txn, err := f.service.CreateOrderTransaction(context.Background(), order.ID)
	require.NoError(t, err)

	released, err := f.service.Release(context.Background(), txn.ID, f.adminID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusReleased, released.Status)
	assert.Equal(t, int64(1), f.outboxCount(t))

	_, err = f.service.Release(context.Background(), txn.ID, f.adminID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestReleaseBlockedByOpenReturn(t *testing.T) {
	f := newEscrowFixture(t, "15")
	order := f.insertOrder(t, "100.00", "0.00")
	txn, err := f.service.CreateOrderTransaction(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         f.buyerID,
		OrderID:         &order.ID,
		Reason:          "damaged in transit",
		RequestedAmount: decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)

	_, err = f.service.Release(context.Background(), txn.ID, f.adminID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestOpenReturnRequestValidation(t *testing.T) {
	f := newEscrowFixture(t, "15")
	order := f.insertOrder(t, "100.00", "20.00")

	_, err := f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         f.buyerID,
		Reason:          "no target",
		RequestedAmount: decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         f.buyerID,
		OrderID:         &order.ID,
		Reason:          "too much",
		RequestedAmount: decimal.RequireFromString("500.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         uuid.New(),
		OrderID:         &order.ID,
		Reason:          "not mine",
		RequestedAmount: decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestOpenReturnRequestRejectsDuplicate(t *testing.T) {
	f := newEscrowFixture(t, "15")
	order := f.insertOrder(t, "100.00", "0.00")

	input := OpenReturnInput{
		BuyerID:         f.buyerID,
		OrderID:         &order.ID,
		Reason:          "wrong size",
		RequestedAmount: decimal.RequireFromString("100.00"),
	}
	request, err := f.service.OpenReturnRequest(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnRequestStatusUnderReview, request.Status)

	_, err = f.service.OpenReturnRequest(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestSellerDecisionApproveFixesAmount(t *testing.T) {
	f := newEscrowFixture(t, "15")
	order := f.insertOrder(t, "100.00", "20.00")
	request, err := f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         f.buyerID,
		OrderID:         &order.ID,
		Reason:          "defective",
		RequestedAmount: decimal.RequireFromString("120.00"),
	})
	require.NoError(t, err)

	proposed := decimal.RequireFromString("60.00")
	decided, err := f.service.SellerDecision(context.Background(), SellerDecisionInput{
		ReturnRequestID: request.ID,
		SellerID:        f.seller,
		Approve:         true,
		ProposedAmount:  &proposed,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnRequestStatusSellerApproved, decided.Status)
	require.NotNil(t, decided.ApprovedRefundAmount)
	assert.True(t, decided.ApprovedRefundAmount.Equal(proposed))

	// No second decision once the slot is taken.
	_, err = f.service.SellerDecision(context.Background(), SellerDecisionInput{
		ReturnRequestID: request.ID,
		SellerID:        f.seller,
		Approve:         false,
		Notes:           "changed my mind",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestSellerDecisionRejectRequiresNotes(t *testing.T) {
	f := newEscrowFixture(t, "15")
	order := f.insertOrder(t, "100.00", "0.00")
	request, err := f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         f.buyerID,
		OrderID:         &order.ID,
		Reason:          "defective",
		RequestedAmount: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	_, err = f.service.SellerDecision(context.Background(), SellerDecisionInput{
		ReturnRequestID: request.ID,
		SellerID:        f.seller,
		Approve:         false,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.service.SellerDecision(context.Background(), SellerDecisionInput{
		ReturnRequestID: request.ID,
		SellerID:        uuid.New(),
		Approve:         true,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestAdminResolveOverridesSellerRejection(t *testing.T) {
	f := newEscrowFixture(t, "15")
	order := f.insertOrder(t, "100.00", "0.00")
	request, err := f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         f.buyerID,
		OrderID:         &order.ID,
		Reason:          "defective",
		RequestedAmount: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	_, err = f.service.SellerDecision(context.Background(), SellerDecisionInput{
		ReturnRequestID: request.ID,
		SellerID:        f.seller,
		Approve:         false,
		Notes:           "looks fine to me",
	})
	require.NoError(t, err)

	resolved, err := f.service.AdminResolve(context.Background(), AdminResolveInput{
		ReturnRequestID: request.ID,
		AdminID:         f.adminID,
		Approve:         true,
		Notes:           "photos support the claim",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnRequestStatusAdminApproved, resolved.Status)
	assert.True(t, resolved.AdminOverride)
	require.NotNil(t, resolved.ApprovedRefundAmount)
	assert.True(t, resolved.ApprovedRefundAmount.Equal(decimal.RequireFromString("100.00")))
}

func TestProcessRefundOrderSplitsShippingFromCommission(t *testing.T) {
	f := newEscrowFixture(t, "15")
	order := f.insertOrder(t, "100.00", "20.00")
	_, err := f.service.CreateOrderTransaction(context.Background(), order.ID)
	require.NoError(t, err)

	request, err := f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         f.buyerID,
		OrderID:         &order.ID,
		Reason:          "defective",
		RequestedAmount: decimal.RequireFromString("120.00"),
	})
	require.NoError(t, err)
	_, err = f.service.SellerDecision(context.Background(), SellerDecisionInput{
		ReturnRequestID: request.ID,
		SellerID:        f.seller,
		Approve:         true,
	})
	require.NoError(t, err)

	refunded, err := f.service.ProcessRefund(context.Background(), request.ID, f.adminID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnRequestStatusRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundedAt)
	require.NotNil(t, refunded.CommissionReversedAmount)
	// Commission was withheld on the 100.00 product amount only, so the
	// reversal is 15.00 even though 120.00 goes back to the buyer.
	assert.True(t, refunded.CommissionReversedAmount.Equal(decimal.RequireFromString("15.00")),
		"reversed %s", refunded.CommissionReversedAmount)

	var reloadedOrder models.Order
	require.NoError(t, f.conn.Where("id = ?", order.ID).First(&reloadedOrder).Error)
	assert.Equal(t, enums.OrderStatusCancelled, reloadedOrder.Status)

	ledger := f.orderLedger(t, order.ID)
	require.Len(t, ledger, 3)
	for _, entry := range ledger {
		assert.Equal(t, enums.TransactionStatusRefunded, entry.Status)
	}

	amounts := map[string]bool{}
	for _, entry := range ledger {
		amounts[entry.Amount.String()] = true
	}
	assert.True(t, amounts["-120"] || amounts["-120.00"], "refund entry missing: %v", amounts)
	assert.True(t, amounts["-15"] || amounts["-15.00"], "commission reversal missing: %v", amounts)

	// Refund runs once.
	_, err = f.service.ProcessRefund(context.Background(), request.ID, f.adminID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestProcessRefundShippingOnlyReversesNoCommission(t *testing.T) {
	f := newEscrowFixture(t, "15")
	order := f.insertOrder(t, "100.00", "20.00")
	_, err := f.service.CreateOrderTransaction(context.Background(), order.ID)
	require.NoError(t, err)

	request, err := f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         f.buyerID,
		OrderID:         &order.ID,
		Reason:          "overcharged shipping",
		RequestedAmount: decimal.RequireFromString("20.00"),
	})
	require.NoError(t, err)
	_, err = f.service.SellerDecision(context.Background(), SellerDecisionInput{
		ReturnRequestID: request.ID,
		SellerID:        f.seller,
		Approve:         true,
	})
	require.NoError(t, err)

	refunded, err := f.service.ProcessRefund(context.Background(), request.ID, f.adminID)
	require.NoError(t, err)
	assert.Nil(t, refunded.CommissionReversedAmount)

	// Held entry plus the single refund entry; no reversal row.
	ledger := f.orderLedger(t, order.ID)
	require.Len(t, ledger, 2)
}

func TestProcessRefundBookingReversesFullAmount(t *testing.T) {
	f := newEscrowFixture(t, "10")
	booking := f.insertBooking(t, "80.00")
	_, err := f.service.CreateBookingTransaction(context.Background(), booking.ID)
	require.NoError(t, err)

	request, err := f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         f.buyerID,
		BookingID:       &booking.ID,
		Reason:          "no show",
		RequestedAmount: decimal.RequireFromString("80.00"),
	})
	require.NoError(t, err)
	_, err = f.service.SellerDecision(context.Background(), SellerDecisionInput{
		ReturnRequestID: request.ID,
		SellerID:        f.seller,
		Approve:         true,
	})
	require.NoError(t, err)

	refunded, err := f.service.ProcessRefund(context.Background(), request.ID, f.adminID)
	require.NoError(t, err)
	require.NotNil(t, refunded.CommissionReversedAmount)
	assert.True(t, refunded.CommissionReversedAmount.Equal(decimal.RequireFromString("8.00")))

	var reloaded models.Booking
	require.NoError(t, f.conn.Where("id = ?", booking.ID).First(&reloaded).Error)
	assert.Equal(t, enums.BookingStatusCancelled, reloaded.Status)
}

func TestProcessRefundRequiresApproval(t *testing.T) {
	f := newEscrowFixture(t, "15")
	order := f.insertOrder(t, "100.00", "0.00")
	request, err := f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         f.buyerID,
		OrderID:         &order.ID,
		Reason:          "defective",
		RequestedAmount: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	_, err = f.service.ProcessRefund(context.Background(), request.ID, f.adminID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestCompleteClosesRefundedReturn(t *testing.T) {
	f := newEscrowFixture(t, "0")
	order := f.insertOrder(t, "50.00", "0.00")
	_, err := f.service.CreateOrderTransaction(context.Background(), order.ID)
	require.NoError(t, err)

	request, err := f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         f.buyerID,
		OrderID:         &order.ID,
		Reason:          "defective",
		RequestedAmount: decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)

	// Not completable before the money moved.
	_, err = f.service.Complete(context.Background(), request.ID, f.adminID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	_, err = f.service.SellerDecision(context.Background(), SellerDecisionInput{
		ReturnRequestID: request.ID,
		SellerID:        f.seller,
		Approve:         true,
	})
	require.NoError(t, err)
	_, err = f.service.ProcessRefund(context.Background(), request.ID, f.adminID)
	require.NoError(t, err)

	completed, err := f.service.Complete(context.Background(), request.ID, f.adminID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnRequestStatusCompleted, completed.Status)
}

func TestListStaleReturns(t *testing.T) {
	f := newEscrowFixture(t, "15")
	order := f.insertOrder(t, "100.00", "0.00")
	request, err := f.service.OpenReturnRequest(context.Background(), OpenReturnInput{
		BuyerID:         f.buyerID,
		OrderID:         &order.ID,
		Reason:          "defective",
		RequestedAmount: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	stale, err := f.service.ListStaleReturns(context.Background(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, request.ID, stale[0].ID)

	stale, err = f.service.ListStaleReturns(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stale)
}
