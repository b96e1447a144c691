package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

// Repository defines the persistence surface for the money ledger and its
// supporting rows. Orders, bookings and seller commission rates are read
// here because every refund touches them inside the ledger transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTransaction(ctx context.Context, txn *models.Transaction) (*models.Transaction, error)
	FindTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	UpdateTransactionFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListTransactionsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error)
	ListTransactionsForBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Transaction, error)
	// MarkOrderTransactionsRefunded flips every held entry for the order.
	MarkOrderTransactionsRefunded(ctx context.Context, orderID uuid.UUID) (int64, error)
	MarkBookingTransactionsRefunded(ctx context.Context, bookingID uuid.UUID) (int64, error)

	CreateReturnRequest(ctx context.Context, request *models.ReturnRequest) (*models.ReturnRequest, error)
	FindReturnRequest(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	FindReturnRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	UpdateReturnRequestFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindOpenReturnForOrder(ctx context.Context, orderID uuid.UUID) (*models.ReturnRequest, error)
	FindOpenReturnForBooking(ctx context.Context, bookingID uuid.UUID) (*models.ReturnRequest, error)
	ListStaleUnderReview(ctx context.Context, olderThan time.Time) ([]models.ReturnRequest, error)

	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrderFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	UpdateBookingFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an escrow repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) lockClause(query *gorm.DB) *gorm.DB {
	if query.Dialector.Name() == "postgres" {
		return query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.Status == "" {
		txn.Status = enums.TransactionStatusEscrow
	}
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *repository) FindTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.lockClause(r.db.WithContext(ctx)).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) UpdateTransactionFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListTransactionsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListTransactionsForBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) MarkOrderTransactionsRefunded(ctx context.Context, orderID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("order_id = ? AND status IN ?", orderID,
			[]enums.TransactionStatus{enums.TransactionStatusEscrow, enums.TransactionStatusReleased}).
		Update("status", enums.TransactionStatusRefunded)
	return result.RowsAffected, result.Error
}

func (r *repository) MarkBookingTransactionsRefunded(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("booking_id = ? AND status IN ?", bookingID,
			[]enums.TransactionStatus{enums.TransactionStatusEscrow, enums.TransactionStatusReleased}).
		Update("status", enums.TransactionStatusRefunded)
	return result.RowsAffected, result.Error
}

func (r *repository) CreateReturnRequest(ctx context.Context, request *models.ReturnRequest) (*models.ReturnRequest, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if request.Status == "" {
		request.Status = enums.ReturnRequestStatusUnderReview
	}
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) FindReturnRequest(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindReturnRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	if err := r.lockClause(r.db.WithContext(ctx)).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) UpdateReturnRequestFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

var openReturnStatuses = []enums.ReturnRequestStatus{
	enums.ReturnRequestStatusUnderReview,
	enums.ReturnRequestStatusSellerApproved,
	enums.ReturnRequestStatusAdminApproved,
}

func (r *repository) FindOpenReturnForOrder(ctx context.Context, orderID uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID, openReturnStatuses).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindOpenReturnForBooking(ctx context.Context, bookingID uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status IN ?", bookingID, openReturnStatuses).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListStaleUnderReview(ctx context.Context, olderThan time.Time) ([]models.ReturnRequest, error) {
	var rows []models.ReturnRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.ReturnRequestStatusUnderReview, olderThan).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrderFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) UpdateBookingFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
