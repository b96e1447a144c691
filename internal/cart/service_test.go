package cart

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/catalog"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/designapprovals"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/purchase"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/quotes"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	pkgerrors "github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/errors"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS cart_records (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_variant_id TEXT NOT NULL,
  quote_id TEXT,
  design_approval_id TEXT,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  requires_quote INTEGER NOT NULL DEFAULT 0,
  requires_design_approval INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sku TEXT NOT NULL,
  price NUMERIC NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS quotes (
  id TEXT PRIMARY KEY,
  conversation_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  product_id TEXT,
  service_id TEXT,
  product_variant_id TEXT,
  service_package_id TEXT,
  quantity INTEGER NOT NULL DEFAULT 1,
  quoted_price NUMERIC,
  specifications TEXT NOT NULL DEFAULT '',
  seller_notes TEXT,
  status TEXT NOT NULL DEFAULT 'requested',
  expires_at DATETIME,
  sent_at DATETIME,
  accepted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS design_approvals (
  id TEXT PRIMARY KEY,
  conversation_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  context TEXT NOT NULL,
  quote_id TEXT,
  product_id TEXT,
  service_id TEXT,
  variant_id TEXT,
  package_id TEXT,
  design_files TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  seller_notes TEXT,
  approved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, ddl := range statements {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	return conn
}

type allowAllValidator struct {
	result *purchase.Result
	called bool
}

func (v *allowAllValidator) Validate(_ context.Context, _ purchase.Query) (*purchase.Result, error) {
	v.called = true
	if v.result != nil {
		return v.result, nil
	}
	return &purchase.Result{CanPurchase: true}, nil
}

type cartFixture struct {
	conn      *gorm.DB
	service   Service
	validator *allowAllValidator
	buyerID   uuid.UUID
	variant   *models.ProductVariant
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()

	conn := setupCartTestDB(t)
	client := db.FromGorm(conn)
	logg := logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard})
	repo := NewRepository(conn)
	validator := &allowAllValidator{}

	svc, err := NewService(
		repo,
		NewMerger(repo),
		catalog.NewRepository(conn),
		validator,
		quotes.NewReader(quotes.NewRepository(conn)),
		designapprovals.NewRepository(conn),
		client,
		logg,
	)
	require.NoError(t, err)

	product := &models.Product{ID: uuid.New(), SellerID: uuid.New(), Title: "Sticker Sheet", IsActive: true}
	require.NoError(t, conn.Create(product).Error)
	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		Name:      "A5",
		SKU:       "STK-A5",
		Price:     decimal.RequireFromString("10.00"),
		IsActive:  true,
	}
	require.NoError(t, conn.Create(variant).Error)

	return &cartFixture{
		conn:      conn,
		service:   svc,
		validator: validator,
		buyerID:   uuid.New(),
		variant:   variant,
	}
}

func (f *cartFixture) insertAcceptedQuote(t *testing.T, price string) *models.Quote {
	t.Helper()

	quoted := decimal.RequireFromString(price)
	quote := &models.Quote{
		ID:               uuid.New(),
		ConversationID:   uuid.New(),
		BuyerID:          f.buyerID,
		SellerID:         uuid.New(),
		ProductVariantID: &f.variant.ID,
		Quantity:         1,
		QuotedPrice:      &quoted,
		Status:           enums.QuoteStatusAccepted,
	}
	require.NoError(t, f.conn.Create(quote).Error)
	return quote
}

func (f *cartFixture) lines(t *testing.T) []models.CartItem {
	t.Helper()
	var lines []models.CartItem
	require.NoError(t, f.conn.Order("created_at ASC").Find(&lines).Error)
	return lines
}

func TestAddItem_plainAddsMerge(t *testing.T) {
	f := newCartFixture(t)

	first, err := f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:   f.buyerID,
		VariantID: f.variant.ID,
		Quantity:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Quantity)
	assert.True(t, first.UnitPrice.Equal(decimal.RequireFromString("10.00")))

	second, err := f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:   f.buyerID,
		VariantID: f.variant.ID,
		Quantity:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)

	lines := f.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestAddItem_quoteContextSplitsLines(t *testing.T) {
	f := newCartFixture(t)
	quote := f.insertAcceptedQuote(t, "8.50")

	plain, err := f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:   f.buyerID,
		VariantID: f.variant.ID,
		Quantity:  1,
	})
	require.NoError(t, err)

	quoted, err := f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:   f.buyerID,
		VariantID: f.variant.ID,
		Quantity:  1,
		QuoteID:   &quote.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, plain.ID, quoted.ID)
	assert.True(t, plain.UnitPrice.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, quoted.UnitPrice.Equal(decimal.RequireFromString("8.50")))

	require.Len(t, f.lines(t), 2)
}

func TestAddItem_blockedByValidator(t *testing.T) {
	f := newCartFixture(t)
	f.validator.result = &purchase.Result{
		CanPurchase:         false,
		BlockingReasons:     []purchase.Reason{purchase.ReasonQuoteRequired},
		MissingRequirements: []string{purchase.ReasonQuoteRequired.Message()},
	}

	_, err := f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:   f.buyerID,
		VariantID: f.variant.ID,
		Quantity:  1,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Empty(t, f.lines(t))
}

func TestAddItem_quoteDrivenSkipsValidator(t *testing.T) {
	f := newCartFixture(t)
	f.validator.result = &purchase.Result{CanPurchase: false}
	quote := f.insertAcceptedQuote(t, "7.00")

	_, err := f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:   f.buyerID,
		VariantID: f.variant.ID,
		Quantity:  1,
		QuoteID:   &quote.ID,
	})
	require.NoError(t, err)
	assert.False(t, f.validator.called)
}

func TestAddItem_unacceptedQuoteRejected(t *testing.T) {
	f := newCartFixture(t)
	quote := f.insertAcceptedQuote(t, "7.00")
	require.NoError(t, f.conn.Model(&models.Quote{}).
		Where("id = ?", quote.ID).
		Update("status", enums.QuoteStatusSent).Error)

	_, err := f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:   f.buyerID,
		VariantID: f.variant.ID,
		Quantity:  1,
		QuoteID:   &quote.ID,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestAddItem_foreignQuoteForbidden(t *testing.T) {
	f := newCartFixture(t)
	quote := f.insertAcceptedQuote(t, "7.00")
	require.NoError(t, f.conn.Model(&models.Quote{}).
		Where("id = ?", quote.ID).
		Update("buyer_id", uuid.New()).Error)

	_, err := f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:   f.buyerID,
		VariantID: f.variant.ID,
		Quantity:  1,
		QuoteID:   &quote.ID,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestAddItem_designContextSplitsLines(t *testing.T) {
	f := newCartFixture(t)
	approval := &models.DesignApproval{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		BuyerID:        f.buyerID,
		SellerID:       uuid.New(),
		Context:        enums.DesignContextProduct,
		ProductID:      &f.variant.ProductID,
		VariantID:      &f.variant.ID,
		DesignFiles:    nil,
		Status:         enums.DesignApprovalStatusApproved,
	}
	require.NoError(t, f.conn.Create(approval).Error)

	plain, err := f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:   f.buyerID,
		VariantID: f.variant.ID,
		Quantity:  1,
	})
	require.NoError(t, err)

	withDesign, err := f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:          f.buyerID,
		VariantID:        f.variant.ID,
		Quantity:         1,
		DesignApprovalID: &approval.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, plain.ID, withDesign.ID)
	require.Len(t, f.lines(t), 2)
}

func TestAddItem_unapprovedDesignRejected(t *testing.T) {
	f := newCartFixture(t)
	approval := &models.DesignApproval{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		BuyerID:        f.buyerID,
		SellerID:       uuid.New(),
		Context:        enums.DesignContextProduct,
		VariantID:      &f.variant.ID,
		Status:         enums.DesignApprovalStatusPending,
	}
	require.NoError(t, f.conn.Create(approval).Error)

	_, err := f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:          f.buyerID,
		VariantID:        f.variant.ID,
		Quantity:         1,
		DesignApprovalID: &approval.ID,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestGetRemoveClear(t *testing.T) {
	f := newCartFixture(t)

	empty, err := f.service.Get(context.Background(), f.buyerID)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	line, err := f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:   f.buyerID,
		VariantID: f.variant.ID,
		Quantity:  1,
	})
	require.NoError(t, err)

	record, err := f.service.Get(context.Background(), f.buyerID)
	require.NoError(t, err)
	require.Len(t, record.Items, 1)

	// A stranger cannot remove someone else's line.
	err = f.service.RemoveItem(context.Background(), uuid.New(), line.ID)
	require.Error(t, err)

	require.NoError(t, f.service.RemoveItem(context.Background(), f.buyerID, line.ID))
	record, err = f.service.Get(context.Background(), f.buyerID)
	require.NoError(t, err)
	assert.Empty(t, record.Items)

	_, err = f.service.AddItem(context.Background(), AddItemInput{
		BuyerID:   f.buyerID,
		VariantID: f.variant.ID,
		Quantity:  2,
	})
	require.NoError(t, err)
	require.NoError(t, f.service.Clear(context.Background(), f.buyerID))
	record, err = f.service.Get(context.Background(), f.buyerID)
	require.NoError(t, err)
	assert.Empty(t, record.Items)
}
