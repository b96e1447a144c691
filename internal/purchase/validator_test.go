package purchase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/catalog"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

type fakeCatalog struct {
	products map[uuid.UUID]*models.Product
	services map[uuid.UUID]*models.ServiceListing
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[uuid.UUID]*models.Product{},
		services: map[uuid.UUID]*models.ServiceListing{},
	}
}

func (f *fakeCatalog) WithTx(_ *gorm.DB) catalog.Repository { return f }

func (f *fakeCatalog) FindProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if product, ok := f.products[id]; ok {
		return product, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalog) FindService(_ context.Context, id uuid.UUID) (*models.ServiceListing, error) {
	if service, ok := f.services[id]; ok {
		return service, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalog) FindVariant(_ context.Context, _ uuid.UUID) (*models.ProductVariant, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalog) FindPackage(_ context.Context, _ uuid.UUID) (*models.ServicePackage, error) {
	return nil, gorm.ErrRecordNotFound
}

type fakeQuoteFinder struct {
	quote  *models.Quote
	called bool
}

func (f *fakeQuoteFinder) LatestForItem(_ context.Context, _ uuid.UUID, _ catalog.ItemRef) (*models.Quote, error) {
	f.called = true
	return f.quote, nil
}

type fakeDesignFinder struct {
	approved *models.DesignApproval
	latest   *models.DesignApproval
}

func (f *fakeDesignFinder) ApprovedForItem(_ context.Context, _ uuid.UUID, _ catalog.ItemRef) (*models.DesignApproval, error) {
	return f.approved, nil
}

func (f *fakeDesignFinder) LatestForItem(_ context.Context, _ uuid.UUID, _ catalog.ItemRef) (*models.DesignApproval, error) {
	return f.latest, nil
}

type validatorFixture struct {
	catalog *fakeCatalog
	quotes  *fakeQuoteFinder
	designs *fakeDesignFinder
	service Service
	buyerID uuid.UUID
}

func newValidatorFixture(t *testing.T) *validatorFixture {
	t.Helper()

	cat := newFakeCatalog()
	quotes := &fakeQuoteFinder{}
	designs := &fakeDesignFinder{}
	svc, err := NewService(cat, quotes, designs)
	require.NoError(t, err)
	return &validatorFixture{
		catalog: cat,
		quotes:  quotes,
		designs: designs,
		service: svc,
		buyerID: uuid.New(),
	}
}

func (f *validatorFixture) addProduct(requiresQuote, requiresDesign bool) (uuid.UUID, uuid.UUID) {
	productID := uuid.New()
	variantID := uuid.New()
	f.catalog.products[productID] = &models.Product{
		ID:                     productID,
		SellerID:               uuid.New(),
		RequiresQuote:          requiresQuote,
		RequiresDesignApproval: requiresDesign,
		IsActive:               true,
	}
	return productID, variantID
}

func (f *validatorFixture) query(productID, variantID uuid.UUID) Query {
	return Query{
		BuyerID: f.buyerID,
		Ref: catalog.ItemRef{
			Kind:      enums.ItemKindProduct,
			ItemID:    productID,
			VariantID: &variantID,
		},
	}
}

func TestValidate_itemNotFound(t *testing.T) {
	f := newValidatorFixture(t)
	variantID := uuid.New()

	result, err := f.service.Validate(context.Background(), f.query(uuid.New(), variantID))
	require.NoError(t, err)
	assert.False(t, result.CanPurchase)
	assert.Equal(t, []Reason{ReasonItemNotFound}, result.BlockingReasons)
	require.Len(t, result.MissingRequirements, 1)
}

func TestValidate_inactiveItem(t *testing.T) {
	f := newValidatorFixture(t)
	productID, variantID := f.addProduct(false, false)
	f.catalog.products[productID].IsActive = false

	result, err := f.service.Validate(context.Background(), f.query(productID, variantID))
	require.NoError(t, err)
	assert.False(t, result.CanPurchase)
	assert.Equal(t, []Reason{ReasonItemNotFound}, result.BlockingReasons)
}

func TestValidate_ungatedItem(t *testing.T) {
	f := newValidatorFixture(t)
	productID, variantID := f.addProduct(false, false)

	result, err := f.service.Validate(context.Background(), f.query(productID, variantID))
	require.NoError(t, err)
	assert.True(t, result.CanPurchase)
	assert.Empty(t, result.BlockingReasons)
	assert.False(t, f.quotes.called)
}

func TestValidate_quoteReasonCodes(t *testing.T) {
	cases := []struct {
		name   string
		quote  *models.Quote
		reason Reason
	}{
		{name: "absent", quote: nil, reason: ReasonQuoteRequired},
		{name: "requested", quote: &models.Quote{Status: enums.QuoteStatusRequested}, reason: ReasonQuotePending},
		{name: "sent", quote: &models.Quote{Status: enums.QuoteStatusSent}, reason: ReasonQuotePending},
		{name: "rejected", quote: &models.Quote{Status: enums.QuoteStatusRejected}, reason: ReasonQuoteRejected},
		{name: "expired", quote: &models.Quote{Status: enums.QuoteStatusExpired}, reason: ReasonQuoteExpired},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			f := newValidatorFixture(t)
			productID, variantID := f.addProduct(true, false)
			f.quotes.quote = testCase.quote

			result, err := f.service.Validate(context.Background(), f.query(productID, variantID))
			require.NoError(t, err)
			assert.False(t, result.CanPurchase)
			assert.Equal(t, []Reason{testCase.reason}, result.BlockingReasons)
		})
	}
}

func TestValidate_sentQuotePastDeadlineCountsAsExpired(t *testing.T) {
	f := newValidatorFixture(t)
	productID, variantID := f.addProduct(true, false)
	past := time.Now().Add(-time.Hour)
	f.quotes.quote = &models.Quote{Status: enums.QuoteStatusSent, ExpiresAt: &past}

	result, err := f.service.Validate(context.Background(), f.query(productID, variantID))
	require.NoError(t, err)
	assert.False(t, result.CanPurchase)
	assert.Equal(t, []Reason{ReasonQuoteExpired}, result.BlockingReasons)
	require.NotNil(t, result.QuoteStatus)
	assert.Equal(t, enums.QuoteStatusExpired, *result.QuoteStatus)
}

func TestValidate_acceptedQuoteUnlocks(t *testing.T) {
	f := newValidatorFixture(t)
	productID, variantID := f.addProduct(true, false)
	f.quotes.quote = &models.Quote{Status: enums.QuoteStatusAccepted}

	result, err := f.service.Validate(context.Background(), f.query(productID, variantID))
	require.NoError(t, err)
	assert.True(t, result.CanPurchase)
	assert.True(t, result.RequiresQuote)
}

func TestValidate_designEscapeHatchBypassesQuote(t *testing.T) {
	f := newValidatorFixture(t)
	productID, variantID := f.addProduct(true, false)
	f.designs.approved = &models.DesignApproval{
		ID:     uuid.New(),
		Status: enums.DesignApprovalStatusApproved,
	}

	result, err := f.service.Validate(context.Background(), f.query(productID, variantID))
	require.NoError(t, err)
	assert.True(t, result.CanPurchase)
	assert.False(t, f.quotes.called, "approved design should bypass the quote lookup entirely")
}

func TestValidate_designReasonCodes(t *testing.T) {
	cases := []struct {
		name   string
		latest *models.DesignApproval
		reason Reason
	}{
		{name: "absent", latest: nil, reason: ReasonDesignRequired},
		{name: "pending", latest: &models.DesignApproval{Status: enums.DesignApprovalStatusPending}, reason: ReasonDesignPending},
		{name: "resubmitted", latest: &models.DesignApproval{Status: enums.DesignApprovalStatusResubmitted}, reason: ReasonDesignPending},
		{name: "rejected", latest: &models.DesignApproval{Status: enums.DesignApprovalStatusRejected}, reason: ReasonDesignRejected},
		{name: "changes requested", latest: &models.DesignApproval{Status: enums.DesignApprovalStatusChangesRequested}, reason: ReasonDesignChangesRequested},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			f := newValidatorFixture(t)
			productID, variantID := f.addProduct(false, true)
			f.designs.latest = testCase.latest

			result, err := f.service.Validate(context.Background(), f.query(productID, variantID))
			require.NoError(t, err)
			assert.False(t, result.CanPurchase)
			assert.Equal(t, []Reason{testCase.reason}, result.BlockingReasons)
		})
	}
}

func TestValidate_bothFlagsBothPathsChecked(t *testing.T) {
	f := newValidatorFixture(t)
	productID, variantID := f.addProduct(true, true)
	f.quotes.quote = &models.Quote{Status: enums.QuoteStatusAccepted}

	// An accepted quote satisfies the quote path, but the design
	// requirement is independent and still blocks a direct catalog add.
	result, err := f.service.Validate(context.Background(), f.query(productID, variantID))
	require.NoError(t, err)
	assert.False(t, result.CanPurchase)
	assert.Equal(t, []Reason{ReasonDesignRequired}, result.BlockingReasons)
}

func TestValidate_bothFlagsApprovedDesignUnlocksBoth(t *testing.T) {
	f := newValidatorFixture(t)
	productID, variantID := f.addProduct(true, true)
	f.designs.approved = &models.DesignApproval{
		ID:     uuid.New(),
		Status: enums.DesignApprovalStatusApproved,
	}

	result, err := f.service.Validate(context.Background(), f.query(productID, variantID))
	require.NoError(t, err)
	assert.True(t, result.CanPurchase)
	assert.False(t, f.quotes.called)
	require.NotNil(t, result.DesignStatus)
	assert.Equal(t, enums.DesignApprovalStatusApproved, *result.DesignStatus)
}
