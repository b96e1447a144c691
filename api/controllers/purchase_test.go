package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/api/middleware"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/purchase"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
)

type testPurchaseService struct {
	validateFn func(ctx context.Context, query purchase.Query) (*purchase.Result, error)
}

func (s *testPurchaseService) Validate(ctx context.Context, query purchase.Query) (*purchase.Result, error) {
	return s.validateFn(ctx, query)
}

func TestPurchaseRequirementsBuildsRef(t *testing.T) {
	userID := uuid.New()
	itemID := uuid.New()
	variantID := uuid.New()

	svc := &testPurchaseService{
		validateFn: func(ctx context.Context, query purchase.Query) (*purchase.Result, error) {
			if query.BuyerID != userID {
				t.Fatalf("unexpected buyer %s", query.BuyerID)
			}
			if query.Ref.Kind != enums.ItemKindProduct {
				t.Fatalf("unexpected kind %s", query.Ref.Kind)
			}
			if query.Ref.ItemID != itemID {
				t.Fatalf("unexpected item %s", query.Ref.ItemID)
			}
			if query.Ref.VariantID == nil || *query.Ref.VariantID != variantID {
				t.Fatal("expected variant id on ref")
			}
			return &purchase.Result{CanPurchase: true}, nil
		},
	}

	target := "/api/v1/purchase-requirements?kind=product&item_id=" + itemID.String() + "&variant_id=" + variantID.String()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))

	resp := httptest.NewRecorder()
	PurchaseRequirements(svc, testControllerLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data purchase.Result `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.CanPurchase {
		t.Fatal("expected can_purchase true")
	}
}

func TestPurchaseRequirementsRejectsUnknownKind(t *testing.T) {
	svc := &testPurchaseService{
		validateFn: func(ctx context.Context, query purchase.Query) (*purchase.Result, error) {
			t.Fatal("validator should not be called")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/purchase-requirements?kind=bundle&item_id="+uuid.NewString(), nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	PurchaseRequirements(svc, testControllerLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPurchaseRequirementsRequiresItemID(t *testing.T) {
	svc := &testPurchaseService{
		validateFn: func(ctx context.Context, query purchase.Query) (*purchase.Result, error) {
			t.Fatal("validator should not be called")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/purchase-requirements?kind=product", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	PurchaseRequirements(svc, testControllerLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
