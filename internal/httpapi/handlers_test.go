package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/John09278606492/pos-inventory-system-sub000/internal/cart"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/domain"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/pricing"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/service"
	"github.com/John09278606492/pos-inventory-system-sub000/internal/store/memory"
)

// newTestAPI builds a full API with a seeded in-memory store, real AuthManager
// and real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cart.NewManager(), nil, service.Settings{
		Tax:                pricing.TaxConfig{Name: "Sales Tax", RatePercent: 10},
		CreditTerms:        []domain.CreditTerm{{ID: "net30", Name: "Net 30", Days: 30, RatePercent: 5}},
		FallbackMarkupRate: 2,
	}, nil)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*", "terminal-1")
}

// doJSON issues a request against the full handler chain and decodes the
// response body into a generic map.
func doJSON(t *testing.T, api *API, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.NewDecoder(rec.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, decoded
}

func loginAs(t *testing.T, api *API, username, password string) string {
	t.Helper()

	code, body := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: username,
		Password: password,
	})
	if code != http.StatusOK {
		t.Fatalf("login as %s: status %d (%v)", username, code, body)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("expected access token for %s, got %v", username, body)
	}
	return token
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	code, body := doJSON(t, api, http.MethodGet, "/healthz", "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body)
	}
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	code, _ := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: "admin",
		Password: "wrongpassword",
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestProductsRequireBearerToken(t *testing.T) {
	api := newTestAPI(t)

	code, _ := doJSON(t, api, http.MethodGet, "/api/v1/products", "", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
}

func TestCreateProductForbiddenForCashier(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	code, _ := doJSON(t, api, http.MethodPost, "/api/v1/products", token, domain.ProductCreateRequest{
		SKU:        "SKU-NEW-01",
		Name:       "New Product",
		PriceCents: 100,
	})
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", code)
	}
}

func TestStockRouteForbiddenForCashier(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	code, _ := doJSON(t, api, http.MethodPut, "/api/v1/products/prod-noodles/stock", token, domain.StockSetRequest{Stock: 10})
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier on stock route, got %d", code)
	}
}

func TestAdminCreatesProductAndSetsStock(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "admin", "admin123")

	code, body := doJSON(t, api, http.MethodPost, "/api/v1/products", token, domain.ProductCreateRequest{
		SKU:          "sku-tea-01",
		Name:         "Tea Box",
		Category:     "beverage",
		Unit:         "pcs",
		PriceCents:        1200,
		CostCents:         800,
		InitialStock:      30,
		MinStockThreshold: 5,
	})
	if code != http.StatusCreated {
		t.Fatalf("create product: status %d (%v)", code, body)
	}
	product, _ := body["product"].(map[string]any)
	if product["sku"] != "SKU-TEA-01" {
		t.Fatalf("expected SKU uppercased, got %v", product["sku"])
	}
	if product["min_stock_threshold"] != float64(5) {
		t.Fatalf("expected min stock threshold 5, got %v", product["min_stock_threshold"])
	}

	productID, _ := product["id"].(string)
	code, body = doJSON(t, api, http.MethodPut, "/api/v1/products/"+productID+"/stock", token, domain.StockSetRequest{Stock: 12})
	if code != http.StatusOK {
		t.Fatalf("set stock: status %d (%v)", code, body)
	}
	updated, _ := body["product"].(map[string]any)
	if updated["stock"] != float64(12) {
		t.Fatalf("expected stock 12, got %v", updated["stock"])
	}
}

func TestCartCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	code, body := doJSON(t, api, http.MethodPost, "/api/v1/cart/lines", token, domain.CartLineRequest{ProductID: "prod-noodles"})
	if code != http.StatusOK {
		t.Fatalf("add line: status %d (%v)", code, body)
	}

	code, body = doJSON(t, api, http.MethodPut, "/api/v1/cart/lines", token, domain.CartQuantityRequest{ProductID: "prod-noodles", Qty: 2})
	if code != http.StatusOK {
		t.Fatalf("set qty: status %d (%v)", code, body)
	}
	quote, _ := body["quote"].(map[string]any)
	if quote["subtotal_cents"] != float64(700) {
		t.Fatalf("expected subtotal 700, got %v", quote["subtotal_cents"])
	}

	code, body = doJSON(t, api, http.MethodPost, "/api/v1/checkout", token, domain.CheckoutRequest{
		PaymentMethod:     domain.PayCash,
		CashTenderedCents: 1000,
	})
	if code != http.StatusCreated {
		t.Fatalf("checkout: status %d (%v)", code, body)
	}
	sale, _ := body["sale"].(map[string]any)
	// 700 subtotal + 10% exclusive tax.
	if sale["total_cents"] != float64(770) {
		t.Fatalf("expected total 770, got %v", sale["total_cents"])
	}
	if sale["change_cents"] != float64(230) {
		t.Fatalf("expected change 230, got %v", sale["change_cents"])
	}
	if sale["cashier_username"] != "cashier" {
		t.Fatalf("expected cashier actor on sale, got %v", sale["cashier_username"])
	}

	code, body = doJSON(t, api, http.MethodGet, "/api/v1/cart", token, nil)
	if code != http.StatusOK {
		t.Fatalf("get cart: status %d", code)
	}
	if lines, _ := body["lines"].([]any); len(lines) != 0 {
		t.Fatalf("expected cart cleared after checkout, got %v", lines)
	}
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	code, _ := doJSON(t, api, http.MethodPost, "/api/v1/checkout", token, domain.CheckoutRequest{
		PaymentMethod:     domain.PayCash,
		CashTenderedCents: 1000,
	})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %d", code)
	}
}

func TestHoldAndResumeEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	code, body := doJSON(t, api, http.MethodPost, "/api/v1/cart/lines", token, domain.CartLineRequest{ProductID: "prod-bread"})
	if code != http.StatusOK {
		t.Fatalf("add line: status %d (%v)", code, body)
	}

	code, body = doJSON(t, api, http.MethodPost, "/api/v1/holds", token, domain.HoldCreateRequest{
		DurationMinutes: 15,
		Note:            "customer fetching wallet",
	})
	if code != http.StatusCreated {
		t.Fatalf("create hold: status %d (%v)", code, body)
	}
	hold, _ := body["hold"].(map[string]any)
	holdID, _ := hold["id"].(string)
	if holdID == "" {
		t.Fatalf("expected hold id, got %v", body)
	}

	code, body = doJSON(t, api, http.MethodGet, "/api/v1/holds", token, nil)
	if code != http.StatusOK {
		t.Fatalf("list holds: status %d", code)
	}
	if holds, _ := body["holds"].([]any); len(holds) != 1 {
		t.Fatalf("expected one hold, got %v", body["holds"])
	}

	code, body = doJSON(t, api, http.MethodPost, "/api/v1/holds/"+holdID+"/resume", token, domain.HoldResumeRequest{})
	if code != http.StatusOK {
		t.Fatalf("resume hold: status %d (%v)", code, body)
	}
	if lines, _ := body["lines"].([]any); len(lines) != 1 {
		t.Fatalf("expected one resumed line, got %v", body["lines"])
	}

	code, _ = doJSON(t, api, http.MethodPost, "/api/v1/holds/"+holdID+"/resume", token, domain.HoldResumeRequest{})
	if code != http.StatusConflict {
		t.Fatalf("expected 409 resuming into a non-empty cart, got %d", code)
	}

	code, _ = doJSON(t, api, http.MethodPost, "/api/v1/cart/clear", token, domain.CartClearRequest{})
	if code != http.StatusOK {
		t.Fatalf("clear cart: status %d", code)
	}
	code, _ = doJSON(t, api, http.MethodPost, "/api/v1/holds/"+holdID+"/resume", token, domain.HoldResumeRequest{})
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 resuming a consumed hold, got %d", code)
	}
}

func TestVoidUnknownHoldReturns404(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	code, _ := doJSON(t, api, http.MethodPost, "/api/v1/holds/hold-missing/void", token, nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown hold, got %d", code)
	}
}

func TestReturnsRouteForbiddenForCashier(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	code, _ := doJSON(t, api, http.MethodPost, "/api/v1/returns", token, domain.ReturnRequest{
		SaleID:       "sale-any",
		RefundMethod: domain.PayCash,
		Items:        []domain.ReturnItemRequest{{ProductID: "prod-noodles", Qty: 1}},
	})
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier on returns, got %d", code)
	}
}

func TestReturnFlowAfterCheckout(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAs(t, api, "admin", "admin123")

	code, body := doJSON(t, api, http.MethodPost, "/api/v1/cart/lines", admin, domain.CartLineRequest{ProductID: "prod-milk"})
	if code != http.StatusOK {
		t.Fatalf("add line: status %d (%v)", code, body)
	}
	code, body = doJSON(t, api, http.MethodPost, "/api/v1/checkout", admin, domain.CheckoutRequest{
		PaymentMethod:     domain.PayCash,
		CashTenderedCents: 10000,
	})
	if code != http.StatusCreated {
		t.Fatalf("checkout: status %d (%v)", code, body)
	}
	sale, _ := body["sale"].(map[string]any)
	saleID, _ := sale["id"].(string)

	code, body = doJSON(t, api, http.MethodPost, "/api/v1/returns", admin, domain.ReturnRequest{
		SaleID:       saleID,
		RefundMethod: domain.PayCash,
		Items:        []domain.ReturnItemRequest{{ProductID: "prod-milk", Qty: 1, Restock: true, Reason: "damaged carton"}},
	})
	if code != http.StatusCreated {
		t.Fatalf("return: status %d (%v)", code, body)
	}
	ret, _ := body["return"].(map[string]any)
	if ret["total_refund_cents"] != float64(1890) {
		t.Fatalf("expected refund 1890, got %v", ret["total_refund_cents"])
	}

	code, body = doJSON(t, api, http.MethodGet, "/api/v1/sales/"+saleID, admin, nil)
	if code != http.StatusOK {
		t.Fatalf("get sale: status %d (%v)", code, body)
	}
	if body["status"] != domain.SaleReturned {
		t.Fatalf("expected fully returned sale, got %v", body["status"])
	}
}

func TestCreditAdjustEndpoint(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAs(t, api, "admin", "admin123")

	code, body := doJSON(t, api, http.MethodPost, "/api/v1/customers/cust-ani/credit", admin, domain.CreditAdjustRequest{
		AmountCents:   500,
		Type:          domain.CreditAdd,
		Reason:        "goodwill",
		PaymentMethod: domain.PayCash,
	})
	if code != http.StatusCreated {
		t.Fatalf("adjust credit: status %d (%v)", code, body)
	}
	adjustment, _ := body["adjustment"].(map[string]any)
	if adjustment["new_balance_cents"] != float64(2500) {
		t.Fatalf("expected balance 2500, got %v", adjustment["new_balance_cents"])
	}

	code, body = doJSON(t, api, http.MethodGet, "/api/v1/customers/cust-ani/ledger", admin, nil)
	if code != http.StatusOK {
		t.Fatalf("ledger: status %d (%v)", code, body)
	}
	if ledger, _ := body["ledger"].([]any); len(ledger) != 1 {
		t.Fatalf("expected one ledger entry, got %v", body["ledger"])
	}
}

func TestUnknownSaleReturns404(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAs(t, api, "admin", "admin123")

	code, _ := doJSON(t, api, http.MethodGet, "/api/v1/sales/sale-missing", admin, nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown sale, got %d", code)
	}
}

func TestCreditTermsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	code, body := doJSON(t, api, http.MethodGet, "/api/v1/credit-terms", token, nil)
	if code != http.StatusOK {
		t.Fatalf("credit terms: status %d", code)
	}
	terms, _ := body["credit_terms"].([]any)
	if len(terms) != 1 {
		t.Fatalf("expected one credit term, got %v", body["credit_terms"])
	}
}

func TestCashierManagementEndpoints(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAs(t, api, "admin", "admin123")

	code, body := doJSON(t, api, http.MethodPost, "/api/v1/users/cashiers", admin, domain.CashierCreateRequest{
		Username: "newcashier",
		Password: "secret123",
	})
	if code != http.StatusCreated {
		t.Fatalf("create cashier: status %d (%v)", code, body)
	}

	code, body = doJSON(t, api, http.MethodGet, "/api/v1/users/cashiers", admin, nil)
	if code != http.StatusOK {
		t.Fatalf("list cashiers: status %d", code)
	}
	if cashiers, _ := body["cashiers"].([]any); len(cashiers) != 2 {
		t.Fatalf("expected two cashiers, got %v", body["cashiers"])
	}
}
