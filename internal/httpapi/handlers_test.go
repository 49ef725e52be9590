package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"unipos/backend/internal/domain"
	"unipos/backend/internal/service"
	"unipos/backend/internal/store/memory"
)

type apiFixture struct {
	handler      http.Handler
	adminToken   string
	cashierToken string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	repo := memory.New()
	seedUser(t, repo, "u-admin", "admin", "admin-secret", "admin", true)
	seedUser(t, repo, "u-cashier", "caixa", "caixa-secret", "cashier", true)
	seedCatalog(t, repo)

	auth := NewAuthManager("handlers-test-secret", time.Hour, repo)
	svc := service.New(repo, nil, nil)
	api := New(svc, auth, nil, "http://127.0.0.1:3000")

	adminLogin, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin-secret"})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	cashierLogin, err := auth.Login(domain.LoginRequest{Username: "caixa", Password: "caixa-secret"})
	if err != nil {
		t.Fatalf("cashier login: %v", err)
	}

	return &apiFixture{
		handler:      api.Handler(),
		adminToken:   adminLogin.AccessToken,
		cashierToken: cashierLogin.AccessToken,
	}
}

func seedCatalog(t *testing.T, repo *memory.Store) {
	t.Helper()
	ctx := context.Background()
	if _, err := repo.CreateIngredient(ctx, domain.Ingredient{ID: "ing-bun", ItemName: "Bun", Quantity: 10, Active: true}); err != nil {
		t.Fatalf("seed ingredient: %v", err)
	}
	if _, err := repo.CreateProduct(ctx, domain.Product{ID: "prod-burger", ItemName: "Burger", PriceCents: 25000, Active: true}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := repo.AddRecipeLine(ctx, domain.RecipeLine{ProductID: "prod-burger", IngredientID: "ing-bun", Quantity: 2}); err != nil {
		t.Fatalf("seed recipe: %v", err)
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return envelope
}

func TestHealthNeedsNoAuth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !decodeEnvelope(t, rec).Success {
		t.Fatal("health must report success")
	}
}

func TestMissingBearerIsUnauthorized(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/ingredients", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Success {
		t.Fatal("failure envelope expected")
	}
}

func TestCashierCannotMutateCatalog(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/ingredients", f.cashierToken, domain.Ingredient{ItemName: "Salt", Quantity: 1})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/ingredients", f.adminToken, domain.Ingredient{ItemName: "Salt", Quantity: 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestLoginRateLimit(t *testing.T) {
	f := newAPIFixture(t)

	body := domain.LoginRequest{Username: "admin", Password: "wrong"}
	for i := 0; i < 5; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, rec.Code)
		}
	}

	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestUnknownJSONFieldIsRejected(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/cash-registers", f.cashierToken,
		map[string]any{"opening_balance_cents": 1000, "bogus": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestOrderFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/cash-registers", f.cashierToken,
		openRegisterRequest{OpeningBalanceCents: 10000})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open register status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var opened struct {
		Data struct {
			CashRegister domain.CashRegisterSession `json:"cash_register"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &opened); err != nil {
		t.Fatalf("decode open response: %v", err)
	}
	registerID := opened.Data.CashRegister.ID
	if registerID == "" {
		t.Fatal("register id missing from response")
	}

	rec = f.do(t, http.MethodPost, "/api/v1/orders", f.cashierToken, domain.OrderCreate{
		CashRegisterID: registerID,
		CustomerName:   "Amina",
		Items:          []domain.OrderItem{{ProductID: "prod-burger", Quantity: 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("place order status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var placed struct {
		Data struct {
			Sale domain.Sale `json:"sale"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &placed); err != nil {
		t.Fatalf("decode order response: %v", err)
	}

	// Two burgers consumed four buns out of ten. A twenty-burger order
	// needs forty and must come back as a stock failure, not a 500.
	rec = f.do(t, http.MethodPost, "/api/v1/orders", f.cashierToken, domain.OrderCreate{
		CashRegisterID: registerID,
		Items:          []domain.OrderItem{{ProductID: "prod-burger", Quantity: 20}},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("insufficient stock status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
	if decodeEnvelope(t, rec).Success {
		t.Fatal("failure envelope expected")
	}

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/settle", placed.Data.Sale.ID), f.cashierToken,
		domain.OrderSettle{Payment: domain.PaymentSplit{CashCents: 50000}, PaidCents: 50000})
	if rec.Code != http.StatusOK {
		t.Fatalf("settle status = %d (body %s)", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%s/lines", placed.Data.Sale.ID), f.cashierToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lines status = %d", rec.Code)
	}
	var lines struct {
		Data struct {
			Lines []domain.OrderLine `json:"lines"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &lines); err != nil {
		t.Fatalf("decode lines: %v", err)
	}
	if len(lines.Data.Lines) != 1 || lines.Data.Lines[0].Status != domain.OrderStatusPaid {
		t.Fatalf("unexpected lines after settle: %+v", lines.Data.Lines)
	}
}

func TestNotFoundMapsTo404(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/ingredients/nope", f.cashierToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://127.0.0.1:3000" {
		t.Fatalf("allow-origin = %q", got)
	}
}
