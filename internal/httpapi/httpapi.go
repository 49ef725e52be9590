package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"unipos/backend/internal/domain"
	"unipos/backend/internal/service"
	"unipos/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	logger        *zap.Logger
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, logger *zap.Logger, allowedOrigin string) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		auth:          auth,
		logger:        logger,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(a.withHeaders)
	r.Use(a.withLogging)

	r.Get("/healthz", a.handleHealth)
	r.Post("/api/v1/auth/login", a.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth("cashier", "admin"))

		r.Get("/api/v1/ingredients", a.handleListIngredients)
		r.Get("/api/v1/ingredients/cards", a.handleIngredientCards)
		r.Get("/api/v1/ingredients/{id}", a.handleGetIngredient)

		r.Get("/api/v1/products", a.handleListProducts)
		r.Get("/api/v1/products/{id}", a.handleGetProduct)
		r.Get("/api/v1/products/{id}/recipe", a.handleListRecipe)

		r.Get("/api/v1/orders", a.handleListOrders)
		r.Post("/api/v1/orders", a.handlePlaceOrder)
		r.Post("/api/v1/orders/paid", a.handlePlaceOrderPaid)
		r.Get("/api/v1/orders/receipt-number", a.handleReceiptNumber)
		r.Post("/api/v1/orders/{saleID}/settle", a.handleSettleOrder)
		r.Post("/api/v1/orders/{saleID}/cancel", a.handleCancelOrder)
		r.Get("/api/v1/orders/{saleID}/lines", a.handleListSaleLines)
		r.Get("/api/v1/orders/{saleID}/payments", a.handleListSalePayments)

		r.Get("/api/v1/customers", a.handleListCustomers)

		r.Get("/api/v1/cash-registers", a.handleListCashRegisters)
		r.Post("/api/v1/cash-registers", a.handleOpenCashRegister)
		r.Get("/api/v1/cash-registers/{id}", a.handleGetCashRegister)
		r.Post("/api/v1/cash-registers/{id}/close", a.handleCloseCashRegister)
		r.Get("/api/v1/cash-registers/{id}/movements", a.handleListCashMovements)
		r.Post("/api/v1/cash-registers/{id}/movements", a.handleAddCashMovement)

		r.Post("/api/v1/users/password", a.handleChangePassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth("admin"))

		r.Post("/api/v1/ingredients", a.handleCreateIngredient)
		r.Patch("/api/v1/ingredients/{id}", a.handleUpdateIngredient)
		r.Delete("/api/v1/ingredients/{id}", a.handleDeleteIngredient)

		r.Post("/api/v1/products", a.handleCreateProduct)
		r.Patch("/api/v1/products/{id}", a.handleUpdateProduct)
		r.Delete("/api/v1/products/{id}", a.handleDeleteProduct)

		r.Post("/api/v1/products/{id}/recipe", a.handleAddRecipeLine)
		r.Patch("/api/v1/recipe-lines/{id}", a.handleUpdateRecipeLine)
		r.Delete("/api/v1/recipe-lines/{id}", a.handleDeleteRecipeLine)

		r.Delete("/api/v1/orders/{saleID}", a.handleDeleteSale)

		r.Delete("/api/v1/cash-registers/{id}", a.handleDeleteCashRegister)
		r.Post("/api/v1/cash-movements/{id}/confirm", a.handleConfirmCashMovement)

		r.Get("/api/v1/users", a.handleListUsers)
		r.Post("/api/v1/users", a.handleCreateUser)
	})

	return r
}

func (a *API) withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *API) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(startedAt)))
	})
}

func (a *API) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				writeFailure(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			token := strings.TrimSpace(authorization[len("Bearer "):])
			actor, err := a.auth.ParseToken(token)
			if err != nil {
				writeFailure(w, http.StatusUnauthorized, err.Error())
				return
			}

			if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
				writeFailure(w, http.StatusForbidden, "forbidden role")
				return
			}

			next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
		})
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "ok", map[string]any{
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeFailure(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeFailure(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeSuccess(w, http.StatusOK, "login successful", resp)
}

func (a *API) handleListIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := a.service.ListIngredients(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"ingredients": ingredients})
}

func (a *API) handleIngredientCards(w http.ResponseWriter, r *http.Request) {
	cards, err := a.service.IngredientCards(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"cards": cards})
}

func (a *API) handleGetIngredient(w http.ResponseWriter, r *http.Request) {
	ingredient, err := a.service.GetIngredient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{
		"ingredient":        ingredient,
		"expiration_status": ingredient.ExpirationStatus(time.Now().UTC()),
	})
}

func (a *API) handleCreateIngredient(w http.ResponseWriter, r *http.Request) {
	var ingredient domain.Ingredient
	if err := decodeJSON(r, &ingredient); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := a.service.CreateIngredient(r.Context(), ingredient)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "ingredient created", map[string]any{"ingredient": created})
}

func (a *API) handleUpdateIngredient(w http.ResponseWriter, r *http.Request) {
	var patch domain.IngredientPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.service.UpdateIngredient(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ingredient updated", nil)
}

func (a *API) handleDeleteIngredient(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteIngredient(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ingredient deleted", nil)
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"products": products})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"product": product})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if err := decodeJSON(r, &product); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := a.service.CreateProduct(r.Context(), product)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "product created", map[string]any{"product": created})
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "product updated", nil)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "product deleted", nil)
}

func (a *API) handleListRecipe(w http.ResponseWriter, r *http.Request) {
	entries, err := a.service.ListRecipe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"recipe": entries})
}

func (a *API) handleAddRecipeLine(w http.ResponseWriter, r *http.Request) {
	var line domain.RecipeLine
	if err := decodeJSON(r, &line); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	line.ProductID = chi.URLParam(r, "id")

	created, err := a.service.AddRecipeLine(r.Context(), line)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "recipe line added", map[string]any{"recipe_line": created})
}

type recipeLineUpdateRequest struct {
	Quantity int64 `json:"quantity"`
}

func (a *API) handleUpdateRecipeLine(w http.ResponseWriter, r *http.Request) {
	var req recipeLineUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.service.UpdateRecipeLine(r.Context(), chi.URLParam(r, "id"), req.Quantity); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "recipe line updated", nil)
}

func (a *API) handleDeleteRecipeLine(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteRecipeLine(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "recipe line deleted", nil)
}

func (a *API) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.service.ListOrders(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"orders": orders})
}

func (a *API) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderCreate
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	sale, err := a.service.PlaceOrder(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "order placed", map[string]any{"sale": sale})
}

func (a *API) handlePlaceOrderPaid(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderCreatePaid
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	sale, err := a.service.PlaceOrderPaid(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "order placed and paid", map[string]any{"sale": sale})
}

func (a *API) handleSettleOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderSettle
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SaleID = chi.URLParam(r, "saleID")

	if err := a.service.SettleOrder(r.Context(), req); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "order settled", nil)
}

func (a *API) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := a.service.CancelOrder(r.Context(), chi.URLParam(r, "saleID")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "order cancelled", nil)
}

func (a *API) handleListSaleLines(w http.ResponseWriter, r *http.Request) {
	lines, err := a.service.ListSaleLines(r.Context(), chi.URLParam(r, "saleID"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"lines": lines})
}

func (a *API) handleListSalePayments(w http.ResponseWriter, r *http.Request) {
	payments, err := a.service.ListSalePayments(r.Context(), chi.URLParam(r, "saleID"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"payments": payments})
}

func (a *API) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := a.service.ListCustomers(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"customers": customers})
}

func (a *API) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteSale(r.Context(), chi.URLParam(r, "saleID")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "order deleted", nil)
}

func (a *API) handleReceiptNumber(w http.ResponseWriter, r *http.Request) {
	number, err := a.service.NextReceiptNumber(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"receipt_number": number})
}

func (a *API) handleListCashRegisters(w http.ResponseWriter, r *http.Request) {
	registers, err := a.service.ListCashRegisters(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"cash_registers": registers})
}

func (a *API) handleGetCashRegister(w http.ResponseWriter, r *http.Request) {
	session, err := a.service.GetCashRegister(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"cash_register": session})
}

type openRegisterRequest struct {
	OpeningBalanceCents int64 `json:"opening_balance_cents"`
}

func (a *API) handleOpenCashRegister(w http.ResponseWriter, r *http.Request) {
	var req openRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.service.OpenCashRegister(r.Context(), req.OpeningBalanceCents)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "cash register opened", map[string]any{"cash_register": session})
}

type closeRegisterRequest struct {
	ClosingBalanceCents int64 `json:"closing_balance_cents"`
}

func (a *API) handleCloseCashRegister(w http.ResponseWriter, r *http.Request) {
	var req closeRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.service.CloseCashRegister(r.Context(), chi.URLParam(r, "id"), req.ClosingBalanceCents); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "cash register closed", nil)
}

func (a *API) handleDeleteCashRegister(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteCashRegister(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "cash register deleted", nil)
}

func (a *API) handleListCashMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := a.service.ListCashMovements(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"movements": movements})
}

func (a *API) handleAddCashMovement(w http.ResponseWriter, r *http.Request) {
	var movement domain.CashMovement
	if err := decodeJSON(r, &movement); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	movement.CashRegisterID = chi.URLParam(r, "id")

	created, err := a.service.AddCashMovement(r.Context(), movement)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "cash movement recorded", map[string]any{"movement": created})
}

func (a *API) handleConfirmCashMovement(w http.ResponseWriter, r *http.Request) {
	if err := a.service.ConfirmCashMovement(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "cash movement confirmed", nil)
}

type userCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.service.CreateUser(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "user created", map[string]any{"user": user})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.service.ListUsers(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"users": users})
}

type passwordChangeRequest struct {
	Username    string `json:"username"`
	NewPassword string `json:"new_password"`
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.service.ChangePassword(r.Context(), req.Username, req.NewPassword); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "password updated", nil)
}

// writeServiceError maps service and store errors onto the response envelope.
// 4xx messages pass through to the client; 5xx messages are replaced with a
// generic one and the original error goes to the log.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	var insufficient *store.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		writeFailure(w, http.StatusUnprocessableEntity, insufficient.Error())
	case errors.Is(err, store.ErrNotFound):
		writeFailure(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeFailure(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidInput), errors.Is(err, store.ErrNoChanges):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case strings.Contains(strings.ToLower(err.Error()), "admin role required"),
		strings.Contains(strings.ToLower(err.Error()), "authenticated operator required"):
		writeFailure(w, http.StatusForbidden, err.Error())
	case strings.Contains(strings.ToLower(err.Error()), "is closed"):
		writeFailure(w, http.StatusUnprocessableEntity, err.Error())
	default:
		a.logger.Error("internal error", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

type responseEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, responseEnvelope{Success: true, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, responseEnvelope{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
