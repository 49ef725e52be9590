package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"unipos/backend/internal/domain"
	"unipos/backend/internal/store"
	"unipos/backend/internal/store/memory"
)

type recordingNotifier struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (n *recordingNotifier) DataChanged(_ context.Context, topic string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topic)
	return n.err
}

func (n *recordingNotifier) seen(topic string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range n.topics {
		if t == topic {
			return true
		}
	}
	return false
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{ID: "u-admin", Username: "admin", Role: "admin"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{ID: "u-cashier", Username: "cashier", Role: "cashier"})
}

func newTestService(t *testing.T) (*Service, *memory.Store, *recordingNotifier) {
	t.Helper()
	repo := memory.New()
	notifier := &recordingNotifier{}
	svc := New(repo, notifier, nil)

	ctx := adminCtx()
	ingredient, err := svc.CreateIngredient(ctx, domain.Ingredient{ID: "ing-bun", ItemName: "Bun", Quantity: 10})
	if err != nil {
		t.Fatalf("seed ingredient: %v", err)
	}
	product, err := svc.CreateProduct(ctx, domain.Product{ID: "prod-burger", ItemName: "Burger", PriceCents: 25000})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := svc.AddRecipeLine(ctx, domain.RecipeLine{
		ProductID:    product.ID,
		IngredientID: ingredient.ID,
		Quantity:     2,
	}); err != nil {
		t.Fatalf("seed recipe: %v", err)
	}

	return svc, repo, notifier
}

func openRegister(t *testing.T, svc *Service, ctx context.Context) *domain.CashRegisterSession {
	t.Helper()
	session, err := svc.OpenCashRegister(ctx, 10000)
	if err != nil {
		t.Fatalf("open register: %v", err)
	}
	return session
}

func TestCatalogMutationsRequireAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateIngredient(cashierCtx(), domain.Ingredient{ItemName: "Salt", Quantity: 1})
	if err == nil || !strings.Contains(err.Error(), "admin role required") {
		t.Fatalf("cashier create ingredient err = %v, want admin role required", err)
	}

	_, err = svc.CreateProduct(context.Background(), domain.Product{ItemName: "X", PriceCents: 100})
	if err == nil || !strings.Contains(err.Error(), "admin role required") {
		t.Fatalf("anonymous create product err = %v, want admin role required", err)
	}

	if err := svc.DeleteIngredient(cashierCtx(), "ing-bun"); err == nil {
		t.Fatal("cashier delete ingredient must fail")
	}
}

func TestPlaceOrderRequiresOpenRegister(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := cashierCtx()

	_, err := svc.PlaceOrder(ctx, domain.OrderCreate{
		CashRegisterID: "missing",
		Items:          []domain.OrderItem{{ProductID: "prod-burger", Quantity: 1}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing register err = %v, want ErrNotFound", err)
	}

	session := openRegister(t, svc, ctx)
	if err := svc.CloseCashRegister(ctx, session.ID, 10000); err != nil {
		t.Fatalf("close register: %v", err)
	}

	_, err = svc.PlaceOrder(ctx, domain.OrderCreate{
		CashRegisterID: session.ID,
		Items:          []domain.OrderItem{{ProductID: "prod-burger", Quantity: 1}},
	})
	if err == nil || !strings.Contains(err.Error(), "is closed") {
		t.Fatalf("closed register err = %v, want closed-register rejection", err)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := cashierCtx()
	session := openRegister(t, svc, ctx)

	_, err := svc.PlaceOrder(ctx, domain.OrderCreate{CashRegisterID: session.ID})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("empty cart err = %v, want ErrInvalidInput", err)
	}

	_, err = svc.PlaceOrder(ctx, domain.OrderCreate{
		CashRegisterID: session.ID,
		Items:          []domain.OrderItem{{ProductID: "prod-burger", Quantity: 0}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("zero quantity err = %v, want ErrInvalidInput", err)
	}
}

func TestPlaceOrderBroadcastsOnSuccessOnly(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := cashierCtx()
	session := openRegister(t, svc, ctx)

	notifier.mu.Lock()
	notifier.topics = nil
	notifier.mu.Unlock()

	_, err := svc.PlaceOrder(ctx, domain.OrderCreate{
		CashRegisterID: session.ID,
		Items:          []domain.OrderItem{{ProductID: "prod-burger", Quantity: 20}},
	})
	var insufficient *store.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if notifier.seen("orders") {
		t.Fatal("failed order must not broadcast")
	}

	if _, err := svc.PlaceOrder(ctx, domain.OrderCreate{
		CashRegisterID: session.ID,
		Items:          []domain.OrderItem{{ProductID: "prod-burger", Quantity: 1}},
	}); err != nil {
		t.Fatalf("place order: %v", err)
	}
	if !notifier.seen("orders") || !notifier.seen("ingredients") {
		t.Fatalf("successful order must broadcast orders and ingredients, got %v", notifier.topics)
	}
}

func TestNotifierFailureDoesNotFailOrder(t *testing.T) {
	svc, _, notifier := newTestService(t)
	notifier.err = errors.New("redis down")
	ctx := cashierCtx()
	session := openRegister(t, svc, ctx)

	if _, err := svc.PlaceOrder(ctx, domain.OrderCreate{
		CashRegisterID: session.ID,
		Items:          []domain.OrderItem{{ProductID: "prod-burger", Quantity: 1}},
	}); err != nil {
		t.Fatalf("order must succeed despite notifier failure: %v", err)
	}
}

func TestPlaceOrderPaidValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := cashierCtx()
	session := openRegister(t, svc, ctx)

	_, err := svc.PlaceOrderPaid(ctx, domain.OrderCreatePaid{
		CashRegisterID: session.ID,
		Payment:        domain.PaymentSplit{},
		PaidCents:      25000,
		Items:          []domain.OrderItem{{ProductID: "prod-burger", Quantity: 1}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("empty payment err = %v, want ErrInvalidInput", err)
	}

	sale, err := svc.PlaceOrderPaid(ctx, domain.OrderCreatePaid{
		CashRegisterID: session.ID,
		Payment:        domain.PaymentSplit{CashCents: 10000, EMolaCents: 0, MPesaCents: 15000},
		PaidCents:      25000,
		ChangeCents:    0,
		Items:          []domain.OrderItem{{ProductID: "prod-burger", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place paid order: %v", err)
	}

	payments, err := svc.ListSalePayments(ctx, sale.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("payments = %d, want 2", len(payments))
	}
	total := int64(0)
	for _, record := range payments {
		total += record.AmountCents
	}
	if total != 25000 {
		t.Fatalf("payments total = %d, want 25000", total)
	}
}

func TestSettleOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := cashierCtx()
	session := openRegister(t, svc, ctx)

	sale, err := svc.PlaceOrder(ctx, domain.OrderCreate{
		CashRegisterID: session.ID,
		CustomerName:   "Carla",
		Items:          []domain.OrderItem{{ProductID: "prod-burger", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	err = svc.SettleOrder(ctx, domain.OrderSettle{
		SaleID:    sale.ID,
		Payment:   domain.PaymentSplit{CashCents: 30000},
		PaidCents: 30000, ChangeCents: 5000,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	lines, err := svc.ListSaleLines(ctx, sale.ID)
	if err != nil {
		t.Fatalf("list lines: %v", err)
	}
	if lines[0].Status != domain.OrderStatusPaid {
		t.Fatalf("line status = %q, want paid", lines[0].Status)
	}
}

func TestOpenCashRegisterUsesActorIdentity(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, err := svc.OpenCashRegister(context.Background(), 5000)
	if err == nil || !strings.Contains(err.Error(), "authenticated operator required") {
		t.Fatalf("anonymous open err = %v, want operator required", err)
	}

	session, err := svc.OpenCashRegister(cashierCtx(), 5000)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if session.UserID != "u-cashier" {
		t.Fatalf("session user = %q, want u-cashier", session.UserID)
	}

	if _, err := svc.OpenCashRegister(cashierCtx(), 5000); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second open err = %v, want ErrConflict", err)
	}

	stored, err := repo.GetCashRegister(context.Background(), session.ID)
	if err != nil || !stored.Open {
		t.Fatalf("stored session: %+v (%v)", stored, err)
	}
}

func TestUserManagement(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.CreateUser(cashierCtx(), "newbie", "secret1", "cashier"); err == nil {
		t.Fatal("cashier must not create users")
	}

	user, err := svc.CreateUser(adminCtx(), "Newbie", "secret1", "cashier")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Username != "newbie" {
		t.Fatalf("username = %q, want lowercased newbie", user.Username)
	}
	if user.Password != "" {
		t.Fatal("password hash must not be returned")
	}

	if _, err := svc.CreateUser(adminCtx(), "short", "12345", "cashier"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("short password err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.CreateUser(adminCtx(), "weird", "secret1", "superuser"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("bad role err = %v, want ErrInvalidInput", err)
	}

	// Self-service password change is allowed; changing someone else's
	// requires admin.
	selfCtx := WithActor(context.Background(), domain.Actor{ID: "x", Username: "newbie", Role: "cashier"})
	if err := svc.ChangePassword(selfCtx, "newbie", "secret2"); err != nil {
		t.Fatalf("self password change: %v", err)
	}
	if err := svc.ChangePassword(selfCtx, "someoneelse", "secret2"); err == nil {
		t.Fatal("cashier must not change another account's password")
	}
	if err := svc.ChangePassword(adminCtx(), "newbie", "secret3"); err != nil {
		t.Fatalf("admin password change: %v", err)
	}

	users, err := svc.ListUsers(adminCtx())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	for _, u := range users {
		if u.Password != "" {
			t.Fatalf("user %s leaks password hash", u.Username)
		}
	}
}
