package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"unipos/backend/internal/domain"
	"unipos/backend/internal/store"
)

func TestOrderConsumesStockAtomically(t *testing.T) {
	databaseURL := os.Getenv("UNIPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set UNIPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	ingredientID := fmt.Sprintf("ing-order-it-%d", stamp)
	productID := fmt.Sprintf("prod-order-it-%d", stamp)
	recipeLineID := fmt.Sprintf("rl-order-it-%d", stamp)
	userID := fmt.Sprintf("user-order-it-%d", stamp)
	customer := fmt.Sprintf("order-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM order_lines WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE customer_name = $1`, customer)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM recipe_lines WHERE id = $1`, recipeLineID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM ingredients WHERE id = $1`, ingredientID)
		_, _ = s.db.ExecContext(ctx, `
			DELETE FROM cash_movements WHERE cash_register_id IN
				(SELECT id FROM cash_registers WHERE user_id = $1)
		`, userID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cash_registers WHERE user_id = $1`, userID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, is_active, created_at)
		VALUES ($1, $2, 'x', 'cashier', true, now())
	`, userID, userID); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients (id, item_name, batch_number, package_size, unit_of_measure,
			quantity, unit_cost_cents, expiration_at, is_active, created_at)
		VALUES ($1, 'Pao IT', '', '', 'un', 10, 500, null, true, now())
	`, ingredientID); err != nil {
		t.Fatalf("insert ingredient: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, item_name, image_url, price_cents, category, is_active, created_at)
		VALUES ($1, 'Burger IT', '', 25000, 'food', true, now())
	`, productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO recipe_lines (id, product_id, ingredient_id, quantity)
		VALUES ($1, $2, $3, 2)
	`, recipeLineID, productID, ingredientID); err != nil {
		t.Fatalf("insert recipe line: %v", err)
	}

	session, err := s.OpenCashRegister(ctx, userID, 10000)
	if err != nil {
		t.Fatalf("open cash register: %v", err)
	}

	sale, err := s.CreateOrder(ctx, domain.OrderCreate{
		CashRegisterID: session.ID,
		CustomerName:   customer,
		Items:          []domain.OrderItem{{ProductID: productID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	var quantity int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT quantity FROM ingredients WHERE id = $1
	`, ingredientID).Scan(&quantity); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if quantity != 4 {
		t.Fatalf("expected stock 4 after order, got %d", quantity)
	}

	// Four units remain; a three-burger order needs six and must leave the
	// ingredient row and the sales tables untouched.
	_, err = s.CreateOrder(ctx, domain.OrderCreate{
		CashRegisterID: session.ID,
		Items:          []domain.OrderItem{{ProductID: productID, Quantity: 3}},
	})
	var insufficient *store.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Required != 6 || insufficient.Available != 4 {
		t.Fatalf("unexpected error detail: %+v", insufficient)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT quantity FROM ingredients WHERE id = $1
	`, ingredientID).Scan(&quantity); err != nil {
		t.Fatalf("query stock after failure: %v", err)
	}
	if quantity != 4 {
		t.Fatalf("failed order must not touch stock, got %d", quantity)
	}

	lines, err := s.ListSaleLines(ctx, sale.ID)
	if err != nil {
		t.Fatalf("list lines: %v", err)
	}
	if len(lines) != 1 || lines[0].Status != domain.OrderStatusPending {
		t.Fatalf("unexpected order lines: %+v", lines)
	}
}
