package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"unipos/backend/internal/domain"
	"unipos/backend/internal/store"
)

// The order placement protocol is one transaction end to end:
//
//	begin -> insert sale header -> per line item:
//	  resolve unit price -> resolve recipe -> lock+check+consume each
//	  ingredient -> insert order line
//	-> record payment rows (pay-now only) -> commit
//
// Any failure along the way rolls the whole transaction back; the deferred
// Rollback is a no-op after a successful Commit.

func (s *Store) CreateOrder(ctx context.Context, order domain.OrderCreate) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sale, err := insertSale(ctx, tx, order.CashRegisterID, order.CustomerName, order.CustomerPhone, 0, 0)
	if err != nil {
		return nil, err
	}

	if err := placeLineItems(ctx, tx, sale.ID, order.Items, domain.OrderStatusPending); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *Store) CreateOrderPaid(ctx context.Context, order domain.OrderCreatePaid) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sale, err := insertSale(ctx, tx, order.CashRegisterID, "", "", order.PaidCents, order.ChangeCents)
	if err != nil {
		return nil, err
	}

	for _, row := range order.Payment.Rows() {
		if err := recordPayment(ctx, tx, sale.ID, row.Method, row.AmountCents); err != nil {
			return nil, err
		}
	}

	if err := placeLineItems(ctx, tx, sale.ID, order.Items, domain.OrderStatusPaid); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *Store) SettleOrder(ctx context.Context, settle domain.OrderSettle) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE sales
		SET paid_cents = $2, change_cents = $3
		WHERE id = $1
	`, settle.SaleID, settle.PaidCents, settle.ChangeCents)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE order_lines
		SET status = $2
		WHERE sale_id = $1 AND status = $3
	`, settle.SaleID, domain.OrderStatusPaid, domain.OrderStatusPending)
	if err != nil {
		return err
	}

	for _, row := range settle.Payment.Rows() {
		if err := recordPayment(ctx, tx, settle.SaleID, row.Method, row.AmountCents); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) CancelOrder(ctx context.Context, saleID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE order_lines
		SET status = $2
		WHERE sale_id = $1 AND status = $3
	`, saleID, domain.OrderStatusCancelled, domain.OrderStatusPending)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func insertSale(ctx context.Context, tx *sql.Tx, cashRegisterID, customerName, customerPhone string, paidCents, changeCents int64) (*domain.Sale, error) {
	sale := domain.Sale{
		ID:             uuid.NewString(),
		CashRegisterID: cashRegisterID,
		CustomerName:   customerName,
		CustomerPhone:  customerPhone,
		PaidCents:      paidCents,
		ChangeCents:    changeCents,
		CreatedAt:      time.Now().UTC(),
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, cash_register_id, customer_name, customer_phone, paid_cents, change_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sale.ID, sale.CashRegisterID, sale.CustomerName, sale.CustomerPhone, sale.PaidCents, sale.ChangeCents, sale.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func placeLineItems(ctx context.Context, tx *sql.Tx, saleID string, items []domain.OrderItem, status string) error {
	for _, item := range items {
		price, err := unitPrice(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}

		requirements, err := recipeFor(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}

		for _, req := range requirements {
			needed := req.Quantity * item.Quantity
			if err := consumeIngredient(ctx, tx, req.IngredientID, req.DisplayName, needed); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (id, sale_id, product_id, quantity, unit_price_cents, status)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, uuid.NewString(), saleID, item.ProductID, item.Quantity, price, status)
		if err != nil {
			return err
		}
	}
	return nil
}

// unitPrice resolves the current product price inside the transaction. A
// missing product or a non-positive price rejects the order.
func unitPrice(ctx context.Context, tx *sql.Tx, productID string) (int64, error) {
	var price int64
	err := tx.QueryRowContext(ctx, `
		SELECT price_cents FROM products WHERE id = $1
	`, productID).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, store.ErrNotFound
	}
	return price, nil
}

// recipeFor loads the product's bill of materials. A product without recipe
// lines yields an empty slice, which skips stock verification for that item.
func recipeFor(ctx context.Context, tx *sql.Tx, productID string) ([]domain.RecipeEntry, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT rl.id, rl.ingredient_id,
			CONCAT_WS(' ', i.item_name, i.package_size, i.unit_of_measure),
			rl.quantity
		FROM recipe_lines rl
		JOIN ingredients i ON i.id = rl.ingredient_id
		WHERE rl.product_id = $1
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.RecipeEntry, 0, 8)
	for rows.Next() {
		var entry domain.RecipeEntry
		if err := rows.Scan(&entry.ID, &entry.IngredientID, &entry.DisplayName, &entry.Quantity); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// consumeIngredient reads the on-hand quantity under an exclusive row lock,
// then decrements it. Two orders contending for the same ingredient serialize
// here: the second blocks on the lock until the first commits or rolls back,
// so the quantity it reads is always committed state. Insufficiency aborts
// the caller's whole transaction; there is no partial deduction and no retry.
func consumeIngredient(ctx context.Context, tx *sql.Tx, ingredientID, displayName string, needed int64) error {
	var available int64
	err := tx.QueryRowContext(ctx, `
		SELECT quantity FROM ingredients WHERE id = $1 FOR UPDATE
	`, ingredientID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}

	if available < needed {
		return &store.InsufficientStockError{
			Ingredient: displayName,
			Required:   needed,
			Available:  available,
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE ingredients
		SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1
	`, ingredientID, needed)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("consume ingredient %s: row vanished under lock", ingredientID)
	}
	return nil
}

func recordPayment(ctx context.Context, tx *sql.Tx, saleID, method string, amountCents int64) error {
	if amountCents <= 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO payment_sales (id, sale_id, method, amount_cents, is_paid, created_at)
		VALUES ($1,$2,$3,$4,true,$5)
	`, uuid.NewString(), saleID, method, amountCents, time.Now().UTC())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("record payment for sale %s: no row inserted", saleID)
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context) ([]domain.OrderSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			s.id,
			s.customer_name,
			s.customer_phone,
			COALESCE(STRING_AGG(DISTINCT p.item_name, '  ••  '), ''),
			COALESCE(SUM(ol.quantity) FILTER (WHERE ol.status IN ('pending','paid')), 0),
			COALESCE(SUM(ol.quantity * ol.unit_price_cents) FILTER (WHERE ol.status IN ('pending','paid')), 0),
			s.paid_cents,
			s.change_cents,
			COALESCE(MIN(ol.status), ''),
			s.created_at
		FROM sales s
		LEFT JOIN order_lines ol ON ol.sale_id = s.id
		LEFT JOIN products p ON p.id = ol.product_id
		GROUP BY s.id, s.customer_name, s.customer_phone, s.paid_cents, s.change_cents, s.created_at
		ORDER BY s.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.OrderSummary, 0, 64)
	for rows.Next() {
		var summary domain.OrderSummary
		if err := rows.Scan(
			&summary.SaleID,
			&summary.CustomerName,
			&summary.CustomerPhone,
			&summary.Description,
			&summary.TotalQty,
			&summary.TotalToPayCents,
			&summary.PaidCents,
			&summary.ChangeCents,
			&summary.Status,
			&summary.CreatedAt,
		); err != nil {
			return nil, err
		}
		summary.CreatedAt = summary.CreatedAt.UTC()
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) ListSaleLines(ctx context.Context, saleID string) ([]domain.OrderLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, quantity, unit_price_cents, status
		FROM order_lines
		WHERE sale_id = $1
		ORDER BY id ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0, 8)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.SaleID, &line.ProductID, &line.Quantity, &line.UnitPriceCents, &line.Status); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) ListSalePayments(ctx context.Context, saleID string) ([]domain.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, method, amount_cents, is_paid, created_at
		FROM payment_sales
		WHERE sale_id = $1
		ORDER BY created_at ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.PaymentRecord, 0, 3)
	for rows.Next() {
		var record domain.PaymentRecord
		if err := rows.Scan(&record.ID, &record.SaleID, &record.Method, &record.AmountCents, &record.Paid, &record.CreatedAt); err != nil {
			return nil, err
		}
		record.CreatedAt = record.CreatedAt.UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) NextReceiptNumber(ctx context.Context) (string, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&total); err != nil {
		return "", err
	}
	return fmt.Sprintf("%07d", total+1), nil
}
