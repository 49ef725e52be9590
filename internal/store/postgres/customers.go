package postgres

import (
	"context"
	"database/sql"

	"unipos/backend/internal/domain"
	"unipos/backend/internal/store"
)

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_name, customer_phone, paid_cents, change_cents, created_at
		FROM sales
		WHERE customer_name <> ''
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var customer domain.Customer
		if err := rows.Scan(&customer.SaleID, &customer.Name, &customer.Phone,
			&customer.PaidCents, &customer.ChangeCents, &customer.CreatedAt); err != nil {
			return nil, err
		}
		customer.CreatedAt = customer.CreatedAt.UTC()
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// DeleteSale removes the whole sale scope: payment rows, order lines and the
// header, in one transaction. Consumed stock stays consumed.
func (s *Store) DeleteSale(ctx context.Context, saleID string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM payment_sales WHERE sale_id = $1`, saleID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE sale_id = $1`, saleID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
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

	return tx.Commit()
}
