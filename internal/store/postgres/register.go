package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"unipos/backend/internal/domain"
	"unipos/backend/internal/store"
)

func (s *Store) ListCashRegisters(ctx context.Context) ([]domain.CashRegisterSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cr.id, cr.user_id, cr.is_open, cr.opening_balance_cents, cr.closing_balance_cents,
			cr.opened_at, cr.closed_at, u.username
		FROM cash_registers cr
		JOIN users u ON u.id = cr.user_id
		ORDER BY cr.opened_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.CashRegisterSummary, 0, 16)
	for rows.Next() {
		var summary domain.CashRegisterSummary
		var closedAt sql.NullTime
		if err := rows.Scan(&summary.ID, &summary.UserID, &summary.Open,
			&summary.OpeningBalanceCents, &summary.ClosingBalanceCents,
			&summary.OpenedAt, &closedAt, &summary.Operator); err != nil {
			return nil, err
		}
		summary.OpenedAt = summary.OpenedAt.UTC()
		if closedAt.Valid {
			at := closedAt.Time.UTC()
			summary.ClosedAt = &at
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) GetCashRegister(ctx context.Context, id string) (*domain.CashRegisterSession, error) {
	var session domain.CashRegisterSession
	var closedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, is_open, opening_balance_cents, closing_balance_cents, opened_at, closed_at
		FROM cash_registers
		WHERE id = $1
	`, id).Scan(&session.ID, &session.UserID, &session.Open,
		&session.OpeningBalanceCents, &session.ClosingBalanceCents,
		&session.OpenedAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	session.OpenedAt = session.OpenedAt.UTC()
	if closedAt.Valid {
		at := closedAt.Time.UTC()
		session.ClosedAt = &at
	}
	return &session, nil
}

// OpenCashRegister starts a session and records the opening balance as the
// first movement, in one transaction. A partial unique index on
// (user_id) WHERE is_open guarantees one open session per operator; the
// violation surfaces as ErrConflict.
func (s *Store) OpenCashRegister(ctx context.Context, userID string, openingBalanceCents int64) (*domain.CashRegisterSession, error) {
	if userID == "" || openingBalanceCents < 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	session := domain.CashRegisterSession{
		ID:                  uuid.NewString(),
		UserID:              userID,
		Open:                true,
		OpeningBalanceCents: openingBalanceCents,
		OpenedAt:            time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cash_registers (id, user_id, is_open, opening_balance_cents, closing_balance_cents, opened_at)
		VALUES ($1,$2,$3,$4,0,$5)
	`, session.ID, session.UserID, session.Open, session.OpeningBalanceCents, session.OpenedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cash_movements (id, cash_register_id, kind, amount_cents, description, confirmed, created_at)
		VALUES ($1,$2,$3,$4,$5,true,$6)
	`, uuid.NewString(), session.ID, domain.MovementOpened, openingBalanceCents, "session opened", session.OpenedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &session, nil
}

// CloseCashRegister seals the session: it only flips rows that are still
// open, so closing twice reports not found.
func (s *Store) CloseCashRegister(ctx context.Context, id string, closingBalanceCents int64) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE cash_registers
		SET is_open = false, closing_balance_cents = $2, closed_at = $3
		WHERE id = $1 AND is_open
	`, id, closingBalanceCents, now)
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
		INSERT INTO cash_movements (id, cash_register_id, kind, amount_cents, description, confirmed, created_at)
		VALUES ($1,$2,$3,$4,$5,true,$6)
	`, uuid.NewString(), id, domain.MovementClosed, closingBalanceCents, "session closed", now)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) DeleteCashRegister(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cash_registers WHERE id = $1`, id)
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

func (s *Store) AddCashMovement(ctx context.Context, movement domain.CashMovement) (*domain.CashMovement, error) {
	if movement.CashRegisterID == "" || movement.AmountCents < 1 {
		return nil, store.ErrInvalidInput
	}
	switch movement.Kind {
	case domain.MovementCashIn, domain.MovementCashOut:
	default:
		return nil, store.ErrInvalidInput
	}

	if movement.ID == "" {
		movement.ID = uuid.NewString()
	}
	movement.Confirmed = false
	movement.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cash_movements (id, cash_register_id, kind, amount_cents, description, confirmed, created_at)
		SELECT $1, cr.id, $3, $4, $5, false, $6
		FROM cash_registers cr
		WHERE cr.id = $2 AND cr.is_open
	`, movement.ID, movement.CashRegisterID, movement.Kind, movement.AmountCents,
		movement.Description, movement.CreatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	created := movement
	return &created, nil
}

func (s *Store) ListCashMovements(ctx context.Context, cashRegisterID string) ([]domain.CashMovement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cash_register_id, kind, amount_cents, description, confirmed, created_at, updated_at
		FROM cash_movements
		WHERE cash_register_id = $1
		ORDER BY created_at ASC
	`, cashRegisterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.CashMovement, 0, 16)
	for rows.Next() {
		var movement domain.CashMovement
		var updated sql.NullTime
		if err := rows.Scan(&movement.ID, &movement.CashRegisterID, &movement.Kind,
			&movement.AmountCents, &movement.Description, &movement.Confirmed,
			&movement.CreatedAt, &updated); err != nil {
			return nil, err
		}
		movement.CreatedAt = movement.CreatedAt.UTC()
		if updated.Valid {
			at := updated.Time.UTC()
			movement.UpdatedAt = &at
		}
		movements = append(movements, movement)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *Store) ConfirmCashMovement(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cash_movements
		SET confirmed = true, updated_at = now()
		WHERE id = $1 AND NOT confirmed
	`, id)
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
