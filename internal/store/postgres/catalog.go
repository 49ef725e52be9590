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

func (s *Store) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_name, batch_number, package_size, unit_of_measure,
			quantity, unit_cost_cents, expiration_at, is_active, created_at, updated_at
		FROM ingredients
		ORDER BY item_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ingredients := make([]domain.Ingredient, 0, 64)
	for rows.Next() {
		ingredient, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		ingredients = append(ingredients, *ingredient)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (s *Store) GetIngredient(ctx context.Context, id string) (*domain.Ingredient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, item_name, batch_number, package_size, unit_of_measure,
			quantity, unit_cost_cents, expiration_at, is_active, created_at, updated_at
		FROM ingredients
		WHERE id = $1
	`, id)
	ingredient, err := scanIngredient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ingredient, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngredient(row rowScanner) (*domain.Ingredient, error) {
	var ingredient domain.Ingredient
	var expiration sql.NullTime
	var updated sql.NullTime
	err := row.Scan(
		&ingredient.ID,
		&ingredient.ItemName,
		&ingredient.BatchNumber,
		&ingredient.PackageSize,
		&ingredient.UnitOfMeasure,
		&ingredient.Quantity,
		&ingredient.UnitCostCents,
		&expiration,
		&ingredient.Active,
		&ingredient.CreatedAt,
		&updated,
	)
	if err != nil {
		return nil, err
	}
	ingredient.CreatedAt = ingredient.CreatedAt.UTC()
	if expiration.Valid {
		at := expiration.Time.UTC()
		ingredient.ExpirationAt = &at
	}
	if updated.Valid {
		at := updated.Time.UTC()
		ingredient.UpdatedAt = &at
	}
	return &ingredient, nil
}

func (s *Store) CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if ingredient.ItemName == "" || ingredient.Quantity < 0 {
		return nil, store.ErrInvalidInput
	}
	if ingredient.ID == "" {
		ingredient.ID = uuid.NewString()
	}
	if ingredient.CreatedAt.IsZero() {
		ingredient.CreatedAt = time.Now().UTC()
	}
	ingredient.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients (id, item_name, batch_number, package_size, unit_of_measure,
			quantity, unit_cost_cents, expiration_at, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, ingredient.ID, ingredient.ItemName, ingredient.BatchNumber, ingredient.PackageSize,
		ingredient.UnitOfMeasure, ingredient.Quantity, ingredient.UnitCostCents,
		nullTime(ingredient.ExpirationAt), ingredient.Active, ingredient.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := ingredient
	return &created, nil
}

// UpdateIngredient applies a partial update through one static statement:
// COALESCE picks the patch value when present and keeps the stored column
// otherwise, so the SQL never changes shape with the patch.
func (s *Store) UpdateIngredient(ctx context.Context, id string, patch domain.IngredientPatch) error {
	if patch.Empty() {
		return store.ErrNoChanges
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE ingredients
		SET item_name       = COALESCE($2, item_name),
			batch_number    = COALESCE($3, batch_number),
			package_size    = COALESCE($4, package_size),
			unit_of_measure = COALESCE($5, unit_of_measure),
			quantity        = COALESCE($6, quantity),
			unit_cost_cents = COALESCE($7, unit_cost_cents),
			expiration_at   = COALESCE($8, expiration_at),
			is_active       = COALESCE($9, is_active),
			updated_at      = now()
		WHERE id = $1
	`, id, patch.ItemName, patch.BatchNumber, patch.PackageSize, patch.UnitOfMeasure,
		patch.Quantity, patch.UnitCostCents, patch.ExpirationAt, patch.Active)
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

func (s *Store) DeleteIngredient(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ingredients WHERE id = $1`, id)
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

func (s *Store) IngredientCards(ctx context.Context) (domain.IngredientCards, error) {
	ingredients, err := s.ListIngredients(ctx)
	if err != nil {
		return domain.IngredientCards{}, err
	}
	return buildIngredientCards(ingredients, time.Now().UTC()), nil
}

// buildIngredientCards derives the dashboard counters. Expiration status is
// computed, not stored, so the counts are always fresh relative to now.
func buildIngredientCards(ingredients []domain.Ingredient, now time.Time) domain.IngredientCards {
	var cards domain.IngredientCards
	for _, ingredient := range ingredients {
		if !ingredient.Active {
			cards.InactiveCount++
			continue
		}
		cards.ActiveCount++
		cards.TotalActiveQty += ingredient.Quantity
		switch ingredient.ExpirationStatus(now) {
		case domain.ExpirationNearExpiry:
			cards.NearExpiryCount++
		case domain.ExpirationExpired:
			cards.ExpiredCount++
		}
	}
	return cards
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_name, image_url, price_cents, category, is_active, created_at
		FROM products
		ORDER BY item_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.ItemName, &product.ImageURL,
			&product.PriceCents, &product.Category, &product.Active, &product.CreatedAt); err != nil {
			return nil, err
		}
		product.CreatedAt = product.CreatedAt.UTC()
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, item_name, image_url, price_cents, category, is_active, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.ItemName, &product.ImageURL,
		&product.PriceCents, &product.Category, &product.Active, &product.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ItemName == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, item_name, image_url, price_cents, category, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, product.ID, product.ItemName, product.ImageURL, product.PriceCents,
		product.Category, product.Active, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) error {
	if patch.Empty() {
		return store.ErrNoChanges
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET item_name   = COALESCE($2, item_name),
			image_url   = COALESCE($3, image_url),
			price_cents = COALESCE($4, price_cents),
			category    = COALESCE($5, category),
			is_active   = COALESCE($6, is_active)
		WHERE id = $1
	`, id, patch.ItemName, patch.ImageURL, patch.PriceCents, patch.Category, patch.Active)
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

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
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

func (s *Store) ListRecipe(ctx context.Context, productID string) ([]domain.RecipeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rl.id, rl.ingredient_id,
			CONCAT_WS(' ', i.item_name, i.package_size, i.unit_of_measure),
			rl.quantity
		FROM recipe_lines rl
		JOIN ingredients i ON i.id = rl.ingredient_id
		WHERE rl.product_id = $1
		ORDER BY i.item_name ASC
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

func (s *Store) AddRecipeLine(ctx context.Context, line domain.RecipeLine) (*domain.RecipeLine, error) {
	if line.ProductID == "" || line.IngredientID == "" || line.Quantity < 1 {
		return nil, store.ErrInvalidInput
	}
	if line.ID == "" {
		line.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recipe_lines (id, product_id, ingredient_id, quantity)
		VALUES ($1,$2,$3,$4)
	`, line.ID, line.ProductID, line.IngredientID, line.Quantity)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := line
	return &created, nil
}

func (s *Store) UpdateRecipeLine(ctx context.Context, id string, quantity int64) error {
	if quantity < 1 {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE recipe_lines SET quantity = $2 WHERE id = $1
	`, id, quantity)
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

func (s *Store) DeleteRecipeLine(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recipe_lines WHERE id = $1`, id)
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
