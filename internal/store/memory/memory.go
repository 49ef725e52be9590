package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"unipos/backend/internal/domain"
	"unipos/backend/internal/store"
)

// Store is an in-memory Repository for dev/demo mode and tests. A single
// mutex guards all maps; order placement validates every line against staged
// quantities and applies nothing until the whole order fits.
type Store struct {
	mu              sync.RWMutex
	ingredients     map[string]domain.Ingredient
	products        map[string]domain.Product
	recipeLines     map[string]domain.RecipeLine
	sales           map[string]domain.Sale
	orderLines      map[string]domain.OrderLine
	payments        map[string]domain.PaymentRecord
	registers       map[string]domain.CashRegisterSession
	movements       map[string]domain.CashMovement
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		ingredients:     map[string]domain.Ingredient{},
		products:        map[string]domain.Product{},
		recipeLines:     map[string]domain.RecipeLine{},
		sales:           map[string]domain.Sale{},
		orderLines:      map[string]domain.OrderLine{},
		payments:        map[string]domain.PaymentRecord{},
		registers:       map[string]domain.CashRegisterSession{},
		movements:       map[string]domain.CashMovement{},
		usersByUsername: map[string]domain.UserAccount{},
	}
}

// seedUsers builds the initial accounts for dev/demo mode. Credentials come
// from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; unset variables fall
// back to hardcoded dev defaults with a warning. Production deployments use
// PostgreSQL (DATABASE_URL set) and never reach this path.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			ID:        uuid.NewString(),
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	now := time.Now().UTC()
	inThirtyDays := now.Add(30 * 24 * time.Hour)

	ingredients := []domain.Ingredient{
		{ID: "ing-bun", ItemName: "Pao de Hamburguer", PackageSize: "unidade", UnitOfMeasure: "un", Quantity: 200, UnitCostCents: 900, Active: true, CreatedAt: now},
		{ID: "ing-patty", ItemName: "Hamburguer de Carne", BatchNumber: "L-2401", PackageSize: "120g", UnitOfMeasure: "un", Quantity: 180, UnitCostCents: 3500, ExpirationAt: &inThirtyDays, Active: true, CreatedAt: now},
		{ID: "ing-cheese", ItemName: "Queijo Fatiado", PackageSize: "fatia", UnitOfMeasure: "un", Quantity: 150, UnitCostCents: 1200, Active: true, CreatedAt: now},
		{ID: "ing-soda", ItemName: "Refrigerante Lata", PackageSize: "330ml", UnitOfMeasure: "un", Quantity: 240, UnitCostCents: 2500, Active: true, CreatedAt: now},
		{ID: "ing-potato", ItemName: "Batata Congelada", PackageSize: "100g", UnitOfMeasure: "un", Quantity: 300, UnitCostCents: 800, Active: true, CreatedAt: now},
	}
	for _, ingredient := range ingredients {
		s.ingredients[ingredient.ID] = ingredient
	}

	products := []domain.Product{
		{ID: "prod-burger", ItemName: "Hamburguer Simples", PriceCents: 25000, Category: "lanches", Active: true, CreatedAt: now},
		{ID: "prod-cheeseburger", ItemName: "Cheeseburguer", PriceCents: 30000, Category: "lanches", Active: true, CreatedAt: now},
		{ID: "prod-fries", ItemName: "Batata Frita", PriceCents: 15000, Category: "acompanhamentos", Active: true, CreatedAt: now},
		{ID: "prod-soda", ItemName: "Refrigerante", PriceCents: 10000, Category: "bebidas", Active: true, CreatedAt: now},
	}
	for _, product := range products {
		s.products[product.ID] = product
	}

	recipe := []domain.RecipeLine{
		{ID: "rl-1", ProductID: "prod-burger", IngredientID: "ing-bun", Quantity: 1},
		{ID: "rl-2", ProductID: "prod-burger", IngredientID: "ing-patty", Quantity: 1},
		{ID: "rl-3", ProductID: "prod-cheeseburger", IngredientID: "ing-bun", Quantity: 1},
		{ID: "rl-4", ProductID: "prod-cheeseburger", IngredientID: "ing-patty", Quantity: 1},
		{ID: "rl-5", ProductID: "prod-cheeseburger", IngredientID: "ing-cheese", Quantity: 2},
		{ID: "rl-6", ProductID: "prod-fries", IngredientID: "ing-potato", Quantity: 2},
		{ID: "rl-7", ProductID: "prod-soda", IngredientID: "ing-soda", Quantity: 1},
	}
	for _, line := range recipe {
		s.recipeLines[line.ID] = line
	}

	return s
}

func (s *Store) ListIngredients(_ context.Context) ([]domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ingredients := make([]domain.Ingredient, 0, len(s.ingredients))
	for _, ingredient := range s.ingredients {
		ingredients = append(ingredients, cloneIngredient(ingredient))
	}
	slices.SortFunc(ingredients, func(a, b domain.Ingredient) int {
		return cmpString(a.ItemName, b.ItemName)
	})
	return ingredients, nil
}

func (s *Store) GetIngredient(_ context.Context, id string) (*domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ingredient, exists := s.ingredients[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyIngredient := cloneIngredient(ingredient)
	return &copyIngredient, nil
}

func (s *Store) CreateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if ingredient.ItemName == "" || ingredient.Quantity < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.ingredients {
		if strings.EqualFold(existing.ItemName, ingredient.ItemName) {
			return nil, store.ErrConflict
		}
	}
	if ingredient.ID == "" {
		ingredient.ID = uuid.NewString()
	}
	if ingredient.CreatedAt.IsZero() {
		ingredient.CreatedAt = time.Now().UTC()
	}
	ingredient.Active = true

	s.ingredients[ingredient.ID] = cloneIngredient(ingredient)
	created := cloneIngredient(ingredient)
	return &created, nil
}

func (s *Store) UpdateIngredient(_ context.Context, id string, patch domain.IngredientPatch) error {
	if patch.Empty() {
		return store.ErrNoChanges
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ingredient, exists := s.ingredients[id]
	if !exists {
		return store.ErrNotFound
	}

	if patch.ItemName != nil {
		ingredient.ItemName = *patch.ItemName
	}
	if patch.BatchNumber != nil {
		ingredient.BatchNumber = *patch.BatchNumber
	}
	if patch.PackageSize != nil {
		ingredient.PackageSize = *patch.PackageSize
	}
	if patch.UnitOfMeasure != nil {
		ingredient.UnitOfMeasure = *patch.UnitOfMeasure
	}
	if patch.Quantity != nil {
		ingredient.Quantity = *patch.Quantity
	}
	if patch.UnitCostCents != nil {
		ingredient.UnitCostCents = *patch.UnitCostCents
	}
	if patch.ExpirationAt != nil {
		at := patch.ExpirationAt.UTC()
		ingredient.ExpirationAt = &at
	}
	if patch.Active != nil {
		ingredient.Active = *patch.Active
	}
	now := time.Now().UTC()
	ingredient.UpdatedAt = &now

	s.ingredients[id] = ingredient
	return nil
}

func (s *Store) DeleteIngredient(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ingredients[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.ingredients, id)
	return nil
}

func (s *Store) IngredientCards(_ context.Context) (domain.IngredientCards, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	var cards domain.IngredientCards
	for _, ingredient := range s.ingredients {
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
	return cards, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, product := range s.products {
		products = append(products, product)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.ItemName, b.ItemName)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ItemName == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if strings.EqualFold(existing.ItemName, product.ItemName) {
			return nil, store.ErrConflict
		}
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Active = true

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, id string, patch domain.ProductPatch) error {
	if patch.Empty() {
		return store.ErrNoChanges
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return store.ErrNotFound
	}

	if patch.ItemName != nil {
		product.ItemName = *patch.ItemName
	}
	if patch.ImageURL != nil {
		product.ImageURL = *patch.ImageURL
	}
	if patch.PriceCents != nil {
		product.PriceCents = *patch.PriceCents
	}
	if patch.Category != nil {
		product.Category = *patch.Category
	}
	if patch.Active != nil {
		product.Active = *patch.Active
	}

	s.products[id] = product
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	for lineID, line := range s.recipeLines {
		if line.ProductID == id {
			delete(s.recipeLines, lineID)
		}
	}
	return nil
}

func (s *Store) ListRecipe(_ context.Context, productID string) ([]domain.RecipeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.recipeEntriesLocked(productID)
	slices.SortFunc(entries, func(a, b domain.RecipeEntry) int {
		return cmpString(a.DisplayName, b.DisplayName)
	})
	return entries, nil
}

// recipeEntriesLocked resolves a product's bill of materials with display
// names. Callers must hold at least the read lock.
func (s *Store) recipeEntriesLocked(productID string) []domain.RecipeEntry {
	entries := make([]domain.RecipeEntry, 0, 8)
	for _, line := range s.recipeLines {
		if line.ProductID != productID {
			continue
		}
		ingredient, exists := s.ingredients[line.IngredientID]
		if !exists {
			continue
		}
		entries = append(entries, domain.RecipeEntry{
			ID:           line.ID,
			IngredientID: line.IngredientID,
			DisplayName:  ingredientDisplayName(ingredient),
			Quantity:     line.Quantity,
		})
	}
	return entries
}

func ingredientDisplayName(ingredient domain.Ingredient) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{ingredient.ItemName, ingredient.PackageSize, ingredient.UnitOfMeasure} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

func (s *Store) AddRecipeLine(_ context.Context, line domain.RecipeLine) (*domain.RecipeLine, error) {
	if line.ProductID == "" || line.IngredientID == "" || line.Quantity < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[line.ProductID]; !exists {
		return nil, store.ErrNotFound
	}
	if _, exists := s.ingredients[line.IngredientID]; !exists {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.recipeLines {
		if existing.ProductID == line.ProductID && existing.IngredientID == line.IngredientID {
			return nil, store.ErrConflict
		}
	}
	if line.ID == "" {
		line.ID = uuid.NewString()
	}

	s.recipeLines[line.ID] = line
	created := line
	return &created, nil
}

func (s *Store) UpdateRecipeLine(_ context.Context, id string, quantity int64) error {
	if quantity < 1 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line, exists := s.recipeLines[id]
	if !exists {
		return store.ErrNotFound
	}
	line.Quantity = quantity
	s.recipeLines[id] = line
	return nil
}

func (s *Store) DeleteRecipeLine(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.recipeLines[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.recipeLines, id)
	return nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.OrderCreate) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.placeOrderLocked(order.CashRegisterID, order.CustomerName, order.CustomerPhone,
		0, 0, domain.PaymentSplit{}, order.Items, domain.OrderStatusPending)
}

func (s *Store) CreateOrderPaid(_ context.Context, order domain.OrderCreatePaid) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.placeOrderLocked(order.CashRegisterID, "", "",
		order.PaidCents, order.ChangeCents, order.Payment, order.Items, domain.OrderStatusPaid)
}

// placeOrderLocked runs the whole order as one unit under the write lock.
// Deductions accumulate in a staged map so a later line sees the stock left
// by earlier lines of the same order; nothing touches the real maps until
// every line has passed.
func (s *Store) placeOrderLocked(cashRegisterID, customerName, customerPhone string,
	paidCents, changeCents int64, payment domain.PaymentSplit,
	items []domain.OrderItem, status string) (*domain.Sale, error) {

	sale := domain.Sale{
		ID:             uuid.NewString(),
		CashRegisterID: cashRegisterID,
		CustomerName:   customerName,
		CustomerPhone:  customerPhone,
		PaidCents:      paidCents,
		ChangeCents:    changeCents,
		CreatedAt:      time.Now().UTC(),
	}

	staged := map[string]int64{}
	stagedLines := make([]domain.OrderLine, 0, len(items))

	for _, item := range items {
		product, exists := s.products[item.ProductID]
		if !exists || product.PriceCents <= 0 {
			return nil, store.ErrNotFound
		}

		for _, entry := range s.recipeEntriesLocked(item.ProductID) {
			needed := entry.Quantity * item.Quantity
			ingredient := s.ingredients[entry.IngredientID]
			available := ingredient.Quantity - staged[entry.IngredientID]
			if available < needed {
				return nil, &store.InsufficientStockError{
					Ingredient: entry.DisplayName,
					Required:   needed,
					Available:  available,
				}
			}
			staged[entry.IngredientID] += needed
		}

		stagedLines = append(stagedLines, domain.OrderLine{
			ID:             uuid.NewString(),
			SaleID:         sale.ID,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
			Status:         status,
		})
	}

	for ingredientID, deducted := range staged {
		ingredient := s.ingredients[ingredientID]
		ingredient.Quantity -= deducted
		now := time.Now().UTC()
		ingredient.UpdatedAt = &now
		s.ingredients[ingredientID] = ingredient
	}
	for _, line := range stagedLines {
		s.orderLines[line.ID] = line
	}
	for _, row := range payment.Rows() {
		record := domain.PaymentRecord{
			ID:          uuid.NewString(),
			SaleID:      sale.ID,
			Method:      row.Method,
			AmountCents: row.AmountCents,
			Paid:        true,
			CreatedAt:   sale.CreatedAt,
		}
		s.payments[record.ID] = record
	}
	s.sales[sale.ID] = sale

	copySale := sale
	return &copySale, nil
}

func (s *Store) SettleOrder(_ context.Context, settle domain.OrderSettle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.sales[settle.SaleID]
	if !exists {
		return store.ErrNotFound
	}
	sale.PaidCents = settle.PaidCents
	sale.ChangeCents = settle.ChangeCents
	s.sales[settle.SaleID] = sale

	for id, line := range s.orderLines {
		if line.SaleID == settle.SaleID && line.Status == domain.OrderStatusPending {
			line.Status = domain.OrderStatusPaid
			s.orderLines[id] = line
		}
	}

	now := time.Now().UTC()
	for _, row := range settle.Payment.Rows() {
		record := domain.PaymentRecord{
			ID:          uuid.NewString(),
			SaleID:      settle.SaleID,
			Method:      row.Method,
			AmountCents: row.AmountCents,
			Paid:        true,
			CreatedAt:   now,
		}
		s.payments[record.ID] = record
	}
	return nil
}

func (s *Store) CancelOrder(_ context.Context, saleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := 0
	for id, line := range s.orderLines {
		if line.SaleID == saleID && line.Status == domain.OrderStatusPending {
			line.Status = domain.OrderStatusCancelled
			s.orderLines[id] = line
			cancelled++
		}
	}
	if cancelled == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListOrders(_ context.Context) ([]domain.OrderSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]domain.OrderSummary, 0, len(s.sales))
	for _, sale := range s.sales {
		summary := domain.OrderSummary{
			SaleID:        sale.ID,
			CustomerName:  sale.CustomerName,
			CustomerPhone: sale.CustomerPhone,
			PaidCents:     sale.PaidCents,
			ChangeCents:   sale.ChangeCents,
			CreatedAt:     sale.CreatedAt,
		}

		names := make([]string, 0, 4)
		seen := map[string]struct{}{}
		for _, line := range s.orderLines {
			if line.SaleID != sale.ID {
				continue
			}
			if summary.Status == "" || line.Status < summary.Status {
				summary.Status = line.Status
			}
			if line.Status == domain.OrderStatusPending || line.Status == domain.OrderStatusPaid {
				summary.TotalQty += line.Quantity
				summary.TotalToPayCents += line.Quantity * line.UnitPriceCents
			}
			if product, ok := s.products[line.ProductID]; ok {
				if _, dup := seen[product.ItemName]; !dup {
					seen[product.ItemName] = struct{}{}
					names = append(names, product.ItemName)
				}
			}
		}
		slices.Sort(names)
		summary.Description = strings.Join(names, "  ••  ")
		summaries = append(summaries, summary)
	}

	slices.SortFunc(summaries, func(a, b domain.OrderSummary) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.SaleID, a.SaleID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return summaries, nil
}

func (s *Store) ListSaleLines(_ context.Context, saleID string) ([]domain.OrderLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]domain.OrderLine, 0, 8)
	for _, line := range s.orderLines {
		if line.SaleID == saleID {
			lines = append(lines, line)
		}
	}
	slices.SortFunc(lines, func(a, b domain.OrderLine) int {
		return cmpString(a.ID, b.ID)
	})
	return lines, nil
}

func (s *Store) ListSalePayments(_ context.Context, saleID string) ([]domain.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.PaymentRecord, 0, 3)
	for _, record := range s.payments {
		if record.SaleID == saleID {
			records = append(records, record)
		}
	}
	slices.SortFunc(records, func(a, b domain.PaymentRecord) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.Method, b.Method)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return records, nil
}

func (s *Store) NextReceiptNumber(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fmt.Sprintf("%07d", len(s.sales)+1), nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.sales))
	for _, sale := range s.sales {
		if sale.CustomerName == "" {
			continue
		}
		customers = append(customers, domain.Customer{
			SaleID:      sale.ID,
			Name:        sale.CustomerName,
			Phone:       sale.CustomerPhone,
			PaidCents:   sale.PaidCents,
			ChangeCents: sale.ChangeCents,
			CreatedAt:   sale.CreatedAt,
		})
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.SaleID, b.SaleID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return customers, nil
}

// DeleteSale removes the sale header with its order lines and payment rows.
// Consumed stock stays consumed.
func (s *Store) DeleteSale(_ context.Context, saleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[saleID]; !exists {
		return store.ErrNotFound
	}
	delete(s.sales, saleID)
	for id, line := range s.orderLines {
		if line.SaleID == saleID {
			delete(s.orderLines, id)
		}
	}
	for id, record := range s.payments {
		if record.SaleID == saleID {
			delete(s.payments, id)
		}
	}
	return nil
}

func (s *Store) ListCashRegisters(_ context.Context) ([]domain.CashRegisterSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]domain.CashRegisterSummary, 0, len(s.registers))
	for _, session := range s.registers {
		summary := domain.CashRegisterSummary{CashRegisterSession: cloneSession(session)}
		for _, user := range s.usersByUsername {
			if user.ID == session.UserID {
				summary.Operator = user.Username
				break
			}
		}
		summaries = append(summaries, summary)
	}
	slices.SortFunc(summaries, func(a, b domain.CashRegisterSummary) int {
		if a.OpenedAt.Equal(b.OpenedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.OpenedAt.After(b.OpenedAt) {
			return -1
		}
		return 1
	})
	return summaries, nil
}

func (s *Store) GetCashRegister(_ context.Context, id string) (*domain.CashRegisterSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.registers[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySession := cloneSession(session)
	return &copySession, nil
}

func (s *Store) OpenCashRegister(_ context.Context, userID string, openingBalanceCents int64) (*domain.CashRegisterSession, error) {
	if userID == "" || openingBalanceCents < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.registers {
		if session.UserID == userID && session.Open {
			return nil, store.ErrConflict
		}
	}

	session := domain.CashRegisterSession{
		ID:                  uuid.NewString(),
		UserID:              userID,
		Open:                true,
		OpeningBalanceCents: openingBalanceCents,
		OpenedAt:            time.Now().UTC(),
	}
	s.registers[session.ID] = session

	movement := domain.CashMovement{
		ID:             uuid.NewString(),
		CashRegisterID: session.ID,
		Kind:           domain.MovementOpened,
		AmountCents:    openingBalanceCents,
		Description:    "session opened",
		Confirmed:      true,
		CreatedAt:      session.OpenedAt,
	}
	s.movements[movement.ID] = movement

	copySession := session
	return &copySession, nil
}

func (s *Store) CloseCashRegister(_ context.Context, id string, closingBalanceCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.registers[id]
	if !exists || !session.Open {
		return store.ErrNotFound
	}

	now := time.Now().UTC()
	session.Open = false
	session.ClosingBalanceCents = closingBalanceCents
	session.ClosedAt = &now
	s.registers[id] = session

	movement := domain.CashMovement{
		ID:             uuid.NewString(),
		CashRegisterID: id,
		Kind:           domain.MovementClosed,
		AmountCents:    closingBalanceCents,
		Description:    "session closed",
		Confirmed:      true,
		CreatedAt:      now,
	}
	s.movements[movement.ID] = movement
	return nil
}

func (s *Store) DeleteCashRegister(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.registers[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.registers, id)
	for movementID, movement := range s.movements {
		if movement.CashRegisterID == id {
			delete(s.movements, movementID)
		}
	}
	return nil
}

func (s *Store) AddCashMovement(_ context.Context, movement domain.CashMovement) (*domain.CashMovement, error) {
	if movement.CashRegisterID == "" || movement.AmountCents < 1 {
		return nil, store.ErrInvalidInput
	}
	switch movement.Kind {
	case domain.MovementCashIn, domain.MovementCashOut:
	default:
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.registers[movement.CashRegisterID]
	if !exists || !session.Open {
		return nil, store.ErrNotFound
	}

	if movement.ID == "" {
		movement.ID = uuid.NewString()
	}
	movement.Confirmed = false
	movement.CreatedAt = time.Now().UTC()
	movement.UpdatedAt = nil

	s.movements[movement.ID] = movement
	created := movement
	return &created, nil
}

func (s *Store) ListCashMovements(_ context.Context, cashRegisterID string) ([]domain.CashMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movements := make([]domain.CashMovement, 0, 16)
	for _, movement := range s.movements {
		if movement.CashRegisterID == cashRegisterID {
			movements = append(movements, movement)
		}
	}
	slices.SortFunc(movements, func(a, b domain.CashMovement) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return movements, nil
}

func (s *Store) ConfirmCashMovement(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	movement, exists := s.movements[id]
	if !exists || movement.Confirmed {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	movement.Confirmed = true
	movement.UpdatedAt = &now
	s.movements[id] = movement
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" || user.Role == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return nil, store.ErrConflict
	}
	user.Username = username
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[username] = user

	created := user
	created.Password = ""
	return &created, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, passwordHash string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(passwordHash) == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = passwordHash
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneIngredient(src domain.Ingredient) domain.Ingredient {
	dup := src
	if src.ExpirationAt != nil {
		at := src.ExpirationAt.UTC()
		dup.ExpirationAt = &at
	}
	if src.UpdatedAt != nil {
		at := src.UpdatedAt.UTC()
		dup.UpdatedAt = &at
	}
	return dup
}

func cloneSession(src domain.CashRegisterSession) domain.CashRegisterSession {
	dup := src
	if src.ClosedAt != nil {
		at := src.ClosedAt.UTC()
		dup.ClosedAt = &at
	}
	return dup
}
