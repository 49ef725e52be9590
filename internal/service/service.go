package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"unipos/backend/internal/domain"
	"unipos/backend/internal/notify"
	"unipos/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service validates requests, runs them against the repository and broadcasts
// change signals. Catalog mutations require the admin role; order placement
// requires an open cash register session.
type Service struct {
	repo     store.Repository
	notifier notify.Notifier
	logger   *zap.Logger
}

func New(repo store.Repository, notifier notify.Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return nil
}

// broadcast is fire and forget: a failed signal is logged and swallowed so
// it can never fail the operation that triggered it.
func (s *Service) broadcast(ctx context.Context, topics ...string) {
	for _, topic := range topics {
		if err := s.notifier.DataChanged(ctx, topic); err != nil {
			s.logger.Warn("change broadcast failed",
				zap.String("topic", topic),
				zap.Error(err))
		}
	}
}

func (s *Service) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	return s.repo.ListIngredients(ctx)
}

func (s *Service) GetIngredient(ctx context.Context, id string) (*domain.Ingredient, error) {
	if strings.TrimSpace(id) == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.GetIngredient(ctx, id)
}

func (s *Service) IngredientCards(ctx context.Context) (domain.IngredientCards, error) {
	return s.repo.IngredientCards(ctx)
}

func (s *Service) CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	ingredient.ItemName = strings.TrimSpace(ingredient.ItemName)
	if ingredient.ItemName == "" || ingredient.Quantity < 0 || ingredient.UnitCostCents < 0 {
		return nil, store.ErrInvalidInput
	}

	created, err := s.repo.CreateIngredient(ctx, ingredient)
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, notify.TopicIngredients)
	return created, nil
}

func (s *Service) UpdateIngredient(ctx context.Context, id string, patch domain.IngredientPatch) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}
	if patch.ItemName != nil && strings.TrimSpace(*patch.ItemName) == "" {
		return store.ErrInvalidInput
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return store.ErrInvalidInput
	}

	if err := s.repo.UpdateIngredient(ctx, id, patch); err != nil {
		return err
	}

	s.broadcast(ctx, notify.TopicIngredients)
	return nil
}

func (s *Service) DeleteIngredient(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}

	if err := s.repo.DeleteIngredient(ctx, id); err != nil {
		return err
	}

	s.broadcast(ctx, notify.TopicIngredients)
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	product.ItemName = strings.TrimSpace(product.ItemName)
	product.Category = strings.TrimSpace(product.Category)
	if product.ItemName == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, notify.TopicProducts)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}
	if patch.ItemName != nil && strings.TrimSpace(*patch.ItemName) == "" {
		return store.ErrInvalidInput
	}
	if patch.PriceCents != nil && *patch.PriceCents < 1 {
		return store.ErrInvalidInput
	}

	if err := s.repo.UpdateProduct(ctx, id, patch); err != nil {
		return err
	}

	s.broadcast(ctx, notify.TopicProducts)
	return nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.broadcast(ctx, notify.TopicProducts)
	return nil
}

func (s *Service) ListRecipe(ctx context.Context, productID string) ([]domain.RecipeEntry, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListRecipe(ctx, productID)
}

func (s *Service) AddRecipeLine(ctx context.Context, line domain.RecipeLine) (*domain.RecipeLine, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if line.ProductID == "" || line.IngredientID == "" || line.Quantity < 1 {
		return nil, store.ErrInvalidInput
	}

	created, err := s.repo.AddRecipeLine(ctx, line)
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, notify.TopicProducts)
	return created, nil
}

func (s *Service) UpdateRecipeLine(ctx context.Context, id string, quantity int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || quantity < 1 {
		return store.ErrInvalidInput
	}

	if err := s.repo.UpdateRecipeLine(ctx, id, quantity); err != nil {
		return err
	}

	s.broadcast(ctx, notify.TopicProducts)
	return nil
}

func (s *Service) DeleteRecipeLine(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}

	if err := s.repo.DeleteRecipeLine(ctx, id); err != nil {
		return err
	}

	s.broadcast(ctx, notify.TopicProducts)
	return nil
}

func (s *Service) ListOrders(ctx context.Context) ([]domain.OrderSummary, error) {
	return s.repo.ListOrders(ctx)
}

func validateItems(items []domain.OrderItem) error {
	if len(items) == 0 {
		return store.ErrInvalidInput
	}
	for _, item := range items {
		if item.ProductID == "" || item.Quantity < 1 {
			return store.ErrInvalidInput
		}
	}
	return nil
}

// warnRecipeless flags cart items whose product carries no recipe. Such items
// skip stock verification entirely, which is fine for non-food SKUs but worth
// a trace when it happens by accident.
func (s *Service) warnRecipeless(ctx context.Context, items []domain.OrderItem) {
	for _, item := range items {
		entries, err := s.repo.ListRecipe(ctx, item.ProductID)
		if err == nil && len(entries) == 0 {
			s.logger.Warn("product has no recipe, stock check skipped",
				zap.String("product_id", item.ProductID))
		}
	}
}

// requireOpenRegister rejects orders placed against a missing or closed
// cash register session.
func (s *Service) requireOpenRegister(ctx context.Context, cashRegisterID string) error {
	if strings.TrimSpace(cashRegisterID) == "" {
		return store.ErrInvalidInput
	}
	session, err := s.repo.GetCashRegister(ctx, cashRegisterID)
	if err != nil {
		return err
	}
	if !session.Open {
		return fmt.Errorf("cash register %s is closed", cashRegisterID)
	}
	return nil
}

// PlaceOrder opens a deferred tab: lines land pending and payment comes
// later through SettleOrder.
func (s *Service) PlaceOrder(ctx context.Context, order domain.OrderCreate) (*domain.Sale, error) {
	order.CustomerName = strings.TrimSpace(order.CustomerName)
	order.CustomerPhone = strings.TrimSpace(order.CustomerPhone)
	if err := validateItems(order.Items); err != nil {
		return nil, err
	}
	if err := s.requireOpenRegister(ctx, order.CashRegisterID); err != nil {
		return nil, err
	}
	s.warnRecipeless(ctx, order.Items)

	sale, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		s.logOrderFailure("order placement failed", order.CashRegisterID, order.Items, err)
		return nil, err
	}

	s.broadcast(ctx, notify.TopicOrders, notify.TopicIngredients)
	return sale, nil
}

// PlaceOrderPaid places and settles in one step: the sale, its lines, the
// stock deductions and the payment rows all commit together.
func (s *Service) PlaceOrderPaid(ctx context.Context, order domain.OrderCreatePaid) (*domain.Sale, error) {
	if err := validateItems(order.Items); err != nil {
		return nil, err
	}
	if order.Payment.TotalCents() < 1 || order.PaidCents < 1 || order.ChangeCents < 0 {
		return nil, store.ErrInvalidInput
	}
	if err := s.requireOpenRegister(ctx, order.CashRegisterID); err != nil {
		return nil, err
	}
	s.warnRecipeless(ctx, order.Items)

	sale, err := s.repo.CreateOrderPaid(ctx, order)
	if err != nil {
		s.logOrderFailure("paid order placement failed", order.CashRegisterID, order.Items, err)
		return nil, err
	}

	s.broadcast(ctx, notify.TopicOrders, notify.TopicIngredients)
	return sale, nil
}

func (s *Service) logOrderFailure(msg string, cashRegisterID string, items []domain.OrderItem, err error) {
	fields := []zap.Field{
		zap.String("cash_register_id", cashRegisterID),
		zap.Int("item_count", len(items)),
		zap.Error(err),
	}
	var insufficient *store.InsufficientStockError
	if errors.As(err, &insufficient) {
		fields = append(fields,
			zap.String("ingredient", insufficient.Ingredient),
			zap.Int64("required", insufficient.Required),
			zap.Int64("available", insufficient.Available))
	}
	s.logger.Error(msg, fields...)
}

func (s *Service) SettleOrder(ctx context.Context, settle domain.OrderSettle) error {
	if strings.TrimSpace(settle.SaleID) == "" {
		return store.ErrInvalidInput
	}
	if settle.Payment.TotalCents() < 1 || settle.PaidCents < 1 || settle.ChangeCents < 0 {
		return store.ErrInvalidInput
	}

	if err := s.repo.SettleOrder(ctx, settle); err != nil {
		s.logger.Error("order settlement failed",
			zap.String("sale_id", settle.SaleID),
			zap.Int64("paid_cents", settle.PaidCents),
			zap.Error(err))
		return err
	}

	s.broadcast(ctx, notify.TopicOrders)
	return nil
}

// CancelOrder flips the pending lines of a sale to cancelled. Consumed stock
// is not restored; kitchen output cannot be un-cooked.
func (s *Service) CancelOrder(ctx context.Context, saleID string) error {
	if strings.TrimSpace(saleID) == "" {
		return store.ErrInvalidInput
	}

	if err := s.repo.CancelOrder(ctx, saleID); err != nil {
		return err
	}

	s.broadcast(ctx, notify.TopicOrders)
	return nil
}

func (s *Service) ListSaleLines(ctx context.Context, saleID string) ([]domain.OrderLine, error) {
	if strings.TrimSpace(saleID) == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListSaleLines(ctx, saleID)
}

func (s *Service) ListSalePayments(ctx context.Context, saleID string) ([]domain.PaymentRecord, error) {
	if strings.TrimSpace(saleID) == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListSalePayments(ctx, saleID)
}

func (s *Service) NextReceiptNumber(ctx context.Context) (string, error) {
	return s.repo.NextReceiptNumber(ctx)
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// DeleteSale erases an order and its inline customer record entirely, unlike
// CancelOrder which keeps the sale for the books.
func (s *Service) DeleteSale(ctx context.Context, saleID string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(saleID) == "" {
		return store.ErrInvalidInput
	}

	if err := s.repo.DeleteSale(ctx, saleID); err != nil {
		return err
	}

	s.broadcast(ctx, notify.TopicOrders)
	return nil
}

func (s *Service) ListCashRegisters(ctx context.Context) ([]domain.CashRegisterSummary, error) {
	return s.repo.ListCashRegisters(ctx)
}

func (s *Service) GetCashRegister(ctx context.Context, id string) (*domain.CashRegisterSession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.GetCashRegister(ctx, id)
}

// OpenCashRegister starts a session for the calling operator. Each operator
// can hold at most one open session at a time.
func (s *Service) OpenCashRegister(ctx context.Context, openingBalanceCents int64) (*domain.CashRegisterSession, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("authenticated operator required")
	}
	if openingBalanceCents < 0 {
		return nil, store.ErrInvalidInput
	}

	session, err := s.repo.OpenCashRegister(ctx, actor.ID, openingBalanceCents)
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, notify.TopicCashRegister)
	return session, nil
}

func (s *Service) CloseCashRegister(ctx context.Context, id string, closingBalanceCents int64) error {
	if strings.TrimSpace(id) == "" || closingBalanceCents < 0 {
		return store.ErrInvalidInput
	}

	if err := s.repo.CloseCashRegister(ctx, id, closingBalanceCents); err != nil {
		return err
	}

	s.broadcast(ctx, notify.TopicCashRegister)
	return nil
}

func (s *Service) DeleteCashRegister(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}

	if err := s.repo.DeleteCashRegister(ctx, id); err != nil {
		return err
	}

	s.broadcast(ctx, notify.TopicCashRegister)
	return nil
}

func (s *Service) AddCashMovement(ctx context.Context, movement domain.CashMovement) (*domain.CashMovement, error) {
	movement.Description = strings.TrimSpace(movement.Description)
	if movement.CashRegisterID == "" || movement.AmountCents < 1 {
		return nil, store.ErrInvalidInput
	}

	created, err := s.repo.AddCashMovement(ctx, movement)
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, notify.TopicCashRegister)
	return created, nil
}

func (s *Service) ListCashMovements(ctx context.Context, cashRegisterID string) ([]domain.CashMovement, error) {
	if strings.TrimSpace(cashRegisterID) == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListCashMovements(ctx, cashRegisterID)
}

func (s *Service) ConfirmCashMovement(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}

	if err := s.repo.ConfirmCashMovement(ctx, id); err != nil {
		return err
	}

	s.broadcast(ctx, notify.TopicCashRegister)
	return nil
}

func (s *Service) CreateUser(ctx context.Context, username string, password string, role string) (*domain.UserAccount, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	username = strings.ToLower(strings.TrimSpace(username))
	role = strings.ToLower(strings.TrimSpace(role))
	if username == "" || len(password) < 6 {
		return nil, store.ErrInvalidInput
	}
	if role != "admin" && role != "cashier" {
		return nil, store.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return s.repo.CreateUser(ctx, domain.UserAccount{
		Username: username,
		Password: string(hash),
		Role:     role,
		Active:   true,
	})
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// ChangePassword lets an operator rotate their own credential, or an admin
// rotate anyone's.
func (s *Service) ChangePassword(ctx context.Context, username string, newPassword string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("authenticated operator required")
	}

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || len(newPassword) < 6 {
		return store.ErrInvalidInput
	}
	if actor.Role != "admin" && actor.Username != username {
		return fmt.Errorf("admin role required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdateUserPassword(ctx, username, string(hash))
}
