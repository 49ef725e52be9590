package store

import (
	"context"
	"errors"
	"fmt"

	"unipos/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalidInput = errors.New("invalid input")
	ErrNoChanges    = errors.New("no changes")
)

// InsufficientStockError aborts an order when an ingredient cannot cover the
// requested deduction. The ingredient display name is part of the message so
// the operator can react (substitute the item, restock).
type InsufficientStockError struct {
	Ingredient string
	Required   int64
	Available  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for ingredient %s. Required: %d, Available: %d",
		e.Ingredient, e.Required, e.Available)
}

// Repository is the persistence contract shared by the postgres and in-memory
// stores. Order placement methods each run as one atomic unit: on any error
// the store is left exactly as it was before the call.
type Repository interface {
	// Ingredients
	ListIngredients(ctx context.Context) ([]domain.Ingredient, error)
	GetIngredient(ctx context.Context, id string) (*domain.Ingredient, error)
	CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	UpdateIngredient(ctx context.Context, id string, patch domain.IngredientPatch) error
	DeleteIngredient(ctx context.Context, id string) error
	IngredientCards(ctx context.Context) (domain.IngredientCards, error)

	// Products
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) error
	DeleteProduct(ctx context.Context, id string) error

	// Recipes (product bill of materials)
	ListRecipe(ctx context.Context, productID string) ([]domain.RecipeEntry, error)
	AddRecipeLine(ctx context.Context, line domain.RecipeLine) (*domain.RecipeLine, error)
	UpdateRecipeLine(ctx context.Context, id string, quantity int64) error
	DeleteRecipeLine(ctx context.Context, id string) error

	// Orders
	ListOrders(ctx context.Context) ([]domain.OrderSummary, error)
	CreateOrder(ctx context.Context, order domain.OrderCreate) (*domain.Sale, error)
	CreateOrderPaid(ctx context.Context, order domain.OrderCreatePaid) (*domain.Sale, error)
	SettleOrder(ctx context.Context, settle domain.OrderSettle) error
	CancelOrder(ctx context.Context, saleID string) error
	ListSaleLines(ctx context.Context, saleID string) ([]domain.OrderLine, error)
	ListSalePayments(ctx context.Context, saleID string) ([]domain.PaymentRecord, error)
	NextReceiptNumber(ctx context.Context) (string, error)

	// Customers exist only as inline fields on a sale; listing reads them
	// back out and deleting removes the whole sale scope.
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	DeleteSale(ctx context.Context, saleID string) error

	// Cash register sessions
	ListCashRegisters(ctx context.Context) ([]domain.CashRegisterSummary, error)
	GetCashRegister(ctx context.Context, id string) (*domain.CashRegisterSession, error)
	OpenCashRegister(ctx context.Context, userID string, openingBalanceCents int64) (*domain.CashRegisterSession, error)
	CloseCashRegister(ctx context.Context, id string, closingBalanceCents int64) error
	DeleteCashRegister(ctx context.Context, id string) error
	AddCashMovement(ctx context.Context, movement domain.CashMovement) (*domain.CashMovement, error)
	ListCashMovements(ctx context.Context, cashRegisterID string) ([]domain.CashMovement, error)
	ConfirmCashMovement(ctx context.Context, id string) error

	// Users
	CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, passwordHash string) error
}
