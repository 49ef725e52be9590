package domain

import "time"

// Expiration status of an ingredient, derived from its expiration timestamp.
const (
	ExpirationValid      = "valid"
	ExpirationNearExpiry = "near-expiry"
	ExpirationExpired    = "expired"
)

// NearExpiryWindow is how far ahead of the expiration timestamp an
// ingredient is reported as near-expiry.
const NearExpiryWindow = 30 * 24 * time.Hour

type Ingredient struct {
	ID            string     `json:"id"`
	ItemName      string     `json:"item_name"`
	BatchNumber   string     `json:"batch_number"`
	PackageSize   string     `json:"package_size"`
	UnitOfMeasure string     `json:"unit_of_measure"`
	Quantity      int64      `json:"quantity"`
	UnitCostCents int64      `json:"unit_cost_cents"`
	ExpirationAt  *time.Time `json:"expiration_at,omitempty"`
	Active        bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// ExpirationStatus derives the reporting status relative to now. Ingredients
// without an expiration timestamp are always valid.
func (i Ingredient) ExpirationStatus(now time.Time) string {
	return ExpirationStatusAt(i.ExpirationAt, now)
}

func ExpirationStatusAt(expirationAt *time.Time, now time.Time) string {
	if expirationAt == nil {
		return ExpirationValid
	}
	if expirationAt.Before(now) {
		return ExpirationExpired
	}
	if !expirationAt.After(now.Add(NearExpiryWindow)) {
		return ExpirationNearExpiry
	}
	return ExpirationValid
}

// IngredientPatch carries the optional fields of a partial ingredient update.
// Nil fields are left untouched; an all-nil patch is rejected as a no-op.
type IngredientPatch struct {
	ItemName      *string    `json:"item_name,omitempty"`
	BatchNumber   *string    `json:"batch_number,omitempty"`
	PackageSize   *string    `json:"package_size,omitempty"`
	UnitOfMeasure *string    `json:"unit_of_measure,omitempty"`
	Quantity      *int64     `json:"quantity,omitempty"`
	UnitCostCents *int64     `json:"unit_cost_cents,omitempty"`
	ExpirationAt  *time.Time `json:"expiration_at,omitempty"`
	Active        *bool      `json:"is_active,omitempty"`
}

func (p IngredientPatch) Empty() bool {
	return p.ItemName == nil && p.BatchNumber == nil && p.PackageSize == nil &&
		p.UnitOfMeasure == nil && p.Quantity == nil && p.UnitCostCents == nil &&
		p.ExpirationAt == nil && p.Active == nil
}

// IngredientCards is the stock summary shown on the ingredients dashboard.
type IngredientCards struct {
	ActiveCount     int   `json:"active_count"`
	InactiveCount   int   `json:"inactive_count"`
	TotalActiveQty  int64 `json:"total_active_qty"`
	NearExpiryCount int   `json:"near_expiry_count"`
	ExpiredCount    int   `json:"expired_count"`
}

type Product struct {
	ID         string    `json:"id"`
	ItemName   string    `json:"item_name"`
	ImageURL   string    `json:"image_url"`
	PriceCents int64     `json:"price_cents"`
	Category   string    `json:"category"`
	Active     bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type ProductPatch struct {
	ItemName   *string `json:"item_name,omitempty"`
	ImageURL   *string `json:"image_url,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	Category   *string `json:"category,omitempty"`
	Active     *bool   `json:"is_active,omitempty"`
}

func (p ProductPatch) Empty() bool {
	return p.ItemName == nil && p.ImageURL == nil && p.PriceCents == nil &&
		p.Category == nil && p.Active == nil
}

// RecipeLine links a product to one ingredient it consumes, with the
// quantity required per single unit of the product.
type RecipeLine struct {
	ID           string `json:"id"`
	ProductID    string `json:"product_id"`
	IngredientID string `json:"ingredient_id"`
	Quantity     int64  `json:"quantity"`
}

// RecipeEntry is the read model for a product's bill of materials. The
// display name combines the ingredient name with its package size and unit,
// e.g. "Bun 6 pc".
type RecipeEntry struct {
	ID           string `json:"id"`
	IngredientID string `json:"ingredient_id"`
	DisplayName  string `json:"item_name"`
	Quantity     int64  `json:"quantity"`
}

// Order line status.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

// Payment methods accepted at the till.
const (
	PaymentCash  = "cash"
	PaymentEMola = "emola"
	PaymentMPesa = "mpesa"
)

type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// PaymentSplit carries the per-method amounts of a payment. A sale may be
// split across methods; zero amounts mean the method was not used.
type PaymentSplit struct {
	CashCents  int64 `json:"cash_cents"`
	EMolaCents int64 `json:"emola_cents"`
	MPesaCents int64 `json:"mpesa_cents"`
}

type PaymentRow struct {
	Method      string
	AmountCents int64
}

// Rows expands the split into one row per method actually used. Amounts of
// zero or less are skipped, never recorded.
func (p PaymentSplit) Rows() []PaymentRow {
	rows := make([]PaymentRow, 0, 3)
	if p.CashCents > 0 {
		rows = append(rows, PaymentRow{Method: PaymentCash, AmountCents: p.CashCents})
	}
	if p.EMolaCents > 0 {
		rows = append(rows, PaymentRow{Method: PaymentEMola, AmountCents: p.EMolaCents})
	}
	if p.MPesaCents > 0 {
		rows = append(rows, PaymentRow{Method: PaymentMPesa, AmountCents: p.MPesaCents})
	}
	return rows
}

func (p PaymentSplit) TotalCents() int64 {
	total := int64(0)
	for _, row := range p.Rows() {
		total += row.AmountCents
	}
	return total
}

// OrderCreate opens a deferred tab: lines start pending and no payment is
// taken yet. The customer is created inline with the sale.
type OrderCreate struct {
	CashRegisterID string      `json:"cash_register_id"`
	CustomerName   string      `json:"customer_name"`
	CustomerPhone  string      `json:"customer_phone"`
	Items          []OrderItem `json:"items"`
}

// OrderCreatePaid places and settles an order in one step: lines start paid
// and the payment split is recorded atomically with the sale.
type OrderCreatePaid struct {
	CashRegisterID string       `json:"cash_register_id"`
	Payment        PaymentSplit `json:"payment"`
	PaidCents      int64        `json:"paid_cents"`
	ChangeCents    int64        `json:"change_cents"`
	Items          []OrderItem  `json:"items"`
}

// OrderSettle pays off a previously created tab.
type OrderSettle struct {
	SaleID      string       `json:"sale_id"`
	Payment     PaymentSplit `json:"payment"`
	PaidCents   int64        `json:"paid_cents"`
	ChangeCents int64        `json:"change_cents"`
}

// Sale is the order header. Customer identity lives inline on the sale; the
// aggregate paid/change totals stay zero until the sale is settled.
type Sale struct {
	ID             string    `json:"id"`
	CashRegisterID string    `json:"cash_register_id"`
	CustomerName   string    `json:"customer_name"`
	CustomerPhone  string    `json:"customer_phone"`
	PaidCents      int64     `json:"paid_cents"`
	ChangeCents    int64     `json:"change_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

type OrderLine struct {
	ID             string `json:"id"`
	SaleID         string `json:"sale_id"`
	ProductID      string `json:"product_id"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Status         string `json:"status"`
}

type PaymentRecord struct {
	ID          string    `json:"id"`
	SaleID      string    `json:"sale_id"`
	Method      string    `json:"method"`
	AmountCents int64     `json:"amount_cents"`
	Paid        bool      `json:"is_paid"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrderSummary is the per-sale aggregate row of the orders listing.
type OrderSummary struct {
	SaleID          string    `json:"sale_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	Description     string    `json:"description"`
	TotalQty        int64     `json:"total_qty"`
	TotalToPayCents int64     `json:"total_to_pay_cents"`
	PaidCents       int64     `json:"paid_cents"`
	ChangeCents     int64     `json:"change_cents"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// Customer is the inline customer record of a deferred order, read back out
// of the sale header. There is no customer master data.
type Customer struct {
	SaleID      string    `json:"sale_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	PaidCents   int64     `json:"paid_cents"`
	ChangeCents int64     `json:"change_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

// Cash movement kinds inside a register session.
const (
	MovementOpened  = "opened"
	MovementCashIn  = "cash-in"
	MovementCashOut = "cash-out"
	MovementClosed  = "closed"
)

type CashRegisterSession struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"`
	Open                bool       `json:"is_open"`
	OpeningBalanceCents int64      `json:"opening_balance_cents"`
	ClosingBalanceCents int64      `json:"closing_balance_cents"`
	OpenedAt            time.Time  `json:"opened_at"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`
}

// CashRegisterSummary joins the session with its operator's username.
type CashRegisterSummary struct {
	CashRegisterSession
	Operator string `json:"operator"`
}

type CashMovement struct {
	ID             string     `json:"id"`
	CashRegisterID string     `json:"cash_register_id"`
	Kind           string     `json:"kind"`
	AmountCents    int64      `json:"amount_cents"`
	Description    string     `json:"description"`
	Confirmed      bool       `json:"confirmed"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type UserAccount struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Actor struct {
	ID       string
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}
