package notify

import "context"

// Notifier pushes data-changed signals to connected dashboards. Delivery is
// best effort: a lost signal only delays a refresh, it never affects the
// underlying operation.
type Notifier interface {
	DataChanged(ctx context.Context, topic string) error
}

// Topics published on order and stock mutations.
const (
	TopicOrders       = "orders"
	TopicIngredients  = "ingredients"
	TopicProducts     = "products"
	TopicCashRegister = "cash-register"
)

type Noop struct{}

func (Noop) DataChanged(_ context.Context, _ string) error {
	return nil
}
