package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/repositories"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/pkg/collection"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

// Service reads orders and moves them through their statuses.
type Service struct {
	orders *repositories.Repository[models.Order]
	items  *repositories.Repository[models.OrderItem]
}

func NewService(db store.Client) *Service {
	return &Service{
		orders: repositories.Orders(db),
		items:  repositories.OrderItems(db),
	}
}

// History returns the owner's orders with their items, newest first.
func (s *Service) History(ctx context.Context, owner string) ([]models.Order, error) {
	orders, err := s.orders.Where(ctx, store.Eq("owner_id", owner))
	if err != nil {
		return nil, fmt.Errorf("orders: history: %w", err)
	}
	return s.withItems(ctx, orders)
}

func (s *Service) Get(ctx context.Context, owner, id string) (models.Order, error) {
	o, err := s.orders.First(ctx, store.Eq("id", id).Eq("owner_id", owner))
	if err != nil {
		return models.Order{}, err
	}
	out, err := s.withItems(ctx, []models.Order{o})
	if err != nil {
		return models.Order{}, err
	}
	return out[0], nil
}

// List returns every order, optionally with one status, newest first.
func (s *Service) List(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	q := store.All()
	if status != "" {
		q = q.Eq("status", status)
	}
	orders, err := s.orders.Where(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	return s.withItems(ctx, orders)
}

// UpdateStatus moves an order forward, or cancels it before delivery.
// Cancelling does not return stock.
func (s *Service) UpdateStatus(ctx context.Context, id string, next models.OrderStatus) (models.Order, error) {
	if !next.Valid() {
		return models.Order{}, errs.Invalid("status", fmt.Sprintf("Unknown status %q.", next))
	}
	o, err := s.orders.Find(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if !o.Status.CanTransition(next) {
		return models.Order{}, errs.Conflict(fmt.Sprintf("order is %s and cannot become %s", o.Status, next))
	}

	now := time.Now().UTC()
	n, err := s.orders.UpdateWhere(ctx, store.Eq("id", id).Eq("status", o.Status),
		map[string]any{"status": next, "updated_at": now})
	if err != nil {
		return models.Order{}, errs.RemoteWrite("update order status", err)
	}
	if n == 0 {
		return models.Order{}, errs.Conflict("order status changed concurrently")
	}

	logger.WithCtx(ctx).Info("orders: status changed", "order_id", id, "from", o.Status, "to", next)
	o.Status = next
	o.UpdatedAt = now
	return o, nil
}

func (s *Service) withItems(ctx context.Context, orders []models.Order) ([]models.Order, error) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	if len(orders) == 0 {
		return orders, nil
	}

	ids := collection.Map(orders, func(o models.Order) string { return o.ID })
	items, err := s.items.Where(ctx, store.In(store.All(), "order_id", ids))
	if err != nil {
		return nil, fmt.Errorf("orders: load items: %w", err)
	}

	byOrder := collection.GroupBy(items, func(it models.OrderItem) string { return it.OrderID })
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return orders, nil
}
