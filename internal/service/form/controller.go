package form

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

const maxIDAttempts = 3

// OrderWriter: мутаторы хранилища, которые вызывает форма.
type OrderWriter interface {
	Create(ctx context.Context, order domain.Order) (domain.Order, error)
	Update(ctx context.Context, id string, order domain.Order) (domain.Order, error)
}

// Controller превращает черновик в заказ и передаёт его хранилищу.
// Уведомления об успехе публикует само хранилище.
type Controller struct {
	store  OrderWriter
	ids    *IDGenerator
	now    func() time.Time
	logger *log.Entry
}

// NewController создаёт контроллер формы.
func NewController(store OrderWriter, ids *IDGenerator, logger *log.Entry) *Controller {
	if ids == nil {
		ids = NewIDGenerator(nil)
	}
	if logger == nil {
		logger = log.WithField("component", "order-form")
	}
	return &Controller{
		store:  store,
		ids:    ids,
		now:    time.Now,
		logger: logger,
	}
}

// Submit проверяет черновик и создаёт заказ (editingID пуст) или заменяет
// существующий. Ошибка проверки возвращается как *ValidationError.
func (c *Controller) Submit(ctx context.Context, draft Draft, editingID string) (domain.Order, error) {
	normalized := draft.normalize(c.now())
	if err := Validate(normalized); err != nil {
		return domain.Order{}, err
	}

	order := buildOrder(normalized)

	if editingID != "" {
		order.ID = editingID
		return c.store.Update(ctx, editingID, order)
	}

	var lastErr error
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		order.ID = c.ids.Next()
		created, err := c.store.Create(ctx, order)
		if err == nil || !errors.Is(err, domain.ErrOrderAlreadyExists) {
			return created, err
		}
		lastErr = err
		c.logger.WithField("order_id", order.ID).Warn("generated order id already taken, retrying")
	}

	return domain.Order{}, fmt.Errorf("allocate order id after %d attempts: %w", maxIDAttempts, lastErr)
}

func buildOrder(d Draft) domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem(item))
	}

	order := domain.Order{
		ClientName: d.ClientName,
		Date:       d.Date,
		Items:      items,
		Status:     d.Status,
	}
	order.Recalculate()
	return order
}
