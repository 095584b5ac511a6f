// Package form проверяет черновик заказа из формы и передаёт его в хранилище.
package form

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// Тексты ошибок формы.
const (
	MessageClientNameRequired = "Veuillez entrer le nom du client"
	MessageItemsInvalid       = "Veuillez ajouter au moins un article valide"
	MessageDateInvalid        = "Veuillez entrer une date valide"
	MessageStatusInvalid      = "Veuillez choisir un statut valide"
)

// DraftItem: строка позиции в форме.
type DraftItem struct {
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Draft: содержимое формы заказа до проверки.
type Draft struct {
	ClientName string             `json:"clientName"`
	Date       string             `json:"date"`
	Items      []DraftItem        `json:"items"`
	Status     domain.OrderStatus `json:"status"`
}

// NewDraft возвращает значения формы нового заказа: сегодняшняя дата,
// одна пустая позиция и статус pending.
func NewDraft(now time.Time) Draft {
	return Draft{
		Date:   now.Format(domain.DateLayout),
		Items:  []DraftItem{{Price: decimal.Zero, Quantity: 1}},
		Status: domain.OrderStatusPending,
	}
}

// DraftFromOrder заполняет форму данными существующего заказа.
func DraftFromOrder(order domain.Order) Draft {
	items := make([]DraftItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, DraftItem(item))
	}
	return Draft{
		ClientName: order.ClientName,
		Date:       order.Date,
		Items:      items,
		Status:     order.Status,
	}
}

// Total возвращает текущую сумму формы с учётом приведения количества.
func (d Draft) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(normalizeQuantity(item.Quantity)))))
	}
	return total
}

// normalize приводит черновик к виду, который можно проверять.
func (d Draft) normalize(now time.Time) Draft {
	out := Draft{
		ClientName: strings.TrimSpace(d.ClientName),
		Date:       strings.TrimSpace(d.Date),
		Status:     domain.OrderStatus(strings.ToLower(strings.TrimSpace(string(d.Status)))),
		Items:      make([]DraftItem, 0, len(d.Items)),
	}
	if out.Date == "" {
		out.Date = now.Format(domain.DateLayout)
	}
	if out.Status == "" {
		out.Status = domain.OrderStatusPending
	}
	for _, item := range d.Items {
		out.Items = append(out.Items, DraftItem{
			Description: strings.TrimSpace(item.Description),
			Price:       item.Price,
			Quantity:    normalizeQuantity(item.Quantity),
		})
	}
	return out
}

func normalizeQuantity(qty int) int {
	if qty < 1 {
		return 1
	}
	return qty
}

// MarshalJSON пишет цену числом, как в сохранённых заказах.
func (i DraftItem) MarshalJSON() ([]byte, error) {
	return domain.OrderItem(i).MarshalJSON()
}
