package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout: формат даты заказа (календарный день без времени).
const DateLayout = "2006-01-02"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending: заказ создан и ждёт оплаты.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid: оплата получена.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusDelivered: заказ доставлен клиенту.
	OrderStatusDelivered OrderStatus = "delivered"
)

// Valid сообщает, является ли статус одним из известных значений.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// Label возвращает подпись статуса для интерфейса.
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusPending:
		return "En Attente"
	case OrderStatusPaid:
		return "Payée"
	case OrderStatusDelivered:
		return "Livrée"
	default:
		return string(s)
	}
}

// ParseOrderStatus разбирает статус из пользовательского ввода.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrStatusInvalid, raw)
	}
	return status, nil
}

// ParseDate разбирает дату заказа в формате YYYY-MM-DD.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrDateInvalid, raw)
	}
	return t, nil
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// Description: что именно продаётся.
	Description string `json:"description"`
	// Price: цена за единицу.
	Price decimal.Decimal `json:"price"`
	// Quantity: количество единиц, не меньше одной.
	Quantity int `json:"quantity"`
}

// Subtotal возвращает price * quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// MarshalJSON пишет цену числом, а не строкой, как в сохранённом формате.
func (i OrderItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Description string      `json:"description"`
		Price       json.Number `json:"price"`
		Quantity    int         `json:"quantity"`
	}{
		Description: i.Description,
		Price:       json.Number(i.Price.String()),
		Quantity:    i.Quantity,
	})
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID         string          `json:"id"`
	ClientName string          `json:"clientName"`
	Date       string          `json:"date"`
	Items      []OrderItem     `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Status     OrderStatus     `json:"status"`
}

// MarshalJSON пишет total числом; пустой список позиций сериализуется как [].
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	items := o.Items
	if items == nil {
		items = []OrderItem{}
	}
	return json.Marshal(struct {
		plain
		Items []OrderItem `json:"items"`
		Total json.Number `json:"total"`
	}{
		plain: plain(o),
		Items: items,
		Total: json.Number(o.Total.String()),
	})
}

// ComputeTotal считает сумму price * quantity по всем позициям.
func (o Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Recalculate пересчитывает Total по текущим позициям.
func (o *Order) Recalculate() {
	o.Total = o.ComputeTotal()
}

// Clone возвращает копию заказа, не разделяющую слайс позиций с оригиналом.
func (o Order) Clone() Order {
	if o.Items != nil {
		o.Items = append([]OrderItem(nil), o.Items...)
	}
	return o
}

// ValidateInvariants проверяет инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if strings.TrimSpace(o.ID) == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if strings.TrimSpace(o.ClientName) == "" {
		errs = append(errs, ErrClientNameRequired)
	}
	if _, err := ParseDate(o.Date); err != nil {
		errs = append(errs, ErrDateInvalid)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusInvalid)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	for _, item := range o.Items {
		if strings.TrimSpace(item.Description) == "" {
			errs = append(errs, ErrItemDescriptionRequired)
		}
		if !item.Price.IsPositive() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if item.Quantity < 1 {
			errs = append(errs, ErrItemQtyInvalid)
		}
	}

	return errs
}
