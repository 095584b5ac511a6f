package domain

import "errors"

var (
	// Ошибка отсутствующего имени клиента.
	ErrClientNameRequired = errors.New("client name is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка позиции без описания.
	ErrItemDescriptionRequired = errors.New("item description is required")
	// Ошибка, если цена позиции не положительная.
	ErrItemPriceInvalid = errors.New("item price must be greater than zero")
	// Ошибка при некорректном количестве товара (< 1).
	ErrItemQtyInvalid = errors.New("item quantity must be at least one")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order id is required")
	// Ошибка неизвестного статуса заказа.
	ErrStatusInvalid = errors.New("order status is invalid")
	// Ошибка даты, не соответствующей формату YYYY-MM-DD.
	ErrDateInvalid = errors.New("order date must use YYYY-MM-DD")
	// ErrInvalidOrder оборачивает нарушения инвариантов, найденные при мутации.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrOrderNotFound возвращается, если заказ не найден в коллекции.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists возвращается при создании заказа с уже занятым ID.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrOrderIDMismatch: попытка сменить идентификатор при обновлении.
	ErrOrderIDMismatch = errors.New("order id cannot be changed")
	// ErrPersistFailed: коллекция изменена в памяти, но не записана в хранилище.
	ErrPersistFailed = errors.New("persist orders failed")
	// ErrKeyNotFound возвращается key-value хранилищем для отсутствующего ключа.
	ErrKeyNotFound = errors.New("key not found")
	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound проверяет, сообщает ли ошибка об отсутствии заказа или ключа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrKeyNotFound)
}
