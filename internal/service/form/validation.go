package form

import (
	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// ValidationError: блокирующая ошибка формы, показывается пользователю как есть.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate проверяет нормализованный черновик и возвращает первую найденную ошибку.
func Validate(d Draft) error {
	if d.ClientName == "" {
		return &ValidationError{Field: "clientName", Message: MessageClientNameRequired, Err: domain.ErrClientNameRequired}
	}
	if len(d.Items) == 0 {
		return &ValidationError{Field: "items", Message: MessageItemsInvalid, Err: domain.ErrItemsRequired}
	}
	for _, item := range d.Items {
		if item.Description == "" {
			return &ValidationError{Field: "items", Message: MessageItemsInvalid, Err: domain.ErrItemDescriptionRequired}
		}
		if !item.Price.IsPositive() {
			return &ValidationError{Field: "items", Message: MessageItemsInvalid, Err: domain.ErrItemPriceInvalid}
		}
	}
	if _, err := domain.ParseDate(d.Date); err != nil {
		return &ValidationError{Field: "date", Message: MessageDateInvalid, Err: domain.ErrDateInvalid}
	}
	if !d.Status.Valid() {
		return &ValidationError{Field: "status", Message: MessageStatusInvalid, Err: domain.ErrStatusInvalid}
	}
	return nil
}
