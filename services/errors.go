package services

import (
	"errors"
	"fmt"
)

// Типизированные ошибки движка склада. Все они восстановимы для вызывающей
// стороны: повтор запроса, исправление ввода или перечитывание состояния.
var (
	// ErrNotFound товар или запись не найдены
	ErrNotFound = errors.New("товар не найден")

	// ErrInvalidQuantity количество выдачи не является положительным целым
	ErrInvalidQuantity = errors.New("количество должно быть положительным целым числом")

	// ErrConcurrencyConflict обнаружена конкурирующая запись, вызывающая сторона должна повторить
	ErrConcurrencyConflict = errors.New("конфликт конкурентной записи, повторите запрос")

	// ErrOutcomeUnknown запись прервана тайм-аутом: исход неизвестен,
	// перед повтором необходимо перечитать состояние склада
	ErrOutcomeUnknown = errors.New("исход операции неизвестен, перечитайте состояние перед повтором")
)

// InsufficientStockError возникает, когда запрошенное количество превышает остаток.
// Несет доступный остаток, чтобы вызывающая сторона могла показать точное сообщение.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("недостаточно запасов: доступно %d, запрошено %d", e.Available, e.Requested)
}

// ValidationError ошибка валидации входных данных на границе
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
