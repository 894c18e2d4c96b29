package controllers

import (
	"errors"
	"testing"

	"apteka-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"товар не найден", services.ErrNotFound, fiber.StatusNotFound},
		{"неверное количество", services.ErrInvalidQuantity, fiber.StatusBadRequest},
		{"ошибка валидации", &services.ValidationError{Message: "слишком длинная причина"}, fiber.StatusBadRequest},
		{"нехватка запасов", &services.InsufficientStockError{Available: 4, Requested: 5}, fiber.StatusConflict},
		{"конфликт конкурентной записи", services.ErrConcurrencyConflict, fiber.StatusConflict},
		{"исход неизвестен", services.ErrOutcomeUnknown, fiber.StatusServiceUnavailable},
		{"прочий сбой", errors.New("connection reset"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusForError(tt.err))
		})
	}
}
