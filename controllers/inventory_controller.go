package controllers

import (
	"errors"
	"strconv"

	"apteka-backend/models"
	"apteka-backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// InventoryController контроллер склада: чтение остатков, выдача и пополнение
type InventoryController struct {
	DB        *gorm.DB
	Ledger    *services.LedgerService
	Dispenser *services.DispenseService
}

// NewInventoryController создает новый экземпляр InventoryController
func NewInventoryController(db *gorm.DB) *InventoryController {
	ledger := services.NewLedgerService(db)
	return &InventoryController{
		DB:        db,
		Ledger:    ledger,
		Dispenser: services.NewDispenseService(db, ledger),
	}
}

// DispenseRequest структура запроса выдачи товара
type DispenseRequest struct {
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Reason   string `json:"reason" validate:"max=500"`
}

// ReplenishRequest структура запроса пополнения остатка
type ReplenishRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// ItemResponse структура ответа с товаром
type ItemResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Item    *models.InventoryItem `json:"item,omitempty"`
}

// ItemsResponse структура ответа со списком товаров
type ItemsResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Items   []models.InventoryItem `json:"items"`
	Total   int                    `json:"total"`
}

// DispenseResponse структура ответа на выдачу товара
type DispenseResponse struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Item      *models.InventoryItem  `json:"item,omitempty"`
	Record    *models.DispenseRecord `json:"record,omitempty"`
	Available *int                   `json:"available,omitempty"`
}

// statusForError переводит типизированную ошибку движка в HTTP статус
func statusForError(err error) int {
	var insufficient *services.InsufficientStockError
	var validation *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidQuantity), errors.As(err, &validation):
		return fiber.StatusBadRequest
	case errors.As(err, &insufficient), errors.Is(err, services.ErrConcurrencyConflict):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrOutcomeUnknown):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// parseItemID извлекает идентификатор товара из параметров маршрута
func parseItemID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// GetItems возвращает снимок всех товаров склада
func (ic *InventoryController) GetItems(c *fiber.Ctx) error {
	items, err := ic.Ledger.ListAll(c.UserContext())
	if err != nil {
		return c.Status(500).JSON(ItemsResponse{
			Success: false,
			Message: "Ошибка при получении списка товаров",
		})
	}

	return c.JSON(ItemsResponse{
		Success: true,
		Message: "Товары получены",
		Items:   items,
		Total:   len(items),
	})
}

// GetItem возвращает товар по идентификатору со свежим статусом
func (ic *InventoryController) GetItem(c *fiber.Ctx) error {
	itemID, err := parseItemID(c)
	if err != nil {
		return c.Status(400).JSON(ItemResponse{
			Success: false,
			Message: "Неверный идентификатор товара",
		})
	}

	item, err := ic.Ledger.GetItem(c.UserContext(), itemID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(ItemResponse{
			Success: false,
			Message: "Товар не найден",
		})
	}

	return c.JSON(ItemResponse{
		Success: true,
		Message: "Товар найден",
		Item:    item,
	})
}

// GetLowStock возвращает товары ниже минимального порога
func (ic *InventoryController) GetLowStock(c *fiber.Ctx) error {
	items, err := ic.Ledger.ListLowStock(c.UserContext())
	if err != nil {
		return c.Status(500).JSON(ItemsResponse{
			Success: false,
			Message: "Ошибка при получении товаров с низким остатком",
		})
	}

	return c.JSON(ItemsResponse{
		Success: true,
		Message: "Товары с низким остатком получены",
		Items:   items,
		Total:   len(items),
	})
}

// GetExpiring возвращает товары с истекающим сроком годности.
// Параметр within_days задает окно в днях, по умолчанию 30.
func (ic *InventoryController) GetExpiring(c *fiber.Ctx) error {
	withinDays := 0
	if raw := c.Query("within_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.Status(400).JSON(ItemsResponse{
				Success: false,
				Message: "Параметр within_days должен быть положительным целым числом",
			})
		}
		withinDays = parsed
	}

	items, err := ic.Ledger.ListExpiring(c.UserContext(), withinDays)
	if err != nil {
		return c.Status(500).JSON(ItemsResponse{
			Success: false,
			Message: "Ошибка при получении товаров с истекающим сроком",
		})
	}

	return c.JSON(ItemsResponse{
		Success: true,
		Message: "Товары с истекающим сроком получены",
		Items:   items,
		Total:   len(items),
	})
}

// Dispense выдает товар со склада: атомарно списывает остаток
// и добавляет запись аудита
func (ic *InventoryController) Dispense(c *fiber.Ctx) error {
	itemID, err := parseItemID(c)
	if err != nil {
		return c.Status(400).JSON(DispenseResponse{
			Success: false,
			Message: "Неверный идентификатор товара",
		})
	}

	var req DispenseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(DispenseResponse{
			Success: false,
			Message: "Неверный формат данных",
		})
	}

	item, record, err := ic.Dispenser.Dispense(c.UserContext(), itemID, req.Quantity, req.Reason)
	if err != nil {
		resp := DispenseResponse{
			Success: false,
			Message: err.Error(),
		}
		// Для нехватки запасов отдаем доступный остаток, чтобы клиент
		// мог показать точное сообщение
		var insufficient *services.InsufficientStockError
		if errors.As(err, &insufficient) {
			resp.Available = &insufficient.Available
		}
		return c.Status(statusForError(err)).JSON(resp)
	}

	return c.JSON(DispenseResponse{
		Success: true,
		Message: "Выдача выполнена",
		Item:    item,
		Record:  record,
	})
}

// Replenish пополняет остаток товара через общий путь записи журнала
func (ic *InventoryController) Replenish(c *fiber.Ctx) error {
	itemID, err := parseItemID(c)
	if err != nil {
		return c.Status(400).JSON(ItemResponse{
			Success: false,
			Message: "Неверный идентификатор товара",
		})
	}

	var req ReplenishRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(ItemResponse{
			Success: false,
			Message: "Неверный формат данных",
		})
	}

	if req.Quantity <= 0 {
		return c.Status(400).JSON(ItemResponse{
			Success: false,
			Message: "Количество пополнения должно быть положительным",
		})
	}

	item, err := ic.Ledger.ApplyDelta(c.UserContext(), itemID, req.Quantity)
	if err != nil {
		return c.Status(statusForError(err)).JSON(ItemResponse{
			Success: false,
			Message: err.Error(),
		})
	}

	return c.JSON(ItemResponse{
		Success: true,
		Message: "Остаток пополнен",
		Item:    item,
	})
}
