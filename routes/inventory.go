package routes

import (
	"apteka-backend/controllers"

	"github.com/gofiber/fiber/v2"
)

// SetupInventoryRoutes настраивает маршруты склада
func SetupInventoryRoutes(app *fiber.App, inventoryController *controllers.InventoryController) {
	inventory := app.Group("/api/inventory")

	// GET /api/inventory/health - проверка работоспособности (должен быть перед параметрическим маршрутом)
	inventory.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Inventory service is running",
		})
	})

	// GET /api/inventory/low-stock - товары ниже минимального порога
	inventory.Get("/low-stock", inventoryController.GetLowStock)

	// GET /api/inventory/expiring - товары с истекающим сроком годности
	inventory.Get("/expiring", inventoryController.GetExpiring)

	// GET /api/inventory - снимок всех товаров
	inventory.Get("/", inventoryController.GetItems)

	// GET /api/inventory/:id - товар по идентификатору
	inventory.Get("/:id", inventoryController.GetItem)

	// POST /api/inventory/:id/dispense - выдать товар со склада
	inventory.Post("/:id/dispense", inventoryController.Dispense)

	// POST /api/inventory/:id/replenish - пополнить остаток товара
	inventory.Post("/:id/replenish", inventoryController.Replenish)
}
