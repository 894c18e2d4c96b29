package main

import (
	"time"

	"apteka-backend/controllers"
	"apteka-backend/models"
	"apteka-backend/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB создает тестовую базу данных в памяти
func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("Failed to connect to test database")
	}
	// У sqlite каждая новая связь с ":memory:" открывает отдельную базу,
	// поэтому пул ограничивается одним соединением
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	db.AutoMigrate(&models.Supplier{}, &models.InventoryItem{}, &models.DispenseRecord{})
	return db
}

// createTestApp создает тестовое приложение
func createTestApp(db *gorm.DB) *fiber.App {
	app := fiber.New()

	// Инициализация контроллеров
	inventoryController := controllers.NewInventoryController(db)
	analyticsController := controllers.NewAnalyticsController(db)

	// Настройка маршрутов
	routes.SetupInventoryRoutes(app, inventoryController)
	routes.SetupAnalyticsRoutes(app, analyticsController)

	return app
}

// createTestItem создает тестовый товар склада
func createTestItem(db *gorm.DB, name, category string, quantity, minRequired int, price string) *models.InventoryItem {
	item := models.InventoryItem{
		Name:        name,
		Category:    category,
		Quantity:    quantity,
		MinRequired: minRequired,
		UnitPrice:   decimal.RequireFromString(price),
	}
	db.Create(&item)
	item.DeriveStatus()
	return &item
}

// createTestItemStruct собирает товар без сохранения в базу
func createTestItemStruct(name, category string, quantity, minRequired int, price string) *models.InventoryItem {
	return &models.InventoryItem{
		Name:        name,
		Category:    category,
		Quantity:    quantity,
		MinRequired: minRequired,
		UnitPrice:   decimal.RequireFromString(price),
	}
}

// createTestSupplier создает тестового поставщика
func createTestSupplier(db *gorm.DB, name string) *models.Supplier {
	supplier := models.Supplier{Name: name, ContactInfo: "test@example.com"}
	db.Create(&supplier)
	return &supplier
}

// createTestRecord создает историческую запись выдачи с заданным временем
func createTestRecord(db *gorm.DB, item *models.InventoryItem, quantity int, dispensedAt time.Time) *models.DispenseRecord {
	record := models.DispenseRecord{
		ItemID:              item.ID,
		ItemName:            item.Name,
		Category:            item.Category,
		Quantity:            quantity,
		UnitPriceAtDispense: item.UnitPrice,
		DispensedAt:         dispensedAt,
	}
	db.Create(&record)
	return &record
}
