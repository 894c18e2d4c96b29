package main

import (
	"log"
	"os"
	"time"

	"apteka-backend/controllers"
	"apteka-backend/models"
	"apteka-backend/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func main() {
	// Инициализация базы данных
	db, err := models.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Автомиграция
	db.AutoMigrate(&models.Supplier{}, &models.InventoryItem{}, &models.DispenseRecord{})

	// Инициализация базового каталога аптеки
	initDefaultCatalog(db)

	// Создание Fiber приложения
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
				"code":    code,
			})
		},
	})

	// Middleware
	app.Use(logger.New())

	// CORS настройки
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000,http://127.0.0.1:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Инициализация контроллеров
	inventoryController := controllers.NewInventoryController(db)
	analyticsController := controllers.NewAnalyticsController(db)

	// Настройка маршрутов
	routes.SetupInventoryRoutes(app, inventoryController)
	routes.SetupAnalyticsRoutes(app, analyticsController)

	// Общий health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"message":   "Apteka Backend is running",
			"timestamp": time.Now().Unix(),
		})
	})

	// Запуск сервера
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

// initDefaultCatalog инициализирует базовый каталог товаров и реестр
// поставщиков при первом запуске
func initDefaultCatalog(db *gorm.DB) {
	var supplierCount int64
	db.Model(&models.Supplier{}).Count(&supplierCount)

	if supplierCount == 0 {
		log.Println("Инициализация реестра поставщиков...")
		defaultSuppliers := []models.Supplier{
			{Name: "ФармДистрибуция", ContactInfo: "sales@pharmdist.example"},
			{Name: "МедСнаб", ContactInfo: "+7 495 000-00-01"},
			{Name: "ЛабТорг", ContactInfo: "orders@labtorg.example"},
		}
		for i := range defaultSuppliers {
			if err := db.Create(&defaultSuppliers[i]).Error; err != nil {
				log.Printf("Ошибка при создании поставщика '%s': %v", defaultSuppliers[i].Name, err)
			}
		}
	}

	var itemCount int64
	db.Model(&models.InventoryItem{}).Count(&itemCount)
	if itemCount > 0 {
		log.Printf("Каталог товаров уже существует (%d элементов)", itemCount)
		return
	}

	var suppliers []models.Supplier
	db.Order("id ASC").Find(&suppliers)
	supplierID := func(idx int) *uint {
		if idx < len(suppliers) {
			return &suppliers[idx].ID
		}
		return nil
	}

	expiry := func(days int) *time.Time {
		t := time.Now().AddDate(0, 0, days)
		return &t
	}

	price := func(value string) decimal.Decimal {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero
		}
		return d
	}

	defaultCatalog := []models.InventoryItem{
		{Name: "Парацетамол 500мг", Category: models.CategoryMedicine, Quantity: 120, MinRequired: 30, UnitPrice: price("45.50"), ExpiryDate: expiry(180), SupplierID: supplierID(0)},
		{Name: "Амоксициллин 250мг", Category: models.CategoryMedicine, Quantity: 80, MinRequired: 20, UnitPrice: price("132.00"), ExpiryDate: expiry(365), SupplierID: supplierID(0)},
		{Name: "Ибупрофен 200мг", Category: models.CategoryMedicine, Quantity: 95, MinRequired: 25, UnitPrice: price("67.90"), ExpiryDate: expiry(270), SupplierID: supplierID(1)},
		{Name: "Бинт стерильный", Category: models.CategorySupply, Quantity: 200, MinRequired: 50, UnitPrice: price("28.00"), SupplierID: supplierID(1)},
		{Name: "Шприц одноразовый 5мл", Category: models.CategorySupply, Quantity: 500, MinRequired: 100, UnitPrice: price("9.50"), SupplierID: supplierID(1)},
		{Name: "Перчатки нитриловые", Category: models.CategorySupply, Quantity: 300, MinRequired: 100, UnitPrice: price("12.30"), SupplierID: supplierID(2)},
		{Name: "Тонометр", Category: models.CategoryEquipment, Quantity: 10, MinRequired: 2, UnitPrice: price("2450.00"), SupplierID: supplierID(1)},
		{Name: "Термометр бесконтактный", Category: models.CategoryEquipment, Quantity: 15, MinRequired: 3, UnitPrice: price("1890.00")},
		{Name: "Пробирки лабораторные", Category: models.CategoryLabSupplies, Quantity: 400, MinRequired: 100, UnitPrice: price("6.75"), SupplierID: supplierID(2)},
		{Name: "Реагент глюкоза", Category: models.CategoryLabSupplies, Quantity: 40, MinRequired: 10, UnitPrice: price("540.00"), ExpiryDate: expiry(90), SupplierID: supplierID(2)},
	}

	log.Println("Инициализация базового каталога...")
	for i := range defaultCatalog {
		if err := defaultCatalog[i].Validate(); err != nil {
			log.Printf("Пропущен товар '%s': %v", defaultCatalog[i].Name, err)
			continue
		}
		if err := db.Create(&defaultCatalog[i]).Error; err != nil {
			log.Printf("Ошибка при создании товара '%s': %v", defaultCatalog[i].Name, err)
		}
	}
	log.Println("Базовый каталог инициализирован")
}
