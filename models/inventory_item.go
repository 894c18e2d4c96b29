package models

import (
	"errors"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Статусы наличия товара на складе
const (
	StatusInStock    = "in_stock"
	StatusLowStock   = "low_stock"
	StatusOutOfStock = "out_of_stock"
)

// Категории товаров аптеки (закрытый список)
const (
	CategoryMedicine    = "Medicine"
	CategorySupply      = "Supply"
	CategoryEquipment   = "Equipment"
	CategoryLabSupplies = "Lab Supplies"
)

// ValidCategories возвращает список допустимых категорий товаров
func ValidCategories() []string {
	return []string{CategoryMedicine, CategorySupply, CategoryEquipment, CategoryLabSupplies}
}

// IsValidCategory проверяет, входит ли категория в закрытый список
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories() {
		if c == category {
			return true
		}
	}
	return false
}

// InventoryItem представляет модель товара аптечного склада
type InventoryItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"not null;size:255;uniqueIndex"`
	Category    string          `json:"category" gorm:"not null;size:50;index"`
	Quantity    int             `json:"quantity" gorm:"not null;default:0"`
	MinRequired int             `json:"min_required" gorm:"not null;default:1"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	ExpiryDate  *time.Time      `json:"expiry_date"`
	SupplierID  *uint           `json:"supplier_id"`
	Version     uint            `json:"-" gorm:"not null;default:0"` // Счетчик версий для оптимистичной блокировки
	Status      string          `json:"status" gorm:"-"`             // Производное поле, никогда не хранится
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Связи
	Supplier *Supplier `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

// StatusFor вычисляет статус наличия по количеству и минимальному порогу.
// Граница quantity == minRequired считается здоровой (in_stock).
func StatusFor(quantity, minRequired int) string {
	if quantity <= 0 {
		return StatusOutOfStock
	}
	if quantity < minRequired {
		return StatusLowStock
	}
	return StatusInStock
}

// DeriveStatus пересчитывает производный статус товара
func (i *InventoryItem) DeriveStatus() {
	i.Status = StatusFor(i.Quantity, i.MinRequired)
}

// Validate проверяет инварианты товара на границе создания
func (i *InventoryItem) Validate() error {
	if i.Name == "" {
		return errors.New("название товара обязательно")
	}
	if !IsValidCategory(i.Category) {
		return errors.New("недопустимая категория товара")
	}
	if i.Quantity < 0 {
		return errors.New("количество не может быть отрицательным")
	}
	if i.MinRequired < 1 {
		return errors.New("минимальный порог должен быть не меньше 1")
	}
	if !i.UnitPrice.IsPositive() {
		return errors.New("цена должна быть положительной")
	}
	if i.UnitPrice.Exponent() < -2 {
		return errors.New("цена не может иметь больше двух знаков после запятой")
	}
	return nil
}

// AfterFind хук пересчитывает статус при каждом чтении из базы,
// чтобы статус никогда не был устаревшим относительно количества
func (i *InventoryItem) AfterFind(tx *gorm.DB) error {
	i.DeriveStatus()
	return nil
}

// BeforeCreate хук для установки времени создания
func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	i.CreatedAt = time.Now()
	i.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate хук для обновления времени изменения
func (i *InventoryItem) BeforeUpdate(tx *gorm.DB) error {
	i.UpdatedAt = time.Now()
	return nil
}

// InitDB инициализирует подключение к базе данных
func InitDB() (*gorm.DB, error) {
	// Проверяем переменную окружения для выбора базы данных
	databaseURL := os.Getenv("DATABASE_URL")

	if databaseURL != "" {
		// Используем PostgreSQL для продакшена
		db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	// Используем SQLite для разработки
	db, err := gorm.Open(sqlite.Open("apteka.db"), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
