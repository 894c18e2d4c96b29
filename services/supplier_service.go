package services

import (
	"context"
	"sort"

	"apteka-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CategoryDistribution концентрация закупок одной категории
type CategoryDistribution struct {
	Category      string          `json:"category"`
	SupplierCount int             `json:"supplier_count"`
	ItemCount     int             `json:"item_count"`
	TotalQuantity int             `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// SupplierDistribution распределение поставщиков по категориям
type SupplierDistribution struct {
	Categories             []CategoryDistribution `json:"categories"`
	TotalSuppliersInSystem int64                  `json:"total_suppliers_in_system"`
}

// SupplierService отвечает на вопрос, насколько сконцентрированы закупки
// по категориям. Проекция только для чтения, путей записи не имеет.
type SupplierService struct {
	db *gorm.DB
}

// NewSupplierService создает новый экземпляр SupplierService
func NewSupplierService(db *gorm.DB) *SupplierService {
	return &SupplierService{db: db}
}

// Distribution строит распределение по категориям. Учитываются только товары
// с привязанным поставщиком; supplierCount — мощность множества различных
// поставщиков, а не число товаров. Категории без единой привязки опускаются,
// но общий размер реестра поставщиков считается независимо от привязок.
func (s *SupplierService) Distribution(ctx context.Context) (*SupplierDistribution, error) {
	var items []models.InventoryItem
	if err := s.db.WithContext(ctx).
		Where("supplier_id IS NOT NULL").
		Find(&items).Error; err != nil {
		return nil, err
	}

	type categoryAgg struct {
		suppliers map[uint]struct{}
		itemCount int
		quantity  int
		value     decimal.Decimal
	}
	byCategory := make(map[string]*categoryAgg)

	for idx := range items {
		item := &items[idx]
		agg, ok := byCategory[item.Category]
		if !ok {
			agg = &categoryAgg{suppliers: make(map[uint]struct{}), value: decimal.Zero}
			byCategory[item.Category] = agg
		}
		agg.suppliers[*item.SupplierID] = struct{}{}
		agg.itemCount++
		agg.quantity += item.Quantity
		agg.value = agg.value.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	distribution := &SupplierDistribution{Categories: []CategoryDistribution{}}
	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		agg := byCategory[name]
		distribution.Categories = append(distribution.Categories, CategoryDistribution{
			Category:      name,
			SupplierCount: len(agg.suppliers),
			ItemCount:     agg.itemCount,
			TotalQuantity: agg.quantity,
			TotalValue:    agg.value,
		})
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Count(&distribution.TotalSuppliersInSystem).Error; err != nil {
		return nil, err
	}

	return distribution, nil
}
