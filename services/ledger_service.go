package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"apteka-backend/models"
	"apteka-backend/utils"

	"gorm.io/gorm"
)

// LedgerService единственный авторитетный источник остатков склада.
// Количество товара меняется только через ApplyDelta: выдача — отрицательная
// дельта, пополнение — положительная. Записи по одному товару сериализуются
// мьютексом на товар, поверх этого условное обновление по версии защищает
// от конкурирующих процессов.
type LedgerService struct {
	db *gorm.DB

	mu        sync.Mutex
	itemLocks map[uint]*sync.Mutex
}

// NewLedgerService создает новый экземпляр LedgerService
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		db:        db,
		itemLocks: make(map[uint]*sync.Mutex),
	}
}

// lockItem возвращает мьютекс конкретного товара, создавая его при первом обращении
func (s *LedgerService) lockItem(itemID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.itemLocks[itemID]
	if !ok {
		lock = &sync.Mutex{}
		s.itemLocks[itemID] = lock
	}
	return lock
}

// loadItemTx читает товар внутри транзакции
func loadItemTx(tx *gorm.DB, itemID uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := tx.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// applyDeltaTx применяет дельту к уже прочитанному товару внутри транзакции.
// Единый путь записи для выдачи и пополнения. Обновление условно по версии:
// ноль затронутых строк означает конкурирующую запись из другого процесса.
func applyDeltaTx(tx *gorm.DB, item *models.InventoryItem, delta int) error {
	newQuantity := item.Quantity + delta
	if newQuantity < 0 {
		return &InsufficientStockError{Available: item.Quantity, Requested: -delta}
	}

	res := tx.Model(&models.InventoryItem{}).
		Where("id = ? AND version = ?", item.ID, item.Version).
		Updates(map[string]interface{}{
			"quantity":   newQuantity,
			"version":    item.Version + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrencyConflict
	}

	item.Quantity = newQuantity
	item.Version++
	item.DeriveStatus()
	return nil
}

// classifyWriteError переводит обрыв записи по тайм-ауту в ErrOutcomeUnknown:
// вызывающая сторона не должна считать, что запись не прошла.
// Типизированные доменные ошибки возвращаются как есть: их транзакция
// уже откатилась, исход известен даже при истекшем дедлайне.
func classifyWriteError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var insufficient *InsufficientStockError
	var validation *ValidationError
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidQuantity) || errors.Is(err, ErrConcurrencyConflict) ||
		errors.As(err, &insufficient) || errors.As(err, &validation) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return ErrOutcomeUnknown
	}
	return err
}

// ApplyDelta атомарно изменяет количество товара и возвращает товар
// со свежепересчитанным статусом
func (s *LedgerService) ApplyDelta(ctx context.Context, itemID uint, delta int) (*models.InventoryItem, error) {
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}

	lock := s.lockItem(itemID)
	lock.Lock()
	defer lock.Unlock()

	var updated *models.InventoryItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := loadItemTx(tx, itemID)
		if err != nil {
			return err
		}
		if err := applyDeltaTx(tx, item, delta); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, classifyWriteError(ctx, err)
	}

	return updated, nil
}

// GetItem возвращает товар по идентификатору со свежим статусом
func (s *LedgerService) GetItem(ctx context.Context, itemID uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := s.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ListAll возвращает снимок всех товаров склада
func (s *LedgerService) ListAll(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListLowStock возвращает товары ниже минимального порога, включая закончившиеся
func (s *LedgerService) ListLowStock(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := s.db.WithContext(ctx).
		Where("quantity < min_required").
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListExpiring возвращает товары, срок годности которых попадает в окно
// [сегодня, сегодня + withinDays] в настроенном поясе отчетности.
// Товары без срока годности исключаются. withinDays <= 0 означает окно по умолчанию.
func (s *LedgerService) ListExpiring(ctx context.Context, withinDays int) ([]models.InventoryItem, error) {
	if withinDays <= 0 {
		withinDays = utils.ExpiryWindowDays()
	}

	loc := utils.ReportingLocation()
	now := time.Now().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	// Верхняя граница включает весь последний день окна
	upper := dayStart.AddDate(0, 0, withinDays+1)

	var items []models.InventoryItem
	if err := s.db.WithContext(ctx).
		Where("expiry_date IS NOT NULL AND expiry_date >= ? AND expiry_date < ?", dayStart, upper).
		Order("expiry_date ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
