package services

import (
	"context"
	"time"

	"apteka-backend/models"

	"gorm.io/gorm"
)

// MaxReasonLength максимальная длина причины выдачи в символах
const MaxReasonLength = 500

// DispenseService проверяет и выполняет выдачу товара как одну атомарную
// единицу работы: списание с остатка и добавление записи аудита либо
// проходят вместе, либо откатываются вместе. Операция намеренно
// неидемпотентна: каждый вызов выдает заново, дедупликация на вызывающей стороне.
type DispenseService struct {
	db     *gorm.DB
	ledger *LedgerService
}

// NewDispenseService создает новый экземпляр DispenseService
func NewDispenseService(db *gorm.DB, ledger *LedgerService) *DispenseService {
	return &DispenseService{db: db, ledger: ledger}
}

// Dispense выдает quantity единиц товара itemID.
// Порядок проверок: товар существует -> количество положительное ->
// причина не длиннее MaxReasonLength (слишком длинная причина отклоняется,
// а не обрезается) -> остатка достаточно.
// Возвращает обновленный товар со свежим статусом и созданную запись аудита.
func (s *DispenseService) Dispense(ctx context.Context, itemID uint, quantity int, reason string) (*models.InventoryItem, *models.DispenseRecord, error) {
	lock := s.ledger.lockItem(itemID)
	lock.Lock()
	defer lock.Unlock()

	var (
		updated *models.InventoryItem
		record  *models.DispenseRecord
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := loadItemTx(tx, itemID)
		if err != nil {
			return err
		}
		if quantity <= 0 {
			return ErrInvalidQuantity
		}
		if len([]rune(reason)) > MaxReasonLength {
			return &ValidationError{Message: "причина выдачи не может быть длиннее 500 символов"}
		}

		if err := applyDeltaTx(tx, item, -quantity); err != nil {
			return err
		}

		rec := &models.DispenseRecord{
			ItemID:              item.ID,
			ItemName:            item.Name,
			Category:            item.Category,
			Quantity:            quantity,
			Reason:              reason,
			UnitPriceAtDispense: item.UnitPrice,
			DispensedAt:         time.Now(),
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}

		updated = item
		record = rec
		return nil
	})
	if err != nil {
		return nil, nil, classifyWriteError(ctx, err)
	}

	return updated, record, nil
}

// QueryRange возвращает записи выдачи с dispensedAt в полуинтервале [start, end)
// по возрастанию времени. Это единственный источник данных для всей аналитики:
// любые свертки выводимы повторным проходом по этому диапазону.
func (s *DispenseService) QueryRange(ctx context.Context, start, end time.Time) ([]models.DispenseRecord, error) {
	var records []models.DispenseRecord
	if err := s.db.WithContext(ctx).
		Where("dispensed_at >= ? AND dispensed_at < ?", start, end).
		Order("dispensed_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
