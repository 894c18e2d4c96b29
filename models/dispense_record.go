package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DispenseRecord представляет неизменяемую запись выдачи товара со склада.
// Записи образуют журнал аудита: после создания никогда не обновляются и не удаляются.
type DispenseRecord struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Reference string `json:"reference" gorm:"not null;size:36;uniqueIndex"`
	ItemID    uint   `json:"item_id" gorm:"not null;index"`
	// Снимок названия и категории на момент выдачи: удаление товара
	// администратором не должно искажать историю
	ItemName            string          `json:"item_name" gorm:"not null;size:255"`
	Category            string          `json:"category" gorm:"not null;size:50;index"`
	Quantity            int             `json:"quantity" gorm:"not null"`
	Reason              string          `json:"reason" gorm:"size:500"`
	UnitPriceAtDispense decimal.Decimal `json:"unit_price_at_dispense" gorm:"type:decimal(10,2);not null"`
	DispensedAt         time.Time       `json:"dispensed_at" gorm:"not null;index"`
}

// Value возвращает стоимость выдачи: цена на момент выдачи * количество
func (r *DispenseRecord) Value() decimal.Decimal {
	return r.UnitPriceAtDispense.Mul(decimal.NewFromInt(int64(r.Quantity)))
}

// BeforeCreate хук назначает серверные поля записи аудита
func (r *DispenseRecord) BeforeCreate(tx *gorm.DB) error {
	if r.Reference == "" {
		r.Reference = uuid.NewString()
	}
	if r.DispensedAt.IsZero() {
		r.DispensedAt = time.Now()
	}
	return nil
}
