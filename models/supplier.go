package models

import "time"

// Supplier представляет поставщика из внешнего реестра.
// Движок склада не управляет поставщиками, а только читает связи
// товар-поставщик для отчета о концентрации закупок.
type Supplier struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null;size:255;uniqueIndex"`
	ContactInfo string    `json:"contact_info" gorm:"size:500"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
