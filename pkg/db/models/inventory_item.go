package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is a sellable product and its on-hand stock.
type InventoryItem struct {
	ID        uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string          `gorm:"column:name;not null"`
	Quantity  int             `gorm:"column:quantity;not null;default:0"`
	Price     decimal.Decimal `gorm:"column:price;not null"`
	Threshold int             `gorm:"column:threshold;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryItem) TableName() string { return "inventory_items" }

// IsLowStock reports whether on-hand quantity has dropped below the threshold.
func (i InventoryItem) IsLowStock() bool {
	return i.Quantity < i.Threshold
}
