package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/poslite-backend/pkg/enums"
)

// Sale is an immutable ledger line. ProductID is a weak reference: the
// inventory row may be deleted later without touching the sale.
type Sale struct {
	ID            uint64              `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID     uint64              `gorm:"column:product_id;not null"`
	ProductName   string              `gorm:"column:product_name;not null"`
	Quantity      int                 `gorm:"column:quantity;not null"`
	Total         decimal.Decimal     `gorm:"column:total;not null"`
	SoldAt        time.Time           `gorm:"column:sold_at;not null"`
	SaleDate      string              `gorm:"column:sale_date;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
}

func (Sale) TableName() string { return "sales" }
