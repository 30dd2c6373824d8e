package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/poslite-backend/pkg/db/models"
	"github.com/angelmondragon/poslite-backend/pkg/enums"
)

// DeletedProductLabel stands in for the product name once the item is gone.
const DeletedProductLabel = "(deleted product)"

// DayLayout is the calendar-day format used by range filters.
const DayLayout = "2006-01-02"

// InventoryInput is the full set of writable inventory fields.
type InventoryInput struct {
	Name      string
	Quantity  int
	Price     decimal.Decimal
	Threshold int
}

// RecordSaleInput captures a single sale line.
type RecordSaleInput struct {
	ProductID     uint64
	Quantity      int
	PaymentMethod enums.PaymentMethod
}

// InventoryItem is the read model returned to consumers.
type InventoryItem struct {
	ID        uint64          `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Threshold int             `json:"threshold"`
	LowStock  bool            `json:"low_stock"`
}

// Sale is the immutable ledger line as exposed to consumers.
type Sale struct {
	ID                uint64              `json:"id"`
	ProductID         uint64              `json:"product_id"`
	ProductNameAtSale string              `json:"product_name_at_sale"`
	Quantity          int                 `json:"quantity"`
	Total             decimal.Decimal     `json:"total"`
	Timestamp         time.Time           `json:"timestamp"`
	SaleDate          string              `json:"sale_date"`
	PaymentMethod     enums.PaymentMethod `json:"payment_method"`
}

// SaleReportRow pairs a sale with the product's current name.
type SaleReportRow struct {
	Sale
	ProductName    string `json:"product_name"`
	ProductDeleted bool   `json:"product_deleted"`
}

// SalePage is one page of the ledger, newest first.
type SalePage struct {
	Sales      []SaleReportRow `json:"sales"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// DashboardStats summarises the till for the current calendar day.
type DashboardStats struct {
	Date            string          `json:"date"`
	TotalProducts   int64           `json:"total_products"`
	LowStockCount   int64           `json:"low_stock_count"`
	TodaySalesTotal decimal.Decimal `json:"today_sales_total"`
	TodaySalesCount int             `json:"today_sales_count"`
}

func toInventoryItem(m models.InventoryItem) InventoryItem {
	return InventoryItem{
		ID:        m.ID,
		Name:      m.Name,
		Quantity:  m.Quantity,
		Price:     m.Price,
		Threshold: m.Threshold,
		LowStock:  m.IsLowStock(),
	}
}

func toInventoryItems(items []models.InventoryItem) []InventoryItem {
	out := make([]InventoryItem, 0, len(items))
	for _, item := range items {
		out = append(out, toInventoryItem(item))
	}
	return out
}

func toSale(m models.Sale) Sale {
	return Sale{
		ID:                m.ID,
		ProductID:         m.ProductID,
		ProductNameAtSale: m.ProductName,
		Quantity:          m.Quantity,
		Total:             m.Total,
		Timestamp:         m.SoldAt,
		SaleDate:          m.SaleDate,
		PaymentMethod:     m.PaymentMethod,
	}
}

func toSaleReportRows(rows []SaleRow) []SaleReportRow {
	out := make([]SaleReportRow, 0, len(rows))
	for _, row := range rows {
		report := SaleReportRow{Sale: toSale(row.Sale)}
		if row.CurrentName != nil {
			report.ProductName = *row.CurrentName
		} else {
			report.ProductName = DeletedProductLabel
			report.ProductDeleted = true
		}
		out = append(out, report)
	}
	return out
}
