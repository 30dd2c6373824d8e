package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/poslite-backend/internal/repo"
	"github.com/angelmondragon/poslite-backend/pkg/db/models"
)

// Repository manages persistence for inventory items and sales.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateItem(ctx context.Context, item *models.InventoryItem) error
	FindItem(ctx context.Context, id uint64) (*models.InventoryItem, error)
	UpdateItem(ctx context.Context, item *models.InventoryItem) error
	DeleteItem(ctx context.Context, id uint64) (int64, error)
	ListItems(ctx context.Context) ([]models.InventoryItem, error)
	ListLowStock(ctx context.Context) ([]models.InventoryItem, error)
	CountItems(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context) (int64, error)

	CreateSale(ctx context.Context, sale *models.Sale) error
	DecrementStock(ctx context.Context, id uint64, quantity int) (int64, error)
	ListSalesBetween(ctx context.Context, startDay, endDay string) ([]SaleRow, error)
	ListRecentSales(ctx context.Context, limit int) ([]SaleRow, error)
	ListSalesBefore(ctx context.Context, beforeID uint64, limit int) ([]SaleRow, error)
	ListSales(ctx context.Context) ([]models.Sale, error)
	SaleTotalsOn(ctx context.Context, day string) ([]decimal.Decimal, error)
}

// SaleRow is a sale joined with the current inventory name, which is nil once
// the item has been deleted.
type SaleRow struct {
	models.Sale
	CurrentName *string `gorm:"column:current_name"`
}

const saleRowSelect = "s.id, s.product_id, s.product_name, s.quantity, s.total, s.sold_at, s.sale_date, s.payment_method, i.name AS current_name"

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	return r.DB(ctx).Create(item).Error
}

func (r *repository) FindItem(ctx context.Context, id uint64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.DB(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateItem(ctx context.Context, item *models.InventoryItem) error {
	return r.DB(ctx).
		Model(item).
		Select("name", "quantity", "price", "threshold", "updated_at").
		Updates(item).Error
}

func (r *repository) DeleteItem(ctx context.Context, id uint64) (int64, error) {
	res := r.DB(ctx).Delete(&models.InventoryItem{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *repository) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.DB(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListLowStock(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.DB(ctx).
		Where("quantity < threshold").
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.InventoryItem{}).Count(&count).Error
	return count, err
}

func (r *repository) CountLowStock(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.InventoryItem{}).
		Where("quantity < threshold").
		Count(&count).Error
	return count, err
}

func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	return r.DB(ctx).Create(sale).Error
}

// DecrementStock removes quantity from the item only when enough stock remains.
// Zero rows affected means the item is gone or short.
func (r *repository) DecrementStock(ctx context.Context, id uint64, quantity int) (int64, error) {
	res := r.DB(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND quantity >= ?", id, quantity).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", quantity))
	return res.RowsAffected, res.Error
}

func (r *repository) ListSalesBetween(ctx context.Context, startDay, endDay string) ([]SaleRow, error) {
	var rows []SaleRow
	if err := r.DB(ctx).
		Table("sales AS s").
		Select(saleRowSelect).
		Joins("LEFT JOIN inventory_items i ON i.id = s.product_id").
		Where("s.sale_date >= ? AND s.sale_date <= ?", startDay, endDay).
		Order("s.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListRecentSales(ctx context.Context, limit int) ([]SaleRow, error) {
	var rows []SaleRow
	if err := r.DB(ctx).
		Table("sales AS s").
		Select(saleRowSelect).
		Joins("LEFT JOIN inventory_items i ON i.id = s.product_id").
		Order("s.id DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListSalesBefore pages the ledger newest first. beforeID zero starts at the
// newest sale.
func (r *repository) ListSalesBefore(ctx context.Context, beforeID uint64, limit int) ([]SaleRow, error) {
	q := r.DB(ctx).
		Table("sales AS s").
		Select(saleRowSelect).
		Joins("LEFT JOIN inventory_items i ON i.id = s.product_id")
	if beforeID > 0 {
		q = q.Where("s.id < ?", beforeID)
	}
	var rows []SaleRow
	if err := q.Order("s.id DESC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListSales(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	if err := r.DB(ctx).Order("id ASC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *repository) SaleTotalsOn(ctx context.Context, day string) ([]decimal.Decimal, error) {
	var totals []decimal.Decimal
	if err := r.DB(ctx).
		Model(&models.Sale{}).
		Where("sale_date = ?", day).
		Pluck("total", &totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}
