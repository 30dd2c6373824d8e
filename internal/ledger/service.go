package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/poslite-backend/pkg/db/models"
	"github.com/angelmondragon/poslite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/poslite-backend/pkg/errors"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
	"github.com/angelmondragon/poslite-backend/pkg/pagination"
)

const (
	maxNameLength = 200
	priceScale    = 2
)

// maxPrice is the first value that no longer fits NUMERIC(12,2).
var maxPrice = decimal.New(1, 10)

// Service owns inventory and the sales ledger. It is the only component that
// writes either table.
type Service interface {
	AddInventoryItem(ctx context.Context, input InventoryInput) (uint64, error)
	UpdateInventoryItem(ctx context.Context, id uint64, input InventoryInput) (*InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id uint64) error
	GetInventoryItem(ctx context.Context, id uint64) (*InventoryItem, error)
	ListInventory(ctx context.Context) ([]InventoryItem, error)
	ListLowStock(ctx context.Context) ([]InventoryItem, error)

	RecordSale(ctx context.Context, input RecordSaleInput) (*Sale, error)
	FetchSalesInRange(ctx context.Context, startDate, endDate string) ([]SaleReportRow, error)
	FetchRecentSales(ctx context.Context, limit int) ([]SaleReportRow, error)
	ListSalesPage(ctx context.Context, params pagination.Params) (*SalePage, error)
	ListSales(ctx context.Context) ([]Sale, error)
	ComputeDashboardStats(ctx context.Context) (*DashboardStats, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SaleObserver receives sale outcomes, typically prometheus counters.
type SaleObserver interface {
	SaleRecorded(method string, quantity int, total float64)
	SaleRejected(reason string)
}

// ServiceParams wires the ledger service dependencies.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Logger   *logger.Logger
	Observer SaleObserver
	Location *time.Location
	Now      func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	logg     *logger.Logger
	observer SaleObserver
	loc      *time.Location
	now      func() time.Time
}

// NewService constructs a ledger service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.Local
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		logg:     params.Logger,
		observer: params.Observer,
		loc:      loc,
		now:      now,
	}, nil
}

func (s *service) AddInventoryItem(ctx context.Context, input InventoryInput) (uint64, error) {
	normalized, err := validateInventoryInput(input)
	if err != nil {
		return 0, err
	}

	item := &models.InventoryItem{
		Name:      normalized.Name,
		Quantity:  normalized.Quantity,
		Price:     normalized.Price,
		Threshold: normalized.Threshold,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert inventory item")
	}
	return item.ID, nil
}

func (s *service) UpdateInventoryItem(ctx context.Context, id uint64, input InventoryInput) (*InventoryItem, error) {
	item, err := s.loadItem(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	normalized, err := validateInventoryInput(input)
	if err != nil {
		return nil, err
	}

	item.Name = normalized.Name
	item.Quantity = normalized.Quantity
	item.Price = normalized.Price
	item.Threshold = normalized.Threshold

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update inventory item")
	}

	dto := toInventoryItem(*item)
	return &dto, nil
}

// DeleteInventoryItem removes the item even when sales still reference it;
// reports fall back to DeletedProductLabel for those rows.
func (s *service) DeleteInventoryItem(ctx context.Context, id uint64) error {
	affected, err := s.repo.DeleteItem(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete inventory item")
	}
	if affected == 0 {
		return itemNotFound(id)
	}
	return nil
}

func (s *service) GetInventoryItem(ctx context.Context, id uint64) (*InventoryItem, error) {
	item, err := s.loadItem(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := toInventoryItem(*item)
	return &dto, nil
}

func (s *service) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list inventory")
	}
	return toInventoryItems(items), nil
}

func (s *service) ListLowStock(ctx context.Context) ([]InventoryItem, error) {
	items, err := s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list low stock")
	}
	return toInventoryItems(items), nil
}

// RecordSale inserts the sale and decrements stock in one transaction. Either
// both writes commit or neither is visible afterwards.
func (s *service) RecordSale(ctx context.Context, input RecordSaleInput) (*Sale, error) {
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCash
	}
	if !method.IsValid() {
		return nil, s.reject(ctx, "invalid_payment_method",
			pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
				WithDetails(map[string]any{"payment_method": string(input.PaymentMethod)}))
	}

	var created models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item, err := s.loadItem(ctx, txRepo, input.ProductID)
		if err != nil {
			return err
		}
		if input.Quantity > item.Quantity {
			return insufficientStock(item.ID, input.Quantity, item.Quantity)
		}
		if input.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
				WithDetails(map[string]any{"quantity": input.Quantity})
		}

		now := s.now()
		sale := models.Sale{
			ProductID:     item.ID,
			ProductName:   item.Name,
			Quantity:      input.Quantity,
			Total:         item.Price.Mul(decimal.NewFromInt(int64(input.Quantity))),
			SoldAt:        now.UTC().Truncate(time.Second),
			SaleDate:      now.In(s.loc).Format(DayLayout),
			PaymentMethod: method,
		}
		if err := txRepo.CreateSale(ctx, &sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale")
		}

		affected, err := txRepo.DecrementStock(ctx, item.ID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
		}
		if affected == 0 {
			return insufficientStock(item.ID, input.Quantity, item.Quantity)
		}

		created = sale
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, rejectReason(err), err)
	}

	total, _ := created.Total.Float64()
	if s.observer != nil {
		s.observer.SaleRecorded(created.PaymentMethod.String(), created.Quantity, total)
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"sale_id":        created.ID,
			"product_id":     created.ProductID,
			"quantity":       created.Quantity,
			"total":          created.Total.StringFixed(2),
			"payment_method": created.PaymentMethod.String(),
		})
		s.logg.Info(logCtx, "sale.recorded")
	}

	dto := toSale(created)
	return &dto, nil
}

func (s *service) FetchSalesInRange(ctx context.Context, startDate, endDate string) ([]SaleReportRow, error) {
	start, err := parseDay("start", startDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDay("end", endDate)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start date must not be after end date").
			WithDetails(map[string]any{"start": startDate, "end": endDate})
	}

	rows, err := s.repo.ListSalesBetween(ctx, start.Format(DayLayout), end.Format(DayLayout))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list sales in range")
	}
	return toSaleReportRows(rows), nil
}

func (s *service) FetchRecentSales(ctx context.Context, limit int) ([]SaleReportRow, error) {
	if limit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be greater than zero").
			WithDetails(map[string]any{"limit": limit})
	}
	rows, err := s.repo.ListRecentSales(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list recent sales")
	}
	return toSaleReportRows(rows), nil
}

// ListSalesPage walks the ledger newest first using an opaque cursor.
func (s *service) ListSalesPage(ctx context.Context, params pagination.Params) (*SalePage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var beforeID uint64
	if cursor != nil {
		beforeID = cursor.ID
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListSalesBefore(ctx, beforeID, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list sales page")
	}

	page := &SalePage{}
	if len(rows) > limit {
		rows = rows[:limit]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{ID: rows[len(rows)-1].ID})
	}
	page.Sales = toSaleReportRows(rows)
	return page, nil
}

func (s *service) ListSales(ctx context.Context) ([]Sale, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list sales")
	}
	out := make([]Sale, 0, len(sales))
	for _, sale := range sales {
		out = append(out, toSale(sale))
	}
	return out, nil
}

func (s *service) ComputeDashboardStats(ctx context.Context) (*DashboardStats, error) {
	today := s.now().In(s.loc).Format(DayLayout)

	totalProducts, err := s.repo.CountItems(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count inventory")
	}
	lowStock, err := s.repo.CountLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count low stock")
	}
	totals, err := s.repo.SaleTotalsOn(ctx, today)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: sum today's sales")
	}

	return &DashboardStats{
		Date:            today,
		TotalProducts:   totalProducts,
		LowStockCount:   lowStock,
		TodaySalesTotal: decimal.Sum(decimal.Zero, totals...),
		TodaySalesCount: len(totals),
	}, nil
}

func (s *service) loadItem(ctx context.Context, repo Repository, id uint64) (*models.InventoryItem, error) {
	item, err := repo.FindItem(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, itemNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load inventory item")
	}
	return item, nil
}

func (s *service) reject(ctx context.Context, reason string, err error) error {
	if s.observer != nil {
		s.observer.SaleRejected(reason)
	}
	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "reason", reason)
		if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
			s.logg.Error(logCtx, "sale.failed", err)
		} else {
			s.logg.Warn(logCtx, "sale.rejected")
		}
	}
	return err
}

func rejectReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "internal"
	}
	switch typed.Code() {
	case pkgerrors.CodeNotFound:
		return "not_found"
	case pkgerrors.CodeInsufficientStock:
		return "insufficient_stock"
	case pkgerrors.CodeValidation:
		return "invalid_quantity"
	case pkgerrors.CodeDependency:
		return "storage"
	}
	return "internal"
}

func validateInventoryInput(input InventoryInput) (InventoryInput, error) {
	name := strings.TrimSpace(input.Name)
	details := map[string]string{}
	if name == "" {
		details["name"] = "is required"
	} else if utf8.RuneCountInString(name) > maxNameLength {
		details["name"] = fmt.Sprintf("must be at most %d characters", maxNameLength)
	}
	if input.Quantity < 0 {
		details["quantity"] = "must be at least 0"
	}
	switch {
	case input.Price.IsNegative():
		details["price"] = "must be at least 0"
	case !input.Price.Equal(input.Price.Truncate(priceScale)):
		details["price"] = fmt.Sprintf("must have at most %d decimal places", priceScale)
	case input.Price.GreaterThanOrEqual(maxPrice):
		details["price"] = "must be less than 10000000000"
	}
	if input.Threshold < 0 {
		details["threshold"] = "must be at least 0"
	}
	if len(details) > 0 {
		return InventoryInput{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	input.Name = name
	return input, nil
}

func parseDay(field, value string) (time.Time, error) {
	day, err := time.Parse(DayLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "dates must use YYYY-MM-DD").
			WithDetails(map[string]any{"field": field, "value": value})
	}
	return day, nil
}

func itemNotFound(id uint64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found").
		WithDetails(map[string]any{"id": id})
}

func insufficientStock(id uint64, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough inventory").
		WithDetails(map[string]any{
			"product_id": id,
			"requested":  requested,
			"available":  available,
		})
}
