package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/poslite-backend/internal/testutil"
	"github.com/angelmondragon/poslite-backend/pkg/db"
	"github.com/angelmondragon/poslite-backend/pkg/db/models"
	"github.com/angelmondragon/poslite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/poslite-backend/pkg/errors"
	"github.com/angelmondragon/poslite-backend/pkg/pagination"
)

var fixedNow = time.Date(2026, 3, 14, 15, 30, 45, 500, time.UTC)

type harness struct {
	client *db.Client
	repo   Repository
	svc    Service
	obs    *recordingObserver
}

type recordingObserver struct {
	mu       sync.Mutex
	recorded []string
	rejected []string
}

func (o *recordingObserver) SaleRecorded(method string, _ int, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recorded = append(o.recorded, method)
}

func (o *recordingObserver) SaleRejected(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, reason)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client, _ := testutil.NewLedgerDB(t)
	repo := NewRepository(client.DB())
	obs := &recordingObserver{}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Tx:       client,
		Observer: obs,
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return &harness{client: client, repo: repo, svc: svc, obs: obs}
}

func (h *harness) addItem(t *testing.T, name string, qty int, price string, threshold int) uint64 {
	t.Helper()
	id, err := h.svc.AddInventoryItem(context.Background(), InventoryInput{
		Name:      name,
		Quantity:  qty,
		Price:     decimal.RequireFromString(price),
		Threshold: threshold,
	})
	require.NoError(t, err)
	return id
}

func (h *harness) saleCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.client.DB().Model(&models.Sale{}).Count(&count).Error)
	return count
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)

	_, err = NewService(ServiceParams{Repo: NewRepository(nil)})
	require.Error(t, err)
}

func TestAddInventoryItemAssignsIncreasingIDs(t *testing.T) {
	h := newHarness(t)

	first := h.addItem(t, "Coffee Beans", 20, "12.50", 5)
	second := h.addItem(t, "  Filter Papers  ", 0, "3.00", 10)
	assert.Greater(t, second, first)

	item, err := h.svc.GetInventoryItem(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, "Filter Papers", item.Name)
	assert.True(t, item.LowStock)
	assert.Equal(t, "3.00", item.Price.StringFixed(2))
}

func TestAddInventoryItemValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []InventoryInput{
		{Name: "   ", Quantity: 1, Price: decimal.NewFromInt(1)},
		{Name: "Mugs", Quantity: -1, Price: decimal.NewFromInt(1)},
		{Name: "Mugs", Quantity: 1, Price: decimal.NewFromInt(-1)},
		{Name: "Mugs", Quantity: 1, Price: decimal.NewFromInt(1), Threshold: -2},
		{Name: "Mugs", Quantity: 1, Price: decimal.RequireFromString("1.005")},
		{Name: "Mugs", Quantity: 1, Price: decimal.New(1, 10)},
	}
	for _, input := range cases {
		_, err := h.svc.AddInventoryItem(ctx, input)
		requireCode(t, err, pkgerrors.CodeValidation)
	}

	items, err := h.svc.ListInventory(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPriceKeepsCentPrecision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id, err := h.svc.AddInventoryItem(ctx, InventoryInput{Name: "Scone", Quantity: 5, Price: decimal.RequireFromString("2.50")})
	require.NoError(t, err)

	_, err = h.svc.UpdateInventoryItem(ctx, id, InventoryInput{Name: "Scone", Quantity: 5, Price: decimal.RequireFromString("2.499")})
	requireCode(t, err, pkgerrors.CodeValidation)

	sale, err := h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "7.50", sale.Total.StringFixed(2))
	assert.True(t, sale.Total.Equal(decimal.RequireFromString("7.5")))
}

func TestUpdateInventoryItem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addItem(t, "Tea", 10, "4.00", 2)

	updated, err := h.svc.UpdateInventoryItem(ctx, id, InventoryInput{
		Name:      "Green Tea",
		Quantity:  1,
		Price:     decimal.RequireFromString("4.75"),
		Threshold: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Green Tea", updated.Name)
	assert.True(t, updated.LowStock)

	_, err = h.svc.UpdateInventoryItem(ctx, id+100, InventoryInput{Name: "Ghost", Price: decimal.Zero})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = h.svc.UpdateInventoryItem(ctx, id, InventoryInput{Name: "", Price: decimal.Zero})
	requireCode(t, err, pkgerrors.CodeValidation)

	item, err := h.svc.GetInventoryItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Green Tea", item.Name)
}

func TestDeleteInventoryItem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addItem(t, "Scones", 5, "2.00", 1)

	require.NoError(t, h.svc.DeleteInventoryItem(ctx, id))
	requireCode(t, h.svc.DeleteInventoryItem(ctx, id), pkgerrors.CodeNotFound)

	_, err := h.svc.GetInventoryItem(ctx, id)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestListLowStockUsesStrictComparison(t *testing.T) {
	h := newHarness(t)
	h.addItem(t, "At threshold", 5, "1.00", 5)
	low := h.addItem(t, "Below threshold", 4, "1.00", 5)
	h.addItem(t, "Plenty", 50, "1.00", 5)

	items, err := h.svc.ListLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, low, items[0].ID)
}

func TestRecordSaleDecrementsStockAndComputesTotal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addItem(t, "Croissant", 10, "2.35", 2)

	sale, err := h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: 3, PaymentMethod: enums.PaymentMethodCard})
	require.NoError(t, err)
	assert.NotZero(t, sale.ID)
	assert.Equal(t, "7.05", sale.Total.StringFixed(2))
	assert.Equal(t, "Croissant", sale.ProductNameAtSale)
	assert.Equal(t, enums.PaymentMethodCard, sale.PaymentMethod)
	assert.Equal(t, "2026-03-14", sale.SaleDate)
	assert.True(t, sale.Timestamp.Equal(fixedNow.Truncate(time.Second)))

	item, err := h.svc.GetInventoryItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, item.Quantity)
	assert.Equal(t, []string{"card"}, h.obs.recorded)
}

func TestRecordSaleDefaultsToCash(t *testing.T) {
	h := newHarness(t)
	id := h.addItem(t, "Bagel", 3, "1.10", 0)

	sale, err := h.svc.RecordSale(context.Background(), RecordSaleInput{ProductID: id, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodCash, sale.PaymentMethod)
}

func TestRecordSaleSellsEntireStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addItem(t, "Last Cake", 2, "15.00", 1)

	_, err := h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: 2})
	require.NoError(t, err)

	item, err := h.svc.GetInventoryItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)
	assert.True(t, item.LowStock)
}

func TestRecordSaleRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addItem(t, "Muffin", 2, "3.00", 0)

	_, err := h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id + 99, Quantity: 1})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: 3})
	requireCode(t, err, pkgerrors.CodeInsufficientStock)

	_, err = h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: 0})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: -4})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: 1, PaymentMethod: "barter"})
	requireCode(t, err, pkgerrors.CodeValidation)

	assert.Zero(t, h.saleCount(t))
	item, err := h.svc.GetInventoryItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, []string{
		"not_found",
		"insufficient_stock",
		"invalid_quantity",
		"invalid_quantity",
		"invalid_payment_method",
	}, h.obs.rejected)
}

type failingDecrementRepo struct {
	Repository
}

func (r failingDecrementRepo) WithTx(tx *gorm.DB) Repository {
	return failingDecrementRepo{Repository: r.Repository.WithTx(tx)}
}

func (r failingDecrementRepo) DecrementStock(context.Context, uint64, int) (int64, error) {
	return 0, errors.New("disk unplugged")
}

func TestRecordSaleRollsBackWhenDecrementFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addItem(t, "Brownie", 5, "2.50", 1)

	svc, err := NewService(ServiceParams{
		Repo:     failingDecrementRepo{Repository: h.repo},
		Tx:       h.client,
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	_, err = svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: 2})
	requireCode(t, err, pkgerrors.CodeDependency)

	assert.Zero(t, h.saleCount(t))
	item, err := h.svc.GetInventoryItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
}

func TestRecordSaleNeverOversellsUnderContention(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addItem(t, "Limited Tin", 5, "9.99", 0)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: 1}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.EqualValues(t, 5, h.saleCount(t))
	item, err := h.svc.GetInventoryItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)
}

func TestDeletedItemKeepsSalesWithPlaceholderName(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	kept := h.addItem(t, "Espresso", 10, "2.00", 0)
	gone := h.addItem(t, "Seasonal Latte", 10, "4.50", 0)

	_, err := h.svc.RecordSale(ctx, RecordSaleInput{ProductID: kept, Quantity: 1})
	require.NoError(t, err)
	_, err = h.svc.RecordSale(ctx, RecordSaleInput{ProductID: gone, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, h.svc.DeleteInventoryItem(ctx, gone))

	rows, err := h.svc.FetchSalesInRange(ctx, "2026-03-14", "2026-03-14")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Espresso", rows[0].ProductName)
	assert.False(t, rows[0].ProductDeleted)
	assert.Equal(t, DeletedProductLabel, rows[1].ProductName)
	assert.True(t, rows[1].ProductDeleted)
	assert.Equal(t, "Seasonal Latte", rows[1].ProductNameAtSale)
	assert.Equal(t, "9.00", rows[1].Total.StringFixed(2))
}

func TestReportsPreferCurrentName(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addItem(t, "Cookie", 10, "1.00", 0)
	_, err := h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: 1})
	require.NoError(t, err)

	_, err = h.svc.UpdateInventoryItem(ctx, id, InventoryInput{Name: "Oat Cookie", Quantity: 9, Price: decimal.NewFromInt(1)})
	require.NoError(t, err)

	rows, err := h.svc.FetchRecentSales(ctx, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Oat Cookie", rows[0].ProductName)
	assert.Equal(t, "Cookie", rows[0].ProductNameAtSale)
}

func TestFetchSalesInRangeIsInclusiveByCalendarDay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addItem(t, "Juice", 100, "3.00", 0)

	for _, day := range []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04"} {
		require.NoError(t, h.client.DB().Create(&models.Sale{
			ProductID:     id,
			ProductName:   "Juice",
			Quantity:      1,
			Total:         decimal.NewFromInt(3),
			SoldAt:        fixedNow,
			SaleDate:      day,
			PaymentMethod: enums.PaymentMethodCash,
		}).Error)
	}

	rows, err := h.svc.FetchSalesInRange(ctx, "2026-03-02", "2026-03-03")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-03-02", rows[0].SaleDate)
	assert.Equal(t, "2026-03-03", rows[1].SaleDate)

	rows, err = h.svc.FetchSalesInRange(ctx, "2026-02-01", "2026-02-28")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetchSalesInRangeValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.FetchSalesInRange(ctx, "2026-03-05", "2026-03-01")
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.FetchSalesInRange(ctx, "03/01/2026", "2026-03-05")
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestFetchRecentSalesOrdersNewestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addItem(t, "Water", 10, "1.00", 0)

	var ids []uint64
	for i := 1; i <= 3; i++ {
		sale, err := h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: i})
		require.NoError(t, err)
		ids = append(ids, sale.ID)
	}

	rows, err := h.svc.FetchRecentSales(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ids[2], rows[0].ID)
	assert.Equal(t, ids[1], rows[1].ID)

	_, err = h.svc.FetchRecentSales(ctx, 0)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestComputeDashboardStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.addItem(t, "Sandwich", 10, "6.10", 8)
	h.addItem(t, "Soup", 1, "5.00", 3)
	h.addItem(t, "Salad", 20, "7.00", 3)

	_, err := h.svc.RecordSale(ctx, RecordSaleInput{ProductID: a, Quantity: 3})
	require.NoError(t, err)
	_, err = h.svc.RecordSale(ctx, RecordSaleInput{ProductID: a, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, h.client.DB().Create(&models.Sale{
		ProductID:     a,
		ProductName:   "Sandwich",
		Quantity:      1,
		Total:         decimal.RequireFromString("6.10"),
		SoldAt:        fixedNow.Add(-24 * time.Hour),
		SaleDate:      "2026-03-13",
		PaymentMethod: enums.PaymentMethodCash,
	}).Error)

	stats, err := h.svc.ComputeDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", stats.Date)
	assert.EqualValues(t, 3, stats.TotalProducts)
	assert.EqualValues(t, 2, stats.LowStockCount)
	assert.Equal(t, 2, stats.TodaySalesCount)
	assert.Equal(t, "24.40", stats.TodaySalesTotal.StringFixed(2))
}

func TestSaleDateFollowsStoreTimeZone(t *testing.T) {
	client, _ := testutil.NewLedgerDB(t)
	loc := time.FixedZone("UTC-5", -5*60*60)
	lateEvening := time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC)

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(client.DB()),
		Tx:       client,
		Location: loc,
		Now:      func() time.Time { return lateEvening },
	})
	require.NoError(t, err)

	id, err := svc.AddInventoryItem(context.Background(), InventoryInput{Name: "Pie", Quantity: 2, Price: decimal.NewFromInt(4)})
	require.NoError(t, err)

	sale, err := svc.RecordSale(context.Background(), RecordSaleInput{ProductID: id, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", sale.SaleDate)
}

func TestListSalesReturnsLedgerInInsertOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addItem(t, "Donut", 10, "1.25", 0)

	for i := 0; i < 3; i++ {
		_, err := h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: 1})
		require.NoError(t, err)
	}

	sales, err := h.svc.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 3)
	assert.Less(t, sales[0].ID, sales[2].ID)
}

func TestListSalesPageWalksNewestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addItem(t, "Gum", 20, "0.25", 0)

	var ids []uint64
	for i := 0; i < 5; i++ {
		sale, err := h.svc.RecordSale(ctx, RecordSaleInput{ProductID: id, Quantity: 1})
		require.NoError(t, err)
		ids = append(ids, sale.ID)
	}

	first, err := h.svc.ListSalesPage(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Sales, 2)
	assert.Equal(t, ids[4], first.Sales[0].ID)
	assert.Equal(t, ids[3], first.Sales[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := h.svc.ListSalesPage(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Sales, 2)
	assert.Equal(t, ids[2], second.Sales[0].ID)

	last, err := h.svc.ListSalesPage(ctx, pagination.Params{Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, last.Sales, 1)
	assert.Equal(t, ids[0], last.Sales[0].ID)
	assert.Empty(t, last.NextCursor)

	_, err = h.svc.ListSalesPage(ctx, pagination.Params{Cursor: "not-a-cursor"})
	requireCode(t, err, pkgerrors.CodeValidation)
}
