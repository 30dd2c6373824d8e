package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/poslite-backend/internal/ledger"
	"github.com/angelmondragon/poslite-backend/pkg/enums"
)

type stubLedger struct {
	items []ledger.InventoryItem
	sales []ledger.Sale
	err   error
}

func (s stubLedger) ListInventory(context.Context) ([]ledger.InventoryItem, error) {
	return s.items, s.err
}

func (s stubLedger) ListSales(context.Context) ([]ledger.Sale, error) {
	return s.sales, s.err
}

func readAll(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteInventoryLocalizesHeader(t *testing.T) {
	exporter, err := NewExporter(stubLedger{items: []ledger.InventoryItem{
		{ID: 1, Name: "Café, molido", Quantity: 3, Price: decimal.RequireFromString("7.5"), Threshold: 5, LowStock: true},
		{ID: 2, Name: "Leche", Quantity: 12, Price: decimal.NewFromInt(2), Threshold: 4},
	}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteInventory(context.Background(), &buf, "es"))

	records := readAll(t, &buf)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"ID", "Nombre", "Cantidad", "Precio", "Umbral", "Stock bajo"}, records[0])
	assert.Equal(t, []string{"1", "Café, molido", "3", "7.50", "5", "sí"}, records[1])
	assert.Equal(t, []string{"2", "Leche", "12", "2.00", "4", "no"}, records[2])
}

func TestWriteSales(t *testing.T) {
	soldAt := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)
	exporter, err := NewExporter(stubLedger{sales: []ledger.Sale{
		{ID: 7, ProductID: 3, ProductNameAtSale: "Tea", Quantity: 4, Total: decimal.NewFromInt(20), Timestamp: soldAt, SaleDate: "2026-01-05", PaymentMethod: enums.PaymentMethodCard},
	}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteSales(context.Background(), &buf, "en"))

	records := readAll(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, SalesHeader("en"), records[0])
	assert.Equal(t, []string{"7", "2026-01-05T09:15:00Z", "2026-01-05", "3", "Tea", "4", "20.00", "card"}, records[1])
}

func TestWriteSalesHeaderOnlyWhenEmpty(t *testing.T) {
	exporter, err := NewExporter(stubLedger{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteSales(context.Background(), &buf, "fr"))
	records := readAll(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "Mode de paiement", records[0][7])
}

func TestWriteInventoryPropagatesErrors(t *testing.T) {
	exporter, err := NewExporter(stubLedger{err: errors.New("db down")})
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Error(t, exporter.WriteInventory(context.Background(), &buf, "en"))
	assert.Zero(t, buf.Len())
}
