package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/angelmondragon/poslite-backend/internal/ledger"
	"github.com/angelmondragon/poslite-backend/pkg/i18n"
)

type ledgerReader interface {
	ListInventory(ctx context.Context) ([]ledger.InventoryItem, error)
	ListSales(ctx context.Context) ([]ledger.Sale, error)
}

// Exporter writes ledger tables as CSV with localized headers.
type Exporter struct {
	ledger ledgerReader
}

// NewExporter returns an exporter reading from the ledger service.
func NewExporter(reader ledgerReader) (*Exporter, error) {
	if reader == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	return &Exporter{ledger: reader}, nil
}

// InventoryHeader returns the inventory CSV header row in lang.
func InventoryHeader(lang string) []string {
	return labels(lang,
		i18n.KeyID,
		i18n.KeyName,
		i18n.KeyQuantity,
		i18n.KeyPrice,
		i18n.KeyThreshold,
		i18n.KeyLowStock,
	)
}

// SalesHeader returns the sales CSV header row in lang.
func SalesHeader(lang string) []string {
	return labels(lang,
		i18n.KeyID,
		i18n.KeyTimestamp,
		i18n.KeyDate,
		i18n.KeyProductID,
		i18n.KeyProduct,
		i18n.KeyQuantity,
		i18n.KeyTotal,
		i18n.KeyPaymentMethod,
	)
}

// WriteInventory writes every inventory item, ordered by id.
func (e *Exporter) WriteInventory(ctx context.Context, w io.Writer, lang string) error {
	items, err := e.ledger.ListInventory(ctx)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(InventoryHeader(lang)); err != nil {
		return fmt.Errorf("write inventory header: %w", err)
	}
	yes, no := i18n.Lookup(lang, i18n.KeyYes), i18n.Lookup(lang, i18n.KeyNo)
	for _, item := range items {
		lowStock := no
		if item.LowStock {
			lowStock = yes
		}
		record := []string{
			strconv.FormatUint(item.ID, 10),
			item.Name,
			strconv.Itoa(item.Quantity),
			item.Price.StringFixed(2),
			strconv.Itoa(item.Threshold),
			lowStock,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write inventory row %d: %w", item.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSales writes the full sales ledger, ordered by id.
func (e *Exporter) WriteSales(ctx context.Context, w io.Writer, lang string) error {
	sales, err := e.ledger.ListSales(ctx)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(SalesHeader(lang)); err != nil {
		return fmt.Errorf("write sales header: %w", err)
	}
	for _, sale := range sales {
		record := []string{
			strconv.FormatUint(sale.ID, 10),
			sale.Timestamp.UTC().Format(time.RFC3339),
			sale.SaleDate,
			strconv.FormatUint(sale.ProductID, 10),
			sale.ProductNameAtSale,
			strconv.Itoa(sale.Quantity),
			sale.Total.StringFixed(2),
			sale.PaymentMethod.String(),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write sales row %d: %w", sale.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func labels(lang string, keys ...string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, i18n.Lookup(lang, key))
	}
	return out
}
