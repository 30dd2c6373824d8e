package reports

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/poslite-backend/internal/ledger"
	"github.com/angelmondragon/poslite-backend/pkg/i18n"
)

// Group selects how chart bars are aggregated.
type Group string

const (
	GroupProduct Group = "product"
	GroupDay     Group = "day"
)

// ParseGroup maps raw input to a Group, defaulting to product.
func ParseGroup(value string) (Group, error) {
	switch Group(strings.ToLower(strings.TrimSpace(value))) {
	case "", GroupProduct:
		return GroupProduct, nil
	case GroupDay:
		return GroupDay, nil
	}
	return "", fmt.Errorf("invalid chart group %q", value)
}

// Bar is one aggregated row of a sales chart.
type Bar struct {
	Label    string          `json:"label"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

type salesSource interface {
	FetchSalesInRange(ctx context.Context, startDate, endDate string) ([]ledger.SaleReportRow, error)
}

// Service aggregates ledger sales into chart bars.
type Service struct {
	sales salesSource
}

// NewService builds a reports service on top of the ledger.
func NewService(sales salesSource) (*Service, error) {
	if sales == nil {
		return nil, fmt.Errorf("sales source required")
	}
	return &Service{sales: sales}, nil
}

// Bars dispatches to the aggregation for group.
func (s *Service) Bars(ctx context.Context, start, end string, group Group) ([]Bar, error) {
	if group == GroupDay {
		return s.DailyTotals(ctx, start, end)
	}
	return s.SalesByProduct(ctx, start, end)
}

// SalesByProduct sums quantity and revenue per product id, highest revenue first.
func (s *Service) SalesByProduct(ctx context.Context, start, end string) ([]Bar, error) {
	rows, err := s.sales.FetchSalesInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[uint64]*Bar)
	for _, row := range rows {
		bar, ok := byProduct[row.ProductID]
		if !ok {
			bar = &Bar{Label: row.ProductName, Total: decimal.Zero}
			byProduct[row.ProductID] = bar
		}
		bar.Quantity += row.Quantity
		bar.Total = bar.Total.Add(row.Total)
	}

	bars := make([]Bar, 0, len(byProduct))
	for _, bar := range byProduct {
		bars = append(bars, *bar)
	}
	sort.Slice(bars, func(i, j int) bool {
		if cmp := bars[i].Total.Cmp(bars[j].Total); cmp != 0 {
			return cmp > 0
		}
		return bars[i].Label < bars[j].Label
	})
	return bars, nil
}

// DailyTotals returns one bar per calendar day that has sales, oldest first.
func (s *Service) DailyTotals(ctx context.Context, start, end string) ([]Bar, error) {
	rows, err := s.sales.FetchSalesInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*Bar)
	for _, row := range rows {
		bar, ok := byDay[row.SaleDate]
		if !ok {
			bar = &Bar{Label: row.SaleDate, Total: decimal.Zero}
			byDay[row.SaleDate] = bar
		}
		bar.Quantity += row.Quantity
		bar.Total = bar.Total.Add(row.Total)
	}

	bars := make([]Bar, 0, len(byDay))
	for _, bar := range byDay {
		bars = append(bars, *bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Label < bars[j].Label })
	return bars, nil
}

// Title labels a chart of group over start..end in lang.
func Title(lang string, group Group, start, end string) string {
	key := i18n.KeySalesByProduct
	if group == GroupDay {
		key = i18n.KeyDailyTotals
	}
	return i18n.Lookup(lang, key) + " (" + i18n.Format(lang, i18n.KeyDateRange, start, end) + ")"
}

// RenderBars writes a horizontal text chart scaled so the largest total spans width cells.
func RenderBars(w io.Writer, title string, bars []Bar, width int) error {
	if width <= 0 {
		width = 40
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	if len(bars) == 0 {
		_, err := fmt.Fprintln(w, "(no sales)")
		return err
	}

	labelWidth := 0
	max := decimal.Zero
	for _, bar := range bars {
		if n := len([]rune(bar.Label)); n > labelWidth {
			labelWidth = n
		}
		if bar.Total.GreaterThan(max) {
			max = bar.Total
		}
	}

	for _, bar := range bars {
		cells := 0
		if max.IsPositive() {
			cells = int(bar.Total.Div(max).Mul(decimal.NewFromInt(int64(width))).Round(0).IntPart())
		}
		if cells == 0 && bar.Total.IsPositive() {
			cells = 1
		}
		if _, err := fmt.Fprintf(w, "%-*s | %-*s %s (%d)\n",
			labelWidth, bar.Label,
			width, strings.Repeat("#", cells),
			bar.Total.StringFixed(2), bar.Quantity,
		); err != nil {
			return err
		}
	}
	return nil
}
