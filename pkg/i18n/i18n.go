// Package i18n holds the operator-facing label tables. Callers always pass the
// language explicitly; there is no process-wide current language.
package i18n

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

const (
	LangEnglish = "en"
	LangSpanish = "es"
	LangFrench  = "fr"
)

// Label keys shared by the API, CSV exports and the CLI.
const (
	KeyDashboard      = "dashboard"
	KeyInventory      = "inventory"
	KeySales          = "sales"
	KeyReports        = "reports"
	KeyID             = "id"
	KeyName           = "name"
	KeyQuantity       = "quantity"
	KeyPrice          = "price"
	KeyThreshold      = "threshold"
	KeyLowStock       = "low_stock"
	KeyProduct        = "product"
	KeyProductID      = "product_id"
	KeyTotal          = "total"
	KeyDate           = "date"
	KeyTimestamp      = "timestamp"
	KeyPaymentMethod  = "payment_method"
	KeyTotalProducts  = "total_products"
	KeyLowStockCount  = "low_stock_count"
	KeyTodaySales     = "today_sales"
	KeySalesByProduct = "sales_by_product"
	KeyDailyTotals    = "daily_totals"
	KeyDateRange      = "date_range"
	KeyRecordSale     = "record_sale"
	KeyAddItem        = "add_item"
	KeyDeletedProduct = "deleted_product"
	KeyYes            = "yes"
	KeyNo             = "no"
)

var tables = map[string]map[string]string{
	LangEnglish: {
		KeyDashboard:      "Dashboard",
		KeyInventory:      "Inventory",
		KeySales:          "Sales",
		KeyReports:        "Reports",
		KeyID:             "ID",
		KeyName:           "Name",
		KeyQuantity:       "Quantity",
		KeyPrice:          "Price",
		KeyThreshold:      "Threshold",
		KeyLowStock:       "Low stock",
		KeyProduct:        "Product",
		KeyProductID:      "Product ID",
		KeyTotal:          "Total",
		KeyDate:           "Date",
		KeyTimestamp:      "Timestamp",
		KeyPaymentMethod:  "Payment method",
		KeyTotalProducts:  "Total products",
		KeyLowStockCount:  "Low stock items",
		KeyTodaySales:     "Today's sales",
		KeySalesByProduct: "Sales by product",
		KeyDailyTotals:    "Daily totals",
		KeyDateRange:      "%s to %s",
		KeyRecordSale:     "Record sale",
		KeyAddItem:        "Add item",
		KeyDeletedProduct: "(deleted product)",
		KeyYes:            "yes",
		KeyNo:             "no",
	},
	LangSpanish: {
		KeyDashboard:      "Panel",
		KeyInventory:      "Inventario",
		KeySales:          "Ventas",
		KeyReports:        "Informes",
		KeyID:             "ID",
		KeyName:           "Nombre",
		KeyQuantity:       "Cantidad",
		KeyPrice:          "Precio",
		KeyThreshold:      "Umbral",
		KeyLowStock:       "Stock bajo",
		KeyProduct:        "Producto",
		KeyProductID:      "ID de producto",
		KeyTotal:          "Total",
		KeyDate:           "Fecha",
		KeyTimestamp:      "Fecha y hora",
		KeyPaymentMethod:  "Método de pago",
		KeyTotalProducts:  "Productos totales",
		KeyLowStockCount:  "Artículos con stock bajo",
		KeyTodaySales:     "Ventas de hoy",
		KeySalesByProduct: "Ventas por producto",
		KeyDailyTotals:    "Totales diarios",
		KeyDateRange:      "del %s al %s",
		KeyRecordSale:     "Registrar venta",
		KeyAddItem:        "Agregar artículo",
		KeyDeletedProduct: "(producto eliminado)",
		KeyYes:            "sí",
		KeyNo:             "no",
	},
	LangFrench: {
		KeyDashboard:      "Tableau de bord",
		KeyInventory:      "Inventaire",
		KeySales:          "Ventes",
		KeyReports:        "Rapports",
		KeyID:             "ID",
		KeyName:           "Nom",
		KeyQuantity:       "Quantité",
		KeyPrice:          "Prix",
		KeyThreshold:      "Seuil",
		KeyLowStock:       "Stock faible",
		KeyProduct:        "Produit",
		KeyProductID:      "ID produit",
		KeyTotal:          "Total",
		KeyDate:           "Date",
		KeyTimestamp:      "Horodatage",
		KeyPaymentMethod:  "Mode de paiement",
		KeyTotalProducts:  "Nombre de produits",
		KeyLowStockCount:  "Articles en stock faible",
		KeyTodaySales:     "Ventes du jour",
		KeySalesByProduct: "Ventes par produit",
		KeyDailyTotals:    "Totaux journaliers",
		KeyDateRange:      "du %s au %s",
		KeyRecordSale:     "Enregistrer une vente",
		KeyAddItem:        "Ajouter un article",
		KeyDeletedProduct: "(produit supprimé)",
		KeyYes:            "oui",
		KeyNo:             "non",
	},
}

var (
	supported = []language.Tag{language.English, language.Spanish, language.French}
	matcher   = language.NewMatcher(supported)
)

// Supported lists the language codes with a label table.
func Supported() []string {
	out := make([]string, 0, len(tables))
	for lang := range tables {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// IsSupported reports whether lang has its own table.
func IsSupported(lang string) bool {
	_, ok := tables[strings.ToLower(strings.TrimSpace(lang))]
	return ok
}

// Lookup returns the label for key in lang, falling back to English and then
// to the key itself.
func Lookup(lang, key string) string {
	if table, ok := tables[strings.ToLower(strings.TrimSpace(lang))]; ok {
		if value, ok := table[key]; ok {
			return value
		}
	}
	if value, ok := tables[LangEnglish][key]; ok {
		return value
	}
	return key
}

// Format looks up a printf-style label and fills it with args.
func Format(lang, key string, args ...any) string {
	return fmt.Sprintf(Lookup(lang, key), args...)
}

// Labels returns a copy of the full table for lang with English fallbacks.
func Labels(lang string) map[string]string {
	out := make(map[string]string, len(tables[LangEnglish]))
	for key := range tables[LangEnglish] {
		out[key] = Lookup(lang, key)
	}
	return out
}

// Resolve picks the best supported language for an Accept-Language header or
// a bare code such as "es-MX". Unparseable input resolves to fallback.
func Resolve(preference, fallback string) string {
	if !IsSupported(fallback) {
		fallback = LangEnglish
	}
	preference = strings.TrimSpace(preference)
	if preference == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(preference)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	base, _ := supported[index].Base()
	return base.String()
}
