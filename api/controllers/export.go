package controllers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angelmondragon/poslite-backend/api/middleware"
	"github.com/angelmondragon/poslite-backend/api/responses"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
)

type csvExporter interface {
	WriteInventory(ctx context.Context, w io.Writer, lang string) error
	WriteSales(ctx context.Context, w io.Writer, lang string) error
}

// ExportInventoryCSV streams the inventory table as a CSV attachment.
func ExportInventoryCSV(exp csvExporter, logg *logger.Logger) http.HandlerFunc {
	return writeCSV("inventory", exp.WriteInventory, logg)
}

// ExportSalesCSV streams the sales ledger as a CSV attachment.
func ExportSalesCSV(exp csvExporter, logg *logger.Logger) http.HandlerFunc {
	return writeCSV("sales", exp.WriteSales, logg)
}

func writeCSV(name string, write func(context.Context, io.Writer, string) error, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := write(r.Context(), &buf, middleware.LanguageFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filename := fmt.Sprintf("%s-%s.csv", name, time.Now().Format("20060102"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}
