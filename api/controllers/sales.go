package controllers

import (
	"net/http"

	"github.com/angelmondragon/poslite-backend/api/responses"
	"github.com/angelmondragon/poslite-backend/api/validators"
	"github.com/angelmondragon/poslite-backend/internal/ledger"
	"github.com/angelmondragon/poslite-backend/pkg/enums"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
	"github.com/angelmondragon/poslite-backend/pkg/pagination"
)

const (
	defaultRecentSales = 10
	maxRecentSales     = 500
)

type recordSaleRequest struct {
	ProductID     uint64 `json:"product_id" validate:"required"`
	Quantity      int    `json:"quantity"`
	PaymentMethod string `json:"payment_method"`
}

// SaleRecord records a single sale line. Quantity rules are enforced by the
// ledger so that stock is checked before quantity.
func SaleRecord(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload recordSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// unknown methods pass through so the ledger records the rejection
		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			method = enums.PaymentMethod(payload.PaymentMethod)
		}

		sale, err := svc.RecordSale(r.Context(), ledger.RecordSaleInput{
			ProductID:     payload.ProductID,
			Quantity:      payload.Quantity,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

// SalesRecent returns the newest sales first.
func SalesRecent(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", defaultRecentSales, 1, maxRecentSales)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.FetchRecentSales(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// SalesList pages through the ledger newest first.
func SalesList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListSalesPage(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
