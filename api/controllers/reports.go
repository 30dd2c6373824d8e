package controllers

import (
	"bytes"
	"context"
	"net/http"

	"github.com/angelmondragon/poslite-backend/api/middleware"
	"github.com/angelmondragon/poslite-backend/api/responses"
	"github.com/angelmondragon/poslite-backend/api/validators"
	"github.com/angelmondragon/poslite-backend/internal/ledger"
	"github.com/angelmondragon/poslite-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/poslite-backend/pkg/errors"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
)

type chartService interface {
	Bars(ctx context.Context, start, end string, group reports.Group) ([]reports.Bar, error)
}

type chartResponse struct {
	Title string        `json:"title"`
	Group reports.Group `json:"group"`
	Start string        `json:"start"`
	End   string        `json:"end"`
	Bars  []reports.Bar `json:"bars"`
}

// ReportSales lists the sales whose calendar day falls within [start, end].
func ReportSales(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, end, err := parseRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.FetchSalesInRange(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ReportChart aggregates sales into bars. format=text renders the chart as
// plain text instead of JSON.
func ReportChart(svc chartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, end, err := parseRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		group, err := reports.ParseGroup(r.URL.Query().Get("group"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid group").
				WithDetails(map[string]any{"group": r.URL.Query().Get("group")}))
			return
		}

		bars, err := svc.Bars(r.Context(), start, end, group)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lang := middleware.LanguageFromContext(r.Context())
		title := reports.Title(lang, group, start, end)

		if r.URL.Query().Get("format") == "text" {
			var buf bytes.Buffer
			if err := reports.RenderBars(&buf, title, bars, 40); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render chart"))
				return
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write(buf.Bytes())
			return
		}

		responses.WriteSuccess(w, chartResponse{Title: title, Group: group, Start: start, End: end, Bars: bars})
	}
}

// Dashboard returns today's till summary.
func Dashboard(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.ComputeDashboardStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func parseRange(r *http.Request) (string, string, error) {
	start, err := validators.RequireQuery(r, "start")
	if err != nil {
		return "", "", err
	}
	end, err := validators.RequireQuery(r, "end")
	if err != nil {
		return "", "", err
	}
	return start, end, nil
}
