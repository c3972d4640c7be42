package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"obra/internal"
	"obra/internal/costing"
	"obra/internal/export"
	"obra/internal/util"
)

type costsResponse struct {
	Project string                     `json:"project"`
	Rows    []internal.TaskCostSummary `json:"rows"`
	Totals  internal.TaskCostSummary   `json:"totals"`
}

type progressResponse struct {
	Project string `json:"project"`
	internal.ProgressReport
}

type budgetResponse struct {
	Project string                `json:"project"`
	Lines   []internal.BudgetLine `json:"lines"`
}

type rateView struct {
	ResourceName string          `json:"resourceName"`
	Category     string          `json:"category"`
	HourlyCost   decimal.Decimal `json:"hourlyCost"`
}

type priceView struct {
	Date      string          `json:"date"`
	Material  string          `json:"material"`
	Supplier  string          `json:"supplier"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type subcontractorView struct {
	Name    string `json:"name"`
	Trade   string `json:"trade"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`
	Updated string `json:"updated"`
}

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if err := writeJSON(w, http.StatusOK, data); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func (app *application) handleGetCosts(w http.ResponseWriter, r *http.Request) {
	svc := app.service(w, r)
	if svc == nil {
		return
	}
	rows, err := svc.CostSummary(r.Context())
	if err != nil {
		app.logger.Error("cost summary failed", "project", svc.Project(), "error", err)
		writeError(w, err)
		return
	}
	if wantsXLSX(r) {
		f, err := export.CostSummaryWorkbook(rows)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := writeWorkbook(w, f, export.FileName("costs", svc.Project(), "")); err != nil {
			app.logger.Warn("write workbook", "error", err)
		}
		return
	}
	if rows == nil {
		rows = []internal.TaskCostSummary{}
	}
	resp := costsResponse{Project: svc.Project(), Rows: rows, Totals: costing.Totals(rows)}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		app.logger.Warn("write response", "error", err)
	}
}

func (app *application) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	svc := app.service(w, r)
	if svc == nil {
		return
	}
	rep, err := svc.Progress(r.Context())
	if err != nil {
		app.logger.Error("progress report failed", "project", svc.Project(), "error", err)
		writeError(w, err)
		return
	}
	if wantsXLSX(r) {
		f, err := export.ProgressWorkbook(rep)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := writeWorkbook(w, f, export.FileName("progress", svc.Project(), "")); err != nil {
			app.logger.Warn("write workbook", "error", err)
		}
		return
	}
	if rep.Rows == nil {
		rep.Rows = []internal.ReportRow{}
	}
	if err := writeJSON(w, http.StatusOK, progressResponse{Project: svc.Project(), ProgressReport: rep}); err != nil {
		app.logger.Warn("write response", "error", err)
	}
}

func (app *application) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	svc := app.service(w, r)
	if svc == nil {
		return
	}
	lines, err := svc.Budget(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if wantsXLSX(r) {
		f, err := export.BudgetWorkbook(lines)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := writeWorkbook(w, f, export.FileName("budget", svc.Project(), "")); err != nil {
			app.logger.Warn("write workbook", "error", err)
		}
		return
	}
	if lines == nil {
		lines = []internal.BudgetLine{}
	}
	if err := writeJSON(w, http.StatusOK, budgetResponse{Project: svc.Project(), Lines: lines}); err != nil {
		app.logger.Warn("write response", "error", err)
	}
}

func (app *application) handleGetRates(w http.ResponseWriter, r *http.Request) {
	svc := app.service(w, r)
	if svc == nil {
		return
	}
	rates, err := svc.Rates(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]rateView, 0, len(rates))
	for _, rate := range rates {
		out = append(out, rateView{ResourceName: rate.ResourceName, Category: string(rate.Category), HourlyCost: rate.HourlyCost})
	}
	if err := writeJSON(w, http.StatusOK, out); err != nil {
		app.logger.Warn("write response", "error", err)
	}
}

func (app *application) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	svc := app.service(w, r)
	if svc == nil {
		return
	}
	prices, err := svc.Prices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]priceView, 0, len(prices))
	for _, p := range prices {
		out = append(out, priceView{
			Date:      util.FormatDate(p.Date),
			Material:  p.Material,
			Supplier:  p.Supplier,
			Unit:      p.Unit,
			UnitPrice: p.UnitPrice,
		})
	}
	if err := writeJSON(w, http.StatusOK, out); err != nil {
		app.logger.Warn("write response", "error", err)
	}
}

func (app *application) handleGetSubcontractors(w http.ResponseWriter, r *http.Request) {
	svc := app.service(w, r)
	if svc == nil {
		return
	}
	subs, err := svc.Subcontractors(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]subcontractorView, 0, len(subs))
	for _, s := range subs {
		out = append(out, subcontractorView{
			Name:    s.Name,
			Trade:   s.Trade,
			Status:  s.Status,
			Notes:   s.Notes,
			Updated: util.FormatDate(s.Updated),
		})
	}
	if err := writeJSON(w, http.StatusOK, out); err != nil {
		app.logger.Warn("write response", "error", err)
	}
}
