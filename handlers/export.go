package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog/log"

	"quotebuilder/services"
)

// buildQuoteExport loads the quote, its customer and its tasks and flattens
// them for the Excel and PDF renderers.
func buildQuoteExport(app core.App, quoteID string) (services.ExportData, error) {
	quote, err := app.FindRecordById("quotes", quoteID)
	if err != nil {
		return services.ExportData{}, fmt.Errorf("quote not found: %w", err)
	}

	tasks, err := loadTasks(app, quote.Id)
	if err != nil {
		return services.ExportData{}, err
	}

	customerName := ""
	if id := quote.GetString("customer"); id != "" {
		if c, err := app.FindRecordById("customers", id); err == nil {
			customerName = c.GetString("name")
		}
	}

	createdDate := "-"
	if dt := quote.GetDateTime("created"); !dt.IsZero() {
		createdDate = dt.Time().Format("02 Jan 2006")
	}

	return services.BuildQuoteExport(
		quote.GetString("title"),
		quote.GetString("reference_number"),
		customerName,
		createdDate,
		quoteStatus(quote),
		tasks,
		quote.GetBool("combined_costs"),
	), nil
}

// sanitizeFilename removes characters that are unsafe for filenames.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "-")
	return s
}

// HandleQuoteExportExcel handles GET /quote/v2/{id}/export/excel
func HandleQuoteExportExcel(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		if quoteID == "" {
			return e.String(http.StatusBadRequest, "Missing quote ID")
		}

		data, err := buildQuoteExport(app, quoteID)
		if err != nil {
			log.Warn().Err(err).Str("quote", quoteID).Msg("export: HandleQuoteExportExcel: load failed")
			return e.String(http.StatusNotFound, "Quote not found")
		}

		xlsxBytes, err := services.GenerateExcel(data)
		if err != nil {
			log.Error().Err(err).Str("quote", quoteID).Msg("export: HandleQuoteExportExcel: generate failed")
			return e.String(http.StatusInternalServerError, "Failed to generate Excel file")
		}

		filename := fmt.Sprintf("Quote_%s_%d.xlsx", sanitizeFilename(data.Title), time.Now().Year())

		e.Response.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		_, err = e.Response.Write(xlsxBytes)
		return err
	}
}

// HandleQuoteExportPDF handles GET /quote/v2/{id}/export/pdf
func HandleQuoteExportPDF(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		if quoteID == "" {
			return e.String(http.StatusBadRequest, "Missing quote ID")
		}

		data, err := buildQuoteExport(app, quoteID)
		if err != nil {
			log.Warn().Err(err).Str("quote", quoteID).Msg("export: HandleQuoteExportPDF: load failed")
			return e.String(http.StatusNotFound, "Quote not found")
		}

		pdfBytes, err := services.GeneratePDF(data)
		if err != nil {
			log.Error().Err(err).Str("quote", quoteID).Msg("export: HandleQuoteExportPDF: generate failed")
			return e.String(http.StatusInternalServerError, "Failed to generate PDF file")
		}

		filename := fmt.Sprintf("Quote_%s_%d.pdf", sanitizeFilename(data.Title), time.Now().Year())

		e.Response.Header().Set("Content-Type", "application/pdf")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		_, err = e.Response.Write(pdfBytes)
		return err
	}
}
