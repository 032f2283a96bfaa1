package services

import (
	"fmt"
	"strconv"
)

// ExportRow is a single row of a quote export: a task (level 0) or one of its
// material or labor lines (level 1).
type ExportRow struct {
	Level       int    // 0 = task, 1 = material or labor line
	Index       string // "1", "1.1", "1.2" etc
	Description string
	Qty         float64
	Unit        string
	UnitPrice   float64
	Amount      float64
	Timeframe   string
	Payment     *float64
}

// ExportData holds everything the Excel and PDF renderers need.
type ExportData struct {
	Title           string
	ReferenceNumber string
	CustomerName    string
	CreatedDate     string
	StatusLabel     string
	CombinedCosts   bool
	Rows            []ExportRow
	Summary         CombinedSummary
}

// BuildQuoteExport flattens tasks into export rows. With combined costs only
// the task rows are emitted, each carrying its merged total.
func BuildQuoteExport(title, ref, customer, createdDate string, status QuoteStatus, tasks []Task, combined bool) ExportData {
	data := ExportData{
		Title:           title,
		ReferenceNumber: ref,
		CustomerName:    customer,
		CreatedDate:     createdDate,
		StatusLabel:     DisplayStatus(status).Label,
		CombinedCosts:   combined,
		Summary:         CalculateCombinedSummary(tasks),
	}

	for i, t := range tasks {
		taskIdx := strconv.Itoa(i + 1)
		data.Rows = append(data.Rows, ExportRow{
			Level:       0,
			Index:       taskIdx,
			Description: t.Title,
			Amount:      TaskTotal(t),
			Timeframe:   FormatTimeframe(t.Days()),
			Payment:     t.PaymentAmount,
		})
		if combined {
			continue
		}

		sub := 0
		for _, m := range t.Materials {
			sub++
			data.Rows = append(data.Rows, ExportRow{
				Level:       1,
				Index:       fmt.Sprintf("%s.%d", taskIdx, sub),
				Description: m.Name,
				Qty:         float64(m.Quantity),
				Unit:        m.Unit,
				UnitPrice:   m.Price,
				Amount:      MaterialsCost(Task{Materials: []Material{m}}),
			})
		}
		if t.Labor != nil {
			sub++
			row := ExportRow{
				Level:       1,
				Index:       fmt.Sprintf("%s.%d", taskIdx, sub),
				Description: "Labor",
				Qty:         t.Labor.Hours,
				Unit:        "hrs",
				UnitPrice:   t.Labor.Rate,
				Amount:      LaborCost(t),
			}
			if t.Labor.IsFlat() {
				row.Description = "Labor (flat)"
				row.Unit = "lot"
			}
			data.Rows = append(data.Rows, row)
		}
	}
	return data
}
