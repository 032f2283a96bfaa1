package services

import "github.com/shopspring/decimal"

// ProjectSummary is the derived per-quote rollup used by the task list.
type ProjectSummary struct {
	TotalCost  float64 `json:"totalCost"`
	TotalTasks int     `json:"totalTasks"`
	TotalDays  int     `json:"totalDays"`
}

// CombinedSummary extends ProjectSummary with the materials/labor split and
// the scheduled milestone payments. TotalCost stays materials + labor;
// TotalWithPayments additionally folds in payment amounts.
type CombinedSummary struct {
	ProjectSummary
	TotalMaterialsCost float64 `json:"totalMaterialsCost"`
	TotalLaborCost     float64 `json:"totalLaborCost"`
	TotalPaymentAmount float64 `json:"totalPaymentAmount"`
	TotalWithPayments  float64 `json:"totalWithPayments"`
}

// CostBreakdown is the per-task cost display. In combined mode Materials and
// Labor are nil and only Total is shown.
type CostBreakdown struct {
	Materials *float64 `json:"materials,omitempty"`
	Labor     *float64 `json:"labor,omitempty"`
	Total     float64  `json:"total"`
}

func materialsDecimal(t Task) decimal.Decimal {
	sum := decimal.Zero
	for _, m := range t.Materials {
		line := decimal.NewFromFloat(m.Price).Mul(decimal.NewFromInt(int64(m.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}

func laborDecimal(t Task) decimal.Decimal {
	if t.Labor == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(t.Labor.Hours).Mul(decimal.NewFromFloat(t.Labor.Rate))
}

func paymentDecimal(t Task) decimal.Decimal {
	if t.PaymentAmount == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*t.PaymentAmount)
}

// MaterialsCost sums price × quantity over the task's materials.
func MaterialsCost(t Task) float64 {
	return materialsDecimal(t).InexactFloat64()
}

// LaborCost returns hours × rate, or 0 when the task has no labor. Flat-total
// labor (hours == 1) falls out of the same formula.
func LaborCost(t Task) float64 {
	return laborDecimal(t).InexactFloat64()
}

// TaskTotal is materials + labor. Milestone payments are tracked separately.
func TaskTotal(t Task) float64 {
	return materialsDecimal(t).Add(laborDecimal(t)).InexactFloat64()
}

// CalculateProjectSummary folds the task list into cost, count and duration
// totals using materials + labor only.
func CalculateProjectSummary(tasks []Task) ProjectSummary {
	cost := decimal.Zero
	days := 0
	for _, t := range tasks {
		cost = cost.Add(materialsDecimal(t)).Add(laborDecimal(t))
		days += t.Days()
	}
	return ProjectSummary{
		TotalCost:  cost.InexactFloat64(),
		TotalTasks: len(tasks),
		TotalDays:  days,
	}
}

// CalculateCombinedSummary is CalculateProjectSummary plus the separate
// materials, labor and payment totals.
func CalculateCombinedSummary(tasks []Task) CombinedSummary {
	materials, labor, payments := decimal.Zero, decimal.Zero, decimal.Zero
	for _, t := range tasks {
		materials = materials.Add(materialsDecimal(t))
		labor = labor.Add(laborDecimal(t))
		payments = payments.Add(paymentDecimal(t))
	}
	return CombinedSummary{
		ProjectSummary:     CalculateProjectSummary(tasks),
		TotalMaterialsCost: materials.InexactFloat64(),
		TotalLaborCost:     labor.InexactFloat64(),
		TotalPaymentAmount: payments.InexactFloat64(),
		TotalWithPayments:  materials.Add(labor).Add(payments).InexactFloat64(),
	}
}

// TaskCostBreakdown returns the task's costs for display, merged into a single
// figure when combined is true.
func TaskCostBreakdown(t Task, combined bool) CostBreakdown {
	b := CostBreakdown{Total: TaskTotal(t)}
	if combined {
		return b
	}
	m, l := MaterialsCost(t), LaborCost(t)
	b.Materials = &m
	b.Labor = &l
	return b
}
