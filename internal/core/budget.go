package core

import "github.com/shopspring/decimal"

const (
	StatusOK       BudgetStatus = "ok"
	StatusWarning  BudgetStatus = "warning"
	StatusCritical BudgetStatus = "critical"
)

// BudgetStatus is the qualitative spend-vs-budget state shown on the
// dashboard.
type BudgetStatus string

// BudgetReport is the evaluated monthly budget position.
type BudgetReport struct {
	Spent      decimal.Decimal `json:"spent"`
	Budget     decimal.Decimal `json:"budget"`
	Remaining  decimal.Decimal `json:"remaining"`
	UsageRatio decimal.Decimal `json:"usageRatio"`
	Status     BudgetStatus    `json:"status"`
}

var (
	criticalBand   = decimal.NewFromFloat(0.20)
	warningBand    = decimal.NewFromFloat(0.50)
	categoryAlert  = decimal.NewFromFloat(0.80)
	hundredPercent = decimal.NewFromInt(100)
)

// EvaluateBudget derives the budget position from monthly spend and the
// configured monthly budget.
//
// The status bands are computed on the ratio of *remaining* budget, not
// spent: remaining below 20% of the budget is critical, below 50% is
// warning. This asymmetry is deliberate and must not be "corrected".
func EvaluateBudget(spent, budget decimal.Decimal) BudgetReport {
	remaining := budget.Sub(spent)

	usage := decimal.Zero
	if budget.IsPositive() {
		usage = spent.Div(budget)
	}

	status := StatusOK
	switch {
	case remaining.LessThan(budget.Mul(criticalBand)):
		status = StatusCritical
	case remaining.LessThan(budget.Mul(warningBand)):
		status = StatusWarning
	}

	return BudgetReport{
		Spent:      spent,
		Budget:     budget,
		Remaining:  remaining,
		UsageRatio: usage,
		Status:     status,
	}
}

// CategoryOverThreshold reports whether a category's period amount exceeds
// 80% of the monthly budget. The comparison is against the app-wide monthly
// budget rather than the category's own allowance; that is the behavior the
// dashboard was built around.
func CategoryOverThreshold(amount, monthlyBudget decimal.Decimal) bool {
	if !monthlyBudget.IsPositive() {
		return false
	}
	return amount.GreaterThan(monthlyBudget.Mul(categoryAlert))
}

// RoundedPercentage returns round(part/total*100) with halves rounded away
// from zero, or 0 when total is zero.
func RoundedPercentage(part, total decimal.Decimal) int {
	if total.IsZero() {
		return 0
	}
	return int(part.Div(total).Mul(hundredPercent).Round(0).IntPart())
}
