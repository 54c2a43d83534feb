package enhancement

import (
	"testing"
	"time"

	"legalcosts-backend/models"
)

// sampleResult mirrors a High Court default judgment calculation.
func sampleResult(t *testing.T) *models.CalculationResult {
	t.Helper()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.CalculationResult{
		ModuleID:      "civil_fixed_costs",
		TotalCosts:    models.Dollars(2450, 0),
		BaseCosts:     models.Dollars(2200, 0),
		Disbursements: models.Dollars(250, 0),
		Amounts: map[string]models.Money{
			"hc_dj_base":    models.Dollars(2200, 0),
			"hc_filing_fee": models.Dollars(250, 0),
		},
		Breakdown: []models.CostItem{
			{Code: "hc_dj_base", Description: "Default judgment fixed sum", Kind: models.CostBase, Quantity: 1,
				UnitAmount: models.Dollars(2200, 0), Amount: models.Dollars(2200, 0), Citation: "CPR Sch 3 item 1(a)", NodeID: "hc_default_judgment"},
			{Code: "hc_filing_fee", Description: "High Court filing fee", Kind: models.CostDisbursement, Quantity: 1,
				UnitAmount: models.Dollars(250, 0), Amount: models.Dollars(250, 0), Citation: "Fees Reg sch 1 item 4", NodeID: "hc_default_judgment"},
		},
		Citations:    []string{"CPR Sch 3 item 1(a)", "Fees Reg sch 1 item 4"},
		RuleIDs:      []string{"hc_default_judgment"},
		Authority:    "Civil Procedure Rules, Schedule 3 (Fixed Costs)",
		Confidence:   0.9,
		Explanation:  "Fixed costs for High Court default judgment under CPR Sch 3 item 1(a): costs $2200.00, disbursements $250.00, total $2450.00.",
		Notes:        []string{"The court must allow the fixed sum (CPR Sch 3 item 1(a))."},
		NextSteps:    []string{"Confirm claim_amount to firm up the match."},
		CalculatedAt: &at,
	}
}

// reworded returns a candidate that only rewrites free text.
func reworded(r *models.CalculationResult) *models.CalculationResult {
	out := r.Clone()
	out.Explanation = "Under CPR Sch 3 item 1(a) the total claimable is $2450.00, made up of $2200.00 costs and a $250.00 filing fee."
	out.NextSteps = []string{"Check the claim amount to confirm the match."}
	return out
}
