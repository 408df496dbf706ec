package reports

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
)

// TaxSummary nets sales tax collected against input tax paid.
type TaxSummary struct {
	Collected decimal.Decimal `json:"collected"`
	Paid      decimal.Decimal `json:"paid"`
	NetOwing  decimal.Decimal `json:"net_owing"`
}

// BuildTaxSummary reads the GST/HST payable and recoverable balances. A
// missing recoverable account means no input tax has been paid.
func BuildTaxSummary(balances []AccountBalance) TaxSummary {
	summary := TaxSummary{Collected: decimal.Zero, Paid: decimal.Zero}
	for _, acc := range balances {
		switch acc.Code {
		case accounts.CodeTaxPayable:
			summary.Collected = acc.Closing
		case accounts.CodeTaxRecoverable:
			summary.Paid = acc.Closing
		}
	}
	summary.NetOwing = summary.Collected.Sub(summary.Paid)
	return summary
}
