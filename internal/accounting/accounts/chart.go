package accounts

// Standard chart codes.
const (
	CodeCash                 = "1000"
	CodeAccountsReceivable   = "1100"
	CodeInventory            = "1200"
	CodeTaxRecoverable       = "1300"
	CodeAccountsPayable      = "2000"
	CodeTaxPayable           = "2100"
	CodeIncomeTaxPayable     = "2200"
	CodeFederalTaxPayable    = "2300"
	CodeProvincialTaxPayable = "2310"
	CodeCPPPayable           = "2320"
	CodeEIPayable            = "2330"
	CodeOwnersEquity         = "3000"
	CodeRetainedEarnings     = "3100"
	CodeSalesRevenue         = "4000"
	CodeServiceRevenue       = "4100"
	CodeCOGS                 = "5000"
	CodeSalaries             = "5100"
	CodeEmployerCPPExpense   = "5110"
	CodeEmployerEIExpense    = "5120"
	CodeRent                 = "5200"
	CodeUtilities            = "5300"
	CodeOfficeSupplies       = "5400"
)

// DefaultChart returns the chart a fresh ledger is seeded with. Statutory
// payroll accounts and the recoverable tax account are created lazily by the
// posting hooks that need them.
func DefaultChart() []Spec {
	return []Spec{
		{Code: CodeCash, Name: "Cash", Type: AccountTypeAsset},
		{Code: CodeAccountsReceivable, Name: "Accounts Receivable", Type: AccountTypeAsset},
		{Code: CodeInventory, Name: "Inventory", Type: AccountTypeAsset},
		{Code: CodeAccountsPayable, Name: "Accounts Payable", Type: AccountTypeLiability},
		{Code: CodeTaxPayable, Name: "GST/HST Payable", Type: AccountTypeLiability},
		{Code: CodeIncomeTaxPayable, Name: "Income Tax Payable", Type: AccountTypeLiability},
		{Code: CodeOwnersEquity, Name: "Owner's Equity", Type: AccountTypeEquity},
		{Code: CodeRetainedEarnings, Name: "Retained Earnings", Type: AccountTypeEquity},
		{Code: CodeSalesRevenue, Name: "Sales Revenue", Type: AccountTypeRevenue},
		{Code: CodeServiceRevenue, Name: "Service Revenue", Type: AccountTypeRevenue},
		{Code: CodeCOGS, Name: "Cost of Goods Sold", Type: AccountTypeExpense},
		{Code: CodeSalaries, Name: "Salaries Expense", Type: AccountTypeExpense},
		{Code: CodeRent, Name: "Rent Expense", Type: AccountTypeExpense},
		{Code: CodeUtilities, Name: "Utilities Expense", Type: AccountTypeExpense},
		{Code: CodeOfficeSupplies, Name: "Office Supplies", Type: AccountTypeExpense},
	}
}
