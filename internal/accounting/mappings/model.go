package mappings

import (
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
)

// Integration modules.
const (
	ModuleAR          = "AR"
	ModuleSales       = "SALES"
	ModulePayroll     = "PAYROLL"
	ModuleProcurement = "PROCUREMENT"
)

// Integration keys.
const (
	KeyARReceivable = "ar.receivable"
	KeyARRevenue    = "ar.revenue"
	KeyARCash       = "ar.cash"
	KeyARTaxPayable = "ar.tax_payable"

	KeySalesCOGS      = "sales.cogs"
	KeySalesInventory = "sales.inventory"

	KeyPayrollSalaries      = "payroll.salaries"
	KeyPayrollCash          = "payroll.cash"
	KeyPayrollEmployerCPP   = "payroll.employer_cpp"
	KeyPayrollEmployerEI    = "payroll.employer_ei"
	KeyPayrollFederalTax    = "payroll.federal_tax"
	KeyPayrollProvincialTax = "payroll.provincial_tax"
	KeyPayrollCPPPayable    = "payroll.cpp_payable"
	KeyPayrollEIPayable     = "payroll.ei_payable"

	KeyProcurementInventory      = "procurement.inventory"
	KeyProcurementTaxRecoverable = "procurement.tax_recoverable"
	KeyProcurementPayable        = "procurement.payable"
	KeyProcurementCash           = "procurement.cash"
)

// AccountMapping links integration keys to ledger accounts. Name and Type
// describe the account to create when a hook must ensure it exists.
type AccountMapping struct {
	Module      string
	Key         string
	AccountCode string
	AccountName string
	AccountType accounts.AccountType
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Spec returns the account definition carried by the mapping.
func (m AccountMapping) Spec() accounts.Spec {
	return accounts.Spec{Code: m.AccountCode, Name: m.AccountName, Type: m.AccountType}
}

// DefaultMappings binds every integration key to the standard chart.
func DefaultMappings() []AccountMapping {
	m := func(module, key, code, name string, typ accounts.AccountType) AccountMapping {
		return AccountMapping{Module: module, Key: key, AccountCode: code, AccountName: name, AccountType: typ}
	}
	return []AccountMapping{
		m(ModuleAR, KeyARReceivable, accounts.CodeAccountsReceivable, "Accounts Receivable", accounts.AccountTypeAsset),
		m(ModuleAR, KeyARRevenue, accounts.CodeSalesRevenue, "Sales Revenue", accounts.AccountTypeRevenue),
		m(ModuleAR, KeyARCash, accounts.CodeCash, "Cash", accounts.AccountTypeAsset),
		m(ModuleAR, KeyARTaxPayable, accounts.CodeTaxPayable, "GST/HST Payable", accounts.AccountTypeLiability),

		m(ModuleSales, KeySalesCOGS, accounts.CodeCOGS, "Cost of Goods Sold", accounts.AccountTypeExpense),
		m(ModuleSales, KeySalesInventory, accounts.CodeInventory, "Inventory", accounts.AccountTypeAsset),

		m(ModulePayroll, KeyPayrollSalaries, accounts.CodeSalaries, "Salaries Expense", accounts.AccountTypeExpense),
		m(ModulePayroll, KeyPayrollCash, accounts.CodeCash, "Cash", accounts.AccountTypeAsset),
		m(ModulePayroll, KeyPayrollEmployerCPP, accounts.CodeEmployerCPPExpense, "Employer CPP Expense", accounts.AccountTypeExpense),
		m(ModulePayroll, KeyPayrollEmployerEI, accounts.CodeEmployerEIExpense, "Employer EI Expense", accounts.AccountTypeExpense),
		m(ModulePayroll, KeyPayrollFederalTax, accounts.CodeFederalTaxPayable, "Federal Tax Payable", accounts.AccountTypeLiability),
		m(ModulePayroll, KeyPayrollProvincialTax, accounts.CodeProvincialTaxPayable, "Provincial Tax Payable", accounts.AccountTypeLiability),
		m(ModulePayroll, KeyPayrollCPPPayable, accounts.CodeCPPPayable, "CPP Payable", accounts.AccountTypeLiability),
		m(ModulePayroll, KeyPayrollEIPayable, accounts.CodeEIPayable, "EI Payable", accounts.AccountTypeLiability),

		m(ModuleProcurement, KeyProcurementInventory, accounts.CodeInventory, "Inventory", accounts.AccountTypeAsset),
		m(ModuleProcurement, KeyProcurementTaxRecoverable, accounts.CodeTaxRecoverable, "GST/HST Recoverable", accounts.AccountTypeAsset),
		m(ModuleProcurement, KeyProcurementPayable, accounts.CodeAccountsPayable, "Accounts Payable", accounts.AccountTypeLiability),
		m(ModuleProcurement, KeyProcurementCash, accounts.CodeCash, "Cash", accounts.AccountTypeAsset),
	}
}
