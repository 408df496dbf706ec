package integration

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	ledger "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/payroll"
	"github.com/odyssey-erp/odyssey-ledger/internal/procurement"
	"github.com/odyssey-erp/odyssey-ledger/internal/sales"
)

// Source modules stamped on integration entries.
const (
	SourceInvoiceSent    = "ar.invoice_sent"
	SourceInvoicePayment = "ar.invoice_payment"
	SourceCOGS           = "sales.cogs"
	SourcePayroll        = "payroll.pay_run"
	SourceRemittance     = "payroll.remittance"
	SourceGoodsReceipt   = "procurement.receipt"
	SourceVendorPayment  = "procurement.vendor_payment"
)

// ErrNothingToPost indicates an event whose amounts are all zero.
var ErrNothingToPost = errors.New("integration: nothing to post")

// InvoiceAccounts are the codes used by invoice entries.
type InvoiceAccounts struct {
	Receivable string
	Revenue    string
	Cash       string
	TaxPayable string
}

// COGSAccounts are the codes used by cost of goods sold entries.
type COGSAccounts struct {
	COGS      string
	Inventory string
}

// PayrollAccounts are the codes used by pay run and remittance entries.
type PayrollAccounts struct {
	Salaries      string
	Cash          string
	EmployerCPP   string
	EmployerEI    string
	FederalTax    string
	ProvincialTax string
	CPPPayable    string
	EIPayable     string
}

// VendorPaymentAccounts are the codes used by vendor payment entries.
type VendorPaymentAccounts struct {
	Payable string
	Cash    string
}

// ReceiptAccounts are the codes used by purchase receipt entries.
type ReceiptAccounts struct {
	Inventory      string
	TaxRecoverable string
	Payable        string
}

// BuildInvoiceSentEntry recognises revenue on the subtotal:
// Dr Accounts Receivable / Cr Sales Revenue.
func BuildInvoiceSentEntry(evt ar.InvoiceSentEvent, acc InvoiceAccounts) (journals.JournalEntry, error) {
	if !evt.Subtotal.IsPositive() {
		return journals.JournalEntry{}, fmt.Errorf("%w: invoice %s subtotal %s", ErrNothingToPost, evt.Number, evt.Subtotal)
	}
	memo := fmt.Sprintf("Invoice %s - %s", evt.Number, evt.CustomerName)
	entry := journals.NewDraft(evt.SentAt, fmt.Sprintf("Invoice %s sent (%s)", evt.Number, ledger.FormatAmount(evt.Subtotal)),
		journals.DebitLine(acc.Receivable, memo, evt.Subtotal),
		journals.CreditLine(acc.Revenue, memo, evt.Subtotal),
	)
	entry.SourceModule = SourceInvoiceSent
	entry.SourceRef = sourceRef("INVOICE_SENT", evt.InvoiceID)
	return entry, nil
}

// BuildInvoicePaymentEntry records a payment: Dr Cash for the total,
// Cr Accounts Receivable for the subtotal and Cr Tax Payable for any tax.
func BuildInvoicePaymentEntry(evt ar.InvoicePaidEvent, acc InvoiceAccounts) (journals.JournalEntry, error) {
	if !evt.Total.IsPositive() {
		return journals.JournalEntry{}, fmt.Errorf("%w: invoice %s total %s", ErrNothingToPost, evt.Number, evt.Total)
	}
	memo := fmt.Sprintf("Payment for %s", evt.Number)
	lines := []journals.JournalLine{
		journals.DebitLine(acc.Cash, memo, evt.Total),
		journals.CreditLine(acc.Receivable, memo, evt.Subtotal),
	}
	if evt.Tax.IsPositive() {
		lines = append(lines, journals.CreditLine(acc.TaxPayable, "Sales tax on "+evt.Number, evt.Tax))
	}
	entry := journals.NewDraft(evt.PaidAt, fmt.Sprintf("Payment received for %s (%s)", evt.Number, ledger.FormatAmount(evt.Total)), lines...)
	entry.SourceModule = SourceInvoicePayment
	entry.SourceRef = sourceRef("INVOICE_PAYMENT", evt.InvoiceID)
	return entry, nil
}

// COGSTotal values fulfilled lines at cost, rounded to the cent.
func COGSTotal(lines []sales.FulfilledLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitCost.Mul(decimal.NewFromInt(l.Quantity)))
	}
	return ledger.RoundMoney(total)
}

// BuildCOGSEntry moves the cost of shipped goods out of inventory:
// Dr COGS / Cr Inventory. A zero cost yields ErrNothingToPost.
func BuildCOGSEntry(evt sales.OrderFulfilledEvent, acc COGSAccounts) (journals.JournalEntry, error) {
	total := COGSTotal(evt.Lines)
	if total.IsZero() {
		return journals.JournalEntry{}, fmt.Errorf("%w: order %s has no cost", ErrNothingToPost, evt.Number)
	}
	memo := "COGS for " + evt.Number
	entry := journals.NewDraft(evt.FulfilledAt, fmt.Sprintf("Cost of goods sold - %s", evt.Number),
		journals.DebitLine(acc.COGS, memo, total),
		journals.CreditLine(acc.Inventory, memo, total),
	)
	entry.SourceModule = SourceCOGS
	entry.SourceRef = sourceRef("SALES_ORDER", evt.OrderID)
	return entry, nil
}

// BuildPayrollEntry books a disbursed pay run. Debits: gross salaries and
// employer CPP/EI. Credits: net pay from cash and each statutory payable.
// Zero lines are left out.
func BuildPayrollEntry(evt payroll.PayRunPaidEvent, acc PayrollAccounts) (journals.JournalEntry, error) {
	s := evt.Summary
	if !s.TotalGross.IsPositive() {
		return journals.JournalEntry{}, fmt.Errorf("%w: pay run %s has no gross pay", ErrNothingToPost, evt.Period)
	}
	period := evt.Period
	var lines []journals.JournalLine
	add := func(line journals.JournalLine) {
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return
		}
		lines = append(lines, line)
	}
	add(journals.DebitLine(acc.Salaries, "Gross salaries "+period, s.TotalGross))
	add(journals.DebitLine(acc.EmployerCPP, "Employer CPP "+period, s.EmployerCPP))
	add(journals.DebitLine(acc.EmployerEI, "Employer EI "+period, s.EmployerEI))
	add(journals.CreditLine(acc.Cash, "Net pay "+period, s.TotalNet))
	add(journals.CreditLine(acc.FederalTax, "Federal tax withheld "+period, s.FederalTax))
	add(journals.CreditLine(acc.ProvincialTax, "Provincial tax withheld "+period, s.ProvincialTax))
	add(journals.CreditLine(acc.CPPPayable, "CPP employee + employer "+period, s.EmployeeCPP.Add(s.EmployerCPP)))
	add(journals.CreditLine(acc.EIPayable, "EI employee + employer "+period, s.EmployeeEI.Add(s.EmployerEI)))

	entry := journals.NewDraft(evt.PayDate, fmt.Sprintf("Payroll %s - %d employees", period, s.EmployeeCount), lines...)
	entry.SourceModule = SourcePayroll
	entry.SourceRef = sourceRef("PAY_RUN", evt.PayRunID)
	return entry, nil
}

// BuildRemittanceEntry pays statutory deductions: Dr each payable for its
// share / Cr Cash for the total.
func BuildRemittanceEntry(evt payroll.RemittanceEvent, acc PayrollAccounts) (journals.JournalEntry, error) {
	a := evt.Allocation
	total := a.Total()
	if !total.IsPositive() {
		return journals.JournalEntry{}, fmt.Errorf("%w: remittance %s", ErrNothingToPost, evt.Reference)
	}
	var lines []journals.JournalLine
	for _, part := range []struct {
		code, memo string
		amount     decimal.Decimal
	}{
		{acc.FederalTax, "Federal tax remitted", a.FederalTax},
		{acc.ProvincialTax, "Provincial tax remitted", a.ProvincialTax},
		{acc.CPPPayable, "CPP remitted", a.CPP},
		{acc.EIPayable, "EI remitted", a.EI},
	} {
		if part.amount.IsPositive() {
			lines = append(lines, journals.DebitLine(part.code, part.memo, part.amount))
		}
	}
	lines = append(lines, journals.CreditLine(acc.Cash, "Remittance "+evt.Reference, total))

	desc := "Statutory remittance " + evt.Reference
	if evt.Period != "" {
		desc += " for " + evt.Period
	}
	entry := journals.NewDraft(evt.PaidAt, desc, lines...)
	entry.SourceModule = SourceRemittance
	entry.SourceRef = evt.Reference
	return entry, nil
}

// BuildPurchaseReceiptEntry books received goods: Dr Inventory for the
// subtotal, Dr Tax Recoverable for any tax, Cr Accounts Payable for the total.
func BuildPurchaseReceiptEntry(evt procurement.GoodsReceivedEvent, acc ReceiptAccounts) (journals.JournalEntry, error) {
	if !evt.Total.IsPositive() {
		return journals.JournalEntry{}, fmt.Errorf("%w: purchase order %s total %s", ErrNothingToPost, evt.Number, evt.Total)
	}
	memo := fmt.Sprintf("PO %s - %s", evt.Number, evt.SupplierName)
	lines := []journals.JournalLine{journals.DebitLine(acc.Inventory, memo, evt.Subtotal)}
	if evt.Tax.IsPositive() {
		lines = append(lines, journals.DebitLine(acc.TaxRecoverable, "Input tax on "+evt.Number, evt.Tax))
	}
	lines = append(lines, journals.CreditLine(acc.Payable, memo, evt.Total))
	entry := journals.NewDraft(evt.ReceivedAt, fmt.Sprintf("Goods received for %s (%s)", evt.Number, ledger.FormatAmount(evt.Total)), lines...)
	entry.SourceModule = SourceGoodsReceipt
	entry.SourceRef = sourceRef("PURCHASE_ORDER", evt.OrderID)
	return entry, nil
}

// BuildVendorPaymentEntry settles supplier debt: Dr Accounts Payable / Cr Cash.
func BuildVendorPaymentEntry(evt procurement.VendorPaymentEvent, acc VendorPaymentAccounts) (journals.JournalEntry, error) {
	amount := ledger.RoundMoney(evt.Amount)
	if !amount.IsPositive() {
		return journals.JournalEntry{}, fmt.Errorf("%w: vendor payment %s amount %s", ErrNothingToPost, evt.Reference, evt.Amount)
	}
	entry := journals.NewDraft(evt.PaidAt, fmt.Sprintf("Vendor payment - %s (%s)", evt.SupplierName, evt.Reference),
		journals.DebitLine(acc.Payable, "Payment to "+evt.SupplierName, amount),
		journals.CreditLine(acc.Cash, "Vendor payment - "+evt.Reference, amount),
	)
	entry.SourceModule = SourceVendorPayment
	entry.SourceRef = evt.Reference
	return entry, nil
}
