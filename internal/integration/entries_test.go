package integration

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/payroll"
	"github.com/odyssey-erp/odyssey-ledger/internal/procurement"
	"github.com/odyssey-erp/odyssey-ledger/internal/sales"
)

var (
	eventDate  = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	invoiceAcc = InvoiceAccounts{Receivable: "1100", Revenue: "4000", Cash: "1000", TaxPayable: "2100"}
	payrollAcc = PayrollAccounts{
		Salaries:      "5100",
		Cash:          "1000",
		EmployerCPP:   "5110",
		EmployerEI:    "5120",
		FederalTax:    "2300",
		ProvincialTax: "2310",
		CPPPayable:    "2320",
		EIPayable:     "2330",
	}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireBalanced(t *testing.T, entry journals.JournalEntry) {
	t.Helper()
	debit, credit := entry.Totals()
	require.True(t, debit.Equal(credit), "debits %s credits %s", debit, credit)
}

func amounts(entry journals.JournalEntry) map[string]string {
	out := make(map[string]string, len(entry.Lines))
	for _, l := range entry.Lines {
		if l.Debit.IsPositive() {
			out["Dr "+l.AccountCode] = l.Debit.StringFixed(2)
		} else {
			out["Cr "+l.AccountCode] = l.Credit.StringFixed(2)
		}
	}
	return out
}

func TestBuildInvoicePaymentEntry(t *testing.T) {
	entry, err := BuildInvoicePaymentEntry(ar.InvoicePaidEvent{
		InvoiceID: 7,
		Number:    "INV-0007",
		Subtotal:  dec("1000"),
		Tax:       dec("130"),
		Total:     dec("1130"),
		PaidAt:    eventDate,
	}, invoiceAcc)
	require.NoError(t, err)
	requireBalanced(t, entry)
	require.Equal(t, map[string]string{
		"Dr 1000": "1130.00",
		"Cr 1100": "1000.00",
		"Cr 2100": "130.00",
	}, amounts(entry))
	require.Equal(t, SourceInvoicePayment, entry.SourceModule)
	require.Equal(t, journals.JournalStatusDraft, entry.Status)
	require.Contains(t, entry.Description, "$1,130.00")
}

func TestBuildInvoicePaymentEntryWithoutTax(t *testing.T) {
	entry, err := BuildInvoicePaymentEntry(ar.InvoicePaidEvent{
		Number: "INV-0008", Subtotal: dec("250"), Tax: decimal.Zero, Total: dec("250"), PaidAt: eventDate,
	}, invoiceAcc)
	require.NoError(t, err)
	require.Len(t, entry.Lines, 2)
	requireBalanced(t, entry)
}

func TestBuildInvoiceSentEntry(t *testing.T) {
	entry, err := BuildInvoiceSentEntry(ar.InvoiceSentEvent{
		InvoiceID: 3, Number: "INV-0003", CustomerName: "Acme", Subtotal: dec("400"), SentAt: eventDate,
	}, invoiceAcc)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"Dr 1100": "400.00", "Cr 4000": "400.00"}, amounts(entry))

	again, err := BuildInvoiceSentEntry(ar.InvoiceSentEvent{InvoiceID: 3, Number: "INV-0003", Subtotal: dec("400")}, invoiceAcc)
	require.NoError(t, err)
	require.Equal(t, entry.SourceRef, again.SourceRef)

	_, err = BuildInvoiceSentEntry(ar.InvoiceSentEvent{Number: "INV-0004", Subtotal: decimal.Zero}, invoiceAcc)
	require.True(t, errors.Is(err, ErrNothingToPost))
}

func TestBuildPayrollEntry(t *testing.T) {
	summary := payroll.Summarize([]payroll.PayStub{{
		EmployeeID:    1,
		Gross:         dec("10000"),
		FederalTax:    dec("1500"),
		ProvincialTax: dec("700"),
		CPP:           dec("500"),
		EI:            dec("200"),
		Net:           dec("7100"),
	}})
	entry, err := BuildPayrollEntry(payroll.PayRunPaidEvent{PayRunID: 1, Period: "2024-06", PayDate: eventDate, Summary: summary}, payrollAcc)
	require.NoError(t, err)
	requireBalanced(t, entry)
	require.Equal(t, map[string]string{
		"Dr 5100": "10000.00",
		"Dr 5110": "500.00",
		"Dr 5120": "280.00",
		"Cr 1000": "7100.00",
		"Cr 2300": "1500.00",
		"Cr 2310": "700.00",
		"Cr 2320": "1000.00",
		"Cr 2330": "480.00",
	}, amounts(entry))
}

func TestBuildPayrollEntryOmitsZeroLines(t *testing.T) {
	summary := payroll.Summarize([]payroll.PayStub{{
		EmployeeID: 2, Gross: dec("2000"), FederalTax: dec("300"), Net: dec("1700"),
	}})
	entry, err := BuildPayrollEntry(payroll.PayRunPaidEvent{Period: "2024-07", PayDate: eventDate, Summary: summary}, payrollAcc)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"Dr 5100": "2000.00",
		"Cr 1000": "1700.00",
		"Cr 2300": "300.00",
	}, amounts(entry))
}

func TestBuildRemittanceEntry(t *testing.T) {
	entry, err := BuildRemittanceEntry(payroll.RemittanceEvent{
		Reference: "REM-1",
		PaidAt:    eventDate,
		Allocation: payroll.Allocation{
			FederalTax: dec("1500"),
			CPP:        dec("1000"),
			EI:         dec("480"),
		},
	}, payrollAcc)
	require.NoError(t, err)
	requireBalanced(t, entry)
	require.Equal(t, map[string]string{
		"Dr 2300": "1500.00",
		"Dr 2320": "1000.00",
		"Dr 2330": "480.00",
		"Cr 1000": "2980.00",
	}, amounts(entry))
	require.Equal(t, "REM-1", entry.SourceRef)

	_, err = BuildRemittanceEntry(payroll.RemittanceEvent{Reference: "REM-2"}, payrollAcc)
	require.True(t, errors.Is(err, ErrNothingToPost))
}

func TestBuildCOGSEntry(t *testing.T) {
	evt := sales.OrderFulfilledEvent{
		OrderID:     9,
		Number:      "SO-9",
		FulfilledAt: eventDate,
		Lines: []sales.FulfilledLine{
			{ProductID: 1, Quantity: 3, UnitCost: dec("12.345")},
			{ProductID: 2, Quantity: 2, UnitCost: dec("5")},
		},
	}
	entry, err := BuildCOGSEntry(evt, COGSAccounts{COGS: "5000", Inventory: "1200"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"Dr 5000": "47.04", "Cr 1200": "47.04"}, amounts(entry))

	_, err = BuildCOGSEntry(sales.OrderFulfilledEvent{Number: "SO-10", Lines: []sales.FulfilledLine{{Quantity: 1, UnitCost: decimal.Zero}}}, COGSAccounts{})
	require.True(t, errors.Is(err, ErrNothingToPost))
}

func TestBuildPurchaseReceiptEntry(t *testing.T) {
	entry, err := BuildPurchaseReceiptEntry(procurement.GoodsReceivedEvent{
		OrderID: 4, Number: "PO-4", SupplierName: "Northwind",
		ReceivedAt: eventDate, Subtotal: dec("800"), Tax: dec("104"), Total: dec("904"),
	}, ReceiptAccounts{Inventory: "1200", TaxRecoverable: "1300", Payable: "2000"})
	require.NoError(t, err)
	requireBalanced(t, entry)
	require.Equal(t, map[string]string{
		"Dr 1200": "800.00",
		"Dr 1300": "104.00",
		"Cr 2000": "904.00",
	}, amounts(entry))
}

func TestBuildVendorPaymentEntry(t *testing.T) {
	entry, err := BuildVendorPaymentEntry(procurement.VendorPaymentEvent{
		Reference: "CHQ-101", SupplierName: "Northwind", PaidAt: eventDate, Amount: dec("500.004"),
	}, VendorPaymentAccounts{Payable: "2000", Cash: "1000"})
	require.NoError(t, err)
	requireBalanced(t, entry)
	require.Equal(t, SourceVendorPayment, entry.SourceModule)
	require.Equal(t, "CHQ-101", entry.SourceRef)
	require.Equal(t, "Vendor payment - Northwind (CHQ-101)", entry.Description)
	require.Equal(t, map[string]string{"Dr 2000": "500.00", "Cr 1000": "500.00"}, amounts(entry))

	_, err = BuildVendorPaymentEntry(procurement.VendorPaymentEvent{Reference: "CHQ-0", Amount: dec("0.001")}, VendorPaymentAccounts{Payable: "2000", Cash: "1000"})
	require.ErrorIs(t, err, ErrNothingToPost)
}
