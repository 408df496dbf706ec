package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/inventory"
	"github.com/odyssey-erp/odyssey-ledger/internal/payroll"
	"github.com/odyssey-erp/odyssey-ledger/internal/procurement"
	"github.com/odyssey-erp/odyssey-ledger/internal/sales"
)

// seed posts a small demo history: owner capital, a stock purchase, a sale,
// an invoice cycle and one pay run with its remittance. It refuses to run
// against a ledger that already has entries.
func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.SeedChart = true
	ledger, err := app.BuildLedger(ctx, app.LedgerParams{Config: cfg, Logger: app.NewLogger(cfg)})
	if err != nil {
		log.Fatalf("build ledger: %v", err)
	}
	defer ledger.Close()

	existing, err := ledger.Journals.ListJournals(ctx)
	if err != nil {
		log.Fatalf("list journals: %v", err)
	}
	if len(existing) > 0 {
		log.Fatalf("ledger already has %d entries, refusing to seed", len(existing))
	}

	day := time.Date(time.Now().Year(), time.January, 2, 0, 0, 0, 0, time.UTC)

	fmt.Println("→ Posting owner capital...")
	if err := seedCapital(ctx, ledger, day); err != nil {
		log.Fatalf("seed capital: %v", err)
	}
	fmt.Println("→ Receiving stock...")
	productID, err := seedStock(ctx, ledger, day)
	if err != nil {
		log.Fatalf("seed stock: %v", err)
	}
	fmt.Println("→ Confirming a sales order...")
	if err := seedSales(ctx, ledger, productID, day); err != nil {
		log.Fatalf("seed sales: %v", err)
	}
	fmt.Println("→ Invoicing a customer...")
	if err := seedInvoice(ctx, ledger, day); err != nil {
		log.Fatalf("seed invoice: %v", err)
	}
	fmt.Println("→ Running payroll...")
	if err := seedPayroll(ctx, ledger, day); err != nil {
		log.Fatalf("seed payroll: %v", err)
	}

	report, err := ledger.Journals.Reconcile(ctx)
	if err != nil {
		log.Fatalf("reconcile: %v", err)
	}
	if !report.Balanced() {
		log.Fatalf("seeded ledger drifted on %d account(s)", len(report.Drifts))
	}
	fmt.Printf("✓ Seed complete: %d entries at %s\n", report.Entries, time.Now().Format(time.RFC3339))
}

func seedCapital(ctx context.Context, ledger *app.Ledger, day time.Time) error {
	amount := decimal.NewFromInt(50000)
	_, err := ledger.Journals.PostJournal(ctx, journals.NewDraft(day, "Owner capital contribution",
		journals.DebitLine(accounts.CodeCash, "", amount),
		journals.CreditLine(accounts.CodeOwnersEquity, "", amount),
	))
	return err
}

func seedStock(ctx context.Context, ledger *app.Ledger, day time.Time) (int64, error) {
	product, err := ledger.Stock.SaveProduct(ctx, inventory.Product{
		SKU:       "WID-001",
		Name:      "Widget",
		CostPrice: decimal.RequireFromString("12.50"),
	})
	if err != nil {
		return 0, err
	}
	po, err := ledger.Procurement.CreatePO(ctx, procurement.POInput{
		Number:       "PO-0001",
		SupplierName: "Northwind Supply",
		OrderDate:    day,
		Lines:        []procurement.POLine{{ProductID: product.ID, Quantity: 100, UnitCost: product.CostPrice}},
		Tax:          decimal.RequireFromString("162.50"),
	})
	if err != nil {
		return 0, err
	}
	if _, err := ledger.Procurement.ReceiveOrder(ctx, po.ID); err != nil {
		return 0, err
	}
	_, err = ledger.Procurement.PayVendor(ctx, procurement.VendorPaymentInput{
		SupplierName: "Northwind Supply",
		Amount:       decimal.NewFromInt(1000),
		Reference:    "VP-0001",
		PaidAt:       day,
	})
	return product.ID, err
}

func seedSales(ctx context.Context, ledger *app.Ledger, productID int64, day time.Time) error {
	order, err := ledger.Sales.CreateOrder(ctx, sales.OrderInput{
		Number:       "SO-0001",
		CustomerName: "Acme Retail",
		OrderDate:    day,
		Lines:        []sales.OrderLine{{ProductID: productID, Quantity: 40, UnitPrice: decimal.NewFromInt(25)}},
	})
	if err != nil {
		return err
	}
	_, err = ledger.Sales.ConfirmOrder(ctx, order.ID)
	return err
}

func seedInvoice(ctx context.Context, ledger *app.Ledger, day time.Time) error {
	inv, err := ledger.Receivables.CreateInvoice(ctx, ar.InvoiceInput{
		Number:       "INV-0001",
		CustomerName: "Acme Retail",
		IssueDate:    day,
		DueDate:      day.AddDate(0, 0, 30),
		Subtotal:     decimal.NewFromInt(1000),
		Tax:          decimal.NewFromInt(130),
	})
	if err != nil {
		return err
	}
	if _, err := ledger.Receivables.MarkSent(ctx, inv.ID); err != nil {
		return err
	}
	_, err = ledger.Receivables.MarkPaid(ctx, inv.ID, day.AddDate(0, 0, 14))
	return err
}

func seedPayroll(ctx context.Context, ledger *app.Ledger, day time.Time) error {
	run, err := ledger.Payroll.CreatePayRun(ctx, payroll.PayRunInput{
		Period:  day.Format("2006-01"),
		PayDate: day.AddDate(0, 0, 28),
		Stubs: []payroll.PayStub{{
			EmployeeID:    1,
			EmployeeName:  "Jordan Lee",
			Gross:         decimal.NewFromInt(5000),
			FederalTax:    decimal.NewFromInt(600),
			ProvincialTax: decimal.NewFromInt(250),
			CPP:           decimal.NewFromInt(280),
			EI:            decimal.NewFromInt(80),
			Net:           decimal.NewFromInt(3790),
		}},
	})
	if err != nil {
		return err
	}
	if _, err := ledger.Payroll.Approve(ctx, run.ID); err != nil {
		return err
	}
	if _, err := ledger.Payroll.Pay(ctx, run.ID); err != nil {
		return err
	}
	_, err = ledger.Payroll.Remit(ctx, payroll.RemitInput{Period: run.Period, PaidAt: day.AddDate(0, 1, 14)})
	return err
}
