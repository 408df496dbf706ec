package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/mappings"
	ledger "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/inventory"
	"github.com/odyssey-erp/odyssey-ledger/internal/payroll"
	"github.com/odyssey-erp/odyssey-ledger/internal/procurement"
	"github.com/odyssey-erp/odyssey-ledger/internal/sales"
)

type harness struct {
	registry  *accounts.Registry
	journals  *journals.Service
	entries   *journals.MemoryRepository
	hooks     *Hooks
	invoices  *ar.Service
	stock     *inventory.Service
	orders    *sales.Service
	payroll   *payroll.Service
	purchases *procurement.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	registry := accounts.NewRegistry(accounts.NewMemoryRepository(), nil)
	require.NoError(t, registry.Seed(ctx, accounts.DefaultChart()))
	entries := journals.NewMemoryRepository()
	engine := journals.NewService(entries, registry, journals.NewSequenceAllocator(), journals.ServiceConfig{})
	hooks := NewHooks(engine, registry, mappings.NewMemoryRepository(mappings.DefaultMappings()), nil)
	stock := inventory.NewService(inventory.NewMemoryRepository(), nil)
	return &harness{
		registry:  registry,
		journals:  engine,
		entries:   entries,
		hooks:     hooks,
		invoices:  ar.NewService(ar.NewMemoryRepository(), hooks, nil),
		stock:     stock,
		orders:    sales.NewService(sales.NewMemoryRepository(), stock, hooks, nil),
		payroll:   payroll.NewService(payroll.NewMemoryRepository(), hooks, nil),
		purchases: procurement.NewService(procurement.NewMemoryRepository(), stock, hooks, nil),
	}
}

func (h *harness) balance(t *testing.T, code string) string {
	t.Helper()
	acc, err := h.registry.GetAccount(context.Background(), code)
	require.NoError(t, err)
	return acc.Balance.StringFixed(2)
}

func (h *harness) requireReconciled(t *testing.T) {
	t.Helper()
	report, err := h.journals.Reconcile(context.Background())
	require.NoError(t, err)
	require.True(t, report.Balanced(), "drift: %+v", report.Drifts)
}

func TestInvoiceLifecyclePostsRevenueAndPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	inv, err := h.invoices.CreateInvoice(ctx, ar.InvoiceInput{
		Number: "INV-1001", CustomerName: "Acme", Subtotal: dec("1000"), Tax: dec("130"),
	})
	require.NoError(t, err)
	inv, err = h.invoices.MarkSent(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, "1000.00", h.balance(t, accounts.CodeAccountsReceivable))
	require.NotEmpty(t, inv.SentEntry)

	inv, err = h.invoices.MarkPaid(ctx, inv.ID, eventDate)
	require.NoError(t, err)
	require.Equal(t, ar.InvoiceStatusPaid, inv.Status)
	require.Equal(t, "1130.00", h.balance(t, accounts.CodeCash))
	require.Equal(t, "0.00", h.balance(t, accounts.CodeAccountsReceivable))
	require.Equal(t, "130.00", h.balance(t, accounts.CodeTaxPayable))
	require.Equal(t, "1000.00", h.balance(t, accounts.CodeSalesRevenue))

	_, err = h.invoices.MarkPaid(ctx, inv.ID, eventDate)
	require.ErrorIs(t, err, ar.ErrAlreadyPaid)
	all, err := h.journals.ListJournals(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	h.requireReconciled(t)
}

func TestPayrollPostsEmployerContributions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run, err := h.payroll.CreatePayRun(ctx, payroll.PayRunInput{
		Period:  "2024-06",
		PayDate: eventDate,
		Stubs: []payroll.PayStub{{
			EmployeeID: 1, EmployeeName: "Dana",
			Gross: dec("10000"), FederalTax: dec("1500"), ProvincialTax: dec("700"),
			CPP: dec("500"), EI: dec("200"), Net: dec("7100"),
		}},
	})
	require.NoError(t, err)
	_, err = h.payroll.Approve(ctx, run.ID)
	require.NoError(t, err)
	run, err = h.payroll.Pay(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, payroll.PayRunStatusPaid, run.Status)

	require.Equal(t, "10000.00", h.balance(t, accounts.CodeSalaries))
	require.Equal(t, "500.00", h.balance(t, accounts.CodeEmployerCPPExpense))
	require.Equal(t, "280.00", h.balance(t, accounts.CodeEmployerEIExpense))
	require.Equal(t, "-7100.00", h.balance(t, accounts.CodeCash))
	require.Equal(t, "1000.00", h.balance(t, accounts.CodeCPPPayable))
	require.Equal(t, "480.00", h.balance(t, accounts.CodeEIPayable))

	pending, err := h.payroll.PendingRemittance(ctx)
	require.NoError(t, err)
	require.Equal(t, "3680.00", pending.Total().StringFixed(2))

	rem, err := h.payroll.Remit(ctx, payroll.RemitInput{Reference: "REM-2024-06", Period: "2024-06", PaidAt: eventDate})
	require.NoError(t, err)
	require.NotEmpty(t, rem.Entry)
	for _, code := range []string{accounts.CodeFederalTaxPayable, accounts.CodeProvincialTaxPayable, accounts.CodeCPPPayable, accounts.CodeEIPayable} {
		require.Equal(t, "0.00", h.balance(t, code), code)
	}
	require.Equal(t, "-10780.00", h.balance(t, accounts.CodeCash))

	_, err = h.payroll.Remit(ctx, payroll.RemitInput{PaidAt: eventDate})
	require.ErrorIs(t, err, payroll.ErrNothingToRemit)
	h.requireReconciled(t)
}

func TestPendingRemittanceBeforeAnyPayroll(t *testing.T) {
	h := newHarness(t)
	pending, err := h.hooks.PendingRemittance(context.Background())
	require.NoError(t, err)
	require.True(t, pending.Total().IsZero())
}

func TestSalesOrderPostsCOGSAndCancelReverses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	widget, err := h.stock.SaveProduct(ctx, inventory.Product{SKU: "W-1", Name: "Widget", CostPrice: dec("12.50"), Quantity: 10})
	require.NoError(t, err)
	require.NoError(t, setOpening(ctx, h, accounts.CodeInventory, "125"))

	order, err := h.orders.CreateOrder(ctx, sales.OrderInput{
		Number: "SO-1", CustomerName: "Acme",
		Lines: []sales.OrderLine{{ProductID: widget.ID, Quantity: 4, UnitPrice: dec("30")}},
	})
	require.NoError(t, err)
	order, err = h.orders.ConfirmOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, "50.00", h.balance(t, accounts.CodeCOGS))
	require.Equal(t, "75.00", h.balance(t, accounts.CodeInventory))

	p, err := h.stock.GetProduct(ctx, widget.ID)
	require.NoError(t, err)
	require.EqualValues(t, 6, p.Quantity)

	_, err = h.orders.CancelOrder(ctx, order.ID, "customer cancelled")
	require.NoError(t, err)
	require.Equal(t, "0.00", h.balance(t, accounts.CodeCOGS))
	require.Equal(t, "125.00", h.balance(t, accounts.CodeInventory))
	p, err = h.stock.GetProduct(ctx, widget.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10, p.Quantity)

	original, err := h.journals.GetJournalByNumber(ctx, order.COGSEntry)
	require.NoError(t, err)
	require.Equal(t, journals.JournalStatusVoid, original.Status)
	h.requireReconciled(t)
}

func TestSalesOrderCOGSFailureLeavesStockUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	widget, err := h.stock.SaveProduct(ctx, inventory.Product{SKU: "W-2", Name: "Gadget", CostPrice: dec("8"), Quantity: 5})
	require.NoError(t, err)
	_, err = h.registry.SetActive(ctx, accounts.CodeCOGS, false)
	require.NoError(t, err)

	order, err := h.orders.CreateOrder(ctx, sales.OrderInput{
		Number: "SO-2", Lines: []sales.OrderLine{{ProductID: widget.ID, Quantity: 2, UnitPrice: dec("20")}},
	})
	require.NoError(t, err)
	_, err = h.orders.ConfirmOrder(ctx, order.ID)
	require.ErrorIs(t, err, ledger.ErrAccountInactive)

	p, err := h.stock.GetProduct(ctx, widget.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, p.Quantity)
	order, err = h.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, sales.OrderStatusDraft, order.Status)
	require.Equal(t, "0.00", h.balance(t, accounts.CodeInventory))
}

func TestGoodsReceiptEnsuresRecoverableTaxAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.registry.GetAccount(ctx, accounts.CodeTaxRecoverable)
	require.True(t, errors.Is(err, ledger.ErrAccountNotFound))

	widget, err := h.stock.SaveProduct(ctx, inventory.Product{SKU: "W-3", Name: "Bolt", CostPrice: dec("2"), Quantity: 0})
	require.NoError(t, err)
	po, err := h.purchases.CreatePO(ctx, procurement.POInput{
		Number: "PO-1", SupplierName: "Northwind",
		Lines: []procurement.POLine{{ProductID: widget.ID, Quantity: 400, UnitCost: dec("2")}},
		Tax:   dec("104"),
	})
	require.NoError(t, err)
	po, err = h.purchases.ReceiveOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, procurement.POStatusReceived, po.Status)

	require.Equal(t, "800.00", h.balance(t, accounts.CodeInventory))
	require.Equal(t, "104.00", h.balance(t, accounts.CodeTaxRecoverable))
	require.Equal(t, "904.00", h.balance(t, accounts.CodeAccountsPayable))
	p, err := h.stock.GetProduct(ctx, widget.ID)
	require.NoError(t, err)
	require.EqualValues(t, 400, p.Quantity)
	h.requireReconciled(t)
}

func TestRevertPostingVoidsEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	posted, err := h.hooks.HandleInvoiceSent(ctx, ar.InvoiceSentEvent{InvoiceID: 1, Number: "INV-1", Subtotal: dec("100"), SentAt: eventDate})
	require.NoError(t, err)
	require.NoError(t, h.hooks.RevertPosting(ctx, posted.ID, "test"))
	require.Equal(t, "0.00", h.balance(t, accounts.CodeAccountsReceivable))
	require.Equal(t, "0.00", h.balance(t, accounts.CodeSalesRevenue))

	err = h.hooks.RevertPosting(ctx, posted.ID, "again")
	require.ErrorIs(t, err, ledger.ErrAlreadyVoid)
}

func TestUnmappedKeyFailsBeforePosting(t *testing.T) {
	registry := accounts.NewRegistry(accounts.NewMemoryRepository(), nil)
	engine := journals.NewService(journals.NewMemoryRepository(), registry, journals.NewSequenceAllocator(), journals.ServiceConfig{})
	hooks := NewHooks(engine, registry, mappings.NewMemoryRepository(nil), nil)

	_, err := hooks.HandleInvoiceSent(context.Background(), ar.InvoiceSentEvent{Number: "INV-9", Subtotal: dec("10")})
	require.ErrorIs(t, err, ledger.ErrMappingNotFound)
}

// setOpening books an opening balance through the engine against equity.
func setOpening(ctx context.Context, h *harness, code, amount string) error {
	_, err := h.journals.PostJournal(ctx, journals.NewDraft(eventDate, "Opening "+code,
		journals.DebitLine(code, "opening", decimal.RequireFromString(amount)),
		journals.CreditLine(accounts.CodeOwnersEquity, "opening", decimal.RequireFromString(amount)),
	))
	return err
}

// cancelWriteFails fails the first write that marks an order cancelled.
type cancelWriteFails struct {
	*sales.MemoryRepository
	failed bool
}

func (r *cancelWriteFails) UpdateOrder(ctx context.Context, o sales.Order) error {
	if o.Status == sales.OrderStatusCancelled && !r.failed {
		r.failed = true
		return errors.New("connection reset")
	}
	return r.MemoryRepository.UpdateOrder(ctx, o)
}

func TestSalesCancelResumesAfterFailedWrite(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	orders := sales.NewService(&cancelWriteFails{MemoryRepository: sales.NewMemoryRepository()}, h.stock, h.hooks, nil)

	widget, err := h.stock.SaveProduct(ctx, inventory.Product{SKU: "W-5", Name: "Widget", CostPrice: dec("12.50"), Quantity: 10})
	require.NoError(t, err)
	require.NoError(t, setOpening(ctx, h, accounts.CodeInventory, "125"))
	order, err := orders.CreateOrder(ctx, sales.OrderInput{
		Number: "SO-1", Lines: []sales.OrderLine{{ProductID: widget.ID, Quantity: 4, UnitPrice: dec("30")}},
	})
	require.NoError(t, err)
	order, err = orders.ConfirmOrder(ctx, order.ID)
	require.NoError(t, err)

	_, err = orders.CancelOrder(ctx, order.ID, "customer cancelled")
	require.Error(t, err)
	stored, err := orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, sales.OrderStatusConfirmed, stored.Status)
	p, err := h.stock.GetProduct(ctx, widget.ID)
	require.NoError(t, err)
	require.EqualValues(t, 6, p.Quantity)

	cancelled, err := orders.CancelOrder(ctx, order.ID, "customer cancelled")
	require.NoError(t, err)
	require.Equal(t, sales.OrderStatusCancelled, cancelled.Status)
	p, err = h.stock.GetProduct(ctx, widget.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10, p.Quantity)
	require.Equal(t, "0.00", h.balance(t, accounts.CodeCOGS))
	require.Equal(t, "125.00", h.balance(t, accounts.CodeInventory))

	status, err := h.hooks.PostingStatus(ctx, order.COGSEntryID)
	require.NoError(t, err)
	require.Equal(t, journals.JournalStatusVoid, status)
	_, found, err := h.hooks.PostedCOGS(ctx, order.ID)
	require.NoError(t, err)
	require.False(t, found)
	h.requireReconciled(t)
}

func TestVendorPaymentClearsPayable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, setOpening(ctx, h, accounts.CodeCash, "2000"))

	pending, err := h.purchases.PendingPayables(ctx)
	require.NoError(t, err)
	require.True(t, pending.IsZero())
	_, err = h.purchases.PayVendor(ctx, procurement.VendorPaymentInput{SupplierName: "Northwind", Amount: dec("1")})
	require.ErrorIs(t, err, procurement.ErrExceedsPayable)

	bolt, err := h.stock.SaveProduct(ctx, inventory.Product{SKU: "B-9", Name: "Bolt", CostPrice: dec("2")})
	require.NoError(t, err)
	po, err := h.purchases.CreatePO(ctx, procurement.POInput{
		Number: "PO-7", SupplierName: "Northwind",
		Lines: []procurement.POLine{{ProductID: bolt.ID, Quantity: 400, UnitCost: dec("2")}},
	})
	require.NoError(t, err)
	_, err = h.purchases.ReceiveOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, "800.00", h.balance(t, accounts.CodeAccountsPayable))

	payment, err := h.purchases.PayVendor(ctx, procurement.VendorPaymentInput{SupplierName: "Northwind", Amount: dec("500"), Reference: "CHQ-101"})
	require.NoError(t, err)
	require.Equal(t, "300.00", h.balance(t, accounts.CodeAccountsPayable))
	require.Equal(t, "1500.00", h.balance(t, accounts.CodeCash))

	posted, err := h.journals.GetJournal(ctx, payment.EntryID)
	require.NoError(t, err)
	require.Equal(t, SourceVendorPayment, posted.SourceModule)

	_, err = h.purchases.PayVendor(ctx, procurement.VendorPaymentInput{SupplierName: "Northwind", Amount: dec("300.01")})
	require.ErrorIs(t, err, procurement.ErrExceedsPayable)
	_, err = h.purchases.PayVendor(ctx, procurement.VendorPaymentInput{SupplierName: "Northwind", Amount: dec("300"), Reference: "CHQ-102"})
	require.NoError(t, err)
	require.Equal(t, "0.00", h.balance(t, accounts.CodeAccountsPayable))
	h.requireReconciled(t)
}
