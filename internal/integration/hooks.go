package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/mappings"
	ledger "github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/payroll"
	"github.com/odyssey-erp/odyssey-ledger/internal/procurement"
	"github.com/odyssey-erp/odyssey-ledger/internal/sales"
)

// LedgerService exposes the posting engine operations the hooks need.
type LedgerService interface {
	PostJournal(ctx context.Context, entry journals.JournalEntry) (journals.JournalEntry, error)
	VoidJournal(ctx context.Context, input journals.VoidInput) (journals.JournalEntry, error)
	GetJournal(ctx context.Context, id uuid.UUID) (journals.JournalEntry, error)
	ListJournals(ctx context.Context) ([]journals.JournalEntry, error)
}

// AccountRegistry exposes account lookups and lazy creation.
type AccountRegistry interface {
	GetAccount(ctx context.Context, code string) (accounts.Account, error)
	EnsureAccount(ctx context.Context, spec accounts.Spec) (accounts.Account, error)
}

// AccountMappingRepository resolves integration keys to account codes.
type AccountMappingRepository interface {
	Get(ctx context.Context, module, key string) (mappings.AccountMapping, error)
}

// Hooks turns domain events into balanced journal entries and posts them.
type Hooks struct {
	ledger      LedgerService
	registry    AccountRegistry
	mappingRepo AccountMappingRepository
	logger      *slog.Logger
}

var (
	_ ar.IntegrationHandler          = (*Hooks)(nil)
	_ sales.IntegrationHandler       = (*Hooks)(nil)
	_ payroll.IntegrationHandler     = (*Hooks)(nil)
	_ procurement.IntegrationHandler = (*Hooks)(nil)
)

// NewHooks constructs integration hooks.
func NewHooks(ledger LedgerService, registry AccountRegistry, mappingRepo AccountMappingRepository, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{ledger: ledger, registry: registry, mappingRepo: mappingRepo, logger: logger}
}

// HandleInvoiceSent posts revenue recognition for a sent invoice.
func (h *Hooks) HandleInvoiceSent(ctx context.Context, evt ar.InvoiceSentEvent) (journals.JournalEntry, error) {
	acc, err := h.invoiceAccounts(ctx)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	entry, err := BuildInvoiceSentEntry(evt, acc)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	return h.post(ctx, entry)
}

// HandleInvoicePaid posts the cash receipt for an invoice.
func (h *Hooks) HandleInvoicePaid(ctx context.Context, evt ar.InvoicePaidEvent) (journals.JournalEntry, error) {
	acc, err := h.invoiceAccounts(ctx)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	entry, err := BuildInvoicePaymentEntry(evt, acc)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	return h.post(ctx, entry)
}

// HandleOrderFulfilled posts cost of goods sold. Orders without cost post
// nothing and return a zero entry.
func (h *Hooks) HandleOrderFulfilled(ctx context.Context, evt sales.OrderFulfilledEvent) (journals.JournalEntry, error) {
	var acc COGSAccounts
	var err error
	if acc.COGS, err = h.resolve(ctx, mappings.ModuleSales, mappings.KeySalesCOGS); err != nil {
		return journals.JournalEntry{}, err
	}
	if acc.Inventory, err = h.resolve(ctx, mappings.ModuleSales, mappings.KeySalesInventory); err != nil {
		return journals.JournalEntry{}, err
	}
	entry, err := BuildCOGSEntry(evt, acc)
	if errors.Is(err, ErrNothingToPost) {
		h.logger.Info("order has no cost to post", slog.String("order", evt.Number))
		return journals.JournalEntry{}, nil
	}
	if err != nil {
		return journals.JournalEntry{}, err
	}
	return h.post(ctx, entry)
}

// HandlePayRunPaid posts salaries, employer contributions and withholdings.
func (h *Hooks) HandlePayRunPaid(ctx context.Context, evt payroll.PayRunPaidEvent) (journals.JournalEntry, error) {
	acc, err := h.payrollAccounts(ctx)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	entry, err := BuildPayrollEntry(evt, acc)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	return h.post(ctx, entry)
}

// HandleRemittance posts a payment of statutory deductions.
func (h *Hooks) HandleRemittance(ctx context.Context, evt payroll.RemittanceEvent) (journals.JournalEntry, error) {
	acc, err := h.payrollAccounts(ctx)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	entry, err := BuildRemittanceEntry(evt, acc)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	return h.post(ctx, entry)
}

// PendingRemittance reads what is currently owed on each statutory payable.
// Accounts that do not exist yet owe nothing.
func (h *Hooks) PendingRemittance(ctx context.Context) (payroll.Allocation, error) {
	read := func(key string) (decimal.Decimal, error) {
		return h.owed(ctx, mappings.ModulePayroll, key)
	}
	var (
		alloc payroll.Allocation
		err   error
	)
	if alloc.FederalTax, err = read(mappings.KeyPayrollFederalTax); err != nil {
		return payroll.Allocation{}, err
	}
	if alloc.ProvincialTax, err = read(mappings.KeyPayrollProvincialTax); err != nil {
		return payroll.Allocation{}, err
	}
	if alloc.CPP, err = read(mappings.KeyPayrollCPPPayable); err != nil {
		return payroll.Allocation{}, err
	}
	if alloc.EI, err = read(mappings.KeyPayrollEIPayable); err != nil {
		return payroll.Allocation{}, err
	}
	return alloc, nil
}

// HandleGoodsReceived posts inventory and payable for received goods.
func (h *Hooks) HandleGoodsReceived(ctx context.Context, evt procurement.GoodsReceivedEvent) (journals.JournalEntry, error) {
	var acc ReceiptAccounts
	var err error
	if acc.Inventory, err = h.resolve(ctx, mappings.ModuleProcurement, mappings.KeyProcurementInventory); err != nil {
		return journals.JournalEntry{}, err
	}
	if acc.Payable, err = h.resolve(ctx, mappings.ModuleProcurement, mappings.KeyProcurementPayable); err != nil {
		return journals.JournalEntry{}, err
	}
	if evt.Tax.IsPositive() {
		if acc.TaxRecoverable, err = h.ensure(ctx, mappings.ModuleProcurement, mappings.KeyProcurementTaxRecoverable); err != nil {
			return journals.JournalEntry{}, err
		}
	}
	entry, err := BuildPurchaseReceiptEntry(evt, acc)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	return h.post(ctx, entry)
}

// HandleVendorPayment posts cash paid to a supplier against the payable.
func (h *Hooks) HandleVendorPayment(ctx context.Context, evt procurement.VendorPaymentEvent) (journals.JournalEntry, error) {
	var acc VendorPaymentAccounts
	var err error
	if acc.Payable, err = h.resolve(ctx, mappings.ModuleProcurement, mappings.KeyProcurementPayable); err != nil {
		return journals.JournalEntry{}, err
	}
	if acc.Cash, err = h.resolve(ctx, mappings.ModuleProcurement, mappings.KeyProcurementCash); err != nil {
		return journals.JournalEntry{}, err
	}
	entry, err := BuildVendorPaymentEntry(evt, acc)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	return h.post(ctx, entry)
}

// PendingPayables reads the accounts payable balance. A missing or negative
// balance owes nothing.
func (h *Hooks) PendingPayables(ctx context.Context) (decimal.Decimal, error) {
	return h.owed(ctx, mappings.ModuleProcurement, mappings.KeyProcurementPayable)
}

// RevertPosting voids an entry whose caller could not record its own side
// of the transition.
func (h *Hooks) RevertPosting(ctx context.Context, entryID uuid.UUID, reason string) error {
	reversal, err := h.ledger.VoidJournal(ctx, journals.VoidInput{EntryID: entryID, Reason: reason})
	if err != nil {
		return fmt.Errorf("revert posting %s: %w", entryID, err)
	}
	h.logger.Warn("posting reverted", slog.String("entry", entryID.String()), slog.String("reversal", reversal.Number), slog.String("reason", reason))
	return nil
}

// PostingStatus reports the lifecycle status of a posted entry.
func (h *Hooks) PostingStatus(ctx context.Context, entryID uuid.UUID) (journals.JournalStatus, error) {
	entry, err := h.ledger.GetJournal(ctx, entryID)
	if err != nil {
		return "", fmt.Errorf("posting status %s: %w", entryID, err)
	}
	return entry.Status, nil
}

// PostedCOGS finds a still-posted cost entry for the order, left behind when
// a confirmation posted its cost but could neither record nor revert it.
func (h *Hooks) PostedCOGS(ctx context.Context, orderID int64) (journals.JournalEntry, bool, error) {
	ref := sourceRef("SALES_ORDER", orderID)
	list, err := h.ledger.ListJournals(ctx)
	if err != nil {
		return journals.JournalEntry{}, false, err
	}
	for _, e := range list {
		if e.SourceModule == SourceCOGS && e.SourceRef == ref && e.Status == journals.JournalStatusPosted {
			return e, true, nil
		}
	}
	return journals.JournalEntry{}, false, nil
}

func (h *Hooks) invoiceAccounts(ctx context.Context) (InvoiceAccounts, error) {
	var acc InvoiceAccounts
	var err error
	if acc.Receivable, err = h.resolve(ctx, mappings.ModuleAR, mappings.KeyARReceivable); err != nil {
		return acc, err
	}
	if acc.Revenue, err = h.resolve(ctx, mappings.ModuleAR, mappings.KeyARRevenue); err != nil {
		return acc, err
	}
	if acc.Cash, err = h.resolve(ctx, mappings.ModuleAR, mappings.KeyARCash); err != nil {
		return acc, err
	}
	if acc.TaxPayable, err = h.resolve(ctx, mappings.ModuleAR, mappings.KeyARTaxPayable); err != nil {
		return acc, err
	}
	return acc, nil
}

// payrollAccounts resolves payroll codes, creating the statutory accounts
// the standard chart does not carry.
func (h *Hooks) payrollAccounts(ctx context.Context) (PayrollAccounts, error) {
	var acc PayrollAccounts
	var err error
	for _, k := range []struct {
		key    string
		target *string
		ensure bool
	}{
		{mappings.KeyPayrollSalaries, &acc.Salaries, false},
		{mappings.KeyPayrollCash, &acc.Cash, false},
		{mappings.KeyPayrollEmployerCPP, &acc.EmployerCPP, true},
		{mappings.KeyPayrollEmployerEI, &acc.EmployerEI, true},
		{mappings.KeyPayrollFederalTax, &acc.FederalTax, true},
		{mappings.KeyPayrollProvincialTax, &acc.ProvincialTax, true},
		{mappings.KeyPayrollCPPPayable, &acc.CPPPayable, true},
		{mappings.KeyPayrollEIPayable, &acc.EIPayable, true},
	} {
		if k.ensure {
			*k.target, err = h.ensure(ctx, mappings.ModulePayroll, k.key)
		} else {
			*k.target, err = h.resolve(ctx, mappings.ModulePayroll, k.key)
		}
		if err != nil {
			return PayrollAccounts{}, err
		}
	}
	return acc, nil
}

func (h *Hooks) owed(ctx context.Context, module, key string) (decimal.Decimal, error) {
	code, err := h.resolve(ctx, module, key)
	if err != nil {
		return decimal.Zero, err
	}
	acc, err := h.registry.GetAccount(ctx, code)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if acc.Balance.IsNegative() {
		return decimal.Zero, nil
	}
	return acc.Balance, nil
}

func (h *Hooks) resolve(ctx context.Context, module, key string) (string, error) {
	mapping, err := h.mappingRepo.Get(ctx, module, key)
	if err != nil {
		return "", fmt.Errorf("resolve %s/%s: %w", module, key, err)
	}
	return mapping.AccountCode, nil
}

func (h *Hooks) ensure(ctx context.Context, module, key string) (string, error) {
	mapping, err := h.mappingRepo.Get(ctx, module, key)
	if err != nil {
		return "", fmt.Errorf("resolve %s/%s: %w", module, key, err)
	}
	acc, err := h.registry.EnsureAccount(ctx, mapping.Spec())
	if err != nil {
		return "", fmt.Errorf("ensure account %s: %w", mapping.AccountCode, err)
	}
	return acc.Code, nil
}

func (h *Hooks) post(ctx context.Context, entry journals.JournalEntry) (journals.JournalEntry, error) {
	posted, err := h.ledger.PostJournal(ctx, entry)
	if err != nil {
		h.logger.Warn("integration posting failed",
			slog.String("source", entry.SourceModule),
			slog.String("ref", entry.SourceRef),
			slog.Any("error", err))
		return journals.JournalEntry{}, err
	}
	return posted, nil
}

func sourceRef(kind string, id int64) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d", kind, id))).String()
}
