package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft  JournalStatus = "DRAFT"
	JournalStatusPosted JournalStatus = "POSTED"
	JournalStatusVoid   JournalStatus = "VOID"
)

// SourceManual tags entries keyed in by an operator.
const SourceManual = "manual"

// JournalEntry captures posting metadata. A draft has no ID or Number; both
// are assigned by the posting engine.
type JournalEntry struct {
	ID           uuid.UUID     `json:"id"`
	Number       string        `json:"number"`
	Date         time.Time     `json:"date"`
	Description  string        `json:"description"`
	Status       JournalStatus `json:"status"`
	SourceModule string        `json:"source_module"`
	SourceRef    string        `json:"source_ref"`
	ReversalOf   *uuid.UUID    `json:"reversal_of,omitempty"`
	VoidReason   string        `json:"void_reason,omitempty"`
	PostedBy     int64         `json:"posted_by"`
	PostedAt     time.Time     `json:"posted_at"`
	CreatedAt    time.Time     `json:"created_at"`
	Lines        []JournalLine `json:"lines"`
}

// JournalLine stores debit or credit amount for an account.
type JournalLine struct {
	AccountCode string          `json:"account_code"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// NewDraft assembles a candidate entry for PostJournal.
func NewDraft(date time.Time, description string, lines ...JournalLine) JournalEntry {
	return JournalEntry{
		Date:        date,
		Description: description,
		Status:      JournalStatusDraft,
		Lines:       lines,
	}
}

// DebitLine builds a debit line.
func DebitLine(code, description string, amount decimal.Decimal) JournalLine {
	return JournalLine{AccountCode: code, Description: description, Debit: amount}
}

// CreditLine builds a credit line.
func CreditLine(code, description string, amount decimal.Decimal) JournalLine {
	return JournalLine{AccountCode: code, Description: description, Credit: amount}
}

// Totals sums both sides.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// IsReversal reports whether the entry mirrors a voided one.
func (e JournalEntry) IsReversal() bool {
	return e.ReversalOf != nil
}

func (e JournalEntry) clone() JournalEntry {
	out := e
	out.Lines = append([]JournalLine(nil), e.Lines...)
	if e.ReversalOf != nil {
		id := *e.ReversalOf
		out.ReversalOf = &id
	}
	return out
}

// VoidInput describes a void request.
type VoidInput struct {
	EntryID uuid.UUID
	Reason  string
	ActorID int64
}

func reverseLines(lines []JournalLine) []JournalLine {
	out := make([]JournalLine, len(lines))
	for i, l := range lines {
		out[i] = JournalLine{
			AccountCode: l.AccountCode,
			Description: l.Description,
			Debit:       l.Credit,
			Credit:      l.Debit,
		}
	}
	return out
}
