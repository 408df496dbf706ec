package journals

import (
	"time"

	"github.com/shopspring/decimal"
)

// PostingLineRequest is one line of a manual posting request.
type PostingLineRequest struct {
	AccountCode string          `json:"account_code" validate:"required"`
	Description string          `json:"description" validate:"max=200"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// PostingRequest is the body of POST /journals.
type PostingRequest struct {
	Date        *time.Time           `json:"date"`
	Description string               `json:"description" validate:"required,max=500"`
	Reference   string               `json:"reference" validate:"max=64"`
	PostedBy    int64                `json:"posted_by"`
	Lines       []PostingLineRequest `json:"lines" validate:"required,dive"`
}

// Draft converts the request into a candidate entry. Line rules are left to
// the validator so API callers see the same errors as internal ones.
func (r PostingRequest) Draft() JournalEntry {
	var date time.Time
	if r.Date != nil {
		date = *r.Date
	}
	lines := make([]JournalLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = JournalLine{AccountCode: l.AccountCode, Description: l.Description, Debit: l.Debit, Credit: l.Credit}
	}
	entry := NewDraft(date, r.Description, lines...)
	entry.SourceModule = SourceManual
	entry.SourceRef = r.Reference
	entry.PostedBy = r.PostedBy
	return entry
}

// VoidRequest is the body of POST /journals/{number}/void.
type VoidRequest struct {
	Reason  string `json:"reason" validate:"required,max=500"`
	ActorID int64  `json:"actor_id"`
}
