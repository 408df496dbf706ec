package journals

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// AccountLookup resolves account codes.
type AccountLookup interface {
	GetAccount(ctx context.Context, code string) (accounts.Account, error)
}

// Validator checks a candidate entry against the double-entry rules. It only
// reads accounts.
type Validator struct {
	accounts AccountLookup
}

// NewValidator returns a Validator resolving accounts through lookup.
func NewValidator(lookup AccountLookup) *Validator {
	return &Validator{accounts: lookup}
}

// Validate applies the rules in order and reports the first violation as a
// *shared.ValidationError. On success it returns the resolved account of every
// line, index aligned with entry.Lines.
func (v *Validator) Validate(ctx context.Context, entry JournalEntry) ([]accounts.Account, error) {
	if len(entry.Lines) < 2 {
		return nil, shared.NewValidationError(shared.RuleLineCount, -1, shared.ErrTooFewLines, "")
	}

	resolved := make([]accounts.Account, len(entry.Lines))
	for i, line := range entry.Lines {
		acc, err := v.accounts.GetAccount(ctx, line.AccountCode)
		if errors.Is(err, shared.ErrAccountNotFound) {
			return nil, shared.NewValidationError(shared.RuleAccountExists, i, shared.ErrAccountNotFound, line.AccountCode)
		}
		if err != nil {
			return nil, err
		}
		resolved[i] = acc
	}

	for i, line := range entry.Lines {
		if detail := lineShapeProblem(line); detail != "" {
			return nil, shared.NewValidationError(shared.RuleLineShape, i, shared.ErrMalformedLine, detail)
		}
	}

	debit, credit := entry.Totals()
	if !debit.Equal(credit) {
		diff := debit.Sub(credit).Abs()
		return nil, shared.NewValidationError(shared.RuleBalance, -1, shared.ErrUnbalanced, "unbalanced ("+diff.String()+")")
	}

	for i, acc := range resolved {
		if !acc.IsActive {
			return nil, shared.NewValidationError(shared.RuleAccountActive, i, shared.ErrAccountInactive, acc.Code)
		}
	}
	return resolved, nil
}

func lineShapeProblem(line JournalLine) string {
	switch {
	case line.Debit.IsNegative() || line.Credit.IsNegative():
		return "negative amount"
	case line.Debit.IsPositive() && line.Credit.IsPositive():
		return "both debit and credit set"
	case line.Debit.IsZero() && line.Credit.IsZero():
		return "zero amount"
	case !shared.HasCurrencyScale(line.Debit) || !shared.HasCurrencyScale(line.Credit):
		return "more than two decimal places"
	}
	return ""
}
