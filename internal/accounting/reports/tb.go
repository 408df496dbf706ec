package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
)

// AccountBalance is an account's position on its normal side.
type AccountBalance struct {
	Code    string               `json:"code"`
	Name    string               `json:"name"`
	Type    accounts.AccountType `json:"type"`
	Active  bool                 `json:"active"`
	Opening decimal.Decimal      `json:"opening"`
	Closing decimal.Decimal      `json:"closing"`
}

// FromAccounts snapshots registry accounts. Inactive accounts are kept only
// while they still carry a balance so the trial balance stays complete.
func FromAccounts(list []accounts.Account) []AccountBalance {
	out := make([]AccountBalance, 0, len(list))
	for _, acc := range list {
		if !acc.IsActive && acc.Balance.IsZero() {
			continue
		}
		out = append(out, AccountBalance{
			Code:    acc.Code,
			Name:    acc.Name,
			Type:    acc.Type,
			Active:  acc.IsActive,
			Opening: acc.OpeningBalance,
			Closing: acc.Balance,
		})
	}
	return out
}

// Columns splits the closing balance into trial balance debit and credit
// columns. A balance below zero lands on the side opposite its normal one.
func (a AccountBalance) Columns() (debit, credit decimal.Decimal) {
	debitSide := a.Type.DebitNormal()
	if a.Closing.IsNegative() {
		debitSide = !debitSide
	}
	if debitSide {
		return a.Closing.Abs(), decimal.Zero
	}
	return decimal.Zero, a.Closing.Abs()
}

// GroupKey returns a key used for grouping trial balance rows.
func (a AccountBalance) GroupKey() string {
	if idx := strings.Index(a.Code, "."); idx > 0 {
		return a.Code[:idx]
	}
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}

// TrialBalanceAccount represents a row inside a trial balance group.
type TrialBalanceAccount struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// TrialBalanceGroup aggregates accounts for presentation.
type TrialBalanceGroup struct {
	Key      string                `json:"key"`
	Accounts []TrialBalanceAccount `json:"accounts"`
	Debit    decimal.Decimal       `json:"debit"`
	Credit   decimal.Decimal       `json:"credit"`
}

// TrialBalance lists every account's closing balance by column.
type TrialBalance struct {
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
	Balanced    bool                `json:"balanced"`
}

// BuildTrialBalance converts account balances into grouped trial balance data.
func BuildTrialBalance(balances []AccountBalance) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range balances {
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key, Debit: decimal.Zero, Credit: decimal.Zero}
			groups[key] = grp
			keys = append(keys, key)
		}
		debit, credit := acc.Columns()
		grp.Accounts = append(grp.Accounts, TrialBalanceAccount{Code: acc.Code, Name: acc.Name, Debit: debit, Credit: credit})
		grp.Debit = grp.Debit.Add(debit)
		grp.Credit = grp.Credit.Add(credit)
	}

	sort.Strings(keys)
	result := TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].Code < grp.Accounts[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
	}
	result.Balanced = result.TotalDebit.Equal(result.TotalCredit)
	return result
}
