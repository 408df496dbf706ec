package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is one of the five account categories.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DebitNormal reports whether balances of this type grow on the debit side.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Account models a chart of accounts node. Balance is expressed on the
// account's normal side.
type Account struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	Balance        decimal.Decimal `json:"balance"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SignedDelta converts a debit/credit pair into the change of the account balance.
func (a Account) SignedDelta(debit, credit decimal.Decimal) decimal.Decimal {
	if a.Type.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// Spec describes an account to create when it does not yet exist.
type Spec struct {
	Code           string
	Name           string
	Type           AccountType
	OpeningBalance decimal.Decimal
}

// BalanceChange is emitted after every successful balance mutation.
type BalanceChange struct {
	Code       string
	Type       AccountType
	Delta      decimal.Decimal
	Balance    decimal.Decimal
	Compensate bool
	At         time.Time
}
