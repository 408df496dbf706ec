package payroll

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayRunStatus enumerates pay run statuses.
type PayRunStatus string

const (
	PayRunStatusDraft    PayRunStatus = "DRAFT"
	PayRunStatusApproved PayRunStatus = "APPROVED"
	PayRunStatusPaid     PayRunStatus = "PAID"
)

// Employer contributions as multiples of the employee deduction.
var (
	EmployerCPPRate = decimal.NewFromInt(1)
	EmployerEIRate  = decimal.RequireFromString("1.4")
)

var (
	// ErrPayRunNotFound indicates an unknown pay run id.
	ErrPayRunNotFound = errors.New("payroll: pay run not found")
	// ErrInvalidStatus indicates the pay run cannot make the requested transition.
	ErrInvalidStatus = errors.New("payroll: invalid pay run status")
	// ErrInvalidStub indicates a stub whose net pay does not follow from its deductions.
	ErrInvalidStub = errors.New("payroll: invalid pay stub")
	// ErrNothingToRemit indicates a remittance with no positive allocation.
	ErrNothingToRemit = errors.New("payroll: nothing to remit")
)

// PayStub is one employee's pay for a run.
type PayStub struct {
	EmployeeID    int64
	EmployeeName  string
	Gross         decimal.Decimal
	FederalTax    decimal.Decimal
	ProvincialTax decimal.Decimal
	CPP           decimal.Decimal
	EI            decimal.Decimal
	Net           decimal.Decimal
}

// Validate checks that net pay equals gross less every deduction.
func (p PayStub) Validate() error {
	for _, v := range []decimal.Decimal{p.Gross, p.FederalTax, p.ProvincialTax, p.CPP, p.EI, p.Net} {
		if v.IsNegative() {
			return fmt.Errorf("%w: employee %d has a negative amount", ErrInvalidStub, p.EmployeeID)
		}
	}
	if !p.Gross.IsPositive() {
		return fmt.Errorf("%w: employee %d has no gross pay", ErrInvalidStub, p.EmployeeID)
	}
	want := p.Gross.Sub(p.FederalTax).Sub(p.ProvincialTax).Sub(p.CPP).Sub(p.EI)
	if !want.Equal(p.Net) {
		return fmt.Errorf("%w: employee %d net %s, expected %s", ErrInvalidStub, p.EmployeeID, p.Net, want)
	}
	return nil
}

// PayRun groups the stubs paid together.
type PayRun struct {
	ID        int64
	Period    string
	PayDate   time.Time
	Stubs     []PayStub
	Status    PayRunStatus
	Entry     string
	EntryID   uuid.UUID
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PayRunInput for creating pay runs.
type PayRunInput struct {
	Period  string
	PayDate time.Time
	Stubs   []PayStub
}

// Summary totals a pay run including employer contributions.
type Summary struct {
	EmployeeCount     int
	TotalGross        decimal.Decimal
	TotalNet          decimal.Decimal
	FederalTax        decimal.Decimal
	ProvincialTax     decimal.Decimal
	EmployeeCPP       decimal.Decimal
	EmployerCPP       decimal.Decimal
	EmployeeEI        decimal.Decimal
	EmployerEI        decimal.Decimal
	TotalRemittance   decimal.Decimal
	TotalEmployerCost decimal.Decimal
}

// Summarize totals stubs. Employer CPP matches the employee deduction and
// employer EI is 1.4 times it, both rounded to the cent.
func Summarize(stubs []PayStub) Summary {
	s := Summary{
		EmployeeCount: len(stubs),
		TotalGross:    decimal.Zero,
		TotalNet:      decimal.Zero,
		FederalTax:    decimal.Zero,
		ProvincialTax: decimal.Zero,
		EmployeeCPP:   decimal.Zero,
		EmployeeEI:    decimal.Zero,
	}
	for _, p := range stubs {
		s.TotalGross = s.TotalGross.Add(p.Gross)
		s.TotalNet = s.TotalNet.Add(p.Net)
		s.FederalTax = s.FederalTax.Add(p.FederalTax)
		s.ProvincialTax = s.ProvincialTax.Add(p.ProvincialTax)
		s.EmployeeCPP = s.EmployeeCPP.Add(p.CPP)
		s.EmployeeEI = s.EmployeeEI.Add(p.EI)
	}
	s.EmployerCPP = s.EmployeeCPP.Mul(EmployerCPPRate).Round(2)
	s.EmployerEI = s.EmployeeEI.Mul(EmployerEIRate).Round(2)
	s.TotalRemittance = s.FederalTax.Add(s.ProvincialTax).
		Add(s.EmployeeCPP).Add(s.EmployerCPP).
		Add(s.EmployeeEI).Add(s.EmployerEI)
	s.TotalEmployerCost = s.TotalGross.Add(s.EmployerCPP).Add(s.EmployerEI)
	return s
}

// Allocation splits a remittance across the statutory payables.
type Allocation struct {
	FederalTax    decimal.Decimal
	ProvincialTax decimal.Decimal
	CPP           decimal.Decimal
	EI            decimal.Decimal
}

// Total sums the allocation.
func (a Allocation) Total() decimal.Decimal {
	return a.FederalTax.Add(a.ProvincialTax).Add(a.CPP).Add(a.EI)
}

// Remittance records a payment of statutory deductions.
type Remittance struct {
	Reference  string
	Period     string
	PaidAt     time.Time
	Allocation Allocation
	Entry      string
}

// RemitInput requests a remittance. A nil Allocation remits every pending balance.
type RemitInput struct {
	Reference  string
	Period     string
	PaidAt     time.Time
	Allocation *Allocation
}
