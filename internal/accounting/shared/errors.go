package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks every failure reported by the journal validator.
	ErrValidation = errors.New("accounting: journal entry rejected")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrMalformedLine indicates a line without exactly one positive side.
	ErrMalformedLine = errors.New("accounting: journal line must carry exactly one positive side")
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrAccountNotFound indicates an unknown account code.
	ErrAccountNotFound = errors.New("accounting: account not found")
	// ErrAccountInactive indicates a posting against a deactivated account.
	ErrAccountInactive = errors.New("accounting: account is inactive")
	// ErrStorage indicates the backing store failed.
	ErrStorage = errors.New("accounting: storage failure")
	// ErrAlreadyPosted indicates the candidate already left draft status.
	ErrAlreadyPosted = errors.New("accounting: journal entry already posted")
	// ErrAlreadyVoid indicates the entry was voided before.
	ErrAlreadyVoid = errors.New("accounting: journal entry already void")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrInvalidStatus indicates action can't proceed.
	ErrInvalidStatus = errors.New("accounting: invalid status transition")
	// ErrMappingNotFound indicates account mapping missing.
	ErrMappingNotFound = errors.New("accounting: account mapping not found")
)

// Rule identifies the validator rule that rejected an entry.
type Rule int

const (
	RuleLineCount Rule = iota + 1
	RuleAccountExists
	RuleLineShape
	RuleBalance
	RuleAccountActive
)

func (r Rule) String() string {
	switch r {
	case RuleLineCount:
		return "line_count"
	case RuleAccountExists:
		return "account_exists"
	case RuleLineShape:
		return "line_shape"
	case RuleBalance:
		return "balance"
	case RuleAccountActive:
		return "account_active"
	default:
		return "unknown"
	}
}

// ValidationError reports the first rule a journal entry violated.
// Line is the zero-based line index, or -1 when the rule concerns the whole entry.
type ValidationError struct {
	Rule   Rule
	Line   int
	Detail string
	Err    error
}

// NewValidationError builds a ValidationError for rule.
func NewValidationError(rule Rule, line int, err error, detail string) *ValidationError {
	return &ValidationError{Rule: rule, Line: line, Err: err, Detail: detail}
}

func (e *ValidationError) Error() string {
	msg := e.Err.Error()
	if e.Line >= 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line+1)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

// Unwrap exposes both ErrValidation and the rule sentinel to errors.Is.
func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// StorageError wraps a persistence failure. Retryable is true when every
// balance delta applied before the failure was compensated.
type StorageError struct {
	Op        string
	Retryable bool
	Err       error
}

// NewStorageError wraps err unless it already is a storage error.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Retryable: true, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("accounting: storage %s: %v", e.Op, e.Err)
}

// Unwrap exposes ErrStorage and the underlying driver error.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// IsRetryable reports whether err is a storage failure after which state was
// fully restored, so the same call can be issued again.
func IsRetryable(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
