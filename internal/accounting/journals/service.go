package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	common "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// AccountLedger is the slice of the account registry the engine needs.
type AccountLedger interface {
	AccountLookup
	ApplyDelta(ctx context.Context, code string, signed decimal.Decimal) (accounts.Account, error)
	CompensateDelta(ctx context.Context, code string, signed decimal.Decimal) (accounts.Account, error)
	List(ctx context.Context) ([]accounts.Account, error)
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log common.AuditLog) error
}

// Recorder receives posting telemetry.
type Recorder interface {
	ObservePosting(source, outcome string, elapsed time.Duration)
	ObserveRollback(source string, compensated bool)
}

// EntryObserver is called once per post or void that moved balances, after
// the entry was stored (committed) or rolled back (not committed).
type EntryObserver func(ctx context.Context, entry JournalEntry, committed bool)

// ServiceConfig carries optional collaborators.
type ServiceConfig struct {
	Audit     AuditPort
	Metrics   Recorder
	Logger    *slog.Logger
	Observers []EntryObserver
}

// Service is the posting engine. It is the only component that changes
// account balances.
//
// A post is atomic inside this process only: deltas are applied one account
// at a time and a failure replays the undo log in reverse. A crash between
// the first delta and the final insert leaves balances ahead of the journal;
// Reconcile detects that drift.
type Service struct {
	repo      Repository
	ledger    AccountLedger
	validator *Validator
	numbers   NumberAllocator
	audit     AuditPort
	metrics   Recorder
	logger    *slog.Logger
	now       func() time.Time
	voidLocks common.KeyedMutex
	observers []EntryObserver
}

// NewService wires the posting engine.
func NewService(repo Repository, ledger AccountLedger, numbers NumberAllocator, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		ledger:    ledger,
		validator: NewValidator(ledger),
		numbers:   numbers,
		audit:     cfg.Audit,
		metrics:   cfg.Metrics,
		logger:    logger,
		now:       time.Now,
		observers: append([]EntryObserver(nil), cfg.Observers...),
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Validate runs the validator without posting.
func (s *Service) Validate(ctx context.Context, candidate JournalEntry) error {
	_, err := s.validator.Validate(ctx, candidate)
	return err
}

// ListJournals returns every stored entry in posting order.
func (s *Service) ListJournals(ctx context.Context) ([]JournalEntry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, shared.NewStorageError("list entries", err)
	}
	return entries, nil
}

// GetJournal loads an entry by id.
func (s *Service) GetJournal(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return s.lookup(ctx, func() (JournalEntry, error) { return s.repo.Get(ctx, id) })
}

// GetJournalByNumber loads an entry by its JE number.
func (s *Service) GetJournalByNumber(ctx context.Context, number string) (JournalEntry, error) {
	return s.lookup(ctx, func() (JournalEntry, error) { return s.repo.GetByNumber(ctx, number) })
}

func (s *Service) lookup(_ context.Context, fn func() (JournalEntry, error)) (JournalEntry, error) {
	e, err := fn()
	if errors.Is(err, shared.ErrJournalNotFound) {
		return JournalEntry{}, err
	}
	if err != nil {
		return JournalEntry{}, shared.NewStorageError("get entry", err)
	}
	return e, nil
}

// PostJournal validates candidate, numbers it, applies its balance deltas and
// stores it. Either every effect lands or, barring a failed compensation,
// none does.
func (s *Service) PostJournal(ctx context.Context, candidate JournalEntry) (JournalEntry, error) {
	switch candidate.Status {
	case "", JournalStatusDraft:
	case JournalStatusPosted:
		return JournalEntry{}, shared.ErrAlreadyPosted
	case JournalStatusVoid:
		return JournalEntry{}, shared.ErrAlreadyVoid
	default:
		return JournalEntry{}, fmt.Errorf("%w: %s", shared.ErrInvalidStatus, candidate.Status)
	}
	candidate.ReversalOf = nil
	return s.post(ctx, candidate, func(ctx context.Context, entry JournalEntry) error {
		return s.repo.Insert(ctx, entry)
	})
}

// VoidJournal posts the mirror of a posted entry and marks the original VOID.
// The returned entry is the reversal.
func (s *Service) VoidJournal(ctx context.Context, input VoidInput) (JournalEntry, error) {
	if input.EntryID == uuid.Nil {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	unlock := s.voidLocks.Lock(input.EntryID.String())
	defer unlock()

	original, err := s.GetJournal(ctx, input.EntryID)
	if err != nil {
		return JournalEntry{}, err
	}
	if original.Status == JournalStatusVoid {
		return JournalEntry{}, fmt.Errorf("%w: %s", shared.ErrAlreadyVoid, original.Number)
	}
	if original.IsReversal() {
		return JournalEntry{}, fmt.Errorf("%w: %s reverses another entry", shared.ErrInvalidStatus, original.Number)
	}

	originalID := original.ID
	reversal := JournalEntry{
		Date:         s.now(),
		Description:  defaultReversalMemo(original, input.Reason),
		Status:       JournalStatusDraft,
		SourceModule: original.SourceModule,
		SourceRef:    original.Number,
		ReversalOf:   &originalID,
		PostedBy:     input.ActorID,
		Lines:        reverseLines(original.Lines),
	}
	posted, err := s.post(ctx, reversal, func(ctx context.Context, entry JournalEntry) error {
		return s.repo.InsertReversal(ctx, entry, originalID, input.Reason)
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, common.AuditLog{
		ActorID:  input.ActorID,
		Action:   "journal.void",
		Entity:   "journal_entry",
		EntityID: original.ID.String(),
		Meta: map[string]any{
			"number":   original.Number,
			"reversal": posted.Number,
			"reason":   input.Reason,
		},
		At: s.now(),
	})
	return posted, nil
}

type appliedDelta struct {
	code  string
	delta decimal.Decimal
}

func (s *Service) post(ctx context.Context, candidate JournalEntry, persist func(context.Context, JournalEntry) error) (entry JournalEntry, err error) {
	start := s.now()
	source := candidate.SourceModule
	if source == "" {
		source = SourceManual
	}
	defer func() { s.observe(source, err, start) }()

	if err := ctx.Err(); err != nil {
		return JournalEntry{}, err
	}
	resolved, err := s.validator.Validate(ctx, candidate)
	if err != nil {
		return JournalEntry{}, err
	}

	entry = candidate.clone()
	if entry.Date.IsZero() {
		entry.Date = start
	}
	number, err := s.numbers.Next(ctx, entry.Date.Year())
	if err != nil {
		return JournalEntry{}, shared.NewStorageError("allocate number", err)
	}
	entry.ID = uuid.New()
	entry.Number = number
	entry.Status = JournalStatusPosted
	entry.SourceModule = source
	entry.PostedAt = s.now()
	entry.CreatedAt = entry.PostedAt

	// No cancellation past this point: a half-applied entry must reach either
	// its insert or its rollback.
	ctx = context.WithoutCancel(ctx)
	undo := make([]appliedDelta, 0, len(entry.Lines))
	committed := false
	defer func(attempt JournalEntry) {
		if len(undo) > 0 {
			s.notify(ctx, attempt, committed)
		}
	}(entry)
	for i, line := range entry.Lines {
		delta := resolved[i].SignedDelta(line.Debit, line.Credit)
		if _, err := s.ledger.ApplyDelta(ctx, line.AccountCode, delta); err != nil {
			return JournalEntry{}, s.rollback(ctx, entry, undo, err)
		}
		undo = append(undo, appliedDelta{code: line.AccountCode, delta: delta})
	}

	if err := persist(ctx, entry); err != nil {
		if !errors.Is(err, shared.ErrAlreadyVoid) && !errors.Is(err, shared.ErrJournalNotFound) {
			err = shared.NewStorageError("insert entry", err)
		}
		return JournalEntry{}, s.rollback(ctx, entry, undo, err)
	}
	committed = true

	if !entry.IsReversal() {
		debit, _ := entry.Totals()
		s.record(ctx, common.AuditLog{
			ActorID:  entry.PostedBy,
			Action:   "journal.post",
			Entity:   "journal_entry",
			EntityID: entry.ID.String(),
			Meta: map[string]any{
				"number":        entry.Number,
				"source_module": entry.SourceModule,
				"source_ref":    entry.SourceRef,
				"amount":        debit.StringFixed(shared.CurrencyScale),
			},
			At: entry.PostedAt,
		})
	}
	s.logger.Info("journal posted",
		slog.String("number", entry.Number),
		slog.String("source", entry.SourceModule),
		slog.Int("lines", len(entry.Lines)))
	return entry, nil
}

// rollback replays undo in reverse. When every compensation succeeds the
// original cause is returned; otherwise a non-retryable storage error.
func (s *Service) rollback(ctx context.Context, entry JournalEntry, undo []appliedDelta, cause error) error {
	var failed []error
	for i := len(undo) - 1; i >= 0; i-- {
		u := undo[i]
		if _, err := s.ledger.CompensateDelta(ctx, u.code, u.delta); err != nil {
			failed = append(failed, fmt.Errorf("compensate %s by %s: %w", u.code, u.delta.String(), err))
		}
	}
	if s.metrics != nil && len(undo) > 0 {
		s.metrics.ObserveRollback(entry.SourceModule, len(failed) == 0)
	}
	if len(failed) > 0 {
		s.logger.Error("journal rollback incomplete",
			slog.String("number", entry.Number),
			slog.Any("cause", cause),
			slog.Any("error", errors.Join(failed...)))
		return &shared.StorageError{
			Op:  "rollback " + entry.Number,
			Err: errors.Join(append([]error{cause}, failed...)...),
		}
	}
	if len(undo) > 0 {
		s.logger.Warn("journal rolled back",
			slog.String("number", entry.Number),
			slog.Int("compensated", len(undo)),
			slog.Any("cause", cause))
	}
	return cause
}

func (s *Service) notify(ctx context.Context, entry JournalEntry, committed bool) {
	for _, obs := range s.observers {
		obs(ctx, entry, committed)
	}
}

func (s *Service) observe(source string, err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObservePosting(source, outcome(err), s.now().Sub(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "posted"
	case errors.Is(err, shared.ErrValidation):
		return "rejected"
	case errors.Is(err, shared.ErrStorage):
		return "storage_error"
	default:
		return "failed"
	}
}

func (s *Service) record(ctx context.Context, log common.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", log.Action), slog.Any("error", err))
	}
}

func defaultReversalMemo(original JournalEntry, reason string) string {
	memo := fmt.Sprintf("Reversal of %s", original.Number)
	if reason != "" {
		memo += ": " + reason
	}
	return memo
}
