// Package settlement implements the payment settlement engine: the only
// component that moves money between accounts.
package settlement

import (
	"context"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/ledger"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/pkg/logger"
)

// Engine performs atomic settlements against the account store.
//
// The platform account is injected configuration, never a hardcoded
// number. Purchase settlements split the amount 80/20 between instructor
// and platform, with the platform taking the exact remainder.
type Engine struct {
	accounts account.Repository
	store    ledger.SettlementStore
	events   shared.EventPublisher
	log      *logger.Logger

	// platformAccount receives the platform share of every purchase and
	// funds lump-sum transfers.
	platformAccount shared.AccountNumber
}

// NewEngine creates the settlement engine.
func NewEngine(
	accounts account.Repository,
	store ledger.SettlementStore,
	events shared.EventPublisher,
	log *logger.Logger,
	platformAccount shared.AccountNumber,
) *Engine {
	if events == nil {
		events = shared.NopPublisher{}
	}
	return &Engine{
		accounts:        accounts,
		store:           store,
		events:          events,
		log:             log.With(logger.String("component", "settlement_engine")),
		platformAccount: platformAccount,
	}
}

// PlatformAccount returns the configured platform account number.
func (e *Engine) PlatformAccount() shared.AccountNumber {
	return e.platformAccount
}

// ─────────────────────────────────────────────────────────────────────────────
// Purchase settlement
// ─────────────────────────────────────────────────────────────────────────────

// PurchaseRequest describes a course purchase settlement.
type PurchaseRequest struct {
	// Payer is the learner's bank account; Secret authenticates it.
	Payer  shared.AccountNumber
	Secret string

	// Payee is the instructor's payout account.
	Payee shared.AccountNumber

	// Amount is the course price, debited in full from the payer.
	Amount shared.Money

	// CourseID links the transaction to the purchased course.
	CourseID shared.CourseID

	// InstructorID names whose earnings counter the payee share lands on.
	InstructorID shared.UserID
}

// Settle executes a purchase: authenticates the payer, checks funds,
// debits the full amount, and credits the instructor (80%) and the
// platform (remainder) in one atomic unit of work. Returns the recorded
// transaction.
//
// Failed settlements write nothing: no balance moves, no transaction row.
func (e *Engine) Settle(ctx context.Context, req PurchaseRequest) (*ledger.Transaction, error) {
	if err := e.validatePurchase(req); err != nil {
		return nil, err
	}

	payer, err := e.accounts.GetByNumber(ctx, req.Payer)
	if err != nil {
		return nil, err
	}
	if err := payer.VerifySecret(req.Secret); err != nil {
		e.log.Warn("settlement rejected: bad credentials",
			logger.String("payer", req.Payer.String()),
			logger.String("course_id", req.CourseID.String()))
		return nil, err
	}
	// Fast pre-check; the store re-checks under lock.
	if !payer.CanDebit(req.Amount) {
		return nil, shared.ErrNegativeBalance
	}

	payeeShare, platformShare := req.Amount.Split()

	txn := &ledger.Transaction{
		ID:            ledger.NewTransactionID(),
		Kind:          ledger.KindPurchase,
		Status:        ledger.StatusCompleted,
		Payer:         req.Payer,
		Payee:         req.Payee,
		Amount:        req.Amount,
		PayeeShare:    payeeShare,
		PlatformShare: platformShare,
		CourseID:      req.CourseID,
		CreatedAt:     time.Now().UTC(),
	}

	s := &ledger.Settlement{
		Transaction: txn,
		Debits:      []ledger.Leg{{Account: req.Payer, Amount: req.Amount}},
		Credits: []ledger.Leg{
			{Account: req.Payee, Amount: payeeShare},
			{Account: e.platformAccount, Amount: platformShare},
		},
		EarningsFor:   req.InstructorID,
		EarningsDelta: payeeShare,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.Apply(ctx, s); err != nil {
		return nil, err
	}

	e.log.Info("purchase settled",
		logger.String("transaction_id", txn.ID),
		logger.String("course_id", req.CourseID.String()),
		logger.String("amount", req.Amount.String()))

	e.publish(shared.NewSettlementCompletedEvent(txn.ID, string(txn.Kind),
		req.Amount.String(), req.Payer.String(), req.Payee.String(),
		req.CourseID.String(), payeeShare.String(), platformShare.String()))
	return txn, nil
}

func (e *Engine) validatePurchase(req PurchaseRequest) error {
	if !req.Payer.IsValid() {
		return shared.NewDomainError("settlement", "Settle", shared.ErrInvalidFormat, "invalid payer account number")
	}
	if !req.Payee.IsValid() {
		return shared.NewDomainError("settlement", "Settle", shared.ErrInvalidFormat, "invalid payee account number")
	}
	if req.Payer == req.Payee {
		return shared.NewDomainError("settlement", "Settle", shared.ErrInvalidInput, "payer and payee cannot be the same account")
	}
	if req.Secret == "" {
		return shared.NewDomainError("settlement", "Settle", shared.ErrEmptyValue, "account secret is required")
	}
	if !req.Amount.IsPositive() {
		return shared.NewDomainError("settlement", "Settle", shared.ErrInvalidInput, "settlement amount must be positive")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Lump-sum settlement
// ─────────────────────────────────────────────────────────────────────────────

// LumpSumRequest describes a single-recipient transfer from the platform
// account, used to fund a newly created course.
type LumpSumRequest struct {
	// Secret authenticates the platform account.
	Secret string

	// Payee receives the full amount.
	Payee shared.AccountNumber

	// Amount is the transfer size.
	Amount shared.Money

	// CourseID links the transfer to the course being funded.
	CourseID shared.CourseID

	// InstructorID names whose earnings counter the amount lands on.
	InstructorID shared.UserID
}

// SettleLumpSum transfers the full amount from the platform account to a
// single payee, with no split.
func (e *Engine) SettleLumpSum(ctx context.Context, req LumpSumRequest) (*ledger.Transaction, error) {
	if !req.Payee.IsValid() {
		return nil, shared.NewDomainError("settlement", "SettleLumpSum", shared.ErrInvalidFormat, "invalid payee account number")
	}
	if req.Payee == e.platformAccount {
		return nil, shared.NewDomainError("settlement", "SettleLumpSum", shared.ErrInvalidInput, "platform cannot pay itself")
	}
	if !req.Amount.IsPositive() {
		return nil, shared.NewDomainError("settlement", "SettleLumpSum", shared.ErrInvalidInput, "transfer amount must be positive")
	}

	platform, err := e.accounts.GetByNumber(ctx, e.platformAccount)
	if err != nil {
		return nil, err
	}
	if err := platform.VerifySecret(req.Secret); err != nil {
		return nil, err
	}
	if !platform.CanDebit(req.Amount) {
		return nil, shared.ErrNegativeBalance
	}

	txn := &ledger.Transaction{
		ID:            ledger.NewTransactionID(),
		Kind:          ledger.KindLumpSum,
		Status:        ledger.StatusCompleted,
		Payer:         e.platformAccount,
		Payee:         req.Payee,
		Amount:        req.Amount,
		PayeeShare:    req.Amount,
		PlatformShare: shared.Zero(),
		CourseID:      req.CourseID,
		CreatedAt:     time.Now().UTC(),
	}

	s := &ledger.Settlement{
		Transaction:   txn,
		Debits:        []ledger.Leg{{Account: e.platformAccount, Amount: req.Amount}},
		Credits:       []ledger.Leg{{Account: req.Payee, Amount: req.Amount}},
		EarningsFor:   req.InstructorID,
		EarningsDelta: req.Amount,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.Apply(ctx, s); err != nil {
		return nil, err
	}

	e.log.Info("lump sum settled",
		logger.String("transaction_id", txn.ID),
		logger.String("payee", req.Payee.String()),
		logger.String("amount", req.Amount.String()))

	e.publish(shared.NewSettlementCompletedEvent(txn.ID, string(txn.Kind),
		txn.Amount.String(), txn.Payer.String(), txn.Payee.String(),
		req.CourseID.String(), txn.PayeeShare.String(), "0"))
	return txn, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Compensating refund
// ─────────────────────────────────────────────────────────────────────────────

// Refund reverses a completed purchase: the instructor and the platform
// each return their share to the original payer, and the instructor's
// earnings counter is decremented. Used by the enrollment saga when the
// enrollment record cannot be written after payment.
func (e *Engine) Refund(ctx context.Context, original *ledger.Transaction, instructorID shared.UserID) (*ledger.Transaction, error) {
	if original == nil || original.Kind != ledger.KindPurchase {
		return nil, shared.NewDomainError("settlement", "Refund", shared.ErrInvalidInput, "only purchase transactions can be refunded")
	}

	txn := &ledger.Transaction{
		ID:            ledger.NewTransactionID(),
		Kind:          ledger.KindRefund,
		Status:        ledger.StatusCompleted,
		Payer:         original.Payee,
		Payee:         original.Payer,
		Amount:        original.Amount,
		PayeeShare:    original.Amount,
		PlatformShare: shared.Zero(),
		CourseID:      original.CourseID,
		Reference:     original.ID,
		CreatedAt:     time.Now().UTC(),
	}

	s := &ledger.Settlement{
		Transaction: txn,
		Debits: []ledger.Leg{
			{Account: original.Payee, Amount: original.PayeeShare},
			{Account: e.platformAccount, Amount: original.PlatformShare},
		},
		Credits:       []ledger.Leg{{Account: original.Payer, Amount: original.Amount}},
		EarningsFor:   instructorID,
		EarningsDelta: shared.Zero().Sub(original.PayeeShare),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.Apply(ctx, s); err != nil {
		return nil, err
	}

	e.log.Warn("purchase refunded",
		logger.String("transaction_id", txn.ID),
		logger.String("reference", original.ID))

	e.publish(shared.NewSettlementRefundedEvent(txn.ID, original.ID,
		txn.Amount.String(), "enrollment could not be recorded"))
	return txn, nil
}

func (e *Engine) publish(ev shared.Event) {
	if err := e.events.Publish(ev); err != nil {
		e.log.Warn("event publish failed",
			logger.String("event_type", string(ev.EventType())),
			logger.Err(err))
	}
}
