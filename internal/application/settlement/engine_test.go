package settlement

import (
	"context"
	"io"
	"testing"

	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/ledger"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/internal/infrastructure/persistence/memory"
	"github.com/edulearn/edulearn-platform/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	learnerAccount    = shared.AccountNumber("100200300")
	instructorAccount = shared.AccountNumber("400500600")
	platformAccount   = shared.AccountNumber("900900900")

	learnerSecret  = "learner-pass"
	platformSecret = "platform-pass"
)

type testEnv struct {
	engine   *Engine
	accounts *memory.AccountStore
	users    *memory.UserStore
	txns     *memory.TransactionStore

	instructorID shared.UserID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	accounts := memory.NewAccountStore()
	users := memory.NewUserStore()
	txns := memory.NewTransactionStore()
	store := memory.NewSettlementStore(accounts, users, txns)

	ctx := context.Background()
	seed := func(number shared.AccountNumber, secret string, balance int64) {
		acc, err := account.NewAccount(number, secret, shared.NewMoneyFromInt(balance))
		require.NoError(t, err)
		require.NoError(t, accounts.Create(ctx, acc))
	}
	seed(learnerAccount, learnerSecret, 1000)
	seed(instructorAccount, "instructor-pass", 50)
	seed(platformAccount, platformSecret, 10000)

	instructor := account.NewInstructor(
		shared.UserID(uuid.New().String()), "Dana Instructor", "dana", "dana@example.com", instructorAccount)
	require.NoError(t, users.Create(ctx, instructor))

	log := logger.New(io.Discard, logger.LevelError)
	engine := NewEngine(accounts, store, nil, log, platformAccount)

	return &testEnv{
		engine:       engine,
		accounts:     accounts,
		users:        users,
		txns:         txns,
		instructorID: instructor.ID,
	}
}

func (e *testEnv) balance(t *testing.T, n shared.AccountNumber) shared.Money {
	t.Helper()
	acc, err := e.accounts.GetByNumber(context.Background(), n)
	require.NoError(t, err)
	return acc.Balance
}

func (e *testEnv) earnings(t *testing.T) shared.Money {
	t.Helper()
	u, err := e.users.GetByID(context.Background(), e.instructorID)
	require.NoError(t, err)
	profile, ok := u.AsInstructor()
	require.True(t, ok)
	return profile.TotalEarnings
}

func purchaseReq(e *testEnv, amount int64) PurchaseRequest {
	return PurchaseRequest{
		Payer:        learnerAccount,
		Secret:       learnerSecret,
		Payee:        instructorAccount,
		Amount:       shared.NewMoneyFromInt(amount),
		CourseID:     shared.CourseID(uuid.New().String()),
		InstructorID: e.instructorID,
	}
}

func TestSettle_SplitsEightyTwenty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	txn, err := env.engine.Settle(ctx, purchaseReq(env, 100))
	require.NoError(t, err)

	assert.Equal(t, ledger.KindPurchase, txn.Kind)
	assert.Equal(t, ledger.StatusCompleted, txn.Status)
	assert.True(t, txn.PayeeShare.Equal(shared.NewMoneyFromInt(80)))
	assert.True(t, txn.PlatformShare.Equal(shared.NewMoneyFromInt(20)))

	assert.True(t, env.balance(t, learnerAccount).Equal(shared.NewMoneyFromInt(900)))
	assert.True(t, env.balance(t, instructorAccount).Equal(shared.NewMoneyFromInt(130)))
	assert.True(t, env.balance(t, platformAccount).Equal(shared.NewMoneyFromInt(10020)))
	assert.True(t, env.earnings(t).Equal(shared.NewMoneyFromInt(80)))

	stored, err := env.txns.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, stored.ID)
}

func TestSettle_ConservesMoneyOnOddAmounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	price, err := shared.NewMoneyFromString("99.99")
	require.NoError(t, err)

	req := purchaseReq(env, 0)
	req.Amount = price

	txn, err := env.engine.Settle(ctx, req)
	require.NoError(t, err)

	// The platform share is the exact remainder after rounding the
	// instructor share, so the legs always reconstruct the price.
	assert.True(t, txn.PayeeShare.Add(txn.PlatformShare).Equal(price))

	total := env.balance(t, learnerAccount).
		Add(env.balance(t, instructorAccount)).
		Add(env.balance(t, platformAccount))
	assert.True(t, total.Equal(shared.NewMoneyFromInt(11050)))
}

func TestSettle_BadSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := purchaseReq(env, 100)
	req.Secret = "wrong-pass"

	_, err := env.engine.Settle(ctx, req)
	require.Error(t, err)
	assert.True(t, shared.IsAuthentication(err))

	// Nothing moved, nothing recorded.
	assert.True(t, env.balance(t, learnerAccount).Equal(shared.NewMoneyFromInt(1000)))
	assert.True(t, env.earnings(t).IsZero())
}

func TestSettle_InsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.Settle(ctx, purchaseReq(env, 5000))
	require.Error(t, err)
	assert.True(t, shared.IsInsufficientFunds(err))

	assert.True(t, env.balance(t, learnerAccount).Equal(shared.NewMoneyFromInt(1000)))
	assert.True(t, env.balance(t, instructorAccount).Equal(shared.NewMoneyFromInt(50)))
}

func TestSettle_UnknownPayer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := purchaseReq(env, 100)
	req.Payer = shared.AccountNumber("111111111")

	_, err := env.engine.Settle(ctx, req)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestSettle_PayerEqualsPayee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := purchaseReq(env, 100)
	req.Payee = learnerAccount

	_, err := env.engine.Settle(ctx, req)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestSettle_ConcurrentPurchasesNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// The payer holds 1000, so exactly three 300 purchases can clear no
	// matter how the goroutines interleave.
	courseID := shared.CourseID(uuid.New().String())
	const attempts = 4
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			req := purchaseReq(env, 300)
			req.CourseID = courseID
			_, err := env.engine.Settle(ctx, req)
			errs <- err
		}()
	}

	succeeded := 0
	for i := 0; i < attempts; i++ {
		if err := <-errs; err == nil {
			succeeded++
		} else {
			assert.True(t, shared.IsInsufficientFunds(err))
		}
	}
	assert.Equal(t, 3, succeeded)

	assert.True(t, env.balance(t, learnerAccount).Equal(shared.NewMoneyFromInt(100)))
	assert.True(t, env.balance(t, instructorAccount).Equal(shared.NewMoneyFromInt(770)))
	assert.True(t, env.balance(t, platformAccount).Equal(shared.NewMoneyFromInt(10180)))
	assert.True(t, env.earnings(t).Equal(shared.NewMoneyFromInt(720)))

	total := env.balance(t, learnerAccount).
		Add(env.balance(t, instructorAccount)).
		Add(env.balance(t, platformAccount))
	assert.True(t, total.Equal(shared.NewMoneyFromInt(11050)))

	// Failed settlements leave no ledger entries behind.
	txns, err := env.txns.ListByCourse(ctx, courseID, shared.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Len(t, txns, 3)
}

func TestSettleLumpSum_FullAmountToPayee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	txn, err := env.engine.SettleLumpSum(ctx, LumpSumRequest{
		Secret:       platformSecret,
		Payee:        instructorAccount,
		Amount:       shared.NewMoneyFromInt(500),
		CourseID:     shared.CourseID(uuid.New().String()),
		InstructorID: env.instructorID,
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.KindLumpSum, txn.Kind)
	assert.True(t, txn.PayeeShare.Equal(shared.NewMoneyFromInt(500)))
	assert.True(t, txn.PlatformShare.IsZero())

	assert.True(t, env.balance(t, platformAccount).Equal(shared.NewMoneyFromInt(9500)))
	assert.True(t, env.balance(t, instructorAccount).Equal(shared.NewMoneyFromInt(550)))
	assert.True(t, env.earnings(t).Equal(shared.NewMoneyFromInt(500)))
}

func TestSettleLumpSum_PlatformCannotOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.SettleLumpSum(ctx, LumpSumRequest{
		Secret:       platformSecret,
		Payee:        instructorAccount,
		Amount:       shared.NewMoneyFromInt(99999),
		InstructorID: env.instructorID,
	})
	require.Error(t, err)
	assert.True(t, shared.IsInsufficientFunds(err))
}

func TestRefund_RestoresAllBalances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	original, err := env.engine.Settle(ctx, purchaseReq(env, 250))
	require.NoError(t, err)

	refund, err := env.engine.Refund(ctx, original, env.instructorID)
	require.NoError(t, err)

	assert.Equal(t, ledger.KindRefund, refund.Kind)
	assert.Equal(t, original.ID, refund.Reference)

	assert.True(t, env.balance(t, learnerAccount).Equal(shared.NewMoneyFromInt(1000)))
	assert.True(t, env.balance(t, instructorAccount).Equal(shared.NewMoneyFromInt(50)))
	assert.True(t, env.balance(t, platformAccount).Equal(shared.NewMoneyFromInt(10000)))
	assert.True(t, env.earnings(t).IsZero())
}

func TestRefund_OnlyPurchases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	lump, err := env.engine.SettleLumpSum(ctx, LumpSumRequest{
		Secret:       platformSecret,
		Payee:        instructorAccount,
		Amount:       shared.NewMoneyFromInt(10),
		InstructorID: env.instructorID,
	})
	require.NoError(t, err)

	_, err = env.engine.Refund(ctx, lump, env.instructorID)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}
