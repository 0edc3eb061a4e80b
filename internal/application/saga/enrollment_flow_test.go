package saga

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/edulearn/edulearn-platform/internal/application/settlement"
	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/enrollment"
	"github.com/edulearn/edulearn-platform/internal/domain/ledger"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
	"github.com/edulearn/edulearn-platform/internal/infrastructure/persistence/memory"
	"github.com/edulearn/edulearn-platform/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	learnerAcc    = shared.AccountNumber("123123123")
	instructorAcc = shared.AccountNumber("456456456")
	platformAcc   = shared.AccountNumber("789789789")
)

// brokenEnrollments fails every Create, simulating a storage outage
// between payment and enrollment.
type brokenEnrollments struct {
	enrollment.Repository
}

func (b *brokenEnrollments) Create(ctx context.Context, e *enrollment.Enrollment) error {
	return errors.New("storage unavailable")
}

func TestEnrollmentFlow_CompensatesWhenEnrollmentWriteFails(t *testing.T) {
	ctx := context.Background()

	accounts := memory.NewAccountStore()
	users := memory.NewUserStore()
	txns := memory.NewTransactionStore()
	courses := memory.NewCourseStore()
	enrollments := &brokenEnrollments{Repository: memory.NewEnrollmentStore()}

	seed := func(number shared.AccountNumber, secret string, balance int64) {
		acc, err := account.NewAccount(number, secret, shared.NewMoneyFromInt(balance))
		require.NoError(t, err)
		require.NoError(t, accounts.Create(ctx, acc))
	}
	seed(learnerAcc, "learner-pass", 500)
	seed(instructorAcc, "instructor-pass", 0)
	seed(platformAcc, "platform-pass", 1000)

	learner := account.NewLearner(shared.UserID(uuid.New().String()), "Aliya", "aliya", "a@example.com", learnerAcc)
	require.NoError(t, users.Create(ctx, learner))
	instructor := account.NewInstructor(shared.UserID(uuid.New().String()), "Dana", "dana", "d@example.com", instructorAcc)
	require.NoError(t, users.Create(ctx, instructor))

	videos := []course.Video{{ID: shared.VideoID(uuid.New().String()), Title: "Intro", DurationSeconds: 300}}
	crs, err := course.NewCourse(shared.CourseID(uuid.New().String()), "Go", "d", "programming",
		instructor.ID, shared.NewMoneyFromInt(200), videos)
	require.NoError(t, err)
	require.NoError(t, courses.Create(ctx, crs))

	log := logger.New(io.Discard, logger.LevelError)
	engine := settlement.NewEngine(accounts, memory.NewSettlementStore(accounts, users, txns), nil, log, platformAcc)
	flow := NewEnrollmentFlowSaga(courses, users, enrollments, engine, nil, log)

	_, err = flow.Execute(ctx, EnrollmentInput{
		LearnerID:    learner.ID,
		CourseID:     crs.ID,
		PayerAccount: learnerAcc,
		Secret:       "learner-pass",
	})
	require.Error(t, err)

	// The purchase was refunded in full: every balance is back where it
	// started and the instructor's earnings counter is zero again.
	check := func(n shared.AccountNumber, want int64) {
		acc, err := accounts.GetByNumber(ctx, n)
		require.NoError(t, err)
		assert.True(t, acc.Balance.Equal(shared.NewMoneyFromInt(want)), "account %s", n)
	}
	check(learnerAcc, 500)
	check(instructorAcc, 0)
	check(platformAcc, 1000)

	u, err := users.GetByID(ctx, instructor.ID)
	require.NoError(t, err)
	profile, ok := u.AsInstructor()
	require.True(t, ok)
	assert.True(t, profile.TotalEarnings.IsZero())

	// The ledger keeps both legs of the story: the purchase and its
	// compensating refund.
	list, err := txns.ListByCourse(ctx, crs.ID, shared.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, list, 2)

	kinds := map[ledger.TransactionKind]bool{}
	for _, txn := range list {
		kinds[txn.Kind] = true
	}
	assert.True(t, kinds[ledger.KindPurchase])
	assert.True(t, kinds[ledger.KindRefund])
}
