package command

import (
	"context"
	"io"
	"testing"

	"github.com/edulearn/edulearn-platform/internal/application/saga"
	"github.com/edulearn/edulearn-platform/internal/application/settlement"
	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/certificate"
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
	learnerAcc    = shared.AccountNumber("111222333")
	instructorAcc = shared.AccountNumber("444555666")
	platformAcc   = shared.AccountNumber("777888999")

	learnerSecret  = "learner-pass"
	platformSecret = "platform-pass"
)

type env struct {
	accounts     *memory.AccountStore
	users        *memory.UserStore
	txns         *memory.TransactionStore
	courses      *memory.CourseStore
	enrollments  *memory.EnrollmentStore
	certificates *memory.CertificateStore

	engine   *settlement.Engine
	enroll   *EnrollLearnerHandler
	progress *RecordProgressHandler
	issuer   *IssueCertificateHandler
	revoke   *RevokeCertificateHandler
	create   *CreateCourseHandler

	learner    *account.User
	instructor *account.User
}

func newEnv(t *testing.T, learnerBalance int64) *env {
	t.Helper()
	ctx := context.Background()

	e := &env{
		accounts:     memory.NewAccountStore(),
		users:        memory.NewUserStore(),
		txns:         memory.NewTransactionStore(),
		courses:      memory.NewCourseStore(),
		enrollments:  memory.NewEnrollmentStore(),
		certificates: memory.NewCertificateStore(),
	}

	seed := func(number shared.AccountNumber, secret string, balance int64) {
		acc, err := account.NewAccount(number, secret, shared.NewMoneyFromInt(balance))
		require.NoError(t, err)
		require.NoError(t, e.accounts.Create(ctx, acc))
	}
	seed(learnerAcc, learnerSecret, learnerBalance)
	seed(instructorAcc, "instructor-pass", 0)
	seed(platformAcc, platformSecret, 100000)

	e.learner = account.NewLearner(shared.UserID(uuid.New().String()), "Aliya Learner", "aliya", "aliya@example.com", learnerAcc)
	require.NoError(t, e.users.Create(ctx, e.learner))
	e.instructor = account.NewInstructor(shared.UserID(uuid.New().String()), "Dana Instructor", "dana", "dana@example.com", instructorAcc)
	require.NoError(t, e.users.Create(ctx, e.instructor))

	log := logger.New(io.Discard, logger.LevelError)
	store := memory.NewSettlementStore(e.accounts, e.users, e.txns)
	e.engine = settlement.NewEngine(e.accounts, store, nil, log, platformAcc)

	flow := saga.NewEnrollmentFlowSaga(e.courses, e.users, e.enrollments, e.engine, nil, log)
	e.enroll = NewEnrollLearnerHandler(flow)
	e.issuer = NewIssueCertificateHandler(e.certificates, e.enrollments, e.users, e.courses, nil, log)
	e.progress = NewRecordProgressHandler(e.enrollments, e.courses, e.issuer, nil, log)
	e.revoke = NewRevokeCertificateHandler(e.certificates, nil, log)
	e.create = NewCreateCourseHandler(e.courses, e.users, e.engine, nil, log, false, platformSecret)
	return e
}

// addCourse seeds a course directly, bypassing the funding path.
func (e *env) addCourse(t *testing.T, price int64, durations ...int) *course.Course {
	t.Helper()
	videos := make([]course.Video, len(durations))
	for i, d := range durations {
		videos[i] = course.Video{
			ID:              shared.VideoID(uuid.New().String()),
			Title:           "Lecture",
			DurationSeconds: d,
			Position:        i,
		}
	}
	c, err := course.NewCourse(
		shared.CourseID(uuid.New().String()),
		"Go Fundamentals", "desc", "programming",
		e.instructor.ID, shared.NewMoneyFromInt(price), videos)
	require.NoError(t, err)
	require.NoError(t, e.courses.Create(context.Background(), c))
	return c
}

func (e *env) balance(t *testing.T, n shared.AccountNumber) shared.Money {
	t.Helper()
	acc, err := e.accounts.GetByNumber(context.Background(), n)
	require.NoError(t, err)
	return acc.Balance
}

func (e *env) enrollCmd(c *course.Course) EnrollLearnerCommand {
	return EnrollLearnerCommand{
		LearnerID:    e.learner.ID.String(),
		CourseID:     c.ID.String(),
		PayerAccount: learnerAcc.String(),
		Secret:       learnerSecret,
	}
}

func TestEnrollLearner_FullPurchaseFlow(t *testing.T) {
	e := newEnv(t, 100)
	ctx := context.Background()
	c := e.addCourse(t, 100, 300, 300)

	res, err := e.enroll.Handle(ctx, e.enrollCmd(c))
	require.NoError(t, err)

	assert.Equal(t, enrollment.StatusInProgress, res.Status)
	assert.Equal(t, "100", res.AmountPaid)
	assert.NotEmpty(t, res.TransactionID)

	assert.True(t, e.balance(t, learnerAcc).IsZero())
	assert.True(t, e.balance(t, instructorAcc).Equal(shared.NewMoneyFromInt(80)))
	assert.True(t, e.balance(t, platformAcc).Equal(shared.NewMoneyFromInt(100020)))

	txn, err := e.txns.GetByID(ctx, res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, ledger.KindPurchase, txn.Kind)
	assert.Equal(t, ledger.StatusCompleted, txn.Status)

	enr, err := e.enrollments.GetByLearnerAndCourse(ctx, e.learner.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, enr.Progress.Int())
	assert.Empty(t, enr.Watched)
}

func TestEnrollLearner_InsufficientFundsLeavesNoWrites(t *testing.T) {
	e := newEnv(t, 50)
	ctx := context.Background()
	c := e.addCourse(t, 100, 300)

	_, err := e.enroll.Handle(ctx, e.enrollCmd(c))
	require.Error(t, err)
	assert.True(t, shared.IsInsufficientFunds(err))

	assert.True(t, e.balance(t, learnerAcc).Equal(shared.NewMoneyFromInt(50)))
	assert.True(t, e.balance(t, instructorAcc).IsZero())

	_, err = e.enrollments.GetByLearnerAndCourse(ctx, e.learner.ID, c.ID)
	assert.True(t, shared.IsNotFound(err))

	txns, err := e.txns.ListByCourse(ctx, c.ID, shared.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestEnrollLearner_DuplicateBlockedWithoutSecondCharge(t *testing.T) {
	e := newEnv(t, 300)
	ctx := context.Background()
	c := e.addCourse(t, 100, 300)

	_, err := e.enroll.Handle(ctx, e.enrollCmd(c))
	require.NoError(t, err)

	_, err = e.enroll.Handle(ctx, e.enrollCmd(c))
	require.Error(t, err)
	assert.True(t, shared.IsAlreadyEnrolled(err))

	// Charged exactly once.
	assert.True(t, e.balance(t, learnerAcc).Equal(shared.NewMoneyFromInt(200)))
}

func TestEnrollLearner_BadSecret(t *testing.T) {
	e := newEnv(t, 300)
	ctx := context.Background()
	c := e.addCourse(t, 100, 300)

	cmd := e.enrollCmd(c)
	cmd.Secret = "wrong"
	_, err := e.enroll.Handle(ctx, cmd)
	require.Error(t, err)
	assert.True(t, shared.IsAuthentication(err))
	assert.True(t, e.balance(t, learnerAcc).Equal(shared.NewMoneyFromInt(300)))
}

func TestEnrollLearner_FreeCourseSkipsPayment(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()
	c := e.addCourse(t, 0, 300)

	cmd := e.enrollCmd(c)
	cmd.PayerAccount = ""
	cmd.Secret = ""

	res, err := e.enroll.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Empty(t, res.TransactionID)
	assert.Equal(t, "0", res.AmountPaid)
}

func TestRecordProgress_CompletionIssuesCertificate(t *testing.T) {
	e := newEnv(t, 100)
	ctx := context.Background()
	c := e.addCourse(t, 100, 600, 400)
	_, err := e.enroll.Handle(ctx, e.enrollCmd(c))
	require.NoError(t, err)

	cmd := func(v shared.VideoID, secs int) RecordProgressCommand {
		return RecordProgressCommand{
			LearnerID:      e.learner.ID.String(),
			CourseID:       c.ID.String(),
			VideoID:        string(v),
			WatchedSeconds: secs,
		}
	}

	res, err := e.progress.Handle(ctx, cmd(c.Videos[0].ID, 600))
	require.NoError(t, err)
	assert.Equal(t, 60, res.Progress)
	assert.True(t, res.VideoCompleted)
	assert.False(t, res.CourseCompleted)
	assert.Empty(t, res.CertificateSerial)

	// 95% of the second video completes it, and with it the course.
	res, err = e.progress.Handle(ctx, cmd(c.Videos[1].ID, 380))
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCompleted, res.Status)
	assert.True(t, res.CourseCompleted)
	require.NotEmpty(t, res.CertificateSerial)

	cert, err := e.certificates.GetBySerial(ctx, res.CertificateSerial)
	require.NoError(t, err)
	assert.Equal(t, "Aliya Learner", cert.LearnerName)
	assert.Equal(t, "Go Fundamentals", cert.CourseTitle)
	assert.True(t, cert.IsValid())
}

func TestRecordProgress_PlayerCompletedFlagFinishesVideo(t *testing.T) {
	e := newEnv(t, 100)
	ctx := context.Background()
	c := e.addCourse(t, 100, 100)
	_, err := e.enroll.Handle(ctx, e.enrollCmd(c))
	require.NoError(t, err)

	// 90 of 100 seconds is below the threshold, but the player reported
	// the video finished, so the course completes and certification runs.
	res, err := e.progress.Handle(ctx, RecordProgressCommand{
		LearnerID: e.learner.ID.String(), CourseID: c.ID.String(),
		VideoID: string(c.Videos[0].ID), WatchedSeconds: 90,
		ExplicitlyCompleted: true,
	})
	require.NoError(t, err)
	assert.True(t, res.VideoCompleted)
	assert.True(t, res.CourseCompleted)
	assert.Equal(t, enrollment.StatusCompleted, res.Status)
	assert.Equal(t, 90, res.Progress)
	require.NotEmpty(t, res.CertificateSerial)

	cert, err := e.certificates.GetBySerial(ctx, res.CertificateSerial)
	require.NoError(t, err)
	assert.True(t, cert.IsValid())
}

// racingEnrollmentStore commits a competing write right after the first
// read, so the caller's copy is stale by the time it writes back.
type racingEnrollmentStore struct {
	*memory.EnrollmentStore
	raced bool
}

func (s *racingEnrollmentStore) GetByLearnerAndCourse(ctx context.Context, learnerID shared.UserID, courseID shared.CourseID) (*enrollment.Enrollment, error) {
	enr, err := s.EnrollmentStore.GetByLearnerAndCourse(ctx, learnerID, courseID)
	if err != nil || s.raced {
		return enr, err
	}
	s.raced = true
	other, err := s.EnrollmentStore.GetByLearnerAndCourse(ctx, learnerID, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.EnrollmentStore.Update(ctx, other); err != nil {
		return nil, err
	}
	return enr, nil
}

func TestRecordProgress_RetriesAfterConcurrentWrite(t *testing.T) {
	e := newEnv(t, 100)
	ctx := context.Background()
	c := e.addCourse(t, 100, 100)
	_, err := e.enroll.Handle(ctx, e.enrollCmd(c))
	require.NoError(t, err)

	store := &racingEnrollmentStore{EnrollmentStore: e.enrollments}
	handler := NewRecordProgressHandler(store, e.courses, e.issuer, nil,
		logger.New(io.Discard, logger.LevelError))

	// The first attempt loses the version check and comes back
	// retryable; the reload reapplies the report and succeeds.
	res, err := handler.Handle(ctx, RecordProgressCommand{
		LearnerID: e.learner.ID.String(), CourseID: c.ID.String(),
		VideoID: string(c.Videos[0].ID), WatchedSeconds: 100,
	})
	require.NoError(t, err)
	require.True(t, store.raced)
	assert.True(t, res.CourseCompleted)
	require.NotEmpty(t, res.CertificateSerial)

	enr, err := e.enrollments.GetByLearnerAndCourse(ctx, e.learner.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCompleted, enr.Status)
	assert.Equal(t, 100, enr.Progress.Int())
}

// blindFirstLookupCertStore misses the first pair lookup, mimicking a
// reader that raced another process's insert.
type blindFirstLookupCertStore struct {
	*memory.CertificateStore
	missed bool
}

func (s *blindFirstLookupCertStore) GetByLearnerAndCourse(ctx context.Context, learnerID shared.UserID, courseID shared.CourseID) (*certificate.Certificate, error) {
	if !s.missed {
		s.missed = true
		return nil, shared.ErrCertificateNotFound
	}
	return s.CertificateStore.GetByLearnerAndCourse(ctx, learnerID, courseID)
}

func TestIssueCertificate_LosingInsertReturnsWinner(t *testing.T) {
	e := newEnv(t, 100)
	ctx := context.Background()
	c := e.addCourse(t, 100, 100)
	_, err := e.enroll.Handle(ctx, e.enrollCmd(c))
	require.NoError(t, err)

	res, err := e.progress.Handle(ctx, RecordProgressCommand{
		LearnerID: e.learner.ID.String(), CourseID: c.ID.String(),
		VideoID: string(c.Videos[0].ID), WatchedSeconds: 100,
	})
	require.NoError(t, err)
	winner := res.CertificateSerial
	require.NotEmpty(t, winner)

	// An issuer whose lookup missed the stored certificate takes the
	// insert path, loses on the duplicate key, and must hand back the
	// winner instead of an error.
	store := &blindFirstLookupCertStore{CertificateStore: e.certificates}
	issuer := NewIssueCertificateHandler(store, e.enrollments, e.users, e.courses, nil,
		logger.New(io.Discard, logger.LevelError))

	cert, err := issuer.GetOrIssue(ctx, e.learner.ID, c.ID)
	require.NoError(t, err)
	require.True(t, store.missed)
	assert.Equal(t, winner, cert.Serial)

	certs, err := e.certificates.ListByLearner(ctx, e.learner.ID, shared.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Len(t, certs, 1)
}

func TestRecordProgress_CertificationIsIdempotent(t *testing.T) {
	e := newEnv(t, 100)
	ctx := context.Background()
	c := e.addCourse(t, 100, 100)
	_, err := e.enroll.Handle(ctx, e.enrollCmd(c))
	require.NoError(t, err)

	res, err := e.progress.Handle(ctx, RecordProgressCommand{
		LearnerID: e.learner.ID.String(), CourseID: c.ID.String(),
		VideoID: string(c.Videos[0].ID), WatchedSeconds: 100,
	})
	require.NoError(t, err)
	serial := res.CertificateSerial
	require.NotEmpty(t, serial)

	// Completing again must not mint a second certificate.
	cert, err := e.issuer.GetOrIssue(ctx, e.learner.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, serial, cert.Serial)

	certs, err := e.certificates.ListByLearner(ctx, e.learner.ID, shared.NewPagination(1, 10))
	require.NoError(t, err)
	assert.Len(t, certs, 1)
}

func TestRecordProgress_CompletionIsMonotonic(t *testing.T) {
	e := newEnv(t, 100)
	ctx := context.Background()
	c := e.addCourse(t, 100, 100)
	_, err := e.enroll.Handle(ctx, e.enrollCmd(c))
	require.NoError(t, err)

	cmd := func(secs int) RecordProgressCommand {
		return RecordProgressCommand{
			LearnerID: e.learner.ID.String(), CourseID: c.ID.String(),
			VideoID: string(c.Videos[0].ID), WatchedSeconds: secs,
		}
	}

	res, err := e.progress.Handle(ctx, cmd(100))
	require.NoError(t, err)
	require.Equal(t, enrollment.StatusCompleted, res.Status)

	res, err = e.progress.Handle(ctx, cmd(5))
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusCompleted, res.Status)
	assert.False(t, res.CourseCompleted)
}

func TestRecordProgress_OutOfRangeInputsStayBounded(t *testing.T) {
	e := newEnv(t, 100)
	ctx := context.Background()
	c := e.addCourse(t, 100, 100, 100)
	_, err := e.enroll.Handle(ctx, e.enrollCmd(c))
	require.NoError(t, err)

	res, err := e.progress.Handle(ctx, RecordProgressCommand{
		LearnerID: e.learner.ID.String(), CourseID: c.ID.String(),
		VideoID: string(c.Videos[0].ID), WatchedSeconds: 1 << 30,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Progress)

	res, err = e.progress.Handle(ctx, RecordProgressCommand{
		LearnerID: e.learner.ID.String(), CourseID: c.ID.String(),
		VideoID: string(c.Videos[1].ID), WatchedSeconds: -100,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Progress)
	assert.GreaterOrEqual(t, res.Progress, 0)
	assert.LessOrEqual(t, res.Progress, 100)
}

func TestRecordProgress_RequiresEnrollment(t *testing.T) {
	e := newEnv(t, 100)
	ctx := context.Background()
	c := e.addCourse(t, 100, 100)

	_, err := e.progress.Handle(ctx, RecordProgressCommand{
		LearnerID: e.learner.ID.String(), CourseID: c.ID.String(),
		VideoID: string(c.Videos[0].ID), WatchedSeconds: 50,
	})
	require.Error(t, err)
	assert.True(t, shared.IsAccessDenied(err))
}

func TestRevokeCertificate(t *testing.T) {
	e := newEnv(t, 100)
	ctx := context.Background()
	c := e.addCourse(t, 100, 100)
	_, err := e.enroll.Handle(ctx, e.enrollCmd(c))
	require.NoError(t, err)

	res, err := e.progress.Handle(ctx, RecordProgressCommand{
		LearnerID: e.learner.ID.String(), CourseID: c.ID.String(),
		VideoID: string(c.Videos[0].ID), WatchedSeconds: 100,
	})
	require.NoError(t, err)

	rev, err := e.revoke.Handle(ctx, RevokeCertificateCommand{Serial: res.CertificateSerial, Reason: "academic integrity"})
	require.NoError(t, err)
	assert.False(t, rev.AlreadyRevoked)

	cert, err := e.certificates.GetBySerial(ctx, res.CertificateSerial)
	require.NoError(t, err)
	assert.False(t, cert.IsValid())

	// Idempotent.
	rev, err = e.revoke.Handle(ctx, RevokeCertificateCommand{Serial: res.CertificateSerial})
	require.NoError(t, err)
	assert.True(t, rev.AlreadyRevoked)
}

func TestCreateCourse_PublishesAndTracksInstructor(t *testing.T) {
	e := newEnv(t, 100)
	ctx := context.Background()

	res, err := e.create.Handle(ctx, CreateCourseCommand{
		InstructorID: e.instructor.ID.String(),
		Title:        "Distributed Systems",
		Description:  "consensus and replication",
		Category:     "programming",
		Price:        "150",
		Videos: []VideoInput{
			{Title: "Intro", DurationSeconds: 600, MediaKey: "videos/intro.mp4"},
			{Title: "Raft", DurationSeconds: 1200, MediaKey: "videos/raft.mp4"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, res.VideoIDs, 2)
	assert.Empty(t, res.FundingTransactionID)

	u, err := e.users.GetByID(ctx, e.instructor.ID)
	require.NoError(t, err)
	profile, ok := u.AsInstructor()
	require.True(t, ok)
	assert.Len(t, profile.CoursesTaught, 1)
}

func TestCreateCourse_LumpSumFunding(t *testing.T) {
	e := newEnv(t, 100)
	ctx := context.Background()
	create := NewCreateCourseHandler(e.courses, e.users, e.engine, nil,
		logger.New(io.Discard, logger.LevelError), true, platformSecret)

	res, err := create.Handle(ctx, CreateCourseCommand{
		InstructorID: e.instructor.ID.String(),
		Title:        "Databases",
		Price:        "200",
		Videos:       []VideoInput{{Title: "Intro", DurationSeconds: 300}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.FundingTransactionID)

	txn, err := e.txns.GetByID(ctx, res.FundingTransactionID)
	require.NoError(t, err)
	assert.Equal(t, ledger.KindLumpSum, txn.Kind)
	assert.True(t, txn.Amount.Equal(shared.NewMoneyFromInt(200)))

	assert.True(t, e.balance(t, instructorAcc).Equal(shared.NewMoneyFromInt(200)))
	assert.True(t, e.balance(t, platformAcc).Equal(shared.NewMoneyFromInt(99800)))

	u, err := e.users.GetByID(ctx, e.instructor.ID)
	require.NoError(t, err)
	profile, _ := u.AsInstructor()
	assert.True(t, profile.TotalEarnings.Equal(shared.NewMoneyFromInt(200)))
}

func TestConservationAcrossMixedOperations(t *testing.T) {
	e := newEnv(t, 1000)
	ctx := context.Background()
	c := e.addCourse(t, 333, 100)

	_, err := e.enroll.Handle(ctx, e.enrollCmd(c))
	require.NoError(t, err)

	total := e.balance(t, learnerAcc).
		Add(e.balance(t, instructorAcc)).
		Add(e.balance(t, platformAcc))
	assert.True(t, total.Equal(shared.NewMoneyFromInt(101000)))
}
