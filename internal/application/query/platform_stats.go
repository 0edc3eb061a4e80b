package query

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edulearn/edulearn-platform/internal/domain/account"
	"github.com/edulearn/edulearn-platform/internal/domain/course"
	"github.com/edulearn/edulearn-platform/internal/domain/ledger"
	"github.com/edulearn/edulearn-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PLATFORM STATS QUERY
// The operator dashboard: headcounts, catalog size, and the platform's
// purchase-share revenue over the last twelve calendar months.
// ══════════════════════════════════════════════════════════════════════════════

// GetPlatformStatsQuery requests the operator dashboard numbers.
type GetPlatformStatsQuery struct{}

// MonthlyRevenueView is one month's platform income.
type MonthlyRevenueView struct {
	Month   string `json:"month"` // YYYY-MM
	Revenue string `json:"revenue"`
}

// PlatformStatsView is the dashboard payload.
type PlatformStatsView struct {
	LearnerCount    int                  `json:"learner_count"`
	InstructorCount int                  `json:"instructor_count"`
	CourseCount     int                  `json:"course_count"`
	MonthlyRevenue  []MonthlyRevenueView `json:"monthly_revenue"`
}

// StatsCache holds the rendered dashboard payload briefly. The stats
// query fans out over several tables, so even a short TTL absorbs
// dashboard refresh storms.
type StatsCache interface {
	// Get returns the cached payload, or (nil, nil) on a miss.
	Get(ctx context.Context) ([]byte, error)

	// Set stores the payload.
	Set(ctx context.Context, payload []byte) error
}

// GetPlatformStatsHandler handles the query.
type GetPlatformStatsHandler struct {
	users        account.UserRepository
	courses      course.Repository
	transactions ledger.Repository
	cache        StatsCache

	// now is swappable for tests.
	now func() time.Time
}

// NewGetPlatformStatsHandler creates the handler. cache may be nil.
func NewGetPlatformStatsHandler(users account.UserRepository, courses course.Repository, transactions ledger.Repository, cache StatsCache) *GetPlatformStatsHandler {
	return &GetPlatformStatsHandler{
		users:        users,
		courses:      courses,
		transactions: transactions,
		cache:        cache,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the query.
func (h *GetPlatformStatsHandler) Handle(ctx context.Context, _ GetPlatformStatsQuery) (*PlatformStatsView, error) {
	if h.cache != nil {
		if raw, err := h.cache.Get(ctx); err == nil && raw != nil {
			var view PlatformStatsView
			if err := json.Unmarshal(raw, &view); err == nil {
				return &view, nil
			}
		}
	}

	learners, err := h.users.CountByRole(ctx, account.RoleLearner)
	if err != nil {
		return nil, err
	}
	instructors, err := h.users.CountByRole(ctx, account.RoleInstructor)
	if err != nil {
		return nil, err
	}
	courseCount, err := h.courses.Count(ctx)
	if err != nil {
		return nil, err
	}

	months, err := h.transactions.SumPlatformShare(ctx, shared.LastNMonths(12, h.now()))
	if err != nil {
		return nil, err
	}

	view := &PlatformStatsView{
		LearnerCount:    learners,
		InstructorCount: instructors,
		CourseCount:     courseCount,
		MonthlyRevenue:  make([]MonthlyRevenueView, 0, len(months)),
	}
	for _, m := range months {
		view.MonthlyRevenue = append(view.MonthlyRevenue, MonthlyRevenueView{
			Month:   m.Month.Format("2006-01"),
			Revenue: m.Revenue.String(),
		})
	}

	if h.cache != nil {
		if raw, err := json.Marshal(view); err == nil {
			_ = h.cache.Set(ctx, raw)
		}
	}
	return view, nil
}
