package usage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrQuotaExceeded is returned when a user has used up the sessions of their plan.
var ErrQuotaExceeded = errors.New("monthly session quota exceeded")

// Unlimited disables the quota for a plan
const Unlimited = -1

// DefaultPlanQuotas is the monthly session quota per plan
func DefaultPlanQuotas() map[string]int {
	return map[string]int{
		"free":       5,
		"basic":      30,
		"pro":        200,
		"enterprise": Unlimited,
	}
}

// Gate enforces the monthly session quota of each plan.
type Gate struct {
	store  CounterStore
	quotas map[string]int
	now    func() time.Time
}

// NewGate creates a gate. Plans missing from quotas get the free quota.
func NewGate(store CounterStore, quotas map[string]int) *Gate {
	if quotas == nil {
		quotas = DefaultPlanQuotas()
	}
	return &Gate{store: store, quotas: quotas, now: time.Now}
}

// Allow returns ErrQuotaExceeded if the user may not create another session this month.
func (g *Gate) Allow(ctx context.Context, userID uuid.UUID, plan string) error {
	quota := g.quota(plan)
	if quota == Unlimited {
		return nil
	}
	used, err := g.store.Get(ctx, g.key(userID))
	if err != nil {
		return fmt.Errorf("failed to read session usage: %w", err)
	}
	if used >= int64(quota) {
		return ErrQuotaExceeded
	}
	return nil
}

// Record counts one created session against the current month.
func (g *Gate) Record(ctx context.Context, userID uuid.UUID) error {
	now := g.now().UTC()
	if _, err := g.store.Incr(ctx, g.key(userID), untilNextMonth(now)); err != nil {
		return fmt.Errorf("failed to record session usage: %w", err)
	}
	return nil
}

// Used returns the sessions created by the user this month.
func (g *Gate) Used(ctx context.Context, userID uuid.UUID) (int64, error) {
	return g.store.Get(ctx, g.key(userID))
}

// Usage is a user's session consumption for the current month. Limit and
// Remaining are Unlimited when the plan has no quota.
type Usage struct {
	Plan      string    `json:"plan"`
	Used      int64     `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int64     `json:"remaining"`
	ResetsAt  time.Time `json:"resets_at"`
}

// Usage reports the monthly consumption of userID under plan.
func (g *Gate) Usage(ctx context.Context, userID uuid.UUID, plan string) (*Usage, error) {
	used, err := g.Used(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read session usage: %w", err)
	}
	now := g.now().UTC()
	u := &Usage{
		Plan:      plan,
		Used:      used,
		Limit:     g.quota(plan),
		Remaining: Unlimited,
		ResetsAt:  time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0),
	}
	if u.Limit != Unlimited {
		u.Remaining = max(int64(u.Limit)-used, 0)
	}
	return u, nil
}

func (g *Gate) quota(plan string) int {
	if q, ok := g.quotas[strings.ToLower(strings.TrimSpace(plan))]; ok {
		return q
	}
	if q, ok := g.quotas["free"]; ok {
		return q
	}
	return 0
}

func (g *Gate) key(userID uuid.UUID) string {
	return "sessions:" + userID.String() + ":" + g.now().UTC().Format("2006-01")
}

// untilNextMonth keeps the counter one day past the end of the month
func untilNextMonth(now time.Time) time.Duration {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, 1).Sub(now)
}
