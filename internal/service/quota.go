package service

import (
	"context"
	"time"

	"github.com/iliyamo/library-circulation/internal/store"
)

// MonthlyRequestLimit caps issue requests per calendar month for NORMAL
// members.
const MonthlyRequestLimit = 3

// QuotaView reports a user's allowance for the current UTC month. Limit
// and Remaining are meaningless when Unlimited is set.
type QuotaView struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}

// Exhausted reports whether no further request may be filed this month.
func (v QuotaView) Exhausted() bool { return !v.Unlimited && v.Remaining <= 0 }

// Quota recounts requests on every call; there is no stored counter.
type Quota struct {
	deps
	members *Memberships
}

func (s *Quota) Remaining(ctx context.Context, userID uint64) (QuotaView, error) {
	return s.remaining(ctx, s.st, userID)
}

func (s *Quota) remaining(ctx context.Context, q store.Queries, userID uint64) (QuotaView, error) {
	from, to := monthWindow(s.now())
	used, err := q.CountRequestsBetween(ctx, userID, from, to)
	if err != nil {
		return QuotaView{}, err
	}
	premium, err := s.members.isPremium(ctx, q, userID)
	if err != nil {
		return QuotaView{}, err
	}
	if premium {
		return QuotaView{Used: used, Unlimited: true}, nil
	}
	return QuotaView{Used: used, Limit: MonthlyRequestLimit, Remaining: max(0, MonthlyRequestLimit-used)}, nil
}

// monthWindow returns [first instant of now's UTC month, first instant of
// the next month).
func monthWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
