package service

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// BulkResult only counts outcomes; individual failures are logged.
type BulkResult struct {
	Fulfilled int `json:"fulfilled"`
	Rejected  int `json:"rejected"`
}

// BulkCoordinator fans Approve out over many requests.
type BulkCoordinator struct {
	deps
	requests *IssueRequests
	limit    int
}

// BulkApprove approves every id in its own transaction with at most limit
// approvals in flight. A failure never stops the others, and every id is
// counted once, so a repeated id counts as rejected.
func (s *BulkCoordinator) BulkApprove(ctx context.Context, approverID uint64, ids []uint64) BulkResult {
	var fulfilled, rejected atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.limit)

	for _, id := range ids {
		g.Go(func() error {
			if _, err := s.requests.Approve(ctx, id, approverID, nil); err != nil {
				rejected.Add(1)
				s.log.Info("bulk approve: request not approved", "request_id", id, "code", Code(err), "err", err)
				return nil
			}
			fulfilled.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return BulkResult{Fulfilled: int(fulfilled.Load()), Rejected: int(rejected.Load())}
}
