package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/service"
)

// exhausted returns a book whose copies are all out on loan.
func (e *env) exhausted(t *testing.T, copies int) model.Book {
	t.Helper()
	b := e.book(t, "Parable of the Sower", copies, model.AccessNormal)
	for i := 0; i < copies; i++ {
		ir := e.request(t, uint64(1000+i), b.ID)
		_, err := e.svc.IssueRequests.Approve(ctx, ir.ID, 99, nil)
		require.NoError(t, err)
	}
	require.Equal(t, 0, e.available(t, b.ID))
	return b
}

func Test_Waitlist_ShouldQueueInArrivalOrder(t *testing.T) {
	e := newEnv(t, nil)
	b := e.exhausted(t, 2)

	posA, err := e.svc.Waitlist.Join(ctx, b.ID, 1)
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	posB, err := e.svc.Waitlist.Join(ctx, b.ID, 2)
	require.NoError(t, err)
	_, err = e.svc.Waitlist.Join(ctx, b.ID, 1)

	assert.Equal(t, 1, posA)
	assert.Equal(t, 2, posB)
	requireCode(t, err, service.ErrAlreadyWaitlisted)

	pos, err := e.svc.Waitlist.Position(ctx, b.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
}

func Test_Waitlist_WhenCopiesAvailable_ShouldConflict(t *testing.T) {
	e := newEnv(t, nil)
	b := e.book(t, "Fledgling", 1, model.AccessNormal)

	_, err := e.svc.Waitlist.Join(ctx, b.ID, 1)

	requireCode(t, err, service.ErrStateConflict)
}

func Test_Waitlist_WhenNormalStudentJoinsPremiumBook_ShouldBeDenied(t *testing.T) {
	e := newEnv(t, nil)
	b := e.book(t, "Kindred", 1, model.AccessPremium)
	e.premium(t, 1000)
	ir := e.request(t, 1000, b.ID)
	_, err := e.svc.IssueRequests.Approve(ctx, ir.ID, 99, nil)
	require.NoError(t, err)

	_, err = e.svc.Waitlist.Join(ctx, b.ID, 1)
	requireCode(t, err, service.ErrAccessDenied)

	e.premium(t, 2)
	pos, err := e.svc.Waitlist.Join(ctx, b.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
}

func Test_Waitlist_WhenBookUnknown_ShouldBeNotFound(t *testing.T) {
	e := newEnv(t, nil)

	_, err := e.svc.Waitlist.Join(ctx, 77, 1)

	requireCode(t, err, service.ErrNotFound)
}

func Test_Waitlist_WhenLeaving_ShouldMoveOthersUp(t *testing.T) {
	e := newEnv(t, nil)
	b := e.exhausted(t, 1)
	for _, student := range []uint64{1, 2, 3} {
		_, err := e.svc.Waitlist.Join(ctx, b.ID, student)
		require.NoError(t, err)
	}

	require.NoError(t, e.svc.Waitlist.Leave(ctx, b.ID, 1))

	pos, err := e.svc.Waitlist.Position(ctx, b.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
	_, err = e.svc.Waitlist.Position(ctx, b.ID, 1)
	requireCode(t, err, service.ErrNotFound)
	requireCode(t, e.svc.Waitlist.Leave(ctx, b.ID, 1), service.ErrNotFound)
}
