package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/queue"
	"github.com/iliyamo/library-circulation/internal/service"
	"github.com/iliyamo/library-circulation/internal/service/mocks"
)

func Test_Fine(t *testing.T) {
	due := day0
	cases := []struct {
		name     string
		returned time.Time
		mrp      float64
		want     float64
	}{
		{"on time", due, 250, 0},
		{"early", due.Add(-time.Hour), 250, 0},
		{"one hour late counts as a day", due.Add(time.Hour), 250, 10},
		{"three days late", due.Add(days(3)), 250, 30},
		{"capped at the price", due.Add(days(90)), 250, 250},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, service.Fine(due, tc.returned, tc.mrp, 10))
		})
	}
}

func Test_LoansReturn_ShouldReleaseCopyAndPromoteWaitlistHead(t *testing.T) {
	// Arrange
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	var types []string
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev queue.Event) error {
			types = append(types, ev.Type)
			return nil
		}).AnyTimes()

	e := newEnv(t, pub)
	b := e.book(t, "Kindred", 1, model.AccessNormal)
	ir := e.request(t, 1, b.ID)
	approved, err := e.svc.IssueRequests.Approve(ctx, ir.ID, 99, nil)
	require.NoError(t, err)
	_, err = e.svc.Waitlist.Join(ctx, b.ID, 2)
	require.NoError(t, err)
	_, err = e.svc.Waitlist.Join(ctx, b.ID, 3)
	require.NoError(t, err)
	e.clock.Advance(days(16))

	// Act
	loan, err := e.svc.Loans.Return(ctx, *approved.IssuedRecordID)

	// Assert
	require.NoError(t, err)
	assert.False(t, loan.Open())
	assert.Equal(t, 20.0, loan.Fine)
	assert.Equal(t, 1, e.available(t, b.ID))

	_, err = e.svc.Waitlist.Position(ctx, b.ID, 2)
	requireCode(t, err, service.ErrNotFound)
	pos, err := e.svc.Waitlist.Position(ctx, b.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	assert.Equal(t, []string{queue.TypeRequestApproved, queue.TypeLoanReturned, queue.TypeWaitlistPromoted}, types)
}

func Test_LoansReturn_WhenReturnedTwice_ShouldConflict(t *testing.T) {
	e := newEnv(t, nil)
	b := e.book(t, "Kindred", 2, model.AccessNormal)
	ir := e.request(t, 1, b.ID)
	approved, err := e.svc.IssueRequests.Approve(ctx, ir.ID, 99, nil)
	require.NoError(t, err)
	_, err = e.svc.Loans.Return(ctx, *approved.IssuedRecordID)
	require.NoError(t, err)

	_, err = e.svc.Loans.Return(ctx, *approved.IssuedRecordID)

	requireCode(t, err, service.ErrStateConflict)
	assert.Equal(t, 2, e.available(t, b.ID))
	_, err = e.svc.Loans.Return(ctx, 555)
	requireCode(t, err, service.ErrNotFound)
}

func Test_LoansReturn_WhenShelfWasRestocked_ShouldKeepCountsInBounds(t *testing.T) {
	e := newEnv(t, nil)
	b := e.book(t, "Kindred", 2, model.AccessNormal)
	ir := e.request(t, 1, b.ID)
	approved, err := e.svc.IssueRequests.Approve(ctx, ir.ID, 99, nil)
	require.NoError(t, err)
	total := 2
	_, err = e.svc.Inventory.Update(ctx, b.ID, service.BookPatch{TotalCopies: &total})
	require.NoError(t, err)

	_, err = e.svc.Loans.Return(ctx, *approved.IssuedRecordID)

	require.NoError(t, err)
	assert.Equal(t, 2, e.available(t, b.ID))
}

func Test_LoansList_ShouldScopeToStudent(t *testing.T) {
	e := newEnv(t, nil)
	kindred := e.book(t, "Kindred", 3, model.AccessNormal)
	dawn := e.book(t, "Dawn", 1, model.AccessNormal)
	for _, pair := range [][2]uint64{{1, kindred.ID}, {1, dawn.ID}, {2, kindred.ID}} {
		ir := e.request(t, pair[0], pair[1])
		_, err := e.svc.IssueRequests.Approve(ctx, ir.ID, 99, nil)
		require.NoError(t, err)
	}

	assert.Len(t, mustLoans(t, e, 1), 2)
	assert.Len(t, mustLoans(t, e, 2), 1)
}

func mustLoans(t *testing.T, e *env, studentID uint64) []model.Loan {
	t.Helper()
	loans, err := e.svc.Loans.List(ctx, model.LoanFilter{StudentID: studentID, OpenOnly: true})
	require.NoError(t, err)
	return loans
}
