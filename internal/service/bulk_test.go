package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/service"
)

func Test_BulkApprove_WhenOneAlreadyApproved_ShouldCountItRejected(t *testing.T) {
	e := newEnv(t, nil)
	b := e.book(t, "Kindred", 5, model.AccessNormal)
	id1 := e.request(t, 1, b.ID)
	id2 := e.request(t, 2, b.ID)
	id3 := e.request(t, 3, b.ID)
	_, err := e.svc.IssueRequests.Approve(ctx, id2.ID, 99, nil)
	require.NoError(t, err)

	res := e.svc.Bulk.BulkApprove(ctx, 100, []uint64{id1.ID, id2.ID, id3.ID})

	assert.Equal(t, service.BulkResult{Fulfilled: 2, Rejected: 1}, res)
	for _, id := range []uint64{id1.ID, id3.ID} {
		got, err := e.svc.IssueRequests.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.RequestApproved, got.Status)
		assert.Equal(t, uint64(100), *got.ProcessedByID)
	}
	assert.Equal(t, 2, e.available(t, b.ID))
}

func Test_BulkApprove_WhenBookRunsDry_ShouldApproveTheRest(t *testing.T) {
	e := newEnv(t, nil)
	plenty := e.book(t, "Dawn", 4, model.AccessNormal)
	scarce := e.book(t, "Imago", 1, model.AccessNormal)
	var ids []uint64
	for student := uint64(1); student <= 4; student++ {
		ids = append(ids, e.request(t, student, plenty.ID).ID)
	}
	early := e.request(t, 5, scarce.ID)
	late := e.request(t, 6, scarce.ID)
	_, err := e.svc.IssueRequests.Approve(ctx, early.ID, 99, nil)
	require.NoError(t, err)
	ids = append(ids, late.ID)

	res := e.svc.Bulk.BulkApprove(ctx, 100, ids)

	assert.Equal(t, service.BulkResult{Fulfilled: 4, Rejected: 1}, res)
	assert.Equal(t, 0, e.available(t, plenty.ID))
	assert.Equal(t, 0, e.available(t, scarce.ID))
	got, err := e.svc.IssueRequests.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, got.Status)
}

func Test_BulkApprove_WhenIDRepeatedOrUnknown_ShouldCountEachAsRejected(t *testing.T) {
	e := newEnv(t, nil)
	b := e.book(t, "Dawn", 2, model.AccessNormal)
	ir := e.request(t, 1, b.ID)
	ids := []uint64{ir.ID, ir.ID, 9999}

	res := e.svc.Bulk.BulkApprove(ctx, 100, ids)

	assert.Equal(t, service.BulkResult{Fulfilled: 1, Rejected: 2}, res)
	assert.Equal(t, len(ids), res.Fulfilled+res.Rejected)
	assert.Equal(t, 1, e.available(t, b.ID))
}

func Test_BulkApprove_WhenEmpty_ShouldReturnZeroCounts(t *testing.T) {
	e := newEnv(t, nil)

	assert.Equal(t, service.BulkResult{}, e.svc.Bulk.BulkApprove(ctx, 100, nil))
}
