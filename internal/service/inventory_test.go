package service_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/service"
)

func Test_InventoryCreate_WhenInputInvalid_ShouldFailValidation(t *testing.T) {
	e := newEnv(t, nil)
	valid := service.BookInput{Title: "Kindred", Author: "Octavia E. Butler", MRP: price(10), TotalCopies: 1}

	cases := map[string]func(in *service.BookInput){
		"empty title":         func(in *service.BookInput) { in.Title = "  " },
		"empty author":        func(in *service.BookInput) { in.Author = "" },
		"zero copies":         func(in *service.BookInput) { in.TotalCopies = 0 },
		"missing mrp":         func(in *service.BookInput) { in.MRP = nil },
		"negative mrp":        func(in *service.BookInput) { in.MRP = price(-1) },
		"unknown accessLevel": func(in *service.BookInput) { in.AccessLevel = "GOLD" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)

			_, err := e.svc.Inventory.Create(ctx, in)

			requireCode(t, err, service.ErrValidation)
		})
	}
}

func Test_InventoryCreate_ShouldStockEveryCopy(t *testing.T) {
	e := newEnv(t, nil)

	b, err := e.svc.Inventory.Create(ctx, service.BookInput{
		Title: "Kindred", Author: "Octavia E. Butler", MRP: price(0), TotalCopies: 4,
	})

	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, 4, b.AvailableCopies)
	assert.Equal(t, model.AccessNormal, b.AccessLevel)
}

func Test_InventoryDelete_WhenCopyOnLoan_ShouldConflict(t *testing.T) {
	e := newEnv(t, nil)
	b := e.book(t, "Dawn", 2, model.AccessNormal)
	ir := e.request(t, 1, b.ID)
	_, err := e.svc.IssueRequests.Approve(ctx, ir.ID, 99, nil)
	require.NoError(t, err)

	err = e.svc.Inventory.Delete(ctx, b.ID)

	requireCode(t, err, service.ErrStateConflict)
	assert.Equal(t, 1, e.available(t, b.ID))
}

func Test_InventoryDelete_WhenIdle_ShouldRemoveBook(t *testing.T) {
	e := newEnv(t, nil)
	b := e.book(t, "Dawn", 2, model.AccessNormal)

	require.NoError(t, e.svc.Inventory.Delete(ctx, b.ID))

	_, err := e.svc.Inventory.Get(ctx, b.ID)
	requireCode(t, err, service.ErrNotFound)
	requireCode(t, e.svc.Inventory.Delete(ctx, b.ID), service.ErrNotFound)
}

func Test_InventoryUpdate_WhenTotalChanges_ShouldRestockFully(t *testing.T) {
	e := newEnv(t, nil)
	b := e.book(t, "Wild Seed", 3, model.AccessNormal)
	ir := e.request(t, 1, b.ID)
	_, err := e.svc.IssueRequests.Approve(ctx, ir.ID, 99, nil)
	require.NoError(t, err)
	total := 5

	got, err := e.svc.Inventory.Update(ctx, b.ID, service.BookPatch{TotalCopies: &total})

	require.NoError(t, err)
	assert.Equal(t, 5, got.TotalCopies)
	assert.Equal(t, 5, got.AvailableCopies)
}

func Test_InventoryUpdate_WhenPreservingLoans_ShouldSubtractOpenLoans(t *testing.T) {
	e := newEnv(t, nil)
	b := e.book(t, "Wild Seed", 3, model.AccessNormal)
	for student := uint64(1); student <= 2; student++ {
		ir := e.request(t, student, b.ID)
		_, err := e.svc.IssueRequests.Approve(ctx, ir.ID, 99, nil)
		require.NoError(t, err)
	}

	total := 4
	got, err := e.svc.Inventory.Update(ctx, b.ID, service.BookPatch{TotalCopies: &total, PreserveLoans: true})
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableCopies)

	total = 1
	_, err = e.svc.Inventory.Update(ctx, b.ID, service.BookPatch{TotalCopies: &total, PreserveLoans: true})
	requireCode(t, err, service.ErrValidation)
}

func Test_InventoryUpdate_WhenPreservingLoansDuringApprovals_ShouldKeepShelfConsistent(t *testing.T) {
	e := newEnv(t, nil)
	b := e.book(t, "Mind of My Mind", 4, model.AccessNormal)
	reqs := make([]model.IssueRequest, 3)
	for i := range reqs {
		reqs[i] = e.request(t, uint64(i+1), b.ID)
	}

	var wg sync.WaitGroup
	for _, ir := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.IssueRequests.Approve(ctx, ir.ID, 99, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		total := 6
		_, err := e.svc.Inventory.Update(ctx, b.ID, service.BookPatch{TotalCopies: &total, PreserveLoans: true})
		assert.NoError(t, err)
	}()
	wg.Wait()

	got, err := e.svc.Inventory.Get(ctx, b.ID)
	require.NoError(t, err)
	open, err := e.store.CountOpenLoans(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, open)
	assert.Equal(t, 6, got.TotalCopies)
	assert.Equal(t, got.TotalCopies-open, got.AvailableCopies)
}

func Test_InventoryUpdate_WhenOnlyTitleChanges_ShouldKeepCounts(t *testing.T) {
	e := newEnv(t, nil)
	b := e.book(t, "Wild Seed", 3, model.AccessNormal)
	ir := e.request(t, 1, b.ID)
	_, err := e.svc.IssueRequests.Approve(ctx, ir.ID, 99, nil)
	require.NoError(t, err)
	title := "Wild Seed (Patternist)"

	got, err := e.svc.Inventory.Update(ctx, b.ID, service.BookPatch{Title: &title})

	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, 2, got.AvailableCopies)
}

func Test_InventoryUpdate_WhenMissing_ShouldBeNotFound(t *testing.T) {
	e := newEnv(t, nil)
	title := "x"

	_, err := e.svc.Inventory.Update(ctx, 404, service.BookPatch{Title: &title})

	requireCode(t, err, service.ErrNotFound)
}

func Test_InventorySearchAndStats(t *testing.T) {
	e := newEnv(t, nil)
	e.book(t, "Parable of the Sower", 2, model.AccessNormal)
	e.book(t, "Parable of the Talents", 1, model.AccessPremium)
	e.book(t, "Fledgling", 1, model.AccessNormal)

	got, err := e.svc.Inventory.Search(ctx, model.BookFilter{Title: "PARABLE"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = e.svc.Inventory.Search(ctx, model.BookFilter{AccessLevel: model.AccessPremium})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Parable of the Talents", got[0].Title)

	_, err = e.svc.Inventory.Search(ctx, model.BookFilter{AccessLevel: "GOLD"})
	requireCode(t, err, service.ErrValidation)

	stats, err := e.svc.Inventory.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.BookStats{Total: 3, Normal: 2, Premium: 1, Copies: 4, Available: 4}, stats)
}
