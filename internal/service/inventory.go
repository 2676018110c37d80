package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/library-circulation/internal/model"
	"github.com/iliyamo/library-circulation/internal/store"
)

// BookInput is the payload for creating a book.
type BookInput struct {
	Title       string
	Author      string
	ISBN        string
	Genre       string
	Publisher   string
	MRP         *float64
	AccessLevel model.AccessLevel
	TotalCopies int
}

// BookPatch carries the fields an update may change; nil means unchanged.
// When TotalCopies is set, AvailableCopies is restocked: to the new total
// by default, or to the new total minus open loans with PreserveLoans.
type BookPatch struct {
	Title         *string
	Author        *string
	ISBN          *string
	Genre         *string
	Publisher     *string
	MRP           *float64
	AccessLevel   *model.AccessLevel
	TotalCopies   *int
	PreserveLoans bool
}

// Inventory owns books and their copy counters.
type Inventory struct {
	deps
}

func validateBook(b model.Book) error {
	switch {
	case b.Title == "":
		return makeErr(ErrValidation, "title is required")
	case b.Author == "":
		return makeErr(ErrValidation, "author is required")
	case b.TotalCopies <= 0:
		return makeErr(ErrValidation, "totalCopies must be at least 1")
	case b.MRP < 0:
		return makeErr(ErrValidation, "mrp must not be negative")
	case !b.AccessLevel.Valid():
		return makeErr(ErrValidation, "accessLevel must be NORMAL or PREMIUM")
	}
	return nil
}

func (s *Inventory) Create(ctx context.Context, in BookInput) (model.Book, error) {
	if in.MRP == nil {
		return model.Book{}, makeErr(ErrValidation, "mrp is required")
	}
	b := model.Book{
		Title:           strings.TrimSpace(in.Title),
		Author:          strings.TrimSpace(in.Author),
		ISBN:            strings.TrimSpace(in.ISBN),
		Genre:           strings.TrimSpace(in.Genre),
		Publisher:       strings.TrimSpace(in.Publisher),
		MRP:             *in.MRP,
		AccessLevel:     in.AccessLevel,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
	}
	if b.AccessLevel == "" {
		b.AccessLevel = model.AccessNormal
	}
	if err := validateBook(b); err != nil {
		return model.Book{}, err
	}
	err := s.withTx(ctx, func(tx store.Tx) error {
		return tx.CreateBook(ctx, &b)
	})
	if err != nil {
		return model.Book{}, fmt.Errorf("create book: %w", err)
	}
	return b, nil
}

func (s *Inventory) Update(ctx context.Context, id uint64, p BookPatch) (model.Book, error) {
	var b model.Book
	err := s.withTx(ctx, func(tx store.Tx) error {
		var err error
		b, err = tx.LockBook(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return makeErr(ErrNotFound, "book %d not found", id)
		}
		if err != nil {
			return err
		}
		applyPatch(&b, p)
		if err := validateBook(b); err != nil {
			return err
		}
		if p.TotalCopies != nil {
			b.AvailableCopies = b.TotalCopies
			if p.PreserveLoans {
				open, err := tx.CountOpenLoans(ctx, id)
				if err != nil {
					return err
				}
				if b.TotalCopies < open {
					return makeErr(ErrValidation, "totalCopies %d is below the %d copies on loan", b.TotalCopies, open)
				}
				b.AvailableCopies = b.TotalCopies - open
			}
		}
		return tx.UpdateBook(ctx, &b)
	})
	return b, err
}

func applyPatch(b *model.Book, p BookPatch) {
	if p.Title != nil {
		b.Title = strings.TrimSpace(*p.Title)
	}
	if p.Author != nil {
		b.Author = strings.TrimSpace(*p.Author)
	}
	if p.ISBN != nil {
		b.ISBN = strings.TrimSpace(*p.ISBN)
	}
	if p.Genre != nil {
		b.Genre = strings.TrimSpace(*p.Genre)
	}
	if p.Publisher != nil {
		b.Publisher = strings.TrimSpace(*p.Publisher)
	}
	if p.MRP != nil {
		b.MRP = *p.MRP
	}
	if p.AccessLevel != nil {
		b.AccessLevel = *p.AccessLevel
	}
	if p.TotalCopies != nil {
		b.TotalCopies = *p.TotalCopies
	}
}

// Delete removes a book whose copies are all on the shelf.
func (s *Inventory) Delete(ctx context.Context, id uint64) error {
	return s.withTx(ctx, func(tx store.Tx) error {
		err := tx.DeleteIdleBook(ctx, id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return makeErr(ErrNotFound, "book %d not found", id)
		case errors.Is(err, store.ErrConflict):
			return makeErr(ErrStateConflict, "book %d is currently borrowed", id)
		}
		return err
	})
}

func (s *Inventory) Get(ctx context.Context, id uint64) (model.Book, error) {
	b, err := s.st.GetBook(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return b, makeErr(ErrNotFound, "book %d not found", id)
	}
	return b, err
}

func (s *Inventory) Search(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	if f.AccessLevel != "" && !f.AccessLevel.Valid() {
		return nil, makeErr(ErrValidation, "accessLevel must be NORMAL or PREMIUM")
	}
	return s.st.SearchBooks(ctx, f)
}

func (s *Inventory) Stats(ctx context.Context) (model.BookStats, error) {
	return s.st.BookStats(ctx)
}

// ReserveCopy takes one copy off the shelf inside tx.
func (s *Inventory) ReserveCopy(ctx context.Context, tx store.Tx, bookID uint64) error {
	err := tx.ReserveCopy(ctx, bookID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return makeErr(ErrNotFound, "book %d not found", bookID)
	case errors.Is(err, store.ErrNoCopies):
		return makeErr(ErrInsufficientCopies, "no copies of book %d are available", bookID)
	}
	return err
}

// ReleaseCopy puts one copy back on the shelf inside tx.
func (s *Inventory) ReleaseCopy(ctx context.Context, tx store.Tx, bookID uint64) error {
	err := tx.ReleaseCopy(ctx, bookID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return makeErr(ErrNotFound, "book %d not found", bookID)
	case errors.Is(err, store.ErrConflict):
		return makeErr(ErrStateConflict, "every copy of book %d is already on the shelf", bookID)
	}
	return err
}
