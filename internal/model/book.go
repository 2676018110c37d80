package model

import "time"

// AccessLevel gates which membership tier may request a book.
type AccessLevel string

const (
    AccessNormal  AccessLevel = "NORMAL"
    AccessPremium AccessLevel = "PREMIUM"
)

// Valid reports whether the level is one of the known values.
func (a AccessLevel) Valid() bool {
    return a == AccessNormal || a == AccessPremium
}

// Book represents a catalogue title as stored in the `books` table.
// Copies are tracked as two counters rather than individual rows: the
// number owned by the library and the number currently on the shelf.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – title shown in the catalogue.
//  Author          – author line.
//  ISBN            – ISBN-10 or ISBN-13, free form.
//  Genre           – genre used for exact-match filtering.
//  Publisher       – publisher name (optional).
//  MRP             – list price; used as the ceiling for late fines.
//  AccessLevel     – NORMAL or PREMIUM.
//  TotalCopies     – copies owned, at least one.
//  AvailableCopies – copies on the shelf, 0 ≤ AvailableCopies ≤ TotalCopies.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type Book struct {
    ID              uint64      `db:"id" json:"id"`                             // books.id
    Title           string      `db:"title" json:"title"`                       // books.title
    Author          string      `db:"author" json:"author"`                     // books.author
    ISBN            string      `db:"isbn" json:"isbn"`                         // books.isbn
    Genre           string      `db:"genre" json:"genre"`                       // books.genre
    Publisher       string      `db:"publisher" json:"publisher"`               // books.publisher
    MRP             float64     `db:"mrp" json:"mrp"`                           // books.mrp
    AccessLevel     AccessLevel `db:"access_level" json:"accessLevel"`          // books.access_level
    TotalCopies     int         `db:"total_copies" json:"totalCopies"`          // books.total_copies
    AvailableCopies int         `db:"available_copies" json:"availableCopies"`  // books.available_copies
    CreatedAt       time.Time   `db:"created_at" json:"createdAt"`              // books.created_at
    UpdatedAt       time.Time   `db:"updated_at" json:"updatedAt"`              // books.updated_at
}

// OnLoan returns the number of copies currently issued.
func (b Book) OnLoan() int { return b.TotalCopies - b.AvailableCopies }

// BookFilter narrows a catalogue search. Zero values disable a filter.
type BookFilter struct {
    Title         string      // substring of title, author or isbn (case-insensitive)
    Genre         string      // exact genre
    AccessLevel   AccessLevel // exact access level
    AvailableOnly bool        // only books with at least one copy on the shelf
}

// BookStats partitions the catalogue by access level.
type BookStats struct {
    Total     int `db:"total" json:"total"`
    Normal    int `db:"normal" json:"normal"`
    Premium   int `db:"premium" json:"premium"`
    Copies    int `db:"copies" json:"copies"`
    Available int `db:"available" json:"available"`
}
