package model

import "time"

// WaitlistEntry is a student queued for a book with no free copies, as
// stored in the `waitlist_entries` table. A student appears at most once
// per book; the queue is ordered by JoinedAt with ID breaking ties.
type WaitlistEntry struct {
    ID        uint64    `db:"id" json:"id"`                // waitlist_entries.id
    BookID    uint64    `db:"book_id" json:"bookId"`       // waitlist_entries.book_id
    StudentID uint64    `db:"student_id" json:"studentId"` // waitlist_entries.student_id
    JoinedAt  time.Time `db:"joined_at" json:"joinedAt"`   // waitlist_entries.joined_at
}

// Before orders entries first-in first-out.
func (w WaitlistEntry) Before(o WaitlistEntry) bool {
    if w.JoinedAt.Equal(o.JoinedAt) {
        return w.ID < o.ID
    }
    return w.JoinedAt.Before(o.JoinedAt)
}
