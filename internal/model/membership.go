package model

import "time"

// MembershipType is a user's subscription tier.
type MembershipType string

const (
    MembershipNormal  MembershipType = "NORMAL"
    MembershipPremium MembershipType = "PREMIUM"
)

// SubscriptionPackage is a purchasable premium window.
type SubscriptionPackage string

const (
    PackageOneMonth  SubscriptionPackage = "ONE_MONTH"
    PackageSixMonths SubscriptionPackage = "SIX_MONTHS"
    PackageOneYear   SubscriptionPackage = "ONE_YEAR"
)

var packageDays = map[SubscriptionPackage]int{
    PackageOneMonth:  30,
    PackageSixMonths: 180,
    PackageOneYear:   365,
}

// ParsePackage maps a client value onto a known package.
func ParsePackage(s string) (SubscriptionPackage, bool) {
    p := SubscriptionPackage(s)
    _, ok := packageDays[p]
    return p, ok
}

// Duration returns the length of the package window, or zero for unknown
// packages.
func (p SubscriptionPackage) Duration() time.Duration {
    return time.Duration(packageDays[p]) * 24 * time.Hour
}

// Membership represents a row in the `memberships` table. Users without a
// row are NORMAL members. Premium status is never stored as a flag; it is
// derived from the subscription end on every read.
//
// Fields:
//  UserID            – owning user (primary key).
//  Type              – NORMAL or PREMIUM.
//  Package           – last purchased package, empty for NORMAL.
//  SubscriptionStart – start of the current window (nullable).
//  SubscriptionEnd   – end of the current window (nullable).
//  UpdatedAt         – timestamp of last update.
type Membership struct {
    UserID            uint64              `db:"user_id" json:"userId"`                                  // memberships.user_id
    Type              MembershipType      `db:"type" json:"type"`                                       // memberships.type
    Package           SubscriptionPackage `db:"package" json:"subscriptionPackage,omitempty"`           // memberships.package
    SubscriptionStart *time.Time          `db:"subscription_start" json:"subscriptionStart,omitempty"` // memberships.subscription_start
    SubscriptionEnd   *time.Time          `db:"subscription_end" json:"subscriptionEnd,omitempty"`     // memberships.subscription_end
    UpdatedAt         time.Time           `db:"updated_at" json:"updatedAt"`                            // memberships.updated_at
}

// NormalMembership is the implicit membership of a user without a row.
func NormalMembership(userID uint64) Membership {
    return Membership{UserID: userID, Type: MembershipNormal}
}

// Active reports whether the subscription window still covers now.
func (m Membership) Active(now time.Time) bool {
    return m.SubscriptionEnd != nil && !now.After(*m.SubscriptionEnd)
}

// IsPremium reports whether the user holds a live premium subscription.
func (m Membership) IsPremium(now time.Time) bool {
    return m.Type == MembershipPremium && m.Active(now)
}
