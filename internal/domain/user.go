package domain

import "time"

// Subscription statuses. The billing webhook source flips these; this
// backend only reads them.
const (
	SubscriptionActive   = "active"
	SubscriptionLapsed   = "lapsed"
	SubscriptionCanceled = "canceled"
)

// User carries the subscription state the quota checks need. Registration,
// sessions and password handling live in the external auth service.
type User struct {
	ID                 int64     `gorm:"primaryKey;column:id" json:"id"`
	Email              *string   `gorm:"column:email;uniqueIndex" json:"email,omitempty"`
	Tier               string    `gorm:"column:tier;size:20;not null;default:'free'" json:"tier"`
	SubscriptionStatus string    `gorm:"column:subscription_status;size:20;not null;default:'active'" json:"subscription_status"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// PaidTierLapsed reports whether the user sits on a paid tier whose
// subscription is no longer active. Quota-limited actions are denied in that
// state regardless of counters.
func (u *User) PaidTierLapsed() bool {
	return u.Tier != TierFree && u.SubscriptionStatus != SubscriptionActive
}
