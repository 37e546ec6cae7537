package domain

import "time"

// Link maps a short code to its destination URL. The short_code column
// carries the unique constraint that makes concurrent creation safe: the
// insert either lands or fails with a duplicate-key error, there is no
// read-then-write window.
type Link struct {
	ID           string     `gorm:"primaryKey;column:id;size:36" json:"id"`
	OwnerID      int64      `gorm:"column:owner_id;not null;index" json:"owner_id"`
	OriginalURL  string     `gorm:"column:original_url;type:text;not null" json:"original_url"`
	ShortCode    string     `gorm:"column:short_code;size:32;uniqueIndex;not null" json:"short_code"`
	CustomDomain *string    `gorm:"column:custom_domain;size:253" json:"custom_domain,omitempty"`
	Title        *string    `gorm:"column:title;size:255" json:"title,omitempty"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	ExpiresAt    *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	ClickCount   int64      `gorm:"column:click_count;not null;default:0" json:"click_count"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM
func (Link) TableName() string {
	return "links"
}

// IsExpired reports whether the link is past its expiry at the given
// instant. Callers resolving a request must pass a single "now" snapshot so
// the expiry decision and any side effects agree.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
