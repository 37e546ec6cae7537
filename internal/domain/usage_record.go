package domain

import "time"

// Action identifies a quota-limited action counted per user per month.
type Action string

const (
	ActionCreateLink     Action = "create_link"
	ActionAPIRequest     Action = "api_request"
	ActionCustomDomain   Action = "custom_domain"
	ActionAnalyticsEvent Action = "analytics_event"
)

// UsageRecord holds per-user counters for one calendar month. Exactly one
// record exists per (user_id, month); it is created lazily on first access
// in that month, so counters reset implicitly at month boundaries.
type UsageRecord struct {
	ID                int64     `gorm:"primaryKey;column:id" json:"id"`
	UserID            int64     `gorm:"column:user_id;not null;uniqueIndex:idx_usage_user_month" json:"user_id"`
	Month             string    `gorm:"column:month;size:7;not null;uniqueIndex:idx_usage_user_month" json:"month"`
	LinksCreated      int64     `gorm:"column:links_created;not null;default:0" json:"links_created"`
	APIRequests       int64     `gorm:"column:api_requests;not null;default:0" json:"api_requests"`
	CustomDomainsUsed int64     `gorm:"column:custom_domains_used;not null;default:0" json:"custom_domains_used"`
	AnalyticsEvents   int64     `gorm:"column:analytics_events;not null;default:0" json:"analytics_events"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM
func (UsageRecord) TableName() string {
	return "usage_tracking"
}

// MonthKey formats an instant as the YYYY-MM key usage records are stored
// under. Always UTC so the month boundary does not depend on server locale.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Counter returns the current value of the counter backing the given action.
func (u *UsageRecord) Counter(action Action) int64 {
	switch action {
	case ActionCreateLink:
		return u.LinksCreated
	case ActionAPIRequest:
		return u.APIRequests
	case ActionCustomDomain:
		return u.CustomDomainsUsed
	case ActionAnalyticsEvent:
		return u.AnalyticsEvents
	default:
		return 0
	}
}
