package domain

import "time"

// AnalyticsEvent is one click on a short link. Append-only: events are never
// updated, only inserted and eventually pruned by the retention sweep. The
// link reference is weak - deleting a link does not cascade here.
type AnalyticsEvent struct {
	ID         string    `gorm:"primaryKey;column:id;size:36" json:"id"`
	LinkID     string    `gorm:"column:link_id;size:36;not null;index" json:"link_id"`
	Timestamp  time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
	IPAddress  *string   `gorm:"column:ip_address;size:45" json:"ip_address,omitempty"`
	UserAgent  *string   `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	Referer    *string   `gorm:"column:referer;size:500" json:"referer,omitempty"`
	Country    *string   `gorm:"column:country;size:2" json:"country,omitempty"` // ISO country code, edge-enriched
	City       *string   `gorm:"column:city;size:100" json:"city,omitempty"`
	DeviceType *string   `gorm:"column:device_type;size:10" json:"device_type,omitempty"` // 'desktop', 'mobile', 'tablet', 'bot'
	Browser    *string   `gorm:"column:browser;size:50" json:"browser,omitempty"`
	OS         *string   `gorm:"column:os;size:50" json:"os,omitempty"`
}

// TableName returns the table name for GORM
func (AnalyticsEvent) TableName() string {
	return "analytics_events"
}
