package domain

import "time"

// Subscription tiers.
const (
	TierFree    = "free"
	TierPro     = "pro"
	TierPremium = "premium"
)

// Unlimited marks a quota that never denies.
const Unlimited int64 = -1

// Plan is immutable reference data describing the limits of one
// subscription tier. Plans are looked up by tier, not owned by any user.
type Plan struct {
	ID                     int16     `gorm:"primaryKey;column:id" json:"id"`
	Tier                   string    `gorm:"column:tier;size:20;uniqueIndex;not null" json:"tier"`
	DisplayName            string    `gorm:"column:display_name;size:50;not null" json:"display_name"`
	LinksPerMonth          int64     `gorm:"column:links_per_month;not null;default:0" json:"links_per_month"`
	APIRequestsPerMonth    int64     `gorm:"column:api_requests_per_month;not null;default:0" json:"api_requests_per_month"`
	CustomDomains          int64     `gorm:"column:custom_domains;not null;default:0" json:"custom_domains"`
	AnalyticsRetentionDays int64     `gorm:"column:analytics_retention_days;not null;default:7" json:"analytics_retention_days"`
	CustomCodes            bool      `gorm:"column:custom_codes;not null;default:false" json:"custom_codes"`
	CreatedAt              time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM
func (Plan) TableName() string {
	return "subscription_plans"
}

// LimitFor returns the monthly ceiling for the given action, Unlimited (-1)
// when the plan does not bound it. Analytics events are retention-bounded,
// not count-bounded, so they always report Unlimited.
func (p *Plan) LimitFor(action Action) int64 {
	switch action {
	case ActionCreateLink:
		return p.LinksPerMonth
	case ActionAPIRequest:
		return p.APIRequestsPerMonth
	case ActionCustomDomain:
		return p.CustomDomains
	case ActionAnalyticsEvent:
		return Unlimited
	default:
		return 0
	}
}

// IsUnlimited reports whether the given action has no monthly ceiling.
func (p *Plan) IsUnlimited(action Action) bool {
	return p.LimitFor(action) == Unlimited
}

// Capabilities resolves the plan's feature flags into a capability set,
// checked via set membership instead of ad-hoc string comparisons.
func (p *Plan) Capabilities() CapabilitySet {
	caps := CapabilitySet{}
	if p.CustomCodes {
		caps.Add(CapCustomCode)
	}
	if p.CustomDomains != 0 {
		caps.Add(CapCustomDomain)
	}
	return caps
}
