package domain

import "time"

// Device types stored on every visitor event. Classification happens once
// at ingestion time; reporting never re-derives it from the user agent.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
)

// VisitorEvent is one recorded page view. Rows are append-only: the
// reporting layer never updates or deletes them.
type VisitorEvent struct {
	ID         int64     `gorm:"primaryKey;column:id" json:"id"`
	IPAddress  string    `gorm:"column:ip_address;size:45;index" json:"ip_address"`
	UserAgent  string    `gorm:"column:user_agent;type:text" json:"user_agent"`
	PageURL    string    `gorm:"column:page_url;size:500;index" json:"page_url"`
	Referrer   string    `gorm:"column:referrer;size:500" json:"referrer"`
	DeviceType string    `gorm:"column:device_type;size:10;not null;default:desktop" json:"device_type"`
	Browser    *string   `gorm:"column:browser;size:50" json:"browser,omitempty"`
	OS         *string   `gorm:"column:os;size:50" json:"os,omitempty"`
	SessionID  string    `gorm:"column:session_id;size:64;index" json:"session_id"`
	VisitedAt  time.Time `gorm:"column:visited_at;not null;index" json:"visited_at"`
}

// TableName returns the table name for GORM.
func (VisitorEvent) TableName() string {
	return "visitor_events"
}

// BrowserName returns the stored browser family, or an empty string when the
// user agent could not be resolved.
func (e *VisitorEvent) BrowserName() string {
	if e.Browser != nil {
		return *e.Browser
	}
	return ""
}

// OSName returns the stored operating system family, or an empty string when
// the user agent could not be resolved.
func (e *VisitorEvent) OSName() string {
	if e.OS != nil {
		return *e.OS
	}
	return ""
}

// IsValidDevice reports whether s is one of the enumerated device types.
func IsValidDevice(s string) bool {
	return s == DeviceDesktop || s == DeviceMobile || s == DeviceTablet
}
