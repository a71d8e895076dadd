package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidDateRange = errors.New("date_from is after date_to")
	ErrInvalidDevice    = errors.New("invalid device type")
)

// EventFilter is the immutable predicate shared by every reporting query in
// a single report request. Summary cards, charts, the visitor log table and
// the CSV export all receive the same value, so they can never disagree on
// which events are in scope.
//
// All fields are optional; the zero value matches every event.
type EventFilter struct {
	// From and To bound visited_at inclusively. To is expected to be
	// normalized to the end of its day, see Normalize.
	From *time.Time
	To   *time.Time

	// Device is an exact match against device_type.
	Device string

	// Search is a case-insensitive substring match against ip_address,
	// page_url or referrer.
	Search string

	// PageURL is a case-insensitive substring match against page_url alone.
	PageURL string
}

// Normalize returns a copy with From snapped to the start of its day and To
// snapped to 23:59:59 of its day, preserving each bound's location.
func (f EventFilter) Normalize() EventFilter {
	if f.From != nil {
		t := *f.From
		from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		f.From = &from
	}
	if f.To != nil {
		t := *f.To
		to := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
		f.To = &to
	}
	return f
}

// Validate rejects malformed filters instead of silently clamping them.
func (f EventFilter) Validate() error {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return ErrInvalidDateRange
	}
	if f.Device != "" && !IsValidDevice(f.Device) {
		return ErrInvalidDevice
	}
	return nil
}

// Matches reports whether the event satisfies every predicate of the filter.
// This is the reference semantics; SQL-backed stores must agree with it.
func (f EventFilter) Matches(e *VisitorEvent) bool {
	if f.From != nil && e.VisitedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.VisitedAt.After(*f.To) {
		return false
	}
	if f.Device != "" && e.DeviceType != f.Device {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.IPAddress), q) &&
			!strings.Contains(strings.ToLower(e.PageURL), q) &&
			!strings.Contains(strings.ToLower(e.Referrer), q) {
			return false
		}
	}
	if f.PageURL != "" && !strings.Contains(strings.ToLower(e.PageURL), strings.ToLower(f.PageURL)) {
		return false
	}
	return true
}
