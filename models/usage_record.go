// Package models contains domain entities and business models for the number store
package models

import (
	"time"
)

// CallRecord is one call detail record (CDR) as reported by the telephony
// provider. Usage records are read-only from the store's point of view and
// are not persisted locally.
type CallRecord struct {
	RecordID    string    `json:"record_id"`
	PhoneNumber string    `json:"phone_number"`
	PeerNumber  string    `json:"peer_number"`
	Direction   string    `json:"direction"` // inbound or outbound
	StartedAt   time.Time `json:"started_at"`
	Duration    uint      `json:"duration"` // seconds
	Cost        uint64    `json:"cost"`     // integer cents
}

// SmsRecord is one SMS detail record as reported by the telephony provider
type SmsRecord struct {
	RecordID    string    `json:"record_id"`
	PhoneNumber string    `json:"phone_number"`
	PeerNumber  string    `json:"peer_number"`
	Direction   string    `json:"direction"`
	SentAt      time.Time `json:"sent_at"`
	Segments    uint      `json:"segments"`
	Cost        uint64    `json:"cost"` // integer cents
}

// DateRange bounds a usage query. A nil range, or a nil bound, means
// unbounded on that side ("all time").
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Contains reports whether t falls inside the range. A nil receiver matches
// everything.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}
