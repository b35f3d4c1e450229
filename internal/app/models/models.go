package models

import "strings"

// Status is the lifecycle state of an admission request
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// ParseStatus maps a client supplied literal to a Status, ignoring case and
// surrounding whitespace.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, true
	case StatusAccepted:
		return StatusAccepted, true
	case StatusRejected:
		return StatusRejected, true
	}
	return "", false
}

// CanTransitionTo reports whether a request in status s may move to next.
// Writing the current status again is always allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusAccepted || next == StatusRejected
	case StatusAccepted:
		return next == StatusRejected
	}
	return false
}

// Affinity is the magical affinity declared by an applicant
type Affinity string

const (
	AffinityDarkness Affinity = "Darkness"
	AffinityLight    Affinity = "Light"
	AffinityFire     Affinity = "Fire"
	AffinityWater    Affinity = "Water"
	AffinityWind     Affinity = "Wind"
	AffinityEarth    Affinity = "Earth"
)
