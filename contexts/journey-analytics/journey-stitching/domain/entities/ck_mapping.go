package entities

import "time"

// CkMapping binds one correlation key to the journey that first claimed it.
type CkMapping struct {
	CK        string
	JourneyID string
	UpdatedAt time.Time
}

// Claim applies the sticky ownership rule for target.
// The owner is set only when absent; UpdatedAt is refreshed on every attempt.
func (m CkMapping) Claim(target string, now time.Time) (CkMapping, bool) {
	if m.JourneyID == "" {
		m.JourneyID = target
	}
	m.UpdatedAt = now.UTC()
	return m, m.JourneyID == target
}
