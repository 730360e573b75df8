package services

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// DeterministicJourneyID hashes the sorted correlation keys and the event id.
// Redelivering the same event mints the same id.
func DeterministicJourneyID(correlationKeys []string, eventID string) string {
	keys := append([]string(nil), correlationKeys...)
	sort.Strings(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, "|") + "|" + eventID))
	return hex.EncodeToString(sum[:])
}
