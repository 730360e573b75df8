package services

import (
	"fmt"
	"strings"

	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
)

// ResolveMergeDirection orders two distinct journey ids so the lexicographically
// smaller one survives. Every redirect edge therefore points to a strictly
// smaller id, which keeps the redirect graph acyclic.
func ResolveMergeDirection(a string, b string) (winner string, loser string, err error) {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return "", "", fmt.Errorf("%w: journey ids are required", domainerrors.ErrInvalidMerge)
	}
	if a == b {
		return "", "", fmt.Errorf("%w: cannot merge %q into itself", domainerrors.ErrInvalidMerge, a)
	}
	if a < b {
		return a, b, nil
	}
	return b, a, nil
}

// ValidateMerge rejects edges that do not point from a larger to a smaller id.
func ValidateMerge(winner string, loser string) error {
	if strings.TrimSpace(winner) == "" || strings.TrimSpace(loser) == "" {
		return fmt.Errorf("%w: journey ids are required", domainerrors.ErrInvalidMerge)
	}
	if winner >= loser {
		return fmt.Errorf("%w: winner %q must sort before loser %q", domainerrors.ErrInvalidMerge, winner, loser)
	}
	return nil
}
