package services

import (
	"fmt"

	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
)

const DefaultMaxRedirectHops = 64

// NextHop returns the redirect target of id, or found=false at a terminal id.
type NextHop func(id string) (target string, found bool, err error)

// WalkRedirects follows redirect edges from start to a fixed point.
// It returns the terminal id and the number of hops taken. Revisiting an id
// yields ErrRedirectCycle; exceeding maxHops yields ErrRedirectChainTooLong.
func WalkRedirects(start string, maxHops int, next NextHop) (string, int, error) {
	if maxHops <= 0 {
		maxHops = DefaultMaxRedirectHops
	}

	current := start
	visited := map[string]struct{}{current: {}}
	for hops := 0; ; hops++ {
		target, found, err := next(current)
		if err != nil {
			return "", hops, err
		}
		if !found || target == "" {
			return current, hops, nil
		}
		if _, seen := visited[target]; seen {
			return "", hops, fmt.Errorf("%w: %s -> %s revisits %s", domainerrors.ErrRedirectCycle, start, current, target)
		}
		if hops+1 > maxHops {
			return "", hops, fmt.Errorf("%w: started at %s, limit %d", domainerrors.ErrRedirectChainTooLong, start, maxHops)
		}
		visited[target] = struct{}{}
		current = target
	}
}
