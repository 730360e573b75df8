package services

import (
	"fmt"
	"strings"
	"time"

	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
)

const partitionDayLayout = "2006.01.02"

// EventPartition names the daily archive collection for the UTC day of at.
func EventPartition(base string, at time.Time) string {
	return base + "-" + at.UTC().Format(partitionDayLayout)
}

// PartitionForDay accepts yyyy.mm.dd or yyyy-mm-dd and returns the collection name.
func PartitionForDay(base string, day string) (string, error) {
	day = strings.TrimSpace(day)
	for _, layout := range []string{partitionDayLayout, time.DateOnly} {
		if parsed, err := time.Parse(layout, day); err == nil {
			return EventPartition(base, parsed), nil
		}
	}
	return "", fmt.Errorf("%w: day %q must be yyyy.mm.dd", domainerrors.ErrInvalidQuery, day)
}
