package queries

import (
	"context"
	"fmt"
	"strings"

	"journeystitch/contexts/journey-analytics/journey-stitching/application/stitching"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/services"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

type GetArchivedEventUseCase struct {
	Archive             ports.EventArchive
	EventCollectionBase string
}

// Execute reads one raw event from the partition of the given UTC day.
func (u GetArchivedEventUseCase) Execute(ctx context.Context, day string, eventID string) (entities.ArchivedEvent, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return entities.ArchivedEvent{}, fmt.Errorf("%w: event id is required", domainerrors.ErrInvalidQuery)
	}
	base := u.EventCollectionBase
	if base == "" {
		base = stitching.DefaultEventCollectionBase
	}
	partition, err := services.PartitionForDay(base, day)
	if err != nil {
		return entities.ArchivedEvent{}, err
	}
	return u.Archive.Get(ctx, partition, eventID)
}
