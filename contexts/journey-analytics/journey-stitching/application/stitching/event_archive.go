package stitching

import (
	"context"
	"fmt"

	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	domainerrors "journeystitch/contexts/journey-analytics/journey-stitching/domain/errors"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
)

// EventArchive writes raw events into the partition named on each event.
type EventArchive struct {
	Store ports.DocumentStore
}

// Archive overwrites by event id, so redelivery is harmless.
func (a EventArchive) Archive(ctx context.Context, event entities.ArchivedEvent) error {
	if event.Partition == "" {
		return fmt.Errorf("archive event %s: partition is required", event.EventID)
	}
	doc, err := encodeArchivedEvent(event)
	if err != nil {
		return err
	}
	if err := a.Store.Put(ctx, event.Partition, event.EventID, doc); err != nil {
		return fmt.Errorf("archive event %s into %s: %w", event.EventID, event.Partition, err)
	}
	return nil
}

func (a EventArchive) Get(ctx context.Context, partition string, eventID string) (entities.ArchivedEvent, error) {
	raw, found, err := a.Store.Get(ctx, partition, eventID)
	if err != nil {
		return entities.ArchivedEvent{}, fmt.Errorf("read archived event %s: %w", eventID, err)
	}
	if !found {
		return entities.ArchivedEvent{}, domainerrors.ErrEventNotFound
	}
	return decodeArchivedEvent(partition, raw)
}
