package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "journeystitch/contexts/journey-analytics/journey-stitching/application"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/commands"
	"journeystitch/contexts/journey-analytics/journey-stitching/application/queries"
	"journeystitch/contexts/journey-analytics/journey-stitching/domain/entities"
	httptransport "journeystitch/contexts/journey-analytics/journey-stitching/transport/http"
)

type Handler struct {
	PublishEvent     commands.PublishEventUseCase
	StitchEvent      commands.StitchEventUseCase
	GetJourney       queries.GetJourneyUseCase
	LookupKey        queries.LookupCorrelationKeyUseCase
	GetArchivedEvent queries.GetArchivedEventUseCase
	Logger           *slog.Logger
}

// PublishEventHandler godoc
// @Summary Ingest a raw event
// @Description Validates the event and publishes it to the raw events topic for asynchronous stitching.
// @Tags journey-stitching
// @Accept json
// @Produce json
// @Param event body object true "Raw event: eventId, activity, correlationKeys, timestamp"
// @Success 202 {object} httptransport.PublishEventResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /v1/events [post]
func (h Handler) PublishEventHandler(ctx context.Context, body []byte) (httptransport.PublishEventResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("publish event request received",
		"event", "http_publish_event_received",
		"module", "journey-analytics/journey-stitching",
		"layer", "transport",
	)

	result, err := h.PublishEvent.Execute(ctx, body)
	if err != nil {
		return httptransport.PublishEventResponse{}, err
	}
	return httptransport.PublishEventResponse{
		EventID:      result.EventID,
		Topic:        result.Topic,
		PartitionKey: result.PartitionKey,
		Status:       "accepted",
	}, nil
}

// StitchEventHandler godoc
// @Summary Stitch a raw event synchronously
// @Description Runs the stitching pipeline inline and returns the canonical journey.
// @Tags journey-stitching
// @Accept json
// @Produce json
// @Param event body object true "Raw event: eventId, activity, correlationKeys, timestamp"
// @Success 200 {object} httptransport.StitchEventResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/stitch [post]
func (h Handler) StitchEventHandler(ctx context.Context, body []byte) (httptransport.StitchEventResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	event, err := entities.ParseEvent(body)
	if err != nil {
		logger.Warn("stitch event request rejected",
			"event", "http_stitch_event_invalid",
			"module", "journey-analytics/journey-stitching",
			"layer", "transport",
			"error", err.Error(),
		)
		return httptransport.StitchEventResponse{}, err
	}

	result, err := h.StitchEvent.Execute(ctx, event)
	if err != nil {
		return httptransport.StitchEventResponse{}, err
	}

	merges := make([]httptransport.MergeDTO, 0, len(result.Merges))
	for _, merge := range result.Merges {
		merges = append(merges, httptransport.MergeDTO{
			WinnerJourneyID: merge.Winner,
			LoserJourneyID:  merge.Loser,
		})
	}
	return httptransport.StitchEventResponse{
		EventID:            event.EventID,
		JourneyID:          result.JourneyID,
		CandidateJourneyID: result.CandidateJourneyID,
		Minted:             result.Minted,
		Merges:             merges,
		Partition:          result.Partition,
		Journey:            toJourneyDTO(result.Projection),
	}, nil
}

// GetJourneyHandler godoc
// @Summary Get a journey projection
// @Description Resolves redirects and returns the canonical journey projection.
// @Tags journey-stitching
// @Produce json
// @Param journey_id path string true "Journey id, canonical or merged-away"
// @Param follow_redirects query bool false "Resolve to the canonical journey (default true)"
// @Success 200 {object} httptransport.GetJourneyResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/journeys/{journey_id} [get]
func (h Handler) GetJourneyHandler(ctx context.Context, journeyID string, followRedirects bool) (httptransport.GetJourneyResponse, error) {
	var (
		result queries.GetJourneyResult
		err    error
	)
	if followRedirects {
		result, err = h.GetJourney.Execute(ctx, journeyID)
	} else {
		result, err = h.GetJourney.ExecuteStored(ctx, journeyID)
	}
	if err != nil {
		return httptransport.GetJourneyResponse{}, err
	}
	return httptransport.GetJourneyResponse{
		RequestedJourneyID: result.RequestedJourneyID,
		Redirected:         result.RequestedJourneyID != result.Journey.JourneyID,
		Item:               toJourneyDTO(result.Journey),
	}, nil
}

// LookupCorrelationKeyHandler godoc
// @Summary Look up a correlation key
// @Description Returns the journey that owns the key and its canonical journey.
// @Tags journey-stitching
// @Produce json
// @Param ck path string true "Correlation key"
// @Success 200 {object} httptransport.CorrelationKeyResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/correlation-keys/{ck} [get]
func (h Handler) LookupCorrelationKeyHandler(ctx context.Context, key string) (httptransport.CorrelationKeyResponse, error) {
	result, err := h.LookupKey.Execute(ctx, key)
	if err != nil {
		return httptransport.CorrelationKeyResponse{}, err
	}
	return httptransport.CorrelationKeyResponse{
		CK:                 result.Mapping.CK,
		JourneyID:          result.Mapping.JourneyID,
		CanonicalJourneyID: result.CanonicalJourneyID,
		UpdatedAt:          formatTime(result.Mapping.UpdatedAt),
	}, nil
}

// GetArchivedEventHandler godoc
// @Summary Get an archived raw event
// @Description Reads one raw event from the daily partition it was processed in.
// @Tags journey-stitching
// @Produce json
// @Param day path string true "UTC processing day, yyyy.mm.dd"
// @Param event_id path string true "Event id"
// @Success 200 {object} httptransport.ArchivedEventResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/events/{day}/{event_id} [get]
func (h Handler) GetArchivedEventHandler(ctx context.Context, day string, eventID string) (httptransport.ArchivedEventResponse, error) {
	event, err := h.GetArchivedEvent.Execute(ctx, day, eventID)
	if err != nil {
		return httptransport.ArchivedEventResponse{}, err
	}
	return httptransport.ArchivedEventResponse{
		EventID:         event.EventID,
		Activity:        event.Activity,
		CorrelationKeys: event.CorrelationKeys,
		Timestamp:       formatTime(event.Timestamp),
		JourneyID:       event.JourneyID,
		Partition:       event.Partition,
		IngestedAt:      formatTime(event.IngestedAt),
		Raw:             event.Payload,
	}, nil
}

func toJourneyDTO(projection entities.JourneyProjection) httptransport.JourneyDTO {
	timeline := make([]httptransport.TimelineEntryDTO, 0, len(projection.Timeline))
	for _, entry := range projection.Timeline {
		timeline = append(timeline, httptransport.TimelineEntryDTO{
			EventID:   entry.EventID,
			Activity:  entry.Activity,
			Timestamp: formatTime(entry.Timestamp),
		})
	}
	return httptransport.JourneyDTO{
		JourneyID:       projection.JourneyID,
		FirstSeenAt:     formatTime(projection.FirstSeenAt),
		LastSeenAt:      formatTime(projection.LastSeenAt),
		Status:          string(projection.Status),
		CorrelationKeys: append([]string{}, projection.CorrelationKeys...),
		EventIDs:        append([]string{}, projection.EventIDs...),
		Counters: httptransport.JourneyCountersDTO{
			Events:             projection.Counters.Events,
			DistinctActivities: projection.Counters.DistinctActivities,
		},
		Timeline: timeline,
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}
