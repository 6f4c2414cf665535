package observability

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"traceroot/internal/core/domain/observability"
	appErrors "traceroot/pkg/errors"
	"traceroot/pkg/pagination"
)

type traceService struct {
	traceRepo observability.TraceRepository
	spanRepo  observability.SpanRepository
	logger    *logrus.Logger
}

// NewTraceService creates the trace read API over the columnar store.
func NewTraceService(traceRepo observability.TraceRepository, spanRepo observability.SpanRepository, logger *logrus.Logger) observability.TraceService {
	return &traceService{traceRepo: traceRepo, spanRepo: spanRepo, logger: logger}
}

func (s *traceService) ListTraces(ctx context.Context, filter observability.TraceFilter) ([]*observability.TraceListItem, pagination.Meta, error) {
	if filter.ProjectID == "" {
		return nil, pagination.Meta{}, appErrors.NewValidationError("invalid filter", "project id is required")
	}
	filter.Params = filter.Params.Normalize()

	items, err := s.traceRepo.List(ctx, filter)
	if err != nil {
		s.logger.WithError(err).WithField("project_id", filter.ProjectID).Error("Failed to list traces")
		return nil, pagination.Meta{}, appErrors.NewInternalError("failed to list traces", err)
	}
	total, err := s.traceRepo.Count(ctx, filter)
	if err != nil {
		s.logger.WithError(err).WithField("project_id", filter.ProjectID).Error("Failed to count traces")
		return nil, pagination.Meta{}, appErrors.NewInternalError("failed to list traces", err)
	}

	return items, pagination.NewMeta(filter.Params, total), nil
}

func (s *traceService) GetTrace(ctx context.Context, projectID, traceID string) (*observability.TraceWithSpans, error) {
	traceID = strings.ToLower(traceID)
	if !validTraceID(traceID) {
		return nil, appErrors.NewValidationError("invalid trace id", "trace id must be 32 hex characters")
	}

	trace, err := s.traceRepo.Get(ctx, projectID, traceID)
	if err != nil {
		if errors.Is(err, observability.ErrTraceNotFound) {
			return nil, appErrors.NewNotFoundError("trace")
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"project_id": projectID,
			"trace_id":   traceID,
		}).Error("Failed to get trace")
		return nil, appErrors.NewInternalError("failed to get trace", err)
	}

	spans, err := s.spanRepo.ListByTrace(ctx, projectID, traceID)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"project_id": projectID,
			"trace_id":   traceID,
		}).Error("Failed to list trace spans")
		return nil, appErrors.NewInternalError("failed to get trace", err)
	}

	return &observability.TraceWithSpans{Trace: *trace, Spans: spans}, nil
}

func validTraceID(id string) bool {
	if len(id) != 32 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
