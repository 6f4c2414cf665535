package observability

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"traceroot/internal/core/domain/observability"
	"traceroot/internal/transport/http/middleware"
	"traceroot/pkg/pagination"
	"traceroot/pkg/response"
)

// TraceHandler serves the trace read API over the columnar store.
type TraceHandler struct {
	traces observability.TraceService
}

// NewTraceHandler creates the trace read handlers.
func NewTraceHandler(traces observability.TraceService) *TraceHandler {
	return &TraceHandler{traces: traces}
}

type listTracesQuery struct {
	pagination.Params
	Name string `form:"name"`
}

// ListTraces handles GET /projects/:projectId/traces.
// @Summary List traces with query-time aggregation
// @Tags Traces
// @Produce json
// @Param page query int false "Zero-based page"
// @Param limit query int false "Page size, max 100"
// @Param name query string false "Case-insensitive name substring"
// @Success 200 {object} map[string]interface{} "data and meta"
// @Failure 403 "No membership in the owning organization"
// @Router /projects/{projectId}/traces [get]
func (h *TraceHandler) ListTraces(c *gin.Context) {
	p, ok := middleware.CurrentProject(c)
	if !ok {
		response.NotFound(c, "project")
		return
	}

	var q listTracesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, "invalid query parameters", err.Error())
		return
	}

	filter := observability.TraceFilter{
		ProjectID: p.ID.String(),
		Name:      q.Name,
		Params:    q.Params.Normalize(),
	}
	items, meta, err := h.traces.ListTraces(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The listing shape is pinned by the SDK contract: a page may be empty
	// but data is never null.
	if items == nil {
		items = []*observability.TraceListItem{}
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "meta": meta})
}

// GetTrace handles GET /projects/:projectId/traces/:traceId.
// @Summary Fetch one trace with its spans
// @Tags Traces
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 "Unknown trace"
// @Router /projects/{projectId}/traces/{traceId} [get]
func (h *TraceHandler) GetTrace(c *gin.Context) {
	p, ok := middleware.CurrentProject(c)
	if !ok {
		response.NotFound(c, "project")
		return
	}

	trace, err := h.traces.GetTrace(c.Request.Context(), p.ID.String(), c.Param("traceId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if trace.Spans == nil {
		trace.Spans = []*observability.Span{}
	}
	response.Success(c, trace)
}
