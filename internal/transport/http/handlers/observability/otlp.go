// Package observability holds the SDK ingestion handler and the trace read
// API handlers.
package observability

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"traceroot/internal/core/domain/observability"
	"traceroot/internal/metrics"
	"traceroot/internal/transport/http/middleware"
	"traceroot/pkg/response"
)

// OTLPHandler handles OTLP/HTTP trace export requests from SDKs.
type OTLPHandler struct {
	ingest           observability.IngestService
	maxBodyBytes     int64
	maxInflatedBytes int64
	logger           *logrus.Logger
}

// NewOTLPHandler creates the ingestion handler. maxBodyBytes bounds the raw
// request body; maxInflatedBytes bounds gzip output so a small bomb cannot
// exhaust memory.
func NewOTLPHandler(ingest observability.IngestService, maxBodyBytes, maxInflatedBytes int64, logger *logrus.Logger) *OTLPHandler {
	return &OTLPHandler{
		ingest:           ingest,
		maxBodyBytes:     maxBodyBytes,
		maxInflatedBytes: maxInflatedBytes,
		logger:           logger,
	}
}

// HandleTraces handles POST /public/traces.
// @Summary OTLP trace ingestion endpoint
// @Description Accepts OTLP ExportTraceServiceRequest as protobuf, optionally gzip-encoded
// @Tags SDK
// @Accept application/x-protobuf
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]string "status and fileKey"
// @Failure 400 "Malformed body or encoding"
// @Failure 401 "Missing or invalid API key"
// @Failure 500 "Storage failure"
// @Router /public/traces [post]
func (h *OTLPHandler) HandleTraces(c *gin.Context) {
	projectID, ok := middleware.SDKProjectID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.IngestRequests.WithLabelValues("too_large").Inc()
			response.PayloadTooLarge(c, "request body exceeds the ingestion limit")
			return
		}
		metrics.IngestRequests.WithLabelValues("bad_request").Inc()
		response.BadRequest(c, "invalid request", "failed to read request body")
		return
	}
	if len(body) == 0 {
		metrics.IngestRequests.WithLabelValues("bad_request").Inc()
		response.BadRequest(c, "invalid request", "request body is empty")
		return
	}
	rawSize := len(body)

	if strings.Contains(c.GetHeader("Content-Encoding"), "gzip") {
		body, err = h.inflate(body)
		if err != nil {
			metrics.IngestRequests.WithLabelValues("bad_request").Inc()
			response.BadRequest(c, "invalid encoding", "failed to decompress gzip body")
			return
		}
		if len(body) == 0 {
			metrics.IngestRequests.WithLabelValues("bad_request").Inc()
			response.BadRequest(c, "invalid request", "gzip body decompressed to nothing")
			return
		}
	}

	var req coltracepb.ExportTraceServiceRequest
	if err := proto.Unmarshal(body, &req); err != nil {
		h.logger.WithError(err).WithField("project_id", projectID.String()).Warn("Rejected undecodable OTLP payload")
		metrics.IngestRequests.WithLabelValues("bad_request").Inc()
		response.ValidationError(c, "invalid OTLP protobuf", "body is not an ExportTraceServiceRequest")
		return
	}

	// The stored blob is the canonical camelCase OTLP-JSON rendering; the
	// worker never re-touches protobuf.
	blob, err := protojson.Marshal(&req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to render OTLP payload as JSON")
		response.InternalServerError(c, "failed to process trace data")
		return
	}

	fileKey, err := h.ingest.StoreAndEnqueue(c.Request.Context(), projectID.String(), blob)
	if err != nil {
		metrics.IngestRequests.WithLabelValues("storage_error").Inc()
		response.Error(c, err)
		return
	}

	metrics.IngestRequests.WithLabelValues("ok").Inc()
	metrics.IngestBytes.Add(float64(rawSize))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "fileKey": fileKey})
}

// inflate decompresses a gzip body, refusing output beyond the configured
// cap.
func (h *OTLPHandler) inflate(body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	inflated, err := io.ReadAll(io.LimitReader(zr, h.maxInflatedBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(inflated)) > h.maxInflatedBytes {
		return nil, errors.New("decompressed body exceeds the inflation limit")
	}
	return inflated, nil
}
