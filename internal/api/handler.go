package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
	"github.com/mr1hm/go-triage-dispatch/internal/stream"
)

// Ingester runs the write path.
type Ingester interface {
	Ingest(ctx context.Context, report models.Report) (*models.IngestResult, error)
	Assign(ctx context.Context, victimID string, hospitalID *int64) (*models.Victim, error)
}

// Reader is the read side of the triage store.
type Reader interface {
	ListVictims(ctx context.Context) ([]models.Victim, error)
	ListHospitals(ctx context.Context) ([]models.Hospital, error)
	GetSnapshot(ctx context.Context) (models.ClusterSnapshot, error)
	Stats(ctx context.Context) (models.Stats, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	store       Reader
	ingester    Ingester
	broadcaster *stream.Broadcaster
}

func NewHandler(store Reader, ingester Ingester, broadcaster *stream.Broadcaster) *Handler {
	return &Handler{
		store:       store,
		ingester:    ingester,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.POST("/ingest", h.ingest)
	api.POST("/assign/:id", h.assign)
	api.GET("/victims", h.getVictims)
	api.GET("/hospitals", h.getHospitals)
	api.GET("/clusters", h.getClusters)
	api.GET("/clusters/stream", h.streamClusters)
	api.GET("/stats", h.getStats)
}

func (h *Handler) ingest(c *gin.Context) {
	var report models.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed report: " + err.Error()})
		return
	}

	result, err := h.ingester.Ingest(c.Request.Context(), report)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type assignRequest struct {
	HospitalID *int64 `json:"hospital_id"`
}

func (h *Handler) assign(c *gin.Context) {
	// the body is optional
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request: " + err.Error()})
		return
	}

	victim, err := h.ingester.Assign(c.Request.Context(), c.Param("id"), req.HospitalID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "victim": victim})
}

func (h *Handler) getVictims(c *gin.Context) {
	victims, err := h.store.ListVictims(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if victims == nil {
		victims = []models.Victim{}
	}
	c.JSON(http.StatusOK, victims)
}

func (h *Handler) getHospitals(c *gin.Context) {
	hospitals, err := h.store.ListHospitals(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if hospitals == nil {
		hospitals = []models.Hospital{}
	}
	c.JSON(http.StatusOK, hospitals)
}

func (h *Handler) getClusters(c *gin.Context) {
	snap, err := h.store.GetSnapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	if c.Query("format") == "geojson" {
		c.Header("Content-Type", "application/geo+json")
		c.JSON(http.StatusOK, toGeoJSON(snap.Clusters))
		return
	}
	c.JSON(http.StatusOK, snap.Clusters)
}

// streamClusters sends the current snapshot, then every new one, as
// server-sent events until the client goes away.
func (h *Handler) streamClusters(c *gin.Context) {
	ctx := c.Request.Context()

	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if snap, err := h.store.GetSnapshot(ctx); err == nil {
		c.SSEvent("snapshot", snap)
		c.Writer.Flush()
	} else {
		slog.Warn("loading snapshot for stream", "error", err)
	}

	slog.Debug("cluster stream opened", "subscriber_id", id)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("cluster stream closed", "subscriber_id", id)
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent("snapshot", snap)
			c.Writer.Flush()
		}
	}
}

func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidVitals):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrVictimNotFound), errors.Is(err, models.ErrHospitalNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyAssigned):
		return http.StatusConflict
	case errors.Is(err, models.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
