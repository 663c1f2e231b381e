package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-climate-risk/internal/broadcast"
	"github.com/mr1hm/go-climate-risk/internal/grid"
	"github.com/mr1hm/go-climate-risk/internal/models"
	"github.com/mr1hm/go-climate-risk/internal/observability"
	"github.com/mr1hm/go-climate-risk/internal/pubsub"
	"github.com/mr1hm/go-climate-risk/internal/repository"
	"github.com/mr1hm/go-climate-risk/internal/risk"
	"github.com/mr1hm/go-climate-risk/internal/satellite"
)

// maxBodyBytes caps request bodies read by the ingestion and webhook routes.
const maxBodyBytes = 1 << 20

type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators behind the HTTP routes. Broadcaster,
// Metrics and Health are optional. RateLimitRPS of zero disables the
// per-client limit.
type Services struct {
	Ingestor    satellite.Ingestor
	Webhook     *pubsub.Adapter
	Engine      *risk.Engine
	Grid        *grid.Synthesizer
	Repo        repository.SatelliteRepository
	Broadcaster *broadcast.Broadcaster
	Metrics     *observability.Metrics
	Health      Pinger
	Clock       clockwork.Clock

	RateLimitRPS int
}

type Handler struct {
	svc Services
}

func NewHandler(svc Services) *Handler {
	if svc.Clock == nil {
		svc.Clock = clockwork.NewRealClock()
	}
	return &Handler{svc: svc}
}

// RegisterRoutes mounts every route. The webhook, health and metrics routes
// bypass the rate limit: push deliveries must always get a 200.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/satellite-webhook", h.satelliteWebhook)

	limited := r.Group("")
	if h.svc.RateLimitRPS > 0 {
		limited.Use(RateLimitMiddleware(h.svc.RateLimitRPS))
	}
	limited.POST("/ingest-satellite-data", h.ingestSatelliteData)

	api := limited.Group("/api")
	api.POST("/analyze-location", h.analyzeLocation)
	api.POST("/enrich-demographics", h.enrichDemographics)
	api.GET("/satellite-data", h.getSatelliteData)
	if h.svc.Broadcaster != nil {
		api.GET("/satellite-data/stream", h.streamSatelliteData)
	}

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (h *Handler) ingestSatelliteData(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		h.ingestError(c, err)
		return
	}

	req, err := satellite.ParseIngestRequest(body)
	if err != nil {
		h.ingestError(c, err)
		return
	}

	result, err := h.svc.Ingestor.Ingest(c.Request.Context(), req)
	if err != nil {
		h.ingestError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ingestError(c *gin.Context, err error) {
	slog.Error("satellite ingestion failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success":   false,
		"error":     err.Error(),
		"timestamp": h.svc.Clock.Now().UTC(),
	})
}

// satelliteWebhook acknowledges every delivery with 200 so the push
// subscription does not redeliver; the body carries the outcome.
func (h *Handler) satelliteWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusOK, pubsub.Response{Success: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.svc.Webhook.Handle(c.Request.Context(), body))
}

type analyzeRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"required,min=-180,max=180"`
}

func (h *Handler) analyzeLocation(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.svc.Engine.Analyze(c.Request.Context(), *req.Latitude, *req.Longitude)
	if err != nil {
		if errors.Is(err, risk.ErrInvalidCoordinates) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("risk analysis failed", "latitude", *req.Latitude, "longitude", *req.Longitude, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to analyze location"})
		return
	}

	h.observe("analyze")
	c.JSON(http.StatusOK, profile)
}

type enrichRequest struct {
	Latitude    *float64            `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude   *float64            `json:"longitude" binding:"required,min=-180,max=180"`
	RiskFactors *models.RiskFactors `json:"riskFactors" binding:"required"`
}

func (h *Handler) enrichDemographics(c *gin.Context) {
	var req enrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	points := h.svc.Grid.Synthesize(*req.Latitude, *req.Longitude, *req.RiskFactors)

	h.observe("enrich")
	c.JSON(http.StatusOK, gin.H{"gridData": points})
}

func (h *Handler) getSatelliteData(c *gin.Context) {
	box, ok := boundingBoxQuery(c)
	if !ok {
		return
	}
	filter := repository.Filter{
		BoundingBox: box,
		Limit:       repository.DefaultLimit,
	}

	if l := c.Query("limit"); l != "" {
		lim, err := strconv.Atoi(l)
		if err != nil || lim < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = min(lim, repository.MaxLimit)
	}

	points, err := h.svc.Repo.ListInBoundingBox(c.Request.Context(), filter)
	if err != nil {
		slog.Error("error listing satellite data", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch satellite data",
		})
		return
	}

	fc := toGeoJSON(points)
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

// boundingBoxQuery reads the optional min/max lat/lng query parameters. It
// writes a 400 and returns false when one is not a number.
func boundingBoxQuery(c *gin.Context) (models.BoundingBox, bool) {
	var box models.BoundingBox
	bounds := []struct {
		param string
		dst   **float64
	}{
		{"min_lat", &box.MinLat},
		{"max_lat", &box.MaxLat},
		{"min_lng", &box.MinLng},
		{"max_lng", &box.MaxLng},
	}
	for _, b := range bounds {
		v := c.Query(b.param)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + b.param})
			return models.BoundingBox{}, false
		}
		*b.dst = &f
	}
	return box, true
}

func (h *Handler) streamSatelliteData(c *gin.Context) {
	box, ok := boundingBoxQuery(c)
	if !ok {
		return
	}
	id, events := h.svc.Broadcaster.Subscribe(box)
	defer h.svc.Broadcaster.Unsubscribe(id)

	if h.svc.Metrics != nil {
		h.svc.Metrics.StreamSubscribers.Inc()
		defer h.svc.Metrics.StreamSubscribers.Dec()
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("ingest", e)
			return true
		}
	})
}

func (h *Handler) health(c *gin.Context) {
	if h.svc.Health != nil {
		if err := h.svc.Health.Ping(c.Request.Context()); err != nil {
			slog.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) observe(kind string) {
	if h.svc.Metrics != nil {
		h.svc.Metrics.Analyses.WithLabelValues(kind).Inc()
	}
}
