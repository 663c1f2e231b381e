package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-climate-risk/internal/broadcast"
	"github.com/mr1hm/go-climate-risk/internal/grid"
	"github.com/mr1hm/go-climate-risk/internal/models"
	"github.com/mr1hm/go-climate-risk/internal/observability"
	"github.com/mr1hm/go-climate-risk/internal/pubsub"
	"github.com/mr1hm/go-climate-risk/internal/repository"
	"github.com/mr1hm/go-climate-risk/internal/risk"
	"github.com/mr1hm/go-climate-risk/internal/satellite"
)

type memoryRepo struct {
	points  []models.SatelliteDataPoint
	lastOpt repository.Filter
	failLat float64
}

func (m *memoryRepo) InsertBatch(ctx context.Context, points []models.SatelliteDataPoint) error {
	if m.failLat != 0 && points[24].Latitude == m.failLat {
		return errors.New("insert failed")
	}
	m.points = append(m.points, points...)
	return nil
}

func (m *memoryRepo) ListInBoundingBox(ctx context.Context, opts repository.Filter) ([]models.SatelliteDataPoint, error) {
	m.lastOpt = opts
	var out []models.SatelliteDataPoint
	for _, p := range m.points {
		if opts.MinLat != nil && p.Latitude < *opts.MinLat {
			continue
		}
		if opts.MaxLat != nil && p.Latitude > *opts.MaxLat {
			continue
		}
		out = append(out, p)
		if len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type testEnv struct {
	router      *gin.Engine
	repo        *memoryRepo
	broadcaster *broadcast.Broadcaster
	clock       *clockwork.FakeClock
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	return setupLimitedRouter(t, 0)
}

func setupLimitedRouter(t *testing.T, rps int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &memoryRepo{}
	b := broadcast.NewBroadcaster()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	metrics := observability.NewMetricsForTesting()

	svc := satellite.NewService(repo,
		satellite.WithClock(clock),
		satellite.WithSeed(7),
		satellite.WithPublisher(b),
		satellite.WithMetrics(metrics),
	)

	handler := NewHandler(Services{
		Ingestor:    svc,
		Webhook:     pubsub.NewAdapter(svc, metrics),
		Engine:      risk.NewEngine(risk.NewSyntheticSource(1)),
		Grid:        grid.NewSynthesizer(grid.DefaultOptions()),
		Repo:        repo,
		Broadcaster: b,
		Metrics:     metrics,
		Health:      fakePinger{},
		Clock:       clock,

		RateLimitRPS: rps,
	})

	router := gin.New()
	handler.RegisterRoutes(router)

	return &testEnv{router: router, repo: repo, broadcaster: b, clock: clock}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestIngestSatelliteData_ManualCoordinate(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/ingest-satellite-data",
		`{"trigger":"manual","source":"api","latitude":40.7128,"longitude":-74.0060}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "manual", body["trigger"])
	assert.Equal(t, "api", body["source"])
	assert.Equal(t, float64(1), body["locationsProcessed"])
	assert.Equal(t, float64(49), body["dataPointsInserted"])
	assert.Equal(t, "2025-06-01T12:00:00Z", body["timestamp"])
	assert.NotContains(t, body, "failedLocations")
	assert.Len(t, env.repo.points, 49)
}

func TestIngestSatelliteData_EmptyBodyUsesDefaults(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/ingest-satellite-data", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "scheduled", body["trigger"])
	assert.Equal(t, "cron", body["source"])
	assert.Equal(t, float64(5), body["locationsProcessed"])
	assert.Equal(t, float64(245), body["dataPointsInserted"])
}

func TestIngestSatelliteData_PartialFailure(t *testing.T) {
	env := setupTestRouter(t)
	env.repo.failLat = 2

	w := env.do(http.MethodPost, "/ingest-satellite-data",
		`{"trigger":"manual","source":"api","locations":[{"lat":1,"lng":1},{"lat":2,"lng":2},{"latitude":3,"longitude":3}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["locationsProcessed"])
	assert.Equal(t, float64(98), body["dataPointsInserted"])
	assert.Len(t, body["failedLocations"], 1)
}

func TestIngestSatelliteData_MalformedBody(t *testing.T) {
	env := setupTestRouter(t)

	for _, body := range []string{`{"trigger":`, `{"latitude":100,"longitude":0}`} {
		w := env.do(http.MethodPost, "/ingest-satellite-data", body)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decode(t, w)
		assert.Equal(t, false, resp["success"])
		assert.NotEmpty(t, resp["error"])
		assert.Equal(t, "2025-06-01T12:00:00Z", resp["timestamp"])
	}
}

func pushEnvelope(inner string) string {
	env, _ := json.Marshal(map[string]any{
		"message": map[string]any{
			"data":        base64.StdEncoding.EncodeToString([]byte(inner)),
			"messageId":   "1234567890",
			"publishTime": "2025-06-01T12:00:00Z",
		},
		"subscription": "projects/climate/subscriptions/satellite-push",
	})
	return string(env)
}

func TestSatelliteWebhook_TriggersIngestion(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/satellite-webhook", pushEnvelope(
		`{"eventType":"new_sentinel_data","satellite":"Sentinel-2","location":{"latitude":40.7128,"longitude":-74.006},"severity":"high"}`))

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "1234567890", body["messageId"])
	assert.Equal(t, "new_sentinel_data", body["eventType"])
	assert.Equal(t, float64(49), body["dataPointsProcessed"])

	require.Len(t, env.repo.points, 49)
	assert.Equal(t, "Sentinel-2", env.repo.points[0].Source)
}

func TestSatelliteWebhook_AlwaysReturns200(t *testing.T) {
	env := setupTestRouter(t)

	for _, body := range []string{"", `not json`, `{"message":{"data":"!!"}}`, pushEnvelope(`{"satellite":"x"}`)} {
		w := env.do(http.MethodPost, "/satellite-webhook", body)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		assert.Equal(t, false, resp["success"])
		assert.NotEmpty(t, resp["error"])
	}
	assert.Empty(t, env.repo.points)
}

func TestSatelliteWebhook_NotRateLimited(t *testing.T) {
	env := setupLimitedRouter(t, 1)
	envelope := pushEnvelope(`{"eventType":"new_sentinel_data","location":{"latitude":40.7128,"longitude":-74.006}}`)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/satellite-webhook", strings.NewReader(envelope))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, "delivery %d", i)
		assert.Equal(t, float64(49), decode(t, w)["dataPointsProcessed"])
	}
	assert.Len(t, env.repo.points, 3*49)
}

func TestIngestSatelliteData_RateLimited(t *testing.T) {
	env := setupLimitedRouter(t, 1)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/ingest-satellite-data",
			strings.NewReader(`{"latitude":1,"longitude":1}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestIngestSatelliteData_EmptyLocations(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/ingest-satellite-data", `{"trigger":"manual","source":"api","locations":[]}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["locationsProcessed"])
	assert.Equal(t, float64(0), body["dataPointsInserted"])
	assert.Empty(t, env.repo.points)
}

func TestAnalyzeLocation(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/analyze-location", `{"latitude":25.7617,"longitude":-80.1918}`)
	require.Equal(t, http.StatusOK, w.Code)

	var profile models.RiskProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, 25.7617, profile.Latitude)
	assert.Equal(t, -80.1918, profile.Longitude)
	assert.Equal(t, risk.Overall(profile.Factors), profile.OverallScore)

	again := env.do(http.MethodPost, "/api/analyze-location", `{"latitude":25.7617,"longitude":-80.1918}`)
	assert.Equal(t, w.Body.String(), again.Body.String())
}

func TestAnalyzeLocation_InvalidBody(t *testing.T) {
	env := setupTestRouter(t)

	for _, body := range []string{`{}`, `{"latitude":95,"longitude":0}`, `{"latitude":"x"}`, `{"latitude":0}`} {
		w := env.do(http.MethodPost, "/api/analyze-location", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestEnrichDemographics(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/enrich-demographics",
		`{"latitude":29.7604,"longitude":-95.3698,"riskFactors":{"flood":80,"wildfire":20,"storm":70,"drought":30}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		GridData []models.GridPoint `json:"gridData"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.GridData, 49)
	for _, p := range resp.GridData {
		assert.Equal(t, models.RiskLevelFor(p.Risk), p.RiskLevel)
		assert.LessOrEqual(t, p.PayoutEstimate.Expected, p.PayoutEstimate.WorstCase)
	}
}

func TestEnrichDemographics_InvalidBody(t *testing.T) {
	env := setupTestRouter(t)

	for _, body := range []string{
		`{"latitude":29.76,"longitude":-95.37}`,
		`{"latitude":29.76,"longitude":-95.37,"riskFactors":{"flood":120}}`,
		`[]`,
	} {
		w := env.do(http.MethodPost, "/api/enrich-demographics", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestGetSatelliteData(t *testing.T) {
	env := setupTestRouter(t)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/ingest-satellite-data",
		`{"locations":[{"lat":10,"lng":10},{"lat":50,"lng":50}]}`).Code)

	w := env.do(http.MethodGet, "/api/satellite-data?min_lat=9&max_lat=11&limit=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))

	var fc FeatureCollection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 20)

	f := fc.Features[0]
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.InDelta(t, 10, f.Geometry.Coordinates[1], 0.05)
	assert.Contains(t, f.Properties, "risk_indicators")
	assert.Contains(t, f.Properties, "vegetation_index")
}

func TestGetSatelliteData_Limits(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/api/satellite-data", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, repository.DefaultLimit, env.repo.lastOpt.Limit)
	assert.Nil(t, env.repo.lastOpt.MinLat)

	w = env.do(http.MethodGet, "/api/satellite-data?limit=10000", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, repository.MaxLimit, env.repo.lastOpt.Limit)

	var fc FeatureCollection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.NotNil(t, fc.Features)
}

func TestGetSatelliteData_InvalidParams(t *testing.T) {
	env := setupTestRouter(t)

	for _, q := range []string{"min_lat=abc", "max_lng=", "limit=0", "limit=ten"} {
		w := env.do(http.MethodGet, "/api/satellite-data?"+q, "")
		if q == "max_lng=" {
			assert.Equal(t, http.StatusOK, w.Code, q)
			continue
		}
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestStreamSatelliteData(t *testing.T) {
	env := setupTestRouter(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := http.Get(srv.URL + "/api/satellite-data/stream")
		done <- result{resp, err}
	}()

	require.Eventually(t, func() bool { return env.broadcaster.SubscriberCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	env.broadcaster.Broadcast(models.IngestEvent{Trigger: "manual", Source: "api", Latitude: 40.7128, Longitude: -74.006, Points: 49})

	var r result
	select {
	case r = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream response")
	}
	require.NoError(t, r.err)
	defer r.resp.Body.Close()

	assert.Equal(t, http.StatusOK, r.resp.StatusCode)
	assert.Contains(t, r.resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(r.resp.Body)
	var event bytes.Buffer
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line == "\n" {
			break
		}
		event.WriteString(line)
	}
	assert.Contains(t, event.String(), "event:ingest")
	assert.Contains(t, event.String(), `"points":49`)

	env.broadcaster.Close()
}

func TestStreamSatelliteData_BoundingBox(t *testing.T) {
	env := setupTestRouter(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := http.Get(srv.URL + "/api/satellite-data/stream?min_lat=25&max_lat=26&min_lng=-81&max_lng=-80")
		done <- result{resp, err}
	}()

	require.Eventually(t, func() bool { return env.broadcaster.SubscriberCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	env.broadcaster.Broadcast(models.IngestEvent{Trigger: "manual", Latitude: 40.7128, Longitude: -74.006, Points: 49})
	env.broadcaster.Broadcast(models.IngestEvent{Trigger: "manual", Latitude: 25.7617, Longitude: -80.1918, Points: 49})

	var r result
	select {
	case r = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream response")
	}
	require.NoError(t, r.err)
	defer r.resp.Body.Close()

	reader := bufio.NewReader(r.resp.Body)
	var event bytes.Buffer
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line == "\n" {
			break
		}
		event.WriteString(line)
	}
	assert.Contains(t, event.String(), `"latitude":25.7617`)
	assert.NotContains(t, event.String(), "40.7128")

	env.broadcaster.Close()
}

func TestStreamSatelliteData_InvalidBound(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/api/satellite-data/stream?min_lat=north", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, env.broadcaster.SubscriberCount())
}

func TestHealth(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealth_Unavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(Services{Health: fakePinger{err: errors.New("db down")}}).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(2))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// another client has its own bucket
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
