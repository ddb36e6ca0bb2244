package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-io/sentra/internal/config"
	"github.com/sentra-io/sentra/internal/fraud"
	"github.com/sentra-io/sentra/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Port:         "8080",
		Env:          "development",
		LogLevel:     "error",
		LogFormat:    "text",
		ArtifactDir:  "../artifact/testdata",
		RateLimitRPS: 1000,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
	})
	return s
}

func doJSON(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func scoreRequest() ScoreRequest {
	lat, long := 40.7128, -74.0060
	mlat, mlong := 40.75, -73.99
	return ScoreRequest{
		Transaction: fraud.Transaction{
			ID:         "tx-server-1",
			CustomerID: "cust-server-1",
			Amount:     100.0,
			Timestamp:  "2020-12-22 14:13:39",
			Merchant:   "fraud_Kirlin and Sons",
			Category:   "food_dining",
			Lat:        &lat,
			Long:       &long,
			MerchLat:   &mlat,
			MerchLong:  &mlong,
			DOB:        "1988-03-09",
		},
		CustomerHistory: &fraud.CustomerHistory{
			CustomerID: "cust-server-1",
			AvgAmount:  100.0,
			StdAmount:  20.0,
			TxCount:    40,
			UsualHours: []int{10, 14, 18},
		},
	}
}

func TestScoreEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/v1/transactions/score", scoreRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result pipeline.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	require.NotNil(t, result.Decision)
	assert.Equal(t, fraud.ActionApprove, result.Decision.Action)
	assert.Equal(t, "tx-server-1", result.Decision.TransactionID)
	assert.NotEmpty(t, result.Decision.ID)
	assert.NotNil(t, result.Score)
	assert.NotNil(t, result.Anomalies)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestScoreEndpointInvalidTransaction(t *testing.T) {
	s := newTestServer(t)

	req := scoreRequest()
	req.Transaction.Amount = -5

	w := doJSON(s, http.MethodPost, "/v1/transactions/score", req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_transaction")
}

func TestScoreEndpointMalformedBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions/score", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_request")
}

func TestScoreEndpointArtifactsMissing(t *testing.T) {
	cfg := testConfig()
	cfg.ArtifactDir = "testdata/does-not-exist"

	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)

	w := doJSON(s, http.MethodPost, "/v1/transactions/score", scoreRequest())
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "scoring_unavailable")

	// The artifact health check should report the same failure
	w = doJSON(s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestGetDecision(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/v1/transactions/score", scoreRequest())
	require.Equal(t, http.StatusOK, w.Code)

	var result pipeline.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	// Decisions are recorded asynchronously
	require.Eventually(t, func() bool {
		resp := doJSON(s, http.MethodGet, "/v1/decisions/"+result.Decision.ID, nil)
		return resp.Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetDecisionNotFound(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/v1/decisions/dec_nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestListDecisionsByCustomer(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/v1/transactions/score", scoreRequest())
	require.Equal(t, http.StatusOK, w.Code)

	require.Eventually(t, func() bool {
		resp := doJSON(s, http.MethodGet, "/v1/decisions?customer_id=cust-server-1", nil)
		if resp.Code != http.StatusOK {
			return false
		}
		var body struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
			return false
		}
		return body.Count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetBaselineNotFound(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/v1/customers/cust-unknown/baseline", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	require.Len(t, resp.Checks, 1)
	assert.Equal(t, "artifacts", resp.Checks[0].Name)

	w = doJSON(s, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Readiness flips on in Run; a bare New is not ready yet
	w = doJSON(s, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInfoEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/api", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sentra")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	// Generate one request so HTTP metrics exist
	doJSON(s, http.MethodGet, "/api", nil)

	w := doJSON(s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sentra_http_requests_total")
}
