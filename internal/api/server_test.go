package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/internal/observability"
	"github.com/signalsfoundry/wsn-simulator/kb"
	"github.com/signalsfoundry/wsn-simulator/model"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	server *Server
	store  *kb.Store
	sims   *observability.SimulationCollector
	http   *observability.HTTPCollector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	sims, err := observability.NewSimulationCollector(reg)
	require.NoError(t, err)
	httpMetrics, err := observability.NewHTTPCollector(reg)
	require.NoError(t, err)

	store := kb.NewStore(0)
	srv := NewServer(store,
		WithSimulationCollector(sims),
		WithHTTPCollector(httpMetrics),
	)
	return &testEnv{server: srv, store: store, sims: sims, http: httpMetrics}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestSimulationRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/simulations",
		`{"protocol":"PEGASIS","nodes":20,"rounds":5,"packets_per_round":2,"seed":9}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created kb.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.NotNil(t, created.Result)
	assert.Equal(t, model.ProtocolPEGASIS, created.Result.Protocol)
	assert.Equal(t, uint64(9), created.Result.Seed)
	assert.Len(t, created.Result.FinalNodes, 20)
	assert.Len(t, created.Result.DeadSeries, 5)
	assert.Equal(t, "/api/v1/simulations/"+created.ID, rec.Header().Get("Location"))

	// Same seed through the core directly yields the same result.
	want, err := core.RunSimulation(t.Context(), model.ProtocolPEGASIS, 20, 5, 2, core.DefaultParams(), core.WithSeed(9))
	require.NoError(t, err)
	assert.Equal(t, want.DeliveredTotal, created.Result.DeliveredTotal)
	assert.Equal(t, want.DeadSeries, created.Result.DeadSeries)

	rec = env.do(t, http.MethodGet, "/api/v1/simulations/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched kb.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Result.DeliveredTotal, fetched.Result.DeliveredTotal)

	rec = env.do(t, http.MethodGet, "/api/v1/simulations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, created.ID, list.Runs[0].ID)

	rec = env.do(t, http.MethodDelete, "/api/v1/simulations/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/simulations/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/v1/simulations/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSimulationUsesDefaultsForEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/simulations", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created kb.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, model.ProtocolLEACH, created.Result.Protocol)
	assert.Equal(t, 50, created.Nodes)
	assert.Equal(t, 20, created.Result.Rounds)
	assert.Equal(t, 1, env.store.Len())
}

func TestSimulationRejectsInvalidRequests(t *testing.T) {
	cases := map[string]string{
		"too few nodes":    `{"protocol":"Direct","nodes":5}`,
		"too many rounds":  `{"protocol":"Direct","rounds":81}`,
		"unknown protocol": `{"protocol":"SPIN"}`,
		"soft above hard":  `{"protocol":"TEEN","hard_threshold":10,"soft_threshold":15}`,
		"malformed json":   `{"protocol":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/api/v1/simulations", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, 0, env.store.Len())
		})
	}
}

func TestComparison(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/comparisons", `{"nodes":30,"rounds":10,"seed":4}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ComparisonResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(4), resp.Seed)
	assert.Equal(t, model.ComparableProtocols, resp.Protocols)
	require.Len(t, resp.Results, 3)
	assert.NotContains(t, resp.Results, model.ProtocolTEEN)

	for _, p := range model.ComparableProtocols {
		want, err := core.RunSimulation(t.Context(), p, 30, 10, 3, core.DefaultParams(), core.WithSeed(4))
		require.NoError(t, err)
		got := resp.Results[p]
		assert.Equal(t, want.AliveCount(), got.AliveCount, p.String())
		assert.Equal(t, want.DeliveredTotal, got.DeliveredTotal, p.String())
	}
}

func TestComparisonRejectsTEEN(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/comparisons", `{"protocols":["Direct","TEEN"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not comparable")
}

func TestMetricsTrackDeliveredPackets(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/simulations", `{"protocol":"Direct","nodes":10,"rounds":5,"seed":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created kb.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	delivered := testutil.ToFloat64(env.sims.DeliveredPackets.WithLabelValues("Direct"))
	assert.Equal(t, float64(created.Result.DeliveredTotal), delivered)
	assert.Equal(t, float64(5), testutil.ToFloat64(env.sims.RoundsTotal.WithLabelValues("Direct")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.sims.RunsTotal.WithLabelValues("Direct", "complete")))

	reqs := testutil.ToFloat64(env.http.RequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/simulations", "201"))
	assert.Equal(t, float64(1), reqs)
}

func TestStreamSendsRoundsThenResult(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/simulations/stream?protocol=leach&nodes=15&rounds=6&packets=2&seed=3"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	var rounds []model.RoundMetrics
	var final StreamMessage
	for {
		var msg StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == MessageRound {
			require.NotNil(t, msg.Round)
			assert.Equal(t, model.ProtocolLEACH, msg.Protocol)
			rounds = append(rounds, *msg.Round)
			continue
		}
		final = msg
		break
	}

	require.Equal(t, MessageResult, final.Type, final.Error)
	require.Len(t, rounds, 6)
	for i, r := range rounds {
		assert.Equal(t, i+1, r.Round)
		assert.Equal(t, 15, r.AliveCount+r.DeadCount)
	}
	require.NotNil(t, final.Summary)
	assert.Equal(t, final.RunID, final.Summary.ID)

	total := 0
	for _, r := range rounds {
		total += r.Delivered
	}
	assert.Equal(t, total, final.Summary.DeliveredTotal)

	stored, err := env.store.Get(final.RunID)
	require.NoError(t, err)
	assert.Equal(t, total, stored.Result.DeliveredTotal)
}

func TestStreamRejectsBadQueryBeforeUpgrade(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/simulations/stream?nodes=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/simulations/stream?protocol=spin", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/simulations/stream?interval=5s", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamPacesRoundsWithInterval(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/simulations/stream?protocol=direct&nodes=10&rounds=5&seed=1&interval=10ms"
	start := time.Now()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	frames := 0
	for {
		var msg StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		frames++
		if msg.Type != MessageRound {
			require.Equal(t, MessageResult, msg.Type, msg.Error)
			break
		}
	}
	assert.Equal(t, 6, frames)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusFor(kb.ErrRunNotFound))
	assert.Equal(t, http.StatusBadRequest, StatusFor(core.ErrProtocolNotComparable))
	assert.Equal(t, http.StatusBadRequest, StatusFor(model.ErrUnknownProtocol))
	assert.Equal(t, http.StatusConflict, StatusFor(kb.ErrRunExists))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(assert.AnError))
}
