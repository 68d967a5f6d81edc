package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	activitydomain "github.com/stackspendlabs/stackspend/internal/activity/domain"
	activityrepository "github.com/stackspendlabs/stackspend/internal/activity/repository"
	activityservice "github.com/stackspendlabs/stackspend/internal/activity/service"
	clientdomain "github.com/stackspendlabs/stackspend/internal/client/domain"
	clientrepository "github.com/stackspendlabs/stackspend/internal/client/repository"
	clientservice "github.com/stackspendlabs/stackspend/internal/client/service"
	"github.com/stackspendlabs/stackspend/internal/clock"
	"github.com/stackspendlabs/stackspend/internal/config"
	dealdomain "github.com/stackspendlabs/stackspend/internal/lifetimedeal/domain"
	dealrepository "github.com/stackspendlabs/stackspend/internal/lifetimedeal/repository"
	dealservice "github.com/stackspendlabs/stackspend/internal/lifetimedeal/service"
	projectdomain "github.com/stackspendlabs/stackspend/internal/project/domain"
	projectrepository "github.com/stackspendlabs/stackspend/internal/project/repository"
	projectservice "github.com/stackspendlabs/stackspend/internal/project/service"
	reportservice "github.com/stackspendlabs/stackspend/internal/report/service"
	subscriptiondomain "github.com/stackspendlabs/stackspend/internal/subscription/domain"
	subscriptionrepository "github.com/stackspendlabs/stackspend/internal/subscription/repository"
	subscriptionservice "github.com/stackspendlabs/stackspend/internal/subscription/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	engine *gin.Engine
	orgID  snowflake.ID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&projectdomain.Project{},
		&subscriptiondomain.Subscription{},
		&dealdomain.LifetimeDeal{},
		&activitydomain.Event{},
	))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	logger := zap.NewNop()
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.Local)
	fixed := clock.Fixed{T: now}

	cfg := config.Config{}
	cfg.Report.CacheTTL = time.Minute
	cfg.Report.RenewalWindowDays = 30

	clientRepo := clientrepository.Provide()
	projectRepo := projectrepository.Provide()
	subscriptionRepo := subscriptionrepository.Provide()
	dealRepo := dealrepository.Provide()

	clientSvc := clientservice.NewService(clientservice.ServiceParam{
		DB: db, Log: logger, GenID: node, Clock: fixed, Repo: clientRepo,
	})
	projectSvc := projectservice.NewService(projectservice.ServiceParam{
		DB: db, Log: logger, GenID: node, Clock: fixed, Repo: projectRepo, ClientRepo: clientRepo,
	})
	subscriptionSvc := subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB: db, Log: logger, GenID: node, Clock: fixed, Repo: subscriptionRepo,
		ClientRepo: clientRepo, ProjectRepo: projectRepo,
	})
	dealSvc := dealservice.NewService(dealservice.ServiceParam{
		DB: db, Log: logger, GenID: node, Clock: fixed, Repo: dealRepo, ClientRepo: clientRepo,
	})
	activitySvc := activityservice.NewService(activityservice.ServiceParam{
		DB: db, Log: logger, Clock: fixed, Repo: activityrepository.Provide(),
	})
	reportSvc := reportservice.NewService(reportservice.ServiceParam{
		DB: db, Log: logger, Clock: fixed, Config: cfg, Redis: redisClient,
		Registry: prometheus.NewRegistry(), SubscriptionRepo: subscriptionRepo, DealRepo: dealRepo,
	})

	reg := prometheus.NewRegistry()
	engine := NewEngine(logger, reg)
	srv := NewServer(ServerParam{
		Engine: engine, Log: logger, Config: cfg, DB: db, Redis: redisClient,
		ClientSvc: clientSvc, ProjectSvc: projectSvc, SubscriptionSvc: subscriptionSvc,
		DealSvc: dealSvc, ActivitySvc: activitySvc, ReportSvc: reportSvc,
	})
	srv.RegisterAPIRoutes(reg)

	return &testServer{engine: engine, orgID: node.Generate()}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, withOrg bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if withOrg {
		req.Header.Set("X-Org-ID", ts.orgID.String())
	}

	resp := httptest.NewRecorder()
	ts.engine.ServeHTTP(resp, req)
	return resp
}

func dataField(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestOrgHeaderRequired(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/v1/subscriptions", nil, false)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.do(t, http.MethodGet, "/v1/subscriptions", nil, true)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSubscriptionLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/v1/subscriptions", map[string]any{
		"name":          "Datadog",
		"amount":        100,
		"billing_cycle": "monthly",
		"start_date":    "2024-01-15",
	}, true)
	require.Equal(t, http.StatusOK, resp.Code)

	data := dataField(t, resp)
	assert.Equal(t, "2024-04-15", data["next_billing_date"])
	assert.Equal(t, "Apr 15, 2024", data["next_billing_display"])
	assert.Equal(t, float64(26), data["days_until_due"])

	id := data["id"].(string)

	resp = ts.do(t, http.MethodPost, "/v1/subscriptions/"+id+"/pause", nil, true)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "PAUSED", dataField(t, resp)["status"])

	resp = ts.do(t, http.MethodPost, "/v1/subscriptions/"+id+"/cancel", nil, true)
	require.Equal(t, http.StatusOK, resp.Code)

	// Canceled is terminal: resume conflicts.
	resp = ts.do(t, http.MethodPost, "/v1/subscriptions/"+id+"/resume", nil, true)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestValidationErrorsOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/v1/subscriptions", map[string]any{
		"name":          "Bad cycle",
		"amount":        10,
		"billing_cycle": "biweekly",
		"start_date":    "2024-01-15",
	}, true)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.do(t, http.MethodPost, "/v1/subscriptions", map[string]any{
		"name":          "Bad date",
		"amount":        10,
		"billing_cycle": "monthly",
		"start_date":    "01/15/2024",
	}, true)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.do(t, http.MethodGet, "/v1/subscriptions/99999", nil, true)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestActivityRecordedOnMutations(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/v1/clients", map[string]any{"name": "Acme"}, true)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.do(t, http.MethodGet, "/v1/activity", nil, true)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "client.created", envelope.Data[0]["action"])
}

func TestReportEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/v1/subscriptions", map[string]any{
		"name":          "Datadog",
		"category":      "infra",
		"amount":        30,
		"billing_cycle": "monthly",
		"start_date":    "2024-03-15",
	}, true)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.do(t, http.MethodGet, "/v1/reports/summary", nil, true)
	require.Equal(t, http.StatusOK, resp.Code)
	summary := dataField(t, resp)
	assert.Equal(t, float64(30), summary["total_monthly"])
	assert.Equal(t, float64(360), summary["total_annual"])

	resp = ts.do(t, http.MethodGet, "/v1/reports/renewals?window_days=30", nil, true)
	require.Equal(t, http.StatusOK, resp.Code)
	renewals := dataField(t, resp)
	assert.Equal(t, float64(30), renewals["window_days"])

	resp = ts.do(t, http.MethodGet, "/v1/reports/renewals?window_days=-1", nil, true)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.do(t, http.MethodGet, "/v1/reports/categories", nil, true)
	require.Equal(t, http.StatusOK, resp.Code)
	categories := dataField(t, resp)["categories"].([]any)
	require.Len(t, categories, 1)
	assert.Equal(t, "infra", categories[0].(map[string]any)["category"])

	// Mutations drop the cached summary, so the next read sees the new row
	// before the TTL expires.
	resp = ts.do(t, http.MethodPost, "/v1/subscriptions", map[string]any{
		"name":          "Figma",
		"category":      "design",
		"amount":        15,
		"billing_cycle": "monthly",
		"start_date":    "2024-03-01",
	}, true)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.do(t, http.MethodGet, "/v1/reports/summary", nil, true)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(45), dataField(t, resp)["total_monthly"])
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.do(t, http.MethodGet, "/readyz", nil, false)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.do(t, http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, resp.Code)
}
