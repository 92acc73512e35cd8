package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edupay-dashboard/internal/dto"
	"github.com/noah-isme/edupay-dashboard/internal/gateway"
	"github.com/noah-isme/edupay-dashboard/internal/middleware"
	"github.com/noah-isme/edupay-dashboard/internal/models"
	"github.com/noah-isme/edupay-dashboard/internal/service"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
)

type responseEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Pagination *models.PageResult      `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

type stubLister struct {
	queries []gateway.ListQuery
	rows    []models.TransactionRow
	err     error
}

func (s *stubLister) FetchTransactions(_ context.Context, q gateway.ListQuery) (models.TransactionPage, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return models.TransactionPage{}, s.err
	}
	return models.TransactionPage{
		Rows:       s.rows,
		Pagination: models.PageResult{CurrentPage: q.Page, TotalPages: 2, TotalCount: 12}.Normalize(),
	}, nil
}

type stubExporter struct {
	rows   []models.TransactionRow
	format string
}

func (s *stubExporter) ExportRows(rows []models.TransactionRow, format string) (*dto.ExportResponse, error) {
	s.rows = rows
	s.format = format
	return &dto.ExportResponse{URL: "/api/v1/exports/download?token=abc", Format: format, Rows: len(rows)}, nil
}

func newViewRouter(lister *stubLister, exporter rowExporter) (*gin.Engine, *service.ViewRegistry) {
	gin.SetMode(gin.TestMode)
	registry := service.NewViewRegistry(lister, service.InlineDispatcher{}, nil, service.ViewRegistryConfig{}, nil)
	handler := NewViewHandler(registry, exporter, nil, 0)

	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(middleware.ContextLoginURLKey, "/login") })
	router.POST("/views", handler.Mount)
	router.GET("/views/:id", handler.Get)
	router.POST("/views/:id/actions", handler.Action)
	router.POST("/views/:id/retry", handler.Retry)
	router.DELETE("/views/:id", handler.Unmount)
	router.GET("/views/:id/suggestions", handler.Suggestions)
	router.GET("/views/:id/export", handler.Export)
	return router, registry
}

func serve(router *gin.Engine, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func mountView(t *testing.T, router *gin.Engine, query string) dto.ViewResponse {
	t.Helper()
	body, _ := json.Marshal(dto.MountViewRequest{Query: query})
	rec := serve(router, http.MethodPost, "/views?wait=true", string(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view dto.ViewResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &view))
	return view
}

func TestViewHandlerMountAndAction(t *testing.T) {
	lister := &stubLister{rows: []models.TransactionRow{
		{CollectID: "1", Status: "Success"},
		{CollectID: "2", Status: "Failed"},
	}}
	router, _ := newViewRouter(lister, nil)

	view := mountView(t, router, "status=Success&limit=30")
	assert.NotEmpty(t, view.ViewID)
	assert.Equal(t, "limit=30&status=Success", view.Snapshot.Query)
	require.Len(t, view.Snapshot.Rows, 1)
	assert.Equal(t, "1", view.Snapshot.Rows[0].CollectID)

	rec := serve(router, http.MethodPost, "/views/"+view.ViewID+"/actions", `{"type":"setSearch","value":"ORD"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.CurrentPage)
	assert.Equal(t, "ORD", lister.queries[len(lister.queries)-1].Search)
}

func TestViewHandlerRejectsUnknownAction(t *testing.T) {
	router, _ := newViewRouter(&stubLister{}, nil)
	view := mountView(t, router, "")

	rec := serve(router, http.MethodPost, "/views/"+view.ViewID+"/actions", `{"type":"explode"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPost, "/views/"+view.ViewID+"/actions", `{"type":"setPageSize","number":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestViewHandlerUnknownView(t *testing.T) {
	router, _ := newViewRouter(&stubLister{}, nil)
	rec := serve(router, http.MethodGet, "/views/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, appErrors.ErrViewNotFound.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestViewHandlerUnauthenticatedSnapshot(t *testing.T) {
	lister := &stubLister{err: appErrors.Clone(appErrors.ErrUnauthenticated, "")}
	router, _ := newViewRouter(lister, nil)

	rec := serve(router, http.MethodPost, "/views", `{"query":""}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)
	assert.Equal(t, "/login", env.Meta["login_url"])
}

func TestViewHandlerRetryAndUnmount(t *testing.T) {
	lister := &stubLister{err: appErrors.ErrGatewayUnavailable}
	router, registry := newViewRouter(lister, nil)

	rec := serve(router, http.MethodPost, "/views", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var view dto.ViewResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &view))
	assert.Equal(t, "Failed to load transactions", view.Snapshot.Error)
	require.Len(t, view.Snapshot.Notifications, 1)

	lister.err = nil
	rec = serve(router, http.MethodPost, "/views/"+view.ViewID+"/retry", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var retried dto.ViewResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &retried))
	assert.Equal(t, view.ViewID, retried.ViewID)
	assert.Empty(t, retried.Snapshot.Error)

	rec = serve(router, http.MethodDelete, "/views/"+view.ViewID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, registry.Len())
}

func TestViewHandlerSuggestions(t *testing.T) {
	lister := &stubLister{rows: []models.TransactionRow{
		{SchoolID: "65b0e6"}, {SchoolID: "77aa01"}, {SchoolID: "65b0e6"},
	}}
	router, _ := newViewRouter(lister, nil)
	view := mountView(t, router, "search=65b")

	rec := serve(router, http.MethodGet, "/views/"+view.ViewID+"/suggestions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res dto.SuggestionsResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	assert.Equal(t, []string{"65b0e6"}, res.Suggestions)

	rec = serve(router, http.MethodGet, "/views/"+view.ViewID+"/suggestions?q=", "")
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	assert.Equal(t, []string{"65b0e6", "77aa01"}, res.Suggestions)
	assert.Equal(t, true, decodeEnvelope(t, rec).Meta["cache_hit"])
}

func TestViewHandlerExport(t *testing.T) {
	lister := &stubLister{rows: []models.TransactionRow{{CollectID: "1", Status: "Success"}, {CollectID: "2", Status: "Pending"}}}
	exporter := &stubExporter{}
	router, _ := newViewRouter(lister, exporter)
	view := mountView(t, router, "status=Pending")

	rec := serve(router, http.MethodGet, "/views/"+view.ViewID+"/export?format=pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pdf", exporter.format)
	require.Len(t, exporter.rows, 1)
	assert.Equal(t, "2", exporter.rows[0].CollectID)

	disabled, _ := newViewRouter(lister, nil)
	other := mountView(t, disabled, "")
	rec = serve(disabled, http.MethodGet, "/views/"+other.ViewID+"/export", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
