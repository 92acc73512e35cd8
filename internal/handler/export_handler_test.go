package handler

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edupay-dashboard/internal/models"
	"github.com/noah-isme/edupay-dashboard/internal/service"
	"github.com/noah-isme/edupay-dashboard/pkg/storage"
)

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	files, err := storage.NewLocalStorage(dir, 0o600)
	require.NoError(t, err)
	exports := service.NewExportService(files, storage.NewSignedURLSigner("secret", time.Hour), service.ExportConfig{}, nil, nil, nil, nil)

	res, err := exports.ExportRows([]models.TransactionRow{{CollectID: "c-1", Status: "Success"}}, "csv")
	require.NoError(t, err)
	link, err := url.Parse(res.URL)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/exports/download", NewExportHandler(exports).Download)

	rec := serve(router, http.MethodGet, "/exports/download?"+link.RawQuery, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, rec.Body.String(), "c-1")

	rec = serve(router, http.MethodGet, "/exports/download", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodGet, "/exports/download?token=forged.1.x.y", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		require.NoError(t, os.Remove(filepath.Join(dir, entry.Name())))
	}
	rec = serve(router, http.MethodGet, "/exports/download?"+link.RawQuery, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
