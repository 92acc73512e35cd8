package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
)

type exportResolver interface {
	Resolve(token string) (*os.File, string, error)
}

// ExportHandler streams rendered exports behind signed links.
type ExportHandler struct {
	exports exportResolver
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportResolver) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download an export
// @Description Streams a CSV or PDF export after validating the signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	if h.exports == nil {
		writeError(c, appErrors.Clone(appErrors.ErrServiceUnavailable, "exports are disabled"))
		return
	}
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		writeError(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, relPath, err := h.exports.Resolve(token)
	if err != nil {
		writeError(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		writeError(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	name := filepath.Base(relPath)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", contentType(name))
	c.Header("Cache-Control", "no-store")
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), file)
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
