package service

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/edupay-dashboard/internal/dto"
	"github.com/noah-isme/edupay-dashboard/internal/models"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
	"github.com/noah-isme/edupay-dashboard/pkg/export"
	"github.com/noah-isme/edupay-dashboard/pkg/storage"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type exportMetrics interface {
	RecordExport(format string, err error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders the rows a view displays and hands out signed download links.
type ExportService struct {
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	metrics exportMetrics
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, metrics exportMetrics, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		storage: files,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// ExportRows renders rows in format and returns a signed download link.
func (s *ExportService) ExportRows(rows []models.TransactionRow, format string) (*dto.ExportResponse, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}

	resp, err := s.exportRows(rows, format)
	if s.metrics != nil {
		s.metrics.RecordExport(format, err)
	}
	if err != nil {
		s.logger.Warn("export failed", zap.String("format", format), zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (s *ExportService) exportRows(rows []models.TransactionRow, format string) (*dto.ExportResponse, error) {
	var (
		payload []byte
		err     error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(transactionDataset(rows, models.FormatCurrency))
	case ExportFormatPDF:
		payload, err = s.pdf.Render(transactionDataset(rows, models.FormatAmount), "Transactions")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExportFailed.Code, appErrors.ErrExportFailed.Status, appErrors.ErrExportFailed.Message)
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("transactions_%s_%s.%s", s.now().UTC().Format("20060102_150405"), exportID, format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExportFailed.Code, appErrors.ErrExportFailed.Status, appErrors.ErrExportFailed.Message)
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrExportFailed.Code, appErrors.ErrExportFailed.Status, appErrors.ErrExportFailed.Message)
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &dto.ExportResponse{
		URL:       fmt.Sprintf("%s/exports/download?token=%s", prefix, token),
		Format:    format,
		ExpiresAt: expiresAt,
		Rows:      len(rows),
	}, nil
}

// Resolve validates a download token and opens the referenced file.
func (s *ExportService) Resolve(token string) (*os.File, string, error) {
	_, relPath, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.New("TOKEN_EXPIRED", http.StatusGone, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	return file, relPath, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

var exportHeaders = []string{
	"Collect ID", "School ID", "Gateway", "Order Amount", "Transaction Amount",
	"Status", "Custom Order ID", "Payment Time", "Payment Mode",
}

func transactionDataset(rows []models.TransactionRow, money func(decimal.Decimal) string) export.Dataset {
	data := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Collect ID":         row.CollectID,
			"School ID":          row.SchoolID,
			"Gateway":            row.Gateway,
			"Order Amount":       money(row.OrderAmount),
			"Transaction Amount": money(row.TransactionAmount),
			"Status":             row.Status,
			"Custom Order ID":    row.CustomOrderID,
			"Payment Time":       models.FormatDate(row.PaymentTime),
			"Payment Mode":       row.PaymentMode,
		})
	}
	return data
}
