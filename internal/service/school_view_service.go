package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/edupay-dashboard/internal/dto"
	"github.com/noah-isme/edupay-dashboard/internal/gateway"
	"github.com/noah-isme/edupay-dashboard/internal/models"
	"github.com/noah-isme/edupay-dashboard/internal/querystate"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
)

const (
	schoolViewLimit     = 1000
	msgSchoolLoadFailed = "Failed to fetch transactions"
)

// SchoolTransactionLister is the gateway surface used by the school view.
type SchoolTransactionLister interface {
	FetchTransactionsBySchool(ctx context.Context, schoolID string, q gateway.ListQuery) (models.TransactionPage, error)
}

// SchoolViewService serves the per-school search view.
type SchoolViewService struct {
	fetcher SchoolTransactionLister
	logger  *zap.Logger
}

// NewSchoolViewService constructs the service.
func NewSchoolViewService(fetcher SchoolTransactionLister, logger *zap.Logger) *SchoolViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolViewService{fetcher: fetcher, logger: logger}
}

// Load fetches one page of the school named by search. The search text is the
// school selector: a blank search shows nothing and skips the gateway.
// Failures clear the rows.
func (s *SchoolViewService) Load(ctx context.Context, search string, page int) (dto.SchoolSnapshot, error) {
	if page < 1 {
		page = 1
	}
	schoolID := strings.TrimSpace(search)

	snap := dto.SchoolSnapshot{
		SchoolID:   schoolID,
		Search:     search,
		Page:       page,
		Query:      schoolQuery(search, page),
		Rows:       []models.TransactionRow{},
		Pagination: models.DefaultPageResult(),
	}
	if schoolID == "" {
		return snap, nil
	}

	result, err := s.fetcher.FetchTransactionsBySchool(ctx, schoolID, gateway.ListQuery{
		Page:      page,
		Limit:     schoolViewLimit,
		SortBy:    string(querystate.DefaultSortField),
		SortOrder: string(querystate.DefaultDirection),
	})
	if err != nil {
		if appErrors.IsCode(err, appErrors.ErrUnauthenticated.Code) {
			return dto.SchoolSnapshot{}, err
		}
		s.logger.Warn("school transactions fetch failed", zap.String("school_id", schoolID), zap.Error(err))
		snap.Error = viewError(err, msgSchoolLoadFailed).Message
		return snap, nil
	}

	snap.Rows = result.Rows
	snap.Pagination = result.Pagination
	return snap, nil
}

func schoolQuery(search string, page int) string {
	v := url.Values{}
	if strings.TrimSpace(search) != "" {
		v.Set("search", search)
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	return v.Encode()
}
