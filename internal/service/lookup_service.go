package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/edupay-dashboard/internal/dto"
	"github.com/noah-isme/edupay-dashboard/internal/models"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
)

// Lookup messages shown to the user.
const (
	MsgEnterOrderID        = "Please enter a transaction ID"
	MsgTransactionNotFound = "Transaction not found"
	msgLookupFailed        = "Failed to fetch transaction status"
	lookupQueryKey         = "orderId"
)

// ErrOrderIDRequired is returned when the lookup is submitted without an identifier.
var ErrOrderIDRequired = appErrors.Clone(appErrors.ErrValidation, MsgEnterOrderID)

// TransactionDetailFetcher is the gateway surface used by the lookup.
type TransactionDetailFetcher interface {
	FetchTransactionByOrderID(ctx context.Context, orderID string) (models.TransactionDetail, error)
}

// LookupView fetches and holds the detail of one transaction by order id.
type LookupView struct {
	fetcher TransactionDetailFetcher
	logger  *zap.Logger

	mu       sync.Mutex
	orderID  string
	detail   *models.TransactionDetail
	notFound bool
	err      string
	mounted  bool
}

// NewLookupView constructs an empty lookup.
func NewLookupView(fetcher TransactionDetailFetcher, logger *zap.Logger) *LookupView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LookupView{fetcher: fetcher, logger: logger}
}

// Mount reads orderId from the URL query and submits it once when present.
func (v *LookupView) Mount(ctx context.Context, rawQuery string) error {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return nil
	}
	v.mounted = true
	v.mu.Unlock()

	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query string")
	}
	id := values.Get(lookupQueryKey)
	v.SetOrderID(id)
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return v.Submit(ctx, id)
}

// SetOrderID records the typed identifier without submitting it.
func (v *LookupView) SetOrderID(id string) {
	v.mu.Lock()
	v.orderID = id
	v.mu.Unlock()
}

// Submit looks up id. Blank input fails validation without touching the
// network. Any failure clears the previously displayed detail.
func (v *LookupView) Submit(ctx context.Context, id string) error {
	v.mu.Lock()
	v.orderID = id
	v.mu.Unlock()

	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return ErrOrderIDRequired
	}

	detail, err := v.fetcher.FetchTransactionByOrderID(ctx, trimmed)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.detail = nil
		v.notFound = appErrors.IsCode(err, appErrors.ErrNotFound.Code)
		v.err = lookupMessage(err, v.notFound)
		v.logger.Info("transaction lookup failed", zap.String("order_id", trimmed), zap.Bool("not_found", v.notFound), zap.Error(err))
		if appErrors.IsCode(err, appErrors.ErrUnauthenticated.Code) {
			return err
		}
		return nil
	}
	v.detail = &detail
	v.notFound = false
	v.err = ""
	return nil
}

// Query is the URL projection of the lookup: orderId, only when non-blank.
func (v *LookupView) Query() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return lookupQuery(v.orderID)
}

// Snapshot returns the render-ready lookup state.
func (v *LookupView) Snapshot() dto.LookupSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	snap := dto.LookupSnapshot{
		OrderID:  v.orderID,
		Query:    lookupQuery(v.orderID),
		NotFound: v.notFound,
		Error:    v.err,
	}
	if v.detail != nil {
		detail := *v.detail
		snap.Detail = &detail
		snap.Tone = models.StatusTone(detail.Status)
	}
	return snap
}

func lookupQuery(orderID string) string {
	if strings.TrimSpace(orderID) == "" {
		return ""
	}
	return url.Values{lookupQueryKey: {orderID}}.Encode()
}

func lookupMessage(err error, notFound bool) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Message != "" && appErr.Message != appErrors.ErrNotFound.Message {
		switch appErr.Code {
		case appErrors.ErrNotFound.Code, appErrors.ErrGateway.Code, appErrors.ErrUnauthenticated.Code:
			return appErr.Message
		}
	}
	if notFound {
		return MsgTransactionNotFound
	}
	return msgLookupFailed
}
