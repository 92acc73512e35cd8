package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edupay-dashboard/internal/dto"
	"github.com/noah-isme/edupay-dashboard/internal/gateway"
	"github.com/noah-isme/edupay-dashboard/internal/models"
	"github.com/noah-isme/edupay-dashboard/internal/querystate"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
)

const (
	msgLoadFailed  = "Failed to load transactions"
	maxNotifyQueue = 20
)

// TransactionLister is the gateway surface used by the list view.
type TransactionLister interface {
	FetchTransactions(ctx context.Context, q gateway.ListQuery) (models.TransactionPage, error)
}

type staleRecorder interface {
	RecordStaleResponse()
}

// ListController keeps a list view's rows in step with its query state. Every
// data change issues one fetch; only the most recent fetch may update the view.
type ListController struct {
	store      *querystate.Store
	fetcher    TransactionLister
	dispatcher Dispatcher
	metrics    staleRecorder
	logger     *zap.Logger
	now        func() time.Time

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu            sync.Mutex
	seq           uint64
	cancel        context.CancelFunc
	done          chan struct{}
	loading       bool
	rows          []models.TransactionRow
	page          models.PageResult
	err           *appErrors.Error
	notifications []dto.Notification
	unsubscribe   func()
	closed        bool
}

// NewListController wires a controller to its store. Call Mount to start fetching.
func NewListController(store *querystate.Store, fetcher TransactionLister, dispatcher Dispatcher, metrics staleRecorder, logger *zap.Logger) *ListController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dispatcher == nil {
		dispatcher = InlineDispatcher{}
	}
	baseCtx, cancelBase := context.WithCancel(context.Background())
	return &ListController{
		store:      store,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		baseCtx:    baseCtx,
		cancelBase: cancelBase,
		rows:       []models.TransactionRow{},
		page:       models.DefaultPageResult(),
	}
}

// Mount subscribes to the store and issues the initial fetch.
func (c *ListController) Mount() {
	c.mu.Lock()
	if c.unsubscribe != nil || c.closed {
		c.mu.Unlock()
		return
	}
	c.unsubscribe = c.store.Subscribe(func(change querystate.Change) {
		c.fetch(change.State)
	})
	c.mu.Unlock()
	c.fetch(c.store.State())
}

// Close unsubscribes from the store and cancels any in-flight fetch.
func (c *ListController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.loading = false
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.cancelBase()
}

// Retry re-issues the fetch for the current state.
func (c *ListController) Retry() {
	c.fetch(c.store.State())
}

// ErrPageOutOfRange is returned by GoToPage for targets the current result cannot reach.
var ErrPageOutOfRange = appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "page is out of range")

// GoToPage navigates only within the bounds of the last page result.
func (c *ListController) GoToPage(n int) error {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()
	if !page.CanGoTo(n) {
		return ErrPageOutOfRange
	}
	return c.store.GoToPage(n)
}

// Store exposes the query state the controller follows.
func (c *ListController) Store() *querystate.Store {
	return c.store
}

func (c *ListController) fetch(state querystate.State) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.seq++
	seq := c.seq
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done
	c.loading = true
	c.mu.Unlock()

	task := func() {
		var (
			page models.TransactionPage
			err  error
		)
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("transactions fetch panicked", zap.Uint64("seq", seq), zap.Any("panic", r))
				err = appErrors.Wrap(fmt.Errorf("panic: %v", r), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msgLoadFailed)
			}
			cancel()
			c.settle(seq, state, page, err, done)
		}()
		page, err = c.fetcher.FetchTransactions(ctx, ListQueryFromState(state))
	}
	if err := c.dispatcher.Dispatch(fetchJobType, task); err != nil {
		cancel()
		c.settle(seq, state, models.TransactionPage{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msgLoadFailed), done)
	}
}

func (c *ListController) settle(seq uint64, state querystate.State, page models.TransactionPage, err error, done chan struct{}) {
	defer close(done)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		if c.metrics != nil {
			c.metrics.RecordStaleResponse()
		}
		c.logger.Debug("discarding stale transactions response", zap.Uint64("seq", seq), zap.Uint64("latest", c.seq))
		return
	}
	c.loading = false

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		appErr := viewError(err, msgLoadFailed)
		c.err = appErr
		c.pushNotification("error", appErr.Message)
		c.logger.Warn("transactions fetch failed", zap.Uint64("seq", seq), zap.String("code", appErr.Code), zap.Error(err))
		return
	}

	c.rows = FilterByStatus(page.Rows, state.Filters.Status)
	c.page = page.Pagination
	c.err = nil
}

func (c *ListController) pushNotification(level, message string) {
	c.notifications = append(c.notifications, dto.Notification{Level: level, Message: message, At: c.now().UTC()})
	if len(c.notifications) > maxNotifyQueue {
		c.notifications = c.notifications[len(c.notifications)-maxNotifyQueue:]
	}
}

// Wait blocks until the most recent fetch settles or ctx ends.
func (c *ListController) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		done := c.done
		c.mu.Unlock()
		if done == nil {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.mu.Lock()
		latest := c.done == done
		c.mu.Unlock()
		if latest {
			return nil
		}
	}
}

// Snapshot returns the render-ready view state and drains pending notifications.
func (c *ListController) Snapshot() dto.ListSnapshot {
	state := c.store.State()
	query := c.store.Query()
	panels := c.store.Panels()

	c.mu.Lock()
	defer c.mu.Unlock()
	snap := dto.ListSnapshot{
		Query:         query,
		State:         state,
		Panels:        panels,
		Rows:          append([]models.TransactionRow(nil), c.rows...),
		Pagination:    c.page,
		Loading:       c.loading,
		Notifications: c.notifications,
	}
	if snap.Rows == nil {
		snap.Rows = []models.TransactionRow{}
	}
	if c.err != nil {
		snap.Error = c.err.Message
		snap.ErrorCode = c.err.Code
	}
	c.notifications = nil
	return snap
}

// Rows returns the rows currently displayed.
func (c *ListController) Rows() []models.TransactionRow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.TransactionRow(nil), c.rows...)
}

// FilterByStatus keeps rows whose status matches any of statuses, ignoring
// case. An empty status set keeps everything. Applying it twice is the same
// as applying it once.
func FilterByStatus(rows []models.TransactionRow, statuses []models.TransactionStatus) []models.TransactionRow {
	out := make([]models.TransactionRow, 0, len(rows))
	if len(statuses) == 0 {
		return append(out, rows...)
	}
	for _, row := range rows {
		for _, s := range statuses {
			if row.HasStatus(s) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// ListQueryFromState converts the view state into gateway query parameters.
func ListQueryFromState(st querystate.State) gateway.ListQuery {
	return gateway.ListQuery{
		Page:      st.Page.Page,
		Limit:     st.Page.Limit,
		SortBy:    string(st.Sort.Field),
		SortOrder: string(st.Sort.Direction),
		Status:    st.Filters.StatusStrings(),
		SchoolIDs: append([]string(nil), st.Filters.SchoolIDs...),
		DateFrom:  st.Filters.DateFrom,
		DateTo:    st.Filters.DateTo,
		Search:    st.Filters.Search,
	}
}

// viewError keeps gateway supplied messages and replaces anything else with fallback.
func viewError(err error, fallback string) *appErrors.Error {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fallback)
	}
	switch appErr.Code {
	case appErrors.ErrGateway.Code, appErrors.ErrNotFound.Code, appErrors.ErrUnauthenticated.Code, appErrors.ErrValidation.Code:
		if appErr.Message != "" && appErr.Message != appErrors.ErrNotFound.Message {
			return appErr
		}
	}
	return appErrors.Clone(appErr, fallback)
}
