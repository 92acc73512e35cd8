package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edupay-dashboard/internal/dto"
	"github.com/noah-isme/edupay-dashboard/internal/querystate"
	"github.com/noah-isme/edupay-dashboard/internal/session"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
)

type viewMetrics interface {
	staleRecorder
	ViewMounted(delta int)
}

// ListView is one mounted transaction list screen.
type ListView struct {
	ID          string
	Controller  *ListController
	Suggestions *SuggestionLoader

	mu       sync.Mutex
	lastSeen time.Time
}

func (v *ListView) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *ListView) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

// Apply performs one user action against the view's store.
func (v *ListView) Apply(action dto.ViewActionRequest) error {
	store := v.Controller.Store()
	var err error
	switch action.Type {
	case dto.ActionSetSearch:
		store.SetSearchText(action.Value)
	case dto.ActionSelectSuggestion:
		store.SelectSuggestion(action.Value)
	case dto.ActionSetStatus:
		err = store.SetStatusFilter(action.Value)
	case dto.ActionSetSchools:
		err = store.SetSchoolFilter(action.Values...)
	case dto.ActionSetDateFrom:
		err = store.SetDateFrom(action.Value)
	case dto.ActionSetDateTo:
		err = store.SetDateTo(action.Value)
	case dto.ActionSetSortField:
		err = store.SetSortField(action.Value)
	case dto.ActionSetSortDirection:
		err = store.SetSortDirection(action.Value)
	case dto.ActionSetPageSize:
		err = store.SetPageSize(action.Number)
	case dto.ActionGoToPage:
		err = v.Controller.GoToPage(action.Number)
	case dto.ActionReset:
		store.Reset()
	case dto.ActionToggleAllSuggestion:
		store.ToggleAllSuggestions()
	case dto.ActionDismissSuggestions:
		store.DismissSuggestions()
	default:
		err = fmt.Errorf("unknown action %q", action.Type)
	}
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*appErrors.Error); ok {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
}

// ViewRegistryConfig tunes view lifetime.
type ViewRegistryConfig struct {
	IdleTTL         time.Duration
	SuggestionLimit int
}

// ViewRegistry owns every mounted list view of the process.
type ViewRegistry struct {
	fetcher    TransactionLister
	dispatcher Dispatcher
	metrics    viewMetrics
	logger     *zap.Logger
	cfg        ViewRegistryConfig
	now        func() time.Time

	mu    sync.Mutex
	views map[string]*ListView
}

// NewViewRegistry constructs an empty registry.
func NewViewRegistry(fetcher TransactionLister, dispatcher Dispatcher, metrics viewMetrics, cfg ViewRegistryConfig, logger *zap.Logger) *ViewRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	return &ViewRegistry{
		fetcher:    fetcher,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
		views:      make(map[string]*ListView),
	}
}

// Mount parses rawQuery into a fresh view and issues its first fetch.
func (r *ViewRegistry) Mount(rawQuery string) (*ListView, error) {
	store, err := querystate.NewStoreFromQuery(rawQuery)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query string")
	}

	var stale staleRecorder
	if r.metrics != nil {
		stale = r.metrics
	}
	view := &ListView{
		ID:          uuid.NewString(),
		Controller:  NewListController(store, r.fetcher, r.dispatcher, stale, r.logger.With(zap.String("component", "list_controller"))),
		Suggestions: NewSuggestionLoader(r.fetcher, SchoolIDs, r.cfg.SuggestionLimit, r.logger),
		lastSeen:    r.now(),
	}

	r.mu.Lock()
	r.views[view.ID] = view
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.ViewMounted(1)
	}

	view.Controller.Mount()
	r.logger.Debug("view mounted", zap.String("view_id", view.ID), zap.String("query", rawQuery))
	return view, nil
}

// Get returns a mounted view and marks it as recently used.
func (r *ViewRegistry) Get(id string) (*ListView, error) {
	r.mu.Lock()
	view, ok := r.views[id]
	r.mu.Unlock()
	if !ok {
		return nil, appErrors.ErrViewNotFound
	}
	view.touch(r.now())
	return view, nil
}

// Unmount releases a view and every subscription it holds.
func (r *ViewRegistry) Unmount(id string) error {
	r.mu.Lock()
	view, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()
	if !ok {
		return appErrors.ErrViewNotFound
	}
	r.release(view)
	return nil
}

// Len reports the number of mounted views.
func (r *ViewRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep unmounts views idle for longer than the configured TTL.
func (r *ViewRegistry) Sweep() int {
	cutoff := r.now().Add(-r.cfg.IdleTTL)
	var idle []*ListView

	r.mu.Lock()
	for id, view := range r.views {
		if view.idleSince().Before(cutoff) {
			idle = append(idle, view)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, view := range idle {
		r.release(view)
	}
	if len(idle) > 0 {
		r.logger.Info("swept idle views", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Run sweeps idle views every interval until ctx ends.
func (r *ViewRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll unmounts every view.
func (r *ViewRegistry) CloseAll() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*ListView)
	r.mu.Unlock()
	for _, view := range views {
		r.release(view)
	}
}

// HandleSessionEvent drops all views when the identity goes away; their data
// belonged to the previous user.
func (r *ViewRegistry) HandleSessionEvent(evt session.Event) {
	if evt.Type != session.EventSignedOut {
		return
	}
	r.logger.Info("closing views after sign-out", zap.String("reason", string(evt.Reason)))
	r.CloseAll()
}

func (r *ViewRegistry) release(view *ListView) {
	view.Controller.Close()
	if r.metrics != nil {
		r.metrics.ViewMounted(-1)
	}
}
