package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/edupay-dashboard/internal/gateway"
	"github.com/noah-isme/edupay-dashboard/internal/models"
	"github.com/noah-isme/edupay-dashboard/internal/querystate"
	"github.com/noah-isme/edupay-dashboard/internal/session"
)

// DefaultSuggestionLimit is the size of the bulk fetch behind autocomplete.
const DefaultSuggestionLimit = 1000

// SuggestionProjection picks the field offered as a suggestion.
type SuggestionProjection func(models.TransactionRow) string

// SchoolIDs projects rows to their school id.
func SchoolIDs(row models.TransactionRow) string { return row.SchoolID }

// OrderIDs projects rows to their custom order id.
func OrderIDs(row models.TransactionRow) string { return row.CustomOrderID }

// SuggestionLoader fetches an unfiltered page of transactions once and keeps
// the distinct values of one column. It never refetches on filter changes.
// A failed load is retried on the next call.
type SuggestionLoader struct {
	fetcher TransactionLister
	project SuggestionProjection
	limit   int
	logger  *zap.Logger

	mu     sync.Mutex
	loaded bool
	values []string
}

// NewSuggestionLoader constructs a loader.
func NewSuggestionLoader(fetcher TransactionLister, project SuggestionProjection, limit int, logger *zap.Logger) *SuggestionLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	return &SuggestionLoader{fetcher: fetcher, project: project, limit: limit, logger: logger}
}

// Load returns the distinct values, fetching them on first use. Errors are
// logged and swallowed; the caller gets an empty list.
func (l *SuggestionLoader) Load(ctx context.Context) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return append([]string(nil), l.values...)
	}

	page, err := l.fetcher.FetchTransactions(ctx, gateway.ListQuery{
		Page:      1,
		Limit:     l.limit,
		SortBy:    string(querystate.DefaultSortField),
		SortOrder: string(querystate.DefaultDirection),
	})
	if err != nil {
		l.logger.Debug("suggestion fetch failed", zap.Error(err))
		return []string{}
	}

	l.values = Distinct(page.Rows, l.project)
	l.loaded = true
	return append([]string(nil), l.values...)
}

// Cached reports whether the bulk fetch has already succeeded.
func (l *SuggestionLoader) Cached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Reset forgets the loaded values; the next call fetches again.
func (l *SuggestionLoader) Reset() {
	l.mu.Lock()
	l.loaded = false
	l.values = nil
	l.mu.Unlock()
}

// HandleSessionEvent drops values fetched for an identity that has signed out.
func (l *SuggestionLoader) HandleSessionEvent(evt session.Event) {
	if evt.Type == session.EventSignedOut {
		l.Reset()
	}
}

// Match returns the loaded values containing term, ignoring case. A blank
// term returns everything.
func (l *SuggestionLoader) Match(ctx context.Context, term string) []string {
	return MatchSuggestions(l.Load(ctx), term)
}

// Distinct projects rows and keeps the first occurrence of every non-empty value.
func Distinct(rows []models.TransactionRow, project SuggestionProjection) []string {
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		v := strings.TrimSpace(project(row))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// MatchSuggestions filters values by case-insensitive substring.
func MatchSuggestions(values []string, term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if term == "" || strings.Contains(strings.ToLower(v), term) {
			out = append(out, v)
		}
	}
	return out
}
