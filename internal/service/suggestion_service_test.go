package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edupay-dashboard/internal/gateway"
	"github.com/noah-isme/edupay-dashboard/internal/models"
	"github.com/noah-isme/edupay-dashboard/internal/session"
)

func TestSuggestionLoaderFetchesOnce(t *testing.T) {
	fetcher := &fakeLister{respond: func(context.Context, gateway.ListQuery) (models.TransactionPage, error) {
		return pageOf(
			models.TransactionRow{SchoolID: "65b0e6", CustomOrderID: "ORD-1"},
			models.TransactionRow{SchoolID: "77aa01", CustomOrderID: ""},
			models.TransactionRow{SchoolID: "65b0e6", CustomOrderID: "ORD-2"},
		), nil
	}}
	loader := NewSuggestionLoader(fetcher, SchoolIDs, 0, nil)

	assert.Equal(t, []string{"65b0e6", "77aa01"}, loader.Load(context.Background()))
	assert.Equal(t, []string{"77aa01"}, loader.Match(context.Background(), "7AA"))

	calls := fetcher.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, gateway.ListQuery{Page: 1, Limit: DefaultSuggestionLimit, SortBy: "payment_time", SortOrder: "desc"}, calls[0])
}

func TestSuggestionLoaderProjectsOrderIDs(t *testing.T) {
	rows := []models.TransactionRow{
		{CustomOrderID: "ORD-1"}, {CustomOrderID: ""}, {CustomOrderID: "ORD-1"}, {CustomOrderID: "ORD-9"},
	}
	assert.Equal(t, []string{"ORD-1", "ORD-9"}, Distinct(rows, OrderIDs))
}

func TestSuggestionLoaderSwallowsErrorsAndRetriesLater(t *testing.T) {
	fail := true
	fetcher := &fakeLister{respond: func(context.Context, gateway.ListQuery) (models.TransactionPage, error) {
		if fail {
			return models.TransactionPage{}, errors.New("gateway down")
		}
		return pageOf(models.TransactionRow{SchoolID: "s1"}), nil
	}}
	loader := NewSuggestionLoader(fetcher, SchoolIDs, 50, nil)

	assert.Empty(t, loader.Load(context.Background()))
	fail = false
	assert.Equal(t, []string{"s1"}, loader.Load(context.Background()))
	assert.Equal(t, 50, fetcher.calls()[0].Limit)
	assert.Len(t, fetcher.calls(), 2)
}

func TestMatchSuggestions(t *testing.T) {
	values := []string{"ABC-1", "abd-2", "xyz"}
	assert.Equal(t, values, MatchSuggestions(values, "  "))
	assert.Equal(t, []string{"ABC-1", "abd-2"}, MatchSuggestions(values, "ab"))
	assert.Empty(t, MatchSuggestions(values, "nope"))
}

func TestSuggestionLoaderForgetsValuesAfterSignOut(t *testing.T) {
	owner := "ALICE"
	fetcher := &fakeLister{respond: func(context.Context, gateway.ListQuery) (models.TransactionPage, error) {
		return pageOf(models.TransactionRow{CustomOrderID: owner + "_ORDER_1"}), nil
	}}
	loader := NewSuggestionLoader(fetcher, OrderIDs, 0, nil)

	assert.Equal(t, []string{"ALICE_ORDER_1"}, loader.Load(context.Background()))
	assert.True(t, loader.Cached())

	loader.HandleSessionEvent(session.Event{Type: session.EventSignedIn, Reason: session.ReasonLogin})
	assert.True(t, loader.Cached())

	loader.HandleSessionEvent(session.Event{Type: session.EventSignedOut, Reason: session.ReasonUnauthorized})
	assert.False(t, loader.Cached())

	owner = "BOB"
	assert.Equal(t, []string{"BOB_ORDER_1"}, loader.Load(context.Background()))
	assert.Len(t, fetcher.calls(), 2)
}
