package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edupay-dashboard/internal/models"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
	"github.com/noah-isme/edupay-dashboard/pkg/middleware/requestid"
)

type staticToken string

func (s staticToken) Token(context.Context) string { return string(s) }

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) ObserveGatewayCall(endpoint, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, endpoint+":"+outcome)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL + "/"
	return New(opts)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestFetchTransactionsBuildsQueryAndHeaders(t *testing.T) {
	var got *http.Request
	observer := &recordingObserver{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		writeJSON(w, http.StatusOK, `{
			"data": [{"collect_id":"c1","school_id":"s1","gateway":"PhonePe","order_amount":2000,"transaction_amount":"2100.50","status":"Success","custom_order_id":"ORD-1"}],
			"pagination": {"currentPage":2,"totalPages":5,"totalCount":48,"hasNextPage":false,"hasPrevPage":false}
		}`)
	}, Options{Tokens: staticToken("tok-123"), Observer: observer})

	ctx := requestid.WithValue(context.Background(), "req-9")
	page, err := client.FetchTransactions(ctx, ListQuery{
		Page: 2, Limit: 10, SortBy: "payment_time", SortOrder: "desc",
		Status:    []string{"Success", "Failed"},
		SchoolIDs: []string{"s1", "s2"},
		DateFrom:  "2024-01-01",
		Search:    "ORD",
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/transactions", got.URL.Path)
	assert.Equal(t, "Bearer tok-123", got.Header.Get("Authorization"))
	assert.Equal(t, "req-9", got.Header.Get(requestid.HeaderKey))
	q := got.URL.Query()
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "10", q.Get("limit"))
	assert.Equal(t, "payment_time", q.Get("sortBy"))
	assert.Equal(t, "desc", q.Get("sortOrder"))
	assert.Equal(t, []string{"success", "failed"}, q["status"])
	assert.Equal(t, []string{"s1", "s2"}, q["school_id"])
	assert.Equal(t, "2024-01-01", q.Get("dateFrom"))
	assert.False(t, q.Has("dateTo"))
	assert.Equal(t, "ORD", q.Get("search"))

	require.Len(t, page.Rows, 1)
	assert.True(t, decimal.NewFromFloat(2100.5).Equal(page.Rows[0].TransactionAmount))
	assert.Equal(t, models.PageResult{CurrentPage: 2, TotalPages: 5, TotalCount: 48, HasNextPage: true, HasPrevPage: true}, page.Pagination)
	assert.Equal(t, []string{"transactions:ok"}, observer.calls)
}

func TestFetchTransactionsDefaultsMissingPagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"data": null}`)
	}, Options{})

	page, err := client.FetchTransactions(context.Background(), ListQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.NotNil(t, page.Rows)
	assert.Equal(t, models.DefaultPageResult(), page.Pagination)
}

func TestFetchTransactionsBySchoolOmitsSchoolFilter(t *testing.T) {
	var got *url.URL
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL
		writeJSON(w, http.StatusOK, `{"data": []}`)
	}, Options{})

	_, err := client.FetchTransactionsBySchool(context.Background(), "school 7", ListQuery{Page: 1, Limit: 1000, SchoolIDs: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, "/transactions/school/school 7", got.Path)
	assert.False(t, got.Query().Has("school_id"))

	_, err = client.FetchTransactionsBySchool(context.Background(), "  ", ListQuery{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUnauthorizedInvokesHookAndReturnsTypedError(t *testing.T) {
	hookCalls := 0
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"jwt expired"}`)
	}, Options{Tokens: staticToken("stale"), OnUnauthorized: func(context.Context) { hookCalls++ }})

	_, err := client.FetchTransactions(context.Background(), ListQuery{Page: 1, Limit: 10})

	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)
	assert.Equal(t, 1, hookCalls)
}

func TestErrorMessageDecoding(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		code    string
		message string
	}{
		{"string message", http.StatusBadRequest, `{"message":"limit must be positive"}`, appErrors.ErrGateway.Code, "limit must be positive"},
		{"list message", http.StatusBadRequest, `{"message":["page must be int","limit must be int"]}`, appErrors.ErrGateway.Code, "page must be int; limit must be int"},
		{"no body", http.StatusInternalServerError, ``, appErrors.ErrGateway.Code, "gateway responded with status 500"},
		{"not found", http.StatusNotFound, `{"message":"Transaction not found"}`, appErrors.ErrNotFound.Code, "Transaction not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tc.status, tc.body)
			}, Options{})

			_, err := client.FetchTransactionByOrderID(context.Background(), "ORDER_001")
			appErr := appErrors.FromError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tc.code, appErr.Code)
			assert.Equal(t, tc.message, appErr.Message)
		})
	}
}

func TestTransportFailureIsGatewayUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := New(Options{BaseURL: baseURL, Timeout: time.Second})
	_, err := client.FetchTransactions(context.Background(), ListQuery{Page: 1, Limit: 10})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrGatewayUnavailable.Code))
}

func TestCanceledContextIsReturnedAsIs(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, Options{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := client.FetchTransactions(ctx, ListQuery{Page: 1, Limit: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchTransactionByOrderID(t *testing.T) {
	t.Run("enveloped with message fallback", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transactions/status/ORD-42", r.URL.Path)
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"order_id":"ORD-42","status":"Success","payment_details":"UPI","order_amount":1500,"transaction_amount":1500,"payment_mode":"upi"}}`)
		}, Options{})

		detail, err := client.FetchTransactionByOrderID(context.Background(), " ORD-42 ")
		require.NoError(t, err)
		assert.Equal(t, "ORD-42", detail.OrderID)
		assert.Equal(t, "UPI", detail.PaymentMessage)
		assert.True(t, decimal.NewFromInt(1500).Equal(detail.OrderAmount))
	})

	t.Run("bare record keeps explicit message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"order_id":"ORD-7","status":"Failed","payment_details":"card","payment_message":"declined"}`)
		}, Options{})

		detail, err := client.FetchTransactionByOrderID(context.Background(), "ORD-7")
		require.NoError(t, err)
		assert.Equal(t, "Failed", detail.Status)
		assert.Equal(t, "declined", detail.PaymentMessage)
	})
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
			return
		}
		writeJSON(w, http.StatusCreated, `{"success":true,"data":{"access_token":"jwt","user":{"id":"u1","email":"a@b.c","username":"a","role":"admin","school_id":"s1"}}}`)
	}, Options{})

	resp, err := client.Login(context.Background(), models.LoginRequest{Email: "a@b.c", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.AccessToken)
	assert.Equal(t, "s1", resp.User.SchoolID)

	_, err = client.Login(context.Background(), models.LoginRequest{Email: "a@b.c", Password: "nope"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestProfileAcceptsEnvelopeOrBareUser(t *testing.T) {
	bodies := []string{
		`{"data":{"id":"u1","email":"a@b.c"}}`,
		`{"id":"u1","email":"a@b.c"}`,
	}
	for _, body := range bodies {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, body)
		}, Options{})
		user, err := client.Profile(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
	}
}
