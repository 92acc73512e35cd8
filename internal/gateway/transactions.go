package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/edupay-dashboard/internal/models"
	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
)

// Endpoint labels used for metrics and logs.
const (
	EndpointTransactions = "transactions"
	EndpointSchool       = "transactions_by_school"
	EndpointStatus       = "transaction_status"
	EndpointDummyData    = "dummy_data"
	EndpointLogin        = "auth_login"
	EndpointRegister     = "auth_register"
	EndpointProfile      = "auth_profile"
)

// ListQuery is the gateway's view of a list request.
type ListQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Status    []string
	SchoolIDs []string
	DateFrom  string
	DateTo    string
	Search    string
}

// values renders the query string. School IDs are omitted for the per-school endpoint.
func (q ListQuery) values(includeSchools bool) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
		v.Set("sortOrder", q.SortOrder)
	}
	for _, s := range q.Status {
		v.Add("status", strings.ToLower(s))
	}
	if includeSchools {
		for _, id := range q.SchoolIDs {
			v.Add("school_id", id)
		}
	}
	if q.DateFrom != "" {
		v.Set("dateFrom", q.DateFrom)
	}
	if q.DateTo != "" {
		v.Set("dateTo", q.DateTo)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

type listEnvelope struct {
	Data       []models.TransactionRow `json:"data"`
	Pagination *models.PageResult      `json:"pagination"`
}

func (e listEnvelope) page() models.TransactionPage {
	page := models.TransactionPage{Rows: e.Data, Pagination: models.DefaultPageResult()}
	if page.Rows == nil {
		page.Rows = []models.TransactionRow{}
	}
	if e.Pagination != nil {
		page.Pagination = e.Pagination.Normalize()
	}
	return page
}

// FetchTransactions lists transactions across schools.
func (c *Client) FetchTransactions(ctx context.Context, q ListQuery) (models.TransactionPage, error) {
	var env listEnvelope
	if err := c.do(ctx, EndpointTransactions, http.MethodGet, "/transactions", q.values(true), nil, &env); err != nil {
		return models.TransactionPage{}, err
	}
	return env.page(), nil
}

// FetchTransactionsBySchool lists transactions for one school.
func (c *Client) FetchTransactionsBySchool(ctx context.Context, schoolID string, q ListQuery) (models.TransactionPage, error) {
	schoolID = strings.TrimSpace(schoolID)
	if schoolID == "" {
		return models.TransactionPage{}, appErrors.Clone(appErrors.ErrValidation, "school id is required")
	}
	var env listEnvelope
	path := "/transactions/school/" + url.PathEscape(schoolID)
	if err := c.do(ctx, EndpointSchool, http.MethodGet, path, q.values(false), nil, &env); err != nil {
		return models.TransactionPage{}, err
	}
	return env.page(), nil
}

type statusPayload struct {
	OrderID           string          `json:"order_id"`
	Status            string          `json:"status"`
	PaymentDetails    string          `json:"payment_details"`
	PaymentTime       string          `json:"payment_time"`
	OrderAmount       decimal.Decimal `json:"order_amount"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	BankReference     string          `json:"bank_reference"`
	PaymentMessage    *string         `json:"payment_message"`
	PaymentMode       string          `json:"payment_mode"`
}

// FetchTransactionByOrderID looks up one transaction by its custom order id.
// The gateway answers either with an enveloped {data: {...}} or the bare record.
func (c *Client) FetchTransactionByOrderID(ctx context.Context, orderID string) (models.TransactionDetail, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return models.TransactionDetail{}, appErrors.Clone(appErrors.ErrValidation, "order id is required")
	}

	var raw json.RawMessage
	path := "/transactions/status/" + url.PathEscape(orderID)
	if err := c.do(ctx, EndpointStatus, http.MethodGet, path, nil, nil, &raw); err != nil {
		return models.TransactionDetail{}, err
	}

	body := []byte(raw)
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		trimmed := bytes.TrimSpace(env.Data)
		if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			body = trimmed
		}
	}

	var p statusPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return models.TransactionDetail{}, appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "malformed transaction status")
	}

	detail := models.TransactionDetail{
		OrderID:           p.OrderID,
		Status:            p.Status,
		PaymentDetails:    p.PaymentDetails,
		PaymentTime:       p.PaymentTime,
		OrderAmount:       p.OrderAmount,
		TransactionAmount: p.TransactionAmount,
		BankReference:     p.BankReference,
		PaymentMode:       p.PaymentMode,
	}
	if p.PaymentMessage != nil {
		detail.PaymentMessage = *p.PaymentMessage
	} else {
		detail.PaymentMessage = p.PaymentDetails
	}
	if detail.OrderID == "" {
		detail.OrderID = orderID
	}
	return detail, nil
}

// CreateDummyData asks the gateway to seed sample transactions.
func (c *Client) CreateDummyData(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, EndpointDummyData, http.MethodPost, "/transactions/dummy-data", nil, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
