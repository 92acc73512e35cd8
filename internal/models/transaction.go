package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state reported by the payments gateway.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "Pending"
	StatusSuccess TransactionStatus = "Success"
	StatusFailed  TransactionStatus = "Failed"
)

// ParseTransactionStatus resolves a status case-insensitively.
func ParseTransactionStatus(raw string) (TransactionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending, true
	case "success":
		return StatusSuccess, true
	case "failed":
		return StatusFailed, true
	default:
		return "", false
	}
}

// StudentInfo is attached to a transaction when the gateway knows the payer.
type StudentInfo struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TransactionRow is one line of the transaction list. CollectID is the identity key.
type TransactionRow struct {
	CollectID         string          `json:"collect_id"`
	SchoolID          string          `json:"school_id"`
	Gateway           string          `json:"gateway"`
	OrderAmount       decimal.Decimal `json:"order_amount"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	Status            string          `json:"status"`
	CustomOrderID     string          `json:"custom_order_id"`
	PaymentTime       string          `json:"payment_time,omitempty"`
	PaymentMode       string          `json:"payment_mode,omitempty"`
	BankReference     string          `json:"bank_reference,omitempty"`
	StudentInfo       *StudentInfo    `json:"student_info,omitempty"`
}

// HasStatus reports whether the row's status matches s ignoring case.
func (r TransactionRow) HasStatus(s TransactionStatus) bool {
	return strings.EqualFold(strings.TrimSpace(r.Status), string(s))
}

// TransactionDetail is the full record returned by the status lookup.
type TransactionDetail struct {
	OrderID           string          `json:"order_id"`
	Status            string          `json:"status"`
	PaymentDetails    string          `json:"payment_details,omitempty"`
	PaymentTime       string          `json:"payment_time,omitempty"`
	OrderAmount       decimal.Decimal `json:"order_amount"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	BankReference     string          `json:"bank_reference,omitempty"`
	PaymentMessage    string          `json:"payment_message,omitempty"`
	PaymentMode       string          `json:"payment_mode,omitempty"`
}

// PageResult is the pagination block returned alongside a list of rows.
type PageResult struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// DefaultPageResult is used when the gateway omits pagination.
func DefaultPageResult() PageResult {
	return PageResult{CurrentPage: 1, TotalPages: 1}
}

// Normalize clamps negative counters and derives the navigation flags from
// CurrentPage and TotalPages so they can never disagree.
func (p PageResult) Normalize() PageResult {
	if p.CurrentPage < 1 {
		p.CurrentPage = 1
	}
	if p.TotalPages < 0 {
		p.TotalPages = 0
	}
	if p.TotalCount < 0 {
		p.TotalCount = 0
	}
	p.HasNextPage = p.CurrentPage < p.TotalPages
	p.HasPrevPage = p.CurrentPage > 1
	return p
}

// CanGoTo reports whether page is a valid navigation target.
func (p PageResult) CanGoTo(page int) bool {
	return page >= 1 && page <= p.TotalPages
}

// TransactionPage is a decoded list response.
type TransactionPage struct {
	Rows       []TransactionRow `json:"data"`
	Pagination PageResult       `json:"pagination"`
}
