// Package querystate holds the filter, sort and pagination tuple that drives a
// transaction list view, and its projection to and from a URL query string.
package querystate

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/noah-isme/edupay-dashboard/internal/models"
)

// SortField is a column the gateway can order transactions by.
type SortField string

const (
	SortCollectID         SortField = "collect_id"
	SortSchoolID          SortField = "school_id"
	SortGateway           SortField = "gateway"
	SortOrderAmount       SortField = "order_amount"
	SortTransactionAmount SortField = "transaction_amount"
	SortStatus            SortField = "status"
	SortCustomOrderID     SortField = "custom_order_id"
	SortPaymentTime       SortField = "payment_time"
)

var sortFields = []SortField{
	SortCollectID,
	SortSchoolID,
	SortGateway,
	SortOrderAmount,
	SortTransactionAmount,
	SortStatus,
	SortCustomOrderID,
	SortPaymentTime,
}

// ParseSortField accepts only known column names.
func ParseSortField(raw string) (SortField, bool) {
	f := SortField(strings.TrimSpace(raw))
	if slices.Contains(sortFields, f) {
		return f, true
	}
	return "", false
}

// Direction is the sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "asc" or "desc" in any case.
func ParseDirection(raw string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return "", false
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// DateLayout is the wire format of dateFrom/dateTo.
const DateLayout = "2006-01-02"

// Defaults.
const (
	DefaultLimit     = 10
	DefaultSortField = SortPaymentTime
	DefaultDirection = Desc
)

// PageSizes lists the selectable page sizes.
var PageSizes = []int{5, 10, 30, 50}

// ValidPageSize reports whether n is a selectable page size.
func ValidPageSize(n int) bool {
	return slices.Contains(PageSizes, n)
}

// Validation errors returned by Store mutations.
var (
	ErrInvalidStatus    = errors.New("querystate: unknown status")
	ErrInvalidSortField = errors.New("querystate: unknown sort field")
	ErrInvalidDirection = errors.New("querystate: unknown sort direction")
	ErrInvalidPageSize  = errors.New("querystate: page size must be one of 5, 10, 30, 50")
	ErrInvalidPage      = errors.New("querystate: page must be at least 1")
	ErrInvalidDate      = errors.New("querystate: date must be formatted YYYY-MM-DD")
	ErrInvalidSchoolID  = errors.New("querystate: school id must be non-empty and contain no commas")
)

// FilterSet narrows a transaction query. Treat it as an immutable value.
type FilterSet struct {
	Status    []models.TransactionStatus `json:"status"`
	SchoolIDs []string                   `json:"schoolIds"`
	Search    string                     `json:"search"`
	DateFrom  string                     `json:"dateFrom"`
	DateTo    string                     `json:"dateTo"`
}

func (f FilterSet) clone() FilterSet {
	f.Status = slices.Clone(f.Status)
	f.SchoolIDs = slices.Clone(f.SchoolIDs)
	return f
}

// Equal compares two filter sets, treating nil and empty slices alike.
func (f FilterSet) Equal(o FilterSet) bool {
	return slices.Equal(f.Status, o.Status) &&
		slices.Equal(f.SchoolIDs, o.SchoolIDs) &&
		f.Search == o.Search &&
		f.DateFrom == o.DateFrom &&
		f.DateTo == o.DateTo
}

// StatusStrings returns the status filter as plain strings.
func (f FilterSet) StatusStrings() []string {
	out := make([]string, 0, len(f.Status))
	for _, s := range f.Status {
		out = append(out, string(s))
	}
	return out
}

// SortSpec orders the result set.
type SortSpec struct {
	Field     SortField `json:"field"`
	Direction Direction `json:"direction"`
}

// PageRequest selects one page of results.
type PageRequest struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// State is the canonical tuple behind a list view.
type State struct {
	Filters FilterSet   `json:"filters"`
	Sort    SortSpec    `json:"sort"`
	Page    PageRequest `json:"page"`
}

// Default returns the state of a freshly mounted or reset view.
func Default() State {
	return State{
		Filters: FilterSet{},
		Sort:    SortSpec{Field: DefaultSortField, Direction: DefaultDirection},
		Page:    PageRequest{Page: 1, Limit: DefaultLimit},
	}
}

// Equal compares two states field by field.
func (s State) Equal(o State) bool {
	return s.Filters.Equal(o.Filters) && s.Sort == o.Sort && s.Page == o.Page
}

func (s State) clone() State {
	s.Filters = s.Filters.clone()
	return s
}

func validDate(raw string) bool {
	if raw == "" {
		return true
	}
	_, err := time.Parse(DateLayout, raw)
	return err == nil
}
