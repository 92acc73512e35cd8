package dto

import (
	"time"

	"github.com/noah-isme/edupay-dashboard/internal/models"
	"github.com/noah-isme/edupay-dashboard/internal/querystate"
)

// Notification is a transient toast raised by a view.
type Notification struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// ListSnapshot is the render-ready state of a transaction list view.
type ListSnapshot struct {
	Query         string                  `json:"query"`
	State         querystate.State        `json:"state"`
	Panels        querystate.Panels       `json:"panels"`
	Rows          []models.TransactionRow `json:"rows"`
	Pagination    models.PageResult       `json:"pagination"`
	Loading       bool                    `json:"loading"`
	Error         string                  `json:"error,omitempty"`
	ErrorCode     string                  `json:"errorCode,omitempty"`
	Notifications []Notification          `json:"notifications,omitempty"`
}

// ViewResponse wraps a snapshot with the id of the mounted view.
type ViewResponse struct {
	ViewID   string       `json:"viewId"`
	Snapshot ListSnapshot `json:"snapshot"`
}

// MountViewRequest mounts a list view from a URL query string.
type MountViewRequest struct {
	Query string `json:"query"`
}

// ViewAction types accepted by POST /views/:id/actions.
const (
	ActionSetSearch           = "setSearch"
	ActionSelectSuggestion    = "selectSuggestion"
	ActionSetStatus           = "setStatus"
	ActionSetSchools          = "setSchools"
	ActionSetDateFrom         = "setDateFrom"
	ActionSetDateTo           = "setDateTo"
	ActionSetSortField        = "setSortField"
	ActionSetSortDirection    = "setSortDirection"
	ActionSetPageSize         = "setPageSize"
	ActionGoToPage            = "goToPage"
	ActionReset               = "reset"
	ActionToggleAllSuggestion = "toggleAllSuggestions"
	ActionDismissSuggestions  = "dismissSuggestions"
)

// ViewActionRequest applies one mutation to a mounted view. Value carries a
// string for text actions, a number for page actions and is ignored otherwise;
// Values carries the school id list.
type ViewActionRequest struct {
	Type   string   `json:"type" validate:"required,oneof=setSearch selectSuggestion setStatus setSchools setDateFrom setDateTo setSortField setSortDirection setPageSize goToPage reset toggleAllSuggestions dismissSuggestions"`
	Value  string   `json:"value"`
	Number int      `json:"number"`
	Values []string `json:"values"`
}

// SuggestionsResponse lists autocomplete candidates.
type SuggestionsResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
	Total       int      `json:"total"`
}

// LookupSnapshot is the render-ready state of the single-order lookup.
type LookupSnapshot struct {
	OrderID  string                    `json:"orderId"`
	Query    string                    `json:"query"`
	Detail   *models.TransactionDetail `json:"detail,omitempty"`
	Tone     models.Tone               `json:"tone,omitempty"`
	NotFound bool                      `json:"notFound"`
	Error    string                    `json:"error,omitempty"`
}

// SchoolSnapshot is the render-ready state of the per-school search view.
type SchoolSnapshot struct {
	SchoolID   string                  `json:"schoolId"`
	Search     string                  `json:"search"`
	Page       int                     `json:"page"`
	Query      string                  `json:"query"`
	Rows       []models.TransactionRow `json:"rows"`
	Pagination models.PageResult       `json:"pagination"`
	Error      string                  `json:"error,omitempty"`
}

// ExportResponse points at a rendered export.
type ExportResponse struct {
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expiresAt"`
	Rows      int       `json:"rows"`
}
