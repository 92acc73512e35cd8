package querystate

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/noah-isme/edupay-dashboard/internal/models"
)

// URL query keys owned by the list view.
const (
	KeySearch        = "search"
	KeyStatus        = "status"
	KeySchoolIDs     = "schoolIds"
	KeyDateFrom      = "dateFrom"
	KeyDateTo        = "dateTo"
	KeySortField     = "sortField"
	KeySortDirection = "sortDirection"
	KeyPage          = "page"
	KeyLimit         = "limit"
)

// Encode projects s onto URL query values. Only fields that differ from
// Default() are written.
func Encode(s State) url.Values {
	v := url.Values{}
	f := s.Filters
	if f.Search != "" {
		v.Set(KeySearch, f.Search)
	}
	if len(f.Status) > 0 {
		v.Set(KeyStatus, strings.Join(f.StatusStrings(), ","))
	}
	if len(f.SchoolIDs) > 0 {
		v.Set(KeySchoolIDs, strings.Join(f.SchoolIDs, ","))
	}
	if f.DateFrom != "" {
		v.Set(KeyDateFrom, f.DateFrom)
	}
	if f.DateTo != "" {
		v.Set(KeyDateTo, f.DateTo)
	}
	if s.Sort.Field != "" && s.Sort.Field != DefaultSortField {
		v.Set(KeySortField, string(s.Sort.Field))
	}
	if s.Sort.Direction != "" && s.Sort.Direction != DefaultDirection {
		v.Set(KeySortDirection, string(s.Sort.Direction))
	}
	if s.Page.Page > 1 {
		v.Set(KeyPage, strconv.Itoa(s.Page.Page))
	}
	if s.Page.Limit != 0 && s.Page.Limit != DefaultLimit {
		v.Set(KeyLimit, strconv.Itoa(s.Page.Limit))
	}
	return v
}

// Query is Encode(s) rendered as a query string without the leading '?'.
func (s State) Query() string {
	return Encode(s).Encode()
}

// Decode rebuilds a State from URL query values. It is used once, when a view
// is mounted; malformed values fall back to their defaults.
func Decode(v url.Values) State {
	s := Default()

	s.Filters.Search = v.Get(KeySearch)
	s.Filters.Status = decodeStatuses(v.Get(KeyStatus))
	s.Filters.SchoolIDs = splitList(v.Get(KeySchoolIDs))
	if d := strings.TrimSpace(v.Get(KeyDateFrom)); validDate(d) {
		s.Filters.DateFrom = d
	}
	if d := strings.TrimSpace(v.Get(KeyDateTo)); validDate(d) {
		s.Filters.DateTo = d
	}

	if f, ok := ParseSortField(v.Get(KeySortField)); ok {
		s.Sort.Field = f
	}
	if d, ok := ParseDirection(v.Get(KeySortDirection)); ok {
		s.Sort.Direction = d
	}

	if p, err := strconv.Atoi(v.Get(KeyPage)); err == nil && p >= 1 {
		s.Page.Page = p
	}
	if l, err := strconv.Atoi(v.Get(KeyLimit)); err == nil && ValidPageSize(l) {
		s.Page.Limit = l
	}
	return s
}

// ParseQuery decodes a raw query string, with or without a leading '?'.
func ParseQuery(raw string) (State, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return Default(), err
	}
	return Decode(values), nil
}

func decodeStatuses(raw string) []models.TransactionStatus {
	var out []models.TransactionStatus
	for _, part := range splitList(raw) {
		st, ok := models.ParseTransactionStatus(part)
		if !ok || slices.Contains(out, st) {
			continue
		}
		out = append(out, st)
	}
	return out
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		p := strings.TrimSpace(part)
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}
