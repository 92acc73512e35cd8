package querystate

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edupay-dashboard/internal/models"
)

func TestEncodeDefaultIsEmpty(t *testing.T) {
	assert.Empty(t, Encode(Default()))
	assert.Equal(t, "", Default().Query())
}

func TestEncodeWritesOnlyNonDefaults(t *testing.T) {
	st := Default()
	st.Filters.Search = "ORDER 1"
	st.Filters.Status = []models.TransactionStatus{models.StatusSuccess, models.StatusFailed}
	st.Filters.SchoolIDs = []string{"s1", "s2"}
	st.Sort.Direction = Asc
	st.Page = PageRequest{Page: 3, Limit: 50}

	v := Encode(st)

	assert.Equal(t, "ORDER 1", v.Get(KeySearch))
	assert.Equal(t, "Success,Failed", v.Get(KeyStatus))
	assert.Equal(t, "s1,s2", v.Get(KeySchoolIDs))
	assert.Equal(t, "asc", v.Get(KeySortDirection))
	assert.Equal(t, "3", v.Get(KeyPage))
	assert.Equal(t, "50", v.Get(KeyLimit))
	assert.False(t, v.Has(KeySortField))
	assert.False(t, v.Has(KeyDateFrom))
	assert.False(t, v.Has(KeyDateTo))
}

func TestDecodeFallsBackToDefaults(t *testing.T) {
	v := url.Values{}
	v.Set(KeyStatus, "success,bogus,SUCCESS,pending")
	v.Set(KeySchoolIDs, " s1 ,,s1,s2")
	v.Set(KeyDateFrom, "yesterday")
	v.Set(KeyDateTo, "2024-05-31")
	v.Set(KeySortField, "drop table")
	v.Set(KeySortDirection, "DESC")
	v.Set(KeyPage, "-2")
	v.Set(KeyLimit, "1000")

	st := Decode(v)

	assert.Equal(t, []models.TransactionStatus{models.StatusSuccess, models.StatusPending}, st.Filters.Status)
	assert.Equal(t, []string{"s1", "s2"}, st.Filters.SchoolIDs)
	assert.Equal(t, "", st.Filters.DateFrom)
	assert.Equal(t, "2024-05-31", st.Filters.DateTo)
	assert.Equal(t, SortSpec{Field: SortPaymentTime, Direction: Desc}, st.Sort)
	assert.Equal(t, PageRequest{Page: 1, Limit: 10}, st.Page)
}

func TestParseQueryAcceptsLeadingQuestionMark(t *testing.T) {
	st, err := ParseQuery("?search=abc&page=2&limit=30&sortField=gateway")
	require.NoError(t, err)
	assert.Equal(t, "abc", st.Filters.Search)
	assert.Equal(t, PageRequest{Page: 2, Limit: 30}, st.Page)
	assert.Equal(t, SortGateway, st.Sort.Field)

	_, err = ParseQuery("%zz")
	assert.Error(t, err)
}

func TestURLRoundTripAcrossMutations(t *testing.T) {
	s := NewStore(Default())
	steps := []func() error{
		func() error { s.SetSearchText("  school & co  "); return nil },
		func() error { return s.SetStatusFilter("failed") },
		func() error { return s.SetSortField("transaction_amount") },
		func() error { return s.SetSortField("transaction_amount") },
		func() error { return s.SetSortDirection("asc") },
		func() error { return s.SetSchoolFilter("s-1", "s-2", "s-1") },
		func() error { return s.SetDateFrom("2024-01-01") },
		func() error { return s.SetDateTo("2024-12-31") },
		func() error { return s.SetPageSize(30) },
		func() error { return s.GoToPage(7) },
		func() error { s.SelectSuggestion("s-9"); return nil },
		func() error { return s.SetStatusFilter("") },
		func() error { s.Reset(); return nil },
		func() error { return s.GoToPage(2) },
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		parsed, err := ParseQuery(s.Query())
		require.NoError(t, err)
		assert.True(t, parsed.Equal(s.State()), "step %d: %q decoded to %+v, want %+v", i, s.Query(), parsed, s.State())
	}
}

func TestNewStoreFromQuery(t *testing.T) {
	s, err := NewStoreFromQuery("status=Success&page=3")
	require.NoError(t, err)
	assert.Equal(t, 3, s.State().Page.Page)
	assert.Equal(t, "page=3&status=Success", s.Query())
}
