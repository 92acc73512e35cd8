package querystate

import (
	"slices"
	"strings"
	"sync"

	"github.com/noah-isme/edupay-dashboard/internal/models"
)

// Panels tracks the autocomplete dropdowns of a view. Panel flags are view
// state only: they never reach the URL and never trigger a fetch.
type Panels struct {
	SuggestionsOpen    bool `json:"suggestionsOpen"`
	AllSuggestionsOpen bool `json:"allSuggestionsOpen"`
}

// Change is delivered to subscribers after every data mutation.
type Change struct {
	Version uint64
	State   State
	Query   string
}

// Listener observes store changes. Listeners run synchronously on the
// mutating goroutine and must not mutate the store themselves.
type Listener func(Change)

// Store is the single source of truth for one view's query state. Every
// mutation goes through one path: update state, project the URL, then notify
// subscribers exactly once.
type Store struct {
	// deliver serialises mutate+notify so subscribers observe changes in
	// the order they were applied.
	deliver sync.Mutex

	mu        sync.RWMutex
	state     State
	panels    Panels
	query     string
	version   uint64
	listeners map[uint64]Listener
	nextID    uint64
}

// NewStore creates a store seeded with initial.
func NewStore(initial State) *Store {
	s := &Store{
		state:     initial.clone(),
		listeners: make(map[uint64]Listener),
	}
	s.query = s.state.Query()
	return s
}

// NewStoreFromQuery mounts a store from a URL query string. This is the only
// place a URL is parsed back into state.
func NewStoreFromQuery(raw string) (*Store, error) {
	st, err := ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	return NewStore(st), nil
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Query returns the current URL projection.
func (s *Store) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Panels returns the suggestion panel flags.
func (s *Store) Panels() Panels {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panels
}

// Version increments on every data mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers fn and returns its unsubscribe func, which is safe to
// call more than once.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// SetSearchText replaces the free-text search and opens the suggestion panel
// while the text is non-empty.
func (s *Store) SetSearchText(text string) {
	s.mutate(func(st *State, p *Panels) error {
		st.Filters.Search = text
		p.SuggestionsOpen = len(text) > 0
		return nil
	})
}

// SelectSuggestion commits a suggestion as the search text and closes both panels.
func (s *Store) SelectSuggestion(value string) {
	s.mutate(func(st *State, p *Panels) error {
		st.Filters.Search = value
		p.SuggestionsOpen = false
		p.AllSuggestionsOpen = false
		return nil
	})
}

// SetStatusFilter filters on a single status; an empty string clears the filter.
func (s *Store) SetStatusFilter(status string) error {
	var next []models.TransactionStatus
	if strings.TrimSpace(status) != "" {
		st, ok := models.ParseTransactionStatus(status)
		if !ok {
			return ErrInvalidStatus
		}
		next = []models.TransactionStatus{st}
	}
	return s.mutate(func(st *State, _ *Panels) error {
		st.Filters.Status = next
		return nil
	})
}

// SetSchoolFilter restricts the list to the given schools; no ids clears it.
func (s *Store) SetSchoolFilter(ids ...string) error {
	var next []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || strings.Contains(id, ",") {
			return ErrInvalidSchoolID
		}
		if !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	return s.mutate(func(st *State, _ *Panels) error {
		st.Filters.SchoolIDs = next
		return nil
	})
}

// SetDateFrom sets the inclusive lower date bound; "" clears it.
func (s *Store) SetDateFrom(date string) error {
	date = strings.TrimSpace(date)
	if !validDate(date) {
		return ErrInvalidDate
	}
	return s.mutate(func(st *State, _ *Panels) error {
		st.Filters.DateFrom = date
		return nil
	})
}

// SetDateTo sets the inclusive upper date bound; "" clears it.
func (s *Store) SetDateTo(date string) error {
	date = strings.TrimSpace(date)
	if !validDate(date) {
		return ErrInvalidDate
	}
	return s.mutate(func(st *State, _ *Panels) error {
		st.Filters.DateTo = date
		return nil
	})
}

// SetSortField sorts by field. Picking the current field flips the direction;
// a new field starts ascending.
func (s *Store) SetSortField(field string) error {
	f, ok := ParseSortField(field)
	if !ok {
		return ErrInvalidSortField
	}
	return s.mutate(func(st *State, _ *Panels) error {
		if st.Sort.Field == f {
			st.Sort.Direction = st.Sort.Direction.Flip()
		} else {
			st.Sort = SortSpec{Field: f, Direction: Asc}
		}
		return nil
	})
}

// SetSortDirection sets the direction without touching the field or the page.
func (s *Store) SetSortDirection(direction string) error {
	d, ok := ParseDirection(direction)
	if !ok {
		return ErrInvalidDirection
	}
	return s.mutateKeepPage(func(st *State, _ *Panels) error {
		st.Sort.Direction = d
		return nil
	})
}

// SetPageSize changes the number of rows per page.
func (s *Store) SetPageSize(n int) error {
	if !ValidPageSize(n) {
		return ErrInvalidPageSize
	}
	return s.mutate(func(st *State, _ *Panels) error {
		st.Page.Limit = n
		return nil
	})
}

// GoToPage moves to page n. The upper bound is not checked here: callers
// gate navigation on the last PageResult.
func (s *Store) GoToPage(n int) error {
	if n < 1 {
		return ErrInvalidPage
	}
	return s.mutateKeepPage(func(st *State, _ *Panels) error {
		st.Page.Page = n
		return nil
	})
}

// Reset restores every field to its default and closes the panels.
func (s *Store) Reset() {
	s.mutate(func(st *State, p *Panels) error {
		*st = Default()
		*p = Panels{}
		return nil
	})
}

// ToggleAllSuggestions opens or closes the "show all" suggestion panel.
func (s *Store) ToggleAllSuggestions() {
	s.mu.Lock()
	s.panels.AllSuggestionsOpen = !s.panels.AllSuggestionsOpen
	s.mu.Unlock()
}

// DismissSuggestions closes both suggestion panels.
func (s *Store) DismissSuggestions() {
	s.mu.Lock()
	s.panels = Panels{}
	s.mu.Unlock()
}

func (s *Store) mutate(fn func(*State, *Panels) error) error {
	return s.apply(fn, true)
}

func (s *Store) mutateKeepPage(fn func(*State, *Panels) error) error {
	return s.apply(fn, false)
}

func (s *Store) apply(fn func(*State, *Panels) error, resetPage bool) error {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	next := s.state.clone()
	panels := s.panels
	if err := fn(&next, &panels); err != nil {
		s.mu.Unlock()
		return err
	}
	if resetPage {
		next.Page.Page = 1
	}
	s.state = next
	s.panels = panels
	s.query = next.Query()
	s.version++
	change := Change{Version: s.version, State: next.clone(), Query: s.query}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(change)
	}
	return nil
}
