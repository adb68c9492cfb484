package store

import (
	"time"

	"github.com/agentuity/go-caselaw/caselaw"
)

// DefaultItemsPerPage is the page size of the cards view.
const DefaultItemsPerPage = 20

type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	// TotalCount is always the length of the filtered view.
	TotalCount int `json:"totalCount"`
}

// Pages returns the number of pages of the filtered view, at least 1.
func (p Pagination) Pages() int {
	if p.ItemsPerPage <= 0 || p.TotalCount == 0 {
		return 1
	}
	return (p.TotalCount + p.ItemsPerPage - 1) / p.ItemsPerPage
}

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
)

// Notification is a transient message for the user. A positive Duration
// clears it automatically.
type Notification struct {
	ID       string           `json:"id"`
	Message  string           `json:"message"`
	Type     NotificationType `json:"type"`
	Duration time.Duration    `json:"duration"`
}

// State is everything the store holds. FilteredCases, Stats and
// Pagination.TotalCount are derived from AllCases and ActiveFilters and are
// never set on their own.
type State struct {
	AllCases         []caselaw.Case         `json:"allCases"`
	FilteredCases    []caselaw.Case         `json:"filteredCases"`
	AvailableFilters caselaw.Facets         `json:"availableFilters"`
	Loading          bool                   `json:"loading"`
	Syncing          bool                   `json:"syncing"`
	ActiveFilters    caselaw.FilterCriteria `json:"activeFilters"`
	Pagination       Pagination             `json:"pagination"`
	Stats            caselaw.Stats          `json:"stats"`
	LastSync         *time.Time             `json:"lastSync"`
	Error            string                 `json:"error"`
	Notification     *Notification          `json:"notification"`
}

// InitialState returns an empty state with the given page size.
func InitialState(itemsPerPage int) State {
	if itemsPerPage <= 0 {
		itemsPerPage = DefaultItemsPerPage
	}
	return State{
		AllCases:      []caselaw.Case{},
		FilteredCases: []caselaw.Case{},
		Pagination:    Pagination{CurrentPage: 1, ItemsPerPage: itemsPerPage},
		Stats:         caselaw.NewStats(),
	}
}

// Clone returns a deep copy sharing no memory with s.
func (s State) Clone() State {
	out := s
	out.AllCases = caselaw.CloneAll(s.AllCases)
	out.FilteredCases = caselaw.CloneAll(s.FilteredCases)
	out.AvailableFilters = s.AvailableFilters.Clone()
	out.Stats = s.Stats.Clone()
	if s.LastSync != nil {
		at := *s.LastSync
		out.LastSync = &at
	}
	if s.Notification != nil {
		n := *s.Notification
		out.Notification = &n
	}
	return out
}
