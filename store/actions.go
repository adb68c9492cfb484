package store

import (
	"slices"
	"time"

	"github.com/agentuity/go-caselaw/caselaw"
)

// Action is a named state transition. The set is closed: only the types in
// this file implement it.
type Action interface {
	action()
}

type SetLoading struct{ Loading bool }

type SetSyncing struct{ Syncing bool }

// SetError sets the error slot. An empty message clears it.
type SetError struct{ Message string }

// SetAllCases replaces the record set.
type SetAllCases struct{ Cases []caselaw.Case }

type SetAvailableFilters struct{ Facets caselaw.Facets }

// UpdateCase replaces the record with the same ID. Unknown IDs are ignored.
type UpdateCase struct{ Case caselaw.Case }

// AddCase appends a record.
type AddCase struct{ Case caselaw.Case }

type SetActiveFilters struct{ Criteria caselaw.FilterCriteria }

// UpdateFilter sets a single filter field. Unknown fields are ignored.
type UpdateFilter struct {
	Field caselaw.FilterField
	Value string
}

type ClearFilters struct{}

// SetPagination changes the page pointer and page size. Zero fields are
// left unchanged.
type SetPagination struct {
	CurrentPage  int
	ItemsPerPage int
}

type UpdatePage struct{ Page int }

type SetNotification struct{ Notification Notification }

// ClearNotification removes the notification. With an ID it only removes
// that notification, so a stale timer cannot clear a newer one.
type ClearNotification struct{ ID string }

type SetLastSync struct{ At time.Time }

func (SetLoading) action()          {}
func (SetSyncing) action()          {}
func (SetError) action()            {}
func (SetAllCases) action()         {}
func (SetAvailableFilters) action() {}
func (UpdateCase) action()          {}
func (AddCase) action()             {}
func (SetActiveFilters) action()    {}
func (UpdateFilter) action()        {}
func (ClearFilters) action()        {}
func (SetPagination) action()       {}
func (UpdatePage) action()          {}
func (SetNotification) action()     {}
func (ClearNotification) action()   {}
func (SetLastSync) action()         {}

// Reduce returns the state that follows s once a is applied. It never
// modifies s and the result shares no record memory with a.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetLoading:
		s.Loading = a.Loading
	case SetSyncing:
		s.Syncing = a.Syncing
	case SetError:
		s.Error = a.Message
	case SetAllCases:
		s.AllCases = caselaw.CloneAll(a.Cases)
		if s.AllCases == nil {
			s.AllCases = []caselaw.Case{}
		}
		s = recompute(s)
	case SetAvailableFilters:
		s.AvailableFilters = a.Facets.Clone()
	case UpdateCase:
		index := slices.IndexFunc(s.AllCases, func(c caselaw.Case) bool { return c.ID == a.Case.ID })
		if index == -1 {
			return s
		}
		cases := slices.Clone(s.AllCases)
		cases[index] = a.Case.Clone()
		s.AllCases = cases
		s = recompute(s)
	case AddCase:
		cases := make([]caselaw.Case, len(s.AllCases), len(s.AllCases)+1)
		copy(cases, s.AllCases)
		s.AllCases = append(cases, a.Case.Clone())
		s = recompute(s)
	case SetActiveFilters:
		s.ActiveFilters = a.Criteria
		s = refilter(s)
	case UpdateFilter:
		criteria, ok := s.ActiveFilters.With(a.Field, a.Value)
		if !ok {
			return s
		}
		s.ActiveFilters = criteria
		s = refilter(s)
	case ClearFilters:
		s.ActiveFilters = caselaw.FilterCriteria{}
		s = refilter(s)
	case SetPagination:
		if a.CurrentPage > 0 {
			s.Pagination.CurrentPage = a.CurrentPage
		}
		if a.ItemsPerPage > 0 {
			s.Pagination.ItemsPerPage = a.ItemsPerPage
		}
	case UpdatePage:
		s.Pagination.CurrentPage = max(a.Page, 1)
	case SetNotification:
		n := a.Notification
		s.Notification = &n
	case ClearNotification:
		if s.Notification != nil && (a.ID == "" || s.Notification.ID == a.ID) {
			s.Notification = nil
		}
	case SetLastSync:
		at := a.At
		s.LastSync = &at
	}
	return s
}

// recompute derives the filtered view and statistics from the record set.
func recompute(s State) State {
	s.FilteredCases = caselaw.Filter(s.AllCases, s.ActiveFilters)
	s.Stats = caselaw.ComputeStats(s.AllCases)
	s.Pagination.TotalCount = len(s.FilteredCases)
	return s
}

// refilter derives the filtered view after a filter change and moves back
// to the first page.
func refilter(s State) State {
	s.FilteredCases = caselaw.Filter(s.AllCases, s.ActiveFilters)
	s.Pagination.TotalCount = len(s.FilteredCases)
	s.Pagination.CurrentPage = 1
	return s
}
