package caselaw

import (
	"net/url"
	"strings"
	"time"
)

// FilterField names one field of FilterCriteria.
type FilterField string

const (
	FieldSearchTerm    FilterField = "searchTerm"
	FieldDateFrom      FilterField = "dateFrom"
	FieldDateTo        FilterField = "dateTo"
	FieldCaseType      FilterField = "caseType"
	FieldCourtDivision FilterField = "courtDivision"
	FieldLanguage      FilterField = "language"
)

// FilterFields lists every field in declaration order.
var FilterFields = []FilterField{
	FieldSearchTerm,
	FieldDateFrom,
	FieldDateTo,
	FieldCaseType,
	FieldCourtDivision,
	FieldLanguage,
}

// Valid reports whether f names a known field.
func (f FilterField) Valid() bool {
	switch f {
	case FieldSearchTerm, FieldDateFrom, FieldDateTo, FieldCaseType, FieldCourtDivision, FieldLanguage:
		return true
	}
	return false
}

// FilterCriteria is the set of constraints applied to the record set. An
// empty field places no constraint; non-empty fields are combined with AND.
type FilterCriteria struct {
	SearchTerm    string `json:"searchTerm"`
	DateFrom      string `json:"dateFrom"`
	DateTo        string `json:"dateTo"`
	CaseType      string `json:"caseType"`
	CourtDivision string `json:"courtDivision"`
	Language      string `json:"language"`
}

// IsEmpty reports whether no constraint is set.
func (f FilterCriteria) IsEmpty() bool {
	return f == FilterCriteria{}
}

// With returns a copy of f with one field replaced. Unknown fields leave f
// unchanged and report false.
func (f FilterCriteria) With(field FilterField, value string) (FilterCriteria, bool) {
	switch field {
	case FieldSearchTerm:
		f.SearchTerm = value
	case FieldDateFrom:
		f.DateFrom = value
	case FieldDateTo:
		f.DateTo = value
	case FieldCaseType:
		f.CaseType = value
	case FieldCourtDivision:
		f.CourtDivision = value
	case FieldLanguage:
		f.Language = value
	default:
		return f, false
	}
	return f, true
}

// Params converts the criteria to the API's query parameters.
func (f FilterCriteria) Params() url.Values {
	params := url.Values{}
	set := func(name, value string) {
		if value != "" {
			params.Set(name, value)
		}
	}
	set("search", f.SearchTerm)
	set("date_from", f.DateFrom)
	set("date_to", f.DateTo)
	set("case_type", f.CaseType)
	set("court_division", f.CourtDivision)
	set("language", f.Language)
	return params
}

// Matches reports whether c satisfies every non-empty constraint.
// Dates that cannot be parsed, on either side of a comparison, never exclude
// a case.
func (f FilterCriteria) Matches(c Case) bool {
	if f.SearchTerm != "" {
		if !strings.Contains(searchText(c), strings.ToLower(f.SearchTerm)) {
			return false
		}
	}
	if f.DateFrom != "" {
		if before(c.Date, f.DateFrom) {
			return false
		}
	}
	if f.DateTo != "" {
		if before(f.DateTo, c.Date) {
			return false
		}
	}
	if f.CaseType != "" && c.Type != f.CaseType {
		return false
	}
	if f.CourtDivision != "" && c.CourtDivision != f.CourtDivision {
		return false
	}
	if f.Language != "" && c.LanguageOfProceedings != f.Language {
		return false
	}
	return true
}

// Filter returns the cases matching criteria, preserving order. The result
// never aliases the input slice.
func Filter(cases []Case, criteria FilterCriteria) []Case {
	out := make([]Case, 0, len(cases))
	for _, c := range cases {
		if criteria.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// searchText is the lower-cased concatenation of every searchable field.
func searchText(c Case) string {
	fields := []string{
		c.Reference,
		c.Summary,
		c.Type,
		c.CourtDivision,
		c.RegistryNumber,
		c.LanguageOfProceedings,
		c.TypeOfAction,
		strings.Join(c.Parties, " "),
		strings.Join(c.Tags, " "),
	}
	parts := fields[:0]
	for _, field := range fields {
		if field != "" {
			parts = append(parts, field)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// before reports whether date a is strictly earlier than date b. It is
// false when either side fails to parse.
func before(a, b string) bool {
	ta, ok := ParseDate(a)
	if !ok {
		return false
	}
	tb, ok := ParseDate(b)
	if !ok {
		return false
	}
	return ta.Before(tb)
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01",
}

// ParseDate parses the date formats found in case records. Dates without a
// zone are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
