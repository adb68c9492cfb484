// Package caselaw holds the case record model together with the filtering
// and statistics passes the store derives from a record set.
package caselaw

import "slices"

// Case types known to the API.
const (
	TypeOrder    = "Order"
	TypeDecision = "Decision"
)

// Document is a file attached to a case.
type Document struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Language string `json:"language"`
	CaseID   string `json:"case_id"`
}

// Case is a single court case as served by the API.
type Case struct {
	ID                    string     `json:"id"`
	Date                  string     `json:"date"`
	Type                  string     `json:"type"`
	Reference             string     `json:"reference"`
	RegistryNumber        string     `json:"registry_number"`
	CaseNumber            string     `json:"case_number,omitempty"`
	CourtDivision         string     `json:"court_division"`
	TypeOfAction          string     `json:"type_of_action"`
	LanguageOfProceedings string     `json:"language_of_proceedings"`
	Parties               []string   `json:"parties"`
	Patent                string     `json:"patent,omitempty"`
	LegalNorms            []string   `json:"legal_norms"`
	Tags                  []string   `json:"tags"`
	Summary               string     `json:"summary"`
	Documents             []Document `json:"documents"`
}

// Clone returns a deep copy of the case.
func (c Case) Clone() Case {
	c.Parties = slices.Clone(c.Parties)
	c.LegalNorms = slices.Clone(c.LegalNorms)
	c.Tags = slices.Clone(c.Tags)
	c.Documents = slices.Clone(c.Documents)
	return c
}

// CloneAll deep copies a record set. A nil input yields nil.
func CloneAll(cases []Case) []Case {
	if cases == nil {
		return nil
	}
	out := make([]Case, len(cases))
	for i, c := range cases {
		out[i] = c.Clone()
	}
	return out
}

// Facets lists the distinct values available for filtering.
type Facets struct {
	CourtDivisions []string `json:"court_divisions"`
	Languages      []string `json:"languages"`
	Tags           []string `json:"tags"`
	CaseTypes      []string `json:"case_types"`
	ActionTypes    []string `json:"action_types"`
}

// Clone returns a deep copy of the facets.
func (f Facets) Clone() Facets {
	return Facets{
		CourtDivisions: slices.Clone(f.CourtDivisions),
		Languages:      slices.Clone(f.Languages),
		Tags:           slices.Clone(f.Tags),
		CaseTypes:      slices.Clone(f.CaseTypes),
		ActionTypes:    slices.Clone(f.ActionTypes),
	}
}

// Paginate returns the slice of cases shown on a 1-based page.
func Paginate(cases []Case, page, perPage int) []Case {
	if page < 1 || perPage < 1 {
		return []Case{}
	}
	start := (page - 1) * perPage
	if start >= len(cases) {
		return []Case{}
	}
	end := min(start+perPage, len(cases))
	return cases[start:end]
}
