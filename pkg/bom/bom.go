// Package bom holds the read-only projections of Hub BOM data that the
// reconciliation engines reason about.
package bom

const (
	ReviewStatusNotReviewed = "NOT_REVIEWED"
	ReviewStatusReviewed    = "REVIEWED"
)

// DeclaredComponent is a component entry already present in a version's BOM,
// typically put there by a Protex BOM import.
type DeclaredComponent struct {
	Name        string
	VersionName *string // nil when the BOM entry has no component-version
	ID          string
	VersionID   string // empty when VersionName is nil
}

// Candidate is the component a snippet match currently proposes as its source.
type Candidate struct {
	ProjectName string
	ProjectID   string
	VersionName *string
	VersionID   string
}

// SnippetMatch is a detected snippet match for one source file.
type SnippetMatch struct {
	Path            string
	Name            string
	Candidates      []Candidate
	ReviewStatus    string
	HasReviewStatus bool

	// Raw is the Hub entry as returned by the server. Mutations are applied
	// to it so fields we don't model survive the round trip.
	Raw string
}

// Association pairs a declared component with the snippet match found at one
// of its file paths.
type Association struct {
	Declared DeclaredComponent
	Snippet  SnippetMatch
}

// Label renders "name: version" or just the name when no version is set.
func (d DeclaredComponent) Label() string {
	if d.VersionName == nil {
		return d.Name
	}
	return d.Name + ": " + *d.VersionName
}

func (c Candidate) Label() string {
	if c.VersionName == nil {
		return c.ProjectName
	}
	return c.ProjectName + ": " + *c.VersionName
}

// StrPtr is a small helper for building optional version names.
func StrPtr(s string) *string {
	return &s
}
