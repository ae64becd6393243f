package approvals

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingField  = errors.New("missing required field")
	ErrUnknownStatus = errors.New("unknown approval status")
)

const (
	COL_APPROVAL       = "approval_status"
	COL_COMPONENT      = "component_name"
	COL_VERSION        = "component_version"
	COL_LICENSE        = "kb_license_name"
	COL_COMPONENT_ID   = "kb_component_id"
	COL_RELEASE_ID     = "kb_release_id"
	COL_PROJECT_NAME   = "project_name"
	COL_PROJECT_VER    = "project_version"
	COL_USER_NAME      = "user_name"
	COL_FIRST_NAME     = "first_name"
	COL_LAST_NAME      = "last_name"
	COL_TIME_SUBMITTED = "time_submitted"
	COL_CATALOG_ID     = "catalogid"
	COL_PROJECT_ID     = "projectid"
)

// Columns is the column order of every report file.
var Columns = []string{
	COL_APPROVAL,
	COL_COMPONENT,
	COL_VERSION,
	COL_LICENSE,
	COL_PROJECT_NAME,
	COL_PROJECT_VER,
	COL_USER_NAME,
	COL_FIRST_NAME,
	COL_LAST_NAME,
	COL_TIME_SUBMITTED,
	COL_COMPONENT_ID,
	COL_RELEASE_ID,
	COL_CATALOG_ID,
	COL_PROJECT_ID,
}

var requiredColumns = []string{COL_COMPONENT, COL_VERSION, COL_LICENSE, COL_APPROVAL, COL_COMPONENT_ID, COL_RELEASE_ID}

// Record is one row of the Code Center approval export.
type Record struct {
	ComponentName    string
	ComponentVersion string
	LicenseName      string
	ApprovalStatus   Status
	ComponentID      string
	ReleaseID        string

	ProjectName    string
	ProjectVersion string
	UserName       string
	FirstName      string
	LastName       string
	TimeSubmitted  string
	CatalogID      string
	ProjectID      string

	// Line is the 1-based line of the row in the export, header included.
	Line int
}

// Key groups records describing the same component-version.
func (r Record) Key() string {
	return r.ComponentName + ":" + r.ComponentVersion
}

// HubReleaseID returns the release id to look the component up with; the
// export writes "null" for components without a release.
func (r Record) HubReleaseID() string {
	if r.ReleaseID == "null" {
		return ""
	}
	return r.ReleaseID
}

// RecordFromRow builds a Record from a header->value row.
func RecordFromRow(row map[string]string) (Record, error) {
	for _, col := range requiredColumns {
		if _, ok := row[col]; !ok {
			return Record{}, fmt.Errorf("%w: %s", ErrMissingField, col)
		}
	}
	for _, col := range []string{COL_COMPONENT, COL_APPROVAL, COL_COMPONENT_ID} {
		if strings.TrimSpace(row[col]) == "" {
			return Record{}, fmt.Errorf("%w: %s is empty", ErrMissingField, col)
		}
	}

	status, err := ParseStatus(row[COL_APPROVAL])
	if err != nil {
		return Record{}, err
	}

	return Record{
		ComponentName:    row[COL_COMPONENT],
		ComponentVersion: row[COL_VERSION],
		LicenseName:      row[COL_LICENSE],
		ApprovalStatus:   status,
		ComponentID:      row[COL_COMPONENT_ID],
		ReleaseID:        row[COL_RELEASE_ID],
		ProjectName:      row[COL_PROJECT_NAME],
		ProjectVersion:   row[COL_PROJECT_VER],
		UserName:         row[COL_USER_NAME],
		FirstName:        row[COL_FIRST_NAME],
		LastName:         row[COL_LAST_NAME],
		TimeSubmitted:    row[COL_TIME_SUBMITTED],
		CatalogID:        row[COL_CATALOG_ID],
		ProjectID:        row[COL_PROJECT_ID],
	}, nil
}

// Row renders the record in Columns order.
func (r Record) Row() []string {
	return []string{
		string(r.ApprovalStatus),
		r.ComponentName,
		r.ComponentVersion,
		r.LicenseName,
		r.ProjectName,
		r.ProjectVersion,
		r.UserName,
		r.FirstName,
		r.LastName,
		r.TimeSubmitted,
		r.ComponentID,
		r.ReleaseID,
		r.CatalogID,
		r.ProjectID,
	}
}
