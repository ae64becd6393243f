package approvals

import (
	"fmt"
	"strings"
)

// Status is a Code Center / Protex approval status.
type Status string

const (
	StatusNotReviewed  Status = "NOT_REVIEWED"
	StatusApproved     Status = "APPROVED"
	StatusPending      Status = "PENDING"
	StatusRejected     Status = "REJECTED"
	StatusMoreInfo     Status = "MOREINFO"
	StatusNotSubmitted Status = "NOTSUBMITTED"
)

// HubStatus is the approval status of a Hub component or component-version.
type HubStatus string

const (
	HubUnreviewed HubStatus = "UNREVIEWED"
	HubApproved   HubStatus = "APPROVED"
	HubRejected   HubStatus = "REJECTED"
)

var statusMap = map[Status]HubStatus{
	StatusNotReviewed:  HubUnreviewed,
	StatusApproved:     HubApproved,
	StatusPending:      HubUnreviewed,
	StatusRejected:     HubRejected,
	StatusMoreInfo:     HubUnreviewed,
	StatusNotSubmitted: HubUnreviewed,
}

// ParseStatus accepts the status exactly as the export writes it.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if _, ok := statusMap[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// HubStatus maps the legacy status onto the Hub's three-valued status.
func (s Status) HubStatus() HubStatus {
	return statusMap[s]
}
