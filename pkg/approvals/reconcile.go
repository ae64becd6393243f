package approvals

import (
	"errors"
	"fmt"
	"strings"
)

var ErrApprovalConflict = errors.New("approval status conflict")

// ConflictError is returned when a component was approved in one project and
// rejected in another. The whole group has to be resolved by a human.
type ConflictError struct {
	Key     string
	Records []Record
}

func (e *ConflictError) Error() string {
	projects := make([]string, 0, len(e.Records))
	for _, r := range e.Records {
		projects = append(projects, fmt.Sprintf("%s/%s=%s", r.ProjectName, r.ProjectVersion, r.ApprovalStatus))
	}
	return fmt.Sprintf("%v for %s: %s", ErrApprovalConflict, e.Key, strings.Join(projects, ", "))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrApprovalConflict
}

// Group is the set of export records sharing one component:version key, in
// input order.
type Group struct {
	Key     string
	Records []Record
}

// GroupByComponent groups records by Key, keeping first-seen group order and
// input order within each group.
func GroupByComponent(records []Record) []Group {
	idx := make(map[string]int)
	var groups []Group
	for _, r := range records {
		i, ok := idx[r.Key()]
		if !ok {
			i = len(groups)
			idx[r.Key()] = i
			groups = append(groups, Group{Key: r.Key()})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// Reconcile picks the record whose approval status should be pushed to the
// Hub for a group of duplicates:
//   - APPROVED and REJECTED together are a conflict,
//   - otherwise the first APPROVED record,
//   - otherwise the first REJECTED record,
//   - otherwise the first record.
func Reconcile(key string, records []Record) (Record, error) {
	if len(records) == 0 {
		return Record{}, fmt.Errorf("no records for %s", key)
	}

	firstApproved, firstRejected := -1, -1
	for i, r := range records {
		switch r.ApprovalStatus {
		case StatusApproved:
			if firstApproved < 0 {
				firstApproved = i
			}
		case StatusRejected:
			if firstRejected < 0 {
				firstRejected = i
			}
		}
	}

	switch {
	case firstApproved >= 0 && firstRejected >= 0:
		return Record{}, &ConflictError{Key: key, Records: records}
	case firstApproved >= 0:
		return records[firstApproved], nil
	case firstRejected >= 0:
		return records[firstRejected], nil
	}
	return records[0], nil
}
