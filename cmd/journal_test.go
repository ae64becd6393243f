package cmd

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sw33tLie/protexsync/pkg/approvals"
	"github.com/sw33tLie/protexsync/pkg/bom"
	"github.com/sw33tLie/protexsync/pkg/snippets"
	"github.com/sw33tLie/protexsync/pkg/storage"
)

func TestSnippetJournalRows(t *testing.T) {
	summary := snippets.Summary{
		Confirmed:  2,
		Failed:     1,
		Unresolved: 1,
		Switched:   1,
		Items: []snippets.ItemResult{
			{Path: "a.c", Outcome: snippets.OutcomeConfirmed, Resolution: snippets.ResolutionIdentical},
			{Path: "b.c", Outcome: snippets.OutcomeConfirmed, Resolution: snippets.ResolutionAlternate},
			{Path: "c.c", Outcome: snippets.OutcomeFailed, Resolution: snippets.ResolutionOverride, Err: errors.New("boom")},
			{Path: "d.c", Outcome: snippets.OutcomeUnresolved},
		},
	}

	got := snippetCounts(summary)
	want := storage.Counts{Succeeded: 2, Failed: 1, Unresolved: 1}
	if got != want {
		t.Fatalf("counts: want %+v, got %+v", want, got)
	}

	outcomes := snippetOutcomes(summary)
	wantOutcomes := []storage.Outcome{
		{Key: "a.c", Outcome: "confirmed", Detail: "identical"},
		{Key: "b.c", Outcome: "confirmed", Detail: "alternate"},
		{Key: "c.c", Outcome: "failed", Detail: "boom"},
		{Key: "d.c", Outcome: "unresolved", Detail: ""},
	}
	if !reflect.DeepEqual(outcomes, wantOutcomes) {
		t.Fatalf("outcomes:\nwant: %#v\ngot:  %#v", wantOutcomes, outcomes)
	}
}

func TestApprovalJournalRows(t *testing.T) {
	rec := func(name string, st approvals.Status) approvals.Record {
		return approvals.Record{ComponentName: name, ComponentVersion: "1.0", ApprovalStatus: st}
	}
	report := &approvals.Report{
		Updated:    []approvals.Record{rec("a", approvals.StatusApproved)},
		Equivalent: []approvals.Record{rec("b", approvals.StatusPending), rec("c", approvals.StatusMoreInfo)},
		Conflicts:  []approvals.Record{rec("d", approvals.StatusApproved), rec("d", approvals.StatusRejected)},
		Skipped:    []approvals.SkippedRow{{Line: 7, Err: approvals.ErrMissingField}},
	}

	got := approvalCounts(report)
	want := storage.Counts{Succeeded: 1, Unchanged: 2, Skipped: 1, Unresolved: 2}
	if got != want {
		t.Fatalf("counts: want %+v, got %+v", want, got)
	}

	outcomes := approvalOutcomes(report)
	if len(outcomes) != 6 {
		t.Fatalf("expected 6 outcomes, got %d", len(outcomes))
	}
	if outcomes[0] != (storage.Outcome{Key: "a:1.0", Outcome: "updated", Detail: "APPROVED"}) {
		t.Fatalf("unexpected first outcome %+v", outcomes[0])
	}
	if last := outcomes[5]; last.Key != "line 7" || last.Outcome != "skipped" {
		t.Fatalf("unexpected skipped outcome %+v", last)
	}
}

func TestRefreshIndex(t *testing.T) {
	stale := bom.SnippetMatch{Path: "b.c", Raw: `{"candidate":"libbar"}`, ReviewStatus: bom.ReviewStatusNotReviewed, HasReviewStatus: true}
	index := map[string]bom.SnippetMatch{
		"a.c": {Path: "a.c", ReviewStatus: bom.ReviewStatusNotReviewed, HasReviewStatus: true},
		"b.c": stale,
		"c.c": {Path: "c.c", ReviewStatus: bom.ReviewStatusNotReviewed, HasReviewStatus: true},
	}
	switched := stale
	switched.Raw = `{"candidate":"libfoo"}`

	refreshIndex(index, snippets.Summary{Items: []snippets.ItemResult{
		{Path: "a.c", Outcome: snippets.OutcomeConfirmed, Snippet: bom.SnippetMatch{Path: "a.c", ReviewStatus: bom.ReviewStatusReviewed, HasReviewStatus: true}},
		// switch applied, confirm failed
		{Path: "b.c", Outcome: snippets.OutcomeFailed, Resolution: snippets.ResolutionAlternate, Snippet: switched},
		{Path: "c.c", Outcome: snippets.OutcomeFailed},
		{Path: "missing.c", Outcome: snippets.OutcomeConfirmed, Snippet: bom.SnippetMatch{Path: "missing.c"}},
	}})

	if index["a.c"].ReviewStatus != bom.ReviewStatusReviewed {
		t.Fatalf("confirmed path should be marked reviewed")
	}
	if index["b.c"].Raw != switched.Raw || index["b.c"].ReviewStatus != bom.ReviewStatusNotReviewed {
		t.Fatalf("switched path should carry the switched entry, got %+v", index["b.c"])
	}
	if index["c.c"].ReviewStatus != bom.ReviewStatusNotReviewed || !index["c.c"].HasReviewStatus {
		t.Fatalf("items without a snippet state must leave the index alone, got %+v", index["c.c"])
	}
	if _, ok := index["missing.c"]; ok {
		t.Fatalf("refreshIndex must not add paths")
	}
}
