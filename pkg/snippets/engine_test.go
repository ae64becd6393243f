package snippets

import (
	"context"
	"errors"
	"testing"

	"github.com/sw33tLie/protexsync/pkg/bom"
	"github.com/sw33tLie/protexsync/pkg/hub"
)

// fakeHub keeps snippet state in memory and records every mutation.
type fakeHub struct {
	snippets   map[string]bom.SnippetMatch
	alternates map[string][]bom.Candidate

	confirmStatus int
	confirmErr    error
	lookupErr     error
	switchErr     error
	overrideErr   error

	lookups   []string
	switches  []string
	overrides []string
	confirms  []string
}

func newFakeHub(matches ...bom.SnippetMatch) *fakeHub {
	f := &fakeHub{
		snippets:      map[string]bom.SnippetMatch{},
		alternates:    map[string][]bom.Candidate{},
		confirmStatus: 1,
	}
	for _, m := range matches {
		f.snippets[m.Path] = m
	}
	return f
}

func (f *fakeHub) list() []bom.SnippetMatch {
	var out []bom.SnippetMatch
	for _, s := range f.snippets {
		out = append(out, s)
	}
	return out
}

func (f *fakeHub) mutations() int {
	return len(f.switches) + len(f.overrides) + len(f.confirms)
}

func (f *fakeHub) FindAlternateCandidate(_ context.Context, _, _ string, s bom.SnippetMatch, d bom.DeclaredComponent) (*bom.Candidate, error) {
	f.lookups = append(f.lookups, s.Path)
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, c := range f.alternates[s.Path] {
		if bom.SameComponent(d, c) {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeHub) SwitchCandidate(_ context.Context, _ string, s bom.SnippetMatch, alt bom.Candidate) (bom.SnippetMatch, error) {
	f.switches = append(f.switches, s.Path)
	if f.switchErr != nil {
		return s, f.switchErr
	}
	s.Candidates = []bom.Candidate{alt}
	f.snippets[s.Path] = s
	return s, nil
}

func (f *fakeHub) OverrideCandidate(_ context.Context, _ string, s bom.SnippetMatch, d bom.DeclaredComponent) (bom.SnippetMatch, error) {
	f.overrides = append(f.overrides, s.Path)
	if f.overrideErr != nil {
		return s, f.overrideErr
	}
	s.Candidates = []bom.Candidate{{ProjectName: d.Name, ProjectID: d.ID, VersionName: d.VersionName, VersionID: d.VersionID}}
	f.snippets[s.Path] = s
	return s, nil
}

func (f *fakeHub) ConfirmSnippet(_ context.Context, _ string, s bom.SnippetMatch) (int, error) {
	f.confirms = append(f.confirms, s.Path)
	if f.confirmErr != nil {
		return 0, f.confirmErr
	}
	if f.confirmStatus == 1 {
		s.ReviewStatus = bom.ReviewStatusReviewed
		f.snippets[s.Path] = s
	}
	return f.confirmStatus, nil
}

var libfoo = bom.DeclaredComponent{Name: "libfoo", VersionName: bom.StrPtr("1.2"), ID: "c1", VersionID: "v1"}

func snippetAt(path, name, version string) bom.SnippetMatch {
	return bom.SnippetMatch{
		Path:            path,
		Name:            path,
		Candidates:      []bom.Candidate{{ProjectName: name, ProjectID: "p-" + name, VersionName: bom.StrPtr(version), VersionID: "r-" + version}},
		ReviewStatus:    bom.ReviewStatusNotReviewed,
		HasReviewStatus: true,
	}
}

func associate(f *fakeHub, declared bom.DeclaredComponent, paths ...string) map[string]bom.Association {
	return Associate(declared, paths, IndexSnippets(f.list()))
}

func TestReconcileIdenticalCandidateConfirms(t *testing.T) {
	f := newFakeHub(snippetAt("src/foo.c", "libfoo", "1.2"))
	e := NewEngine(f, Options{ProjectID: "p", VersionID: "v"})

	sum, err := e.Reconcile(context.Background(), associate(f, libfoo, "src/foo.c"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if sum.Confirmed != 1 {
		t.Fatalf("expected 1 confirmed, got %d", sum.Confirmed)
	}
	if len(f.confirms) != 1 || len(f.lookups) != 0 || len(f.switches) != 0 || len(f.overrides) != 0 {
		t.Fatalf("unexpected calls: lookups=%v switches=%v overrides=%v confirms=%v", f.lookups, f.switches, f.overrides, f.confirms)
	}
	if sum.Items[0].Resolution != ResolutionIdentical {
		t.Fatalf("expected identical resolution, got %q", sum.Items[0].Resolution)
	}
}

func TestReconcileMismatchPolicies(t *testing.T) {
	tests := []struct {
		name          string
		opts          Options
		alternate     bool
		wantConfirmed int
		wantSwitches  int
		wantOverrides int
		wantConfirms  int
		wantOutcome   Outcome
		wantRes       Resolution
	}{
		{
			name:          "alternate match wins over flags",
			opts:          Options{UseBestMatch: true, OverrideComponent: true},
			alternate:     true,
			wantConfirmed: 1, wantSwitches: 1, wantConfirms: 1,
			wantOutcome: OutcomeConfirmed, wantRes: ResolutionAlternate,
		},
		{
			name:          "best match confirms unchanged candidate",
			opts:          Options{UseBestMatch: true},
			wantConfirmed: 1, wantConfirms: 1,
			wantOutcome: OutcomeConfirmed, wantRes: ResolutionBestMatch,
		},
		{
			name:          "best match takes precedence over override",
			opts:          Options{UseBestMatch: true, OverrideComponent: true},
			wantConfirmed: 1, wantConfirms: 1,
			wantOutcome: OutcomeConfirmed, wantRes: ResolutionBestMatch,
		},
		{
			name:          "override replaces candidate then confirms",
			opts:          Options{OverrideComponent: true},
			wantConfirmed: 1, wantOverrides: 1, wantConfirms: 1,
			wantOutcome: OutcomeConfirmed, wantRes: ResolutionOverride,
		},
		{
			name:        "no flags leaves it for manual review",
			opts:        Options{},
			wantOutcome: OutcomeUnresolved, wantRes: ResolutionNone,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeHub(snippetAt("src/foo.c", "libbar", "9.9"))
			if tc.alternate {
				f.alternates["src/foo.c"] = []bom.Candidate{
					{ProjectName: "libfoo", VersionName: bom.StrPtr("1.1")},
					{ProjectName: "libfoo", VersionName: bom.StrPtr("1.2"), VersionID: "r-1.2"},
				}
			}

			sum, err := NewEngine(f, tc.opts).Reconcile(context.Background(), associate(f, libfoo, "src/foo.c"))
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if sum.Confirmed != tc.wantConfirmed {
				t.Fatalf("confirmed = %d, want %d", sum.Confirmed, tc.wantConfirmed)
			}
			if len(f.switches) != tc.wantSwitches || len(f.overrides) != tc.wantOverrides || len(f.confirms) != tc.wantConfirms {
				t.Fatalf("calls: switches=%d overrides=%d confirms=%d", len(f.switches), len(f.overrides), len(f.confirms))
			}
			if len(f.lookups) != 1 {
				t.Fatalf("expected one alternate lookup, got %d", len(f.lookups))
			}
			item := sum.Items[0]
			if item.Outcome != tc.wantOutcome || item.Resolution != tc.wantRes {
				t.Fatalf("item = %+v, want outcome %q resolution %q", item, tc.wantOutcome, tc.wantRes)
			}
		})
	}
}

func TestReconcileBestMatchKeepsHubCandidate(t *testing.T) {
	f := newFakeHub(snippetAt("src/foo.c", "libbar", "9.9"))
	_, err := NewEngine(f, Options{UseBestMatch: true}).Reconcile(context.Background(), associate(f, libfoo, "src/foo.c"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	got := f.snippets["src/foo.c"].Candidates[0]
	if got.ProjectName != "libbar" || *got.VersionName != "9.9" {
		t.Fatalf("best match should not change the candidate, got %s", got.Label())
	}
}

func TestReconcileOverrideConfirmsDeclaredComponent(t *testing.T) {
	f := newFakeHub(snippetAt("src/foo.c", "libbar", "9.9"))
	_, err := NewEngine(f, Options{OverrideComponent: true}).Reconcile(context.Background(), associate(f, libfoo, "src/foo.c"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	s := f.snippets["src/foo.c"]
	if !bom.SameComponent(libfoo, s.Candidates[0]) {
		t.Fatalf("expected candidate overridden to libfoo 1.2, got %s", s.Candidates[0].Label())
	}
	if s.ReviewStatus != bom.ReviewStatusReviewed {
		t.Fatalf("expected snippet confirmed, status %s", s.ReviewStatus)
	}
}

func TestReconcileSkipsReviewedSnippets(t *testing.T) {
	reviewed := snippetAt("src/foo.c", "libbar", "9.9")
	reviewed.ReviewStatus = bom.ReviewStatusReviewed
	f := newFakeHub(reviewed)

	sum, err := NewEngine(f, Options{UseBestMatch: true, OverrideComponent: true}).
		Reconcile(context.Background(), associate(f, libfoo, "src/foo.c"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if sum.Confirmed != 0 || sum.Skipped != 1 || sum.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if f.mutations() != 0 || len(f.lookups) != 0 {
		t.Fatalf("reviewed snippet must not be touched")
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFakeHub(
		snippetAt("src/foo.c", "libfoo", "1.2"),
		snippetAt("src/bar.c", "libbar", "9.9"),
	)
	e := NewEngine(f, Options{OverrideComponent: true})

	first, err := e.Reconcile(context.Background(), associate(f, libfoo, "src/foo.c", "src/bar.c"))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Confirmed != 2 {
		t.Fatalf("first run confirmed %d, want 2", first.Confirmed)
	}

	before := f.mutations()
	second, err := e.Reconcile(context.Background(), associate(f, libfoo, "src/foo.c", "src/bar.c"))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Confirmed != 0 || second.Skipped != 2 {
		t.Fatalf("second run should only skip, got %+v", second)
	}
	if f.mutations() != before {
		t.Fatalf("second run mutated remote state")
	}
}

func TestReconcileFailuresDoNotAbortBatch(t *testing.T) {
	t.Run("confirm status other than 1", func(t *testing.T) {
		f := newFakeHub(snippetAt("a.c", "libfoo", "1.2"), snippetAt("b.c", "libfoo", "1.2"))
		f.confirmStatus = 0
		sum, err := NewEngine(f, Options{}).Reconcile(context.Background(), associate(f, libfoo, "a.c", "b.c"))
		if err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
		if sum.Confirmed != 0 || sum.Failed != 2 || len(f.confirms) != 2 {
			t.Fatalf("unexpected summary %+v confirms=%v", sum, f.confirms)
		}
	})

	t.Run("confirm fault", func(t *testing.T) {
		f := newFakeHub(snippetAt("a.c", "libfoo", "1.2"))
		f.confirmErr = &hub.Fault{Op: "confirm snippet", Kind: hub.KindTransport, Err: errors.New("connection reset")}
		sum, err := NewEngine(f, Options{}).Reconcile(context.Background(), associate(f, libfoo, "a.c"))
		if err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
		if sum.Failed != 1 || sum.Items[0].Err == nil {
			t.Fatalf("expected a recorded failure, got %+v", sum)
		}
	})

	t.Run("alternate lookup fault fails only that item", func(t *testing.T) {
		f := newFakeHub(snippetAt("a.c", "libbar", "9.9"), snippetAt("b.c", "libfoo", "1.2"))
		f.lookupErr = &hub.Fault{Op: "find alternate match", Kind: hub.KindStatus, StatusCode: 500, Err: errors.New("boom")}
		sum, err := NewEngine(f, Options{UseBestMatch: true}).Reconcile(context.Background(), associate(f, libfoo, "a.c", "b.c"))
		if err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
		if sum.Confirmed != 1 || sum.Failed != 1 {
			t.Fatalf("unexpected summary %+v", sum)
		}
		if len(f.confirms) != 1 || f.confirms[0] != "b.c" {
			t.Fatalf("only b.c should be confirmed, got %v", f.confirms)
		}
	})

	t.Run("switch fault skips confirm", func(t *testing.T) {
		f := newFakeHub(snippetAt("a.c", "libbar", "9.9"))
		f.alternates["a.c"] = []bom.Candidate{{ProjectName: "libfoo", VersionName: bom.StrPtr("1.2")}}
		f.switchErr = errors.New("refused")
		sum, err := NewEngine(f, Options{}).Reconcile(context.Background(), associate(f, libfoo, "a.c"))
		if err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
		if sum.Failed != 1 || sum.Switched != 0 || len(f.confirms) != 0 {
			t.Fatalf("unexpected summary %+v confirms=%v", sum, f.confirms)
		}
	})

	t.Run("confirm fault after switch keeps switched state", func(t *testing.T) {
		f := newFakeHub(snippetAt("a.c", "libbar", "9.9"))
		f.alternates["a.c"] = []bom.Candidate{{ProjectName: "libfoo", VersionName: bom.StrPtr("1.2")}}
		f.confirmErr = errors.New("connection reset")
		sum, err := NewEngine(f, Options{}).Reconcile(context.Background(), associate(f, libfoo, "a.c"))
		if err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
		got := sum.Items[0]
		if got.Outcome != OutcomeFailed || len(f.switches) != 1 {
			t.Fatalf("unexpected result %+v switches=%v", got, f.switches)
		}
		if got.Snippet.Candidates[0].ProjectName != "libfoo" || got.Snippet.ReviewStatus != bom.ReviewStatusNotReviewed {
			t.Fatalf("result should carry the switched, unreviewed entry, got %+v", got.Snippet)
		}
	})

	t.Run("override fault fails only that item", func(t *testing.T) {
		f := newFakeHub(snippetAt("a.c", "libbar", "9.9"), snippetAt("b.c", "libfoo", "1.2"))
		f.overrideErr = &hub.Fault{Op: "override snippet", Kind: hub.KindStatus, StatusCode: 403, Err: errors.New("forbidden")}
		sum, err := NewEngine(f, Options{OverrideComponent: true}).Reconcile(context.Background(), associate(f, libfoo, "a.c", "b.c"))
		if err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
		if sum.Confirmed != 1 || sum.Failed != 1 || sum.Overridden != 0 {
			t.Fatalf("unexpected summary %+v", sum)
		}
		if len(f.overrides) != 1 || f.overrides[0] != "a.c" {
			t.Fatalf("expected one override attempt on a.c, got %v", f.overrides)
		}
		if len(f.confirms) != 1 || f.confirms[0] != "b.c" {
			t.Fatalf("only b.c should be confirmed, got %v", f.confirms)
		}
		if kind, ok := hub.KindOf(sum.Items[0].Err); !ok || kind != hub.KindStatus {
			t.Fatalf("a.c should carry the override fault, got %v", sum.Items[0].Err)
		}
	})
}

func TestReconcileRejectsMalformedSnippets(t *testing.T) {
	multi := snippetAt("multi.c", "libfoo", "1.2")
	multi.Candidates = append(multi.Candidates, bom.Candidate{ProjectName: "libbar"})

	none := snippetAt("none.c", "libfoo", "1.2")
	none.Candidates = nil

	noStatus := snippetAt("nostatus.c", "libfoo", "1.2")
	noStatus.HasReviewStatus = false
	noStatus.ReviewStatus = ""

	for _, s := range []bom.SnippetMatch{multi, none, noStatus} {
		f := newFakeHub(s, snippetAt("ok.c", "libfoo", "1.2"))
		_, err := NewEngine(f, Options{}).Reconcile(context.Background(), associate(f, libfoo, s.Path, "ok.c"))
		if !errors.Is(err, ErrMalformedSnippet) {
			t.Fatalf("%s: expected ErrMalformedSnippet, got %v", s.Path, err)
		}
		if f.mutations() != 0 {
			t.Fatalf("%s: no remote call may happen before the precondition check", s.Path)
		}
	}
}

func TestSummaryAdd(t *testing.T) {
	var total Summary
	total.Add(Summary{Confirmed: 2, Failed: 1, Items: make([]ItemResult, 3)})
	total.Add(Summary{Confirmed: 1, Skipped: 4, Switched: 1, Items: make([]ItemResult, 5)})
	if total.Confirmed != 3 || total.Failed != 1 || total.Skipped != 4 || total.Switched != 1 || len(total.Items) != 8 {
		t.Fatalf("unexpected total %+v", total)
	}
}
