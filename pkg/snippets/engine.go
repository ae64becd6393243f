package snippets

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/sw33tLie/protexsync/internal/utils"
	"github.com/sw33tLie/protexsync/pkg/bom"
	"github.com/sw33tLie/protexsync/pkg/hub"
)

// ErrMalformedSnippet means Hub returned a snippet entry the engine cannot
// reason about (no candidate, several candidates, or no review status).
// It aborts the run instead of being counted as a per-item failure.
var ErrMalformedSnippet = errors.New("malformed snippet match")

// Collaborator is the subset of the Hub client the engine mutates through.
type Collaborator interface {
	FindAlternateCandidate(ctx context.Context, projectID, versionID string, snippet bom.SnippetMatch, declared bom.DeclaredComponent) (*bom.Candidate, error)
	SwitchCandidate(ctx context.Context, versionID string, snippet bom.SnippetMatch, alt bom.Candidate) (bom.SnippetMatch, error)
	OverrideCandidate(ctx context.Context, versionID string, snippet bom.SnippetMatch, declared bom.DeclaredComponent) (bom.SnippetMatch, error)
	ConfirmSnippet(ctx context.Context, versionID string, snippet bom.SnippetMatch) (int, error)
}

type Options struct {
	ProjectID string
	VersionID string

	// UseBestMatch confirms Hub's own suggestion when no alternate candidate
	// matches the declared component.
	UseBestMatch bool
	// OverrideComponent replaces the snippet's candidate with the declared
	// component when nothing better applies.
	OverrideComponent bool
}

type Resolution string

const (
	ResolutionNone      Resolution = ""
	ResolutionIdentical Resolution = "identical"
	ResolutionAlternate Resolution = "alternate"
	ResolutionBestMatch Resolution = "best-match"
	ResolutionOverride  Resolution = "override"
)

type Outcome string

const (
	OutcomeConfirmed  Outcome = "confirmed"
	OutcomeFailed     Outcome = "failed"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeUnresolved Outcome = "unresolved"
)

type ItemResult struct {
	Path       string
	Component  string
	Resolution Resolution
	Outcome    Outcome
	Err        error

	// Snippet is the last known Hub state of the entry, including any switch
	// or override applied before a failed confirm.
	Snippet bom.SnippetMatch
}

type Summary struct {
	Confirmed  int
	Failed     int
	Skipped    int
	Unresolved int
	Switched   int
	Overridden int
	Items      []ItemResult
}

// Add folds another summary into s.
func (s *Summary) Add(o Summary) {
	s.Confirmed += o.Confirmed
	s.Failed += o.Failed
	s.Skipped += o.Skipped
	s.Unresolved += o.Unresolved
	s.Switched += o.Switched
	s.Overridden += o.Overridden
	s.Items = append(s.Items, o.Items...)
}

func (s *Summary) record(r ItemResult) {
	switch r.Outcome {
	case OutcomeConfirmed:
		s.Confirmed++
		switch r.Resolution {
		case ResolutionAlternate:
			s.Switched++
		case ResolutionOverride:
			s.Overridden++
		}
	case OutcomeFailed:
		s.Failed++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeUnresolved:
		s.Unresolved++
	}
	s.Items = append(s.Items, r)
}

type Engine struct {
	client Collaborator
	opts   Options
}

func NewEngine(client Collaborator, opts Options) *Engine {
	return &Engine{client: client, opts: opts}
}

// Reconcile resolves and confirms every association. Remote faults only fail
// the association they happened on; a malformed snippet aborts before any
// remote call is made.
func (e *Engine) Reconcile(ctx context.Context, associations map[string]bom.Association) (Summary, error) {
	var summary Summary

	paths := make([]string, 0, len(associations))
	for p := range associations {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := checkSnippet(associations[p].Snippet); err != nil {
			return summary, err
		}
	}

	for _, p := range paths {
		summary.record(e.reconcileOne(ctx, p, associations[p]))
	}
	return summary, nil
}

func checkSnippet(s bom.SnippetMatch) error {
	if len(s.Candidates) != 1 {
		return fmt.Errorf("%w: %s has %d candidate entries, expected exactly one", ErrMalformedSnippet, s.Path, len(s.Candidates))
	}
	if !s.HasReviewStatus {
		return fmt.Errorf("%w: %s has no review status", ErrMalformedSnippet, s.Path)
	}
	return nil
}

func (e *Engine) reconcileOne(ctx context.Context, path string, a bom.Association) ItemResult {
	declared, snippet := a.Declared, a.Snippet
	res := ItemResult{Path: path, Component: declared.Label(), Snippet: snippet}
	log := utils.Log.WithFields(logrus.Fields{
		"component": declared.Label(),
		"path":      path,
	})

	if snippet.ReviewStatus != bom.ReviewStatusNotReviewed {
		log.Debugf("Snippet already has review status %s, skipping", snippet.ReviewStatus)
		res.Outcome = OutcomeSkipped
		return res
	}

	current := snippet.Candidates[0]
	if bom.SameComponent(declared, current) {
		res.Resolution = ResolutionIdentical
		return e.confirm(ctx, log, res, snippet)
	}

	log.Debugf("Snippet candidate %s disagrees with declared component", current.Label())

	alt, err := e.client.FindAlternateCandidate(ctx, e.opts.ProjectID, e.opts.VersionID, snippet, declared)
	if err != nil {
		return fail(log, res, "alternate match lookup failed", err)
	}

	switch {
	case alt != nil:
		res.Resolution = ResolutionAlternate
		log.Infof("Switching snippet to alternate match %s", alt.Label())
		snippet, err = e.client.SwitchCandidate(ctx, e.opts.VersionID, snippet, *alt)
		if err != nil {
			return fail(log, res, "switching to alternate match failed", err)
		}
		res.Snippet = snippet
	case e.opts.UseBestMatch:
		res.Resolution = ResolutionBestMatch
		log.Infof("No alternate match, confirming Hub best match %s", current.Label())
	case e.opts.OverrideComponent:
		res.Resolution = ResolutionOverride
		log.Info("No alternate match, overriding snippet with the declared component")
		snippet, err = e.client.OverrideCandidate(ctx, e.opts.VersionID, snippet, declared)
		if err != nil {
			return fail(log, res, "overriding snippet component failed", err)
		}
		res.Snippet = snippet
	default:
		log.Warnf("Snippet matches %s and no alternate matches the declared component, leaving it for manual review", current.Label())
		res.Outcome = OutcomeUnresolved
		return res
	}

	return e.confirm(ctx, log, res, snippet)
}

func (e *Engine) confirm(ctx context.Context, log *logrus.Entry, res ItemResult, snippet bom.SnippetMatch) ItemResult {
	status, err := e.client.ConfirmSnippet(ctx, e.opts.VersionID, snippet)
	if err != nil {
		return fail(log, res, "confirming snippet failed", err)
	}
	if status != 1 {
		return fail(log, res, "confirming snippet failed", fmt.Errorf("hub reported status %d", status))
	}

	log.WithField("resolution", string(res.Resolution)).Info("SUCCESS")
	res.Snippet.ReviewStatus = bom.ReviewStatusReviewed
	res.Outcome = OutcomeConfirmed
	return res
}

func fail(log *logrus.Entry, res ItemResult, msg string, err error) ItemResult {
	if kind, ok := hub.KindOf(err); ok {
		log = log.WithField("fault", kind.String())
	}
	log.WithError(err).Error(msg)
	res.Outcome = OutcomeFailed
	res.Err = err
	return res
}
