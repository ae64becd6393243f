package hub

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/sw33tLie/protexsync/pkg/bom"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ListSnippetMatches returns the snippet BOM entries of a project version.
func (c *Client) ListSnippetMatches(ctx context.Context, projectID, versionID string) ([]bom.SnippetMatch, error) {
	items, err := c.getAll(ctx, "list snippet matches", snippetBase(projectID, versionID)+"/snippet-bom-entries")
	if err != nil {
		return nil, err
	}

	out := make([]bom.SnippetMatch, 0, len(items))
	for _, it := range items {
		out = append(out, parseSnippetMatch(it))
	}
	return out, nil
}

func snippetBase(projectID, versionID string) string {
	return "/api/internal/projects/" + projectID + "/versions/" + versionID
}

func parseSnippetMatch(it gjson.Result) bom.SnippetMatch {
	s := bom.SnippetMatch{
		Path: it.Get("compositePath.path").Str,
		Name: it.Get("name").Str,
		Raw:  it.Raw,
	}
	for _, sc := range it.Get("fileSnippetBomComponents").Array() {
		s.Candidates = append(s.Candidates, parseCandidate(sc))
	}
	if rs := it.Get("fileSnippetBomComponents.0.reviewStatus"); rs.Exists() {
		s.ReviewStatus = rs.Str
		s.HasReviewStatus = true
	}
	return s
}

func parseCandidate(it gjson.Result) bom.Candidate {
	cand := bom.Candidate{
		ProjectName: it.Get("project.name").Str,
		ProjectID:   it.Get("project.id").Str,
		VersionID:   it.Get("release.id").Str,
	}
	if v := it.Get("release.version"); v.Exists() && v.Type != gjson.Null {
		cand.VersionName = bom.StrPtr(v.Str)
	}
	return cand
}

// FindAlternateCandidate looks through the other component candidates Hub
// found for the snippet's file and returns the first one naming the declared
// component, or nil when there is none.
func (c *Client) FindAlternateCandidate(ctx context.Context, projectID, versionID string, snippet bom.SnippetMatch, declared bom.DeclaredComponent) (*bom.Candidate, error) {
	target := snippetBase(projectID, versionID) + "/alternate-snippet-matches?path=" + url.QueryEscape(snippet.Path)
	items, err := c.getAll(ctx, "find alternate match", target)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	for _, it := range items {
		cand := parseCandidate(it)
		if bom.SameComponent(declared, cand) {
			return &cand, nil
		}
	}
	return nil, nil
}

// SwitchCandidate makes alt the selected candidate of the snippet match and
// returns the updated snippet.
func (c *Client) SwitchCandidate(ctx context.Context, versionID string, snippet bom.SnippetMatch, alt bom.Candidate) (bom.SnippetMatch, error) {
	return c.replaceCandidate(ctx, "switch snippet candidate", versionID, snippet, alt)
}

// OverrideCandidate writes the declared component over the snippet's
// candidate. The match loses its link to the originally detected source.
func (c *Client) OverrideCandidate(ctx context.Context, versionID string, snippet bom.SnippetMatch, declared bom.DeclaredComponent) (bom.SnippetMatch, error) {
	cand := bom.Candidate{
		ProjectName: declared.Name,
		ProjectID:   declared.ID,
		VersionName: declared.VersionName,
		VersionID:   declared.VersionID,
	}
	return c.replaceCandidate(ctx, "override snippet candidate", versionID, snippet, cand)
}

func (c *Client) replaceCandidate(ctx context.Context, op, versionID string, snippet bom.SnippetMatch, cand bom.Candidate) (bom.SnippetMatch, error) {
	raw, err := setCandidate(snippet.Raw, cand)
	if err != nil {
		return snippet, &Fault{Op: op, Kind: KindDecode, Err: err}
	}

	n, err := c.updateSnippetEntries(ctx, op, versionID, raw)
	if err != nil {
		return snippet, err
	}
	if n < 1 {
		return snippet, &Fault{Op: op, Kind: KindStatus, Err: fmt.Errorf("hub updated %d entries for %s", n, snippet.Path)}
	}

	updated := parseSnippetMatch(gjson.Parse(raw))
	return updated, nil
}

func setCandidate(raw string, cand bom.Candidate) (string, error) {
	var err error
	set := func(path string, value interface{}) {
		if err == nil {
			raw, err = sjson.Set(raw, path, value)
		}
	}
	set("fileSnippetBomComponents.0.project.name", cand.ProjectName)
	set("fileSnippetBomComponents.0.project.id", cand.ProjectID)
	set("fileSnippetBomComponents.0.release.id", cand.VersionID)
	if cand.VersionName != nil {
		set("fileSnippetBomComponents.0.release.version", *cand.VersionName)
	} else {
		set("fileSnippetBomComponents.0.release.version", nil)
	}
	return raw, err
}

// ConfirmSnippet marks the snippet match reviewed and returns how many
// entries Hub reports as updated; 1 means the confirmation went through.
func (c *Client) ConfirmSnippet(ctx context.Context, versionID string, snippet bom.SnippetMatch) (int, error) {
	const op = "confirm snippet"
	raw, err := sjson.Set(snippet.Raw, "fileSnippetBomComponents.0.reviewStatus", bom.ReviewStatusReviewed)
	if err != nil {
		return 0, &Fault{Op: op, Kind: KindDecode, Err: err}
	}
	return c.updateSnippetEntries(ctx, op, versionID, raw)
}

func (c *Client) updateSnippetEntries(ctx context.Context, op, versionID, entry string) (int, error) {
	if !gjson.Valid(entry) {
		return 0, &Fault{Op: op, Kind: KindDecode, Err: errors.New("snippet entry is not valid JSON")}
	}
	body, err := c.do(ctx, op, "PUT", "/api/v1/releases/"+versionID+"/snippet-bom-entries", "["+entry+"]")
	if err != nil {
		return 0, err
	}
	updated := gjson.Get(body, "updatedCount")
	if !updated.Exists() {
		return 0, &Fault{Op: op, Kind: KindDecode, Err: errors.New("response has no updatedCount")}
	}
	return int(updated.Int()), nil
}
