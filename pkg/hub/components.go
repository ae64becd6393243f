package hub

import (
	"context"
	"errors"
	"net/url"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ComponentRef points at the Hub component (and component-version, when the
// Protex release is known) that a Protex/Code Center component maps to.
type ComponentRef struct {
	ComponentURL string
	VersionURL   string
}

// DetailsURL is the object that carries the approval status: the
// component-version when there is one, else the component.
func (r ComponentRef) DetailsURL() string {
	if r.VersionURL != "" {
		return r.VersionURL
	}
	return r.ComponentURL
}

// FindProtexComponent maps a Protex component id (and optional release id)
// to its Hub component through the bdsuite query.
func (c *Client) FindProtexComponent(ctx context.Context, componentID, releaseID string) (*ComponentRef, error) {
	const op = "find protex component"
	q := "bdsuite:" + componentID
	if releaseID != "" {
		q += "#" + releaseID
	}

	items, err := c.getAll(ctx, op, "/api/components?q="+url.QueryEscape(q))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, notFound(op, q)
	}

	ref := &ComponentRef{
		ComponentURL: items[0].Get("component").Str,
		VersionURL:   items[0].Get("version").Str,
	}
	if ref.DetailsURL() == "" {
		return nil, &Fault{Op: op, Kind: KindDecode, Err: errors.New("component info has neither a component nor a version url")}
	}
	return ref, nil
}

// GetApprovalStatus reads the approvalStatus of a component or component-version.
// The raw object is returned so it can be sent back by SetApprovalStatus.
func (c *Client) GetApprovalStatus(ctx context.Context, detailsURL string) (status string, raw string, err error) {
	const op = "get approval status"
	body, err := c.do(ctx, op, "GET", detailsURL, "")
	if err != nil {
		return "", "", err
	}
	st := gjson.Get(body, "approvalStatus")
	if !st.Exists() {
		return "", "", &Fault{Op: op, Kind: KindDecode, Err: errors.New("object has no approvalStatus field")}
	}
	return st.Str, body, nil
}

// SetApprovalStatus writes status into raw and PUTs it back to detailsURL.
func (c *Client) SetApprovalStatus(ctx context.Context, detailsURL, raw, status string) error {
	const op = "set approval status"
	updated, err := sjson.Set(raw, "approvalStatus", status)
	if err != nil {
		return &Fault{Op: op, Kind: KindDecode, Err: err}
	}
	_, err = c.do(ctx, op, "PUT", detailsURL, updated)
	return err
}
