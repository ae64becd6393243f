package hub

import (
	"context"
	"net/url"
	"strings"

	"github.com/sw33tLie/protexsync/pkg/bom"
	"github.com/tidwall/gjson"
)

type Project struct {
	ID   string
	Name string
	Href string
}

type Version struct {
	ID   string
	Name string
	Href string
}

// LookupProject finds a project by its exact name.
func (c *Client) LookupProject(ctx context.Context, name string) (*Project, error) {
	const op = "lookup project"
	items, err := c.getAll(ctx, op, "/api/projects?q="+url.QueryEscape("name:"+name))
	if err != nil {
		return nil, err
	}

	// The q filter is a substring search, so insist on an exact match.
	for _, it := range items {
		if it.Get("name").Str == name {
			href := it.Get("_meta.href").Str
			return &Project{ID: lastSegment(href), Name: name, Href: href}, nil
		}
	}
	return nil, notFound(op, "project "+name)
}

// LookupVersion finds a version of project by its exact name.
func (c *Client) LookupVersion(ctx context.Context, project *Project, name string) (*Version, error) {
	const op = "lookup version"
	items, err := c.getAll(ctx, op, project.Href+"/versions?q="+url.QueryEscape("versionName:"+name))
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		if it.Get("versionName").Str == name {
			href := it.Get("_meta.href").Str
			return &Version{ID: lastSegment(href), Name: name, Href: href}, nil
		}
	}
	return nil, notFound(op, "version "+name+" of project "+project.Name)
}

// ListComponents returns the BOM components of a version.
func (c *Client) ListComponents(ctx context.Context, version *Version) ([]bom.DeclaredComponent, error) {
	items, err := c.getAll(ctx, "list components", version.Href+"/components")
	if err != nil {
		return nil, err
	}

	out := make([]bom.DeclaredComponent, 0, len(items))
	for _, it := range items {
		out = append(out, parseDeclaredComponent(it))
	}
	return out, nil
}

// parseDeclaredComponent reads a BOM component entry. Its href looks like
// .../components/{componentId}[/versions/{componentVersionId}].
func parseDeclaredComponent(it gjson.Result) bom.DeclaredComponent {
	d := bom.DeclaredComponent{Name: it.Get("componentName").Str}
	if v := it.Get("componentVersionName"); v.Exists() && v.Type != gjson.Null {
		d.VersionName = bom.StrPtr(v.Str)
	}

	d.ID, d.VersionID = componentIDs(it.Get("_meta.href").Str)
	if d.ID == "" {
		d.ID = lastSegment(it.Get("component").Str)
	}
	if d.VersionID == "" && it.Get("componentVersion").Str != "" {
		d.VersionID = lastSegment(it.Get("componentVersion").Str)
	}
	return d
}

func componentIDs(href string) (componentID, versionID string) {
	parts := strings.Split(strings.TrimSuffix(href, "/"), "/")
	for i := len(parts) - 2; i >= 0; i-- {
		if parts[i] != "components" {
			continue
		}
		componentID = parts[i+1]
		if i+3 < len(parts) && parts[i+2] == "versions" {
			versionID = parts[i+3]
		}
		return componentID, versionID
	}
	return "", ""
}

// ListFilePaths returns the source paths a BOM component was matched to.
// componentVersionID may be empty for version-less components.
func (c *Client) ListFilePaths(ctx context.Context, projectID, versionID, componentID, componentVersionID string) ([]string, error) {
	target := "/api/projects/" + projectID + "/versions/" + versionID + "/components/" + componentID
	if componentVersionID != "" {
		target += "/versions/" + componentVersionID
	}
	items, err := c.getAll(ctx, "list matched files", target+"/matched-files")
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(items))
	for _, it := range items {
		if p := it.Get("filePath.path").Str; p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}
