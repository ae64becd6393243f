package hub

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sw33tLie/protexsync/internal/utils"
	"github.com/sw33tLie/protexsync/pkg/whttp"
	"github.com/tidwall/gjson"
)

const DEFAULT_PAGE_SIZE = 100

// Client talks to the Hub REST API.
type Client struct {
	baseURL  string
	apiToken string
	bearer   string
	pageSize int
	http     *retryablehttp.Client // nil means whttp's shared client
}

type Option func(*Client)

// WithHTTPClient overrides the shared whttp client.
func WithHTTPClient(c *retryablehttp.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithPageSize(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.pageSize = n
		}
	}
}

// WithBearerToken skips the token exchange, mostly useful in tests.
func WithBearerToken(token string) Option {
	return func(cl *Client) { cl.bearer = token }
}

// NewClient builds a Hub client for baseURL (e.g. https://hub.example.com)
// using an API token created in the Hub UI.
func NewClient(baseURL, apiToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiToken: apiToken,
		pageSize: DEFAULT_PAGE_SIZE,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Authenticate exchanges the API token for a bearer token.
func (c *Client) Authenticate(ctx context.Context) error {
	const op = "authenticate"
	if c.apiToken == "" {
		return &Fault{Op: op, Kind: KindStatus, Err: errors.New("no API token configured")}
	}

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  "POST",
		URL:     c.baseURL + "/api/tokens/authenticate",
		Headers: []whttp.WHTTPHeader{{Name: "Authorization", Value: "token " + c.apiToken}},
	}, c.http)
	if err != nil {
		return &Fault{Op: op, Kind: KindTransport, Err: err}
	}
	if res.StatusCode != 200 {
		return &Fault{Op: op, Kind: KindStatus, StatusCode: res.StatusCode, Err: errors.New("token exchange refused")}
	}

	bearer := gjson.Get(res.BodyString, "bearerToken").Str
	if bearer == "" {
		return &Fault{Op: op, Kind: KindDecode, Err: errors.New("response has no bearerToken")}
	}
	c.bearer = bearer
	utils.Log.Debug("Authenticated against ", c.baseURL)
	return nil
}

func (c *Client) resolve(pathOrURL string) string {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return pathOrURL
	}
	return c.baseURL + pathOrURL
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, target, body string) (string, error) {
	req := &whttp.WHTTPReq{
		Method: method,
		URL:    c.resolve(target),
		Body:   body,
	}
	if c.bearer != "" {
		req.Headers = append(req.Headers, whttp.WHTTPHeader{Name: "Authorization", Value: "Bearer " + c.bearer})
	}

	utils.Log.Debugf("%s %s", method, req.URL)
	res, err := whttp.SendHTTPRequest(ctx, req, c.http)
	if err != nil {
		return "", &Fault{Op: op, Kind: KindTransport, Err: err}
	}

	switch {
	case res.StatusCode == 404:
		return "", notFound(op, req.URL)
	case res.StatusCode < 200 || res.StatusCode > 299:
		return "", &Fault{Op: op, Kind: KindStatus, StatusCode: res.StatusCode, Err: fmt.Errorf("%s %s", method, req.URL)}
	}
	return res.BodyString, nil
}

// getAll walks a paged Hub collection and returns every item.
func (c *Client) getAll(ctx context.Context, op, target string) ([]gjson.Result, error) {
	var items []gjson.Result
	offset := 0

	for {
		pageURL, err := withPaging(c.resolve(target), c.pageSize, offset)
		if err != nil {
			return nil, &Fault{Op: op, Kind: KindDecode, Err: err}
		}

		body, err := c.do(ctx, op, "GET", pageURL, "")
		if err != nil {
			return nil, err
		}
		if !gjson.Valid(body) {
			return nil, &Fault{Op: op, Kind: KindDecode, Err: errors.New("response is not valid JSON")}
		}

		page := gjson.Get(body, "items").Array()
		items = append(items, page...)
		total := int(gjson.Get(body, "totalCount").Int())

		offset += len(page)
		if len(page) == 0 || offset >= total {
			break
		}
	}
	return items, nil
}

func withPaging(rawURL string, limit, offset int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// lastSegment returns the trailing path element of an href, i.e. the object id.
func lastSegment(href string) string {
	href = strings.TrimSuffix(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}
