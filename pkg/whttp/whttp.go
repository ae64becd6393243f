package whttp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const USER_AGENT = "protexsync/1.0"

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
	Body    string
}

type WHTTPRes struct {
	StatusCode int
	BodyString string
}

var defaultClient = newClient()

func newClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.Logger = log.New(io.Discard, "", 0)
	c.RetryMax = 5
	c.RetryWaitMin = 1 * time.Second
	c.RetryWaitMax = 10 * time.Second
	c.HTTPClient.Timeout = 120 * time.Second
	return c
}

// GetDefaultClient returns the shared client used when no client is passed to SendHTTPRequest.
func GetDefaultClient() *retryablehttp.Client {
	return defaultClient
}

// SetupProxy routes the shared client through an HTTP proxy. TLS verification
// is disabled so intercepting proxies can be used for debugging.
func SetupProxy(proxy string) error {
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %v", err)
	}
	defaultClient.HTTPClient.Transport = &http.Transport{
		Proxy:           http.ProxyURL(proxyURL),
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return nil
}

// SetInsecure disables TLS verification on the shared client. Hub instances
// often run with self-signed certificates.
func SetInsecure() {
	t, ok := defaultClient.HTTPClient.Transport.(*http.Transport)
	if !ok || t == nil {
		t = &http.Transport{Proxy: http.ProxyFromEnvironment}
		defaultClient.HTTPClient.Transport = t
	}
	if t.TLSClientConfig == nil {
		t.TLSClientConfig = &tls.Config{}
	}
	t.TLSClientConfig.InsecureSkipVerify = true
}

// SetTimeout changes the per-request timeout of the shared client.
func SetTimeout(d time.Duration) {
	if d > 0 {
		defaultClient.HTTPClient.Timeout = d
	}
}

func SendHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *retryablehttp.Client) (*WHTTPRes, error) {
	if client == nil {
		client = defaultClient
	}

	var body interface{}
	if wReq.Body != "" {
		body = strings.NewReader(wReq.Body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, wReq.Method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	// Set common headers
	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("Accept", "application/json")
	if wReq.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &WHTTPRes{
		StatusCode: resp.StatusCode,
		BodyString: string(bodyBytes),
	}, nil
}
