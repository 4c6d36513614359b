package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://fso.ueat.utoronto.ca/FSO/ServiceMenuReport"
	userAgent      = "Mozilla/5.0 (compatible; UofT Meal Planner)"

	// Report pages are a few hundred KB at most.
	maxPageBytes = 8 << 20
)

// ErrUpstreamUnavailable is returned when the index page for a date cannot be
// fetched. Nothing can be scraped for that date.
var ErrUpstreamUnavailable = errors.New("menu source unavailable")

// StatusError is a non-2xx response from the menu source.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// Client speaks the two endpoints of the ServiceMenuReport site.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for baseURL. A nil httpClient gets one with the
// given timeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// IndexURL returns the index page URL for date (YYYY-MM-DD), or the Today
// page when date is empty.
func (c *Client) IndexURL(date string) string {
	if date == "" {
		return c.baseURL + "/Today"
	}
	return c.baseURL + "/GetDate?dt=" + strings.ReplaceAll(date, "-", "")
}

// FetchIndex downloads the report index page.
func (c *Client) FetchIndex(ctx context.Context, date string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.IndexURL(date), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return c.do(req)
}

// FetchReport downloads one report page. The site only answers POST with an
// empty form body.
func (c *Client) FetchReport(ctx context.Context, reportID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/GetReport/"+reportID, strings.NewReader(""))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{Method: req.Method, URL: req.URL.String(), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.URL.Path, err)
	}
	return body, nil
}
