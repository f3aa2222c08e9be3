package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://api.github.com"

// Metric is one of the four traffic endpoints exposed per repository.
type Metric string

const (
	MetricClones    Metric = "clones"
	MetricViews     Metric = "views"
	MetricReferrers Metric = "referrers"
	MetricPaths     Metric = "paths"
)

// AllMetrics returns the four metrics in a stable order.
func AllMetrics() []Metric {
	return []Metric{MetricClones, MetricViews, MetricReferrers, MetricPaths}
}

// ParseMetric validates a user-supplied metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(s)) {
	case MetricClones:
		return MetricClones, nil
	case MetricViews:
		return MetricViews, nil
	case MetricReferrers:
		return MetricReferrers, nil
	case MetricPaths:
		return MetricPaths, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMetric, s)
}

func (m Metric) endpoint() string {
	switch m {
	case MetricReferrers:
		return "traffic/popular/referrers"
	case MetricPaths:
		return "traffic/popular/paths"
	default:
		return "traffic/" + string(m)
	}
}

var repoRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// ValidateRepo checks the owner/name shape before any network call.
func ValidateRepo(repo string) error {
	if !repoRe.MatchString(repo) {
		return fmt.Errorf("%w: %q", ErrInvalidRepo, repo)
	}
	return nil
}

// Client talks to the GitHub REST API. One authenticated request per
// (repository, metric); no retries — the caller decides whether to retry.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client

	checking atomic.Bool // single-flight guard for connectivity checks
}

// NewClient builds a client around retryablehttp with retries disabled:
// each Fetch is a single attempt by contract.
func NewClient(token string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	rc.HTTPClient.Timeout = 30 * time.Second

	return &Client{
		BaseURL: DefaultBaseURL,
		Token:   token,
		HTTP:    rc.StandardClient(),
	}
}

// Fetch retrieves the raw payload for one (repository, metric) pair.
// Failures are classified into an *APIError; the payload is returned as-is so
// the storage layer can persist exactly what the API said.
func (c *Client) Fetch(ctx context.Context, repo string, metric Metric) (json.RawMessage, error) {
	if err := ValidateRepo(repo); err != nil {
		return nil, err
	}
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	if c.Token == "" {
		return nil, ErrNoToken
	}

	url := fmt.Sprintf("%s/repos/%s/%s", c.BaseURL, repo, metric.endpoint())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "repotrends")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		kind := KindAPI
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			kind = KindAuthentication
		case http.StatusForbidden:
			kind = KindAuthorization
		case http.StatusNotFound:
			kind = KindNotFound
		}
		return nil, &APIError{Kind: kind, StatusCode: resp.StatusCode, Message: msg}
	}

	if len(strings.TrimSpace(string(body))) == 0 || !gjson.ValidBytes(body) {
		return nil, &APIError{Kind: KindParse, StatusCode: resp.StatusCode, Message: "empty or malformed response body"}
	}

	return json.RawMessage(body), nil
}

// ResolveToken picks a credential: environment first (GITHUB_TOKEN, then
// GH_TOKEN), then the configured token, then the first non-blank line of
// tokenFile. No token anywhere is a fetch-blocking error, never a crash.
func ResolveToken(configured, tokenFile string) (string, error) {
	for _, env := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if t := strings.TrimSpace(os.Getenv(env)); t != "" {
			return t, nil
		}
	}
	if t := strings.TrimSpace(configured); t != "" {
		return t, nil
	}
	if tokenFile != "" {
		data, err := os.ReadFile(tokenFile)
		if err != nil {
			return "", fmt.Errorf("could not read token file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if t := strings.TrimSpace(line); t != "" {
				return t, nil
			}
		}
	}
	return "", ErrNoToken
}
