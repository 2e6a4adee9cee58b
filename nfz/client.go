package nfz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"terminy/appointment"
	"terminy/internal/metrics"
)

const (
	DefaultBaseURL   = "https://api.nfz.gov.pl/app-itl-api"
	DefaultUserAgent = "terminy/1.0"

	apiVersion            = "1.3"
	defaultTimeout        = 30 * time.Second
	defaultRetryInterval  = 500 * time.Millisecond
	maxErrorBodyPreview   = 4096
	maxDecodeErrorPreview = 1000
	endpointQueues        = "queues"
	endpointQueue         = "queue"
	endpointBenefits      = "benefits"
	endpointLocalities    = "localities"
)

// Client defines the NFZ "Terminy Leczenia" API operations used by terminy.
type Client interface {
	FetchPage(ctx context.Context, criteria appointment.Criteria) (Page[Queue], error)
	FetchQueue(ctx context.Context, id string) (Queue, error)
	SearchBenefits(ctx context.Context, name string, page int) (Page[string], error)
	SearchServiceNames(ctx context.Context, query string) ([]string, error)
	FetchLocalities(ctx context.Context, province, name string, page int) (Page[string], error)
	FetchAllBenefits(ctx context.Context) ([]string, error)
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	MaxRetries    int
	RetryInterval time.Duration
	HTTPClient    httpDoer
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
}

type HTTPClient struct {
	baseURL       string
	userAgent     string
	httpClient    httpDoer
	limiter       *rate.Limiter
	maxRetries    int
	retryInterval time.Duration
	log           zerolog.Logger
	metrics       *metrics.Metrics
}

func NewClient(cfg ClientConfig) (*HTTPClient, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	parsedBase, err := url.Parse(baseURL)
	if err != nil || parsedBase.Scheme == "" || parsedBase.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must not be negative, got %d", cfg.MaxRetries)
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	doer := cfg.HTTPClient
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		doer = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}

	return &HTTPClient{
		baseURL:       baseURL,
		userAgent:     userAgent,
		httpClient:    doer,
		limiter:       rate.NewLimiter(limit, burst),
		maxRetries:    cfg.MaxRetries,
		retryInterval: retryInterval,
		log:           cfg.Logger,
		metrics:       cfg.Metrics,
	}, nil
}

// FetchPage returns one page of queues for the criteria. The region must hold
// the two-digit province code.
func (c *HTTPClient) FetchPage(ctx context.Context, criteria appointment.Criteria) (Page[Queue], error) {
	criteria = criteria.Normalize()
	if criteria.Region == "" {
		return Page[Queue]{}, &Error{Kind: KindInvalidRequest, Err: errors.New("province code is required")}
	}

	query := url.Values{}
	query.Set("province", criteria.Region)
	query.Set("case", strconv.Itoa(int(criteria.CaseType)))
	query.Set("page", strconv.Itoa(criteria.Page))
	query.Set("limit", strconv.Itoa(criteria.Limit))
	if criteria.Benefit != "" {
		query.Set("benefit", criteria.Benefit)
	}
	if criteria.Locality != "" {
		query.Set("locality", criteria.Locality)
	}

	var resp Response[[]Queue]
	if err := c.getJSON(ctx, endpointQueues, "/queues", query, &resp); err != nil {
		return Page[Queue]{}, err
	}
	return pageFrom(resp, criteria.Page, criteria.Limit), nil
}

func (c *HTTPClient) FetchQueue(ctx context.Context, id string) (Queue, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Queue{}, &Error{Kind: KindInvalidRequest, Err: errors.New("queue id is required")}
	}

	var resp Response[Queue]
	if err := c.getJSON(ctx, endpointQueue, "/queues/"+url.PathEscape(id), url.Values{}, &resp); err != nil {
		return Queue{}, err
	}
	return resp.Data, nil
}

// SearchBenefits returns one page of the benefit dictionary, optionally
// filtered by a name fragment.
func (c *HTTPClient) SearchBenefits(ctx context.Context, name string, page int) (Page[string], error) {
	query := dictionaryQuery(page)
	if name = strings.TrimSpace(name); name != "" {
		query.Set("name", name)
	}
	return c.fetchDictionary(ctx, endpointBenefits, "/benefits", query)
}

func (c *HTTPClient) FetchLocalities(ctx context.Context, province, name string, page int) (Page[string], error) {
	query := dictionaryQuery(page)
	if province = strings.TrimSpace(province); province != "" {
		query.Set("province", province)
	}
	if name = strings.TrimSpace(name); name != "" {
		query.Set("name", name)
	}
	return c.fetchDictionary(ctx, endpointLocalities, "/localities", query)
}

func (c *HTTPClient) FetchAllBenefits(ctx context.Context) ([]string, error) {
	return FetchAllPaged(ctx, func(ctx context.Context, page int) (Page[string], error) {
		return c.SearchBenefits(ctx, "", page)
	})
}

func dictionaryQuery(page int) url.Values {
	if page < 1 {
		page = 1
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(appointment.MaxPageSize))
	return query
}

func (c *HTTPClient) fetchDictionary(ctx context.Context, endpoint, path string, query url.Values) (Page[string], error) {
	page, _ := strconv.Atoi(query.Get("page"))
	var resp Response[[]string]
	if err := c.getJSON(ctx, endpoint, path, query, &resp); err != nil {
		return Page[string]{}, err
	}
	return pageFrom(resp, page, appointment.MaxPageSize), nil
}

// getJSON performs a throttled GET with retries for transient failures.
func (c *HTTPClient) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	query.Set("format", "json")
	query.Set("api-version", apiVersion)
	target := c.baseURL + path + "?" + query.Encode()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		err := c.doJSON(ctx, endpoint, target, out)
		if err == nil {
			return nil
		}
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Retryable() && ctx.Err() == nil {
			c.log.Debug().Err(err).Str("endpoint", endpoint).Int("attempt", attempt).Msg("retrying nfz request")
			return err
		}
		return backoff.Permanent(err)
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx))
}

func (c *HTTPClient) doJSON(ctx context.Context, endpoint, target string, out any) (err error) {
	started := time.Now()
	defer func() {
		c.metrics.ObserveAPI(endpoint, outcome(err), started)
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &Error{Kind: KindInvalidRequest, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.log.Debug().Str("endpoint", endpoint).Str("url", target).Msg("nfz request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyPreview))
		return statusError(resp.StatusCode, strings.TrimSpace(string(responseBody)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Err: fmt.Errorf("read response body: %w", err)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.log.Warn().Err(err).Str("endpoint", endpoint).Str("preview", preview(body)).Msg("undecodable nfz response")
		return &Error{Kind: KindDecode, Err: err}
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return strings.ReplaceAll(apiErr.Kind.String(), " ", "_")
	}
	return "error"
}

func preview(body []byte) string {
	if len(body) > maxDecodeErrorPreview {
		body = body[:maxDecodeErrorPreview]
	}
	return string(body)
}
