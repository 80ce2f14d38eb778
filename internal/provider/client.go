package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpclient "github.com/oddsflow/predictor/internal/platform/http"
	"github.com/oddsflow/predictor/models"
)

// Client talks to one external match-data source. All providers share this
// implementation; only the base address and bearer credential differ.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *httpclient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new provider client
type ClientOptions struct {
	Name            string
	BaseURL         string
	APIKey          string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new provider client
func NewClient(opts ClientOptions) *Client {
	httpOpts := httpclient.ClientOptions{
		Timeout:         opts.RequestTimeout,
		RequestsPerSec:  opts.RequestsPerSec,
		MaxRetryTimeout: opts.MaxRetryTimeout,
	}

	return &Client{
		name:       opts.Name,
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		httpClient: httpclient.NewClient(httpOpts),
		logger:     log.With().Str("component", "provider_client").Str("provider", opts.Name).Logger(),
	}
}

// Name returns the provider's registered name.
func (c *Client) Name() string { return c.name }

// FetchLive fetches the provider's currently live matches.
func (c *Client) FetchLive(ctx context.Context) ([]models.RawMatch, error) {
	return c.fetch(ctx, "/live_matches", nil)
}

// FetchHistorical fetches matches over a closed date range.
func (c *Client) FetchHistorical(ctx context.Context, start, end time.Time) ([]models.RawMatch, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidDateRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	params := url.Values{}
	params.Set("start_date", start.Format("2006-01-02"))
	params.Set("end_date", end.Format("2006-01-02"))

	return c.fetch(ctx, "/historical_data", params)
}

func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) ([]models.RawMatch, error) {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	c.logger.Debug().Str("url", reqURL).Msg("Fetching matches")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, c.classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrUnavailable, err)
	}

	var matches []models.RawMatch
	if err := json.Unmarshal(body, &matches); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing JSON")
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	c.logger.Debug().Int("count", len(matches)).Msg("Fetched matches")
	return matches, nil
}

// classify maps transport failures onto the provider error taxonomy.
func (c *Client) classify(err error) error {
	var statusErr *httpclient.HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuthFailed, err)
		default:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
