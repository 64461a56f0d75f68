// Package fred implements the FRED (Federal Reserve Economic Data) provider.
// It fetches the daily observations of each requested series and outer-joins
// them on date.
//
// Requires a free API key from https://fred.stlouisfed.org/docs/api/api_key.html
// Rate limit: 120 requests/minute.
// Docs: https://fred.stlouisfed.org/docs/api/fred/
package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/yieldboard/internal/infra"
	"github.com/seenimoa/yieldboard/internal/provider"
	"github.com/seenimoa/yieldboard/internal/series"
)

const (
	providerName   = "fred"
	DefaultBaseURL = "https://api.stlouisfed.org/fred"
	credAPIKey     = "api_key"

	// missingValue is how FRED marks a date without an observation.
	missingValue = "."
)

// Options tunes the provider. Zero fields take defaults.
type Options struct {
	BaseURL           string        // default DefaultBaseURL
	RequestsPerMinute int           // default 120
	Concurrency       int           // concurrent series requests, default 4
	Timeout           time.Duration // per request, default 30s
	Logger            *slog.Logger
}

// Provider implements provider.Provider for FRED.
type Provider struct {
	provider.BaseProvider
	apiKey      string
	baseURL     string
	limiter     *infra.RateLimiter
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// New creates a new FRED provider.
func New(opts Options) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 120
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Federal Reserve Economic Data - daily rates and spreads",
			"https://fred.stlouisfed.org",
			[]provider.ProviderCredential{
				{
					Name:        credAPIKey,
					Description: "FRED API key from fred.stlouisfed.org",
					Required:    true,
					EnvVar:      "FRED_API_KEY",
				},
			},
		),
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		limiter:     infra.PerMinute(opts.RequestsPerMinute),
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		logger:      opts.Logger.With("provider", providerName),
	}
}

// Init stores the API key.
func (p *Provider) Init(credentials map[string]string) error {
	if err := p.BaseProvider.Init(credentials); err != nil {
		return err
	}
	p.apiKey = credentials[credAPIKey]
	return nil
}

// APIKey returns the stored API key.
func (p *Provider) APIKey() string {
	return p.apiKey
}

// Ping checks connectivity and the API key against a well-known series.
func (p *Provider) Ping(ctx context.Context) error {
	var resp fredSeriesResponse
	if err := p.getJSON(ctx, "series", url.Values{"series_id": {"DGS10"}}, &resp); err != nil {
		return fmt.Errorf("fred ping: %w", err)
	}
	if len(resp.Seriess) == 0 {
		return fmt.Errorf("fred ping: no series metadata returned")
	}
	return nil
}

// Fetch downloads every series in req.IDs and joins them on date. Requests
// run concurrently up to the configured limit and share the rate limiter.
// The first failure cancels the rest.
func (p *Provider) Fetch(ctx context.Context, req provider.Request) (*series.Frame, error) {
	if len(req.IDs) == 0 {
		return nil, &provider.ErrMissingParam{Param: "ids"}
	}

	results := make([][]fredObservation, len(req.IDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, id := range req.IDs {
		g.Go(func() error {
			obs, err := p.observations(gctx, id, req.Start, req.End)
			if err != nil {
				return fmt.Errorf("series %s: %w", id, err)
			}
			results[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := series.NewFrameBuilder(req.IDs...)
	for i, id := range req.IDs {
		for _, o := range results[i] {
			d, err := civil.ParseDate(o.Date)
			if err != nil {
				return nil, fmt.Errorf("series %s: bad date %q", id, o.Date)
			}
			v, ok, err := parseValue(o.Value)
			if err != nil {
				return nil, fmt.Errorf("series %s on %s: %w", id, o.Date, err)
			}
			if !ok {
				b.AddMissing(d)
				continue
			}
			b.Add(id, d, v)
		}
	}
	frame := b.Frame()
	p.logger.Debug("fetched", "series", len(req.IDs), "rows", frame.Len(), "start", req.Start, "end", req.End)
	return frame, nil
}

func (p *Provider) observations(ctx context.Context, id string, start, end civil.Date) ([]fredObservation, error) {
	q := url.Values{"series_id": {id}}
	if start != (civil.Date{}) {
		q.Set("observation_start", start.String())
	}
	if end != (civil.Date{}) {
		q.Set("observation_end", end.String())
	}

	var resp fredObservationsResponse
	if err := p.getJSON(ctx, "series/observations", q, &resp); err != nil {
		return nil, err
	}
	p.logger.Debug("series downloaded", "id", id, "observations", len(resp.Observations))
	return resp.Observations, nil
}

// getJSON performs a rate-limited GET against the FRED API and decodes JSON.
func (p *Provider) getJSON(ctx context.Context, endpoint string, q url.Values, dest any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	q.Set("api_key", p.apiKey)
	q.Set("file_type", "json")

	body, _, err := infra.DoGet(ctx, p.baseURL+"/"+endpoint+"?"+q.Encode(), jsonHeaders())
	if err != nil {
		return describeError(err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read FRED response: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse FRED JSON: %w", err)
	}
	return nil
}

// describeError replaces the raw body of a FRED error response with its
// error_message when one is present.
func describeError(err error) error {
	var he *infra.HTTPError
	if !errors.As(err, &he) {
		return err
	}
	var fe fredErrorResponse
	if json.Unmarshal([]byte(he.Body), &fe) == nil && fe.ErrorMessage != "" {
		return fmt.Errorf("FRED status %d: %s", he.Status, fe.ErrorMessage)
	}
	return err
}

// parseValue converts an observation value. The missing marker reports ok=false.
func parseValue(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == missingValue || s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("bad value %q", s)
	}
	return v, true, nil
}

func jsonHeaders() map[string]string {
	return map[string]string{"Accept": "application/json"}
}
