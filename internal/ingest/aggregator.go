package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oddsflow/predictor/models"
)

// Failure records one provider's error during a fan-out call.
type Failure struct {
	Provider string
	Err      error
}

// Report is the per-run summary of a fan-out: which providers succeeded with
// how many records and which failed with what. Callers can inspect failures
// without reading logs.
type Report struct {
	Succeeded map[string]int
	Failures  []Failure
}

// Failed reports whether the named provider failed in this run.
func (r Report) Failed(provider string) bool {
	for _, f := range r.Failures {
		if f.Provider == provider {
			return true
		}
	}
	return false
}

// Aggregator fans out to every registered provider and collects the results
// of the ones that succeed. A provider failure of any kind is recorded and
// excluded, never propagated: no data is a valid terminal state.
type Aggregator struct {
	providers []models.ProviderClient
	timeout   time.Duration
	logger    zerolog.Logger
}

// New creates an aggregator over the given providers. timeout bounds each
// provider call so one hung source cannot stall the join.
func New(providers []models.ProviderClient, timeout time.Duration) *Aggregator {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{
		providers: providers,
		timeout:   timeout,
		logger:    log.With().Str("component", "aggregator").Logger(),
	}
}

// FetchAllLive invokes every provider's live endpoint concurrently and maps
// provider name to its result set for the providers that succeeded.
func (a *Aggregator) FetchAllLive(ctx context.Context) (map[string][]models.RawMatch, Report) {
	return a.fanOut(ctx, func(ctx context.Context, p models.ProviderClient) ([]models.RawMatch, error) {
		return p.FetchLive(ctx)
	})
}

// FetchAllHistorical invokes every provider's historical endpoint over the
// closed range [start, end], with the same partial-failure policy.
func (a *Aggregator) FetchAllHistorical(ctx context.Context, start, end time.Time) (map[string][]models.RawMatch, Report) {
	return a.fanOut(ctx, func(ctx context.Context, p models.ProviderClient) ([]models.RawMatch, error) {
		return p.FetchHistorical(ctx, start, end)
	})
}

type providerResult struct {
	provider string
	matches  []models.RawMatch
	err      error
}

func (a *Aggregator) fanOut(ctx context.Context, call func(context.Context, models.ProviderClient) ([]models.RawMatch, error)) (map[string][]models.RawMatch, Report) {
	results := make(chan providerResult, len(a.providers))

	for _, p := range a.providers {
		go func(p models.ProviderClient) {
			callCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			// The call runs in its own goroutine so the deadline holds even
			// against a provider implementation that ignores its context.
			done := make(chan providerResult, 1)
			go func() {
				matches, err := call(callCtx, p)
				done <- providerResult{provider: p.Name(), matches: matches, err: err}
			}()

			select {
			case res := <-done:
				results <- res
			case <-callCtx.Done():
				results <- providerResult{provider: p.Name(), err: fmt.Errorf("provider call abandoned: %w", callCtx.Err())}
			}
		}(p)
	}

	all := make(map[string][]models.RawMatch)
	report := Report{Succeeded: make(map[string]int)}

	for i := 0; i < len(a.providers); i++ {
		res := <-results
		if res.err != nil {
			a.logger.Warn().Err(res.err).Str("provider", res.provider).Msg("Provider excluded from results")
			report.Failures = append(report.Failures, Failure{Provider: res.provider, Err: res.err})
			continue
		}
		all[res.provider] = res.matches
		report.Succeeded[res.provider] = len(res.matches)
	}

	a.logger.Info().
		Int("succeeded", len(all)).
		Int("failed", len(report.Failures)).
		Msg("Fan-out completed")

	return all, report
}
