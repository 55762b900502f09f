// Package distance wraps the external, out-of-scope distance service
// behind a small opaque client: ComputeRouteDistance(origin, dest) ->
// {km, days, source}. The core never models the service's internals, only
// this result shape (spec.md §1, §6.4). A circuit breaker plus a 2-layer
// stale-cache fallback keep a flapping upstream from taking the quoting
// hot path down with it (SPEC_FULL.md §4), grounded on FallbackEngine's
// layered-fallback architecture, scoped from 4 layers to 2.
package distance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/iaros/freightquote/internal/apperrors"
	"github.com/iaros/freightquote/internal/logging"
)

// Result is the opaque response from the distance service.
type Result struct {
	KM      float64
	Days    float64
	Source  string
	Stale   bool
}

// Client calls the external distance service through a circuit breaker,
// falling back to the last-known-good result for the same pincode pair
// when the breaker is open or the call times out.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	log     *logging.Logger
	hasKey  bool

	mu    sync.Mutex
	cache map[string]Result // lastKnown, keyed by "origin:dest"
}

// Config controls Client construction.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// New builds a Client. Its circuit breaker is always named
// "distance-service".
func New(cfg Config, log *logging.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", "Bearer "+cfg.APIKey)

	breakerSettings := gobreaker.Settings{
		Name:        "distance-service",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		http:    httpClient,
		breaker: gobreaker.NewCircuitBreaker(breakerSettings),
		log:     log,
		hasKey:  cfg.APIKey != "",
		cache:   make(map[string]Result),
	}
}

type routeResponse struct {
	DistanceKM float64 `json:"distanceKm"`
	DurationDays float64 `json:"durationDays"`
	Source     string  `json:"source"`
	Error      string  `json:"error"`
}

// ComputeRouteDistance calls the external distance service, applying the
// circuit breaker and the 2-layer stale-cache fallback.
func (c *Client) ComputeRouteDistance(ctx context.Context, origin, dest int) (Result, error) {
	if !c.hasKey {
		return Result{}, apperrors.New(apperrors.APIKeyMissing, "distance.ComputeRouteDistance", "distance service API key is not configured")
	}
	key := fmt.Sprintf("%d:%d", origin, dest)

	// A non-retryable apperrors.Error means the call reached the service
	// and got a definite answer (bad pincode, no road route). That is a
	// healthy upstream, so it must not count toward the breaker's failure
	// threshold, and it must not be papered over by a stale cache hit.
	var definite *apperrors.Error
	raw, err := c.breaker.Execute(func() (interface{}, error) {
		result, callErr := c.call(ctx, origin, dest)
		if callErr != nil {
			if appErr, ok := callErr.(*apperrors.Error); ok && !appErr.Retryable {
				definite = appErr
				return Result{}, nil
			}
			return nil, callErr
		}
		return result, nil
	})
	if definite != nil {
		return Result{}, definite
	}
	if err == nil {
		result := raw.(Result)
		c.mu.Lock()
		c.cache[key] = result
		c.mu.Unlock()
		return result, nil
	}

	c.log.Warn("distance service call failed, attempting stale fallback", zap.Error(err))

	c.mu.Lock()
	stale, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		stale.Stale = true
		return stale, nil
	}

	if appErr, ok := err.(*apperrors.Error); ok {
		return Result{}, appErr
	}
	return Result{}, apperrors.Wrap(apperrors.APITimeout, "distance.ComputeRouteDistance", "distance service unavailable and no cached result", err)
}

func (c *Client) call(ctx context.Context, origin, dest int) (Result, error) {
	var body routeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("origin", fmt.Sprintf("%d", origin)).
		SetQueryParam("destination", fmt.Sprintf("%d", dest)).
		SetResult(&body).
		Get("/route-distance")

	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.APITimeout, "distance.call", "distance service request failed", err)
	}
	if resp.StatusCode() == 404 || body.Error == "NO_ROAD_ROUTE" {
		return Result{}, apperrors.New(apperrors.NoRoadRoute, "distance.call", "no road route between the given pincodes")
	}
	if body.Error == "PINCODE_NOT_FOUND" {
		return Result{}, apperrors.New(apperrors.PincodeNotFound, "distance.call", "pincode not recognised by distance service")
	}
	if resp.IsError() {
		return Result{}, apperrors.New(apperrors.GoogleAPIError, "distance.call", fmt.Sprintf("distance service returned status %d", resp.StatusCode()))
	}

	return Result{KM: body.DistanceKM, Days: body.DurationDays, Source: body.Source}, nil
}
