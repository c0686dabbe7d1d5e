package selector

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"geoselector/pkg/config"
	errs "geoselector/pkg/errors"
	"geoselector/pkg/logger"
	"geoselector/pkg/ratelimit"
	"geoselector/pkg/retry"
)

// Request outcomes reported to a RequestRecorder
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport_error"
	OutcomeMalformed = "malformed"
)

// RequestRecorder receives per-request telemetry
type RequestRecorder interface {
	ObserveRequest(endpoint, outcome string, duration time.Duration)
	ObserveRetry(endpoint string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, string, time.Duration) {}
func (nopRecorder) ObserveRetry(string)                          {}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Retry    *retry.Config
	Limiter  ratelimit.Limiter
	Recorder RequestRecorder
	Logger   logger.Logger
}

// Client talks to the selector gate
type Client struct {
	http         *resty.Client
	frontPageURL string
	postURL      string
	retry        *retry.Config
	limiter      ratelimit.Limiter
	recorder     RequestRecorder
	logger       logger.Logger
}

// NewClient creates a selector client
func NewClient(cfg config.SelectorConfig, opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "selector")

	retryCfg := opts.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
		retryCfg.Logger = log
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	client := resty.New()
	// the session cookie is sent explicitly from AuthContext
	client.SetCookieJar(nil)
	client.SetTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	client.SetHeader("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.8")
	if cfg.InsecureSkipVerify {
		log.Warn("TLS certificate verification is disabled for the selector service")
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	return &Client{
		http:         client,
		frontPageURL: cfg.FrontPageURL,
		postURL:      cfg.PostURL,
		retry:        retryCfg,
		limiter:      limiter,
		recorder:     recorder,
		logger:       log,
	}
}

// FetchRegion queries the get endpoint for a region and its children
func (c *Client) FetchRegion(ctx context.Context, auth AuthContext, geoID int64) (*RegionResponse, error) {
	var resp RegionResponse
	if err := c.post(ctx, auth, EndpointGet, regionParams(geoID), &resp); err != nil {
		return nil, err
	}
	if err := resp.validate(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeMalformedResponse, "selector.get",
			fmt.Errorf("geoId %d: %w", geoID, err))
	}
	return &resp, nil
}

// FetchMetro queries the metro stations of a region
func (c *Client) FetchMetro(ctx context.Context, auth AuthContext, geoID, gid int64) (*MetroResponse, error) {
	var resp MetroResponse
	if err := c.post(ctx, auth, EndpointMetro, detailParams(geoID, gid), &resp); err != nil {
		return nil, err
	}
	if resp.Metro == nil {
		return nil, errs.Newf(errs.ErrorTypeMalformedResponse, "selector.metro",
			"geoId %d: metro missing", geoID)
	}
	if err := validateEntities("station", resp.Metro.Stations); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeMalformedResponse, "selector.metro",
			fmt.Errorf("geoId %d: %w", geoID, err))
	}
	return &resp, nil
}

// FetchSubloc queries the sub-localities of a region
func (c *Client) FetchSubloc(ctx context.Context, auth AuthContext, geoID, gid int64) (*SublocResponse, error) {
	var resp SublocResponse
	if err := c.post(ctx, auth, EndpointSubLocalities, detailParams(geoID, gid), &resp); err != nil {
		return nil, err
	}
	if err := validateEntities("sub-locality", resp.SubLocalities); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeMalformedResponse, "selector.sub-localities",
			fmt.Errorf("geoId %d: %w", geoID, err))
	}
	return &resp, nil
}

// post sends one form-encoded query, retrying transport failures, and
// decodes the response field of the envelope into target.
func (c *Client) post(ctx context.Context, auth AuthContext, endpoint string, params map[string]string, target interface{}) error {
	cfg := *c.retry
	onRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.recorder.ObserveRetry(endpoint)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
	}

	return retry.Do(ctx, func(ctx context.Context) error {
		return c.postOnce(ctx, auth, endpoint, params, target)
	}, &cfg)
}

func (c *Client) postOnce(ctx context.Context, auth AuthContext, endpoint string, params map[string]string, target interface{}) error {
	op := "selector." + endpoint

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	form := make(map[string]string, len(params)+1)
	for k, v := range params {
		form[k] = v
	}
	form[paramCRC] = auth.CRC

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(form)
	if auth.CookieHeader != "" {
		req.SetHeader("Cookie", auth.CookieHeader)
	}

	start := time.Now()
	resp, err := req.Post(BuildEndpointURL(c.postURL, endpoint))
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.recorder.ObserveRequest(endpoint, OutcomeTransport, duration)
		c.logger.WarnWithFields("selector request failed", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		return errs.Wrap(errs.ErrorTypeTransport, op, err)
	}

	status := resp.StatusCode()
	logger.LogRequest(c.logger, endpoint, status, duration)

	if errs.IsRetryableStatusCode(status) {
		c.recorder.ObserveRequest(endpoint, OutcomeTransport, duration)
		return &errs.Error{Type: errs.ErrorTypeTransport, Op: op, Code: status,
			Message: fmt.Sprintf("server returned status %d", status)}
	}
	if !resp.IsSuccess() {
		c.recorder.ObserveRequest(endpoint, OutcomeMalformed, duration)
		return &errs.Error{Type: errs.ErrorTypeMalformedResponse, Op: op, Code: status,
			Message: fmt.Sprintf("server rejected request with status %d", status)}
	}

	if err := decodeEnvelope(resp.Body(), target); err != nil {
		c.recorder.ObserveRequest(endpoint, OutcomeMalformed, duration)
		return errs.Wrap(errs.ErrorTypeMalformedResponse, op, err)
	}

	c.recorder.ObserveRequest(endpoint, OutcomeOK, duration)
	return nil
}

func decodeEnvelope(body []byte, target interface{}) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if len(env.Response) == 0 || bytes.Equal(bytes.TrimSpace(env.Response), []byte("null")) {
		return fmt.Errorf("response field missing")
	}
	if err := json.Unmarshal(env.Response, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
