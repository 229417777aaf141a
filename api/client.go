// Package api implements the payment execution protocol: authorize, status
// resolution with a single long poll, and confirm.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vitwit/payrails/logger"
	"github.com/vitwit/payrails/metrics"
	"github.com/vitwit/payrails/types"
	"github.com/vitwit/payrails/utils"
)

const (
	headerIdempotencyKey = "x-idempotency-key"
	headerClientVersion  = "x-client-version"
	headerClientType     = "x-client-type"

	maxErrorBody = 4 << 10
)

const tracerName = "github.com/vitwit/payrails/api"

// Client talks to the execution API on behalf of one checkout configuration.
type Client struct {
	config *types.Configuration

	httpClient *http.Client
	// Long polls are held open by the server; only the transport bounds them.
	pollClient *http.Client

	clientVersion string
	clientType    string

	timeout       time.Duration
	retryCount    int
	retryInterval time.Duration

	logger  logger.Logger
	metrics metrics.Recorder
	tracer  trace.Tracer

	newIdempotencyKey func() string
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout applies to regular
// calls; long polls reuse its transport without a timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(c *Client) {
		c.timeout = t
	}
}

// WithStatusRetry bounds how often the execution is re-read while its
// authorizeRequested marker is not yet visible.
func WithStatusRetry(count int, interval time.Duration) Option {
	return func(c *Client) {
		c.retryCount = count
		c.retryInterval = interval
	}
}

func WithClientInfo(version, clientType string) Option {
	return func(c *Client) {
		if version != "" {
			c.clientVersion = version
		}
		if clientType != "" {
			c.clientType = clientType
		}
	}
}

// NewClient creates an execution API client for the given configuration.
func NewClient(config *types.Configuration, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, types.NewSDKNotInitialized()
	}

	defaults := types.DefaultSDKConfig()
	c := &Client{
		config: config,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   defaults.Timeout,
		},
		clientVersion:     defaults.ClientVersion,
		clientType:        defaults.ClientType,
		retryCount:        defaults.StatusRetryCount,
		retryInterval:     defaults.StatusRetryInterval,
		logger:            logger.NoopLogger{},
		metrics:           metrics.NoopRecorder{},
		tracer:            otel.Tracer(tracerName),
		newIdempotencyKey: uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	poll := *c.httpClient
	poll.Timeout = 0
	c.pollClient = &poll

	return c, nil
}

// do sends one request. Every call gets a fresh idempotency key.
func (c *Client) do(
	ctx context.Context,
	hc *http.Client,
	method string,
	target string,
	body any,
	out any,
) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return types.NewInvalidDataFormat("failed to encode request body", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return types.NewUnknown(fmt.Errorf("failed to build request: %w", err))
	}
	c.setHeaders(req)

	resp, err := hc.Do(req)
	if err != nil {
		switch ctxErr := ctx.Err(); {
		case errors.Is(ctxErr, context.Canceled):
			return ctxErr
		case ctxErr != nil:
			return types.NewUnknown(ctxErr)
		}
		return types.NewUnknown(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return types.NewAuthenticationError(resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return types.NewUnknown(fmt.Errorf("%s %s: unexpected status %d: %s", method, req.URL.Path, resp.StatusCode, snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewUnknown(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerIdempotencyKey, c.newIdempotencyKey())
	req.Header.Set(headerClientVersion, c.clientVersion)
	req.Header.Set(headerClientType, c.clientType)
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
}

// getExecution reads the execution resource. With waitWhile set the server
// holds the request until the status leaves the given set.
func (c *Client) getExecution(
	ctx context.Context,
	hc *http.Client,
	href string,
	waitWhile []types.StatusCode,
) (*types.Execution, error) {
	target := href
	if len(waitWhile) > 0 {
		var err error
		target, err = withWaitWhile(href, waitWhile)
		if err != nil {
			return nil, err
		}
	}

	var execution types.Execution
	if err := c.do(ctx, hc, http.MethodGet, target, nil, &execution); err != nil {
		return nil, err
	}
	return &execution, nil
}

func withWaitWhile(href string, statuses []types.StatusCode) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", types.NewMissingData(fmt.Sprintf("valid execution link (%v)", err))
	}
	value, err := utils.CompactJSON(statuses)
	if err != nil {
		return "", types.NewInvalidDataFormat("failed to encode wait statuses", err)
	}
	q := u.Query()
	q.Set("waitWhile[status]", value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
