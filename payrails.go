// Package payrails is a client-side payment orchestration SDK. A Session
// drives one checkout: it picks the handler for the requested payment type,
// authorizes through the execution API, runs whatever challenge a pending
// execution needs and reports a single OnPayResult per attempt.
package payrails

import (
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vitwit/payrails/api"
	"github.com/vitwit/payrails/handlers"
	"github.com/vitwit/payrails/logger"
	"github.com/vitwit/payrails/metrics"
	"github.com/vitwit/payrails/types"
	"github.com/vitwit/payrails/utils"
)

const tracerName = "github.com/vitwit/payrails"

// Session is the orchestrator for one checkout. It is safe for concurrent
// use; at most one payment attempt is active at a time.
type Session struct {
	config *types.Configuration
	api    *api.Client

	sdk         types.SDKConfig
	sdkFromOpts bool
	apiOpts     []api.Option

	logger     logger.Logger
	metrics    metrics.Recorder
	tracer     trace.Tracer
	dispatcher Dispatcher
	delegate   Delegate

	vault    handlers.Vault
	applePay handlers.ApplePayProvider
	payPal   handlers.PayPalProvider

	mu      sync.Mutex
	current *attempt
}

// NewSession creates a session for an already parsed configuration.
func NewSession(config *types.Configuration, opts ...Option) (*Session, error) {
	if config == nil {
		return nil, types.NewSDKNotInitialized()
	}
	if err := utils.ValidateStruct(config); err != nil {
		return nil, types.NewInvalidDataFormat("invalid configuration", err)
	}
	if _, err := utils.ValidateAmount(config.Amount); err != nil {
		return nil, err
	}

	s := &Session{
		config:     config,
		sdk:        types.DefaultSDKConfig(),
		tracer:     otel.Tracer(tracerName),
		dispatcher: InlineDispatcher{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		if s.sdkFromOpts && s.sdk.LogLevel != "" {
			s.logger = logger.NewZapLogger(s.sdk.LogLevel)
		} else {
			s.logger = logger.NoopLogger{}
		}
	}
	if s.metrics == nil {
		if s.sdk.EnableMetrics {
			s.metrics = metrics.NewPrometheusRecorder(nil)
		} else {
			s.metrics = metrics.NoopRecorder{}
		}
	}
	s.logger = logger.With(s.logger, map[string]any{
		"execution_id": config.Execution.ID,
	})

	apiOpts := append([]api.Option{
		api.WithLogger(s.logger),
		api.WithMetrics(s.metrics),
		api.WithTimeout(s.sdk.Timeout),
		api.WithStatusRetry(s.sdk.StatusRetryCount, s.sdk.StatusRetryInterval),
		api.WithClientInfo(s.sdk.ClientVersion, s.sdk.ClientType),
	}, s.apiOpts...)

	client, err := api.NewClient(config, apiOpts...)
	if err != nil {
		return nil, err
	}
	s.api = client

	return s, nil
}

// NewSessionFromRaw parses the base64 configuration the merchant backend
// hands to the app and creates a session for it.
func NewSessionFromRaw(raw string, opts ...Option) (*Session, error) {
	config, err := utils.ParseConfiguration(raw)
	if err != nil {
		return nil, err
	}
	return NewSession(config, opts...)
}

// Configuration returns the checkout configuration. It must not be modified.
func (s *Session) Configuration() *types.Configuration {
	return s.config
}

// Version information
const (
	Version    = "1.0.0"
	ClientType = "ios-sdk"
)

// GetVersion returns version information
func GetVersion() map[string]any {
	return map[string]any{
		"library_version": Version,
		"client_type":     ClientType,
		"supported_payment_types": []string{
			types.PaymentTypeCard.String(),
			types.PaymentTypeApplePay.String(),
			types.PaymentTypePayPal.String(),
			types.PaymentTypeGenericRedirect.String(),
		},
		"default_timeout": (30 * time.Second).String(),
	}
}
