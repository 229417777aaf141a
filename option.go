package payrails

import (
	"net/http"
	"time"

	"github.com/vitwit/payrails/api"
	"github.com/vitwit/payrails/handlers"
	"github.com/vitwit/payrails/logger"
	"github.com/vitwit/payrails/metrics"
	"github.com/vitwit/payrails/types"
)

type Option func(*Session)

func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Session) {
		s.metrics = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(s *Session) {
		s.sdk.Timeout = t
	}
}

// WithSDKConfig replaces the runtime settings. Its LogLevel builds a zap
// logger and EnableMetrics a Prometheus recorder, unless WithLogger or
// WithMetrics are given as well.
func WithSDKConfig(cfg types.SDKConfig) Option {
	return func(s *Session) {
		defaults := types.DefaultSDKConfig()
		if cfg.Timeout <= 0 {
			cfg.Timeout = defaults.Timeout
		}
		if cfg.StatusRetryInterval <= 0 {
			cfg.StatusRetryInterval = defaults.StatusRetryInterval
		}
		s.sdk = cfg
		s.sdkFromOpts = true
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) {
		if hc != nil {
			s.apiOpts = append(s.apiOpts, api.WithHTTPClient(hc))
		}
	}
}

// WithStatusRetry bounds the status re-reads while the execution does not
// yet show the authorize request.
func WithStatusRetry(count int, interval time.Duration) Option {
	return func(s *Session) {
		s.sdk.StatusRetryCount = count
		s.sdk.StatusRetryInterval = interval
	}
}

func WithClientVersion(version string) Option {
	return func(s *Session) {
		s.sdk.ClientVersion = version
	}
}

// WithDispatcher sets where results and delegate callbacks are delivered.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Session) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

func WithDelegate(d Delegate) Option {
	return func(s *Session) {
		s.delegate = d
	}
}

func WithVault(v handlers.Vault) Option {
	return func(s *Session) {
		s.vault = v
	}
}

func WithApplePay(p handlers.ApplePayProvider) Option {
	return func(s *Session) {
		s.applePay = p
	}
}

func WithPayPal(p handlers.PayPalProvider) Option {
	return func(s *Session) {
		s.payPal = p
	}
}
